package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User represents an account mirrored from the external identity provider.
// SubjectID is the provider's immutable user id; Username is unique and may
// be rewritten by the identity normalizer at any time.
type User struct {
	ID         primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	SubjectID  string             `json:"subject_id" bson:"subject_id"`
	Username   string             `json:"username" bson:"username"`
	Email      string             `json:"email" bson:"email"`
	Img        string             `json:"img,omitempty" bson:"img,omitempty"`
	SavedPosts []string           `json:"saved_posts" bson:"saved_posts"`
	CreatedAt  time.Time          `json:"created_at" bson:"created_at"`
}

// PublicProfile is the subset of User exposed on public endpoints
type PublicProfile struct {
	Username  string    `json:"username"`
	Img       string    `json:"img,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Public returns the externally visible view of the user
func (u *User) Public() PublicProfile {
	return PublicProfile{Username: u.Username, Img: u.Img, CreatedAt: u.CreatedAt}
}

// UpdateProfileRequest defines the request body for updating the caller's profile
type UpdateProfileRequest struct {
	Username string `json:"username,omitempty" validate:"omitempty,min=3,max=40"`
	Img      string `json:"img,omitempty" validate:"omitempty,url"`
}

// IdentityEvent is the payload the identity provider delivers on its webhook
type IdentityEvent struct {
	Type        string `json:"type" validate:"required,oneof=created deleted"`
	SubjectID   string `json:"subject_id" validate:"required"`
	Email       string `json:"email,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty" validate:"omitempty,url"`
}
