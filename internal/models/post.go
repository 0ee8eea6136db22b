package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Post represents an authored content record stored in MongoDB.
// UserID references the owning User; the reference may become dangling if
// the owner is deleted out of band, in which case the post must never be
// surfaced in reads.
type Post struct {
	ID         primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	UserID     primitive.ObjectID `json:"user_id" bson:"user"`
	Slug       string             `json:"slug" bson:"slug"`
	Title      string             `json:"title" bson:"title"`
	Desc       string             `json:"desc,omitempty" bson:"desc,omitempty"`
	Content    string             `json:"content" bson:"content"`
	Category   string             `json:"category,omitempty" bson:"category,omitempty"`
	Img        string             `json:"img,omitempty" bson:"img,omitempty"`
	IsFeatured bool               `json:"is_featured" bson:"is_featured"`
	Visit      int64              `json:"visit" bson:"visit"`
	CreatedAt  time.Time          `json:"created_at" bson:"created_at"`

	// User is the joined owner; populated on reads, never persisted.
	User *PublicProfile `json:"user,omitempty" bson:"-"`
}

// PostOwnerRef is the projection the integrity sweeper scans:
// just the post id and its owner reference.
type PostOwnerRef struct {
	ID     primitive.ObjectID `bson:"_id"`
	UserID primitive.ObjectID `bson:"user"`
}

// CreatePostRequest defines the request body for creating a new post
type CreatePostRequest struct {
	Title    string `json:"title" validate:"required,min=1,max=200"`
	Desc     string `json:"desc,omitempty" validate:"omitempty,max=500"`
	Content  string `json:"content" validate:"required,min=1"`
	Category string `json:"category,omitempty" validate:"omitempty,max=50"`
	Img      string `json:"img,omitempty" validate:"omitempty,url"`
}

// FeaturePostRequest defines the request body for the feature/unfeature toggle
type FeaturePostRequest struct {
	PostID string `json:"post_id" validate:"required"`
}

// SavePostRequest defines the request body for the save/unsave endpoints
type SavePostRequest struct {
	PostID string `json:"post_id" validate:"required"`
}
