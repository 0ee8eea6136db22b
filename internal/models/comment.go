package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Comment represents a comment on a post. Carries the same dangling-owner
// risk as Post; comments with unresolved owners are dropped on read.
type Comment struct {
	ID        primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	UserID    primitive.ObjectID `json:"user_id" bson:"user"`
	PostID    primitive.ObjectID `json:"post_id" bson:"post"`
	Desc      string             `json:"desc" bson:"desc"`
	CreatedAt time.Time          `json:"created_at" bson:"created_at"`

	User *PublicProfile `json:"user,omitempty" bson:"-"`
}

// CreateCommentRequest defines the request body for creating a new comment
type CreateCommentRequest struct {
	Desc string `json:"desc" validate:"required,min=1,max=1000"`
}
