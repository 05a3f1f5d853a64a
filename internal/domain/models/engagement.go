// internal/domain/models/engagement.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PostLike is a toggle relation: the document's presence means the user has
// liked the post; absence means they have not. A unique (user_id, post_id)
// index backs the invariant, so toggling is idempotent under retry.
type PostLike struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID `bson:"user_id" json:"user_id"`
	PostID    primitive.ObjectID `bson:"post_id" json:"post_id"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}

// Bookmark is a toggle relation marking a post saved by a user.
type Bookmark struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID `bson:"user_id" json:"user_id"`
	PostID    primitive.ObjectID `bson:"post_id" json:"post_id"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}
