// internal/domain/models/forum.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ForumPost is a discussion thread within a tenant's community.
//
// Likes and Views are denormalized counters maintained with $inc alongside
// the forum_post_likes join collection; they are display values, the join
// documents are the source of truth for "who liked".
type ForumPost struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	TenantID primitive.ObjectID `bson:"tenant_id" json:"tenant_id"`
	AuthorID primitive.ObjectID `bson:"author_id" json:"author_id"`
	Title    string             `bson:"title" json:"title"`
	Content  string             `bson:"content" json:"content"`
	Category string             `bson:"category" json:"category"`
	Tags     []string           `bson:"tags" json:"tags"`
	Likes    int                `bson:"likes" json:"likes"`
	Views    int                `bson:"views" json:"views"`
	Pinned   bool               `bson:"pinned" json:"pinned"` // admin-only toggle
	Locked   bool               `bson:"locked" json:"locked"` // admin-only toggle

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// ForumComment is a reply on a post. ParentID is a flat reference for
// threading display; it is not enforced as a tree invariant.
type ForumComment struct {
	ID       primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	PostID   primitive.ObjectID  `bson:"post_id" json:"post_id"`
	AuthorID primitive.ObjectID  `bson:"author_id" json:"author_id"`
	Content  string              `bson:"content" json:"content"`
	Likes    int                 `bson:"likes" json:"likes"`
	ParentID *primitive.ObjectID `bson:"parent_id,omitempty" json:"parent_id,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// ForumCategory is a tenant-curated category for the community sidebar.
type ForumCategory struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	TenantID    primitive.ObjectID `bson:"tenant_id" json:"tenant_id"`
	Name        string             `bson:"name" json:"name"`
	Slug        string             `bson:"slug" json:"slug"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	Icon        string             `bson:"icon" json:"icon"`
	Color       string             `bson:"color" json:"color"`
	Order       int                `bson:"order" json:"order"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
