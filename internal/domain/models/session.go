// internal/domain/models/session.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Session is a server-side login session. The browser cookie carries only the
// opaque token; the session document is authoritative. Sessions are created at
// sign-in, deleted at sign-out, and swept by the expiry worker once
// expires_at has passed.
type Session struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID         primitive.ObjectID `bson:"user_id" json:"user_id"`
	Token          string             `bson:"token" json:"-"`
	ExpiresAt      time.Time          `bson:"expires_at" json:"expires_at"`
	IP             string             `bson:"ip,omitempty" json:"-"`
	UserAgent      string             `bson:"user_agent,omitempty" json:"-"`
	CreatedAt      time.Time          `bson:"created_at" json:"created_at"`
	LastAccessedAt time.Time          `bson:"last_accessed_at" json:"last_accessed_at"`
}
