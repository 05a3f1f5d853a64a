// internal/domain/models/reputation.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Reputation levels, in ascending order of points.
const (
	LevelBronze   = "bronze"
	LevelSilver   = "silver"
	LevelGold     = "gold"
	LevelPlatinum = "platinum"
)

// UserReputation accumulates per-(user, tenant) community points feeding the
// leaderboard. Points and the per-kind counters are maintained with $inc in
// the same handler as the event that earns them.
type UserReputation struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID   primitive.ObjectID `bson:"user_id" json:"user_id"`
	TenantID primitive.ObjectID `bson:"tenant_id" json:"tenant_id"`
	Points   int                `bson:"points" json:"points"`
	Level    string             `bson:"level" json:"level"`

	PostsCreated    int `bson:"posts_created" json:"posts_created"`
	CommentsCreated int `bson:"comments_created" json:"comments_created"`
	LikesReceived   int `bson:"likes_received" json:"likes_received"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// LevelForPoints maps a points total to a reputation level.
func LevelForPoints(points int) string {
	switch {
	case points >= 2000:
		return LevelPlatinum
	case points >= 500:
		return LevelGold
	case points >= 100:
		return LevelSilver
	default:
		return LevelBronze
	}
}
