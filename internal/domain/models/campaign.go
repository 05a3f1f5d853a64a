// internal/domain/models/campaign.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Campaign is a time-bounded gamification challenge within a tenant's forum.
// A campaign is live when IsActive is set and now falls inside
// [StartDate, EndDate).
type Campaign struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	TenantID        primitive.ObjectID `bson:"tenant_id" json:"tenant_id"`
	Title           string             `bson:"title" json:"title"`
	Description     string             `bson:"description" json:"description"`
	Prize           string             `bson:"prize" json:"prize"`
	TargetPoints    int                `bson:"target_points" json:"target_points"`
	CurrentProgress int                `bson:"current_progress" json:"current_progress"`
	StartDate       time.Time          `bson:"start_date" json:"start_date"`
	EndDate         time.Time          `bson:"end_date" json:"end_date"`
	IsActive        bool               `bson:"is_active" json:"is_active"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// CampaignParticipant is a toggle relation: presence means the user has
// joined the campaign.
type CampaignParticipant struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID     primitive.ObjectID `bson:"user_id" json:"user_id"`
	CampaignID primitive.ObjectID `bson:"campaign_id" json:"campaign_id"`
	JoinedAt   time.Time          `bson:"joined_at" json:"joined_at"`
}
