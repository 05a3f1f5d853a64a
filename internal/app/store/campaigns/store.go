// internal/app/store/campaigns/store.go
package campaigns

import (
	"context"
	"errors"
	"time"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mercatohq/mercato/internal/app/system/inputval"
	"github.com/mercatohq/mercato/internal/app/system/normalize"
	"github.com/mercatohq/mercato/internal/domain/models"
)

var (
	// ErrNotFound is returned when the requested campaign does not exist.
	ErrNotFound = errors.New("campaign not found")

	errBadTitle  = errors.New("title is required")
	errBadTarget = errors.New("target points must be positive")
	errBadWindow = errors.New("end date must be after start date")
)

// Store manages community campaigns and their participants.
type Store struct {
	c            *mongo.Collection
	participants *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{
		c:            db.Collection("forum_campaigns"),
		participants: db.Collection("campaign_participants"),
	}
}

// Create inserts a new campaign. Progress always starts at zero.
func (s *Store) Create(ctx context.Context, c models.Campaign) (models.Campaign, error) {
	c.ID = primitive.NewObjectID()
	c.Title = normalize.Name(c.Title)
	c.CurrentProgress = 0

	if c.Title == "" {
		return models.Campaign{}, errBadTitle
	}
	if c.TargetPoints <= 0 {
		return models.Campaign{}, errBadTarget
	}
	if !c.EndDate.After(c.StartDate) {
		return models.Campaign{}, errBadWindow
	}

	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, c); err != nil {
		return models.Campaign{}, err
	}
	return c, nil
}

// GetByID loads a campaign by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Campaign, error) {
	var c models.Campaign
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&c); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// ListActive returns campaigns whose window contains now and whose active
// flag is set, soonest-ending first.
func (s *Store) ListActive(ctx context.Context, tenantID primitive.ObjectID, now time.Time) ([]models.Campaign, error) {
	opts := options.Find().SetSort(bson.D{{Key: "end_date", Value: 1}})

	cur, err := s.c.Find(ctx, bson.M{
		"tenant_id":  tenantID,
		"is_active":  true,
		"start_date": bson.M{"$lte": now},
		"end_date":   bson.M{"$gt": now},
	}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Campaign
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// List returns a page of a tenant's campaigns, newest first.
func (s *Store) List(ctx context.Context, tenantID primitive.ObjectID, page, limit int) ([]models.Campaign, int64, error) {
	page, limit = inputval.SanitizePagination(page, limit)
	query := bson.M{"tenant_id": tenantID}

	total, err := s.c.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(int64((page - 1) * limit))

	cur, err := s.c.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	var out []models.Campaign
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// AddProgress bumps a campaign's progress counter atomically.
func (s *Store) AddProgress(ctx context.Context, id primitive.ObjectID, points int) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{
			"$inc": bson.M{"current_progress": points},
			"$set": bson.M{"updated_at": time.Now().UTC()},
		},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// SetActive flips a campaign's active flag.
func (s *Store) SetActive(ctx context.Context, id primitive.ObjectID, active bool) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"is_active": active, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ToggleParticipation flips a user's membership in a campaign. Returns true
// when the user is now participating.
func (s *Store) ToggleParticipation(ctx context.Context, userID, campaignID primitive.ObjectID) (bool, error) {
	res, err := s.participants.DeleteOne(ctx, bson.M{"user_id": userID, "campaign_id": campaignID})
	if err != nil {
		return false, err
	}
	if res.DeletedCount == 1 {
		return false, nil
	}

	_, err = s.participants.InsertOne(ctx, models.CampaignParticipant{
		ID:         primitive.NewObjectID(),
		UserID:     userID,
		CampaignID: campaignID,
		JoinedAt:   time.Now().UTC(),
	})
	if err != nil {
		if wafflemongo.IsDup(err) {
			return true, nil
		}
		return false, err
	}
	return true, nil
}

// IsParticipating reports whether the user has joined the campaign.
func (s *Store) IsParticipating(ctx context.Context, userID, campaignID primitive.ObjectID) (bool, error) {
	err := s.participants.FindOne(ctx, bson.M{"user_id": userID, "campaign_id": campaignID}).Err()
	if err == nil {
		return true, nil
	}
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	return false, err
}

// CountParticipants returns how many users have joined the campaign.
func (s *Store) CountParticipants(ctx context.Context, campaignID primitive.ObjectID) (int64, error) {
	return s.participants.CountDocuments(ctx, bson.M{"campaign_id": campaignID})
}
