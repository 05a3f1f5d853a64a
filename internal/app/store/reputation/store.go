// internal/app/store/reputation/store.go
package reputation

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mercatohq/mercato/internal/domain/models"
)

// Points awarded per forum action.
const (
	PointsPost    = 10
	PointsComment = 5
	PointsLike    = 2
)

// ErrNotFound is returned when a user has no reputation record yet.
var ErrNotFound = errors.New("reputation record not found")

// Store manages per-user, per-tenant reputation records.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("user_reputation")}
}

// AwardPost credits a user for creating a post.
func (s *Store) AwardPost(ctx context.Context, userID, tenantID primitive.ObjectID) (models.UserReputation, error) {
	return s.adjust(ctx, userID, tenantID, PointsPost, "posts_created", 1)
}

// AwardComment credits a user for writing a comment.
func (s *Store) AwardComment(ctx context.Context, userID, tenantID primitive.ObjectID) (models.UserReputation, error) {
	return s.adjust(ctx, userID, tenantID, PointsComment, "comments_created", 1)
}

// AdjustLike credits or debits a post author when their post is liked or
// unliked. delta is +1 on like, -1 on unlike.
func (s *Store) AdjustLike(ctx context.Context, userID, tenantID primitive.ObjectID, delta int) (models.UserReputation, error) {
	return s.adjust(ctx, userID, tenantID, PointsLike*delta, "likes_received", delta)
}

// adjust applies an atomic points/counter delta, upserting the record on
// first contact, then reconciles the stored level against the new total.
func (s *Store) adjust(ctx context.Context, userID, tenantID primitive.ObjectID, points int, counterField string, counterDelta int) (models.UserReputation, error) {
	now := time.Now().UTC()

	inc := bson.M{"points": points}
	if counterField != "" {
		inc[counterField] = counterDelta
	}

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var rep models.UserReputation
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"user_id": userID, "tenant_id": tenantID},
		bson.M{
			"$inc":         inc,
			"$set":         bson.M{"updated_at": now},
			"$setOnInsert": bson.M{"created_at": now},
		},
		opts,
	).Decode(&rep)
	if err != nil {
		return models.UserReputation{}, err
	}

	// Level is derived from points; patch it when a threshold was crossed.
	if level := models.LevelForPoints(rep.Points); level != rep.Level {
		rep.Level = level
		if _, err := s.c.UpdateOne(ctx,
			bson.M{"_id": rep.ID},
			bson.M{"$set": bson.M{"level": level}},
		); err != nil {
			return models.UserReputation{}, err
		}
	}
	return rep, nil
}

// Get loads a user's reputation within a tenant.
func (s *Store) Get(ctx context.Context, userID, tenantID primitive.ObjectID) (*models.UserReputation, error) {
	var rep models.UserReputation
	err := s.c.FindOne(ctx, bson.M{"user_id": userID, "tenant_id": tenantID}).Decode(&rep)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rep, nil
}

// Leaderboard returns a tenant's top users by points.
func (s *Store) Leaderboard(ctx context.Context, tenantID primitive.ObjectID, limit int64) ([]models.UserReputation, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "points", Value: -1}, {Key: "updated_at", Value: 1}}).
		SetLimit(limit)

	cur, err := s.c.Find(ctx, bson.M{"tenant_id": tenantID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.UserReputation
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
