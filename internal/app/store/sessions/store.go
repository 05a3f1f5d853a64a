// internal/app/store/sessions/store.go
package sessions

import (
	"context"
	"encoding/hex"
	"errors"
	"time"

	"github.com/gorilla/securecookie"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mercatohq/mercato/internal/domain/models"
)

// TTL is how long a session stays valid after creation.
const TTL = 7 * 24 * time.Hour

// ErrNotFound is returned when no live session matches the given token.
var ErrNotFound = errors.New("session not found or expired")

// Store manages server-side login sessions. The browser only ever holds the
// opaque token; everything else lives in Mongo.
type Store struct {
	c *mongo.Collection
}

// New creates a new sessions Store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("sessions")}
}

// Create starts a new session for a user with a fresh random token.
func (s *Store) Create(ctx context.Context, userID primitive.ObjectID, ip, userAgent string) (models.Session, error) {
	now := time.Now().UTC()

	sess := models.Session{
		ID:             primitive.NewObjectID(),
		UserID:         userID,
		Token:          hex.EncodeToString(securecookie.GenerateRandomKey(32)),
		ExpiresAt:      now.Add(TTL),
		IP:             ip,
		UserAgent:      userAgent,
		CreatedAt:      now,
		LastAccessedAt: now,
	}

	if _, err := s.c.InsertOne(ctx, sess); err != nil {
		return models.Session{}, err
	}
	return sess, nil
}

// GetByToken resolves a token to its session. Expired sessions are treated as
// absent; the row is left for DeleteExpired to sweep.
func (s *Store) GetByToken(ctx context.Context, token string) (*models.Session, error) {
	var sess models.Session
	err := s.c.FindOne(ctx, bson.M{
		"token":      token,
		"expires_at": bson.M{"$gt": time.Now().UTC()},
	}).Decode(&sess)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

// Touch records activity on a session.
func (s *Store) Touch(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"last_accessed_at": time.Now().UTC()}},
	)
	return err
}

// Delete removes the session with the given token (sign-out).
func (s *Store) Delete(ctx context.Context, token string) error {
	_, err := s.c.DeleteOne(ctx, bson.M{"token": token})
	return err
}

// DeleteByUser removes all sessions for a user, e.g. after a role change or
// account deletion. Returns the number of sessions removed.
func (s *Store) DeleteByUser(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"user_id": userID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// DeleteExpired removes sessions whose expiry has passed. Called by the
// session cleanup worker.
func (s *Store) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lte": now.UTC()}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// ListByUser returns a user's sessions, newest first.
func (s *Store) ListByUser(ctx context.Context, userID primitive.ObjectID, limit int64) ([]models.Session, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit)

	cur, err := s.c.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var sessions []models.Session
	if err := cur.All(ctx, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}
