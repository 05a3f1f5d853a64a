// internal/app/store/comments/store.go
package comments

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mercatohq/mercato/internal/app/system/htmlsanitize"
	"github.com/mercatohq/mercato/internal/app/system/inputval"
	"github.com/mercatohq/mercato/internal/domain/models"
)

var (
	// ErrNotFound is returned when the requested comment does not exist.
	ErrNotFound = errors.New("comment not found")

	errEmptyContent = errors.New("comment content is required")
)

// Store manages forum comment documents.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("forum_comments")}
}

// Create inserts a new comment. Content is sanitized before storage. The
// caller has already verified the post exists and is not locked.
func (s *Store) Create(ctx context.Context, c models.ForumComment) (models.ForumComment, error) {
	c.ID = primitive.NewObjectID()
	c.Content = string(htmlsanitize.PrepareForDisplay(c.Content))
	c.Likes = 0

	if c.Content == "" {
		return models.ForumComment{}, errEmptyContent
	}

	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, c); err != nil {
		return models.ForumComment{}, err
	}
	return c, nil
}

// GetByID loads a comment by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.ForumComment, error) {
	var c models.ForumComment
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&c); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// ListByPost returns a page of a post's comments, oldest first so threads
// read top-down.
func (s *Store) ListByPost(ctx context.Context, postID primitive.ObjectID, page, limit int) ([]models.ForumComment, int64, error) {
	page, limit = inputval.SanitizePagination(page, limit)
	query := bson.M{"post_id": postID}

	total, err := s.c.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}}).
		SetLimit(int64(limit)).
		SetSkip(int64((page - 1) * limit))

	cur, err := s.c.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	var out []models.ForumComment
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Update replaces a comment's content, re-sanitized. Threading and counters
// are not editable.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, content string) error {
	content = string(htmlsanitize.PrepareForDisplay(content))
	if content == "" {
		return errEmptyContent
	}

	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"content": content, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// AdjustLikes applies an atomic like-count delta.
func (s *Store) AdjustLikes(ctx context.Context, id primitive.ObjectID, delta int) error {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$inc": bson.M{"likes": delta}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a comment by ID. Returns the number deleted (0 or 1).
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// DeleteByPost removes all comments on a post, used when the post itself is
// deleted.
func (s *Store) DeleteByPost(ctx context.Context, postID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"post_id": postID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// CountByPost returns the comment count for a post.
func (s *Store) CountByPost(ctx context.Context, postID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"post_id": postID})
}

// CountByAuthor returns how many comments a user has written.
func (s *Store) CountByAuthor(ctx context.Context, authorID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"author_id": authorID})
}
