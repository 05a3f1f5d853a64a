// internal/app/store/engagement/store.go
package engagement

import (
	"context"
	"time"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mercatohq/mercato/internal/app/system/inputval"
	"github.com/mercatohq/mercato/internal/domain/models"
)

// Store manages per-user post likes, comment likes, and bookmarks. All are
// presence-is-truth join documents: a row exists while the user has the
// target liked/bookmarked, enforced by a unique (user_id, target) index.
type Store struct {
	likes        *mongo.Collection
	commentLikes *mongo.Collection
	bookmarks    *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{
		likes:        db.Collection("forum_post_likes"),
		commentLikes: db.Collection("forum_comment_likes"),
		bookmarks:    db.Collection("forum_bookmarks"),
	}
}

// ToggleLike flips the user's like on a post. Returns true when the post is
// now liked, false when the like was removed.
func (s *Store) ToggleLike(ctx context.Context, userID, postID primitive.ObjectID) (bool, error) {
	return s.toggle(ctx, s.likes, userID, postID)
}

// HasLiked reports whether the user currently likes the post.
func (s *Store) HasLiked(ctx context.Context, userID, postID primitive.ObjectID) (bool, error) {
	return s.exists(ctx, s.likes, userID, postID)
}

// CountLikes returns the like count for a post from the join documents.
// The denormalized counter on the post is the fast path; this is the
// authoritative recount.
func (s *Store) CountLikes(ctx context.Context, postID primitive.ObjectID) (int64, error) {
	return s.likes.CountDocuments(ctx, bson.M{"post_id": postID})
}

// ToggleCommentLike flips the user's like on a comment. The post id rides
// along on the join document so post deletion can sweep comment likes in one
// pass. Returns true when the comment is now liked.
func (s *Store) ToggleCommentLike(ctx context.Context, userID, commentID, postID primitive.ObjectID) (bool, error) {
	res, err := s.commentLikes.DeleteOne(ctx, bson.M{"user_id": userID, "comment_id": commentID})
	if err != nil {
		return false, err
	}
	if res.DeletedCount == 1 {
		return false, nil
	}

	_, err = s.commentLikes.InsertOne(ctx, bson.M{
		"_id":        primitive.NewObjectID(),
		"user_id":    userID,
		"comment_id": commentID,
		"post_id":    postID,
		"created_at": time.Now().UTC(),
	})
	if err != nil {
		if wafflemongo.IsDup(err) {
			return true, nil
		}
		return false, err
	}
	return true, nil
}

// HasLikedComment reports whether the user currently likes the comment.
func (s *Store) HasLikedComment(ctx context.Context, userID, commentID primitive.ObjectID) (bool, error) {
	err := s.commentLikes.FindOne(ctx, bson.M{"user_id": userID, "comment_id": commentID}).Err()
	if err == nil {
		return true, nil
	}
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	return false, err
}

// ToggleBookmark flips the user's bookmark on a post. Returns true when the
// post is now bookmarked.
func (s *Store) ToggleBookmark(ctx context.Context, userID, postID primitive.ObjectID) (bool, error) {
	return s.toggle(ctx, s.bookmarks, userID, postID)
}

// HasBookmarked reports whether the user currently has the post bookmarked.
func (s *Store) HasBookmarked(ctx context.Context, userID, postID primitive.ObjectID) (bool, error) {
	return s.exists(ctx, s.bookmarks, userID, postID)
}

// ListBookmarks returns a page of the user's bookmarks, newest first.
func (s *Store) ListBookmarks(ctx context.Context, userID primitive.ObjectID, page, limit int) ([]models.Bookmark, int64, error) {
	page, limit = inputval.SanitizePagination(page, limit)
	query := bson.M{"user_id": userID}

	total, err := s.bookmarks.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(int64((page - 1) * limit))

	cur, err := s.bookmarks.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	var out []models.Bookmark
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// DeleteByComment removes all likes on a comment, used when the comment is
// deleted.
func (s *Store) DeleteByComment(ctx context.Context, commentID primitive.ObjectID) (int64, error) {
	res, err := s.commentLikes.DeleteMany(ctx, bson.M{"comment_id": commentID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// DeleteByPost removes all likes, comment likes, and bookmarks for a post,
// used when the post is deleted.
func (s *Store) DeleteByPost(ctx context.Context, postID primitive.ObjectID) (int64, error) {
	var total int64
	for _, c := range []*mongo.Collection{s.likes, s.commentLikes, s.bookmarks} {
		res, err := c.DeleteMany(ctx, bson.M{"post_id": postID})
		if err != nil {
			return total, err
		}
		total += res.DeletedCount
	}
	return total, nil
}

// toggle removes the join document if present, inserts it otherwise. A lost
// race on insert hits the unique index and reads as "already on".
func (s *Store) toggle(ctx context.Context, c *mongo.Collection, userID, postID primitive.ObjectID) (bool, error) {
	res, err := c.DeleteOne(ctx, bson.M{"user_id": userID, "post_id": postID})
	if err != nil {
		return false, err
	}
	if res.DeletedCount == 1 {
		return false, nil
	}

	_, err = c.InsertOne(ctx, bson.M{
		"_id":        primitive.NewObjectID(),
		"user_id":    userID,
		"post_id":    postID,
		"created_at": time.Now().UTC(),
	})
	if err != nil {
		if wafflemongo.IsDup(err) {
			return true, nil
		}
		return false, err
	}
	return true, nil
}

func (s *Store) exists(ctx context.Context, c *mongo.Collection, userID, postID primitive.ObjectID) (bool, error) {
	err := c.FindOne(ctx, bson.M{"user_id": userID, "post_id": postID}).Err()
	if err == nil {
		return true, nil
	}
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	return false, err
}
