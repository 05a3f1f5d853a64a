// internal/app/store/posts/store.go
package posts

import (
	"context"
	"errors"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mercatohq/mercato/internal/app/system/htmlsanitize"
	"github.com/mercatohq/mercato/internal/app/system/inputval"
	"github.com/mercatohq/mercato/internal/app/system/normalize"
	"github.com/mercatohq/mercato/internal/domain/models"
)

var (
	// ErrNotFound is returned when the requested post does not exist.
	ErrNotFound = errors.New("post not found")
	// ErrLocked is returned when a mutation targets a locked post.
	ErrLocked = errors.New("post is locked")

	errBadTitle    = errors.New("title is required")
	errBadCategory = errors.New("category must be a known forum category")
)

// Store manages forum post documents.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("forum_posts")}
}

// Create inserts a new post. Content is sanitized before storage so raw
// markup never reaches the database.
func (s *Store) Create(ctx context.Context, p models.ForumPost) (models.ForumPost, error) {
	p.ID = primitive.NewObjectID()
	p.Title = normalize.Name(p.Title)
	p.Category = normalize.Category(p.Category)
	p.Content = string(htmlsanitize.PrepareForDisplay(p.Content))
	p.Likes = 0
	p.Views = 0
	p.Pinned = false
	p.Locked = false

	if p.Title == "" {
		return models.ForumPost{}, errBadTitle
	}
	if !inputval.IsValidForumCategory(p.Category) {
		return models.ForumPost{}, errBadCategory
	}

	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, p); err != nil {
		return models.ForumPost{}, err
	}
	return p, nil
}

// GetByID loads a post by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.ForumPost, error) {
	var p models.ForumPost
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// Update edits a post's title, content, or category. Locked posts reject
// edits; moderators unlock first.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, title, content, category string) error {
	set := bson.M{"updated_at": time.Now().UTC()}
	if title != "" {
		set["title"] = normalize.Name(title)
	}
	if content != "" {
		set["content"] = htmlsanitize.PrepareForDisplay(content)
	}
	if category != "" {
		cat := normalize.Category(category)
		if !inputval.IsValidForumCategory(cat) {
			return errBadCategory
		}
		set["category"] = cat
	}

	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "locked": false},
		bson.M{"$set": set},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		if err := s.c.FindOne(ctx, bson.M{"_id": id}).Err(); err == mongo.ErrNoDocuments {
			return ErrNotFound
		}
		return ErrLocked
	}
	return nil
}

// IncrementViews bumps the view counter atomically.
func (s *Store) IncrementViews(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$inc": bson.M{"views": 1}})
	return err
}

// AdjustLikes applies an atomic like-count delta (+1 on like, -1 on unlike).
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

// SetPinned sets the pinned flag. Returns the new value for audit details.
func (s *Store) SetPinned(ctx context.Context, id primitive.ObjectID, pinned bool) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"pinned": pinned, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// SetLocked sets the locked flag.
func (s *Store) SetLocked(ctx context.Context, id primitive.ObjectID, locked bool) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"locked": locked, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a post by ID. The caller also deletes dependent comments,
// likes, and bookmarks.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// Sort orders for List.
const (
	SortNew = "new" // pinned first, then newest
	SortTop = "top" // most liked
	SortHot = "hot" // most liked within the recent window
)

// hotWindow bounds the "hot" sort; older posts never rank hot however liked.
const hotWindow = 7 * 24 * time.Hour

// ListFilter narrows List results.
type ListFilter struct {
	TenantID *primitive.ObjectID
	AuthorID *primitive.ObjectID
	Category string
	Search   string // matched against the title, case-insensitive
	Sort     string // SortNew (default), SortTop, SortHot
	Page     int
	Limit    int
}

func (f ListFilter) toQuery() bson.M {
	q := bson.M{}
	if f.TenantID != nil {
		q["tenant_id"] = *f.TenantID
	}
	if f.AuthorID != nil {
		q["author_id"] = *f.AuthorID
	}
	if cat := normalize.Category(f.Category); cat != "" {
		q["category"] = cat
	}
	if term := inputval.SanitizeSearchQuery(f.Search); term != "" {
		q["title"] = bson.M{"$regex": regexp.QuoteMeta(term), "$options": "i"}
	}
	if f.Sort == SortHot {
		q["created_at"] = bson.M{"$gte": time.Now().UTC().Add(-hotWindow)}
	}
	return q
}

func (f ListFilter) sortOrder() bson.D {
	switch f.Sort {
	case SortTop, SortHot:
		return bson.D{{Key: "likes", Value: -1}, {Key: "created_at", Value: -1}}
	default:
		return bson.D{{Key: "pinned", Value: -1}, {Key: "created_at", Value: -1}}
	}
}

// List returns a page of posts plus the total count. The default order is
// pinned first then newest; SortTop and SortHot rank by likes.
func (s *Store) List(ctx context.Context, f ListFilter) ([]models.ForumPost, int64, error) {
	page, limit := inputval.SanitizePagination(f.Page, f.Limit)
	query := f.toQuery()

	total, err := s.c.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(f.sortOrder()).
		SetLimit(int64(limit)).
		SetSkip(int64((page - 1) * limit))

	cur, err := s.c.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	var out []models.ForumPost
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// CountByTenant returns the post count for a tenant, used by forum stats.
func (s *Store) CountByTenant(ctx context.Context, tenantID *primitive.ObjectID) (int64, error) {
	q := bson.M{}
	if tenantID != nil {
		q["tenant_id"] = *tenantID
	}
	return s.c.CountDocuments(ctx, q)
}

// CountByCategory returns per-category post counts, optionally scoped to a
// tenant. Categories with no posts are absent from the map.
func (s *Store) CountByCategory(ctx context.Context, tenantID *primitive.ObjectID) (map[string]int64, error) {
	match := bson.M{}
	if tenantID != nil {
		match["tenant_id"] = *tenantID
	}

	cur, err := s.c.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.M{"_id": "$category", "count": bson.M{"$sum": 1}}}},
	})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := make(map[string]int64)
	for cur.Next(ctx) {
		var row struct {
			Category string `bson:"_id"`
			Count    int64  `bson:"count"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		out[row.Category] = row.Count
	}
	return out, cur.Err()
}

// Stats aggregates post, like, and view totals, optionally scoped to a tenant.
type Stats struct {
	Posts int64 `bson:"posts"`
	Likes int64 `bson:"likes"`
	Views int64 `bson:"views"`
}

// StatsByTenant sums the denormalized like and view counters across posts.
func (s *Store) StatsByTenant(ctx context.Context, tenantID *primitive.ObjectID) (Stats, error) {
	match := bson.M{}
	if tenantID != nil {
		match["tenant_id"] = *tenantID
	}

	cur, err := s.c.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.M{
			"_id":   nil,
			"posts": bson.M{"$sum": 1},
			"likes": bson.M{"$sum": "$likes"},
			"views": bson.M{"$sum": "$views"},
		}}},
	})
	if err != nil {
		return Stats{}, err
	}
	defer cur.Close(ctx)

	var st Stats
	if cur.Next(ctx) {
		if err := cur.Decode(&st); err != nil {
			return Stats{}, err
		}
	}
	return st, cur.Err()
}

// TopByLikes returns the most-liked posts for a tenant.
func (s *Store) TopByLikes(ctx context.Context, tenantID primitive.ObjectID, limit int64) ([]models.ForumPost, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "likes", Value: -1}, {Key: "created_at", Value: -1}}).
		SetLimit(limit)

	cur, err := s.c.Find(ctx, bson.M{"tenant_id": tenantID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.ForumPost
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
