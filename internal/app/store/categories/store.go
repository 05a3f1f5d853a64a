// internal/app/store/categories/store.go
package categories

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
	// ErrDuplicateSlug is returned when a tenant already has a category with
	// the slug.
	ErrDuplicateSlug = errors.New("a category with this slug already exists")
	// ErrNotFound is returned when the requested category does not exist.
	ErrNotFound = errors.New("category not found")

	errBadName = errors.New("category name is required")
	errBadSlug = errors.New("slug must be 2-100 lowercase alphanumeric chars with single hyphens")
)

// defaults are the categories every new forum tenant starts with.
var defaults = []models.ForumCategory{
	{Name: "General", Slug: "general", Description: "General discussion", Icon: "chat", Color: "#6b7280", Order: 0},
	{Name: "Announcements", Slug: "announcements", Description: "Official announcements", Icon: "megaphone", Color: "#2563eb", Order: 1},
	{Name: "Support", Slug: "support", Description: "Get help from the community", Icon: "lifebuoy", Color: "#16a34a", Order: 2},
	{Name: "Feature Requests", Slug: "feature-requests", Description: "Suggest improvements", Icon: "lightbulb", Color: "#d97706", Order: 3},
	{Name: "Bugs", Slug: "bugs", Description: "Report problems", Icon: "bug", Color: "#dc2626", Order: 4},
	{Name: "Showcase", Slug: "showcase", Description: "Show off your work", Icon: "sparkles", Color: "#9333ea", Order: 5},
	{Name: "Off Topic", Slug: "off-topic", Description: "Everything else", Icon: "coffee", Color: "#78716c", Order: 6},
}

// Store manages per-tenant forum categories.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("forum_categories")}
}

// Create inserts a new category for a tenant.
func (s *Store) Create(ctx context.Context, c models.ForumCategory) (models.ForumCategory, error) {
	c.ID = primitive.NewObjectID()
	c.Name = normalize.Name(c.Name)
	c.Slug = normalize.Slug(c.Slug)

	if c.Name == "" {
		return models.ForumCategory{}, errBadName
	}
	if !inputval.IsValidSlug(c.Slug) {
		return models.ForumCategory{}, errBadSlug
	}

	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, c); err != nil {
		if wafflemongo.IsDup(err) {
			return models.ForumCategory{}, ErrDuplicateSlug
		}
		return models.ForumCategory{}, err
	}
	return c, nil
}

// SeedDefaults inserts the standard category set for a tenant. Existing slugs
// are left alone, so reseeding is safe.
func (s *Store) SeedDefaults(ctx context.Context, tenantID primitive.ObjectID) (int, error) {
	inserted := 0
	for _, d := range defaults {
		d.TenantID = tenantID
		if _, err := s.Create(ctx, d); err != nil {
			if err == ErrDuplicateSlug {
				continue
			}
			return inserted, err
		}
		inserted++
	}
	return inserted, nil
}

// GetBySlug loads a tenant's category by slug.
func (s *Store) GetBySlug(ctx context.Context, tenantID primitive.ObjectID, slug string) (*models.ForumCategory, error) {
	var c models.ForumCategory
	err := s.c.FindOne(ctx, bson.M{
		"tenant_id": tenantID,
		"slug":      normalize.Slug(slug),
	}).Decode(&c)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListByTenant returns a tenant's categories in display order.
func (s *Store) ListByTenant(ctx context.Context, tenantID primitive.ObjectID) ([]models.ForumCategory, error) {
	opts := options.Find().SetSort(bson.D{{Key: "order", Value: 1}, {Key: "name", Value: 1}})

	cur, err := s.c.Find(ctx, bson.M{"tenant_id": tenantID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.ForumCategory
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Update edits a category's display fields. Slug is immutable.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, name, description, icon, color string, order *int) error {
	set := bson.M{"updated_at": time.Now().UTC()}
	if name != "" {
		set["name"] = normalize.Name(name)
	}
	if description != "" {
		set["description"] = description
	}
	if icon != "" {
		set["icon"] = icon
	}
	if color != "" {
		set["color"] = color
	}
	if order != nil {
		set["order"] = *order
	}

	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a category. Posts keep their category string; listings fall
// back to the raw value when the category document is gone.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
