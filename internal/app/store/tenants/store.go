// internal/app/store/tenants/store.go
package tenants

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
	// ErrDuplicateSlug is returned when a tenant with the slug already exists.
	ErrDuplicateSlug = errors.New("a tenant with this slug already exists")
	// ErrNotFound is returned when the requested tenant does not exist.
	ErrNotFound = errors.New("tenant not found")

	errBadSlug   = errors.New("slug must be 2-100 lowercase alphanumeric chars with single hyphens")
	errBadDomain = errors.New(`domain must be "marketplace"|"forum"|"admin"|"seller"`)
)

// Store manages tenant documents. Tenants are never hard-deleted; every other
// collection hangs off a tenant_id.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("tenants")}
}

// Create inserts a new tenant after normalizing & validating fields.
func (s *Store) Create(ctx context.Context, t models.Tenant) (models.Tenant, error) {
	t.ID = primitive.NewObjectID()
	t.Name = normalize.Name(t.Name)
	t.Slug = normalize.Slug(t.Slug)
	t.Domain = normalize.Domain(t.Domain)

	if !inputval.IsValidSlug(t.Slug) {
		return models.Tenant{}, errBadSlug
	}
	if !inputval.IsValidTenantDomain(t.Domain) {
		return models.Tenant{}, errBadDomain
	}
	if t.Settings.SiteName == "" {
		t.Settings.SiteName = t.Name
	}
	t.Settings.CustomDomain = normalize.Hostname(t.Settings.CustomDomain)

	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, t); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Tenant{}, ErrDuplicateSlug
		}
		return models.Tenant{}, err
	}
	return t, nil
}

// GetByID loads a tenant by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Tenant, error) {
	var t models.Tenant
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&t); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

// GetBySlug loads a tenant by its normalized slug.
func (s *Store) GetBySlug(ctx context.Context, slug string) (*models.Tenant, error) {
	var t models.Tenant
	if err := s.c.FindOne(ctx, bson.M{"slug": normalize.Slug(slug)}).Decode(&t); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

// GetByCustomDomain loads a tenant by the custom domain in its settings,
// used to resolve which tenant serves an incoming hostname.
func (s *Store) GetByCustomDomain(ctx context.Context, domain string) (*models.Tenant, error) {
	domain = normalize.Hostname(domain)
	if domain == "" {
		return nil, ErrNotFound
	}
	var t models.Tenant
	if err := s.c.FindOne(ctx, bson.M{"settings.custom_domain": domain}).Decode(&t); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

// Update applies a name/domain/settings update. Slug is immutable once set;
// URLs and external references key off it.
type Update struct {
	Name     string
	Domain   string
	Settings *models.TenantSettings
}

func (s *Store) Update(ctx context.Context, id primitive.ObjectID, upd Update) error {
	set := bson.M{"updated_at": time.Now().UTC()}
	if upd.Name != "" {
		set["name"] = normalize.Name(upd.Name)
	}
	if upd.Domain != "" {
		domain := normalize.Domain(upd.Domain)
		if !inputval.IsValidTenantDomain(domain) {
			return errBadDomain
		}
		set["domain"] = domain
	}
	if upd.Settings != nil {
		settings := *upd.Settings
		settings.CustomDomain = normalize.Hostname(settings.CustomDomain)
		set["settings"] = settings
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

// List returns all tenants, oldest first.
func (s *Store) List(ctx context.Context) ([]models.Tenant, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})

	cur, err := s.c.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Tenant
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Count returns the total number of tenants.
func (s *Store) Count(ctx context.Context) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{})
}
