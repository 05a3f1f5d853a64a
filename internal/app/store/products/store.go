// internal/app/store/products/store.go
package products

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mercatohq/mercato/internal/app/system/inputval"
	"github.com/mercatohq/mercato/internal/app/system/normalize"
	"github.com/mercatohq/mercato/internal/domain/models"
)

var (
	// ErrNotFound is returned when the requested product does not exist.
	ErrNotFound = errors.New("product not found")
	// ErrInsufficientStock is returned when an adjustment would take stock negative.
	ErrInsufficientStock = errors.New("insufficient stock")

	errBadPrice    = errors.New("price must be a positive amount below 1,000,000")
	errBadCurrency = errors.New(`currency must be one of USD|EUR|GBP|CAD|AUD|JPY`)
	errBadStock    = errors.New("stock must be a non-negative whole number below 1,000,000")
	errBadStatus   = errors.New(`status must be "draft"|"active"|"archived"`)
)

func validStatus(s string) bool {
	return s == "draft" || s == "active" || s == "archived"
}

// Store manages product documents.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("products")}
}

// Create inserts a new product after normalizing & validating fields.
func (s *Store) Create(ctx context.Context, p models.Product) (models.Product, error) {
	p.ID = primitive.NewObjectID()
	p.Name = normalize.Name(p.Name)
	p.Currency = normalize.Currency(p.Currency)
	p.Category = normalize.Category(p.Category)
	p.Status = normalize.Status(p.Status)
	if p.Status == "" {
		p.Status = "active"
	}

	if !inputval.IsValidAmount(p.Price) {
		return models.Product{}, errBadPrice
	}
	if !inputval.IsValidCurrency(p.Currency) {
		return models.Product{}, errBadCurrency
	}
	if !inputval.IsValidStock(float64(p.Stock)) {
		return models.Product{}, errBadStock
	}
	if !validStatus(p.Status) {
		return models.Product{}, errBadStatus
	}

	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, p); err != nil {
		return models.Product{}, err
	}
	return p, nil
}

// GetByID loads a product by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	var p models.Product
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// Update holds optional product field updates. Nil pointers and empty
// strings/slices mean "leave unchanged".
type Update struct {
	Name        string
	Description *string
	Price       *float64
	Currency    string
	Images      []string
	Category    string
	Tags        []string
	Status      string
}

// Update applies a partial update. Ownership is checked by the caller.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, upd Update) error {
	set := bson.M{"updated_at": time.Now().UTC()}
	if upd.Name != "" {
		set["name"] = normalize.Name(upd.Name)
	}
	if upd.Description != nil {
		set["description"] = *upd.Description
	}
	if upd.Price != nil {
		if !inputval.IsValidAmount(*upd.Price) {
			return errBadPrice
		}
		set["price"] = *upd.Price
	}
	if upd.Currency != "" {
		cur := normalize.Currency(upd.Currency)
		if !inputval.IsValidCurrency(cur) {
			return errBadCurrency
		}
		set["currency"] = cur
	}
	if upd.Images != nil {
		set["images"] = upd.Images
	}
	if upd.Category != "" {
		set["category"] = normalize.Category(upd.Category)
	}
	if upd.Tags != nil {
		set["tags"] = upd.Tags
	}
	if upd.Status != "" {
		st := normalize.Status(upd.Status)
		if !validStatus(st) {
			return errBadStatus
		}
		set["status"] = st
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

// AdjustStock applies an atomic stock delta. Negative deltas only match when
// enough stock remains, so concurrent checkouts can never drive stock below
// zero.
func (s *Store) AdjustStock(ctx context.Context, id primitive.ObjectID, delta int) error {
	filter := bson.M{"_id": id}
	if delta < 0 {
		filter["stock"] = bson.M{"$gte": -delta}
	}

	res, err := s.c.UpdateOne(ctx, filter, bson.M{
		"$inc": bson.M{"stock": delta},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		// Distinguish a missing product from a stock shortfall.
		if err := s.c.FindOne(ctx, bson.M{"_id": id}).Err(); err == mongo.ErrNoDocuments {
			return ErrNotFound
		}
		return ErrInsufficientStock
	}
	return nil
}

// Delete removes a product by ID. Returns the number deleted (0 or 1).
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// ListFilter narrows List results. Nil/empty fields match everything.
type ListFilter struct {
	TenantID *primitive.ObjectID
	SellerID *primitive.ObjectID
	Category string
	Status   string
	Page     int
	Limit    int
}

func (f ListFilter) toQuery() bson.M {
	q := bson.M{}
	if f.TenantID != nil {
		q["tenant_id"] = *f.TenantID
	}
	if f.SellerID != nil {
		q["seller_id"] = *f.SellerID
	}
	if cat := normalize.Category(f.Category); cat != "" {
		q["category"] = cat
	}
	if st := normalize.Status(f.Status); st != "" {
		q["status"] = st
	}
	return q
}

// List returns a page of products, newest first, plus the total match count.
func (s *Store) List(ctx context.Context, f ListFilter) ([]models.Product, int64, error) {
	page, limit := inputval.SanitizePagination(f.Page, f.Limit)
	query := f.toQuery()

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

	var out []models.Product
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// CountByTenant returns the product count for a tenant, used by platform stats.
func (s *Store) CountByTenant(ctx context.Context, tenantID *primitive.ObjectID) (int64, error) {
	q := bson.M{}
	if tenantID != nil {
		q["tenant_id"] = *tenantID
	}
	return s.c.CountDocuments(ctx, q)
}
