// internal/app/store/orders/store.go
package orders

import (
	"context"
	"errors"
	"fmt"
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
	// ErrNotFound is returned when the requested order does not exist.
	ErrNotFound = errors.New("order not found")
	// ErrInvalidTransition is returned when a status change is not allowed
	// from the order's current status.
	ErrInvalidTransition = errors.New("invalid order status transition")

	errNoItems     = errors.New("order must contain at least one item")
	errBadItem     = errors.New("order items need a positive price and quantity")
	errBadCurrency = errors.New(`currency must be one of USD|EUR|GBP|CAD|AUD|JPY`)
)

// transitions is the order lifecycle. Cancelled and refunded are terminal.
var transitions = map[string][]string{
	models.OrderPending:    {models.OrderProcessing, models.OrderCancelled},
	models.OrderProcessing: {models.OrderShipped, models.OrderCancelled},
	models.OrderShipped:    {models.OrderDelivered},
	models.OrderDelivered:  {models.OrderRefunded},
}

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to string) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Store manages order documents.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("orders")}
}

// Create inserts a new pending order. The total is computed from the item
// snapshots, never trusted from the caller.
func (s *Store) Create(ctx context.Context, o models.Order) (models.Order, error) {
	if len(o.Items) == 0 {
		return models.Order{}, errNoItems
	}

	var total float64
	for _, it := range o.Items {
		if it.Quantity <= 0 || !inputval.IsValidAmount(it.Price) {
			return models.Order{}, errBadItem
		}
		total += it.Price * float64(it.Quantity)
	}

	o.Currency = normalize.Currency(o.Currency)
	if !inputval.IsValidCurrency(o.Currency) {
		return models.Order{}, errBadCurrency
	}

	o.ID = primitive.NewObjectID()
	o.Total = total
	o.Status = models.OrderPending

	now := time.Now().UTC()
	o.CreatedAt = now
	o.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, o); err != nil {
		return models.Order{}, err
	}
	return o, nil
}

// GetByID loads an order by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	var o models.Order
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&o); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}

// UpdateStatus moves an order through the lifecycle. The update filter pins
// the current status, so a concurrent transition loses cleanly instead of
// double-applying. Returns the status the order moved from.
func (s *Store) UpdateStatus(ctx context.Context, id primitive.ObjectID, to string) (string, error) {
	to = normalize.Status(to)

	cur, err := s.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	from := cur.Status

	if !CanTransition(from, to) {
		return from, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, from, to)
	}

	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "status": from},
		bson.M{"$set": bson.M{"status": to, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return from, err
	}
	if res.MatchedCount == 0 {
		// Someone transitioned the order between our read and write.
		return from, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, from, to)
	}
	return from, nil
}

// ListFilter narrows List results. Nil/empty fields match everything.
type ListFilter struct {
	TenantID   *primitive.ObjectID
	CustomerID *primitive.ObjectID
	Status     string
	Page       int
	Limit      int
}

func (f ListFilter) toQuery() bson.M {
	q := bson.M{}
	if f.TenantID != nil {
		q["tenant_id"] = *f.TenantID
	}
	if f.CustomerID != nil {
		q["customer_id"] = *f.CustomerID
	}
	if st := normalize.Status(f.Status); st != "" {
		q["status"] = st
	}
	return q
}

// List returns a page of orders, newest first, plus the total match count.
func (s *Store) List(ctx context.Context, f ListFilter) ([]models.Order, int64, error) {
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

	var out []models.Order
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// CountByStatus returns per-status order counts, used by platform stats.
func (s *Store) CountByStatus(ctx context.Context, tenantID *primitive.ObjectID) (map[string]int64, error) {
	match := bson.M{}
	if tenantID != nil {
		match["tenant_id"] = *tenantID
	}

	cur, err := s.c.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.M{"_id": "$status", "count": bson.M{"$sum": 1}}}},
	})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	counts := make(map[string]int64)
	for cur.Next(ctx) {
		var row struct {
			Status string `bson:"_id"`
			Count  int64  `bson:"count"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		counts[row.Status] = row.Count
	}
	return counts, cur.Err()
}

// TotalRevenue sums order totals, excluding cancelled and refunded orders.
func (s *Store) TotalRevenue(ctx context.Context, tenantID *primitive.ObjectID) (float64, error) {
	match := bson.M{
		"status": bson.M{"$nin": bson.A{models.OrderCancelled, models.OrderRefunded}},
	}
	if tenantID != nil {
		match["tenant_id"] = *tenantID
	}

	cur, err := s.c.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.M{"_id": nil, "revenue": bson.M{"$sum": "$total"}}}},
	})
	if err != nil {
		return 0, err
	}
	defer cur.Close(ctx)

	if cur.Next(ctx) {
		var row struct {
			Revenue float64 `bson:"revenue"`
		}
		if err := cur.Decode(&row); err != nil {
			return 0, err
		}
		return row.Revenue, nil
	}
	return 0, cur.Err()
}
