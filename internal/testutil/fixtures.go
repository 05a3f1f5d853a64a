package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/mercatohq/mercato/internal/domain/models"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateTenant creates a test tenant with the given name and slug.
func (f *Fixtures) CreateTenant(ctx context.Context, name, slug string) models.Tenant {
	f.t.Helper()

	now := time.Now().UTC()
	tenant := models.Tenant{
		ID:     primitive.NewObjectID(),
		Name:   name,
		Slug:   slug,
		Domain: "marketplace",
		Settings: models.TenantSettings{
			SiteName:     name,
			PrimaryColor: "#1a73e8",
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := f.db.Collection("tenants").InsertOne(ctx, tenant); err != nil {
		f.t.Fatalf("failed to create test tenant: %v", err)
	}
	return tenant
}

// CreateUser creates a test user with the given parameters.
// Customers and sellers must be scoped to a tenant; admins pass nil.
func (f *Fixtures) CreateUser(ctx context.Context, name, email, role string, tenantID *primitive.ObjectID) models.User {
	f.t.Helper()

	now := time.Now().UTC()
	user := models.User{
		ID:            primitive.NewObjectID(),
		Name:          name,
		NameCI:        text.Fold(name),
		Email:         email,
		PasswordHash:  "$2a$10$testhashnotusableforlogin0000000000000000000000000000",
		Role:          role,
		TenantID:      tenantID,
		EmailVerified: true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if _, err := f.db.Collection("users").InsertOne(ctx, user); err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateCustomer creates a test customer in the given tenant.
func (f *Fixtures) CreateCustomer(ctx context.Context, name, email string, tenantID primitive.ObjectID) models.User {
	f.t.Helper()
	return f.CreateUser(ctx, name, email, "customer", &tenantID)
}

// CreateSeller creates a test seller in the given tenant.
func (f *Fixtures) CreateSeller(ctx context.Context, name, email string, tenantID primitive.ObjectID) models.User {
	f.t.Helper()
	return f.CreateUser(ctx, name, email, "seller", &tenantID)
}

// CreateAdmin creates a test admin user (no tenant scope).
func (f *Fixtures) CreateAdmin(ctx context.Context, name, email string) models.User {
	f.t.Helper()
	return f.CreateUser(ctx, name, email, "admin", nil)
}

// CreateProduct creates an active test product owned by the given seller.
func (f *Fixtures) CreateProduct(ctx context.Context, name string, tenantID, sellerID primitive.ObjectID, price float64) models.Product {
	f.t.Helper()

	now := time.Now().UTC()
	product := models.Product{
		ID:          primitive.NewObjectID(),
		TenantID:    tenantID,
		SellerID:    sellerID,
		Name:        name,
		Description: "Test product description",
		Price:       price,
		Currency:    "USD",
		Category:    "general",
		Stock:       10,
		Status:      "active",
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if _, err := f.db.Collection("products").InsertOne(ctx, product); err != nil {
		f.t.Fatalf("failed to create test product: %v", err)
	}
	return product
}

// CreateOrder creates a pending test order for the given customer.
func (f *Fixtures) CreateOrder(ctx context.Context, tenantID, customerID primitive.ObjectID, items []models.OrderItem) models.Order {
	f.t.Helper()

	var total float64
	for _, it := range items {
		total += it.Price * float64(it.Quantity)
	}

	now := time.Now().UTC()
	order := models.Order{
		ID:         primitive.NewObjectID(),
		TenantID:   tenantID,
		CustomerID: customerID,
		Items:      items,
		Total:      total,
		Currency:   "USD",
		Status:     models.OrderPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if _, err := f.db.Collection("orders").InsertOne(ctx, order); err != nil {
		f.t.Fatalf("failed to create test order: %v", err)
	}
	return order
}

// CreatePost creates a test forum post.
func (f *Fixtures) CreatePost(ctx context.Context, title string, tenantID, authorID primitive.ObjectID, category string) models.ForumPost {
	f.t.Helper()

	now := time.Now().UTC()
	post := models.ForumPost{
		ID:        primitive.NewObjectID(),
		TenantID:  tenantID,
		AuthorID:  authorID,
		Title:     title,
		Content:   "<p>Test post content</p>",
		Category:  category,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := f.db.Collection("forum_posts").InsertOne(ctx, post); err != nil {
		f.t.Fatalf("failed to create test post: %v", err)
	}
	return post
}

// CreateComment creates a test comment on the given post.
func (f *Fixtures) CreateComment(ctx context.Context, postID, authorID primitive.ObjectID, content string) models.ForumComment {
	f.t.Helper()

	now := time.Now().UTC()
	comment := models.ForumComment{
		ID:        primitive.NewObjectID(),
		PostID:    postID,
		AuthorID:  authorID,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := f.db.Collection("forum_comments").InsertOne(ctx, comment); err != nil {
		f.t.Fatalf("failed to create test comment: %v", err)
	}
	return comment
}

// CreateCampaign creates an active test campaign running for the next week.
func (f *Fixtures) CreateCampaign(ctx context.Context, title string, tenantID primitive.ObjectID, targetPoints int) models.Campaign {
	f.t.Helper()

	now := time.Now().UTC()
	campaign := models.Campaign{
		ID:           primitive.NewObjectID(),
		TenantID:     tenantID,
		Title:        title,
		Description:  "Test campaign",
		Prize:        "Test prize",
		TargetPoints: targetPoints,
		StartDate:    now.Add(-time.Hour),
		EndDate:      now.Add(7 * 24 * time.Hour),
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if _, err := f.db.Collection("forum_campaigns").InsertOne(ctx, campaign); err != nil {
		f.t.Fatalf("failed to create test campaign: %v", err)
	}
	return campaign
}
