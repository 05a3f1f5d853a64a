package categories_test

import (
	"context"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mercatohq/mercato/internal/app/store/categories"
	"github.com/mercatohq/mercato/internal/domain/models"
	"github.com/mercatohq/mercato/internal/testutil"
)

func ensureSlugIndex(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection("forum_categories").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "tenant_id", Value: 1}, {Key: "slug", Value: 1}},
		Options: options.Index().SetName("uniq_categories_tenant_slug").SetUnique(true),
	})
	return err
}

func TestCreate_Validation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := categories.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	tenantID := primitive.NewObjectID()

	created, err := store.Create(ctx, models.ForumCategory{
		TenantID: tenantID,
		Name:     "  Hardware  ",
		Slug:     " HARD-ware ",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.Name != "Hardware" || created.Slug != "hard-ware" {
		t.Errorf("normalization: name=%q slug=%q", created.Name, created.Slug)
	}

	if _, err := store.Create(ctx, models.ForumCategory{TenantID: tenantID, Name: "", Slug: "x-y"}); err == nil {
		t.Error("expected error for blank name")
	}
	if _, err := store.Create(ctx, models.ForumCategory{TenantID: tenantID, Name: "Bad", Slug: "-nope-"}); err == nil {
		t.Error("expected error for malformed slug")
	}
}

func TestSeedDefaults_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := categories.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := ensureSlugIndex(ctx, db); err != nil {
		t.Fatalf("index setup failed: %v", err)
	}

	tenantID := primitive.NewObjectID()

	n, err := store.SeedDefaults(ctx, tenantID)
	if err != nil {
		t.Fatalf("SeedDefaults failed: %v", err)
	}
	if n != 7 {
		t.Errorf("inserted = %d, want 7", n)
	}

	// Second seed is a no-op.
	n, err = store.SeedDefaults(ctx, tenantID)
	if err != nil {
		t.Fatalf("second SeedDefaults failed: %v", err)
	}
	if n != 0 {
		t.Errorf("reseed inserted = %d, want 0", n)
	}

	list, err := store.ListByTenant(ctx, tenantID)
	if err != nil {
		t.Fatalf("ListByTenant failed: %v", err)
	}
	if len(list) != 7 {
		t.Fatalf("len = %d, want 7", len(list))
	}
	if list[0].Slug != "general" {
		t.Errorf("first category = %q, want general (display order)", list[0].Slug)
	}

	// Another tenant seeds independently.
	otherTenant := primitive.NewObjectID()
	n, err = store.SeedDefaults(ctx, otherTenant)
	if err != nil {
		t.Fatalf("SeedDefaults for other tenant failed: %v", err)
	}
	if n != 7 {
		t.Errorf("other tenant inserted = %d, want 7", n)
	}
}

func TestGetBySlug(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := categories.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	tenantID := primitive.NewObjectID()
	if _, err := store.SeedDefaults(ctx, tenantID); err != nil {
		t.Fatalf("SeedDefaults failed: %v", err)
	}

	got, err := store.GetBySlug(ctx, tenantID, "  SUPPORT ")
	if err != nil {
		t.Fatalf("GetBySlug failed: %v", err)
	}
	if got.Name != "Support" {
		t.Errorf("name = %q", got.Name)
	}

	if _, err := store.GetBySlug(ctx, tenantID, "missing"); err != categories.ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	// Slug lookups are tenant-scoped.
	if _, err := store.GetBySlug(ctx, primitive.NewObjectID(), "support"); err != categories.ErrNotFound {
		t.Errorf("expected ErrNotFound for other tenant, got %v", err)
	}
}

func TestUpdateAndDelete(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := categories.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	tenantID := primitive.NewObjectID()
	created, err := store.Create(ctx, models.ForumCategory{
		TenantID: tenantID, Name: "Temp", Slug: "temp", Order: 9,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	order := 1
	if err := store.Update(ctx, created.ID, "Renamed", "New description", "", "#000000", &order); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	got, err := store.GetBySlug(ctx, tenantID, "temp")
	if err != nil {
		t.Fatalf("GetBySlug failed: %v", err)
	}
	if got.Name != "Renamed" || got.Order != 1 || got.Color != "#000000" {
		t.Errorf("update not applied: %+v", got)
	}

	n, err := store.Delete(ctx, created.ID)
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted = %d, want 1", n)
	}
}
