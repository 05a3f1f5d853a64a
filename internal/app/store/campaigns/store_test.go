package campaigns_test

import (
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mercatohq/mercato/internal/app/store/campaigns"
	"github.com/mercatohq/mercato/internal/domain/models"
	"github.com/mercatohq/mercato/internal/testutil"
)

func newCampaign(tenantID primitive.ObjectID) models.Campaign {
	now := time.Now().UTC()
	return models.Campaign{
		TenantID:     tenantID,
		Title:        "Spring Sprint",
		Description:  "Post and comment to win",
		Prize:        "Gift card",
		TargetPoints: 500,
		StartDate:    now.Add(-time.Hour),
		EndDate:      now.Add(7 * 24 * time.Hour),
		IsActive:     true,
	}
}

func TestCreate_Validation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := campaigns.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	tenantID := primitive.NewObjectID()

	created, err := store.Create(ctx, func() models.Campaign {
		c := newCampaign(tenantID)
		c.CurrentProgress = 250 // must be reset
		return c
	}())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.CurrentProgress != 0 {
		t.Errorf("progress = %d, want 0 on create", created.CurrentProgress)
	}

	bad := newCampaign(tenantID)
	bad.Title = "  "
	if _, err := store.Create(ctx, bad); err == nil {
		t.Error("expected error for blank title")
	}

	bad = newCampaign(tenantID)
	bad.TargetPoints = 0
	if _, err := store.Create(ctx, bad); err == nil {
		t.Error("expected error for zero target")
	}

	bad = newCampaign(tenantID)
	bad.EndDate = bad.StartDate.Add(-time.Hour)
	if _, err := store.Create(ctx, bad); err == nil {
		t.Error("expected error for end before start")
	}
}

func TestListActive_WindowAndFlag(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := campaigns.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	tenantID := primitive.NewObjectID()
	now := time.Now().UTC()

	live, err := store.Create(ctx, newCampaign(tenantID))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	ended := newCampaign(tenantID)
	ended.Title = "Over"
	ended.StartDate = now.Add(-48 * time.Hour)
	ended.EndDate = now.Add(-24 * time.Hour)
	if _, err := store.Create(ctx, ended); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	future := newCampaign(tenantID)
	future.Title = "Soon"
	future.StartDate = now.Add(24 * time.Hour)
	future.EndDate = now.Add(48 * time.Hour)
	if _, err := store.Create(ctx, future); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	paused, err := store.Create(ctx, newCampaign(tenantID))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := store.SetActive(ctx, paused.ID, false); err != nil {
		t.Fatalf("SetActive failed: %v", err)
	}

	active, err := store.ListActive(ctx, tenantID, now)
	if err != nil {
		t.Fatalf("ListActive failed: %v", err)
	}
	if len(active) != 1 {
		t.Fatalf("len = %d, want 1", len(active))
	}
	if active[0].ID != live.ID {
		t.Errorf("unexpected active campaign: %q", active[0].Title)
	}
}

func TestAddProgress(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := campaigns.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, newCampaign(primitive.NewObjectID()))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := store.AddProgress(ctx, created.ID, 10); err != nil {
		t.Fatalf("AddProgress failed: %v", err)
	}
	if err := store.AddProgress(ctx, created.ID, 5); err != nil {
		t.Fatalf("AddProgress failed: %v", err)
	}

	got, err := store.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.CurrentProgress != 15 {
		t.Errorf("progress = %d, want 15", got.CurrentProgress)
	}

	if err := store.AddProgress(ctx, primitive.NewObjectID(), 1); err != campaigns.ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestToggleParticipation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := campaigns.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, newCampaign(primitive.NewObjectID()))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	userID := primitive.NewObjectID()

	joined, err := store.ToggleParticipation(ctx, userID, created.ID)
	if err != nil {
		t.Fatalf("ToggleParticipation failed: %v", err)
	}
	if !joined {
		t.Fatal("first toggle should join")
	}

	in, err := store.IsParticipating(ctx, userID, created.ID)
	if err != nil {
		t.Fatalf("IsParticipating failed: %v", err)
	}
	if !in {
		t.Error("expected participation after join")
	}

	n, err := store.CountParticipants(ctx, created.ID)
	if err != nil {
		t.Fatalf("CountParticipants failed: %v", err)
	}
	if n != 1 {
		t.Errorf("participants = %d, want 1", n)
	}

	joined, err = store.ToggleParticipation(ctx, userID, created.ID)
	if err != nil {
		t.Fatalf("second ToggleParticipation failed: %v", err)
	}
	if joined {
		t.Fatal("second toggle should leave")
	}
	n, err = store.CountParticipants(ctx, created.ID)
	if err != nil {
		t.Fatalf("CountParticipants failed: %v", err)
	}
	if n != 0 {
		t.Errorf("participants = %d, want 0", n)
	}
}
