package oauthstate_test

import (
	"testing"
	"time"

	"github.com/mercatohq/mercato/internal/app/store/oauthstate"
	"github.com/mercatohq/mercato/internal/testutil"
)

func TestSaveAndValidate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := oauthstate.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	state := "test-state-123"
	if err := store.Save(ctx, state, "/products", time.Now().Add(10*time.Minute)); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	returnURL, valid, err := store.Validate(ctx, state)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if !valid {
		t.Fatal("expected state to be valid")
	}
	if returnURL != "/products" {
		t.Errorf("returnURL = %q, want /products", returnURL)
	}

	// One-time use: a second validation fails.
	_, valid, err = store.Validate(ctx, state)
	if err != nil {
		t.Fatalf("second Validate failed: %v", err)
	}
	if valid {
		t.Error("expected state to be consumed after first use")
	}
}

func TestValidate_Expired(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := oauthstate.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := store.Save(ctx, "stale", "", time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	_, valid, err := store.Validate(ctx, "stale")
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if valid {
		t.Error("expected expired state to be invalid")
	}
}

func TestValidate_Unknown(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := oauthstate.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_, valid, err := store.Validate(ctx, "never-saved")
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if valid {
		t.Error("expected unknown state to be invalid")
	}
}

func TestCleanupExpired(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := oauthstate.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := store.Save(ctx, "old", "", time.Now().Add(-time.Hour)); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := store.Save(ctx, "fresh", "", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	n, err := store.CleanupExpired(ctx)
	if err != nil {
		t.Fatalf("CleanupExpired failed: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted = %d, want 1", n)
	}

	_, valid, err := store.Validate(ctx, "fresh")
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if !valid {
		t.Error("fresh state should survive cleanup")
	}
}
