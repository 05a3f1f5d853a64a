package campaigns_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"go.uber.org/zap"

	uierrors "github.com/mercatohq/mercato/internal/app/features/errors"
	"github.com/mercatohq/mercato/internal/app/features/campaigns"
	"github.com/mercatohq/mercato/internal/app/store/audit"
	campaignstore "github.com/mercatohq/mercato/internal/app/store/campaigns"
	"github.com/mercatohq/mercato/internal/app/system/auditlog"
	"github.com/mercatohq/mercato/internal/domain/models"
	"github.com/mercatohq/mercato/internal/testutil"
)

func newHandler(t *testing.T) (*campaigns.Handler, *testutil.Fixtures) {
	t.Helper()
	db := testutil.SetupTestDB(t)

	auditLog := auditlog.New(audit.New(db), zap.NewNop(), auditlog.Config{
		Auth: "db", Admin: "db", Data: "db",
	})

	h := campaigns.NewHandler(
		campaignstore.New(db),
		auditLog,
		uierrors.NewLogger(zap.NewNop()),
		zap.NewNop(),
	)
	return h, testutil.NewFixtures(t, db)
}

func TestHandleCreate(t *testing.T) {
	h, f := newHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	tenant := f.CreateTenant(ctx, "Forum", "forum")

	start := time.Now().UTC().Format(time.RFC3339)
	end := time.Now().UTC().Add(7 * 24 * time.Hour).Format(time.RFC3339)
	body := fmt.Sprintf(`{"tenant_id":%q,"title":"Posting Week","target_points":100,"start_date":%q,"end_date":%q}`,
		tenant.ID.Hex(), start, end)

	req := testutil.NewAuthenticatedJSONRequest(http.MethodPost, "/campaigns", body, testutil.AdminUser())
	rec := testutil.NewRecorder()
	h.HandleCreate(rec, req)

	rec.AssertStatus(t, http.StatusCreated)

	var created models.Campaign
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !created.IsActive {
		t.Error("new campaigns should start active")
	}
	if created.CurrentProgress != 0 {
		t.Errorf("progress = %d, want 0", created.CurrentProgress)
	}
}

func TestHandleCreate_Validation(t *testing.T) {
	h, f := newHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	tenant := f.CreateTenant(ctx, "Forum", "forum")
	start := time.Now().UTC().Format(time.RFC3339)
	past := time.Now().UTC().Add(-time.Hour).Format(time.RFC3339)

	cases := []struct {
		name string
		body string
	}{
		{"missing tenant", `{"title":"X","target_points":10}`},
		{"zero target", fmt.Sprintf(`{"tenant_id":%q,"title":"X","target_points":0,"start_date":%q,"end_date":%q}`, tenant.ID.Hex(), start, start)},
		{"inverted window", fmt.Sprintf(`{"tenant_id":%q,"title":"X","target_points":10,"start_date":%q,"end_date":%q}`, tenant.ID.Hex(), start, past)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := testutil.NewAuthenticatedJSONRequest(http.MethodPost, "/campaigns", tc.body, testutil.AdminUser())
			rec := testutil.NewRecorder()
			h.HandleCreate(rec, req)
			rec.AssertStatus(t, http.StatusBadRequest)
		})
	}
}

func TestHandleGet_ParticipantState(t *testing.T) {
	h, f := newHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	tenant := f.CreateTenant(ctx, "Forum", "forum")
	user := f.CreateCustomer(ctx, "Casey", "casey@test.com", tenant.ID)
	camp := f.CreateCampaign(ctx, "Sprint", tenant.ID, 100)

	store := campaignstore.New(f.DB())
	if _, err := store.ToggleParticipation(ctx, user.ID, camp.ID); err != nil {
		t.Fatalf("ToggleParticipation failed: %v", err)
	}

	req := testutil.NewAuthenticatedRequest(http.MethodGet, "/campaigns/"+camp.ID.Hex(),
		testutil.FromModel(user.ID, user.Name, user.Email, user.Role, user.TenantID))
	req = testutil.WithChiURLParam(req, "id", camp.ID.Hex())
	rec := testutil.NewRecorder()
	h.HandleGet(rec, req)

	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"participating":true`)
	rec.AssertContains(t, `"participants":1`)
}

func TestHandleToggleParticipation_WindowEnforced(t *testing.T) {
	h, f := newHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	tenant := f.CreateTenant(ctx, "Forum", "forum")
	user := f.CreateCustomer(ctx, "Casey", "casey@test.com", tenant.ID)
	me := testutil.FromModel(user.ID, user.Name, user.Email, user.Role, user.TenantID)

	open := f.CreateCampaign(ctx, "Open", tenant.ID, 100)

	store := campaignstore.New(f.DB())
	closed, err := store.Create(ctx, models.Campaign{
		TenantID:     tenant.ID,
		Title:        "Closed",
		TargetPoints: 100,
		StartDate:    time.Now().Add(-48 * time.Hour),
		EndDate:      time.Now().Add(-24 * time.Hour),
		IsActive:     true,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	join := func(id string) *testutil.ResponseRecorder {
		req := testutil.NewAuthenticatedRequest(http.MethodPost, "/campaigns/"+id+"/join", me)
		req = testutil.WithChiURLParam(req, "id", id)
		rec := testutil.NewRecorder()
		h.HandleToggleParticipation(rec, req)
		return rec
	}

	rec := join(open.ID.Hex())
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"participating":true`)

	// Toggling again leaves the campaign.
	rec = join(open.ID.Hex())
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"participating":false`)

	join(closed.ID.Hex()).AssertStatus(t, http.StatusConflict)
}

func TestHandleListActive_ExcludesClosed(t *testing.T) {
	h, f := newHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	tenant := f.CreateTenant(ctx, "Forum", "forum")
	user := f.CreateCustomer(ctx, "Casey", "casey@test.com", tenant.ID)
	f.CreateCampaign(ctx, "Running", tenant.ID, 100)

	store := campaignstore.New(f.DB())
	if _, err := store.Create(ctx, models.Campaign{
		TenantID:     tenant.ID,
		Title:        "Finished",
		TargetPoints: 100,
		StartDate:    time.Now().Add(-48 * time.Hour),
		EndDate:      time.Now().Add(-24 * time.Hour),
		IsActive:     true,
	}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	req := testutil.NewAuthenticatedRequest(http.MethodGet, "/campaigns/active",
		testutil.FromModel(user.ID, user.Name, user.Email, user.Role, user.TenantID))
	rec := testutil.NewRecorder()
	h.HandleListActive(rec, req)

	rec.AssertStatus(t, http.StatusOK)

	var resp struct {
		Campaigns []models.Campaign `json:"campaigns"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Campaigns) != 1 || resp.Campaigns[0].Title != "Running" {
		t.Errorf("active campaigns = %+v, want only Running", resp.Campaigns)
	}
}

func TestHandleSetActive(t *testing.T) {
	h, f := newHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	tenant := f.CreateTenant(ctx, "Forum", "forum")
	camp := f.CreateCampaign(ctx, "Pausable", tenant.ID, 100)

	req := testutil.NewAuthenticatedJSONRequest(http.MethodPut, "/campaigns/"+camp.ID.Hex()+"/active", `{"active":false}`, testutil.AdminUser())
	req = testutil.WithChiURLParam(req, "id", camp.ID.Hex())
	rec := testutil.NewRecorder()
	h.HandleSetActive(rec, req)

	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"is_active":false`)
}
