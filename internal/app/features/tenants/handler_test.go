package tenants_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"go.uber.org/zap"

	uierrors "github.com/mercatohq/mercato/internal/app/features/errors"
	"github.com/mercatohq/mercato/internal/app/features/tenants"
	"github.com/mercatohq/mercato/internal/app/store/audit"
	categorystore "github.com/mercatohq/mercato/internal/app/store/categories"
	tenantstore "github.com/mercatohq/mercato/internal/app/store/tenants"
	"github.com/mercatohq/mercato/internal/app/system/auditlog"
	"github.com/mercatohq/mercato/internal/domain/models"
	"github.com/mercatohq/mercato/internal/testutil"
)

func newHandler(t *testing.T) (*tenants.Handler, *testutil.Fixtures) {
	t.Helper()
	db := testutil.SetupTestDB(t)

	auditLog := auditlog.New(audit.New(db), zap.NewNop(), auditlog.Config{
		Auth: "db", Admin: "db", Data: "db",
	})

	h := tenants.NewHandler(
		tenantstore.New(db),
		categorystore.New(db),
		auditLog,
		uierrors.NewLogger(zap.NewNop()),
		zap.NewNop(),
	)
	return h, testutil.NewFixtures(t, db)
}

func TestHandleCreate_SeedsCategories(t *testing.T) {
	h, f := newHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	body := `{"name":"Acme Market","slug":"acme-market","domain":"marketplace"}`
	req := testutil.NewAuthenticatedJSONRequest(http.MethodPost, "/tenants", body, testutil.AdminUser())
	rec := testutil.NewRecorder()
	h.HandleCreate(rec, req)

	rec.AssertStatus(t, http.StatusCreated)
	rec.AssertJSON(t)

	var created models.Tenant
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if created.Slug != "acme-market" {
		t.Errorf("slug = %q, want acme-market", created.Slug)
	}
	if created.Settings.SiteName != "Acme Market" {
		t.Errorf("settings.site_name = %q, want tenant name default", created.Settings.SiteName)
	}

	cats, err := categorystore.New(f.DB()).ListByTenant(ctx, created.ID)
	if err != nil {
		t.Fatalf("ListByTenant failed: %v", err)
	}
	if len(cats) == 0 {
		t.Error("expected default forum categories to be seeded")
	}
}

func TestHandleCreate_DuplicateSlug(t *testing.T) {
	h, _ := newHandler(t)

	body := `{"name":"First","slug":"taken","domain":"forum"}`
	req := testutil.NewAuthenticatedJSONRequest(http.MethodPost, "/tenants", body, testutil.AdminUser())
	rec := testutil.NewRecorder()
	h.HandleCreate(rec, req)
	rec.AssertStatus(t, http.StatusCreated)

	body = `{"name":"Second","slug":"taken","domain":"forum"}`
	req = testutil.NewAuthenticatedJSONRequest(http.MethodPost, "/tenants", body, testutil.AdminUser())
	rec = testutil.NewRecorder()
	h.HandleCreate(rec, req)
	rec.AssertStatus(t, http.StatusConflict)
}

func TestHandleCreate_Validation(t *testing.T) {
	h, _ := newHandler(t)

	cases := []struct {
		name string
		body string
	}{
		{"bad json", `{"name":`},
		{"bad slug", `{"name":"X","slug":"UPPER CASE!!","domain":"forum"}`},
		{"bad domain", `{"name":"X","slug":"x-shop","domain":"warehouse"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := testutil.NewAuthenticatedJSONRequest(http.MethodPost, "/tenants", tc.body, testutil.AdminUser())
			rec := testutil.NewRecorder()
			h.HandleCreate(rec, req)
			rec.AssertStatus(t, http.StatusBadRequest)
		})
	}
}

func TestHandleGet_TenantScoping(t *testing.T) {
	h, f := newHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	tenant := f.CreateTenant(ctx, "Shop A", "shop-a")
	other := f.CreateTenant(ctx, "Shop B", "shop-b")

	// Member of the tenant can read it.
	req := testutil.NewAuthenticatedRequest(http.MethodGet, "/tenants/"+tenant.ID.Hex(), testutil.CustomerUser(tenant.ID))
	req = testutil.WithChiURLParam(req, "id", tenant.ID.Hex())
	rec := testutil.NewRecorder()
	h.HandleGet(rec, req)
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, "shop-a")

	// Member of another tenant cannot.
	req = testutil.NewAuthenticatedRequest(http.MethodGet, "/tenants/"+other.ID.Hex(), testutil.CustomerUser(tenant.ID))
	req = testutil.WithChiURLParam(req, "id", other.ID.Hex())
	rec = testutil.NewRecorder()
	h.HandleGet(rec, req)
	rec.AssertStatus(t, http.StatusForbidden)

	// Admins span tenants.
	req = testutil.NewAuthenticatedRequest(http.MethodGet, "/tenants/"+other.ID.Hex(), testutil.AdminUser())
	req = testutil.WithChiURLParam(req, "id", other.ID.Hex())
	rec = testutil.NewRecorder()
	h.HandleGet(rec, req)
	rec.AssertStatus(t, http.StatusOK)
}

func TestHandleGetBySlug(t *testing.T) {
	h, f := newHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	f.CreateTenant(ctx, "Forum Town", "forum-town")

	req := testutil.NewRequest(http.MethodGet, "/tenants/slug/forum-town")
	req = testutil.WithChiURLParam(req, "slug", "forum-town")
	rec := testutil.NewRecorder()
	h.HandleGetBySlug(rec, req)
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, "Forum Town")

	req = testutil.NewRequest(http.MethodGet, "/tenants/slug/no-such-place")
	req = testutil.WithChiURLParam(req, "slug", "no-such-place")
	rec = testutil.NewRecorder()
	h.HandleGetBySlug(rec, req)
	rec.AssertStatus(t, http.StatusNotFound)
}

func TestHandleResolveDomain(t *testing.T) {
	h, f := newHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := tenantstore.New(f.DB()).Create(ctx, models.Tenant{
		Name:   "Acme",
		Slug:   "acme",
		Domain: "marketplace",
		Settings: models.TenantSettings{
			CustomDomain: "shop.acme.com",
		},
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	req := testutil.NewRequest(http.MethodGet, "/tenants/resolve?domain=Shop.Acme.COM:443")
	rec := testutil.NewRecorder()
	h.HandleResolveDomain(rec, req)
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, created.ID.Hex())

	req = testutil.NewRequest(http.MethodGet, "/tenants/resolve?domain=unknown.example.com")
	rec = testutil.NewRecorder()
	h.HandleResolveDomain(rec, req)
	rec.AssertStatus(t, http.StatusNotFound)

	req = testutil.NewRequest(http.MethodGet, "/tenants/resolve")
	rec = testutil.NewRecorder()
	h.HandleResolveDomain(rec, req)
	rec.AssertStatus(t, http.StatusBadRequest)
}

func TestHandleUpdate(t *testing.T) {
	h, f := newHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	tenant := f.CreateTenant(ctx, "Old Name", "stable-slug")

	body := `{"name":"New Name","settings":{"site_name":"New Site","primary_color":"#112233","secondary_color":"#445566"}}`
	req := testutil.NewAuthenticatedJSONRequest(http.MethodPut, "/tenants/"+tenant.ID.Hex(), body, testutil.AdminUser())
	req = testutil.WithChiURLParam(req, "id", tenant.ID.Hex())
	rec := testutil.NewRecorder()
	h.HandleUpdate(rec, req)

	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, "New Name")
	rec.AssertContains(t, "stable-slug")

	got, err := tenantstore.New(f.DB()).GetByID(ctx, tenant.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Settings.SiteName != "New Site" {
		t.Errorf("settings.site_name = %q, want New Site", got.Settings.SiteName)
	}
}

func TestHandleUpdate_NotFound(t *testing.T) {
	h, _ := newHandler(t)

	body := `{"name":"Whatever"}`
	req := testutil.NewAuthenticatedJSONRequest(http.MethodPut, "/tenants/507f1f77bcf86cd799439099", body, testutil.AdminUser())
	req = testutil.WithChiURLParam(req, "id", "507f1f77bcf86cd799439099")
	rec := testutil.NewRecorder()
	h.HandleUpdate(rec, req)
	rec.AssertStatus(t, http.StatusNotFound)
}

func TestHandleList(t *testing.T) {
	h, f := newHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	f.CreateTenant(ctx, "One", "one")
	f.CreateTenant(ctx, "Two", "two")

	req := testutil.NewAuthenticatedRequest(http.MethodGet, "/tenants", testutil.AdminUser())
	rec := testutil.NewRecorder()
	h.HandleList(rec, req)

	rec.AssertStatus(t, http.StatusOK)

	var resp struct {
		Tenants []models.Tenant `json:"tenants"`
		Count   int             `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Count != 2 {
		t.Errorf("count = %d, want 2", resp.Count)
	}
}
