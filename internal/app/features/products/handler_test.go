package products_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"go.uber.org/zap"

	uierrors "github.com/mercatohq/mercato/internal/app/features/errors"
	"github.com/mercatohq/mercato/internal/app/features/products"
	"github.com/mercatohq/mercato/internal/app/store/audit"
	productstore "github.com/mercatohq/mercato/internal/app/store/products"
	"github.com/mercatohq/mercato/internal/app/system/auditlog"
	"github.com/mercatohq/mercato/internal/domain/models"
	"github.com/mercatohq/mercato/internal/testutil"
)

func newHandler(t *testing.T) (*products.Handler, *testutil.Fixtures) {
	t.Helper()
	db := testutil.SetupTestDB(t)

	auditLog := auditlog.New(audit.New(db), zap.NewNop(), auditlog.Config{
		Auth: "db", Admin: "db", Data: "db",
	})

	h := products.NewHandler(
		productstore.New(db),
		auditLog,
		uierrors.NewLogger(zap.NewNop()),
		zap.NewNop(),
	)
	return h, testutil.NewFixtures(t, db)
}

func TestHandleCreate_SellerOwnTenant(t *testing.T) {
	h, f := newHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	tenant := f.CreateTenant(ctx, "Shop", "shop")
	seller := testutil.SellerUser(tenant.ID)

	body := `{"name":"Widget","price":19.99,"currency":"usd","stock":5,"category":"gadgets"}`
	req := testutil.NewAuthenticatedJSONRequest(http.MethodPost, "/products", body, seller)
	rec := testutil.NewRecorder()
	h.HandleCreate(rec, req)

	rec.AssertStatus(t, http.StatusCreated)

	var created models.Product
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if created.TenantID != tenant.ID {
		t.Errorf("tenant_id = %s, want seller's tenant %s", created.TenantID.Hex(), tenant.ID.Hex())
	}
	if created.SellerID.Hex() != seller.ID {
		t.Errorf("seller_id = %s, want %s", created.SellerID.Hex(), seller.ID)
	}
	if created.Currency != "USD" {
		t.Errorf("currency = %q, want USD after normalization", created.Currency)
	}
	if created.Status != "active" {
		t.Errorf("status = %q, want active default", created.Status)
	}
}

func TestHandleCreate_CustomerForbidden(t *testing.T) {
	h, f := newHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	tenant := f.CreateTenant(ctx, "Shop", "shop")

	body := `{"name":"Widget","price":10,"currency":"USD"}`
	req := testutil.NewAuthenticatedJSONRequest(http.MethodPost, "/products", body, testutil.CustomerUser(tenant.ID))
	rec := testutil.NewRecorder()
	h.HandleCreate(rec, req)
	rec.AssertStatus(t, http.StatusForbidden)
}

func TestHandleCreate_Validation(t *testing.T) {
	h, f := newHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	tenant := f.CreateTenant(ctx, "Shop", "shop")
	seller := testutil.SellerUser(tenant.ID)

	cases := []struct {
		name string
		body string
	}{
		{"zero price", `{"name":"Widget","price":0,"currency":"USD"}`},
		{"bad currency", `{"name":"Widget","price":10,"currency":"XBT"}`},
		{"negative stock", `{"name":"Widget","price":10,"currency":"USD","stock":-1}`},
		{"bad status", `{"name":"Widget","price":10,"currency":"USD","status":"hidden"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := testutil.NewAuthenticatedJSONRequest(http.MethodPost, "/products", tc.body, seller)
			rec := testutil.NewRecorder()
			h.HandleCreate(rec, req)
			rec.AssertStatus(t, http.StatusBadRequest)
		})
	}
}

func TestHandleList_AnonymousSeesOnlyActive(t *testing.T) {
	h, f := newHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	tenant := f.CreateTenant(ctx, "Shop", "shop")
	seller := f.CreateSeller(ctx, "Sam", "sam@test.com", tenant.ID)
	f.CreateProduct(ctx, "Visible", tenant.ID, seller.ID, 10)

	store := productstore.New(f.DB())
	if _, err := store.Create(ctx, models.Product{
		TenantID: tenant.ID, SellerID: seller.ID,
		Name: "Hidden Draft", Price: 5, Currency: "USD", Status: "draft",
	}); err != nil {
		t.Fatalf("Create draft failed: %v", err)
	}

	req := testutil.NewRequest(http.MethodGet, "/products?status=draft")
	rec := testutil.NewRecorder()
	h.HandleList(rec, req)

	rec.AssertStatus(t, http.StatusOK)

	var resp struct {
		Products []models.Product `json:"products"`
		Total    int64            `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Total != 1 {
		t.Fatalf("total = %d, want 1 (drafts hidden from anonymous browsers)", resp.Total)
	}
	if resp.Products[0].Name != "Visible" {
		t.Errorf("product = %q, want Visible", resp.Products[0].Name)
	}
}

func TestHandleList_SellerDraftsScopedToSelf(t *testing.T) {
	h, f := newHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	acme := f.CreateTenant(ctx, "Acme", "acme")
	globex := f.CreateTenant(ctx, "Globex", "globex")
	sam := f.CreateSeller(ctx, "Sam", "sam@acme.test", acme.ID)
	gil := f.CreateSeller(ctx, "Gil", "gil@globex.test", globex.ID)

	store := productstore.New(f.DB())
	for _, p := range []models.Product{
		{TenantID: acme.ID, SellerID: sam.ID, Name: "Sam Draft", Price: 5, Currency: "USD", Status: "draft"},
		{TenantID: globex.ID, SellerID: gil.ID, Name: "Gil Draft", Price: 7, Currency: "USD", Status: "draft"},
	} {
		if _, err := store.Create(ctx, p); err != nil {
			t.Fatalf("Create %s failed: %v", p.Name, err)
		}
	}

	// Even with a forged seller_id, a seller asking for drafts only gets
	// their own.
	req := testutil.NewAuthenticatedRequest(http.MethodGet,
		"/products?status=draft&seller_id="+gil.ID.Hex(),
		testutil.FromModel(sam.ID, sam.Name, sam.Email, "seller", &acme.ID))
	rec := testutil.NewRecorder()
	h.HandleList(rec, req)

	rec.AssertStatus(t, http.StatusOK)

	var resp struct {
		Products []models.Product `json:"products"`
		Total    int64            `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Total != 1 {
		t.Fatalf("total = %d, want only the caller's own draft", resp.Total)
	}
	if resp.Products[0].Name != "Sam Draft" {
		t.Errorf("product = %q, want Sam Draft", resp.Products[0].Name)
	}
}

func TestHandleGet_DraftHiddenFromOthers(t *testing.T) {
	h, f := newHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	tenant := f.CreateTenant(ctx, "Shop", "shop")
	seller := f.CreateSeller(ctx, "Sam", "sam@test.com", tenant.ID)

	store := productstore.New(f.DB())
	draft, err := store.Create(ctx, models.Product{
		TenantID: tenant.ID, SellerID: seller.ID,
		Name: "Prototype", Price: 5, Currency: "USD", Status: "draft",
	})
	if err != nil {
		t.Fatalf("Create draft failed: %v", err)
	}

	// A stranger gets a 404, not a 403; drafts should not leak existence.
	req := testutil.NewAuthenticatedRequest(http.MethodGet, "/products/"+draft.ID.Hex(), testutil.CustomerUser(tenant.ID))
	req = testutil.WithChiURLParam(req, "id", draft.ID.Hex())
	rec := testutil.NewRecorder()
	h.HandleGet(rec, req)
	rec.AssertStatus(t, http.StatusNotFound)

	// The owner sees it.
	owner := testutil.FromModel(seller.ID, seller.Name, seller.Email, seller.Role, seller.TenantID)
	req = testutil.NewAuthenticatedRequest(http.MethodGet, "/products/"+draft.ID.Hex(), owner)
	req = testutil.WithChiURLParam(req, "id", draft.ID.Hex())
	rec = testutil.NewRecorder()
	h.HandleGet(rec, req)
	rec.AssertStatus(t, http.StatusOK)
}

func TestHandleUpdate_Ownership(t *testing.T) {
	h, f := newHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	tenant := f.CreateTenant(ctx, "Shop", "shop")
	owner := f.CreateSeller(ctx, "Owner", "owner@test.com", tenant.ID)
	rival := f.CreateSeller(ctx, "Rival", "rival@test.com", tenant.ID)
	p := f.CreateProduct(ctx, "Widget", tenant.ID, owner.ID, 10)

	body := `{"price":25.50}`

	// Another seller in the same tenant cannot touch it.
	req := testutil.NewAuthenticatedJSONRequest(http.MethodPut, "/products/"+p.ID.Hex(), body,
		testutil.FromModel(rival.ID, rival.Name, rival.Email, rival.Role, rival.TenantID))
	req = testutil.WithChiURLParam(req, "id", p.ID.Hex())
	rec := testutil.NewRecorder()
	h.HandleUpdate(rec, req)
	rec.AssertStatus(t, http.StatusForbidden)

	// The owner can.
	req = testutil.NewAuthenticatedJSONRequest(http.MethodPut, "/products/"+p.ID.Hex(), body,
		testutil.FromModel(owner.ID, owner.Name, owner.Email, owner.Role, owner.TenantID))
	req = testutil.WithChiURLParam(req, "id", p.ID.Hex())
	rec = testutil.NewRecorder()
	h.HandleUpdate(rec, req)
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, "25.5")

	// So can an admin.
	req = testutil.NewAuthenticatedJSONRequest(http.MethodPut, "/products/"+p.ID.Hex(), `{"name":"Renamed"}`, testutil.AdminUser())
	req = testutil.WithChiURLParam(req, "id", p.ID.Hex())
	rec = testutil.NewRecorder()
	h.HandleUpdate(rec, req)
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, "Renamed")
}

func TestHandleAdjustStock(t *testing.T) {
	h, f := newHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	tenant := f.CreateTenant(ctx, "Shop", "shop")
	seller := f.CreateSeller(ctx, "Sam", "sam@test.com", tenant.ID)
	p := f.CreateProduct(ctx, "Widget", tenant.ID, seller.ID, 10) // stock 10

	owner := testutil.FromModel(seller.ID, seller.Name, seller.Email, seller.Role, seller.TenantID)

	req := testutil.NewAuthenticatedJSONRequest(http.MethodPost, "/products/"+p.ID.Hex()+"/stock", `{"delta":-4}`, owner)
	req = testutil.WithChiURLParam(req, "id", p.ID.Hex())
	rec := testutil.NewRecorder()
	h.HandleAdjustStock(rec, req)
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"stock":6`)

	// Draining below zero is refused atomically.
	req = testutil.NewAuthenticatedJSONRequest(http.MethodPost, "/products/"+p.ID.Hex()+"/stock", `{"delta":-100}`, owner)
	req = testutil.WithChiURLParam(req, "id", p.ID.Hex())
	rec = testutil.NewRecorder()
	h.HandleAdjustStock(rec, req)
	rec.AssertStatus(t, http.StatusConflict)

	// Zero delta is a no-op request.
	req = testutil.NewAuthenticatedJSONRequest(http.MethodPost, "/products/"+p.ID.Hex()+"/stock", `{"delta":0}`, owner)
	req = testutil.WithChiURLParam(req, "id", p.ID.Hex())
	rec = testutil.NewRecorder()
	h.HandleAdjustStock(rec, req)
	rec.AssertStatus(t, http.StatusBadRequest)
}

func TestHandleDelete_Ownership(t *testing.T) {
	h, f := newHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	tenant := f.CreateTenant(ctx, "Shop", "shop")
	owner := f.CreateSeller(ctx, "Owner", "owner@test.com", tenant.ID)
	p := f.CreateProduct(ctx, "Widget", tenant.ID, owner.ID, 10)

	// A customer in the tenant cannot delete it.
	req := testutil.NewAuthenticatedRequest(http.MethodDelete, "/products/"+p.ID.Hex(), testutil.CustomerUser(tenant.ID))
	req = testutil.WithChiURLParam(req, "id", p.ID.Hex())
	rec := testutil.NewRecorder()
	h.HandleDelete(rec, req)
	rec.AssertStatus(t, http.StatusForbidden)

	req = testutil.NewAuthenticatedRequest(http.MethodDelete, "/products/"+p.ID.Hex(),
		testutil.FromModel(owner.ID, owner.Name, owner.Email, owner.Role, owner.TenantID))
	req = testutil.WithChiURLParam(req, "id", p.ID.Hex())
	rec = testutil.NewRecorder()
	h.HandleDelete(rec, req)
	rec.AssertStatus(t, http.StatusOK)

	if _, err := productstore.New(f.DB()).GetByID(ctx, p.ID); err != productstore.ErrNotFound {
		t.Errorf("GetByID after delete: err = %v, want ErrNotFound", err)
	}
}
