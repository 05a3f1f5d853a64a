package login_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	uierrors "github.com/mercatohq/mercato/internal/app/features/errors"
	"github.com/mercatohq/mercato/internal/app/features/login"
	"github.com/mercatohq/mercato/internal/app/store/audit"
	sessionstore "github.com/mercatohq/mercato/internal/app/store/sessions"
	tenantstore "github.com/mercatohq/mercato/internal/app/store/tenants"
	userstore "github.com/mercatohq/mercato/internal/app/store/users"
	"github.com/mercatohq/mercato/internal/app/system/auditlog"
	"github.com/mercatohq/mercato/internal/app/system/auth"
	"github.com/mercatohq/mercato/internal/app/system/ratelimit"
	"github.com/mercatohq/mercato/internal/testutil"
)

func newHandler(t *testing.T) (*login.Handler, *mongo.Database) {
	t.Helper()
	db := testutil.SetupTestDB(t)

	if err := auth.InitSessionStore(strings.Repeat("k", 32), "", false, zap.NewNop()); err != nil {
		t.Fatalf("InitSessionStore failed: %v", err)
	}

	users := userstore.New(db)
	tenants := tenantstore.New(db)
	mgr := auth.NewManager(sessionstore.New(db), users, zap.NewNop())
	auditLog := auditlog.New(audit.New(db), zap.NewNop(), auditlog.Config{
		Auth: "db", Admin: "db", Data: "db",
	})

	h := login.NewHandler(users, tenants, mgr, auditLog, uierrors.NewLogger(zap.NewNop()),
		ratelimit.NewLoginLimiter(), zap.NewNop())
	return h, db
}

func signupBody(tenantID, email string) string {
	return fmt.Sprintf(`{"name":"Pat Doe","email":%q,"password":"hunter2hunter2","tenant_id":%q}`, email, tenantID)
}

func TestSignupThenSignin(t *testing.T) {
	h, db := newHandler(t)
	fix := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	tenant := fix.CreateTenant(ctx, "Acme", "acme")

	req := testutil.NewJSONRequest(http.MethodPost, "/auth/signup", signupBody(tenant.ID.Hex(), "pat@example.com"))
	rec := testutil.NewRecorder()
	h.HandleSignup(rec.ResponseRecorder, req)
	rec.AssertStatus(t, http.StatusCreated)

	var created struct {
		ID       string `json:"id"`
		Role     string `json:"role"`
		TenantID string `json:"tenant_id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("parse signup response: %v", err)
	}
	if created.Role != "customer" {
		t.Errorf("role = %q, want customer", created.Role)
	}
	if created.TenantID != tenant.ID.Hex() {
		t.Errorf("tenant_id = %q, want %q", created.TenantID, tenant.ID.Hex())
	}

	// Signing in with the same credentials works; email lookup is
	// case-insensitive.
	req = testutil.NewJSONRequest(http.MethodPost, "/auth/signin",
		`{"email":"PAT@example.com","password":"hunter2hunter2"}`)
	rec = testutil.NewRecorder()
	h.HandleSignin(rec.ResponseRecorder, req)
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, "pat@example.com")

	if cookies := rec.Result().Cookies(); len(cookies) == 0 {
		t.Error("expected a session cookie on signin")
	}
}

func TestSignin_WrongCredentials(t *testing.T) {
	h, db := newHandler(t)
	fix := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	tenant := fix.CreateTenant(ctx, "Acme", "acme")

	req := testutil.NewJSONRequest(http.MethodPost, "/auth/signup", signupBody(tenant.ID.Hex(), "kim@example.com"))
	rec := testutil.NewRecorder()
	h.HandleSignup(rec.ResponseRecorder, req)
	rec.AssertStatus(t, http.StatusCreated)

	// Wrong password and unknown email respond identically.
	for _, body := range []string{
		`{"email":"kim@example.com","password":"not-the-password"}`,
		`{"email":"nobody@example.com","password":"hunter2hunter2"}`,
	} {
		req = testutil.NewJSONRequest(http.MethodPost, "/auth/signin", body)
		rec = testutil.NewRecorder()
		h.HandleSignin(rec.ResponseRecorder, req)
		rec.AssertStatus(t, http.StatusUnauthorized)
		rec.AssertContains(t, "invalid email or password")
	}
}

func TestSignup_Validation(t *testing.T) {
	h, db := newHandler(t)
	fix := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	tenant := fix.CreateTenant(ctx, "Acme", "acme")

	tests := []struct {
		name string
		body string
	}{
		{
			"admin role rejected",
			fmt.Sprintf(`{"name":"X","email":"x@example.com","password":"hunter2hunter2","role":"admin","tenant_id":%q}`, tenant.ID.Hex()),
		},
		{
			"short password",
			fmt.Sprintf(`{"name":"X","email":"x@example.com","password":"short","tenant_id":%q}`, tenant.ID.Hex()),
		},
		{
			"missing tenant",
			`{"name":"X","email":"x@example.com","password":"hunter2hunter2"}`,
		},
		{
			"unknown tenant",
			`{"name":"X","email":"x@example.com","password":"hunter2hunter2","tenant_id":"507f1f77bcf86cd799439099"}`,
		},
		{
			"bad json",
			`{nope`,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := testutil.NewJSONRequest(http.MethodPost, "/auth/signup", tc.body)
			rec := testutil.NewRecorder()
			h.HandleSignup(rec.ResponseRecorder, req)
			rec.AssertStatus(t, http.StatusBadRequest)
		})
	}
}

func TestSignup_DuplicateEmail(t *testing.T) {
	h, db := newHandler(t)
	fix := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	tenant := fix.CreateTenant(ctx, "Acme", "acme")

	// Duplicate detection relies on the unique email index.
	_, err := db.Collection("users").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetName("uniq_users_email").SetUnique(true),
	})
	if err != nil {
		t.Fatalf("index setup failed: %v", err)
	}

	req := testutil.NewJSONRequest(http.MethodPost, "/auth/signup", signupBody(tenant.ID.Hex(), "dup@example.com"))
	rec := testutil.NewRecorder()
	h.HandleSignup(rec.ResponseRecorder, req)
	rec.AssertStatus(t, http.StatusCreated)

	req = testutil.NewJSONRequest(http.MethodPost, "/auth/signup", signupBody(tenant.ID.Hex(), "dup@example.com"))
	rec = testutil.NewRecorder()
	h.HandleSignup(rec.ResponseRecorder, req)
	rec.AssertStatus(t, http.StatusConflict)
}

func TestServeSession(t *testing.T) {
	h, _ := newHandler(t)

	// Anonymous: 401.
	req := testutil.NewRequest(http.MethodGet, "/auth/session")
	rec := testutil.NewRecorder()
	h.ServeSession(rec.ResponseRecorder, req)
	rec.AssertStatus(t, http.StatusUnauthorized)

	// Signed in: user JSON.
	req = testutil.NewAuthenticatedRequest(http.MethodGet, "/auth/session", testutil.AdminUser())
	rec = testutil.NewRecorder()
	h.ServeSession(rec.ResponseRecorder, req)
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"role":"admin"`)
}

func TestSignout(t *testing.T) {
	h, _ := newHandler(t)

	req := testutil.NewAuthenticatedRequest(http.MethodPost, "/auth/signout", testutil.AdminUser())
	rec := testutil.NewRecorder()
	h.HandleSignout(rec.ResponseRecorder, req)
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, "signed out")
}
