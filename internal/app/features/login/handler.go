// internal/app/features/login/handler.go
package login

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	uierrors "github.com/mercatohq/mercato/internal/app/features/errors"
	tenantstore "github.com/mercatohq/mercato/internal/app/store/tenants"
	userstore "github.com/mercatohq/mercato/internal/app/store/users"
	"github.com/mercatohq/mercato/internal/app/system/auditlog"
	"github.com/mercatohq/mercato/internal/app/system/auth"
	"github.com/mercatohq/mercato/internal/app/system/authutil"
	"github.com/mercatohq/mercato/internal/app/system/metrics"
	"github.com/mercatohq/mercato/internal/app/system/ratelimit"
	"github.com/mercatohq/mercato/internal/app/system/timeouts"
	"github.com/mercatohq/mercato/internal/domain/models"
)

type Handler struct {
	Users      *userstore.Store
	Tenants    *tenantstore.Store
	SessionMgr *auth.Manager
	AuditLog   *auditlog.Logger
	ErrLog     *uierrors.Logger
	Limiter    *ratelimit.LoginLimiter
	Log        *zap.Logger
}

func NewHandler(
	users *userstore.Store,
	tenants *tenantstore.Store,
	sessionMgr *auth.Manager,
	audit *auditlog.Logger,
	errLog *uierrors.Logger,
	limiter *ratelimit.LoginLimiter,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		Users:      users,
		Tenants:    tenants,
		SessionMgr: sessionMgr,
		AuditLog:   audit,
		ErrLog:     errLog,
		Limiter:    limiter,
		Log:        logger,
	}
}

// userResponse is the sanitized user shape returned by the auth endpoints.
type userResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	TenantID string `json:"tenant_id,omitempty"`
}

func toUserResponse(u *models.User) userResponse {
	resp := userResponse{
		ID:    u.ID.Hex(),
		Name:  u.Name,
		Email: u.Email,
		Role:  u.Role,
	}
	if u.TenantID != nil {
		resp.TenantID = u.TenantID.Hex()
	}
	return resp
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /auth/signup                                                           |
*─────────────────────────────────────────────────────────────────────────────*/

type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
	TenantID string `json:"tenant_id"`
}

// HandleSignup registers a new customer or seller and signs them in.
func (h *Handler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		uierrors.BadRequest(w, "invalid JSON body")
		return
	}

	role := strings.ToLower(strings.TrimSpace(req.Role))
	if role == "" {
		role = "customer"
	}
	// Admin accounts are provisioned by other admins, never via signup.
	if role != "customer" && role != "seller" {
		uierrors.BadRequest(w, "role must be customer or seller")
		return
	}

	if err := authutil.ValidatePassword(req.Password); err != nil {
		uierrors.BadRequest(w, err.Error())
		return
	}

	tenantID, err := primitive.ObjectIDFromHex(strings.TrimSpace(req.TenantID))
	if err != nil {
		uierrors.BadRequest(w, "tenant_id is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if _, err := h.Tenants.GetByID(ctx, tenantID); err != nil {
		if err == tenantstore.ErrNotFound {
			uierrors.BadRequest(w, "unknown tenant")
			return
		}
		h.ErrLog.ServerError(w, r, "signup: tenant lookup", err)
		return
	}

	hash, err := authutil.HashPassword(req.Password)
	if err != nil {
		h.ErrLog.ServerError(w, r, "signup: hash password", err)
		return
	}

	u, err := h.Users.Create(ctx, models.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         role,
		TenantID:     &tenantID,
	})
	if err != nil {
		switch err {
		case userstore.ErrDuplicateEmail:
			uierrors.Conflict(w, err.Error())
		default:
			uierrors.BadRequest(w, err.Error())
		}
		return
	}

	h.AuditLog.UserCreated(ctx, r, u.ID, u.ID, u.TenantID, u.Role)

	if _, err := h.SessionMgr.SignIn(w, r, &u, ratelimit.ClientIP(r), r.UserAgent()); err != nil {
		h.ErrLog.ServerError(w, r, "signup: create session", err)
		return
	}
	h.AuditLog.LoginSuccess(ctx, r, u.ID, u.TenantID, "password")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(toUserResponse(&u))
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /auth/signin                                                           |
*─────────────────────────────────────────────────────────────────────────────*/

type signinRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleSignin verifies credentials and starts a session.
func (h *Handler) HandleSignin(w http.ResponseWriter, r *http.Request) {
	var req signinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		uierrors.BadRequest(w, "invalid JSON body")
		return
	}
	if req.Email == "" || req.Password == "" {
		uierrors.BadRequest(w, "email and password are required")
		return
	}

	metrics.AuthAttempts.Inc()

	if allowed, reason := h.Limiter.Check(r, req.Email); !allowed {
		uierrors.JSON(w, http.StatusTooManyRequests, reason)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if err == userstore.ErrNotFound {
			// Same response as a wrong password so the endpoint doesn't leak
			// which emails have accounts.
			h.AuditLog.AuthFailure(ctx, r, req.Email, "user not found")
			metrics.AuthFailures.Inc()
			uierrors.JSON(w, http.StatusUnauthorized, "invalid email or password")
			return
		}
		h.ErrLog.ServerError(w, r, "signin: user lookup", err)
		return
	}

	if u.PasswordHash == "" || !authutil.CheckPassword(req.Password, u.PasswordHash) {
		h.AuditLog.AuthFailure(ctx, r, req.Email, "wrong password")
		metrics.AuthFailures.Inc()
		uierrors.JSON(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	if _, err := h.SessionMgr.SignIn(w, r, u, ratelimit.ClientIP(r), r.UserAgent()); err != nil {
		h.ErrLog.ServerError(w, r, "signin: create session", err)
		return
	}

	h.Limiter.ResetEmail(req.Email)
	h.AuditLog.LoginSuccess(ctx, r, u.ID, u.TenantID, "password")
	metrics.AuthSuccesses.Inc()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(toUserResponse(u))
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /auth/signout                                                          |
*─────────────────────────────────────────────────────────────────────────────*/

// HandleSignout ends the current session.
func (h *Handler) HandleSignout(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r)
	if ok {
		if uid, err := primitive.ObjectIDFromHex(user.ID); err == nil {
			var tenantID *primitive.ObjectID
			if tid, err := primitive.ObjectIDFromHex(user.TenantID); err == nil {
				tenantID = &tid
			}
			h.AuditLog.Logout(r.Context(), r, uid, tenantID)
		}
	}

	if err := h.SessionMgr.SignOut(w, r); err != nil {
		h.ErrLog.ServerError(w, r, "signout: clear session", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"signed out"}` + "\n"))
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /auth/session                                                           |
*─────────────────────────────────────────────────────────────────────────────*/

// ServeSession returns the signed-in user, or 401 when anonymous.
func (h *Handler) ServeSession(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r)
	if !ok {
		uierrors.Unauthorized(w)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(userResponse{
		ID:       user.ID,
		Name:     user.Name,
		Email:    user.Email,
		Role:     user.Role,
		TenantID: user.TenantID,
	})
}
