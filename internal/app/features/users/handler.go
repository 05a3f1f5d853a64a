// internal/app/features/users/handler.go
package users

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	uierrors "github.com/mercatohq/mercato/internal/app/features/errors"
	sessionstore "github.com/mercatohq/mercato/internal/app/store/sessions"
	userstore "github.com/mercatohq/mercato/internal/app/store/users"
	"github.com/mercatohq/mercato/internal/app/system/auditlog"
	"github.com/mercatohq/mercato/internal/app/system/auth"
	"github.com/mercatohq/mercato/internal/app/system/authutil"
	"github.com/mercatohq/mercato/internal/app/system/authz"
	"github.com/mercatohq/mercato/internal/app/system/htmlsanitize"
	"github.com/mercatohq/mercato/internal/app/system/inputval"
	"github.com/mercatohq/mercato/internal/app/system/timeouts"
	"github.com/mercatohq/mercato/internal/domain/models"
)

type Handler struct {
	Users    *userstore.Store
	Sessions *sessionstore.Store
	AuditLog *auditlog.Logger
	ErrLog   *uierrors.Logger
	Log      *zap.Logger
}

func NewHandler(
	users *userstore.Store,
	sessions *sessionstore.Store,
	audit *auditlog.Logger,
	errLog *uierrors.Logger,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		Users:    users,
		Sessions: sessions,
		AuditLog: audit,
		ErrLog:   errLog,
		Log:      logger,
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /users/me                                                                |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	cu, ok := auth.CurrentUser(r)
	if !ok {
		uierrors.Unauthorized(w)
		return
	}
	id, err := primitive.ObjectIDFromHex(cu.ID)
	if err != nil {
		uierrors.Unauthorized(w)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		if err == userstore.ErrNotFound {
			uierrors.NotFound(w, "user not found")
			return
		}
		h.ErrLog.ServerError(w, r, "failed to load current user", err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

/*─────────────────────────────────────────────────────────────────────────────*
| PUT /users/me                                                                |
*─────────────────────────────────────────────────────────────────────────────*/

type profileRequest struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Bio      string `json:"bio"`
	Image    string `json:"image"`
}

// HandleUpdateProfile lets a signed-in user change their own profile fields.
// Role, email, and tenant are not editable here.
func (h *Handler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	cu, ok := auth.CurrentUser(r)
	if !ok {
		uierrors.Unauthorized(w)
		return
	}
	id, err := primitive.ObjectIDFromHex(cu.ID)
	if err != nil {
		uierrors.Unauthorized(w)
		return
	}

	var req profileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		uierrors.BadRequest(w, "invalid JSON body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	upd := userstore.ProfileUpdate{
		Name:     req.Name,
		Username: req.Username,
		// Bios render on public profile pages; sanitize any markup.
		Bio:   htmlsanitize.Sanitize(req.Bio),
		Image: req.Image,
	}
	err = h.AuditLog.UserUpdated(ctx, r, id, id, tenantIDPtr(cu), profileFields(req), func(cx context.Context) error {
		return h.Users.UpdateProfile(cx, id, upd)
	})
	if err != nil {
		if err == userstore.ErrNotFound {
			uierrors.NotFound(w, "user not found")
			return
		}
		uierrors.BadRequest(w, err.Error())
		return
	}

	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		h.ErrLog.ServerError(w, r, "failed to reload user", err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /users  (admin)                                                          |
*─────────────────────────────────────────────────────────────────────────────*/

// HandleList returns a page of users. Filters: tenant_id, role, search, page,
// limit.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := userstore.ListFilter{
		Role:   q.Get("role"),
		Search: q.Get("search"),
	}
	if raw := q.Get("tenant_id"); raw != "" {
		tid, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			uierrors.BadRequest(w, "invalid tenant_id")
			return
		}
		filter.TenantID = &tid
	}
	filter.Page, _ = strconv.Atoi(q.Get("page"))
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	users, total, err := h.Users.List(ctx, filter)
	if err != nil {
		h.ErrLog.ServerError(w, r, "failed to list users", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"users": users,
		"total": total,
	})
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /users  (admin)                                                         |
*─────────────────────────────────────────────────────────────────────────────*/

type createRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
	TenantID string `json:"tenant_id"`
}

// HandleCreate lets an admin provision an account directly, bypassing signup.
// The account arrives email-verified since the admin vouched for it.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		uierrors.BadRequest(w, "invalid JSON body")
		return
	}

	if !inputval.IsValidEmail(req.Email) {
		uierrors.BadRequest(w, "invalid email address")
		return
	}
	if err := authutil.ValidatePassword(req.Password); err != nil {
		uierrors.BadRequest(w, err.Error())
		return
	}

	var tenantID *primitive.ObjectID
	if req.TenantID != "" {
		tid, err := primitive.ObjectIDFromHex(req.TenantID)
		if err != nil {
			uierrors.BadRequest(w, "invalid tenant_id")
			return
		}
		tenantID = &tid
	}

	hash, err := authutil.HashPassword(req.Password)
	if err != nil {
		h.ErrLog.ServerError(w, r, "failed to hash password", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	u, err := h.Users.Create(ctx, models.User{
		Name:          req.Name,
		Email:         req.Email,
		PasswordHash:  hash,
		Role:          req.Role,
		TenantID:      tenantID,
		EmailVerified: true,
	})
	if err != nil {
		if err == userstore.ErrDuplicateEmail {
			uierrors.Conflict(w, err.Error())
			return
		}
		uierrors.BadRequest(w, err.Error())
		return
	}

	h.AuditLog.UserCreated(ctx, r, actorID(r), u.ID, u.TenantID, u.Role)

	writeJSON(w, http.StatusCreated, u)
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /users/{id}  (admin or same tenant)                                      |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		uierrors.BadRequest(w, "invalid user id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		if err == userstore.ErrNotFound {
			uierrors.NotFound(w, "user not found")
			return
		}
		h.ErrLog.ServerError(w, r, "failed to load user", err)
		return
	}

	// Tenant-scoped users only see accounts inside their tenant. A target
	// with no tenant (an admin account) is admin-only.
	if u.TenantID == nil {
		if err := authz.RequireAdmin(r); err != nil {
			uierrors.Authz(w, err)
			return
		}
	} else if err := authz.RequireTenantAccess(r, *u.TenantID); err != nil {
		uierrors.Authz(w, err)
		return
	}

	writeJSON(w, http.StatusOK, u)
}

/*─────────────────────────────────────────────────────────────────────────────*
| PUT /users/{id}/role  (admin)                                                |
*─────────────────────────────────────────────────────────────────────────────*/

type roleRequest struct {
	Role string `json:"role"`
}

// HandleUpdateRole changes a user's role and revokes their sessions so the
// new role takes effect immediately rather than at next sign-in.
func (h *Handler) HandleUpdateRole(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		uierrors.BadRequest(w, "invalid user id")
		return
	}

	var req roleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		uierrors.BadRequest(w, "invalid JSON body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	target, err := h.Users.GetByID(ctx, id)
	if err != nil {
		if err == userstore.ErrNotFound {
			uierrors.NotFound(w, "user not found")
			return
		}
		h.ErrLog.ServerError(w, r, "failed to load user", err)
		return
	}

	oldRole := target.Role
	newRole := strings.ToLower(strings.TrimSpace(req.Role))
	err = h.AuditLog.UserRoleChanged(ctx, r, actorID(r), id, target.TenantID,
		oldRole, newRole, func(cx context.Context) error {
			return h.Users.UpdateRole(cx, id, req.Role)
		})
	if err != nil {
		if err == userstore.ErrNotFound {
			uierrors.NotFound(w, "user not found")
			return
		}
		uierrors.BadRequest(w, err.Error())
		return
	}

	if n, err := h.Sessions.DeleteByUser(ctx, id); err != nil {
		h.Log.Warn("failed to revoke sessions after role change",
			zap.Error(err), zap.String("user_id", id.Hex()))
	} else if n > 0 {
		h.Log.Info("revoked sessions after role change",
			zap.Int64("count", n), zap.String("user_id", id.Hex()))
	}

	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		h.ErrLog.ServerError(w, r, "failed to reload user", err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

/*─────────────────────────────────────────────────────────────────────────────*
| DELETE /users/{id}  (admin)                                                  |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		uierrors.BadRequest(w, "invalid user id")
		return
	}

	actor := actorID(r)
	if actor == id {
		uierrors.BadRequest(w, "admins cannot delete their own account")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	target, err := h.Users.GetByID(ctx, id)
	if err != nil {
		if err == userstore.ErrNotFound {
			uierrors.NotFound(w, "user not found")
			return
		}
		h.ErrLog.ServerError(w, r, "failed to load user", err)
		return
	}

	err = h.AuditLog.UserDeleted(ctx, r, actor, id, target.TenantID, func(cx context.Context) error {
		n, err := h.Users.Delete(cx, id)
		if err != nil {
			return err
		}
		if n == 0 {
			return userstore.ErrNotFound
		}
		return nil
	})
	if err != nil {
		if err == userstore.ErrNotFound {
			uierrors.NotFound(w, "user not found")
			return
		}
		h.ErrLog.ServerError(w, r, "failed to delete user", err)
		return
	}

	if _, err := h.Sessions.DeleteByUser(ctx, id); err != nil {
		h.Log.Warn("failed to revoke sessions for deleted user",
			zap.Error(err), zap.String("user_id", id.Hex()))
	}

	h.Log.Info("user deleted",
		zap.String("user_id", id.Hex()),
		zap.String("actor_id", actor.Hex()))

	writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
}

/*─────────────────────────────────────────────────────────────────────────────*
| Helpers                                                                      |
*─────────────────────────────────────────────────────────────────────────────*/

func actorID(r *http.Request) primitive.ObjectID {
	if u, ok := auth.CurrentUser(r); ok {
		if id, err := primitive.ObjectIDFromHex(u.ID); err == nil {
			return id
		}
	}
	return primitive.NilObjectID
}

func tenantIDPtr(cu *auth.SessionUser) *primitive.ObjectID {
	if cu == nil || cu.TenantID == "" {
		return nil
	}
	if id, err := primitive.ObjectIDFromHex(cu.TenantID); err == nil {
		return &id
	}
	return nil
}

func profileFields(req profileRequest) string {
	var fields []string
	if req.Name != "" {
		fields = append(fields, "name")
	}
	if req.Username != "" {
		fields = append(fields, "username")
	}
	if req.Bio != "" {
		fields = append(fields, "bio")
	}
	if req.Image != "" {
		fields = append(fields, "image")
	}
	return strings.Join(fields, ",")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
