// internal/app/features/tenants/handler.go
package tenants

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	uierrors "github.com/mercatohq/mercato/internal/app/features/errors"
	categorystore "github.com/mercatohq/mercato/internal/app/store/categories"
	tenantstore "github.com/mercatohq/mercato/internal/app/store/tenants"
	"github.com/mercatohq/mercato/internal/app/system/auditlog"
	"github.com/mercatohq/mercato/internal/app/system/auth"
	"github.com/mercatohq/mercato/internal/app/system/authz"
	"github.com/mercatohq/mercato/internal/app/system/timeouts"
	"github.com/mercatohq/mercato/internal/domain/models"
)

type Handler struct {
	Tenants    *tenantstore.Store
	Categories *categorystore.Store
	AuditLog   *auditlog.Logger
	ErrLog     *uierrors.Logger
	Log        *zap.Logger
}

func NewHandler(
	tenants *tenantstore.Store,
	categories *categorystore.Store,
	audit *auditlog.Logger,
	errLog *uierrors.Logger,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		Tenants:    tenants,
		Categories: categories,
		AuditLog:   audit,
		ErrLog:     errLog,
		Log:        logger,
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /tenants  (admin)                                                       |
*─────────────────────────────────────────────────────────────────────────────*/

type createRequest struct {
	Name     string                 `json:"name"`
	Slug     string                 `json:"slug"`
	Domain   string                 `json:"domain"`
	Settings *models.TenantSettings `json:"settings"`
}

// HandleCreate provisions a new tenant and seeds its default forum categories.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		uierrors.BadRequest(w, "invalid JSON body")
		return
	}

	t := models.Tenant{
		Name:   req.Name,
		Slug:   req.Slug,
		Domain: req.Domain,
	}
	if req.Settings != nil {
		t.Settings = *req.Settings
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	created, err := h.Tenants.Create(ctx, t)
	if err != nil {
		if err == tenantstore.ErrDuplicateSlug {
			uierrors.Conflict(w, err.Error())
			return
		}
		uierrors.BadRequest(w, err.Error())
		return
	}

	// A tenant with no categories has an unusable forum; seed the defaults
	// now rather than lazily on first visit.
	if n, err := h.Categories.SeedDefaults(ctx, created.ID); err != nil {
		h.Log.Warn("failed to seed forum categories",
			zap.Error(err),
			zap.String("tenant_id", created.ID.Hex()))
	} else {
		h.Log.Info("seeded forum categories",
			zap.Int("count", n),
			zap.String("tenant_id", created.ID.Hex()))
	}

	h.AuditLog.TenantCreated(ctx, r, actorID(r), created.ID, created.Slug)

	h.Log.Info("tenant created",
		zap.String("tenant_id", created.ID.Hex()),
		zap.String("slug", created.Slug))

	writeJSON(w, http.StatusCreated, created)
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /tenants  (admin)                                                        |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	list, err := h.Tenants.List(ctx)
	if err != nil {
		h.ErrLog.ServerError(w, r, "failed to list tenants", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"tenants": list,
		"count":   len(list),
	})
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /tenants/{id}  (signed in, own tenant or admin)                          |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		uierrors.BadRequest(w, "invalid tenant id")
		return
	}

	if err := authz.RequireTenantAccess(r, id); err != nil {
		uierrors.Authz(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	t, err := h.Tenants.GetByID(ctx, id)
	if err != nil {
		if err == tenantstore.ErrNotFound {
			uierrors.NotFound(w, "tenant not found")
			return
		}
		h.ErrLog.ServerError(w, r, "failed to load tenant", err)
		return
	}

	writeJSON(w, http.StatusOK, t)
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /tenants/slug/{slug}  (public)                                           |
| Storefronts resolve their tenant by slug before anyone is signed in.         |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleGetBySlug(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	t, err := h.Tenants.GetBySlug(ctx, slug)
	if err != nil {
		if err == tenantstore.ErrNotFound {
			uierrors.NotFound(w, "tenant not found")
			return
		}
		h.ErrLog.ServerError(w, r, "failed to load tenant by slug", err)
		return
	}

	writeJSON(w, http.StatusOK, t)
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /tenants/resolve?domain=shop.example.com  (public)                       |
| White-label storefronts on a custom domain resolve their tenant by host.     |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleResolveDomain(w http.ResponseWriter, r *http.Request) {
	domain := r.URL.Query().Get("domain")
	if strings.TrimSpace(domain) == "" {
		uierrors.BadRequest(w, "domain is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	t, err := h.Tenants.GetByCustomDomain(ctx, domain)
	if err != nil {
		if err == tenantstore.ErrNotFound {
			uierrors.NotFound(w, "tenant not found")
			return
		}
		h.ErrLog.ServerError(w, r, "failed to resolve tenant by domain", err)
		return
	}

	writeJSON(w, http.StatusOK, t)
}

/*─────────────────────────────────────────────────────────────────────────────*
| PUT /tenants/{id}  (admin)                                                   |
*─────────────────────────────────────────────────────────────────────────────*/

type updateRequest struct {
	Name     string                 `json:"name"`
	Domain   string                 `json:"domain"`
	Settings *models.TenantSettings `json:"settings"`
}

// HandleUpdate applies a partial update. Slug is immutable and not accepted.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		uierrors.BadRequest(w, "invalid tenant id")
		return
	}

	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		uierrors.BadRequest(w, "invalid JSON body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	upd := tenantstore.Update{
		Name:     req.Name,
		Domain:   req.Domain,
		Settings: req.Settings,
	}
	err = h.AuditLog.TenantUpdated(ctx, r, actorID(r), id, changedFields(req), func(cx context.Context) error {
		return h.Tenants.Update(cx, id, upd)
	})
	if err != nil {
		if err == tenantstore.ErrNotFound {
			uierrors.NotFound(w, "tenant not found")
			return
		}
		uierrors.BadRequest(w, err.Error())
		return
	}

	t, err := h.Tenants.GetByID(ctx, id)
	if err != nil {
		h.ErrLog.ServerError(w, r, "failed to reload tenant", err)
		return
	}
	writeJSON(w, http.StatusOK, t)
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

func changedFields(req updateRequest) string {
	var fields []string
	if req.Name != "" {
		fields = append(fields, "name")
	}
	if req.Domain != "" {
		fields = append(fields, "domain")
	}
	if req.Settings != nil {
		fields = append(fields, "settings")
	}
	return strings.Join(fields, ",")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
