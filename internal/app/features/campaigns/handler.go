// internal/app/features/campaigns/handler.go
package campaigns

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	uierrors "github.com/mercatohq/mercato/internal/app/features/errors"
	campaignstore "github.com/mercatohq/mercato/internal/app/store/campaigns"
	"github.com/mercatohq/mercato/internal/app/system/auditlog"
	"github.com/mercatohq/mercato/internal/app/system/auth"
	"github.com/mercatohq/mercato/internal/app/system/authz"
	"github.com/mercatohq/mercato/internal/app/system/timeouts"
	"github.com/mercatohq/mercato/internal/domain/models"
)

type Handler struct {
	Campaigns *campaignstore.Store
	AuditLog  *auditlog.Logger
	ErrLog    *uierrors.Logger
	Log       *zap.Logger
}

func NewHandler(
	campaigns *campaignstore.Store,
	audit *auditlog.Logger,
	errLog *uierrors.Logger,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		Campaigns: campaigns,
		AuditLog:  audit,
		ErrLog:    errLog,
		Log:       logger,
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /campaigns  (admin)                                                     |
*─────────────────────────────────────────────────────────────────────────────*/

type createRequest struct {
	TenantID     string    `json:"tenant_id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Prize        string    `json:"prize"`
	TargetPoints int       `json:"target_points"`
	StartDate    time.Time `json:"start_date"`
	EndDate      time.Time `json:"end_date"`
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		uierrors.BadRequest(w, "invalid JSON body")
		return
	}

	tenantID, err := primitive.ObjectIDFromHex(req.TenantID)
	if err != nil {
		uierrors.BadRequest(w, "tenant_id is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	created, err := h.Campaigns.Create(ctx, models.Campaign{
		TenantID:     tenantID,
		Title:        req.Title,
		Description:  req.Description,
		Prize:        req.Prize,
		TargetPoints: req.TargetPoints,
		StartDate:    req.StartDate,
		EndDate:      req.EndDate,
		IsActive:     true,
	})
	if err != nil {
		uierrors.BadRequest(w, err.Error())
		return
	}

	h.Log.Info("campaign created",
		zap.String("campaign_id", created.ID.Hex()),
		zap.String("tenant_id", tenantID.Hex()),
		zap.String("title", created.Title))

	writeJSON(w, http.StatusCreated, created)
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /campaigns, GET /campaigns/active                                        |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requestTenant(r)
	if !ok {
		uierrors.BadRequest(w, "tenant_id is required")
		return
	}

	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	list, total, err := h.Campaigns.List(ctx, tenantID, page, limit)
	if err != nil {
		h.ErrLog.ServerError(w, r, "failed to list campaigns", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"campaigns": list,
		"total":     total,
	})
}

func (h *Handler) HandleListActive(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requestTenant(r)
	if !ok {
		uierrors.BadRequest(w, "tenant_id is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	list, err := h.Campaigns.ListActive(ctx, tenantID, time.Now().UTC())
	if err != nil {
		h.ErrLog.ServerError(w, r, "failed to list active campaigns", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"campaigns": list})
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /campaigns/{id}                                                          |
*─────────────────────────────────────────────────────────────────────────────*/

// HandleGet returns a campaign with its participant count and whether the
// viewer has joined.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		uierrors.BadRequest(w, "invalid campaign id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	c, err := h.Campaigns.GetByID(ctx, id)
	if err != nil {
		if err == campaignstore.ErrNotFound {
			uierrors.NotFound(w, "campaign not found")
			return
		}
		h.ErrLog.ServerError(w, r, "failed to load campaign", err)
		return
	}
	if !authz.CanAccessTenant(r, c.TenantID) {
		uierrors.NotFound(w, "campaign not found")
		return
	}

	participants, err := h.Campaigns.CountParticipants(ctx, id)
	if err != nil {
		h.ErrLog.ServerError(w, r, "failed to count participants", err)
		return
	}

	resp := map[string]any{
		"campaign":     c,
		"participants": participants,
	}
	if viewerID, ok := currentUserID(r); ok {
		if joined, err := h.Campaigns.IsParticipating(ctx, viewerID, id); err == nil {
			resp["participating"] = joined
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /campaigns/{id}/join                                                    |
*─────────────────────────────────────────────────────────────────────────────*/

// HandleToggleParticipation flips the viewer's membership in a campaign.
// Joining is only allowed while the campaign window is open.
func (h *Handler) HandleToggleParticipation(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		uierrors.BadRequest(w, "invalid campaign id")
		return
	}

	viewerID, ok := currentUserID(r)
	if !ok {
		uierrors.Unauthorized(w)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	c, err := h.Campaigns.GetByID(ctx, id)
	if err != nil {
		if err == campaignstore.ErrNotFound {
			uierrors.NotFound(w, "campaign not found")
			return
		}
		h.ErrLog.ServerError(w, r, "failed to load campaign", err)
		return
	}
	if !authz.CanAccessTenant(r, c.TenantID) {
		uierrors.NotFound(w, "campaign not found")
		return
	}

	now := time.Now().UTC()
	if !c.IsActive || now.Before(c.StartDate) || !now.Before(c.EndDate) {
		uierrors.Conflict(w, "campaign is not open")
		return
	}

	joined, err := h.Campaigns.ToggleParticipation(ctx, viewerID, id)
	if err != nil {
		h.ErrLog.ServerError(w, r, "failed to toggle participation", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"participating": joined})
}

/*─────────────────────────────────────────────────────────────────────────────*
| PUT /campaigns/{id}/active  (admin)                                          |
*─────────────────────────────────────────────────────────────────────────────*/

type activeRequest struct {
	Active bool `json:"active"`
}

func (h *Handler) HandleSetActive(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		uierrors.BadRequest(w, "invalid campaign id")
		return
	}

	var req activeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		uierrors.BadRequest(w, "invalid JSON body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if err := h.Campaigns.SetActive(ctx, id, req.Active); err != nil {
		if err == campaignstore.ErrNotFound {
			uierrors.NotFound(w, "campaign not found")
			return
		}
		h.ErrLog.ServerError(w, r, "failed to update campaign", err)
		return
	}

	c, err := h.Campaigns.GetByID(ctx, id)
	if err != nil {
		h.ErrLog.ServerError(w, r, "failed to reload campaign", err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

/*─────────────────────────────────────────────────────────────────────────────*
| Helpers                                                                      |
*─────────────────────────────────────────────────────────────────────────────*/

func requestTenant(r *http.Request) (primitive.ObjectID, bool) {
	if tid := authz.UserTenantID(r); !tid.IsZero() {
		return tid, true
	}
	if raw := r.URL.Query().Get("tenant_id"); raw != "" {
		if tid, err := primitive.ObjectIDFromHex(raw); err == nil {
			return tid, true
		}
	}
	return primitive.NilObjectID, false
}

func currentUserID(r *http.Request) (primitive.ObjectID, bool) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		return primitive.NilObjectID, false
	}
	id, err := primitive.ObjectIDFromHex(u.ID)
	if err != nil {
		return primitive.NilObjectID, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
