// internal/app/features/products/handler.go
package products

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	uierrors "github.com/mercatohq/mercato/internal/app/features/errors"
	productstore "github.com/mercatohq/mercato/internal/app/store/products"
	"github.com/mercatohq/mercato/internal/app/system/auditlog"
	"github.com/mercatohq/mercato/internal/app/system/auth"
	"github.com/mercatohq/mercato/internal/app/system/authz"
	"github.com/mercatohq/mercato/internal/app/system/htmlsanitize"
	"github.com/mercatohq/mercato/internal/app/system/timeouts"
	"github.com/mercatohq/mercato/internal/domain/models"
)

type Handler struct {
	Products *productstore.Store
	AuditLog *auditlog.Logger
	ErrLog   *uierrors.Logger
	Log      *zap.Logger
}

func NewHandler(
	products *productstore.Store,
	audit *auditlog.Logger,
	errLog *uierrors.Logger,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		Products: products,
		AuditLog: audit,
		ErrLog:   errLog,
		Log:      logger,
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /products  (seller or admin)                                            |
*─────────────────────────────────────────────────────────────────────────────*/

type createRequest struct {
	TenantID    string   `json:"tenant_id"` // admins only; sellers use their own
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Price       float64  `json:"price"`
	Currency    string   `json:"currency"`
	Images      []string `json:"images"`
	Category    string   `json:"category"`
	Tags        []string `json:"tags"`
	Stock       int      `json:"stock"`
	Status      string   `json:"status"`
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	if err := authz.RequireProductManager(r); err != nil {
		uierrors.Authz(w, err)
		return
	}

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		uierrors.BadRequest(w, "invalid JSON body")
		return
	}

	tenantID, err := resolveTenant(r, req.TenantID)
	if err != nil {
		uierrors.BadRequest(w, err.Error())
		return
	}

	p := models.Product{
		TenantID:    tenantID,
		SellerID:    actorID(r),
		Name:        req.Name,
		Description: htmlsanitize.Sanitize(req.Description),
		Price:       req.Price,
		Currency:    req.Currency,
		Images:      req.Images,
		Category:    req.Category,
		Tags:        req.Tags,
		Stock:       req.Stock,
		Status:      req.Status,
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	created, err := h.Products.Create(ctx, p)
	if err != nil {
		uierrors.BadRequest(w, err.Error())
		return
	}

	h.Log.Info("product created",
		zap.String("product_id", created.ID.Hex()),
		zap.String("tenant_id", created.TenantID.Hex()),
		zap.String("seller_id", created.SellerID.Hex()))

	writeJSON(w, http.StatusCreated, created)
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /products  (public browse)                                               |
*─────────────────────────────────────────────────────────────────────────────*/

// HandleList returns a page of products. Anonymous browsers only see active
// listings; sellers and admins may filter by any status.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := productstore.ListFilter{
		Category: q.Get("category"),
		Status:   q.Get("status"),
	}
	if raw := q.Get("tenant_id"); raw != "" {
		tid, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			uierrors.BadRequest(w, "invalid tenant_id")
			return
		}
		filter.TenantID = &tid
	}
	if raw := q.Get("seller_id"); raw != "" {
		sid, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			uierrors.BadRequest(w, "invalid seller_id")
			return
		}
		filter.SellerID = &sid
	}
	filter.Page, _ = strconv.Atoi(q.Get("page"))
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))

	// Drafts and archived listings are seller/admin territory, and sellers
	// only see their own: without the seller scope, ?status=draft would
	// enumerate every tenant's unpublished catalog.
	switch {
	case !authz.CanManageProducts(r):
		filter.Status = "active"
	case !authz.IsAdmin(r) && filter.Status != "active":
		if filter.Status == "" {
			filter.Status = "active"
		} else {
			sid := actorID(r)
			filter.SellerID = &sid
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	list, total, err := h.Products.List(ctx, filter)
	if err != nil {
		h.ErrLog.ServerError(w, r, "failed to list products", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"products": list,
		"total":    total,
	})
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /products/{id}  (public)                                                 |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		uierrors.BadRequest(w, "invalid product id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	p, err := h.Products.GetByID(ctx, id)
	if err != nil {
		if err == productstore.ErrNotFound {
			uierrors.NotFound(w, "product not found")
			return
		}
		h.ErrLog.ServerError(w, r, "failed to load product", err)
		return
	}

	// Non-active listings are hidden from everyone but their owner and admins.
	if p.Status != "active" && !authz.CanModifyResource(r, p.SellerID) {
		uierrors.NotFound(w, "product not found")
		return
	}

	writeJSON(w, http.StatusOK, p)
}

/*─────────────────────────────────────────────────────────────────────────────*
| PUT /products/{id}  (owner or admin)                                         |
*─────────────────────────────────────────────────────────────────────────────*/

type updateRequest struct {
	Name        string   `json:"name"`
	Description *string  `json:"description"`
	Price       *float64 `json:"price"`
	Currency    string   `json:"currency"`
	Images      []string `json:"images"`
	Category    string   `json:"category"`
	Tags        []string `json:"tags"`
	Status      string   `json:"status"`
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		uierrors.BadRequest(w, "invalid product id")
		return
	}

	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		uierrors.BadRequest(w, "invalid JSON body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	p, err := h.Products.GetByID(ctx, id)
	if err != nil {
		if err == productstore.ErrNotFound {
			uierrors.NotFound(w, "product not found")
			return
		}
		h.ErrLog.ServerError(w, r, "failed to load product", err)
		return
	}
	if err := authz.RequireOwnership(r, p.SellerID); err != nil {
		uierrors.Authz(w, err)
		return
	}

	upd := productstore.Update{
		Name:     req.Name,
		Price:    req.Price,
		Currency: req.Currency,
		Images:   req.Images,
		Category: req.Category,
		Tags:     req.Tags,
		Status:   req.Status,
	}
	if req.Description != nil {
		clean := htmlsanitize.Sanitize(*req.Description)
		upd.Description = &clean
	}

	if err := h.Products.Update(ctx, id, upd); err != nil {
		if err == productstore.ErrNotFound {
			uierrors.NotFound(w, "product not found")
			return
		}
		uierrors.BadRequest(w, err.Error())
		return
	}

	updated, err := h.Products.GetByID(ctx, id)
	if err != nil {
		h.ErrLog.ServerError(w, r, "failed to reload product", err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /products/{id}/stock  (owner or admin)                                  |
*─────────────────────────────────────────────────────────────────────────────*/

type stockRequest struct {
	Delta int `json:"delta"`
}

// HandleAdjustStock applies an atomic stock delta (restock or manual draw-down).
func (h *Handler) HandleAdjustStock(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		uierrors.BadRequest(w, "invalid product id")
		return
	}

	var req stockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		uierrors.BadRequest(w, "invalid JSON body")
		return
	}
	if req.Delta == 0 {
		uierrors.BadRequest(w, "delta must be non-zero")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	p, err := h.Products.GetByID(ctx, id)
	if err != nil {
		if err == productstore.ErrNotFound {
			uierrors.NotFound(w, "product not found")
			return
		}
		h.ErrLog.ServerError(w, r, "failed to load product", err)
		return
	}
	if err := authz.RequireOwnership(r, p.SellerID); err != nil {
		uierrors.Authz(w, err)
		return
	}

	if err := h.Products.AdjustStock(ctx, id, req.Delta); err != nil {
		switch err {
		case productstore.ErrNotFound:
			uierrors.NotFound(w, "product not found")
		case productstore.ErrInsufficientStock:
			uierrors.Conflict(w, err.Error())
		default:
			h.ErrLog.ServerError(w, r, "failed to adjust stock", err)
		}
		return
	}

	updated, err := h.Products.GetByID(ctx, id)
	if err != nil {
		h.ErrLog.ServerError(w, r, "failed to reload product", err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

/*─────────────────────────────────────────────────────────────────────────────*
| DELETE /products/{id}  (owner or admin)                                      |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		uierrors.BadRequest(w, "invalid product id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	p, err := h.Products.GetByID(ctx, id)
	if err != nil {
		if err == productstore.ErrNotFound {
			uierrors.NotFound(w, "product not found")
			return
		}
		h.ErrLog.ServerError(w, r, "failed to load product", err)
		return
	}
	if err := authz.RequireOwnership(r, p.SellerID); err != nil {
		uierrors.Authz(w, err)
		return
	}

	tid := p.TenantID
	err = h.AuditLog.ProductDeleted(ctx, r, actorID(r), id, &tid, p.Name, func(cx context.Context) error {
		_, err := h.Products.Delete(cx, id)
		return err
	})
	if err != nil {
		h.ErrLog.ServerError(w, r, "failed to delete product", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
}

/*─────────────────────────────────────────────────────────────────────────────*
| Helpers                                                                      |
*─────────────────────────────────────────────────────────────────────────────*/

// resolveTenant picks the tenant a new product lands in. Sellers always create
// inside their own tenant; admins must name one explicitly.
func resolveTenant(r *http.Request, requested string) (primitive.ObjectID, error) {
	if authz.IsAdmin(r) {
		id, err := primitive.ObjectIDFromHex(requested)
		if err != nil {
			return primitive.NilObjectID, errTenantRequired
		}
		return id, nil
	}
	if tid := authz.UserTenantID(r); !tid.IsZero() {
		return tid, nil
	}
	return primitive.NilObjectID, errTenantRequired
}

var errTenantRequired = errors.New("tenant_id is required")

func actorID(r *http.Request) primitive.ObjectID {
	if u, ok := auth.CurrentUser(r); ok {
		if id, err := primitive.ObjectIDFromHex(u.ID); err == nil {
			return id
		}
	}
	return primitive.NilObjectID
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
