// internal/app/features/orders/handler.go
package orders

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
	orderstore "github.com/mercatohq/mercato/internal/app/store/orders"
	productstore "github.com/mercatohq/mercato/internal/app/store/products"
	"github.com/mercatohq/mercato/internal/app/system/auditlog"
	"github.com/mercatohq/mercato/internal/app/system/auth"
	"github.com/mercatohq/mercato/internal/app/system/authz"
	"github.com/mercatohq/mercato/internal/app/system/metrics"
	"github.com/mercatohq/mercato/internal/app/system/timeouts"
	"github.com/mercatohq/mercato/internal/domain/models"
)

type Handler struct {
	Orders   *orderstore.Store
	Products *productstore.Store
	AuditLog *auditlog.Logger
	ErrLog   *uierrors.Logger
	Log      *zap.Logger
}

func NewHandler(
	orders *orderstore.Store,
	products *productstore.Store,
	audit *auditlog.Logger,
	errLog *uierrors.Logger,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		Orders:   orders,
		Products: products,
		AuditLog: audit,
		ErrLog:   errLog,
		Log:      logger,
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /orders  (customer)                                                     |
*─────────────────────────────────────────────────────────────────────────────*/

type createItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type createRequest struct {
	Items []createItem `json:"items"`
}

// HandleCreate places an order. Prices and names are snapshotted from the
// product documents; the client only sends product IDs and quantities. Stock
// is reserved atomically per item, with already-reserved items released if a
// later item runs short.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	cu, ok := auth.CurrentUser(r)
	if !ok {
		uierrors.Unauthorized(w)
		return
	}
	customerID, err := primitive.ObjectIDFromHex(cu.ID)
	if err != nil {
		uierrors.Unauthorized(w)
		return
	}
	tenantID := authz.UserTenantID(r)
	if tenantID.IsZero() {
		uierrors.BadRequest(w, "orders require a tenant-scoped account")
		return
	}

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		uierrors.BadRequest(w, "invalid JSON body")
		return
	}
	if len(req.Items) == 0 {
		uierrors.BadRequest(w, "order must contain at least one item")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	items, currency, err := h.reserveItems(ctx, tenantID, req.Items)
	if err != nil {
		if errors.Is(err, productstore.ErrInsufficientStock) {
			uierrors.Conflict(w, err.Error())
			return
		}
		uierrors.BadRequest(w, err.Error())
		return
	}

	order, err := h.Orders.Create(ctx, models.Order{
		TenantID:   tenantID,
		CustomerID: customerID,
		Items:      items,
		Currency:   currency,
	})
	if err != nil {
		// The stock is already reserved; hand it back before failing.
		h.releaseItems(ctx, items)
		uierrors.BadRequest(w, err.Error())
		return
	}

	metrics.OrdersCreated.Inc()
	h.AuditLog.OrderCreated(ctx, r, customerID, order.ID, &tenantID, order.Total, order.Currency)

	h.Log.Info("order created",
		zap.String("order_id", order.ID.Hex()),
		zap.String("customer_id", customerID.Hex()),
		zap.Float64("total", order.Total))

	writeJSON(w, http.StatusCreated, order)
}

// reserveItems validates each line against its product and decrements stock.
// On failure, any stock already taken is released.
func (h *Handler) reserveItems(ctx context.Context, tenantID primitive.ObjectID, reqItems []createItem) ([]models.OrderItem, string, error) {
	var (
		items    []models.OrderItem
		currency string
	)
	for _, it := range reqItems {
		pid, err := primitive.ObjectIDFromHex(it.ProductID)
		if err != nil {
			h.releaseItems(ctx, items)
			return nil, "", errors.New("invalid product_id")
		}
		if it.Quantity <= 0 {
			h.releaseItems(ctx, items)
			return nil, "", errors.New("quantity must be positive")
		}

		p, err := h.Products.GetByID(ctx, pid)
		if err != nil {
			h.releaseItems(ctx, items)
			if err == productstore.ErrNotFound {
				return nil, "", errors.New("product not found: " + it.ProductID)
			}
			return nil, "", err
		}
		if p.TenantID != tenantID {
			h.releaseItems(ctx, items)
			return nil, "", errors.New("product belongs to another tenant")
		}
		if p.Status != "active" {
			h.releaseItems(ctx, items)
			return nil, "", errors.New("product is not available: " + p.Name)
		}
		if currency == "" {
			currency = p.Currency
		} else if p.Currency != currency {
			h.releaseItems(ctx, items)
			return nil, "", errors.New("all items in an order must share a currency")
		}

		if err := h.Products.AdjustStock(ctx, pid, -it.Quantity); err != nil {
			h.releaseItems(ctx, items)
			return nil, "", err
		}

		items = append(items, models.OrderItem{
			ProductID: pid,
			Name:      p.Name,
			Price:     p.Price,
			Quantity:  it.Quantity,
		})
	}
	return items, currency, nil
}

// releaseItems returns reserved stock after a failed or unwound order.
func (h *Handler) releaseItems(ctx context.Context, items []models.OrderItem) {
	for _, it := range items {
		if err := h.Products.AdjustStock(ctx, it.ProductID, it.Quantity); err != nil {
			h.Log.Error("failed to release reserved stock",
				zap.Error(err),
				zap.String("product_id", it.ProductID.Hex()),
				zap.Int("quantity", it.Quantity))
		}
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /orders                                                                  |
*─────────────────────────────────────────────────────────────────────────────*/

// HandleList returns a page of orders scoped by role: customers see their own,
// sellers see their tenant's, admins see everything (optionally filtered).
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	cu, ok := auth.CurrentUser(r)
	if !ok {
		uierrors.Unauthorized(w)
		return
	}

	q := r.URL.Query()
	filter := orderstore.ListFilter{Status: q.Get("status")}
	filter.Page, _ = strconv.Atoi(q.Get("page"))
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))

	switch {
	case authz.IsAdmin(r):
		if raw := q.Get("tenant_id"); raw != "" {
			tid, err := primitive.ObjectIDFromHex(raw)
			if err != nil {
				uierrors.BadRequest(w, "invalid tenant_id")
				return
			}
			filter.TenantID = &tid
		}
	case authz.IsSeller(r):
		tid := authz.UserTenantID(r)
		filter.TenantID = &tid
	default:
		id, err := primitive.ObjectIDFromHex(cu.ID)
		if err != nil {
			uierrors.Unauthorized(w)
			return
		}
		filter.CustomerID = &id
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	list, total, err := h.Orders.List(ctx, filter)
	if err != nil {
		h.ErrLog.ServerError(w, r, "failed to list orders", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"orders": list,
		"total":  total,
	})
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /orders/{id}                                                             |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		uierrors.BadRequest(w, "invalid order id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	o, err := h.Orders.GetByID(ctx, id)
	if err != nil {
		if err == orderstore.ErrNotFound {
			uierrors.NotFound(w, "order not found")
			return
		}
		h.ErrLog.ServerError(w, r, "failed to load order", err)
		return
	}

	if !h.canViewOrder(r, o) {
		uierrors.NotFound(w, "order not found")
		return
	}

	writeJSON(w, http.StatusOK, o)
}

// canViewOrder allows the purchasing customer, sellers in the order's tenant,
// and admins.
func (h *Handler) canViewOrder(r *http.Request, o *models.Order) bool {
	if authz.IsAdmin(r) {
		return true
	}
	if authz.IsSeller(r) {
		return authz.UserTenantID(r) == o.TenantID
	}
	return authz.CanModifyResource(r, o.CustomerID)
}

/*─────────────────────────────────────────────────────────────────────────────*
| PUT /orders/{id}/status                                                      |
*─────────────────────────────────────────────────────────────────────────────*/

type statusRequest struct {
	Status string `json:"status"`
}

// HandleUpdateStatus moves an order through its lifecycle. Sellers and admins
// drive fulfillment; customers may only cancel their own pending orders.
// Cancelling or refunding restocks the order's items.
func (h *Handler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		uierrors.BadRequest(w, "invalid order id")
		return
	}

	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		uierrors.BadRequest(w, "invalid JSON body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	o, err := h.Orders.GetByID(ctx, id)
	if err != nil {
		if err == orderstore.ErrNotFound {
			uierrors.NotFound(w, "order not found")
			return
		}
		h.ErrLog.ServerError(w, r, "failed to load order", err)
		return
	}

	if err := h.transitionAllowed(r, o, req.Status); err != nil {
		uierrors.Authz(w, err)
		return
	}

	tid := o.TenantID
	var from string
	err = h.AuditLog.OrderStatusUpdated(ctx, r, actorID(r), id, &tid, o.Status, req.Status, func(cx context.Context) error {
		var err error
		from, err = h.Orders.UpdateStatus(cx, id, req.Status)
		return err
	})
	if err != nil {
		if errors.Is(err, orderstore.ErrInvalidTransition) {
			uierrors.Conflict(w, err.Error())
			return
		}
		if err == orderstore.ErrNotFound {
			uierrors.NotFound(w, "order not found")
			return
		}
		h.ErrLog.ServerError(w, r, "failed to update order status", err)
		return
	}

	// Cancelled and refunded stock goes back on the shelf.
	if req.Status == models.OrderCancelled || req.Status == models.OrderRefunded {
		h.releaseItems(ctx, o.Items)
	}

	metrics.OrderTransitions.WithLabelValues(from, req.Status).Inc()

	updated, err := h.Orders.GetByID(ctx, id)
	if err != nil {
		h.ErrLog.ServerError(w, r, "failed to reload order", err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// transitionAllowed gates status changes by role. The FSM itself is enforced
// by the store; this only answers "may this user drive this order at all".
func (h *Handler) transitionAllowed(r *http.Request, o *models.Order, to string) error {
	role, _, _, ok := authz.UserCtx(r)
	if !ok {
		return &authz.AuthError{Reason: "order status change"}
	}
	switch role {
	case "admin":
		return nil
	case "seller":
		if authz.UserTenantID(r) == o.TenantID {
			return nil
		}
		return &authz.AuthorizationError{Role: role, Reason: "order belongs to another tenant"}
	}
	// Customers may only cancel their own orders, and only before fulfillment
	// starts.
	if to == models.OrderCancelled && o.Status == models.OrderPending &&
		authz.CanModifyResource(r, o.CustomerID) {
		return nil
	}
	return &authz.AuthorizationError{Role: role, Reason: "customers may only cancel their own pending orders"}
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

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
