// internal/app/features/admin/stats.go
package admin

import (
	"context"
	"net/http"

	uierrors "github.com/mercatohq/mercato/internal/app/features/errors"
	"github.com/mercatohq/mercato/internal/app/system/timeouts"
)

/*─────────────────────────────────────────────────────────────────────────────*
| GET /admin/stats                                                             |
*─────────────────────────────────────────────────────────────────────────────*/

// statsResponse aggregates the platform counters. Tenants is only present
// for the platform-wide view; a tenant-scoped request always covers exactly
// one tenant.
type statsResponse struct {
	UsersByRole    map[string]int64 `json:"users_by_role"`
	OrdersByStatus map[string]int64 `json:"orders_by_status"`
	TotalRevenue   float64          `json:"total_revenue"`
	Products       int64            `json:"products"`
	Posts          int64            `json:"posts"`
	Tenants        *int64           `json:"tenants,omitempty"`
}

// HandleStats returns platform-wide counters, or a single tenant's when
// ?tenant_id is given. Revenue excludes cancelled and refunded orders.
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	tid, ok := scopeTenant(r)
	if !ok {
		uierrors.BadRequest(w, "invalid tenant_id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	var resp statsResponse
	var err error

	if resp.UsersByRole, err = h.Users.CountByRole(ctx, tid); err != nil {
		h.ErrLog.ServerError(w, r, "failed to count users", err)
		return
	}
	if resp.OrdersByStatus, err = h.Orders.CountByStatus(ctx, tid); err != nil {
		h.ErrLog.ServerError(w, r, "failed to count orders", err)
		return
	}
	if resp.TotalRevenue, err = h.Orders.TotalRevenue(ctx, tid); err != nil {
		h.ErrLog.ServerError(w, r, "failed to compute revenue", err)
		return
	}
	if resp.Products, err = h.Products.CountByTenant(ctx, tid); err != nil {
		h.ErrLog.ServerError(w, r, "failed to count products", err)
		return
	}
	if resp.Posts, err = h.Posts.CountByTenant(ctx, tid); err != nil {
		h.ErrLog.ServerError(w, r, "failed to count posts", err)
		return
	}
	if tid == nil {
		total, err := h.Tenants.Count(ctx)
		if err != nil {
			h.ErrLog.ServerError(w, r, "failed to count tenants", err)
			return
		}
		resp.Tenants = &total
	}

	h.AuditLog.StatsExported(ctx, r, actorID(r))

	writeJSON(w, http.StatusOK, resp)
}
