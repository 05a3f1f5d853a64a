// internal/app/features/admin/export.go
package admin

import (
	"context"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	uierrors "github.com/mercatohq/mercato/internal/app/features/errors"
	"github.com/mercatohq/mercato/internal/app/system/csvutil"
	"github.com/mercatohq/mercato/internal/app/system/timeouts"
)

// exportCap bounds both CSV exports. Anything larger belongs in a backup
// job, not an HTTP response.
const exportCap = 10000

/*─────────────────────────────────────────────────────────────────────────────*
| GET /admin/users/export                                                      |
*─────────────────────────────────────────────────────────────────────────────*/

// HandleExportUsers streams all users (optionally one tenant's) as CSV.
// Password hashes never leave the store.
func (h *Handler) HandleExportUsers(w http.ResponseWriter, r *http.Request) {
	tid, ok := scopeTenant(r)
	if !ok {
		uierrors.BadRequest(w, "invalid tenant_id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	users, err := h.Users.ListAll(ctx, tid)
	if err != nil {
		h.ErrLog.ServerError(w, r, "failed to load users for export", err)
		return
	}

	header := []string{"id", "name", "email", "role", "tenant_id", "email_verified", "created_at"}
	rows := make([][]string, 0, len(users))
	for _, u := range users {
		tenant := ""
		if u.TenantID != nil {
			tenant = u.TenantID.Hex()
		}
		rows = append(rows, []string{
			u.ID.Hex(),
			u.Name,
			u.Email,
			u.Role,
			tenant,
			strconv.FormatBool(u.EmailVerified),
			u.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
		})
	}

	h.AuditLog.UsersExported(ctx, r, actorID(r), tid)

	if err := csvutil.ServeCSV(w, "users", header, rows); err != nil {
		h.Log.Error("user export write failed", zap.Error(err))
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /admin/audit/export                                                      |
*─────────────────────────────────────────────────────────────────────────────*/

// HandleExportAudit streams the filtered audit trail as CSV. The same
// query parameters as the listing apply, minus pagination.
func (h *Handler) HandleExportAudit(w http.ResponseWriter, r *http.Request) {
	filter, err := auditFilter(r)
	if err != nil {
		uierrors.BadRequest(w, err.Error())
		return
	}
	filter.Limit = exportCap
	filter.Offset = 0

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	events, err := h.Audit.Query(ctx, filter)
	if err != nil {
		h.ErrLog.ServerError(w, r, "failed to query audit events for export", err)
		return
	}

	header := []string{"timestamp", "category", "event_type", "action", "severity", "actor_id", "tenant_id", "target_id", "ip", "success", "failure_reason"}
	rows := make([][]string, 0, len(events))
	for _, e := range events {
		v := toView(e)
		rows = append(rows, []string{
			v.Timestamp.UTC().Format("2006-01-02 15:04:05"),
			v.Category,
			v.EventType,
			v.Action,
			v.Severity,
			v.UserID,
			v.TenantID,
			v.TargetID,
			v.IP,
			strconv.FormatBool(v.Success),
			v.FailureReason,
		})
	}

	h.AuditLog.AuditExported(ctx, r, actorID(r), filter.TenantID)

	if err := csvutil.ServeCSV(w, "audit", header, rows); err != nil {
		h.Log.Error("audit export write failed", zap.Error(err))
	}
}
