// internal/app/features/admin/handler.go
package admin

import (
	"encoding/json"
	"net/http"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	uierrors "github.com/mercatohq/mercato/internal/app/features/errors"
	"github.com/mercatohq/mercato/internal/app/store/audit"
	orderstore "github.com/mercatohq/mercato/internal/app/store/orders"
	poststore "github.com/mercatohq/mercato/internal/app/store/posts"
	productstore "github.com/mercatohq/mercato/internal/app/store/products"
	tenantstore "github.com/mercatohq/mercato/internal/app/store/tenants"
	userstore "github.com/mercatohq/mercato/internal/app/store/users"
	"github.com/mercatohq/mercato/internal/app/system/auditlog"
	"github.com/mercatohq/mercato/internal/app/system/auth"
)

// Handler serves the admin-only surface: platform statistics, the audit
// event browser, and CSV exports. Every route is gated on the admin role
// in Routes; handlers assume an admin actor.
type Handler struct {
	Users    *userstore.Store
	Tenants  *tenantstore.Store
	Products *productstore.Store
	Orders   *orderstore.Store
	Posts    *poststore.Store
	Audit    *audit.Store
	AuditLog *auditlog.Logger
	ErrLog   *uierrors.Logger
	Log      *zap.Logger
}

func NewHandler(
	users *userstore.Store,
	tenants *tenantstore.Store,
	products *productstore.Store,
	orders *orderstore.Store,
	posts *poststore.Store,
	auditStore *audit.Store,
	auditLogger *auditlog.Logger,
	errLog *uierrors.Logger,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		Users:    users,
		Tenants:  tenants,
		Products: products,
		Orders:   orders,
		Posts:    posts,
		Audit:    auditStore,
		AuditLog: auditLogger,
		ErrLog:   errLog,
		Log:      logger,
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| Helpers                                                                      |
*─────────────────────────────────────────────────────────────────────────────*/

// scopeTenant reads the optional ?tenant_id query parameter. A nil result
// with ok=true means "platform-wide".
func scopeTenant(r *http.Request) (*primitive.ObjectID, bool) {
	raw := r.URL.Query().Get("tenant_id")
	if raw == "" {
		return nil, true
	}
	tid, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return nil, false
	}
	return &tid, true
}

func actorID(r *http.Request) primitive.ObjectID {
	u, ok := auth.CurrentUser(r)
	if !ok {
		return primitive.NilObjectID
	}
	id, err := primitive.ObjectIDFromHex(u.ID)
	if err != nil {
		return primitive.NilObjectID
	}
	return id
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
