// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/mercatohq/mercato/internal/app/store/audit"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// nowFn is swapped in tests.
var nowFn = time.Now

// Config holds audit logging configuration. Each setting routes a group of
// categories: "all" (MongoDB + zap), "db" (MongoDB only), "log" (zap only),
// "off" (disabled).
type Config struct {
	// Auth covers the auth and security categories.
	Auth string
	// Admin covers the admin category.
	Admin string
	// Data covers entity mutations: user, tenant, product, order, forum.
	Data string
}

// Logger provides convenience methods for logging audit events.
// It logs to both MongoDB (via audit.Store) and structured logs (via zap).
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger.
func New(store *audit.Store, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{
		store:  store,
		zapLog: zapLog,
		config: config,
	}
}

// getClientIP extracts the client IP from the request.
func getClientIP(r *http.Request) string {
	// Check X-Forwarded-For header first (for reverse proxies)
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	// Check X-Real-IP header
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	// Fall back to RemoteAddr
	return r.RemoteAddr
}

// logToZap logs the event to zap with consistent structure.
func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("event", event.FullType()),
		zap.String("action", event.Action),
		zap.String("severity", event.Severity),
		zap.Bool("success", event.Success),
		zap.String("ip", event.IP),
	}

	if event.UserID != nil {
		fields = append(fields, zap.String("user_id", event.UserID.Hex()))
	}
	if event.TenantID != nil {
		fields = append(fields, zap.String("tenant_id", event.TenantID.Hex()))
	}
	if event.TargetID != "" {
		fields = append(fields, zap.String("target_id", event.TargetID))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

func (l *Logger) settingFor(category string) string {
	switch category {
	case audit.CategoryAuth, audit.CategorySecurity:
		return l.config.Auth
	case audit.CategoryAdmin:
		return l.config.Admin
	case audit.CategoryUser, audit.CategoryTenant, audit.CategoryProduct,
		audit.CategoryOrder, audit.CategoryForum:
		return l.config.Data
	default:
		return "all" // Default to logging everything for unknown categories
	}
}

// Log derives the event's action, severity, and purge deadline, then records
// it according to configuration. If the logger is nil, this is a no-op
// (allows tests to use a nil audit logger).
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	setting := l.settingFor(event.Category)
	if setting == "off" {
		return
	}

	if event.Action == "" {
		event.Action = ActionFromEventType(event.EventType)
	}
	if event.Severity == "" {
		event.Severity = SeverityFor(event.Category, event.EventType)
	}

	// Log to zap if configured
	if setting == "all" || setting == "log" {
		l.logToZap(event)
	}

	// Log to MongoDB if configured
	if setting == "all" || setting == "db" {
		if event.PurgeAfter.IsZero() {
			if event.Timestamp.IsZero() {
				event.Timestamp = nowFn()
			}
			event.PurgeAfter = PurgeAfter(event.Timestamp, event.Severity)
		}
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event", event.FullType()),
			)
		}
	}
}

// WrapMutation runs fn and, when the named operation is on the audit
// allow-list, records the event with the outcome filled in. A failed mutation
// is recorded under "<event_type>.failed" so the failure trail is queryable
// separately from successes. The error from fn is returned unchanged either
// way.
func (l *Logger) WrapMutation(ctx context.Context, operation string, event audit.Event, fn func(context.Context) error) error {
	err := fn(ctx)

	if RequiresAudit(operation) {
		event.Success = err == nil
		if err != nil {
			event.EventType += ".failed"
			event.FailureReason = err.Error()
		}
		l.Log(ctx, event)
	}
	return err
}

// --- Authentication Events ---

// LoginSuccess logs a successful sign-in.
func (l *Logger) LoginSuccess(ctx context.Context, r *http.Request, userID primitive.ObjectID, tenantID *primitive.ObjectID, method string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventLoginSuccess,
		UserID:    &userID,
		TenantID:  tenantID,
		IP:        getClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
		Details: map[string]string{
			"method": method,
		},
	})
}

// Logout logs a sign-out.
func (l *Logger) Logout(ctx context.Context, r *http.Request, userID primitive.ObjectID, tenantID *primitive.ObjectID) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventLogout,
		UserID:    &userID,
		TenantID:  tenantID,
		IP:        getClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
	})
}

// AuthFailure logs a failed authentication attempt. The attempted email goes
// in details rather than user_id since the attempt may not match any user.
func (l *Logger) AuthFailure(ctx context.Context, r *http.Request, attemptedEmail, reason string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategorySecurity,
		EventType:     audit.EventAuthFailure,
		IP:            getClientIP(r),
		UserAgent:     r.UserAgent(),
		Success:       false,
		FailureReason: reason,
		Details: map[string]string{
			"attempted_email": attemptedEmail,
		},
	})
}

// --- User Events ---

// UserCreated logs a new account, whether self-registered or admin-created.
func (l *Logger) UserCreated(ctx context.Context, r *http.Request, actorID, targetUserID primitive.ObjectID, tenantID *primitive.ObjectID, role string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryUser,
		EventType: audit.EventUserCreated,
		UserID:    &actorID,
		TenantID:  tenantID,
		TargetID:  targetUserID.Hex(),
		IP:        getClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
		Details: map[string]string{
			"role": role,
		},
	})
}

// UserUpdated runs a profile update and records its outcome. A failed update
// is audited as user.updated.failed; the error comes back unchanged.
func (l *Logger) UserUpdated(ctx context.Context, r *http.Request, actorID, targetUserID primitive.ObjectID, tenantID *primitive.ObjectID, fieldsChanged string, fn func(context.Context) error) error {
	return l.WrapMutation(ctx, "updateUser", audit.Event{
		Category:  audit.CategoryUser,
		EventType: audit.EventUserUpdated,
		UserID:    &actorID,
		TenantID:  tenantID,
		TargetID:  targetUserID.Hex(),
		IP:        getClientIP(r),
		UserAgent: r.UserAgent(),
		Details: map[string]string{
			"fields_changed": fieldsChanged,
		},
	}, fn)
}

// UserRoleChanged runs a role change and records its outcome, failed changes
// included.
func (l *Logger) UserRoleChanged(ctx context.Context, r *http.Request, actorID, targetUserID primitive.ObjectID, tenantID *primitive.ObjectID, oldRole, newRole string, fn func(context.Context) error) error {
	return l.WrapMutation(ctx, "updateUser", audit.Event{
		Category:  audit.CategoryUser,
		EventType: audit.EventUserRoleChanged,
		UserID:    &actorID,
		TenantID:  tenantID,
		TargetID:  targetUserID.Hex(),
		IP:        getClientIP(r),
		UserAgent: r.UserAgent(),
		Details: map[string]string{
			"old_role": oldRole,
			"new_role": newRole,
		},
	}, fn)
}

// UserDeleted runs an account deletion and records its outcome.
func (l *Logger) UserDeleted(ctx context.Context, r *http.Request, actorID, targetUserID primitive.ObjectID, tenantID *primitive.ObjectID, fn func(context.Context) error) error {
	return l.WrapMutation(ctx, "deleteUser", audit.Event{
		Category:  audit.CategoryUser,
		EventType: audit.EventUserDeleted,
		UserID:    &actorID,
		TenantID:  tenantID,
		TargetID:  targetUserID.Hex(),
		IP:        getClientIP(r),
		UserAgent: r.UserAgent(),
	}, fn)
}

// --- Tenant Events ---

// TenantCreated logs tenant provisioning.
func (l *Logger) TenantCreated(ctx context.Context, r *http.Request, actorID, tenantID primitive.ObjectID, slug string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryTenant,
		EventType: audit.EventTenantCreated,
		UserID:    &actorID,
		TenantID:  &tenantID,
		TargetID:  tenantID.Hex(),
		IP:        getClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
		Details: map[string]string{
			"slug": slug,
		},
	})
}

// TenantUpdated runs a tenant settings change and records its outcome.
func (l *Logger) TenantUpdated(ctx context.Context, r *http.Request, actorID, tenantID primitive.ObjectID, fieldsChanged string, fn func(context.Context) error) error {
	return l.WrapMutation(ctx, "updateTenant", audit.Event{
		Category:  audit.CategoryTenant,
		EventType: audit.EventTenantUpdated,
		UserID:    &actorID,
		TenantID:  &tenantID,
		TargetID:  tenantID.Hex(),
		IP:        getClientIP(r),
		UserAgent: r.UserAgent(),
		Details: map[string]string{
			"fields_changed": fieldsChanged,
		},
	}, fn)
}

// --- Product Events ---

// ProductDeleted runs a listing removal and records its outcome.
func (l *Logger) ProductDeleted(ctx context.Context, r *http.Request, actorID, productID primitive.ObjectID, tenantID *primitive.ObjectID, name string, fn func(context.Context) error) error {
	return l.WrapMutation(ctx, "deleteProduct", audit.Event{
		Category:  audit.CategoryProduct,
		EventType: audit.EventProductDeleted,
		UserID:    &actorID,
		TenantID:  tenantID,
		TargetID:  productID.Hex(),
		IP:        getClientIP(r),
		UserAgent: r.UserAgent(),
		Details: map[string]string{
			"name": name,
		},
	}, fn)
}

// --- Order Events ---

// OrderCreated logs a new order being placed.
func (l *Logger) OrderCreated(ctx context.Context, r *http.Request, actorID, orderID primitive.ObjectID, tenantID *primitive.ObjectID, total float64, currency string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryOrder,
		EventType: audit.EventOrderCreated,
		UserID:    &actorID,
		TenantID:  tenantID,
		TargetID:  orderID.Hex(),
		IP:        getClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
		Details: map[string]string{
			"total":    strconv.FormatFloat(total, 'f', 2, 64),
			"currency": currency,
		},
	})
}

// OrderStatusUpdated runs a status transition and records its outcome.
// Cancellations and refunds get their own event types so their longer
// retention applies.
func (l *Logger) OrderStatusUpdated(ctx context.Context, r *http.Request, actorID, orderID primitive.ObjectID, tenantID *primitive.ObjectID, oldStatus, newStatus string, fn func(context.Context) error) error {
	eventType := audit.EventOrderStatusUpdated
	switch newStatus {
	case "cancelled":
		eventType = audit.EventOrderCancelled
	case "refunded":
		eventType = audit.EventOrderRefunded
	}

	return l.WrapMutation(ctx, "updateOrderStatus", audit.Event{
		Category:  audit.CategoryOrder,
		EventType: eventType,
		UserID:    &actorID,
		TenantID:  tenantID,
		TargetID:  orderID.Hex(),
		IP:        getClientIP(r),
		UserAgent: r.UserAgent(),
		Details: map[string]string{
			"old_status": oldStatus,
			"new_status": newStatus,
		},
	}, fn)
}

// --- Forum Events ---

// PostDeleted runs removal of a forum post and records its outcome. A failed
// deletion is audited as forum.post_deleted.failed.
func (l *Logger) PostDeleted(ctx context.Context, r *http.Request, actorID, postID primitive.ObjectID, tenantID *primitive.ObjectID, title string, fn func(context.Context) error) error {
	return l.WrapMutation(ctx, "deleteForumPost", audit.Event{
		Category:  audit.CategoryForum,
		EventType: audit.EventPostDeleted,
		UserID:    &actorID,
		TenantID:  tenantID,
		TargetID:  postID.Hex(),
		IP:        getClientIP(r),
		UserAgent: r.UserAgent(),
		Details: map[string]string{
			"title": title,
		},
	}, fn)
}

// PostPinned runs an admin toggle of a post's pinned flag and records its
// outcome.
func (l *Logger) PostPinned(ctx context.Context, r *http.Request, actorID, postID primitive.ObjectID, tenantID *primitive.ObjectID, pinned bool, fn func(context.Context) error) error {
	return l.WrapMutation(ctx, "pinPost", audit.Event{
		Category:  audit.CategoryForum,
		EventType: audit.EventPostPinned,
		UserID:    &actorID,
		TenantID:  tenantID,
		TargetID:  postID.Hex(),
		IP:        getClientIP(r),
		UserAgent: r.UserAgent(),
		Details: map[string]string{
			"pinned": boolToString(pinned),
		},
	}, fn)
}

// PostLocked runs an admin toggle of a post's locked flag and records its
// outcome.
func (l *Logger) PostLocked(ctx context.Context, r *http.Request, actorID, postID primitive.ObjectID, tenantID *primitive.ObjectID, locked bool, fn func(context.Context) error) error {
	return l.WrapMutation(ctx, "lockPost", audit.Event{
		Category:  audit.CategoryForum,
		EventType: audit.EventPostLocked,
		UserID:    &actorID,
		TenantID:  tenantID,
		TargetID:  postID.Hex(),
		IP:        getClientIP(r),
		UserAgent: r.UserAgent(),
		Details: map[string]string{
			"locked": boolToString(locked),
		},
	}, fn)
}

// CommentDeleted runs removal of a forum comment and records its outcome.
func (l *Logger) CommentDeleted(ctx context.Context, r *http.Request, actorID, commentID primitive.ObjectID, tenantID *primitive.ObjectID, fn func(context.Context) error) error {
	return l.WrapMutation(ctx, "deleteComment", audit.Event{
		Category:  audit.CategoryForum,
		EventType: audit.EventCommentDeleted,
		UserID:    &actorID,
		TenantID:  tenantID,
		TargetID:  commentID.Hex(),
		IP:        getClientIP(r),
		UserAgent: r.UserAgent(),
	}, fn)
}

// --- Admin Events ---

// StatsExported logs an admin viewing platform-wide statistics.
func (l *Logger) StatsExported(ctx context.Context, r *http.Request, actorID primitive.ObjectID) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: audit.EventStatsExported,
		UserID:    &actorID,
		IP:        getClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
	})
}

// UsersExported logs an admin listing users across tenants.
func (l *Logger) UsersExported(ctx context.Context, r *http.Request, actorID primitive.ObjectID, tenantID *primitive.ObjectID) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: audit.EventUsersExported,
		UserID:    &actorID,
		TenantID:  tenantID,
		IP:        getClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
	})
}

// AuditExported logs an admin querying the audit trail itself.
func (l *Logger) AuditExported(ctx context.Context, r *http.Request, actorID primitive.ObjectID, tenantID *primitive.ObjectID) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: audit.EventAuditExported,
		UserID:    &actorID,
		TenantID:  tenantID,
		IP:        getClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
	})
}

// --- Helper functions ---

func boolToString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
