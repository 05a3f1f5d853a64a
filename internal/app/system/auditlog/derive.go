// internal/app/system/auditlog/derive.go
package auditlog

import (
	"strings"
	"time"

	"github.com/mercatohq/mercato/internal/app/store/audit"
)

// Retention windows by severity, in days.
const (
	RetentionCriticalDays = 2555 // ~7 years
	RetentionHighDays     = 1095 // 3 years
	RetentionMediumDays   = 365
	RetentionLowDays      = 90
)

// ActionFromEventType derives the coarse action verb from an event type.
// Checks are ordered: the first matching substring wins.
func ActionFromEventType(eventType string) string {
	t := strings.ToLower(eventType)
	switch {
	case strings.Contains(t, "created"):
		return "create"
	case strings.Contains(t, "updated"), strings.Contains(t, "changed"):
		return "update"
	case strings.Contains(t, "deleted"):
		return "delete"
	case strings.Contains(t, "login"):
		return "login"
	case strings.Contains(t, "logout"):
		return "logout"
	case strings.Contains(t, "fail"):
		return "failed"
	case strings.Contains(t, "export"):
		return "export"
	default:
		return "read"
	}
}

// SeverityFor classifies an event. Admin and security events, and any
// deletion, are critical; role changes, updates, and cancellations are high;
// creations are medium; everything else is low.
func SeverityFor(category, eventType string) string {
	t := strings.ToLower(eventType)
	switch {
	case category == audit.CategoryAdmin,
		category == audit.CategorySecurity,
		strings.Contains(t, "deleted"):
		return audit.SeverityCritical
	case strings.Contains(t, "changed"),
		strings.Contains(t, "updated"),
		strings.Contains(t, "cancelled"):
		return audit.SeverityHigh
	case strings.Contains(t, "created"):
		return audit.SeverityMedium
	default:
		return audit.SeverityLow
	}
}

// RetentionDays returns how long events of the given severity are kept.
func RetentionDays(severity string) int {
	switch severity {
	case audit.SeverityCritical:
		return RetentionCriticalDays
	case audit.SeverityHigh:
		return RetentionHighDays
	case audit.SeverityMedium:
		return RetentionMediumDays
	default:
		return RetentionLowDays
	}
}

// PurgeAfter computes the deletion deadline for an event.
func PurgeAfter(timestamp time.Time, severity string) time.Time {
	return timestamp.AddDate(0, 0, RetentionDays(severity))
}

// auditedOperations is the allow-list of mutation names that must produce an
// audit event. Operations not listed here are logged only when a handler
// calls the Logger explicitly.
var auditedOperations = map[string]bool{
	"createUser":        true,
	"updateUser":        true,
	"deleteUser":        true,
	"createTenant":      true,
	"updateTenant":      true,
	"deleteProduct":     true,
	"updateOrderStatus": true,
	"deleteForumPost":   true,
	"pinPost":           true,
	"lockPost":          true,
	"deleteComment":     true,
	"getStats":          true,
	"getUsers":          true,
}

// RequiresAudit reports whether the named operation must be audited.
func RequiresAudit(operation string) bool {
	return auditedOperations[operation]
}
