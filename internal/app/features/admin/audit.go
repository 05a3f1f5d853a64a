// internal/app/features/admin/audit.go
package admin

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	uierrors "github.com/mercatohq/mercato/internal/app/features/errors"
	"github.com/mercatohq/mercato/internal/app/store/audit"
	"github.com/mercatohq/mercato/internal/app/system/timeouts"
)

const auditPageSize = 50

// eventView is the JSON shape of one audit event. The store's Event is a
// bson document; ObjectIDs are flattened to hex here.
type eventView struct {
	ID            string            `json:"id"`
	Timestamp     time.Time         `json:"timestamp"`
	TenantID      string            `json:"tenant_id,omitempty"`
	Category      string            `json:"category"`
	EventType     string            `json:"event_type"`
	Action        string            `json:"action"`
	Severity      string            `json:"severity"`
	UserID        string            `json:"user_id,omitempty"`
	TargetID      string            `json:"target_id,omitempty"`
	IP            string            `json:"ip,omitempty"`
	Success       bool              `json:"success"`
	FailureReason string            `json:"failure_reason,omitempty"`
	Details       map[string]string `json:"details,omitempty"`
}

func toView(e audit.Event) eventView {
	v := eventView{
		ID:            e.ID.Hex(),
		Timestamp:     e.Timestamp,
		Category:      e.Category,
		EventType:     e.EventType,
		Action:        e.Action,
		Severity:      e.Severity,
		TargetID:      e.TargetID,
		IP:            e.IP,
		Success:       e.Success,
		FailureReason: e.FailureReason,
		Details:       e.Details,
	}
	if e.TenantID != nil {
		v.TenantID = e.TenantID.Hex()
	}
	if e.UserID != nil {
		v.UserID = e.UserID.Hex()
	}
	return v
}

func toViews(events []audit.Event) []eventView {
	views := make([]eventView, 0, len(events))
	for _, e := range events {
		views = append(views, toView(e))
	}
	return views
}

// auditFilter builds an audit.QueryFilter from the request's query string.
// Dates are whole days: end_date extends to the end of that day.
func auditFilter(r *http.Request) (audit.QueryFilter, error) {
	q := r.URL.Query()
	filter := audit.QueryFilter{
		Category:  strings.TrimSpace(q.Get("category")),
		EventType: strings.TrimSpace(q.Get("event_type")),
	}

	if raw := q.Get("tenant_id"); raw != "" {
		tid, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			return filter, errBadFilter("invalid tenant_id")
		}
		filter.TenantID = &tid
	}
	if raw := q.Get("user_id"); raw != "" {
		uid, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			return filter, errBadFilter("invalid user_id")
		}
		filter.UserID = &uid
	}
	if raw := q.Get("start_date"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return filter, errBadFilter("start_date must be YYYY-MM-DD")
		}
		filter.StartTime = &t
	}
	if raw := q.Get("end_date"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return filter, errBadFilter("end_date must be YYYY-MM-DD")
		}
		endOfDay := t.Add(24*time.Hour - time.Second)
		filter.EndTime = &endOfDay
	}

	page := 1
	if p, err := strconv.Atoi(q.Get("page")); err == nil && p > 0 {
		page = p
	}
	filter.Limit = auditPageSize
	filter.Offset = int64((page - 1) * auditPageSize)

	return filter, nil
}

type errBadFilter string

func (e errBadFilter) Error() string { return string(e) }

/*─────────────────────────────────────────────────────────────────────────────*
| GET /admin/audit                                                             |
*─────────────────────────────────────────────────────────────────────────────*/

// HandleListAudit returns a filtered page of audit events, newest first.
func (h *Handler) HandleListAudit(w http.ResponseWriter, r *http.Request) {
	filter, err := auditFilter(r)
	if err != nil {
		uierrors.BadRequest(w, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	events, err := h.Audit.Query(ctx, filter)
	if err != nil {
		h.ErrLog.ServerError(w, r, "failed to query audit events", err)
		return
	}
	total, err := h.Audit.CountByFilter(ctx, filter)
	if err != nil {
		h.ErrLog.ServerError(w, r, "failed to count audit events", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"events": toViews(events),
		"total":  total,
	})
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /admin/audit/recent, GET /admin/audit/auth-failures                      |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleRecentAudit(w http.ResponseWriter, r *http.Request) {
	limit := int64(20)
	if n, err := strconv.ParseInt(r.URL.Query().Get("limit"), 10, 64); err == nil && n > 0 && n <= 100 {
		limit = n
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	events, err := h.Audit.GetRecent(ctx, limit)
	if err != nil {
		h.ErrLog.ServerError(w, r, "failed to load recent audit events", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": toViews(events)})
}

// HandleAuthFailures surfaces recent failed sign-in attempts, the first
// place to look when investigating credential stuffing.
func (h *Handler) HandleAuthFailures(w http.ResponseWriter, r *http.Request) {
	hours := 24
	if n, err := strconv.Atoi(r.URL.Query().Get("hours")); err == nil && n > 0 && n <= 24*30 {
		hours = n
	}
	limit := int64(100)
	if n, err := strconv.ParseInt(r.URL.Query().Get("limit"), 10, 64); err == nil && n > 0 && n <= 500 {
		limit = n
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	since := time.Now().UTC().Add(-time.Duration(hours) * time.Hour)
	events, err := h.Audit.GetAuthFailures(ctx, since, limit)
	if err != nil {
		h.ErrLog.ServerError(w, r, "failed to load auth failures", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"events": toViews(events),
		"since":  since,
	})
}
