// internal/app/system/metrics/metrics.go
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mercato_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mercato_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// Authentication metrics
	AuthAttempts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mercato_auth_attempts_total",
			Help: "Total number of sign-in attempts",
		},
	)

	AuthSuccesses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mercato_auth_success_total",
			Help: "Total number of successful sign-ins",
		},
	)

	AuthFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mercato_auth_failures_total",
			Help: "Total number of failed sign-ins",
		},
	)

	// Order metrics
	OrdersCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mercato_orders_created_total",
			Help: "Total number of orders placed",
		},
	)

	OrderTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mercato_order_transitions_total",
			Help: "Total number of order status transitions",
		},
		[]string{"from", "to"},
	)

	// Audit metrics
	AuditEventsWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mercato_audit_events_total",
			Help: "Total number of audit events recorded",
		},
		[]string{"category", "severity"},
	)
)

// Middleware records request counts and latencies per method/path/status.
// Uses the chi route pattern rather than the raw URL so that /products/123
// and /products/456 share a series.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}
		status := strconv.Itoa(ww.Status())

		httpRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path, status).Observe(time.Since(start).Seconds())
	})
}

// Handler exposes the default registry for scraping.
func Handler() http.Handler {
	return promhttp.Handler()
}
