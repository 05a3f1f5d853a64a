// internal/app/features/admin/routes.go
package admin

import (
	"github.com/go-chi/chi/v5"

	"github.com/mercatohq/mercato/internal/app/system/auth"
)

// Routes mounts the admin endpoints (under /admin from bootstrap).
// Everything here is admin-only.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireSignedIn)
	r.Use(auth.RequireRole("admin"))

	r.Get("/stats", h.HandleStats)
	r.Get("/users/export", h.HandleExportUsers)

	r.Route("/audit", func(ar chi.Router) {
		ar.Get("/", h.HandleListAudit)
		ar.Get("/recent", h.HandleRecentAudit)
		ar.Get("/auth-failures", h.HandleAuthFailures)
		ar.Get("/export", h.HandleExportAudit)
	})

	return r
}
