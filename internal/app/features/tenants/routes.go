// internal/app/features/tenants/routes.go
package tenants

import (
	"github.com/go-chi/chi/v5"

	"github.com/mercatohq/mercato/internal/app/system/auth"
)

// Routes mounts the tenant endpoints (under /tenants from bootstrap).
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	// Public: storefronts resolve their tenant before sign-in.
	r.Get("/slug/{slug}", h.HandleGetBySlug)
	r.Get("/resolve", h.HandleResolveDomain)

	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireSignedIn)
		pr.Get("/{id}", h.HandleGet)
	})

	r.Group(func(ar chi.Router) {
		ar.Use(auth.RequireSignedIn)
		ar.Use(auth.RequireRole("admin"))
		ar.Get("/", h.HandleList)
		ar.Post("/", h.HandleCreate)
		ar.Put("/{id}", h.HandleUpdate)
	})

	return r
}
