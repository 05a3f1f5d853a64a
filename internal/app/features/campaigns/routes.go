// internal/app/features/campaigns/routes.go
package campaigns

import (
	"github.com/go-chi/chi/v5"

	"github.com/mercatohq/mercato/internal/app/system/auth"
)

// Routes mounts the campaign endpoints (under /campaigns from bootstrap).
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireSignedIn)

	r.Get("/", h.HandleList)
	r.Get("/active", h.HandleListActive)
	r.Get("/{id}", h.HandleGet)
	r.Post("/{id}/join", h.HandleToggleParticipation)

	r.Group(func(ar chi.Router) {
		ar.Use(auth.RequireRole("admin"))
		ar.Post("/", h.HandleCreate)
		ar.Put("/{id}/active", h.HandleSetActive)
	})

	return r
}
