// internal/app/features/orders/routes.go
package orders

import (
	"github.com/go-chi/chi/v5"

	"github.com/mercatohq/mercato/internal/app/system/auth"
)

// Routes mounts the order endpoints (under /orders from bootstrap).
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireSignedIn)

	r.Post("/", h.HandleCreate)
	r.Get("/", h.HandleList)
	r.Get("/{id}", h.HandleGet)
	r.Put("/{id}/status", h.HandleUpdateStatus)

	return r
}
