// internal/app/features/products/routes.go
package products

import (
	"github.com/go-chi/chi/v5"

	"github.com/mercatohq/mercato/internal/app/system/auth"
)

// Routes mounts the product endpoints (under /products from bootstrap).
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	// Public browse and detail.
	r.Get("/", h.HandleList)
	r.Get("/{id}", h.HandleGet)

	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireSignedIn)
		pr.Use(auth.RequireRole("seller", "admin"))
		pr.Post("/", h.HandleCreate)
		pr.Put("/{id}", h.HandleUpdate)
		pr.Post("/{id}/stock", h.HandleAdjustStock)
		pr.Delete("/{id}", h.HandleDelete)
	})

	return r
}
