// internal/app/features/users/routes.go
package users

import (
	"github.com/go-chi/chi/v5"

	"github.com/mercatohq/mercato/internal/app/system/auth"
)

// Routes mounts the user endpoints (under /users from bootstrap).
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireSignedIn)
		pr.Get("/me", h.HandleMe)
		pr.Put("/me", h.HandleUpdateProfile)
		pr.Get("/{id}", h.HandleGet)
	})

	r.Group(func(ar chi.Router) {
		ar.Use(auth.RequireSignedIn)
		ar.Use(auth.RequireRole("admin"))
		ar.Get("/", h.HandleList)
		ar.Post("/", h.HandleCreate)
		ar.Put("/{id}/role", h.HandleUpdateRole)
		ar.Delete("/{id}", h.HandleDelete)
	})

	return r
}
