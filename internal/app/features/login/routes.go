// internal/app/features/login/routes.go
package login

import "github.com/go-chi/chi/v5"

// Routes mounts the auth endpoints (typically under /auth from bootstrap).
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/signup", h.HandleSignup)
	r.Post("/signin", h.HandleSignin)
	r.Post("/signout", h.HandleSignout)
	r.Get("/session", h.ServeSession)
	return r
}
