// internal/app/features/forum/routes.go
package forum

import (
	"github.com/go-chi/chi/v5"

	"github.com/mercatohq/mercato/internal/app/system/auth"
)

// Routes mounts the forum endpoints (under /forum from bootstrap).
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireSignedIn)

	r.Get("/categories", h.HandleListCategories)
	r.Get("/stats", h.HandleStats)

	r.Route("/posts", func(pr chi.Router) {
		pr.Get("/", h.HandleListPosts)
		pr.Post("/", h.HandleCreatePost)
		pr.Get("/top", h.HandleTopPosts)
		pr.Get("/{id}", h.HandleGetPost)
		pr.Put("/{id}", h.HandleUpdatePost)
		pr.Delete("/{id}", h.HandleDeletePost)
		pr.Post("/{id}/pin", h.HandlePinPost)
		pr.Post("/{id}/lock", h.HandleLockPost)
		pr.Post("/{id}/like", h.HandleToggleLike)
		pr.Post("/{id}/bookmark", h.HandleToggleBookmark)
		pr.Post("/{id}/comments", h.HandleCreateComment)
		pr.Get("/{id}/comments", h.HandleListComments)
	})

	r.Put("/comments/{id}", h.HandleUpdateComment)
	r.Delete("/comments/{id}", h.HandleDeleteComment)
	r.Post("/comments/{id}/like", h.HandleToggleCommentLike)
	r.Get("/bookmarks", h.HandleListBookmarks)
	r.Get("/leaderboard", h.HandleLeaderboard)
	r.Get("/reputation/me", h.HandleMyReputation)

	return r
}
