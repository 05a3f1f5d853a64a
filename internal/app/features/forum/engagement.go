// internal/app/features/forum/engagement.go
package forum

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	uierrors "github.com/mercatohq/mercato/internal/app/features/errors"
	commentstore "github.com/mercatohq/mercato/internal/app/store/comments"
	poststore "github.com/mercatohq/mercato/internal/app/store/posts"
	reputationstore "github.com/mercatohq/mercato/internal/app/store/reputation"
	"github.com/mercatohq/mercato/internal/app/system/authz"
	"github.com/mercatohq/mercato/internal/app/system/timeouts"
)

/*─────────────────────────────────────────────────────────────────────────────*
| POST /forum/posts/{id}/like                                                  |
*─────────────────────────────────────────────────────────────────────────────*/

// HandleToggleLike flips the viewer's like on a post. The post's denormalized
// counter and the author's reputation move with it, in both directions.
func (h *Handler) HandleToggleLike(w http.ResponseWriter, r *http.Request) {
	postID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		uierrors.BadRequest(w, "invalid post id")
		return
	}

	viewerID, ok := currentUserID(r)
	if !ok {
		uierrors.Unauthorized(w)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	post, err := h.Posts.GetByID(ctx, postID)
	if err != nil {
		if err == poststore.ErrNotFound {
			uierrors.NotFound(w, "post not found")
			return
		}
		h.ErrLog.ServerError(w, r, "failed to load post", err)
		return
	}
	if !authz.CanAccessTenant(r, post.TenantID) {
		uierrors.NotFound(w, "post not found")
		return
	}

	liked, err := h.Engagement.ToggleLike(ctx, viewerID, postID)
	if err != nil {
		h.ErrLog.ServerError(w, r, "failed to toggle like", err)
		return
	}

	delta := 1
	if !liked {
		delta = -1
	}
	if err := h.Posts.AdjustLikes(ctx, postID, delta); err != nil {
		h.Log.Error("failed to adjust like counter",
			zap.Error(err), zap.String("post_id", postID.Hex()))
	}

	// The author earns (or loses) the points, not the liker. Self-likes still
	// count; the unique join doc caps them at one per user.
	if _, err := h.Reputation.AdjustLike(ctx, post.AuthorID, post.TenantID, delta); err != nil {
		h.Log.Error("failed to adjust author reputation",
			zap.Error(err), zap.String("author_id", post.AuthorID.Hex()))
	}

	likes := post.Likes + delta
	if likes < 0 {
		likes = 0
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"liked": liked,
		"likes": likes,
	})
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /forum/comments/{id}/like                                               |
*─────────────────────────────────────────────────────────────────────────────*/

// HandleToggleCommentLike flips the viewer's like on a comment. The comment's
// counter and the comment author's reputation follow, same as post likes.
func (h *Handler) HandleToggleCommentLike(w http.ResponseWriter, r *http.Request) {
	commentID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		uierrors.BadRequest(w, "invalid comment id")
		return
	}

	viewerID, ok := currentUserID(r)
	if !ok {
		uierrors.Unauthorized(w)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	comment, err := h.Comments.GetByID(ctx, commentID)
	if err != nil {
		if err == commentstore.ErrNotFound {
			uierrors.NotFound(w, "comment not found")
			return
		}
		h.ErrLog.ServerError(w, r, "failed to load comment", err)
		return
	}

	// Tenant scope lives on the post, not the comment.
	post, err := h.Posts.GetByID(ctx, comment.PostID)
	if err != nil {
		if err == poststore.ErrNotFound {
			uierrors.NotFound(w, "comment not found")
			return
		}
		h.ErrLog.ServerError(w, r, "failed to load post", err)
		return
	}
	if !authz.CanAccessTenant(r, post.TenantID) {
		uierrors.NotFound(w, "comment not found")
		return
	}

	liked, err := h.Engagement.ToggleCommentLike(ctx, viewerID, commentID, comment.PostID)
	if err != nil {
		h.ErrLog.ServerError(w, r, "failed to toggle comment like", err)
		return
	}

	delta := 1
	if !liked {
		delta = -1
	}
	if err := h.Comments.AdjustLikes(ctx, commentID, delta); err != nil {
		h.Log.Error("failed to adjust comment like counter",
			zap.Error(err), zap.String("comment_id", commentID.Hex()))
	}
	if _, err := h.Reputation.AdjustLike(ctx, comment.AuthorID, post.TenantID, delta); err != nil {
		h.Log.Error("failed to adjust author reputation",
			zap.Error(err), zap.String("author_id", comment.AuthorID.Hex()))
	}

	likes := comment.Likes + delta
	if likes < 0 {
		likes = 0
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"liked": liked,
		"likes": likes,
	})
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /forum/posts/{id}/bookmark                                              |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleToggleBookmark(w http.ResponseWriter, r *http.Request) {
	postID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		uierrors.BadRequest(w, "invalid post id")
		return
	}

	viewerID, ok := currentUserID(r)
	if !ok {
		uierrors.Unauthorized(w)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	post, err := h.Posts.GetByID(ctx, postID)
	if err != nil {
		if err == poststore.ErrNotFound {
			uierrors.NotFound(w, "post not found")
			return
		}
		h.ErrLog.ServerError(w, r, "failed to load post", err)
		return
	}
	if !authz.CanAccessTenant(r, post.TenantID) {
		uierrors.NotFound(w, "post not found")
		return
	}

	bookmarked, err := h.Engagement.ToggleBookmark(ctx, viewerID, postID)
	if err != nil {
		h.ErrLog.ServerError(w, r, "failed to toggle bookmark", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"bookmarked": bookmarked})
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /forum/bookmarks                                                         |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleListBookmarks(w http.ResponseWriter, r *http.Request) {
	viewerID, ok := currentUserID(r)
	if !ok {
		uierrors.Unauthorized(w)
		return
	}

	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	list, total, err := h.Engagement.ListBookmarks(ctx, viewerID, page, limit)
	if err != nil {
		h.ErrLog.ServerError(w, r, "failed to list bookmarks", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"bookmarks": list,
		"total":     total,
	})
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /forum/leaderboard                                                       |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleLeaderboard(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requestTenant(r)
	if !ok {
		uierrors.BadRequest(w, "tenant_id is required")
		return
	}

	limit := int64(10)
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	board, err := h.Reputation.Leaderboard(ctx, tenantID, limit)
	if err != nil {
		h.ErrLog.ServerError(w, r, "failed to load leaderboard", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"leaderboard": board})
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /forum/reputation/me                                                     |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleMyReputation(w http.ResponseWriter, r *http.Request) {
	viewerID, ok := currentUserID(r)
	if !ok {
		uierrors.Unauthorized(w)
		return
	}
	tenantID := authz.UserTenantID(r)
	if tenantID.IsZero() {
		uierrors.BadRequest(w, "reputation requires a tenant-scoped account")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	rep, err := h.Reputation.Get(ctx, viewerID, tenantID)
	if err != nil {
		if err == reputationstore.ErrNotFound {
			// No activity yet reads as zero, not as an error.
			writeJSON(w, http.StatusOK, map[string]any{
				"points": 0,
				"level":  "",
			})
			return
		}
		h.ErrLog.ServerError(w, r, "failed to load reputation", err)
		return
	}

	writeJSON(w, http.StatusOK, rep)
}
