// internal/app/features/forum/comments.go
package forum

import (
	"context"
	"encoding/json"
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
	"github.com/mercatohq/mercato/internal/domain/models"
)

/*─────────────────────────────────────────────────────────────────────────────*
| POST /forum/posts/{id}/comments                                              |
*─────────────────────────────────────────────────────────────────────────────*/

type commentRequest struct {
	Content  string `json:"content"`
	ParentID string `json:"parent_id"`
}

// HandleCreateComment adds a comment to an unlocked post and credits the
// author's reputation.
func (h *Handler) HandleCreateComment(w http.ResponseWriter, r *http.Request) {
	postID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		uierrors.BadRequest(w, "invalid post id")
		return
	}

	authorID, tenantID, ok := tenantActor(r)
	if !ok {
		uierrors.BadRequest(w, "commenting requires a tenant-scoped account")
		return
	}

	var req commentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		uierrors.BadRequest(w, "invalid JSON body")
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
	if post.Locked {
		uierrors.Conflict(w, poststore.ErrLocked.Error())
		return
	}

	c := models.ForumComment{
		PostID:   postID,
		AuthorID: authorID,
		Content:  req.Content,
	}
	if req.ParentID != "" {
		parentID, err := primitive.ObjectIDFromHex(req.ParentID)
		if err != nil {
			uierrors.BadRequest(w, "invalid parent_id")
			return
		}
		parent, err := h.Comments.GetByID(ctx, parentID)
		if err != nil || parent.PostID != postID {
			uierrors.BadRequest(w, "parent comment does not belong to this post")
			return
		}
		c.ParentID = &parentID
	}

	created, err := h.Comments.Create(ctx, c)
	if err != nil {
		uierrors.BadRequest(w, err.Error())
		return
	}

	h.awardActivity(ctx, authorID, tenantID, reputationstore.PointsComment, func(cx context.Context) (models.UserReputation, error) {
		return h.Reputation.AwardComment(cx, authorID, tenantID)
	})

	writeJSON(w, http.StatusCreated, created)
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /forum/posts/{id}/comments                                               |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleListComments(w http.ResponseWriter, r *http.Request) {
	postID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		uierrors.BadRequest(w, "invalid post id")
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

	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))

	list, total, err := h.Comments.ListByPost(ctx, postID, page, limit)
	if err != nil {
		h.ErrLog.ServerError(w, r, "failed to list comments", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"comments": list,
		"total":    total,
	})
}

/*─────────────────────────────────────────────────────────────────────────────*
| PUT /forum/comments/{id}                                                     |
*─────────────────────────────────────────────────────────────────────────────*/

// HandleUpdateComment edits a comment's content. Author or admin only; edits
// on a locked post are rejected like new comments.
func (h *Handler) HandleUpdateComment(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		uierrors.BadRequest(w, "invalid comment id")
		return
	}

	var req commentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		uierrors.BadRequest(w, "invalid JSON body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	c, err := h.Comments.GetByID(ctx, id)
	if err != nil {
		if err == commentstore.ErrNotFound {
			uierrors.NotFound(w, "comment not found")
			return
		}
		h.ErrLog.ServerError(w, r, "failed to load comment", err)
		return
	}
	if err := authz.RequireOwnership(r, c.AuthorID); err != nil {
		uierrors.Authz(w, err)
		return
	}

	post, err := h.Posts.GetByID(ctx, c.PostID)
	if err != nil {
		if err == poststore.ErrNotFound {
			uierrors.NotFound(w, "comment not found")
			return
		}
		h.ErrLog.ServerError(w, r, "failed to load post", err)
		return
	}
	if post.Locked {
		uierrors.Conflict(w, poststore.ErrLocked.Error())
		return
	}

	if err := h.Comments.Update(ctx, id, req.Content); err != nil {
		if err == commentstore.ErrNotFound {
			uierrors.NotFound(w, "comment not found")
			return
		}
		uierrors.BadRequest(w, err.Error())
		return
	}

	updated, err := h.Comments.GetByID(ctx, id)
	if err != nil {
		h.ErrLog.ServerError(w, r, "failed to reload comment", err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

/*─────────────────────────────────────────────────────────────────────────────*
| DELETE /forum/comments/{id}                                                  |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleDeleteComment(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		uierrors.BadRequest(w, "invalid comment id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	c, err := h.Comments.GetByID(ctx, id)
	if err != nil {
		if err == commentstore.ErrNotFound {
			uierrors.NotFound(w, "comment not found")
			return
		}
		h.ErrLog.ServerError(w, r, "failed to load comment", err)
		return
	}
	if err := authz.RequireOwnership(r, c.AuthorID); err != nil {
		uierrors.Authz(w, err)
		return
	}

	var tid *primitive.ObjectID
	if post, err := h.Posts.GetByID(ctx, c.PostID); err == nil {
		tid = &post.TenantID
	}

	err = h.AuditLog.CommentDeleted(ctx, r, actorID(r), id, tid, func(cx context.Context) error {
		_, err := h.Comments.Delete(cx, id)
		return err
	})
	if err != nil {
		h.ErrLog.ServerError(w, r, "failed to delete comment", err)
		return
	}
	if _, err := h.Engagement.DeleteByComment(ctx, id); err != nil {
		h.Log.Error("failed to cascade comment like delete",
			zap.Error(err), zap.String("comment_id", id.Hex()))
	}

	writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
}
