// internal/app/features/forum/handler.go
package forum

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	uierrors "github.com/mercatohq/mercato/internal/app/features/errors"
	campaignstore "github.com/mercatohq/mercato/internal/app/store/campaigns"
	categorystore "github.com/mercatohq/mercato/internal/app/store/categories"
	commentstore "github.com/mercatohq/mercato/internal/app/store/comments"
	"github.com/mercatohq/mercato/internal/app/store/engagement"
	poststore "github.com/mercatohq/mercato/internal/app/store/posts"
	reputationstore "github.com/mercatohq/mercato/internal/app/store/reputation"
	"github.com/mercatohq/mercato/internal/app/system/auditlog"
	"github.com/mercatohq/mercato/internal/app/system/auth"
	"github.com/mercatohq/mercato/internal/app/system/authz"
	"github.com/mercatohq/mercato/internal/app/system/timeouts"
	"github.com/mercatohq/mercato/internal/domain/models"
)

type Handler struct {
	Posts      *poststore.Store
	Comments   *commentstore.Store
	Engagement *engagement.Store
	Reputation *reputationstore.Store
	Campaigns  *campaignstore.Store
	Categories *categorystore.Store
	AuditLog   *auditlog.Logger
	ErrLog     *uierrors.Logger
	Log        *zap.Logger
}

func NewHandler(
	posts *poststore.Store,
	comments *commentstore.Store,
	eng *engagement.Store,
	rep *reputationstore.Store,
	campaigns *campaignstore.Store,
	categories *categorystore.Store,
	audit *auditlog.Logger,
	errLog *uierrors.Logger,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		Posts:      posts,
		Comments:   comments,
		Engagement: eng,
		Reputation: rep,
		Campaigns:  campaigns,
		Categories: categories,
		AuditLog:   audit,
		ErrLog:     errLog,
		Log:        logger,
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /forum/categories                                                        |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleListCategories(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requestTenant(r)
	if !ok {
		uierrors.BadRequest(w, "tenant_id is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	cats, err := h.Categories.ListByTenant(ctx, tenantID)
	if err != nil {
		h.ErrLog.ServerError(w, r, "failed to list forum categories", err)
		return
	}

	counts, err := h.Posts.CountByCategory(ctx, &tenantID)
	if err != nil {
		h.ErrLog.ServerError(w, r, "failed to count posts by category", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"categories":  cats,
		"post_counts": counts,
	})
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /forum/stats                                                             |
*─────────────────────────────────────────────────────────────────────────────*/

// HandleStats returns post, like, and view totals for the tenant plus the
// per-category breakdown.
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requestTenant(r)
	if !ok {
		uierrors.BadRequest(w, "tenant_id is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	stats, err := h.Posts.StatsByTenant(ctx, &tenantID)
	if err != nil {
		h.ErrLog.ServerError(w, r, "failed to load forum stats", err)
		return
	}
	byCategory, err := h.Posts.CountByCategory(ctx, &tenantID)
	if err != nil {
		h.ErrLog.ServerError(w, r, "failed to count posts by category", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"posts":       stats.Posts,
		"likes":       stats.Likes,
		"views":       stats.Views,
		"by_category": byCategory,
	})
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /forum/posts                                                            |
*─────────────────────────────────────────────────────────────────────────────*/

type postRequest struct {
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Category string   `json:"category"`
	Tags     []string `json:"tags"`
}

// HandleCreatePost creates a post, credits the author's reputation, and
// advances any active campaigns the author has joined.
func (h *Handler) HandleCreatePost(w http.ResponseWriter, r *http.Request) {
	authorID, tenantID, ok := tenantActor(r)
	if !ok {
		uierrors.BadRequest(w, "forum posting requires a tenant-scoped account")
		return
	}

	var req postRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		uierrors.BadRequest(w, "invalid JSON body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	post, err := h.Posts.Create(ctx, models.ForumPost{
		TenantID: tenantID,
		AuthorID: authorID,
		Title:    req.Title,
		Content:  req.Content,
		Category: req.Category,
		Tags:     req.Tags,
	})
	if err != nil {
		uierrors.BadRequest(w, err.Error())
		return
	}

	h.awardActivity(ctx, authorID, tenantID, reputationstore.PointsPost, func(c context.Context) (models.UserReputation, error) {
		return h.Reputation.AwardPost(c, authorID, tenantID)
	})

	writeJSON(w, http.StatusCreated, post)
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /forum/posts                                                             |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleListPosts(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requestTenant(r)
	if !ok {
		uierrors.BadRequest(w, "tenant_id is required")
		return
	}

	q := r.URL.Query()
	filter := poststore.ListFilter{
		TenantID: &tenantID,
		Category: q.Get("category"),
		Search:   q.Get("search"),
		Sort:     q.Get("sort"),
	}
	if raw := q.Get("author_id"); raw != "" {
		aid, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			uierrors.BadRequest(w, "invalid author_id")
			return
		}
		filter.AuthorID = &aid
	}
	filter.Page, _ = strconv.Atoi(q.Get("page"))
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	list, total, err := h.Posts.List(ctx, filter)
	if err != nil {
		h.ErrLog.ServerError(w, r, "failed to list posts", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"posts": list,
		"total": total,
	})
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /forum/posts/top                                                         |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleTopPosts(w http.ResponseWriter, r *http.Request) {
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

	list, err := h.Posts.TopByLikes(ctx, tenantID, limit)
	if err != nil {
		h.ErrLog.ServerError(w, r, "failed to load top posts", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"posts": list})
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /forum/posts/{id}                                                        |
*─────────────────────────────────────────────────────────────────────────────*/

// HandleGetPost returns a post with its comment count and the viewer's
// like/bookmark state, bumping the view counter.
func (h *Handler) HandleGetPost(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		uierrors.BadRequest(w, "invalid post id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	post, err := h.Posts.GetByID(ctx, id)
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

	if err := h.Posts.IncrementViews(ctx, id); err != nil {
		h.Log.Warn("failed to bump view counter", zap.Error(err), zap.String("post_id", id.Hex()))
	} else {
		post.Views++
	}

	commentCount, err := h.Comments.CountByPost(ctx, id)
	if err != nil {
		h.ErrLog.ServerError(w, r, "failed to count comments", err)
		return
	}

	resp := map[string]any{
		"post":          post,
		"comment_count": commentCount,
	}
	if viewerID, ok := currentUserID(r); ok {
		liked, err := h.Engagement.HasLiked(ctx, viewerID, id)
		if err == nil {
			resp["liked"] = liked
		}
		bookmarked, err := h.Engagement.HasBookmarked(ctx, viewerID, id)
		if err == nil {
			resp["bookmarked"] = bookmarked
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

/*─────────────────────────────────────────────────────────────────────────────*
| PUT /forum/posts/{id}                                                        |
*─────────────────────────────────────────────────────────────────────────────*/

// HandleUpdatePost edits a post. Only the author or a moderator may edit, and
// locked posts reject edits from everyone.
func (h *Handler) HandleUpdatePost(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		uierrors.BadRequest(w, "invalid post id")
		return
	}

	var req postRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		uierrors.BadRequest(w, "invalid JSON body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	post, err := h.Posts.GetByID(ctx, id)
	if err != nil {
		if err == poststore.ErrNotFound {
			uierrors.NotFound(w, "post not found")
			return
		}
		h.ErrLog.ServerError(w, r, "failed to load post", err)
		return
	}
	if err := authz.RequireOwnership(r, post.AuthorID); err != nil {
		uierrors.Authz(w, err)
		return
	}

	if err := h.Posts.Update(ctx, id, req.Title, req.Content, req.Category); err != nil {
		switch {
		case err == poststore.ErrNotFound:
			uierrors.NotFound(w, "post not found")
		case errors.Is(err, poststore.ErrLocked):
			uierrors.Conflict(w, err.Error())
		default:
			uierrors.BadRequest(w, err.Error())
		}
		return
	}

	updated, err := h.Posts.GetByID(ctx, id)
	if err != nil {
		h.ErrLog.ServerError(w, r, "failed to reload post", err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

/*─────────────────────────────────────────────────────────────────────────────*
| DELETE /forum/posts/{id}                                                     |
*─────────────────────────────────────────────────────────────────────────────*/

// HandleDeletePost removes a post and cascades to its comments, likes, and
// bookmarks.
func (h *Handler) HandleDeletePost(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		uierrors.BadRequest(w, "invalid post id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	post, err := h.Posts.GetByID(ctx, id)
	if err != nil {
		if err == poststore.ErrNotFound {
			uierrors.NotFound(w, "post not found")
			return
		}
		h.ErrLog.ServerError(w, r, "failed to load post", err)
		return
	}
	if err := authz.RequireOwnership(r, post.AuthorID); err != nil {
		uierrors.Authz(w, err)
		return
	}

	tid := post.TenantID
	err = h.AuditLog.PostDeleted(ctx, r, actorID(r), id, &tid, post.Title, func(cx context.Context) error {
		_, err := h.Posts.Delete(cx, id)
		return err
	})
	if err != nil {
		h.ErrLog.ServerError(w, r, "failed to delete post", err)
		return
	}
	if _, err := h.Comments.DeleteByPost(ctx, id); err != nil {
		h.Log.Error("failed to cascade comment delete", zap.Error(err), zap.String("post_id", id.Hex()))
	}
	if _, err := h.Engagement.DeleteByPost(ctx, id); err != nil {
		h.Log.Error("failed to cascade engagement delete", zap.Error(err), zap.String("post_id", id.Hex()))
	}

	writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /forum/posts/{id}/pin, /forum/posts/{id}/lock  (moderators)             |
*─────────────────────────────────────────────────────────────────────────────*/

type flagRequest struct {
	Value bool `json:"value"`
}

func (h *Handler) HandlePinPost(w http.ResponseWriter, r *http.Request) {
	h.setModerationFlag(w, r, "pin")
}

func (h *Handler) HandleLockPost(w http.ResponseWriter, r *http.Request) {
	h.setModerationFlag(w, r, "lock")
}

func (h *Handler) setModerationFlag(w http.ResponseWriter, r *http.Request, flag string) {
	if err := authz.RequireModerator(r); err != nil {
		uierrors.Authz(w, err)
		return
	}

	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		uierrors.BadRequest(w, "invalid post id")
		return
	}

	var req flagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		uierrors.BadRequest(w, "invalid JSON body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	post, err := h.Posts.GetByID(ctx, id)
	if err != nil {
		if err == poststore.ErrNotFound {
			uierrors.NotFound(w, "post not found")
			return
		}
		h.ErrLog.ServerError(w, r, "failed to load post", err)
		return
	}
	tid := post.TenantID

	switch flag {
	case "pin":
		err = h.AuditLog.PostPinned(ctx, r, actorID(r), id, &tid, req.Value, func(cx context.Context) error {
			return h.Posts.SetPinned(cx, id, req.Value)
		})
	case "lock":
		err = h.AuditLog.PostLocked(ctx, r, actorID(r), id, &tid, req.Value, func(cx context.Context) error {
			return h.Posts.SetLocked(cx, id, req.Value)
		})
	}
	if err != nil {
		if err == poststore.ErrNotFound {
			uierrors.NotFound(w, "post not found")
			return
		}
		h.ErrLog.ServerError(w, r, "failed to update post flag", err)
		return
	}

	updated, err := h.Posts.GetByID(ctx, id)
	if err != nil {
		h.ErrLog.ServerError(w, r, "failed to reload post", err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

/*─────────────────────────────────────────────────────────────────────────────*
| Helpers                                                                      |
*─────────────────────────────────────────────────────────────────────────────*/

// awardActivity credits reputation and pushes the same points into every
// active campaign the user has joined. Campaign progress is best-effort; a
// failure there never fails the user's action.
func (h *Handler) awardActivity(ctx context.Context, userID, tenantID primitive.ObjectID, points int, award func(context.Context) (models.UserReputation, error)) {
	if _, err := award(ctx); err != nil {
		h.Log.Error("failed to award reputation",
			zap.Error(err), zap.String("user_id", userID.Hex()))
		return
	}

	active, err := h.Campaigns.ListActive(ctx, tenantID, time.Now().UTC())
	if err != nil {
		h.Log.Warn("failed to list active campaigns", zap.Error(err))
		return
	}
	for _, c := range active {
		joined, err := h.Campaigns.IsParticipating(ctx, userID, c.ID)
		if err != nil || !joined {
			continue
		}
		if err := h.Campaigns.AddProgress(ctx, c.ID, points); err != nil {
			h.Log.Warn("failed to add campaign progress",
				zap.Error(err), zap.String("campaign_id", c.ID.Hex()))
		}
	}
}

// requestTenant resolves the tenant scope for reads: tenant members use their
// own tenant, admins pass ?tenant_id.
func requestTenant(r *http.Request) (primitive.ObjectID, bool) {
	if tid := authz.UserTenantID(r); !tid.IsZero() {
		return tid, true
	}
	if raw := r.URL.Query().Get("tenant_id"); raw != "" {
		if tid, err := primitive.ObjectIDFromHex(raw); err == nil {
			return tid, true
		}
	}
	return primitive.NilObjectID, false
}

// tenantActor returns the current user's ID and tenant for writes.
func tenantActor(r *http.Request) (userID, tenantID primitive.ObjectID, ok bool) {
	userID, found := currentUserID(r)
	if !found {
		return primitive.NilObjectID, primitive.NilObjectID, false
	}
	tenantID = authz.UserTenantID(r)
	if tenantID.IsZero() {
		return primitive.NilObjectID, primitive.NilObjectID, false
	}
	return userID, tenantID, true
}

func currentUserID(r *http.Request) (primitive.ObjectID, bool) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		return primitive.NilObjectID, false
	}
	id, err := primitive.ObjectIDFromHex(u.ID)
	if err != nil {
		return primitive.NilObjectID, false
	}
	return id, true
}

func actorID(r *http.Request) primitive.ObjectID {
	id, _ := currentUserID(r)
	return id
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
