// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

/*
EnsureAll is called at startup. Each ensure* function is idempotent.
We aggregate errors so any problem is visible and startup can fail fast.
*/
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	if err := ensureTenants(ctx, db); err != nil {
		problems = append(problems, "tenants: "+err.Error())
	}
	if err := ensureUsers(ctx, db); err != nil {
		problems = append(problems, "users: "+err.Error())
	}
	if err := ensureSessions(ctx, db); err != nil {
		problems = append(problems, "sessions: "+err.Error())
	}
	if err := ensureProducts(ctx, db); err != nil {
		problems = append(problems, "products: "+err.Error())
	}
	if err := ensureOrders(ctx, db); err != nil {
		problems = append(problems, "orders: "+err.Error())
	}
	if err := ensureForumPosts(ctx, db); err != nil {
		problems = append(problems, "forum_posts: "+err.Error())
	}
	if err := ensureForumComments(ctx, db); err != nil {
		problems = append(problems, "forum_comments: "+err.Error())
	}
	if err := ensureForumPostLikes(ctx, db); err != nil {
		problems = append(problems, "forum_post_likes: "+err.Error())
	}
	if err := ensureForumCommentLikes(ctx, db); err != nil {
		problems = append(problems, "forum_comment_likes: "+err.Error())
	}
	if err := ensureForumBookmarks(ctx, db); err != nil {
		problems = append(problems, "forum_bookmarks: "+err.Error())
	}
	if err := ensureForumCategories(ctx, db); err != nil {
		problems = append(problems, "forum_categories: "+err.Error())
	}
	if err := ensureUserReputation(ctx, db); err != nil {
		problems = append(problems, "user_reputation: "+err.Error())
	}
	if err := ensureCampaigns(ctx, db); err != nil {
		problems = append(problems, "forum_campaigns: "+err.Error())
	}
	if err := ensureCampaignParticipants(ctx, db); err != nil {
		problems = append(problems, "campaign_participants: "+err.Error())
	}
	if err := ensureAuditEvents(ctx, db); err != nil {
		problems = append(problems, "audit_events: "+err.Error())
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Core helper: reconcile a set of desired indexes for one collection         */
/* -------------------------------------------------------------------------- */

type existingIndex struct {
	Name   string `bson:"name"`
	Key    bson.D `bson:"key"`
	Unique *bool  `bson:"unique,omitempty"`
}

func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, kv := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ", ")
}

func sameBoolPtr(a, b *bool) bool {
	av := false
	bv := false
	if a != nil {
		av = *a
	}
	if b != nil {
		bv = *b
	}
	return av == bv
}

// Best-effort duplicate-detector (works cross-vendors)
func isDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 { // E11000 duplicate key error index
				return true
			}
		}
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == 11000 {
		return true
	}
	s := err.Error()
	return strings.Contains(s, "E11000") || strings.Contains(strings.ToLower(s), "duplicate key")
}

// Mongo/DocDB sometimes returns IndexOptionsConflict when an index with the
// same keys already exists under a different name (or options differ).
func isOptionsConflictErr(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "IndexOptionsConflict")
}

func ensureIndexSet(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel) error {
	var errs []string

	for _, m := range models {
		var desiredName string
		var desiredUnique *bool
		if m.Options != nil {
			if m.Options.Name != nil {
				desiredName = *m.Options.Name
			}
			if m.Options.Unique != nil {
				desiredUnique = m.Options.Unique
			}
		}
		desiredSig := keySig(m.Keys.(bson.D))

		start := time.Now()
		zap.L().Info("ensuring index",
			zap.String("collection", coll.Name()),
			zap.String("name", desiredName),
			zap.String("keys", desiredSig),
			zap.Bool("unique", desiredUnique != nil && *desiredUnique))

		// 1) Load existing indexes
		existing := map[string]existingIndex{} // sig -> index
		cur, err := coll.Indexes().List(ctx)
		if err == nil {
			defer cur.Close(ctx)
			for cur.Next(ctx) {
				var idx existingIndex
				if err := cur.Decode(&idx); err != nil {
					zap.L().Warn("failed to decode existing index",
						zap.String("collection", coll.Name()),
						zap.Error(err))
					continue
				}
				existing[keySig(idx.Key)] = idx
			}
		}

		if ex, ok := existing[desiredSig]; ok {
			// Same key pattern exists already.
			if sameBoolPtr(desiredUnique, ex.Unique) {
				// Name alignment: if the name differs, drop & recreate with the desired name.
				if desiredName != "" && ex.Name != desiredName {
					zap.L().Info("renaming index to align with desired name",
						zap.String("collection", coll.Name()),
						zap.String("from", ex.Name),
						zap.String("to", desiredName),
						zap.String("keys", desiredSig))

					if _, err := coll.Indexes().DropOne(ctx, ex.Name); err != nil {
						zap.L().Warn("drop existing index (rename) failed",
							zap.String("collection", coll.Name()),
							zap.String("name", ex.Name),
							zap.Error(err))
						errs = append(errs, fmt.Sprintf("%s(%s): rename drop failed: %v", coll.Name(), desiredName, err))
						continue
					}
					if _, err := coll.Indexes().CreateOne(ctx, m); err != nil {
						zap.L().Warn("create index (rename) failed",
							zap.String("collection", coll.Name()),
							zap.String("name", desiredName),
							zap.Error(err))
						errs = append(errs, fmt.Sprintf("%s(%s): rename create failed: %v", coll.Name(), desiredName, err))
						continue
					}
					zap.L().Info("index renamed",
						zap.String("collection", coll.Name()),
						zap.String("name", desiredName),
						zap.String("keys", desiredSig),
						zap.String("took", time.Since(start).String()))
					continue
				}

				// Names aligned (or we don't care) → reuse
				zap.L().Info("reusing existing index",
					zap.String("collection", coll.Name()),
					zap.String("name", ex.Name),
					zap.String("keys", desiredSig),
					zap.Bool("unique", ex.Unique != nil && *ex.Unique),
					zap.String("took", time.Since(start).String()))
				continue
			}

			// Options mismatch (e.g., upgrading to unique). Drop & recreate.
			if _, err := coll.Indexes().DropOne(ctx, ex.Name); err != nil {
				zap.L().Warn("drop existing index failed",
					zap.String("collection", coll.Name()),
					zap.String("name", ex.Name),
					zap.String("keys", desiredSig),
					zap.Error(err))
				errs = append(errs, fmt.Sprintf("%s(%s): drop failed: %v", coll.Name(), desiredName, err))
				continue
			}
			if _, err := coll.Indexes().CreateOne(ctx, m); err != nil {
				if isDuplicateKeyErr(err) && desiredUnique != nil && *desiredUnique {
					helper := ""
					if coll.Name() == "users" && strings.Contains(desiredSig, "email:1") {
						helper = " — duplicates exist on users.email. Example finder:\n" +
							`db.users.aggregate([{ $group: { _id: "$email", n: { $sum: 1 } } }, { $match: { n: { $gt: 1 } } }])`
					}
					errs = append(errs, fmt.Sprintf("%s(%s): cannot create unique index (duplicates present)%s", coll.Name(), desiredName, helper))
				} else {
					errs = append(errs, fmt.Sprintf("%s(%s): %v", coll.Name(), desiredName, err))
				}
				continue
			}
			zap.L().Info("index dropped and recreated",
				zap.String("collection", coll.Name()),
				zap.String("name", desiredName),
				zap.String("keys", desiredSig),
				zap.Bool("unique", desiredUnique != nil && *desiredUnique),
				zap.String("took", time.Since(start).String()))
			continue
		}

		// 2) No existing index with the same keys: create it.
		if created, err := coll.Indexes().CreateOne(ctx, m); err != nil {
			if isOptionsConflictErr(err) {
				cur2, e2 := coll.Indexes().List(ctx)
				if e2 == nil {
					var match *existingIndex
					for cur2.Next(ctx) {
						var idx existingIndex
						if err := cur2.Decode(&idx); err != nil {
							zap.L().Warn("failed to decode existing index (post-conflict)",
								zap.String("collection", coll.Name()),
								zap.Error(err))
							continue
						}
						if keySig(idx.Key) == desiredSig {
							match = &idx
							break
						}
					}
					cur2.Close(ctx)
					if match != nil {
						if sameBoolPtr(desiredUnique, match.Unique) {
							zap.L().Info("reusing existing index (post-conflict)",
								zap.String("collection", coll.Name()),
								zap.String("name", match.Name),
								zap.String("keys", desiredSig),
								zap.Bool("unique", match.Unique != nil && *match.Unique),
								zap.String("took", time.Since(start).String()))
							continue
						}
						if _, dropErr := coll.Indexes().DropOne(ctx, match.Name); dropErr != nil {
							zap.L().Warn("failed to drop conflicting index",
								zap.String("collection", coll.Name()),
								zap.String("name", match.Name),
								zap.Error(dropErr))
						}
						if _, e3 := coll.Indexes().CreateOne(ctx, m); e3 != nil {
							if isDuplicateKeyErr(e3) && desiredUnique != nil && *desiredUnique {
								errs = append(errs, fmt.Sprintf("%s(%s): cannot create unique index (duplicates present)", coll.Name(), desiredName))
							} else {
								errs = append(errs, fmt.Sprintf("%s(%s): %v", coll.Name(), desiredName, e3))
							}
							continue
						}
						zap.L().Info("index dropped and recreated (post-conflict)",
							zap.String("collection", coll.Name()),
							zap.String("name", desiredName),
							zap.String("keys", desiredSig),
							zap.Bool("unique", desiredUnique != nil && *desiredUnique),
							zap.String("took", time.Since(start).String()))
						continue
					}
				}

				zap.L().Warn("index ensure failed",
					zap.String("collection", coll.Name()),
					zap.String("name", desiredName),
					zap.String("keys", desiredSig),
					zap.Bool("unique", desiredUnique != nil && *desiredUnique),
					zap.String("took", time.Since(start).String()),
					zap.Error(err))
				errs = append(errs, fmt.Sprintf("%s(%s): %v", coll.Name(), desiredName, err))
				continue
			}

			zap.L().Warn("index ensure failed",
				zap.String("collection", coll.Name()),
				zap.String("name", desiredName),
				zap.String("keys", desiredSig),
				zap.Bool("unique", desiredUnique != nil && *desiredUnique),
				zap.String("took", time.Since(start).String()),
				zap.Error(err))
			errs = append(errs, fmt.Sprintf("%s(%s): %v", coll.Name(), desiredName, err))
			continue
		} else {
			zap.L().Info("index ensured",
				zap.String("collection", coll.Name()),
				zap.String("name", desiredName),
				zap.String("created_name", created),
				zap.String("keys", desiredSig),
				zap.Bool("unique", desiredUnique != nil && *desiredUnique),
				zap.String("took", time.Since(start).String()))
		}
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Collection-specific index sets                                              */
/* -------------------------------------------------------------------------- */

func ensureTenants(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("tenants")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// Slug is the public identifier; routing resolves tenants by slug.
		{
			Keys:    bson.D{{Key: "slug", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_tenants_slug"),
		},
		{
			Keys:    bson.D{{Key: "domain", Value: 1}},
			Options: options.Index().SetName("idx_tenants_domain"),
		},
		// Custom domains resolve a hostname to its tenant; sparse since most
		// tenants never set one, unique so a hostname maps to exactly one.
		{
			Keys: bson.D{{Key: "settings.custom_domain", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetSparse(true).
				SetName("uniq_tenants_custom_domain"),
		},
	})
}

func ensureUsers(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("users")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// Email must be unique across all users (global, cross-tenant)
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_users_email"),
		},
		// Tenant member lists, segmented by role
		{
			Keys: bson.D{
				{Key: "tenant_id", Value: 1},
				{Key: "role", Value: 1},
				{Key: "created_at", Value: -1},
			},
			Options: options.Index().SetName("idx_users_tenant_role_created"),
		},
		// Admin lists across tenants filter by role alone
		{
			Keys:    bson.D{{Key: "role", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_users_role_created"),
		},
	})
}

func ensureSessions(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("sessions")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// The cookie carries the token; every request resolves it here.
		{
			Keys:    bson.D{{Key: "token", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_sessions_token"),
		},
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetName("idx_sessions_user"),
		},
		// Expiry sweep scans by expires_at
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetName("idx_sessions_expires"),
		},
	})
}

func ensureProducts(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("products")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// Storefront listing: active products per tenant, newest first
		{
			Keys: bson.D{
				{Key: "tenant_id", Value: 1},
				{Key: "status", Value: 1},
				{Key: "created_at", Value: -1},
			},
			Options: options.Index().SetName("idx_products_tenant_status_created"),
		},
		// Category browse within a tenant
		{
			Keys: bson.D{
				{Key: "tenant_id", Value: 1},
				{Key: "category", Value: 1},
				{Key: "created_at", Value: -1},
			},
			Options: options.Index().SetName("idx_products_tenant_category_created"),
		},
		// Seller dashboard
		{
			Keys:    bson.D{{Key: "seller_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_products_seller_created"),
		},
	})
}

func ensureOrders(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("orders")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// Tenant order book, newest first
		{
			Keys:    bson.D{{Key: "tenant_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_orders_tenant_created"),
		},
		// Customer order history
		{
			Keys:    bson.D{{Key: "customer_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_orders_customer_created"),
		},
		// Fulfillment queues filter by status
		{
			Keys:    bson.D{{Key: "tenant_id", Value: 1}, {Key: "status", Value: 1}},
			Options: options.Index().SetName("idx_orders_tenant_status"),
		},
	})
}

func ensureForumPosts(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("forum_posts")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// Category listing, pinned posts surfaced first
		{
			Keys: bson.D{
				{Key: "tenant_id", Value: 1},
				{Key: "category", Value: 1},
				{Key: "pinned", Value: -1},
				{Key: "created_at", Value: -1},
			},
			Options: options.Index().SetName("idx_posts_tenant_category_pinned_created"),
		},
		// Front page: all categories, newest first
		{
			Keys:    bson.D{{Key: "tenant_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_posts_tenant_created"),
		},
		// Author profile pages
		{
			Keys:    bson.D{{Key: "author_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_posts_author_created"),
		},
	})
}

func ensureForumComments(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("forum_comments")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// Thread view loads comments oldest-first
		{
			Keys:    bson.D{{Key: "post_id", Value: 1}, {Key: "created_at", Value: 1}},
			Options: options.Index().SetName("idx_comments_post_created"),
		},
		{
			Keys:    bson.D{{Key: "author_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_comments_author_created"),
		},
	})
}

func ensureForumPostLikes(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("forum_post_likes")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// At most one like per (user, post); the toggle depends on this.
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "post_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_likes_user_post"),
		},
		{
			Keys:    bson.D{{Key: "post_id", Value: 1}},
			Options: options.Index().SetName("idx_likes_post"),
		},
	})
}

func ensureForumCommentLikes(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("forum_comment_likes")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// At most one like per (user, comment); the toggle depends on this.
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "comment_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_comment_likes_user_comment"),
		},
		// Post deletion sweeps comment likes by post
		{
			Keys:    bson.D{{Key: "post_id", Value: 1}},
			Options: options.Index().SetName("idx_comment_likes_post"),
		},
	})
}

func ensureForumBookmarks(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("forum_bookmarks")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// At most one bookmark per (user, post)
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "post_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_bookmarks_user_post"),
		},
		// "My bookmarks" page, newest first
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_bookmarks_user_created"),
		},
	})
}

func ensureForumCategories(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("forum_categories")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "tenant_id", Value: 1}, {Key: "slug", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_categories_tenant_slug"),
		},
		// Sidebar ordering
		{
			Keys:    bson.D{{Key: "tenant_id", Value: 1}, {Key: "order", Value: 1}},
			Options: options.Index().SetName("idx_categories_tenant_order"),
		},
	})
}

func ensureUserReputation(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("user_reputation")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// One reputation document per (user, tenant); awards upsert against this.
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "tenant_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_reputation_user_tenant"),
		},
		// Leaderboard: top points per tenant
		{
			Keys:    bson.D{{Key: "tenant_id", Value: 1}, {Key: "points", Value: -1}},
			Options: options.Index().SetName("idx_reputation_tenant_points"),
		},
	})
}

func ensureCampaigns(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("forum_campaigns")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// Active campaign listing checks the date window
		{
			Keys: bson.D{
				{Key: "tenant_id", Value: 1},
				{Key: "is_active", Value: 1},
				{Key: "end_date", Value: -1},
			},
			Options: options.Index().SetName("idx_campaigns_tenant_active_end"),
		},
	})
}

func ensureCampaignParticipants(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("campaign_participants")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// At most one participation per (user, campaign)
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "campaign_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_participants_user_campaign"),
		},
		{
			Keys:    bson.D{{Key: "campaign_id", Value: 1}},
			Options: options.Index().SetName("idx_participants_campaign"),
		},
	})
}

func ensureAuditEvents(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("audit_events")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// Site-wide recent events (latest-first)
		{
			Keys:    bson.D{{Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_audit_timestamp"),
		},
		// Per-tenant and per-user review screens
		{
			Keys:    bson.D{{Key: "tenant_id", Value: 1}, {Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_audit_tenant_timestamp"),
		},
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_audit_user_timestamp"),
		},
		{
			Keys:    bson.D{{Key: "category", Value: 1}, {Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_audit_category_timestamp"),
		},
		// Retention sweep deletes by purge_after
		{
			Keys:    bson.D{{Key: "purge_after", Value: 1}},
			Options: options.Index().SetName("idx_audit_purge_after"),
		},
	})
}
