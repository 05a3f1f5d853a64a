// internal/app/system/validators/validators.go
package validators

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// EnsureAll creates collections (if missing) and tries to attach JSON-Schema
// validators. On servers that don't support collMod/validators (e.g. some
// DocumentDB versions), we log and skip gracefully.
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	// helper: ensure collection exists (with truthful logging) and then validator (if provided)
	ensure := func(coll string, schema bson.M) {
		if _, err := ensureCollection(ctx, db, coll); err != nil {
			problems = append(problems, coll+": "+err.Error())
			return
		}
		if schema == nil {
			return
		}
		if err := setValidator(ctx, db, coll, schema); err != nil {
			// DocumentDB or other deployments may not support collMod/validators.
			if isNoSuchCommand(err) || isNotImplemented(err) {
				zap.L().Info("validator skipped (unsupported)", zap.String("collection", coll))
				return
			}
			problems = append(problems, coll+": "+err.Error())
		}
	}

	// Core commerce collections
	ensure("tenants", tenantsSchema())
	ensure("users", usersSchema())
	ensure("sessions", sessionsSchema())
	ensure("products", productsSchema())
	ensure("orders", ordersSchema())

	// Forum collections
	ensure("forum_posts", postsSchema())
	ensure("forum_comments", commentsSchema())
	ensure("forum_categories", categoriesSchema())
	ensure("user_reputation", reputationSchema())
	ensure("forum_campaigns", campaignsSchema())

	// Join collections carry only IDs; existence is enough.
	ensure("forum_post_likes", nil)
	ensure("forum_bookmarks", nil)
	ensure("campaign_participants", nil)

	// Audit trail
	ensure("audit_events", auditEventsSchema())

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* ---------------------- collection helpers & logging ---------------------- */

// collectionExists returns true when <name> already exists.
// Uses ListCollectionNames to avoid "created collection" log when it didn't.
func collectionExists(ctx context.Context, db *mongo.Database, name string) (bool, error) {
	names, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return false, err
	}
	for _, n := range names {
		if n == name {
			return true, nil
		}
	}
	return false, nil
}

// ensureCollection idempotently makes sure <name> exists.
// Returns created==true only if we actually created it.
func ensureCollection(ctx context.Context, db *mongo.Database, name string) (created bool, err error) {
	exists, listErr := collectionExists(ctx, db, name)
	if listErr == nil && exists {
		zap.L().Info("collection exists", zap.String("collection", name))
		return false, nil
	}
	// If listing failed, fall back to create-and-handle-race.
	if err := db.CreateCollection(ctx, name); err != nil {
		// NamespaceExists / already exists is fine (race or prior run).
		if isNamespaceExistsErr(err) {
			zap.L().Info("collection exists", zap.String("collection", name))
			return false, nil
		}
		zap.L().Warn("createCollection failed", zap.String("collection", name), zap.Error(err))
		return false, err
	}
	zap.L().Info("created collection", zap.String("collection", name))
	return true, nil
}

/* ------------------------------ validators ------------------------------- */

func setValidator(ctx context.Context, db *mongo.Database, name string, validator bson.M) error {
	cmd := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
		{Key: "validationLevel", Value: "moderate"},
		{Key: "validationAction", Value: "error"},
	}
	var out bson.M
	if err := db.RunCommand(ctx, cmd).Decode(&out); err != nil {
		return err
	}
	zap.L().Info("validator ensured", zap.String("collection", name))
	return nil
}

/* ------------------------- error helpers ------------------------- */

func isNamespaceExistsErr(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 48 || strings.Contains(strings.ToLower(ce.Message), "already exists")) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "already exists") || strings.Contains(s, "namespace exists")
}

func isNoSuchCommand(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 59 || strings.Contains(strings.ToLower(ce.Message), "no such command")) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "no such command")
}

func isNotImplemented(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 115 ||
		strings.Contains(strings.ToLower(ce.Message), "not implemented") ||
		strings.Contains(strings.ToLower(ce.Message), "not supported")) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "not implemented") || strings.Contains(s, "not supported")
}

/* ------------------------- JSON-Schema docs ---------------------- */

func tenantsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"name", "slug", "domain"},
			"properties": bson.M{
				"name":   bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"},
				"slug":   bson.M{"bsonType": "string", "minLength": 2, "maxLength": 100},
				"domain": bson.M{"enum": bson.A{"marketplace", "forum", "admin", "seller"}},
			},
		},
	}
}

func usersSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"name", "email", "role"},
			"properties": bson.M{
				"name":          bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"},
				"name_ci":       bson.M{"bsonType": "string"},
				"email":         bson.M{"bsonType": "string", "minLength": 3},
				"password_hash": bson.M{"bsonType": "string"},
				"role":          bson.M{"enum": bson.A{"customer", "seller", "admin"}},
				"tenant_id":     bson.M{"bsonType": bson.A{"objectId", "null"}},
			},
		},
	}
}

func sessionsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"user_id", "token", "expires_at"},
			"properties": bson.M{
				"user_id":    bson.M{"bsonType": "objectId"},
				"token":      bson.M{"bsonType": "string", "minLength": 32},
				"expires_at": bson.M{"bsonType": "date"},
			},
		},
	}
}

func productsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"tenant_id", "seller_id", "name", "price", "currency", "status"},
			"properties": bson.M{
				"tenant_id": bson.M{"bsonType": "objectId"},
				"seller_id": bson.M{"bsonType": "objectId"},
				"name":      bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"},
				"price":     bson.M{"bsonType": bson.A{"double", "int", "long", "decimal"}, "minimum": 0},
				"currency":  bson.M{"enum": bson.A{"USD", "EUR", "GBP", "CAD", "AUD", "JPY"}},
				"stock":     bson.M{"bsonType": bson.A{"int", "long"}, "minimum": 0},
				"status":    bson.M{"enum": bson.A{"draft", "active", "archived"}},
			},
		},
	}
}

func ordersSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"tenant_id", "customer_id", "items", "total", "currency", "status"},
			"properties": bson.M{
				"tenant_id":   bson.M{"bsonType": "objectId"},
				"customer_id": bson.M{"bsonType": "objectId"},
				"items":       bson.M{"bsonType": "array", "minItems": 1},
				"total":       bson.M{"bsonType": bson.A{"double", "int", "long", "decimal"}, "minimum": 0},
				"currency":    bson.M{"enum": bson.A{"USD", "EUR", "GBP", "CAD", "AUD", "JPY"}},
				"status":      bson.M{"enum": bson.A{"pending", "processing", "shipped", "delivered", "cancelled", "refunded"}},
			},
		},
	}
}

func postsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"tenant_id", "author_id", "title", "category"},
			"properties": bson.M{
				"tenant_id": bson.M{"bsonType": "objectId"},
				"author_id": bson.M{"bsonType": "objectId"},
				"title":     bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"},
				"category": bson.M{"enum": bson.A{
					"general", "announcements", "support",
					"feature-requests", "bugs", "showcase", "off-topic",
				}},
				"likes":  bson.M{"bsonType": bson.A{"int", "long"}},
				"views":  bson.M{"bsonType": bson.A{"int", "long"}},
				"pinned": bson.M{"bsonType": "bool"},
				"locked": bson.M{"bsonType": "bool"},
			},
		},
	}
}

func commentsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"post_id", "author_id", "content"},
			"properties": bson.M{
				"post_id":   bson.M{"bsonType": "objectId"},
				"author_id": bson.M{"bsonType": "objectId"},
				"content":   bson.M{"bsonType": "string", "minLength": 1},
				"parent_id": bson.M{"bsonType": bson.A{"objectId", "null"}},
			},
		},
	}
}

func categoriesSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"tenant_id", "name", "slug"},
			"properties": bson.M{
				"tenant_id": bson.M{"bsonType": "objectId"},
				"name":      bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"},
				"slug":      bson.M{"bsonType": "string", "minLength": 2, "maxLength": 100},
				"order":     bson.M{"bsonType": bson.A{"int", "long"}},
			},
		},
	}
}

func reputationSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"user_id", "tenant_id"},
			"properties": bson.M{
				"user_id":   bson.M{"bsonType": "objectId"},
				"tenant_id": bson.M{"bsonType": "objectId"},
				"points":    bson.M{"bsonType": bson.A{"int", "long"}},
				"level":     bson.M{"enum": bson.A{"bronze", "silver", "gold", "platinum", ""}},
			},
		},
	}
}

func campaignsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"tenant_id", "title", "target_points", "start_date", "end_date"},
			"properties": bson.M{
				"tenant_id":     bson.M{"bsonType": "objectId"},
				"title":         bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"},
				"target_points": bson.M{"bsonType": bson.A{"int", "long"}, "minimum": 1},
				"start_date":    bson.M{"bsonType": "date"},
				"end_date":      bson.M{"bsonType": "date"},
				"is_active":     bson.M{"bsonType": "bool"},
			},
		},
	}
}

func auditEventsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"timestamp", "category", "event_type", "purge_after"},
			"properties": bson.M{
				"timestamp": bson.M{"bsonType": "date"},
				"category": bson.M{"enum": bson.A{
					"user", "tenant", "product", "order", "forum",
					"auth", "security", "admin",
				}},
				"event_type":  bson.M{"bsonType": "string", "minLength": 1},
				"severity":    bson.M{"enum": bson.A{"critical", "high", "medium", "low", ""}},
				"purge_after": bson.M{"bsonType": "date"},
			},
		},
	}
}
