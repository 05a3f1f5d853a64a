// internal/app/store/audit/store.go
package audit

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Event categories. The category is the prefix of the dotted event name
// (user.created -> "user").
const (
	CategoryUser     = "user"
	CategoryTenant   = "tenant"
	CategoryProduct  = "product"
	CategoryOrder    = "order"
	CategoryForum    = "forum"
	CategoryAuth     = "auth"
	CategorySecurity = "security"
	CategoryAdmin    = "admin"
)

// Event types, grouped by category. The stored event_type is the part after
// the category prefix.
const (
	// user.*
	EventUserCreated     = "created"
	EventUserUpdated     = "updated"
	EventUserDeleted     = "deleted"
	EventUserRoleChanged = "role_changed"

	// tenant.*
	EventTenantCreated = "created"
	EventTenantUpdated = "updated"

	// product.*
	EventProductCreated = "created"
	EventProductUpdated = "updated"
	EventProductDeleted = "deleted"

	// order.*
	EventOrderCreated       = "created"
	EventOrderStatusUpdated = "status_updated"
	EventOrderCancelled     = "cancelled"
	EventOrderRefunded      = "refunded"

	// forum.*
	EventPostCreated    = "post_created"
	EventPostDeleted    = "post_deleted"
	EventPostPinned     = "post_pinned"
	EventPostLocked     = "post_locked"
	EventCommentDeleted = "comment_deleted"

	// auth.*
	EventLoginSuccess = "login"
	EventLogout       = "logout"

	// security.*
	EventAuthFailure = "auth_failure"

	// admin.*
	EventStatsExported = "stats_exported"
	EventUsersExported = "users_exported"
	EventAuditExported = "audit_exported"
)

// Severity levels drive retention; see auditlog.RetentionDays.
const (
	SeverityCritical = "critical"
	SeverityHigh     = "high"
	SeverityMedium   = "medium"
	SeverityLow      = "low"
)

// Event is one durable audit record. Action, Severity, and PurgeAfter are
// derived from the category and event type by the auditlog package before
// the event reaches the store.
type Event struct {
	ID        primitive.ObjectID  `bson:"_id,omitempty"`
	Timestamp time.Time           `bson:"timestamp"`
	TenantID  *primitive.ObjectID `bson:"tenant_id,omitempty"`

	// Event classification
	Category  string `bson:"category"`
	EventType string `bson:"event_type"`
	Action    string `bson:"action"`   // create | update | delete | login | logout | failed | export | read
	Severity  string `bson:"severity"` // critical | high | medium | low

	// Who
	UserID *primitive.ObjectID `bson:"user_id,omitempty"` // actor

	// What
	TargetID string `bson:"target_id,omitempty"` // affected document id, if any

	// Context
	IP        string `bson:"ip,omitempty"`
	UserAgent string `bson:"user_agent,omitempty"`

	// Outcome
	Success       bool   `bson:"success"`
	FailureReason string `bson:"failure_reason,omitempty"`

	// Additional details (varies by event type)
	Details map[string]string `bson:"details,omitempty"`

	// Retention sweep deletes events once purge_after has passed.
	PurgeAfter time.Time `bson:"purge_after"`
}

// FullType returns the dotted event name, e.g. "user.role_changed".
func (e Event) FullType() string {
	return e.Category + "." + e.EventType
}

// QueryFilter defines filters for querying audit events.
type QueryFilter struct {
	TenantID  *primitive.ObjectID
	UserID    *primitive.ObjectID
	Category  string
	EventType string
	StartTime *time.Time
	EndTime   *time.Time
	Limit     int64
	Offset    int64
}

func (f QueryFilter) toQuery() bson.M {
	query := bson.M{}

	if f.TenantID != nil {
		query["tenant_id"] = f.TenantID
	}
	if f.UserID != nil {
		query["user_id"] = f.UserID
	}
	if f.Category != "" {
		query["category"] = f.Category
	}
	if f.EventType != "" {
		query["event_type"] = f.EventType
	}

	if f.StartTime != nil || f.EndTime != nil {
		timeQuery := bson.M{}
		if f.StartTime != nil {
			timeQuery["$gte"] = *f.StartTime
		}
		if f.EndTime != nil {
			timeQuery["$lte"] = *f.EndTime
		}
		query["timestamp"] = timeQuery
	}
	return query
}

// Store manages audit event records.
type Store struct {
	c *mongo.Collection
}

// New creates a new audit Store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("audit_events")}
}

// Log records an audit event.
func (s *Store) Log(ctx context.Context, event Event) error {
	if event.ID.IsZero() {
		event.ID = primitive.NewObjectID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_, err := s.c.InsertOne(ctx, event)
	return err
}

// Query retrieves audit events matching the given filter, newest first.
func (s *Store) Query(ctx context.Context, filter QueryFilter) ([]Event, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(limit).
		SetSkip(filter.Offset)

	cursor, err := s.c.Find(ctx, filter.toQuery(), opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var events []Event
	if err := cursor.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// CountByFilter returns the count of events matching the filter.
func (s *Store) CountByFilter(ctx context.Context, filter QueryFilter) (int64, error) {
	return s.c.CountDocuments(ctx, filter.toQuery())
}

// GetByUser retrieves recent audit events for a specific actor.
func (s *Store) GetByUser(ctx context.Context, userID primitive.ObjectID, limit int64) ([]Event, error) {
	return s.Query(ctx, QueryFilter{
		UserID: &userID,
		Limit:  limit,
	})
}

// GetRecent retrieves the most recent audit events.
func (s *Store) GetRecent(ctx context.Context, limit int64) ([]Event, error) {
	return s.Query(ctx, QueryFilter{
		Limit: limit,
	})
}

// GetAuthFailures retrieves recent failed authentication events.
func (s *Store) GetAuthFailures(ctx context.Context, since time.Time, limit int64) ([]Event, error) {
	query := bson.M{
		"category":   CategorySecurity,
		"event_type": EventAuthFailure,
		"timestamp":  bson.M{"$gte": since},
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(limit)

	cursor, err := s.c.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var events []Event
	if err := cursor.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// DeleteExpired removes events whose retention window has passed. Called by
// the retention worker; returns the number of events deleted.
func (s *Store) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{
		"purge_after": bson.M{"$lte": now},
	})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
