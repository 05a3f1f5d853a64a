package auditlog_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/mercatohq/mercato/internal/app/store/audit"
	"github.com/mercatohq/mercato/internal/app/system/auditlog"
	"github.com/mercatohq/mercato/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogger_NilLogger(t *testing.T) {
	// nil logger should be a no-op (not panic)
	var logger *auditlog.Logger
	ctx := context.Background()
	req := httptest.NewRequest("GET", "/", nil)

	logger.Log(ctx, audit.Event{EventType: "test"})
	logger.LoginSuccess(ctx, req, primitive.NewObjectID(), nil, "password")
	logger.Logout(ctx, req, primitive.NewObjectID(), nil)

	// Wrapped mutations still run even without a logger to record them.
	ran := false
	err := logger.ProductDeleted(ctx, req, primitive.NewObjectID(), primitive.NewObjectID(), nil, "widget",
		func(context.Context) error {
			ran = true
			return nil
		})
	if err != nil {
		t.Fatalf("ProductDeleted with nil logger returned error: %v", err)
	}
	if !ran {
		t.Error("expected wrapped fn to run with nil logger")
	}
}

func newObservedLogger(cfg auditlog.Config) (*auditlog.Logger, *observer.ObservedLogs) {
	core, recorded := observer.New(zap.InfoLevel)
	return auditlog.New(nil, zap.New(core), cfg), recorded
}

func TestLogger_Log_ZapMirror(t *testing.T) {
	logger, recorded := newObservedLogger(auditlog.Config{
		Auth:  "log",
		Admin: "log",
		Data:  "log",
	})
	ctx := context.Background()
	req := httptest.NewRequest("POST", "/api/auth/signin", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.9")

	userID := primitive.NewObjectID()
	logger.LoginSuccess(ctx, req, userID, nil, "password")

	entries := recorded.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(entries))
	}
	entry := entries[0]
	if entry.Level != zap.InfoLevel {
		t.Errorf("expected Info level for success, got %v", entry.Level)
	}

	fields := entry.ContextMap()
	if fields["event"] != "auth.login" {
		t.Errorf("event = %v, want auth.login", fields["event"])
	}
	if fields["action"] != "login" {
		t.Errorf("action = %v, want login", fields["action"])
	}
	if fields["severity"] != audit.SeverityLow {
		t.Errorf("severity = %v, want low", fields["severity"])
	}
	if fields["ip"] != "203.0.113.9" {
		t.Errorf("ip = %v, want forwarded address", fields["ip"])
	}
	if fields["user_id"] != userID.Hex() {
		t.Errorf("user_id = %v, want %s", fields["user_id"], userID.Hex())
	}
}

func TestLogger_AuthFailure_WarnsWithReason(t *testing.T) {
	logger, recorded := newObservedLogger(auditlog.Config{Auth: "log"})
	ctx := context.Background()
	req := httptest.NewRequest("POST", "/api/auth/signin", nil)

	logger.AuthFailure(ctx, req, "intruder@example.com", "wrong password")

	entries := recorded.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(entries))
	}
	entry := entries[0]
	if entry.Level != zap.WarnLevel {
		t.Errorf("expected Warn level for failure, got %v", entry.Level)
	}

	fields := entry.ContextMap()
	if fields["event"] != "security.auth_failure" {
		t.Errorf("event = %v, want security.auth_failure", fields["event"])
	}
	if fields["severity"] != audit.SeverityCritical {
		t.Errorf("severity = %v, want critical", fields["severity"])
	}
	if fields["failure_reason"] != "wrong password" {
		t.Errorf("failure_reason = %v, want wrong password", fields["failure_reason"])
	}
	if fields["detail_attempted_email"] != "intruder@example.com" {
		t.Errorf("detail_attempted_email = %v", fields["detail_attempted_email"])
	}
}

func TestLogger_Log_ConfigOff(t *testing.T) {
	logger, recorded := newObservedLogger(auditlog.Config{
		Auth:  "off",
		Admin: "off",
		Data:  "off",
	})
	ctx := context.Background()

	logger.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventLoginSuccess,
		Success:   true,
	})
	logger.Log(ctx, audit.Event{
		Category:  audit.CategoryUser,
		EventType: audit.EventUserCreated,
		Success:   true,
	})

	if recorded.Len() != 0 {
		t.Errorf("expected no log entries when config is off, got %d", recorded.Len())
	}
}

func TestLogger_Log_CategoryRouting(t *testing.T) {
	// Auth off, data on: only the data event should appear.
	logger, recorded := newObservedLogger(auditlog.Config{
		Auth: "off",
		Data: "log",
	})
	ctx := context.Background()

	logger.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventLoginSuccess,
		Success:   true,
	})
	logger.Log(ctx, audit.Event{
		Category:  audit.CategoryProduct,
		EventType: audit.EventProductDeleted,
		Success:   true,
	})

	entries := recorded.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(entries))
	}
	if entries[0].ContextMap()["event"] != "product.deleted" {
		t.Errorf("event = %v, want product.deleted", entries[0].ContextMap()["event"])
	}
}

func TestLogger_WrapMutation_Audited(t *testing.T) {
	logger, recorded := newObservedLogger(auditlog.Config{Data: "log"})
	ctx := context.Background()
	actorID := primitive.NewObjectID()

	called := false
	err := logger.WrapMutation(ctx, "deleteProduct", audit.Event{
		Category:  audit.CategoryProduct,
		EventType: audit.EventProductDeleted,
		UserID:    &actorID,
	}, func(context.Context) error {
		called = true
		return nil
	})
	if err != nil {
		t.Fatalf("WrapMutation returned error: %v", err)
	}
	if !called {
		t.Fatal("expected wrapped fn to be called")
	}

	entries := recorded.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 audit entry for audited operation, got %d", len(entries))
	}
	if entries[0].ContextMap()["success"] != true {
		t.Error("expected success=true")
	}
}

func TestLogger_WrapMutation_NotAudited(t *testing.T) {
	logger, recorded := newObservedLogger(auditlog.Config{Data: "log"})
	ctx := context.Background()

	err := logger.WrapMutation(ctx, "getProducts", audit.Event{
		Category:  audit.CategoryProduct,
		EventType: "listed",
	}, func(context.Context) error {
		return nil
	})
	if err != nil {
		t.Fatalf("WrapMutation returned error: %v", err)
	}

	if recorded.Len() != 0 {
		t.Errorf("expected no audit entries for unaudited operation, got %d", recorded.Len())
	}
}

func TestLogger_WrapMutation_Error(t *testing.T) {
	logger, recorded := newObservedLogger(auditlog.Config{Data: "log"})
	ctx := context.Background()

	wantErr := errors.New("boom")
	err := logger.WrapMutation(ctx, "deleteProduct", audit.Event{
		Category:  audit.CategoryProduct,
		EventType: audit.EventProductDeleted,
	}, func(context.Context) error {
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected wrapped error returned, got %v", err)
	}

	entries := recorded.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 audit entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["event"] != "product.deleted.failed" {
		t.Errorf("event = %v, want product.deleted.failed", fields["event"])
	}
	if fields["success"] != false {
		t.Error("expected success=false")
	}
	if fields["failure_reason"] != "boom" {
		t.Errorf("failure_reason = %v, want boom", fields["failure_reason"])
	}
}

func TestLogger_PostDeleted_FailureAudited(t *testing.T) {
	logger, recorded := newObservedLogger(auditlog.Config{Data: "log"})
	ctx := context.Background()
	req := httptest.NewRequest("DELETE", "/forum/posts/x", nil)
	actor := primitive.NewObjectID()
	postID := primitive.NewObjectID()

	wantErr := errors.New("write conflict")
	err := logger.PostDeleted(ctx, req, actor, postID, nil, "broken thread", func(context.Context) error {
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected deletion error returned unchanged, got %v", err)
	}

	entries := recorded.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 audit entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["event"] != "forum.post_deleted.failed" {
		t.Errorf("event = %v, want forum.post_deleted.failed", fields["event"])
	}
	if fields["success"] != false {
		t.Error("expected success=false")
	}
	if fields["target_id"] != postID.Hex() {
		t.Errorf("target_id = %v, want %s", fields["target_id"], postID.Hex())
	}

	// The success path keeps the plain event type.
	recorded.TakeAll()
	if err := logger.PostDeleted(ctx, req, actor, postID, nil, "broken thread", func(context.Context) error {
		return nil
	}); err != nil {
		t.Fatalf("PostDeleted success path returned error: %v", err)
	}
	entries = recorded.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 audit entry, got %d", len(entries))
	}
	if entries[0].ContextMap()["event"] != "forum.post_deleted" {
		t.Errorf("event = %v, want forum.post_deleted", entries[0].ContextMap()["event"])
	}
}

func TestLogger_Log_PersistsWithPurgeAfter(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	userID := primitive.NewObjectID()
	logger := auditlog.New(store, zap.NewNop(), auditlog.Config{
		Auth: "db",
	})

	logger.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventLoginSuccess,
		UserID:    &userID,
		Success:   true,
	})

	events, err := store.GetByUser(ctx, userID, 10)
	if err != nil {
		t.Fatalf("GetByUser failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 stored event, got %d", len(events))
	}
	ev := events[0]
	if ev.Action != "login" {
		t.Errorf("action = %q, want login", ev.Action)
	}
	if ev.Severity != audit.SeverityLow {
		t.Errorf("severity = %q, want low", ev.Severity)
	}
	if ev.PurgeAfter.IsZero() {
		t.Error("expected purge_after to be set")
	}
	if !ev.PurgeAfter.After(ev.Timestamp) {
		t.Error("expected purge_after to be after timestamp")
	}
}
