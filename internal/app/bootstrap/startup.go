// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"

	"github.com/mercatohq/mercato/internal/app/store/audit"
	sessionstore "github.com/mercatohq/mercato/internal/app/store/sessions"
	userstore "github.com/mercatohq/mercato/internal/app/store/users"
	"github.com/mercatohq/mercato/internal/app/system/auth"
	"github.com/mercatohq/mercato/internal/app/system/authutil"
	"github.com/mercatohq/mercato/internal/app/system/workers"
	"github.com/mercatohq/mercato/internal/domain/models"
)

// Background worker cadence. Both sweeps are cheap index-backed deletes.
const (
	sessionCleanupInterval = 15 * time.Minute
	auditRetentionInterval = 6 * time.Hour
)

// Worker handles live here so Shutdown can stop what Startup started.
// The hooks receive DBDeps by value, so they cannot carry these.
var (
	sessionCleanup *workers.SessionCleanup
	auditRetention *workers.AuditRetention
)

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	secure := coreCfg.Env == "prod"
	if err := auth.InitSessionStore(appCfg.SessionKey, appCfg.SessionDomain, secure, logger); err != nil {
		return fmt.Errorf("init session store: %w", err)
	}

	if err := ensureDefaultAdmin(ctx, appCfg, deps, logger); err != nil {
		return err
	}

	sessionCleanup = workers.NewSessionCleanup(
		sessionstore.New(deps.MongoDatabase), logger, sessionCleanupInterval)
	sessionCleanup.Start()

	auditRetention = workers.NewAuditRetention(
		audit.New(deps.MongoDatabase), logger, auditRetentionInterval)
	auditRetention.Start()

	return nil
}

// ensureDefaultAdmin creates the configured admin account if it does not
// exist yet. An existing user with that email is left untouched, whatever
// its role; promotion is an explicit admin action, not a startup side effect.
func ensureDefaultAdmin(ctx context.Context, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if appCfg.AdminEmail == "" {
		return nil
	}

	users := userstore.New(deps.MongoDatabase)

	_, err := users.GetByEmail(ctx, appCfg.AdminEmail)
	if err == nil {
		return nil
	}
	if err != userstore.ErrNotFound {
		return fmt.Errorf("look up default admin: %w", err)
	}

	hash, err := authutil.HashPassword(appCfg.AdminPassword)
	if err != nil {
		return fmt.Errorf("hash default admin password: %w", err)
	}

	created, err := users.Create(ctx, models.User{
		Name:          appCfg.AdminName,
		Email:         appCfg.AdminEmail,
		PasswordHash:  hash,
		Role:          "admin",
		EmailVerified: true,
	})
	if err != nil {
		return fmt.Errorf("create default admin: %w", err)
	}

	logger.Info("created default admin account",
		zap.String("user_id", created.ID.Hex()),
		zap.String("email", created.Email))
	return nil
}
