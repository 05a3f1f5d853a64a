// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	adminfeature "github.com/mercatohq/mercato/internal/app/features/admin"
	authgooglefeature "github.com/mercatohq/mercato/internal/app/features/authgoogle"
	campaignsfeature "github.com/mercatohq/mercato/internal/app/features/campaigns"
	errorsfeature "github.com/mercatohq/mercato/internal/app/features/errors"
	forumfeature "github.com/mercatohq/mercato/internal/app/features/forum"
	healthfeature "github.com/mercatohq/mercato/internal/app/features/health"
	loginfeature "github.com/mercatohq/mercato/internal/app/features/login"
	ordersfeature "github.com/mercatohq/mercato/internal/app/features/orders"
	productsfeature "github.com/mercatohq/mercato/internal/app/features/products"
	tenantsfeature "github.com/mercatohq/mercato/internal/app/features/tenants"
	usersfeature "github.com/mercatohq/mercato/internal/app/features/users"
	"github.com/mercatohq/mercato/internal/app/store/audit"
	campaignstore "github.com/mercatohq/mercato/internal/app/store/campaigns"
	categorystore "github.com/mercatohq/mercato/internal/app/store/categories"
	commentstore "github.com/mercatohq/mercato/internal/app/store/comments"
	"github.com/mercatohq/mercato/internal/app/store/engagement"
	"github.com/mercatohq/mercato/internal/app/store/oauthstate"
	orderstore "github.com/mercatohq/mercato/internal/app/store/orders"
	poststore "github.com/mercatohq/mercato/internal/app/store/posts"
	productstore "github.com/mercatohq/mercato/internal/app/store/products"
	reputationstore "github.com/mercatohq/mercato/internal/app/store/reputation"
	sessionstore "github.com/mercatohq/mercato/internal/app/store/sessions"
	tenantstore "github.com/mercatohq/mercato/internal/app/store/tenants"
	userstore "github.com/mercatohq/mercato/internal/app/store/users"
	"github.com/mercatohq/mercato/internal/app/system/auditlog"
	"github.com/mercatohq/mercato/internal/app/system/auth"
	"github.com/mercatohq/mercato/internal/app/system/limits"
	"github.com/mercatohq/mercato/internal/app/system/metrics"
	"github.com/mercatohq/mercato/internal/app/system/ratelimit"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// any Startup hooks have completed. Stores are built once here and handed
// to features through their constructors; nothing downstream touches the
// Mongo client directly.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	db := deps.MongoDatabase

	users := userstore.New(db)
	tenants := tenantstore.New(db)
	products := productstore.New(db)
	orders := orderstore.New(db)
	posts := poststore.New(db)
	comments := commentstore.New(db)
	likes := engagement.New(db)
	reputation := reputationstore.New(db)
	campaigns := campaignstore.New(db)
	categories := categorystore.New(db)
	sessions := sessionstore.New(db)
	auditStore := audit.New(db)

	auditLog := auditlog.New(auditStore, logger, auditlog.Config{
		Auth:  appCfg.AuditLogAuth,
		Admin: appCfg.AuditLogAdmin,
		Data:  appCfg.AuditLogData,
	})
	sessionMgr := auth.NewManager(sessions, users, logger)
	errLog := errorsfeature.NewLogger(logger)
	loginLimiter := ratelimit.NewLoginLimiter()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestSize(limits.MaxJSONBody))
	r.Use(metrics.Middleware)

	// Global auth middleware: resolves the session cookie and puts the
	// current user into context for every handler.
	r.Use(sessionMgr.LoadSessionUser)

	// Health check endpoint for load balancers and orchestrators
	r.Mount("/health", healthfeature.Routes(healthfeature.NewHandler(deps.MongoClient, logger)))

	// Prometheus scrape endpoint
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	// Authentication
	loginHandler := loginfeature.NewHandler(users, tenants, sessionMgr, auditLog, errLog, loginLimiter, logger)
	r.Mount("/auth", loginfeature.Routes(loginHandler))

	if appCfg.GoogleClientID != "" {
		googleHandler := authgooglefeature.NewHandler(
			users, sessionMgr, auditLog, oauthstate.New(db),
			appCfg.GoogleClientID, appCfg.GoogleClientSecret, appCfg.BaseURL, logger)
		r.Mount("/auth/google", authgooglefeature.Routes(googleHandler))
	}

	// Commerce
	tenantsHandler := tenantsfeature.NewHandler(tenants, categories, auditLog, errLog, logger)
	r.Mount("/tenants", tenantsfeature.Routes(tenantsHandler))

	usersHandler := usersfeature.NewHandler(users, sessions, auditLog, errLog, logger)
	r.Mount("/users", usersfeature.Routes(usersHandler))

	productsHandler := productsfeature.NewHandler(products, auditLog, errLog, logger)
	r.Mount("/products", productsfeature.Routes(productsHandler))

	ordersHandler := ordersfeature.NewHandler(orders, products, auditLog, errLog, logger)
	r.Mount("/orders", ordersfeature.Routes(ordersHandler))

	// Community
	forumHandler := forumfeature.NewHandler(
		posts, comments, likes, reputation, campaigns, categories, auditLog, errLog, logger)
	r.Mount("/forum", forumfeature.Routes(forumHandler))

	campaignsHandler := campaignsfeature.NewHandler(campaigns, auditLog, errLog, logger)
	r.Mount("/campaigns", campaignsfeature.Routes(campaignsHandler))

	// Admin surface
	adminHandler := adminfeature.NewHandler(
		users, tenants, products, orders, posts, auditStore, auditLog, errLog, logger)
	r.Mount("/admin", adminfeature.Routes(adminHandler))

	return r, nil
}
