// internal/app/bootstrap/appconfig.go
package bootstrap

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). They represent *app-level*
// configuration, not WAFFLE core configuration: core handles ports, TLS,
// logging level, and timeouts; everything specific to Mercato lives here.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Session management configuration
	SessionKey    string // Secret key for signing session cookies (must be strong in production)
	SessionDomain string // Cookie domain (blank means current host)

	// Base URL for OAuth callbacks (e.g., "https://mercato.example.com")
	BaseURL string

	// Audit logging modes per category group: "all" (db+log), "db", "log", "off"
	AuditLogAuth  string
	AuditLogAdmin string
	AuditLogData  string

	// Google OAuth configuration
	GoogleClientID     string
	GoogleClientSecret string

	// Default admin bootstrap. When AdminEmail is set and no user with that
	// email exists, Startup creates an admin account with these credentials.
	AdminEmail    string
	AdminName     string
	AdminPassword string
}
