package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/sessions"
	"go.uber.org/zap"

	sessionstore "github.com/mercatohq/mercato/internal/app/store/sessions"
	userstore "github.com/mercatohq/mercato/internal/app/store/users"
	"github.com/mercatohq/mercato/internal/domain/models"
)

/*─────────────────────────────────────────────────────────────────────────────*
| Session constants & globals                                                |
*─────────────────────────────────────────────────────────────────────────────*/

const (
	SessionName = "mercato-session"

	isAuthKey = "is_authenticated"
	tokenKey  = "session_token"
)

// Store is initialised once via InitSessionStore. The cookie only carries the
// opaque session token; the authoritative session state lives in Mongo.
var Store *sessions.CookieStore

/*─────────────────────────────────────────────────────────────────────────────*
| Current-User helper                                                        |
*─────────────────────────────────────────────────────────────────────────────*/

// SessionUser is the resolved user we inject into r.Context().
type SessionUser struct {
	ID       string
	Name     string
	Email    string
	Role     string
	TenantID string // empty for admins, who span tenants
}

type ctxKey string

const currentUserKey ctxKey = "currentUser"

// CurrentUser returns the user & "found?" flag.
func CurrentUser(r *http.Request) (*SessionUser, bool) {
	u, ok := r.Context().Value(currentUserKey).(*SessionUser)
	return u, ok
}

/*─────────────────────────────────────────────────────────────────────────────*
| Session manager                                                            |
*─────────────────────────────────────────────────────────────────────────────*/

// Manager resolves session cookies to users and handles sign-in/sign-out.
type Manager struct {
	sessions *sessionstore.Store
	users    *userstore.Store
	logger   *zap.Logger
}

// NewManager creates a session Manager backed by the given stores.
func NewManager(sessions *sessionstore.Store, users *userstore.Store, logger *zap.Logger) *Manager {
	return &Manager{sessions: sessions, users: users, logger: logger}
}

// SignIn creates a Mongo-backed session for the user and writes the token
// into the cookie. The returned session carries the token and expiry.
func (m *Manager) SignIn(w http.ResponseWriter, r *http.Request, u *models.User, ip, userAgent string) (models.Session, error) {
	sess, err := m.sessions.Create(r.Context(), u.ID, ip, userAgent)
	if err != nil {
		return models.Session{}, err
	}

	cookie, _ := Store.Get(r, SessionName)
	cookie.Values[isAuthKey] = true
	cookie.Values[tokenKey] = sess.Token
	if err := cookie.Save(r, w); err != nil {
		// The Mongo session is orphaned but harmless; the cleanup worker
		// sweeps it once it expires.
		return models.Session{}, err
	}
	return sess, nil
}

// SignOut deletes the Mongo session and clears the cookie.
func (m *Manager) SignOut(w http.ResponseWriter, r *http.Request) error {
	cookie, _ := Store.Get(r, SessionName)
	if token, ok := cookie.Values[tokenKey].(string); ok && token != "" {
		if err := m.sessions.Delete(r.Context(), token); err != nil {
			m.logger.Warn("failed to delete session", zap.Error(err))
		}
	}

	cookie.Values = map[interface{}]interface{}{}
	cookie.Options.MaxAge = -1
	return cookie.Save(r, w)
}

// Token returns the session token carried by the request cookie, if any.
func (m *Manager) Token(r *http.Request) (string, bool) {
	if Store == nil {
		return "", false
	}
	cookie, _ := Store.Get(r, SessionName)
	token, ok := cookie.Values[tokenKey].(string)
	return token, ok && token != ""
}

// LoadSessionUser resolves the cookie token against the sessions collection
// and injects the owning user into context. Expired or unknown tokens pass
// through anonymously; handlers decide whether auth is required.
func (m *Manager) LoadSessionUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if Store == nil {
			next.ServeHTTP(w, r)
			return
		}

		cookie, _ := Store.Get(r, SessionName)
		isAuth, _ := cookie.Values[isAuthKey].(bool)
		token, _ := cookie.Values[tokenKey].(string)
		if !isAuth || token == "" {
			next.ServeHTTP(w, r)
			return
		}

		sess, err := m.sessions.GetByToken(r.Context(), token)
		if err != nil {
			if err != sessionstore.ErrNotFound {
				m.logger.Warn("session lookup failed", zap.Error(err))
			}
			next.ServeHTTP(w, r)
			return
		}

		u, err := m.users.GetByID(r.Context(), sess.UserID)
		if err != nil {
			// User deleted out from under a live session.
			next.ServeHTTP(w, r)
			return
		}

		if err := m.sessions.Touch(r.Context(), sess.ID); err != nil {
			m.logger.Warn("session touch failed", zap.Error(err))
		}

		su := &SessionUser{
			ID:    u.ID.Hex(),
			Name:  u.Name,
			Email: u.Email,
			Role:  u.Role,
		}
		if u.TenantID != nil {
			su.TenantID = u.TenantID.Hex()
		}
		next.ServeHTTP(w, withUser(r, su))
	})
}

/*─────────────────────────────────────────────────────────────────────────────*
| Route guards                                                               |
*─────────────────────────────────────────────────────────────────────────────*/

// RequireSignedIn ensures there is a user in context (set by LoadSessionUser).
func RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentUser(r); !ok {
			writeJSONError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole ensures there is a user with one of the allowed roles in context.
func RequireRole(allowed ...string) func(http.Handler) http.Handler {
	set := make(map[string]struct{}, len(allowed))
	for _, role := range allowed {
		set[strings.ToLower(strings.TrimSpace(role))] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, ok := CurrentUser(r)
			if !ok {
				writeJSONError(w, http.StatusUnauthorized, "authentication required")
				return
			}
			if _, has := set[strings.ToLower(u.Role)]; !has {
				writeJSONError(w, http.StatusForbidden, "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| Session store initialisation                                               |
*─────────────────────────────────────────────────────────────────────────────*/

// InitSessionStore initializes the global cookie Store using the provided
// session key and domain. The `secure` flag controls whether cookies are
// marked Secure and which SameSite mode is used.
//
// In production (secure=true), cookies are Secure + SameSite=None so they can
// be sent in cross-site contexts. In local dev over http://localhost, use
// secure=false so cookies are accepted.
func InitSessionStore(sessionKey, domain string, secure bool, logger *zap.Logger) error {
	if sessionKey == "" {
		return fmt.Errorf("session key is empty; provide ≥32 random chars")
	}
	if len(sessionKey) < 32 {
		logger.Warn("session key is short; 32+ chars recommended",
			zap.Int("length", len(sessionKey)))
	}

	store := sessions.NewCookieStore([]byte(sessionKey))
	opts := &sessions.Options{
		Domain:   domain,
		Path:     "/",
		Secure:   secure,
		HttpOnly: true,
	}
	if secure {
		opts.SameSite = http.SameSiteNoneMode
	} else {
		opts.SameSite = http.SameSiteLaxMode
	}

	store.Options = opts
	Store = store

	logger.Info("session store initialized",
		zap.Bool("secure", secure),
		zap.String("domain", domain))

	return nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| Helpers                                                                    |
*─────────────────────────────────────────────────────────────────────────────*/

func withUser(r *http.Request, u *SessionUser) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), currentUserKey, u))
}

// WithTestUser injects a user directly into the request context, bypassing
// cookie and session resolution. Test-only seam.
func WithTestUser(r *http.Request, u *SessionUser) *http.Request {
	return withUser(r, u)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	fmt.Fprintf(w, `{"error":%q}`+"\n", msg)
}
