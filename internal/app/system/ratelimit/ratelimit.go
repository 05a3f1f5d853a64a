// internal/app/system/ratelimit/ratelimit.go
package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Sign-in throttling policy. The per-IP limit absorbs spray attacks from a
// single source; the per-email limit is tighter and survives IP rotation, so
// a targeted account stays protected even from a distributed attempt.
const (
	ipAttempts    = 10
	ipWindow      = time.Minute
	emailAttempts = 5
	emailWindow   = 5 * time.Minute
)

// nowFn is swapped in tests to step through windows without sleeping.
var nowFn = time.Now

// Limiter counts events per key over a fixed window. Safe for concurrent use.
type Limiter struct {
	mu      sync.Mutex
	windows map[string]*window
	limit   int
	period  time.Duration
}

type window struct {
	count     int
	expiresAt time.Time
}

// New returns a limiter allowing limit events per key per period. A
// background sweep drops expired windows so abandoned keys do not accumulate.
func New(limit int, period time.Duration) *Limiter {
	l := &Limiter{
		windows: make(map[string]*window),
		limit:   limit,
		period:  period,
	}
	go l.sweep(2 * period)
	return l
}

// Allow records an event for key and reports whether it fit in the window.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := nowFn()
	w, ok := l.windows[key]
	if !ok || now.After(w.expiresAt) {
		l.windows[key] = &window{count: 1, expiresAt: now.Add(l.period)}
		return true
	}
	if w.count >= l.limit {
		return false
	}
	w.count++
	return true
}

// Reset forgets the window for key.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.windows, key)
}

func (l *Limiter) sweep(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for range ticker.C {
		l.mu.Lock()
		now := nowFn()
		for key, w := range l.windows {
			if now.After(w.expiresAt) {
				delete(l.windows, key)
			}
		}
		l.mu.Unlock()
	}
}

// ClientIP resolves the originating address of a request. Behind the reverse
// proxy the client is the first X-Forwarded-For hop (X-Real-IP as a
// fallback); bare RemoteAddr only carries a port in direct connections.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if ip := strings.TrimSpace(strings.SplitN(xff, ",", 2)[0]); ip != "" {
			return ip
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// LoginLimiter throttles sign-in attempts on two axes, per source IP and per
// target email.
type LoginLimiter struct {
	byIP    *Limiter
	byEmail *Limiter
}

// NewLoginLimiter returns a limiter carrying the sign-in policy above.
func NewLoginLimiter() *LoginLimiter {
	return &LoginLimiter{
		byIP:    New(ipAttempts, ipWindow),
		byEmail: New(emailAttempts, emailWindow),
	}
}

// Check records a sign-in attempt and reports whether it may proceed. When
// blocked, the second return is the message to show the caller.
func (ll *LoginLimiter) Check(r *http.Request, email string) (bool, string) {
	if !ll.byIP.Allow(ClientIP(r)) {
		return false, "Too many login attempts. Please wait a minute before trying again."
	}
	if email != "" {
		if !ll.byEmail.Allow(emailKey(email)) {
			return false, "Too many login attempts for this account. Please wait a few minutes."
		}
	}
	return true, ""
}

// ResetEmail clears the per-account window after a successful sign-in, so a
// legitimate user who fumbled their password a few times is not still paying
// for it next session.
func (ll *LoginLimiter) ResetEmail(email string) {
	if email != "" {
		ll.byEmail.Reset(emailKey(email))
	}
}

func emailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
