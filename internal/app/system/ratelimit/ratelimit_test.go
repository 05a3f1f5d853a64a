package ratelimit

import (
	"fmt"
	"net/http/httptest"
	"testing"
	"time"
)

func stepClock(t *testing.T) func(time.Duration) {
	t.Helper()
	base := time.Now()
	offset := time.Duration(0)
	nowFn = func() time.Time { return base.Add(offset) }
	t.Cleanup(func() { nowFn = time.Now })
	return func(d time.Duration) { offset += d }
}

func TestLimiter_WindowExpiry(t *testing.T) {
	advance := stepClock(t)
	l := New(3, time.Minute)

	for i := 0; i < 3; i++ {
		if !l.Allow("k") {
			t.Fatalf("attempt %d should be allowed", i+1)
		}
	}
	if l.Allow("k") {
		t.Error("4th attempt inside the window should be denied")
	}

	// Other keys are unaffected.
	if !l.Allow("other") {
		t.Error("separate key should have its own window")
	}

	advance(time.Minute + time.Second)
	if !l.Allow("k") {
		t.Error("expired window should reopen")
	}
}

func TestLimiter_Reset(t *testing.T) {
	stepClock(t)
	l := New(1, time.Minute)

	if !l.Allow("k") {
		t.Fatal("first attempt should be allowed")
	}
	if l.Allow("k") {
		t.Fatal("second attempt should be denied")
	}
	l.Reset("k")
	if !l.Allow("k") {
		t.Error("reset key should be allowed again")
	}
}

func TestLoginLimiter_EmailThrottle(t *testing.T) {
	stepClock(t)
	ll := NewLoginLimiter()

	// Rotating IPs does not dodge the per-account limit.
	for i := 0; i < emailAttempts; i++ {
		r := httptest.NewRequest("POST", "/auth/signin", nil)
		r.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i))
		if ok, _ := ll.Check(r, "Kim@Example.com"); !ok {
			t.Fatalf("attempt %d should be allowed", i+1)
		}
	}
	r := httptest.NewRequest("POST", "/auth/signin", nil)
	r.Header.Set("X-Forwarded-For", "203.0.113.99")
	ok, reason := ll.Check(r, "kim@example.com")
	if ok {
		t.Fatal("attempt past the per-account limit should be blocked")
	}
	if reason == "" {
		t.Error("blocked attempt should carry a user-facing reason")
	}

	ll.ResetEmail("KIM@example.com ")
	r = httptest.NewRequest("POST", "/auth/signin", nil)
	r.Header.Set("X-Forwarded-For", "203.0.113.100")
	if ok, _ := ll.Check(r, "kim@example.com"); !ok {
		t.Error("reset account should be allowed again")
	}
}

func TestLoginLimiter_IPThrottle(t *testing.T) {
	stepClock(t)
	ll := NewLoginLimiter()

	for i := 0; i < ipAttempts; i++ {
		r := httptest.NewRequest("POST", "/auth/signin", nil)
		r.Header.Set("X-Forwarded-For", "198.51.100.7")
		if ok, _ := ll.Check(r, fmt.Sprintf("user%d@example.com", i)); !ok {
			t.Fatalf("attempt %d should be allowed", i+1)
		}
	}
	r := httptest.NewRequest("POST", "/auth/signin", nil)
	r.Header.Set("X-Forwarded-For", "198.51.100.7")
	if ok, _ := ll.Check(r, "someone-else@example.com"); ok {
		t.Error("attempt past the per-IP limit should be blocked")
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		realIP     string
		want       string
	}{
		{"forwarded first hop", "10.0.0.1:1234", "203.0.113.9, 10.0.0.2", "", "203.0.113.9"},
		{"real ip fallback", "10.0.0.1:1234", "", "203.0.113.5", "203.0.113.5"},
		{"remote addr with port", "192.0.2.4:5678", "", "", "192.0.2.4"},
		{"remote addr without port", "192.0.2.4", "", "", "192.0.2.4"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tc.remoteAddr
			if tc.xff != "" {
				r.Header.Set("X-Forwarded-For", tc.xff)
			}
			if tc.realIP != "" {
				r.Header.Set("X-Real-IP", tc.realIP)
			}
			if got := ClientIP(r); got != tc.want {
				t.Errorf("ClientIP = %q, want %q", got, tc.want)
			}
		})
	}
}
