package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestLimiter(t *testing.T, cfg Config) (*Limiter, *time.Time) {
	t.Helper()
	rl := NewLimiter(cfg)
	t.Cleanup(rl.Stop)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	return rl, &now
}

func allowed(rl *Limiter, client string) bool {
	ok, _ := rl.Allow(client)
	return ok
}

func TestAllow(t *testing.T) {
	rl, now := newTestLimiter(t, Config{RequestsPerMinute: 2})

	if !allowed(rl, "a") || !allowed(rl, "a") {
		t.Fatal("first two requests should pass")
	}
	if allowed(rl, "a") {
		t.Fatal("third request in the window should be limited")
	}
	if !allowed(rl, "b") {
		t.Fatal("other clients are counted separately")
	}

	*now = now.Add(time.Minute)
	if !allowed(rl, "a") {
		t.Fatal("new window should reset the count")
	}
}

func TestWindowIsFixed(t *testing.T) {
	rl, now := newTestLimiter(t, Config{RequestsPerMinute: 1})
	start := *now

	rl.Allow("a")
	*now = now.Add(45 * time.Second)
	ok, closes := rl.Allow("a")
	if ok {
		t.Fatal("second request should be limited")
	}
	if !closes.Equal(start.Add(time.Minute)) {
		t.Fatalf("window closes at %v, want %v", closes, start.Add(time.Minute))
	}
}

func TestSweepDropsClosedWindows(t *testing.T) {
	rl, now := newTestLimiter(t, Config{RequestsPerMinute: 5})
	rl.Allow("a")
	*now = now.Add(61 * time.Second)
	rl.Allow("b")

	if n := rl.janitor.Sweep(); n != 1 {
		t.Fatalf("Sweep removed %d, want 1", n)
	}
	if rl.ActiveClients() != 1 {
		t.Fatalf("ActiveClients = %d, want 1", rl.ActiveClients())
	}
}

func TestMaxClients(t *testing.T) {
	rl, _ := newTestLimiter(t, Config{RequestsPerMinute: 1, MaxClients: 2})
	rl.Allow("a")
	rl.Allow("b")
	rl.Allow("c")
	if rl.ActiveClients() != 2 {
		t.Fatalf("ActiveClients = %d, want 2", rl.ActiveClients())
	}
	if !allowed(rl, "a") {
		t.Fatal("evicted client should start a fresh window")
	}
}

func TestMiddleware(t *testing.T) {
	rl, now := newTestLimiter(t, Config{RequestsPerMinute: 1})
	h := rl.Middleware(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		after      time.Duration
		want       int
		retryAfter string
	}{
		{0, http.StatusNoContent, ""},
		{0, http.StatusTooManyRequests, "60"},
		{20*time.Second + 500*time.Millisecond, http.StatusTooManyRequests, "40"},
	}
	for i, tt := range tests {
		*now = now.Add(tt.after)
		req := httptest.NewRequest(http.MethodGet, "/api/expenses", nil)
		req.RemoteAddr = "10.1.1.1:4000"
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		if rr.Code != tt.want {
			t.Fatalf("request %d: status %d, want %d", i, rr.Code, tt.want)
		}
		if got := rr.Header().Get("Retry-After"); got != tt.retryAfter {
			t.Fatalf("request %d: Retry-After = %q, want %q", i, got, tt.retryAfter)
		}
	}
}

func TestStopIsIdempotent(t *testing.T) {
	rl := NewLimiter(Config{})
	rl.Stop()
	rl.Stop()
}
