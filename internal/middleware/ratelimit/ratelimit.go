// Package ratelimit throttles API clients with a per-IP fixed one-minute
// window.
package ratelimit

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"fintrack/internal/cache"
	"fintrack/internal/log"
)

const window = time.Minute

const (
	DefaultPerMinute     = 60
	DefaultMaxClients    = 10000
	DefaultSweepInterval = 5 * time.Minute
)

// Config tunes a Limiter. Zero fields take the defaults above.
type Config struct {
	RequestsPerMinute int
	// MaxClients bounds the tracked windows; the least recently seen client
	// is forgotten first.
	MaxClients    int
	SweepInterval time.Duration
	Logger        *log.Logger
}

// Limiter counts requests per client in windows kept in an expiring LRU.
// A window opens with a client's first request and closes a minute later.
type Limiter struct {
	perMinute int
	now       func() time.Time
	windows   *cache.LRU[int]
	janitor   *cache.Manager
}

// NewLimiter starts a janitor that drops closed windows; call Stop to end it.
func NewLimiter(cfg Config) *Limiter {
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = DefaultPerMinute
	}
	if cfg.MaxClients <= 0 {
		cfg.MaxClients = DefaultMaxClients
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultSweepInterval
	}

	l := &Limiter{
		perMinute: cfg.RequestsPerMinute,
		now:       time.Now,
		janitor:   cache.NewManager(cfg.Logger),
	}
	l.windows = cache.NewLRU[int](cfg.MaxClients, window).WithClock(func() time.Time { return l.now() })
	l.janitor.Register(l.windows)
	l.janitor.StartCleanup(cfg.SweepInterval)
	return l
}

// Allow counts one request from client. It reports whether the request fits
// in the client's current window and when that window closes.
func (l *Limiter) Allow(client string) (bool, time.Time) {
	n, closes := l.windows.Update(client, func(n int, _ bool) int { return n + 1 })
	return n <= l.perMinute, closes
}

// ActiveClients returns how many client windows are held.
func (l *Limiter) ActiveClients() int {
	return l.windows.Len()
}

func (l *Limiter) Stop() {
	l.janitor.Stop()
}

// Middleware rejects requests over the limit with 429 and a Retry-After
// header set to the seconds left in the window. onLimit, when set, writes
// the rejection body.
func (l *Limiter) Middleware(onLimit func(http.ResponseWriter, *http.Request)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientIP := log.ClientIP(r)
			ok, closes := l.Allow(clientIP)
			if ok {
				next.ServeHTTP(w, r)
				return
			}

			retry := max(int(math.Ceil(closes.Sub(l.now()).Seconds())), 1)
			log.FromContext(r.Context()).WithComponent(log.ComponentRateLimit).WarnContext(r.Context(),
				"Rate limit exceeded",
				log.FieldClientIP, clientIP,
				log.FieldPath, r.URL.Path,
				"retry_after", retry)
			w.Header().Set("Retry-After", strconv.Itoa(retry))
			if onLimit != nil {
				onLimit(w, r)
				return
			}
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
		})
	}
}
