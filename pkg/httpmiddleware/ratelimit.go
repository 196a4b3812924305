package httpmiddleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RateLimitConfig configures the per-client sliding window limiter.
type RateLimitConfig struct {
	// Max requests per Window. Zero disables limiting.
	Max    int
	Window time.Duration
	// KeyFunc identifies the client; defaults to the client IP.
	KeyFunc func(*http.Request) string
}

// counter keeps the request counts of the current and the previous fixed
// window. The sliding estimate weights the previous count by its remaining
// overlap with the sliding window.
type counter struct {
	start      time.Time
	prev, curr int
}

type limiter struct {
	max    int
	window time.Duration
	now    func() time.Time

	mu       sync.Mutex
	counters map[string]*counter
}

func newLimiter(limit int, window time.Duration) *limiter {
	return &limiter{
		max:      limit,
		window:   window,
		now:      time.Now,
		counters: make(map[string]*counter),
	}
}

// take records a request for key unless the limit is reached.
func (l *limiter) take(key string) (remaining int, reset time.Time, ok bool) {
	now := l.now()
	start := now.Truncate(l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	c := l.counters[key]
	switch {
	case c == nil:
		c = &counter{start: start}
		l.counters[key] = c
	case start.Sub(c.start) == l.window:
		c.prev, c.curr, c.start = c.curr, 0, start
	case start.Sub(c.start) > l.window:
		c.prev, c.curr, c.start = 0, 0, start
	}

	overlap := 1 - float64(now.Sub(start))/float64(l.window)
	estimate := float64(c.prev)*overlap + float64(c.curr)
	reset = start.Add(l.window)
	if estimate >= float64(l.max) {
		return 0, reset, false
	}
	c.curr++
	return max(0, l.max-int(math.Ceil(estimate+1))), reset, true
}

// evict drops counters that can no longer affect a decision.
func (l *limiter) evict() {
	cutoff := l.now().Truncate(l.window).Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()
	for key, c := range l.counters {
		if c.start.Before(cutoff) {
			delete(l.counters, key)
		}
	}
}

// RateLimit rejects clients above the configured rate with 429. Counters are
// evicted in the background until ctx is done.
func RateLimit(ctx context.Context, cfg RateLimitConfig) Middleware {
	if cfg.Max <= 0 || cfg.Window <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	keyFunc := cfg.KeyFunc
	if keyFunc == nil {
		keyFunc = clientIP
	}
	l := newLimiter(cfg.Max, cfg.Window)

	go func() {
		ticker := time.NewTicker(2 * cfg.Window)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				l.evict()
			}
		}
	}()

	limit := strconv.Itoa(cfg.Max)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			remaining, reset, ok := l.take(keyFunc(r))

			h := w.Header()
			h.Set("X-RateLimit-Limit", limit)
			h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))
			if !ok {
				wait := max(0, reset.Sub(l.now()))
				h.Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then the
// remote address.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
