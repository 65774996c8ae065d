package middleware

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/JG3233/babybuddy/internal/auth"
)

type bucket struct {
	window int64
	count  int
}

// RateLimiter is a process-local fixed-window counter keyed by
// (route pattern, user-or-IP). One instance is shared across routes; each
// route group picks its own per-minute limit.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	window  time.Duration
}

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		buckets: map[string]*bucket{},
		window:  time.Minute,
	}
}

// Limit returns middleware enforcing at most limit requests per window for
// each (route, identity) pair. limit <= 0 disables enforcement.
func (l *RateLimiter) Limit(limit int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limit <= 0 {
				next.ServeHTTP(w, r)
				return
			}

			now := time.Now()
			window := now.Unix() / int64(l.window/time.Second)
			key := r.Method + " " + routeKey(r) + "|" + identity(r)

			l.mu.Lock()
			b, ok := l.buckets[key]
			if !ok || b.window != window {
				l.prune(window)
				b = &bucket{window: window}
				l.buckets[key] = b
			}
			b.count++
			over := b.count > limit
			l.mu.Unlock()

			if over {
				retryAfter := int64(l.window/time.Second) - now.Unix()%int64(l.window/time.Second)
				w.Header().Set("Retry-After", strconv.FormatInt(max(retryAfter, 1), 10))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"error":"rate limit exceeded, retry shortly"}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// prune drops stale windows; called with the lock held whenever a new bucket
// is opened, so no timer is needed.
func (l *RateLimiter) prune(current int64) {
	for k, b := range l.buckets {
		if b.window < current {
			delete(l.buckets, k)
		}
	}
}

func routeKey(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return r.URL.Path
}

func identity(r *http.Request) string {
	if uid, ok := auth.UserIDFromContext(r.Context()); ok {
		return fmt.Sprintf("user:%d", uid)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}
