// Package middleware provides HTTP middleware for the hotview daemon.
package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/declview/hotview/internal/sync"
)

// Rate limiter defaults. Pairing endpoints are the only LAN-exposed
// surface, so the limits are deliberately tight.
const (
	DefaultMaxRequests = 10
	DefaultWindow      = 1 * time.Minute
	DefaultCleanup     = 5 * time.Minute
)

// RateLimiter is a sliding-window rate limiter keyed per client.
type RateLimiter struct {
	maxRequests int
	window      time.Duration

	mu      sync.RWMutex
	buckets map[string]*bucket

	cleanupDone chan struct{}
}

type bucket struct {
	timestamps []time.Time
	lastAccess time.Time
}

// RateLimiterOption configures a RateLimiter.
type RateLimiterOption func(*RateLimiter)

// WithMaxRequests sets the maximum number of requests per window.
func WithMaxRequests(n int) RateLimiterOption {
	return func(r *RateLimiter) {
		if n > 0 {
			r.maxRequests = n
		}
	}
}

// WithWindow sets the time window.
func WithWindow(d time.Duration) RateLimiterOption {
	return func(r *RateLimiter) {
		if d > 0 {
			r.window = d
		}
	}
}

// NewRateLimiter creates a rate limiter and starts its cleanup loop.
// Call Close to stop it.
func NewRateLimiter(opts ...RateLimiterOption) *RateLimiter {
	r := &RateLimiter{
		maxRequests: DefaultMaxRequests,
		window:      DefaultWindow,
		buckets:     make(map[string]*bucket),
		cleanupDone: make(chan struct{}),
	}

	for _, opt := range opts {
		opt(r)
	}

	go r.cleanupLoop()

	return r
}

// Allow reports whether a request from key fits in the current window,
// recording it when it does.
func (r *RateLimiter) Allow(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-r.window)

	b, ok := r.buckets[key]
	if !ok {
		b = &bucket{timestamps: make([]time.Time, 0, r.maxRequests)}
		r.buckets[key] = b
	}

	valid := b.timestamps[:0]
	for _, ts := range b.timestamps {
		if ts.After(cutoff) {
			valid = append(valid, ts)
		}
	}
	b.timestamps = valid
	b.lastAccess = now

	if len(b.timestamps) >= r.maxRequests {
		return false
	}

	b.timestamps = append(b.timestamps, now)
	return true
}

// Remaining returns how many requests key has left in the window.
func (r *RateLimiter) Remaining(key string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.buckets[key]
	if !ok {
		return r.maxRequests
	}

	cutoff := time.Now().Add(-r.window)
	count := 0
	for _, ts := range b.timestamps {
		if ts.After(cutoff) {
			count++
		}
	}

	if remaining := r.maxRequests - count; remaining > 0 {
		return remaining
	}
	return 0
}

// Reset clears the window for one key.
func (r *RateLimiter) Reset(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.buckets, key)
}

// Close stops the cleanup goroutine.
func (r *RateLimiter) Close() {
	close(r.cleanupDone)
}

func (r *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(DefaultCleanup)
	defer ticker.Stop()

	for {
		select {
		case <-r.cleanupDone:
			return
		case <-ticker.C:
			r.cleanup()
		}
	}
}

// cleanup drops buckets idle for two windows.
func (r *RateLimiter) cleanup() {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := time.Now().Add(-r.window * 2)
	for key, b := range r.buckets {
		if b.lastAccess.Before(cutoff) {
			delete(r.buckets, key)
		}
	}
}

// KeyExtractor derives the rate limit key from a request.
type KeyExtractor func(*http.Request) string

// IPKeyExtractor keys by the connection's remote IP. The daemon serves
// clients directly, so forwarding headers are ignored.
func IPKeyExtractor(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return strings.Trim(r.RemoteAddr, "[]")
	}
	return host
}

// RateLimitMiddleware wraps a handler with per-key rate limiting.
// A nil extractor keys by client IP.
func RateLimitMiddleware(limiter *RateLimiter, keyExtractor KeyExtractor) func(http.Handler) http.Handler {
	if keyExtractor == nil {
		keyExtractor = IPKeyExtractor
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := keyExtractor(r)

			if !limiter.Allow(key) {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", "60")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"error":"rate limit exceeded"}`))
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limiter.maxRequests))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(limiter.Remaining(key)))

			next.ServeHTTP(w, r)
		})
	}
}
