package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimiter_Allow(t *testing.T) {
	limiter := NewRateLimiter(WithMaxRequests(3), WithWindow(time.Minute))
	defer limiter.Close()

	for i := 0; i < 3; i++ {
		if !limiter.Allow("client-a") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if limiter.Allow("client-a") {
		t.Error("request 4 should be rejected")
	}

	// Other keys have their own window.
	if !limiter.Allow("client-b") {
		t.Error("different key should be allowed")
	}
}

func TestRateLimiter_WindowSlides(t *testing.T) {
	limiter := NewRateLimiter(WithMaxRequests(1), WithWindow(50*time.Millisecond))
	defer limiter.Close()

	if !limiter.Allow("client-a") {
		t.Fatal("first request should be allowed")
	}
	if limiter.Allow("client-a") {
		t.Fatal("second request should be rejected")
	}

	time.Sleep(80 * time.Millisecond)

	if !limiter.Allow("client-a") {
		t.Error("request after window should be allowed")
	}
}

func TestRateLimiter_Remaining(t *testing.T) {
	limiter := NewRateLimiter(WithMaxRequests(5), WithWindow(time.Minute))
	defer limiter.Close()

	if got := limiter.Remaining("client-a"); got != 5 {
		t.Errorf("Remaining() = %d, want 5", got)
	}

	limiter.Allow("client-a")
	limiter.Allow("client-a")

	if got := limiter.Remaining("client-a"); got != 3 {
		t.Errorf("Remaining() = %d, want 3", got)
	}
}

func TestRateLimiter_Reset(t *testing.T) {
	limiter := NewRateLimiter(WithMaxRequests(1), WithWindow(time.Minute))
	defer limiter.Close()

	limiter.Allow("client-a")
	if limiter.Allow("client-a") {
		t.Fatal("should be limited before reset")
	}

	limiter.Reset("client-a")

	if !limiter.Allow("client-a") {
		t.Error("should be allowed after reset")
	}
}

func TestIPKeyExtractor(t *testing.T) {
	tests := []struct {
		remoteAddr string
		want       string
	}{
		{"192.168.1.20:54321", "192.168.1.20"},
		{"[::1]:54321", "::1"},
		{"127.0.0.1", "127.0.0.1"},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = tt.remoteAddr
		if got := IPKeyExtractor(req); got != tt.want {
			t.Errorf("IPKeyExtractor(%q) = %q, want %q", tt.remoteAddr, got, tt.want)
		}
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	limiter := NewRateLimiter(WithMaxRequests(2), WithWindow(time.Minute))
	defer limiter.Close()

	handler := RateLimitMiddleware(limiter, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/pair", nil)
		req.RemoteAddr = "10.0.0.5:1111"
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d, want 200", i+1, rec.Code)
		}
		if rec.Header().Get("X-RateLimit-Limit") != "2" {
			t.Errorf("X-RateLimit-Limit = %q, want 2", rec.Header().Get("X-RateLimit-Limit"))
		}
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/pair", nil)
	req.RemoteAddr = "10.0.0.5:1111"
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusTooManyRequests)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("Retry-After header missing")
	}
}
