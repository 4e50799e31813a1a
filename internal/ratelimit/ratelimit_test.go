package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestLimiter(perMinute int, now *time.Time) *Limiter {
	l := New(perMinute)
	l.now = func() time.Time { return *now }
	return l
}

func TestAllowExhaustsBudget(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	l := newTestLimiter(3, &now)

	for i := 0; i < 3; i++ {
		allowed, remaining, _ := l.Allow("login:10.0.0.1")
		if !allowed {
			t.Fatalf("request %d should be allowed", i+1)
		}
		if remaining != 2-i {
			t.Fatalf("request %d: remaining = %d, want %d", i+1, remaining, 2-i)
		}
	}
	if allowed, _, _ := l.Allow("login:10.0.0.1"); allowed {
		t.Fatal("fourth request should be limited")
	}
	if allowed, _, _ := l.Allow("login:10.0.0.2"); !allowed {
		t.Fatal("keys must not share a budget")
	}
}

func TestAllowRefills(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	l := newTestLimiter(60, &now)
	for i := 0; i < 60; i++ {
		l.Allow("user:1")
	}
	if allowed, _, _ := l.Allow("user:1"); allowed {
		t.Fatal("budget should be exhausted")
	}
	now = now.Add(2 * time.Second)
	if allowed, _, _ := l.Allow("user:1"); !allowed {
		t.Fatal("one token per second should have refilled")
	}
}

func TestPruneDropsIdleBuckets(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	l := newTestLimiter(5, &now)
	l.Allow("a")
	now = now.Add(idleAfter + time.Minute)
	l.Allow("b")
	if _, ok := l.buckets["a"]; ok {
		t.Fatal("idle bucket should be pruned")
	}
	if len(l.buckets) != 1 {
		t.Fatalf("expected 1 bucket, got %d", len(l.buckets))
	}
}

func TestMiddlewareHeadersAnd429(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	l := newTestLimiter(1, &now)
	handler := l.Middleware(func(r *http.Request) string { return "k" })(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/credentials", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if rec.Header().Get("X-RateLimit-Limit") != "1" || rec.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Fatalf("unexpected headers %v", rec.Header())
	}
	if rec.Header().Get("X-RateLimit-Reset") == "" {
		t.Fatal("expected reset header")
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/credentials", nil))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
}

func TestMiddlewareEmptyKeyBypasses(t *testing.T) {
	l := New(1)
	handler := l.Middleware(func(r *http.Request) string { return "" })(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, rec.Code)
		}
	}
}
