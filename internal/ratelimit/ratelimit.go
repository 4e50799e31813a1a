// Package ratelimit throttles requests per key (client address or user id)
// with a token bucket per key.
package ratelimit

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"usermgmt/internal/httpjson"
)

// idleAfter is how long an untouched bucket is kept before pruning.
const idleAfter = 10 * time.Minute

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter allows PerMinute requests per key, refilled continuously.
type Limiter struct {
	perMinute int
	every     rate.Limit

	mu        sync.Mutex
	buckets   map[string]*bucket
	lastPrune time.Time
	now       func() time.Time
}

func New(perMinute int) *Limiter {
	if perMinute < 1 {
		perMinute = 1
	}
	return &Limiter{
		perMinute: perMinute,
		every:     rate.Every(time.Minute / time.Duration(perMinute)),
		buckets:   make(map[string]*bucket),
		now:       time.Now,
	}
}

func (l *Limiter) Limit() int { return l.perMinute }

// Allow takes one token for key. It returns whether the request may proceed,
// the whole tokens left, and when the bucket will be full again.
func (l *Limiter) Allow(key string) (bool, int, time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.pruneLocked(now)

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(l.every, l.perMinute)}
		l.buckets[key] = b
	}
	b.lastSeen = now

	allowed := b.limiter.AllowN(now, 1)
	tokens := b.limiter.TokensAt(now)
	if tokens < 0 {
		tokens = 0
	}
	missing := float64(l.perMinute) - tokens
	reset := now.Add(time.Duration(missing / float64(l.every) * float64(time.Second)))
	return allowed, int(math.Floor(tokens)), reset
}

func (l *Limiter) pruneLocked(now time.Time) {
	if now.Sub(l.lastPrune) < idleAfter {
		return
	}
	l.lastPrune = now
	for key, b := range l.buckets {
		if now.Sub(b.lastSeen) > idleAfter {
			delete(l.buckets, key)
		}
	}
}

// SetHeaders writes the X-RateLimit-* headers for one Allow result.
func (l *Limiter) SetHeaders(w http.ResponseWriter, remaining int, reset time.Time) {
	h := w.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(l.perMinute))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))
}

// Middleware limits requests by the key returned from keyFunc. An empty key
// bypasses the limiter.
func (l *Limiter) Middleware(keyFunc func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := keyFunc(r)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}
			allowed, remaining, reset := l.Allow(key)
			l.SetHeaders(w, remaining, reset)
			if !allowed {
				httpjson.Error(w, http.StatusTooManyRequests, "Rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
