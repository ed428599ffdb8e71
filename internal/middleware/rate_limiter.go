package middleware

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/bandmate/backend/internal/config"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter controls how frequently a caller may perform an action.
type RateLimiter interface {
	Allow(key string) bool
}

// KeyedRateLimiter tracks a token bucket per key (a scope and client IP)
// and forgets keys idle for longer than ttl.
type KeyedRateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
	ttl      time.Duration
	now      func() time.Time
	lastGC   time.Time
}

// NewRateLimiter builds a limiter from the service configuration.
func NewRateLimiter(cfg config.RateLimitConfig) *KeyedRateLimiter {
	return NewKeyedRateLimiter(cfg.Requests, cfg.Window, cfg.Burst, 5*time.Minute)
}

// NewKeyedRateLimiter allows up to requests events per window for each key,
// with an additional burst capacity.
func NewKeyedRateLimiter(requests int, window time.Duration, burst int, ttl time.Duration) *KeyedRateLimiter {
	if requests <= 0 {
		requests = 1
	}
	if window <= 0 {
		window = time.Second
	}
	if burst <= 0 {
		burst = 1
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	return &KeyedRateLimiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Every(window / time.Duration(requests)),
		burst:    burst,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Allow reports whether key may proceed now.
func (l *KeyedRateLimiter) Allow(key string) bool {
	if key == "" {
		key = "unknown"
	}

	l.mu.Lock()
	now := l.now()
	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[key] = v
	}
	v.lastSeen = now
	if now.Sub(l.lastGC) > l.ttl {
		l.gcLocked(now)
	}
	l.mu.Unlock()

	return v.limiter.AllowN(now, 1)
}

// Len returns the number of tracked keys.
func (l *KeyedRateLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.visitors)
}

func (l *KeyedRateLimiter) gcLocked(now time.Time) {
	for key, v := range l.visitors {
		if now.Sub(v.lastSeen) > l.ttl {
			delete(l.visitors, key)
		}
	}
	l.lastGC = now
}

// WithNowFunc allows tests to override the time source.
func (l *KeyedRateLimiter) WithNowFunc(now func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
}
