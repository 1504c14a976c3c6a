package middleware

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter controls how frequently a caller may perform an action.
// The credential endpoints use it to slow down signup and login abuse.
type RateLimiter interface {
	Allow(key string) bool
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ipRateLimiter tracks request rates per key, typically a scoped client
// IP, and expires idle entries so the table does not grow unbounded.
type ipRateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
	ttl      time.Duration
	now      func() time.Time
}

// NewIPRateLimiter constructs a per-key rate limiter allowing up to
// `requests` events per `window`, plus burst capacity. Idle entries are
// dropped after ttl.
func NewIPRateLimiter(requests int, window time.Duration, burst int, ttl time.Duration) RateLimiter {
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

	return &ipRateLimiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Every(window / time.Duration(requests)),
		burst:    burst,
		ttl:      ttl,
		now:      time.Now,
	}
}

func (l *ipRateLimiter) Allow(key string) bool {
	if key == "" {
		key = "unknown"
	}

	now := l.now()

	l.mu.Lock()
	v := l.getVisitorLocked(key, now)
	l.gcLocked(now)
	l.mu.Unlock()

	return v.limiter.Allow()
}

func (l *ipRateLimiter) getVisitorLocked(key string, now time.Time) *visitor {
	if v, ok := l.visitors[key]; ok {
		v.lastSeen = now
		return v
	}

	v := &visitor{limiter: rate.NewLimiter(l.limit, l.burst), lastSeen: now}
	l.visitors[key] = v
	return v
}

func (l *ipRateLimiter) gcLocked(now time.Time) {
	for key, v := range l.visitors {
		if now.Sub(v.lastSeen) > l.ttl {
			delete(l.visitors, key)
		}
	}
}

// WithNowFunc allows tests to override the time source.
func (l *ipRateLimiter) WithNowFunc(now func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
}
