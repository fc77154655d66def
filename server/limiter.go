package server

import (
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// limiterIdleTTL is how long an unused session limiter is retained.
const limiterIdleTTL = 10 * time.Minute

// sessionLimiter applies a token bucket per session key.
type sessionLimiter struct {
	limiters *cache.Cache
	limit    rate.Limit
	burst    int
	mu       sync.Mutex
}

func newSessionLimiter(rps float64, burst int) *sessionLimiter {
	if burst < 1 {
		burst = 1
	}
	return &sessionLimiter{
		limiters: cache.New(limiterIdleTTL, limiterIdleTTL),
		limit:    rate.Limit(rps),
		burst:    burst,
	}
}

// Allow reports whether key may make a request now.
func (l *sessionLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	var limiter *rate.Limiter
	if v, ok := l.limiters.Get(key); ok {
		limiter = v.(*rate.Limiter)
	} else {
		limiter = rate.NewLimiter(l.limit, l.burst)
	}
	// Re-setting refreshes the idle expiry.
	l.limiters.Set(key, limiter, cache.DefaultExpiration)
	return limiter.Allow()
}

// Len returns the number of tracked sessions.
func (l *sessionLimiter) Len() int {
	return l.limiters.ItemCount()
}
