// Package ratelimit provides a per-key token bucket limiter.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// KeyedRateLimiter gives each key (a user id) its own independent bucket.
type KeyedRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*entry
	limit    rate.Limit
	burst    int
	now      func() time.Time
}

// New allows rps sustained requests per second per key, with bursts of burst.
func New(rps float64, burst int) *KeyedRateLimiter {
	return &KeyedRateLimiter{
		limiters: make(map[string]*entry),
		limit:    rate.Limit(rps),
		burst:    burst,
		now:      time.Now,
	}
}

// Allow reports whether a request for key may proceed now. It never blocks.
func (krl *KeyedRateLimiter) Allow(key string) bool {
	krl.mu.Lock()
	defer krl.mu.Unlock()

	now := krl.now()
	e, ok := krl.limiters[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(krl.limit, krl.burst)}
		krl.limiters[key] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1)
}

// Prune forgets keys idle for longer than maxIdle and returns how many were
// dropped.
func (krl *KeyedRateLimiter) Prune(maxIdle time.Duration) int {
	krl.mu.Lock()
	defer krl.mu.Unlock()

	cutoff := krl.now().Add(-maxIdle)
	n := 0
	for key, e := range krl.limiters {
		if e.lastSeen.Before(cutoff) {
			delete(krl.limiters, key)
			n++
		}
	}
	return n
}

func (krl *KeyedRateLimiter) Len() int {
	krl.mu.Lock()
	defer krl.mu.Unlock()
	return len(krl.limiters)
}
