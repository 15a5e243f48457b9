// Package ratelimit throttles per key with token buckets: ingestion submissions
// per anonymous client, cover fetches per host.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultIdleTTL is how long an untouched key keeps its bucket.
const DefaultIdleTTL = 10 * time.Minute

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// KeyedRateLimiter gives each key its own token bucket and forgets keys that
// have been idle for longer than the TTL.
type KeyedRateLimiter struct {
	mu      sync.Mutex
	entries map[string]*entry
	limit   rate.Limit
	burst   int
	ttl     time.Duration
	now     func() time.Time

	done     chan struct{}
	stopOnce sync.Once
}

// New creates a limiter allowing rps per key with the given burst.
func New(rps float64, burst int) *KeyedRateLimiter {
	return NewWithTTL(rps, burst, DefaultIdleTTL)
}

// NewWithTTL is New with an explicit idle TTL. A non-positive ttl keeps keys forever.
func NewWithTTL(rps float64, burst int, ttl time.Duration) *KeyedRateLimiter {
	krl := &KeyedRateLimiter{
		entries: make(map[string]*entry),
		limit:   rate.Limit(rps),
		burst:   burst,
		ttl:     ttl,
		now:     time.Now,
		done:    make(chan struct{}),
	}
	if ttl > 0 {
		go krl.sweepLoop(ttl)
	}
	return krl
}

// Allow reports whether key may proceed now. Used for inbound submissions.
func (krl *KeyedRateLimiter) Allow(key string) bool {
	return krl.limiter(key).Allow()
}

// Wait blocks until key may proceed or ctx ends. Used for outbound fetches.
func (krl *KeyedRateLimiter) Wait(ctx context.Context, key string) error {
	return krl.limiter(key).Wait(ctx)
}

// Len returns the number of tracked keys.
func (krl *KeyedRateLimiter) Len() int {
	krl.mu.Lock()
	defer krl.mu.Unlock()
	return len(krl.entries)
}

func (krl *KeyedRateLimiter) limiter(key string) *rate.Limiter {
	krl.mu.Lock()
	defer krl.mu.Unlock()

	e, ok := krl.entries[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(krl.limit, krl.burst)}
		krl.entries[key] = e
	}
	e.lastSeen = krl.now()
	return e.limiter
}

// Sweep drops keys idle for longer than the TTL and returns how many it dropped.
func (krl *KeyedRateLimiter) Sweep() int {
	if krl.ttl <= 0 {
		return 0
	}
	cutoff := krl.now().Add(-krl.ttl)

	krl.mu.Lock()
	defer krl.mu.Unlock()
	dropped := 0
	for key, e := range krl.entries {
		if e.lastSeen.Before(cutoff) {
			delete(krl.entries, key)
			dropped++
		}
	}
	return dropped
}

// Stop ends the background sweep.
func (krl *KeyedRateLimiter) Stop() {
	krl.stopOnce.Do(func() {
		close(krl.done)
	})
}

func (krl *KeyedRateLimiter) sweepLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			krl.Sweep()
		case <-krl.done:
			return
		}
	}
}
