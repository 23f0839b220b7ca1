package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// idleTTL is how long an unused per-key limiter is kept around.
const idleTTL = 10 * time.Minute

type keyedEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// KeyedLimiter keeps one token bucket per key, typically a client IP.
type KeyedLimiter struct {
	mu       sync.Mutex
	limiters map[string]*keyedEntry
	rate     rate.Limit
	burst    int
	now      func() time.Time
}

// NewPerMinute allows perMinute events per key per minute with an equal burst.
func NewPerMinute(perMinute int) *KeyedLimiter {
	if perMinute <= 0 {
		return NewKeyed(rate.Inf, 1)
	}
	return NewKeyed(rate.Every(time.Minute/time.Duration(perMinute)), perMinute)
}

// NewKeyed creates a limiter that allows r events per second per key.
func NewKeyed(r rate.Limit, burst int) *KeyedLimiter {
	return &KeyedLimiter{
		limiters: make(map[string]*keyedEntry),
		rate:     r,
		burst:    burst,
		now:      time.Now,
	}
}

// Allow reports whether an event for key may happen now.
func (k *KeyedLimiter) Allow(key string) bool {
	return k.get(key).Allow()
}

func (k *KeyedLimiter) get(key string) *rate.Limiter {
	k.mu.Lock()
	defer k.mu.Unlock()

	entry, exists := k.limiters[key]
	if !exists {
		entry = &keyedEntry{limiter: rate.NewLimiter(k.rate, k.burst)}
		k.limiters[key] = entry
	}
	entry.lastSeen = k.now()
	return entry.limiter
}

// Len returns the number of tracked keys.
func (k *KeyedLimiter) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.limiters)
}

// Sweep evicts keys not seen within idleTTL.
func (k *KeyedLimiter) Sweep() {
	k.mu.Lock()
	defer k.mu.Unlock()
	cutoff := k.now().Add(-idleTTL)
	for key, entry := range k.limiters {
		if entry.lastSeen.Before(cutoff) {
			delete(k.limiters, key)
		}
	}
}

// RunCleanup sweeps idle keys every minute until ctx is done.
func (k *KeyedLimiter) RunCleanup(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			k.Sweep()
		}
	}
}
