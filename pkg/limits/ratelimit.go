package limits

import (
	"sync"
	"time"
)

// RateLimiter tracks request rates per session with a token bucket per
// key. The zero rate (RateLimitEnabled false) makes Allow a no-op.
type RateLimiter struct {
	mu      sync.RWMutex
	buckets map[string]*tokenBucket
	limits  ResourceLimits
}

type tokenBucket struct {
	mu         sync.Mutex
	tokens     float64
	lastRefill time.Time
}

// NewRateLimiter creates a limiter enforcing the given ceilings.
func NewRateLimiter(limits ResourceLimits) *RateLimiter {
	return &RateLimiter{
		buckets: make(map[string]*tokenBucket),
		limits:  limits,
	}
}

// Allow consumes one token for key and reports whether the request may
// proceed.
func (l *RateLimiter) Allow(key string) bool {
	if !l.limits.RateLimitEnabled() {
		return true
	}

	l.mu.Lock()
	bucket, exists := l.buckets[key]
	if !exists {
		bucket = &tokenBucket{
			tokens:     float64(l.limits.Burst),
			lastRefill: time.Now(),
		}
		l.buckets[key] = bucket
	}
	l.mu.Unlock()

	return bucket.consume(l.limits)
}

func (b *tokenBucket) consume(limits ResourceLimits) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(b.lastRefill)
	refill := elapsed.Seconds() * (float64(limits.RequestsPerMinute) / 60.0)

	b.tokens = min(b.tokens+refill, float64(limits.Burst))
	b.lastRefill = now

	if b.tokens >= 1.0 {
		b.tokens--
		return true
	}
	return false
}

// Remaining returns the tokens left for key.
func (l *RateLimiter) Remaining(key string) float64 {
	l.mu.RLock()
	bucket, exists := l.buckets[key]
	l.mu.RUnlock()

	if !exists {
		return float64(l.limits.Burst)
	}

	bucket.mu.Lock()
	defer bucket.mu.Unlock()
	return bucket.tokens
}

// Reset drops the bucket for key, typically when its session ends.
func (l *RateLimiter) Reset(key string) {
	l.mu.Lock()
	delete(l.buckets, key)
	l.mu.Unlock()
}

// PruneIdle removes buckets untouched for longer than idle. The server
// calls this on a timer so abandoned sessions do not accumulate.
func (l *RateLimiter) PruneIdle(idle time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	pruned := 0
	for key, bucket := range l.buckets {
		bucket.mu.Lock()
		stale := now.Sub(bucket.lastRefill) > idle
		bucket.mu.Unlock()
		if stale {
			delete(l.buckets, key)
			pruned++
		}
	}
	return pruned
}

func min(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
