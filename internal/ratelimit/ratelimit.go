// Package ratelimit provides a per-key token bucket for throttling PIN
// submissions by client address.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter is a small in-memory token bucket rate limiter keyed by client.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket

	rate  float64
	burst float64

	now func() time.Time
}

type bucket struct {
	tokens float64
	last   time.Time
}

// New returns a limiter that refills at rate tokens/second up to burst capacity.
func New(rate float64, burst int) *Limiter {
	return &Limiter{
		buckets: make(map[string]*bucket),
		rate:    rate,
		burst:   float64(burst),
		now:     time.Now,
	}
}

// PerMinute returns a limiter allowing n requests a minute with a burst of
// a fifth of that (at least one).
func PerMinute(n int) *Limiter {
	burst := n / 5
	if burst < 1 {
		burst = 1
	}
	return New(float64(n)/60, burst)
}

// Allow reports whether a request for key should be allowed right now.
func (l *Limiter) Allow(key string) bool {
	if key == "" {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: l.burst, last: now}
		l.buckets[key] = b
	}

	if elapsed := now.Sub(b.last).Seconds(); elapsed > 0 {
		b.tokens = min(l.burst, b.tokens+elapsed*l.rate)
		b.last = now
	}

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// RetryAfter is how long until key has a token again. Zero when it has one.
func (l *Limiter) RetryAfter(key string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok || l.rate <= 0 {
		return 0
	}
	tokens := min(l.burst, b.tokens+l.now().Sub(b.last).Seconds()*l.rate)
	if tokens >= 1 {
		return 0
	}
	return time.Duration((1 - tokens) / l.rate * float64(time.Second))
}

// Sweep drops buckets idle for longer than maxIdle and returns how many
// went. A full bucket carries no state, so dropping it changes nothing.
func (l *Limiter) Sweep(maxIdle time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-maxIdle)
	n := 0
	for key, b := range l.buckets {
		if b.last.Before(cutoff) {
			delete(l.buckets, key)
			n++
		}
	}
	return n
}


