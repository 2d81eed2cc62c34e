// Package ratelimit implements the in-process attempt throttle used by
// the auth endpoints. It is deliberately not distributed: the service
// runs as a single process, and a multi-instance deployment would need
// a shared store instead.
package ratelimit

import (
	"math"
	"sync"
	"time"
)

// Result is the outcome of a single Check call. RetryAfterSeconds is
// only meaningful when Allowed is false.
type Result struct {
	Allowed           bool
	RetryAfterSeconds int
}

type bucket struct {
	count     int
	resetTime time.Time
}

// Limiter counts attempts per key within a fixed window. The first
// attempt of a window sets the reset time; once the cap is reached all
// further attempts are denied until the reset time passes.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket

	maxAttempts int
	window      time.Duration
	now         func() time.Time
}

// New builds a limiter allowing maxAttempts per window per key.
func New(maxAttempts int, window time.Duration) *Limiter {
	return &Limiter{
		buckets:     make(map[string]*bucket),
		maxAttempts: maxAttempts,
		window:      window,
		now:         time.Now,
	}
}

// SetNow replaces the clock. Tests use this for determinism.
func (l *Limiter) SetNow(now func() time.Time) { l.now = now }

// Check records an attempt for key and reports whether it is allowed.
func (l *Limiter) Check(key string) Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[key]
	if !ok || now.After(b.resetTime) {
		l.buckets[key] = &bucket{count: 1, resetTime: now.Add(l.window)}
		return Result{Allowed: true}
	}
	if b.count >= l.maxAttempts {
		retry := int(math.Ceil(b.resetTime.Sub(now).Seconds()))
		if retry < 1 {
			retry = 1
		}
		return Result{Allowed: false, RetryAfterSeconds: retry}
	}
	b.count++
	return Result{Allowed: true}
}

// Sweep evicts buckets whose window has expired, bounding memory. Run
// periodically; correctness does not depend on it because Check resets
// expired buckets on its own.
func (l *Limiter) Sweep(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, b := range l.buckets {
		if now.After(b.resetTime) {
			delete(l.buckets, key)
		}
	}
}

// Len reports the number of live buckets.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}
