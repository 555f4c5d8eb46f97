package util

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter wraps rate.Limiter to provide a simpler interface.
type Limiter struct {
	inner *rate.Limiter
}

// NewLimiter creates a new token bucket limiter.
// r: tokens per second.
// b: burst size.
func NewLimiter(r float64, b int) *Limiter {
	return &Limiter{
		inner: rate.NewLimiter(rate.Limit(r), b),
	}
}

// NewIntervalLimiter allows one event per interval; a non-positive interval never blocks.
func NewIntervalLimiter(interval time.Duration) *Limiter {
	if interval <= 0 {
		return &Limiter{inner: rate.NewLimiter(rate.Inf, 1)}
	}
	return &Limiter{inner: rate.NewLimiter(rate.Every(interval), 1)}
}

// Allow reports whether an event with weight n may happen now.
func (l *Limiter) Allow(n int) bool {
	return l.inner.AllowN(time.Now(), n)
}

// Wait blocks until n tokens are available.
func (l *Limiter) Wait(ctx context.Context, n int) error {
	return l.inner.WaitN(ctx, n)
}

// ClientLimiters hands out one limiter per client key and forgets idle ones.
type ClientLimiters struct {
	mu       sync.Mutex
	limiters map[string]*clientEntry
	rate     float64
	burst    int
	ttl      time.Duration
}

type clientEntry struct {
	limiter  *Limiter
	lastUsed time.Time
}

func NewClientLimiters(r float64, b int, ttl time.Duration) *ClientLimiters {
	return &ClientLimiters{
		limiters: make(map[string]*clientEntry),
		rate:     r,
		burst:    b,
		ttl:      ttl,
	}
}

func (c *ClientLimiters) Get(key string) *Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	entry, ok := c.limiters[key]
	if !ok {
		entry = &clientEntry{limiter: NewLimiter(c.rate, c.burst)}
		c.limiters[key] = entry
	}
	entry.lastUsed = now
	return entry.limiter
}

// Run evicts idle limiters until ctx is done.
func (c *ClientLimiters) Run(ctx context.Context) {
	interval := c.ttl / 2
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.evictIdle(time.Now())
		}
	}
}

func (c *ClientLimiters) evictIdle(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, entry := range c.limiters {
		if now.Sub(entry.lastUsed) > c.ttl {
			delete(c.limiters, key)
		}
	}
}

func (c *ClientLimiters) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.limiters)
}
