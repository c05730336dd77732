package rediscache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimitResult is the outcome of a rate limit check.
type RateLimitResult struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// RateLimitStore abstracts the rate limit counter backend so the HTTP
// middleware can run against Redis in production and an in-memory fake in
// tests.
type RateLimitStore interface {
	// IncrementAndCheck atomically increments the counter for key and
	// reports whether the caller is still within limit for the window.
	IncrementAndCheck(ctx context.Context, key string, limit int, window time.Duration) (RateLimitResult, error)
}

// RateLimiter implements RateLimitStore with a Redis fixed window: INCR the
// key, set its expiry on first increment, and deny once the count exceeds
// the limit.
type RateLimiter struct {
	rdb *redis.Client
}

// NewRateLimiter creates a Redis-backed rate limit store.
func NewRateLimiter(rdb *redis.Client) *RateLimiter {
	return &RateLimiter{rdb: rdb}
}

func (l *RateLimiter) IncrementAndCheck(ctx context.Context, key string, limit int, window time.Duration) (RateLimitResult, error) {
	rlKey := "ratelimit:" + key

	pipe := l.rdb.TxPipeline()
	incr := pipe.Incr(ctx, rlKey)
	pipe.ExpireNX(ctx, rlKey, window)
	ttl := pipe.TTL(ctx, rlKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return RateLimitResult{}, fmt.Errorf("rate limit check: %w", err)
	}

	count := int(incr.Val())
	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}

	reset := ttl.Val()
	if reset < 0 {
		reset = window
	}

	return RateLimitResult{
		Allowed:   count <= limit,
		Remaining: remaining,
		ResetAt:   time.Now().Add(reset),
	}, nil
}
