package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter is a distributed per-tenant sliding-window counter backed by
// Redis INCR + EXPIRE, for gateway deployments that run more than one
// process in front of the same tenant data (outside this spec's single-
// process scope, but the counter itself doesn't care).
type RedisLimiter struct {
	rdb *redis.Client
}

// NewRedisLimiter wraps an existing Redis client.
func NewRedisLimiter(rdb *redis.Client) *RedisLimiter {
	return &RedisLimiter{rdb: rdb}
}

// Allow mirrors Limiter.Allow's contract over Redis: INCR the per-tenant
// key, set its TTL to the window on first increment, and report remaining
// budget.
func (l *RedisLimiter) Allow(ctx context.Context, tenantID string, limit int) (Decision, error) {
	if limit <= 0 {
		return Decision{Allowed: true, Limit: limit}, nil
	}

	key := fmt.Sprintf("libervia:ratelimit:%s", tenantID)
	window := time.Duration(WindowMs) * time.Millisecond

	count, err := l.rdb.Incr(ctx, key).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("incrementing rate limit counter: %w", err)
	}
	if count == 1 {
		if err := l.rdb.Expire(ctx, key, window).Err(); err != nil {
			return Decision{}, fmt.Errorf("setting rate limit expiry: %w", err)
		}
	}

	ttl, err := l.rdb.TTL(ctx, key).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("reading rate limit TTL: %w", err)
	}
	resetAt := time.Now().Add(ttl)

	if count > int64(limit) {
		return Decision{Allowed: false, Limit: limit, Remaining: 0, ResetAt: resetAt}, nil
	}
	remaining := limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return Decision{Allowed: true, Limit: limit, Remaining: remaining, ResetAt: resetAt}, nil
}
