package redishandler

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

type LimitResult struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetIn   time.Duration
}

// FixedWindowLimiter counts requests per key in windows that start at the
// first request and last for window.
type FixedWindowLimiter struct {
	rdb    *redis.Client
	limit  int
	window time.Duration
	prefix string
}

func NewFixedWindowLimiter(rdb *redis.Client, limit int, window time.Duration) *FixedWindowLimiter {
	return &FixedWindowLimiter{rdb: rdb, limit: limit, window: window, prefix: "ratelimit:"}
}

func (l *FixedWindowLimiter) Allow(ctx context.Context, key string) (LimitResult, error) {
	k := l.prefix + key
	n, err := l.rdb.Incr(ctx, k).Result()
	if err != nil {
		return LimitResult{}, err
	}

	ttl, err := l.rdb.PTTL(ctx, k).Result()
	if err != nil {
		return LimitResult{}, err
	}
	// -1 means the counter has no expiry yet (first hit, or a lost EXPIRE).
	if n == 1 || ttl < 0 {
		if err := l.rdb.PExpire(ctx, k, l.window).Err(); err != nil {
			return LimitResult{}, err
		}
		ttl = l.window
	}

	remaining := l.limit - int(n)
	if remaining < 0 {
		remaining = 0
	}
	return LimitResult{
		Allowed:   int(n) <= l.limit,
		Limit:     l.limit,
		Remaining: remaining,
		ResetIn:   ttl,
	}, nil
}
