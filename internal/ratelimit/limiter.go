package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "ratelimit:"

// Result describes the outcome of a rate limit check
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// Limiter is a fixed-window request counter stored in Redis
type Limiter struct {
	client redis.Cmdable
	limit  int
	window time.Duration
	now    func() time.Time
}

// NewLimiter allows limit requests per key in each window
func NewLimiter(client redis.Cmdable, limit int, window time.Duration) *Limiter {
	return &Limiter{
		client: client,
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

// Allow counts a request against key and reports whether it is within the limit
func (l *Limiter) Allow(ctx context.Context, key string) (Result, error) {
	now := l.now()
	windowStart := now.Truncate(l.window)
	redisKey := keyPrefix + key + ":" + strconv.FormatInt(windowStart.Unix(), 10)

	var incr *redis.IntCmd
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, redisKey)
		pipe.Expire(ctx, redisKey, l.window)
		return nil
	})
	if err != nil {
		return Result{}, fmt.Errorf("failed to increment rate limit counter: %w", err)
	}

	count := int(incr.Val())
	res := Result{
		Allowed:   count <= l.limit,
		Limit:     l.limit,
		Remaining: l.limit - count,
	}
	if res.Remaining < 0 {
		res.Remaining = 0
	}
	if !res.Allowed {
		res.RetryAfter = windowStart.Add(l.window).Sub(now)
	}
	return res, nil
}
