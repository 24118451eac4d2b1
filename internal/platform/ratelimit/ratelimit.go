// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package ratelimit implements the transport-level attempt budget for sensitive
endpoints such as login.

It counts every attempt from a source (client IP) in a fixed window stored in
Redis, so the budget is shared by every API replica. Per-account lockout is a
separate concern handled by the auth service.
*/
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrUnavailable wraps Redis failures so callers can decide to fail open.
var ErrUnavailable = errors.New("ratelimit: backend unavailable")

// Decision is the outcome of a single [FixedWindow.Allow] call.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// FixedWindow allows Limit hits per key within Window.
type FixedWindow struct {
	redis  redis.UniversalClient
	prefix string
	limit  int
	window time.Duration
}

// NewFixedWindow creates a [FixedWindow] limiter storing counters under prefix.
func NewFixedWindow(client redis.UniversalClient, prefix string, limit int, window time.Duration) *FixedWindow {
	return &FixedWindow{
		redis:  client,
		prefix: prefix,
		limit:  limit,
		window: window,
	}
}

// Allow records one hit for key and reports whether it fits the budget.
func (limiter *FixedWindow) Allow(ctx context.Context, key string) (Decision, error) {
	redisKey := limiter.prefix + key

	count, err := limiter.redis.Incr(ctx, redisKey).Result()
	if err != nil {
		return Decision{Allowed: true}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	// Fixed-window semantics: the first hit opens the window.
	if count == 1 {
		if err := limiter.redis.PExpire(ctx, redisKey, limiter.window).Err(); err != nil {
			return Decision{Allowed: true}, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}

	if count <= int64(limiter.limit) {
		return Decision{Allowed: true, Remaining: limiter.limit - int(count)}, nil
	}

	ttl, err := limiter.redis.PTTL(ctx, redisKey).Result()
	if err != nil || ttl <= 0 {
		// A key without expiry would block the source forever.
		_ = limiter.redis.PExpire(ctx, redisKey, limiter.window).Err()
		ttl = limiter.window
	}

	return Decision{Allowed: false, RetryAfter: ttl}, nil
}

// Reset clears the counter for key.
func (limiter *FixedWindow) Reset(ctx context.Context, key string) error {
	if err := limiter.redis.Del(ctx, limiter.prefix+key).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
