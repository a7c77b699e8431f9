package ratelimit

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Limiter is a sliding-window counter over a Redis sorted set. Every call
// records one hit scored by its timestamp; hits older than the window are
// trimmed before counting.
type Limiter struct {
	Client *redis.Client
	Prefix string
}

// Allow records a hit for key and reports whether it fits within limit.
func (l Limiter) Allow(ctx context.Context, key string, window time.Duration, limit int) (allowed bool, remaining int, reset time.Time, err error) {
	now := time.Now()
	reset = now.Add(window)
	if l.Client == nil || limit <= 0 || window <= 0 {
		return true, limit, reset, nil
	}

	redisKey := l.Prefix + key
	pipe := l.Client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "-inf", strconv.FormatInt(now.Add(-window).UnixNano(), 10))
	pipe.ZAdd(ctx, redisKey, redis.Z{Score: float64(now.UnixNano()), Member: uuid.NewString()})
	count := pipe.ZCard(ctx, redisKey)
	pipe.Expire(ctx, redisKey, window)
	if _, err = pipe.Exec(ctx); err != nil {
		return false, 0, reset, err
	}

	hits := int(count.Val())
	return hits <= limit, max(limit-hits, 0), reset, nil
}

// SlidingWindow applies Limiter with a fixed budget.
type SlidingWindow struct {
	Limiter Limiter
	Window  time.Duration
	Max     int
}

// Allow implements Allower.
func (s SlidingWindow) Allow(ctx context.Context, key string) (Decision, error) {
	allowed, remaining, reset, err := s.Limiter.Allow(ctx, key, s.Window, s.Max)
	return Decision{Allowed: allowed, Limit: s.Max, Remaining: remaining, Reset: reset}, err
}
