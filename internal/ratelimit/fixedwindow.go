package ratelimit

import (
	"context"
	"errors"
	"time"

	redis "github.com/redis/go-redis/v9"
	limiter "github.com/ulule/limiter/v3"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

// FixedWindow is a fixed window limiter backed by ulule/limiter. It guards
// checkout, where a hard per-minute budget reads better than a sliding one.
type FixedWindow struct {
	L *limiter.Limiter
}

// NewFixedWindow allows limit requests per period and key.
func NewFixedWindow(client *redis.Client, prefix string, period time.Duration, limit int64) (*FixedWindow, error) {
	if client == nil {
		return nil, errors.New("ratelimit: redis client not configured")
	}
	store, err := limiterredis.NewStoreWithOptions(client, limiter.StoreOptions{Prefix: prefix})
	if err != nil {
		return nil, err
	}
	return &FixedWindow{L: limiter.New(store, limiter.Rate{Period: period, Limit: limit})}, nil
}

// Allow implements Allower.
func (f *FixedWindow) Allow(ctx context.Context, key string) (Decision, error) {
	c, err := f.L.Get(ctx, key)
	if err != nil {
		return Decision{}, err
	}
	return Decision{
		Allowed:   !c.Reached,
		Limit:     int(c.Limit),
		Remaining: int(c.Remaining),
		Reset:     time.Unix(c.Reset, 0),
	}, nil
}
