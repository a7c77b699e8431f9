package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// JSON stores JSON documents in Redis under a key prefix with a sliding TTL.
type JSON struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewJSON constructs a JSON store. A zero ttl keeps keys forever.
func NewJSON(client *redis.Client, prefix string, ttl time.Duration) *JSON {
	return &JSON{client: client, prefix: prefix, ttl: ttl}
}

// Key returns the namespaced key for id.
func (c *JSON) Key(id string) string {
	if c.prefix == "" {
		return id
	}
	return c.prefix + ":" + id
}

// Get unmarshals the document into dst and reports whether it existed.
func (c *JSON) Get(ctx context.Context, id string, dst any) (bool, error) {
	if c == nil || c.client == nil || id == "" {
		return false, nil
	}
	data, err := c.client.Get(ctx, c.Key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, err
	}
	return true, nil
}

// Set serialises v and refreshes the TTL.
func (c *JSON) Set(ctx context.Context, id string, v any) error {
	if c == nil || c.client == nil {
		return errors.New("cache: redis client not configured")
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.Key(id), data, c.ttl).Err()
}

// Delete removes the document.
func (c *JSON) Delete(ctx context.Context, id string) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Del(ctx, c.Key(id)).Err()
}
