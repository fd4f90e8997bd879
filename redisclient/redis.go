package redisclient

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sajuworks/saju-gateway/config"
)

// Client wraps a redis.Client for the small set of operations the
// pending-action store and pillar cache need.
type Client struct {
	c *redis.Client
}

// New creates a Redis client from the provided config. Returns an error
// if the Redis URL cannot be parsed or is not set; callers should treat
// that as "Redis unavailable" and fall back to an in-memory store.
func New(cfg *config.Config) (*Client, error) {
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("REDIS_URL not configured")
	}
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	return &Client{c: redis.NewClient(opt)}, nil
}

// Ping verifies connectivity with a short timeout.
func (r *Client) Ping() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return r.c.Ping(ctx).Err()
}

// Raw exposes the underlying redis.Client for callers that need
// operations beyond this thin wrapper (e.g. INCR, pipelines).
func (r *Client) Raw() *redis.Client { return r.c }

// Set stores value under key with the given TTL. ttl <= 0 means no
// expiry.
func (r *Client) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.c.Set(ctx, key, value, ttl).Err()
}

// Get returns the value for key, and false if the key does not exist.
func (r *Client) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := r.c.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// Del removes one or more keys.
func (r *Client) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return r.c.Del(ctx, keys...).Err()
}

// Incr increments key by 1 (creating it if absent), sets the key's TTL
// to ttl on every call, and returns the new value.
func (r *Client) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	pipe := r.c.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

// Close releases the underlying connection pool.
func (r *Client) Close() error {
	return r.c.Close()
}
