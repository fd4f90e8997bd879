package pillar

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/sajuworks/saju-gateway/redisclient"
)

// Cache stores computed charts keyed by birth input so repeated
// questions about the same profile skip recomputation. Entries are
// immutable once written — a chart for a given birth moment never
// changes — so there is no invalidation path, only fill-on-miss.
type Cache struct {
	redis *redisclient.Client
	mem   sync.Map
}

// NewCache builds a chart cache. redis may be nil, in which case the
// cache runs purely in-memory for the life of the process.
func NewCache(redis *redisclient.Client) *Cache {
	return &Cache{redis: redis}
}

func cacheKey(in BirthInput) string {
	return fmt.Sprintf("pillar:%d-%02d-%02d:%02d%02d:%s:%s", in.Year, in.Month, in.Day, in.Hour, in.Minute, in.Gender, in.Calendar)
}

// Get returns a previously cached chart, if any.
func (c *Cache) Get(ctx context.Context, in BirthInput) (Pillars, bool) {
	key := cacheKey(in)

	if v, ok := c.mem.Load(key); ok {
		return v.(Pillars), true
	}

	if c.redis != nil {
		if raw, ok, err := c.redis.Get(ctx, key); err == nil && ok {
			var p Pillars
			if jsonErr := json.Unmarshal([]byte(raw), &p); jsonErr == nil {
				c.mem.Store(key, p)
				return p, true
			}
		}
	}

	return Pillars{}, false
}

// Put stores a computed chart. Errors writing through to Redis are
// swallowed — the in-memory copy still serves this process.
func (c *Cache) Put(ctx context.Context, in BirthInput, p Pillars) {
	key := cacheKey(in)
	c.mem.Store(key, p)

	if c.redis != nil {
		if raw, err := json.Marshal(p); err == nil {
			_ = c.redis.Set(ctx, key, string(raw), 0)
		}
	}
}

// ComputeCached computes (or returns the cached) chart for a birth input.
func ComputeCached(ctx context.Context, cache *Cache, in BirthInput) (Pillars, error) {
	if cache != nil {
		if p, ok := cache.Get(ctx, in); ok {
			return p, nil
		}
	}
	p, err := Compute(ctx, in)
	if err != nil {
		return Pillars{}, err
	}
	if cache != nil {
		cache.Put(ctx, in, p)
	}
	return p, nil
}
