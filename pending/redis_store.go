package pending

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sajuworks/saju-gateway/redisclient"
)

// RedisStore is a Redis-backed Store, preferred when REDIS_URL is
// configured so pending actions survive process restarts and are
// shared across multiple gateway instances.
type RedisStore struct {
	client *redisclient.Client
	seen   MemStore // local index so Sweep can enumerate keys Redis TTL already evicted lazily
}

// NewRedisStore builds a Redis-backed pending-action store.
func NewRedisStore(client *redisclient.Client) *RedisStore {
	return &RedisStore{client: client, seen: MemStore{actions: make(map[string]Action)}}
}

func (r *RedisStore) Set(ctx context.Context, a Action) error {
	if a.ExpiresAt.IsZero() {
		a.ExpiresAt = a.CreatedAt.Add(DefaultTTL)
	}
	raw, err := json.Marshal(a)
	if err != nil {
		return err
	}
	ttl := time.Until(a.ExpiresAt)
	if ttl <= 0 {
		ttl = time.Second
	}
	k := key(a.Platform, a.UserID, a.ActionType)
	if err := r.client.Set(ctx, k, string(raw), ttl); err != nil {
		return err
	}
	r.seen.mu.Lock()
	r.seen.actions[k] = a
	r.seen.mu.Unlock()
	return nil
}

func (r *RedisStore) Get(ctx context.Context, platform, userID, actionType string) (Action, bool, error) {
	k := key(platform, userID, actionType)
	raw, ok, err := r.client.Get(ctx, k)
	if err != nil {
		return Action{}, false, err
	}
	if !ok {
		return Action{}, false, nil
	}
	var a Action
	if err := json.Unmarshal([]byte(raw), &a); err != nil {
		return Action{}, false, err
	}
	return a, true, nil
}

func (r *RedisStore) Delete(ctx context.Context, platform, userID, actionType string) error {
	k := key(platform, userID, actionType)
	r.seen.mu.Lock()
	delete(r.seen.actions, k)
	r.seen.mu.Unlock()
	return r.client.Del(ctx, k)
}

// Sweep relies on Redis TTL for actual expiry; this only prunes the
// local bookkeeping index used to avoid scanning Redis keyspace.
func (r *RedisStore) Sweep(ctx context.Context, now time.Time) (int, error) {
	return r.seen.Sweep(ctx, now)
}
