// Package pending implements the single-slot pending-action store: at
// most one outstanding action per (platform, user, action_type), used
// to remember that the bot asked a follow-up question (e.g. "누구와의
//궁합이 궁금하세요?") and is waiting on the next message to complete
// it. Storage follows the teacher's Redis-with-in-memory-fallback
// posture (see redisclient.Client / config's optional REDIS_URL) via a
// common Store interface so callers don't care which backend is live.
package pending

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// Action is a single pending follow-up awaiting the user's next message.
type Action struct {
	Platform   string
	UserID     string
	ActionType string
	Payload    json.RawMessage
	CreatedAt  time.Time
	ExpiresAt  time.Time
}

func key(platform, userID, actionType string) string {
	return fmt.Sprintf("pending:%s:%s:%s", platform, userID, actionType)
}

// Store is the pending-action persistence interface.
type Store interface {
	Set(ctx context.Context, a Action) error
	Get(ctx context.Context, platform, userID, actionType string) (Action, bool, error)
	Delete(ctx context.Context, platform, userID, actionType string) error
	Sweep(ctx context.Context, now time.Time) (int, error)
}

// DefaultTTL is the spec's default pending-action lifetime.
const DefaultTTL = 10 * time.Minute

// MemStore is an in-memory Store, used when Redis isn't configured.
type MemStore struct {
	mu      sync.Mutex
	actions map[string]Action
}

// NewMemStore builds an in-memory pending-action store.
func NewMemStore() *MemStore {
	return &MemStore{actions: make(map[string]Action)}
}

// Set upserts a pending action using delete-then-insert so only one
// action per (platform,user,action_type) ever exists — a new Set
// against the same key silently replaces whatever's pending.
func (m *MemStore) Set(ctx context.Context, a Action) error {
	if a.ExpiresAt.IsZero() {
		a.ExpiresAt = a.CreatedAt.Add(DefaultTTL)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.actions[key(a.Platform, a.UserID, a.ActionType)] = a
	return nil
}

// Get returns the latest non-expired pending action for the key, if any.
func (m *MemStore) Get(ctx context.Context, platform, userID, actionType string) (Action, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.actions[key(platform, userID, actionType)]
	if !ok {
		return Action{}, false, nil
	}
	if time.Now().After(a.ExpiresAt) {
		delete(m.actions, key(platform, userID, actionType))
		return Action{}, false, nil
	}
	return a, true, nil
}

// Delete removes a pending action.
func (m *MemStore) Delete(ctx context.Context, platform, userID, actionType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.actions, key(platform, userID, actionType))
	return nil
}

// Sweep deletes all expired actions and returns the count removed.
func (m *MemStore) Sweep(ctx context.Context, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for k, a := range m.actions {
		if now.After(a.ExpiresAt) {
			delete(m.actions, k)
			removed++
		}
	}
	return removed, nil
}
