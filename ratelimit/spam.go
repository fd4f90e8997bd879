// Package ratelimit implements the per-user spam cooldown, the daily
// quota gate tied to entitlement tier, and tier resolution. The spam
// throttle follows the teacher's middleware.RateLimiter sliding-window
// shape but scoped to a single short cooldown window rather than a
// requests-per-minute budget, since spec behavior here is "reject a
// second message from the same user within N seconds," not a rate.
package ratelimit

import (
	"container/list"
	"fmt"
	"sync"
	"time"
)

// RateLimited is returned when a user is within their cooldown window.
type RateLimited struct {
	RetryAfter time.Duration
}

func (e *RateLimited) Error() string {
	return fmt.Sprintf("ratelimit: throttled, retry after %s", e.RetryAfter)
}

// SpamThrottle enforces a short per-user cooldown between messages,
// bounded to a fixed capacity via LRU-style eviction so an unbounded
// stream of distinct users can't grow the map forever.
type SpamThrottle struct {
	mu       sync.Mutex
	cooldown time.Duration
	capacity int
	entries  map[string]*list.Element
	order    *list.List // front = most recently used
}

type spamEntry struct {
	key  string
	last time.Time
}

// NewSpamThrottle builds a throttle with the given cooldown window and
// map capacity (spec default: 3s cooldown, 1000 entries).
func NewSpamThrottle(cooldown time.Duration, capacity int) *SpamThrottle {
	if cooldown <= 0 {
		cooldown = 3 * time.Second
	}
	if capacity <= 0 {
		capacity = 1000
	}
	return &SpamThrottle{
		cooldown: cooldown,
		capacity: capacity,
		entries:  make(map[string]*list.Element),
		order:    list.New(),
	}
}

// Allow records a message attempt for a user. Returns an error
// implementing RateLimited if the user is still within cooldown.
func (s *SpamThrottle) Allow(userKey string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if el, ok := s.entries[userKey]; ok {
		entry := el.Value.(*spamEntry)
		if elapsed := now.Sub(entry.last); elapsed < s.cooldown {
			return &RateLimited{RetryAfter: s.cooldown - elapsed}
		}
		entry.last = now
		s.order.MoveToFront(el)
		return nil
	}

	if s.order.Len() >= s.capacity {
		oldest := s.order.Back()
		if oldest != nil {
			s.order.Remove(oldest)
			delete(s.entries, oldest.Value.(*spamEntry).key)
		}
	}

	el := s.order.PushFront(&spamEntry{key: userKey, last: now})
	s.entries[userKey] = el
	return nil
}
