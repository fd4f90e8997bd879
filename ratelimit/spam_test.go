package ratelimit

import (
	"testing"
	"time"
)

func TestSpamThrottleBlocksWithinCooldown(t *testing.T) {
	s := NewSpamThrottle(3*time.Second, 10)
	now := time.Now()

	if err := s.Allow("u1", now); err != nil {
		t.Fatalf("expected first message to be allowed, got %v", err)
	}
	if err := s.Allow("u1", now.Add(time.Second)); err == nil {
		t.Fatal("expected second message within cooldown to be rejected")
	}
}

func TestSpamThrottleAllowsAfterCooldown(t *testing.T) {
	s := NewSpamThrottle(3*time.Second, 10)
	now := time.Now()

	_ = s.Allow("u1", now)
	if err := s.Allow("u1", now.Add(4*time.Second)); err != nil {
		t.Fatalf("expected message after cooldown to be allowed, got %v", err)
	}
}

func TestSpamThrottleEvictsLeastRecentlyUsed(t *testing.T) {
	s := NewSpamThrottle(time.Millisecond, 2)
	now := time.Now()

	_ = s.Allow("u1", now)
	_ = s.Allow("u2", now)
	_ = s.Allow("u3", now) // evicts u1, capacity is 2

	// u1 should be treated as new again since it was evicted.
	if err := s.Allow("u1", now); err != nil {
		t.Fatalf("expected evicted user to be allowed as new, got %v", err)
	}
}

func TestSpamThrottleDefaults(t *testing.T) {
	s := NewSpamThrottle(0, 0)
	if s.cooldown != 3*time.Second {
		t.Fatalf("expected default cooldown 3s, got %v", s.cooldown)
	}
	if s.capacity != 1000 {
		t.Fatalf("expected default capacity 1000, got %d", s.capacity)
	}
}
