// Package memstore is a pure in-memory implementation of
// repository's interfaces, used in tests and as a no-database
// fallback mode for local development.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/sajuworks/saju-gateway/repository"
)

func profileKey(platform, userID string) string { return platform + ":" + userID }

// Store implements every repository interface over in-process maps.
type Store struct {
	mu           sync.Mutex
	profiles     map[string]repository.Profile
	conversations map[string][]repository.ConversationTurn
	interests    map[string]map[string]repository.InterestRecord
	pushLogs     []repository.PushLog
	dailyUsage   map[string]int
	billing      map[string]repository.BillingState
}

// New builds an empty in-memory store.
func New() *Store {
	return &Store{
		profiles:      make(map[string]repository.Profile),
		conversations: make(map[string][]repository.ConversationTurn),
		interests:     make(map[string]map[string]repository.InterestRecord),
		dailyUsage:    make(map[string]int),
		billing:       make(map[string]repository.BillingState),
	}
}

func (s *Store) Get(ctx context.Context, platform, userID string) (repository.Profile, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[profileKey(platform, userID)]
	return p, ok, nil
}

func (s *Store) Upsert(ctx context.Context, p repository.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[profileKey(p.Platform, p.UserID)] = p
	return nil
}

func (s *Store) ActiveSince(ctx context.Context, since time.Time) ([]repository.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []repository.Profile
	for _, p := range s.profiles {
		if p.IsActive && p.LastActive.After(since) {
			out = append(out, p)
		}
	}
	return out, nil
}

// Deactivate marks a profile inactive so it's excluded from future
// ActiveSince results, e.g. after the platform reports the user
// blocked the bot.
func (s *Store) Deactivate(ctx context.Context, platform, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := profileKey(platform, userID)
	p, ok := s.profiles[k]
	if !ok {
		return nil
	}
	p.IsActive = false
	s.profiles[k] = p
	return nil
}

func (s *Store) Append(ctx context.Context, t repository.ConversationTurn, maxTurns int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := profileKey(t.Platform, t.UserID)
	turns := append(s.conversations[k], t)
	if maxTurns > 0 && len(turns) > maxTurns {
		turns = turns[len(turns)-maxTurns:]
	}
	s.conversations[k] = turns
	return nil
}

func (s *Store) Recent(ctx context.Context, platform, userID string, n int) ([]repository.ConversationTurn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	turns := s.conversations[profileKey(platform, userID)]
	if n > 0 && len(turns) > n {
		turns = turns[len(turns)-n:]
	}
	out := make([]repository.ConversationTurn, len(turns))
	copy(out, turns)
	return out, nil
}

func (s *Store) UpsertInterest(ctx context.Context, r repository.InterestRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := profileKey(r.Platform, r.UserID)
	if s.interests[k] == nil {
		s.interests[k] = make(map[string]repository.InterestRecord)
	}
	s.interests[k][r.Category] = r
	return nil
}

func (s *Store) ListInterests(ctx context.Context, platform, userID string) ([]repository.InterestRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []repository.InterestRecord
	for _, r := range s.interests[profileKey(platform, userID)] {
		out = append(out, r)
	}
	return out, nil
}

func (s *Store) AllStaleInterests(ctx context.Context, before time.Time) ([]repository.InterestRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []repository.InterestRecord
	for _, byCategory := range s.interests {
		for _, r := range byCategory {
			if r.LastAsked.Before(before) {
				out = append(out, r)
			}
		}
	}
	return out, nil
}

func (s *Store) Record(ctx context.Context, log repository.PushLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pushLogs = append(s.pushLogs, log)
	return nil
}

// Peek satisfies ratelimit.DailyUsageStore's read-only quota check.
func (s *Store) Peek(userID string, day string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dailyUsage[userID+":"+day], nil
}

// Increment satisfies ratelimit.DailyUsageStore.
func (s *Store) Increment(userID string, day string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := userID + ":" + day
	s.dailyUsage[k]++
	return s.dailyUsage[k], nil
}

func (s *Store) GetBilling(ctx context.Context, platform, userID string) (repository.BillingState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.billing[profileKey(platform, userID)], nil
}

// SetBilling is a test/seed helper, not part of the repository interface.
func (s *Store) SetBilling(state repository.BillingState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.billing[profileKey(state.Platform, state.UserID)] = state
}

var (
	_ repository.ProfileStore      = (*Store)(nil)
	_ repository.ConversationStore = (*Store)(nil)
	_ repository.InterestStore     = (*Store)(nil)
	_ repository.PushLogStore      = (*Store)(nil)
	_ repository.DailyUsageStore   = (*Store)(nil)
	_ repository.BillingStore      = (*Store)(nil)
)
