package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/sajuworks/saju-gateway/repository"
)

func TestProfileUpsertAndGet(t *testing.T) {
	s := New()
	ctx := context.Background()

	p := repository.Profile{Platform: "telegram", UserID: "u1", Year: 1990, Month: 1, Day: 1}
	if err := s.Upsert(ctx, p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, ok, err := s.Get(ctx, "telegram", "u1")
	if err != nil || !ok || got.Year != 1990 {
		t.Fatalf("expected stored profile, got %+v ok=%v err=%v", got, ok, err)
	}
}

func TestActiveSinceFiltersByLastActive(t *testing.T) {
	s := New()
	ctx := context.Background()
	now := time.Now()

	_ = s.Upsert(ctx, repository.Profile{Platform: "telegram", UserID: "active", LastActive: now, IsActive: true})
	_ = s.Upsert(ctx, repository.Profile{Platform: "telegram", UserID: "stale", LastActive: now.AddDate(0, 0, -30), IsActive: true})

	profiles, err := s.ActiveSince(ctx, now.AddDate(0, 0, -7))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(profiles) != 1 || profiles[0].UserID != "active" {
		t.Fatalf("expected only the active profile, got %+v", profiles)
	}
}

func TestActiveSinceExcludesDeactivatedProfile(t *testing.T) {
	s := New()
	ctx := context.Background()
	now := time.Now()

	_ = s.Upsert(ctx, repository.Profile{Platform: "telegram", UserID: "u1", LastActive: now, IsActive: true})
	_ = s.Deactivate(ctx, "telegram", "u1")

	profiles, err := s.ActiveSince(ctx, now.AddDate(0, 0, -7))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(profiles) != 0 {
		t.Fatalf("expected deactivated profile to be excluded, got %+v", profiles)
	}
}

func TestConversationAppendPrunesToMaxTurns(t *testing.T) {
	s := New()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_ = s.Append(ctx, repository.ConversationTurn{Platform: "telegram", UserID: "u1", Role: "user", Content: "msg"}, 3)
	}

	turns, err := s.Recent(ctx, "telegram", "u1", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(turns) != 3 {
		t.Fatalf("expected pruning to 3 turns, got %d", len(turns))
	}
}

func TestInterestUpsertAndList(t *testing.T) {
	s := New()
	ctx := context.Background()

	_ = s.UpsertInterest(ctx, repository.InterestRecord{Platform: "telegram", UserID: "u1", Category: "wealth", AskCount: 1})
	_ = s.UpsertInterest(ctx, repository.InterestRecord{Platform: "telegram", UserID: "u1", Category: "wealth", AskCount: 2})

	records, err := s.ListInterests(ctx, "telegram", "u1")
	if err != nil || len(records) != 1 || records[0].AskCount != 2 {
		t.Fatalf("expected upsert to replace existing category record, got %+v err=%v", records, err)
	}
}

func TestAllStaleInterestsFiltersByLastAsked(t *testing.T) {
	s := New()
	ctx := context.Background()
	now := time.Now()

	_ = s.UpsertInterest(ctx, repository.InterestRecord{Platform: "telegram", UserID: "u1", Category: "wealth", LastAsked: now.AddDate(0, 0, -10)})
	_ = s.UpsertInterest(ctx, repository.InterestRecord{Platform: "telegram", UserID: "u1", Category: "career", LastAsked: now})

	stale, err := s.AllStaleInterests(ctx, now.AddDate(0, 0, -7))
	if err != nil || len(stale) != 1 || stale[0].Category != "wealth" {
		t.Fatalf("expected only the stale category, got %+v err=%v", stale, err)
	}
}

func TestIncrementAccumulatesPerDay(t *testing.T) {
	s := New()
	if n, err := s.Increment("u1", "2026-07-31"); err != nil || n != 1 {
		t.Fatalf("expected first increment to return 1, got %d err=%v", n, err)
	}
	if n, err := s.Increment("u1", "2026-07-31"); err != nil || n != 2 {
		t.Fatalf("expected second increment to return 2, got %d err=%v", n, err)
	}
	if n, err := s.Increment("u1", "2026-08-01"); err != nil || n != 1 {
		t.Fatalf("expected a new day to restart the counter, got %d err=%v", n, err)
	}
}

func TestBillingSetAndGet(t *testing.T) {
	s := New()
	ctx := context.Background()
	s.SetBilling(repository.BillingState{Platform: "telegram", UserID: "u1", Credits: 5})

	state, err := s.GetBilling(ctx, "telegram", "u1")
	if err != nil || state.Credits != 5 {
		t.Fatalf("expected stored billing state, got %+v err=%v", state, err)
	}
}

func TestPushLogRecord(t *testing.T) {
	s := New()
	ctx := context.Background()
	if err := s.Record(ctx, repository.PushLog{Platform: "telegram", UserID: "u1", Status: repository.PushSuccess}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s.pushLogs) != 1 {
		t.Fatalf("expected 1 push log recorded, got %d", len(s.pushLogs))
	}
}
