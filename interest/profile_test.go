package interest

import (
	"context"
	"testing"
	"time"
)

func TestTrackerRecordAccumulates(t *testing.T) {
	tr := NewTracker()
	now := time.Now()

	tr.Record(context.Background(), "u1", []Category{CategoryWealth}, now)
	tr.Record(context.Background(), "u1", []Category{CategoryWealth}, now.Add(time.Minute))

	top := tr.Top("u1", 1)
	if len(top) != 1 {
		t.Fatalf("expected 1 record, got %d", len(top))
	}
	if top[0].AskCount != 2 || top[0].WeightedCount != 4 {
		t.Fatalf("expected ask_count=2 weighted_count=4, got %+v", top[0])
	}
}

func TestTrackerTopRanksByWeight(t *testing.T) {
	tr := NewTracker()
	now := time.Now()

	tr.Record(context.Background(), "u1", []Category{CategoryWealth}, now)
	tr.Record(context.Background(), "u1", []Category{CategoryCareer}, now)
	tr.Record(context.Background(), "u1", []Category{CategoryCareer}, now)

	top := tr.Top("u1", 1)
	if len(top) != 1 || top[0].Category != CategoryCareer {
		t.Fatalf("expected career to rank first, got %+v", top)
	}
}

func TestTrackerNormalizedScoresSumTo100(t *testing.T) {
	tr := NewTracker()
	now := time.Now()

	tr.Record(context.Background(), "u1", []Category{CategoryWealth}, now)
	tr.Record(context.Background(), "u1", []Category{CategoryCareer}, now)

	scores := tr.NormalizedScores("u1")
	total := 0.0
	for _, s := range scores {
		total += s
	}
	if total < 99.99 || total > 100.01 {
		t.Fatalf("expected scores to sum to 100, got %f", total)
	}
}

func TestTrackerDecayShrinksStaleRecords(t *testing.T) {
	tr := NewTracker()
	old := time.Now().Add(-10 * 24 * time.Hour)
	tr.Record(context.Background(), "u1", []Category{CategoryWealth}, old)

	decayed := tr.Decay(time.Now(), 7*24*time.Hour)
	if decayed != 1 {
		t.Fatalf("expected 1 decayed record, got %d", decayed)
	}

	top := tr.Top("u1", 1)
	if top[0].WeightedCount != 1.4 {
		t.Fatalf("expected weighted_count 1.4 after decay, got %f", top[0].WeightedCount)
	}
}

func TestTrackerUnknownUserReturnsNil(t *testing.T) {
	tr := NewTracker()
	if top := tr.Top("ghost", 5); top != nil {
		t.Fatalf("expected nil for unknown user, got %v", top)
	}
	if scores := tr.NormalizedScores("ghost"); scores != nil {
		t.Fatalf("expected nil scores for unknown user, got %v", scores)
	}
}
