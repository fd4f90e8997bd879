package interest

import (
	"context"
	"sync"
	"time"
)

// Record is one user's running interest in a single category.
type Record struct {
	Category      Category
	AskCount      int
	WeightedCount float64
	LastAsked     time.Time
}

// Tracker maintains per-user, per-category interest records.
// NormalizedScores computes a normalized score (summing to 100 across a
// user's categories) on each call, and Decay shrinks stale records when
// a caller invokes it; the Tracker does not schedule Decay itself.
type Tracker struct {
	mu      sync.Mutex
	byUser  map[string]map[Category]*Record
}

// NewTracker builds an in-memory interest tracker. Persistence beyond
// process lifetime is the caller's responsibility via repository.InterestStore.
func NewTracker() *Tracker {
	return &Tracker{byUser: make(map[string]map[Category]*Record)}
}

// Record upserts an ask event for a user's category: ask_count += 1,
// weighted_count += 2, last_asked = now.
func (t *Tracker) Record(ctx context.Context, userID string, categories []Category, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	cats, ok := t.byUser[userID]
	if !ok {
		cats = make(map[Category]*Record)
		t.byUser[userID] = cats
	}

	for _, cat := range categories {
		r, ok := cats[cat]
		if !ok {
			r = &Record{Category: cat}
			cats[cat] = r
		}
		r.AskCount++
		r.WeightedCount += 2
		r.LastAsked = now
	}
}

// Top returns a user's categories ranked by weighted count, descending.
func (t *Tracker) Top(userID string, n int) []Record {
	t.mu.Lock()
	defer t.mu.Unlock()

	cats, ok := t.byUser[userID]
	if !ok {
		return nil
	}

	records := make([]Record, 0, len(cats))
	for _, r := range cats {
		records = append(records, *r)
	}
	for i := 1; i < len(records); i++ {
		for j := i; j > 0 && records[j].WeightedCount > records[j-1].WeightedCount; j-- {
			records[j], records[j-1] = records[j-1], records[j]
		}
	}
	if n > 0 && n < len(records) {
		records = records[:n]
	}
	return records
}

// NormalizedScores returns each category's weighted_count as a
// percentage of the user's total, summing to 100.
func (t *Tracker) NormalizedScores(userID string) map[Category]float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	cats, ok := t.byUser[userID]
	if !ok {
		return nil
	}

	total := 0.0
	for _, r := range cats {
		total += r.WeightedCount
	}
	if total == 0 {
		return nil
	}

	out := make(map[Category]float64, len(cats))
	for cat, r := range cats {
		out[cat] = (r.WeightedCount / total) * 100
	}
	return out
}

// Decay shrinks weighted_count by 30% for any record not asked about
// in more than staleAfter (spec: 7 days). The sajuctl decay command
// applies the same 30% rule to persisted records through the
// repository; it does not call this method.
func (t *Tracker) Decay(now time.Time, staleAfter time.Duration) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	decayed := 0
	for _, cats := range t.byUser {
		for _, r := range cats {
			if now.Sub(r.LastAsked) > staleAfter {
				r.WeightedCount *= 0.7
				decayed++
			}
		}
	}
	return decayed
}
