package ratelimit

import "time"

// Tier is an entitlement level granting a daily turn quota.
type Tier string

const (
	TierFree    Tier = "free"
	TierBasic   Tier = "basic"
	TierPremium Tier = "premium"
)

// DailyLimit returns the tier's daily turn quota.
func (t Tier) DailyLimit() int {
	switch t {
	case TierPremium:
		return 9999
	case TierBasic:
		return 10
	default:
		return 3
	}
}

// Profile is the subset of a user's account state needed to resolve
// their entitlement tier.
type Profile struct {
	PremiumUntil     time.Time
	HasSubscription  bool
	Credits          int
}

// ResolveTier picks the tier in priority order: an unexpired premium
// flag, an active subscription row, positive credit balance (basic),
// otherwise free.
func ResolveTier(p Profile, now time.Time) Tier {
	if !p.PremiumUntil.IsZero() && p.PremiumUntil.After(now) {
		return TierPremium
	}
	if p.HasSubscription {
		return TierPremium
	}
	if p.Credits > 0 {
		return TierBasic
	}
	return TierFree
}

// QuotaExceeded is returned when a user has exhausted their daily turns.
type QuotaExceeded struct {
	Tier  Tier
	Limit int
	Used  int
}

func (e *QuotaExceeded) Error() string {
	return "ratelimit: daily quota exceeded for tier " + string(e.Tier)
}

// DailyUsageStore tracks how many turns a user has used on a given
// calendar day (KST). Implementations: repository.DailyUsageStore
// (persistent) or an in-memory map for tests.
type DailyUsageStore interface {
	// Peek reports today's usage without incrementing it.
	Peek(userID string, day string) (int, error)
	Increment(userID string, day string) (int, error)
}

// CheckQuota reports QuotaExceeded if the tier's daily limit has
// already been reached, without consuming a turn. Call Consume only
// after the turn actually completes successfully — spec requires
// daily-usage counters to advance on successful completion, not on
// attempt.
func CheckQuota(store DailyUsageStore, userID string, day string, tier Tier) error {
	used, err := store.Peek(userID, day)
	if err != nil {
		return err
	}
	limit := tier.DailyLimit()
	if used >= limit {
		return &QuotaExceeded{Tier: tier, Limit: limit, Used: used}
	}
	return nil
}

// Consume records one completed turn against today's usage.
func Consume(store DailyUsageStore, userID string, day string) error {
	_, err := store.Increment(userID, day)
	return err
}
