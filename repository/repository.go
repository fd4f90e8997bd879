// Package repository defines the persistence interfaces for user
// profiles, conversation history, interest records, push logs, daily
// usage, and billing state, with two implementations: an in-memory
// store (repository/memstore) for tests and a sqlite-backed store
// (repository/sqlitestore) for production, selected at wiring time the
// way the teacher selects llmclient.Provider connectors — by
// configuration, behind a shared interface.
package repository

import (
	"context"
	"time"
)

// Profile is a user's registered birth profile.
type Profile struct {
	Platform   string
	UserID     string
	Year       int
	Month      int
	Day        int
	Hour       int
	Minute     int
	Gender     string
	Calendar   string
	IsActive   bool
	CreatedAt  time.Time
	LastActive time.Time
}

// ConversationTurn is a single user/assistant exchange.
type ConversationTurn struct {
	Platform  string
	UserID    string
	Role      string // "user" or "assistant"
	Content   string
	CreatedAt time.Time
}

// InterestRecord mirrors interest.Record for persistence.
type InterestRecord struct {
	Platform      string
	UserID        string
	Category      string
	AskCount      int
	WeightedCount float64
	LastAsked     time.Time
}

// PushStatus is the outcome of one daily-push delivery attempt.
type PushStatus string

const (
	PushSuccess PushStatus = "success"
	PushFailed  PushStatus = "failed"
	PushRetried PushStatus = "retried"
)

// PushLog records one daily-push delivery attempt.
type PushLog struct {
	Platform           string
	UserID             string
	Category           string
	Status             PushStatus
	MessageText        string
	IsOpened           bool
	ConvertedToPremium bool
	Error              string
	SentAt             time.Time
}

// DailyUsage tracks turn consumption for a user on a calendar day.
type DailyUsage struct {
	Platform string
	UserID   string
	Day      string // YYYY-MM-DD, KST
	Count    int
}

// BillingState is the subset of account state needed for entitlement resolution.
type BillingState struct {
	Platform        string
	UserID          string
	PremiumUntil    time.Time
	HasSubscription bool
	Credits         int
}

// ProfileStore persists registered birth profiles.
type ProfileStore interface {
	Get(ctx context.Context, platform, userID string) (Profile, bool, error)
	Upsert(ctx context.Context, p Profile) error
	ActiveSince(ctx context.Context, since time.Time) ([]Profile, error)
	// Deactivate marks a profile inactive — used when a platform
	// reports the user has blocked the bot, so the push scheduler
	// stops targeting them.
	Deactivate(ctx context.Context, platform, userID string) error
}

// ConversationStore persists the rolling conversation history, capped
// at N turns per user via FIFO pruning.
type ConversationStore interface {
	Append(ctx context.Context, t ConversationTurn, maxTurns int) error
	Recent(ctx context.Context, platform, userID string, n int) ([]ConversationTurn, error)
}

// InterestStore persists per-user interest records.
type InterestStore interface {
	UpsertInterest(ctx context.Context, r InterestRecord) error
	ListInterests(ctx context.Context, platform, userID string) ([]InterestRecord, error)
	AllStaleInterests(ctx context.Context, before time.Time) ([]InterestRecord, error)
}

// PushLogStore persists daily-push delivery attempts.
type PushLogStore interface {
	Record(ctx context.Context, log PushLog) error
}

// DailyUsageStore persists per-day turn counts, implementing
// ratelimit.DailyUsageStore's Peek/Increment contract.
type DailyUsageStore interface {
	Peek(userID string, day string) (int, error)
	Increment(userID string, day string) (int, error)
}

// BillingStore persists subscription/credit state.
type BillingStore interface {
	GetBilling(ctx context.Context, platform, userID string) (BillingState, error)
}
