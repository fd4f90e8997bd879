// Package orchestrator implements the conversation resolver: the
// first-match-wins step chain that decides what a single inbound
// message means and drives the reply, with per-user serialization so
// two messages from the same person never interleave. Serialization is
// grounded on the teacher's middleware.KeyedMutex (lock per org/user
// key rather than one global mutex), and the step chain itself is
// grounded on routing.Engine's first-match-wins rule evaluation.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/sajuworks/saju-gateway/classics"
	"github.com/sajuworks/saju-gateway/interest"
	"github.com/sajuworks/saju-gateway/llmclient"
	"github.com/sajuworks/saju-gateway/metering"
	"github.com/sajuworks/saju-gateway/middleware"
	"github.com/sajuworks/saju-gateway/pending"
	"github.com/sajuworks/saju-gateway/pillar"
	"github.com/sajuworks/saju-gateway/promptkit"
	"github.com/sajuworks/saju-gateway/ratelimit"
	"github.com/sajuworks/saju-gateway/repository"
)

// Inbound is a platform-normalized incoming message.
type Inbound struct {
	Platform  string
	UserID    string
	Text      string
	IsStart   bool
	Referral  string
	ReceivedAt time.Time
}

// Responder is the minimal surface an orchestrator needs from a
// platform adapter to carry a conversation: send a final reply, show a
// typing indicator, and run a cancellable progress-edit sequence.
type Responder interface {
	Send(ctx context.Context, platform, userID, text string) error
	SendTyping(ctx context.Context, platform, userID string) error
	SendProgress(ctx context.Context, platform, userID string, stages []string, interval time.Duration, done <-chan struct{}) error
}

// Deps bundles every collaborator the orchestrator needs.
type Deps struct {
	Logger      zerolog.Logger
	Profiles    repository.ProfileStore
	History     repository.ConversationStore
	Interests   repository.InterestStore
	Billing     repository.BillingStore
	DailyUsage  repository.DailyUsageStore
	PillarCache *pillar.Cache
	Pending     pending.Store
	Classifier  *interest.Classifier
	Tracker     *interest.Tracker
	Classics    *classics.Retriever
	LLM         *llmclient.Registry
	Responder   Responder
	Spam        *ratelimit.SpamThrottle
	HistoryCap  int
	Tokens      *metering.TokenCounter
	Cost        *metering.CostEngine
}

// Orchestrator resolves and answers inbound messages.
type Orchestrator struct {
	deps  Deps
	locks *middleware.KeyedMutex
}

// New builds an orchestrator.
func New(deps Deps) *Orchestrator {
	if deps.HistoryCap <= 0 {
		deps.HistoryCap = 10
	}
	if deps.Tokens == nil {
		deps.Tokens = metering.NewTokenCounter(0)
	}
	if deps.Cost == nil {
		deps.Cost = metering.NewCostEngine()
	}
	return &Orchestrator{deps: deps, locks: middleware.NewKeyedMutex()}
}

func userKey(platform, userID string) string { return platform + ":" + userID }

// Handle serializes per-user processing and dispatches through the
// step chain. Errors here are logged and answered with an apology —
// a failed turn is never persisted to history.
func (o *Orchestrator) Handle(ctx context.Context, in Inbound) {
	unlock := o.locks.Lock(userKey(in.Platform, in.UserID))
	defer unlock()

	if in.ReceivedAt.IsZero() {
		in.ReceivedAt = time.Now()
	}

	if o.deps.Spam != nil {
		if err := o.deps.Spam.Allow(userKey(in.Platform, in.UserID), in.ReceivedAt); err != nil {
			o.deps.Logger.Debug().Str("user", in.UserID).Msg("spam throttle rejected message")
			retryAfter := ""
			var limited *ratelimit.RateLimited
			if errors.As(err, &limited) {
				retryAfter = fmt.Sprintf(" %.0f초 후에", limited.RetryAfter.Seconds())
			}
			_ = o.deps.Responder.Send(ctx, in.Platform, in.UserID, "너무 빨리 보내셨어요!"+retryAfter+" 다시 시도해 주세요 🙏")
			return
		}
	}

	if err := o.resolve(ctx, in); err != nil {
		o.deps.Logger.Error().Err(err).Str("user", in.UserID).Msg("orchestrator: turn failed")
		_ = o.deps.Responder.Send(ctx, in.Platform, in.UserID, "죄송해요, 지금은 답변을 드리기 어려워요. 잠시 후 다시 시도해 주세요.")
	}
}

// resolve runs the first-match-wins step chain from spec: meta/special
// command, platform start, missing profile, pending compatibility,
// explicit intents, message classification, then a grounded saju
// answer as the catch-all.
func (o *Orchestrator) resolve(ctx context.Context, in Inbound) error {
	text := strings.TrimSpace(in.Text)

	if handled, err := o.stepMetaCommand(ctx, in, text); handled {
		return err
	}
	if in.IsStart {
		return o.stepStart(ctx, in)
	}

	profile, hasProfile, err := o.deps.Profiles.Get(ctx, in.Platform, in.UserID)
	if err != nil {
		return err
	}
	if !hasProfile {
		return o.stepMissingProfile(ctx, in, text)
	}

	if quotaErr := o.checkQuota(ctx, in); quotaErr != nil {
		return o.deps.Responder.Send(ctx, in.Platform, in.UserID, "오늘 사용 가능한 무료 질문 횟수를 모두 사용하셨어요. 내일 다시 찾아주세요 🙏")
	}

	if err := o.resolveTurn(ctx, in, profile, text); err != nil {
		return err
	}
	o.consumeQuota(ctx, in)
	return nil
}

// resolveTurn runs the intent/classification steps that produce the
// actual reply, once a profile exists and the quota gate has passed.
func (o *Orchestrator) resolveTurn(ctx context.Context, in Inbound, profile repository.Profile, text string) error {
	if handled, err := o.stepPendingCompatibility(ctx, in, profile, text); handled {
		return err
	}

	categories := o.deps.Classifier.Classify(text)
	o.deps.Tracker.Record(ctx, in.UserID, categories, in.ReceivedAt)

	for _, cat := range categories {
		switch cat {
		case interest.CategoryCompatibility:
			return o.stepCompatibilityIntent(ctx, in, profile, text)
		case interest.CategoryWealth:
			return o.stepWealthIntent(ctx, in, profile)
		case interest.CategoryAuspiciousDate:
			return o.stepAuspiciousDateIntent(ctx, in, profile)
		case interest.CategoryDailyFortune:
			return o.stepDailyFortuneIntent(ctx, in, profile)
		}
	}

	if isHarmful(text) {
		return o.deps.Responder.Send(ctx, in.Platform, in.UserID, "죄송하지만 그 요청에는 답변드릴 수 없어요.")
	}
	if isGreeting(text) {
		return o.deps.Responder.Send(ctx, in.Platform, in.UserID, "안녕하세요! 사주에 대해 무엇이든 물어보세요 😊")
	}
	if isCasual(text) {
		return o.deps.Responder.Send(ctx, in.Platform, in.UserID, "그 질문은 제 전문 분야는 아니지만, 사주 이야기라면 언제든 환영이에요!")
	}

	return o.stepSajuQuestion(ctx, in, profile, text)
}

func isHarmful(text string) bool {
	for _, kw := range []string{"죽", "자살", "폭탄", "해킹"} {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func isGreeting(text string) bool {
	for _, kw := range []string{"안녕", "반가워", "hi", "hello"} {
		if strings.Contains(strings.ToLower(text), kw) {
			return true
		}
	}
	return false
}

func isCasual(text string) bool {
	return len(text) < 3
}

func (o *Orchestrator) birthInputFrom(p repository.Profile) pillar.BirthInput {
	return pillar.BirthInput{
		Year: p.Year, Month: p.Month, Day: p.Day, Hour: p.Hour, Minute: p.Minute,
		Gender: p.Gender, Calendar: p.Calendar,
	}
}

func (o *Orchestrator) recordHistory(ctx context.Context, platform, userID, role, content string) {
	_ = o.deps.History.Append(ctx, repository.ConversationTurn{
		Platform: platform, UserID: userID, Role: role, Content: content, CreatedAt: time.Now(),
	}, o.deps.HistoryCap)
}

// checkQuota resolves the caller's entitlement tier and reports
// whether today's quota is already exhausted, without consuming a
// turn — the turn only counts against quota once it completes
// successfully, via consumeQuota.
func (o *Orchestrator) checkQuota(ctx context.Context, in Inbound) error {
	if o.deps.Billing == nil || o.deps.DailyUsage == nil {
		return nil
	}
	tier, day, err := o.entitlement(ctx, in)
	if err != nil {
		return nil
	}
	return ratelimit.CheckQuota(o.deps.DailyUsage, userKey(in.Platform, in.UserID), day, tier)
}

// consumeQuota records one completed turn against today's usage. It is
// called only after a turn resolves without error, so the daily
// counter advances on successful completion, not on attempt.
func (o *Orchestrator) consumeQuota(ctx context.Context, in Inbound) {
	if o.deps.Billing == nil || o.deps.DailyUsage == nil {
		return
	}
	_, day, err := o.entitlement(ctx, in)
	if err != nil {
		return
	}
	if err := ratelimit.Consume(o.deps.DailyUsage, userKey(in.Platform, in.UserID), day); err != nil {
		o.deps.Logger.Error().Err(err).Str("user", in.UserID).Msg("orchestrator: failed to record daily usage")
	}
}

func (o *Orchestrator) entitlement(ctx context.Context, in Inbound) (ratelimit.Tier, string, error) {
	billing, err := o.deps.Billing.GetBilling(ctx, in.Platform, in.UserID)
	if err != nil {
		return "", "", err
	}
	tier := ratelimit.ResolveTier(ratelimit.Profile{
		PremiumUntil:    billing.PremiumUntil,
		HasSubscription: billing.HasSubscription,
		Credits:         billing.Credits,
	}, in.ReceivedAt)
	return tier, in.ReceivedAt.Format("2006-01-02"), nil
}

func chartSummary(p pillar.Pillars) string {
	s := pillar.AnalyzeStructure(p)
	return fmt.Sprintf("년주 %s, 월주 %s, 일주 %s, 시주 %s (일간 %s, %s)",
		p.Year, p.Month, p.Day, p.Hour, s.DayMaster, s.StrengthLabel)
}
