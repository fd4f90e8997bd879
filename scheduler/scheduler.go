// Package scheduler runs the daily push job: at 08:00 Asia/Seoul it
// loads every profile active within the last 7 days and sends each a
// short personalized fortune message, fanning out with bounded
// concurrency and an inter-user pacing delay. The ticker-driven
// start/stop shape is grounded on the teacher's provider.HealthPoller.
package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/sajuworks/saju-gateway/analyzer"
	"github.com/sajuworks/saju-gateway/llmclient"
	"github.com/sajuworks/saju-gateway/middleware"
	"github.com/sajuworks/saju-gateway/pillar"
	"github.com/sajuworks/saju-gateway/platform"
	"github.com/sajuworks/saju-gateway/promptkit"
	"github.com/sajuworks/saju-gateway/repository"
)

// Responder is the minimal send surface the scheduler needs from a
// platform adapter (no typing/progress — pushes are fire-and-forget).
type Responder interface {
	Send(ctx context.Context, platform, userID, text string) error
}

// Deps bundles the scheduler's collaborators.
type Deps struct {
	Logger      zerolog.Logger
	Profiles    repository.ProfileStore
	PushLogs    repository.PushLogStore
	Interests   repository.InterestStore
	PillarCache *pillar.Cache
	LLM         *llmclient.Registry
	Responders  map[string]Responder // platform name -> responder
	Workers     int
	PaceDelay   time.Duration
}

// Scheduler runs the daily push job on a ticker.
type Scheduler struct {
	deps   Deps
	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New builds a push scheduler.
func New(deps Deps) *Scheduler {
	if deps.Workers <= 0 {
		deps.Workers = 8
	}
	if deps.PaceDelay <= 0 {
		deps.PaceDelay = 50 * time.Millisecond
	}
	return &Scheduler{deps: deps, stopCh: make(chan struct{})}
}

// Start runs a goroutine that fires RunOnce every day at hourKST:00
// Asia/Seoul, until Stop is called.
func (s *Scheduler) Start(hourKST int) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		loc, err := time.LoadLocation("Asia/Seoul")
		if err != nil {
			loc = time.UTC
		}
		for {
			next := nextTrigger(time.Now().In(loc), hourKST)
			timer := time.NewTimer(time.Until(next))
			select {
			case <-timer.C:
				result := s.RunOnce(context.Background())
				s.deps.Logger.Info().
					Int("total", result.Total).Int("success", result.Success).Int("failed", result.Failed).
					Msg("daily push job finished")
			case <-s.stopCh:
				timer.Stop()
				return
			}
		}
	}()
}

// Stop halts the scheduler's background loop.
func (s *Scheduler) Stop() {
	close(s.stopCh)
	s.wg.Wait()
}

func nextTrigger(now time.Time, hourKST int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hourKST, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// Result aggregates one push run's outcome.
type Result struct {
	Total, Success, Failed int
}

// RunOnce loads active profiles and fans out push sends with bounded
// concurrency, pacing sends to avoid bursting the platform APIs.
func (s *Scheduler) RunOnce(ctx context.Context) Result {
	profiles, err := s.deps.Profiles.ActiveSince(ctx, time.Now().AddDate(0, 0, -7))
	if err != nil {
		s.deps.Logger.Error().Err(err).Msg("scheduler: failed to load active profiles")
		return Result{}
	}

	sem := middleware.NewSemaphore(s.deps.Workers)
	var mu sync.Mutex
	result := Result{Total: len(profiles)}

	var wg sync.WaitGroup
	for _, p := range profiles {
		p := p
		sem.Acquire("push", 30*time.Second)
		wg.Add(1)
		time.Sleep(s.deps.PaceDelay)

		go func() {
			defer wg.Done()
			defer sem.Release("push")

			err := s.pushOne(ctx, p)
			mu.Lock()
			if err != nil {
				result.Failed++
			} else {
				result.Success++
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	return result
}

func (s *Scheduler) pushOne(ctx context.Context, p repository.Profile) error {
	responder, ok := s.deps.Responders[p.Platform]
	if !ok {
		return fmt.Errorf("scheduler: no responder configured for platform %q", p.Platform)
	}

	chart, err := pillar.ComputeCached(ctx, s.deps.PillarCache, pillar.BirthInput{
		Year: p.Year, Month: p.Month, Day: p.Day, Hour: p.Hour, Minute: p.Minute,
		Gender: p.Gender, Calendar: p.Calendar,
	})
	if err != nil {
		return err
	}

	now := time.Now()
	fortune := analyzer.ComputeDailyFortune(chart, now.Year(), int(now.Month()), now.Day())

	categoryText := topInterestCategoryText(s.deps.Interests, ctx, p)

	chartText := fmt.Sprintf("오늘의 분류: %s (%.0f점). %s", fortune.Category, fortune.Score, categoryText)

	text, err := s.generatePushText(ctx, chartText)
	if err != nil || strings.TrimSpace(text) == "" {
		text = fallbackPushText(fortune)
	} else if !validatePushFormat(text) {
		text = fallbackPushText(fortune)
	}

	text = promptkit.CorrectDayPillarMentions(text, chart.Day)

	sendErr, attempts := s.sendWithRetry(ctx, responder, p.Platform, p.UserID, text)

	status := repository.PushSuccess
	logErr := ""
	switch {
	case sendErr != nil:
		status = repository.PushFailed
		logErr = sendErr.Error()
	case attempts > 1:
		status = repository.PushRetried
	}

	_ = s.deps.PushLogs.Record(ctx, repository.PushLog{
		Platform: p.Platform, UserID: p.UserID, Category: fortune.Category,
		Status: status, MessageText: text, Error: logErr, SentAt: time.Now(),
	})

	if sendErr == platform.ErrUserBlocked {
		if derr := s.deps.Profiles.Deactivate(ctx, p.Platform, p.UserID); derr != nil {
			s.deps.Logger.Error().Err(derr).Str("user", p.UserID).Msg("scheduler: failed to deactivate blocked profile")
		}
	}

	return sendErr
}

func topInterestCategoryText(store repository.InterestStore, ctx context.Context, p repository.Profile) string {
	if store == nil {
		return ""
	}
	records, err := store.ListInterests(ctx, p.Platform, p.UserID)
	if err != nil || len(records) == 0 {
		return ""
	}
	best := records[0]
	for _, r := range records[1:] {
		if r.WeightedCount > best.WeightedCount {
			best = r
		}
	}
	return fmt.Sprintf("관심 분야: %s", best.Category)
}

func (s *Scheduler) generatePushText(ctx context.Context, chartText string) (string, error) {
	provider, err := s.deps.LLM.Default()
	if err != nil {
		return "", err
	}
	req := promptkit.Assemble(promptkit.Context{
		Category:     promptkit.CategoryDailyPush,
		ChartSummary: chartText,
		UserMessage:  "오늘의 운세 알려줘",
		NowKST:       time.Now(),
	}, "")
	resp, err := provider.ChatCompletion(ctx, &req)
	if err != nil || len(resp.Choices) == 0 {
		return "", err
	}
	return resp.Choices[0].Message.Content, nil
}

// validatePushFormat enforces the push-message post-rules: at least two
// lines, an emoji on the first line, and a question-ending final line.
// It does not check for a blank separator line.
func validatePushFormat(text string) bool {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	if len(lines) < 2 {
		return false
	}
	if !containsEmoji(lines[0]) {
		return false
	}
	last := strings.TrimSpace(lines[len(lines)-1])
	return strings.HasSuffix(last, "?") || strings.HasSuffix(last, "요?") || strings.HasSuffix(last, "까요?")
}

func containsEmoji(s string) bool {
	for _, r := range s {
		if r >= 0x1F300 && r <= 0x1FAFF {
			return true
		}
	}
	return false
}

func fallbackPushText(fortune analyzer.DailyFortune) string {
	return fmt.Sprintf("🔮 오늘은 %s의 기운이 강한 날이에요.\n\n점수는 %.0f점! 무리하지 말고 차분히 보내보는 건 어떨까요?", fortune.Category, fortune.Score)
}

// sendWithRetry sends once, retries up to twice on transient failure,
// but never retries after platform.ErrUserBlocked — that profile needs
// deactivating, not resending to. attempts reports how many sends were
// made, so the caller can log a "retried" status when it took more
// than one.
func (s *Scheduler) sendWithRetry(ctx context.Context, responder Responder, platformName, userID, text string) (err error, attempts int) {
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		attempts = attempt + 1
		lastErr = responder.Send(ctx, platformName, userID, text)
		if lastErr == nil {
			return nil, attempts
		}
		if lastErr == platform.ErrUserBlocked {
			return lastErr, attempts
		}
		time.Sleep(500 * time.Millisecond)
	}
	return lastErr, attempts
}
