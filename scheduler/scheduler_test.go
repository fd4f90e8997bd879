package scheduler

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/sajuworks/saju-gateway/llmclient"
	"github.com/sajuworks/saju-gateway/pillar"
	"github.com/sajuworks/saju-gateway/platform"
	"github.com/sajuworks/saju-gateway/repository"
)

type fakeProfiles struct {
	mu          sync.Mutex
	profiles    []repository.Profile
	deactivated []string
}

func (f *fakeProfiles) Get(ctx context.Context, platform, userID string) (repository.Profile, bool, error) {
	return repository.Profile{}, false, nil
}
func (f *fakeProfiles) Upsert(ctx context.Context, p repository.Profile) error { return nil }
func (f *fakeProfiles) ActiveSince(ctx context.Context, since time.Time) ([]repository.Profile, error) {
	return f.profiles, nil
}
func (f *fakeProfiles) Deactivate(ctx context.Context, platform, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deactivated = append(f.deactivated, userID)
	return nil
}

type fakePushLogs struct {
	mu   sync.Mutex
	logs []repository.PushLog
}

func (f *fakePushLogs) Record(ctx context.Context, log repository.PushLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logs = append(f.logs, log)
	return nil
}

type fakeInterests struct{}

func (f *fakeInterests) UpsertInterest(ctx context.Context, r repository.InterestRecord) error {
	return nil
}
func (f *fakeInterests) ListInterests(ctx context.Context, platform, userID string) ([]repository.InterestRecord, error) {
	return nil, nil
}
func (f *fakeInterests) AllStaleInterests(ctx context.Context, before time.Time) ([]repository.InterestRecord, error) {
	return nil, nil
}

type fakeResponder struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (f *fakeResponder) Send(ctx context.Context, platform, userID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, userID)
	return nil
}

type fakeProvider struct{}

func (fakeProvider) Name() string { return "fake" }
func (fakeProvider) ChatCompletion(ctx context.Context, req *llmclient.ChatRequest) (*llmclient.ChatResponse, error) {
	return &llmclient.ChatResponse{
		Choices: []llmclient.Choice{{Message: llmclient.ChatMessage{Role: "assistant", Content: "🔮 오늘은 기운이 좋은 날이에요.\n\n오늘 하루 어떠셨나요?"}}},
	}, nil
}
func (fakeProvider) Embeddings(ctx context.Context, req *llmclient.EmbeddingsRequest) (*llmclient.EmbeddingsResponse, error) {
	return nil, nil
}
func (fakeProvider) HealthCheck(ctx context.Context) llmclient.HealthStatus {
	return llmclient.HealthStatus{Healthy: true}
}

func newTestDeps(profiles []repository.Profile, responder *fakeResponder) (Deps, *fakePushLogs) {
	reg := llmclient.NewRegistry()
	reg.Register(fakeProvider{})

	pushLogs := &fakePushLogs{}
	return Deps{
		Logger:      zerolog.New(io.Discard),
		Profiles:    &fakeProfiles{profiles: profiles},
		PushLogs:    pushLogs,
		Interests:   &fakeInterests{},
		PillarCache: pillar.NewCache(nil),
		LLM:         reg,
		Responders:  map[string]Responder{"telegram": responder},
		Workers:     4,
		PaceDelay:   time.Millisecond,
	}, pushLogs
}

func testProfile(userID string) repository.Profile {
	return repository.Profile{
		Platform: "telegram", UserID: userID,
		Year: 1990, Month: 5, Day: 12, Hour: 10, Minute: 30,
		Gender: "여", Calendar: "solar",
	}
}

func TestRunOnceSendsToAllActiveProfiles(t *testing.T) {
	responder := &fakeResponder{}
	deps, pushLogs := newTestDeps([]repository.Profile{testProfile("u1"), testProfile("u2")}, responder)

	sched := New(deps)
	result := sched.RunOnce(context.Background())

	if result.Total != 2 || result.Success != 2 || result.Failed != 0 {
		t.Fatalf("expected 2/2 success, got %+v", result)
	}
	if len(responder.sent) != 2 {
		t.Fatalf("expected 2 sends, got %d", len(responder.sent))
	}
	if len(pushLogs.logs) != 2 {
		t.Fatalf("expected 2 push logs recorded, got %d", len(pushLogs.logs))
	}
}

func TestRunOnceFailsForUnknownPlatform(t *testing.T) {
	responder := &fakeResponder{}
	deps, _ := newTestDeps([]repository.Profile{{Platform: "unknown", UserID: "u1", Year: 1990, Month: 1, Day: 1, Gender: "남", Calendar: "solar"}}, responder)

	result := New(deps).RunOnce(context.Background())
	if result.Failed != 1 {
		t.Fatalf("expected 1 failure for unknown platform, got %+v", result)
	}
}

func TestNewAppliesDefaults(t *testing.T) {
	s := New(Deps{})
	if s.deps.Workers != 8 {
		t.Fatalf("expected default workers 8, got %d", s.deps.Workers)
	}
	if s.deps.PaceDelay != 50*time.Millisecond {
		t.Fatalf("expected default pace delay 50ms, got %v", s.deps.PaceDelay)
	}
}

func TestNextTriggerRollsToNextDayWhenPast(t *testing.T) {
	now := time.Date(2026, 7, 31, 9, 0, 0, 0, time.UTC)
	next := nextTrigger(now, 8)
	if next.Day() != 1 || next.Hour() != 8 {
		t.Fatalf("expected rollover to next day at 08:00, got %v", next)
	}
}

func TestNextTriggerSameDayWhenUpcoming(t *testing.T) {
	now := time.Date(2026, 7, 31, 6, 0, 0, 0, time.UTC)
	next := nextTrigger(now, 8)
	if next.Day() != 31 || next.Hour() != 8 {
		t.Fatalf("expected same-day trigger at 08:00, got %v", next)
	}
}

func TestRunOnceDeactivatesBlockedProfile(t *testing.T) {
	responder := &fakeResponder{err: platform.ErrUserBlocked}
	deps, pushLogs := newTestDeps([]repository.Profile{testProfile("u1")}, responder)
	profiles := deps.Profiles.(*fakeProfiles)

	result := New(deps).RunOnce(context.Background())

	if result.Failed != 1 {
		t.Fatalf("expected 1 failure for blocked user, got %+v", result)
	}
	if len(profiles.deactivated) != 1 || profiles.deactivated[0] != "u1" {
		t.Fatalf("expected blocked profile to be deactivated, got %+v", profiles.deactivated)
	}
	if len(pushLogs.logs) != 1 || pushLogs.logs[0].Status != repository.PushFailed {
		t.Fatalf("expected a failed push log, got %+v", pushLogs.logs)
	}
}
