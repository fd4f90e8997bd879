package orchestrator

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/sajuworks/saju-gateway/analyzer"
	"github.com/sajuworks/saju-gateway/metering"
	"github.com/sajuworks/saju-gateway/pending"
	"github.com/sajuworks/saju-gateway/pillar"
	"github.com/sajuworks/saju-gateway/promptkit"
	"github.com/sajuworks/saju-gateway/repository"
)

const (
	actionAwaitingBirth         = "awaiting_birth"
	actionAwaitingCompatTarget  = "awaiting_compat_target"
)

// stepMetaCommand handles bot-level commands ("/help", "/reset") that
// bypass everything else.
func (o *Orchestrator) stepMetaCommand(ctx context.Context, in Inbound, text string) (bool, error) {
	switch text {
	case "/help", "도움말":
		return true, o.deps.Responder.Send(ctx, in.Platform, in.UserID, "생년월일시를 알려주시면 사주를 풀이해 드려요. 궁합, 재물운, 오늘의 운세도 물어보세요!")
	case "/reset", "초기화":
		_ = o.deps.Pending.Delete(ctx, in.Platform, in.UserID, actionAwaitingBirth)
		_ = o.deps.Pending.Delete(ctx, in.Platform, in.UserID, actionAwaitingCompatTarget)
		return true, o.deps.Responder.Send(ctx, in.Platform, in.UserID, "대화를 초기화했어요.")
	}
	return false, nil
}

// stepStart greets a first-time /start with an optional referral tag.
func (o *Orchestrator) stepStart(ctx context.Context, in Inbound) error {
	greeting := "안녕하세요! 사주 상담 봇이에요. 생년월일시를 알려주시면 풀이를 시작할게요."
	if in.Referral != "" {
		greeting = fmt.Sprintf("%s 추천으로 오셨군요! %s", in.Referral, greeting)
	}
	return o.deps.Responder.Send(ctx, in.Platform, in.UserID, greeting)
}

var birthPattern = regexp.MustCompile(`(\d{4})[.\-/년\s]+(\d{1,2})[.\-/월\s]+(\d{1,2})일?\s*(\d{1,2})?[:시\s]*(\d{1,2})?`)

// stepMissingProfile tries to parse a birth tuple out of the message;
// if that fails it sets a pending "awaiting_birth" action and asks.
func (o *Orchestrator) stepMissingProfile(ctx context.Context, in Inbound, text string) error {
	if m := birthPattern.FindStringSubmatch(text); m != nil {
		profile, err := parseBirthMatch(in, m)
		if err == nil {
			profile.CreatedAt = time.Now()
			profile.LastActive = time.Now()
			if err := o.deps.Profiles.Upsert(ctx, profile); err != nil {
				return err
			}
			return o.deps.Responder.Send(ctx, in.Platform, in.UserID, "생년월일시를 등록했어요! 이제 사주에 대해 무엇이든 물어보세요.")
		}
	}

	_ = o.deps.Pending.Set(ctx, pending.Action{
		Platform: in.Platform, UserID: in.UserID, ActionType: actionAwaitingBirth, CreatedAt: in.ReceivedAt,
	})
	return o.deps.Responder.Send(ctx, in.Platform, in.UserID, "먼저 생년월일시를 알려주세요. 예) 1990년 5월 12일 14시 30분, 남성")
}

func parseBirthMatch(in Inbound, m []string) (repository.Profile, error) {
	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	day, _ := strconv.Atoi(m[3])
	hour, minute := 12, 0
	if m[4] != "" {
		hour, _ = strconv.Atoi(m[4])
	}
	if m[5] != "" {
		minute, _ = strconv.Atoi(m[5])
	}
	gender := "남"
	if strings.Contains(in.Text, "여") {
		gender = "여"
	}
	if _, err := pillar.Compute(context.Background(), pillar.BirthInput{Year: year, Month: month, Day: day, Hour: hour}); err != nil {
		return repository.Profile{}, err
	}
	return repository.Profile{
		Platform: in.Platform, UserID: in.UserID,
		Year: year, Month: month, Day: day, Hour: hour, Minute: minute,
		Gender: gender, Calendar: "solar", IsActive: true,
	}, nil
}

// stepPendingCompatibility resolves a prior "who's the partner" ask
// when the user had an in-flight compatibility request. Pending state
// beats fresh intent classification.
func (o *Orchestrator) stepPendingCompatibility(ctx context.Context, in Inbound, profile repository.Profile, text string) (bool, error) {
	_, ok, err := o.deps.Pending.Get(ctx, in.Platform, in.UserID, actionAwaitingCompatTarget)
	if err != nil || !ok {
		return false, err
	}

	m := birthPattern.FindStringSubmatch(text)
	if m == nil {
		return true, o.deps.Responder.Send(ctx, in.Platform, in.UserID, "상대방의 생년월일시를 알려주세요. 예) 1992년 3월 4일 9시")
	}

	partnerProfile, err := parseBirthMatch(in, m)
	if err != nil {
		return true, o.deps.Responder.Send(ctx, in.Platform, in.UserID, "생년월일시를 다시 확인해 주세요.")
	}
	_ = o.deps.Pending.Delete(ctx, in.Platform, in.UserID, actionAwaitingCompatTarget)

	return true, o.runCompatibility(ctx, in, profile, partnerProfile)
}

// stepCompatibilityIntent begins a compatibility request: if the
// message itself already contains a second birth date, resolve
// immediately; otherwise remember we're waiting for one.
func (o *Orchestrator) stepCompatibilityIntent(ctx context.Context, in Inbound, profile repository.Profile, text string) error {
	matches := birthPattern.FindAllStringSubmatch(text, -1)
	if len(matches) >= 1 {
		partnerProfile, err := parseBirthMatch(in, matches[len(matches)-1])
		if err == nil {
			return o.runCompatibility(ctx, in, profile, partnerProfile)
		}
	}

	_ = o.deps.Pending.Set(ctx, pending.Action{
		Platform: in.Platform, UserID: in.UserID, ActionType: actionAwaitingCompatTarget, CreatedAt: in.ReceivedAt,
	})
	return o.deps.Responder.Send(ctx, in.Platform, in.UserID, "누구와의 궁합이 궁금하세요? 상대방의 생년월일시를 알려주세요.")
}

func (o *Orchestrator) runCompatibility(ctx context.Context, in Inbound, self, partner repository.Profile) error {
	selfChart, err := pillar.ComputeCached(ctx, o.deps.PillarCache, o.birthInputFrom(self))
	if err != nil {
		return err
	}
	partnerChart, err := pillar.ComputeCached(ctx, o.deps.PillarCache, o.birthInputFrom(partner))
	if err != nil {
		return err
	}

	report := analyzer.Compatibility(selfChart, partnerChart)
	chartText := fmt.Sprintf("%s\n상대방: %s\n궁합 점수: %.0f점 (오행 %.0f, 지지 %.0f)",
		chartSummary(selfChart), chartSummary(partnerChart), report.Overall, report.ElementScore, report.BranchScore)

	return o.answerWithLLM(ctx, in, promptkit.CategoryCompatibility, chartText, selfChart.Day)
}

func (o *Orchestrator) stepWealthIntent(ctx context.Context, in Inbound, profile repository.Profile) error {
	chart, err := pillar.ComputeCached(ctx, o.deps.PillarCache, o.birthInputFrom(profile))
	if err != nil {
		return err
	}
	luck := pillar.AnalyzeYearLuck(chart, in.ReceivedAt.Year(), int(in.ReceivedAt.Month()))
	report := analyzer.Wealth(chart, luck)
	chartText := fmt.Sprintf("%s\n재물운 점수: %.0f점 (안정성 %.0f, 기회 %.0f, 생산성 %.0f, 위험 %.0f, 시기 %.0f)",
		chartSummary(chart), report.Overall, report.Stability, report.Opportunity, report.Productivity, report.Risk, report.Timing)

	return o.answerWithLLM(ctx, in, promptkit.CategoryWealth, chartText, chart.Day)
}

func (o *Orchestrator) stepAuspiciousDateIntent(ctx context.Context, in Inbound, profile repository.Profile) error {
	chart, err := pillar.ComputeCached(ctx, o.deps.PillarCache, o.birthInputFrom(profile))
	if err != nil {
		return err
	}
	structure := pillar.AnalyzeStructure(chart)
	favorable := oppositeOf(structure.DayMaster)

	var candidates []analyzer.AuspiciousDate
	base := in.ReceivedAt
	for i := 1; i <= 14; i++ {
		d := base.AddDate(0, 0, i)
		candidates = append(candidates, analyzer.AuspiciousDate{Year: d.Year(), Month: int(d.Month()), Day: d.Day()})
	}
	scored := analyzer.PickAuspiciousDates(chart, favorable, candidates)

	var b strings.Builder
	b.WriteString(chartSummary(chart) + "\n\n향후 14일 길일 후보:\n")
	for _, d := range scored {
		fmt.Fprintf(&b, "%04d-%02d-%02d: %s(%.0f점)\n", d.Year, d.Month, d.Day, d.Grade, d.Score)
	}

	return o.answerWithLLM(ctx, in, promptkit.CategoryAuspiciousDate, b.String(), chart.Day)
}

func oppositeOf(e pillar.Element) pillar.Element {
	switch e {
	case pillar.Wood:
		return pillar.Metal
	case pillar.Fire:
		return pillar.Water
	case pillar.Earth:
		return pillar.Wood
	case pillar.Metal:
		return pillar.Fire
	default:
		return pillar.Earth
	}
}

func (o *Orchestrator) stepDailyFortuneIntent(ctx context.Context, in Inbound, profile repository.Profile) error {
	chart, err := pillar.ComputeCached(ctx, o.deps.PillarCache, o.birthInputFrom(profile))
	if err != nil {
		return err
	}
	fortune := analyzer.ComputeDailyFortune(chart, in.ReceivedAt.Year(), int(in.ReceivedAt.Month()), in.ReceivedAt.Day())
	chartText := fmt.Sprintf("%s\n오늘의 분류: %s (%.0f점)", chartSummary(chart), fortune.Category, fortune.Score)

	return o.answerWithLLM(ctx, in, promptkit.CategoryDailyPush, chartText, chart.Day)
}

// stepSajuQuestion is the catch-all: a general saju question grounded
// in the user's chart, conversation history, and retrieved classics,
// run through the two-phase progress pattern.
func (o *Orchestrator) stepSajuQuestion(ctx context.Context, in Inbound, profile repository.Profile, text string) error {
	chart, err := pillar.ComputeCached(ctx, o.deps.PillarCache, o.birthInputFrom(profile))
	if err != nil {
		return err
	}

	historyTurns, _ := o.deps.History.Recent(ctx, in.Platform, in.UserID, o.deps.HistoryCap)
	var historyText strings.Builder
	for _, t := range historyTurns {
		fmt.Fprintf(&historyText, "%s: %s\n", t.Role, t.Content)
	}

	var classicsText string
	if o.deps.Classics != nil {
		passages, err := o.deps.Classics.Retrieve(ctx, text)
		if err == nil {
			var b strings.Builder
			for _, p := range passages {
				fmt.Fprintf(&b, "[%s] %s\n", p.Source, p.Text)
			}
			classicsText = b.String()
		}
	}

	promptCtx := promptkit.Context{
		Category:       promptkit.CategoryGeneralQA,
		UserMessage:    text,
		ChartSummary:   chartSummary(chart),
		HistorySummary: historyText.String(),
		ClassicsText:   classicsText,
		NowKST:         in.ReceivedAt,
	}

	return o.runTwoPhase(ctx, in, promptCtx, chart.Day)
}

// runTwoPhase races the real analysis prompt against a 3s timer; if the
// real answer isn't ready, it starts a progress-edit loop through
// fixed stage labels every 2s until the real answer lands.
func (o *Orchestrator) runTwoPhase(ctx context.Context, in Inbound, promptCtx promptkit.Context, dayPillar pillar.Pillar) error {
	resultCh := make(chan llmResult, 1)
	go func() {
		text, err := o.callLLM(ctx, promptCtx)
		resultCh <- llmResult{text: text, err: err}
	}()

	select {
	case r := <-resultCh:
		return o.finishAnswer(ctx, in, r, dayPillar)
	case <-time.After(3 * time.Second):
	}

	done := make(chan struct{})
	stages := []string{"사주를 분석하고 있어요...", "고전 문헌을 참고하고 있어요...", "답변을 정리하고 있어요..."}
	go func() {
		_ = o.deps.Responder.SendProgress(ctx, in.Platform, in.UserID, stages, 2*time.Second, done)
	}()

	r := <-resultCh
	close(done)
	return o.finishAnswer(ctx, in, r, dayPillar)
}

type llmResult struct {
	text string
	err  error
}

func (o *Orchestrator) finishAnswer(ctx context.Context, in Inbound, r llmResult, dayPillar pillar.Pillar) error {
	if r.err != nil {
		return r.err
	}
	corrected := promptkit.CorrectDayPillarMentions(r.text, dayPillar)
	tiered := promptkit.ParseTiered(corrected)

	reply := tiered.Free
	if tiered.Premium != "" {
		reply += "\n\n✨ 프리미엄 해석:\n" + tiered.Premium
	}

	o.recordHistory(ctx, in.Platform, in.UserID, "user", in.Text)
	o.recordHistory(ctx, in.Platform, in.UserID, "assistant", reply)

	return o.deps.Responder.Send(ctx, in.Platform, in.UserID, reply)
}

func (o *Orchestrator) answerWithLLM(ctx context.Context, in Inbound, category promptkit.Category, chartText string, dayPillar pillar.Pillar) error {
	promptCtx := promptkit.Context{
		Category:     category,
		UserMessage:  in.Text,
		ChartSummary: chartText,
		NowKST:       in.ReceivedAt,
	}
	text, err := o.callLLM(ctx, promptCtx)
	if err != nil {
		return err
	}
	return o.finishAnswer(ctx, in, llmResult{text: text}, dayPillar)
}

func (o *Orchestrator) callLLM(ctx context.Context, promptCtx promptkit.Context) (string, error) {
	provider, err := o.deps.LLM.Default()
	if err != nil {
		return "", err
	}

	req := promptkit.Assemble(promptCtx, "")
	resp, err := provider.ChatCompletion(ctx, &req)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("orchestrator: empty completion")
	}
	completion := resp.Choices[0].Message.Content

	usage := metering.Measure(o.deps.Tokens, o.deps.Cost, req.Model, req.Messages[len(req.Messages)-1].Content, completion)
	o.deps.Logger.Debug().
		Str("model", usage.Model).
		Int("input_tokens", usage.InputTokens).
		Int("output_tokens", usage.OutputTokens).
		Float64("cost_usd", usage.CostUSD).
		Msg("llm turn metered")

	return completion, nil
}
