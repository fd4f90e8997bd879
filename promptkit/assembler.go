// Package promptkit assembles category-specific LLM prompts and parses
// the tiered [FREE]/[PREMIUM] response format back out of the model's
// completion. Prompt construction follows the teacher's pattern of
// building a ChatRequest from a fixed system-instruction template plus
// caller-supplied context fields (see llmclient.ChatRequest), rather
// than free-form string concatenation.
package promptkit

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/sajuworks/saju-gateway/llmclient"
)

// Category selects which prompt template to assemble.
type Category string

const (
	CategoryFirstReading     Category = "first_reading"
	CategoryGeneralQA        Category = "general_qa"
	CategoryCompatibility    Category = "compatibility"
	CategoryWealth           Category = "wealth"
	CategoryDailyPush        Category = "daily_push"
	CategoryInterimTyping    Category = "interim_typing"
	CategoryAuspiciousDate   Category = "auspicious_date"
)

// Context carries everything a prompt template may reference.
type Context struct {
	Category       Category
	UserMessage    string
	ChartSummary   string
	HistorySummary string
	ClassicsText   string
	Tone           string // mirrored from the user's recent messages: "formal" or "casual"
	NowKST         time.Time
}

const systemPreamble = `너는 사주명리학에 정통한 상담가다. 반드시 한국어로 답하고,
사용자의 말투를 존중해서 답한다. 오늘 날짜는 %s (KST) 기준이다.
이번 갑진년(甲辰年)의 세운 육친은 겁재(劫財)로 고정해서 참고한다.`

// Assemble builds the chat request for a given prompt context.
func Assemble(ctx Context, model string) llmclient.ChatRequest {
	if ctx.NowKST.IsZero() {
		ctx.NowKST = time.Now()
	}
	kst := ctx.NowKST.Format("2006-01-02")

	system := fmt.Sprintf(systemPreamble, kst)
	system += "\n\n" + templateFor(ctx.Category)

	var user strings.Builder
	if ctx.ChartSummary != "" {
		user.WriteString("사주 정보:\n" + ctx.ChartSummary + "\n\n")
	}
	if ctx.HistorySummary != "" {
		user.WriteString("대화 맥락:\n" + ctx.HistorySummary + "\n\n")
	}
	if ctx.ClassicsText != "" {
		user.WriteString("참고 고전 문헌:\n" + ctx.ClassicsText + "\n\n")
	}
	if ctx.Tone != "" {
		user.WriteString(fmt.Sprintf("사용자 말투: %s\n\n", ctx.Tone))
	}
	user.WriteString("사용자 질문: " + ctx.UserMessage)

	return llmclient.ChatRequest{
		Model: model,
		Messages: []llmclient.ChatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user.String()},
		},
	}
}

func templateFor(cat Category) string {
	switch cat {
	case CategoryFirstReading:
		return `사용자의 첫 사주 풀이 요청이다. 일간 중심으로 성격과 기질을 설명하고
마지막에 무료/프리미엄 태그로 나눠 답하라. [FREE]...[/FREE][PREMIUM]...[/PREMIUM]`
	case CategoryCompatibility:
		return `두 사람의 궁합을 분석한다. 오행 상생상극, 지지 충/합 관계를 근거로 설명하고
[FREE]...[/FREE][PREMIUM]...[/PREMIUM] 형식으로 답하라.`
	case CategoryWealth:
		return `재물운을 분석한다. 정재/편재/식상/비겁의 유무와 세운의 작용을 근거로 설명하고
[FREE]...[/FREE][PREMIUM]...[/PREMIUM] 형식으로 답하라.`
	case CategoryAuspiciousDate:
		return `좋은 날짜를 추천한다. 충/합 관계와 용신 오행을 근거로 설명하라.`
	case CategoryDailyPush:
		return `오늘의 운세를 짧게 요약한다. 첫 줄은 이모지로 시작하고, 마지막 줄은
질문으로 끝내라. 4줄 이내로 답하라.`
	case CategoryInterimTyping:
		return `분석이 진행 중임을 짧게 안내하는 한 문장만 답하라.`
	default:
		return `사용자의 질문에 친절하고 정확하게 답하라.`
	}
}

var tierTagRe = regexp.MustCompile(`(?is)\[FREE\](.*?)\[/FREE\]\s*\[PREMIUM\](.*?)\[/PREMIUM\]`)

// TieredResponse is the parsed [FREE]/[PREMIUM] split of a completion.
type TieredResponse struct {
	Free    string
	Premium string
	Tagged  bool
}

// ParseTiered extracts the free/premium split from a completion. If
// the model didn't use the tags (or used them inconsistently), the
// whole text is treated as the free tier with no premium addendum.
func ParseTiered(text string) TieredResponse {
	if m := tierTagRe.FindStringSubmatch(text); m != nil {
		return TieredResponse{
			Free:    strings.TrimSpace(m[1]),
			Premium: strings.TrimSpace(m[2]),
			Tagged:  true,
		}
	}
	return TieredResponse{Free: strings.TrimSpace(text), Tagged: false}
}
