package platform

import (
	"strings"
	"testing"
)

func TestSplitBubblesShortTextIsSingleBubble(t *testing.T) {
	bubbles := splitBubbles("짧은 메시지", 1000, 3)
	if len(bubbles) != 1 || bubbles[0] != "짧은 메시지" {
		t.Fatalf("expected single bubble, got %v", bubbles)
	}
}

func TestSplitBubblesRespectsMaxBubbles(t *testing.T) {
	text := strings.Repeat("문장입니다. ", 500)
	bubbles := splitBubbles(text, 50, 3)
	if len(bubbles) > 3 {
		t.Fatalf("expected at most 3 bubbles, got %d", len(bubbles))
	}
}

func TestSplitBubblesCapsFinalBubbleLength(t *testing.T) {
	text := strings.Repeat("문장입니다. ", 500)
	bubbles := splitBubbles(text, 50, 3)
	for i, b := range bubbles {
		if len(b) > 50 {
			t.Fatalf("expected every bubble (including the last) to be <= 50 bytes, bubble %d was %d: %q", i, len(b), b)
		}
	}
}

func TestSplitBubblesPrefersBlankLineBoundary(t *testing.T) {
	text := strings.Repeat("a", 40) + "\n\n" + strings.Repeat("b", 40)
	bubbles := splitBubbles(text, 45, 3)
	if len(bubbles) < 2 {
		t.Fatalf("expected a split at the blank line, got %v", bubbles)
	}
	if strings.Contains(bubbles[0], "b") {
		t.Fatalf("expected first bubble to only contain the first paragraph, got %q", bubbles[0])
	}
}

func TestEscapeTelegramMarkdownEscapesReservedChars(t *testing.T) {
	out := escapeTelegramMarkdown("오늘(목) 운세!")
	if !strings.Contains(out, "\\(") || !strings.Contains(out, "\\)") || !strings.Contains(out, "\\!") {
		t.Fatalf("expected reserved chars to be escaped, got %q", out)
	}
}

func TestEscapeTelegramMarkdownLeavesEmphasisMarkersAlone(t *testing.T) {
	out := escapeTelegramMarkdown("*강조*와 _기울임_")
	if strings.Contains(out, "\\*") || strings.Contains(out, "\\_") {
		t.Fatalf("expected emphasis markers to survive unescaped, got %q", out)
	}
}

func TestToKakaoTextStripsMarkdown(t *testing.T) {
	out := toKakaoText("**강조** _기울임_ `코드` ### 제목")
	if strings.ContainsAny(out, "*_`#") {
		t.Fatalf("expected all markdown markers stripped, got %q", out)
	}
}

func TestParseUpdateExtractsChatAndText(t *testing.T) {
	body := []byte(`{"message":{"chat":{"id":12345},"text":"안녕하세요"}}`)
	in, err := ParseUpdate(body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if in.Platform != "telegram" || in.UserID != "12345" || in.Text != "안녕하세요" {
		t.Fatalf("unexpected parsed update: %+v", in)
	}
	if in.IsStart {
		t.Fatal("expected IsStart to be false for a regular message")
	}
}

func TestParseUpdateDetectsStartCommand(t *testing.T) {
	body := []byte(`{"message":{"chat":{"id":1},"text":"/start"}}`)
	in, err := ParseUpdate(body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !in.IsStart {
		t.Fatal("expected /start to set IsStart")
	}
}
