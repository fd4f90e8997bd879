// Package platform adapts the orchestrator's generic Responder
// interface to each chat surface's wire format: Telegram's Bot API,
// Kakao's skill request/response contract, and a plain web API.
// Markdown emphasis is translated per platform's own formatting
// convention rather than sent through untouched.
package platform

import (
	"errors"
	"strings"
)

// ErrUserBlocked distinguishes a platform rejecting delivery because
// the user blocked the bot from a transient delivery failure — the
// push scheduler uses this to deactivate a profile instead of retrying.
var ErrUserBlocked = errors.New("platform: user has blocked the bot")

// splitBubbles breaks long text into platform-sized chunks at the most
// natural boundary available: a blank line, then a newline, then a
// sentence end, then a space — falling back to a hard cut only when
// none of those exist within the limit.
func splitBubbles(text string, maxLen int, maxBubbles int) []string {
	text = strings.TrimSpace(text)
	var bubbles []string

	for len(text) > 0 && len(bubbles) < maxBubbles-1 {
		if len(text) <= maxLen {
			break
		}
		cut := bestCut(text, maxLen)
		bubbles = append(bubbles, strings.TrimSpace(text[:cut]))
		text = strings.TrimSpace(text[cut:])
	}
	// The bubble budget runs out before long text does — the last
	// bubble absorbs the residual, but it still must not exceed maxLen.
	if len(text) > maxLen {
		text = strings.TrimSpace(text[:bestCut(text, maxLen)])
	}
	bubbles = append(bubbles, text)
	return bubbles
}

func bestCut(text string, maxLen int) int {
	window := text
	if len(window) > maxLen {
		window = window[:maxLen]
	}
	for _, sep := range []string{"\n\n", "\n", ". ", " "} {
		if idx := strings.LastIndex(window, sep); idx > 0 {
			return idx + len(sep)
		}
	}
	return maxLen
}

// escapeTelegramMarkdown escapes Telegram MarkdownV2 reserved
// characters, leaving the *, _ and ` emphasis markers unescaped so the
// *bold*/_italic_/`code` spans already present in text still render.
func escapeTelegramMarkdown(text string) string {
	reserved := []string{"_", "*", "[", "]", "(", ")", "~", "`", ">", "#", "+", "-", "=", "|", "{", "}", ".", "!"}
	// Only escape characters that aren't part of an emphasis marker
	// already used deliberately — a full parser is unnecessary here
	// since prompts are instructed to use *bold*/_italic_ sparingly.
	out := text
	for _, r := range reserved {
		if r == "*" || r == "_" || r == "`" {
			continue
		}
		out = strings.ReplaceAll(out, r, "\\"+r)
	}
	return out
}

// toKakaoText strips markdown emphasis markers entirely since Kakao's
// simpleText component renders plain text only.
func toKakaoText(text string) string {
	replacer := strings.NewReplacer("**", "", "*", "", "_", "", "`", "", "### ", "", "## ", "", "# ", "")
	return replacer.Replace(text)
}
