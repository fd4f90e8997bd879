package promptkit

import (
	"regexp"
	"strings"

	"github.com/sajuworks/saju-gateway/pillar"
)

// dayGanziToken matches the "<stem><branch>일" pattern the model uses
// when naming a day pillar in prose, e.g. "갑자일에는...".
var dayGanziToken = regexp.MustCompile(`[갑을병정무기경신임계][자축인묘진사오미신유술해]일`)

// allGanzi enumerates the 60 valid stem+branch combinations so a
// hallucinated (mismatched-parity) pairing can be detected: valid
// combinations always pair a stem and branch of the same polarity.
func allGanzi() map[string]bool {
	valid := make(map[string]bool, 60)
	for s := 0; s < 10; s++ {
		for b := 0; b < 12; b++ {
			if s%2 != b%2 {
				continue
			}
			valid[pillar.Stems[s]+pillar.Branches[b]+"일"] = true
		}
	}
	return valid
}

var validGanziTokens = allGanzi()

// CorrectDayPillarMentions rewrites any day-ganzi token in text that
// doesn't match the actual computed day pillar, or that names an
// impossible stem/branch pairing, replacing it with the correct
// ganzi. LLMs frequently invent a plausible-looking but wrong day
// pillar when asked to narrate one back — this is a deterministic
// string-level correction pass, not a re-prompt.
func CorrectDayPillarMentions(text string, actual pillar.Pillar) string {
	correct := actual.String() + "일"
	return dayGanziToken.ReplaceAllStringFunc(text, func(token string) string {
		if !validGanziTokens[token] {
			return correct
		}
		if token != correct {
			return correct
		}
		return token
	})
}

// StripUntaggedBoilerplate trims common filler phrases models prepend
// before useful content when no FREE/PREMIUM tags were produced.
func StripUntaggedBoilerplate(text string) string {
	text = strings.TrimSpace(text)
	for _, prefix := range []string{"알겠습니다.", "네, ", "물론입니다."} {
		text = strings.TrimPrefix(text, prefix)
		text = strings.TrimSpace(text)
	}
	return text
}
