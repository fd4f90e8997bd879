// Package analyzer implements the domain-specific scoring engines that
// turn a four-pillar chart into compatibility, wealth, daily-fortune,
// and auspicious-date answers. Every analyzer here is pure and
// table-driven — no I/O, no LLM calls — grounded on the teacher's
// metering.CostEngine/intelligence ROI calculators, which follow the
// same shape: deterministic coefficient tables feeding a clamped
// weighted sum.
package analyzer

import (
	"math"

	"github.com/sajuworks/saju-gateway/pillar"
)

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// deterministicJitter derives a stable pseudo-random offset in
// [-spread, spread] from a seed, so repeated calls for the same chart
// produce the same answer without needing real randomness.
func deterministicJitter(seed int, spread float64) float64 {
	x := math.Sin(float64(seed)) * 43758.5453
	frac := x - math.Floor(x)
	return (frac*2 - 1) * spread
}

// CompatibilityReport scores how well two charts complement each other.
type CompatibilityReport struct {
	Overall       float64
	ElementScore  float64
	BranchScore   float64
	Complements   int
	SubAxes       map[string]float64
}

// Compatibility scores pillars a (self) against pillars b (partner).
func Compatibility(a, b pillar.Pillars) CompatibilityReport {
	elementA := a.DayMasterElement()
	elementB := b.DayMasterElement()

	elementScore := dayMasterRelationScore(elementA, elementB)
	branchScore := branchRelationScore(a, b)
	complements := elementComplementCount(a, b)

	seed := a.Day.StemIdx*12 + a.Day.BranchIdx + b.Day.StemIdx*7 + b.Day.BranchIdx*3
	jitter := deterministicJitter(seed, 6)

	overall := clamp(0.35*elementScore+0.25*branchScore+0.25*float64(complements)*10+0.15*(50+jitter), 40, 95)

	subAxes := map[string]float64{
		"communication": clamp(elementScore+deterministicJitter(seed+1, 8), 30, 95),
		"values":        clamp(branchScore+deterministicJitter(seed+2, 8), 30, 95),
		"emotional":     clamp(50+float64(complements)*8+deterministicJitter(seed+3, 8), 30, 95),
		"growth":        clamp(elementScore*0.6+branchScore*0.4+deterministicJitter(seed+4, 8), 30, 95),
		"stability":     clamp((elementScore+branchScore)/2+deterministicJitter(seed+5, 8), 30, 95),
	}

	return CompatibilityReport{
		Overall:      overall,
		ElementScore: elementScore,
		BranchScore:  branchScore,
		Complements:  complements,
		SubAxes:      subAxes,
	}
}

// dayMasterRelationScore rates two day-master elements' relation on a
// [55,90] base scale: same element 70, generation 90/85 depending on
// direction, control relation 55/60.
func dayMasterRelationScore(a, b pillar.Element) float64 {
	switch {
	case a == b:
		return 70
	case generates(a) == b:
		return 85
	case generates(b) == a:
		return 90
	case controls(a) == b:
		return 60
	case controls(b) == a:
		return 55
	default:
		return 65
	}
}

func generates(e pillar.Element) pillar.Element {
	switch e {
	case pillar.Wood:
		return pillar.Fire
	case pillar.Fire:
		return pillar.Earth
	case pillar.Earth:
		return pillar.Metal
	case pillar.Metal:
		return pillar.Water
	case pillar.Water:
		return pillar.Wood
	}
	return e
}

func controls(e pillar.Element) pillar.Element {
	switch e {
	case pillar.Wood:
		return pillar.Earth
	case pillar.Earth:
		return pillar.Water
	case pillar.Water:
		return pillar.Fire
	case pillar.Fire:
		return pillar.Metal
	case pillar.Metal:
		return pillar.Wood
	}
	return e
}

// branchRelationScore counts clash/combine relations between the two
// charts' four branches: 70 + 8*combines - 12*clashes, clamped [20,100].
func branchRelationScore(a, b pillar.Pillars) float64 {
	branchesA := []int{a.Year.BranchIdx, a.Month.BranchIdx, a.Day.BranchIdx, a.Hour.BranchIdx}
	branchesB := []int{b.Year.BranchIdx, b.Month.BranchIdx, b.Day.BranchIdx, b.Hour.BranchIdx}

	clashes, combines := 0, 0
	for _, ba := range branchesA {
		for _, bb := range branchesB {
			if pillar.ClashOf(ba) == bb {
				clashes++
			}
			if pillar.CombineOf(ba) == bb {
				combines++
			}
		}
	}

	return clamp(70+8*float64(combines)-12*float64(clashes), 20, 100)
}

// elementComplementCount counts how many of the five elements one
// chart supplies that the other chart lacks entirely.
func elementComplementCount(a, b pillar.Pillars) int {
	has := func(p pillar.Pillars, e pillar.Element) bool {
		for _, el := range pillar.ElementsOf(p) {
			if el == e {
				return true
			}
		}
		return false
	}

	all := []pillar.Element{pillar.Wood, pillar.Fire, pillar.Earth, pillar.Metal, pillar.Water}
	count := 0
	for _, e := range all {
		if has(a, e) && !has(b, e) {
			count++
		}
		if has(b, e) && !has(a, e) {
			count++
		}
	}
	return count
}

// WealthReport scores financial-luck axes from a chart's yukchin presence.
type WealthReport struct {
	Overall      float64
	Stability    float64
	Opportunity  float64
	Productivity float64
	Risk         float64
	Timing       float64
}

// Wealth scores a chart's wealth-related yukchin presence, adjusted by
// the current year-luck pillar's timing interaction.
func Wealth(p pillar.Pillars, luck pillar.LuckReport) WealthReport {
	structure := pillar.AnalyzeStructure(p)

	hasYukchin := func(label string) bool {
		for _, v := range structure.Yukchin {
			if v == label {
				return true
			}
		}
		return false
	}

	stability := 50.0
	if hasYukchin("정재") {
		stability += 20
	}
	if hasYukchin("비견") || hasYukchin("겁재") {
		stability -= 10
	}

	opportunity := 50.0
	if hasYukchin("편재") {
		opportunity += 20
	}

	productivity := 50.0
	if hasYukchin("식신") || hasYukchin("상관") {
		productivity += 18
	}

	risk := 50.0
	if hasYukchin("겁재") {
		risk += 15
	}
	if hasYukchin("정재") {
		risk -= 10
	}

	timing := 50.0
	timing += float64(len(luck.Combines)) * 10
	timing -= float64(len(luck.Clashes)) * 12
	timing -= float64(len(luck.Punishes)) * 8

	stability = clamp(stability, 10, 95)
	opportunity = clamp(opportunity, 10, 95)
	productivity = clamp(productivity, 10, 95)
	risk = clamp(risk, 10, 95)
	timing = clamp(timing, 10, 95)

	overall := clamp(0.25*stability+0.25*opportunity+0.20*productivity+0.15*risk+0.15*timing, 10, 95)

	return WealthReport{
		Overall:      overall,
		Stability:    stability,
		Opportunity:  opportunity,
		Productivity: productivity,
		Risk:         risk,
		Timing:       timing,
	}
}

// DailyFortune classifies a given day against a chart's day-master
// element into one of the six yukchin families.
type DailyFortune struct {
	Date     string
	Category string // 비화/인성/식상/재성/관성/중립
	Score    float64
}

// ComputeDailyFortune derives today's fortune category for a user from
// their chart. The score is seeded by day-of-month*31 +
// user-day-stem-index*7 + today's-day-branch-index*3 so the result is
// stable for a given calendar day.
func ComputeDailyFortune(p pillar.Pillars, year, month, day int) DailyFortune {
	dayPillar, _ := dayPillarFor(year, month, day)
	dm := p.DayMasterElement()
	todayEl := elementOf(dayPillar)

	var category string
	switch {
	case todayEl == dm:
		category = "비화"
	case generates(todayEl) == dm:
		category = "인성"
	case generates(dm) == todayEl:
		category = "식상"
	case controls(dm) == todayEl:
		category = "재성"
	case controls(todayEl) == dm:
		category = "관성"
	default:
		category = "중립"
	}

	seed := day*31 + p.Day.StemIdx*7 + dayPillar.BranchIdx*3
	score := clamp(55+deterministicJitter(seed, 30), 20, 95)

	return DailyFortune{Category: category, Score: score}
}

func dayPillarFor(year, month, day int) (pillar.Pillar, error) {
	return pillar.Compute2(year, month, day)
}

func elementOf(p pillar.Pillar) pillar.Element {
	return pillar.ElementOfStem(p.StemIdx)
}

// AuspiciousDate is one candidate day in the 14-day lookahead window.
type AuspiciousDate struct {
	Year, Month, Day int
	Score            float64
	Grade            string // 대길/길/보통/주의
}

// PickAuspiciousDates scores the given candidate dates against a chart for
// a favorable-element/clash/combine pattern and returns them in candidate
// order; it does not sort them.
func PickAuspiciousDates(p pillar.Pillars, favorable pillar.Element, candidates []AuspiciousDate) []AuspiciousDate {
	dm := p.DayMasterElement()
	out := make([]AuspiciousDate, len(candidates))
	for i, c := range candidates {
		dayPillar, err := dayPillarFor(c.Year, c.Month, c.Day)
		if err != nil {
			out[i] = c
			continue
		}
		el := elementOf(dayPillar)

		score := 50.0
		if pillar.ClashOf(p.Day.BranchIdx) == dayPillar.BranchIdx {
			score -= 25
		}
		if pillar.CombineOf(p.Day.BranchIdx) == dayPillar.BranchIdx {
			score += 15
		}
		if el == favorable {
			score += 12
		}
		switch {
		case generates(el) == dm:
			score += 10
		case generates(dm) == el:
			score += 5
		case controls(el) == dm:
			score -= 15
		}

		score = clamp(score, 15, 100)

		grade := "주의"
		switch {
		case score >= 80:
			grade = "대길"
		case score >= 60:
			grade = "길"
		case score >= 40:
			grade = "보통"
		}

		out[i] = AuspiciousDate{Year: c.Year, Month: c.Month, Day: c.Day, Score: score, Grade: grade}
	}
	return out
}
