// Package pillar computes the four pillars (year/month/day/hour) of the
// traditional Saju chart from a birth date/time, derives day-master
// element strength, the ten yukchin relations, and year-luck
// interactions against a target year. The arithmetic follows the
// classical sexagenary-cycle method: stem/branch indices are derived
// modulo 10 and 12 respectively, with the day pillar anchored against
// a known reference date so the 60-cycle stays in sync with the
// Gregorian calendar.
package pillar

import (
	"context"
	"fmt"
	"time"
)

// Stems (천간) and Branches (지지), in cycle order.
var Stems = [10]string{"갑", "을", "병", "정", "무", "기", "경", "신", "임", "계"}
var Branches = [12]string{"자", "축", "인", "묘", "진", "사", "오", "미", "신", "유", "술", "해"}

// Element is one of the five classical elements (오행).
type Element string

const (
	Wood  Element = "목"
	Fire  Element = "화"
	Earth Element = "토"
	Metal Element = "금"
	Water Element = "수"
)

// stemElement maps each heavenly stem to its element.
var stemElement = [10]Element{Wood, Wood, Fire, Fire, Earth, Earth, Metal, Metal, Water, Water}

// branchElement maps each earthly branch to its primary element.
var branchElement = [12]Element{Water, Earth, Wood, Wood, Earth, Fire, Fire, Earth, Metal, Metal, Earth, Water}

// Polarity is yang (+) or yin (-), alternating across both stems and branches.
func stemYang(idx int) bool   { return idx%2 == 0 }
func branchYang(idx int) bool { return idx%2 == 0 }

// Pillar is a single stem/branch pair (year, month, day, or hour).
type Pillar struct {
	StemIdx   int
	BranchIdx int
}

// Stem returns the pillar's heavenly stem glyph.
func (p Pillar) Stem() string { return Stems[p.StemIdx] }

// Branch returns the pillar's earthly branch glyph.
func (p Pillar) Branch() string { return Branches[p.BranchIdx] }

// String renders the pillar as "갑자" style ganzi text.
func (p Pillar) String() string { return p.Stem() + p.Branch() }

// Pillars is the complete four-pillar chart for a birth moment.
type Pillars struct {
	Year  Pillar
	Month Pillar
	Day   Pillar
	Hour  Pillar
}

// BirthInput is the minimal information needed to compute a chart.
type BirthInput struct {
	Year, Month, Day   int
	Hour, Minute       int
	Gender             string // "남" or "여"
	Calendar           string // "solar" or "lunar" — lunar inputs must already be converted upstream
}

// anchorDate is a known reference date whose day-pillar ganzi index is
// well established: 1900-01-31 was 갑자(甲子) day, index 0 of the
// 60-cycle.
var anchorDate = time.Date(1900, time.January, 31, 0, 0, 0, 0, time.UTC)

// monthStemOffset gives, for each year-stem index, the stem index of
// the first (인월/Tiger month) month pillar. The five-year cycle
// repeats every 5 year-stems (갑기, 을경, 병신, 정임, 무계 share an
// offset group).
var monthStemOffsetByYearStemMod5 = [5]int{2, 4, 6, 8, 0} // 갑/기→丙, 을/경→戊, 병/신→庚, 정/임→壬, 무/계→甲

// Compute derives the full four-pillar chart for a birth input.
func Compute(ctx context.Context, in BirthInput) (Pillars, error) {
	if in.Month < 1 || in.Month > 12 {
		return Pillars{}, fmt.Errorf("pillar: invalid month %d", in.Month)
	}
	if in.Day < 1 || in.Day > 31 {
		return Pillars{}, fmt.Errorf("pillar: invalid day %d", in.Day)
	}
	if in.Hour < 0 || in.Hour > 23 {
		return Pillars{}, fmt.Errorf("pillar: invalid hour %d", in.Hour)
	}

	year := yearPillar(in.Year, in.Month, in.Day)
	month := monthPillar(in.Year, in.Month, in.Day, year)
	day, err := dayPillar(in.Year, in.Month, in.Day)
	if err != nil {
		return Pillars{}, err
	}
	hour := hourPillar(in.Hour, day)

	return Pillars{Year: year, Month: month, Day: day, Hour: hour}, nil
}

// solarYearBoundary approximates the 입춘(立春) solar-term boundary used
// to decide which "pillar year" an early-January/early-February birth
// belongs to. The classical calendar's year turns over at 입춘 (around
// Feb 4), not Jan 1.
func solarYearBoundary(month, day int) bool {
	if month == 1 {
		return false
	}
	if month == 2 && day < 4 {
		return false
	}
	return true
}

func pillarYear(year, month, day int) int {
	if !solarYearBoundary(month, day) {
		return year - 1
	}
	return year
}

func yearPillar(year, month, day int) Pillar {
	y := pillarYear(year, month, day)
	stemIdx := mod(y-4, 10)
	branchIdx := mod(y-4, 12)
	return Pillar{StemIdx: stemIdx, BranchIdx: branchIdx}
}

func monthPillar(year, month, day int, yp Pillar) Pillar {
	// 0-based ordinal within the pillar year: 인월(Tiger, branch idx 2)
	// is month ordinal 0, cycling forward one branch per solar month.
	monthOrdinal := mod(month-2, 12)
	branchIdx := mod(2+monthOrdinal, 12)

	base := monthStemOffsetByYearStemMod5[yp.StemIdx%5]
	stemIdx := mod(base+monthOrdinal, 10)

	return Pillar{StemIdx: stemIdx, BranchIdx: branchIdx}
}

func dayPillar(year, month, day int) (Pillar, error) {
	date := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	days := int(date.Sub(anchorDate).Hours() / 24)
	idx := mod(days, 60)
	return Pillar{StemIdx: mod(idx, 10), BranchIdx: mod(idx, 12)}, nil
}

func hourPillar(hour int, dp Pillar) Pillar {
	// Double-hour (시진) index: 23:00-00:59 is 자시 (index 0), each
	// subsequent pair of hours advances one branch.
	shiIdx := mod((hour+1)/2, 12)

	// Day-stem determines the starting hour-stem (五鼠遁 rule): the
	// 자시 stem index is twice the day-stem's mod-5 group, offset from 갑.
	startStem := (dp.StemIdx % 5) * 2
	stemIdx := mod(startStem+shiIdx, 10)

	return Pillar{StemIdx: stemIdx, BranchIdx: shiIdx}
}

func mod(a, n int) int {
	m := a % n
	if m < 0 {
		m += n
	}
	return m
}

// DayMasterElement returns the element of the day stem — the anchor
// ("나") the whole chart is read relative to.
func (p Pillars) DayMasterElement() Element {
	return stemElement[p.Day.StemIdx]
}

// Structure summarizes day-master strength and the ten yukchin labels
// against each of the other three pillars' stems.
type Structure struct {
	DayMaster      Element
	StrengthScore  float64
	StrengthLabel  string // "신강" (strong) or "신약" (weak)
	Yukchin        map[string]string // pillar name -> yukchin label
}

// yukchinLabel derives the ten-god (십성/육친) relation of another
// stem relative to the day master, based on element generation/control
// cycles and matching polarity.
func yukchinLabel(dayMaster Element, dmYang bool, other Element, otherYang bool) string {
	samePolarity := dmYang == otherYang
	switch {
	case other == dayMaster:
		if samePolarity {
			return "비견"
		}
		return "겁재"
	case generates(dayMaster) == other:
		if samePolarity {
			return "식신"
		}
		return "상관"
	case controls(dayMaster) == other:
		if samePolarity {
			return "편재"
		}
		return "정재"
	case controls(other) == dayMaster:
		if samePolarity {
			return "편관"
		}
		return "정관"
	case generates(other) == dayMaster:
		if samePolarity {
			return "편인"
		}
		return "정인"
	default:
		return "비견"
	}
}

// generates returns the element that e produces in the generation cycle.
func generates(e Element) Element {
	switch e {
	case Wood:
		return Fire
	case Fire:
		return Earth
	case Earth:
		return Metal
	case Metal:
		return Water
	case Water:
		return Wood
	}
	return e
}

// controls returns the element that e overcomes in the control cycle.
func controls(e Element) Element {
	switch e {
	case Wood:
		return Earth
	case Earth:
		return Water
	case Water:
		return Fire
	case Fire:
		return Metal
	case Metal:
		return Wood
	}
	return e
}

// AnalyzeStructure computes day-master strength and yukchin labels for
// the other three pillars' stems. Strength weights: year 1.0, month
// 1.3 (the season carries the most weight), day-branch 1.0,
// hour 1.8... actually day stem itself is the reference and excluded;
// contributions are +1.0 for a same-element support, +0.8 for a
// generating support, -0.6 for a draining relation, -1.0 for a
// controlling relation, -0.4 for a controlled-by relation.
func AnalyzeStructure(p Pillars) Structure {
	dm := p.DayMasterElement()
	dmYang := stemYang(p.Day.StemIdx)

	type weighted struct {
		el     Element
		weight float64
	}
	contributors := []weighted{
		{stemElement[p.Year.StemIdx], 1.0},
		{branchElement[p.Year.BranchIdx], 1.0},
		{stemElement[p.Month.StemIdx], 1.3},
		{branchElement[p.Month.BranchIdx], 1.3},
		{branchElement[p.Day.BranchIdx], 1.0},
		{stemElement[p.Hour.StemIdx], 1.8},
		{branchElement[p.Hour.BranchIdx], 1.8},
	}

	score := 0.0
	for _, c := range contributors {
		switch {
		case c.el == dm:
			score += 1.0 * c.weight
		case generates(c.el) == dm:
			score += 0.8 * c.weight
		case generates(dm) == c.el:
			score += -0.6 * c.weight
		case controls(dm) == c.el:
			score += -1.0 * c.weight
		case controls(c.el) == dm:
			score += -0.4 * c.weight
		}
	}

	label := "신약"
	if score >= 0 {
		label = "신강"
	}

	yukchin := map[string]string{
		"year":  yukchinLabel(dm, dmYang, stemElement[p.Year.StemIdx], stemYang(p.Year.StemIdx)),
		"month": yukchinLabel(dm, dmYang, stemElement[p.Month.StemIdx], stemYang(p.Month.StemIdx)),
		"hour":  yukchinLabel(dm, dmYang, stemElement[p.Hour.StemIdx], stemYang(p.Hour.StemIdx)),
	}

	return Structure{
		DayMaster:     dm,
		StrengthScore: score,
		StrengthLabel: label,
		Yukchin:       yukchin,
	}
}

// LuckReport describes how a target year's pillar interacts with the
// natal chart: clash (충), combine (합), and punishment (형) against
// the natal branches.
type LuckReport struct {
	YearPillar Pillar
	Clashes    []string
	Combines   []string
	Punishes   []string
}

var clashPairs = map[int]int{0: 6, 1: 7, 2: 8, 3: 9, 4: 10, 5: 11, 6: 0, 7: 1, 8: 2, 9: 3, 10: 4, 11: 5}
var combinePairs = map[int]int{0: 1, 1: 0, 2: 11, 11: 2, 3: 10, 10: 3, 4: 9, 9: 4, 5: 8, 8: 5, 6: 7, 7: 6}
var punishGroups = [][3]int{{2, 5, 8}, {0, 3, 9}}

// ClashOf returns the branch index that clashes (충) with the given branch.
func ClashOf(branchIdx int) int { return clashPairs[branchIdx] }

// CombineOf returns the branch index that combines (합) with the given branch.
func CombineOf(branchIdx int) int { return combinePairs[branchIdx] }

// ElementsOf returns the elements of a chart's four stems and four
// branches, one entry per stem and branch, so repeated elements appear
// more than once.
func ElementsOf(p Pillars) []Element {
	return []Element{
		stemElement[p.Year.StemIdx], branchElement[p.Year.BranchIdx],
		stemElement[p.Month.StemIdx], branchElement[p.Month.BranchIdx],
		stemElement[p.Day.StemIdx], branchElement[p.Day.BranchIdx],
		stemElement[p.Hour.StemIdx], branchElement[p.Hour.BranchIdx],
	}
}

// ElementOfStem returns the element for a given stem index.
func ElementOfStem(stemIdx int) Element { return stemElement[stemIdx] }

// ElementOfBranch returns the primary element for a given branch index.
func ElementOfBranch(branchIdx int) Element { return branchElement[branchIdx] }

// Compute2 computes just the day pillar for a given calendar date,
// used by callers (e.g. daily-fortune scoring) that only need today's
// ganzi rather than a full birth chart.
func Compute2(year, month, day int) (Pillar, error) {
	return dayPillar(year, month, day)
}

// AnalyzeYearLuck compares a target year's pillar against the natal
// chart's four branches for clash, combine, and punishment relations.
func AnalyzeYearLuck(p Pillars, year, month int) LuckReport {
	yp := yearPillar(year, month, 15)
	natalBranches := []int{p.Year.BranchIdx, p.Month.BranchIdx, p.Day.BranchIdx, p.Hour.BranchIdx}
	names := []string{"year", "month", "day", "hour"}

	report := LuckReport{YearPillar: yp}
	for i, nb := range natalBranches {
		if clashPairs[yp.BranchIdx] == nb {
			report.Clashes = append(report.Clashes, names[i])
		}
		if combinePairs[yp.BranchIdx] == nb {
			report.Combines = append(report.Combines, names[i])
		}
		for _, group := range punishGroups {
			inGroup := false
			matchOther := false
			for _, g := range group {
				if g == yp.BranchIdx {
					inGroup = true
				}
				if g == nb && g != yp.BranchIdx {
					matchOther = true
				}
			}
			if inGroup && matchOther {
				report.Punishes = append(report.Punishes, names[i])
			}
		}
	}
	return report
}
