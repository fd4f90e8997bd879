package analyzer

import (
	"context"
	"testing"

	"github.com/sajuworks/saju-gateway/pillar"
)

func mustChart(t *testing.T, y, m, d, h int) pillar.Pillars {
	t.Helper()
	p, err := pillar.Compute(context.Background(), pillar.BirthInput{Year: y, Month: m, Day: d, Hour: h})
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	return p
}

func TestCompatibilityWithinBounds(t *testing.T) {
	a := mustChart(t, 1990, 5, 12, 14)
	b := mustChart(t, 1992, 8, 3, 9)
	report := Compatibility(a, b)
	if report.Overall < 40 || report.Overall > 95 {
		t.Fatalf("overall score out of bounds: %v", report.Overall)
	}
	for axis, score := range report.SubAxes {
		if score < 30 || score > 95 {
			t.Fatalf("sub-axis %s out of bounds: %v", axis, score)
		}
	}
}

func TestWealthWithinBounds(t *testing.T) {
	p := mustChart(t, 1988, 3, 21, 6)
	luck := pillar.AnalyzeYearLuck(p, 2026, 5)
	report := Wealth(p, luck)
	if report.Overall < 10 || report.Overall > 95 {
		t.Fatalf("overall wealth score out of bounds: %v", report.Overall)
	}
}

func TestDailyFortuneCategoryIsKnown(t *testing.T) {
	p := mustChart(t, 1995, 11, 2, 18)
	valid := map[string]bool{"비화": true, "인성": true, "식상": true, "재성": true, "관성": true, "중립": true}
	fortune := ComputeDailyFortune(p, 2026, 7, 31)
	if !valid[fortune.Category] {
		t.Fatalf("unexpected category %q", fortune.Category)
	}
}

func TestPickAuspiciousDatesGrades(t *testing.T) {
	p := mustChart(t, 1990, 5, 12, 14)
	candidates := []AuspiciousDate{
		{Year: 2026, Month: 8, Day: 1},
		{Year: 2026, Month: 8, Day: 2},
	}
	out := PickAuspiciousDates(p, pillar.Wood, candidates)
	if len(out) != 2 {
		t.Fatalf("expected 2 scored dates, got %d", len(out))
	}
	for _, d := range out {
		if d.Grade == "" {
			t.Fatal("expected a non-empty grade")
		}
	}
}
