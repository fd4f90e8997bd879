package pillar

import (
	"context"
	"testing"
)

func TestComputeProducesAllFourPillars(t *testing.T) {
	p, err := Compute(context.Background(), BirthInput{
		Year: 1990, Month: 5, Day: 12, Hour: 14, Minute: 30, Gender: "남", Calendar: "solar",
	})
	if err != nil {
		t.Fatalf("Compute returned error: %v", err)
	}
	if p.Year.Stem() == "" || p.Month.Branch() == "" || p.Day.Stem() == "" || p.Hour.Branch() == "" {
		t.Fatalf("expected all four pillars populated, got %+v", p)
	}
}

func TestComputeIsDeterministic(t *testing.T) {
	in := BirthInput{Year: 2000, Month: 1, Day: 1, Hour: 0, Minute: 0, Gender: "여", Calendar: "solar"}
	a, err := Compute(context.Background(), in)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Compute(context.Background(), in)
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Fatalf("expected deterministic output, got %+v vs %+v", a, b)
	}
}

func TestComputeRejectsInvalidInput(t *testing.T) {
	cases := []BirthInput{
		{Year: 2000, Month: 13, Day: 1, Hour: 0},
		{Year: 2000, Month: 1, Day: 40, Hour: 0},
		{Year: 2000, Month: 1, Day: 1, Hour: 30},
	}
	for _, c := range cases {
		if _, err := Compute(context.Background(), c); err == nil {
			t.Fatalf("expected error for input %+v", c)
		}
	}
}

func TestMonthPillarKnownPair(t *testing.T) {
	// 1984-05-15 falls in a 갑자(甲子) year (year stem/branch idx 0) and
	// in 사월 (the solar month after 입하, the 4th month counting from
	// 인월): classically 갑己年의 사월 stem is 己(idx5), branch 사(idx5).
	p, err := Compute(context.Background(), BirthInput{Year: 1984, Month: 5, Day: 15, Hour: 10})
	if err != nil {
		t.Fatal(err)
	}
	if p.Year.StemIdx != 0 || p.Year.BranchIdx != 0 {
		t.Fatalf("expected 갑자 year pillar, got %+v", p.Year)
	}
	if p.Month.StemIdx != 5 || p.Month.BranchIdx != 5 {
		t.Fatalf("expected 기사(己巳) month pillar (stem=5,branch=5), got %+v", p.Month)
	}
}

func TestAnalyzeStructureLabelsStrength(t *testing.T) {
	p, err := Compute(context.Background(), BirthInput{Year: 1985, Month: 8, Day: 20, Hour: 9})
	if err != nil {
		t.Fatal(err)
	}
	s := AnalyzeStructure(p)
	if s.StrengthLabel != "신강" && s.StrengthLabel != "신약" {
		t.Fatalf("unexpected strength label %q", s.StrengthLabel)
	}
	if len(s.Yukchin) != 3 {
		t.Fatalf("expected yukchin labels for year/month/hour, got %v", s.Yukchin)
	}
}

func TestAnalyzeYearLuckDetectsClash(t *testing.T) {
	p, err := Compute(context.Background(), BirthInput{Year: 1996, Month: 3, Day: 10, Hour: 12})
	if err != nil {
		t.Fatal(err)
	}
	report := AnalyzeYearLuck(p, 2026, 6)
	if report.YearPillar.String() == "" {
		t.Fatal("expected a year pillar string")
	}
	// 1996 is a 자(子) year and 2026 an 오(午) year: 자-오 is a clash pair.
	clashesYear := false
	for _, name := range report.Clashes {
		if name == "year" {
			clashesYear = true
		}
	}
	if !clashesYear {
		t.Fatalf("expected the 2026 year branch to clash with the natal year branch, got %v", report.Clashes)
	}
}
