package interest

import "testing"

func TestClassifyMultiLabel(t *testing.T) {
	c := NewClassifier(nil)
	cats := c.Classify("궁합이랑 재물운 같이 봐줘")

	want := map[Category]bool{CategoryCompatibility: true, CategoryWealth: true}
	if len(cats) != len(want) {
		t.Fatalf("expected %d categories, got %v", len(want), cats)
	}
	for _, cat := range cats {
		if !want[cat] {
			t.Fatalf("unexpected category %v in %v", cat, cats)
		}
	}
}

func TestClassifyFallsBackToGeneral(t *testing.T) {
	c := NewClassifier(nil)
	cats := c.Classify("내일 날씨 어때요")
	if len(cats) != 1 || cats[0] != CategoryGeneral {
		t.Fatalf("expected [general], got %v", cats)
	}
}

func TestClassifyNoMatchIsGeneral(t *testing.T) {
	c := NewClassifier(nil)
	cats := c.Classify("그냥 심심해서 왔어요")
	if len(cats) != 1 || cats[0] != CategoryGeneral {
		t.Fatalf("expected [general], got %v", cats)
	}
}

func TestScoresWeightsMatches(t *testing.T) {
	c := NewClassifier([]Rule{
		{Category: CategoryWealth, Keywords: []string{"돈", "재물"}, Weight: 1.0},
	})
	scores := c.Scores("돈이랑 재물운 둘 다 궁금해요")
	if scores[CategoryWealth] != 2.0 {
		t.Fatalf("expected weight 2.0 for double match, got %f", scores[CategoryWealth])
	}
}
