package metering

import "testing"

func TestEstimateTokensScalesWithLength(t *testing.T) {
	tc := NewTokenCounter(0)
	short := tc.EstimateTokens("안녕하세요")
	long := tc.EstimateTokens("안녕하세요, 오늘 하루는 어떠셨나요? 사주 이야기를 좀 더 해볼까요?")
	if long <= short {
		t.Fatalf("expected longer text to estimate more tokens, got short=%d long=%d", short, long)
	}
}

func TestCalculateUnknownModelIsFree(t *testing.T) {
	ce := NewCostEngine()
	if cost := ce.Calculate("unknown-model", 1000, 1000); cost != 0 {
		t.Fatalf("expected unknown model to cost 0, got %f", cost)
	}
}

func TestCalculateKnownModel(t *testing.T) {
	ce := NewCostEngine()
	cost := ce.Calculate("gpt-4o-mini", 1_000_000, 1_000_000)
	want := 0.15 + 0.60
	if cost != want {
		t.Fatalf("expected cost %f, got %f", want, cost)
	}
}

func TestMeasureCombinesTokensAndCost(t *testing.T) {
	usage := Measure(NewTokenCounter(0), NewCostEngine(), "gpt-4o-mini", "prompt text", "completion text")
	if usage.InputTokens <= 0 || usage.OutputTokens <= 0 {
		t.Fatalf("expected positive token estimates, got %+v", usage)
	}
}
