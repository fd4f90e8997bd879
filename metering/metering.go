// Package metering estimates token usage and USD cost for a
// conversational turn, for structured logging rather than wallet
// deduction — entitlement here is a flat daily-turn quota
// (ratelimit.Tier.DailyLimit), not per-token billing, so the
// teacher's reserve-then-settle wallet flow has no analog. What
// survives is character-based token estimation and per-model pricing
// lookup, grounded on the teacher's TokenCounter/CostEngine.
package metering

import (
	"sync"
)

// TokenCounter estimates token counts from character length, avoiding
// a real tokenizer dependency (tiktoken requires CGo/WASM).
type TokenCounter struct {
	charsPerToken float64
}

// NewTokenCounter creates a token counter. charsPerToken <= 0 uses a
// default of 2.2 chars/token, suited to Korean text (2-2.5 chars/token);
// English text runs closer to ~4 chars/token.
func NewTokenCounter(charsPerToken float64) *TokenCounter {
	if charsPerToken <= 0 {
		charsPerToken = 2.2
	}
	return &TokenCounter{charsPerToken: charsPerToken}
}

// EstimateTokens estimates the token count for a text string.
func (tc *TokenCounter) EstimateTokens(text string) int {
	if len(text) == 0 {
		return 0
	}
	return int(float64(len([]rune(text)))/tc.charsPerToken) + 3
}

// ModelPrice holds per-model USD pricing.
type ModelPrice struct {
	InputPer1M  float64
	OutputPer1M float64
}

// CostEngine computes USD cost from token counts and per-model pricing.
type CostEngine struct {
	mu      sync.RWMutex
	pricing map[string]ModelPrice
}

// NewCostEngine creates a cost engine seeded with the providers this
// gateway actually registers (llmclient.NewOpenAIProvider /
// NewAnthropicProvider).
func NewCostEngine() *CostEngine {
	return &CostEngine{pricing: defaultPricing()}
}

func defaultPricing() map[string]ModelPrice {
	return map[string]ModelPrice{
		"gpt-4o-mini":         {InputPer1M: 0.15, OutputPer1M: 0.60},
		"gpt-4o":              {InputPer1M: 2.50, OutputPer1M: 10.00},
		"claude-3-5-sonnet":   {InputPer1M: 3.00, OutputPer1M: 15.00},
		"claude-3-haiku":      {InputPer1M: 0.25, OutputPer1M: 1.25},
	}
}

// Calculate computes the USD cost for a completed call. An unknown
// model costs 0 rather than erroring — cost is logged for observability,
// not billed against a wallet.
func (ce *CostEngine) Calculate(model string, inputTokens, outputTokens int) float64 {
	ce.mu.RLock()
	defer ce.mu.RUnlock()
	p, ok := ce.pricing[model]
	if !ok {
		return 0
	}
	return float64(inputTokens)/1_000_000*p.InputPer1M + float64(outputTokens)/1_000_000*p.OutputPer1M
}

// UpdatePricing overrides or adds pricing for a model.
func (ce *CostEngine) UpdatePricing(model string, price ModelPrice) {
	ce.mu.Lock()
	defer ce.mu.Unlock()
	ce.pricing[model] = price
}

// Usage is one turn's token/cost accounting, logged by the orchestrator
// after every LLM call.
type Usage struct {
	Model        string
	InputTokens  int
	OutputTokens int
	CostUSD      float64
}

// Measure estimates a turn's token usage and cost from the prompt and
// completion text.
func Measure(counter *TokenCounter, cost *CostEngine, model, prompt, completion string) Usage {
	in := counter.EstimateTokens(prompt)
	out := counter.EstimateTokens(completion)
	return Usage{
		Model:        model,
		InputTokens:  in,
		OutputTokens: out,
		CostUSD:      cost.Calculate(model, in, out),
	}
}
