package llmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	anthropicBaseURL = "https://api.anthropic.com/v1"
	anthropicVersion = "2023-06-01"
)

// AnthropicProvider implements Provider for Anthropic's Messages API.
// Anthropic has no embeddings endpoint; Embeddings always errors so
// callers fall back to another registered provider.
type AnthropicProvider struct {
	config ProviderConfig
	client *http.Client
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Messages    []anthropicMessage `json:"messages"`
	System      string             `json:"system,omitempty"`
	Temperature *float64           `json:"temperature,omitempty"`
	StopSeqs    []string           `json:"stop_sequences,omitempty"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// NewAnthropicProvider creates an Anthropic connector. pool, when
// non-nil, supplies the shared transport.
func NewAnthropicProvider(cfg ProviderConfig, pool *ConnectionPool) *AnthropicProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = anthropicBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	var client *http.Client
	if pool != nil {
		client = pool.GetClient("anthropic", cfg.Timeout)
	} else {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &AnthropicProvider{config: cfg, client: client}
}

func (p *AnthropicProvider) Name() string { return "anthropic" }

func (p *AnthropicProvider) ChatCompletion(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	aReq := p.convertRequest(req)
	body, err := json.Marshal(aReq)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.BaseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	p.setHeaders(httpReq)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, &ErrUnavailable{Provider: "anthropic", Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("anthropic returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var aResp anthropicResponse
	if err := json.NewDecoder(resp.Body).Decode(&aResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return p.convertResponse(&aResp), nil
}

func (p *AnthropicProvider) Embeddings(ctx context.Context, req *EmbeddingsRequest) (*EmbeddingsResponse, error) {
	return nil, fmt.Errorf("anthropic: embeddings not supported")
}

func (p *AnthropicProvider) HealthCheck(ctx context.Context) HealthStatus {
	start := time.Now()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.config.BaseURL+"/models", nil)
	if err != nil {
		return HealthStatus{Healthy: false, Error: err.Error(), LastCheck: time.Now()}
	}
	p.setHeaders(httpReq)

	resp, err := p.client.Do(httpReq)
	latency := time.Since(start)
	if err != nil {
		return HealthStatus{Healthy: false, Latency: latency, Error: err.Error(), LastCheck: time.Now()}
	}
	defer resp.Body.Close()

	// Anthropic has no /models endpoint on v1; any non-5xx means reachable.
	healthy := resp.StatusCode < 500
	errMsg := ""
	if !healthy {
		errMsg = fmt.Sprintf("status %d", resp.StatusCode)
	}
	return HealthStatus{Healthy: healthy, Latency: latency, LastCheck: time.Now(), Error: errMsg}
}

func (p *AnthropicProvider) convertRequest(req *ChatRequest) *anthropicRequest {
	aReq := &anthropicRequest{
		Model:       req.Model,
		MaxTokens:   1024,
		Temperature: req.Temperature,
		StopSeqs:    req.Stop,
	}
	if req.MaxTokens != nil {
		aReq.MaxTokens = *req.MaxTokens
	}
	for _, msg := range req.Messages {
		if msg.Role == "system" {
			aReq.System = msg.Content
			continue
		}
		aReq.Messages = append(aReq.Messages, anthropicMessage{Role: msg.Role, Content: msg.Content})
	}
	return aReq
}

func (p *AnthropicProvider) convertResponse(aResp *anthropicResponse) *ChatResponse {
	var text string
	for _, block := range aResp.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	return &ChatResponse{
		ID:    aResp.ID,
		Model: aResp.Model,
		Choices: []Choice{
			{
				Index:        0,
				Message:      ChatMessage{Role: "assistant", Content: text},
				FinishReason: mapStopReason(aResp.StopReason),
			},
		},
		Usage: Usage{
			PromptTokens:     aResp.Usage.InputTokens,
			CompletionTokens: aResp.Usage.OutputTokens,
			TotalTokens:      aResp.Usage.InputTokens + aResp.Usage.OutputTokens,
		},
	}
}

func mapStopReason(reason string) string {
	switch reason {
	case "end_turn", "stop_sequence":
		return "stop"
	case "max_tokens":
		return "length"
	default:
		return reason
	}
}

func (p *AnthropicProvider) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", p.config.APIKey)
	req.Header.Set("anthropic-version", anthropicVersion)
}
