package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/sajuworks/saju-gateway/llmclient"
	"github.com/sajuworks/saju-gateway/orchestrator"
)

const kakaoMaxBubbleLen = 1000
const kakaoMaxBubbles = 3
const kakaoSoftDeadline = 55 * time.Second

// Kakao adapts the orchestrator.Responder interface to the Kakao
// i Open Builder skill contract: a synchronous JSON response within
// ~5s, or — when the handler is still working past the soft deadline
// — an async "useCallback" ack followed by a POST to a single-use
// callback URL within ~60s.
type Kakao struct {
	httpClient *http.Client
	logger     zerolog.Logger

	mu          sync.Mutex
	callbacks   map[string]string                    // chat key -> callback URL, valid for one pending reply
	syncResult  map[string]map[string]interface{}     // chat key -> queued sync response, when no callback is registered
}

// NewKakao builds a Kakao responder.
func NewKakao(pool *llmclient.ConnectionPool, logger zerolog.Logger) *Kakao {
	var client *http.Client
	if pool != nil {
		client = pool.GetClient("kakao", 10*time.Second)
	} else {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Kakao{httpClient: client, logger: logger, callbacks: make(map[string]string), syncResult: make(map[string]map[string]interface{})}
}

// RegisterCallback remembers a skill request's callback URL so a later
// Send (after the soft deadline) can deliver asynchronously.
func (k *Kakao) RegisterCallback(chatKey, callbackURL string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.callbacks[chatKey] = callbackURL
}

func (k *Kakao) takeCallback(chatKey string) (string, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	url, ok := k.callbacks[chatKey]
	delete(k.callbacks, chatKey)
	return url, ok
}

// simpleTextResponse is the Kakao skill JSON response shape.
func simpleTextResponse(bubbles []string) map[string]interface{} {
	var outputs []map[string]interface{}
	for _, b := range bubbles {
		outputs = append(outputs, map[string]interface{}{
			"simpleText": map[string]string{"text": b},
		})
	}
	return map[string]interface{}{
		"version": "2.0",
		"template": map[string]interface{}{
			"outputs": outputs,
		},
	}
}

// Send delivers a reply either synchronously (the caller writes the
// returned JSON to the original HTTP response) or, if a callback was
// registered for this chat, via an async POST to Kakao's callback URL.
func (k *Kakao) Send(ctx context.Context, platformName, chatKey, text string) error {
	bubbles := splitBubbles(toKakaoText(text), kakaoMaxBubbleLen, kakaoMaxBubbles)
	payload := simpleTextResponse(bubbles)

	callbackURL, hasCallback := k.takeCallback(chatKey)
	if !hasCallback {
		// No callback registered means the webhook handler is still
		// holding the connection open — it will read this via TakeSyncResult.
		k.mu.Lock()
		k.syncResult[chatKey] = payload
		k.mu.Unlock()
		return nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, callbackURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := k.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("kakao: callback delivery failed: %w", err)
	}
	defer resp.Body.Close()
	return nil
}

// TakeSyncResult returns and clears a result queued by Send when no
// callback URL was registered, for the webhook handler to write out.
func (k *Kakao) TakeSyncResult(chatKey string) (map[string]interface{}, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	v, ok := k.syncResult[chatKey]
	delete(k.syncResult, chatKey)
	return v, ok
}

// SendTyping is a no-op: Kakao's skill contract has no typing indicator.
func (k *Kakao) SendTyping(ctx context.Context, platformName, chatKey string) error { return nil }

// SendProgress is a no-op for Kakao: the soft/hard deadline pattern is
// handled at the webhook handler level (useCallback ack), not via
// edited messages, since Kakao skill responses cannot be edited.
func (k *Kakao) SendProgress(ctx context.Context, platformName, chatKey string, stages []string, interval time.Duration, done <-chan struct{}) error {
	<-done
	return nil
}

// SkillRequest is the subset of a Kakao skill payload this bot reads.
type SkillRequest struct {
	UserRequest struct {
		User struct {
			ID string `json:"id"`
		} `json:"user"`
		Utterance string `json:"utterance"`
		Callback  struct {
			URL string `json:"url"`
		} `json:"callbackUrl"`
	} `json:"userRequest"`
}

// ParseSkillRequest normalizes a Kakao skill webhook body into an orchestrator.Inbound.
func ParseSkillRequest(body []byte) (orchestrator.Inbound, string, error) {
	var req SkillRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return orchestrator.Inbound{}, "", err
	}
	return orchestrator.Inbound{
		Platform: "kakao",
		UserID:   req.UserRequest.User.ID,
		Text:     req.UserRequest.Utterance,
	}, req.UserRequest.Callback.URL, nil
}

var _ orchestrator.Responder = (*Kakao)(nil)
