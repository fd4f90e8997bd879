package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/sajuworks/saju-gateway/llmclient"
	"github.com/sajuworks/saju-gateway/orchestrator"
)

const telegramMaxBubbleLen = 1000
const telegramMaxBubbles = 3

// Telegram adapts the orchestrator.Responder interface to Telegram's
// Bot API: sendMessage/editMessageText/deleteMessage/sendChatAction.
type Telegram struct {
	token      string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewTelegram builds a Telegram responder using the shared connection pool.
func NewTelegram(token string, pool *llmclient.ConnectionPool, logger zerolog.Logger) *Telegram {
	var client *http.Client
	if pool != nil {
		client = pool.GetClient("telegram", 10*time.Second)
	} else {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Telegram{token: token, httpClient: client, logger: logger}
}

func (t *Telegram) apiURL(method string) string {
	return fmt.Sprintf("https://api.telegram.org/bot%s/%s", t.token, method)
}

func (t *Telegram) call(ctx context.Context, method string, payload map[string]interface{}) (map[string]interface{}, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.apiURL(method), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("telegram: %s request failed: %w", method, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	var out map[string]interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("telegram: decode %s response: %w", method, err)
	}

	if ok, _ := out["ok"].(bool); !ok {
		if code, _ := out["error_code"].(float64); code == 403 {
			return out, ErrUserBlocked
		}
		return out, fmt.Errorf("telegram: %s failed: %v", method, out["description"])
	}
	return out, nil
}

// Send delivers a reply, splitting into multiple messages at natural
// boundaries when it exceeds Telegram's comfortable bubble length.
func (t *Telegram) Send(ctx context.Context, platformName, chatID, text string) error {
	for _, bubble := range splitBubbles(text, telegramMaxBubbleLen, telegramMaxBubbles) {
		if _, err := t.call(ctx, "sendMessage", map[string]interface{}{
			"chat_id":    chatID,
			"text":       escapeTelegramMarkdown(bubble),
			"parse_mode": "MarkdownV2",
		}); err != nil {
			return err
		}
	}
	return nil
}

// SendTyping shows the typing indicator.
func (t *Telegram) SendTyping(ctx context.Context, platformName, chatID string) error {
	_, err := t.call(ctx, "sendChatAction", map[string]interface{}{
		"chat_id": chatID,
		"action":  "typing",
	})
	return err
}

// SendProgress posts a message then edits it through each stage label
// on a ticker until done is closed, implementing the two-phase
// progress pattern's edit loop.
func (t *Telegram) SendProgress(ctx context.Context, platformName, chatID string, stages []string, interval time.Duration, done <-chan struct{}) error {
	if len(stages) == 0 {
		return nil
	}
	resp, err := t.call(ctx, "sendMessage", map[string]interface{}{
		"chat_id": chatID,
		"text":    stages[0],
	})
	if err != nil {
		return err
	}
	result, _ := resp["result"].(map[string]interface{})
	messageID, _ := result["message_id"].(float64)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	idx := 1
	for {
		select {
		case <-done:
			_, _ = t.call(ctx, "deleteMessage", map[string]interface{}{
				"chat_id":    chatID,
				"message_id": messageID,
			})
			return nil
		case <-ticker.C:
			if idx >= len(stages) {
				idx = 0
			}
			_, _ = t.call(ctx, "editMessageText", map[string]interface{}{
				"chat_id":    chatID,
				"message_id": messageID,
				"text":       stages[idx],
			})
			idx++
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Update is the subset of a Telegram update payload this bot reads.
type Update struct {
	Message struct {
		Chat struct {
			ID int64 `json:"id"`
		} `json:"chat"`
		Text string `json:"text"`
	} `json:"message"`
}

// ParseUpdate normalizes a Telegram webhook body into an orchestrator.Inbound.
func ParseUpdate(body []byte) (orchestrator.Inbound, error) {
	var u Update
	if err := json.Unmarshal(body, &u); err != nil {
		return orchestrator.Inbound{}, err
	}
	chatID := fmt.Sprintf("%d", u.Message.Chat.ID)
	return orchestrator.Inbound{
		Platform: "telegram",
		UserID:   chatID,
		Text:     u.Message.Text,
		IsStart:  u.Message.Text == "/start",
	}, nil
}

var _ orchestrator.Responder = (*Telegram)(nil)
