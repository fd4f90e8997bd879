package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"

	"github.com/rs/zerolog"
)

type contextKey string

const (
	// PlatformUserContextKey stores the sender's platform user ID, set by
	// the platform-specific webhook handler after it parses the body.
	PlatformUserContextKey contextKey = "platform_user_id"
)

// WebhookAuth validates an inbound platform webhook using a shared
// secret, the pattern both Telegram (X-Telegram-Bot-Api-Secret-Token)
// and Kakao skill servers (a static bearer token) use to prove a
// request actually came from the platform and not a forged POST.
type WebhookAuth struct {
	logger     zerolog.Logger
	headerName string
	secret     string
}

// NewWebhookAuth creates webhook-secret validation middleware. When
// secret is empty, verification is skipped — useful for local
// development without a configured webhook secret.
func NewWebhookAuth(logger zerolog.Logger, headerName, secret string) *WebhookAuth {
	return &WebhookAuth{logger: logger, headerName: headerName, secret: secret}
}

// Handler returns the middleware handler.
func (a *WebhookAuth) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.secret == "" {
			next.ServeHTTP(w, r)
			return
		}

		got := r.Header.Get(a.headerName)
		if subtle.ConstantTimeCompare([]byte(got), []byte(a.secret)) != 1 {
			a.logger.Warn().Str("path", r.URL.Path).Msg("webhook auth rejected")
			http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// WithPlatformUser stores the platform user ID in the request context.
func WithPlatformUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, PlatformUserContextKey, userID)
}

// GetPlatformUser extracts the platform user ID from the request context.
func GetPlatformUser(ctx context.Context) string {
	if v, ok := ctx.Value(PlatformUserContextKey).(string); ok {
		return v
	}
	return ""
}
