// Package router mounts the HTTP surface: platform webhooks (Telegram,
// Kakao), the demo web chat API, a secret-authenticated push-trigger
// endpoint, and the health/metrics endpoints — the middleware chain
// order (CORS → security headers → request ID → panic recovery →
// request logging → body size limit) is carried from the teacher's
// router.NewRouter.
package router

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/sajuworks/saju-gateway/config"
	gwmw "github.com/sajuworks/saju-gateway/middleware"
	"github.com/sajuworks/saju-gateway/observability"
	"github.com/sajuworks/saju-gateway/orchestrator"
	"github.com/sajuworks/saju-gateway/platform"
	"github.com/sajuworks/saju-gateway/scheduler"
)

// Deps bundles every collaborator the router dispatches HTTP requests
// to. Orchestrators are built per-platform by the caller because each
// binds a different Responder implementation to the same shared state.
type Deps struct {
	Config        *config.Config
	Logger        zerolog.Logger
	Metrics       *observability.Metrics
	TelegramOrch  *orchestrator.Orchestrator
	KakaoOrch     *orchestrator.Orchestrator
	WebOrch       *orchestrator.Orchestrator
	Telegram      *platform.Telegram
	Kakao         *platform.Kakao
	Web           *platform.Web
	Scheduler     *scheduler.Scheduler
}

const kakaoSoftDeadline = 4500 * time.Millisecond

// NewRouter returns a configured chi Router with the full middleware
// chain and all routes mounted.
func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	log := deps.Logger

	r := chi.NewRouter()

	r.Use(gwmw.CORSMiddleware([]string{"*"}))
	r.Use(gwmw.SecurityHeadersMiddleware)
	r.Use(gwmw.RequestIDMiddleware)
	r.Use(chimw.Recoverer)
	r.Use(mwRequestLogger(log))
	r.Use(mwMaxBodySize(cfg.MaxBodyBytes))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "saju-gateway"})
	})
	r.Get("/ready", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready", "service": "saju-gateway"})
	})
	if deps.Metrics != nil {
		r.Get("/metrics", deps.Metrics.Handler().ServeHTTP)
	}

	rateLimiter := gwmw.NewRateLimiter(log, cfg.RateLimitEnabled, cfg.RateLimitRPM, cfg.RateLimitBurst)

	r.Route("/webhooks", func(r chi.Router) {
		r.Use(rateLimiter.Handler)

		r.With(gwmw.NewWebhookAuth(log, "X-Telegram-Bot-Api-Secret-Token", cfg.TelegramWebhookSecret).Handler).
			Post("/telegram", telegramWebhookHandler(deps))

		r.With(gwmw.NewWebhookAuth(log, "X-Kakao-Skill-Secret", cfg.KakaoSkillSecret).Handler).
			Post("/kakao", kakaoWebhookHandler(deps))
	})

	r.Route("/api/web", func(r chi.Router) {
		r.Use(rateLimiter.Handler)
		r.Post("/message", webMessageHandler(deps))
	})

	r.With(gwmw.NewWebhookAuth(log, "X-Push-Trigger-Secret", cfg.PushTriggerSecret).Handler).
		Post("/internal/push/trigger", pushTriggerHandler(deps))

	return r
}

func telegramWebhookHandler(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		in, err := platform.ParseUpdate(readBody(r))
		if err != nil {
			http.Error(w, `{"error":"bad_request"}`, http.StatusBadRequest)
			return
		}
		in.ReceivedAt = time.Now()

		// Telegram doesn't hold the connection open for the reply — ack
		// immediately and let the orchestrator deliver asynchronously via
		// sendMessage/editMessageText.
		go deps.TelegramOrch.Handle(context.Background(), in)

		w.WriteHeader(http.StatusOK)
	}
}

func kakaoWebhookHandler(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		in, callbackURL, err := platform.ParseSkillRequest(readBody(r))
		if err != nil {
			http.Error(w, `{"error":"bad_request"}`, http.StatusBadRequest)
			return
		}
		in.ReceivedAt = time.Now()

		go deps.KakaoOrch.Handle(context.Background(), in)

		deadline := time.After(kakaoSoftDeadline)
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if result, ok := deps.Kakao.TakeSyncResult(in.UserID); ok {
					writeJSON(w, http.StatusOK, result)
					return
				}
			case <-deadline:
				deps.Kakao.RegisterCallback(in.UserID, callbackURL)
				writeJSON(w, http.StatusOK, map[string]interface{}{
					"version":     "2.0",
					"useCallback": true,
				})
				return
			}
		}
	}
}

// webMessageRequest is the demo web chat API's request body.
type webMessageRequest struct {
	UserID string `json:"user_id"`
	Text   string `json:"text"`
}

func webMessageHandler(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req webMessageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
			http.Error(w, `{"error":"bad_request"}`, http.StatusBadRequest)
			return
		}

		in := orchestrator.Inbound{
			Platform: "web", UserID: req.UserID, Text: req.Text, ReceivedAt: time.Now(),
		}
		go deps.WebOrch.Handle(r.Context(), in)

		reply, ok := deps.Web.Await(r.Context(), req.UserID)
		if !ok {
			writeJSON(w, http.StatusGatewayTimeout, map[string]string{"error": "timeout"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"reply": reply})
	}
}

func pushTriggerHandler(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Scheduler == nil {
			http.Error(w, `{"error":"scheduler_unavailable"}`, http.StatusServiceUnavailable)
			return
		}
		result := deps.Scheduler.RunOnce(r.Context())
		writeJSON(w, http.StatusOK, map[string]int{
			"total": result.Total, "success": result.Success, "failed": result.Failed,
		})
	}
}

func readBody(r *http.Request) []byte {
	body, _ := io.ReadAll(r.Body)
	return body
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func mwMaxBodySize(maxBytes int64) func(http.Handler) http.Handler {
	if maxBytes <= 0 {
		maxBytes = 1 * 1024 * 1024
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > 0 && r.ContentLength > maxBytes {
				http.Error(w, `{"error":"request_too_large"}`, http.StatusRequestEntityTooLarge)
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}

func mwRequestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(rw, r)
			log.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("req_id", r.Header.Get("X-Request-ID")).
				Int("status", rw.Status()).
				Dur("duration", time.Since(start)).
				Msg("request completed")
		})
	}
}
