package router

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/sajuworks/saju-gateway/config"
	"github.com/sajuworks/saju-gateway/observability"
	"github.com/sajuworks/saju-gateway/platform"
)

func testSetup() http.Handler {
	cfg := &config.Config{
		Addr:             ":0",
		Env:              "test",
		RateLimitEnabled: false,
		MaxBodyBytes:     1 << 20,
	}
	log := zerolog.New(io.Discard).With().Timestamp().Logger()

	return NewRouter(Deps{
		Config:  cfg,
		Logger:  log,
		Metrics: observability.NewMetrics(),
		Kakao:   platform.NewKakao(nil, log),
		Web:     platform.NewWeb(),
	})
}

func TestHealthEndpoints(t *testing.T) {
	r := testSetup()

	tests := []struct {
		name   string
		path   string
		status int
	}{
		{"healthz", "/healthz", http.StatusOK},
		{"ready", "/ready", http.StatusOK},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			rw := httptest.NewRecorder()
			r.ServeHTTP(rw, req)
			if rw.Result().StatusCode != tc.status {
				t.Fatalf("expected %d for %s, got %d", tc.status, tc.path, rw.Result().StatusCode)
			}
		})
	}
}

func TestPushTriggerRequiresSecret(t *testing.T) {
	cfg := &config.Config{Addr: ":0", Env: "test", MaxBodyBytes: 1 << 20, PushTriggerSecret: "s3cr3t"}
	log := zerolog.New(io.Discard).With().Timestamp().Logger()
	r := NewRouter(Deps{Config: cfg, Logger: log, Kakao: platform.NewKakao(nil, log), Web: platform.NewWeb()})

	req := httptest.NewRequest(http.MethodPost, "/internal/push/trigger", nil)
	rw := httptest.NewRecorder()
	r.ServeHTTP(rw, req)

	if rw.Result().StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without trigger secret, got %d", rw.Result().StatusCode)
	}
}

func TestCORSPreflight(t *testing.T) {
	r := testSetup()

	req := httptest.NewRequest(http.MethodOptions, "/api/web/message", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rw := httptest.NewRecorder()
	r.ServeHTTP(rw, req)

	if rw.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Fatal("expected CORS Allow-Origin header on preflight response")
	}
}

func TestSecurityHeaders(t *testing.T) {
	r := testSetup()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rw := httptest.NewRecorder()
	r.ServeHTTP(rw, req)

	headers := []string{
		"X-Content-Type-Options",
		"X-Frame-Options",
		"Strict-Transport-Security",
	}
	for _, h := range headers {
		if rw.Header().Get(h) == "" {
			t.Fatalf("expected security header %s to be set", h)
		}
	}
}

func TestKakaoWebhookRejectsBadSecret(t *testing.T) {
	cfg := &config.Config{Addr: ":0", Env: "test", MaxBodyBytes: 1 << 20, KakaoSkillSecret: "topsecret"}
	log := zerolog.New(io.Discard).With().Timestamp().Logger()
	r := NewRouter(Deps{Config: cfg, Logger: log, Kakao: platform.NewKakao(nil, log), Web: platform.NewWeb()})

	req := httptest.NewRequest(http.MethodPost, "/webhooks/kakao", nil)
	rw := httptest.NewRecorder()
	r.ServeHTTP(rw, req)

	if rw.Result().StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without kakao skill secret, got %d", rw.Result().StatusCode)
	}
}
