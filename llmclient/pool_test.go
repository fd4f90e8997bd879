package llmclient

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sony/gobreaker"
)

func TestConnectionPoolReusesClientPerProvider(t *testing.T) {
	pool := NewConnectionPool(DefaultPoolConfig())
	a := pool.GetClient("openai", time.Second)
	b := pool.GetClient("openai", time.Second)
	if a != b {
		t.Fatal("expected GetClient to return the same pooled client for repeat calls")
	}
}

func TestConnectionPoolBreakerTripsAfterRepeatedFailures(t *testing.T) {
	srv := httptest.NewServer(nil)
	url := srv.URL
	srv.Close() // closed immediately: every request now fails fast with connection refused

	pool := NewConnectionPool(DefaultPoolConfig())
	client := pool.GetClient("flaky", 500*time.Millisecond)

	var lastErr error
	for i := 0; i < 6; i++ {
		_, lastErr = client.Get(url)
		if lastErr == nil {
			t.Fatal("expected every request against a closed server to fail")
		}
	}
	if !errors.Is(lastErr, gobreaker.ErrOpenState) && !errors.Is(lastErr, gobreaker.ErrTooManyRequests) {
		t.Fatalf("expected the breaker to have opened after repeated failures, got %v", lastErr)
	}
}
