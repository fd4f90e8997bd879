// Request timeout middleware using Go context cancellation: wraps each
// request with a deadline and suppresses writes from a handler
// goroutine that is still running after the deadline expires.
package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sajuworks/saju-gateway/config"
)

// TimeoutMiddleware applies a per-request timeout: the X-Saju-Timeout
// header value (capped at 5 minutes) or, without it, the configured
// default timeout.
type TimeoutMiddleware struct {
	logger zerolog.Logger
	cfg    *config.Config
}

// NewTimeoutMiddleware creates a new timeout middleware.
func NewTimeoutMiddleware(logger zerolog.Logger, cfg *config.Config) *TimeoutMiddleware {
	return &TimeoutMiddleware{
		logger: logger,
		cfg:    cfg,
	}
}

// Handler returns the HTTP middleware handler.
func (t *TimeoutMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		timeout := t.resolveTimeout(r)

		if timeout <= 0 {
			// No timeout — pass through.
			next.ServeHTTP(w, r)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		// Track whether the handler completed or timed out.
		done := make(chan struct{})
		tw := &timeoutWriter{
			ResponseWriter: w,
		}

		go func() {
			next.ServeHTTP(tw, r.WithContext(ctx))
			close(done)
		}()

		select {
		case <-done:
			// Handler completed normally. Check it wasn't also timed out.
			tw.mu.Lock()
			alreadyTimedOut := tw.timedOut
			tw.mu.Unlock()
			if alreadyTimedOut {
				t.logger.Debug().
					Str("path", r.URL.Path).
					Msg("handler goroutine finished after timeout")
			}
			return
		case <-ctx.Done():
			// Context deadline exceeded — mark timedOut to suppress further
			// writes from the still-running handler goroutine.
			tw.mu.Lock()
			tw.timedOut = true
			if !tw.wroteHeader {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusGatewayTimeout)
				json.NewEncoder(w).Encode(map[string]interface{}{
					"error": map[string]interface{}{
						"type":    "timeout",
						"message": "Request timed out after " + timeout.String(),
					},
				})
				tw.wroteHeader = true
			}
			tw.mu.Unlock()

			t.logger.Warn().
				Str("path", r.URL.Path).
				Dur("timeout", timeout).
				Msg("request timed out — handler goroutine still running with cancelled context")

			// Wait for the handler goroutine to finish. The cancelled context
			// should cause well-behaved handlers to return promptly.
			<-done
		}
	})
}

// resolveTimeout determines the timeout for this request: a
// client-specified header (capped at 5 minutes) or the configured
// default.
func (t *TimeoutMiddleware) resolveTimeout(r *http.Request) time.Duration {
	if headerVal := r.Header.Get("X-Saju-Timeout"); headerVal != "" {
		if seconds, err := strconv.Atoi(headerVal); err == nil && seconds > 0 {
			timeout := time.Duration(seconds) * time.Second
			const maxTimeout = 5 * time.Minute
			if timeout > maxTimeout {
				timeout = maxTimeout
			}
			return timeout
		}
	}
	return t.cfg.DefaultTimeout
}

// timeoutWriter wraps http.ResponseWriter for safe concurrent access
// between the handler goroutine and the timeout goroutine.
type timeoutWriter struct {
	http.ResponseWriter
	mu          sync.Mutex
	wroteHeader bool
	timedOut    bool // set when context deadline exceeded; suppresses further writes
}

func (tw *timeoutWriter) WriteHeader(code int) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.timedOut || tw.wroteHeader {
		return
	}
	tw.wroteHeader = true
	tw.ResponseWriter.WriteHeader(code)
}

func (tw *timeoutWriter) Write(b []byte) (int, error) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.timedOut {
		// Suppress writes from the handler goroutine after timeout.
		return 0, context.DeadlineExceeded
	}
	if !tw.wroteHeader {
		tw.wroteHeader = true
		tw.ResponseWriter.WriteHeader(http.StatusOK)
	}
	return tw.ResponseWriter.Write(b)
}

func (tw *timeoutWriter) Flush() {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if f, ok := tw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
