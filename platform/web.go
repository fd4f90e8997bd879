package platform

import (
	"context"
	"sync"
	"time"

	"github.com/sajuworks/saju-gateway/orchestrator"
)

const webHardDeadline = 90 * time.Second

// Web adapts the orchestrator.Responder interface to the synchronous
// web API: the handler blocks on a channel until Send (or the hard
// deadline) delivers a result, since there's no push channel to a
// browser beyond the open HTTP response.
type Web struct {
	mu      sync.Mutex
	pending map[string]chan string
}

// NewWeb builds a web responder.
func NewWeb() *Web {
	return &Web{pending: make(map[string]chan string)}
}

// Await registers a wait channel for a request key and blocks for up
// to the hard deadline, returning the final reply text.
func (w *Web) Await(ctx context.Context, requestKey string) (string, bool) {
	ch := make(chan string, 1)
	w.mu.Lock()
	w.pending[requestKey] = ch
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		delete(w.pending, requestKey)
		w.mu.Unlock()
	}()

	select {
	case reply := <-ch:
		return reply, true
	case <-time.After(webHardDeadline):
		return "", false
	case <-ctx.Done():
		return "", false
	}
}

func (w *Web) Send(ctx context.Context, platformName, requestKey, text string) error {
	w.mu.Lock()
	ch, ok := w.pending[requestKey]
	w.mu.Unlock()
	if ok {
		select {
		case ch <- text:
		default:
		}
	}
	return nil
}

func (w *Web) SendTyping(ctx context.Context, platformName, requestKey string) error { return nil }

func (w *Web) SendProgress(ctx context.Context, platformName, requestKey string, stages []string, interval time.Duration, done <-chan struct{}) error {
	<-done
	return nil
}

var _ orchestrator.Responder = (*Web)(nil)
