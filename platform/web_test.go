package platform

import (
	"context"
	"testing"
	"time"
)

func TestWebAwaitReceivesSend(t *testing.T) {
	w := NewWeb()
	go func() {
		time.Sleep(10 * time.Millisecond)
		_ = w.Send(context.Background(), "web", "req1", "hello")
	}()

	reply, ok := w.Await(context.Background(), "req1")
	if !ok || reply != "hello" {
		t.Fatalf("expected (hello, true), got (%q, %v)", reply, ok)
	}
}

func TestWebAwaitReturnsOnContextCancel(t *testing.T) {
	w := NewWeb()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, ok := w.Await(ctx, "req2")
	if ok {
		t.Fatal("expected Await to report false when context is cancelled before any Send")
	}
}

func TestWebSendToUnknownKeyIsNoop(t *testing.T) {
	w := NewWeb()
	if err := w.Send(context.Background(), "web", "ghost", "hi"); err != nil {
		t.Fatalf("expected no error sending to unregistered key, got %v", err)
	}
}
