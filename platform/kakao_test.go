package platform

import (
	"context"
	"io"
	"testing"

	"github.com/rs/zerolog"
)

func TestKakaoSendWithoutCallbackQueuesSyncResult(t *testing.T) {
	k := NewKakao(nil, zerolog.New(io.Discard))

	if err := k.Send(context.Background(), "kakao", "u1", "안녕하세요"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, ok := k.TakeSyncResult("u1")
	if !ok {
		t.Fatal("expected a queued sync result")
	}
	if result["version"] != "2.0" {
		t.Fatalf("expected skill response version 2.0, got %v", result["version"])
	}
}

func TestKakaoTakeSyncResultClearsAfterRead(t *testing.T) {
	k := NewKakao(nil, zerolog.New(io.Discard))
	_ = k.Send(context.Background(), "kakao", "u1", "hi")

	_, ok := k.TakeSyncResult("u1")
	if !ok {
		t.Fatal("expected first take to succeed")
	}
	if _, ok := k.TakeSyncResult("u1"); ok {
		t.Fatal("expected second take to find nothing")
	}
}

func TestKakaoRegisterCallbackIsConsumedOnce(t *testing.T) {
	k := NewKakao(nil, zerolog.New(io.Discard))
	k.RegisterCallback("u1", "https://example.com/callback")

	url, ok := k.takeCallback("u1")
	if !ok || url != "https://example.com/callback" {
		t.Fatalf("expected registered callback, got %q ok=%v", url, ok)
	}
	if _, ok := k.takeCallback("u1"); ok {
		t.Fatal("expected callback to be consumed after first take")
	}
}

func TestParseSkillRequestExtractsFields(t *testing.T) {
	body := []byte(`{"userRequest":{"user":{"id":"u42"},"utterance":"재물운 궁금해","callbackUrl":{"url":"https://cb.example.com/x"}}}`)
	in, callbackURL, err := ParseSkillRequest(body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if in.Platform != "kakao" || in.UserID != "u42" || in.Text != "재물운 궁금해" {
		t.Fatalf("unexpected parsed inbound: %+v", in)
	}
	if callbackURL != "https://cb.example.com/x" {
		t.Fatalf("expected callback url extracted, got %q", callbackURL)
	}
}
