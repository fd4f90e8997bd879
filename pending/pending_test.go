package pending

import (
	"context"
	"testing"
	"time"
)

func TestMemStoreSetAndGet(t *testing.T) {
	m := NewMemStore()
	now := time.Now()

	err := m.Set(context.Background(), Action{
		Platform: "telegram", UserID: "u1", ActionType: "compatibility", CreatedAt: now,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	a, ok, err := m.Get(context.Background(), "telegram", "u1", "compatibility")
	if err != nil || !ok {
		t.Fatalf("expected pending action to be found, ok=%v err=%v", ok, err)
	}
	if a.ExpiresAt.Sub(a.CreatedAt) != DefaultTTL {
		t.Fatalf("expected default TTL to be applied, got %v", a.ExpiresAt.Sub(a.CreatedAt))
	}
}

func TestMemStoreSetReplacesExisting(t *testing.T) {
	m := NewMemStore()
	now := time.Now()

	_ = m.Set(context.Background(), Action{Platform: "telegram", UserID: "u1", ActionType: "compatibility", CreatedAt: now, Payload: []byte(`"first"`)})
	_ = m.Set(context.Background(), Action{Platform: "telegram", UserID: "u1", ActionType: "compatibility", CreatedAt: now, Payload: []byte(`"second"`)})

	a, ok, _ := m.Get(context.Background(), "telegram", "u1", "compatibility")
	if !ok || string(a.Payload) != `"second"` {
		t.Fatalf("expected latest Set to replace prior pending action, got %+v", a)
	}
}

func TestMemStoreGetExpiredReturnsFalse(t *testing.T) {
	m := NewMemStore()
	now := time.Now()

	_ = m.Set(context.Background(), Action{
		Platform: "telegram", UserID: "u1", ActionType: "compatibility",
		CreatedAt: now.Add(-20 * time.Minute), ExpiresAt: now.Add(-10 * time.Minute),
	})

	_, ok, err := m.Get(context.Background(), "telegram", "u1", "compatibility")
	if err != nil || ok {
		t.Fatalf("expected expired action to be absent, ok=%v err=%v", ok, err)
	}
}

func TestMemStoreDelete(t *testing.T) {
	m := NewMemStore()
	now := time.Now()
	_ = m.Set(context.Background(), Action{Platform: "telegram", UserID: "u1", ActionType: "compatibility", CreatedAt: now})

	if err := m.Delete(context.Background(), "telegram", "u1", "compatibility"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok, _ := m.Get(context.Background(), "telegram", "u1", "compatibility"); ok {
		t.Fatal("expected action to be gone after delete")
	}
}

func TestMemStoreSweepRemovesExpiredOnly(t *testing.T) {
	m := NewMemStore()
	now := time.Now()

	_ = m.Set(context.Background(), Action{
		Platform: "telegram", UserID: "expired", ActionType: "compatibility",
		CreatedAt: now.Add(-20 * time.Minute), ExpiresAt: now.Add(-time.Minute),
	})
	_ = m.Set(context.Background(), Action{
		Platform: "telegram", UserID: "fresh", ActionType: "compatibility", CreatedAt: now,
	})

	removed, err := m.Sweep(context.Background(), now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	if _, ok, _ := m.Get(context.Background(), "telegram", "fresh", "compatibility"); !ok {
		t.Fatal("expected fresh action to survive sweep")
	}
}
