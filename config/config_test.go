package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadTOMLOverlayAppliesWhenEnvVarsAbsent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "saju.toml")
	body := `
default_provider = "anthropic"
free_daily_turn_limit = 5
push_hour_kst = 9
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("failed to write overlay file: %v", err)
	}

	overlay := loadTOMLOverlay(path)
	if overlay.DefaultProvider != "anthropic" {
		t.Fatalf("expected overlay default_provider to load, got %q", overlay.DefaultProvider)
	}
	if overlay.FreeDailyTurnLimit != 5 {
		t.Fatalf("expected overlay free_daily_turn_limit to load, got %d", overlay.FreeDailyTurnLimit)
	}
	if overlay.PushHourKST != 9 {
		t.Fatalf("expected overlay push_hour_kst to load, got %d", overlay.PushHourKST)
	}
}

func TestLoadTOMLOverlayMissingFileIsNotAnError(t *testing.T) {
	overlay := loadTOMLOverlay(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	if overlay.DefaultProvider != "" {
		t.Fatalf("expected empty overlay for a missing file, got %+v", overlay)
	}
}

func TestOrDefaultHelpers(t *testing.T) {
	if got := orDefault("", "fallback"); got != "fallback" {
		t.Fatalf("expected fallback for empty string, got %q", got)
	}
	if got := orDefault("set", "fallback"); got != "set" {
		t.Fatalf("expected explicit value to win, got %q", got)
	}
	if got := orDefaultInt(0, 7); got != 7 {
		t.Fatalf("expected fallback for zero int, got %d", got)
	}
	if got := orDefaultInt(3, 7); got != 3 {
		t.Fatalf("expected explicit value to win, got %d", got)
	}
}
