package config

import (
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// tomlOverlay is an optional per-environment tuning profile layered
// under env vars: present keys set the default a missing env var falls
// back to, but any env var still wins over the file.
type tomlOverlay struct {
	DefaultProvider         string `toml:"default_provider"`
	DefaultModel            string `toml:"default_model"`
	PillarServiceTimeoutSec int    `toml:"pillar_service_timeout_sec"`
	FreeDailyTurnLimit      int    `toml:"free_daily_turn_limit"`
	SpamWindowSeconds       int    `toml:"spam_window_seconds"`
	SpamMaxPerWindow        int    `toml:"spam_max_per_window"`
	PushHourKST             int    `toml:"push_hour_kst"`
}

// loadTOMLOverlay reads path if it exists; a missing or malformed file
// just means no overlay, not an error — the caller's hardcoded
// defaults still apply.
func loadTOMLOverlay(path string) tomlOverlay {
	var overlay tomlOverlay
	if path == "" {
		return overlay
	}
	_, _ = toml.DecodeFile(path, &overlay)
	return overlay
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func orDefaultInt(v, fallback int) int {
	if v == 0 {
		return fallback
	}
	return v
}

// Config holds all service configuration values. Every key is optional;
// a missing key disables only the feature that depends on it (e.g. no
// TELEGRAM_BOT_TOKEN means the Telegram adapter never registers).
type Config struct {
	// Server
	Addr            string
	Env             string
	GracefulTimeout time.Duration

	// Persistence
	DatabaseURL string // sqlite file path; empty or ":memory:" uses in-memory store
	RedisURL    string // empty disables Redis, falling back to in-memory caches

	// Platform credentials
	TelegramBotToken      string
	TelegramWebhookSecret string
	KakaoSkillSecret      string
	PushTriggerSecret     string

	// HTTP-level rate limiting (webhook ingress, independent of the
	// per-user spam throttle and entitlement quota in package ratelimit)
	RateLimitEnabled bool
	RateLimitRPM     int
	RateLimitBurst   int

	// LLM providers
	OpenAIAPIKey    string
	AnthropicAPIKey string
	DefaultProvider string
	DefaultModel    string

	// Pillar calculation service (external fallback)
	PillarServiceURL     string
	PillarServiceTimeout time.Duration

	// Rate limiting / entitlements
	FreeDailyTurnLimit int
	SpamWindowSeconds  int
	SpamMaxPerWindow   int

	// Daily push scheduler
	PushHourKST      int
	PushFanoutWorkers int
	PushPaceMillis   int

	// Timeouts
	DefaultTimeout time.Duration

	// Body limits
	MaxBodyBytes int64

	// Logging
	LogLevel string
}

// Load reads configuration from environment variables and an optional
// .env file in the working directory.
func Load() *Config {
	_ = godotenv.Load()

	overlay := loadTOMLOverlay(getEnv("CONFIG_TOML_PATH", "saju.toml"))

	gracefulSec := getEnvInt("GATEWAY_GRACEFUL_TIMEOUT_SEC", 15)
	defaultTimeoutSec := getEnvInt("GATEWAY_DEFAULT_TIMEOUT_SEC", 30)
	pillarTimeoutSec := getEnvInt("PILLAR_SERVICE_TIMEOUT_SEC", orDefaultInt(overlay.PillarServiceTimeoutSec, 3))

	return &Config{
		Addr:            getEnv("GATEWAY_ADDR", ":8080"),
		Env:             getEnv("ENV", "development"),
		GracefulTimeout: time.Duration(gracefulSec) * time.Second,

		DatabaseURL: getEnv("DATABASE_URL", ""),
		RedisURL:    getEnv("REDIS_URL", ""),

		TelegramBotToken:      getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramWebhookSecret: getEnv("TELEGRAM_WEBHOOK_SECRET", ""),
		KakaoSkillSecret:      getEnv("KAKAO_SKILL_SECRET", ""),
		PushTriggerSecret:     getEnv("PUSH_TRIGGER_SECRET", ""),

		RateLimitEnabled: getEnvBool("RATE_LIMIT_ENABLED", true),
		RateLimitRPM:     getEnvInt("RATE_LIMIT_RPM", 60),
		RateLimitBurst:   getEnvInt("RATE_LIMIT_BURST", 20),

		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		DefaultProvider: getEnv("DEFAULT_LLM_PROVIDER", orDefault(overlay.DefaultProvider, "openai")),
		DefaultModel:    getEnv("DEFAULT_LLM_MODEL", orDefault(overlay.DefaultModel, "gpt-4o-mini")),

		PillarServiceURL:     getEnv("PILLAR_SERVICE_URL", ""),
		PillarServiceTimeout: time.Duration(pillarTimeoutSec) * time.Second,

		FreeDailyTurnLimit: getEnvInt("FREE_DAILY_TURN_LIMIT", orDefaultInt(overlay.FreeDailyTurnLimit, 10)),
		SpamWindowSeconds:  getEnvInt("SPAM_WINDOW_SECONDS", orDefaultInt(overlay.SpamWindowSeconds, 10)),
		SpamMaxPerWindow:   getEnvInt("SPAM_MAX_PER_WINDOW", orDefaultInt(overlay.SpamMaxPerWindow, 3)),

		PushHourKST:       getEnvInt("PUSH_HOUR_KST", orDefaultInt(overlay.PushHourKST, 8)),
		PushFanoutWorkers: getEnvInt("PUSH_FANOUT_WORKERS", 8),
		PushPaceMillis:    getEnvInt("PUSH_PACE_MILLIS", 50),

		DefaultTimeout: time.Duration(defaultTimeoutSec) * time.Second,
		MaxBodyBytes:   int64(getEnvInt("GATEWAY_MAX_BODY_BYTES", 1*1024*1024)),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
