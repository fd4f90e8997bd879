// Package bootstrap wires the shared collaborators (database,
// Redis-or-fallback caches, LLM provider registry) used by both the
// HTTP server entrypoint and the sajuctl operator CLI, so the two
// binaries never duplicate — or drift apart on — how the app is
// assembled.
package bootstrap

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/sajuworks/saju-gateway/config"
	"github.com/sajuworks/saju-gateway/llmclient"
	"github.com/sajuworks/saju-gateway/pending"
	"github.com/sajuworks/saju-gateway/pillar"
	"github.com/sajuworks/saju-gateway/redisclient"
	"github.com/sajuworks/saju-gateway/repository"
	"github.com/sajuworks/saju-gateway/repository/memstore"
	"github.com/sajuworks/saju-gateway/repository/sqlitestore"
)

// App bundles the shared collaborators.
type App struct {
	Config      *config.Config
	Logger      zerolog.Logger
	Redis       *redisclient.Client // nil when REDIS_URL isn't configured or unreachable
	Repo        Repository
	PillarCache *pillar.Cache
	Pending     pending.Store
	LLM         *llmclient.Registry
	Pool        *llmclient.ConnectionPool
}

// Repository is every repository interface bundled, satisfied by both
// memstore.Store and sqlitestore.Store.
type Repository interface {
	repository.ProfileStore
	repository.ConversationStore
	repository.InterestStore
	repository.PushLogStore
	repository.DailyUsageStore
	repository.BillingStore
}

// New assembles the shared App from configuration. It never fails
// hard on Redis — an unreachable or unconfigured Redis degrades to
// in-memory caches, logged at warn level.
func New(cfg *config.Config, logger zerolog.Logger) (*App, error) {
	var redis *redisclient.Client
	if client, err := redisclient.New(cfg); err != nil {
		logger.Warn().Err(err).Msg("redis unavailable — continuing with in-memory fallback")
	} else if pingErr := client.Ping(); pingErr != nil {
		logger.Warn().Err(pingErr).Msg("redis ping failed — continuing with in-memory fallback")
	} else {
		redis = client
	}

	repo, err := openRepository(cfg)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: open repository: %w", err)
	}

	pool := llmclient.DefaultConnectionPool()

	registry := llmclient.NewRegistry()
	if cfg.OpenAIAPIKey != "" {
		registry.Register(llmclient.NewOpenAIProvider(llmclient.ProviderConfig{
			APIKey: cfg.OpenAIAPIKey, BaseURL: "https://api.openai.com/v1", Timeout: 30 * time.Second, MaxRetries: 2,
		}, pool))
	}
	if cfg.AnthropicAPIKey != "" {
		registry.Register(llmclient.NewAnthropicProvider(llmclient.ProviderConfig{
			APIKey: cfg.AnthropicAPIKey, BaseURL: "https://api.anthropic.com/v1", Timeout: 30 * time.Second, MaxRetries: 2,
		}, pool))
	}

	var pendingStore pending.Store
	if redis != nil {
		pendingStore = pending.NewRedisStore(redis)
	} else {
		pendingStore = pending.NewMemStore()
	}

	return &App{
		Config:      cfg,
		Logger:      logger,
		Redis:       redis,
		Repo:        repo,
		PillarCache: pillar.NewCache(redis),
		Pending:     pendingStore,
		LLM:         registry,
		Pool:        pool,
	}, nil
}

func openRepository(cfg *config.Config) (Repository, error) {
	if cfg.DatabaseURL == "" || cfg.DatabaseURL == ":memory:" {
		return memstore.New(), nil
	}
	return sqlitestore.Open(cfg.DatabaseURL)
}

// Close releases any resources the App owns.
func (a *App) Close() {
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if a.Pool != nil {
		a.Pool.Close()
	}
	if closer, ok := a.Repo.(interface{ Close() error }); ok {
		_ = closer.Close()
	}
}
