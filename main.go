// Command saju-gateway is the webhook server entry point: wires
// config, logging, storage, LLM providers, the per-platform
// orchestrators, and the daily push scheduler, then serves HTTP until
// an interrupt or SIGTERM triggers graceful shutdown. Structured after
// the teacher's main.go wiring order (config → logger → Redis →
// providers → router → HTTP server with OS signal handling).
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sajuworks/saju-gateway/bootstrap"
	"github.com/sajuworks/saju-gateway/config"
	"github.com/sajuworks/saju-gateway/interest"
	"github.com/sajuworks/saju-gateway/logger"
	"github.com/sajuworks/saju-gateway/observability"
	"github.com/sajuworks/saju-gateway/orchestrator"
	"github.com/sajuworks/saju-gateway/platform"
	"github.com/sajuworks/saju-gateway/ratelimit"
	"github.com/sajuworks/saju-gateway/router"
	"github.com/sajuworks/saju-gateway/scheduler"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg)

	log.Info().Str("env", cfg.Env).Msg("saju gateway starting")

	app, err := bootstrap.New(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("bootstrap failed")
	}
	defer app.Close()

	metrics := observability.NewMetrics()

	classifier := interest.NewClassifier(nil)
	tracker := interest.NewTracker()
	spam := ratelimit.NewSpamThrottle(0, 0)

	telegram := platform.NewTelegram(cfg.TelegramBotToken, app.Pool, log)
	kakao := platform.NewKakao(app.Pool, log)
	web := platform.NewWeb()

	baseDeps := orchestrator.Deps{
		Logger:      log,
		Profiles:    app.Repo,
		History:     app.Repo,
		Interests:   app.Repo,
		Billing:     app.Repo,
		DailyUsage:  app.Repo,
		PillarCache: app.PillarCache,
		Pending:     app.Pending,
		Classifier:  classifier,
		Tracker:     tracker,
		LLM:         app.LLM,
		Spam:        spam,
		HistoryCap:  10,
	}

	telegramDeps := baseDeps
	telegramDeps.Responder = telegram
	kakaoDeps := baseDeps
	kakaoDeps.Responder = kakao
	webDeps := baseDeps
	webDeps.Responder = web

	telegramOrch := orchestrator.New(telegramDeps)
	kakaoOrch := orchestrator.New(kakaoDeps)
	webOrch := orchestrator.New(webDeps)

	responders := map[string]scheduler.Responder{
		"web": web,
	}
	if cfg.TelegramBotToken != "" {
		responders["telegram"] = telegram
	}
	responders["kakao"] = kakao

	sched := scheduler.New(scheduler.Deps{
		Logger:      log,
		Profiles:    app.Repo,
		PushLogs:    app.Repo,
		Interests:   app.Repo,
		PillarCache: app.PillarCache,
		LLM:         app.LLM,
		Responders:  responders,
		Workers:     cfg.PushFanoutWorkers,
		PaceDelay:   time.Duration(cfg.PushPaceMillis) * time.Millisecond,
	})
	sched.Start(cfg.PushHourKST)

	handler := router.NewRouter(router.Deps{
		Config:       cfg,
		Logger:       log,
		Metrics:      metrics,
		TelegramOrch: telegramOrch,
		KakaoOrch:    kakaoOrch,
		WebOrch:      webOrch,
		Telegram:     telegram,
		Kakao:        kakao,
		Web:          web,
		Scheduler:    sched,
	})

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.DefaultTimeout + 10*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Info().Str("addr", cfg.Addr).Msg("gateway listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-done
	log.Info().Msg("shutdown signal received")

	sched.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.GracefulTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	} else {
		log.Info().Msg("gateway stopped gracefully")
	}
}
