package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sajuworks/saju-gateway/bootstrap"
	"github.com/sajuworks/saju-gateway/config"
	"github.com/sajuworks/saju-gateway/logger"
	"github.com/sajuworks/saju-gateway/platform"
	"github.com/sajuworks/saju-gateway/scheduler"
)

var pushCmd = &cobra.Command{
	Use:   "push",
	Short: "run the daily push job once, immediately",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		log := logger.New(cfg)

		app, err := bootstrap.New(cfg, log)
		if err != nil {
			return err
		}
		defer app.Close()

		responders := map[string]scheduler.Responder{}
		if cfg.TelegramBotToken != "" {
			responders["telegram"] = platform.NewTelegram(cfg.TelegramBotToken, app.Pool, log)
		}

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

		result := sched.RunOnce(context.Background())
		fmt.Printf("push job finished: total=%d success=%d failed=%d\n", result.Total, result.Success, result.Failed)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pushCmd)
}
