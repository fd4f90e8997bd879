package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sajuworks/saju-gateway/bootstrap"
	"github.com/sajuworks/saju-gateway/config"
	"github.com/sajuworks/saju-gateway/logger"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "delete expired pending follow-up actions",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		log := logger.New(cfg)

		app, err := bootstrap.New(cfg, log)
		if err != nil {
			return err
		}
		defer app.Close()

		removed, err := app.Pending.Sweep(context.Background(), time.Now())
		if err != nil {
			return err
		}
		fmt.Printf("sweep finished: removed=%d\n", removed)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sweepCmd)
}
