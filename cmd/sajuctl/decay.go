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

// staleAfter is how long an interest category can go unasked before a
// decay pass shrinks its weight.
const staleAfter = 7 * 24 * time.Hour

var decayCmd = &cobra.Command{
	Use:   "decay",
	Short: "shrink stale per-user interest weights",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		log := logger.New(cfg)

		app, err := bootstrap.New(cfg, log)
		if err != nil {
			return err
		}
		defer app.Close()

		ctx := context.Background()
		stale, err := app.Repo.AllStaleInterests(ctx, time.Now().Add(-staleAfter))
		if err != nil {
			return err
		}

		decayed := 0
		for _, r := range stale {
			r.WeightedCount *= 0.7
			if err := app.Repo.UpsertInterest(ctx, r); err != nil {
				log.Warn().Err(err).Str("user_id", r.UserID).Msg("decay: failed to write back interest record")
				continue
			}
			decayed++
		}

		fmt.Printf("decay finished: decayed=%d\n", decayed)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(decayCmd)
}
