package cmd

import (
	"context"
	"fmt"
	"time"

	"MusicFlow/db"
	"MusicFlow/logger"

	"github.com/spf13/cobra"
)

var redisCmd = &cobra.Command{
	Use:   "redis",
	Short: "Check the Redis state backend",
	Long:  `Connect to Redis with the configured address and run a set/get/delete round trip.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Redis: %s:%s, DB %d\n", cfg.RedisHost, cfg.RedisPort, cfg.RedisDB)

		if err := db.ConnectRedis(cfg); err != nil {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
		defer func() {
			if err := db.CloseRedis(); err != nil {
				logger.Warn("failed to close Redis", logger.ErrorField(err))
			}
		}()

		ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
		defer cancel()
		if err := db.CheckRedis(ctx); err != nil {
			return fmt.Errorf("redis round trip failed: %w", err)
		}
		fmt.Fprintln(out, "Redis OK")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(redisCmd)
}
