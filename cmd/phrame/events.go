package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kbukum/phrame/logger"
	"github.com/kbukum/phrame/redis"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Follow the pipeline events published on Redis",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if !cfg.Redis.Enabled {
			return errors.New("redis.enabled is false; events are only published on Redis")
		}
		log := logger.New(&cfg.Logging, cfg.Name)
		client, err := redis.New(cfg.Redis, log)
		if err != nil {
			return err
		}
		defer func() { _ = client.Close() }()

		ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()
		if err := client.Ping(ctx); err != nil {
			return err
		}

		pub := redis.NewPublisher(client)
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "listening on %s\n", pub.Channel())
		err = pub.Listen(ctx, func(env redis.Envelope) {
			fmt.Fprintf(out, "%s %-18s %s\n", env.Time.Local().Format("15:04:05"), env.Event, env.Data)
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
}
