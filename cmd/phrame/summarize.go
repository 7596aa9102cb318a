package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kbukum/phrame/bootstrap"
	"github.com/kbukum/phrame/coordinator"
	"github.com/kbukum/phrame/database"
	"github.com/kbukum/phrame/provider"
	"github.com/kbukum/phrame/resilience"
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize",
	Short: "Print a summary of the recent transcripts without generating images",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		random, _ := cmd.Flags().GetBool("random")
		seedContext, _ := cmd.Flags().GetString("context")
		name := cfg.CoordinatorConfig().SummaryProvider
		if s, _ := cmd.Flags().GetString("provider"); s != "" {
			if name, err = provider.ParseName(s); err != nil {
				return err
			}
		}

		app, err := bootstrap.NewApp(cfg, bootstrap.WithOutput(cmd.ErrOrStderr()))
		if err != nil {
			return err
		}
		db := database.NewComponent(cfg.Database, app.Logger)
		if err := app.RegisterComponent(db); err != nil {
			return err
		}

		return app.RunTask(cmd.Context(), func(ctx context.Context) error {
			att := resilience.NewAttempter(cfg.Retry, app.Logger)
			registry, err := buildRegistry(ctx, cfg, att, nil)
			if err != nil {
				return err
			}
			defer func() { _ = registry.Close(context.WithoutCancel(ctx)) }()

			store := database.NewStore(db.DB())
			coord := coordinator.New(cfg.CoordinatorConfig(), registry, store, att, nil)

			var (
				summary string
				ok      bool
			)
			if random {
				summary, ok = coord.RequestRandomSummary(ctx, name, provider.Seed{Prompt: cfg.Autogen.Prompt, Context: seedContext})
			} else {
				transcripts, err := store.ListRecentTranscripts(ctx, time.Now().Add(-cfg.CoordinatorConfig().TranscriptWindow))
				if err != nil {
					return err
				}
				if len(transcripts) == 0 {
					return errors.New("no recent transcripts; use --random for a random summary")
				}
				texts := make([]string, len(transcripts))
				for i, t := range transcripts {
					texts[i] = t.Text
				}
				summary, ok = coord.RequestSummary(ctx, name, texts)
			}
			if !ok {
				return fmt.Errorf("%s returned no summary", name)
			}
			fmt.Fprintln(cmd.OutOrStdout(), summary)
			return nil
		})
	},
}

func init() {
	summarizeCmd.Flags().Bool("random", false, "ask for a random summary instead of summarizing transcripts")
	summarizeCmd.Flags().String("context", "", "context appended to the random summary prompt")
	summarizeCmd.Flags().String("provider", "", "summary provider (default: summary.provider)")
	rootCmd.AddCommand(summarizeCmd)
}
