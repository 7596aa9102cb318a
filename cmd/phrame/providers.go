package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kbukum/phrame/config"
	"github.com/kbukum/phrame/logger"
	"github.com/kbukum/phrame/provider"
	"github.com/kbukum/phrame/provider/deepai"
	"github.com/kbukum/phrame/provider/dream"
	"github.com/kbukum/phrame/provider/gemini"
	"github.com/kbukum/phrame/provider/leonardoai"
	"github.com/kbukum/phrame/provider/midjourney"
	"github.com/kbukum/phrame/provider/openai"
	"github.com/kbukum/phrame/provider/stabilityai"
	"github.com/kbukum/phrame/resilience"
)

// buildRegistry registers an adapter for every provider with credentials.
// statusStore caches the Midjourney self test and may be nil.
func buildRegistry(ctx context.Context, cfg *config.AppConfig, att *resilience.Attempter, statusStore provider.Store[provider.HealthStatus]) (*provider.Registry, error) {
	reg := provider.NewRegistry()
	for _, name := range cfg.ConfiguredProviders() {
		p, err := newProvider(ctx, cfg, name, att, statusStore)
		if err != nil {
			return nil, fmt.Errorf("provider %s: %w", name, err)
		}
		if err := reg.Register(p); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

func newProvider(ctx context.Context, cfg *config.AppConfig, name provider.Name, att *resilience.Attempter, statusStore provider.Store[provider.HealthStatus]) (provider.Provider, error) {
	switch name {
	case provider.OpenAI:
		return openai.New(cfg.OpenAI), nil
	case provider.StabilityAI:
		return stabilityai.New(cfg.StabilityAI)
	case provider.DeepAI:
		return deepai.New(cfg.DeepAI)
	case provider.Dream:
		return dream.New(cfg.Dream, att)
	case provider.LeonardoAI:
		return leonardoai.New(cfg.LeonardoAI, att)
	case provider.Midjourney:
		var opts []midjourney.Option
		if statusStore != nil {
			opts = append(opts, midjourney.WithStatusStore(statusStore))
		}
		return midjourney.New(cfg.Midjourney, att, opts...)
	case provider.Gemini:
		return gemini.New(ctx, cfg.Gemini)
	default:
		return nil, fmt.Errorf("unknown provider %q", name)
	}
}

// roles lists what a provider can do, for the startup summary and the
// providers command.
func roles(p provider.Provider) string {
	var out []string
	if _, ok := p.(provider.Summarizer); ok {
		out = append(out, "summary")
	}
	if g, ok := p.(provider.ImageGenerator); ok && g.ImageOptions().Enable {
		out = append(out, "image")
	}
	if _, ok := p.(provider.Tester); ok {
		out = append(out, "test")
	}
	if len(out) == 0 {
		return "-"
	}
	return strings.Join(out, ", ")
}

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List the configured providers",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		reg, err := buildRegistry(cmd.Context(), cfg, resilience.NewAttempter(cfg.Retry, logger.Nop()), nil)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		names := reg.Names()
		if len(names) == 0 {
			fmt.Fprintln(out, "no provider has credentials")
			return nil
		}
		for _, name := range names {
			p, _ := reg.Get(name)
			fmt.Fprintf(out, "%-12s %s\n", name, roles(p))
		}
		return nil
	},
}

var providersTestCmd = &cobra.Command{
	Use:   "test <provider>",
	Short: "Check a provider's credentials against the live service",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, err := provider.ParseName(args[0])
		if err != nil {
			return err
		}
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		log := logger.New(&cfg.Logging, cfg.Name)
		reg, err := buildRegistry(cmd.Context(), cfg, resilience.NewAttempter(cfg.Retry, log), nil)
		if err != nil {
			return err
		}
		defer func() { _ = reg.Close(context.WithoutCancel(cmd.Context())) }()

		t, err := reg.Tester(name)
		if err != nil {
			return err
		}
		status := t.SelfTest(cmd.Context())
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s %s\n", name, status.Status, status.Message)
		if !status.OK() {
			return fmt.Errorf("%s is %s", name, status.Status)
		}
		return nil
	},
}

func init() {
	providersCmd.AddCommand(providersTestCmd)
	rootCmd.AddCommand(providersCmd)
}
