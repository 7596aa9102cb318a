package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/kbukum/phrame/config"
)

const serviceName = "phrame"

var rootCmd = &cobra.Command{
	Use:   serviceName,
	Short: "Turn spoken conversation into generated images",
	Long: strings.TrimSpace(`
phrame collects transcripts, condenses the recent ones into an image prompt
and fans the prompt out to every configured image provider. Saved images are
pushed to connected frames over server-sent events.
`),
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file (default: cmd/phrame/config.yml or ./config.yml)")
	rootCmd.PersistentFlags().String("env-file", "", ".env file (default: .env.phrame or .env)")
}

// loadConfig loads the configuration named by the persistent flags.
func loadConfig(cmd *cobra.Command) (*config.AppConfig, error) {
	var opts []config.LoaderOption
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		opts = append(opts, config.WithConfigFile(path))
	}
	if path, _ := cmd.Flags().GetString("env-file"); path != "" {
		opts = append(opts, config.WithEnvFile(path))
	}
	return config.Load(serviceName, opts...)
}
