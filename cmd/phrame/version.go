package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kbukum/phrame/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version.Get().Long())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
