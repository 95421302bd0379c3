package commands

import (
	"context"
	"fmt"
	"os"
	"vicharvest/lib/telemetry"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "vic-cli",
	Short: "vic-cli harvests idea links, deduplicates them and ingests the ideas they point to.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if *verbose {
			telemetry.InitSlog(true)
		}
	},
}

var configPath *string
var verbose *bool

func init() {
	configPath = rootCmd.PersistentFlags().String("config", "config.json5", "The config file, <name>.local.json5 overrides it.")
	verbose = rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enables debug logs.")
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
