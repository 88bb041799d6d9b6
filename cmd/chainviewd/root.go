package main

import (
	"os"

	"github.com/spf13/cobra"
)

// Version is the current release. Overridable via build ldflags.
var Version = "0.2.0"

var (
	cfgPath string
	seedDB  string
)

// rootCmd is the top-level command.
var rootCmd = &cobra.Command{
	Use:   "chainviewd",
	Short: "Node-aware RPC gateway and seed prober for graphene chains",
	Long: `chainviewd fronts a fleet of blockchain client nodes with a single
RPC access point. It answers node-local queries directly, forwards the rest
with per-node credentials through a deduplicating cache, and probes seed
endpoints for liveness.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "chainview.yaml", "path to the configuration file")
	rootCmd.PersistentFlags().StringVar(&seedDB, "seed-db", "", "seed store path (overrides the configured one)")
}
