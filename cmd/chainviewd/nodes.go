package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chainview-tools/chainview/internal/config"
)

var nodesCmd = &cobra.Command{
	Use:   "nodes",
	Short: "List the configured nodes",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return err
		}
		for _, n := range cfg.BuildNodes() {
			flags := ""
			if n.Localhost {
				flags += " local"
			}
			if n.Witness {
				flags += " witness"
			}
			if n.Tunnel != nil {
				flags += " tunnel:" + n.Tunnel.Host
			}
			fmt.Printf("%-40s%s\n", n.Key(), flags)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(nodesCmd)
}
