package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chainview-tools/chainview/internal/config"
	"github.com/chainview-tools/chainview/pkg/seedprobe"
	"github.com/chainview-tools/chainview/pkg/seedstore"
)

var probeChain string

var probeCmd = &cobra.Command{
	Use:   "probe [endpoint...]",
	Short: "Probe seed endpoints and print their status",
	Long: `Probe classifies each endpoint as online, stuck or offline with one
TCP connect and one bounded read. Without positional endpoints, --chain
probes the chain's stored seed list.

Examples:
  chainviewd probe seed.blocktrades.us:1776
  chainviewd probe --chain bts`,
	RunE: func(cmd *cobra.Command, args []string) error {
		endpoints := args
		if len(endpoints) == 0 {
			if probeChain == "" {
				return fmt.Errorf("give endpoints or --chain")
			}
			store, err := openSeedStore()
			if err != nil {
				return err
			}
			defer store.Close()
			endpoints, err = store.Seeds(probeChain)
			if err != nil {
				return err
			}
			if len(endpoints) == 0 {
				return fmt.Errorf("no seeds stored for chain %q", probeChain)
			}
		}

		prober, err := seedprobe.New(seedprobe.DefaultConfig())
		if err != nil {
			return err
		}

		results := prober.Probe(cmd.Context(), endpoints)
		for _, r := range results {
			fmt.Printf("%-40s %s\n", r.Endpoint, r.Status)
		}
		return nil
	},
}

// openSeedStore opens the store named by --seed-db, falling back to the
// config file when present and to the built-in default otherwise.
func openSeedStore() (*seedstore.Store, error) {
	path := seedDB
	if path == "" {
		if cfg, err := config.Load(cfgPath); err == nil {
			path = cfg.SeedDB
		} else {
			path = config.Default().SeedDB
		}
	}
	store, err := seedstore.Open(path)
	if err != nil {
		return nil, err
	}
	if err := store.EnsureDefaults(); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}

func init() {
	probeCmd.Flags().StringVar(&probeChain, "chain", "", "probe the stored seed list of this chain")
	rootCmd.AddCommand(probeCmd)
}
