package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var seedsCmd = &cobra.Command{
	Use:   "seeds",
	Short: "Manage stored seed endpoint lists",
}

var seedsListCmd = &cobra.Command{
	Use:   "list [chain]",
	Short: "List stored seeds, for one chain or all",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openSeedStore()
		if err != nil {
			return err
		}
		defer store.Close()

		chains := args
		if len(chains) == 0 {
			chains, err = store.Chains()
			if err != nil {
				return err
			}
		}
		for _, chain := range chains {
			seeds, err := store.Seeds(chain)
			if err != nil {
				return err
			}
			fmt.Printf("%s (%d seeds)\n", chain, len(seeds))
			for _, s := range seeds {
				fmt.Printf("  %s\n", s)
			}
		}
		return nil
	},
}

var seedsAddCmd = &cobra.Command{
	Use:   "add <chain> <endpoint>",
	Short: "Append a seed endpoint to a chain's list",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openSeedStore()
		if err != nil {
			return err
		}
		defer store.Close()
		return store.Put(args[0], args[1])
	},
}

var seedsRemoveCmd = &cobra.Command{
	Use:   "remove <chain> <endpoint>",
	Short: "Remove a seed endpoint from a chain's list",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openSeedStore()
		if err != nil {
			return err
		}
		defer store.Close()
		return store.Remove(args[0], args[1])
	},
}

func init() {
	seedsCmd.AddCommand(seedsListCmd, seedsAddCmd, seedsRemoveCmd)
	rootCmd.AddCommand(seedsCmd)
}
