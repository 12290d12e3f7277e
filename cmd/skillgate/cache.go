package main

import (
	"fmt"

	"github.com/skillgate/skillgate/pkg/presenter"
	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Maintain the intent analysis cache",
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Help()
	},
}

var cacheGCCmd = &cobra.Command{
	Use:   "gc",
	Short: "Remove expired and malformed cache entries",
	RunE: func(cmd *cobra.Command, _ []string) error {
		store, err := buildCacheStore()
		if err != nil {
			return err
		}

		removed, err := store.GC(cmd.Context())
		if err != nil {
			return err
		}

		presenter.Success(fmt.Sprintf("Removed %d cache entries", removed))
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheGCCmd)
}
