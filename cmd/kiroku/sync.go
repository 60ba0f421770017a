package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// syncCmd represents the sync command
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one synchronization cycle",
	Long: `Drain the pending queue, merge items into their daily notes, and commit
and push the result. Pulls from the remote first so edits made outside
kiroku are never clobbered.`,
	Run: func(cmd *cobra.Command, args []string) {
		svc, _, err := newService()
		if err != nil {
			fatal("Failed to initialize", err)
		}

		if err := svc.SyncOnce(context.Background()); err != nil {
			fmt.Fprintf(os.Stderr, "Error: sync failed: %v\n", err)
			fmt.Println("Tip: Ensure the vault remote is reachable and fast-forwardable. Divergent histories need manual resolution in the vault.")
			os.Exit(1)
		}

		fmt.Println("Sync completed successfully.")
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
}
