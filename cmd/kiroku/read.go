package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/fyshx/kiroku/pkg/core"
)

// readCmd represents the read command
var readCmd = &cobra.Command{
	Use:   "read [date]",
	Short: "Print one day's note",
	Long:  `Print the full text of the daily note for the given ISO date (default: today).`,
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		svc, cfg, err := newService()
		if err != nil {
			fatal("Failed to initialize", err)
		}

		day := time.Now().In(cfg.location()).Format("2006-01-02")
		if len(args) > 0 {
			day = args[0]
		}

		content, err := svc.ReadDay(context.Background(), day)
		if err != nil {
			if errors.Is(err, core.ErrNotFound) {
				fmt.Fprintf(os.Stderr, "No note for %s\n", day)
				os.Exit(1)
			}
			fatal("Failed to read note", err)
		}

		fmt.Print(content)
	},
}

func init() {
	rootCmd.AddCommand(readCmd)
}
