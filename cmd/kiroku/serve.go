package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the periodic sync worker until interrupted",
	Long: `Start the background worker that drains the queue on a fixed interval
(and whenever the queue file changes) until SIGINT/SIGTERM.`,
	Run: func(cmd *cobra.Command, args []string) {
		svc, _, err := newService()
		if err != nil {
			fatal("Failed to initialize", err)
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		w := svc.Worker()
		if err := w.Start(ctx); err != nil {
			fatal("Failed to start sync worker", err)
		}

		fmt.Println("Sync worker running. Press Ctrl+C to stop.")
		<-ctx.Done()

		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := w.Stop(stopCtx); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: worker did not stop cleanly: %v\n", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
