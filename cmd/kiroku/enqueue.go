package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fyshx/kiroku/pkg/core"
)

var (
	enqueueID       string
	enqueueAuthor   string
	enqueueCategory string
	enqueueContext  string
)

// enqueueCmd represents the enqueue command
var enqueueCmd = &cobra.Command{
	Use:   "enqueue [content...]",
	Short: "Buffer a content item for the next sync cycle",
	Long: `Append a content item to the durable queue. The item is merged into its
day's note by the next synchronization cycle. Enqueueing the same --id
twice is a no-op.`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		svc, _, err := newService()
		if err != nil {
			fatal("Failed to initialize", err)
		}

		item, err := svc.Enqueue(context.Background(), core.Item{
			ID:       enqueueID,
			Content:  strings.Join(args, " "),
			Author:   enqueueAuthor,
			Category: enqueueCategory,
			Context:  enqueueContext,
		})
		if err != nil {
			fatal("Failed to enqueue", err)
		}

		fmt.Println(item.ID)
	},
}

func init() {
	rootCmd.AddCommand(enqueueCmd)
	enqueueCmd.Flags().StringVar(&enqueueID, "id", "", "Item ID (generated when empty)")
	enqueueCmd.Flags().StringVar(&enqueueAuthor, "author", "", "Item author")
	enqueueCmd.Flags().StringVar(&enqueueCategory, "category", "", "Target section, e.g. 'Memo' or '## WebClips'")
	enqueueCmd.Flags().StringVar(&enqueueContext, "context", "", "Fallback section context")
}
