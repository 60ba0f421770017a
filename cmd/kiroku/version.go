package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fyshx/kiroku"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of kiroku",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("kiroku version %s\n", strings.TrimSpace(kiroku.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
