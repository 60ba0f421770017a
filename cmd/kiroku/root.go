package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/fyshx/kiroku"
)

var (
	verbose    bool
	configPath string
	vaultPath  string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "kiroku",
	Short: "A daily-note sync engine for git-backed knowledge vaults",
	Long: `Kiroku buffers content items from many producers in a durable queue and
merges them into per-day markdown notes inside a git-backed vault,
keeping every section in its canonical position.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}

		opts := &slog.HandlerOptions{
			Level: level,
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, opts))
		slog.SetDefault(logger)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to kiroku.yml (default: ./kiroku.yml when present)")
	rootCmd.PersistentFlags().StringVar(&vaultPath, "vault", "", "Vault directory (overrides config file)")
}

// newService builds the service from the config file and flags.
func newService() (*kiroku.Service, *fileConfig, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}

	if vaultPath != "" {
		cfg.Vault = vaultPath
	}
	if cfg.Vault == "" {
		return nil, nil, fmt.Errorf("no vault configured (use --vault or kiroku.yml)")
	}

	opts, err := cfg.serviceOptions()
	if err != nil {
		return nil, nil, err
	}
	opts = append(opts, kiroku.WithLogger(slog.Default()))

	svc, err := kiroku.New(cfg.Vault, opts...)
	if err != nil {
		return nil, nil, err
	}
	return svc, cfg, nil
}
