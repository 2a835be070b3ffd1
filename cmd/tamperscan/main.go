// Package main provides the entry point for the tamperscan CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	version        = "0.1.0-dev"
	globalConfig   string
	globalDatabase string
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	rootCmd := &cobra.Command{
		Use:     "tamperscan",
		Short:   "Document-tampering analysis: field diffs, fingerprints, timelines, and corpus-wide fraud patterns",
		Version: version,
	}

	rootCmd.PersistentFlags().StringVarP(&globalConfig, "config", "c", "", "Path to TOML configuration (defaults apply when omitted)")
	rootCmd.PersistentFlags().StringVar(&globalDatabase, "db", "", "Path to the snapshot/event database (overrides config)")

	rootCmd.AddCommand(
		newImportCmd(),
		newDiffCmd(),
		newFingerprintCmd(),
		newSimilarityCmd(),
		newTimelineCmd(),
		newScanCmd(),
		newWatchCmd(),
	)

	return rootCmd.ExecuteContext(ctx)
}
