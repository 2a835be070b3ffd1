package main

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"tamperscan/internal/store"
)

func newWatchCmd() *cobra.Command {
	var flags scanFlags

	cmd := &cobra.Command{
		Use:   "watch <corpus.json>",
		Short: "Re-scan a corpus file whenever it changes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, args[0], flags)
		},
	}

	cmd.Flags().IntVar(&flags.maxArtifacts, "max-artifacts", 0, "Cap the number of artifacts scanned (0 = unlimited)")
	cmd.Flags().DurationVar(&flags.maxDuration, "max-duration", 0, "Cap each scan's elapsed time (0 = unlimited)")

	return cmd
}

func runWatch(cmd *cobra.Command, path string, flags scanFlags) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	analyzer, err := buildAnalyzer(cfg)
	if err != nil {
		return err
	}

	scanOnce := func() {
		file, err := store.ReadCorpusFile(path)
		if err != nil {
			slog.Warn("corpus unreadable, keeping last report", "path", path, "error", err)
			return
		}
		report, err := scanCorpus(analyzer, file.Snapshots, file.Events, flags)
		if err != nil {
			slog.Error("scan failed", "error", err)
			return
		}
		if err := writeJSON(report); err != nil {
			slog.Error("write report", "error", err)
		}
	}

	scanOnce()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory: editors replace the file rather than write
	// in place.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch directory: %w", err)
	}

	var debounce *time.Timer
	const debounceDelay = 200 * time.Millisecond

	ctx := cmd.Context()
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(debounceDelay, scanOnce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("watcher error", "error", err)
		}
	}
}
