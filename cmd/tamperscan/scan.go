package main

import (
	"time"

	"github.com/spf13/cobra"

	"tamperscan/internal/analysis"
	"tamperscan/internal/config"
	"tamperscan/internal/document"
	"tamperscan/internal/patterns"
	"tamperscan/internal/store"
	"tamperscan/internal/timeline"
)

type scanFlags struct {
	maxArtifacts int
	maxDuration  time.Duration
}

func newScanCmd() *cobra.Command {
	var flags scanFlags

	cmd := &cobra.Command{
		Use:   "scan [corpus.json]",
		Short: "Run the cross-corpus fraud detectors and print a scan report",
		Long: "Scans either a JSON corpus file or, when no file is given, " +
			"everything in the database.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return runScan(path, flags)
		},
	}

	cmd.Flags().IntVar(&flags.maxArtifacts, "max-artifacts", 0, "Cap the number of artifacts scanned (0 = unlimited)")
	cmd.Flags().DurationVar(&flags.maxDuration, "max-duration", 0, "Cap the scan's elapsed time (0 = unlimited)")

	return cmd
}

func runScan(path string, flags scanFlags) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	analyzer, err := buildAnalyzer(cfg)
	if err != nil {
		return err
	}

	snapshots, events, err := loadCorpus(cfg, path)
	if err != nil {
		return err
	}

	report, err := scanCorpus(analyzer, snapshots, events, flags)
	if err != nil {
		return err
	}
	return writeJSON(report)
}

func scanCorpus(analyzer *analysis.Analyzer, snapshots []*document.Snapshot, events []timeline.Event, flags scanFlags) (*analysis.Report, error) {
	budget := patterns.Budget{
		MaxArtifacts: flags.maxArtifacts,
		MaxDuration:  flags.maxDuration,
	}
	return analyzer.Scan(snapshots, events, budget)
}

// loadCorpus reads the scan input from a corpus file when path is set,
// otherwise from the database.
func loadCorpus(cfg *config.Config, path string) ([]*document.Snapshot, []timeline.Event, error) {
	if path != "" {
		file, err := store.ReadCorpusFile(path)
		if err != nil {
			return nil, nil, err
		}
		return file.Snapshots, file.Events, nil
	}

	s, err := openStore(cfg)
	if err != nil {
		return nil, nil, err
	}
	defer s.Close()

	snapshots, err := s.AllSnapshots()
	if err != nil {
		return nil, nil, err
	}
	events, err := s.AllEvents()
	if err != nil {
		return nil, nil, err
	}
	return snapshots, events, nil
}
