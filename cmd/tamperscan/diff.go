package main

import (
	"github.com/spf13/cobra"
)

func newDiffCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diff <artifact-id> <old-version> <new-version>",
		Short: "Compare two stored versions of a document and score the changes",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiff(args[0], args[1], args[2])
		},
	}
}

func runDiff(artifactID, oldVersion, newVersion string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	analyzer, err := buildAnalyzer(cfg)
	if err != nil {
		return err
	}
	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	oldSnap, err := s.Snapshot(artifactID, oldVersion)
	if err != nil {
		return err
	}
	newSnap, err := s.Snapshot(artifactID, newVersion)
	if err != nil {
		return err
	}

	result, err := analyzer.CompareDocuments(oldSnap, newSnap)
	if err != nil {
		return err
	}
	return writeJSON(result)
}
