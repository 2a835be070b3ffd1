package main

import (
	"github.com/spf13/cobra"
)

func newSimilarityCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "similarity <artifact-a> <version-a> <artifact-b> <version-b>",
		Short: "Score the similarity of two stored document versions",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimilarity(args[0], args[1], args[2], args[3])
		},
	}
}

func runSimilarity(artifactA, versionA, artifactB, versionB string) error {
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

	snapA, err := s.Snapshot(artifactA, versionA)
	if err != nil {
		return err
	}
	snapB, err := s.Snapshot(artifactB, versionB)
	if err != nil {
		return err
	}

	fpA, err := analyzer.FingerprintDocument(snapA)
	if err != nil {
		return err
	}
	fpB, err := analyzer.FingerprintDocument(snapB)
	if err != nil {
		return err
	}
	return writeJSON(analyzer.CompareFingerprints(fpA, fpB))
}
