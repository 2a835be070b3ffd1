package main

import (
	"github.com/spf13/cobra"
)

func newFingerprintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fingerprint <artifact-id> <version>",
		Short: "Generate the four-layer fingerprint of a stored document version",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFingerprint(args[0], args[1])
		},
	}
}

func runFingerprint(artifactID, version string) error {
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

	snap, err := s.Snapshot(artifactID, version)
	if err != nil {
		return err
	}
	fp, err := analyzer.FingerprintDocument(snap)
	if err != nil {
		return err
	}
	return writeJSON(fp)
}
