package main

import (
	"github.com/spf13/cobra"
)

func newTimelineCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "timeline <artifact-id>",
		Short: "Reconstruct an artifact's event timeline and flag suspicious sequences",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTimeline(args[0])
		},
	}
}

func runTimeline(artifactID string) error {
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

	events, err := s.Events(artifactID)
	if err != nil {
		return err
	}
	return writeJSON(analyzer.BuildTimeline(artifactID, events))
}
