package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <corpus.json>",
		Short: "Validate a JSON corpus file and load it into the database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(args[0])
		},
	}
}

func runImport(path string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	file, err := s.Import(path)
	if err != nil {
		return err
	}
	fmt.Printf("imported %d snapshots and %d events from %s\n",
		len(file.Snapshots), len(file.Events), path)
	return nil
}
