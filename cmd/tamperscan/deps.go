package main

import (
	"encoding/json"
	"fmt"
	"os"

	"tamperscan/internal/analysis"
	"tamperscan/internal/config"
	"tamperscan/internal/logging"
	"tamperscan/internal/store"
)

// loadConfig resolves the effective configuration from the --config
// flag, environment overrides, and defaults, and installs the logger.
func loadConfig() (*config.Config, error) {
	var cfg *config.Config
	if globalConfig != "" {
		loaded, err := config.Load(globalConfig)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		cfg = config.Default()
		cfg.ApplyEnvOverrides()
	}
	if globalDatabase != "" {
		cfg.Storage.DatabasePath = globalDatabase
	}

	if _, err := logging.Setup(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath); err != nil {
		return nil, err
	}
	return cfg, nil
}

// buildAnalyzer assembles the analyzer with the configured side files.
func buildAnalyzer(cfg *config.Config) (*analysis.Analyzer, error) {
	var opts []analysis.Option
	if cfg.Storage.ActorRegistryPath != "" {
		registry, err := config.LoadActorRegistry(cfg.Storage.ActorRegistryPath)
		if err != nil {
			return nil, err
		}
		opts = append(opts, analysis.WithActorRegistry(registry))
	}
	if cfg.Storage.TemplateAllowListPath != "" {
		allowed, err := config.LoadTemplateAllowList(cfg.Storage.TemplateAllowListPath)
		if err != nil {
			return nil, err
		}
		cfg.Patterns.AllowedTemplates = allowed
	}
	return analysis.New(cfg, opts...)
}

func openStore(cfg *config.Config) (*store.Store, error) {
	s, err := store.Open(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return s, nil
}

// writeJSON prints v as indented JSON on stdout.
func writeJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
