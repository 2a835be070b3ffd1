// Package config handles configuration loading and validation for tamperscan.
package config

import (
	"errors"
	"fmt"
	"time"

	"tamperscan/internal/diff"
	"tamperscan/internal/fingerprint"
	"tamperscan/internal/patterns"
	"tamperscan/internal/risk"
	"tamperscan/internal/timeline"
)

// Version is the current configuration schema version.
const Version = 1

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Duration wraps time.Duration so TOML files can say "5m" or "90s".
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Config holds the complete analyzer configuration.
type Config struct {
	// Version is the configuration schema version.
	Version int `toml:"version" json:"version"`

	// Logging configuration.
	Logging LoggingConfig `toml:"logging" json:"logging"`

	// Storage configuration for the snapshot and event database.
	Storage StorageConfig `toml:"storage" json:"storage"`

	// Risk scoring weights and thresholds.
	Risk risk.Config `toml:"risk" json:"risk"`

	// Diff engine flag heuristics.
	Diff diff.Config `toml:"diff" json:"diff"`

	// Fingerprint token policy.
	Fingerprint fingerprint.Config `toml:"fingerprint" json:"fingerprint"`

	// Similarity layer weights.
	Similarity fingerprint.SimilarityWeights `toml:"similarity" json:"similarity"`

	// Timeline rule thresholds.
	Timeline TimelineConfig `toml:"timeline" json:"timeline"`

	// Patterns detector thresholds.
	Patterns PatternsConfig `toml:"patterns" json:"patterns"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `toml:"level" json:"level"`

	// Format is "json" or "text".
	Format string `toml:"format" json:"format"`

	// OutputPath is the log destination; empty means stderr.
	OutputPath string `toml:"output_path" json:"output_path"`
}

// StorageConfig holds persistence configuration.
type StorageConfig struct {
	// DatabasePath is the sqlite database location.
	DatabasePath string `toml:"database_path" json:"database_path"`

	// ActorRegistryPath is an optional YAML file mapping artifacts to
	// their authorized actors.
	ActorRegistryPath string `toml:"actor_registry_path" json:"actor_registry_path"`

	// TemplateAllowListPath is an optional YAML file of structural
	// hashes excluded from template-fraud detection.
	TemplateAllowListPath string `toml:"template_allow_list_path" json:"template_allow_list_path"`
}

// TimelineConfig is the file form of timeline.Config; durations are
// written as strings like "5m".
type TimelineConfig struct {
	RapidWindow    Duration                      `toml:"rapid_window" json:"rapid_window"`
	RapidCount     int                           `toml:"rapid_count" json:"rapid_count"`
	NightStartHour int                           `toml:"night_start_hour" json:"night_start_hour"`
	NightEndHour   int                           `toml:"night_end_hour" json:"night_end_hour"`
	FailureCount   int                           `toml:"failure_count" json:"failure_count"`
	SealGrace      Duration                      `toml:"seal_grace" json:"seal_grace"`
	Severity       map[timeline.RuleName]float64 `toml:"severity" json:"severity"`
	DisabledRules  []timeline.RuleName           `toml:"disabled_rules" json:"disabled_rules"`
}

// Component converts to the timeline package's config.
func (c TimelineConfig) Component() timeline.Config {
	return timeline.Config{
		RapidWindow:    time.Duration(c.RapidWindow),
		RapidCount:     c.RapidCount,
		NightStartHour: c.NightStartHour,
		NightEndHour:   c.NightEndHour,
		FailureCount:   c.FailureCount,
		SealGrace:      time.Duration(c.SealGrace),
		Severity:       c.Severity,
		DisabledRules:  c.DisabledRules,
	}
}

// PatternsConfig is the file form of patterns.Config.
type PatternsConfig struct {
	Disabled            []patterns.Type `toml:"disabled" json:"disabled"`
	AmountMinEdits      int             `toml:"amount_min_edits" json:"amount_min_edits"`
	AmountWindow        Duration        `toml:"amount_window" json:"amount_window"`
	AmountRoundBases    []float64       `toml:"amount_round_bases" json:"amount_round_bases"`
	AmountPctTolerance  float64         `toml:"amount_pct_tolerance" json:"amount_pct_tolerance"`
	TamperMinEvents     int             `toml:"tamper_min_events" json:"tamper_min_events"`
	TamperWindow        Duration        `toml:"tamper_window" json:"tamper_window"`
	TemplateMinGroup    int             `toml:"template_min_group" json:"template_min_group"`
	AllowedTemplates    []string        `toml:"allowed_templates" json:"allowed_templates"`
	RapidMinEvents      int             `toml:"rapid_min_events" json:"rapid_min_events"`
	RapidMaxAvgInterval Duration        `toml:"rapid_max_avg_interval" json:"rapid_max_avg_interval"`
}

// Component converts to the patterns package's config.
func (c PatternsConfig) Component() patterns.Config {
	return patterns.Config{
		Disabled:            c.Disabled,
		AmountMinEdits:      c.AmountMinEdits,
		AmountWindow:        time.Duration(c.AmountWindow),
		AmountRoundBases:    c.AmountRoundBases,
		AmountPctTolerance:  c.AmountPctTolerance,
		TamperMinEvents:     c.TamperMinEvents,
		TamperWindow:        time.Duration(c.TamperWindow),
		TemplateMinGroup:    c.TemplateMinGroup,
		AllowedTemplates:    c.AllowedTemplates,
		RapidMinEvents:      c.RapidMinEvents,
		RapidMaxAvgInterval: time.Duration(c.RapidMaxAvgInterval),
	}
}

// Default returns a configuration with the documented defaults.
func Default() *Config {
	tl := timeline.DefaultConfig()
	pt := patterns.DefaultConfig()
	return &Config{
		Version: Version,
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Storage: StorageConfig{
			DatabasePath: "tamperscan.db",
		},
		Risk:        risk.DefaultConfig(),
		Diff:        diff.DefaultConfig(),
		Fingerprint: fingerprint.DefaultConfig(),
		Similarity:  fingerprint.DefaultSimilarityWeights(),
		Timeline: TimelineConfig{
			RapidWindow:    Duration(tl.RapidWindow),
			RapidCount:     tl.RapidCount,
			NightStartHour: tl.NightStartHour,
			NightEndHour:   tl.NightEndHour,
			FailureCount:   tl.FailureCount,
			SealGrace:      Duration(tl.SealGrace),
			Severity:       tl.Severity,
		},
		Patterns: PatternsConfig{
			AmountMinEdits:      pt.AmountMinEdits,
			AmountWindow:        Duration(pt.AmountWindow),
			AmountRoundBases:    pt.AmountRoundBases,
			AmountPctTolerance:  pt.AmountPctTolerance,
			TamperMinEvents:     pt.TamperMinEvents,
			TamperWindow:        Duration(pt.TamperWindow),
			TemplateMinGroup:    pt.TemplateMinGroup,
			RapidMinEvents:      pt.RapidMinEvents,
			RapidMaxAvgInterval: Duration(pt.RapidMaxAvgInterval),
		},
	}
}

// Validate fails fast on the first invalid section.
func (c *Config) Validate() error {
	if c.Version <= 0 || c.Version > Version {
		return fmt.Errorf("%w: unsupported version %d", ErrInvalidConfig, c.Version)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: unknown log level %q", ErrInvalidConfig, c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("%w: unknown log format %q", ErrInvalidConfig, c.Logging.Format)
	}
	if c.Storage.DatabasePath == "" {
		return fmt.Errorf("%w: storage database_path is required", ErrInvalidConfig)
	}
	if err := c.Risk.Validate(); err != nil {
		return fmt.Errorf("%w: risk: %v", ErrInvalidConfig, err)
	}
	if err := c.Diff.Validate(); err != nil {
		return fmt.Errorf("%w: diff: %v", ErrInvalidConfig, err)
	}
	if err := c.Fingerprint.Validate(); err != nil {
		return fmt.Errorf("%w: fingerprint: %v", ErrInvalidConfig, err)
	}
	if err := c.Similarity.Validate(); err != nil {
		return fmt.Errorf("%w: similarity: %v", ErrInvalidConfig, err)
	}
	if err := c.Timeline.Component().Validate(); err != nil {
		return fmt.Errorf("%w: timeline: %v", ErrInvalidConfig, err)
	}
	if err := c.Patterns.Component().Validate(); err != nil {
		return fmt.Errorf("%w: patterns: %v", ErrInvalidConfig, err)
	}
	return nil
}
