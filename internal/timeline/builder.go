package timeline

import (
	"fmt"
	"sort"
	"time"

	"tamperscan/internal/risk"
)

// Config holds the rule thresholds and per-rule severity weights.
type Config struct {
	// RapidWindow / RapidCount: at least RapidCount modification events
	// inside a sliding RapidWindow fire the rapid-modifications rule.
	RapidWindow time.Duration `toml:"rapid_window" json:"rapid_window"`
	RapidCount  int           `toml:"rapid_count" json:"rapid_count"`

	// NightStartHour / NightEndHour bound the unusual-access window
	// [start,end) wrapping midnight, evaluated in the event's local time.
	NightStartHour int `toml:"night_start_hour" json:"night_start_hour"`
	NightEndHour   int `toml:"night_end_hour" json:"night_end_hour"`

	// FailureCount is the consecutive-failure threshold with no
	// intervening success.
	FailureCount int `toml:"failure_count" json:"failure_count"`

	// SealGrace is how long after a modification an anchoring event may
	// arrive before the modification counts as unsealed.
	SealGrace time.Duration `toml:"seal_grace" json:"seal_grace"`

	// Severity is the per-rule weight fed into the max-dominant
	// combination.
	Severity map[RuleName]float64 `toml:"severity" json:"severity"`

	// DisabledRules lists rules to skip.
	DisabledRules []RuleName `toml:"disabled_rules" json:"disabled_rules"`
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		RapidWindow:    5 * time.Minute,
		RapidCount:     3,
		NightStartHour: 23,
		NightEndHour:   5,
		FailureCount:   3,
		SealGrace:      15 * time.Minute,
		Severity: map[RuleName]float64{
			RuleImpossibleSequence: 0.95,
			RuleUnauthorizedAccess: 0.90,
			RuleMissingSeal:        0.75,
			RuleRapidModifications: 0.70,
			RuleRepeatedFailures:   0.60,
			RuleUnusualAccessTime:  0.40,
		},
	}
}

// Validate checks the config ranges.
func (c Config) Validate() error {
	if c.RapidWindow <= 0 {
		return fmt.Errorf("rapid window must be positive, got %v", c.RapidWindow)
	}
	if c.RapidCount < 2 {
		return fmt.Errorf("rapid count must be at least 2, got %d", c.RapidCount)
	}
	if c.FailureCount < 2 {
		return fmt.Errorf("failure count must be at least 2, got %d", c.FailureCount)
	}
	if c.SealGrace <= 0 {
		return fmt.Errorf("seal grace must be positive, got %v", c.SealGrace)
	}
	for rule, sev := range c.Severity {
		if sev < 0 || sev > 1 {
			return fmt.Errorf("severity for %q is %v, must be in [0,1]", rule, sev)
		}
	}
	return nil
}

// AuthorizedActors supplies the permitted actor set per artifact. A nil
// func disables the unauthorized-access rule.
type AuthorizedActors func(artifactID string) map[string]bool

// Builder reconstructs timelines. Safe for concurrent use.
type Builder struct {
	cfg      Config
	scorer   *risk.Scorer
	actors   AuthorizedActors
	disabled map[RuleName]bool
}

// NewBuilder validates cfg and returns a builder. actors may be nil.
func NewBuilder(cfg Config, scorer *risk.Scorer, actors AuthorizedActors) (*Builder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	disabled := make(map[RuleName]bool, len(cfg.DisabledRules))
	for _, r := range cfg.DisabledRules {
		disabled[r] = true
	}
	return &Builder{cfg: cfg, scorer: scorer, actors: actors, disabled: disabled}, nil
}

// Build reconstructs the timeline for one artifact. Events for other
// artifacts are ignored. The output event order is non-decreasing by
// OccurredAt, ties broken by SequenceNo.
func (b *Builder) Build(artifactID string, events []Event) *Timeline {
	own := make([]Event, 0, len(events))
	for _, ev := range events {
		if ev.ArtifactID == artifactID {
			own = append(own, ev)
		}
	}
	sort.Slice(own, func(i, j int) bool {
		if !own[i].OccurredAt.Equal(own[j].OccurredAt) {
			return own[i].OccurredAt.Before(own[j].OccurredAt)
		}
		return own[i].SequenceNo < own[j].SequenceNo
	})

	hits := b.evaluateRules(own)
	flags := bonusFlags(own)

	signals := make([]risk.Signal, len(hits))
	for i, h := range hits {
		signals[i] = risk.Signal{Name: string(h.Rule), Weight: h.Severity}
	}
	win, assessment := b.scorer.Dominant(signals, flags...)

	tl := &Timeline{
		ArtifactID: artifactID,
		Events:     own,
		Patterns:   hits,
		Risk: Assessment{
			Score:          assessment.Score,
			Level:          assessment.Level,
			Recommendation: assessment.Recommendation,
			Flags:          assessment.Flags,
			RequiresInvestigation: assessment.Level == risk.LevelHigh ||
				assessment.Level == risk.LevelCritical,
		},
	}
	if len(hits) > 0 {
		tl.Risk.DominantRule = RuleName(win.Name)
	}
	return tl
}

// Append merges new events into an existing timeline and rebuilds.
// Rebuilding from the merged set keeps incremental results identical to
// a full recomputation over the same complete event set.
func (b *Builder) Append(tl *Timeline, newEvents []Event) *Timeline {
	merged := make([]Event, 0, len(tl.Events)+len(newEvents))
	merged = append(merged, tl.Events...)
	merged = append(merged, newEvents...)
	return b.Build(tl.ArtifactID, merged)
}

// evaluateRules runs every enabled rule independently.
func (b *Builder) evaluateRules(events []Event) []PatternHit {
	if len(events) == 0 {
		return nil
	}

	var hits []PatternHit
	run := func(rule RuleName, fn func([]Event) []PatternHit) {
		if !b.disabled[rule] {
			hits = append(hits, fn(events)...)
		}
	}

	run(RuleRapidModifications, b.rapidModifications)
	run(RuleUnusualAccessTime, b.unusualAccessTime)
	run(RuleRepeatedFailures, b.repeatedFailures)
	run(RuleUnauthorizedAccess, b.unauthorizedAccess)
	run(RuleMissingSeal, b.missingSeal)
	run(RuleImpossibleSequence, b.impossibleSequence)

	sort.Slice(hits, func(i, j int) bool {
		if !hits[i].At.Equal(hits[j].At) {
			return hits[i].At.Before(hits[j].At)
		}
		return hits[i].Rule < hits[j].Rule
	})
	return hits
}

// bonusFlags derives the annotation flags that ride along with the
// assessment without affecting the score.
func bonusFlags(events []Event) []risk.Flag {
	var creator string
	for _, ev := range events {
		if ev.Type == EventCreated {
			creator = ev.ActorID
			break
		}
	}
	if creator == "" {
		return nil
	}
	for _, ev := range events {
		if ev.Type == EventModified && ev.ActorID != "" && ev.ActorID != creator {
			return []risk.Flag{risk.FlagActorMismatch}
		}
	}
	return nil
}
