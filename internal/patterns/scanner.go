package patterns

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"tamperscan/internal/document"
	"tamperscan/internal/fieldtax"
)

// Config holds the per-detector thresholds.
type Config struct {
	// Disabled lists detectors to skip.
	Disabled []Type `toml:"disabled" json:"disabled"`

	// Amount manipulation: at least AmountMinEdits financial-field
	// modifications by one actor inside AmountWindow showing a
	// consistent direction, round deltas, or a consistent percentage.
	AmountMinEdits     int           `toml:"amount_min_edits" json:"amount_min_edits"`
	AmountWindow       time.Duration `toml:"amount_window" json:"amount_window"`
	AmountRoundBases   []float64     `toml:"amount_round_bases" json:"amount_round_bases"`
	AmountPctTolerance float64       `toml:"amount_pct_tolerance" json:"amount_pct_tolerance"`

	// Coordinated tampering: at least TamperMinEvents modification
	// events by one actor across distinct artifacts inside TamperWindow.
	TamperMinEvents int           `toml:"tamper_min_events" json:"tamper_min_events"`
	TamperWindow    time.Duration `toml:"tamper_window" json:"tamper_window"`

	// Template fraud: structural-hash groups of at least
	// TemplateMinGroup with divergent content hashes. AllowedTemplates
	// suppresses known-legitimate structural hashes.
	TemplateMinGroup int      `toml:"template_min_group" json:"template_min_group"`
	AllowedTemplates []string `toml:"allowed_templates" json:"allowed_templates"`

	// Rapid submissions: mean inter-arrival under RapidMaxAvgInterval
	// across at least RapidMinEvents submissions by one actor.
	RapidMinEvents      int           `toml:"rapid_min_events" json:"rapid_min_events"`
	RapidMaxAvgInterval time.Duration `toml:"rapid_max_avg_interval" json:"rapid_max_avg_interval"`
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		AmountMinEdits:      3,
		AmountWindow:        time.Hour,
		AmountRoundBases:    []float64{50000, 1000},
		AmountPctTolerance:  0.02,
		TamperMinEvents:     5,
		TamperWindow:        10 * time.Minute,
		TemplateMinGroup:    10,
		RapidMinEvents:      5,
		RapidMaxAvgInterval: 60 * time.Second,
	}
}

// Validate checks the config ranges.
func (c Config) Validate() error {
	if c.AmountMinEdits < 2 {
		return fmt.Errorf("amount min edits must be at least 2, got %d", c.AmountMinEdits)
	}
	if c.AmountWindow <= 0 {
		return fmt.Errorf("amount window must be positive, got %v", c.AmountWindow)
	}
	for _, base := range c.AmountRoundBases {
		if base <= 0 {
			return fmt.Errorf("amount round base %v must be positive", base)
		}
	}
	if c.AmountPctTolerance < 0 {
		return fmt.Errorf("amount pct tolerance must be non-negative, got %v", c.AmountPctTolerance)
	}
	if c.TamperMinEvents < 2 {
		return fmt.Errorf("tamper min events must be at least 2, got %d", c.TamperMinEvents)
	}
	if c.TamperWindow <= 0 {
		return fmt.Errorf("tamper window must be positive, got %v", c.TamperWindow)
	}
	if c.TemplateMinGroup < 2 {
		return fmt.Errorf("template min group must be at least 2, got %d", c.TemplateMinGroup)
	}
	if c.RapidMinEvents < 2 {
		return fmt.Errorf("rapid min events must be at least 2, got %d", c.RapidMinEvents)
	}
	if c.RapidMaxAvgInterval <= 0 {
		return fmt.Errorf("rapid max avg interval must be positive, got %v", c.RapidMaxAvgInterval)
	}
	return nil
}

// Budget bounds a scan. Zero values mean unlimited. A scan that hits a
// bound marks its output ComputedOnPartialData instead of silently
// truncating.
type Budget struct {
	MaxArtifacts int
	MaxDuration  time.Duration
}

// Detector is one independent corpus heuristic.
type Detector interface {
	Name() Type
	Detect(c *Corpus) []Pattern
}

// Scanner runs the configured detectors over a corpus.
type Scanner struct {
	cfg       Config
	tax       *fieldtax.Table
	detectors []Detector
}

// NewScanner validates cfg and assembles the six detectors, minus the
// disabled ones.
func NewScanner(cfg Config, tax *fieldtax.Table) (*Scanner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	disabled := make(map[Type]bool, len(cfg.Disabled))
	for _, t := range cfg.Disabled {
		disabled[t] = true
	}

	all := []Detector{
		&duplicateSignatureDetector{tax: tax},
		&amountManipulationDetector{cfg: cfg, tax: tax},
		&identityReuseDetector{},
		&coordinatedTamperDetector{cfg: cfg},
		&templateFraudDetector{cfg: cfg},
		&rapidSubmissionsDetector{cfg: cfg},
	}
	var enabled []Detector
	for _, d := range all {
		if !disabled[d.Name()] {
			enabled = append(enabled, d)
		}
	}
	return &Scanner{cfg: cfg, tax: tax, detectors: enabled}, nil
}

// DetectAll runs every enabled detector concurrently over one immutable
// corpus snapshot and returns the concatenated patterns in a canonical
// order.
func (s *Scanner) DetectAll(corpus *Corpus, budget Budget) []Pattern {
	c, partial := applyArtifactBudget(corpus, budget)

	results := make([][]Pattern, len(s.detectors))
	finished := make([]bool, len(s.detectors))
	var mu sync.Mutex

	done := make(chan struct{})
	go func() {
		var wg sync.WaitGroup
		for i, d := range s.detectors {
			wg.Add(1)
			go func(i int, d Detector) {
				defer wg.Done()
				found := d.Detect(c)
				mu.Lock()
				results[i] = found
				finished[i] = true
				mu.Unlock()
			}(i, d)
		}
		wg.Wait()
		close(done)
	}()

	if budget.MaxDuration > 0 {
		select {
		case <-done:
		case <-time.After(budget.MaxDuration):
			partial = true
		}
	} else {
		<-done
	}

	mu.Lock()
	var patterns []Pattern
	for i := range results {
		if finished[i] {
			patterns = append(patterns, results[i]...)
		}
	}
	mu.Unlock()

	for i := range patterns {
		if partial || c.Partial {
			patterns[i].ComputedOnPartialData = true
		}
	}

	sort.Slice(patterns, func(i, j int) bool {
		if patterns[i].Type != patterns[j].Type {
			return patterns[i].Type < patterns[j].Type
		}
		return patterns[i].ID < patterns[j].ID
	})
	return patterns
}

// applyArtifactBudget caps the corpus at MaxArtifacts, keeping the
// lexicographically first artifacts so the cut is deterministic.
func applyArtifactBudget(corpus *Corpus, budget Budget) (*Corpus, bool) {
	if budget.MaxArtifacts <= 0 {
		return corpus, false
	}

	ids := make(map[string]struct{})
	for _, snap := range corpus.Snapshots {
		ids[snap.ArtifactID] = struct{}{}
	}
	for _, ev := range corpus.Events {
		ids[ev.ArtifactID] = struct{}{}
	}
	for _, fp := range corpus.Fingerprints {
		ids[fp.ArtifactID] = struct{}{}
	}
	if len(ids) <= budget.MaxArtifacts {
		return corpus, false
	}

	sorted := make([]string, 0, len(ids))
	for id := range ids {
		sorted = append(sorted, id)
	}
	sort.Strings(sorted)
	keep := make(map[string]struct{}, budget.MaxArtifacts)
	for _, id := range sorted[:budget.MaxArtifacts] {
		keep[id] = struct{}{}
	}

	capped := &Corpus{Partial: corpus.Partial}
	for _, snap := range corpus.Snapshots {
		if _, ok := keep[snap.ArtifactID]; ok {
			capped.Snapshots = append(capped.Snapshots, snap)
		}
	}
	for _, ev := range corpus.Events {
		if _, ok := keep[ev.ArtifactID]; ok {
			capped.Events = append(capped.Events, ev)
		}
	}
	for _, fp := range corpus.Fingerprints {
		if _, ok := keep[fp.ArtifactID]; ok {
			capped.Fingerprints = append(capped.Fingerprints, fp)
		}
	}
	return capped, true
}

// fieldValues returns the snapshot's values for fields classified under
// cat, keyed by path.
func fieldValues(snap *document.Snapshot, tax *fieldtax.Table, cat fieldtax.Category) map[string]any {
	out := map[string]any{}
	for path, v := range snap.Fields {
		if tax.Classify(path) == cat {
			out[path] = v
		}
	}
	return out
}
