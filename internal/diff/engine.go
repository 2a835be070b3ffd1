package diff

import (
	"fmt"
	"math"
	"sort"

	"tamperscan/internal/document"
	"tamperscan/internal/fieldtax"
	"tamperscan/internal/risk"
)

// Config holds the diff engine thresholds.
type Config struct {
	// RoundNumberBases are the divisors used for round-number flagging.
	// A changed numeric value evenly divisible by any base raises the
	// round-number flag.
	RoundNumberBases []float64 `toml:"round_number_bases" json:"round_number_bases"`

	// RoundNumberCategories limits round-number flagging to specific
	// change categories.
	RoundNumberCategories []fieldtax.Category `toml:"round_number_categories" json:"round_number_categories"`

	// NightStartHour / NightEndHour bound the unusual-time-of-day window
	// [start,end) wrapping midnight. A snapshot captured inside the
	// window raises the unusual-time flag.
	NightStartHour int `toml:"night_start_hour" json:"night_start_hour"`
	NightEndHour   int `toml:"night_end_hour" json:"night_end_hour"`
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		RoundNumberBases:      []float64{50000, 1000},
		RoundNumberCategories: []fieldtax.Category{fieldtax.CategoryFinancial},
		NightStartHour:        23,
		NightEndHour:          5,
	}
}

// Validate checks the config ranges.
func (c Config) Validate() error {
	for _, base := range c.RoundNumberBases {
		if base <= 0 {
			return fmt.Errorf("round number base %v must be positive", base)
		}
	}
	if c.NightStartHour < 0 || c.NightStartHour > 23 {
		return fmt.Errorf("night start hour %d out of range", c.NightStartHour)
	}
	if c.NightEndHour < 0 || c.NightEndHour > 23 {
		return fmt.Errorf("night end hour %d out of range", c.NightEndHour)
	}
	return nil
}

// Engine compares document snapshots. Safe for concurrent use.
type Engine struct {
	cfg    Config
	tax    *fieldtax.Table
	scorer *risk.Scorer
}

// NewEngine builds an engine over an injected taxonomy table and
// scorer.
func NewEngine(cfg Config, tax *fieldtax.Table, scorer *risk.Scorer) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg, tax: tax, scorer: scorer}, nil
}

// Compare diffs two snapshots of one artifact, scores the changes, and
// returns the result. Comparing a snapshot against itself yields zero
// changes and risk score 0. Swapping the arguments swaps old/new values
// but reports the same field paths.
func (e *Engine) Compare(oldSnap, newSnap *document.Snapshot) (*Result, error) {
	if err := validateSnapshot(oldSnap); err != nil {
		return nil, err
	}
	if err := validateSnapshot(newSnap); err != nil {
		return nil, err
	}

	paths := unionPaths(oldSnap.Fields, newSnap.Fields)

	var changes []FieldChange
	for _, path := range paths {
		oldRaw, inOld := oldSnap.Fields[path]
		newRaw, inNew := newSnap.Fields[path]

		switch {
		case inOld && !inNew:
			changes = append(changes, e.presenceChange(path, oldRaw, nil, KindRemoved))
		case !inOld && inNew:
			changes = append(changes, e.presenceChange(path, nil, newRaw, KindAdded))
		default:
			changes = append(changes, e.compareValues(path, oldRaw, newRaw)...)
		}
	}

	sort.Slice(changes, func(i, j int) bool {
		return changes[i].FieldPath < changes[j].FieldPath
	})

	flags := e.collectFlags(changes, newSnap)
	assessment := e.scorer.Score(toRiskChanges(changes), flags...)

	return &Result{
		ArtifactID:         newSnap.ArtifactID,
		OldVersionID:       oldSnap.VersionID,
		NewVersionID:       newSnap.VersionID,
		Changes:            changes,
		TotalChanges:       len(changes),
		RiskScore:          assessment.Score,
		RiskLevel:          assessment.Level,
		Recommendation:     assessment.Recommendation,
		SuspiciousPatterns: assessment.Flags,
	}, nil
}

// compareValues emits the changes between two present values at path.
func (e *Engine) compareValues(path string, oldRaw, newRaw any) []FieldChange {
	oldNorm := normalize(oldRaw)
	newNorm := normalize(newRaw)

	// Arrays are diffed element-wise; a length mismatch collapses into a
	// single structural change.
	if oldNorm.kind == kindArray && newNorm.kind == kindArray {
		if len(oldNorm.arr) != len(newNorm.arr) {
			return []FieldChange{{
				FieldPath: path,
				OldValue:  oldRaw,
				NewValue:  newRaw,
				Kind:      KindModified,
				Category:  fieldtax.CategoryStructural,
			}}
		}
		oldArr := oldRaw.([]any)
		newArr := newRaw.([]any)
		var changes []FieldChange
		for i := range oldNorm.arr {
			if !oldNorm.arr[i].equal(newNorm.arr[i]) {
				changes = append(changes, FieldChange{
					FieldPath: fmt.Sprintf("%s[%d]", path, i),
					OldValue:  oldArr[i],
					NewValue:  newArr[i],
					Kind:      KindModified,
					Category:  e.classify(path, KindModified),
					Magnitude: magnitude(oldNorm.arr[i], newNorm.arr[i]),
				})
			}
		}
		return changes
	}

	// Scalar replaced by array (or vice versa) is a shape change.
	if (oldNorm.kind == kindArray) != (newNorm.kind == kindArray) {
		return []FieldChange{{
			FieldPath: path,
			OldValue:  oldRaw,
			NewValue:  newRaw,
			Kind:      KindModified,
			Category:  fieldtax.CategoryStructural,
		}}
	}

	if oldNorm.equal(newNorm) {
		return nil
	}
	return []FieldChange{{
		FieldPath: path,
		OldValue:  oldRaw,
		NewValue:  newRaw,
		Kind:      KindModified,
		Category:  e.classify(path, KindModified),
		Magnitude: magnitude(oldNorm, newNorm),
	}}
}

func (e *Engine) presenceChange(path string, oldRaw, newRaw any, kind ChangeKind) FieldChange {
	return FieldChange{
		FieldPath: path,
		OldValue:  oldRaw,
		NewValue:  newRaw,
		Kind:      kind,
		Category:  e.classify(path, kind),
	}
}

// classify looks the path up in the taxonomy; unmatched paths fall back
// to structural for presence changes and other for value changes.
func (e *Engine) classify(path string, kind ChangeKind) fieldtax.Category {
	cat := e.tax.Classify(path)
	if cat != fieldtax.CategoryOther {
		return cat
	}
	if kind == KindAdded || kind == KindRemoved {
		return fieldtax.CategoryStructural
	}
	return fieldtax.CategoryOther
}

// collectFlags derives the bonus suspicious-pattern flags.
func (e *Engine) collectFlags(changes []FieldChange, newSnap *document.Snapshot) []risk.Flag {
	var flags []risk.Flag

	for _, ch := range changes {
		if e.isRoundNumber(ch) {
			flags = append(flags, risk.FlagRoundNumber)
			break
		}
	}

	if !newSnap.CapturedAt.IsZero() {
		hour := newSnap.CapturedAt.Local().Hour()
		if inNightWindow(hour, e.cfg.NightStartHour, e.cfg.NightEndHour) {
			flags = append(flags, risk.FlagUnusualTime)
		}
	}

	return flags
}

// isRoundNumber reports whether a change's new value is a nonzero
// number evenly divisible by a configured base, for a flagged category.
func (e *Engine) isRoundNumber(ch FieldChange) bool {
	inCategory := false
	for _, cat := range e.cfg.RoundNumberCategories {
		if ch.Category == cat {
			inCategory = true
			break
		}
	}
	if !inCategory {
		return false
	}

	norm := normalize(ch.NewValue)
	if norm.kind != kindNumber || norm.num == 0 {
		return false
	}
	for _, base := range e.cfg.RoundNumberBases {
		if math.Mod(math.Abs(norm.num), base) == 0 {
			return true
		}
	}
	return false
}

// inNightWindow reports whether hour falls in [start,end) wrapping
// midnight when start > end.
func inNightWindow(hour, start, end int) bool {
	if start <= end {
		return hour >= start && hour < end
	}
	return hour >= start || hour < end
}

func validateSnapshot(s *document.Snapshot) error {
	if s == nil {
		return fmt.Errorf("%w: nil snapshot", ErrInvalidSnapshot)
	}
	for path, v := range s.Fields {
		if err := document.ValidateValue(path, v); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
		}
	}
	return nil
}

func unionPaths(a, b map[string]any) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	for p := range a {
		seen[p] = struct{}{}
	}
	for p := range b {
		seen[p] = struct{}{}
	}
	paths := make([]string, 0, len(seen))
	for p := range seen {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

func toRiskChanges(changes []FieldChange) []risk.Change {
	out := make([]risk.Change, len(changes))
	for i, ch := range changes {
		out[i] = risk.Change{
			FieldPath: ch.FieldPath,
			Category:  ch.Category,
			Magnitude: scoreMagnitude(normalize(ch.OldValue), normalize(ch.NewValue)),
		}
	}
	return out
}
