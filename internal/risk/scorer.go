package risk

import (
	"fmt"
	"math"
	"sort"

	"tamperscan/internal/fieldtax"
)

// Default level bucket boundaries.
const (
	DefaultMediumThreshold   = 0.3
	DefaultHighThreshold     = 0.6
	DefaultCriticalThreshold = 0.85
)

// Config holds the scoring weights and thresholds. Zero values are not
// usable; start from DefaultConfig.
type Config struct {
	// BaseRisk is the per-category base risk in [0,1].
	BaseRisk map[fieldtax.Category]float64 `toml:"base_risk" json:"base_risk"`

	// ModerateMagnitude / StrongMagnitude are the |magnitude| cut-offs
	// above which the corresponding multiplier applies. Strong wins when
	// both apply.
	ModerateMagnitude float64 `toml:"moderate_magnitude" json:"moderate_magnitude"`
	StrongMagnitude   float64 `toml:"strong_magnitude" json:"strong_magnitude"`

	// ModerateMultiplier / StrongMultiplier scale a change's base risk.
	// The scaled score is capped at 1.0.
	ModerateMultiplier float64 `toml:"moderate_multiplier" json:"moderate_multiplier"`
	StrongMultiplier   float64 `toml:"strong_multiplier" json:"strong_multiplier"`

	// Level bucket boundaries: score < Medium is low, < High is medium,
	// < Critical is high, otherwise critical.
	MediumThreshold   float64 `toml:"medium_threshold" json:"medium_threshold"`
	HighThreshold     float64 `toml:"high_threshold" json:"high_threshold"`
	CriticalThreshold float64 `toml:"critical_threshold" json:"critical_threshold"`
}

// DefaultConfig returns the documented default weights.
func DefaultConfig() Config {
	return Config{
		BaseRisk: map[fieldtax.Category]float64{
			fieldtax.CategoryFinancial:  0.95,
			fieldtax.CategoryIdentity:   0.90,
			fieldtax.CategorySignature:  0.85,
			fieldtax.CategoryDate:       0.50,
			fieldtax.CategoryStructural: 0.30,
			fieldtax.CategoryOther:      0.20,
		},
		ModerateMagnitude:  0.3,
		StrongMagnitude:    1.0,
		ModerateMultiplier: 1.3,
		StrongMultiplier:   1.5,
		MediumThreshold:    DefaultMediumThreshold,
		HighThreshold:      DefaultHighThreshold,
		CriticalThreshold:  DefaultCriticalThreshold,
	}
}

// Validate checks ranges and that retuned base risks preserve the
// default category ordering (financial ≥ identity ≥ signature ≥ date ≥
// structural ≥ other).
func (c Config) Validate() error {
	for _, cat := range fieldtax.Categories {
		base, ok := c.BaseRisk[cat]
		if !ok {
			return fmt.Errorf("base risk missing for category %q", cat)
		}
		if base < 0 || base > 1 {
			return fmt.Errorf("base risk for %q is %v, must be in [0,1]", cat, base)
		}
	}
	for i := 1; i < len(fieldtax.Categories); i++ {
		prev, cur := fieldtax.Categories[i-1], fieldtax.Categories[i]
		if c.BaseRisk[prev] < c.BaseRisk[cur] {
			return fmt.Errorf("base risk ordering violated: %q (%v) < %q (%v)",
				prev, c.BaseRisk[prev], cur, c.BaseRisk[cur])
		}
	}
	if c.ModerateMultiplier < 1 || c.StrongMultiplier < c.ModerateMultiplier {
		return fmt.Errorf("multipliers must satisfy 1 <= moderate (%v) <= strong (%v)",
			c.ModerateMultiplier, c.StrongMultiplier)
	}
	if c.ModerateMagnitude <= 0 || c.StrongMagnitude <= c.ModerateMagnitude {
		return fmt.Errorf("magnitude cut-offs must satisfy 0 < moderate (%v) < strong (%v)",
			c.ModerateMagnitude, c.StrongMagnitude)
	}
	if !(c.MediumThreshold > 0 && c.MediumThreshold < c.HighThreshold &&
		c.HighThreshold < c.CriticalThreshold && c.CriticalThreshold <= 1) {
		return fmt.Errorf("level thresholds must satisfy 0 < medium (%v) < high (%v) < critical (%v) <= 1",
			c.MediumThreshold, c.HighThreshold, c.CriticalThreshold)
	}
	return nil
}

// Scorer applies a Config. Safe for concurrent use; it holds no mutable
// state.
type Scorer struct {
	cfg Config
}

// NewScorer validates cfg and returns a scorer.
func NewScorer(cfg Config) (*Scorer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Scorer{cfg: cfg}, nil
}

// ChangeScore returns the capped score for a single change:
// base(category) * multiplier(|magnitude|), capped at 1.0.
func (s *Scorer) ChangeScore(ch Change) float64 {
	base := s.cfg.BaseRisk[ch.Category]
	mag := math.Abs(ch.Magnitude)

	mult := 1.0
	switch {
	case mag > s.cfg.StrongMagnitude:
		mult = s.cfg.StrongMultiplier
	case mag > s.cfg.ModerateMagnitude:
		mult = s.cfg.ModerateMultiplier
	}

	return math.Min(1.0, base*mult)
}

// Score combines changes under the max-dominant rule: the riskiest
// single change sets the score, ties broken by alphabetical field path.
// flags are recorded on the assessment unchanged.
func (s *Scorer) Score(changes []Change, flags ...Flag) Assessment {
	var (
		best     float64
		dominant string
		haveBest bool
	)
	for _, ch := range changes {
		score := s.ChangeScore(ch)
		switch {
		case !haveBest, score > best:
			best, dominant, haveBest = score, ch.FieldPath, true
		case score == best && ch.FieldPath < dominant:
			dominant = ch.FieldPath
		}
	}

	level := s.LevelFor(best)
	a := Assessment{
		Score:          best,
		Level:          level,
		Recommendation: Recommendation(level),
		DominantField:  dominant,
	}
	if len(flags) > 0 {
		sorted := make([]Flag, len(flags))
		copy(sorted, flags)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
		a.Flags = sorted
	}
	return a
}

// Dominant applies the same max-dominant combination to arbitrary named
// signals (alphabetical tie-break on name) and returns the winning
// signal and the resulting assessment.
func (s *Scorer) Dominant(signals []Signal, flags ...Flag) (Signal, Assessment) {
	var (
		win  Signal
		have bool
	)
	for _, sig := range signals {
		switch {
		case !have, sig.Weight > win.Weight:
			win, have = sig, true
		case sig.Weight == win.Weight && sig.Name < win.Name:
			win = sig
		}
	}

	level := s.LevelFor(win.Weight)
	a := Assessment{
		Score:          win.Weight,
		Level:          level,
		Recommendation: Recommendation(level),
		DominantField:  win.Name,
	}
	if len(flags) > 0 {
		sorted := make([]Flag, len(flags))
		copy(sorted, flags)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
		a.Flags = sorted
	}
	return win, a
}

// LevelFor buckets a score into a level. The bucketing is monotone:
// a higher score never maps to a lower level.
func (s *Scorer) LevelFor(score float64) Level {
	switch {
	case score >= s.cfg.CriticalThreshold:
		return LevelCritical
	case score >= s.cfg.HighThreshold:
		return LevelHigh
	case score >= s.cfg.MediumThreshold:
		return LevelMedium
	default:
		return LevelLow
	}
}

// Recommendation maps a level to the caller-facing action hint. The
// core never decides business outcomes; these are advisory strings.
func Recommendation(level Level) string {
	switch level {
	case LevelCritical:
		return "escalate for immediate manual review"
	case LevelHigh:
		return "hold for manual review"
	case LevelMedium:
		return "review recommended"
	default:
		return "no action required"
	}
}
