// Package risk scores detected document changes.
//
// Scoring is a pure function: per-category base risks, a magnitude
// multiplier per change, and a max-dominant combination rule in which
// the single riskiest change determines the overall score.
package risk

import "tamperscan/internal/fieldtax"

// Change is the minimal change info needed for scoring. The diff engine
// produces these; the timeline aggregator reuses the combination rule
// through Dominant.
type Change struct {
	FieldPath string
	Category  fieldtax.Category
	Magnitude float64
}

// Level buckets a risk score.
type Level string

const (
	LevelLow      Level = "low"
	LevelMedium   Level = "medium"
	LevelHigh     Level = "high"
	LevelCritical Level = "critical"
)

// Flag is a bonus suspicious-pattern tag. Flags annotate an assessment
// but never contribute to the score.
type Flag string

const (
	FlagRoundNumber   Flag = "round_number_amount"
	FlagUnusualTime   Flag = "unusual_time_of_day"
	FlagActorMismatch Flag = "actor_mismatch"
)

// Assessment is the scoring output.
type Assessment struct {
	Score          float64 `json:"score"`
	Level          Level   `json:"level"`
	Recommendation string  `json:"recommendation"`
	// DominantField is the field path of the change that set the score.
	DominantField string `json:"dominant_field,omitempty"`
	Flags         []Flag `json:"flags,omitempty"`
}

// Signal is a named weighted contribution, used when combining
// heterogeneous risk sources (e.g. timeline rule hits) under the same
// max-dominant rule as field changes.
type Signal struct {
	Name   string
	Weight float64
}
