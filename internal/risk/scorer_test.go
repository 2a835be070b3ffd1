package risk

import (
	"math"
	"reflect"
	"testing"

	"tamperscan/internal/fieldtax"
)

func newScorer(t *testing.T) *Scorer {
	t.Helper()
	s, err := NewScorer(DefaultConfig())
	if err != nil {
		t.Fatalf("NewScorer: %v", err)
	}
	return s
}

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestChangeScore(t *testing.T) {
	s := newScorer(t)

	tests := []struct {
		name     string
		change   Change
		expected float64
	}{
		{
			name:     "financial small magnitude",
			change:   Change{Category: fieldtax.CategoryFinancial, Magnitude: 0.1},
			expected: 0.95,
		},
		{
			name:     "financial moderate magnitude capped",
			change:   Change{Category: fieldtax.CategoryFinancial, Magnitude: 0.6},
			expected: 1.0, // 0.95 * 1.3 capped
		},
		{
			name:     "financial 44 percent increase gets moderate multiplier",
			change:   Change{Category: fieldtax.CategoryFinancial, Magnitude: 0.444},
			expected: 1.0, // 0.95 * 1.3 capped
		},
		{
			name:     "below moderate cut-off keeps base",
			change:   Change{Category: fieldtax.CategoryDate, Magnitude: 0.25},
			expected: 0.50,
		},
		{
			name:     "date moderate magnitude",
			change:   Change{Category: fieldtax.CategoryDate, Magnitude: 0.6},
			expected: 0.65, // 0.50 * 1.3
		},
		{
			name:     "date strong magnitude",
			change:   Change{Category: fieldtax.CategoryDate, Magnitude: 1.5},
			expected: 0.75, // 0.50 * 1.5
		},
		{
			name:     "negative magnitude uses absolute value",
			change:   Change{Category: fieldtax.CategoryDate, Magnitude: -1.5},
			expected: 0.75,
		},
		{
			name:     "other no multiplier",
			change:   Change{Category: fieldtax.CategoryOther, Magnitude: 0.4},
			expected: 0.20,
		},
		{
			name:     "structural zero magnitude",
			change:   Change{Category: fieldtax.CategoryStructural},
			expected: 0.30,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.ChangeScore(tt.change)
			if !approxEqual(got, tt.expected) {
				t.Errorf("ChangeScore = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestScoreMaxDominant(t *testing.T) {
	s := newScorer(t)

	a := s.Score([]Change{
		{FieldPath: "notes", Category: fieldtax.CategoryOther, Magnitude: 0},
		{FieldPath: "closing.date", Category: fieldtax.CategoryDate, Magnitude: 0.6},
		{FieldPath: "page_count", Category: fieldtax.CategoryOther, Magnitude: 0.2},
	})

	// Max wins, not sum: 0.65 from the date change.
	if !approxEqual(a.Score, 0.65) {
		t.Errorf("Score = %v, want 0.65", a.Score)
	}
	if a.Level != LevelHigh {
		t.Errorf("Level = %q, want high", a.Level)
	}
	if a.DominantField != "closing.date" {
		t.Errorf("DominantField = %q, want closing.date", a.DominantField)
	}
}

func TestScoreTieBreakAlphabetical(t *testing.T) {
	s := newScorer(t)

	a := s.Score([]Change{
		{FieldPath: "zeta.notes", Category: fieldtax.CategoryOther},
		{FieldPath: "alpha.notes", Category: fieldtax.CategoryOther},
		{FieldPath: "mid.notes", Category: fieldtax.CategoryOther},
	})
	if a.DominantField != "alpha.notes" {
		t.Errorf("DominantField = %q, want alpha.notes", a.DominantField)
	}
}

func TestScoreEmpty(t *testing.T) {
	s := newScorer(t)
	a := s.Score(nil)
	if a.Score != 0 || a.Level != LevelLow {
		t.Errorf("empty Score = %v/%q, want 0/low", a.Score, a.Level)
	}
}

func TestScoreDeterministic(t *testing.T) {
	s := newScorer(t)
	changes := []Change{
		{FieldPath: "loan.amount", Category: fieldtax.CategoryFinancial, Magnitude: 0.444},
		{FieldPath: "closing.date", Category: fieldtax.CategoryDate, Magnitude: 0.1},
	}
	first := s.Score(changes)
	for i := 0; i < 10; i++ {
		if got := s.Score(changes); !reflect.DeepEqual(got, first) {
			t.Fatalf("Score not deterministic: %+v vs %+v", got, first)
		}
	}
}

// Loan amount 450,000 -> 650,000: magnitude ~0.444, multiplier 1.3,
// 0.95*1.3 caps at 1.0, critical.
func TestScoreLoanAmountScenario(t *testing.T) {
	s := newScorer(t)
	a := s.Score([]Change{
		{FieldPath: "loan.amount", Category: fieldtax.CategoryFinancial, Magnitude: 200000.0 / 450000.0},
	}, FlagRoundNumber)

	if !approxEqual(a.Score, 1.0) {
		t.Errorf("Score = %v, want 1.0", a.Score)
	}
	if a.Level != LevelCritical {
		t.Errorf("Level = %q, want critical", a.Level)
	}
	if len(a.Flags) != 1 || a.Flags[0] != FlagRoundNumber {
		t.Errorf("Flags = %v, want [round_number_amount]", a.Flags)
	}
}

func TestLevelBuckets(t *testing.T) {
	s := newScorer(t)

	tests := []struct {
		score    float64
		expected Level
	}{
		{0.0, LevelLow},
		{0.29, LevelLow},
		{0.3, LevelMedium},
		{0.59, LevelMedium},
		{0.6, LevelHigh},
		{0.84, LevelHigh},
		{0.85, LevelCritical},
		{1.0, LevelCritical},
	}
	for _, tt := range tests {
		if got := s.LevelFor(tt.score); got != tt.expected {
			t.Errorf("LevelFor(%v) = %q, want %q", tt.score, got, tt.expected)
		}
	}
}

func TestDominantSignals(t *testing.T) {
	s := newScorer(t)

	win, a := s.Dominant([]Signal{
		{Name: "unusual_access_time", Weight: 0.4},
		{Name: "rapid_successive_modifications", Weight: 0.7},
		{Name: "repeated_failed_attempts", Weight: 0.6},
	})
	if win.Name != "rapid_successive_modifications" {
		t.Errorf("winner = %q", win.Name)
	}
	if a.Level != LevelHigh {
		t.Errorf("Level = %q, want high", a.Level)
	}

	// Alphabetical tie-break on equal weights.
	win, _ = s.Dominant([]Signal{
		{Name: "b_rule", Weight: 0.5},
		{Name: "a_rule", Weight: 0.5},
	})
	if win.Name != "a_rule" {
		t.Errorf("tie-break winner = %q, want a_rule", win.Name)
	}
}

func TestConfigValidate(t *testing.T) {
	t.Run("defaults valid", func(t *testing.T) {
		if err := DefaultConfig().Validate(); err != nil {
			t.Fatalf("default config invalid: %v", err)
		}
	})

	t.Run("missing category", func(t *testing.T) {
		cfg := DefaultConfig()
		delete(cfg.BaseRisk, fieldtax.CategoryDate)
		if err := cfg.Validate(); err == nil {
			t.Fatal("expected error for missing category")
		}
	})

	t.Run("ordering violated", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.BaseRisk[fieldtax.CategoryDate] = 0.99 // above financial
		if err := cfg.Validate(); err == nil {
			t.Fatal("expected ordering error")
		}
	})

	t.Run("out of range base", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.BaseRisk[fieldtax.CategoryFinancial] = 1.2
		if err := cfg.Validate(); err == nil {
			t.Fatal("expected range error")
		}
	})

	t.Run("retuned but ordered is valid", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.BaseRisk[fieldtax.CategoryFinancial] = 0.8
		cfg.BaseRisk[fieldtax.CategoryIdentity] = 0.7
		cfg.BaseRisk[fieldtax.CategorySignature] = 0.6
		cfg.BaseRisk[fieldtax.CategoryDate] = 0.4
		cfg.BaseRisk[fieldtax.CategoryStructural] = 0.2
		cfg.BaseRisk[fieldtax.CategoryOther] = 0.1
		if err := cfg.Validate(); err != nil {
			t.Fatalf("retuned config rejected: %v", err)
		}
	})

	t.Run("bad multipliers", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.StrongMultiplier = 1.1 // below moderate
		if err := cfg.Validate(); err == nil {
			t.Fatal("expected multiplier error")
		}
	})

	t.Run("bad thresholds", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.HighThreshold = 0.2 // below medium
		if err := cfg.Validate(); err == nil {
			t.Fatal("expected threshold error")
		}
	})
}
