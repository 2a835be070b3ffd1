package timeline

import (
	"reflect"
	"testing"
	"time"

	"tamperscan/internal/risk"
)

var base = time.Date(2026, 8, 3, 10, 0, 0, 0, time.UTC)

func newBuilder(t *testing.T, actors AuthorizedActors) *Builder {
	t.Helper()
	scorer, err := risk.NewScorer(risk.DefaultConfig())
	if err != nil {
		t.Fatalf("NewScorer: %v", err)
	}
	b, err := NewBuilder(DefaultConfig(), scorer, actors)
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	return b
}

func ev(typ EventType, actor string, offset time.Duration, seq int) Event {
	return Event{
		ArtifactID: "doc-1",
		Type:       typ,
		ActorID:    actor,
		OccurredAt: base.Add(offset),
		SequenceNo: seq,
	}
}

func hasRule(tl *Timeline, rule RuleName) bool {
	for _, h := range tl.Patterns {
		if h.Rule == rule {
			return true
		}
	}
	return false
}

func TestBuildOrdering(t *testing.T) {
	b := newBuilder(t, nil)

	events := []Event{
		ev(EventModified, "alice", 30*time.Minute, 3),
		ev(EventCreated, "alice", 0, 1),
		ev(EventAccessed, "bob", 10*time.Minute, 2),
		// Equal timestamps order by sequence number.
		{ArtifactID: "doc-1", Type: EventAccessed, ActorID: "carol", OccurredAt: base.Add(10 * time.Minute), SequenceNo: 1},
	}

	tl := b.Build("doc-1", events)
	if len(tl.Events) != 4 {
		t.Fatalf("len(Events) = %d, want 4", len(tl.Events))
	}
	for i := 1; i < len(tl.Events); i++ {
		prev, cur := tl.Events[i-1], tl.Events[i]
		if cur.OccurredAt.Before(prev.OccurredAt) {
			t.Fatalf("events not non-decreasing at %d", i)
		}
		if cur.OccurredAt.Equal(prev.OccurredAt) && cur.SequenceNo < prev.SequenceNo {
			t.Fatalf("sequence tie-break violated at %d", i)
		}
	}
	if tl.Events[1].ActorID != "carol" {
		t.Errorf("tie-break order wrong: %q", tl.Events[1].ActorID)
	}
}

func TestBuildFiltersOtherArtifacts(t *testing.T) {
	b := newBuilder(t, nil)
	events := []Event{
		ev(EventCreated, "alice", 0, 1),
		{ArtifactID: "doc-2", Type: EventCreated, ActorID: "mallory", OccurredAt: base},
	}
	tl := b.Build("doc-1", events)
	if len(tl.Events) != 1 {
		t.Errorf("len(Events) = %d, want 1", len(tl.Events))
	}
}

func TestRapidModifications(t *testing.T) {
	b := newBuilder(t, nil)

	t.Run("fires within window", func(t *testing.T) {
		tl := b.Build("doc-1", []Event{
			ev(EventCreated, "alice", 0, 1),
			ev(EventModified, "bob", 1*time.Minute, 2),
			ev(EventModified, "bob", 2*time.Minute, 3),
			ev(EventModified, "bob", 4*time.Minute, 4),
		})
		if !hasRule(tl, RuleRapidModifications) {
			t.Error("expected rapid_successive_modifications")
		}
	})

	t.Run("spread out does not fire", func(t *testing.T) {
		tl := b.Build("doc-1", []Event{
			ev(EventCreated, "alice", 0, 1),
			ev(EventModified, "bob", 10*time.Minute, 2),
			ev(EventModified, "bob", 20*time.Minute, 3),
			ev(EventModified, "bob", 30*time.Minute, 4),
		})
		if hasRule(tl, RuleRapidModifications) {
			t.Error("unexpected rapid_successive_modifications")
		}
	})
}

func TestRepeatedFailures(t *testing.T) {
	b := newBuilder(t, nil)

	t.Run("three consecutive", func(t *testing.T) {
		tl := b.Build("doc-1", []Event{
			ev(EventCreated, "alice", 0, 1),
			ev(EventFailed, "mallory", 1*time.Minute, 2),
			ev(EventFailed, "mallory", 2*time.Minute, 3),
			ev(EventFailed, "mallory", 3*time.Minute, 4),
		})
		if !hasRule(tl, RuleRepeatedFailures) {
			t.Error("expected repeated_failed_attempts")
		}
	})

	t.Run("intervening success resets", func(t *testing.T) {
		tl := b.Build("doc-1", []Event{
			ev(EventCreated, "alice", 0, 1),
			ev(EventFailed, "mallory", 1*time.Minute, 2),
			ev(EventFailed, "mallory", 2*time.Minute, 3),
			ev(EventAccessed, "mallory", 3*time.Minute, 4),
			ev(EventFailed, "mallory", 4*time.Minute, 5),
		})
		if hasRule(tl, RuleRepeatedFailures) {
			t.Error("unexpected repeated_failed_attempts after reset")
		}
	})
}

func TestUnauthorizedAccess(t *testing.T) {
	actors := func(artifactID string) map[string]bool {
		return map[string]bool{"alice": true, "bob": true}
	}
	b := newBuilder(t, actors)

	tl := b.Build("doc-1", []Event{
		ev(EventCreated, "alice", 0, 1),
		ev(EventModified, "mallory", 5*time.Minute, 2),
	})
	if !hasRule(tl, RuleUnauthorizedAccess) {
		t.Error("expected unauthorized_access")
	}

	// High severity drives investigation.
	if !tl.Risk.RequiresInvestigation {
		t.Error("expected requires_investigation")
	}

	// No registry, no rule.
	b2 := newBuilder(t, nil)
	tl2 := b2.Build("doc-1", []Event{
		ev(EventCreated, "alice", 0, 1),
		ev(EventModified, "mallory", 5*time.Minute, 2),
	})
	if hasRule(tl2, RuleUnauthorizedAccess) {
		t.Error("rule fired without a registry")
	}
}

func TestMissingSeal(t *testing.T) {
	b := newBuilder(t, nil)

	t.Run("sealed within grace", func(t *testing.T) {
		tl := b.Build("doc-1", []Event{
			ev(EventCreated, "alice", 0, 1),
			ev(EventModified, "alice", 10*time.Minute, 2),
			ev(EventAnchored, "system", 12*time.Minute, 3),
		})
		if hasRule(tl, RuleMissingSeal) {
			t.Error("unexpected missing_seal for anchored modification")
		}
	})

	t.Run("unsealed", func(t *testing.T) {
		tl := b.Build("doc-1", []Event{
			ev(EventCreated, "alice", 0, 1),
			ev(EventModified, "alice", 10*time.Minute, 2),
			ev(EventAccessed, "bob", 60*time.Minute, 3),
		})
		if !hasRule(tl, RuleMissingSeal) {
			t.Error("expected missing_seal")
		}
	})
}

func TestImpossibleSequence(t *testing.T) {
	b := newBuilder(t, nil)

	tl := b.Build("doc-1", []Event{
		ev(EventModified, "bob", -30*time.Minute, 1),
		ev(EventCreated, "alice", 0, 2),
	})
	if !hasRule(tl, RuleImpossibleSequence) {
		t.Error("expected impossible_sequence")
	}
	if tl.Risk.Level != risk.LevelCritical {
		t.Errorf("Level = %q, want critical", tl.Risk.Level)
	}
}

func TestUnusualAccessTime(t *testing.T) {
	b := newBuilder(t, nil)

	night := time.Date(2026, 8, 3, 2, 30, 0, 0, time.Local)
	tl := b.Build("doc-1", []Event{
		{ArtifactID: "doc-1", Type: EventCreated, ActorID: "alice", OccurredAt: night.Add(-time.Hour)},
		{ArtifactID: "doc-1", Type: EventAccessed, ActorID: "bob", OccurredAt: night},
	})
	if !hasRule(tl, RuleUnusualAccessTime) {
		t.Error("expected unusual_access_time")
	}
}

// An artifact modified 3 times within 4 minutes by an actor other than
// its creator: rapid modifications plus actor-mismatch flag, and the
// assessment requires investigation.
func TestRapidModificationByOtherActorScenario(t *testing.T) {
	b := newBuilder(t, nil)

	tl := b.Build("doc-1", []Event{
		ev(EventCreated, "alice", 0, 1),
		ev(EventModified, "mallory", 60*time.Minute, 2),
		ev(EventModified, "mallory", 62*time.Minute, 3),
		ev(EventModified, "mallory", 64*time.Minute, 4),
	})

	if !hasRule(tl, RuleRapidModifications) {
		t.Error("expected rapid_successive_modifications")
	}
	found := false
	for _, f := range tl.Risk.Flags {
		if f == risk.FlagActorMismatch {
			found = true
		}
	}
	if !found {
		t.Errorf("Flags = %v, want actor_mismatch", tl.Risk.Flags)
	}
	if !tl.Risk.RequiresInvestigation {
		t.Error("expected requires_investigation")
	}
}

func TestAppendMatchesFullRebuild(t *testing.T) {
	b := newBuilder(t, nil)

	initial := []Event{
		ev(EventCreated, "alice", 0, 1),
		ev(EventModified, "bob", 10*time.Minute, 2),
	}
	later := []Event{
		ev(EventModified, "bob", 11*time.Minute, 3),
		ev(EventModified, "bob", 12*time.Minute, 4),
	}

	incremental := b.Append(b.Build("doc-1", initial), later)
	full := b.Build("doc-1", append(append([]Event{}, initial...), later...))

	if !reflect.DeepEqual(incremental, full) {
		t.Errorf("incremental and full rebuild differ:\n%+v\n%+v", incremental, full)
	}
}

func TestDisabledRules(t *testing.T) {
	scorer, err := risk.NewScorer(risk.DefaultConfig())
	if err != nil {
		t.Fatalf("NewScorer: %v", err)
	}
	cfg := DefaultConfig()
	cfg.DisabledRules = []RuleName{RuleRapidModifications}
	b, err := NewBuilder(cfg, scorer, nil)
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}

	tl := b.Build("doc-1", []Event{
		ev(EventCreated, "alice", 0, 1),
		ev(EventModified, "bob", 1*time.Minute, 2),
		ev(EventModified, "bob", 2*time.Minute, 3),
		ev(EventModified, "bob", 3*time.Minute, 4),
	})
	if hasRule(tl, RuleRapidModifications) {
		t.Error("disabled rule fired")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero rapid window", func(c *Config) { c.RapidWindow = 0 }},
		{"rapid count too small", func(c *Config) { c.RapidCount = 1 }},
		{"failure count too small", func(c *Config) { c.FailureCount = 0 }},
		{"negative seal grace", func(c *Config) { c.SealGrace = -time.Minute }},
		{"severity out of range", func(c *Config) { c.Severity[RuleMissingSeal] = 1.5 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
