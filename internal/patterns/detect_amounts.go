package patterns

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"tamperscan/internal/document"
	"tamperscan/internal/fieldtax"
	"tamperscan/internal/risk"
	"tamperscan/internal/timeline"
)

// financialEdit is one parsed financial-field modification event.
type financialEdit struct {
	artifactID string
	at         time.Time
	oldAmount  float64
	newAmount  float64
}

// amountManipulationDetector looks for one actor making systematic
// financial edits: a consistent direction, consistent round-number
// deltas, or a consistent percentage change across enough edits inside
// the configured window.
type amountManipulationDetector struct {
	cfg Config
	tax *fieldtax.Table
}

func (d *amountManipulationDetector) Name() Type { return TypeAmountManipulation }

func (d *amountManipulationDetector) Detect(c *Corpus) []Pattern {
	byActor := map[string][]financialEdit{}
	for _, ev := range c.Events {
		edit, ok := d.parseEdit(ev)
		if !ok {
			continue
		}
		byActor[ev.ActorID] = append(byActor[ev.ActorID], edit)
	}

	actors := make([]string, 0, len(byActor))
	for a := range byActor {
		actors = append(actors, a)
	}
	sort.Strings(actors)

	var patterns []Pattern
	for _, actor := range actors {
		edits := byActor[actor]
		sort.Slice(edits, func(i, j int) bool { return edits[i].at.Before(edits[j].at) })

		if p, ok := d.evaluateActor(actor, edits); ok {
			patterns = append(patterns, p)
		}
	}
	return patterns
}

// parseEdit extracts a financial edit from a modification event's
// details; non-financial paths and unparseable amounts are skipped.
func (d *amountManipulationDetector) parseEdit(ev timeline.Event) (financialEdit, bool) {
	if ev.Type != timeline.EventModified || ev.ActorID == "" {
		return financialEdit{}, false
	}
	path := ev.Details["field_path"]
	if path == "" || d.tax.Classify(path) != fieldtax.CategoryFinancial {
		return financialEdit{}, false
	}
	oldAmount, okOld := document.ParseNumber(ev.Details["old_value"])
	newAmount, okNew := document.ParseNumber(ev.Details["new_value"])
	if !okOld || !okNew {
		return financialEdit{}, false
	}
	return financialEdit{
		artifactID: ev.ArtifactID,
		at:         ev.OccurredAt,
		oldAmount:  oldAmount,
		newAmount:  newAmount,
	}, true
}

// evaluateActor slides the window over one actor's edits and emits at
// most one pattern for the first qualifying window.
func (d *amountManipulationDetector) evaluateActor(actor string, edits []financialEdit) (Pattern, bool) {
	start := 0
	for end := range edits {
		for edits[end].at.Sub(edits[start].at) > d.cfg.AmountWindow {
			start++
		}
		window := edits[start : end+1]
		if len(window) < d.cfg.AmountMinEdits {
			continue
		}
		signals := d.consistencySignals(window)
		if len(signals) == 0 {
			continue
		}

		artifacts := make([]string, 0, len(window))
		for _, e := range window {
			artifacts = append(artifacts, e.artifactID)
		}
		return newPattern(
			TypeAmountManipulation,
			risk.LevelHigh,
			0.80,
			Evidence{
				ArtifactIDs: dedupe(artifacts),
				Actors:      []string{actor},
				Facts: map[string]string{
					"edit_count": fmt.Sprintf("%d", len(window)),
					"signals":    strings.Join(signals, ","),
				},
			},
			[]string{actor},
		), true
	}
	return Pattern{}, false
}

// consistencySignals names the manipulation heuristics the window
// satisfies.
func (d *amountManipulationDetector) consistencySignals(window []financialEdit) []string {
	var signals []string

	allUp, allDown := true, true
	for _, e := range window {
		delta := e.newAmount - e.oldAmount
		if delta <= 0 {
			allUp = false
		}
		if delta >= 0 {
			allDown = false
		}
	}
	if allUp || allDown {
		signals = append(signals, "consistent_direction")
	}

	allRound := len(d.cfg.AmountRoundBases) > 0
	for _, e := range window {
		if !isRoundDelta(math.Abs(e.newAmount-e.oldAmount), d.cfg.AmountRoundBases) {
			allRound = false
			break
		}
	}
	if allRound {
		signals = append(signals, "round_number_deltas")
	}

	if d.consistentPercentage(window) {
		signals = append(signals, "consistent_percentage")
	}

	return signals
}

func isRoundDelta(delta float64, bases []float64) bool {
	if delta == 0 {
		return false
	}
	for _, base := range bases {
		if math.Mod(delta, base) == 0 {
			return true
		}
	}
	return false
}

// consistentPercentage reports whether every edit's relative change
// sits within the tolerance band around the window mean.
func (d *amountManipulationDetector) consistentPercentage(window []financialEdit) bool {
	pcts := make([]float64, 0, len(window))
	for _, e := range window {
		if e.oldAmount == 0 {
			return false
		}
		pcts = append(pcts, (e.newAmount-e.oldAmount)/e.oldAmount)
	}

	mean := 0.0
	for _, p := range pcts {
		mean += p
	}
	mean /= float64(len(pcts))

	for _, p := range pcts {
		if math.Abs(p-mean) > d.cfg.AmountPctTolerance {
			return false
		}
	}
	return true
}
