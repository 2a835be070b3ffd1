package timeline

import (
	"fmt"
	"time"
)

// rapidModifications fires once per burst of at least RapidCount
// modification events inside a RapidWindow sliding window.
func (b *Builder) rapidModifications(events []Event) []PatternHit {
	var mods []Event
	for _, ev := range events {
		if ev.Type == EventModified {
			mods = append(mods, ev)
		}
	}
	if len(mods) < b.cfg.RapidCount {
		return nil
	}

	start := 0
	for end := range mods {
		for mods[end].OccurredAt.Sub(mods[start].OccurredAt) > b.cfg.RapidWindow {
			start++
		}
		if end-start+1 >= b.cfg.RapidCount {
			// One hit covers the whole burst.
			return []PatternHit{{
				Rule: RuleRapidModifications,
				Detail: fmt.Sprintf("%d modifications within %s",
					end-start+1, mods[end].OccurredAt.Sub(mods[start].OccurredAt).Round(time.Second)),
				At:       mods[end].OccurredAt,
				ActorID:  mods[end].ActorID,
				Severity: b.cfg.Severity[RuleRapidModifications],
			}}
		}
	}
	return nil
}

// unusualAccessTime fires for events whose local hour falls in the
// configured night window.
func (b *Builder) unusualAccessTime(events []Event) []PatternHit {
	var hits []PatternHit
	for _, ev := range events {
		hour := ev.OccurredAt.Local().Hour()
		if nightHour(hour, b.cfg.NightStartHour, b.cfg.NightEndHour) {
			hits = append(hits, PatternHit{
				Rule:     RuleUnusualAccessTime,
				Detail:   fmt.Sprintf("%s event at %02d:00 local", ev.Type, hour),
				At:       ev.OccurredAt,
				ActorID:  ev.ActorID,
				Severity: b.cfg.Severity[RuleUnusualAccessTime],
			})
			// One hit is enough; every further night event repeats it.
			break
		}
	}
	return hits
}

// repeatedFailures fires when at least FailureCount consecutive failed
// events occur with no intervening non-failure event.
func (b *Builder) repeatedFailures(events []Event) []PatternHit {
	streak := 0
	for _, ev := range events {
		if ev.Type == EventFailed {
			streak++
			if streak == b.cfg.FailureCount {
				return []PatternHit{{
					Rule:     RuleRepeatedFailures,
					Detail:   fmt.Sprintf("%d consecutive failed attempts", streak),
					At:       ev.OccurredAt,
					ActorID:  ev.ActorID,
					Severity: b.cfg.Severity[RuleRepeatedFailures],
				}}
			}
		} else {
			streak = 0
		}
	}
	return nil
}

// unauthorizedAccess fires for the first event by an actor missing from
// the externally supplied authorized set. With no registry the rule is
// skipped.
func (b *Builder) unauthorizedAccess(events []Event) []PatternHit {
	if b.actors == nil || len(events) == 0 {
		return nil
	}
	authorized := b.actors(events[0].ArtifactID)
	if authorized == nil {
		return nil
	}
	for _, ev := range events {
		if ev.ActorID != "" && !authorized[ev.ActorID] {
			return []PatternHit{{
				Rule:     RuleUnauthorizedAccess,
				Detail:   fmt.Sprintf("actor %s is not in the authorized set", ev.ActorID),
				At:       ev.OccurredAt,
				ActorID:  ev.ActorID,
				Severity: b.cfg.Severity[RuleUnauthorizedAccess],
			}}
		}
	}
	return nil
}

// missingSeal fires for a modification with no anchoring event inside
// the grace window after it. Only the first unsealed modification is
// reported.
func (b *Builder) missingSeal(events []Event) []PatternHit {
	for i, ev := range events {
		if ev.Type != EventModified {
			continue
		}
		sealed := false
		for _, later := range events[i+1:] {
			if later.OccurredAt.Sub(ev.OccurredAt) > b.cfg.SealGrace {
				break
			}
			if later.Type == EventAnchored {
				sealed = true
				break
			}
		}
		if !sealed {
			return []PatternHit{{
				Rule:     RuleMissingSeal,
				Detail:   fmt.Sprintf("modification not anchored within %s", b.cfg.SealGrace),
				At:       ev.OccurredAt,
				ActorID:  ev.ActorID,
				Severity: b.cfg.Severity[RuleMissingSeal],
			}}
		}
	}
	return nil
}

// impossibleSequence fires for any event timestamped before the
// artifact's creation event.
func (b *Builder) impossibleSequence(events []Event) []PatternHit {
	var created *Event
	for i := range events {
		if events[i].Type == EventCreated {
			created = &events[i]
			break
		}
	}
	if created == nil {
		return nil
	}

	var hits []PatternHit
	for _, ev := range events {
		if ev.OccurredAt.Before(created.OccurredAt) {
			hits = append(hits, PatternHit{
				Rule: RuleImpossibleSequence,
				Detail: fmt.Sprintf("%s event predates creation by %s",
					ev.Type, created.OccurredAt.Sub(ev.OccurredAt).Round(time.Second)),
				At:       ev.OccurredAt,
				ActorID:  ev.ActorID,
				Severity: b.cfg.Severity[RuleImpossibleSequence],
			})
		}
	}
	return hits
}

// nightHour reports whether hour falls in [start,end) wrapping midnight
// when start > end.
func nightHour(hour, start, end int) bool {
	if start <= end {
		return hour >= start && hour < end
	}
	return hour >= start || hour < end
}
