package patterns

import (
	"fmt"
	"sort"
	"time"

	"tamperscan/internal/risk"
	"tamperscan/internal/timeline"
)

// coordinatedTamperDetector fires when one actor modifies several
// distinct artifacts inside a short window. Legitimate workflows touch
// one document at a time; sweeping edits across a portfolio do not.
type coordinatedTamperDetector struct {
	cfg Config
}

func (d *coordinatedTamperDetector) Name() Type { return TypeCoordinatedTamper }

func (d *coordinatedTamperDetector) Detect(c *Corpus) []Pattern {
	byActor := map[string][]timeline.Event{}
	for _, ev := range c.Events {
		if ev.Type == timeline.EventModified && ev.ActorID != "" {
			byActor[ev.ActorID] = append(byActor[ev.ActorID], ev)
		}
	}

	actors := make([]string, 0, len(byActor))
	for a := range byActor {
		actors = append(actors, a)
	}
	sort.Strings(actors)

	var patterns []Pattern
	for _, actor := range actors {
		events := byActor[actor]
		sort.Slice(events, func(i, j int) bool {
			return events[i].OccurredAt.Before(events[j].OccurredAt)
		})

		start := 0
		for end := range events {
			for events[end].OccurredAt.Sub(events[start].OccurredAt) > d.cfg.TamperWindow {
				start++
			}
			window := events[start : end+1]
			if len(window) < d.cfg.TamperMinEvents {
				continue
			}

			artifacts := map[string]struct{}{}
			for _, ev := range window {
				artifacts[ev.ArtifactID] = struct{}{}
			}
			if len(artifacts) < 2 {
				continue
			}

			ids := make([]string, 0, len(artifacts))
			for id := range artifacts {
				ids = append(ids, id)
			}
			patterns = append(patterns, newPattern(
				TypeCoordinatedTamper,
				risk.LevelHigh,
				0.85,
				Evidence{
					ArtifactIDs: ids,
					Actors:      []string{actor},
					Facts: map[string]string{
						"event_count": fmt.Sprintf("%d", len(window)),
						"window":      d.cfg.TamperWindow.String(),
					},
				},
				[]string{actor},
			))
			break // one pattern per actor
		}
	}
	return patterns
}

// rapidSubmissionsDetector checks per-actor inter-arrival statistics on
// submission events. A human cannot originate documents every few
// seconds; a script can.
type rapidSubmissionsDetector struct {
	cfg Config
}

func (d *rapidSubmissionsDetector) Name() Type { return TypeRapidSubmissions }

func (d *rapidSubmissionsDetector) Detect(c *Corpus) []Pattern {
	byActor := map[string][]timeline.Event{}
	for _, ev := range c.Events {
		if ev.Type == timeline.EventSubmitted && ev.ActorID != "" {
			byActor[ev.ActorID] = append(byActor[ev.ActorID], ev)
		}
	}

	actors := make([]string, 0, len(byActor))
	for a := range byActor {
		actors = append(actors, a)
	}
	sort.Strings(actors)

	var patterns []Pattern
	for _, actor := range actors {
		events := byActor[actor]
		if len(events) < d.cfg.RapidMinEvents {
			continue
		}
		sort.Slice(events, func(i, j int) bool {
			return events[i].OccurredAt.Before(events[j].OccurredAt)
		})

		var total, minInterval time.Duration
		for i := 1; i < len(events); i++ {
			interval := events[i].OccurredAt.Sub(events[i-1].OccurredAt)
			total += interval
			if i == 1 || interval < minInterval {
				minInterval = interval
			}
		}
		avg := total / time.Duration(len(events)-1)
		if avg >= d.cfg.RapidMaxAvgInterval {
			continue
		}

		var artifacts []string
		for _, ev := range events {
			artifacts = append(artifacts, ev.ArtifactID)
		}
		patterns = append(patterns, newPattern(
			TypeRapidSubmissions,
			risk.LevelHigh,
			0.80,
			Evidence{
				ArtifactIDs: dedupe(artifacts),
				Actors:      []string{actor},
				Facts: map[string]string{
					"submission_count":         fmt.Sprintf("%d", len(events)),
					"average_interval_seconds": fmt.Sprintf("%.1f", avg.Seconds()),
					"min_interval_seconds":     fmt.Sprintf("%.1f", minInterval.Seconds()),
				},
			},
			[]string{actor},
		))
	}
	return patterns
}
