package analysis

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"tamperscan/internal/diff"
	"tamperscan/internal/document"
	"tamperscan/internal/patterns"
	"tamperscan/internal/timeline"
)

// Report is the assembled outcome of one corpus scan.
type Report struct {
	ScanID                string             `json:"scan_id"`
	GeneratedAt           time.Time          `json:"generated_at"`
	ArtifactCount         int                `json:"artifact_count"`
	Artifacts             []ArtifactSummary  `json:"artifacts"`
	Patterns              []patterns.Pattern `json:"patterns"`
	ComputedOnPartialData bool               `json:"computed_on_partial_data"`
}

// ArtifactSummary is the per-artifact slice of a scan report.
type ArtifactSummary struct {
	ArtifactID   string `json:"artifact_id"`
	VersionCount int    `json:"version_count"`
	// LatestDiff compares the two most recent versions; nil when the
	// artifact has fewer than two.
	LatestDiff *diff.Result       `json:"latest_diff,omitempty"`
	Timeline   *timeline.Timeline `json:"timeline,omitempty"`
}

// Scan fingerprints, diffs, and timelines a corpus, then runs the
// cross-corpus detectors, and bundles everything into one report.
func (a *Analyzer) Scan(snapshots []*document.Snapshot, events []timeline.Event, budget patterns.Budget) (*Report, error) {
	byArtifact := map[string][]*document.Snapshot{}
	for _, snap := range snapshots {
		byArtifact[snap.ArtifactID] = append(byArtifact[snap.ArtifactID], snap)
	}
	eventArtifacts := map[string]bool{}
	for _, ev := range events {
		eventArtifacts[ev.ArtifactID] = true
	}

	ids := make([]string, 0, len(byArtifact))
	for id := range byArtifact {
		ids = append(ids, id)
	}
	for id := range eventArtifacts {
		if _, ok := byArtifact[id]; !ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	corpus := &patterns.Corpus{Events: events}
	report := &Report{
		ScanID:        uuid.NewString(),
		GeneratedAt:   time.Now().UTC(),
		ArtifactCount: len(ids),
	}

	for _, id := range ids {
		versions := byArtifact[id]
		sort.Slice(versions, func(i, j int) bool {
			if !versions[i].CapturedAt.Equal(versions[j].CapturedAt) {
				return versions[i].CapturedAt.Before(versions[j].CapturedAt)
			}
			return versions[i].VersionID < versions[j].VersionID
		})

		summary := ArtifactSummary{ArtifactID: id, VersionCount: len(versions)}

		if len(versions) > 0 {
			latest := versions[len(versions)-1]
			corpus.Snapshots = append(corpus.Snapshots, latest)
			fp, err := a.FingerprintDocument(latest)
			if err != nil {
				a.logger.Warn("skipping fingerprint", "artifact_id", id, "error", err)
			} else {
				corpus.Fingerprints = append(corpus.Fingerprints, fp)
			}
		}
		if len(versions) >= 2 {
			result, err := a.CompareDocuments(versions[len(versions)-2], versions[len(versions)-1])
			if err != nil {
				return nil, err
			}
			summary.LatestDiff = result
		}
		if eventArtifacts[id] {
			summary.Timeline = a.BuildTimeline(id, events)
		}

		report.Artifacts = append(report.Artifacts, summary)
	}

	report.Patterns = a.DetectPatterns(corpus, budget)
	for _, p := range report.Patterns {
		if p.ComputedOnPartialData {
			report.ComputedOnPartialData = true
			break
		}
	}
	return report, nil
}
