package analysis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tamperscan/internal/config"
	"tamperscan/internal/document"
	"tamperscan/internal/fingerprint"
	"tamperscan/internal/patterns"
	"tamperscan/internal/risk"
	"tamperscan/internal/timeline"
)

var captured = time.Date(2026, 8, 10, 9, 0, 0, 0, time.UTC)

func newAnalyzer(t *testing.T, opts ...Option) *Analyzer {
	t.Helper()
	a, err := New(config.Default(), opts...)
	require.NoError(t, err)
	return a
}

func snapshot(artifact, version string, fields map[string]any) *document.Snapshot {
	return &document.Snapshot{
		ArtifactID: artifact,
		VersionID:  version,
		CapturedAt: captured,
		Fields:     fields,
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Logging.Level = "verbose"
	_, err := New(cfg)
	require.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestCompareDocuments(t *testing.T) {
	a := newAnalyzer(t)

	oldSnap := snapshot("doc-001", "v1", map[string]any{"loan.amount": 450000.0})
	newSnap := snapshot("doc-001", "v2", map[string]any{"loan.amount": 650000.0})

	result, err := a.CompareDocuments(oldSnap, newSnap)
	require.NoError(t, err)
	assert.Equal(t, 1, result.TotalChanges)
	assert.Equal(t, risk.LevelCritical, result.RiskLevel)
}

func TestFingerprintCache(t *testing.T) {
	cache := fingerprint.NewMemoryCache()
	a := newAnalyzer(t, WithCache(cache))

	snap := snapshot("doc-001", "v1", map[string]any{"borrower.name": "Jane Smith"})

	first, err := a.FingerprintDocument(snap)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.Len())

	second, err := a.FingerprintDocument(snap)
	require.NoError(t, err)
	assert.Same(t, first, second, "second call must hit the cache")

	cache.Invalidate("doc-001", "v1")
	assert.Equal(t, 0, cache.Len())
}

func TestFingerprintWithoutVersionBypassesCache(t *testing.T) {
	cache := fingerprint.NewMemoryCache()
	a := newAnalyzer(t, WithCache(cache))

	snap := snapshot("doc-001", "", map[string]any{"borrower.name": "Jane Smith"})
	_, err := a.FingerprintDocument(snap)
	require.NoError(t, err)
	assert.Equal(t, 0, cache.Len())
}

func TestCompareFingerprints(t *testing.T) {
	a := newAnalyzer(t)

	snap := snapshot("doc-001", "v1", map[string]any{"borrower.name": "Jane Smith"})
	fp, err := a.FingerprintDocument(snap)
	require.NoError(t, err)

	sim := a.CompareFingerprints(fp, fp)
	assert.Equal(t, 1.0, sim.Score)
	assert.Equal(t, fingerprint.ClassExact, sim.Classification)
}

func TestBuildTimelineUsesRegistry(t *testing.T) {
	registry := func(artifactID string) map[string]bool {
		return map[string]bool{"alice": true}
	}
	a := newAnalyzer(t, WithActorRegistry(registry))

	events := []timeline.Event{
		{ArtifactID: "doc-001", Type: timeline.EventCreated, ActorID: "alice", OccurredAt: captured, SequenceNo: 1},
		{ArtifactID: "doc-001", Type: timeline.EventAccessed, ActorID: "mallory", OccurredAt: captured.Add(time.Hour), SequenceNo: 2},
	}
	tl := a.BuildTimeline("doc-001", events)
	require.Len(t, tl.Events, 2)

	var rules []timeline.RuleName
	for _, hit := range tl.Patterns {
		rules = append(rules, hit.Rule)
	}
	assert.Contains(t, rules, timeline.RuleUnauthorizedAccess)
}

func TestScanAssemblesReport(t *testing.T) {
	a := newAnalyzer(t)

	snapshots := []*document.Snapshot{
		snapshot("doc-001", "v1", map[string]any{"loan.amount": 450000.0, "borrower.signature": "sig-xyz"}),
		{
			ArtifactID: "doc-001", VersionID: "v2",
			CapturedAt: captured.Add(time.Hour),
			Fields:     map[string]any{"loan.amount": 650000.0, "borrower.signature": "sig-xyz"},
		},
		snapshot("doc-002", "v1", map[string]any{"loan.amount": 90000.0, "borrower.signature": "sig-xyz"}),
	}
	events := []timeline.Event{
		{ArtifactID: "doc-001", Type: timeline.EventCreated, ActorID: "alice", OccurredAt: captured, SequenceNo: 1},
		{ArtifactID: "doc-001", Type: timeline.EventModified, ActorID: "bob", OccurredAt: captured.Add(time.Hour), SequenceNo: 2},
	}

	report, err := a.Scan(snapshots, events, patterns.Budget{})
	require.NoError(t, err)

	assert.NotEmpty(t, report.ScanID)
	assert.Equal(t, 2, report.ArtifactCount)
	require.Len(t, report.Artifacts, 2)

	first := report.Artifacts[0]
	assert.Equal(t, "doc-001", first.ArtifactID)
	assert.Equal(t, 2, first.VersionCount)
	require.NotNil(t, first.LatestDiff)
	assert.Equal(t, risk.LevelCritical, first.LatestDiff.RiskLevel)
	require.NotNil(t, first.Timeline)

	second := report.Artifacts[1]
	assert.Equal(t, "doc-002", second.ArtifactID)
	assert.Nil(t, second.LatestDiff)
	assert.Nil(t, second.Timeline)

	// Both artifacts share a signature.
	var types []patterns.Type
	for _, p := range report.Patterns {
		types = append(types, p.Type)
	}
	assert.Contains(t, types, patterns.TypeDuplicateSignature)
	assert.False(t, report.ComputedOnPartialData)
}

func TestScanBudgetMarksPartial(t *testing.T) {
	a := newAnalyzer(t)

	snapshots := []*document.Snapshot{
		snapshot("doc-a", "v1", map[string]any{"borrower.signature": "sig-xyz"}),
		snapshot("doc-b", "v1", map[string]any{"borrower.signature": "sig-xyz"}),
		snapshot("doc-c", "v1", map[string]any{"borrower.signature": "sig-xyz"}),
	}

	report, err := a.Scan(snapshots, nil, patterns.Budget{MaxArtifacts: 2})
	require.NoError(t, err)
	require.NotEmpty(t, report.Patterns)
	assert.True(t, report.ComputedOnPartialData)
}
