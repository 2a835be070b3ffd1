// Package analysis composes the scoring, diff, fingerprint, timeline,
// and pattern components behind one facade.
package analysis

import (
	"fmt"
	"log/slog"

	"tamperscan/internal/config"
	"tamperscan/internal/diff"
	"tamperscan/internal/document"
	"tamperscan/internal/fieldtax"
	"tamperscan/internal/fingerprint"
	"tamperscan/internal/patterns"
	"tamperscan/internal/risk"
	"tamperscan/internal/timeline"
)

// Analyzer wires one validated configuration into ready components.
// Safe for concurrent use.
type Analyzer struct {
	tax     *fieldtax.Table
	engine  *diff.Engine
	gen     *fingerprint.Generator
	weights fingerprint.SimilarityWeights
	cache   fingerprint.Cache
	builder *timeline.Builder
	scanner *patterns.Scanner
	logger  *slog.Logger
}

// Option adjusts an Analyzer under construction.
type Option func(*options)

type options struct {
	cache  fingerprint.Cache
	actors timeline.AuthorizedActors
	logger *slog.Logger
}

// WithCache replaces the default in-memory fingerprint cache.
func WithCache(c fingerprint.Cache) Option {
	return func(o *options) { o.cache = c }
}

// WithActorRegistry supplies the authorized-actor lookup; without one
// the unauthorized-access rule stays silent.
func WithActorRegistry(a timeline.AuthorizedActors) Option {
	return func(o *options) { o.actors = a }
}

// WithLogger sets the analyzer's logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// New validates cfg and builds the component graph.
func New(cfg *config.Config, opts ...Option) (*Analyzer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := options{
		cache:  fingerprint.NewMemoryCache(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	tax := fieldtax.Default()
	scorer, err := risk.NewScorer(cfg.Risk)
	if err != nil {
		return nil, fmt.Errorf("risk scorer: %w", err)
	}
	engine, err := diff.NewEngine(cfg.Diff, tax, scorer)
	if err != nil {
		return nil, fmt.Errorf("diff engine: %w", err)
	}
	gen, err := fingerprint.NewGenerator(cfg.Fingerprint)
	if err != nil {
		return nil, fmt.Errorf("fingerprint generator: %w", err)
	}
	builder, err := timeline.NewBuilder(cfg.Timeline.Component(), scorer, o.actors)
	if err != nil {
		return nil, fmt.Errorf("timeline builder: %w", err)
	}
	scanner, err := patterns.NewScanner(cfg.Patterns.Component(), tax)
	if err != nil {
		return nil, fmt.Errorf("pattern scanner: %w", err)
	}

	return &Analyzer{
		tax:     tax,
		engine:  engine,
		gen:     gen,
		weights: cfg.Similarity,
		cache:   o.cache,
		builder: builder,
		scanner: scanner,
		logger:  o.logger,
	}, nil
}

// CompareDocuments diffs two versions of one artifact.
func (a *Analyzer) CompareDocuments(oldSnap, newSnap *document.Snapshot) (*diff.Result, error) {
	result, err := a.engine.Compare(oldSnap, newSnap)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("compared documents",
		"artifact_id", result.ArtifactID,
		"changes", result.TotalChanges,
		"risk_level", result.RiskLevel)
	return result, nil
}

// FingerprintDocument fingerprints one snapshot, consulting the cache
// by (artifact, version). Snapshots without a version id bypass the
// cache.
func (a *Analyzer) FingerprintDocument(snap *document.Snapshot) (*fingerprint.Fingerprint, error) {
	if snap != nil && snap.VersionID != "" {
		if fp, ok := a.cache.Get(snap.ArtifactID, snap.VersionID); ok {
			return fp, nil
		}
	}
	fp, err := a.gen.Fingerprint(snap)
	if err != nil {
		return nil, err
	}
	if fp.VersionID != "" {
		a.cache.Put(fp)
	}
	return fp, nil
}

// CompareFingerprints scores two fingerprints with the configured
// weights.
func (a *Analyzer) CompareFingerprints(x, y *fingerprint.Fingerprint) *fingerprint.Similarity {
	return fingerprint.CompareWeighted(x, y, a.weights)
}

// BuildTimeline reconstructs one artifact's timeline from its events.
func (a *Analyzer) BuildTimeline(artifactID string, events []timeline.Event) *timeline.Timeline {
	return a.builder.Build(artifactID, events)
}

// DetectPatterns runs the cross-corpus detectors under a budget.
func (a *Analyzer) DetectPatterns(corpus *patterns.Corpus, budget patterns.Budget) []patterns.Pattern {
	found := a.scanner.DetectAll(corpus, budget)
	a.logger.Debug("pattern scan complete",
		"artifacts", len(corpus.Snapshots),
		"patterns", len(found))
	return found
}
