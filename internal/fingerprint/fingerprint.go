// Package fingerprint computes multi-layer content fingerprints for
// document snapshots and compares them for similarity.
//
// Each layer hashes a canonicalized (sorted) representation, so the
// source map's key order never affects the output:
//   - structural: the sorted field-path list (schema/layout)
//   - content: sorted path=value pairs (exact values)
//   - style: naming-convention signals (casing, optional metadata keys)
//   - semantic: the sorted set of top-N extracted text tokens
package fingerprint

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/crypto/blake2b"

	"tamperscan/internal/document"
)

// ErrEmptyDocument is returned when a snapshot carries no fields.
var ErrEmptyDocument = errors.New("empty document")

// Fingerprint is the four-layer content summary of one snapshot.
// Cacheable by (ArtifactID, VersionID).
type Fingerprint struct {
	ArtifactID     string `json:"artifact_id"`
	VersionID      string `json:"version_id"`
	StructuralHash string `json:"structural_hash"`
	ContentHash    string `json:"content_hash"`
	StyleHash      string `json:"style_hash"`
	SemanticHash   string `json:"semantic_hash"`

	// SemanticTokens is the sorted token set behind SemanticHash, kept
	// so two fingerprints can be compared by token overlap without
	// re-reading the snapshots.
	SemanticTokens []string `json:"semantic_tokens"`
}

// Config holds the generator settings.
type Config struct {
	// TopN is how many tokens the semantic layer keeps.
	TopN int `toml:"top_n" json:"top_n"`

	// MinTokenLength filters out short tokens before counting.
	MinTokenLength int `toml:"min_token_length" json:"min_token_length"`

	// StopWords are excluded from the semantic layer. Empty means use
	// the built-in list.
	StopWords []string `toml:"stop_words" json:"stop_words"`

	// MetadataKeys are the optional field paths whose presence feeds the
	// style layer.
	MetadataKeys []string `toml:"metadata_keys" json:"metadata_keys"`
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		TopN:           20,
		MinTokenLength: 3,
		MetadataKeys: []string{
			"metadata.author",
			"metadata.created_by",
			"metadata.template_id",
			"metadata.source_system",
		},
	}
}

// Validate checks the config ranges.
func (c Config) Validate() error {
	if c.TopN <= 0 {
		return fmt.Errorf("top_n must be positive, got %d", c.TopN)
	}
	if c.MinTokenLength <= 0 {
		return fmt.Errorf("min_token_length must be positive, got %d", c.MinTokenLength)
	}
	return nil
}

// Generator computes fingerprints. Safe for concurrent use.
type Generator struct {
	cfg       Config
	stopWords map[string]struct{}
}

// NewGenerator validates cfg and returns a generator.
func NewGenerator(cfg Config) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	words := cfg.StopWords
	if len(words) == 0 {
		words = defaultStopWords
	}
	stop := make(map[string]struct{}, len(words))
	for _, w := range words {
		stop[strings.ToLower(w)] = struct{}{}
	}
	return &Generator{cfg: cfg, stopWords: stop}, nil
}

// Fingerprint computes the four layers for a snapshot.
func (g *Generator) Fingerprint(snap *document.Snapshot) (*Fingerprint, error) {
	if snap == nil || len(snap.Fields) == 0 {
		return nil, ErrEmptyDocument
	}

	paths := snap.FieldPaths()
	tokens := g.semanticTokens(snap, paths)

	return &Fingerprint{
		ArtifactID:     snap.ArtifactID,
		VersionID:      snap.VersionID,
		StructuralHash: layerHash("structural", paths),
		ContentHash:    layerHash("content", contentPairs(snap, paths)),
		StyleHash:      layerHash("style", g.styleSignals(snap, paths)),
		SemanticHash:   layerHash("semantic", tokens),
		SemanticTokens: tokens,
	}, nil
}

// layerHash hashes the canonical lines for one layer. The layer name is
// mixed in so identical line sets in different layers cannot collide.
func layerHash(layer string, lines []string) string {
	h, _ := blake2b.New256(nil)
	h.Write([]byte(layer))
	h.Write([]byte{0})
	for _, line := range lines {
		h.Write([]byte(line))
		h.Write([]byte{'\n'})
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}

// contentPairs renders sorted path=value lines. Values go through the
// same canonical rendering regardless of Go type, so 42 and 42.0 hash
// identically.
func contentPairs(snap *document.Snapshot, paths []string) []string {
	pairs := make([]string, 0, len(paths))
	for _, p := range paths {
		pairs = append(pairs, p+"="+canonicalValue(snap.Fields[p]))
	}
	return pairs
}

func canonicalValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "~"
	case string:
		return "s:" + val
	case bool:
		return fmt.Sprintf("b:%t", val)
	case float64:
		return fmt.Sprintf("n:%g", val)
	case float32:
		return fmt.Sprintf("n:%g", float64(val))
	case int:
		return fmt.Sprintf("n:%g", float64(val))
	case int32:
		return fmt.Sprintf("n:%g", float64(val))
	case int64:
		return fmt.Sprintf("n:%g", float64(val))
	case []any:
		elems := make([]string, len(val))
		for i, e := range val {
			elems[i] = canonicalValue(e)
		}
		return "[" + strings.Join(elems, ",") + "]"
	default:
		return fmt.Sprintf("?:%v", val)
	}
}

// styleSignals derives naming-convention lines: a histogram of casing
// classes over the final path segments plus presence markers for the
// configured optional metadata keys. Approximate on purpose; two
// documents produced by the same pipeline should agree here even when
// their values differ.
func (g *Generator) styleSignals(snap *document.Snapshot, paths []string) []string {
	counts := map[string]int{}
	for _, p := range paths {
		seg := p
		if i := strings.LastIndex(p, "."); i >= 0 {
			seg = p[i+1:]
		}
		counts[casingClass(seg)]++
	}

	classes := make([]string, 0, len(counts))
	for c := range counts {
		classes = append(classes, c)
	}
	sort.Strings(classes)

	signals := make([]string, 0, len(classes)+len(g.cfg.MetadataKeys))
	for _, c := range classes {
		signals = append(signals, fmt.Sprintf("case:%s=%d", c, counts[c]))
	}
	for _, key := range g.cfg.MetadataKeys {
		_, present := snap.Fields[key]
		signals = append(signals, fmt.Sprintf("meta:%s=%t", key, present))
	}
	return signals
}

// casingClass buckets a path segment by naming convention.
func casingClass(s string) string {
	hasUpper, hasLower, hasUnderscore, hasDigit := false, false, false, false
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r == '_':
			hasUnderscore = true
		case r >= '0' && r <= '9':
			hasDigit = true
		}
	}
	switch {
	case hasUnderscore && !hasUpper:
		return "snake"
	case hasUpper && hasLower:
		return "camel"
	case hasUpper && !hasLower:
		return "upper"
	case hasLower:
		return "lower"
	case hasDigit:
		return "numeric"
	default:
		return "other"
	}
}
