package fingerprint

import "fmt"

// Classification labels a pairwise fingerprint comparison.
type Classification string

const (
	// ClassExact: the content layers agree, so the documents are
	// byte-for-byte the same after canonicalization.
	ClassExact Classification = "exact"
	// ClassDerivative: same shape, different values. Typical of a
	// document edited from another, or a filled-in copy.
	ClassDerivative Classification = "derivative"
	// ClassTemplateMatch: high overall similarity with strong semantic
	// overlap, the signature of documents stamped from one template.
	ClassTemplateMatch Classification = "template-match"
	// ClassRelated: some similarity, no specific signature.
	ClassRelated Classification = "related"
	// ClassUnrelated: the documents share almost nothing.
	ClassUnrelated Classification = "unrelated"
)

// Similarity is the outcome of comparing two fingerprints.
type Similarity struct {
	StructuralMatch bool `json:"structural_match"`
	ContentMatch    bool `json:"content_match"`
	StyleMatch      bool `json:"style_match"`
	// SemanticOverlap is the Jaccard similarity of the token sets, in
	// [0,1]. Unlike the other layers it is not an exact-equality check:
	// near-duplicate text must not score 0.
	SemanticOverlap float64        `json:"semantic_overlap"`
	Score           float64        `json:"score"`
	Classification  Classification `json:"classification"`
}

// SimilarityWeights are the per-layer contributions to the weighted
// score. They should sum to 1.
type SimilarityWeights struct {
	Structural float64 `toml:"structural" json:"structural"`
	Content    float64 `toml:"content" json:"content"`
	Style      float64 `toml:"style" json:"style"`
	Semantic   float64 `toml:"semantic" json:"semantic"`
}

// DefaultSimilarityWeights returns the documented default weighting.
func DefaultSimilarityWeights() SimilarityWeights {
	return SimilarityWeights{Structural: 0.3, Content: 0.3, Style: 0.1, Semantic: 0.3}
}

// Validate checks that every weight is non-negative and that at least
// one is positive.
func (w SimilarityWeights) Validate() error {
	for _, v := range []float64{w.Structural, w.Content, w.Style, w.Semantic} {
		if v < 0 {
			return fmt.Errorf("similarity weight %v must be non-negative", v)
		}
	}
	if w.Structural+w.Content+w.Style+w.Semantic <= 0 {
		return fmt.Errorf("similarity weights must not all be zero")
	}
	return nil
}

// Classification thresholds.
const (
	derivativeThreshold   = 0.85
	templateThreshold     = 0.70
	templateSemanticFloor = 0.50
	unrelatedThreshold    = 0.40
)

// Compare scores two fingerprints with the default weights.
// Comparing a fingerprint against itself always yields score 1 and an
// exact classification.
func Compare(a, b *Fingerprint) *Similarity {
	return CompareWeighted(a, b, DefaultSimilarityWeights())
}

// CompareWeighted scores two fingerprints:
// score = w_structural*structural + w_content*content + w_style*style +
// w_semantic*jaccard(tokens).
func CompareWeighted(a, b *Fingerprint, w SimilarityWeights) *Similarity {
	s := &Similarity{
		StructuralMatch: a.StructuralHash == b.StructuralHash,
		ContentMatch:    a.ContentHash == b.ContentHash,
		StyleMatch:      a.StyleHash == b.StyleHash,
		SemanticOverlap: jaccard(a.SemanticTokens, b.SemanticTokens),
	}

	score := 0.0
	if s.StructuralMatch {
		score += w.Structural
	}
	if s.ContentMatch {
		score += w.Content
	}
	if s.StyleMatch {
		score += w.Style
	}
	score += w.Semantic * s.SemanticOverlap
	s.Score = score

	s.Classification = classify(s, w)
	return s
}

func classify(s *Similarity, w SimilarityWeights) Classification {
	// For the derivative check the content layer is zero by definition,
	// so the remaining layers are renormalized; otherwise the threshold
	// could never be reached.
	derivativeScore := 0.0
	if rest := w.Structural + w.Style + w.Semantic; rest > 0 {
		base := 0.0
		if s.StructuralMatch {
			base += w.Structural
		}
		if s.StyleMatch {
			base += w.Style
		}
		base += w.Semantic * s.SemanticOverlap
		derivativeScore = base / rest
	}

	switch {
	case s.ContentMatch && s.StructuralMatch:
		return ClassExact
	case s.StructuralMatch && !s.ContentMatch && derivativeScore >= derivativeThreshold:
		return ClassDerivative
	case s.Score >= templateThreshold && s.SemanticOverlap >= templateSemanticFloor:
		return ClassTemplateMatch
	case s.Score < unrelatedThreshold:
		return ClassUnrelated
	default:
		return ClassRelated
	}
}
