package fingerprint

import (
	"sort"
	"strings"
	"unicode"

	"tamperscan/internal/document"
)

// defaultStopWords is the built-in English stop-word list for the
// semantic layer. Deliberately small; the goal is stable token sets,
// not language understanding.
var defaultStopWords = []string{
	"a", "an", "and", "are", "as", "at", "be", "but", "by", "for",
	"from", "has", "have", "in", "is", "it", "its", "of", "on", "or",
	"that", "the", "this", "to", "was", "were", "will", "with",
}

// semanticTokens extracts the top-N tokens from the snapshot's textual
// fields: case-folded, stop-word-filtered, ranked by frequency with
// lexicographic tie-break, returned as a sorted set.
func (g *Generator) semanticTokens(snap *document.Snapshot, paths []string) []string {
	freq := map[string]int{}
	for _, p := range paths {
		s, ok := snap.Fields[p].(string)
		if !ok {
			continue
		}
		for _, tok := range tokenize(s) {
			if len(tok) < g.cfg.MinTokenLength {
				continue
			}
			if _, stop := g.stopWords[tok]; stop {
				continue
			}
			freq[tok]++
		}
	}

	ranked := make([]string, 0, len(freq))
	for tok := range freq {
		ranked = append(ranked, tok)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if freq[ranked[i]] != freq[ranked[j]] {
			return freq[ranked[i]] > freq[ranked[j]]
		}
		return ranked[i] < ranked[j]
	})

	if len(ranked) > g.cfg.TopN {
		ranked = ranked[:g.cfg.TopN]
	}
	sort.Strings(ranked)
	return ranked
}

// tokenize splits text on non-letter/digit runes and lower-cases the
// pieces.
func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// jaccard returns the Jaccard similarity of two sorted token sets.
// Two empty sets are identical, so the similarity is 1.
func jaccard(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	i, j, inter := 0, 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			inter++
			i++
			j++
		case a[i] < b[j]:
			i++
		default:
			j++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}
