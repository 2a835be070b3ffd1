package patterns

import (
	"fmt"
	"sort"

	"golang.org/x/crypto/blake2b"

	"tamperscan/internal/fieldtax"
	"tamperscan/internal/risk"
)

// duplicateSignatureDetector groups snapshots by the hash of their
// signature-field content. Two documents sharing identical signature
// bytes is the strongest single forgery signal the corpus can show.
type duplicateSignatureDetector struct {
	tax *fieldtax.Table
}

func (d *duplicateSignatureDetector) Name() Type { return TypeDuplicateSignature }

func (d *duplicateSignatureDetector) Detect(c *Corpus) []Pattern {
	groups := map[string][]string{}

	for _, snap := range c.Snapshots {
		values := fieldValues(snap, d.tax, fieldtax.CategorySignature)
		if len(values) == 0 {
			continue
		}

		paths := make([]string, 0, len(values))
		for p := range values {
			paths = append(paths, p)
		}
		sort.Strings(paths)

		h, _ := blake2b.New256(nil)
		for _, p := range paths {
			fmt.Fprintf(h, "%s=%v\n", p, values[p])
		}
		key := fmt.Sprintf("%x", h.Sum(nil))
		groups[key] = append(groups[key], snap.ArtifactID)
	}

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var patterns []Pattern
	for _, key := range keys {
		members := dedupe(groups[key])
		if len(members) < 2 {
			continue
		}
		patterns = append(patterns, newPattern(
			TypeDuplicateSignature,
			risk.LevelCritical,
			0.95,
			Evidence{
				ArtifactIDs: members,
				Facts:       map[string]string{"signature_hash": key},
			},
			members,
		))
	}
	return patterns
}

// dedupe returns the sorted unique strings.
func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	var out []string
	for _, s := range in {
		if _, ok := seen[s]; !ok {
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}
