package patterns

import (
	"sort"
	"strconv"

	"tamperscan/internal/risk"
)

// templateFraudDetector groups fingerprints by structural hash. A large
// group of documents sharing one layout but carrying divergent content
// points at a fraud mill stamping filings from a template. The
// allow-list suppresses shapes that legitimately recur, such as a
// standard disclosure form.
type templateFraudDetector struct {
	cfg Config
}

func (d *templateFraudDetector) Name() Type { return TypeTemplateFraud }

func (d *templateFraudDetector) Detect(c *Corpus) []Pattern {
	allowed := make(map[string]struct{}, len(d.cfg.AllowedTemplates))
	for _, h := range d.cfg.AllowedTemplates {
		allowed[h] = struct{}{}
	}

	type group struct {
		artifacts []string
		contents  map[string]struct{}
	}
	groups := map[string]*group{}
	for _, fp := range c.Fingerprints {
		if _, ok := allowed[fp.StructuralHash]; ok {
			continue
		}
		g := groups[fp.StructuralHash]
		if g == nil {
			g = &group{contents: map[string]struct{}{}}
			groups[fp.StructuralHash] = g
		}
		g.artifacts = append(g.artifacts, fp.ArtifactID)
		g.contents[fp.ContentHash] = struct{}{}
	}

	hashes := make([]string, 0, len(groups))
	for h := range groups {
		hashes = append(hashes, h)
	}
	sort.Strings(hashes)

	var patterns []Pattern
	for _, hash := range hashes {
		g := groups[hash]
		members := dedupe(g.artifacts)
		if len(members) < d.cfg.TemplateMinGroup || len(g.contents) < 2 {
			continue
		}
		patterns = append(patterns, newPattern(
			TypeTemplateFraud,
			risk.LevelMedium,
			0.60,
			Evidence{
				ArtifactIDs: members,
				Facts: map[string]string{
					"structural_hash":        hash,
					"group_size":             strconv.Itoa(len(members)),
					"distinct_content_count": strconv.Itoa(len(g.contents)),
				},
			},
			members,
		))
	}
	return patterns
}
