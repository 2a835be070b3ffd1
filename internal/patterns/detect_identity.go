package patterns

import (
	"sort"
	"strconv"
	"strings"

	"tamperscan/internal/risk"
)

// identityKind is one class of reusable identity value.
type identityKind struct {
	name       string
	substrings []string
	severity   risk.Level
	confidence float64
}

// identityKinds maps field-path fragments to identity classes. SSN
// reuse across borrowers is near-certain fraud; shared addresses and
// emails are weaker signals.
var identityKinds = []identityKind{
	{name: "ssn", substrings: []string{"ssn"}, severity: risk.LevelCritical, confidence: 0.95},
	{name: "address", substrings: []string{"address"}, severity: risk.LevelMedium, confidence: 0.60},
	{name: "email", substrings: []string{"email"}, severity: risk.LevelMedium, confidence: 0.65},
}

// identityReuseDetector finds identity values shared across distinct
// borrower identities. The borrower identity is the normalized name
// value; the same person appearing on two documents is not reuse.
type identityReuseDetector struct{}

func (d *identityReuseDetector) Name() Type { return TypeIdentityReuse }

func (d *identityReuseDetector) Detect(c *Corpus) []Pattern {
	type holder struct {
		artifactID string
		borrower   string
	}
	// value key -> holders, per kind
	seen := map[string]map[string][]holder{}
	for _, k := range identityKinds {
		seen[k.name] = map[string][]holder{}
	}

	for _, snap := range c.Snapshots {
		borrower := normalizeIdentity(findFieldValue(snap.Fields, "name"))
		for _, k := range identityKinds {
			for path, v := range snap.Fields {
				if !pathMatches(path, k.substrings) {
					continue
				}
				s, ok := v.(string)
				if !ok || s == "" {
					continue
				}
				key := normalizeIdentity(s)
				seen[k.name][key] = append(seen[k.name][key], holder{snap.ArtifactID, borrower})
			}
		}
	}

	var patterns []Pattern
	for _, k := range identityKinds {
		values := make([]string, 0, len(seen[k.name]))
		for v := range seen[k.name] {
			values = append(values, v)
		}
		sort.Strings(values)

		for _, value := range values {
			holders := seen[k.name][value]
			borrowers := map[string]struct{}{}
			var artifacts []string
			for _, h := range holders {
				artifacts = append(artifacts, h.artifactID)
				if h.borrower != "" {
					borrowers[h.borrower] = struct{}{}
				}
			}
			if len(borrowers) < 2 {
				continue
			}

			names := make([]string, 0, len(borrowers))
			for b := range borrowers {
				names = append(names, b)
			}
			patterns = append(patterns, newPattern(
				TypeIdentityReuse,
				k.severity,
				k.confidence,
				Evidence{
					ArtifactIDs: dedupe(artifacts),
					Facts: map[string]string{
						"identity_kind":  k.name,
						"shared_value":   value,
						"borrower_count": strconv.Itoa(len(borrowers)),
					},
				},
				names,
			))
		}
	}
	return patterns
}

// findFieldValue returns the string value of the first sorted path
// containing sub.
func findFieldValue(fields map[string]any, sub string) string {
	var paths []string
	for p := range fields {
		if strings.Contains(strings.ToLower(p), sub) {
			paths = append(paths, p)
		}
	}
	if len(paths) == 0 {
		return ""
	}
	sort.Strings(paths)
	s, _ := fields[paths[0]].(string)
	return s
}

func pathMatches(path string, subs []string) bool {
	lower := strings.ToLower(path)
	for _, sub := range subs {
		if strings.Contains(lower, sub) {
			return true
		}
	}
	return false
}

// normalizeIdentity lower-cases and strips everything but letters and
// digits, so "123-45-6789" and "123 45 6789" collide.
func normalizeIdentity(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
