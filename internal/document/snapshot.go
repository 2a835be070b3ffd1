// Package document defines the structured records the analysis core
// operates on. Snapshots arrive from an external provider already
// flattened into dotted-path field maps; the core never parses raw
// documents itself.
package document

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Snapshot is a point-in-time flattened representation of a document.
// Field keys are dotted paths ("borrower.income.annual"), values are
// scalars (string, bool, float64, int, int64) or flat arrays of scalars.
// Snapshots are read-only to the core.
type Snapshot struct {
	ArtifactID string         `json:"artifact_id"`
	VersionID  string         `json:"version_id"`
	CapturedAt time.Time      `json:"captured_at"`
	Fields     map[string]any `json:"fields"`
}

// FieldPaths returns the snapshot's field paths in sorted order.
func (s *Snapshot) FieldPaths() []string {
	paths := make([]string, 0, len(s.Fields))
	for p := range s.Fields {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// IsScalar reports whether v is one of the scalar kinds a flattened
// field may hold.
func IsScalar(v any) bool {
	switch v.(type) {
	case nil, string, bool, float64, float32, int, int32, int64:
		return true
	}
	return false
}

// ValidateValue checks that v is a supported field value: a scalar or a
// flat array of scalars. Nested maps and arrays of arrays indicate the
// provider handed over an unflattened document.
func ValidateValue(path string, v any) error {
	if IsScalar(v) {
		return nil
	}
	if arr, ok := v.([]any); ok {
		for i, elem := range arr {
			if !IsScalar(elem) {
				return fmt.Errorf("field %s[%d]: nested value of type %T", path, i, elem)
			}
		}
		return nil
	}
	return fmt.Errorf("field %s: unsupported value type %T", path, v)
}

// ParseNumber parses plain and currency-formatted numbers ("650000",
// "$650,000.00", "-3.5%").
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	cleaned := strings.TrimSuffix(s, "%")
	cleaned = strings.ReplaceAll(cleaned, "$", "")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return 0, false
	}
	n, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
