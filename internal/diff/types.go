// Package diff compares two snapshots of the same document and scores
// the detected field changes.
package diff

import (
	"errors"

	"tamperscan/internal/fieldtax"
	"tamperscan/internal/risk"
)

// ErrInvalidSnapshot is returned when a caller hands over a snapshot
// that violates the flattened-field-map contract (nested values,
// unsupported types). It is a caller bug, never retried.
var ErrInvalidSnapshot = errors.New("invalid snapshot")

// ChangeKind describes how a field differs between the two snapshots.
type ChangeKind string

const (
	KindAdded    ChangeKind = "added"
	KindRemoved  ChangeKind = "removed"
	KindModified ChangeKind = "modified"
)

// FieldChange is one detected difference.
type FieldChange struct {
	FieldPath string            `json:"field_path"`
	OldValue  any               `json:"old_value"`
	NewValue  any               `json:"new_value"`
	Kind      ChangeKind        `json:"kind"`
	Category  fieldtax.Category `json:"category"`
	// Magnitude is |(new-old)/old| for numeric changes, 1.0 when the old
	// value is zero, and 0 for non-numeric changes.
	Magnitude float64 `json:"magnitude"`
}

// Result is the outcome of one comparison. It is ephemeral; nothing is
// persisted by the engine.
type Result struct {
	ArtifactID         string        `json:"artifact_id"`
	OldVersionID       string        `json:"old_version_id"`
	NewVersionID       string        `json:"new_version_id"`
	Changes            []FieldChange `json:"changes"`
	TotalChanges       int           `json:"total_changes"`
	RiskScore          float64       `json:"risk_score"`
	RiskLevel          risk.Level    `json:"risk_level"`
	Recommendation     string        `json:"recommendation"`
	SuspiciousPatterns []risk.Flag   `json:"suspicious_patterns,omitempty"`
}
