// Package timeline reconstructs the ordered lifecycle of one artifact
// from externally supplied events and flags suspicious sequences.
package timeline

import (
	"time"

	"tamperscan/internal/risk"
)

// EventType categorizes a lifecycle occurrence.
type EventType string

const (
	EventCreated   EventType = "created"
	EventModified  EventType = "modified"
	EventAccessed  EventType = "accessed"
	EventSubmitted EventType = "submitted"
	// EventAnchored records an external sealing/anchoring of the
	// artifact's state, produced by a collaborator outside the core.
	EventAnchored EventType = "anchored"
	EventFailed   EventType = "failed"
)

// Event is one lifecycle occurrence. Events are append-only and arrive
// from an external event log reader.
type Event struct {
	ArtifactID string    `json:"artifact_id"`
	Type       EventType `json:"event_type"`
	ActorID    string    `json:"actor_id"`
	OccurredAt time.Time `json:"occurred_at"`
	// SequenceNo breaks ties between events with equal timestamps. The
	// (OccurredAt, SequenceNo) order is authoritative and never
	// re-derived.
	SequenceNo int `json:"sequence_no"`
	// Details carries optional per-event facts such as the modified
	// field path and old/new values.
	Details map[string]string `json:"details,omitempty"`
}

// RuleName identifies a suspicious-pattern rule.
type RuleName string

const (
	RuleRapidModifications RuleName = "rapid_successive_modifications"
	RuleUnusualAccessTime  RuleName = "unusual_access_time"
	RuleRepeatedFailures   RuleName = "repeated_failed_attempts"
	RuleUnauthorizedAccess RuleName = "unauthorized_access"
	RuleMissingSeal        RuleName = "missing_seal"
	RuleImpossibleSequence RuleName = "impossible_sequence"
)

// PatternHit is one fired rule with its supporting facts.
type PatternHit struct {
	Rule     RuleName  `json:"rule"`
	Detail   string    `json:"detail"`
	At       time.Time `json:"at"`
	ActorID  string    `json:"actor_id,omitempty"`
	Severity float64   `json:"severity"`
}

// Assessment is the timeline-level risk verdict.
type Assessment struct {
	Score                 float64     `json:"score"`
	Level                 risk.Level  `json:"level"`
	Recommendation        string      `json:"recommendation"`
	DominantRule          RuleName    `json:"dominant_rule,omitempty"`
	RequiresInvestigation bool        `json:"requires_investigation"`
	Flags                 []risk.Flag `json:"flags,omitempty"`
}

// Timeline is the reconstructed history of one artifact.
type Timeline struct {
	ArtifactID string       `json:"artifact_id"`
	Events     []Event      `json:"events"`
	Patterns   []PatternHit `json:"suspicious_patterns,omitempty"`
	Risk       Assessment   `json:"risk_assessment"`
}
