// Package store persists document snapshots and artifact events in
// SQLite.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"tamperscan/internal/document"
	"tamperscan/internal/timeline"
)

// ErrNotFound is returned when a requested snapshot does not exist.
var ErrNotFound = errors.New("not found")

// Schema for the tamperscan analysis store.
const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
    artifact_id     TEXT NOT NULL,
    version_id      TEXT NOT NULL,
    captured_at_ns  INTEGER NOT NULL,
    fields          TEXT NOT NULL,
    PRIMARY KEY (artifact_id, version_id)
);

CREATE INDEX IF NOT EXISTS idx_snapshots_artifact ON snapshots(artifact_id, captured_at_ns);

CREATE TABLE IF NOT EXISTS events (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    artifact_id     TEXT NOT NULL,
    type            TEXT NOT NULL,
    actor_id        TEXT,
    occurred_at_ns  INTEGER NOT NULL,
    sequence_no     INTEGER NOT NULL,
    details         TEXT
);

CREATE INDEX IF NOT EXISTS idx_events_artifact ON events(artifact_id, occurred_at_ns, sequence_no);
`

// Store is the SQLite-backed snapshot and event store.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path and applies the schema.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// PutSnapshot upserts one snapshot version.
func (s *Store) PutSnapshot(snap *document.Snapshot) error {
	fields, err := json.Marshal(snap.Fields)
	if err != nil {
		return fmt.Errorf("encode fields: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO snapshots (artifact_id, version_id, captured_at_ns, fields)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (artifact_id, version_id) DO UPDATE SET
			captured_at_ns = excluded.captured_at_ns,
			fields = excluded.fields`,
		snap.ArtifactID, snap.VersionID, snap.CapturedAt.UnixNano(), string(fields),
	)
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

// Snapshot loads one snapshot version.
func (s *Store) Snapshot(artifactID, versionID string) (*document.Snapshot, error) {
	row := s.db.QueryRow(`
		SELECT captured_at_ns, fields FROM snapshots
		WHERE artifact_id = ? AND version_id = ?`,
		artifactID, versionID,
	)
	var capturedNs int64
	var fields string
	if err := row.Scan(&capturedNs, &fields); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("snapshot %s/%s: %w", artifactID, versionID, ErrNotFound)
		}
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	return decodeSnapshot(artifactID, versionID, capturedNs, fields)
}

// Snapshots returns every version of one artifact ordered by capture
// time.
func (s *Store) Snapshots(artifactID string) ([]*document.Snapshot, error) {
	rows, err := s.db.Query(`
		SELECT version_id, captured_at_ns, fields FROM snapshots
		WHERE artifact_id = ?
		ORDER BY captured_at_ns, version_id`,
		artifactID,
	)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	var out []*document.Snapshot
	for rows.Next() {
		var versionID, fields string
		var capturedNs int64
		if err := rows.Scan(&versionID, &capturedNs, &fields); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		snap, err := decodeSnapshot(artifactID, versionID, capturedNs, fields)
		if err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

// AllSnapshots returns every stored snapshot ordered by artifact and
// capture time.
func (s *Store) AllSnapshots() ([]*document.Snapshot, error) {
	rows, err := s.db.Query(`
		SELECT artifact_id, version_id, captured_at_ns, fields FROM snapshots
		ORDER BY artifact_id, captured_at_ns, version_id`)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	var out []*document.Snapshot
	for rows.Next() {
		var artifactID, versionID, fields string
		var capturedNs int64
		if err := rows.Scan(&artifactID, &versionID, &capturedNs, &fields); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		snap, err := decodeSnapshot(artifactID, versionID, capturedNs, fields)
		if err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

func decodeSnapshot(artifactID, versionID string, capturedNs int64, fields string) (*document.Snapshot, error) {
	snap := &document.Snapshot{
		ArtifactID: artifactID,
		VersionID:  versionID,
		CapturedAt: time.Unix(0, capturedNs).UTC(),
	}
	if err := json.Unmarshal([]byte(fields), &snap.Fields); err != nil {
		return nil, fmt.Errorf("decode fields for %s/%s: %w", artifactID, versionID, err)
	}
	return snap, nil
}

// ArtifactIDs returns the distinct artifact ids across snapshots and
// events, sorted.
func (s *Store) ArtifactIDs() ([]string, error) {
	rows, err := s.db.Query(`
		SELECT artifact_id FROM snapshots
		UNION
		SELECT artifact_id FROM events
		ORDER BY artifact_id`)
	if err != nil {
		return nil, fmt.Errorf("query artifacts: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan artifact id: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// AppendEvent stores one artifact event.
func (s *Store) AppendEvent(ev timeline.Event) error {
	var details any
	if len(ev.Details) > 0 {
		enc, err := json.Marshal(ev.Details)
		if err != nil {
			return fmt.Errorf("encode details: %w", err)
		}
		details = string(enc)
	}
	_, err := s.db.Exec(`
		INSERT INTO events (artifact_id, type, actor_id, occurred_at_ns, sequence_no, details)
		VALUES (?, ?, ?, ?, ?, ?)`,
		ev.ArtifactID, string(ev.Type), ev.ActorID, ev.OccurredAt.UnixNano(), ev.SequenceNo, details,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// Events returns one artifact's events in storage order.
func (s *Store) Events(artifactID string) ([]timeline.Event, error) {
	return s.queryEvents(`
		SELECT artifact_id, type, actor_id, occurred_at_ns, sequence_no, details FROM events
		WHERE artifact_id = ?
		ORDER BY occurred_at_ns, sequence_no`, artifactID)
}

// AllEvents returns every stored event.
func (s *Store) AllEvents() ([]timeline.Event, error) {
	return s.queryEvents(`
		SELECT artifact_id, type, actor_id, occurred_at_ns, sequence_no, details FROM events
		ORDER BY artifact_id, occurred_at_ns, sequence_no`)
}

func (s *Store) queryEvents(query string, args ...any) ([]timeline.Event, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []timeline.Event
	for rows.Next() {
		var ev timeline.Event
		var typ string
		var actor, details sql.NullString
		var occurredNs int64
		if err := rows.Scan(&ev.ArtifactID, &typ, &actor, &occurredNs, &ev.SequenceNo, &details); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.Type = timeline.EventType(typ)
		ev.ActorID = actor.String
		ev.OccurredAt = time.Unix(0, occurredNs).UTC()
		if details.Valid {
			if err := json.Unmarshal([]byte(details.String), &ev.Details); err != nil {
				return nil, fmt.Errorf("decode event details: %w", err)
			}
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}
