// Package resultcache is the local, SQLite-backed store of previously
// computed BuildResults, keyed by build_hash_v1. It is consulted only by
// the "inspect" CLI command — never by "build", which always recomputes;
// no caching may alter pipeline output. Adapted from the teacher's
// versioned state store (internal/state), repointed at content-addressed
// pipeline outputs instead of mutable conversational state.
package resultcache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/jordenrsantos-sys/MTG-Deck/internal/pipeline"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS build_results (
	row_id        TEXT PRIMARY KEY,
	build_hash_v1 TEXT NOT NULL UNIQUE,
	profile_id    TEXT NOT NULL,
	bracket_id    TEXT NOT NULL,
	db_snapshot_id TEXT NOT NULL,
	status        TEXT NOT NULL,
	payload_json  TEXT NOT NULL,
	created_at    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_build_results_snapshot ON build_results(db_snapshot_id);
`

// #endregion schema

// Store manages the content-addressed result cache in SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (creating if absent) the SQLite result cache at dbPath and
// runs its migration.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open result cache: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate result cache: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Put inserts a BuildResult row, keyed by its own build_hash_v1. Inserting
// the same build_hash_v1 twice is a no-op: the cache never mutates a
// result once recorded, it only ever records what the pipeline already
// computed, so a duplicate row would by definition carry identical data.
func (s *Store) Put(result pipeline.BuildResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal build result: %w", err)
	}
	rowID := uuid.New().String()
	now := time.Now().UTC().Format(time.RFC3339Nano)

	_, err = s.db.Exec(
		`INSERT INTO build_results (row_id, build_hash_v1, profile_id, bracket_id, db_snapshot_id, status, payload_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(build_hash_v1) DO NOTHING`,
		rowID, result.BuildHashV1, result.ProfileID, result.BracketID, result.DBSnapshotID, string(result.Status), string(payload), now,
	)
	return err
}

// Row is one result-cache listing row, without the full payload.
type Row struct {
	BuildHashV1  string
	ProfileID    string
	BracketID    string
	DBSnapshotID string
	Status       string
	CreatedAt    string
}

// List returns every cached row, ordered by created_at descending (most
// recent first) then build_hash_v1 ascending as a deterministic tiebreak.
func (s *Store) List() ([]Row, error) {
	rows, err := s.db.Query(
		`SELECT build_hash_v1, profile_id, bracket_id, db_snapshot_id, status, created_at
		 FROM build_results ORDER BY created_at DESC, build_hash_v1 ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var r Row
		if err := rows.Scan(&r.BuildHashV1, &r.ProfileID, &r.BracketID, &r.DBSnapshotID, &r.Status, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Get returns the full BuildResult for buildHash, or ok=false when absent.
func (s *Store) Get(buildHash string) (pipeline.BuildResult, bool, error) {
	var payload string
	err := s.db.QueryRow(`SELECT payload_json FROM build_results WHERE build_hash_v1 = ?`, buildHash).Scan(&payload)
	if err == sql.ErrNoRows {
		return pipeline.BuildResult{}, false, nil
	}
	if err != nil {
		return pipeline.BuildResult{}, false, err
	}
	var result pipeline.BuildResult
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return pipeline.BuildResult{}, false, fmt.Errorf("unmarshal cached build result: %w", err)
	}
	return result, true, nil
}
