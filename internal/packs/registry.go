package packs

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// #region schema
const registrySchema = `
CREATE TABLE IF NOT EXISTS manifest_entries (
	pack_id      TEXT NOT NULL,
	pack_version TEXT NOT NULL,
	path         TEXT NOT NULL,
	sha256       TEXT NOT NULL,
	load_order   INTEGER NOT NULL,
	created_by   TEXT NOT NULL DEFAULT '',
	sort_key     TEXT NOT NULL,
	PRIMARY KEY (pack_id, pack_version)
);
CREATE INDEX IF NOT EXISTS idx_manifest_entries_pack_id ON manifest_entries(pack_id);
`

// #endregion schema

// Registry is a SQLite-backed index over a curated pack manifest's entries,
// letting resolve_pack_entry lookups avoid a linear scan of the manifest
// file on every pipeline run. It never mutates the manifest itself — it is
// rebuilt from scratch each time LoadRegistry runs, so it can never drift
// from the manifest it was built from.
type Registry struct {
	db *sql.DB
}

// LoadRegistry opens an in-memory SQLite database, creates the manifest
// index table, and populates it from manifest.
func LoadRegistry(manifest Manifest) (*Registry, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open manifest registry: %w", err)
	}
	if _, err := db.Exec(registrySchema); err != nil {
		return nil, fmt.Errorf("migrate manifest registry: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin manifest registry tx: %w", err)
	}
	defer tx.Rollback()

	for _, entry := range manifest.Packs {
		if _, err := tx.Exec(
			`INSERT INTO manifest_entries (pack_id, pack_version, path, sha256, load_order, created_by, sort_key)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			entry.PackID, entry.PackVersion, entry.Path, entry.SHA256, entry.LoadOrder, entry.CreatedBy, entry.sortKey(),
		); err != nil {
			return nil, fmt.Errorf("index manifest entry %s@%s: %w", entry.PackID, entry.PackVersion, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit manifest registry: %w", err)
	}

	return &Registry{db: db}, nil
}

// Close closes the underlying in-memory database.
func (r *Registry) Close() error {
	return r.db.Close()
}

// Resolve returns the lexicographically-last entry for packID (and, when
// non-empty, packVersion) under the manifest's stable sort key, matching
// ResolvePackEntry's semantics but served from the index rather than a
// linear scan.
func (r *Registry) Resolve(packID, packVersion string) (ManifestEntry, bool, error) {
	query := `SELECT pack_id, pack_version, path, sha256, load_order, created_by
	          FROM manifest_entries WHERE pack_id = ?`
	args := []interface{}{packID}
	if packVersion != "" {
		query += ` AND pack_version = ?`
		args = append(args, packVersion)
	}
	query += ` ORDER BY sort_key DESC LIMIT 1`

	var e ManifestEntry
	err := r.db.QueryRow(query, args...).Scan(&e.PackID, &e.PackVersion, &e.Path, &e.SHA256, &e.LoadOrder, &e.CreatedBy)
	if err == sql.ErrNoRows {
		return ManifestEntry{}, false, nil
	}
	if err != nil {
		return ManifestEntry{}, false, err
	}
	return e, true, nil
}
