// Package sqlite persists taxonomy snapshots and the identifier-to-taxon
// lookup table to a single SQLite database file, using the pure-Go
// modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"taxoplace/internal/taxrepo"
	"taxoplace/pkg/domain"
)

var _ domain.IdentifierTaxonStore = (*Store)(nil)

// Store persists taxonomy snapshots (one table) and sequence-identifier
// to taxon-id lookups (a second table) in one SQLite file.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database at path and ensures both
// tables exist.
func Open(path string) (*Store, error) {
	if path == "" {
		path = "taxoplace.db"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS taxonomy_snapshot (
		label TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`); err != nil {
		return nil, fmt.Errorf("create taxonomy_snapshot table: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS identifier_taxon (
		sequence_id TEXT PRIMARY KEY,
		tax_id INTEGER NOT NULL
	)`); err != nil {
		return nil, fmt.Errorf("create identifier_taxon table: %w", err)
	}
	return &Store{db: db}, nil
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// SaveSnapshot upserts a taxonomy snapshot under label.
func (s *Store) SaveSnapshot(ctx context.Context, label string, snap taxrepo.Snapshot) error {
	payload, err := taxrepo.MarshalSnapshot(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot %q: %w", label, err)
	}
	const stmt = `INSERT INTO taxonomy_snapshot(label, payload) VALUES(?, ?)
		ON CONFLICT(label) DO UPDATE SET payload = excluded.payload`
	if _, err := s.db.ExecContext(ctx, stmt, label, payload); err != nil {
		return fmt.Errorf("upsert snapshot %q: %w", label, err)
	}
	return nil
}

// LoadSnapshot reads back a taxonomy snapshot previously stored under
// label.
func (s *Store) LoadSnapshot(ctx context.Context, label string) (taxrepo.Snapshot, error) {
	var payload []byte
	row := s.db.QueryRowContext(ctx, `SELECT payload FROM taxonomy_snapshot WHERE label = ?`, label)
	if err := row.Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return taxrepo.Snapshot{}, fmt.Errorf("snapshot %q: not found", label)
		}
		return taxrepo.Snapshot{}, fmt.Errorf("select snapshot %q: %w", label, err)
	}
	snap, err := taxrepo.UnmarshalSnapshot(payload)
	if err != nil {
		return taxrepo.Snapshot{}, fmt.Errorf("decode snapshot %q: %w", label, err)
	}
	return snap, nil
}

// PutIdentifier records that sequenceID belongs to taxID, overwriting any
// prior mapping.
func (s *Store) PutIdentifier(ctx context.Context, sequenceID string, taxID int64) error {
	const stmt = `INSERT INTO identifier_taxon(sequence_id, tax_id) VALUES(?, ?)
		ON CONFLICT(sequence_id) DO UPDATE SET tax_id = excluded.tax_id`
	if _, err := s.db.ExecContext(ctx, stmt, sequenceID, taxID); err != nil {
		return fmt.Errorf("upsert identifier %q: %w", sequenceID, err)
	}
	return nil
}

// LookupTaxID implements domain.IdentifierTaxonStore.
func (s *Store) LookupTaxID(sequenceID string) (int64, error) {
	var taxID int64
	row := s.db.QueryRow(`SELECT tax_id FROM identifier_taxon WHERE sequence_id = ?`, sequenceID)
	if err := row.Scan(&taxID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, domain.IdentifierNotFoundError{SequenceID: sequenceID}
		}
		return 0, fmt.Errorf("select identifier %q: %w", sequenceID, err)
	}
	return taxID, nil
}
