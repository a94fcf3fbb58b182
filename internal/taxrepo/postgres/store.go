// Package postgres persists taxonomy snapshots to Postgres, one row per
// labeled snapshot, JSONB payload.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"taxoplace/internal/taxrepo"
)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/taxoplace?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Store persists labeled taxonomy snapshots to Postgres.
type Store struct {
	db *sql.DB
}

// Open opens a Postgres-backed snapshot store, creating the snapshot
// table if it does not already exist.
func Open(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := ensureTable(ctx, db); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func ensureTable(ctx context.Context, db *sql.DB) error {
	const ddl = `CREATE TABLE IF NOT EXISTS taxonomy_snapshot (
		label TEXT PRIMARY KEY,
		payload JSONB NOT NULL
	)`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensure taxonomy_snapshot table: %w", err)
	}
	return nil
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Save upserts a taxonomy snapshot under label.
func (s *Store) Save(ctx context.Context, label string, snap taxrepo.Snapshot) error {
	payload, err := taxrepo.MarshalSnapshot(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot %q: %w", label, err)
	}
	const stmt = `INSERT INTO taxonomy_snapshot(label, payload) VALUES($1, $2)
		ON CONFLICT(label) DO UPDATE SET payload = EXCLUDED.payload`
	if _, err := s.db.ExecContext(ctx, stmt, label, payload); err != nil {
		return fmt.Errorf("upsert snapshot %q: %w", label, err)
	}
	return nil
}

// Load reads back a taxonomy snapshot previously stored under label.
func (s *Store) Load(ctx context.Context, label string) (taxrepo.Snapshot, error) {
	var payload []byte
	row := s.db.QueryRowContext(ctx, `SELECT payload FROM taxonomy_snapshot WHERE label = $1`, label)
	if err := row.Scan(&payload); err != nil {
		if err == sql.ErrNoRows {
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

// OverrideSQLOpen swaps the sqlOpen function for tests and returns a
// restore function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}
