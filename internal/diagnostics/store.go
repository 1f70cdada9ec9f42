// Package diagnostics persists Distributed Clocks commissioning runs
// and PDU-loop error events to a local SQLite database, the same role
// internal/db plays for collected point values in the teacher. It is
// an opt-in observability surface: nothing in internal/wire,
// internal/pdustore, internal/pduloop or internal/dc imports it.
package diagnostics

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Store wraps a SQLite connection holding the diagnostics schema.
type Store struct {
	sql *sql.DB
}

// Open opens (creating if necessary) the SQLite database at path and
// runs its migrations.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(ON)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("diagnostics: open %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("diagnostics: ping %s: %w", path, err)
	}
	s := &Store{sql: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying connection.
func (s *Store) Close() error { return s.sql.Close() }

func (s *Store) migrate() error {
	const schema = `
CREATE TABLE IF NOT EXISTS dc_runs (
    run_id TEXT PRIMARY KEY,
    started_at DATETIME NOT NULL,
    subdevice_count INTEGER NOT NULL,
    reference_address INTEGER
);
CREATE TABLE IF NOT EXISTS dc_subdevices (
    run_id TEXT NOT NULL,
    subdevice_index INTEGER NOT NULL,
    configured_address INTEGER NOT NULL,
    topology TEXT NOT NULL,
    has_parent BOOLEAN NOT NULL,
    parent_index INTEGER,
    propagation_delay_ns INTEGER NOT NULL,
    PRIMARY KEY (run_id, subdevice_index),
    FOREIGN KEY (run_id) REFERENCES dc_runs(run_id) ON DELETE CASCADE
);
CREATE TABLE IF NOT EXISTS pdu_errors (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT,
    occurred_at DATETIME NOT NULL,
    message TEXT NOT NULL,
    FOREIGN KEY (run_id) REFERENCES dc_runs(run_id) ON DELETE SET NULL
);
CREATE INDEX IF NOT EXISTS idx_dc_subdevices_run_id ON dc_subdevices(run_id);
CREATE INDEX IF NOT EXISTS idx_pdu_errors_run_id ON pdu_errors(run_id);
`
	_, err := s.sql.Exec(schema)
	if err != nil {
		return fmt.Errorf("diagnostics: migrate: %w", err)
	}
	return nil
}
