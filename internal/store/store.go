// Package store is the embedded relational persistence layer of component
// B: the latest-odds snapshot and the append-only opportunities log.
// Grounded on Agentchow's internal/core/tracking/store.go — WAL mode,
// single connection, incremental vacuum — adapted to the two logical
// tables spec §4.B and §6 describe.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/fortuna-sports/arbiter/internal/telemetry"
	"github.com/fortuna-sports/arbiter/pkg/oddserr"
)

const schemaVersion = 1

// Store is the sqlite-backed implementation of contracts.Store.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the sqlite file at path, runs the
// schema migration if the stored schema_version differs, and returns a
// ready Store.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA auto_vacuum = INCREMENTAL`); err != nil {
		db.Close()
		return nil, fmt.Errorf("set auto_vacuum: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	telemetry.Infof("store: opened %s (schema v%d)", path, schemaVersion)
	return s, nil
}

const ddl = `
CREATE TABLE IF NOT EXISTS meta (
	schema_version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS latest_events (
	fingerprint   TEXT PRIMARY KEY,
	sport_key     TEXT NOT NULL,
	commence_time TEXT NOT NULL,
	home_team     TEXT NOT NULL,
	away_team     TEXT NOT NULL,
	payload       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_latest_events_sport ON latest_events(sport_key);

CREATE TABLE IF NOT EXISTS opportunities_log (
	id                        TEXT PRIMARY KEY,
	minute_bucket             TEXT NOT NULL UNIQUE,
	sport_key                 TEXT NOT NULL,
	commence_time             TEXT NOT NULL,
	home_team                 TEXT NOT NULL,
	away_team                 TEXT NOT NULL,
	market_key                TEXT NOT NULL,
	total_implied_probability REAL NOT NULL,
	profit_pct                REAL NOT NULL,
	detected_at               TEXT NOT NULL,
	payload                   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_opps_detected_sport_profit
	ON opportunities_log(detected_at DESC, sport_key, profit_pct DESC);
`

func (s *Store) migrate() error {
	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}

	var version int
	err := s.db.QueryRow(`SELECT schema_version FROM meta LIMIT 1`).Scan(&version)
	switch {
	case err == sql.ErrNoRows:
		if _, err := s.db.Exec(`INSERT INTO meta (schema_version) VALUES (?)`, schemaVersion); err != nil {
			return fmt.Errorf("seed meta: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read schema_version: %w", err)
	case version != schemaVersion:
		// No prior versions exist yet; a future migration chain goes here.
		if _, err := s.db.Exec(`UPDATE meta SET schema_version = ?`, schemaVersion); err != nil {
			return fmt.Errorf("upgrade schema_version: %w", err)
		}
	}
	return nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// withTx runs fn inside a transaction, committing on success and rolling
// back on any error (including a panic recovered and re-raised).
func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return oddserr.Store("begin transaction", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return oddserr.Store("commit transaction", err)
	}
	return nil
}

// nowUTC is a small seam kept for test determinism; production always uses
// time.Now().UTC().
var nowUTC = func() time.Time { return time.Now().UTC() }
