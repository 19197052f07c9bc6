// Package store owns the durable SQLite state: schema migration, the
// sessions and applications dimensions, and the fact-table inserts issued by
// the batching writer. The database runs in WAL mode so readers stay live
// while the single writer path commits.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/quietloop/deskwatch/internal/config"
	_ "modernc.org/sqlite"
)

// CurrentSchemaVersion is the latest schema version.
// Bump this when adding migrations.
const CurrentSchemaVersion = 1

// Store wraps the SQLite handle.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at dbPath and migrates the
// schema. Safe to call at every process start; migration is a no-op for
// already-initialized stores.
func Open(dbPath string) (*Store, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("db path is required")
	}
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	// Pragmas in the DSN apply to every pooled connection.
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := verifyWALMode(db); err != nil {
		db.Close()
		return nil, err
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// DB exposes the underlying handle for read-only collaborators (analytics,
// tool surfaces). They must never touch fact tables through it except to read.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// ConfigurePool applies connection pool settings from config.
// Only sets limits if explicitly configured (non-zero values).
func (s *Store) ConfigurePool(cfg *config.Config) {
	if cfg == nil {
		return
	}
	if cfg.DBMaxOpenConns > 0 {
		s.db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	}
	if cfg.DBMaxIdleConns > 0 {
		s.db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	}
}

// migrate applies schema migrations based on user_version.
func migrate(db *sql.DB) error {
	version, err := GetUserVersion(db)
	if err != nil {
		return err
	}

	// Migration 0 -> 1: initial schema.
	if version < 1 {
		schema := `
		CREATE TABLE IF NOT EXISTS sessions (
		  id          TEXT PRIMARY KEY,
		  started_at  REAL NOT NULL,
		  ended_at    REAL,
		  hostname    TEXT NOT NULL,
		  username    TEXT NOT NULL,
		  os_version  TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS applications (
		  bundle_id     TEXT PRIMARY KEY,
		  app_name      TEXT NOT NULL,
		  first_seen_ts REAL NOT NULL
		);

		CREATE TABLE IF NOT EXISTS pointer_events (
		  id         INTEGER PRIMARY KEY AUTOINCREMENT,
		  ts         REAL NOT NULL,
		  kind       TEXT NOT NULL CHECK (kind IN ('move','click_down','click_up','scroll')),
		  x          REAL NOT NULL,
		  y          REAL NOT NULL,
		  extra      TEXT,
		  bundle_id  TEXT NOT NULL DEFAULT '',
		  pid        INTEGER,
		  window_num INTEGER,
		  session_id TEXT NOT NULL REFERENCES sessions(id)
		);

		CREATE TABLE IF NOT EXISTS key_events (
		  id         INTEGER PRIMARY KEY AUTOINCREMENT,
		  ts         REAL NOT NULL,
		  kind       TEXT NOT NULL CHECK (kind IN ('key_down','key_up')),
		  key        TEXT NOT NULL,
		  modifiers  TEXT,
		  bundle_id  TEXT NOT NULL DEFAULT '',
		  pid        INTEGER,
		  window_num INTEGER,
		  session_id TEXT NOT NULL REFERENCES sessions(id)
		);

		CREATE TABLE IF NOT EXISTS switches (
		  id                INTEGER PRIMARY KEY AUTOINCREMENT,
		  ts                REAL NOT NULL,
		  kind              TEXT NOT NULL CHECK (kind IN ('app','window')),
		  from_bundle       TEXT,
		  from_pid          INTEGER,
		  from_window_num   INTEGER,
		  from_window_title TEXT,
		  to_bundle         TEXT,
		  to_pid            INTEGER,
		  to_window_num     INTEGER,
		  to_window_title   TEXT,
		  session_id        TEXT NOT NULL REFERENCES sessions(id)
		);

		CREATE INDEX IF NOT EXISTS idx_pointer_events_ts ON pointer_events(ts);
		CREATE INDEX IF NOT EXISTS idx_pointer_events_session ON pointer_events(session_id);
		CREATE INDEX IF NOT EXISTS idx_key_events_ts ON key_events(ts);
		CREATE INDEX IF NOT EXISTS idx_key_events_session ON key_events(session_id);
		CREATE INDEX IF NOT EXISTS idx_switches_ts ON switches(ts);
		CREATE INDEX IF NOT EXISTS idx_switches_session ON switches(session_id);

		CREATE VIEW IF NOT EXISTS vw_clicks_by_app AS
		SELECT a.app_name AS app_name,
		       COUNT(*)   AS clicks
		FROM pointer_events p
		JOIN applications a ON a.bundle_id = p.bundle_id
		WHERE p.kind IN ('click_down','click_up')
		GROUP BY a.app_name;
		`
		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("migration 1 failed: %w", err)
		}
		if err := SetUserVersion(db, 1); err != nil {
			return err
		}
	}

	// Future migrations go here:
	// if version < 2 { ... }

	return nil
}

// verifyWALMode checks that WAL mode is active (set via connection string).
func verifyWALMode(db *sql.DB) error {
	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode;").Scan(&journalMode); err != nil {
		return fmt.Errorf("verify journal mode: %w", err)
	}
	if journalMode != "wal" {
		return fmt.Errorf("expected WAL mode, got %s", journalMode)
	}
	return nil
}

// GetUserVersion returns the current schema version (user_version pragma).
func GetUserVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow("PRAGMA user_version;").Scan(&version); err != nil {
		return 0, fmt.Errorf("get user_version: %w", err)
	}
	return version, nil
}

// SetUserVersion sets the schema version (user_version pragma).
func SetUserVersion(db *sql.DB, version int) error {
	_, err := db.Exec(fmt.Sprintf("PRAGMA user_version=%d", version))
	if err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}
