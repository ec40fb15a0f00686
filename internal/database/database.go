// Package database owns the driftwave SQLite file: opening it with the
// pragmas the daemon relies on, and applying the embedded schema
// migrations.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Pragmas every connection gets: WAL so queue reads never block a run's
// writes, a busy timeout instead of immediate SQLITE_BUSY, and enforced
// foreign keys for the playlist tables.
const dsnOptions = "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=ON"

// Open opens the database at path, creating the parent directory when
// missing. The pool is capped at a single connection; SQLite permits one
// writer and the daemon's write paths all share it.
func Open(path string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+dsnOptions)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.PingContext(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	db.SetMaxOpenConns(1)

	return db, nil
}
