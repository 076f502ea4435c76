// Package database manages the SQLite handles the collector uses: one
// long-lived read-write connection owned by the batch writer, and
// independent read-only connections opened per query request. Partition
// discovery itself is not a filesystem concern here — see
// internal/partition, which lists month tables inside the one configured
// store file via sqlite_master.
package database

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// Template splits a configured store path such as
// "/var/lib/syslogd/logs.sqlite3" into directory and name components. Only
// Dir is consumed outside this package (by the partition-storage health
// checker, which needs to stat the directory the store file lives in); the
// store path itself stays a single file, not one file per Template
// expansion — see SPEC_FULL.md §6.5.
type Template struct {
	Dir  string
	Base string
	Ext  string
}

// ParseTemplate splits a configured path "base.ext" into its components.
func ParseTemplate(path string) Template {
	dir := filepath.Dir(path)
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(filepath.Base(path), ext)
	return Template{Dir: dir, Base: base, Ext: ext}
}

// dsn builds a go-sqlite3 connection string. WAL journaling lets read-only
// queries proceed concurrently with the single writer (spec.md §5).
func dsn(path string, readOnly bool) string {
	mode := "rwc"
	if readOnly {
		mode = "ro"
	}
	return fmt.Sprintf("file:%s?mode=%s&_journal_mode=WAL&_busy_timeout=5000", path, mode)
}

// OpenWriter opens (creating if necessary) the read-write handle the batch
// writer holds for the lifetime of the process.
func OpenWriter(path string) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite3", dsn(path, false))
	if err != nil {
		return nil, fmt.Errorf("database: open writer %s: %w", path, err)
	}
	db.SetMaxOpenConns(1) // single writer per spec.md §5
	return db, nil
}

// OpenReader opens a fresh read-only handle for a single query request. The
// query layer never reuses handles across requests (spec.md §9 design
// notes: simplicity over connection-pool overhead).
func OpenReader(path string) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite3", dsn(path, true))
	if err != nil {
		return nil, fmt.Errorf("database: open reader %s: %w", path, err)
	}
	return db, nil
}
