// Package partition creates and tracks the per-month SQLite tables that
// back the collector's storage: a base SystemEvents<YYYYMM> table, its
// ReceivedAt index, and a contentless FTS5 index sharing its rowids.
package partition

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
)

// ymPattern guards against SQL injection through table-name interpolation
// (spec.md Open Question c: table names are inlined, not bound, so the
// YYYYMM token MUST be validated before use).
var ymPattern = regexp.MustCompile(`^\d{6}$`)

// Manager is the Partition Manager (C4). It is single-owner — only the
// batch writer task calls Ensure — so the known-partitions cache needs no
// locking beyond what guards concurrent test access.
type Manager struct {
	db    *sqlx.DB
	mu    sync.Mutex
	known map[string]bool
}

// New creates a Manager bound to a writable database handle.
func New(db *sqlx.DB) *Manager {
	return &Manager{db: db, known: make(map[string]bool)}
}

// BaseTable returns the base table name for a YYYYMM key without touching
// the database.
func BaseTable(ym string) string { return "SystemEvents" + ym }

// ftsTable returns the FTS5 virtual table name for a YYYYMM key.
func ftsTable(ym string) string { return "SystemEventsFTS" + ym }

// indexName returns the ReceivedAt index name for a YYYYMM key.
func indexName(ym string) string { return "idx_ReceivedAt_" + ym }

// Discover lists the YYYYMM keys of every SystemEvents<YYYYMM> base table
// present in db, sorted descending so the newest partition appears first.
// Used by the read side to enumerate what a single store file holds.
func Discover(db *sqlx.DB) ([]string, error) {
	var names []string
	const q = `SELECT name FROM sqlite_master WHERE type = 'table' AND name LIKE 'SystemEvents______'`
	if err := db.Select(&names, q); err != nil {
		return nil, fmt.Errorf("partition: discover: %w", err)
	}

	var keys []string
	for _, name := range names {
		ym := strings.TrimPrefix(name, "SystemEvents")
		if ymPattern.MatchString(ym) {
			keys = append(keys, ym)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(keys)))
	return keys, nil
}

// Ensure creates the base table, its ReceivedAt index, and its contentless
// FTS5 index for ym if they don't already exist, and returns the base table
// name. It is idempotent and safe to call repeatedly — the known-partitions
// cache (spec.md invariant: never reports "exists" before creation commits)
// short-circuits every call after the first successful one.
func (m *Manager) Ensure(ym string) (string, error) {
	if !ymPattern.MatchString(ym) {
		return "", fmt.Errorf("partition: invalid YYYYMM key %q", ym)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.known[ym] {
		return BaseTable(ym), nil
	}

	if err := m.create(ym); err != nil {
		return "", err
	}

	m.known[ym] = true
	return BaseTable(ym), nil
}

// Rebuild issues the FTS5 'rebuild' special command that re-syncs the
// contentless index from the base table's committed contents. The batch
// writer uses RebuildTx instead, once per touched partition per flush.
func (m *Manager) Rebuild(ym string) error {
	query, err := m.rebuildSQL(ym)
	if err != nil {
		return err
	}
	_, err = m.db.Exec(query)
	return err
}

// RebuildTx is Rebuild run inside an existing transaction. The batch
// writer uses this rather than Rebuild so the index resync happens before
// commit, against the same connection holding the insert's uncommitted
// rows — with a single-connection writer handle (database.OpenWriter sets
// MaxOpenConns(1)), calling Rebuild's db.Exec here instead would block
// forever waiting for the connection the open transaction is holding.
func (m *Manager) RebuildTx(tx *sqlx.Tx, ym string) error {
	query, err := m.rebuildSQL(ym)
	if err != nil {
		return err
	}
	_, err = tx.Exec(query)
	return err
}

func (m *Manager) rebuildSQL(ym string) (string, error) {
	if !ymPattern.MatchString(ym) {
		return "", fmt.Errorf("partition: invalid YYYYMM key %q", ym)
	}
	fts := ftsTable(ym)
	return fmt.Sprintf(`INSERT INTO %s(%s) VALUES ('rebuild')`, fts, fts), nil
}

func (m *Manager) create(ym string) error {
	base := BaseTable(ym)
	fts := ftsTable(ym)
	idx := indexName(ym)

	tx, err := m.db.Beginx()
	if err != nil {
		return fmt.Errorf("partition: begin: %w", err)
	}
	defer tx.Rollback()

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			ID INTEGER PRIMARY KEY AUTOINCREMENT,
			Facility INTEGER NOT NULL,
			Priority INTEGER NOT NULL,
			FromHost TEXT NOT NULL,
			InfoUnitID INTEGER NOT NULL DEFAULT 1,
			ReceivedAt TIMESTAMP NOT NULL,
			DeviceReportedTime TIMESTAMP NOT NULL,
			SysLogTag TEXT NOT NULL,
			ProcessID TEXT NOT NULL,
			Message TEXT NOT NULL
		)`, base)
	if _, err := tx.Exec(createTable); err != nil {
		return fmt.Errorf("partition: create table %s: %w", base, err)
	}

	createIndex := fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s(ReceivedAt)`, idx, base)
	if _, err := tx.Exec(createIndex); err != nil {
		return fmt.Errorf("partition: create index %s: %w", idx, err)
	}

	createFTS := fmt.Sprintf(`
		CREATE VIRTUAL TABLE IF NOT EXISTS %s USING fts5(
			Message,
			content='%s',
			content_rowid='ID'
		)`, fts, base)
	if _, err := tx.Exec(createFTS); err != nil {
		return fmt.Errorf("partition: create fts %s: %w", fts, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("partition: commit %s: %w", ym, err)
	}

	log.Info().Str("partition", ym).Str("table", base).Msg("partition created")
	return nil
}
