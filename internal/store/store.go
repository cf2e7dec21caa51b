// Package store is the Record Store (RS) layer: a single embedded SQLite
// file holding one table per named ack queue. It owns the connection, the
// file lock that enforces single-writer-per-process access to the backing
// file, table creation, and schema introspection. Every ack queue shares
// one *Store per backing file.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/gofrs/flock"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/flowqio/flowq/internal/types"
)

// ReservedColumns are present on every queue table and are never part of
// an AQ's dynamic, record-derived column list.
var ReservedColumns = map[string]bool{
	"_id":       true,
	"timestamp": true,
	"status":    true,
}

// Store owns one *sql.DB against one embedded SQLite file, plus the
// process-level file lock that guards it.
type Store struct {
	path string
	db   *sql.DB
	lock *flock.Flock
}

// Open creates or opens the SQLite file at path, applies the pragmas an
// embedded single-writer store wants (WAL journaling, a busy timeout so
// concurrent processes queue instead of erroring), and acquires a
// process-wide advisory lock on the file so two flowq processes never
// drive the same file concurrently without knowing about each other.
func Open(ctx context.Context, path string) (*Store, error) {
	lock := flock.New(path + ".lock")
	locked, err := lock.TryLockContext(ctx, lockRetryInterval)
	if err != nil {
		return nil, fmt.Errorf("%w: lock %s: %v", types.ErrStoreError, path, err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s is locked by another process", types.ErrStoreError, path)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("%w: open %s: %v", types.ErrStoreError, path, err)
	}
	db.SetMaxOpenConns(1) // one writer per process connection, per spec.md §5

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			_ = lock.Unlock()
			return nil, fmt.Errorf("%w: %s: %v", types.ErrStoreError, pragma, err)
		}
	}

	return &Store{path: path, db: db, lock: lock}, nil
}

// DB returns the underlying connection for direct use by an AQ.
func (s *Store) DB() *sql.DB { return s.db }

// Close releases the connection and the file lock.
func (s *Store) Close() error {
	errDB := s.db.Close()
	errLock := s.lock.Unlock()
	if errDB != nil {
		return fmt.Errorf("%w: close %s: %v", types.ErrStoreError, s.path, errDB)
	}
	if errLock != nil {
		return fmt.Errorf("%w: unlock %s: %v", types.ErrStoreError, s.path, errLock)
	}
	return nil
}

// EnsureTable creates table (if absent) with the reserved (_id, timestamp,
// status) triple, plus uniqueColumn TEXT UNIQUE when uniqueColumn is
// non-empty — spec.md §4.1's "uniquified variant" vs. plain DDL.
func (s *Store) EnsureTable(ctx context.Context, table, uniqueColumn string) error {
	var ddl string
	if uniqueColumn != "" {
		ddl = fmt.Sprintf(
			`CREATE TABLE IF NOT EXISTS %s (
				_id INTEGER PRIMARY KEY AUTOINCREMENT,
				timestamp REAL NOT NULL,
				status INTEGER NOT NULL,
				%s TEXT UNIQUE
			)`, quoteIdent(table), quoteIdent(uniqueColumn))
	} else {
		ddl = fmt.Sprintf(
			`CREATE TABLE IF NOT EXISTS %s (
				_id INTEGER PRIMARY KEY AUTOINCREMENT,
				timestamp REAL NOT NULL,
				status INTEGER NOT NULL
			)`, quoteIdent(table))
	}
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("%w: create table %s: %v", types.ErrStoreError, table, err)
	}
	return nil
}

// Columns introspects table via pragma_table_info and returns every
// non-reserved column name, in table-declaration order. This seeds an AQ's
// in-memory column list at construction (spec.md §4.1).
func (s *Store) Columns(ctx context.Context, table string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, cid FROM pragma_table_info(?)`, table)
	if err != nil {
		return nil, fmt.Errorf("%w: introspect %s: %v", types.ErrStoreError, table, err)
	}
	defer rows.Close()

	type col struct {
		name string
		cid  int
	}
	var cols []col
	for rows.Next() {
		var c col
		if err := rows.Scan(&c.name, &c.cid); err != nil {
			return nil, fmt.Errorf("%w: scan column: %v", types.ErrStoreError, err)
		}
		if ReservedColumns[c.name] {
			continue
		}
		cols = append(cols, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate columns of %s: %v", types.ErrStoreError, table, err)
	}
	sort.Slice(cols, func(i, j int) bool { return cols[i].cid < cols[j].cid })

	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.name
	}
	return names, nil
}

// ColumnType returns the SQL type flowq recorded for column on its first
// ALTER TABLE, or "" if the column does not exist.
func (s *Store) ColumnType(ctx context.Context, table, column string) (string, error) {
	var sqlType string
	err := s.db.QueryRowContext(ctx,
		`SELECT type FROM pragma_table_info(?) WHERE name = ?`, table, column,
	).Scan(&sqlType)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("%w: column type %s.%s: %v", types.ErrStoreError, table, column, err)
	}
	return sqlType, nil
}

// AddColumn issues an idempotent ALTER TABLE ... ADD COLUMN. If the column
// already exists this is a no-op (spec.md §4.1: "columns are created
// lazily on first sight of a new field").
func (s *Store) AddColumn(ctx context.Context, table, column, sqlType string) error {
	existing, err := s.ColumnType(ctx, table, column)
	if err != nil {
		return err
	}
	if existing != "" {
		return nil
	}
	stmt := fmt.Sprintf(`ALTER TABLE %s ADD COLUMN %s %s`, quoteIdent(table), quoteIdent(column), sqlType)
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("%w: add column %s.%s: %v", types.ErrStoreError, table, column, err)
	}
	return nil
}

func quoteIdent(name string) string {
	return `"` + name + `"`
}
