// Package ackqueue implements the Ack Queue (AQ): a single table-backed
// durable queue with an ack state machine, dynamic schema growth, array
// flattening, and a visibility-timeout sweep. See spec.md §3-4.1.
package ackqueue

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/flowqio/flowq/internal/store"
	"github.com/flowqio/flowq/internal/types"
)

const (
	defaultTimeout       = 300 * time.Second
	approxCountTTL       = 10 * time.Second
	maxSizePollInterval  = time.Second
)

// Options configures a new AckQueue. Zero value is the spec's defaults:
// no unique column, 300s visibility timeout, unbounded size, rows retained
// on ack.
type Options struct {
	UniqueColumn string
	Timeout      time.Duration // 0 means defaultTimeout
	MaxSize      int           // 0 means unbounded
	DeleteOnAck  bool
	Logger       *slog.Logger // nil means slog.Default()
}

// AckQueue is one named queue backed by one table of a Store.
type AckQueue struct {
	st           *store.Store
	table        string
	uniqueColumn string
	timeout      time.Duration
	maxSize      int
	deleteOnAck  bool
	log          *slog.Logger

	now func() time.Time

	mu          sync.Mutex
	columns     []string          // in-memory column order, reserved excluded
	columnTypes map[string]string // field -> SQL type inferred at first sight
	lastSweep   time.Time

	approxMu  sync.Mutex
	approxVal int64
	approxAt  time.Time
}

// New opens (creating if absent) the table backing this queue and seeds its
// in-memory column list by introspecting the live schema.
func New(ctx context.Context, st *store.Store, table string, opts Options) (*AckQueue, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if err := st.EnsureTable(ctx, table, opts.UniqueColumn); err != nil {
		return nil, err
	}

	q := &AckQueue{
		st:           st,
		table:        table,
		uniqueColumn: opts.UniqueColumn,
		timeout:      timeout,
		maxSize:      opts.MaxSize,
		deleteOnAck:  opts.DeleteOnAck,
		log:          logger,
		now:          time.Now,
		columnTypes:  make(map[string]string),
		lastSweep:    time.Now(),
	}

	cols, err := st.Columns(ctx, table)
	if err != nil {
		return nil, err
	}
	q.columns = cols
	for _, c := range cols {
		sqlType, err := st.ColumnType(ctx, table, c)
		if err != nil {
			return nil, err
		}
		q.columnTypes[c] = sqlType
	}
	if opts.UniqueColumn != "" {
		if _, ok := q.columnTypes[opts.UniqueColumn]; !ok {
			q.columnTypes[opts.UniqueColumn] = "TEXT"
		}
	}
	return q, nil
}

// Table returns the backing table name.
func (q *AckQueue) Table() string { return q.table }

func (q *AckQueue) nowSeconds() float64 {
	return float64(q.now().UnixNano()) / 1e9
}

// ApplyTimeout runs the visibility-timeout sweep. Every public operation on
// q calls this first; callers composing a query directly against q.Store()
// (internal/ioqueue's cross-table join) must call it explicitly before
// reading, since the sweep is otherwise unreachable from outside the
// package (spec.md §4.1: "every operation that takes the connection first
// calls apply_timeout").
func (q *AckQueue) ApplyTimeout(ctx context.Context) error {
	return q.applyTimeout(ctx)
}

// applyTimeout runs the visibility-timeout sweep, but only if at least
// q.timeout has elapsed since the previous sweep (spec.md §4.1). Every
// public operation calls this first.
func (q *AckQueue) applyTimeout(ctx context.Context) error {
	q.mu.Lock()
	elapsed := q.now().Sub(q.lastSweep)
	if elapsed < q.timeout {
		q.mu.Unlock()
		return nil
	}
	q.lastSweep = q.now()
	q.mu.Unlock()

	cutoff := q.nowSeconds() - q.timeout.Seconds()
	query := fmt.Sprintf(`UPDATE %s SET status = ? WHERE status = ? AND timestamp < ?`, quoteIdent(q.table))
	if _, err := q.st.DB().ExecContext(ctx, query, int(types.StatusReady), int(types.StatusUnack), cutoff); err != nil {
		return fmt.Errorf("%w: visibility sweep on %s: %v", types.ErrStoreError, q.table, err)
	}
	return nil
}

// ensureColumns makes sure every field in fields exists as a column,
// creating it (inferring its SQL type from the first value seen; a null
// first value creates a TEXT column) if necessary, and checking later
// values against the type recorded for that field the first time it was
// seen (DESIGN.md Open Question 6).
func (q *AckQueue) ensureColumns(ctx context.Context, fields map[string]types.Value) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for name, v := range fields {
		want, err := v.SQLType()
		if err != nil {
			return err
		}
		existing, known := q.columnTypes[name]
		if !known {
			if err := q.st.AddColumn(ctx, q.table, name, want); err != nil {
				return err
			}
			q.columnTypes[name] = want
			q.columns = append(q.columns, name)
			continue
		}
		if v.IsNull() || existing == "TEXT" || want == existing {
			continue
		}
		return fmt.Errorf("%w: field %q was first seen as %s, now seen as %s", types.ErrSchemaConflict, name, existing, want)
	}
	return nil
}

func (q *AckQueue) columnOrder() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	cols := make([]string, len(q.columns))
	copy(cols, q.columns)
	return cols
}

// Put inserts a single record and returns its assigned key, or 0 if it was
// silently dropped as a unique_column duplicate.
func (q *AckQueue) Put(ctx context.Context, rec types.Record) (int64, error) {
	keys, err := q.Puts(ctx, []types.Record{rec})
	if err != nil {
		return 0, err
	}
	if len(keys) == 0 {
		return 0, nil
	}
	return keys[0], nil
}

// Puts bulk-inserts records, returning the assigned key for each record
// that was actually inserted (duplicates on unique_column are silently
// dropped and omitted from the result, per spec.md §4.1).
func (q *AckQueue) Puts(ctx context.Context, recs []types.Record) ([]int64, error) {
	if len(recs) == 0 {
		return nil, nil
	}
	for _, r := range recs {
		if len(r) == 0 {
			return nil, fmt.Errorf("%w: record has no fields", types.ErrInvalidRecord)
		}
	}

	flat := make([]map[string]types.Value, len(recs))
	for i, r := range recs {
		f, err := flattenRecord(r)
		if err != nil {
			return nil, err
		}
		flat[i] = f
	}

	for _, f := range flat {
		if err := q.ensureColumns(ctx, f); err != nil {
			return nil, err
		}
	}

	if err := q.maxSizeBlock(ctx); err != nil {
		return nil, err
	}

	if err := q.applyTimeout(ctx); err != nil {
		return nil, err
	}

	cols := q.columnOrder()
	insertCols := append([]string{"timestamp", "status"}, cols...)
	placeholders := strings.Repeat("?,", len(insertCols))
	placeholders = strings.TrimSuffix(placeholders, ",")
	verb := "INSERT"
	if q.uniqueColumn != "" {
		verb = "INSERT OR IGNORE"
	}
	query := fmt.Sprintf(`%s INTO %s (%s) VALUES (%s)`, verb, quoteIdent(q.table), quoteColumns(insertCols), placeholders)

	tx, err := q.st.DB().BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: begin puts on %s: %v", types.ErrStoreError, q.table, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: prepare puts on %s: %v", types.ErrStoreError, q.table, err)
	}
	defer stmt.Close()

	var keys []int64
	ts := q.nowSeconds()
	for _, f := range flat {
		args := make([]interface{}, 0, len(insertCols))
		args = append(args, ts, int(types.StatusInited))
		for _, c := range cols {
			v, ok := f[c]
			if !ok {
				v = types.Null()
			}
			args = append(args, valueToDriver(v))
		}
		res, err := stmt.ExecContext(ctx, args...)
		if err != nil {
			return nil, fmt.Errorf("%w: insert into %s: %v", types.ErrStoreError, q.table, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("%w: rows affected on %s: %v", types.ErrStoreError, q.table, err)
		}
		if affected == 0 {
			continue // unique_column duplicate, silently ignored
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("%w: last insert id on %s: %v", types.ErrStoreError, q.table, err)
		}
		keys = append(keys, id)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: commit puts on %s: %v", types.ErrStoreError, q.table, err)
	}
	return keys, nil
}

// maxSizeBlock blocks until ApproxCount falls at or below MaxSize, logging
// progress at exponentially spaced intervals (spec.md §4.1).
func (q *AckQueue) maxSizeBlock(ctx context.Context) error {
	if q.maxSize <= 0 {
		return nil
	}
	attempt := 0
	for {
		n, err := q.ApproxCount(ctx)
		if err != nil {
			return err
		}
		if n <= int64(q.maxSize) {
			return nil
		}
		if attempt&(attempt-1) == 0 { // log on powers of two (and attempt 0)
			q.log.Warn("blocked on max_size backpressure",
				slog.String("table", q.table), slog.Int64("approx_count", n), slog.Int("max_size", q.maxSize), slog.Int("attempt", attempt))
		}
		attempt++
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: max_size_block on %s: %v", types.ErrStoreError, q.table, ctx.Err())
		case <-time.After(maxSizePollInterval):
		}
	}
}

// GetsOptions controls Gets' selection behavior.
type GetsOptions struct {
	RandomOffset bool // offset uniformly chosen in [0, 100*n)
	Ack          bool // transition returned rows to UNACK (default true)
	ReadAll      bool // drop the status < UNACK filter entirely
}

// DefaultGetsOptions matches spec.md's gets() defaults.
func DefaultGetsOptions() GetsOptions { return GetsOptions{Ack: true} }

// Gets selects up to n available rows ordered by id ascending (unless
// RandomOffset), reconstructs their records (unflattening arrays), and by
// default marks them UNACK before returning.
func (q *AckQueue) Gets(ctx context.Context, n int, opts GetsOptions) ([]int64, []types.Record, error) {
	if err := q.applyTimeout(ctx); err != nil {
		return nil, nil, err
	}
	cols := q.columnOrder()

	tx, err := q.st.DB().BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: begin gets on %s: %v", types.ErrStoreError, q.table, err)
	}
	defer tx.Rollback()

	selectCols := append([]string{"_id"}, cols...)
	var query string
	args := []interface{}{}
	offset := 0
	if opts.RandomOffset && n > 0 {
		offset = rand.Intn(100 * n)
	}
	if opts.ReadAll {
		query = fmt.Sprintf(`SELECT %s FROM %s ORDER BY _id ASC LIMIT ? OFFSET ?`, quoteColumns(selectCols), quoteIdent(q.table))
		args = append(args, n, offset)
	} else {
		query = fmt.Sprintf(`SELECT %s FROM %s WHERE status < ? ORDER BY _id ASC LIMIT ? OFFSET ?`, quoteColumns(selectCols), quoteIdent(q.table))
		args = append(args, int(types.StatusUnack), n, offset)
	}

	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: select from %s: %v", types.ErrStoreError, q.table, err)
	}
	keys, recs, err := scanRows(rows, cols)
	if err != nil {
		return nil, nil, err
	}

	if opts.Ack && len(keys) > 0 {
		if err := q.updateKeysTx(ctx, tx, keys, types.StatusUnack); err != nil {
			return nil, nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("%w: commit gets on %s: %v", types.ErrStoreError, q.table, err)
	}
	return keys, recs, nil
}

// Updates bulk-transitions keys to status, failing with ErrMissingKeys if
// any key does not exist.
func (q *AckQueue) Updates(ctx context.Context, keys []int64, status types.Status) error {
	if err := q.applyTimeout(ctx); err != nil {
		return err
	}
	tx, err := q.st.DB().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin updates on %s: %v", types.ErrStoreError, q.table, err)
	}
	defer tx.Rollback()
	if err := q.updateKeysTx(ctx, tx, keys, status); err != nil {
		return err
	}
	return tx.Commit()
}

func (q *AckQueue) updateKeysTx(ctx context.Context, tx *sql.Tx, keys []int64, status types.Status) error {
	unique := dedupeInt64(keys)
	if len(unique) == 0 {
		return nil
	}
	query := fmt.Sprintf(`UPDATE %s SET status = ? WHERE _id IN (%s)`, quoteIdent(q.table), placeholdersFor(len(unique)))
	args := make([]interface{}, 0, len(unique)+1)
	args = append(args, int(status))
	for _, k := range unique {
		args = append(args, k)
	}
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: update %s: %v", types.ErrStoreError, q.table, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: rows affected on %s: %v", types.ErrStoreError, q.table, err)
	}
	if int(affected) != len(unique) {
		return fmt.Errorf("%w: updates on %s touched %d of %d requested keys", types.ErrMissingKeys, q.table, affected, len(unique))
	}
	return nil
}

// Acks transitions keys to status (default ACKED when status==0 is not
// meaningful here — callers pass types.StatusAcked explicitly), deleting
// the rows instead if DeleteOnAck is set. Acking an already-terminal key
// that still exists is idempotent; acking an absent key fails.
func (q *AckQueue) Acks(ctx context.Context, keys []int64, status types.Status) error {
	if len(keys) == 0 {
		return nil
	}
	if err := q.applyTimeout(ctx); err != nil {
		return err
	}
	unique := dedupeInt64(keys)

	existing, err := q.existingKeys(ctx, unique)
	if err != nil {
		return err
	}
	if len(existing) != len(unique) {
		return fmt.Errorf("%w: acks on %s referenced %d keys, %d exist", types.ErrMissingKeys, q.table, len(unique), len(existing))
	}

	if q.deleteOnAck {
		return q.deleteKeys(ctx, unique)
	}

	query := fmt.Sprintf(`UPDATE %s SET status = ? WHERE _id IN (%s)`, quoteIdent(q.table), placeholdersFor(len(unique)))
	args := make([]interface{}, 0, len(unique)+1)
	args = append(args, int(status))
	for _, k := range unique {
		args = append(args, k)
	}
	if _, err := q.st.DB().ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%w: ack update on %s: %v", types.ErrStoreError, q.table, err)
	}
	return nil
}

func (q *AckQueue) existingKeys(ctx context.Context, keys []int64) ([]int64, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	query := fmt.Sprintf(`SELECT _id FROM %s WHERE _id IN (%s)`, quoteIdent(q.table), placeholdersFor(len(keys)))
	args := make([]interface{}, len(keys))
	for i, k := range keys {
		args[i] = k
	}
	rows, err := q.st.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: existing keys on %s: %v", types.ErrStoreError, q.table, err)
	}
	defer rows.Close()
	var found []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%w: scan existing key on %s: %v", types.ErrStoreError, q.table, err)
		}
		found = append(found, id)
	}
	return found, rows.Err()
}

func (q *AckQueue) deleteKeys(ctx context.Context, keys []int64) error {
	if len(keys) == 0 {
		return nil
	}
	query := fmt.Sprintf(`DELETE FROM %s WHERE _id IN (%s)`, quoteIdent(q.table), placeholdersFor(len(keys)))
	args := make([]interface{}, len(keys))
	for i, k := range keys {
		args[i] = k
	}
	if _, err := q.st.DB().ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%w: delete on %s: %v", types.ErrStoreError, q.table, err)
	}
	return nil
}

// Delete physically removes keys, regardless of their current status.
func (q *AckQueue) Delete(ctx context.Context, keys []int64) error {
	if err := q.applyTimeout(ctx); err != nil {
		return err
	}
	return q.deleteKeys(ctx, dedupeInt64(keys))
}

// Set updates arbitrary fields on a single row, creating columns as
// needed. Each field is applied as its own UPDATE, asserting exactly one
// row was touched (spec.md §4.1).
func (q *AckQueue) Set(ctx context.Context, key int64, fields types.Record) error {
	return q.Sets(ctx, []int64{key}, []types.Record{fields})
}

// Sets applies Set to each (key, fields) pair.
func (q *AckQueue) Sets(ctx context.Context, keys []int64, fieldsList []types.Record) error {
	if len(keys) != len(fieldsList) {
		return fmt.Errorf("%w: sets on %s: %d keys but %d field maps", types.ErrInvalidRecord, q.table, len(keys), len(fieldsList))
	}
	if err := q.applyTimeout(ctx); err != nil {
		return err
	}
	for i, fields := range fieldsList {
		flat, err := flattenRecord(fields)
		if err != nil {
			return err
		}
		if err := q.ensureColumns(ctx, flat); err != nil {
			return err
		}
		for col, v := range flat {
			query := fmt.Sprintf(`UPDATE %s SET %s = ? WHERE _id = ?`, quoteIdent(q.table), quoteIdent(col))
			res, err := q.st.DB().ExecContext(ctx, query, valueToDriver(v), keys[i])
			if err != nil {
				return fmt.Errorf("%w: set %s.%s: %v", types.ErrStoreError, q.table, col, err)
			}
			affected, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("%w: rows affected for set on %s: %v", types.ErrStoreError, q.table, err)
			}
			if affected != 1 {
				return fmt.Errorf("%w: set on %s touched %d rows for key %d, want 1", types.ErrMissingKeys, q.table, affected, keys[i])
			}
		}
	}
	return nil
}

// Count returns the total number of rows.
func (q *AckQueue) Count(ctx context.Context) (int64, error) {
	return q.countWhere(ctx, "")
}

// Free returns the number of rows available to a worker (status < UNACK).
func (q *AckQueue) Free(ctx context.Context) (int64, error) {
	return q.countWhere(ctx, fmt.Sprintf("status < %d", types.StatusUnack))
}

// DoneCount returns the number of rows in a terminal state (status > UNACK).
func (q *AckQueue) DoneCount(ctx context.Context) (int64, error) {
	return q.countWhere(ctx, fmt.Sprintf("status > %d", types.StatusUnack))
}

// Active returns the number of rows currently held by a worker
// (UNACK <= status < ACK_FAILED).
func (q *AckQueue) Active(ctx context.Context) (int64, error) {
	return q.countWhere(ctx, fmt.Sprintf("status >= %d AND status < %d", types.StatusUnack, types.StatusAckFailed))
}

func (q *AckQueue) countWhere(ctx context.Context, where string) (int64, error) {
	if err := q.applyTimeout(ctx); err != nil {
		return 0, err
	}
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, quoteIdent(q.table))
	if where != "" {
		query += " WHERE " + where
	}
	var n int64
	if err := q.st.DB().QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: count on %s: %v", types.ErrStoreError, q.table, err)
	}
	return n, nil
}

// ApproxCount returns Count(), cached for approxCountTTL (spec.md §4.1,
// used by max_size backpressure).
func (q *AckQueue) ApproxCount(ctx context.Context) (int64, error) {
	q.approxMu.Lock()
	if q.now().Sub(q.approxAt) < approxCountTTL {
		n := q.approxVal
		q.approxMu.Unlock()
		return n, nil
	}
	q.approxMu.Unlock()

	n, err := q.Count(ctx)
	if err != nil {
		return 0, err
	}
	q.approxMu.Lock()
	q.approxVal = n
	q.approxAt = q.now()
	q.approxMu.Unlock()
	return n, nil
}

func dedupeInt64(in []int64) []int64 {
	seen := make(map[int64]bool, len(in))
	out := make([]int64, 0, len(in))
	for _, v := range in {
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func placeholdersFor(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func quoteIdent(name string) string { return `"` + name + `"` }

func quoteColumns(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = quoteIdent(c)
	}
	return strings.Join(quoted, ", ")
}

// Store exposes the backing Store so collaborators that need to join
// across two queues' tables in one SQL statement (ioqueue.IOQueue) can
// build that SQL themselves. Both sides of such a join must share a Store.
func (q *AckQueue) Store() *store.Store { return q.st }

// SelectByIDs fetches exactly the given row ids, in ascending id order,
// decoding each into a Record (unflattening arrays), and optionally acks
// them to UNACK in the same transaction. IDs not present in the table are
// silently skipped.
func (q *AckQueue) SelectByIDs(ctx context.Context, ids []int64, ack bool) ([]int64, []types.Record, error) {
	if len(ids) == 0 {
		return nil, nil, nil
	}
	if err := q.applyTimeout(ctx); err != nil {
		return nil, nil, err
	}
	cols := q.columnOrder()
	selectCols := append([]string{"_id"}, cols...)

	tx, err := q.st.DB().BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: begin select on %s: %v", types.ErrStoreError, q.table, err)
	}
	defer tx.Rollback()

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE _id IN (%s) ORDER BY _id ASC`, quoteColumns(selectCols), quoteIdent(q.table), placeholdersFor(len(ids)))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: select by ids from %s: %v", types.ErrStoreError, q.table, err)
	}
	keys, recs, err := scanRows(rows, cols)
	if err != nil {
		return nil, nil, err
	}

	if ack && len(keys) > 0 {
		if err := q.updateKeysTx(ctx, tx, keys, types.StatusUnack); err != nil {
			return nil, nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("%w: commit select by ids on %s: %v", types.ErrStoreError, q.table, err)
	}
	return keys, recs, nil
}

func scanRows(rows *sql.Rows, cols []string) ([]int64, []types.Record, error) {
	defer rows.Close()
	var keys []int64
	var recs []types.Record
	for rows.Next() {
		selectWidth := len(cols) + 1
		raw := make([]interface{}, selectWidth)
		scanDest := make([]interface{}, selectWidth)
		for i := range scanDest {
			scanDest[i] = &raw[i]
		}
		if err := rows.Scan(scanDest...); err != nil {
			return nil, nil, fmt.Errorf("%w: scan row: %v", types.ErrStoreError, err)
		}
		id := toInt64(raw[0])
		rawFields := make(map[string]types.Value, len(cols))
		for i, c := range cols {
			rawFields[c] = driverToValue(raw[i+1])
		}
		rec, err := unflattenRow(rawFields)
		if err != nil {
			return nil, nil, err
		}
		keys = append(keys, id)
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("%w: iterate rows: %v", types.ErrStoreError, err)
	}
	return keys, recs, nil
}
