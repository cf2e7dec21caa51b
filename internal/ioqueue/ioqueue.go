// Package ioqueue implements the IO Queue (IOQ): a paired (input, output)
// ack queue with a batch size, the unprocessed-input join that computes
// ready work, and the load/puts/acks/gets surface stage workers use. See
// spec.md §4.2.
package ioqueue

import (
	"context"
	"fmt"

	"github.com/flowqio/flowq/internal/ackqueue"
	"github.com/flowqio/flowq/internal/types"
)

// defaultJoinColumn is the id column joined between input and output when
// the caller does not specify one — the auto-increment primary key on each
// side (spec.md §9 Open Question 4: this couples identity to insertion
// order; callers needing a stable external key must set InputIDColumn /
// OutputIDColumn explicitly).
const defaultJoinColumn = "_id"

// Options configures an IOQueue.
type Options struct {
	BatchSize      int
	InputIDColumn  string // defaults to "_id"
	OutputIDColumn string // defaults to "_id"
}

// IOQueue pairs an input and output AckQueue sharing one backing Store and
// computes ready work as a SQL anti-join between them. Either side may be
// nil: a source stage has no Input, a sink stage has no Output.
type IOQueue struct {
	Input  *ackqueue.AckQueue
	Output *ackqueue.AckQueue

	batchSize      int
	inputIDColumn  string
	outputIDColumn string
}

// New builds an IOQueue over the given input/output AckQueues. When both are
// set they must share the same backing Store (spec.md §6: a pipeline's
// queues.db holds every stage's input and output tables), since the ready
// join is expressed as a single cross-table SQL statement.
func New(input, output *ackqueue.AckQueue, opts Options) *IOQueue {
	inCol := opts.InputIDColumn
	if inCol == "" {
		inCol = defaultJoinColumn
	}
	outCol := opts.OutputIDColumn
	if outCol == "" {
		outCol = defaultJoinColumn
	}
	return &IOQueue{
		Input:          input,
		Output:         output,
		batchSize:      opts.BatchSize,
		inputIDColumn:  inCol,
		outputIDColumn: outCol,
	}
}

// BatchSize returns the configured batch size.
func (q *IOQueue) BatchSize() int { return q.batchSize }

// Load bulk-inserts records into the input queue (initial DAG seeding).
func (q *IOQueue) Load(ctx context.Context, recs []types.Record) ([]int64, error) {
	if q.Input == nil {
		return nil, fmt.Errorf("%w: ioqueue has no input queue to load into", types.ErrInvalidRecord)
	}
	return q.Input.Puts(ctx, recs)
}

// Puts bulk-inserts records into the output queue (called by a worker at
// task end).
func (q *IOQueue) Puts(ctx context.Context, recs []types.Record) ([]int64, error) {
	if q.Output == nil {
		return nil, nil
	}
	return q.Output.Puts(ctx, recs)
}

// Acks acks input-queue keys.
func (q *IOQueue) Acks(ctx context.Context, keys []int64) error {
	if q.Input == nil || len(keys) == 0 {
		return nil
	}
	return q.Input.Acks(ctx, keys, types.StatusAcked)
}

// Gets pulls up to batchSize input rows that are Available (status < UNACK)
// and have no matching row in the output table, marking them UNACK before
// returning. If batchSize <= 0 the queue's configured BatchSize is used.
//
// The join is a single SQL statement (a NOT EXISTS anti-join) run against
// the Store shared by Input and Output, rather than a client-side
// set-difference — this is the same cross-table query shape the record
// store's own schema introspection uses elsewhere in this codebase, applied
// here to two data tables instead of a table and pragma_table_info.
func (q *IOQueue) Gets(ctx context.Context, batchSize int) ([]int64, []types.Record, error) {
	if q.Input == nil {
		return nil, nil, nil
	}
	if batchSize <= 0 {
		batchSize = q.batchSize
	}
	if err := q.applyTimeouts(ctx); err != nil {
		return nil, nil, err
	}

	ids, err := q.readyIDs(ctx, batchSize)
	if err != nil {
		return nil, nil, err
	}
	if len(ids) == 0 {
		return nil, nil, nil
	}
	return q.Input.SelectByIDs(ctx, ids, true)
}

// SizeReady returns the count of input rows that are Available and have no
// matching row in the output table.
func (q *IOQueue) SizeReady(ctx context.Context) (int64, error) {
	if q.Input == nil {
		return 0, nil
	}
	if q.Output == nil {
		return q.Input.Free(ctx)
	}
	if err := q.requireSharedStore(); err != nil {
		return 0, err
	}
	if err := q.applyTimeouts(ctx); err != nil {
		return 0, err
	}

	query := fmt.Sprintf(
		`SELECT COUNT(*) FROM %s AS input WHERE input.status < ? AND NOT EXISTS (
			SELECT 1 FROM %s AS output WHERE output.%s = input.%s
		)`,
		quoteIdent(q.Input.Table()), quoteIdent(q.Output.Table()),
		quoteIdent(q.outputIDColumn), quoteIdent(q.inputIDColumn),
	)
	var n int64
	row := q.Input.Store().DB().QueryRowContext(ctx, query, int64(types.StatusUnack))
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: count ready rows: %v", types.ErrStoreError, err)
	}
	return n, nil
}

// readyIDs returns up to limit input-table ids that are Available and
// unmatched in the output table, ascending by id.
func (q *IOQueue) readyIDs(ctx context.Context, limit int) ([]int64, error) {
	if q.Output == nil {
		keys, _, err := q.Input.Gets(ctx, limit, ackqueue.GetsOptions{Ack: false})
		return keys, err
	}
	if err := q.requireSharedStore(); err != nil {
		return nil, err
	}
	if err := q.applyTimeouts(ctx); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(
		`SELECT input._id FROM %s AS input WHERE input.status < ? AND NOT EXISTS (
			SELECT 1 FROM %s AS output WHERE output.%s = input.%s
		) ORDER BY input._id ASC LIMIT ?`,
		quoteIdent(q.Input.Table()), quoteIdent(q.Output.Table()),
		quoteIdent(q.outputIDColumn), quoteIdent(q.inputIDColumn),
	)
	rows, err := q.Input.Store().DB().QueryContext(ctx, query, int64(types.StatusUnack), limit)
	if err != nil {
		return nil, fmt.Errorf("%w: select ready ids: %v", types.ErrStoreError, err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%w: scan ready id: %v", types.ErrStoreError, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate ready ids: %v", types.ErrStoreError, err)
	}
	return ids, nil
}

// applyTimeouts sweeps the input (and, if set, output) AckQueue's visibility
// timeout before a query runs directly against the shared Store, since a
// direct `q.Input.Store().DB()` query bypasses the sweep AckQueue's own
// public methods apply automatically (spec.md §4.1: every operation that
// takes the connection first calls apply_timeout).
func (q *IOQueue) applyTimeouts(ctx context.Context) error {
	if err := q.Input.ApplyTimeout(ctx); err != nil {
		return err
	}
	if q.Output != nil {
		if err := q.Output.ApplyTimeout(ctx); err != nil {
			return err
		}
	}
	return nil
}

// requireSharedStore rejects the cross-table join when input and output
// don't share a backing Store, since the join is expressed as one SQL
// statement against one connection.
func (q *IOQueue) requireSharedStore() error {
	if q.Input.Store() != q.Output.Store() {
		return fmt.Errorf("%w: ioqueue input and output tables must share a Store to join (%s, %s)",
			types.ErrStoreError, q.Input.Table(), q.Output.Table())
	}
	return nil
}

func quoteIdent(name string) string {
	return `"` + name + `"`
}
