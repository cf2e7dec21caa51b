// Package flowq provides a minimal public API for embedding flowq's
// job-pipeline runtime in another Go program.
//
// Most callers driving a whole pipeline from a YAML file should use
// cmd/flowqctl instead; this package exports the pieces a Go program needs
// to build and run a Driver directly, with native Go stage functions.
package flowq

import (
	"context"

	"github.com/flowqio/flowq/internal/ackqueue"
	"github.com/flowqio/flowq/internal/driver"
	"github.com/flowqio/flowq/internal/driver/submit"
	"github.com/flowqio/flowq/internal/ioqueue"
	"github.com/flowqio/flowq/internal/store"
	"github.com/flowqio/flowq/internal/types"
)

// Record is one row's worth of dynamically-typed fields.
type Record = types.Record

// Value is a dynamically-typed scalar or list field.
type Value = types.Value

// Status is an ack-queue row's lifecycle state.
type Status = types.Status

// Driver is the Job DAG Driver: a named set of stages, each repeatedly
// submitting task attempts until no input remains unjoined to output.
type Driver = driver.Driver

// UserFunc is a stage's business logic: batch in, batch out.
type UserFunc = driver.UserFunc

// RegisterOptions configures a stage at registration time.
type RegisterOptions = driver.RegisterOptions

// Submitter runs a task attempt, synchronously or asynchronously.
type Submitter = submit.Submitter

// Store is an embedded SQLite-backed record store.
type Store = store.Store

// AckQueue is a single durable, ack-tracked queue.
type AckQueue = ackqueue.AckQueue

// IOQueue pairs an input and output AckQueue with the unprocessed-input join.
type IOQueue = ioqueue.IOQueue

// OpenStore opens (creating if absent) the embedded SQLite file at path.
func OpenStore(ctx context.Context, path string) (*Store, error) {
	return store.Open(ctx, path)
}

// NewDriver builds a Driver over the given queues/tasks stores. A nil
// submitter defaults to running every task attempt inline.
func NewDriver(queuesStore, tasksStore *Store, submitter Submitter) *Driver {
	return driver.New(queuesStore, tasksStore, submitter)
}

// InlineSubmitter runs every task attempt synchronously on the calling
// goroutine — the default when no Submitter is supplied.
func InlineSubmitter() Submitter { return submit.Inline{} }

// NewPoolSubmitter builds a fixed-size worker-goroutine Submitter.
func NewPoolSubmitter(workers, queueDepth int) Submitter {
	return submit.NewPool(workers, queueDepth, nil)
}
