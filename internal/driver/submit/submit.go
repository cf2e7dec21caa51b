// Package submit provides the pluggable task-submission strategies the Job
// DAG Driver calls to run a stage's wrapped function: run it on the calling
// goroutine (Inline) or hand it to a worker pool (Pool). See spec.md §4.3's
// "Submit contract".
package submit

import "context"

// Submitter runs fn for the given task id. It must eventually call fn at
// most once. Implementations may run fn synchronously or hand it off to
// other goroutines/processes; the driver never depends on which.
type Submitter interface {
	Submit(ctx context.Context, taskID int64, fn func(ctx context.Context) error) error
}

// Inline runs fn synchronously on the calling goroutine — the default,
// matching spec.md §5's "default submit runs the task synchronously on the
// calling thread."
type Inline struct{}

func (Inline) Submit(ctx context.Context, taskID int64, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
