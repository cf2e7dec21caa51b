package driver

import (
	"context"
	"fmt"

	"github.com/flowqio/flowq/internal/ackqueue"
	"github.com/flowqio/flowq/internal/ioqueue"
	"github.com/flowqio/flowq/internal/types"
)

// UserFunc is a stage's business logic. batch is nil for a stage with no
// input queue (a source stage, called once per task attempt with no
// argument per spec.md §4.3). The returned records are written to the
// stage's output queue, if it has one.
type UserFunc func(ctx context.Context, batch []types.Record) ([]types.Record, error)

// Stage is one registered {IOQ, user function, task-tracking AQ} triple.
// tasksAQ tracks task ATTEMPTS, one row per submission, acked through
// UNACK -> ACK_DONE — not the data rows flowing through IOQ.
type Stage struct {
	name    string
	ioq     *ioqueue.IOQueue
	fn      UserFunc
	tasksAQ *ackqueue.AckQueue

	taskIndex int64
}

// Name returns the stage's registration key.
func (s *Stage) Name() string { return s.name }

// IOQueue exposes the stage's paired input/output queue.
func (s *Stage) IOQueue() *ioqueue.IOQueue { return s.ioq }

// TasksQueue exposes the AckQueue tracking this stage's task attempts.
func (s *Stage) TasksQueue() *ackqueue.AckQueue { return s.tasksAQ }

// SetInputs seeds the stage's input queue (spec.md §6: "stage(name).set_inputs(records)").
func (s *Stage) SetInputs(ctx context.Context, recs []types.Record) ([]int64, error) {
	return s.ioq.Load(ctx, recs)
}

// GetOutputs pulls up to n records from the output queue. Per spec.md §6,
// this is "non-destructive" in the sense that it never deletes rows, but it
// still marks the rows UNACK via the output AQ's default Gets — a
// deliberately preserved quirk (spec.md §9 Open Question 5): calling
// GetOutputs repeatedly without separately acking will eventually exhaust
// what a second caller can see until the visibility timeout elapses.
func (s *Stage) GetOutputs(ctx context.Context, n int) ([]int64, []types.Record, error) {
	if s.ioq.Output == nil {
		return nil, nil, nil
	}
	return s.ioq.Output.Gets(ctx, n, ackqueue.DefaultGetsOptions())
}

// runAttempt is the wrapped_fn of spec.md §4.3: mark the task attempt
// in-flight, pull a batch (if any), run the user function, write its
// output (if any), then mark the attempt done. The wrapper does not ack
// input rows on success — that happens implicitly via the IOQ join.
func (s *Stage) runAttempt(ctx context.Context, taskRowKey int64) error {
	if err := s.tasksAQ.Updates(ctx, []int64{taskRowKey}, types.StatusUnack); err != nil {
		return fmt.Errorf("mark task attempt %d in-flight: %w", taskRowKey, err)
	}

	var batch []types.Record
	if s.ioq.Input != nil {
		_, recs, err := s.ioq.Gets(ctx, 0)
		if err != nil {
			return fmt.Errorf("stage %s: get batch: %w", s.name, err)
		}
		batch = recs
	}

	result, err := s.fn(ctx, batch)
	if err != nil {
		return fmt.Errorf("stage %s: user function: %w", s.name, err)
	}

	if s.ioq.Output != nil && len(result) > 0 {
		if _, err := s.ioq.Puts(ctx, result); err != nil {
			return fmt.Errorf("stage %s: put results: %w", s.name, err)
		}
	}

	if err := s.tasksAQ.Acks(ctx, []int64{taskRowKey}, types.StatusAckDone); err != nil {
		return fmt.Errorf("mark task attempt %d done: %w", taskRowKey, err)
	}
	return nil
}

// nextTaskIndex returns the stage's monotonic per-stage attempt counter,
// starting at 0, incrementing it for the next call.
func (s *Stage) nextTaskIndex() int64 {
	idx := s.taskIndex
	s.taskIndex++
	return idx
}
