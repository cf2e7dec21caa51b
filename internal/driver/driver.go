// Package driver implements the Job DAG Driver (JDD): the top-level
// scheduler that holds a named set of stages, each a (IOQ, user function,
// task-tracking AckQueue) triple, and repeatedly submits task attempts until
// every stage reports no ready work. See spec.md §4.3.
//
// A Driver instance holds all of its state on the struct, never in package
// globals — two Drivers against two different database files never share
// so much as a counter.
package driver

import (
	"context"
	"fmt"

	"github.com/flowqio/flowq/internal/ackqueue"
	"github.com/flowqio/flowq/internal/driver/submit"
	"github.com/flowqio/flowq/internal/ioqueue"
	"github.com/flowqio/flowq/internal/store"
	"github.com/flowqio/flowq/internal/types"
)

// RegisterOptions configures a stage at registration time.
type RegisterOptions struct {
	// InputQueue/OutputQueue name the tables in the queues Store this stage
	// reads from / writes to. Leave InputQueue empty for a source stage,
	// OutputQueue empty for a sink stage.
	InputQueue  string
	OutputQueue string

	BatchSize int

	InputAQOptions  ackqueue.Options
	OutputAQOptions ackqueue.Options
	TasksAQOptions  ackqueue.Options

	// InputIDColumn/OutputIDColumn override the IOQ join columns (default "_id").
	InputIDColumn  string
	OutputIDColumn string
}

// Driver holds every registered stage and the injected Submitter used to
// run task attempts.
type Driver struct {
	queuesStore *store.Store
	tasksStore  *store.Store
	submitter   submit.Submitter

	stages map[string]*Stage
	order  []string
}

// New builds a Driver. queuesStore backs every stage's input/output tables;
// tasksStore backs every stage's task-attempt table (spec.md §6: the two
// files "queues.db" and "tasks.db"). A nil submitter defaults to
// submit.Inline{}.
func New(queuesStore, tasksStore *store.Store, submitter submit.Submitter) *Driver {
	if submitter == nil {
		submitter = submit.Inline{}
	}
	return &Driver{
		queuesStore: queuesStore,
		tasksStore:  tasksStore,
		submitter:   submitter,
		stages:      make(map[string]*Stage),
	}
}

// Register attaches fn to name, constructing its IOQ and tasks_<name>
// ack queue. Registration order is preserved and drives run_once's stage
// iteration order (spec.md §4.3).
func (d *Driver) Register(ctx context.Context, name string, fn UserFunc, opts RegisterOptions) (*Stage, error) {
	if _, exists := d.stages[name]; exists {
		return nil, fmt.Errorf("%w: stage %q already registered", types.ErrInvalidRecord, name)
	}

	var inputAQ, outputAQ *ackqueue.AckQueue
	var err error
	if opts.InputQueue != "" {
		inputAQ, err = ackqueue.New(ctx, d.queuesStore, opts.InputQueue, opts.InputAQOptions)
		if err != nil {
			return nil, fmt.Errorf("stage %s: input queue: %w", name, err)
		}
	}
	if opts.OutputQueue != "" {
		outputAQ, err = ackqueue.New(ctx, d.queuesStore, opts.OutputQueue, opts.OutputAQOptions)
		if err != nil {
			return nil, fmt.Errorf("stage %s: output queue: %w", name, err)
		}
	}

	tasksAQ, err := ackqueue.New(ctx, d.tasksStore, "tasks_"+name, opts.TasksAQOptions)
	if err != nil {
		return nil, fmt.Errorf("stage %s: tasks queue: %w", name, err)
	}

	ioq := ioqueue.New(inputAQ, outputAQ, ioqueue.Options{
		BatchSize:      opts.BatchSize,
		InputIDColumn:  opts.InputIDColumn,
		OutputIDColumn: opts.OutputIDColumn,
	})

	stage := &Stage{name: name, ioq: ioq, fn: fn, tasksAQ: tasksAQ}
	d.stages[name] = stage
	d.order = append(d.order, name)
	return stage, nil
}

// Stage returns the named stage, or nil if no stage with that name is registered.
func (d *Driver) Stage(name string) *Stage { return d.stages[name] }

// Stages returns every registered stage in registration order.
func (d *Driver) Stages() []*Stage {
	out := make([]*Stage, len(d.order))
	for i, name := range d.order {
		out[i] = d.stages[name]
	}
	return out
}

// RunOnce performs one driver pass: for each stage in registration order,
// compute how many task attempts are needed to drain its ready work at the
// current batch size, and submit attempts while need >= active (spec.md
// §4.3's deliberately over-submitting policy, preserved as specified).
func (d *Driver) RunOnce(ctx context.Context) error {
	for _, name := range d.order {
		if err := d.runStageOnce(ctx, d.stages[name]); err != nil {
			return fmt.Errorf("stage %s: %w", name, err)
		}
	}
	return nil
}

func (d *Driver) runStageOnce(ctx context.Context, stage *Stage) error {
	delta, err := stage.ioq.SizeReady(ctx)
	if err != nil {
		return err
	}
	batchSize := stage.ioq.BatchSize()
	if batchSize <= 0 {
		batchSize = 1
	}
	need := ceilDiv(delta, int64(batchSize))

	active, err := stage.tasksAQ.Active(ctx)
	if err != nil {
		return err
	}

	for need >= active {
		taskIndex := stage.nextTaskIndex()
		key, err := stage.tasksAQ.Put(ctx, types.Record{"task_index": types.Int(taskIndex)})
		if err != nil {
			return fmt.Errorf("submit task attempt %d: %w", taskIndex, err)
		}
		if err := d.submitter.Submit(ctx, key, func(ctx context.Context) error {
			return stage.runAttempt(ctx, key)
		}); err != nil {
			return fmt.Errorf("submit task attempt %d: %w", taskIndex, err)
		}
		active++
	}
	return nil
}

// RunUntilComplete loops RunOnce until every stage reports size_ready == 0.
// This is a quiescence check on unjoined input, not a requirement that the
// tasks queues are fully drained (spec.md §4.3).
func (d *Driver) RunUntilComplete(ctx context.Context) error {
	for {
		if err := d.RunOnce(ctx); err != nil {
			return err
		}
		quiescent, err := d.allQuiescent(ctx)
		if err != nil {
			return err
		}
		if quiescent {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
}

func (d *Driver) allQuiescent(ctx context.Context) (bool, error) {
	for _, name := range d.order {
		ready, err := d.stages[name].ioq.SizeReady(ctx)
		if err != nil {
			return false, err
		}
		if ready != 0 {
			return false, nil
		}
	}
	return true, nil
}

func ceilDiv(a, b int64) int64 {
	if a <= 0 {
		return 0
	}
	return (a + b - 1) / b
}
