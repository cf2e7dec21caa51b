package submit

import (
	"context"
	"log/slog"
	"sync"
)

type job struct {
	ctx    context.Context
	taskID int64
	fn     func(ctx context.Context) error
}

// Pool is a fixed-size worker-goroutine pool. Submit enqueues the task and
// returns immediately; the task runs on whichever worker goroutine picks it
// up next. A task's error is logged, not returned to the caller, since the
// driver does not wait on asynchronous submitters (spec.md §5: "the core
// must therefore be correct for both 'submit is synchronous' and 'submit is
// asynchronous with arbitrary concurrency'").
//
// Built on a plain channel + sync.WaitGroup rather than golang.org/x/sync's
// errgroup/semaphore: the teacher repo this module is built from does not
// import x/sync, and a fixed worker pool needs nothing an errgroup adds
// beyond what channels already give it.
type Pool struct {
	jobs chan job
	wg   sync.WaitGroup
	log  *slog.Logger

	closeOnce sync.Once
}

// NewPool starts workers goroutines draining a shared job queue of depth
// queueDepth. Pass a nil logger to use slog.Default().
func NewPool(workers, queueDepth int, log *slog.Logger) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if queueDepth < 0 {
		queueDepth = 0
	}
	if log == nil {
		log = slog.Default()
	}
	p := &Pool{jobs: make(chan job, queueDepth), log: log}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for j := range p.jobs {
		if err := j.fn(j.ctx); err != nil {
			p.log.Error("task attempt failed", "task_id", j.taskID, "error", err)
		}
	}
}

// Submit enqueues fn and returns once it is queued (not once it runs).
func (p *Pool) Submit(ctx context.Context, taskID int64, fn func(ctx context.Context) error) error {
	select {
	case p.jobs <- job{ctx: ctx, taskID: taskID, fn: fn}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting new work and waits for in-flight tasks to drain.
func (p *Pool) Close() {
	p.closeOnce.Do(func() { close(p.jobs) })
	p.wg.Wait()
}
