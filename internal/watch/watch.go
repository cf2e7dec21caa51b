// Package watch hot-reloads a running Driver's stage set from a pipeline
// YAML file as it changes on disk, the way the teacher's own file watcher
// reacts to JSONL/git-ref changes. Reloading is additive only: stages
// already registered on the Driver instance are left alone, since the
// driver holds no state the watcher could safely mutate behind a
// currently-executing task attempt's back.
package watch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fsnotify/fsnotify"

	"github.com/flowqio/flowq/internal/ackqueue"
	"github.com/flowqio/flowq/internal/driver"
	"github.com/flowqio/flowq/internal/pipelinecfg"
)

// Resolver produces the Go-side user function for a stage config — a
// lookup by name into a registry of built-in stage functions, or a WASM
// module load when cfg.WASMModule is set.
type Resolver func(cfg pipelinecfg.StageConfig) (driver.UserFunc, error)

// Watcher reloads path into d whenever the file changes, registering any
// stage name not already present on d.
type Watcher struct {
	path     string
	d        *driver.Driver
	resolve  Resolver
	log      *slog.Logger
	fsw      *fsnotify.Watcher
	known    map[string]bool
}

// New builds a Watcher and performs one synchronous initial sync of path's
// current contents before returning, so the caller's driver is populated
// even if it never calls Run.
func New(ctx context.Context, path string, d *driver.Driver, resolve Resolver, log *slog.Logger) (*Watcher, error) {
	if log == nil {
		log = slog.Default()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	if err := fsw.Add(path); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", path, err)
	}

	w := &Watcher{path: path, d: d, resolve: resolve, log: log, fsw: fsw, known: make(map[string]bool)}
	if err := w.SyncOnce(ctx); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

// Close stops watching.
func (w *Watcher) Close() error { return w.fsw.Close() }

// SyncOnce parses the pipeline file and registers any stage not already
// known to this Watcher instance or already registered on its Driver.
func (w *Watcher) SyncOnce(ctx context.Context) error {
	pipeline, err := pipelinecfg.Load(w.path)
	if err != nil {
		return err
	}
	for _, stage := range pipeline.Stages {
		if w.known[stage.Name] || w.d.Stage(stage.Name) != nil {
			continue
		}
		fn, err := w.resolve(stage)
		if err != nil {
			return fmt.Errorf("resolve stage function for %s: %w", stage.Name, err)
		}
		if _, err := w.d.Register(ctx, stage.Name, fn, registerOptionsFor(stage)); err != nil {
			return fmt.Errorf("register stage %s: %w", stage.Name, err)
		}
		w.known[stage.Name] = true
		w.log.Info("registered stage from pipeline config", "stage", stage.Name)
	}
	return nil
}

// Run blocks, reacting to write/create events on the watched file until ctx
// is cancelled or the underlying watcher's event channel closes. Errors
// from a single reload attempt are logged and do not stop the loop —
// a transiently invalid file (mid-write) should not kill the process.
func (w *Watcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := w.SyncOnce(ctx); err != nil {
				w.log.Error("pipeline config reload failed", "path", w.path, "error", err)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Error("file watcher error", "path", w.path, "error", err)
		}
	}
}

func registerOptionsFor(stage pipelinecfg.StageConfig) driver.RegisterOptions {
	aqOpts := ackqueue.Options{
		UniqueColumn: stage.UniqueColumn,
		Timeout:      stage.TimeoutDuration,
		MaxSize:      stage.MaxSize,
		DeleteOnAck:  stage.DeleteOnAck,
	}
	return driver.RegisterOptions{
		InputQueue:      stage.InputQueue,
		OutputQueue:     stage.OutputQueue,
		BatchSize:       stage.BatchSize,
		InputIDColumn:   stage.InputIDColumn,
		OutputIDColumn:  stage.OutputIDColumn,
		InputAQOptions:  aqOpts,
		OutputAQOptions: aqOpts,
	}
}
