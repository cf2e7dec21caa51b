package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/flowqio/flowq/internal/driver"
	"github.com/flowqio/flowq/internal/driver/submit"
	"github.com/flowqio/flowq/internal/flowlog"
	"github.com/flowqio/flowq/internal/pipelinecfg"
	"github.com/flowqio/flowq/internal/runtimecfg"
	"github.com/flowqio/flowq/internal/store"
	"github.com/flowqio/flowq/internal/wasmstage"
	"github.com/flowqio/flowq/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch <pipeline.yaml>",
	Short: "Run a pipeline continuously, hot-reloading new stages from the file",
	Long: `Like run, but never exits: after each run_once pass it keeps watching
the pipeline file for changes and registers any newly-added stage into the
same running Driver. Stages already registered are never re-registered or
removed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWatch(cmd.Context(), args[0])
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(ctx context.Context, pipelinePath string) error {
	cfg, err := runtimecfg.Load(runtimeConfigPath)
	if err != nil {
		return err
	}
	log, err := flowlog.New(flowlog.Options{Path: cfg.LogPath, Level: cfg.LogLevel})
	if err != nil {
		return err
	}

	firstPass, err := pipelinecfg.Load(pipelinePath)
	if err != nil {
		return err
	}
	queuesPath := firstPass.QueuesDB
	if queuesPath == "" {
		queuesPath = cfg.QueuesDBPath
	}
	tasksPath := firstPass.TasksDB
	if tasksPath == "" {
		tasksPath = cfg.TasksDBPath
	}

	queuesStore, err := store.Open(ctx, queuesPath)
	if err != nil {
		return err
	}
	defer queuesStore.Close()
	tasksStore, err := store.Open(ctx, tasksPath)
	if err != nil {
		return err
	}
	defer tasksStore.Close()

	wasmRT, err := wasmstage.NewRuntime(ctx)
	if err != nil {
		return err
	}
	defer wasmRT.Close(ctx)

	pool := submit.NewPool(cfg.PoolWorkers, cfg.PoolWorkers*4, log)
	d := driver.New(queuesStore, tasksStore, pool)

	resolver := func(stage pipelinecfg.StageConfig) (driver.UserFunc, error) {
		if stage.WASMModule != "" {
			bytes, err := os.ReadFile(stage.WASMModule)
			if err != nil {
				return nil, err
			}
			module, err := wasmRT.LoadModule(ctx, stage.WASMModule, bytes)
			if err != nil {
				return nil, err
			}
			return module.UserFunc(), nil
		}
		if fn, ok := builtinStageFuncs[stage.Name]; ok {
			return fn, nil
		}
		return nil, fmt.Errorf("no stage function registered for %q: set wasm_module or name the stage after a built-in", stage.Name)
	}

	w, err := watch.New(ctx, pipelinePath, d, resolver, log)
	if err != nil {
		return err
	}
	defer w.Close()

	go func() {
		if err := w.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error("pipeline watcher stopped", "error", err)
		}
	}()

	log.Info("watching pipeline", "path", pipelinePath)
	for {
		if err := d.RunOnce(ctx); err != nil {
			return fmt.Errorf("run_once: %w", err)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		// spec.md §5 spins run_once with no sleep but explicitly allows a
		// tiny idle backoff when every stage is quiescent; without it this
		// loop would otherwise busy-poll forever waiting for new input.
		idle, err := allStagesQuiescent(ctx, d)
		if err != nil {
			return err
		}
		if idle {
			time.Sleep(200 * time.Millisecond)
		}
	}
}

func allStagesQuiescent(ctx context.Context, d *driver.Driver) (bool, error) {
	for _, stage := range d.Stages() {
		ready, err := stage.IOQueue().SizeReady(ctx)
		if err != nil {
			return false, err
		}
		if ready != 0 {
			return false, nil
		}
	}
	return true, nil
}
