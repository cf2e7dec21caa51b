package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/flowqio/flowq/internal/driver"
	"github.com/flowqio/flowq/internal/driver/submit"
	"github.com/flowqio/flowq/internal/flowlog"
	"github.com/flowqio/flowq/internal/pipelinecfg"
	"github.com/flowqio/flowq/internal/runtimecfg"
	"github.com/flowqio/flowq/internal/store"
	"github.com/flowqio/flowq/internal/types"
	"github.com/flowqio/flowq/internal/wasmstage"
)

// runtime bundles everything a subcommand needs to open a pipeline's
// backing stores and build a Driver against it. Close must be called when
// done.
type runtime struct {
	cfg         runtimecfg.Config
	pipeline    *pipelinecfg.Pipeline
	queuesStore *store.Store
	tasksStore  *store.Store
	wasmRuntime *wasmstage.Runtime
	log         *slog.Logger
	driver      *driver.Driver
}

func (r *runtime) Close(ctx context.Context) {
	if r.wasmRuntime != nil {
		_ = r.wasmRuntime.Close(ctx)
	}
	if r.queuesStore != nil {
		_ = r.queuesStore.Close()
	}
	if r.tasksStore != nil {
		_ = r.tasksStore.Close()
	}
}

// openPipeline loads the runtime config and pipeline file at pipelinePath,
// opens both backing stores, and registers every declared stage into a
// fresh Driver using built-in stage functions or, when a stage names a
// wasm_module, a sandboxed WASM stage function.
func openPipeline(ctx context.Context, pipelinePath string) (*runtime, error) {
	cfg, err := runtimecfg.Load(runtimeConfigPath)
	if err != nil {
		return nil, err
	}
	pipeline, err := pipelinecfg.Load(pipelinePath)
	if err != nil {
		return nil, err
	}
	log, err := flowlog.New(flowlog.Options{Path: cfg.LogPath, Level: cfg.LogLevel})
	if err != nil {
		return nil, err
	}

	queuesPath := pipeline.QueuesDB
	if queuesPath == "" {
		queuesPath = cfg.QueuesDBPath
	}
	tasksPath := pipeline.TasksDB
	if tasksPath == "" {
		tasksPath = cfg.TasksDBPath
	}

	queuesStore, err := store.Open(ctx, queuesPath)
	if err != nil {
		return nil, err
	}
	tasksStore, err := store.Open(ctx, tasksPath)
	if err != nil {
		_ = queuesStore.Close()
		return nil, err
	}

	wasmRT, err := wasmstage.NewRuntime(ctx)
	if err != nil {
		_ = queuesStore.Close()
		_ = tasksStore.Close()
		return nil, err
	}

	pool := submit.NewPool(cfg.PoolWorkers, cfg.PoolWorkers*4, log)
	d := driver.New(queuesStore, tasksStore, pool)

	r := &runtime{cfg: cfg, pipeline: pipeline, queuesStore: queuesStore, tasksStore: tasksStore, wasmRuntime: wasmRT, log: log, driver: d}

	for _, stage := range pipeline.Stages {
		fn, err := r.resolveStageFunc(ctx, stage)
		if err != nil {
			r.Close(ctx)
			return nil, fmt.Errorf("stage %s: %w", stage.Name, err)
		}
		if _, err := d.Register(ctx, stage.Name, fn, registerOptions(stage)); err != nil {
			r.Close(ctx)
			return nil, fmt.Errorf("register stage %s: %w", stage.Name, err)
		}
	}
	return r, nil
}

func (r *runtime) resolveStageFunc(ctx context.Context, cfg pipelinecfg.StageConfig) (driver.UserFunc, error) {
	if cfg.WASMModule != "" {
		bytes, err := os.ReadFile(cfg.WASMModule)
		if err != nil {
			return nil, fmt.Errorf("read wasm module %s: %w", cfg.WASMModule, err)
		}
		module, err := r.wasmRuntime.LoadModule(ctx, cfg.WASMModule, bytes)
		if err != nil {
			return nil, err
		}
		return module.UserFunc(), nil
	}
	if fn, ok := builtinStageFuncs[cfg.Name]; ok {
		return fn, nil
	}
	return nil, fmt.Errorf("no stage function registered for %q: set wasm_module or name the stage after a built-in", cfg.Name)
}

// builtinStageFuncs are the stage functions flowqctl knows without a WASM
// module — useful for smoke-testing a pipeline file end to end.
var builtinStageFuncs = map[string]driver.UserFunc{
	"passthrough": func(ctx context.Context, batch []types.Record) ([]types.Record, error) {
		return batch, nil
	},
}
