package watch_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/flowqio/flowq/internal/driver"
	"github.com/flowqio/flowq/internal/pipelinecfg"
	"github.com/flowqio/flowq/internal/store"
	"github.com/flowqio/flowq/internal/types"
	"github.com/flowqio/flowq/internal/watch"
)

func passthroughResolver(cfg pipelinecfg.StageConfig) (driver.UserFunc, error) {
	return func(ctx context.Context, batch []types.Record) ([]types.Record, error) {
		return batch, nil
	}, nil
}

func newTestDriver(t *testing.T) *driver.Driver {
	t.Helper()
	ctx := context.Background()
	queuesStore, err := store.Open(ctx, filepath.Join(t.TempDir(), "queues.db"))
	if err != nil {
		t.Fatalf("open queues store: %v", err)
	}
	tasksStore, err := store.Open(ctx, filepath.Join(t.TempDir(), "tasks.db"))
	if err != nil {
		t.Fatalf("open tasks store: %v", err)
	}
	t.Cleanup(func() { _ = queuesStore.Close(); _ = tasksStore.Close() })
	return driver.New(queuesStore, tasksStore, nil)
}

func TestNewPerformsInitialSync(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	if err := os.WriteFile(path, []byte("name: p\nstages:\n  - name: a\n"), 0o644); err != nil {
		t.Fatalf("write pipeline: %v", err)
	}

	d := newTestDriver(t)
	w, err := watch.New(ctx, path, d, passthroughResolver, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer w.Close()

	if d.Stage("a") == nil {
		t.Fatalf("stage a not registered by initial sync")
	}
}

func TestSyncOnceIsAdditiveOnly(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	if err := os.WriteFile(path, []byte("name: p\nstages:\n  - name: a\n"), 0o644); err != nil {
		t.Fatalf("write pipeline: %v", err)
	}

	d := newTestDriver(t)
	w, err := watch.New(ctx, path, d, passthroughResolver, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer w.Close()

	stageA := d.Stage("a")
	if stageA == nil {
		t.Fatalf("stage a not registered")
	}

	if err := os.WriteFile(path, []byte("name: p\nstages:\n  - name: a\n  - name: b\n"), 0o644); err != nil {
		t.Fatalf("rewrite pipeline: %v", err)
	}
	if err := w.SyncOnce(ctx); err != nil {
		t.Fatalf("sync once: %v", err)
	}

	if d.Stage("a") != stageA {
		t.Fatalf("re-sync replaced already-known stage a instead of leaving it alone")
	}
	if d.Stage("b") == nil {
		t.Fatalf("new stage b not registered by re-sync")
	}
}

func TestRunReloadsOnFileWrite(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	if err := os.WriteFile(path, []byte("name: p\nstages:\n  - name: a\n"), 0o644); err != nil {
		t.Fatalf("write pipeline: %v", err)
	}

	d := newTestDriver(t)
	w, err := watch.New(ctx, path, d, passthroughResolver, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer w.Close()

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	if err := os.WriteFile(path, []byte("name: p\nstages:\n  - name: a\n  - name: b\n"), 0o644); err != nil {
		t.Fatalf("rewrite pipeline: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for d.Stage("b") == nil && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if d.Stage("b") == nil {
		t.Fatalf("stage b not registered after file write within deadline")
	}

	cancel()
	<-done
}
