package ioqueue_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/flowqio/flowq/internal/ackqueue"
	"github.com/flowqio/flowq/internal/ioqueue"
	"github.com/flowqio/flowq/internal/store"
	"github.com/flowqio/flowq/internal/types"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	ctx := context.Background()
	st, err := store.Open(ctx, filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

// TestJoinIdempotenceScenarioS4 reproduces spec.md §8's S4: a short
// visibility timeout recycles gets() results while size_ready stays
// nonzero, but once the batch is joined into the output table size_ready
// drops to zero regardless of the input rows' own status.
func TestJoinIdempotenceScenarioS4(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	inq, err := ackqueue.New(ctx, st, "inq", ackqueue.Options{Timeout: time.Microsecond})
	if err != nil {
		t.Fatalf("New inq: %v", err)
	}
	outq, err := ackqueue.New(ctx, st, "outq", ackqueue.Options{})
	if err != nil {
		t.Fatalf("New outq: %v", err)
	}
	q := ioqueue.New(inq, outq, ioqueue.Options{BatchSize: 50})

	recs := make([]types.Record, 25)
	for i := range recs {
		recs[i] = types.Record{"n": types.Int(int64(i))}
	}
	if _, err := q.Load(ctx, recs); err != nil {
		t.Fatalf("load: %v", err)
	}

	keys, items, err := q.Gets(ctx, 50)
	if err != nil {
		t.Fatalf("gets: %v", err)
	}
	if len(keys) != 25 {
		t.Fatalf("gets returned %d, want 25", len(keys))
	}

	time.Sleep(5 * time.Millisecond)
	ready, err := q.SizeReady(ctx)
	if err != nil {
		t.Fatalf("size_ready: %v", err)
	}
	if ready != 25 {
		t.Fatalf("size_ready after timeout recycle = %d, want 25", ready)
	}

	if _, err := q.Puts(ctx, items); err != nil {
		t.Fatalf("puts: %v", err)
	}
	ready, err = q.SizeReady(ctx)
	if err != nil {
		t.Fatalf("size_ready after puts: %v", err)
	}
	if ready != 0 {
		t.Fatalf("size_ready after puts = %d, want 0", ready)
	}
}

func TestGetsExcludesAlreadyProduced(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	inq, err := ackqueue.New(ctx, st, "in2", ackqueue.Options{})
	if err != nil {
		t.Fatalf("New in2: %v", err)
	}
	outq, err := ackqueue.New(ctx, st, "out2", ackqueue.Options{})
	if err != nil {
		t.Fatalf("New out2: %v", err)
	}
	q := ioqueue.New(inq, outq, ioqueue.Options{BatchSize: 10})

	recs := make([]types.Record, 10)
	for i := range recs {
		recs[i] = types.Record{"n": types.Int(int64(i))}
	}
	if _, err := q.Load(ctx, recs); err != nil {
		t.Fatalf("load: %v", err)
	}

	keys, items, err := q.Gets(ctx, 10)
	if err != nil {
		t.Fatalf("gets 1: %v", err)
	}
	if len(keys) != 10 {
		t.Fatalf("gets 1 returned %d, want 10", len(keys))
	}
	if _, err := q.Puts(ctx, items); err != nil {
		t.Fatalf("puts: %v", err)
	}

	if err := inq.Updates(ctx, keys, types.StatusReady); err != nil {
		t.Fatalf("reset input rows to ready: %v", err)
	}

	_, items2, err := q.Gets(ctx, 10)
	if err != nil {
		t.Fatalf("gets 2: %v", err)
	}
	if len(items2) != 0 {
		t.Fatalf("gets 2 returned %d records, want 0 (already produced)", len(items2))
	}
}

func TestSinkStageSizeReadyUsesFreeCount(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)
	inq, err := ackqueue.New(ctx, st, "sink", ackqueue.Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	q := ioqueue.New(inq, nil, ioqueue.Options{BatchSize: 5})

	if _, err := q.Load(ctx, []types.Record{{"n": types.Int(1)}, {"n": types.Int(2)}}); err != nil {
		t.Fatalf("load: %v", err)
	}
	ready, err := q.SizeReady(ctx)
	if err != nil {
		t.Fatalf("size_ready: %v", err)
	}
	if ready != 2 {
		t.Fatalf("size_ready = %d, want 2", ready)
	}
}
