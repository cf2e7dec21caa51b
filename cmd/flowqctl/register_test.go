package main

import (
	"testing"
	"time"

	"github.com/flowqio/flowq/internal/pipelinecfg"
)

func TestRegisterOptionsTranslatesStageConfig(t *testing.T) {
	stage := pipelinecfg.StageConfig{
		Name:            "transform",
		InputQueue:      "links",
		OutputQueue:     "vecs",
		BatchSize:       25,
		UniqueColumn:    "link_id",
		MaxSize:         1000,
		DeleteOnAck:     true,
		InputIDColumn:   "link_id",
		OutputIDColumn:  "link_id",
		TimeoutDuration: 5 * time.Minute,
	}

	opts := registerOptions(stage)

	if opts.InputQueue != "links" || opts.OutputQueue != "vecs" {
		t.Fatalf("queue names not carried over: %+v", opts)
	}
	if opts.BatchSize != 25 {
		t.Fatalf("batch size = %d, want 25", opts.BatchSize)
	}
	if opts.InputIDColumn != "link_id" || opts.OutputIDColumn != "link_id" {
		t.Fatalf("join columns not carried over: %+v", opts)
	}
	if opts.InputAQOptions.UniqueColumn != "link_id" {
		t.Fatalf("input AQ unique column = %q, want link_id", opts.InputAQOptions.UniqueColumn)
	}
	if opts.InputAQOptions.Timeout != 5*time.Minute {
		t.Fatalf("input AQ timeout = %v, want 5m", opts.InputAQOptions.Timeout)
	}
	if opts.OutputAQOptions.MaxSize != 1000 {
		t.Fatalf("output AQ max size = %d, want 1000", opts.OutputAQOptions.MaxSize)
	}
	if !opts.OutputAQOptions.DeleteOnAck {
		t.Fatalf("output AQ delete_on_ack not carried over")
	}
}
