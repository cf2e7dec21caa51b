package wasmstage

import (
	"context"

	"github.com/flowqio/flowq/internal/driver/submit"
)

// Submitter wraps an inner Submitter (typically submit.Inline{} or a
// *submit.Pool) to run task attempts whose stage function is a WASM module.
// The actual module invocation lives in a stage's UserFunc (built with
// Module.UserFunc) rather than here: Submitter only controls WHERE that
// call runs — inline, on a pool worker — which keeps the driver's
// concurrency policy independent of whether a stage is Go or WASM.
type Submitter struct {
	Inner submit.Submitter
}

// NewSubmitter builds a Submitter delegating to inner, defaulting to
// submit.Inline{} when inner is nil.
func NewSubmitter(inner submit.Submitter) Submitter {
	if inner == nil {
		inner = submit.Inline{}
	}
	return Submitter{Inner: inner}
}

func (s Submitter) Submit(ctx context.Context, taskID int64, fn func(ctx context.Context) error) error {
	return s.Inner.Submit(ctx, taskID, fn)
}
