// Package wasmstage runs a stage's user function as a compiled WebAssembly
// module instead of a native Go closure, using tetratelabs/wazero to
// instantiate and invoke it per task attempt. This gives a flowq pipeline a
// sandboxed, language-agnostic stage function: the driver stays ignorant of
// whether a stage's logic is Go or WASM, it just sees a driver.UserFunc.
//
// ABI: a stage module exports "memory", an "alloc(size i32) i32" function
// the host uses to obtain a write buffer inside guest memory, and a
// "process(ptr i32, len i32) (ptr i32, len i32)" function. The host writes
// the input batch as a JSON array at the allocated pointer, calls process,
// and reads the JSON array of output records back from the returned
// pointer/length pair.
package wasmstage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"

	"github.com/flowqio/flowq/internal/types"
)

// Runtime owns one wazero runtime and its compiled-module cache. Create one
// per process; it is safe for concurrent use across stages.
type Runtime struct {
	rt      wazero.Runtime
	mu      sync.Mutex
	modules map[string]wazero.CompiledModule
}

// NewRuntime builds a wazero runtime with WASI preview1 host imports
// registered (most TinyGo/Rust-compiled modules require it even if they
// never touch stdio).
func NewRuntime(ctx context.Context) (*Runtime, error) {
	rt := wazero.NewRuntime(ctx)
	if _, err := wasi_snapshot_preview1.Instantiate(ctx, rt); err != nil {
		_ = rt.Close(ctx)
		return nil, fmt.Errorf("instantiate wasi: %w", err)
	}
	return &Runtime{rt: rt, modules: make(map[string]wazero.CompiledModule)}, nil
}

// Close releases the runtime and every compiled module.
func (r *Runtime) Close(ctx context.Context) error {
	return r.rt.Close(ctx)
}

// LoadModule compiles and caches the module at path (keyed by path) for
// reuse across task attempts; a fresh instance is still created per Call so
// guest memory never leaks state between attempts.
func (r *Runtime) LoadModule(ctx context.Context, path string, wasmBytes []byte) (*Module, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	compiled, ok := r.modules[path]
	if !ok {
		var err error
		compiled, err = r.rt.CompileModule(ctx, wasmBytes)
		if err != nil {
			return nil, fmt.Errorf("compile wasm module %s: %w", path, err)
		}
		r.modules[path] = compiled
	}
	return &Module{runtime: r, compiled: compiled, path: path}, nil
}

// Module is one compiled stage-function module.
type Module struct {
	runtime  *Runtime
	compiled wazero.CompiledModule
	path     string
}

// Call instantiates a fresh instance of the module and runs process on
// batch, returning the records it produced. batch may be nil (source-stage
// task attempts with no input queue).
func (m *Module) Call(ctx context.Context, batch []types.Record) ([]types.Record, error) {
	cfg := wazero.NewModuleConfig().WithName("")
	mod, err := m.runtime.rt.InstantiateModule(ctx, m.compiled, cfg)
	if err != nil {
		return nil, fmt.Errorf("instantiate wasm module %s: %w", m.path, err)
	}
	defer mod.Close(ctx)

	alloc := mod.ExportedFunction("alloc")
	process := mod.ExportedFunction("process")
	mem := mod.Memory()
	if alloc == nil || process == nil || mem == nil {
		return nil, fmt.Errorf("wasm module %s does not export alloc/process/memory", m.path)
	}

	input, err := encodeRecords(batch)
	if err != nil {
		return nil, fmt.Errorf("encode input batch for %s: %w", m.path, err)
	}

	allocRes, err := alloc.Call(ctx, uint64(len(input)))
	if err != nil {
		return nil, fmt.Errorf("alloc %d bytes in %s: %w", len(input), m.path, err)
	}
	inPtr := uint32(allocRes[0])
	if !mem.Write(inPtr, input) {
		return nil, fmt.Errorf("write input batch into %s memory out of bounds", m.path)
	}

	procRes, err := process.Call(ctx, uint64(inPtr), uint64(len(input)))
	if err != nil {
		return nil, fmt.Errorf("call process in %s: %w", m.path, err)
	}
	if len(procRes) != 2 {
		return nil, fmt.Errorf("process in %s must return (ptr, len), got %d values", m.path, len(procRes))
	}
	outPtr, outLen := uint32(procRes[0]), uint32(procRes[1])

	output, ok := mem.Read(outPtr, outLen)
	if !ok {
		return nil, fmt.Errorf("read process() output from %s memory out of bounds", m.path)
	}
	return decodeRecords(output)
}

// UserFunc adapts Call to a driver.UserFunc-shaped closure without this
// package depending on the driver package.
func (m *Module) UserFunc() func(ctx context.Context, batch []types.Record) ([]types.Record, error) {
	return m.Call
}

type wireValue struct {
	Kind  string      `json:"kind"`
	Int   int64       `json:"int,omitempty"`
	Float float64     `json:"float,omitempty"`
	Text  string      `json:"text,omitempty"`
	List  []wireValue `json:"list,omitempty"`
}

func toWire(v types.Value) wireValue {
	switch v.Kind {
	case types.KindInt:
		return wireValue{Kind: "int", Int: v.Int}
	case types.KindFloat:
		return wireValue{Kind: "float", Float: v.Float}
	case types.KindText:
		return wireValue{Kind: "text", Text: v.Text}
	case types.KindList:
		list := make([]wireValue, len(v.List))
		for i, elem := range v.List {
			list[i] = toWire(elem)
		}
		return wireValue{Kind: "list", List: list}
	default:
		return wireValue{Kind: "null"}
	}
}

func fromWire(w wireValue) types.Value {
	switch w.Kind {
	case "int":
		return types.Int(w.Int)
	case "float":
		return types.Float(w.Float)
	case "text":
		return types.Text(w.Text)
	case "list":
		items := make([]types.Value, len(w.List))
		for i, e := range w.List {
			items[i] = fromWire(e)
		}
		return types.List(items...)
	default:
		return types.Null()
	}
}

func encodeRecords(recs []types.Record) ([]byte, error) {
	wire := make([]map[string]wireValue, len(recs))
	for i, r := range recs {
		fields := make(map[string]wireValue, len(r))
		for k, v := range r {
			fields[k] = toWire(v)
		}
		wire[i] = fields
	}
	return json.Marshal(wire)
}

func decodeRecords(data []byte) ([]types.Record, error) {
	var wire []map[string]wireValue
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("decode wasm process() output: %w", err)
	}
	recs := make([]types.Record, len(wire))
	for i, fields := range wire {
		rec := make(types.Record, len(fields))
		for k, w := range fields {
			rec[k] = fromWire(w)
		}
		recs[i] = rec
	}
	return recs, nil
}
