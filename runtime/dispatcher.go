package runtime

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	wasmbridge "github.com/wippyai/wasm-bridge"
	"github.com/wippyai/wasm-bridge/errors"
	"github.com/wippyai/wasm-bridge/resource"
	"github.com/wippyai/wasm-bridge/transcoder"
)

// Memory is the guest memory the dispatcher reads argument buffers from and
// writes text results into. memory.Bridge implements it.
type Memory interface {
	wasmbridge.Memory
	wasmbridge.Allocator
}

// Dispatcher invokes registered functions with decoded guest arguments and
// marshals their results back.
type Dispatcher struct {
	mem      Memory
	arena    *resource.Arena
	registry *Registry
	decoder  *transcoder.Decoder
	logger   *zap.Logger
}

// NewDispatcher creates a dispatcher. Externref arguments resolve through
// arena and object results are stored in it.
func NewDispatcher(mem Memory, arena *resource.Arena, registry *Registry, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		mem:      mem,
		arena:    arena,
		registry: registry,
		decoder:  transcoder.NewDecoder(mem, arena),
		logger:   logger,
	}
}

// Invoke reads length bytes at ptr as an argument buffer and calls handle.
func (d *Dispatcher) Invoke(ctx context.Context, handle, ptr, length uint32) (any, error) {
	if d.mem == nil {
		return nil, errors.NotInitialized(errors.PhaseDispatch, "guest memory")
	}
	buf, err := d.mem.Read(ptr, length)
	if err != nil {
		return nil, err
	}
	return d.InvokeArgs(ctx, handle, buf)
}

// InvokeArgs decodes buf and calls handle with the result.
func (d *Dispatcher) InvokeArgs(ctx context.Context, handle uint32, buf []byte) (any, error) {
	args, err := d.decoder.Decode(buf)
	if err != nil {
		return nil, err
	}
	fn, ok := d.registry.Lookup(handle)
	if !ok {
		return nil, errors.OutOfBounds(errors.PhaseDispatch, int(handle), d.registry.Len())
	}

	if ce := d.logger.Check(zap.DebugLevel, "invoke"); ce != nil {
		ce.Write(zap.Uint32("handle", handle), zap.Int("args", len(args)))
	}

	res, err := fn(ctx, args)
	if err != nil {
		if _, ok := err.(*errors.Error); ok {
			return nil, err
		}
		return nil, errors.Wrap(errors.PhaseDispatch, errors.KindCallFailed, err, fmt.Sprintf("function %d", handle))
	}
	return res, nil
}

// InvokeVoid calls handle and discards the result.
func (d *Dispatcher) InvokeVoid(ctx context.Context, handle, ptr, length uint32) error {
	_, err := d.Invoke(ctx, handle, ptr, length)
	return err
}

// InvokeObject calls handle and stores its result in the arena.
// An empty result is a contract violation.
func (d *Dispatcher) InvokeObject(ctx context.Context, handle, ptr, length uint32) (resource.Handle, error) {
	res, err := d.Invoke(ctx, handle, ptr, length)
	if err != nil {
		return 0, err
	}
	if resource.IsEmpty(res) {
		return 0, errors.EmptyResult(handle, "an object")
	}
	return d.arena.Create(res), nil
}

// InvokeBool calls handle and reports the truthiness of its result.
func (d *Dispatcher) InvokeBool(ctx context.Context, handle, ptr, length uint32) (bool, error) {
	res, err := d.Invoke(ctx, handle, ptr, length)
	if err != nil {
		return false, err
	}
	return Truthy(res), nil
}

// InvokeInt calls handle and returns its integer result.
func (d *Dispatcher) InvokeInt(ctx context.Context, handle, ptr, length uint32) (int64, error) {
	res, err := d.Invoke(ctx, handle, ptr, length)
	if err != nil {
		return 0, err
	}
	return ToInt64(res)
}

// InvokeFloat calls handle and returns its numeric result as float64.
func (d *Dispatcher) InvokeFloat(ctx context.Context, handle, ptr, length uint32) (float64, error) {
	res, err := d.Invoke(ctx, handle, ptr, length)
	if err != nil {
		return 0, err
	}
	return ToFloat64(res)
}

// InvokeText calls handle, writes its result as UTF-8 into a new guest
// allocation and returns the allocation id. An empty result is a contract
// violation.
func (d *Dispatcher) InvokeText(ctx context.Context, handle, ptr, length uint32) (uint32, error) {
	res, err := d.Invoke(ctx, handle, ptr, length)
	if err != nil {
		return 0, err
	}
	if resource.IsEmpty(res) {
		return 0, errors.EmptyResult(handle, "text")
	}
	return d.mem.WriteText(ctx, ToText(res))
}

// Truthy applies script truthiness: empty values, false, zero, NaN and the
// empty string are false, everything else is true.
func Truthy(v any) bool {
	switch v := v.(type) {
	case nil, resource.UndefinedValue:
		return false
	case bool:
		return v
	case float64:
		return v != 0 && !math.IsNaN(v)
	case float32:
		return v != 0 && !math.IsNaN(float64(v))
	case int64:
		return v != 0
	case int:
		return v != 0
	case int32:
		return v != 0
	case uint32:
		return v != 0
	case uint64:
		return v != 0
	case string:
		return v != ""
	default:
		return true
	}
}

// ToInt64 converts a result to int64. Integers pass through unchanged,
// floats truncate toward zero and booleans become 0 or 1. NaN is 0 and
// out-of-range floats saturate.
func ToInt64(v any) (int64, error) {
	switch v := v.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case uint64:
		return int64(v), nil
	case float64:
		switch {
		case math.IsNaN(v):
			return 0, nil
		case v >= math.MaxInt64:
			return math.MaxInt64, nil
		case v <= math.MinInt64:
			return math.MinInt64, nil
		}
		return int64(v), nil
	case float32:
		return ToInt64(float64(v))
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, errors.TypeMismatch(errors.PhaseEncode, fmt.Sprintf("%T", v), "integer")
	}
}

// ToFloat64 converts a numeric or boolean result to float64.
func ToFloat64(v any) (float64, error) {
	switch v := v.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case uint32:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case resource.UndefinedValue:
		return math.NaN(), nil
	default:
		return 0, errors.TypeMismatch(errors.PhaseEncode, fmt.Sprintf("%T", v), "number")
	}
}

// ToText formats a result as text.
func ToText(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}
