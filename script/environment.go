package script

import (
	"context"
	"fmt"
	"strings"

	"github.com/dop251/goja"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wippyai/wasm-bridge/errors"
	"github.com/wippyai/wasm-bridge/resource"
)

// Func is a compiled host function.
type Func func(ctx context.Context, args []any) (any, error)

// maxExactInt is the largest magnitude a script number holds exactly.
const maxExactInt = 1 << 53

// wideInt carries an int64 that a script number would round. Scripts see a
// Number object whose arithmetic is approximate; handing it back unchanged
// returns the exact integer.
type wideInt int64

// Option configures an Environment.
type Option func(*Environment)

// WithLogger routes console output to logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Environment) {
		e.logger = logger
	}
}

// Environment compiles host functions from source text and runs them on a
// single goja runtime. Like goja itself it is not safe for concurrent use.
type Environment struct {
	vm       *goja.Runtime
	logger   *zap.Logger
	document *goja.Object
	body     *goja.Object
}

// New creates an environment with window, document and console installed.
func New(opts ...Option) *Environment {
	e := &Environment{
		vm:     goja.New(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}

	global := e.vm.GlobalObject()
	e.body = e.vm.NewObject()
	e.document = e.vm.NewObject()
	_ = e.document.Set("body", e.body)

	_ = global.Set("window", global)
	_ = global.Set("document", e.document)
	_ = global.Set("console", e.newConsole())
	return e
}

// Runtime exposes the underlying goja runtime.
func (e *Environment) Runtime() *goja.Runtime {
	return e.vm
}

// Reserved returns the objects backing the reserved arena handles.
func (e *Environment) Reserved() resource.Reserved {
	global := e.vm.GlobalObject()
	return resource.Reserved{
		Global:   global,
		Window:   global,
		Document: e.document,
		Body:     e.body,
	}
}

// Set installs a global. Go functions become callable from compiled code.
func (e *Environment) Set(name string, value any) error {
	if err := e.vm.Set(name, value); err != nil {
		return errors.Wrap(errors.PhaseRegister, errors.KindInvalidInput, err, "set global "+name)
	}
	return nil
}

// Compile evaluates source as an expression that must produce a function.
// The source is trusted; nothing sandboxes the compiled code.
func (e *Environment) Compile(source string) (Func, error) {
	v, err := e.vm.RunString("(" + source + "\n)")
	if err != nil {
		return nil, errors.New(errors.PhaseRegister, errors.KindCompile).
			Detail("evaluate source").
			Cause(err).
			Build()
	}
	fn, ok := goja.AssertFunction(v)
	if !ok {
		return nil, errors.New(errors.PhaseRegister, errors.KindCompile).
			GoType(fmt.Sprintf("%T", v.Export())).
			Detail("source does not evaluate to a function").
			Build()
	}

	return func(_ context.Context, args []any) (any, error) {
		vals := make([]goja.Value, len(args))
		for i, arg := range args {
			vals[i] = e.toValue(arg)
		}
		res, err := fn(goja.Undefined(), vals...)
		if err != nil {
			return nil, errors.Wrap(errors.PhaseDispatch, errors.KindCallFailed, err, "call compiled function")
		}
		return e.export(res), nil
	}, nil
}

func (e *Environment) toValue(v any) goja.Value {
	switch v := v.(type) {
	case resource.UndefinedValue:
		return goja.Undefined()
	case nil:
		return goja.Null()
	case goja.Value:
		return v
	case int64:
		if v > maxExactInt || v < -maxExactInt {
			return e.vm.ToValue(wideInt(v))
		}
		return e.vm.ToValue(v)
	default:
		return e.vm.ToValue(v)
	}
}

// export converts a result to Go. Script objects stay *goja.Object so that
// the same object handed back later is still the same object.
//
// Scripts have a single number type, so a number result is int64 when its
// value is integral and float64 otherwise, whichever Go type it entered as.
// Integers outside the exact range come back as int64 only if the script
// returned the value it received without doing arithmetic on it.
func (e *Environment) export(v goja.Value) any {
	if v == nil || goja.IsUndefined(v) {
		return resource.Undefined
	}
	if goja.IsNull(v) {
		return nil
	}
	obj, ok := v.(*goja.Object)
	if !ok {
		return v.Export()
	}
	switch exported := obj.Export().(type) {
	case map[string]any, []any, func(goja.FunctionCall) goja.Value, nil:
		return obj
	case wideInt:
		return int64(exported)
	default:
		// Wrapped Go value.
		return exported
	}
}

func (e *Environment) newConsole() *goja.Object {
	console := e.vm.NewObject()
	levels := map[string]zapcore.Level{
		"log":   zapcore.InfoLevel,
		"info":  zapcore.InfoLevel,
		"debug": zapcore.DebugLevel,
		"warn":  zapcore.WarnLevel,
		"error": zapcore.ErrorLevel,
	}
	for name, level := range levels {
		level := level
		_ = console.Set(name, func(call goja.FunctionCall) goja.Value {
			if ce := e.logger.Check(level, formatArgs(call.Arguments)); ce != nil {
				ce.Write(zap.String("source", "console"))
			}
			return goja.Undefined()
		})
	}
	return console
}

func formatArgs(args []goja.Value) string {
	parts := make([]string, len(args))
	for i, a := range args {
		if a == nil {
			parts[i] = "undefined"
			continue
		}
		parts[i] = a.String()
	}
	return strings.Join(parts, " ")
}

// String describes a value for logging without forcing script evaluation.
func String(v any) string {
	switch v := v.(type) {
	case *goja.Object:
		return "[object " + v.ClassName() + "]"
	case goja.Value:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}
