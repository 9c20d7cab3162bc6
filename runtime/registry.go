package runtime

import (
	"context"
	"strconv"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-bridge/errors"
	"github.com/wippyai/wasm-bridge/resource"
	"github.com/wippyai/wasm-bridge/script"
)

// Func is a host function callable from the guest. Arguments arrive in
// wire order as decoded by the transcoder.
type Func func(ctx context.Context, args []any) (any, error)

// Compiler turns guest-supplied source text into a Func.
type Compiler interface {
	Compile(source string) (Func, error)
}

// CompilerFunc adapts a function to the Compiler interface.
type CompilerFunc func(source string) (Func, error)

func (f CompilerFunc) Compile(source string) (Func, error) { return f(source) }

// ScriptCompiler compiles source text on a script environment.
func ScriptCompiler(env *script.Environment) Compiler {
	return CompilerFunc(func(source string) (Func, error) {
		fn, err := env.Compile(source)
		if err != nil {
			return nil, err
		}
		return Func(fn), nil
	})
}

// BreakpointID is the id of the built-in debug function.
const BreakpointID = 0

// Registry holds host functions by id. Ids are positions in an append-only
// list and stay valid for the registry's lifetime.
type Registry struct {
	compiler Compiler
	logger   *zap.Logger
	funcs    []Func
}

// NewRegistry creates a registry with the debug breakpoint at id 0.
// compiler may be nil if only native functions are registered.
func NewRegistry(compiler Compiler, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Registry{
		compiler: compiler,
		logger:   logger,
	}
	r.funcs = append(r.funcs, r.breakpoint)
	return r
}

// breakpoint logs its arguments and returns nothing.
func (r *Registry) breakpoint(_ context.Context, args []any) (any, error) {
	if ce := r.logger.Check(zap.DebugLevel, "breakpoint"); ce != nil {
		fields := make([]zap.Field, 0, len(args))
		for i, a := range args {
			fields = append(fields, zap.String("arg"+strconv.Itoa(i), script.String(a)))
		}
		ce.Write(fields...)
	}
	return resource.Undefined, nil
}

// Register compiles source and appends it.
func (r *Registry) Register(source string) (uint32, error) {
	if r.compiler == nil {
		return 0, errors.NotInitialized(errors.PhaseRegister, "compiler")
	}
	fn, err := r.compiler.Compile(source)
	if err != nil {
		if _, ok := err.(*errors.Error); ok {
			return 0, err
		}
		return 0, errors.Wrap(errors.PhaseRegister, errors.KindCompile, err, "compile source")
	}
	id := r.RegisterFunc(fn)
	r.logger.Debug("function registered", zap.Uint32("id", id), zap.Int("source_len", len(source)))
	return id, nil
}

// RegisterFunc appends a native function and returns its id.
func (r *Registry) RegisterFunc(fn Func) uint32 {
	r.funcs = append(r.funcs, fn)
	return uint32(len(r.funcs) - 1)
}

// Lookup returns the function with the given id.
func (r *Registry) Lookup(id uint32) (Func, bool) {
	if uint64(id) >= uint64(len(r.funcs)) {
		return nil, false
	}
	return r.funcs[id], true
}

// Len returns the number of registered functions, including the breakpoint.
func (r *Registry) Len() int {
	return len(r.funcs)
}
