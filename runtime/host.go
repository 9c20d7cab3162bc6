package runtime

import (
	"context"
	"math"

	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/wasm-bridge/engine"
	"github.com/wippyai/wasm-bridge/errors"
	"github.com/wippyai/wasm-bridge/memory"
	"github.com/wippyai/wasm-bridge/resource"
)

// Bridge imports provided to guests.
const (
	ImportRegisterFunction      = "register_function"
	ImportInvokeFunction        = "invoke_function"
	ImportInvokeReturnsObject   = "invoke_function_returns_object"
	ImportInvokeReturnsBool     = "invoke_function_returns_bool"
	ImportInvokeReturnsInt      = "invoke_function_returns_int"
	ImportInvokeReturnsFloat    = "invoke_function_returns_float"
	ImportInvokeReturnsText     = "invoke_function_returns_text"
	ImportDropExternalReference = "drop_external_reference"
	ImportAbort                 = "abort"
)

var (
	i32 = api.ValueTypeI32
	i64 = api.ValueTypeI64
	f64 = api.ValueTypeF64
)

// ImportSpec describes the core signature of a bridge import.
type ImportSpec struct {
	Name    string
	Params  []api.ValueType
	Results []api.ValueType
}

// invokeParams is (handle, argument pointer, argument length).
var invokeParams = []api.ValueType{i32, i32, i32}

// BridgeImports lists every bridge import in a stable order.
var BridgeImports = []ImportSpec{
	{ImportRegisterFunction, []api.ValueType{i32, i32, i32}, []api.ValueType{i32}},
	{ImportInvokeFunction, invokeParams, nil},
	{ImportInvokeReturnsObject, invokeParams, []api.ValueType{i64}},
	{ImportInvokeReturnsBool, invokeParams, []api.ValueType{i32}},
	{ImportInvokeReturnsInt, invokeParams, []api.ValueType{i64}},
	{ImportInvokeReturnsFloat, invokeParams, []api.ValueType{f64}},
	{ImportInvokeReturnsText, invokeParams, []api.ValueType{i32}},
	{ImportDropExternalReference, []api.ValueType{i64}, []api.ValueType{i32}},
	{ImportAbort, nil, nil},
}

// sessionLookup finds the session for a call from mod.
type sessionLookup func(ctx context.Context, mod api.Module) (*Session, bool)

// hostModule builds the bridge import module. Host functions panic with an
// *errors.Error on failure; wazero turns the panic into the error returned
// by the outermost guest call.
func hostModule(name string, lookup sessionLookup) engine.HostModule {
	handlers := map[string]api.GoModuleFunc{
		ImportRegisterFunction:      registerFunction,
		ImportInvokeFunction:        invokeFunction,
		ImportInvokeReturnsObject:   invokeReturnsObject,
		ImportInvokeReturnsBool:     invokeReturnsBool,
		ImportInvokeReturnsInt:      invokeReturnsInt,
		ImportInvokeReturnsFloat:    invokeReturnsFloat,
		ImportInvokeReturnsText:     invokeReturnsText,
		ImportDropExternalReference: dropExternalReference,
		ImportAbort:                 abort,
	}

	funcs := make([]engine.HostFunc, 0, len(BridgeImports))
	for _, spec := range BridgeImports {
		handler := handlers[spec.Name]
		importName := spec.Name
		funcs = append(funcs, engine.HostFunc{
			Name:    spec.Name,
			Params:  spec.Params,
			Results: spec.Results,
			Fn: func(ctx context.Context, mod api.Module, stack []uint64) {
				s, ok := lookup(ctx, mod)
				if !ok {
					panic(errors.New(errors.PhaseHost, errors.KindNotInitialized).
						Import(importName).
						Detail("no session for calling module").
						Build())
				}
				if err := s.Bind(mod); err != nil {
					raise(importName, err)
				}
				handler(WithSession(ctx, s), mod, stack)
			},
		})
	}
	return engine.HostModule{Name: name, Funcs: funcs}
}

// raise aborts the current guest call with err.
func raise(importName string, err error) {
	if e, ok := err.(*errors.Error); ok {
		if e.Import == "" {
			tagged := *e
			tagged.Import = importName
			panic(&tagged)
		}
		panic(e)
	}
	panic(errors.Wrap(errors.PhaseHost, errors.KindCallFailed, err, importName))
}

func mustSession(ctx context.Context) *Session {
	s, _ := SessionFrom(ctx)
	return s
}

func invokeArgs(stack []uint64) (handle, ptr, length uint32) {
	return api.DecodeU32(stack[0]), api.DecodeU32(stack[1]), api.DecodeU32(stack[2])
}

func registerFunction(ctx context.Context, _ api.Module, stack []uint64) {
	s := mustSession(ctx)
	ptr, length, enc := api.DecodeU32(stack[0]), api.DecodeU32(stack[1]), api.DecodeU32(stack[2])

	source, err := s.bridge.ReadText(ptr, length, memory.Encoding(enc))
	if err != nil {
		raise(ImportRegisterFunction, err)
	}
	id, err := s.registry.Register(source)
	if err != nil {
		raise(ImportRegisterFunction, err)
	}
	stack[0] = api.EncodeU32(id)
}

func invokeFunction(ctx context.Context, _ api.Module, stack []uint64) {
	s := mustSession(ctx)
	handle, ptr, length := invokeArgs(stack)
	if err := s.dispatcher.InvokeVoid(ctx, handle, ptr, length); err != nil {
		raise(ImportInvokeFunction, err)
	}
}

func invokeReturnsObject(ctx context.Context, _ api.Module, stack []uint64) {
	s := mustSession(ctx)
	handle, ptr, length := invokeArgs(stack)
	h, err := s.dispatcher.InvokeObject(ctx, handle, ptr, length)
	if err != nil {
		raise(ImportInvokeReturnsObject, err)
	}
	stack[0] = uint64(h)
}

func invokeReturnsBool(ctx context.Context, _ api.Module, stack []uint64) {
	s := mustSession(ctx)
	handle, ptr, length := invokeArgs(stack)
	b, err := s.dispatcher.InvokeBool(ctx, handle, ptr, length)
	if err != nil {
		raise(ImportInvokeReturnsBool, err)
	}
	if b {
		stack[0] = 1
	} else {
		stack[0] = 0
	}
}

func invokeReturnsInt(ctx context.Context, _ api.Module, stack []uint64) {
	s := mustSession(ctx)
	handle, ptr, length := invokeArgs(stack)
	n, err := s.dispatcher.InvokeInt(ctx, handle, ptr, length)
	if err != nil {
		raise(ImportInvokeReturnsInt, err)
	}
	stack[0] = api.EncodeI64(n)
}

func invokeReturnsFloat(ctx context.Context, _ api.Module, stack []uint64) {
	s := mustSession(ctx)
	handle, ptr, length := invokeArgs(stack)
	f, err := s.dispatcher.InvokeFloat(ctx, handle, ptr, length)
	if err != nil {
		raise(ImportInvokeReturnsFloat, err)
	}
	stack[0] = math.Float64bits(f)
}

func invokeReturnsText(ctx context.Context, _ api.Module, stack []uint64) {
	s := mustSession(ctx)
	handle, ptr, length := invokeArgs(stack)
	id, err := s.dispatcher.InvokeText(ctx, handle, ptr, length)
	if err != nil {
		raise(ImportInvokeReturnsText, err)
	}
	stack[0] = api.EncodeU32(id)
}

func dropExternalReference(ctx context.Context, _ api.Module, stack []uint64) {
	s := mustSession(ctx)
	if s.DropExternalReference(resource.Handle(stack[0])) {
		stack[0] = 1
	} else {
		stack[0] = 0
	}
}

func abort(ctx context.Context, _ api.Module, _ []uint64) {
	mustSession(ctx).logger.Warn("guest abort")
	panic(errors.Aborted())
}
