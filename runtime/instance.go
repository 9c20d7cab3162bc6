package runtime

import (
	"context"

	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/wasm-bridge/engine"
	"github.com/wippyai/wasm-bridge/errors"
)

// Instance is a running guest bound to its session.
type Instance struct {
	module         *Module
	wazeroInstance *engine.WazeroInstance
	session        *Session
}

func (i *Instance) Session() *Session {
	return i.session
}

// Module returns the underlying wazero module.
func (i *Instance) Module() api.Module {
	return i.wazeroInstance.Module()
}

// Call invokes a guest export with raw core values. A fatal error raised by
// a bridge import anywhere below the call is returned wrapped; errors.Is and
// errors.As reach it.
func (i *Instance) Call(ctx context.Context, name string, params ...uint64) ([]uint64, error) {
	if i.wazeroInstance.Module() == nil {
		return nil, errors.NotInitialized(errors.PhaseRuntime, "instance")
	}
	if i.wazeroInstance.GetExportedFunction(name) == nil {
		return nil, errors.NotFound(errors.PhaseRuntime, "export", name)
	}
	results, err := i.wazeroInstance.Call(WithSession(ctx, i.session), name, params...)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseRuntime, errors.KindCallFailed, err, "call "+name)
	}
	return results, nil
}

// GetExportedFunction returns the raw wazero api.Function, or nil if not found.
func (i *Instance) GetExportedFunction(name string) api.Function {
	return i.wazeroInstance.GetExportedFunction(name)
}

func (i *Instance) Close(ctx context.Context) error {
	if mod := i.wazeroInstance.Module(); mod != nil {
		i.module.runtime.sessions.Delete(mod)
	}
	return i.wazeroInstance.Close(ctx)
}
