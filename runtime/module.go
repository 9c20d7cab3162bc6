package runtime

import (
	"context"

	"github.com/wippyai/wasm-bridge/engine"
	"github.com/wippyai/wasm-bridge/errors"
)

// Module is a compiled guest ready to be instantiated.
type Module struct {
	runtime      *Runtime
	wazeroModule *engine.WazeroModule
}

type Export struct {
	Name string
}

func (m *Module) Exports() []Export {
	names := m.wazeroModule.ExportNames()
	if names == nil {
		return nil
	}
	exports := make([]Export, len(names))
	for i, name := range names {
		exports[i] = Export{Name: name}
	}
	return exports
}

// Imports lists the module's function imports.
func (m *Module) Imports() []engine.Import {
	return m.wazeroModule.Imports()
}

// Instantiate creates an instance with a fresh session. Start functions
// already run with the session available to bridge imports.
func (m *Module) Instantiate(ctx context.Context) (*Instance, error) {
	s, err := m.runtime.newSession()
	if err != nil {
		return nil, err
	}

	cfg := m.runtime.config
	wazeroInstance, err := m.wazeroModule.InstantiateWithConfig(WithSession(ctx, s), &engine.InstanceConfig{
		Stdout:         cfg.Stdout,
		Stderr:         cfg.Stderr,
		StartFunctions: cfg.StartFunctions,
	})
	if err != nil {
		return nil, errors.Instantiation(err)
	}

	mod := wazeroInstance.Module()
	if err := s.Bind(mod); err != nil {
		_ = wazeroInstance.Close(ctx)
		return nil, err
	}
	m.runtime.sessions.Store(mod, s)

	s.Logger().Debug("instance created")
	return &Instance{
		module:         m,
		wazeroInstance: wazeroInstance,
		session:        s,
	}, nil
}

// Close releases the compiled module. Instances stay usable.
func (m *Module) Close(ctx context.Context) error {
	return m.wazeroModule.Close(ctx)
}
