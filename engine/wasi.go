package engine

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
)

// InstantiateWASI instantiates wasi_snapshot_preview1 into r.
func InstantiateWASI(ctx context.Context, r wazero.Runtime) (api.Module, error) {
	builder := r.NewHostModuleBuilder(wasi_snapshot_preview1.ModuleName)
	wasi_snapshot_preview1.NewFunctionExporter().ExportFunctions(builder)
	return builder.Instantiate(ctx)
}

// InitWASI instantiates WASI once for this engine's runtime.
func (e *WazeroEngine) InitWASI(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.runtime.Module(wasi_snapshot_preview1.ModuleName) != nil {
		return nil
	}
	if _, err := InstantiateWASI(ctx, e.runtime); err != nil {
		return fmt.Errorf("instantiate WASI: %w", err)
	}
	Logger().Debug("wasi instantiated")
	return nil
}
