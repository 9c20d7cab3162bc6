package engine

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/experimental"
	"go.uber.org/zap"
)

// WazeroEngine compiles and instantiates guest modules on one wazero runtime.
type WazeroEngine struct {
	runtime wazero.Runtime
	config  Config
	mu      sync.Mutex
}

// NewWazeroEngine creates a new wazero-based engine
func NewWazeroEngine(ctx context.Context) (*WazeroEngine, error) {
	return NewWazeroEngineWithConfig(ctx, nil)
}

// NewWazeroEngineWithConfig creates a new engine with custom configuration
func NewWazeroEngineWithConfig(ctx context.Context, cfg *Config) (*WazeroEngine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	runtimeCfg := wazero.NewRuntimeConfig()
	var config Config
	if cfg != nil {
		config = *cfg
		if cfg.MemoryLimitPages > 0 {
			runtimeCfg = runtimeCfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
		}
		if cfg.EnableThreads {
			runtimeCfg = runtimeCfg.WithCoreFeatures(api.CoreFeaturesV2 | experimental.CoreFeaturesThreads)
		}
		if cfg.CloseOnContextDone {
			runtimeCfg = runtimeCfg.WithCloseOnContextDone(true)
		}
	}

	e := &WazeroEngine{
		runtime: wazero.NewRuntimeWithConfig(ctx, runtimeCfg),
		config:  config,
	}
	if config.EnableWASI {
		if err := e.InitWASI(ctx); err != nil {
			_ = e.runtime.Close(ctx)
			return nil, err
		}
	}
	return e, nil
}

// Runtime exposes the underlying wazero runtime.
func (e *WazeroEngine) Runtime() wazero.Runtime {
	return e.runtime
}

// HostFunc is a raw host function exported to guests.
type HostFunc struct {
	Fn      api.GoModuleFunc
	Name    string
	Params  []api.ValueType
	Results []api.ValueType
}

// HostModule is a named set of host functions.
type HostModule struct {
	Name  string
	Funcs []HostFunc
}

// InstallHostModule instantiates hm into the runtime. Installing a module
// name that already exists is a no-op, so every guest on the engine shares
// the first installation.
func (e *WazeroEngine) InstallHostModule(ctx context.Context, hm HostModule) error {
	if hm.Name == "" {
		return fmt.Errorf("host module name is empty")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.runtime.Module(hm.Name) != nil {
		return nil
	}

	builder := e.runtime.NewHostModuleBuilder(hm.Name)
	for _, f := range hm.Funcs {
		builder = builder.NewFunctionBuilder().
			WithGoModuleFunction(f.Fn, f.Params, f.Results).
			WithName(f.Name).
			Export(f.Name)
	}
	if _, err := builder.Instantiate(ctx); err != nil {
		return fmt.Errorf("instantiate host module %s: %w", hm.Name, err)
	}

	Logger().Debug("host module installed",
		zap.String("module", hm.Name),
		zap.Int("functions", len(hm.Funcs)))
	return nil
}

// LoadModule compiles a guest binary.
func (e *WazeroEngine) LoadModule(ctx context.Context, wasmBytes []byte) (*WazeroModule, error) {
	compiled, err := e.runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		return nil, fmt.Errorf("compile failed: %w", err)
	}
	return &WazeroModule{
		engine:   e,
		runtime:  e.runtime,
		compiled: compiled,
	}, nil
}

func (e *WazeroEngine) Close(ctx context.Context) error {
	return e.runtime.Close(ctx)
}

// WazeroModule is a compiled guest module
type WazeroModule struct {
	engine   *WazeroEngine
	runtime  wazero.Runtime
	compiled wazero.CompiledModule
}

// Import names one function a module imports.
type Import struct {
	Module string
	Name   string
}

// Imports lists the module's function imports in declaration order.
func (m *WazeroModule) Imports() []Import {
	defs := m.compiled.ImportedFunctions()
	imports := make([]Import, 0, len(defs))
	for _, def := range defs {
		moduleName, name, _ := def.Import()
		imports = append(imports, Import{Module: moduleName, Name: name})
	}
	return imports
}

// ExportNames returns the sorted names of exported functions.
func (m *WazeroModule) ExportNames() []string {
	defs := m.compiled.ExportedFunctions()
	names := make([]string, 0, len(defs))
	for name := range defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ExportedFunction returns the definition of an exported function, or nil.
func (m *WazeroModule) ExportedFunction(name string) api.FunctionDefinition {
	return m.compiled.ExportedFunctions()[name]
}

// ExportsMemory reports whether the module exports linear memory under name.
func (m *WazeroModule) ExportsMemory(name string) bool {
	_, ok := m.compiled.ExportedMemories()[name]
	return ok
}

// InstanceConfig holds configuration for module instantiation
type InstanceConfig struct {
	Stdout io.Writer
	Stderr io.Writer
	Name   string
	// StartFunctions replaces the default of calling "_start" if exported.
	StartFunctions []string
}

func (m *WazeroModule) Instantiate(ctx context.Context) (*WazeroInstance, error) {
	return m.InstantiateWithConfig(ctx, nil)
}

// InstantiateWithConfig creates an instance with custom configuration.
// Start functions run during this call with ctx, so host functions they
// reach see whatever ctx carries.
func (m *WazeroModule) InstantiateWithConfig(ctx context.Context, cfg *InstanceConfig) (*WazeroInstance, error) {
	modConfig := wazero.NewModuleConfig().WithName("") // anonymous for parallel instantiation
	if cfg != nil {
		if cfg.Name != "" {
			modConfig = modConfig.WithName(cfg.Name)
		}
		if cfg.Stdout != nil {
			modConfig = modConfig.WithStdout(cfg.Stdout)
		}
		if cfg.Stderr != nil {
			modConfig = modConfig.WithStderr(cfg.Stderr)
		}
		if cfg.StartFunctions != nil {
			modConfig = modConfig.WithStartFunctions(cfg.StartFunctions...)
		}
	}

	instance, err := m.runtime.InstantiateModule(ctx, m.compiled, modConfig)
	if err != nil {
		return nil, fmt.Errorf("instantiate failed: %w", err)
	}

	return &WazeroInstance{
		module:    m,
		instance:  instance,
		funcCache: make(map[string]api.Function),
	}, nil
}

// Close releases the compiled module.
func (m *WazeroModule) Close(ctx context.Context) error {
	return m.compiled.Close(ctx)
}

// WazeroInstance is a running guest module.
type WazeroInstance struct {
	instance  api.Module
	module    *WazeroModule
	funcCache map[string]api.Function
	cacheMu   sync.RWMutex
}

// Module returns the wazero module backing the instance.
func (i *WazeroInstance) Module() api.Module {
	return i.instance
}

// GetExportedFunction returns an exported function by name, or nil.
func (i *WazeroInstance) GetExportedFunction(name string) api.Function {
	i.cacheMu.RLock()
	fn, ok := i.funcCache[name]
	i.cacheMu.RUnlock()
	if ok {
		return fn
	}

	if i.instance == nil {
		return nil
	}
	fn = i.instance.ExportedFunction(name)
	if fn != nil {
		i.cacheMu.Lock()
		i.funcCache[name] = fn
		i.cacheMu.Unlock()
	}
	return fn
}

// Call invokes an exported function with raw core values.
func (i *WazeroInstance) Call(ctx context.Context, name string, params ...uint64) ([]uint64, error) {
	fn := i.GetExportedFunction(name)
	if fn == nil {
		return nil, fmt.Errorf("function %q not exported", name)
	}
	return fn.Call(ctx, params...)
}

// MemorySize returns the current linear memory size in bytes, or 0 if no memory.
func (i *WazeroInstance) MemorySize() uint32 {
	if i.instance == nil || i.instance.Memory() == nil {
		return 0
	}
	return i.instance.Memory().Size()
}

func (i *WazeroInstance) Close(ctx context.Context) error {
	if i.instance == nil {
		return nil
	}
	err := i.instance.Close(ctx)
	i.instance = nil
	i.cacheMu.Lock()
	i.funcCache = nil
	i.cacheMu.Unlock()
	return err
}
