package runtime

import (
	"context"
	"sync"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-bridge/engine"
	"github.com/wippyai/wasm-bridge/errors"
	"github.com/wippyai/wasm-bridge/memory"
)

// Runtime loads guest modules and links them against the bridge imports.
// Each instance gets its own Session.
type Runtime struct {
	engine   *engine.WazeroEngine
	logger   *zap.Logger
	natives  []nativeFunc
	config   Config
	sessions sync.Map // api.Module -> *Session
	mu       sync.RWMutex
}

type nativeFunc struct {
	fn   Func
	name string
}

func New(ctx context.Context) (*Runtime, error) {
	return NewWithConfig(ctx, nil)
}

// NewWithConfig creates a runtime and installs the bridge import module.
func NewWithConfig(ctx context.Context, cfg *Config) (*Runtime, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := cfg.withDefaults()

	eng, err := engine.NewWazeroEngineWithConfig(ctx, &c.Engine)
	if err != nil {
		return nil, errors.Load("create engine", err)
	}

	r := &Runtime{
		engine: eng,
		logger: c.Logger,
		config: c,
	}
	if err := eng.InstallHostModule(ctx, hostModule(c.ImportModule, r.lookupSession)); err != nil {
		_ = eng.Close(ctx)
		return nil, errors.Registration(c.ImportModule, "bridge", err)
	}
	return r, nil
}

// Close releases all runtime resources.
// All instances must be closed before calling this.
func (r *Runtime) Close(ctx context.Context) error {
	return r.engine.Close(ctx)
}

func (r *Runtime) Engine() *engine.WazeroEngine {
	return r.engine
}

// ImportModule returns the module name guests import the bridge from.
func (r *Runtime) ImportModule() string {
	return r.config.ImportModule
}

// RegisterFunc adds a native function to every session created afterwards
// and returns the id it will have there. Native functions take the ids
// right after the breakpoint, in registration order, so guests can call
// them without registering source text.
func (r *Runtime) RegisterFunc(name string, fn Func) (uint32, error) {
	if name == "" {
		return 0, errors.InvalidInput(errors.PhaseHost, "function name cannot be empty")
	}
	if fn == nil {
		return 0, errors.InvalidInput(errors.PhaseHost, "function cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, n := range r.natives {
		if n.name == name {
			return 0, errors.Registration(r.config.ImportModule, name, errors.InvalidInput(errors.PhaseHost, "already registered"))
		}
	}
	r.natives = append(r.natives, nativeFunc{fn: fn, name: name})
	return uint32(len(r.natives)), nil
}

// Funcs returns native function names indexed by id minus one.
func (r *Runtime) Funcs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.natives))
	for i, n := range r.natives {
		names[i] = n.name
	}
	return names
}

// Load compiles a guest binary and checks it exports what the bridge needs.
func (r *Runtime) Load(ctx context.Context, wasm []byte) (*Module, error) {
	wazeroModule, err := r.engine.LoadModule(ctx, wasm)
	if err != nil {
		return nil, errors.Load("load module", err)
	}

	var missing []string
	if !wazeroModule.ExportsMemory(memory.ExportMemory) {
		missing = append(missing, memory.ExportMemory)
	}
	for _, name := range memory.RequiredExports {
		if wazeroModule.ExportedFunction(name) == nil {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		_ = wazeroModule.Close(ctx)
		return nil, errors.NewMissingExportsError(missing)
	}

	return &Module{
		runtime:      r,
		wazeroModule: wazeroModule,
	}, nil
}

func (r *Runtime) newSession() (*Session, error) {
	s, err := NewSession(&r.config)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, n := range r.natives {
		s.RegisterFunc(n.fn)
	}
	return s, nil
}

// lookupSession prefers the session registered for the calling module and
// falls back to the one carried by ctx, which covers start functions that
// run before instantiation returns.
func (r *Runtime) lookupSession(ctx context.Context, mod api.Module) (*Session, bool) {
	if v, ok := r.sessions.Load(mod); ok {
		return v.(*Session), true
	}
	return SessionFrom(ctx)
}
