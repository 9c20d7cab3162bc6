package runtime

import (
	"context"

	"github.com/google/uuid"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-bridge/errors"
	"github.com/wippyai/wasm-bridge/memory"
	"github.com/wippyai/wasm-bridge/resource"
	"github.com/wippyai/wasm-bridge/script"
)

// Session is the host-side state of one guest instance: its arena, function
// registry and script environment. Sessions never share state, so several
// guests can run side by side.
//
// A session is used by one goroutine at a time. Calls may nest: a host
// function can call back into the guest, which can invoke host functions
// again before the outer call returns.
type Session struct {
	id         uuid.UUID
	logger     *zap.Logger
	arena      *resource.Arena
	registry   *Registry
	env        *script.Environment
	module     api.Module
	bridge     *memory.Bridge
	dispatcher *Dispatcher
}

// NewSession creates an unbound session. It becomes usable for guest calls
// once bound to a module, which happens on instantiation or on the first
// host call from the guest.
func NewSession(cfg *Config) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := cfg.withDefaults()

	id := uuid.New()
	logger := c.Logger.With(zap.String("session", id.String()))

	env := script.New(script.WithLogger(logger.Named("console")))

	var opts []resource.Option
	if c.RecycleCeiling != nil {
		opts = append(opts, resource.WithRecycleCeiling(*c.RecycleCeiling))
	}

	s := &Session{
		id:     id,
		logger: logger,
		arena:  resource.NewArena(env.Reserved(), opts...),
		env:    env,
	}
	s.registry = NewRegistry(ScriptCompiler(env), logger)
	return s, nil
}

// ID returns the session identifier used in log fields.
func (s *Session) ID() uuid.UUID { return s.id }

// Logger returns the session logger.
func (s *Session) Logger() *zap.Logger { return s.logger }

// Arena returns the handle arena owned by the session.
func (s *Session) Arena() *resource.Arena { return s.arena }

// Registry returns the function registry owned by the session.
func (s *Session) Registry() *Registry { return s.registry }

// Environment returns the script environment that compiles registered sources.
func (s *Session) Environment() *script.Environment { return s.env }

// Module returns the bound guest module, or nil.
func (s *Session) Module() api.Module { return s.module }

// Bridge returns the memory bridge, or nil before the session is bound.
func (s *Session) Bridge() *memory.Bridge { return s.bridge }

// Dispatcher returns the call dispatcher, or nil before the session is bound.
func (s *Session) Dispatcher() *Dispatcher { return s.dispatcher }

// Bind attaches the session to a guest module. Binding the module it is
// already bound to does nothing.
func (s *Session) Bind(mod api.Module) error {
	if mod == nil {
		return errors.InvalidInput(errors.PhaseRuntime, "module is nil")
	}
	if s.module == mod {
		return nil
	}
	if err := memory.CheckExports(mod); err != nil {
		return err
	}
	s.module = mod
	s.bridge = memory.New(mod)
	s.dispatcher = NewDispatcher(s.bridge, s.arena, s.registry, s.logger)
	s.logger.Debug("session bound", zap.String("module", mod.Name()))
	return nil
}

// Register compiles source text and returns its function id.
func (s *Session) Register(source string) (uint32, error) {
	return s.registry.Register(source)
}

// RegisterFunc adds a native host function and returns its id.
func (s *Session) RegisterFunc(fn Func) uint32 {
	return s.registry.RegisterFunc(fn)
}

// DropExternalReference releases a handle held by the guest.
func (s *Session) DropExternalReference(h resource.Handle) bool {
	return s.arena.Destroy(h)
}

// CallGuest calls a guest export from within a host function. The session
// travels with ctx so nested host calls find it.
func (s *Session) CallGuest(ctx context.Context, name string, params ...uint64) ([]uint64, error) {
	if s.module == nil {
		return nil, errors.NotInitialized(errors.PhaseRuntime, "guest module")
	}
	fn := s.module.ExportedFunction(name)
	if fn == nil {
		return nil, errors.NotFound(errors.PhaseRuntime, "export", name)
	}
	return fn.Call(WithSession(ctx, s), params...)
}

type sessionKey struct{}

// WithSession returns a context carrying s.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// SessionFrom returns the session carried by ctx.
func SessionFrom(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(*Session)
	return s, ok && s != nil
}
