package engine

import (
	"github.com/go-playground/validator/v10"

	"github.com/wippyai/wasm-bridge/errors"
)

// MaxMemoryPages is the largest memory a 32-bit guest can address.
const MaxMemoryPages = 65536

// Config holds configuration for engine creation
type Config struct {
	// MemoryLimitPages sets the maximum memory per instance in pages (64KB each).
	// 0 means default (65536 pages = 4GB).
	// 256 = 16MB, 1024 = 64MB, 4096 = 256MB
	MemoryLimitPages uint32 `validate:"lte=65536"`

	// EnableThreads enables the WebAssembly threads proposal (experimental).
	EnableThreads bool

	// EnableWASI instantiates wasi_snapshot_preview1 before the first module
	// loads, for guests built by toolchains that import it.
	EnableWASI bool

	// CloseOnContextDone makes running guest code stop when its context is
	// cancelled, at a small cost per loop iteration.
	CloseOnContextDone bool
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	if err := validate.Struct(c); err != nil {
		return errors.Validation(err)
	}
	return nil
}
