package runtime

import (
	"io"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-bridge/engine"
	"github.com/wippyai/wasm-bridge/errors"
)

// DefaultImportModule is the module name guests import bridge functions from.
const DefaultImportModule = "env"

// Config configures a Runtime and the sessions it creates.
type Config struct {
	// Logger receives runtime and session logs. Nil uses Logger().
	Logger *zap.Logger `validate:"-"`

	// ImportModule is the module name of the bridge imports.
	// Empty means DefaultImportModule.
	ImportModule string `validate:"omitempty,printascii,max=255"`

	// StartFunctions replaces the default of calling "_start" on instantiation.
	StartFunctions []string `validate:"omitempty,dive,required"`

	// Stdout and Stderr receive guest output, for guests that use WASI.
	Stdout io.Writer `validate:"-"`
	Stderr io.Writer `validate:"-"`

	Engine engine.Config

	// RecycleCeiling is the generation at which arena slots are retired.
	// nil means resource.DefaultRecycleCeiling; 0 retires every slot on its
	// first destroy.
	RecycleCeiling *uint32
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

func (c *Config) withDefaults() Config {
	var out Config
	if c != nil {
		out = *c
	}
	if out.Logger == nil {
		out.Logger = Logger()
	}
	if out.ImportModule == "" {
		out.ImportModule = DefaultImportModule
	}
	return out
}
