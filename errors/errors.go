package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseDecode   Phase = "decode"   // guest argument buffer to Go values
	PhaseEncode   Phase = "encode"   // Go result to guest memory
	PhaseDispatch Phase = "dispatch" // function lookup and invocation
	PhaseRegister Phase = "register" // compiling host functions from source text
	PhaseMemory   Phase = "memory"   // linear memory and guest allocator access
	PhaseHost     Phase = "host"     // bridge import module
	PhaseValidate Phase = "validate" // configuration validation
	PhaseRuntime  Phase = "runtime"  // runtime operations
	PhaseLoad     Phase = "load"     // module loading
)

// Kind categorizes the error
type Kind string

const (
	KindTypeMismatch   Kind = "type_mismatch"
	KindOutOfBounds    Kind = "out_of_bounds"
	KindInvalidData    Kind = "invalid_data"
	KindUnsupported    Kind = "unsupported"
	KindAllocation     Kind = "allocation"
	KindUnknownTag     Kind = "unknown_tag"
	KindTruncated      Kind = "truncated"
	KindEmptyResult    Kind = "empty_result"
	KindAborted        Kind = "aborted"
	KindCompile        Kind = "compile"
	KindCallFailed     Kind = "call_failed"
	KindMissingExport  Kind = "missing_export"
	KindNotFound       Kind = "not_found"
	KindNotInitialized Kind = "not_initialized"
	KindInvalidInput   Kind = "invalid_input"
	KindRegistration   Kind = "registration"
	KindInstantiation  Kind = "instantiation"
)

// Error is the structured error type used throughout the bridge
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	GoType string
	Import string
	Detail string
	Path   []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.Import != "" {
		b.WriteString(" in ")
		b.WriteString(e.Import)
	}

	if e.GoType != "" {
		b.WriteString(": Go type ")
		b.WriteString(e.GoType)
	}

	if e.Detail != "" {
		if e.GoType != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the argument path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// GoType sets the Go type name
func (b *Builder) GoType(t string) *Builder {
	b.err.GoType = t
	return b
}

// Import sets the bridge import the error was raised from
func (b *Builder) Import(name string) *Builder {
	b.err.Import = name
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// TypeMismatch creates a type mismatch error
func TypeMismatch(phase Phase, goType, want string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindTypeMismatch,
		GoType: goType,
		Detail: "expected " + want,
	}
}

// UnknownTag creates a protocol error for an unrecognized wire tag
func UnknownTag(tag byte, offset int) *Error {
	return &Error{
		Phase:  PhaseDecode,
		Kind:   KindUnknownTag,
		Detail: fmt.Sprintf("unknown tag %d at offset %d", tag, offset),
		Value:  tag,
	}
}

// Truncated creates a protocol error for a payload running past the buffer end
func Truncated(tag string, offset, need, have int) *Error {
	return &Error{
		Phase:  PhaseDecode,
		Kind:   KindTruncated,
		Detail: fmt.Sprintf("%s payload at offset %d needs %d bytes, %d left", tag, offset, need, have),
	}
}

// EmptyResult creates a contract violation error for a function that returned nothing
func EmptyResult(handle uint32, want string) *Error {
	return &Error{
		Phase:  PhaseDispatch,
		Kind:   KindEmptyResult,
		Detail: fmt.Sprintf("function %d returned an empty value where %s was required", handle, want),
		Value:  handle,
	}
}

// Aborted creates the unconditional guest abort error
func Aborted() *Error {
	return &Error{
		Phase:  PhaseHost,
		Kind:   KindAborted,
		Import: "abort",
		Detail: "guest requested abort",
	}
}

// AllocationFailed creates an allocation failure error
func AllocationFailed(size uint32, cause error) *Error {
	return &Error{
		Phase:  PhaseMemory,
		Kind:   KindAllocation,
		Detail: fmt.Sprintf("failed to allocate %d bytes", size),
		Cause:  cause,
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// OutOfBounds creates an out of bounds error
func OutOfBounds(phase Phase, index, length int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Detail: fmt.Sprintf("index %d out of bounds (length %d)", index, length),
		Value:  index,
	}
}

// MemoryOutOfBounds creates an error for a linear memory range outside the current view
func MemoryOutOfBounds(offset, length, size uint32) *Error {
	return &Error{
		Phase:  PhaseMemory,
		Kind:   KindOutOfBounds,
		Detail: fmt.Sprintf("range [%d, +%d) outside memory of %d bytes", offset, length, size),
	}
}

// InvalidData creates an invalid data error
func InvalidData(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidData,
		Detail: detail,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// MissingExportsError is returned when a guest module lacks exports the bridge needs
type MissingExportsError struct {
	Exports []string
}

// NewMissingExportsError creates an error from a list of export names
func NewMissingExportsError(exports []string) *MissingExportsError {
	return &MissingExportsError{Exports: append([]string(nil), exports...)}
}

func (e *MissingExportsError) Error() string {
	if len(e.Exports) == 0 {
		return "[load] missing_export: no exports specified"
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("guest is missing %d required export(s):", len(e.Exports)))
	for _, name := range e.Exports {
		b.WriteString("\n  - ")
		b.WriteString(name)
	}
	return b.String()
}

// Is reports whether target matches this error type
func (e *MissingExportsError) Is(target error) bool {
	if _, ok := target.(*MissingExportsError); ok {
		return true
	}
	if t, ok := target.(*Error); ok {
		return t.Phase == PhaseLoad && t.Kind == KindMissingExport
	}
	return false
}

// Runtime package convenience constructors

// NotInitialized creates a not-initialized error for missing module/instance
func NotInitialized(phase Phase, component string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotInitialized,
		Detail: fmt.Sprintf("%s not initialized", component),
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Registration creates a registration error
func Registration(namespace, name string, cause error) *Error {
	return &Error{
		Phase:  PhaseHost,
		Kind:   KindRegistration,
		Detail: fmt.Sprintf("register %s.%s", namespace, name),
		Cause:  cause,
	}
}

// Instantiation creates an instantiation error
func Instantiation(cause error) *Error {
	return &Error{
		Phase:  PhaseRuntime,
		Kind:   KindInstantiation,
		Detail: "instantiate module",
		Cause:  cause,
	}
}

// Load creates a module loading error
func Load(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindInvalidData,
		Detail: detail,
		Cause:  cause,
	}
}

// Validation creates a configuration validation error
func Validation(cause error) *Error {
	return &Error{
		Phase:  PhaseValidate,
		Kind:   KindInvalidInput,
		Detail: "invalid configuration",
		Cause:  cause,
	}
}
