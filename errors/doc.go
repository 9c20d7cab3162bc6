// Package errors provides structured error types for the wasm-bridge library.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type includes context: argument path, Go type name, the bridge import
// that raised it, and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseDecode, errors.KindTruncated).
//		Path("arg", "2").
//		Import("invoke_function").
//		Detail("string payload needs 8 bytes").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.UnknownTag(255, 0)
//	err := errors.EmptyResult(handle, "an object")
//
// Protocol and contract violations are fatal: the bridge surfaces them to the
// caller of the guest function without attempting recovery. Stale handle lookups
// are not errors at all; the arena reports them as sentinel results.
//
// All errors implement the standard error interface and support errors.Is/As.
// Is matches on Phase and Kind only.
package errors
