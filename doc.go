// Package wasmbridge connects WebAssembly guests to a host scripting
// environment.
//
// A guest registers functions by handing the host source text, invokes them
// by id with a compact tagged argument buffer, and receives results as
// scalars, guest-owned text, or opaque external references into a host
// handle table.
//
// # Architecture Overview
//
//	wasmbridge/          Root package with the Memory and Allocator interfaces
//	├── runtime/         Bridge imports, sessions, function registry, dispatch
//	├── engine/          wazero integration
//	├── memory/          Guest memory access and guest allocator calls
//	├── transcoder/      Tagged argument buffer codec
//	├── resource/        Generational handle table for external references
//	├── script/          Script environment that compiles registered source
//	├── errors/          Structured error types for debugging
//	└── cmd/run/         Command line runner
//
// # Quick Start
//
//	rt, err := runtime.New(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer rt.Close(ctx)
//
//	mod, err := rt.Load(ctx, wasmBytes)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	inst, err := mod.Instantiate(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer inst.Close(ctx)
//
//	_, err = inst.Call(ctx, "main")
//
// # Thread Safety
//
// Runtime and Module are safe for concurrent use. An Instance and its
// Session are not and should be used by a single goroutine. Calls on one
// instance may nest: host functions can call back into the guest.
//
// # External References
//
// Host values handed to the guest live in the session's arena until the
// guest drops them. Handles carry a generation, so a dropped handle never
// resolves to a newer value stored in the same slot. Handles 0 through 7
// are reserved for undefined, null, the global object, window, document,
// document.body, false and true.
package wasmbridge
