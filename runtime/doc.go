// Package runtime links guest modules against the bridge imports and keeps
// the host-side state each guest instance works with.
//
// # Quick Start
//
//	ctx := context.Background()
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
//	results, err := inst.Call(ctx, "main")
//
// # Bridge Imports
//
// Guests import these functions from the module named by
// Config.ImportModule ("env" by default):
//
//	register_function(ptr, len, encoding u32) -> id u32
//	invoke_function(id, ptr, len u32)
//	invoke_function_returns_object(id, ptr, len u32) -> externref u64
//	invoke_function_returns_bool(id, ptr, len u32) -> i32
//	invoke_function_returns_int(id, ptr, len u32) -> i64
//	invoke_function_returns_float(id, ptr, len u32) -> f64
//	invoke_function_returns_text(id, ptr, len u32) -> allocation u32
//	drop_external_reference(externref u64) -> i32
//	abort()
//
// register_function compiles script source text, a single function
// expression, and returns its id. Id 0 is a breakpoint that logs its
// arguments. The invoke imports decode a tagged argument buffer (see
// package transcoder), call the function and return its result in the
// requested form.
//
// # Sessions
//
// Every instance gets a Session holding its arena, function registry and
// script environment. Bridge imports find the session through the calling
// module, or through the context for start functions. Host functions can
// call back into the guest with Session.CallGuest:
//
//	rt.RegisterFunc("tick", func(ctx context.Context, args []any) (any, error) {
//	    s, _ := runtime.SessionFrom(ctx)
//	    return s.CallGuest(ctx, "on_tick")
//	})
//
// # Errors
//
// Malformed buffers, unknown function ids, empty results where a value is
// required and guest aborts are fatal. The import traps and the error comes
// back from Instance.Call wrapped; errors.Is and errors.As reach the
// underlying *errors.Error.
package runtime
