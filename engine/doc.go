// Package engine wraps wazero for loading and running guest modules.
//
// The engine package provides three main types:
//
//	WazeroEngine   - owns a wazero runtime and its host modules
//	WazeroModule   - a compiled guest, can create instances
//	WazeroInstance - a running guest with exports and linear memory
//
// Host functions are installed as raw core-typed functions grouped into a
// HostModule. A host module is installed once per engine; every guest
// instantiated afterwards links against the same functions, which find their
// per-instance state through the call context.
//
// # Configuration
//
//	eng, err := engine.NewWazeroEngineWithConfig(ctx, &engine.Config{
//	    MemoryLimitPages: 1024, // 64MB
//	})
//
// Config is validated on construction.
package engine
