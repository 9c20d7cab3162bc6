// Package resource implements the handle arena that lets a guest hold opaque,
// validated references to host values.
//
// # Handles
//
// A Handle is a 64-bit uid packing a slot index (upper 32 bits) and the slot's
// generation (lower 32 bits):
//
//	arena := resource.NewArena(resource.Reserved{Global: global})
//
//	h := arena.Create(value)
//	v, ok := arena.Get(h)   // value, true
//	arena.Destroy(h)        // true
//	_, ok = arena.Get(h)    // nil, false
//
// Destroyed slots go onto a free list and are reused with a bumped generation,
// so a stale handle never resolves to the value that replaced it. A slot whose
// generation reaches the recycle ceiling is retired for good:
//
//	arena := resource.NewArena(reserved, resource.WithRecycleCeiling(1024))
//
// # Reserved Handles
//
// Handles 0 through 7 are fixed at construction and can never be destroyed:
//
//	HandleUndefined  resource.Undefined
//	HandleNull       nil
//	HandleGlobal     Reserved.Global
//	HandleWindow     Reserved.Window
//	HandleDocument   Reserved.Document
//	HandleBody       Reserved.Body
//	HandleFalse      false
//	HandleTrue       true
//
// # Observers
//
// Register observers to track lifecycle events:
//
//	cancel := arena.Subscribe(resource.ObserverFunc(func(e resource.Event) {
//	    log.Printf("%s %#x", e.Type, e.Handle)
//	}))
//	defer cancel()
//
// Values implementing Dropper have Drop called when their slot is destroyed.
package resource
