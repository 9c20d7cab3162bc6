// Package memory bridges the host to a guest's linear memory and allocator.
//
// The guest owns every allocation. The bridge asks for one through the
// guest's exports and copies bytes into it:
//
//	b := memory.New(module) // module is a wazero api.Module
//
//	id, err := b.Write(ctx, []byte("hello"))
//	data, err := b.ReadAllocation(ctx, id)
//
// Guest exports used:
//
//	create_allocation(size u32) -> id u32
//	allocation_start_pointer(id u32) -> ptr u32
//	allocation_length(id u32) -> len u32
//	clear_allocation(id u32)
//
// # Memory Views
//
// Growing linear memory replaces the buffer behind it. Bridge therefore
// re-reads the view on every access and never keeps one across a guest call;
// callers must do the same with slices returned by View.
//
// # Text
//
// Guest text arrives as UTF-8 or UTF-16LE, selected by Encoding. Decoding
// uses golang.org/x/text and substitutes U+FFFD for malformed input.
package memory
