package wasmbridge

import "context"

// Memory reads guest linear memory. memory.Bridge implements it.
type Memory interface {
	Read(ptr, length uint32) ([]byte, error)
}

// Allocator places host text in a guest-owned allocation and returns the
// allocation id.
type Allocator interface {
	WriteText(ctx context.Context, s string) (uint32, error)
}
