package memory

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero/api"

	wasmbridge "github.com/wippyai/wasm-bridge"
	"github.com/wippyai/wasm-bridge/errors"
)

// Guest exports the bridge expects from every guest module.
const (
	ExportMemory                 = "memory"
	ExportCreateAllocation       = "create_allocation"
	ExportAllocationStartPointer = "allocation_start_pointer"
	ExportAllocationLength       = "allocation_length"
	ExportClearAllocation        = "clear_allocation"
)

// RequiredExports lists the guest function exports the bridge calls.
var RequiredExports = []string{
	ExportCreateAllocation,
	ExportAllocationStartPointer,
	ExportAllocationLength,
	ExportClearAllocation,
}

// Guest is the part of an instantiated module the bridge needs.
// A wazero api.Module satisfies it.
type Guest interface {
	Memory() api.Memory
	ExportedFunction(name string) api.Function
}

// Allocation is a guest-owned region created on request of the host.
type Allocation struct {
	ID      uint32
	Pointer uint32
}

// CheckExports reports every required export the guest lacks.
func CheckExports(guest Guest) error {
	var missing []string
	if guest.Memory() == nil {
		missing = append(missing, ExportMemory)
	}
	for _, name := range RequiredExports {
		if guest.ExportedFunction(name) == nil {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return errors.NewMissingExportsError(missing)
	}
	return nil
}

var (
	_ wasmbridge.Memory    = (*Bridge)(nil)
	_ wasmbridge.Allocator = (*Bridge)(nil)
)

// Bridge reads and writes guest linear memory and drives the guest allocator.
//
// Bridge never holds on to a memory view. Any guest call, including the
// allocation calls Bridge makes itself, may grow memory and invalidate
// previously returned views, so each access fetches the view again.
type Bridge struct {
	guest Guest
}

// New creates a bridge over guest.
func New(guest Guest) *Bridge {
	return &Bridge{guest: guest}
}

// Guest returns the module the bridge is bound to.
func (b *Bridge) Guest() Guest {
	return b.guest
}

// View returns the current linear memory as a byte slice.
// The slice is only valid until the next call into the guest.
func (b *Bridge) View() ([]byte, error) {
	mem := b.guest.Memory()
	if mem == nil {
		return nil, errors.NotInitialized(errors.PhaseMemory, "guest memory")
	}
	view, ok := mem.Read(0, mem.Size())
	if !ok {
		return nil, errors.MemoryOutOfBounds(0, mem.Size(), mem.Size())
	}
	return view, nil
}

// Read copies length bytes starting at ptr out of guest memory.
func (b *Bridge) Read(ptr, length uint32) ([]byte, error) {
	view, err := b.View()
	if err != nil {
		return nil, err
	}
	if uint64(ptr)+uint64(length) > uint64(len(view)) {
		return nil, errors.MemoryOutOfBounds(ptr, length, uint32(len(view)))
	}
	out := make([]byte, length)
	copy(out, view[ptr:ptr+length])
	return out, nil
}

// Allocate asks the guest for a region of size bytes.
func (b *Bridge) Allocate(ctx context.Context, size uint32) (Allocation, error) {
	id, err := b.call(ctx, ExportCreateAllocation, uint64(size))
	if err != nil {
		return Allocation{}, errors.AllocationFailed(size, err)
	}
	ptr, err := b.call(ctx, ExportAllocationStartPointer, id)
	if err != nil {
		return Allocation{}, errors.AllocationFailed(size, err)
	}
	return Allocation{ID: uint32(id), Pointer: uint32(ptr)}, nil
}

// Write copies data into a fresh guest allocation and returns its id.
func (b *Bridge) Write(ctx context.Context, data []byte) (uint32, error) {
	alloc, err := b.Allocate(ctx, uint32(len(data)))
	if err != nil {
		return 0, err
	}
	// The allocation may have grown memory; fetch the view only now.
	view, err := b.View()
	if err != nil {
		return 0, err
	}
	end := uint64(alloc.Pointer) + uint64(len(data))
	if end > uint64(len(view)) {
		return 0, errors.MemoryOutOfBounds(alloc.Pointer, uint32(len(data)), uint32(len(view)))
	}
	copy(view[alloc.Pointer:end], data)
	return alloc.ID, nil
}

// StartPointer resolves an allocation id to the start of its region.
func (b *Bridge) StartPointer(ctx context.Context, id uint32) (uint32, error) {
	ptr, err := b.call(ctx, ExportAllocationStartPointer, uint64(id))
	return uint32(ptr), err
}

// AllocationLength returns the byte length of an allocation.
func (b *Bridge) AllocationLength(ctx context.Context, id uint32) (uint32, error) {
	n, err := b.call(ctx, ExportAllocationLength, uint64(id))
	return uint32(n), err
}

// ReadAllocation copies the full contents of an allocation.
func (b *Bridge) ReadAllocation(ctx context.Context, id uint32) ([]byte, error) {
	ptr, err := b.StartPointer(ctx, id)
	if err != nil {
		return nil, err
	}
	length, err := b.AllocationLength(ctx, id)
	if err != nil {
		return nil, err
	}
	return b.Read(ptr, length)
}

// ClearAllocation hands an allocation back to the guest allocator.
func (b *Bridge) ClearAllocation(ctx context.Context, id uint32) error {
	fn := b.guest.ExportedFunction(ExportClearAllocation)
	if fn == nil {
		return errors.New(errors.PhaseMemory, errors.KindMissingExport).
			Detail("guest does not export %s", ExportClearAllocation).
			Build()
	}
	if _, err := fn.Call(ctx, uint64(id)); err != nil {
		return errors.Wrap(errors.PhaseMemory, errors.KindCallFailed, err, ExportClearAllocation)
	}
	return nil
}

// ReadText decodes length bytes at ptr using enc.
func (b *Bridge) ReadText(ptr, length uint32, enc Encoding) (string, error) {
	data, err := b.Read(ptr, length)
	if err != nil {
		return "", err
	}
	return DecodeText(data, enc)
}

// WriteText stores s as UTF-8 in a fresh allocation and returns its id.
func (b *Bridge) WriteText(ctx context.Context, s string) (uint32, error) {
	return b.Write(ctx, []byte(s))
}

func (b *Bridge) call(ctx context.Context, name string, params ...uint64) (uint64, error) {
	fn := b.guest.ExportedFunction(name)
	if fn == nil {
		return 0, errors.New(errors.PhaseMemory, errors.KindMissingExport).
			Detail("guest does not export %s", name).
			Build()
	}
	results, err := fn.Call(ctx, params...)
	if err != nil {
		return 0, errors.Wrap(errors.PhaseMemory, errors.KindCallFailed, err, name)
	}
	if len(results) == 0 {
		return 0, errors.InvalidData(errors.PhaseMemory, fmt.Sprintf("%s returned no result", name))
	}
	return results[0], nil
}
