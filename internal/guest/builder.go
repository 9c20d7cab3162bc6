// Package guest synthesizes small guest modules for exercising the bridge.
//
// A synthesized guest exports linear memory, the four allocation functions the
// bridge expects, and one trampoline per configured host import. Calling the
// trampoline "call_<name>" forwards its parameters to the import and returns
// its results, so tests drive host imports exactly as compiled guest code would.
//
// The allocator grows memory on every allocation. Page 0 is never handed out
// and is free for tests to use as scratch space.
package guest

import (
	"github.com/tetratelabs/wazero/api"
)

// PageSize is the size of a wasm memory page.
const PageSize = 65536

// TrampolinePrefix is prepended to an import name to form its trampoline export.
const TrampolinePrefix = "call_"

// allocationHeader is the length prefix stored in front of each allocation.
const allocationHeader = 8

// Builder builds a guest module binary.
type Builder struct {
	hostModuleName string
	imports        []hostImport
	memoryPages    uint32
}

type hostImport struct {
	name        string
	paramTypes  []api.ValueType
	resultTypes []api.ValueType
}

// NewBuilder creates a builder whose imports come from hostModuleName.
func NewBuilder(hostModuleName string) *Builder {
	return &Builder{
		hostModuleName: hostModuleName,
		memoryPages:    1,
	}
}

// Import adds a host import and its trampoline.
func (b *Builder) Import(name string, params, results []api.ValueType) *Builder {
	b.imports = append(b.imports, hostImport{
		name:        name,
		paramTypes:  params,
		resultTypes: results,
	})
	return b
}

// MemoryPages sets the initial memory size.
func (b *Builder) MemoryPages(pages uint32) *Builder {
	b.memoryPages = pages
	return b
}

// allocator export names, in function index order after the imports.
var allocatorExports = []string{
	"create_allocation",
	"allocation_start_pointer",
	"allocation_length",
	"clear_allocation",
}

// Build generates the module bytes.
func (b *Builder) Build() []byte {
	var wasm []byte

	// Magic and version
	wasm = append(wasm, 0x00, 0x61, 0x73, 0x6d)
	wasm = append(wasm, 0x01, 0x00, 0x00, 0x00)

	wasm = appendSection(wasm, 0x01, b.buildTypeSection())
	if len(b.imports) > 0 {
		wasm = appendSection(wasm, 0x02, b.buildImportSection())
	}
	wasm = appendSection(wasm, 0x03, b.buildFuncSection())
	wasm = appendSection(wasm, 0x05, b.buildMemorySection())
	wasm = appendSection(wasm, 0x07, b.buildExportSection())
	wasm = appendSection(wasm, 0x0a, b.buildCodeSection())

	return wasm
}

func appendSection(wasm []byte, id byte, section []byte) []byte {
	wasm = append(wasm, id)
	wasm = append(wasm, EncodeULEB128(uint32(len(section)))...)
	return append(wasm, section...)
}

// Type indices: one per import, then (i32)->i32 and (i32)->().
func (b *Builder) typeI32ToI32() uint32  { return uint32(len(b.imports)) }
func (b *Builder) typeI32ToVoid() uint32 { return uint32(len(b.imports)) + 1 }

func (b *Builder) buildTypeSection() []byte {
	var section []byte
	section = append(section, EncodeULEB128(uint32(len(b.imports)+2))...)

	for _, f := range b.imports {
		section = append(section, 0x60)
		section = append(section, EncodeULEB128(uint32(len(f.paramTypes)))...)
		for _, t := range f.paramTypes {
			section = append(section, ValTypeToWasm(t))
		}
		section = append(section, EncodeULEB128(uint32(len(f.resultTypes)))...)
		for _, t := range f.resultTypes {
			section = append(section, ValTypeToWasm(t))
		}
	}

	section = append(section, 0x60, 0x01, 0x7f, 0x01, 0x7f)
	section = append(section, 0x60, 0x01, 0x7f, 0x00)
	return section
}

func (b *Builder) buildImportSection() []byte {
	var section []byte
	section = append(section, EncodeULEB128(uint32(len(b.imports)))...)

	for i, f := range b.imports {
		section = appendName(section, b.hostModuleName)
		section = appendName(section, f.name)
		section = append(section, 0x00)
		section = append(section, EncodeULEB128(uint32(i))...)
	}
	return section
}

func (b *Builder) buildFuncSection() []byte {
	var section []byte
	section = append(section, EncodeULEB128(uint32(len(allocatorExports)+len(b.imports)))...)

	// create_allocation, allocation_start_pointer, allocation_length, clear_allocation
	section = append(section, EncodeULEB128(b.typeI32ToI32())...)
	section = append(section, EncodeULEB128(b.typeI32ToI32())...)
	section = append(section, EncodeULEB128(b.typeI32ToI32())...)
	section = append(section, EncodeULEB128(b.typeI32ToVoid())...)

	for i := range b.imports {
		section = append(section, EncodeULEB128(uint32(i))...)
	}
	return section
}

func (b *Builder) buildMemorySection() []byte {
	var section []byte
	section = append(section, 0x01)
	section = append(section, 0x00)
	section = append(section, EncodeULEB128(b.memoryPages)...)
	return section
}

func (b *Builder) buildExportSection() []byte {
	var section []byte
	section = append(section, EncodeULEB128(uint32(1+len(allocatorExports)+len(b.imports)))...)

	section = appendName(section, "memory")
	section = append(section, 0x02, 0x00)

	numImports := uint32(len(b.imports))
	for i, name := range allocatorExports {
		section = appendName(section, name)
		section = append(section, 0x00)
		section = append(section, EncodeULEB128(numImports+uint32(i))...)
	}

	firstTrampoline := numImports + uint32(len(allocatorExports))
	for i, f := range b.imports {
		section = appendName(section, TrampolinePrefix+f.name)
		section = append(section, 0x00)
		section = append(section, EncodeULEB128(firstTrampoline+uint32(i))...)
	}
	return section
}

func (b *Builder) buildCodeSection() []byte {
	bodies := [][]byte{
		createAllocationBody(),
		startPointerBody(),
		allocationLengthBody(),
		clearAllocationBody(),
	}
	for i, f := range b.imports {
		bodies = append(bodies, trampolineBody(i, f))
	}

	var section []byte
	section = append(section, EncodeULEB128(uint32(len(bodies)))...)
	for _, body := range bodies {
		section = append(section, EncodeULEB128(uint32(len(body)))...)
		section = append(section, body...)
	}
	return section
}

// createAllocationBody grows memory by enough pages for the header and size
// bytes, stores size at the start of the new pages and returns their address
// as the allocation id.
func createAllocationBody() []byte {
	var body []byte
	body = append(body, 0x01, 0x01, 0x7f) // one i32 local

	body = append(body, 0x20, 0x00) // local.get size
	body = append(body, 0x41)
	body = append(body, EncodeSLEB128(int32(allocationHeader))...)
	body = append(body, 0x6a) // i32.add
	body = append(body, 0x41)
	body = append(body, EncodeSLEB128(int32(PageSize-1))...)
	body = append(body, 0x6a)       // i32.add
	body = append(body, 0x41, 0x10) // i32.const 16
	body = append(body, 0x76)       // i32.shr_u
	body = append(body, 0x40, 0x00) // memory.grow
	body = append(body, 0x41, 0x10) // i32.const 16
	body = append(body, 0x74)       // i32.shl
	body = append(body, 0x22, 0x01) // local.tee base
	body = append(body, 0x20, 0x00) // local.get size
	body = append(body, 0x36, 0x02, 0x00)
	body = append(body, 0x20, 0x01) // local.get base
	body = append(body, 0x0b)
	return body
}

func startPointerBody() []byte {
	var body []byte
	body = append(body, 0x00)
	body = append(body, 0x20, 0x00)
	body = append(body, 0x41)
	body = append(body, EncodeSLEB128(int32(allocationHeader))...)
	body = append(body, 0x6a)
	body = append(body, 0x0b)
	return body
}

func allocationLengthBody() []byte {
	return []byte{
		0x00,
		0x20, 0x00,
		0x28, 0x02, 0x00, // i32.load
		0x0b,
	}
}

func clearAllocationBody() []byte {
	return []byte{
		0x00,
		0x20, 0x00,
		0x41, 0x00,
		0x36, 0x02, 0x00, // i32.store
		0x0b,
	}
}

func trampolineBody(importIdx int, f hostImport) []byte {
	var body []byte
	body = append(body, 0x00)

	for i := range f.paramTypes {
		body = append(body, 0x20)
		body = append(body, EncodeULEB128(uint32(i))...)
	}

	body = append(body, 0x10)
	body = append(body, EncodeULEB128(uint32(importIdx))...)
	body = append(body, 0x0b)
	return body
}

func appendName(b []byte, name string) []byte {
	b = append(b, EncodeULEB128(uint32(len(name)))...)
	return append(b, name...)
}
