package transcoder

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"

	wasmbridge "github.com/wippyai/wasm-bridge"
	"github.com/wippyai/wasm-bridge/errors"
	"github.com/wippyai/wasm-bridge/resource"
)

// Memory reads byte ranges out of guest linear memory.
// memory.Bridge implements it.
type Memory = wasmbridge.Memory

// Resolver resolves externref uids to host values.
// resource.Arena implements it.
type Resolver interface {
	Get(h resource.Handle) (any, bool)
}

// Decoder turns argument buffers into Go values.
// It keeps no state between calls and is safe to use reentrantly.
type Decoder struct {
	mem  Memory
	refs Resolver
}

// NewDecoder creates a decoder reading payloads through mem and resolving
// externrefs through refs.
func NewDecoder(mem Memory, refs Resolver) *Decoder {
	return &Decoder{mem: mem, refs: refs}
}

// Decode reads records left to right until buf is exhausted.
// Any malformed record fails the whole buffer; no partial list is returned.
func (d *Decoder) Decode(buf []byte) ([]any, error) {
	args := make([]any, 0, len(buf)/(1+pointerPayload)+1)
	cursor := 0
	for cursor < len(buf) {
		tag := buf[cursor]
		if int(tag) >= tagCount {
			return nil, errors.UnknownTag(tag, cursor)
		}
		cursor++

		spec := &tagTable[tag]
		if cursor+spec.size > len(buf) {
			return nil, errors.Truncated(spec.name, cursor-1, spec.size, len(buf)-cursor)
		}
		v, err := spec.decode(d, buf[cursor:cursor+spec.size])
		if err != nil {
			return nil, decodeError(err, spec.name, len(args))
		}
		args = append(args, v)
		cursor += spec.size
	}
	return args, nil
}

// readRange resolves a (pointer, count) payload to a copy of count*elemSize bytes.
func (d *Decoder) readRange(p []byte, elemSize uint64) ([]byte, error) {
	ptr := binary.LittleEndian.Uint32(p[0:4])
	count := binary.LittleEndian.Uint32(p[4:8])
	length := uint64(count) * elemSize
	if length > math.MaxUint32 {
		return nil, errors.InvalidData(errors.PhaseDecode, fmt.Sprintf("%d elements at %d overflow guest memory", count, ptr))
	}
	if d.mem == nil {
		return nil, errors.NotInitialized(errors.PhaseDecode, "guest memory")
	}
	return d.mem.Read(ptr, uint32(length))
}

func decodeError(err error, tag string, index int) error {
	if e, ok := err.(*errors.Error); ok && e.Phase == errors.PhaseDecode {
		return e
	}
	return errors.New(errors.PhaseDecode, errors.KindOutOfBounds).
		Path("arg[" + strconv.Itoa(index) + "]").
		Detail("%s payload", tag).
		Cause(err).
		Build()
}
