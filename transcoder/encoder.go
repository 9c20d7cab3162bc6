package transcoder

import (
	"encoding/binary"
	"math"

	"github.com/wippyai/wasm-bridge/resource"
)

// Encoder builds argument buffers the way guest code lays them out.
// Host tools and tests use it to produce byte-identical buffers.
type Encoder struct {
	buf []byte
}

// NewEncoder creates an empty encoder.
func NewEncoder() *Encoder {
	return &Encoder{}
}

// Undefined appends an undefined record.
func (e *Encoder) Undefined() *Encoder { return e.tag(TagUndefined) }

// Null appends a null record.
func (e *Encoder) Null() *Encoder { return e.tag(TagNull) }

// Bool appends a true or false record.
func (e *Encoder) Bool(v bool) *Encoder {
	if v {
		return e.tag(TagTrue)
	}
	return e.tag(TagFalse)
}

// Float64 appends a double record.
func (e *Encoder) Float64(v float64) *Encoder {
	e.tag(TagFloat64)
	e.buf = binary.LittleEndian.AppendUint64(e.buf, math.Float64bits(v))
	return e
}

// Int64 appends a 64-bit integer record.
func (e *Encoder) Int64(v int64) *Encoder {
	e.tag(TagInt64)
	e.buf = binary.LittleEndian.AppendUint64(e.buf, uint64(v))
	return e
}

// String appends a text record for length UTF-8 bytes at ptr.
func (e *Encoder) String(ptr, length uint32) *Encoder {
	return e.pointer(TagString, ptr, length)
}

// ExternRef appends a record referring to the arena value named by h.
func (e *Encoder) ExternRef(h resource.Handle) *Encoder {
	e.tag(TagExternRef)
	e.buf = binary.LittleEndian.AppendUint64(e.buf, uint64(h))
	return e
}

// Float32Array appends an array record of count elements at ptr.
func (e *Encoder) Float32Array(ptr, count uint32) *Encoder {
	return e.pointer(TagFloat32Array, ptr, count)
}

// Float64Array appends a double array record of count elements at ptr.
func (e *Encoder) Float64Array(ptr, count uint32) *Encoder {
	return e.pointer(TagFloat64Array, ptr, count)
}

// Uint32Array appends an unsigned 32-bit array record of count elements at ptr.
func (e *Encoder) Uint32Array(ptr, count uint32) *Encoder {
	return e.pointer(TagUint32Array, ptr, count)
}

// Bytes returns the encoded buffer. The slice is shared with the encoder
// until Reset.
func (e *Encoder) Bytes() []byte {
	return e.buf
}

// Len returns the encoded size in bytes.
func (e *Encoder) Len() int {
	return len(e.buf)
}

// Reset clears the buffer for reuse.
func (e *Encoder) Reset() {
	e.buf = e.buf[:0]
}

func (e *Encoder) tag(t Tag) *Encoder {
	e.buf = append(e.buf, byte(t))
	return e
}

func (e *Encoder) pointer(t Tag, ptr, n uint32) *Encoder {
	e.tag(t)
	e.buf = binary.LittleEndian.AppendUint32(e.buf, ptr)
	e.buf = binary.LittleEndian.AppendUint32(e.buf, n)
	return e
}
