package transcoder

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/wippyai/wasm-bridge/memory"
	"github.com/wippyai/wasm-bridge/resource"
)

// Tag identifies the layout of one argument record.
type Tag byte

const (
	TagUndefined    Tag = 0
	TagNull         Tag = 1
	TagFloat64      Tag = 2
	TagInt64        Tag = 3
	TagString       Tag = 4
	TagExternRef    Tag = 5
	TagFloat32Array Tag = 6
	TagTrue         Tag = 7
	TagFalse        Tag = 8
	TagFloat64Array Tag = 9
	TagUint32Array  Tag = 10

	tagCount = 11
)

// pointerPayload is the size of a (pointer, length) pair.
const pointerPayload = 8

type decodeFunc func(d *Decoder, payload []byte) (any, error)

type tagSpec struct {
	name   string
	size   int
	decode decodeFunc
}

// tagTable is indexed by tag. Adding a tag is one entry here plus an Encoder method.
var tagTable = [tagCount]tagSpec{
	TagUndefined:    {"undefined", 0, decodeUndefined},
	TagNull:         {"null", 0, decodeNull},
	TagFloat64:      {"f64", 8, decodeFloat64},
	TagInt64:        {"i64", 8, decodeInt64},
	TagString:       {"string", pointerPayload, decodeString},
	TagExternRef:    {"externref", 8, decodeExternRef},
	TagFloat32Array: {"f32[]", pointerPayload, decodeFloat32Array},
	TagTrue:         {"true", 0, decodeTrue},
	TagFalse:        {"false", 0, decodeFalse},
	TagFloat64Array: {"f64[]", pointerPayload, decodeFloat64Array},
	TagUint32Array:  {"u32[]", pointerPayload, decodeUint32Array},
}

func (t Tag) String() string {
	if int(t) < tagCount {
		return tagTable[t].name
	}
	return fmt.Sprintf("tag(%d)", byte(t))
}

// PayloadSize returns the number of bytes following tag t on the wire.
func PayloadSize(t Tag) (int, bool) {
	if int(t) >= tagCount {
		return 0, false
	}
	return tagTable[t].size, true
}

func decodeUndefined(*Decoder, []byte) (any, error) { return resource.Undefined, nil }
func decodeNull(*Decoder, []byte) (any, error)      { return nil, nil }
func decodeTrue(*Decoder, []byte) (any, error)      { return true, nil }
func decodeFalse(*Decoder, []byte) (any, error)     { return false, nil }

func decodeFloat64(_ *Decoder, p []byte) (any, error) {
	return math.Float64frombits(binary.LittleEndian.Uint64(p)), nil
}

func decodeInt64(_ *Decoder, p []byte) (any, error) {
	return int64(binary.LittleEndian.Uint64(p)), nil
}

func decodeString(d *Decoder, p []byte) (any, error) {
	data, err := d.readRange(p, 1)
	if err != nil {
		return nil, err
	}
	return memory.DecodeText(data, memory.EncodingUTF8)
}

// decodeExternRef resolves a uid through the arena. A uid that no longer
// resolves decodes to Undefined.
func decodeExternRef(d *Decoder, p []byte) (any, error) {
	h := resource.Handle(binary.LittleEndian.Uint64(p))
	if d.refs == nil {
		return resource.Undefined, nil
	}
	item, ok := d.refs.Get(h)
	if !ok {
		return resource.Undefined, nil
	}
	return item, nil
}

func decodeFloat32Array(d *Decoder, p []byte) (any, error) {
	data, err := d.readRange(p, 4)
	if err != nil {
		return nil, err
	}
	out := make([]float32, len(data)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return out, nil
}

func decodeFloat64Array(d *Decoder, p []byte) (any, error) {
	data, err := d.readRange(p, 8)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(data)/8)
	for i := range out {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(data[i*8:]))
	}
	return out, nil
}

func decodeUint32Array(d *Decoder, p []byte) (any, error) {
	data, err := d.readRange(p, 4)
	if err != nil {
		return nil, err
	}
	out := make([]uint32, len(data)/4)
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(data[i*4:])
	}
	return out, nil
}
