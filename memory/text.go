package memory

import (
	"fmt"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"

	"github.com/wippyai/wasm-bridge/errors"
)

// Encoding selects how a guest text range is decoded.
type Encoding uint32

const (
	EncodingUTF8  Encoding = 8
	EncodingUTF16 Encoding = 16 // little-endian, no BOM
)

func (e Encoding) String() string {
	switch e {
	case EncodingUTF8:
		return "utf-8"
	case EncodingUTF16:
		return "utf-16le"
	default:
		return fmt.Sprintf("encoding(%d)", uint32(e))
	}
}

func (e Encoding) codec() (encoding.Encoding, bool) {
	switch e {
	case EncodingUTF8:
		return unicode.UTF8, true
	case EncodingUTF16:
		return unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM), true
	default:
		return nil, false
	}
}

// DecodeText converts guest bytes to a Go string. Malformed sequences are
// replaced with U+FFFD rather than rejected.
func DecodeText(data []byte, enc Encoding) (string, error) {
	codec, ok := enc.codec()
	if !ok {
		return "", errors.Unsupported(errors.PhaseDecode, "text "+enc.String())
	}
	if enc == EncodingUTF8 && isASCII(data) {
		return string(data), nil
	}
	out, err := codec.NewDecoder().Bytes(data)
	if err != nil {
		return "", errors.Wrap(errors.PhaseDecode, errors.KindInvalidData, err, "decode "+enc.String())
	}
	return string(out), nil
}

// EncodeText converts a Go string into guest bytes.
func EncodeText(s string, enc Encoding) ([]byte, error) {
	codec, ok := enc.codec()
	if !ok {
		return nil, errors.Unsupported(errors.PhaseEncode, "text "+enc.String())
	}
	if enc == EncodingUTF8 {
		return []byte(s), nil
	}
	out, err := codec.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, errors.Wrap(errors.PhaseEncode, errors.KindInvalidData, err, "encode "+enc.String())
	}
	return out, nil
}

func isASCII(data []byte) bool {
	for _, c := range data {
		if c >= 0x80 {
			return false
		}
	}
	return true
}
