// Package transcoder decodes the tagged argument buffers guests pass to host
// functions.
//
// A buffer is a sequence of records, each a one-byte tag followed by a
// fixed-size payload:
//
//	tag  meaning      payload
//	0    undefined    none
//	1    null         none
//	2    f64          float64 LE
//	3    i64          int64 LE
//	4    string       ptr u32 LE, byte length u32 LE (UTF-8)
//	5    externref    uid u64 LE
//	6    f32[]        ptr u32 LE, element count u32 LE
//	7    true         none
//	8    false        none
//	9    f64[]        ptr u32 LE, element count u32 LE
//	10   u32[]        ptr u32 LE, element count u32 LE
//
// Variable-length data lives in guest memory and is copied out through
// Memory. Externref uids are resolved through a Resolver; a uid that no
// longer resolves decodes to resource.Undefined.
//
// An unknown tag or a payload running past the end of the buffer fails the
// whole decode. Nothing is recovered from a malformed buffer.
//
// Encoder produces the same layout:
//
//	buf := transcoder.NewEncoder().
//		Float64(3.5).
//		String(ptr, 2).
//		Bool(true).
//		Bytes()
package transcoder
