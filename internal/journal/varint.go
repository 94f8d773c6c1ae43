package journal

import "encoding/binary"

// Varint helpers. Unsigned values use base-128 LEB varint; signed values use
// the same encoding over binary.PutVarint's zigzag transform, which is
// exactly the `(n << 1) ^ (n >> 63)` mapping spec.md §6 specifies. The
// standard library already implements this correctly, so the per-kind
// encoders in encoder.go build on it directly instead of hand-rolling
// zigzag math (see DESIGN.md for why this is the one place the core
// encoding path leans on the standard library rather than a pack library).

func appendUvarint(buf []byte, v uint64) []byte {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], v)
	return append(buf, tmp[:n]...)
}

func appendVarint(buf []byte, v int64) []byte {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutVarint(tmp[:], v)
	return append(buf, tmp[:n]...)
}

func readUvarint(buf []byte) (v uint64, n int, ok bool) {
	v, n = binary.Uvarint(buf)
	if n <= 0 {
		return 0, 0, false
	}
	return v, n, true
}

func readVarint(buf []byte) (v int64, n int, ok bool) {
	v, n = binary.Varint(buf)
	if n <= 0 {
		return 0, 0, false
	}
	return v, n, true
}
