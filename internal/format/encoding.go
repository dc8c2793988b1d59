package format

import "encoding/binary"

// Binary encoding utilities for little-endian metadata words.
//
// Implementation: encoding/binary.LittleEndian. The compiler recognizes
// these calls and lowers them to single load/store instructions on
// little-endian targets, so there is nothing to gain from unsafe access.

// PutU64 writes a uint64 value to the buffer at the specified offset in
// little-endian format.
func PutU64(b []byte, off uint64, v uint64) {
	binary.LittleEndian.PutUint64(b[off:off+WordSize], v)
}

// ReadU64 reads a uint64 value from the buffer at the specified offset in
// little-endian format.
func ReadU64(b []byte, off uint64) uint64 {
	return binary.LittleEndian.Uint64(b[off : off+WordSize])
}
