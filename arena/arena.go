// Package arena provides Alignment-aligned byte buffers suitable for heap
// initialization. Go's allocator makes no alignment promise for
// make([]byte, n), so callers should obtain arenas here rather than
// slicing raw allocations.
package arena

import (
	"unsafe"

	"github.com/embworks/fixheap/internal/format"
)

// New returns a zeroed buffer of exactly size bytes whose base address is
// a multiple of the heap alignment. The buffer is ordinary Go-managed
// memory; it is reclaimed by the garbage collector once unreferenced.
func New(size int) []byte {
	if size <= 0 {
		return nil
	}
	raw := make([]byte, size+format.AlignmentMask)
	base := uintptr(unsafe.Pointer(unsafe.SliceData(raw)))
	pad := int(-base & format.AlignmentMask)
	return raw[pad : pad+size : pad+size]
}
