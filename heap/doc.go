// Package heap implements a constant-time dynamic memory allocator over a
// single caller-provided contiguous arena.
//
// # Overview
//
// The allocator services allocation, deallocation, and in-place resize
// requests in worst-case time bounded by a small constant, independent of
// arena size, live allocation count, or fragmentation. It is built for
// hard real-time and deeply embedded environments: it owns nothing beyond
// the arena it is given, performs no I/O, never calls the operating
// system, and hides no memory overhead beyond the documented per-fragment
// header.
//
// # Data structure
//
// The arena is carved into an instance record followed by a flat sequence
// of variable-size fragments forming a doubly-linked list in address
// order. Every fragment carries a two-word header; a fragment's size is
// not stored but derived from the distance to its successor (or to the
// arena end for the last fragment), which makes coalescing a pointer-only
// operation.
//
// Free fragments are indexed by 64 power-of-two size classes. A one-word
// bit mask marks the non-empty bins, so placement is a mask-and plus a
// lowest-set-bit extraction: the head of the chosen bin is guaranteed
// adequate without any list traversal.
//
// All metadata — the instance record and the fragment headers — lives in
// the arena bytes as little-endian 64-bit words, and fragments are
// identified by their byte offset from the arena base. Offset zero is the
// instance record, so it doubles as the null reference.
//
// # Usage
//
//	buf := arena.New(64 * 1024)
//	h, err := heap.Init(buf)
//	if err != nil {
//	    return err
//	}
//
//	ref, payload, err := h.Allocate(200)
//	if err != nil {
//	    return err // heap.ErrOutOfMemory when exhausted
//	}
//	copy(payload, data)
//
//	ref, payload, err = h.Reallocate(ref, 500)
//	...
//	if err := h.Free(ref); err != nil {
//	    return err
//	}
//
// Allocation amounts are in bytes; returned payload offsets are always
// multiples of Alignment (16). The largest request an arena can ever
// satisfy is MaxAllocationSize, which is below the capacity due to the
// power-of-two fragment rounding and the header overhead.
//
// # Diagnostics
//
// Every instance maintains capacity, allocated, peak-allocated,
// peak-request, and out-of-memory counters, available as a snapshot via
// Diagnostics. DoInvariantsHold performs a constant-time self-check
// suitable for periodic health monitoring; Verify performs a full
// structural walk and is intended for tests and offline validation.
//
// # Thread safety
//
// A Heap is not safe for concurrent use. No operation blocks or yields;
// callers needing mutual exclusion with interrupt handlers or other
// goroutines must provide their own critical-section discipline.
package heap
