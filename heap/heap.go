package heap

import (
	"unsafe"

	"github.com/embworks/fixheap/internal/format"
)

// Ref is the reference to a live allocation: the byte offset of its
// payload from the arena base. NullRef refers to nothing and is a valid
// argument wherever a null pointer would be.
type Ref = uint64

// NullRef is the null allocation reference. Offset 0 addresses the
// instance record, never a payload.
const NullRef Ref = 0

// Public layout constants. These are part of the ABI: every payload
// offset returned by Allocate or Reallocate is a multiple of Alignment.
const (
	// Alignment is the payload alignment granularity and the per-fragment
	// header overhead, in bytes.
	Alignment = format.Alignment

	// FragmentSizeMin is the smallest fragment the heap manages; every
	// fragment size is a multiple of it.
	FragmentSizeMin = format.FragmentSizeMin

	// NumBins is the number of power-of-two size-class bins.
	NumBins = format.NumBins

	// MinArenaSize is the smallest arena Init accepts: the instance
	// record plus one minimum fragment.
	MinArenaSize = format.InstanceSize + format.FragmentSizeMin
)

// debugChecks enables extra structural assertions on the hot paths
// (compile-time toggle).
const debugChecks = false

// Heap is a view over an initialized arena. All allocator state lives in
// the arena bytes; the view itself holds nothing but the slice, so it can
// be dropped and re-created with Attach at any time.
//
// A Heap is not safe for concurrent use.
type Heap struct {
	data []byte
}

// Init places a new heap instance at the base of the given arena and
// creates a single free root fragment spanning the whole capacity.
//
// The arena must be at least MinArenaSize bytes and its base address must
// be a multiple of Alignment (the arena package hands out such buffers).
// On failure the arena is untouched.
func Init(arenaBuf []byte) (*Heap, error) {
	if uint64(len(arenaBuf)) < MinArenaSize {
		return nil, ErrArenaTooSmall
	}
	if uintptr(unsafe.Pointer(unsafe.SliceData(arenaBuf)))%Alignment != 0 {
		return nil, ErrArenaMisaligned
	}

	h := &Heap{data: arenaBuf}
	clear(arenaBuf[:format.InstanceSize])

	capacity := uint64(len(arenaBuf)) - format.InstanceSize
	if capacity > format.FragmentSizeMax {
		capacity = format.FragmentSizeMax
	}
	capacity = format.AlignDownFragment(capacity)

	h.setWord(format.CapacityOffset, capacity)
	h.setWord(format.ArenaEndOffset, format.InstanceSize+capacity)

	// Root fragment: no neighbors, not used, spans the whole capacity.
	root := uint64(format.InstanceSize)
	h.setWord(root+format.FragNext, 0)
	h.setWord(root+format.FragPrevUsed, 0)
	h.rebin(root, capacity)

	return h, nil
}

// Attach adopts an arena previously initialized by Init, for example one
// living in a shared or persistent mapping after the original view was
// dropped. It validates the instance record; the fragment structure is
// trusted (run Verify for a full structural check).
func Attach(arenaBuf []byte) (*Heap, error) {
	if uint64(len(arenaBuf)) < MinArenaSize {
		return nil, ErrArenaTooSmall
	}
	if uintptr(unsafe.Pointer(unsafe.SliceData(arenaBuf)))%Alignment != 0 {
		return nil, ErrArenaMisaligned
	}

	h := &Heap{data: arenaBuf}
	capacity := h.capacity()
	switch {
	case capacity < format.FragmentSizeMin,
		capacity > uint64(len(arenaBuf))-format.InstanceSize,
		capacity%format.FragmentSizeMin != 0,
		h.arenaEnd() != format.InstanceSize+capacity:
		return nil, ErrBadInstance
	}
	if !h.DoInvariantsHold() {
		return nil, ErrBadInstance
	}
	return h, nil
}

// Capacity returns the total number of bytes governed by fragments,
// excluding the instance overhead.
func (h *Heap) Capacity() uint64 {
	return h.capacity()
}

// MaxAllocationSize returns the largest amount a single Allocate call can
// ever satisfy on this instance. It is below the capacity (up to almost
// a factor of two) due to the power-of-two fragment rounding and the
// header overhead; larger requests fail fast without touching the bins.
func (h *Heap) MaxAllocationSize() uint64 {
	return pow2(log2Floor(h.capacity())) - Alignment
}

// Allocate reserves amount bytes and returns the reference and a slice
// over the payload region. The payload is not zeroed. A zero amount
// returns (NullRef, nil, nil); an unsatisfiable request returns
// ErrOutOfMemory and leaves the heap exactly as it was.
func (h *Heap) Allocate(amount uint64) (Ref, []byte, error) {
	if amount == 0 {
		return NullRef, nil, nil
	}

	var frag uint64
	capacity := h.capacity()
	if amount <= capacity-Alignment {
		// Fragment size required: payload plus header, rounded up to a
		// power of two. Rounding the size rather than the request is what
		// lets the bin head be taken without traversal below.
		allocSize := roundUpPow2(amount + Alignment)
		optimalBin := binIndex(allocSize)

		// Bins at or above optimalBin whose members are all adequate.
		suitable := h.binMask() &^ (pow2(optimalBin) - 1)
		smallest := suitable & (^suitable + 1)
		if smallest != 0 {
			idx := log2Floor(smallest)
			frag = h.binHead(idx)
			fragSize := h.fragSize(frag)
			h.unbin(frag, fragSize)

			leftover := fragSize - allocSize
			if leftover >= FragmentSizeMin {
				tail := frag + allocSize
				h.setFragUsed(tail, false)
				h.interlink(tail, h.fragNext(frag))
				h.interlink(frag, tail)
				h.rebin(tail, leftover)
			}

			h.setAllocated(h.allocated() + allocSize)
			h.bumpPeakAllocated()
			h.setFragUsed(frag, true)
		}
	}

	h.bumpPeakRequest(amount)
	if frag == 0 {
		h.setOOMCount(h.oomCount() + 1)
		return NullRef, nil, ErrOutOfMemory
	}
	ref := frag + Alignment
	return ref, h.data[ref : frag+h.fragSize(frag)], nil
}

// Free releases the allocation addressed by ref and eagerly merges it
// with free address-order neighbors. Freeing NullRef is a no-op. A
// reference that does not address a live allocation returns ErrBadRef
// with the heap untouched.
func (h *Heap) Free(ref Ref) error {
	if ref == NullRef {
		return nil
	}
	frag, err := h.checkRef(ref)
	if err != nil {
		return err
	}

	fragSize := h.fragSize(frag)
	h.setFragUsed(frag, false)
	h.setAllocated(h.allocated() - fragSize)

	prev := h.fragPrev(frag)
	next := h.fragNext(frag)
	joinLeft := prev != 0 && !h.fragUsed(prev)
	joinRight := next != 0 && !h.fragUsed(next)
	switch {
	case joinLeft && joinRight: // [prev][frag][next] -> [------prev------]
		prevSize := h.fragSize(prev)
		nextSize := h.fragSize(next)
		h.unbin(prev, prevSize)
		h.unbin(next, nextSize)
		h.interlink(prev, h.fragNext(next))
		h.rebin(prev, prevSize+fragSize+nextSize)
	case joinLeft: // [prev][frag][next] -> [---prev---][next]
		prevSize := h.fragSize(prev)
		h.unbin(prev, prevSize)
		h.interlink(prev, next)
		h.rebin(prev, prevSize+fragSize)
	case joinRight: // [prev][frag][next] -> [prev][---frag---]
		nextSize := h.fragSize(next)
		h.unbin(next, nextSize)
		h.interlink(frag, h.fragNext(next))
		h.rebin(frag, fragSize+nextSize)
	default:
		h.rebin(frag, fragSize)
	}
	return nil
}

// Payload returns the payload region of a live allocation. The slice
// stays valid until the allocation is freed or reallocated.
func (h *Heap) Payload(ref Ref) ([]byte, error) {
	frag, err := h.checkRef(ref)
	if err != nil {
		return nil, err
	}
	return h.data[ref : frag+h.fragSize(frag)], nil
}

// checkRef recovers the fragment behind a payload reference, rejecting
// anything misaligned, outside the arena, or not marked used. The used
// bit catches double frees and references into free space.
func (h *Heap) checkRef(ref Ref) (uint64, error) {
	if ref < format.InstanceSize+Alignment || !format.IsAligned(ref) {
		return 0, ErrBadRef
	}
	frag := ref - Alignment
	if frag > h.arenaEnd()-FragmentSizeMin {
		return 0, ErrBadRef
	}
	if !h.fragUsed(frag) {
		return 0, ErrBadRef
	}
	if debugChecks {
		if next := h.fragNext(frag); next != 0 && (!format.IsAligned(next) || next <= frag) {
			panic("heap: corrupted fragment chain")
		}
	}
	return frag, nil
}

func (h *Heap) arenaEnd() uint64 {
	return h.word(format.ArenaEndOffset)
}

func (h *Heap) capacity() uint64 {
	return h.word(format.CapacityOffset)
}
