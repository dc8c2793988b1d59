package heap

import "github.com/embworks/fixheap/internal/format"

// Reallocate resizes the allocation addressed by ref to amount bytes and
// returns the (possibly moved) reference and payload slice.
//
// The cheap cases are tried in order: shrink in place, expand into a free
// successor, expand into a free predecessor (moving the data down), and
// only then allocate-copy-free. The first min(old amount, amount) payload
// bytes are preserved in every successful case.
//
// Degenerate arguments follow the conventions of the C realloc family:
// a NullRef delegates to Allocate, a zero amount delegates to Free and
// returns NullRef. A request above the per-call capacity limit returns
// ErrOutOfMemory and leaves the original allocation valid and unchanged,
// as does a failing fallback allocation.
func (h *Heap) Reallocate(ref Ref, amount uint64) (Ref, []byte, error) {
	if ref == NullRef {
		return h.Allocate(amount)
	}
	if amount == 0 {
		return NullRef, nil, h.Free(ref)
	}

	frag, err := h.checkRef(ref)
	if err != nil {
		return NullRef, nil, err
	}

	h.bumpPeakRequest(amount)
	if amount > h.capacity()-Alignment {
		h.setOOMCount(h.oomCount() + 1)
		return NullRef, nil, ErrOutOfMemory
	}

	fragSize := h.fragSize(frag)
	oldAmount := fragSize - Alignment
	newFragSize := roundUpPow2(amount + Alignment)

	prev := h.fragPrev(frag)
	next := h.fragNext(frag)
	prevFree := prev != 0 && !h.fragUsed(prev)
	nextFree := next != 0 && !h.fragUsed(next)
	var prevSize, nextSize uint64
	if prevFree {
		prevSize = h.fragSize(prev)
	}
	if nextFree {
		nextSize = h.fragSize(next)
	}

	// Shrink or same size: the data stays where it is; split off a free
	// tail if the surplus amounts to a whole fragment, merging it with a
	// free successor so coalescing stays eager.
	if newFragSize <= fragSize {
		leftover := fragSize - newFragSize
		if leftover >= FragmentSizeMin {
			h.setAllocated(h.allocated() - leftover)
			tail := frag + newFragSize
			h.setFragUsed(tail, false)
			h.interlink(frag, tail)
			if nextFree { // [frag][tail][next] -> [frag][---tail---]
				h.unbin(next, nextSize)
				h.interlink(tail, h.fragNext(next))
				h.rebin(tail, leftover+nextSize)
			} else {
				h.interlink(tail, next)
				h.rebin(tail, leftover)
			}
		}
		return ref, h.data[ref : frag+h.fragSize(frag)], nil
	}

	// Expand forward: the successor is free and together they fit. The
	// data stays in place.
	if nextFree && fragSize+nextSize >= newFragSize {
		h.unbin(next, nextSize)
		leftover := fragSize + nextSize - newFragSize
		if leftover >= FragmentSizeMin { // [frag][---next---] -> [---frag---][tail]
			tail := frag + newFragSize
			h.setFragUsed(tail, false)
			h.interlink(tail, h.fragNext(next))
			h.interlink(frag, tail)
			h.rebin(tail, leftover)
			h.setAllocated(h.allocated() + newFragSize - fragSize)
		} else { // [frag][---next---] -> [-----frag-----]
			h.interlink(frag, h.fragNext(next))
			h.setAllocated(h.allocated() + nextSize)
		}
		h.bumpPeakAllocated()
		return ref, h.data[ref : frag+h.fragSize(frag)], nil
	}

	// Expand backward (and forward if the successor is free too): the
	// predecessor is free and the combined span fits. The payload moves
	// down to the predecessor's payload offset. The move target is
	// strictly lower than the source and the length equals the source
	// length, so the overlap-tolerant copy never reads past the old
	// payload; the successor's header lies beyond the moved range and
	// stays readable afterwards.
	if prevFree && prevSize+fragSize+nextSize >= newFragSize {
		h.unbin(prev, prevSize)
		if nextFree {
			h.unbin(next, nextSize)
		}
		out := prev + Alignment
		copy(h.data[out:out+oldAmount], h.data[ref:ref+oldAmount])
		h.setFragUsed(prev, true)
		afterSpan := next
		if nextFree {
			afterSpan = h.fragNext(next)
		}
		leftover := prevSize + fragSize + nextSize - newFragSize
		if leftover >= FragmentSizeMin {
			tail := prev + newFragSize
			h.setFragUsed(tail, false)
			h.interlink(tail, afterSpan)
			h.interlink(prev, tail)
			h.rebin(tail, leftover)
			h.setAllocated(h.allocated() + newFragSize - fragSize)
		} else {
			h.interlink(prev, afterSpan)
			h.setAllocated(h.allocated() + prevSize + nextSize)
		}
		h.bumpPeakAllocated()
		return out, h.data[out : prev+h.fragSize(prev)], nil
	}

	// Last resort: allocate a new fragment, copy, free the old one. The
	// inner Allocate accounts the OOM on failure; the original stays
	// valid in that case. The peak is not raised by the transient state in
	// which both blocks are live, only by the total after the old block
	// is released.
	peak := h.peakAllocated()
	newRef, payload, err := h.Allocate(amount)
	if err != nil {
		return NullRef, nil, err
	}
	copy(payload, h.data[ref:ref+min(oldAmount, amount)])
	if err := h.Free(ref); err != nil {
		return NullRef, nil, err
	}
	h.setWord(format.PeakAllocatedOffset, peak)
	h.bumpPeakAllocated()
	return newRef, payload, nil
}
