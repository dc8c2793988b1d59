package heap

import (
	"fmt"

	"github.com/embworks/fixheap/internal/format"
)

// Verify walks the whole fragment structure and reports the first
// violated invariant. Unlike DoInvariantsHold this is linear in the
// number of fragments and is meant for tests, offline validation, and
// corruption triage — never for the real-time path.
//
// Checked, in order:
//   - the address-order chain covers [instance end, arena end) exactly,
//     with aligned offsets, back-links matching forward links, and every
//     size a multiple of FragmentSizeMin within capacity;
//   - no two adjacent fragments are both free (coalescing is eager);
//   - the allocated counter equals the sum of used fragment sizes;
//   - each bin holds exactly the free fragments of its size class, all
//     with the used flag clear, and the mask mirrors bin emptiness;
//   - the constant-time checks of DoInvariantsHold.
func (h *Heap) Verify() error {
	arenaEnd := h.arenaEnd()
	capacity := h.capacity()
	if arenaEnd != format.InstanceSize+capacity {
		return fmt.Errorf("arena end sentinel %#x does not match capacity %#x", arenaEnd, capacity)
	}

	// Pass 1: address-order chain.
	var usedTotal uint64
	freeAt := make(map[uint64]uint64) // offset -> size, consumed by pass 2
	prev := uint64(0)
	prevFree := false
	for frag := uint64(format.InstanceSize); frag != 0; frag = h.fragNext(frag) {
		if !format.IsAligned(frag) {
			return fmt.Errorf("fragment %#x is not %d-byte aligned", frag, Alignment)
		}
		if frag < format.InstanceSize || frag > arenaEnd-FragmentSizeMin {
			return fmt.Errorf("fragment %#x lies outside the arena", frag)
		}
		if got := h.fragPrev(frag); got != prev {
			return fmt.Errorf("fragment %#x: prev link %#x, expected %#x", frag, got, prev)
		}
		next := h.fragNext(frag)
		if next != 0 && next <= frag {
			return fmt.Errorf("fragment %#x: next link %#x not increasing", frag, next)
		}
		size := h.fragSize(frag)
		if size < FragmentSizeMin || size > capacity || size%FragmentSizeMin != 0 {
			return fmt.Errorf("fragment %#x: illegal size %d", frag, size)
		}
		if h.fragUsed(frag) {
			usedTotal += size
			prevFree = false
		} else {
			if prevFree {
				return fmt.Errorf("adjacent free fragments at %#x", frag)
			}
			freeAt[frag] = size
			prevFree = true
		}
		if next == 0 && frag+size != arenaEnd {
			return fmt.Errorf("last fragment %#x ends at %#x, want %#x", frag, frag+size, arenaEnd)
		}
		prev = frag
	}
	if got := h.allocated(); got != usedTotal {
		return fmt.Errorf("allocated counter %d, used fragments sum to %d", got, usedTotal)
	}

	// Pass 2: bins against the free fragments found on the chain.
	mask := h.binMask()
	for i := uint(0); i < NumBins; i++ {
		head := h.binHead(i)
		if (mask&pow2(i) != 0) != (head != 0) {
			return fmt.Errorf("bin %d: mask bit and head disagree", i)
		}
		prevFreeLink := uint64(0)
		for frag := head; frag != 0; frag = h.freeNext(frag) {
			size, onChain := freeAt[frag]
			if !onChain {
				return fmt.Errorf("bin %d: fragment %#x is not a free fragment on the chain", i, frag)
			}
			delete(freeAt, frag)
			if binIndex(size) != i {
				return fmt.Errorf("bin %d: fragment %#x of size %d belongs in bin %d", i, frag, size, binIndex(size))
			}
			if h.fragUsed(frag) {
				return fmt.Errorf("bin %d: fragment %#x has the used flag set", i, frag)
			}
			if got := h.freePrev(frag); got != prevFreeLink {
				return fmt.Errorf("bin %d: fragment %#x free-list prev %#x, expected %#x", i, frag, got, prevFreeLink)
			}
			prevFreeLink = frag
		}
	}
	if len(freeAt) != 0 {
		for frag := range freeAt {
			return fmt.Errorf("free fragment %#x is not on any bin list", frag)
		}
	}

	if !h.DoInvariantsHold() {
		return fmt.Errorf("diagnostic invariants violated")
	}
	return nil
}
