package heap

import "github.com/embworks/fixheap/internal/format"

// Size-class bin management. Bin i holds free fragments whose size s
// satisfies FragmentSizeMin<<i <= s < FragmentSizeMin<<(i+1); the one-word
// mask mirrors which bins are non-empty so the allocation path can find
// the smallest adequate bin with two bit operations.

func (h *Heap) binHead(idx uint) uint64 {
	return h.word(format.BinsOffset + uint64(idx)*format.WordSize)
}

func (h *Heap) setBinHead(idx uint, frag uint64) {
	h.setWord(format.BinsOffset+uint64(idx)*format.WordSize, frag)
}

func (h *Heap) binMask() uint64 {
	return h.word(format.BinMaskOffset)
}

func (h *Heap) setBinMask(mask uint64) {
	h.setWord(format.BinMaskOffset, mask)
}

// binIndex maps a fragment size (a multiple of FragmentSizeMin) to its
// bin. Rounds down, so a bin's members are at least its class size.
func binIndex(size uint64) uint {
	return log2Floor(size / format.FragmentSizeMin)
}

// rebin pushes a free fragment onto the head of its bin list and marks
// the bin non-empty. Head insertion returns the most recently used
// fragment first on the next allocation, which favors cache locality.
func (h *Heap) rebin(frag, size uint64) {
	idx := binIndex(size)
	head := h.binHead(idx)
	h.setFreeNext(frag, head)
	h.setFreePrev(frag, 0)
	if head != 0 {
		h.setFreePrev(head, frag)
	}
	h.setBinHead(idx, frag)
	h.setBinMask(h.binMask() | pow2(idx))
}

// unbin removes a free fragment from its bin list and clears the mask bit
// if the bin became empty.
func (h *Heap) unbin(frag, size uint64) {
	idx := binIndex(size)
	next := h.freeNext(frag)
	prev := h.freePrev(frag)
	if next != 0 {
		h.setFreePrev(next, prev)
	}
	if prev != 0 {
		h.setFreeNext(prev, next)
	}
	if h.binHead(idx) == frag {
		h.setBinHead(idx, next)
		if next == 0 {
			h.setBinMask(h.binMask() &^ pow2(idx))
		}
	}
}
