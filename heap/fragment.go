package heap

import "github.com/embworks/fixheap/internal/format"

// Fragment header accessors. A fragment is identified by the byte offset
// of its header from the arena base; offset 0 is the instance record and
// serves as the null reference in the next/prev chain and the free lists.

// word and setWord are the only paths to arena metadata.
func (h *Heap) word(off uint64) uint64 {
	return format.ReadU64(h.data, off)
}

func (h *Heap) setWord(off, v uint64) {
	format.PutU64(h.data, off, v)
}

// fragNext returns the next fragment in address order, or 0 for the last.
func (h *Heap) fragNext(frag uint64) uint64 {
	return h.word(frag + format.FragNext)
}

func (h *Heap) setFragNext(frag, next uint64) {
	h.setWord(frag+format.FragNext, next)
}

// fragPrev returns the previous fragment in address order, or 0 for the
// first. The used flag shares the word and is masked off.
func (h *Heap) fragPrev(frag uint64) uint64 {
	return h.word(frag+format.FragPrevUsed) &^ format.UsedFlag
}

func (h *Heap) setFragPrev(frag, prev uint64) {
	h.setWord(frag+format.FragPrevUsed, h.word(frag+format.FragPrevUsed)&format.UsedFlag|prev)
}

// fragUsed reports whether the fragment holds a live allocation.
func (h *Heap) fragUsed(frag uint64) bool {
	return h.word(frag+format.FragPrevUsed)&format.UsedFlag != 0
}

func (h *Heap) setFragUsed(frag uint64, used bool) {
	w := h.word(frag + format.FragPrevUsed)
	if used {
		w |= format.UsedFlag
	} else {
		w &^= format.UsedFlag
	}
	h.setWord(frag+format.FragPrevUsed, w)
}

// fragSize derives the fragment size from the distance to its successor,
// or to the arena end for the last fragment. Sizes are never stored, so
// merges and splits need no size bookkeeping.
func (h *Heap) fragSize(frag uint64) uint64 {
	next := h.fragNext(frag)
	if next != 0 {
		return next - frag
	}
	return h.arenaEnd() - frag
}

// interlink joins two fragments in address order so their next/prev
// references point at each other. Either side may be 0 (no neighbor).
func (h *Heap) interlink(left, right uint64) {
	if left != 0 {
		h.setFragNext(left, right)
	}
	if right != 0 {
		h.setFragPrev(right, left)
	}
}

// freeNext and freePrev navigate the bin free list. The link words live
// in the fragment's payload region and are valid only while it is free.
func (h *Heap) freeNext(frag uint64) uint64 {
	return h.word(frag + format.FragNextFree)
}

func (h *Heap) setFreeNext(frag, next uint64) {
	h.setWord(frag+format.FragNextFree, next)
}

func (h *Heap) freePrev(frag uint64) uint64 {
	return h.word(frag + format.FragPrevFree)
}

func (h *Heap) setFreePrev(frag, prev uint64) {
	h.setWord(frag+format.FragPrevFree, prev)
}
