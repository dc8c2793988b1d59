package heap

import "github.com/embworks/fixheap/internal/format"

// Diagnostics is a snapshot of the per-instance counters. All values are
// in bytes except OOMCount.
type Diagnostics struct {
	// Capacity is the total amount of memory governed by fragments,
	// excluding the instance overhead. Constant over the lifetime.
	Capacity uint64

	// Allocated is the sum of the sizes of all used fragments, headers
	// and rounding included.
	Allocated uint64

	// PeakAllocated is the largest Allocated observed between operations.
	// Monotonically non-decreasing.
	PeakAllocated uint64

	// PeakRequestSize is the largest amount ever passed to Allocate or
	// Reallocate, satisfied or not.
	PeakRequestSize uint64

	// OOMCount is the number of requests that failed for lack of memory.
	OOMCount uint64
}

// Diagnostics returns a value copy of the diagnostics record.
func (h *Heap) Diagnostics() Diagnostics {
	return Diagnostics{
		Capacity:        h.capacity(),
		Allocated:       h.allocated(),
		PeakAllocated:   h.peakAllocated(),
		PeakRequestSize: h.peakRequest(),
		OOMCount:        h.oomCount(),
	}
}

// DoInvariantsHold runs the constant-time self-check: bin mask vs. head
// consistency, counter bounds and alignment, and the accounting relation
// between the peak request and the peak allocation. It is cheap enough to
// call from a periodic health monitor; Verify does the full structural
// walk.
func (h *Heap) DoInvariantsHold() bool {
	valid := true

	mask := h.binMask()
	for i := uint(0); i < NumBins; i++ {
		maskBitSet := mask&pow2(i) != 0
		binNonEmpty := h.binHead(i) != 0
		valid = valid && maskBitSet == binNonEmpty
	}

	d := h.Diagnostics()

	valid = valid && d.Capacity >= FragmentSizeMin && d.Capacity <= format.FragmentSizeMax &&
		d.Capacity%FragmentSizeMin == 0

	valid = valid && d.Allocated <= d.Capacity && d.Allocated%FragmentSizeMin == 0 &&
		d.PeakAllocated <= d.Capacity && d.PeakAllocated >= d.Allocated &&
		d.PeakAllocated%FragmentSizeMin == 0

	valid = valid && (d.PeakRequestSize < d.Capacity || d.OOMCount > 0)
	if d.PeakRequestSize == 0 {
		valid = valid && d.PeakAllocated == 0 && d.Allocated == 0 && d.OOMCount == 0
	} else {
		// Summation may wrap near the top of the range; a wrapped value
		// still compares correctly against PeakAllocated <= Capacity.
		valid = valid && (d.PeakRequestSize+Alignment <= d.PeakAllocated || d.OOMCount > 0)
	}

	return valid
}

// BinCounts returns the number of free fragments currently held by each
// size-class bin. It traverses the free lists, so unlike Diagnostics it
// is linear in the number of free fragments; observation tooling only.
func (h *Heap) BinCounts() [NumBins]uint64 {
	var counts [NumBins]uint64
	for i := uint(0); i < NumBins; i++ {
		for frag := h.binHead(i); frag != 0; frag = h.freeNext(frag) {
			counts[i]++
		}
	}
	return counts
}

func (h *Heap) allocated() uint64 {
	return h.word(format.AllocatedOffset)
}

func (h *Heap) setAllocated(v uint64) {
	h.setWord(format.AllocatedOffset, v)
}

func (h *Heap) peakAllocated() uint64 {
	return h.word(format.PeakAllocatedOffset)
}

// bumpPeakAllocated raises the peak to the current allocated total.
func (h *Heap) bumpPeakAllocated() {
	if a := h.allocated(); a > h.peakAllocated() {
		h.setWord(format.PeakAllocatedOffset, a)
	}
}

func (h *Heap) peakRequest() uint64 {
	return h.word(format.PeakRequestSizeOffset)
}

func (h *Heap) bumpPeakRequest(amount uint64) {
	if amount > h.peakRequest() {
		h.setWord(format.PeakRequestSizeOffset, amount)
	}
}

func (h *Heap) oomCount() uint64 {
	return h.word(format.OOMCountOffset)
}

func (h *Heap) setOOMCount(v uint64) {
	h.setWord(format.OOMCountOffset, v)
}
