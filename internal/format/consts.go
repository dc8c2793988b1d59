// Package format houses the in-arena layout of the heap: instance record
// field offsets, fragment header offsets, and the word accessors used to
// read and write them. The goal is to keep the byte-level layout in one
// place and independent from the public API so the engine can orchestrate
// the data in a more ergonomic form.
package format

const (
	// WordSize is the size of a single metadata word in bytes. The layout
	// is fixed at 64-bit words regardless of the host platform so that an
	// initialized arena image means the same thing everywhere.
	WordSize = 8

	// Alignment is the alignment granularity of the heap: fragment
	// addresses, the arena base, and returned payload offsets are all
	// multiples of it. It equals two words and is also the fragment
	// header size.
	Alignment = 2 * WordSize

	// AlignmentMask is Alignment - 1, for mask-based rounding.
	AlignmentMask = Alignment - 1

	// FragmentHeaderSize is the number of bytes occupied by the header at
	// the start of every fragment, free or used.
	FragmentHeaderSize = Alignment

	// FragmentSizeMin is the smallest legal fragment size: a header plus
	// one aligned payload unit. Free-list link words live inside the
	// payload region, so FragmentSizeMin must cover header + two words.
	FragmentSizeMin = 2 * Alignment

	// FragmentSizeMax caps a single fragment at 2^63 bytes. Larger sizes
	// would overflow the power-of-two rounding in the allocation path.
	FragmentSizeMax = 1 << 63

	// NumBins is the number of size-class bins. Bin i holds free fragments
	// of size in [FragmentSizeMin<<i, FragmentSizeMin<<(i+1)). Bins above
	// log2(FragmentSizeMax/FragmentSizeMin) can never be populated but
	// their slots exist so bin indexing needs no range check.
	NumBins = 64
)

// Instance record field offsets, in bytes from the arena base. The record
// is a flat array of words: NumBins bin heads, the non-empty-bin mask, the
// arena-end sentinel, then the diagnostic counters.
const (
	BinsOffset            = 0
	BinMaskOffset         = NumBins * WordSize
	ArenaEndOffset        = BinMaskOffset + WordSize
	CapacityOffset        = ArenaEndOffset + WordSize
	AllocatedOffset       = CapacityOffset + WordSize
	PeakAllocatedOffset   = AllocatedOffset + WordSize
	PeakRequestSizeOffset = PeakAllocatedOffset + WordSize
	OOMCountOffset        = PeakRequestSizeOffset + WordSize

	instanceRawSize = OOMCountOffset + WordSize

	// InstanceSize is the instance record footprint padded up to Alignment
	// so the first fragment lands on an aligned offset.
	InstanceSize = (instanceRawSize + AlignmentMask) &^ AlignmentMask
)

// Fragment header field offsets, in bytes from the fragment base.
//
// FragNext holds the arena offset of the next fragment in address order,
// or 0 for the last fragment. FragPrevUsed holds the offset of the
// previous fragment with the used flag in bit 0; fragment offsets are
// Alignment-aligned so bit 0 is always free for the flag.
//
// FragNextFree and FragPrevFree form the bin free list. They live inside
// the allocatable payload region and are meaningful only while the
// fragment is free.
const (
	FragNext     = 0
	FragPrevUsed = WordSize
	FragNextFree = 2 * WordSize
	FragPrevFree = 3 * WordSize

	// UsedFlag is the bit in FragPrevUsed marking a live fragment.
	UsedFlag = 1
)
