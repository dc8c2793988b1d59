package heap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/embworks/fixheap/arena"
	"github.com/embworks/fixheap/internal/format"
)

// newTestHeap initializes a heap with exactly the given capacity.
func newTestHeap(t testing.TB, capacity uint64) *Heap {
	t.Helper()
	h, err := Init(arena.New(format.InstanceSize + int(capacity)))
	require.NoError(t, err)
	require.Equal(t, capacity, h.Capacity())
	return h
}

func TestInit_RejectsSmallArena(t *testing.T) {
	h, err := Init(arena.New(int(MinArenaSize) - 1))
	assert.Nil(t, h)
	assert.ErrorIs(t, err, ErrArenaTooSmall)

	h, err = Init(nil)
	assert.Nil(t, h)
	assert.ErrorIs(t, err, ErrArenaTooSmall)
}

func TestInit_RejectsMisalignedBase(t *testing.T) {
	buf := arena.New(int(MinArenaSize) + Alignment)
	h, err := Init(buf[1:])
	assert.Nil(t, h)
	assert.ErrorIs(t, err, ErrArenaMisaligned)
}

func TestInit_RoundsCapacityDown(t *testing.T) {
	// 17 slack bytes past a whole fragment must be discarded.
	h, err := Init(arena.New(format.InstanceSize + 3*FragmentSizeMin + 17))
	require.NoError(t, err)
	assert.Equal(t, uint64(3*FragmentSizeMin), h.Capacity())
	require.NoError(t, h.Verify())
}

func TestInit_FreshDiagnostics(t *testing.T) {
	h := newTestHeap(t, 1024)
	d := h.Diagnostics()
	assert.Equal(t, uint64(1024), d.Capacity)
	assert.Zero(t, d.Allocated)
	assert.Zero(t, d.PeakAllocated)
	assert.Zero(t, d.PeakRequestSize)
	assert.Zero(t, d.OOMCount)
	assert.True(t, h.DoInvariantsHold())
	require.NoError(t, h.Verify())
}

// Minimum arena, single allocation: one fragment of FragmentSizeMin is
// all the heap has, and it must round-trip.
func TestAllocate_MinimumArena(t *testing.T) {
	h := newTestHeap(t, FragmentSizeMin)

	ref, payload, err := h.Allocate(1)
	require.NoError(t, err)
	assert.NotEqual(t, NullRef, ref)
	assert.Zero(t, ref%Alignment)
	assert.Len(t, payload, FragmentSizeMin-Alignment)
	assert.Equal(t, uint64(FragmentSizeMin), h.Diagnostics().Allocated)
	require.NoError(t, h.Verify())

	require.NoError(t, h.Free(ref))
	assert.Zero(t, h.Diagnostics().Allocated)
	require.NoError(t, h.Verify())
}

func TestAllocate_ZeroAmount(t *testing.T) {
	h := newTestHeap(t, 1024)
	ref, payload, err := h.Allocate(0)
	assert.Equal(t, NullRef, ref)
	assert.Nil(t, payload)
	assert.NoError(t, err)

	// Not a request at all: no counter moves, no OOM accounting.
	d := h.Diagnostics()
	assert.Zero(t, d.PeakRequestSize)
	assert.Zero(t, d.OOMCount)
	assert.True(t, h.DoInvariantsHold())
}

// Maximum-size allocation round-trip over a 4096-byte capacity.
func TestAllocate_MaxAllocationRoundTrip(t *testing.T) {
	h := newTestHeap(t, 4096)

	maxAlloc := h.MaxAllocationSize()
	require.Equal(t, uint64(4096-Alignment), maxAlloc)

	ref, payload, err := h.Allocate(maxAlloc)
	require.NoError(t, err)
	assert.Len(t, payload, int(maxAlloc))
	assert.Equal(t, uint64(4096), h.Diagnostics().Allocated)

	_, _, err = h.Allocate(maxAlloc + 1)
	assert.ErrorIs(t, err, ErrOutOfMemory)
	assert.Equal(t, uint64(1), h.Diagnostics().OOMCount)

	require.NoError(t, h.Free(ref))
	assert.Zero(t, h.Diagnostics().Allocated)
	require.NoError(t, h.Verify())
}

// Merge-both on a triple: freeing the middle of three exhausting
// allocations coalesces the whole capacity back into one fragment.
func TestFree_MergeBothOnTriple(t *testing.T) {
	h := newTestHeap(t, 3*FragmentSizeMin)

	refA, _, err := h.Allocate(1)
	require.NoError(t, err)
	refB, _, err := h.Allocate(1)
	require.NoError(t, err)
	refC, _, err := h.Allocate(1)
	require.NoError(t, err)
	require.Equal(t, uint64(3*FragmentSizeMin), h.Diagnostics().Allocated)

	// Neither end can merge: their neighbors are still used.
	require.NoError(t, h.Free(refA))
	require.NoError(t, h.Free(refC))
	require.NoError(t, h.Verify())
	assert.Equal(t, uint64(FragmentSizeMin), h.Diagnostics().Allocated)

	// The middle merges with both, leaving one 3*FragmentSizeMin block.
	require.NoError(t, h.Free(refB))
	require.NoError(t, h.Verify())
	assert.Zero(t, h.Diagnostics().Allocated)

	// The coalesced block serves a fresh allocation at A's old offset.
	ref, _, err := h.Allocate(FragmentSizeMin - Alignment)
	require.NoError(t, err)
	assert.Equal(t, refA, ref)
	require.NoError(t, h.Verify())
}

// Fragmentation-induced OOM: plenty of free bytes, but no two adjacent.
func TestAllocate_FragmentationOOM(t *testing.T) {
	const capacity = 32 * FragmentSizeMin
	h := newTestHeap(t, capacity)

	refs := make([]Ref, 0, 32)
	for {
		ref, _, err := h.Allocate(1)
		if err != nil {
			assert.ErrorIs(t, err, ErrOutOfMemory)
			break
		}
		refs = append(refs, ref)
	}
	require.Len(t, refs, 32)

	for i := 0; i < len(refs); i += 2 {
		require.NoError(t, h.Free(refs[i]))
	}
	require.NoError(t, h.Verify())

	// Half the capacity is free, yet a two-fragment request cannot land.
	before := h.Diagnostics().OOMCount
	_, _, err := h.Allocate(2*FragmentSizeMin - Alignment)
	assert.ErrorIs(t, err, ErrOutOfMemory)
	assert.Equal(t, before+1, h.Diagnostics().OOMCount)

	// A single-fragment request still does.
	_, _, err = h.Allocate(FragmentSizeMin - Alignment)
	assert.NoError(t, err)
	require.NoError(t, h.Verify())
}

// Drain to empty: any free order returns the heap to a pristine single
// fragment able to serve the maximum allocation.
func TestFree_DrainToEmpty(t *testing.T) {
	orders := map[string]func(n int, i int) int{
		"forward":  func(n, i int) int { return i },
		"backward": func(n, i int) int { return n - 1 - i },
		"inside-out": func(n, i int) int {
			if i%2 == 0 {
				return n/2 + i/2
			}
			return n/2 - 1 - i/2
		},
	}
	for name, order := range orders {
		t.Run(name, func(t *testing.T) {
			h := newTestHeap(t, 4096)
			var refs []Ref
			for {
				ref, _, err := h.Allocate(40)
				if err != nil {
					break
				}
				refs = append(refs, ref)
			}
			require.NotEmpty(t, refs)

			for i := range refs {
				require.NoError(t, h.Free(refs[order(len(refs), i)]))
			}
			assert.Zero(t, h.Diagnostics().Allocated)
			require.NoError(t, h.Verify())

			_, _, err := h.Allocate(h.MaxAllocationSize())
			assert.NoError(t, err)
		})
	}
}

func TestFree_NullRefIsNoOp(t *testing.T) {
	h := newTestHeap(t, 1024)
	_, _, err := h.Allocate(100)
	require.NoError(t, err)

	before := h.Diagnostics()
	require.NoError(t, h.Free(NullRef))
	assert.Equal(t, before, h.Diagnostics())
}

func TestFree_BadRefs(t *testing.T) {
	h := newTestHeap(t, 1024)
	ref, _, err := h.Allocate(100)
	require.NoError(t, err)

	assert.ErrorIs(t, h.Free(ref+1), ErrBadRef)         // misaligned
	assert.ErrorIs(t, h.Free(ref+1<<40), ErrBadRef)     // out of range
	assert.ErrorIs(t, h.Free(Alignment), ErrBadRef)     // inside the instance record
	assert.ErrorIs(t, h.Free(ref+Alignment), ErrBadRef) // interior of a live payload
	require.NoError(t, h.Free(ref))
	assert.ErrorIs(t, h.Free(ref), ErrBadRef) // double free

	require.NoError(t, h.Verify())
}

func TestAllocate_PayloadsAlignedAndDisjoint(t *testing.T) {
	h := newTestHeap(t, 8192)

	type span struct{ lo, hi uint64 }
	var spans []span
	for _, amount := range []uint64{1, 17, 33, 100, 250, 511, 1000} {
		ref, payload, err := h.Allocate(amount)
		require.NoError(t, err)
		assert.Zero(t, ref%Alignment)
		assert.GreaterOrEqual(t, uint64(len(payload)), amount)
		spans = append(spans, span{ref, ref + uint64(len(payload))})
	}
	for i, a := range spans {
		for j, b := range spans {
			if i == j {
				continue
			}
			assert.True(t, a.hi <= b.lo || b.hi <= a.lo,
				"payloads %d and %d overlap", i, j)
		}
	}
	require.NoError(t, h.Verify())
}

func TestMaxAllocationSize_NonPowerOfTwoCapacity(t *testing.T) {
	// Capacity 96: the largest power-of-two fragment that fits is 64.
	h := newTestHeap(t, 96)
	assert.Equal(t, uint64(64-Alignment), h.MaxAllocationSize())

	_, _, err := h.Allocate(64 - Alignment)
	assert.NoError(t, err)
	_, _, err = h.Allocate(64 - Alignment + 1)
	assert.ErrorIs(t, err, ErrOutOfMemory)
}

func TestAttach_RecoversInstance(t *testing.T) {
	buf := arena.New(format.InstanceSize + 2048)
	h, err := Init(buf)
	require.NoError(t, err)

	ref, payload, err := h.Allocate(300)
	require.NoError(t, err)
	for i := range payload[:300] {
		payload[i] = byte(i)
	}
	want := h.Diagnostics()

	// Drop the view; all state lives in the arena bytes.
	h = nil
	h2, err := Attach(buf)
	require.NoError(t, err)
	assert.Equal(t, want, h2.Diagnostics())
	require.NoError(t, h2.Verify())

	got, err := h2.Payload(ref)
	require.NoError(t, err)
	for i := 0; i < 300; i++ {
		require.Equal(t, byte(i), got[i])
	}
	require.NoError(t, h2.Free(ref))
}

func TestAttach_RejectsGarbage(t *testing.T) {
	buf := arena.New(int(MinArenaSize))
	_, err := Attach(buf) // zeroed: capacity 0 is not a valid instance
	assert.ErrorIs(t, err, ErrBadInstance)

	for i := range buf {
		buf[i] = 0xA5
	}
	_, err = Attach(buf)
	assert.ErrorIs(t, err, ErrBadInstance)

	_, err = Attach(buf[:8])
	assert.ErrorIs(t, err, ErrArenaTooSmall)
}

func TestPayload_TracksFragment(t *testing.T) {
	h := newTestHeap(t, 1024)
	ref, payload, err := h.Allocate(100)
	require.NoError(t, err)

	got, err := h.Payload(ref)
	require.NoError(t, err)
	assert.Len(t, got, len(payload))

	_, err = h.Payload(ref + Alignment)
	assert.ErrorIs(t, err, ErrBadRef)
	_, err = h.Payload(NullRef)
	assert.ErrorIs(t, err, ErrBadRef)
}
