package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInstanceLayout(t *testing.T) {
	// The record must stay word-packed and aligned: the first fragment
	// starts at InstanceSize.
	assert.Equal(t, uint64(0), uint64(InstanceSize)%Alignment)
	assert.GreaterOrEqual(t, InstanceSize, instanceRawSize)
	assert.Less(t, InstanceSize-instanceRawSize, Alignment)
	assert.Equal(t, NumBins*WordSize, BinMaskOffset)
}

func TestAlignHelpers(t *testing.T) {
	assert.Equal(t, uint64(16), AlignUp(1))
	assert.Equal(t, uint64(16), AlignUp(16))
	assert.Equal(t, uint64(32), AlignUp(17))
	assert.Equal(t, uint64(0), AlignDownFragment(31))
	assert.Equal(t, uint64(32), AlignDownFragment(63))
	assert.True(t, IsAligned(0))
	assert.True(t, IsAligned(64))
	assert.False(t, IsAligned(8))
}

func TestWordRoundTrip(t *testing.T) {
	buf := make([]byte, 32)
	PutU64(buf, 8, 0xDEADBEEF00C0FFEE)
	assert.Equal(t, uint64(0xDEADBEEF00C0FFEE), ReadU64(buf, 8))
	assert.Equal(t, uint64(0), ReadU64(buf, 0))
}
