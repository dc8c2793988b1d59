package heap

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLog2Floor(t *testing.T) {
	cases := map[uint64]uint{
		1: 0, 2: 1, 3: 1, 4: 2, 31: 4, 32: 5, 33: 5,
		1 << 40: 40, 1<<63 + 5: 63,
	}
	for in, want := range cases {
		assert.Equal(t, want, log2Floor(in), "log2Floor(%d)", in)
	}
}

func TestRoundUpPow2(t *testing.T) {
	cases := map[uint64]uint64{
		2: 2, 3: 4, 4: 4, 5: 8, 17: 32, 32: 32, 33: 64,
		1<<62 + 1: 1 << 63, 1 << 63: 1 << 63,
	}
	for in, want := range cases {
		assert.Equal(t, want, roundUpPow2(in), "roundUpPow2(%d)", in)
	}
}
