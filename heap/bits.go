package heap

import "math/bits"

// Binary-logarithm helpers for the hot path. math/bits lowers these to
// single CLZ-style instructions on every supported architecture, which is
// what keeps bin selection constant-time.

// log2Floor returns floor(log2(x)). Undefined for x == 0.
func log2Floor(x uint64) uint {
	return uint(bits.Len64(x)) - 1
}

// pow2 raises 2 to the given power.
func pow2(power uint) uint64 {
	return uint64(1) << power
}

// roundUpPow2 returns the smallest power of two not less than x.
// Undefined for x < 2 and for x above 1<<63.
func roundUpPow2(x uint64) uint64 {
	return uint64(1) << (64 - uint(bits.LeadingZeros64(x-1)))
}
