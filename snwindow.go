package rlc

// Modular sequence-number arithmetic, shared by AM (10-bit SN, window size
// 512) and UM (5- or 10-bit SN, configurable window). All comparisons use
// the half-space ordering from 36.322: a is "less than" b iff advancing
// from a to b, staying within half the SN space, reaches b before wrapping
// past it again.

// snLess reports whether a precedes b in modular order within a SN space
// of size snSpace, using half-space semantics: less(a,b) holds iff
// (b-a) mod snSpace < snSpace/2 and a != b.
func snLess(a, b, snSpace uint32) bool {
	if a == b {
		return false
	}
	return snMod(b-a, snSpace) < snSpace/2
}

// snMod reduces x into [0, snSpace) assuming snSpace is a power of two.
func snMod(x, snSpace uint32) uint32 {
	return x & (snSpace - 1)
}

// snAdd returns (x+delta) mod snSpace.
func snAdd(x, delta, snSpace uint32) uint32 {
	return snMod(x+delta, snSpace)
}

// snSub returns (x-delta) mod snSpace.
func snSub(x, delta, snSpace uint32) uint32 {
	return snMod(x+snSpace-snMod(delta, snSpace), snSpace)
}

// windowContains reports whether x falls in the half-open modular range
// [low, high): window_contains(x,low,high) iff (x-low) mod snSpace <
// (high-low) mod snSpace.
func windowContains(x, low, high, snSpace uint32) bool {
	return snMod(x-low, snSpace) < snMod(high-low, snSpace)
}

const (
	amSNSpace     = 1024 // 10-bit SN field
	amWindowSize  = amSNSpace / 2
)
