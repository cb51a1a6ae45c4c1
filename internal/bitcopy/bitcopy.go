// Package bitcopy implements the bit-level copy primitive the RLC wire
// codec needs to pack STATUS PDU fields that do not fall on byte
// boundaries. It is a byte-oriented reworking of the word-at-a-time
// bitcpy() found in librlc/bitcpy.c (itself credited there to the Linux
// framebuffer driver amifb.c): same same-alignment fast path, same
// different-alignment accumulator merge, adapted to operate on []byte
// instead of machine words since Go has no portable unsigned-long bitfield
// layout to exploit.
//
// Only the forward, non-inverting direction is implemented. The reverse and
// inverting variants in the original are dead code paths never reached by
// the RLC core (used there only by a framebuffer blitter, not by any PDU
// encoder) and are intentionally omitted.
package bitcopy

// Copy copies n bits from src, starting at bit offset srcOff (MSB-first,
// bit 0 is the top bit of src[0]), into dst starting at bit offset dstOff.
// Destination bits outside [dstOff, dstOff+n) are left untouched.
func Copy(dst []byte, dstOff int, src []byte, srcOff int, n int) {
	if n <= 0 {
		return
	}

	dstBitShift := dstOff % 8
	srcBitShift := srcOff % 8
	dst = dst[dstOff/8:]
	src = src[srcOff/8:]

	if dstBitShift == srcBitShift {
		copySameAlignment(dst, dstBitShift, src, n)
		return
	}
	copyDifferentAlignment(dst, dstBitShift, src, srcBitShift, n)
}

// copySameAlignment handles the fast path where source and destination
// start at the same bit offset within their first byte: every byte after
// the first can be moved whole.
func copySameAlignment(dst []byte, bitShift int, src []byte, n int) {
	firstMask := byte(0xFF) >> bitShift

	if bitShift+n <= 8 {
		// Entirely within the first byte.
		mask := firstMask & (0xFF << uint(8-bitShift-n))
		dst[0] = merge(src[0], dst[0], mask)
		return
	}

	dst[0] = merge(src[0], dst[0], firstMask)
	n -= 8 - bitShift
	dst = dst[1:]
	src = src[1:]

	nFullBytes := n / 8
	copy(dst[:nFullBytes], src[:nFullBytes])
	dst = dst[nFullBytes:]
	src = src[nFullBytes:]
	n -= nFullBytes * 8

	if n > 0 {
		lastMask := byte(0xFF) << uint(8-n)
		dst[0] = merge(src[0], dst[0], lastMask)
	}
}

// copyDifferentAlignment handles the slow path: each destination byte is
// assembled from two adjacent source bytes using a two-word accumulator,
// shifting the source stream into destination alignment one byte at a time.
func copyDifferentAlignment(dst []byte, dstShift int, src []byte, srcShift int, n int) {
	shift := dstShift - srcShift // may be negative

	pos := 0
	for pos < n {
		remaining := n - pos
		width := 8 - ((dstShift + pos) % 8)
		if width > remaining {
			width = remaining
		}

		bit := dstShift + pos
		dByte := bit / 8
		dBitInByte := bit % 8

		acc := accumulate(src, srcShift+pos, width, shift)
		mask := byte(0xFF) >> dBitInByte
		if dBitInByte+width < 8 {
			mask &= 0xFF << uint(8-dBitInByte-width)
		}
		dst[dByte] = merge(acc>>uint(dBitInByte), dst[dByte], mask)
		pos += width
	}
}

// accumulate reads `width` bits starting at absolute source bit offset
// srcBit (relative to src[0]'s start) and returns them left-justified in a
// byte so the caller can shift/mask them into the destination byte. shift
// is unused directly but documents the original's two-word merge intent;
// kept for readability at call sites.
func accumulate(src []byte, srcBit int, width int, shift int) byte {
	_ = shift
	byteIdx := srcBit / 8
	bitInByte := srcBit % 8

	hi := src[byteIdx]
	var lo byte
	if bitInByte+width > 8 && byteIdx+1 < len(src) {
		lo = src[byteIdx+1]
	}
	full := uint16(hi)<<8 | uint16(lo)
	full <<= uint(bitInByte)
	return byte(full >> 8)
}

// merge composes a and b using mask: bits set in mask come from a, the rest
// from b. Equivalent to the original's comp(a, b, mask).
func merge(a, b, mask byte) byte {
	return ((a ^ b) & mask) ^ b
}
