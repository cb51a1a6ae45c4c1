package rlc

// Wire header encode/decode (§6). All fields are big-endian bit order
// within each byte, MSB first. Headers are built by explicit shift/mask —
// never by relying on a language bit-field layout, per the design notes.

// FI (framing info): bit 0 = NFIRST (head byte of this PDU/segment is not
// the first byte of an SDU), bit 1 = NLAST (tail byte is not the last byte
// of an SDU).
type FI uint8

func (f FI) nfirst() bool { return f&0x2 != 0 }
func (f FI) nlast() bool  { return f&0x1 != 0 }

func makeFI(nfirst, nlast bool) FI {
	var f FI
	if nfirst {
		f |= 0x2
	}
	if nlast {
		f |= 0x1
	}
	return f
}

// --- UM headers ---

// encodeUMHeader5 builds the 1-byte UM header with a 5-bit SN:
// FI:2 | E:1 | SN:5.
func encodeUMHeader5(fi FI, e bool, sn uint32) byte {
	b := byte(fi&0x3) << 6
	if e {
		b |= 1 << 5
	}
	b |= byte(sn & 0x1F)
	return b
}

func decodeUMHeader5(b byte) (fi FI, e bool, sn uint32) {
	fi = FI((b >> 6) & 0x3)
	e = (b>>5)&0x1 != 0
	sn = uint32(b & 0x1F)
	return
}

// encodeUMHeader10 builds the 2-byte UM header with a 10-bit SN:
// R:3 | FI:2 | E:1 | SN:10.
func encodeUMHeader10(fi FI, e bool, sn uint32) [2]byte {
	var hdr [2]byte
	b0 := byte(fi&0x3) << 3
	if e {
		b0 |= 1 << 2
	}
	b0 |= byte((sn >> 8) & 0x3)
	hdr[0] = b0
	hdr[1] = byte(sn & 0xFF)
	return hdr
}

func decodeUMHeader10(hdr []byte) (fi FI, e bool, sn uint32) {
	fi = FI((hdr[0] >> 3) & 0x3)
	e = (hdr[0]>>2)&0x1 != 0
	sn = (uint32(hdr[0]&0x3) << 8) | uint32(hdr[1])
	return
}

// --- AM headers ---

// encodeAMDataHeader builds the 2-byte AM data PDU header:
// DC:1=1 | RF:1=0 | P:1 | FI:2 | E:1 | SN:10.
func encodeAMDataHeader(poll bool, fi FI, e bool, sn uint32) [2]byte {
	var hdr [2]byte
	b0 := byte(0x80) // DC=1, RF=0
	if poll {
		b0 |= 0x20
	}
	b0 |= byte(fi&0x3) << 3
	if e {
		b0 |= 1 << 2
	}
	b0 |= byte((sn >> 8) & 0x3)
	hdr[0] = b0
	hdr[1] = byte(sn & 0xFF)
	return hdr
}

func decodeAMHeader(hdr []byte) (dc, rf, poll bool, fi FI, e bool, sn uint32) {
	dc = hdr[0]&0x80 != 0
	rf = hdr[0]&0x40 != 0
	poll = hdr[0]&0x20 != 0
	fi = FI((hdr[0] >> 3) & 0x3)
	e = (hdr[0]>>2)&0x1 != 0
	sn = (uint32(hdr[0]&0x3) << 8) | uint32(hdr[1])
	return
}

// encodeAMSegmentHeader builds the 4-byte AM segment PDU header: the same
// 2-byte prefix with RF=1, followed by LSF:1 | SO:15.
func encodeAMSegmentHeader(poll bool, fi FI, e bool, sn uint32, lsf bool, so uint32) [4]byte {
	var hdr [4]byte
	prefix := encodeAMDataHeader(poll, fi, e, sn)
	prefix[0] |= 0x40 // RF=1
	hdr[0] = prefix[0]
	hdr[1] = prefix[1]
	b2 := byte(0)
	if lsf {
		b2 |= 0x80
	}
	b2 |= byte((so >> 8) & 0x7F)
	hdr[2] = b2
	hdr[3] = byte(so & 0xFF)
	return hdr
}

func decodeAMSegmentTail(hdr []byte) (lsf bool, so uint32) {
	lsf = hdr[2]&0x80 != 0
	so = (uint32(hdr[2]&0x7F) << 8) | uint32(hdr[3])
	return
}
