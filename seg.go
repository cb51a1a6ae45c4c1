package rlc

import "github.com/kailiu-bupt2005/librlc-lte/internal/bitcopy"

// Segmentation / concatenation engine (§4.1). UM and AM fresh PDUs use it
// to pack whole-or-partial SDUs into a PDU. AM resegmentation (am_retx.go)
// recomputes its LI plan with sliceLIRange and reuses liByteSize and
// encodeLI from here.

const (
	maxLI      = 32
	maxLIValue = 2047 // 11 bits
)

// liPlan is the result of walking the SDU queue to decide how many whole
// SDUs a PDU can carry and how much of the SDU following them it should
// partially consume. lengths holds one entry per SDU that is fully
// consumed and gets an explicit LI; finalLen is the (possibly partial,
// possibly zero) length consumed from the SDU immediately after those,
// whose length is never written explicitly (the "last LI omitted"
// optimization) because it falls out of pduBudget - headerLen - LI bytes.
type liPlan struct {
	lengths  []uint16
	finalLen uint32
}

// totalData is the number of SDU-payload bytes this plan will copy.
func (p liPlan) totalData() uint32 {
	var total uint32
	for _, l := range p.lengths {
		total += uint32(l)
	}
	return total + p.finalLen
}

// liByteSize returns the number of bytes needed to encode n explicit LIs:
// pairs of LIs share 3 bytes, a trailing unpaired LI costs 2.
func liByteSize(n int) int {
	return (n/2)*3 + (n%2)*2
}

// buildLIFromSDUs walks sdus head-first and produces a plan for a PDU of
// at most pduBudget bytes, headerLen of which is consumed by the fixed
// PDU header (not the LI list). It never looks past 32 SDUs (the LI list
// cap) and never emits an LI for an SDU longer than 2047 bytes (the value
// would not fit in the 11-bit field) — such an SDU is always left to be
// the final, implicit-length chunk.
func buildLIFromSDUs(pduBudget, headerLen uint32, sdus []*SDU) liPlan {
	if headerLen >= pduBudget || len(sdus) == 0 {
		return liPlan{}
	}
	budget := pduBudget - headerLen
	var plan liPlan
	var consumed uint32

	for i, sdu := range sdus {
		remaining := sdu.remaining()
		isLast := i == len(sdus)-1
		tooLarge := remaining > maxLIValue
		explicitCount := len(plan.lengths) + 1
		fitsAsExplicit := !isLast && !tooLarge && len(plan.lengths) < maxLI &&
			consumed+remaining+uint32(liByteSize(explicitCount)) <= budget

		if fitsAsExplicit {
			plan.lengths = append(plan.lengths, uint16(remaining))
			consumed += remaining
			continue
		}

		// This SDU becomes the final, implicit-length chunk.
		overhead := uint32(liByteSize(len(plan.lengths)))
		if consumed+overhead >= budget {
			break
		}
		space := budget - overhead - consumed
		take := remaining
		if take > space {
			take = space
		}
		plan.finalLen = take
		break
	}
	return plan
}

// encodeLI packs the explicit LI values as alternating 11-bit fields with
// 1-bit E flags (1 = another LI follows, 0 = last explicit LI), MSB-first,
// paired two-to-three-bytes with an unpaired trailing singleton costing
// two bytes.
func encodeLI(lengths []uint16) []byte {
	n := len(lengths)
	out := make([]byte, liByteSize(n))
	bitOff := 0
	for i, li := range lengths {
		more := uint32(0)
		if i != n-1 {
			more = 1
		}
		bitcopy.WriteUint(out, bitOff, 1, more)
		bitcopy.WriteUint(out, bitOff+1, 11, uint32(li))
		bitOff += 12
	}
	return out
}

// parseLI is the inverse of encodeLI plus the implicit-final-LI recovery:
// it reads (E,LI) pairs until an E=0 terminates the explicit list, then
// derives the final chunk length as streamLen minus every explicit LI and
// minus the bytes the explicit list itself occupied. Returns
// ErrMalformedPDU if an explicit LI is zero, the list exceeds 32 entries,
// or the accumulated length does not fit within streamLen.
func parseLI(stream []byte, streamLen uint32) ([]uint16, uint32, error) {
	var lengths []uint16
	bitOff := 0
	sumExplicit := uint32(0)
	for {
		if len(lengths) >= maxLI {
			return nil, 0, ErrMalformedPDU
		}
		e := bitcopy.ReadUint(stream, bitOff, 1)
		li := bitcopy.ReadUint(stream, bitOff+1, 11)
		if li == 0 {
			return nil, 0, ErrMalformedPDU
		}
		lengths = append(lengths, uint16(li))
		sumExplicit += li
		bitOff += 12
		if e == 0 {
			break
		}
	}
	liBytes := uint32(liByteSize(len(lengths)))
	if sumExplicit+liBytes > streamLen {
		return nil, 0, ErrMalformedPDU
	}
	finalLen := streamLen - sumExplicit - liBytes
	return lengths, finalLen, nil
}

// encodeSDU copies SDU bytes into dst (the PDU's data region) following
// plan, advancing each consumed SDU's offset. Every SDU drained to zero
// remaining bytes is released and popped from the front of q here. It
// returns the number of such whole SDUs and the total bytes written.
func encodeSDU(dst []byte, plan liPlan, q *sduQueue) (nConsumedWhole int, totalBytes int) {
	pos := 0
	for range plan.lengths {
		sdu := q.front()
		n := sdu.copyBytes(dst[pos:])
		pos += n
		if sdu.remaining() == 0 {
			sdu.releaseAll()
			q.popFront()
			nConsumedWhole++
		}
	}
	if plan.finalLen > 0 {
		sdu := q.front()
		if sdu != nil {
			n := sdu.copyBytes(dst[pos : pos+int(plan.finalLen)])
			pos += n
			if sdu.remaining() == 0 {
				sdu.releaseAll()
				q.popFront()
				nConsumedWhole++
			}
		}
	}
	return nConsumedWhole, pos
}
