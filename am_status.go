package rlc

import "github.com/kailiu-bupt2005/librlc-lte/internal/bitcopy"

// nackEntry is one parsed/pending NACK in a STATUS PDU: an SN and, when
// hasRange is set, the [soStart,soEnd) byte range within that SN's PDU
// that's actually missing (soEnd == 0x7FFF means "to the end of the PDU").
type nackEntry struct {
	sn               uint32
	hasRange         bool
	soStart, soEnd   uint32
}

type statusGap struct {
	hasRange       bool
	soStart, soEnd uint32
}

// gapsFor returns one entry per missing byte range in a receive-PDU
// record: a record never received at all yields a single whole-PDU entry
// (no byte range); a partially-received, non-intact record yields one
// entry per hole between covered spans, plus a trailing entry to the end
// of the PDU only if the lsf segment hasn't arrived yet (so the PDU's true
// end is still unknown) — once lsf has been received, every remaining gap
// is already a bounded hole between two received spans.
func gapsFor(rec *amRxRecord) []statusGap {
	if !rec.filled || len(rec.segments) == 0 {
		return []statusGap{{hasRange: false}}
	}
	var gaps []statusGap
	pos := uint32(0)
	haveLSF := false
	for _, s := range rec.segments {
		if s.start > pos {
			gaps = append(gaps, statusGap{hasRange: true, soStart: pos, soEnd: s.start})
		}
		pos = s.end
		if s.lsf {
			haveLSF = true
		}
	}
	if !rec.intact && !haveLSF {
		gaps = append(gaps, statusGap{hasRange: true, soStart: pos, soEnd: 0x7FFF})
	}
	return gaps
}

// collectNacks walks VR(R)..VR(H)-1 collecting NACK entries until the bit
// budget (header already accounted for) is exhausted, truncating ACK_SN to
// the first SN whose gaps didn't fully fit. This reports every currently
// known gap up to the highest received SN, rather than stopping at VR(MS)
// (the first gap) — VR(MS) tracks its own rule-3/reordering semantics
// elsewhere but isn't a usable STATUS scan bound: it converges on the first
// gap itself, which would make the scan range empty at the moment a gap
// most needs reporting.
func (a *AMEntity) collectNacks(budgetBits int) (ackSN uint32, nacks []nackEntry) {
	ackSN = a.vrH
	bitsUsed := 15
	for sn := a.vrR; sn != a.vrH; sn = snAdd(sn, 1, amSNSpace) {
		rec := &a.rxBuf[sn]
		if rec.filled && rec.intact {
			continue
		}
		gaps := gapsFor(rec)
		fits := true
		for _, g := range gaps {
			entryBits := 12
			if g.hasRange {
				entryBits += 30
			}
			if bitsUsed+entryBits > budgetBits {
				fits = false
				break
			}
			bitsUsed += entryBits
		}
		if !fits {
			ackSN = sn
			return ackSN, nacks
		}
		for _, g := range gaps {
			nacks = append(nacks, nackEntry{sn: sn, hasRange: g.hasRange, soStart: g.soStart, soEnd: g.soEnd})
		}
	}
	return ackSN, nacks
}

// buildStatusPDU implements the two-pass STATUS PDU encoding of §4.3. The
// 15-bit header is written as a single masked value (DC=0, CPT=0, ACK_SN,
// E1) rather than overlapping bit writes onto a zeroed buffer.
func (a *AMEntity) buildStatusPDU(out []byte) (int, error) {
	budgetBits := len(out) * 8
	ackSN, nacks := a.collectNacks(budgetBits)

	totalBits := 15
	for _, n := range nacks {
		totalBits += 12
		if n.hasRange {
			totalBits += 30
		}
	}
	totalBytes := (totalBits + 7) / 8
	if totalBytes > len(out) {
		return 0, ErrBudgetTooSmall
	}
	for i := 0; i < totalBytes; i++ {
		out[i] = 0
	}

	e1 := uint32(0)
	if len(nacks) > 0 {
		e1 = 1
	}
	header := (ackSN << 1) | e1
	bitcopy.WriteUint(out, 0, 15, header)

	bitOff := 15
	for i, n := range nacks {
		more := uint32(0)
		if i != len(nacks)-1 {
			more = 1
		}
		hasRange := uint32(0)
		if n.hasRange {
			hasRange = 1
		}
		val := (n.sn << 2) | (more << 1) | hasRange
		bitcopy.WriteUint(out, bitOff, 12, val)
		bitOff += 12
		if n.hasRange {
			bitcopy.WriteUint(out, bitOff, 15, n.soStart)
			bitOff += 15
			bitcopy.WriteUint(out, bitOff, 15, n.soEnd)
			bitOff += 15
		}
	}

	a.statusPduTriggered = false
	a.tStatusProhibit.Start(a.cfg.TStatusProhibit)
	a.tStatusProhibitRun = true
	return totalBytes, nil
}

// parseStatusPDU is the inverse of buildStatusPDU. It does not itself
// validate SN ranges or NACK ordering against entity state — ProcessPDU
// does that once the header is decoded, since the checks need VT(A)/VT(S).
func parseStatusPDU(buf []byte) (ackSN uint32, nacks []nackEntry, err error) {
	if len(buf) < 2 {
		return 0, nil, ErrMalformedPDU
	}
	totalBits := len(buf) * 8
	header := bitcopy.ReadUint(buf, 0, 15)
	ackSN = (header >> 1) & 0x3FF
	e1 := header & 0x1
	bitOff := 15

	for e1 != 0 {
		if bitOff+12 > totalBits {
			return 0, nil, ErrMalformedPDU
		}
		val := bitcopy.ReadUint(buf, bitOff, 12)
		bitOff += 12
		sn := (val >> 2) & 0x3FF
		e1 = (val >> 1) & 0x1
		e2 := val & 0x1

		entry := nackEntry{sn: sn}
		if e2 != 0 {
			if bitOff+30 > totalBits {
				return 0, nil, ErrMalformedPDU
			}
			so1 := bitcopy.ReadUint(buf, bitOff, 15)
			bitOff += 15
			so2 := bitcopy.ReadUint(buf, bitOff, 15)
			bitOff += 15
			if so1 >= so2 {
				return 0, nil, ErrProtocolViolation
			}
			entry.hasRange = true
			entry.soStart, entry.soEnd = so1, so2
		}
		nacks = append(nacks, entry)
	}
	return ackSN, nacks, nil
}
