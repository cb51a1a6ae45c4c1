package rlc

import log "github.com/sirupsen/logrus"

// sliceLIRange recomputes the LI plan for a byte sub-range [start,end) of
// an original PDU's data region, given that PDU's own explicit LI plan.
// nfirst is true when start does not land on an original SDU boundary
// (this resegment continues a partially-sent SDU); nlast is true when end
// does not land on a boundary either.
func sliceLIRange(lengths []uint16, finalLen uint32, start, end uint32) (sub []uint16, subFinal uint32, nfirst, nlast bool) {
	bounds := make([]uint32, 0, len(lengths)+2)
	bounds = append(bounds, 0)
	acc := uint32(0)
	for _, l := range lengths {
		acc += uint32(l)
		bounds = append(bounds, acc)
	}
	acc += finalLen
	bounds = append(bounds, acc)

	nfirst, nlast = true, true
	for _, b := range bounds {
		if b == start {
			nfirst = false
		}
		if b == end {
			nlast = false
		}
	}

	prev := start
	for _, b := range bounds {
		if b > start && b < end {
			sub = append(sub, uint16(b-prev))
			prev = b
		}
	}
	subFinal = end - prev
	return
}

// buildRetxPDU implements the "Retransmit PDU" case of §4.3: the whole-PDU
// fast path when the pending resegment covers [0,end) with lsf and the
// budget allows a full copy, otherwise a 4-byte-header AM segment PDU
// covering one resegment descriptor's byte range. A range whose segment PDU
// does not fit in len(out) is not split further: the call returns
// ErrBudgetTooSmall and the range stays queued.
func (a *AMEntity) buildRetxPDU(out []byte) (int, error) {
	sn := a.retxQueue[0]
	rec := &a.txpdu[sn]
	if rec.iRetransmitSeg >= len(rec.resegs) {
		a.popRetxQueue()
		return 0, ErrNoData
	}
	seg := rec.resegs[rec.iRetransmitSeg]

	if seg.start == 0 && seg.lsf && uint32(len(out)) >= rec.wholeSize() {
		if rec.iRetransmitSeg == 0 {
			if abort := a.bumpRetxCount(sn, rec); abort != nil {
				return 0, abort
			}
		}
		poll := a.decidePoll(int(rec.dataLen()))
		n := rec.encodeWhole(out, poll)
		rec.iRetransmitSeg++
		if rec.iRetransmitSeg >= len(rec.resegs) {
			a.popRetxQueue()
		}
		a.onDataPDUBuilt(poll)
		log.Debugf("[AM][TX] retransmitted whole PDU sn=%d bytes=%d", sn, n)
		return n, nil
	}

	subLengths, subFinal, nfirst, nlast := sliceLIRange(rec.lengths, rec.finalLen, seg.start, seg.end)
	// Offset 0 and the end of the data region are SDU boundaries only when
	// the original PDU itself started/ended on one.
	if seg.start == 0 && rec.fi.nfirst() {
		nfirst = true
	}
	if seg.end == rec.dataLen() && rec.fi.nlast() {
		nlast = true
	}
	liBytes := liByteSize(len(subLengths))
	dataLen := int(seg.end - seg.start)
	const hdrLen = 4
	total := hdrLen + liBytes + dataLen
	if total > len(out) {
		return 0, ErrBudgetTooSmall
	}

	if rec.iRetransmitSeg == 0 {
		if abort := a.bumpRetxCount(sn, rec); abort != nil {
			return 0, abort
		}
	}

	fi := makeFI(nfirst, nlast)
	e := len(subLengths) > 0
	poll := a.decidePoll(dataLen)
	hdr := encodeAMSegmentHeader(poll, fi, e, sn, seg.lsf, seg.start)
	copy(out[:4], hdr[:])
	copy(out[4:4+liBytes], encodeLI(subLengths))
	copy(out[4+liBytes:total], rec.data[seg.start:seg.end])
	_ = subFinal

	rec.iRetransmitSeg++
	if rec.iRetransmitSeg >= len(rec.resegs) {
		a.popRetxQueue()
	}
	a.onDataPDUBuilt(poll)
	log.Debugf("[AM][TX] retransmitted segment sn=%d [%d,%d) bytes=%d", sn, seg.start, seg.end, total)
	return total, nil
}

// bumpRetxCount increments a PDU's retransmission count on the first
// resegment of a retransmission cycle and invokes the max-retransmit
// callback once the configured threshold is reached.
func (a *AMEntity) bumpRetxCount(sn uint32, rec *amTxRecord) error {
	rec.retxCount++
	if a.maxRetx != nil && rec.retxCount >= a.cfg.MaxRetxThreshold {
		if code := a.maxRetx(sn, rec.retxCount); code != 0 {
			return &MaxRetxAbort{Code: code}
		}
	}
	return nil
}

func isNacked(sn uint32, nacks []nackEntry) bool {
	for _, n := range nacks {
		if n.sn == sn {
			return true
		}
	}
	return false
}

// onReceiveStatus implements the NACK/ACK handling of §4.3's "Receive
// STATUS PDU": consecutive NACK entries sharing an SN replace that PDU's
// resegment ring and queue it for retransmission; every other SN in
// [VT(A), ackSN) is freed outright.
func (a *AMEntity) onReceiveStatus(ackSN uint32, nacks []nackEntry) error {
	i := 0
	for i < len(nacks) {
		sn := nacks[i].sn
		rec := &a.txpdu[sn]
		rec.resegs = rec.resegs[:0]
		rec.iRetransmitSeg = 0

		j := i
		for j < len(nacks) && nacks[j].sn == sn {
			n := nacks[j]
			if n.hasRange {
				end := n.soEnd
				lsf := false
				if end >= 0x7FFF || end >= rec.dataLen() {
					end = rec.dataLen()
					lsf = true
				}
				rec.resegs = append(rec.resegs, resegDescriptor{start: n.soStart, end: end, lsf: lsf})
			} else {
				rec.resegs = append(rec.resegs, resegDescriptor{start: 0, end: rec.dataLen(), lsf: true, wholePDU: true})
			}
			j++
		}
		if !rec.queued {
			a.insertRetxQueue(sn)
			rec.queued = true
		}
		i = j
	}

	for sn := a.vtA; sn != ackSN; sn = snAdd(sn, 1, amSNSpace) {
		if !isNacked(sn, nacks) {
			a.freeTxSlot(sn)
		}
	}

	if len(nacks) > 0 {
		a.vtA = nacks[0].sn
	} else {
		a.vtA = ackSN
	}
	a.vtMS = snAdd(a.vtA, amWindowSize, amSNSpace)

	if snLess(a.pollSN, ackSN, amSNSpace) {
		a.tPollRetransmit.Stop()
		a.tPollRetransmitRun = false
	}
	return nil
}
