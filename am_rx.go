package rlc

import log "github.com/sirupsen/logrus"

// insertSegment allocates a pool slot for seg and inserts it into rec's
// segment list in start-offset order. Caller has already checked for
// overlap. Returns ErrPoolExhausted if the entity's segment-record pool
// has no free slots (§7 resource exhaustion).
func (a *AMEntity) insertSegment(rec *amRxRecord, seg amSegmentRecord) error {
	handle, slot, ok := a.segPool.Alloc()
	if !ok {
		return ErrPoolExhausted
	}
	*slot = seg

	idx := 0
	for idx < len(rec.segments) && rec.segments[idx].start < seg.start {
		idx++
	}
	rec.segments = append(rec.segments, nil)
	rec.handles = append(rec.handles, 0)
	copy(rec.segments[idx+1:], rec.segments[idx:])
	copy(rec.handles[idx+1:], rec.handles[idx:])
	rec.segments[idx] = slot
	rec.handles[idx] = handle
	rec.filled = true
	return nil
}

// computeIntact implements §4.4's intact rule: every segment's start must
// equal its predecessor's end, and some segment must carry lsf.
func computeIntact(segments []*amSegmentRecord) bool {
	expected := uint32(0)
	for _, s := range segments {
		if s.start != expected {
			return false
		}
		expected = s.end
		if s.lsf {
			return true
		}
	}
	return false
}

// ProcessPDU implements §4.4 (data PDUs) and the receive half of §4.3
// (STATUS PDUs), dispatching on the DC bit.
func (a *AMEntity) ProcessPDU(buf []byte, cookie any, release func(any)) error {
	if len(buf) < 2 {
		if release != nil {
			release(cookie)
		}
		return ErrMalformedPDU
	}

	if buf[0]&0x80 == 0 {
		ackSN, nacks, err := parseStatusPDU(buf)
		if release != nil {
			release(cookie)
		}
		if err != nil {
			return err
		}
		if !(windowContains(ackSN, a.vtA, a.vtS, amSNSpace) || ackSN == a.vtS) {
			return ErrProtocolViolation
		}
		for _, n := range nacks {
			if !windowContains(n.sn, a.vtA, ackSN, amSNSpace) {
				return ErrProtocolViolation
			}
		}
		// NACK SNs must not descend; consecutive entries may share an SN
		// (one per missing byte range of that PDU).
		for i := 1; i < len(nacks); i++ {
			if snLess(nacks[i].sn, nacks[i-1].sn, amSNSpace) {
				return ErrProtocolViolation
			}
		}
		return a.onReceiveStatus(ackSN, nacks)
	}

	_, rf, poll, fi, e, sn := decodeAMHeader(buf[:2])
	headerLen := 2
	var so uint32
	var lsf bool
	if rf {
		if len(buf) < 4 {
			if release != nil {
				release(cookie)
			}
			return ErrMalformedPDU
		}
		lsf, so = decodeAMSegmentTail(buf[:4])
		headerLen = 4
	}

	payload := buf[headerLen:]
	var lengths []uint16
	var finalLen uint32
	var err error
	if e {
		lengths, finalLen, err = parseLI(payload, uint32(len(payload)))
		if err != nil {
			if release != nil {
				release(cookie)
			}
			return err
		}
		payload = payload[liByteSize(len(lengths)):]
	} else {
		finalLen = uint32(len(payload))
	}

	windowOK := windowContains(sn, a.vrR, a.vrMR, amSNSpace)
	placed := false
	if windowOK {
		rec := &a.rxBuf[sn]
		start, end, segLsf := uint32(0), uint32(len(payload)), true
		if rf {
			start, end, segLsf = so, so+uint32(len(payload)), lsf
		}
		duplicateWhole := !rf && rec.filled
		overlap := false
		for _, s := range rec.segments {
			if start < s.end && s.start < end {
				overlap = true
				break
			}
		}
		if !duplicateWhole && !overlap {
			ref := &refCounted{onZero: func() {
				if release != nil {
					release(cookie)
				}
			}}
			if err := a.insertSegment(rec, amSegmentRecord{
				start: start, end: end, lsf: segLsf,
				fi: fi, lengths: lengths, finalLen: finalLen, payload: payload, ref: ref,
			}); err != nil {
				if release != nil {
					release(cookie)
				}
				return err
			}
			rec.intact = computeIntact(rec.segments)
			placed = true
		}
	}
	if !placed && release != nil {
		release(cookie)
	}

	a.updateStateAfterPlacement(sn, placed, poll)
	log.Debugf("[AM][RX] pdu sn=%d rf=%v placed=%v poll=%v", sn, rf, placed, poll)
	return nil
}

// updateStateAfterPlacement implements the 8 numbered steps of §4.4's
// "State updates on each successfully placed data PDU".
func (a *AMEntity) updateStateAfterPlacement(sn uint32, placed, poll bool) {
	if placed {
		if snLess(a.vrH, snAdd(sn, 1, amSNSpace), amSNSpace) || a.vrH == sn {
			a.vrH = snAdd(sn, 1, amSNSpace)
		}

		if sn == a.vrMS && a.rxBuf[sn].intact {
			for a.rxBuf[a.vrMS].filled && a.rxBuf[a.vrMS].intact && a.vrMS != a.vrH {
				a.vrMS = snAdd(a.vrMS, 1, amSNSpace)
			}
		}

		if sn == a.vrR {
			for a.rxBuf[a.vrR].filled && a.rxBuf[a.vrR].intact {
				a.reassembleAMRecord(a.vrR)
				a.freeRxSlot(a.vrR)
				a.vrR = snAdd(a.vrR, 1, amSNSpace)
				a.vrMR = snAdd(a.vrR, amWindowSize, amSNSpace)
				if a.vrR == a.vrH {
					break
				}
			}
		}
	}

	if poll {
		a.triggerStatusReport(!placed, sn)
		a.tStatusPdu.Stop()
		a.tStatusPdu.Start(a.cfg.TStatusPdu)
		a.tStatusPduRun = true
	}

	if a.tReorderingRun {
		outside := !windowContains(a.vrX, a.vrR, a.vrMR, amSNSpace)
		if a.vrX == a.vrR || (outside && a.vrX != a.vrMR) {
			a.tReordering.Stop()
			a.tReorderingRun = false
		}
	}
	if !a.tReorderingRun && snLess(a.vrR, a.vrH, amSNSpace) {
		a.tReordering.Start(a.cfg.TReordering)
		a.tReorderingRun = true
		a.vrX = a.vrH
	}

	a.assembly.drainIntact(a.deliver)
}

// reassembleAMRecord applies §4.4's reassembly rule: each segment (in
// start order, same as a UM PDU) extends or starts SDUs via the shared
// FI-driven helper.
func (a *AMEntity) reassembleAMRecord(sn uint32) {
	rec := &a.rxBuf[sn]
	for _, seg := range rec.segments {
		if err := reassembleChunks(&a.assembly, seg.fi, seg.lengths, seg.finalLen, seg.payload, seg.ref); err != nil {
			log.Warnf("[AM][RX] discarding malformed reassembly for sn=%d: %v", sn, err)
		}
	}
}

// triggerStatusReport implements §4.4's status-report trigger rule,
// shared by poll handling, t-Reordering expiry, and t-StatusPdu expiry.
func (a *AMEntity) triggerStatusReport(forced bool, solicitSN uint32) {
	if forced || !windowContains(solicitSN, a.vrMS, a.vrMR, amSNSpace) {
		a.statusPduTriggered = true
	}
}

// onReorderingExpiry implements §4.4's t-Reordering expiry: VR(MS) jumps
// to the first not-fully-received SN at or after VR(X), the timer
// restarts if a gap remains, and a STATUS report is force-triggered.
func (a *AMEntity) onReorderingExpiry() {
	a.tReorderingRun = false
	newVRMS := a.vrH
	for s := a.vrX; s != a.vrH; s = snAdd(s, 1, amSNSpace) {
		if !(a.rxBuf[s].filled && a.rxBuf[s].intact) {
			newVRMS = s
			break
		}
	}
	a.vrMS = newVRMS
	if snLess(a.vrMS, a.vrH, amSNSpace) {
		a.tReordering.Start(a.cfg.TReordering)
		a.tReorderingRun = true
		a.vrX = a.vrH
	}
	a.triggerStatusReport(true, a.vrMS)
}

// onStatusPduExpiry implements the library-local t-StatusPdu timer: it
// guards against a STATUS report being starved when a peer never sends
// the t-PollRetransmit-triggered PDU we were waiting on.
func (a *AMEntity) onStatusPduExpiry() {
	a.tStatusPduRun = false
	a.triggerStatusReport(true, a.vrR)
}

func (a *AMEntity) onStatusProhibitExpiry() {
	a.tStatusProhibitRun = false
}
