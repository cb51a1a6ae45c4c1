package rlc

import log "github.com/sirupsen/logrus"

// BuildPDU implements §4.3's transmit priority: STATUS PDUs first, then
// pending retransmissions, then fresh PDUs from the SDU queue.
func (a *AMEntity) BuildPDU(out []byte) (int, PDUKind, error) {
	if a.statusPduTriggered && !a.tStatusProhibitRun && len(out) >= 3 {
		n, err := a.buildStatusPDU(out)
		if err == nil {
			return n, PDUStatus, nil
		}
		if err != ErrBudgetTooSmall {
			return 0, PDUNone, err
		}
	}

	if len(a.retxQueue) > 0 {
		n, err := a.buildRetxPDU(out)
		if err == nil {
			return n, PDURetx, nil
		}
		if err != ErrBudgetTooSmall {
			return 0, PDUNone, err
		}
	}

	return a.buildFreshPDU(out)
}

// buildFreshPDU implements the "Fresh PDU" case of §4.3.
func (a *AMEntity) buildFreshPDU(out []byte) (int, PDUKind, error) {
	if a.vtS == a.vtMS {
		return 0, PDUNone, ErrTxWindowFull
	}
	if a.txQueue.empty() {
		return 0, PDUNone, ErrNoData
	}
	const hdrLen = 2
	if len(out) <= hdrLen {
		return 0, PDUNone, ErrBudgetTooSmall
	}

	nfirst := a.txQueue.front().offset > 0
	plan := buildLIFromSDUs(uint32(len(out)), hdrLen, a.txQueue.items)
	if plan.totalData() == 0 {
		return 0, PDUNone, ErrBudgetTooSmall
	}
	liBytes := liByteSize(len(plan.lengths))
	dataOff := hdrLen + liBytes

	_, dataBytes := encodeSDU(out[dataOff:], plan, &a.txQueue)
	nlast := a.txQueue.front() != nil && a.txQueue.front().offset > 0

	fi := makeFI(nfirst, nlast)
	e := len(plan.lengths) > 0

	sn := a.vtS
	a.vtS = snAdd(a.vtS, 1, amSNSpace)

	poll := a.decidePoll(dataBytes)
	hdr := encodeAMDataHeader(poll, fi, e, sn)
	copy(out[:2], hdr[:])
	copy(out[2:dataOff], encodeLI(plan.lengths))

	total := dataOff + dataBytes

	persisted := append([]byte(nil), out[dataOff:total]...)
	a.txpdu[sn] = amTxRecord{
		sn: sn, fi: fi, data: persisted, lengths: plan.lengths, finalLen: plan.finalLen,
		filled: true,
	}

	a.onDataPDUBuilt(poll)
	log.Debugf("[AM][TX] built fresh PDU sn=%d fi=%v poll=%v bytes=%d", sn, fi, poll, total)
	return total, PDUFresh, nil
}

// decidePoll implements §4.3's poll-bit logic, consuming any forced poll
// left by a t-PollRetransmit expiry and checking the PDU/byte counters and
// the always-poll conditions (queues drained, window about to fill).
func (a *AMEntity) decidePoll(dataSize int) bool {
	a.pduWithoutPoll++
	a.byteWithoutPoll += uint32(dataSize)

	poll := a.forcePoll
	a.forcePoll = false

	if a.cfg.PollPDU > 0 && a.pduWithoutPoll >= a.cfg.PollPDU {
		poll = true
	}
	if a.cfg.PollByte > 0 && a.byteWithoutPoll >= a.cfg.PollByte {
		poll = true
	}
	if a.txQueue.empty() && len(a.retxQueue) == 0 {
		poll = true
	}
	if a.vtS == a.vtMS {
		poll = true
	}
	return poll
}

// onDataPDUBuilt resets the poll counters and (re)starts t-PollRetransmit
// whenever a PDU actually carried the poll bit.
func (a *AMEntity) onDataPDUBuilt(poll bool) {
	if !poll {
		return
	}
	a.pduWithoutPoll = 0
	a.byteWithoutPoll = 0
	a.pollSN = snSub(a.vtS, 1, amSNSpace)
	a.tPollRetransmit.Stop()
	a.tPollRetransmit.Start(a.cfg.TPollRetransmit)
	a.tPollRetransmitRun = true
}

// onPollRetransmitExpiry implements §4.3's t-PollRetransmit expiry: force
// a poll on the next built PDU, and if the window is stalled or both
// queues are empty, queue the oldest unacked PDU for (whole-PDU)
// retransmission so a poll actually goes out.
func (a *AMEntity) onPollRetransmitExpiry() {
	a.tPollRetransmitRun = false
	a.forcePoll = true

	stalled := a.vtS == a.vtMS || (a.txQueue.empty() && len(a.retxQueue) == 0)
	if stalled {
		log.Debugf("[AM][TX] t-PollRetransmit expired, window stalled: %s", a.DumpState())
	}
	if stalled && a.vtA != a.vtS {
		sn := a.vtA
		rec := &a.txpdu[sn]
		if rec.filled && !rec.queued {
			rec.resegs = []resegDescriptor{{start: 0, end: rec.dataLen(), lsf: true, wholePDU: true}}
			rec.iRetransmitSeg = 0
			a.insertRetxQueue(sn)
			rec.queued = true
		}
	}
}
