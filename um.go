package rlc

import (
	log "github.com/sirupsen/logrus"

	"github.com/kailiu-bupt2005/librlc-lte/internal/timerwheel"
)

// umRxRecord is the UM PDU record (§3): a received PDU retained until its
// last reassembled SDU segment is released.
type umRxRecord struct {
	payload []byte
	fi      FI
	sn      uint32
	lengths []uint16
	finalLen uint32
	ref     *refCounted
	cookie  any
	release func(any)
	filled  bool
}

// UMEntity implements §4.2: transmit-side concatenation with a trivial
// monotonic SN, receive-side reordering over a window of UM PDU records.
type UMEntity struct {
	cfg    UMConfig
	snSpace uint32

	wheel *timerwheel.Wheel

	// Transmit side.
	txQueue sduQueue
	vtUS    uint32

	// Receive side.
	rxBuf  []umRxRecord
	vrUR   uint32 // oldest SN not yet reassembled
	vrUH   uint32 // highest received SN + 1

	reordering    *timerwheel.Timer
	reorderingRun bool
	vrUX          uint32

	assembly reassemblyQueue
	deliver  DeliverFunc
}

// NewUMEntity constructs a UM entity bound to a shared timer wheel.
func NewUMEntity(wheel *timerwheel.Wheel, cfg UMConfig) *UMEntity {
	snSpace := uint32(1) << uint(cfg.SNBits)
	u := &UMEntity{
		cfg:     cfg,
		snSpace: snSpace,
		wheel:   wheel,
		rxBuf:   make([]umRxRecord, snSpace),
	}
	u.reordering = wheel.NewTimer(u.onReorderingExpiry, false)
	return u
}

func (u *UMEntity) SetDeliverCallback(fn DeliverFunc) { u.deliver = fn }

func (u *UMEntity) EnqueueSDU(buf []byte, cookie any, release func(any)) error {
	if buf == nil {
		return ErrInvalidArgument
	}
	u.txQueue.push(newTxSDU(buf, cookie, release))
	return nil
}

func (u *UMEntity) PendingBytes() uint32 { return u.txQueue.totalPendingBytes() }

// headerLen returns the fixed UM header size for this entity's SN width.
func (u *UMEntity) headerLen() uint32 {
	if u.cfg.SNBits == 5 {
		return 1
	}
	return 2
}

// BuildPDU implements the transmit half of §4.2: prepend a header whose FI
// reflects whether the head SDU is a mid-SDU continuation (NFIRST) and
// whether the PDU ends cleanly on an SDU boundary (LAST/NLAST), assign the
// next SN, and advance it modulo the SN space.
func (u *UMEntity) BuildPDU(out []byte) (int, PDUKind, error) {
	if u.txQueue.empty() {
		return 0, PDUNone, ErrNoData
	}
	hdrLen := u.headerLen()
	if uint32(len(out)) <= hdrLen {
		return 0, PDUNone, ErrBudgetTooSmall
	}

	nfirst := u.txQueue.front().offset > 0
	plan := buildLIFromSDUs(uint32(len(out)), hdrLen, u.txQueue.items)
	if plan.totalData() == 0 {
		return 0, PDUNone, ErrBudgetTooSmall
	}
	liBytes := liByteSize(len(plan.lengths))
	dataOff := int(hdrLen) + liBytes

	_, dataBytes := encodeSDU(out[dataOff:], plan, &u.txQueue)
	nlast := u.txQueue.front() != nil && u.txQueue.front().offset > 0 // PDU ends mid-SDU

	fi := makeFI(nfirst, nlast)
	e := len(plan.lengths) > 0

	sn := u.vtUS
	u.vtUS = snAdd(u.vtUS, 1, u.snSpace)

	if u.cfg.SNBits == 5 {
		out[0] = encodeUMHeader5(fi, e, sn)
	} else {
		hdr := encodeUMHeader10(fi, e, sn)
		copy(out[:2], hdr[:])
	}
	copy(out[hdrLen:dataOff], encodeLI(plan.lengths))

	total := dataOff + dataBytes
	log.Debugf("[UM][TX] built PDU sn=%d fi=%v bytes=%d", sn, fi, total)
	return total, PDUFresh, nil
}

// ProcessPDU implements the receive half of §4.2.
func (u *UMEntity) ProcessPDU(buf []byte, cookie any, release func(any)) error {
	hdrLen := u.headerLen()
	if uint32(len(buf)) < hdrLen {
		if release != nil {
			release(cookie)
		}
		return ErrMalformedPDU
	}

	var fi FI
	var e bool
	var sn uint32
	if u.cfg.SNBits == 5 {
		fi, e, sn = decodeUMHeader5(buf[0])
	} else {
		fi, e, sn = decodeUMHeader10(buf[:2])
	}

	payload := buf[hdrLen:]
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

	win := u.cfg.WindowSize
	low := snSub(u.vrUH, win, u.snSpace)

	// Rule 1: discard conditions.
	if windowContains(sn, u.vrUR, u.vrUH, u.snSpace) && u.rxBuf[sn].filled {
		if release != nil {
			release(cookie)
		}
		return ErrWindowViolation
	}
	if windowContains(sn, low, u.vrUR, u.snSpace) {
		if release != nil {
			release(cookie)
		}
		return ErrWindowViolation
	}

	ref := &refCounted{onZero: func() {
		if release != nil {
			release(cookie)
		}
	}}
	u.rxBuf[sn] = umRxRecord{
		payload: payload, fi: fi, sn: sn, lengths: lengths, finalLen: finalLen,
		ref: ref, cookie: cookie, release: release, filled: true,
	}

	// Rule 3: outside reordering window -> advance VR(UH), flush.
	if !windowContains(sn, low, u.vrUH, u.snSpace) {
		u.vrUH = snAdd(sn, 1, u.snSpace)
		newLow := snSub(u.vrUH, win, u.snSpace)
		for s := low; s != newLow; s = snAdd(s, 1, u.snSpace) {
			if u.rxBuf[s].filled {
				u.reassembleAndFree(s)
			}
		}
		if !windowContains(u.vrUR, newLow, u.vrUH, u.snSpace) {
			u.vrUR = newLow
		}
	}

	// Rule 4: advance VR(UR) across consecutively filled slots.
	if sn == u.vrUR || windowContains(u.vrUR, low, u.vrUH, u.snSpace) {
		for u.rxBuf[u.vrUR].filled {
			u.reassembleAndFree(u.vrUR)
			u.vrUR = snAdd(u.vrUR, 1, u.snSpace)
			if u.vrUR == u.vrUH {
				break
			}
		}
	}

	// Rule 5/6: reordering timer bookkeeping.
	if u.reorderingRun {
		outside := !windowContains(u.vrUX, low, u.vrUH, u.snSpace)
		if windowContains(u.vrUX, 0, u.vrUR, u.snSpace) || u.vrUX == u.vrUR || (outside && u.vrUX != u.vrUH) {
			u.reordering.Stop()
			u.reorderingRun = false
		}
	}
	if !u.reorderingRun && snLess(u.vrUR, u.vrUH, u.snSpace) {
		u.reordering.Start(u.cfg.TReordering)
		u.reorderingRun = true
		u.vrUX = u.vrUH
	}

	u.assembly.drainIntact(u.deliver)
	return nil
}

// reassembleAndFree reassembles slot sn's SDU fragments into the assembly
// queue and clears the slot (the record itself lives on via ref counting
// until its last SDU segment is released).
func (u *UMEntity) reassembleAndFree(sn uint32) {
	rec := u.rxBuf[sn]
	if !rec.filled {
		return
	}
	err := reassembleChunks(&u.assembly, rec.fi, rec.lengths, rec.finalLen, rec.payload, rec.ref)
	if err != nil {
		log.Warnf("[UM][RX] discarding malformed reassembly for sn=%d: %v", sn, err)
	}
	u.rxBuf[sn] = umRxRecord{}
}

// onReorderingExpiry implements §4.2's t-Reordering expiry rule: VR(UR)
// jumps to the first not-received SN at or after VR(UX), abandoning any
// still-missing PDUs below it as permanently lost, and every PDU already
// sitting in the receive buffer below the new VR(UR) is reassembled.
func (u *UMEntity) onReorderingExpiry() {
	u.reorderingRun = false
	newVRUR := u.vrUH
	for s := u.vrUX; s != u.vrUH; s = snAdd(s, 1, u.snSpace) {
		if !u.rxBuf[s].filled {
			newVRUR = s
			break
		}
	}
	for s := u.vrUR; s != newVRUR; s = snAdd(s, 1, u.snSpace) {
		if u.rxBuf[s].filled {
			u.reassembleAndFree(s)
		}
	}
	u.vrUR = newVRUR
	u.assembly.drainIntact(u.deliver)
	if snLess(u.vrUR, u.vrUH, u.snSpace) {
		u.reordering.Start(u.cfg.TReordering)
		u.reorderingRun = true
		u.vrUX = u.vrUH
	}
}

// Reestablish implements §4.6 for UM: stop the timer, flush both windows
// and the transmit queue, drop any partial SDU, zero state variables.
func (u *UMEntity) Reestablish() {
	u.reordering.Stop()
	u.reorderingRun = false
	u.txQueue.flush()
	for i := range u.rxBuf {
		u.rxBuf[i] = umRxRecord{}
	}
	u.assembly.discardPartialTail()
	u.assembly.items = nil
	u.vtUS, u.vrUR, u.vrUH, u.vrUX = 0, 0, 0, 0
}
