package rlc

import log "github.com/sirupsen/logrus"

// TMEntity is the Transparent Mode entity (§4.5): a bare FIFO of whole
// SDUs. No header, no segmentation — a PDU either carries one SDU whole
// or nothing at all.
type TMEntity struct {
	queue   sduQueue
	deliver DeliverFunc
}

// NewTMEntity constructs an idle TM entity.
func NewTMEntity() *TMEntity {
	return &TMEntity{}
}

func (t *TMEntity) SetDeliverCallback(fn DeliverFunc) { t.deliver = fn }

// Reestablish flushes the pending SDU queue (§4.6).
func (t *TMEntity) Reestablish() {
	t.queue.flush()
}

func (t *TMEntity) EnqueueSDU(buf []byte, cookie any, release func(any)) error {
	if buf == nil {
		return ErrInvalidArgument
	}
	t.queue.push(newTxSDU(buf, cookie, release))
	return nil
}

func (t *TMEntity) PendingBytes() uint32 {
	return t.queue.totalPendingBytes()
}

// BuildPDU returns the head SDU whole if it fits within len(out); TM never
// segments, so a head SDU larger than the budget is left queued and the
// caller gets PDUNone.
func (t *TMEntity) BuildPDU(out []byte) (int, PDUKind, error) {
	sdu := t.queue.front()
	if sdu == nil {
		return 0, PDUNone, ErrNoData
	}
	if sdu.remaining() > uint32(len(out)) {
		log.Debug("[TM][TX] head SDU exceeds budget, no segmentation in TM")
		return 0, PDUNone, ErrBudgetTooSmall
	}
	n := sdu.copyBytes(out)
	sdu.releaseAll()
	t.queue.popFront()
	return n, PDUFresh, nil
}

// ProcessPDU hands buf to the deliver callback unchanged and then releases
// it: TM has no header to strip and nothing to reassemble (§4.5).
func (t *TMEntity) ProcessPDU(buf []byte, cookie any, release func(any)) error {
	if t.deliver != nil {
		t.deliver(buf)
	}
	if release != nil {
		release(cookie)
	}
	return nil
}
