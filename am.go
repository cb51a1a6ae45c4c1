package rlc

import (
	"fmt"

	"github.com/kailiu-bupt2005/librlc-lte/internal/pool"
	"github.com/kailiu-bupt2005/librlc-lte/internal/timerwheel"
)

// defaultSegmentPoolCapacity bounds the number of concurrently-held AM
// receive-segment records when an entity is constructed with a zero-value
// AMConfig (e.g. in tests); a real caller should size
// AMConfig.MaxSegmentRecords for its own memory budget.
const defaultSegmentPoolCapacity = 4 * amWindowSize

// resegDescriptor is a pending retransmission byte range within an
// already-sent PDU's data region (§3 "resegment descriptor"): [start,end),
// whether it reaches the end of that PDU (lsf), and whether it represents
// the whole original PDU (the fast no-resegmentation path).
type resegDescriptor struct {
	start, end uint32
	lsf        bool
	wholePDU   bool
}

// amTxRecord is the per-SN transmit-PDU record (§3). data is a persisted
// copy of the PDU's data region (post-LI, pre-header) — persisted because
// the upper-layer SDU buffers it was copied from may already have been
// released by the time a retransmission is needed.
type amTxRecord struct {
	sn        uint32
	fi        FI
	data      []byte
	lengths   []uint16 // original explicit LI plan
	finalLen  uint32
	retxCount uint32

	resegs         []resegDescriptor
	iRetransmitSeg int
	queued         bool
	filled         bool
}

func (r *amTxRecord) dataLen() uint32 { return uint32(len(r.data)) }

// wholeSize is the byte size of the complete original PDU (header + LI +
// data), used to decide whether the whole-PDU retransmit fast path fits.
func (r *amTxRecord) wholeSize() uint32 {
	return 2 + uint32(liByteSize(len(r.lengths))) + r.dataLen()
}

// encodeWhole rebuilds the complete original PDU (with a freshly-decided
// poll bit — a retransmission's poll bit is independent of the original).
func (r *amTxRecord) encodeWhole(out []byte, poll bool) int {
	e := len(r.lengths) > 0
	hdr := encodeAMDataHeader(poll, r.fi, e, r.sn)
	liBytes := liByteSize(len(r.lengths))
	copy(out[:2], hdr[:])
	copy(out[2:2+liBytes], encodeLI(r.lengths))
	n := copy(out[2+liBytes:], r.data)
	return 2 + liBytes + n
}

// amSegmentRecord is one physically-received fragment of an AM receive-PDU
// record (§3 "AM segment record"): a byte range within the original PDU's
// data region, its own FI/LI describing how that range maps onto SDUs, and
// a reference to the backing buffer it was copied — or sliced — from.
type amSegmentRecord struct {
	start, end uint32
	lsf        bool
	fi         FI
	lengths    []uint16
	finalLen   uint32
	payload    []byte
	ref        *refCounted
}

// amRxRecord is the per-SN receive-PDU record: an ordered, non-overlapping
// list of segments and whether they currently cover [0, end-of-lsf-segment)
// contiguously. Each segment is backed by a handle into the entity's
// segment-record pool (§7 resource exhaustion); handles must be freed back
// to that pool once the record is cleared.
type amRxRecord struct {
	filled   bool
	intact   bool
	segments []*amSegmentRecord
	handles  []int32
}

// AMEntity implements the Acknowledged Mode entity (§4.3, §4.4): full ARQ
// with STATUS-report exchange, retransmission of already-sent PDUs either
// whole or as the byte ranges a STATUS report NACKs (each range goes out as
// one segment PDU; a range is not split to fit a smaller grant), polling,
// reordering, and FI-driven reassembly.
type AMEntity struct {
	cfg     AMConfig
	wheel   *timerwheel.Wheel
	segPool *pool.Pool[amSegmentRecord]

	// Transmit side.
	txQueue   sduQueue
	txpdu     []amTxRecord
	retxQueue []uint32 // SNs, ascending

	vtA             uint32
	vtS             uint32
	vtMS            uint32
	pollSN          uint32
	pduWithoutPoll  uint32
	byteWithoutPoll uint32
	forcePoll       bool

	tStatusProhibit    *timerwheel.Timer
	tStatusProhibitRun bool
	tPollRetransmit    *timerwheel.Timer
	tPollRetransmitRun bool

	// Receive side.
	rxBuf              []amRxRecord
	vrR                uint32
	vrMR               uint32
	vrH                uint32
	vrMS               uint32
	vrX                uint32
	tReordering        *timerwheel.Timer
	tReorderingRun     bool
	tStatusPdu         *timerwheel.Timer
	tStatusPduRun      bool
	statusPduTriggered bool

	assembly reassemblyQueue
	deliver  DeliverFunc
	maxRetx  MaxRetxFunc
}

// NewAMEntity constructs an idle AM entity bound to a shared timer wheel.
func NewAMEntity(wheel *timerwheel.Wheel, cfg AMConfig) *AMEntity {
	segPoolCap := int(cfg.MaxSegmentRecords)
	if segPoolCap <= 0 {
		segPoolCap = defaultSegmentPoolCapacity
	}
	a := &AMEntity{
		cfg:     cfg,
		wheel:   wheel,
		txpdu:   make([]amTxRecord, amSNSpace),
		rxBuf:   make([]amRxRecord, amSNSpace),
		vtMS:    amWindowSize,
		vrMR:    amWindowSize,
		segPool: pool.New[amSegmentRecord](segPoolCap),
	}
	a.tStatusProhibit = wheel.NewTimer(a.onStatusProhibitExpiry, false)
	a.tPollRetransmit = wheel.NewTimer(a.onPollRetransmitExpiry, false)
	a.tReordering = wheel.NewTimer(a.onReorderingExpiry, false)
	a.tStatusPdu = wheel.NewTimer(a.onStatusPduExpiry, false)
	return a
}

func (a *AMEntity) SetDeliverCallback(fn DeliverFunc) { a.deliver = fn }

// SetMaxRetxCallback installs the callback invoked when a PDU's
// retransmission count reaches cfg.MaxRetxThreshold.
func (a *AMEntity) SetMaxRetxCallback(fn MaxRetxFunc) { a.maxRetx = fn }

func (a *AMEntity) EnqueueSDU(buf []byte, cookie any, release func(any)) error {
	if buf == nil {
		return ErrInvalidArgument
	}
	a.txQueue.push(newTxSDU(buf, cookie, release))
	return nil
}

// PendingBytes sums status, pending-retransmit, and fresh-SDU bytes
// currently available to send.
func (a *AMEntity) PendingBytes() uint32 {
	var total uint32
	if a.statusPduTriggered && !a.tStatusProhibitRun {
		total += 3
	}
	for _, sn := range a.retxQueue {
		rec := &a.txpdu[sn]
		if rec.iRetransmitSeg < len(rec.resegs) {
			seg := rec.resegs[rec.iRetransmitSeg]
			total += 4 + (seg.end - seg.start)
		}
	}
	total += a.txQueue.totalPendingBytes()
	return total
}

// Reestablish implements §4.6 for AM: force-reassemble every intact slot
// in the receive window, drop any partial SDU at the assembly-queue tail,
// free every transmit/retransmit/receive structure, stop all four timers,
// and zero state variables (preserving VR(MR) = VT(MS) = AM_Window_Size).
func (a *AMEntity) Reestablish() {
	for sn := a.vrR; sn != a.vrMR; sn = snAdd(sn, 1, amSNSpace) {
		if a.rxBuf[sn].filled && a.rxBuf[sn].intact {
			a.reassembleAMRecord(sn)
		}
	}
	a.assembly.drainIntact(a.deliver)
	a.assembly.discardPartialTail()
	a.assembly.items = nil

	a.txQueue.flush()
	a.retxQueue = nil
	a.txpdu = make([]amTxRecord, amSNSpace)
	a.rxBuf = make([]amRxRecord, amSNSpace)
	a.segPool = pool.New[amSegmentRecord](a.segPool.Cap())

	a.tReordering.Stop()
	a.tReorderingRun = false
	a.tStatusPdu.Stop()
	a.tStatusPduRun = false
	a.tStatusProhibit.Stop()
	a.tStatusProhibitRun = false
	a.tPollRetransmit.Stop()
	a.tPollRetransmitRun = false

	a.vtA, a.vtS, a.pollSN, a.pduWithoutPoll, a.byteWithoutPoll = 0, 0, 0, 0, 0
	a.vrR, a.vrH, a.vrX = 0, 0, 0
	a.vtMS = amWindowSize
	a.vrMR = amWindowSize
	a.vrMS = 0
	a.statusPduTriggered = false
	a.forcePoll = false
}

func (a *AMEntity) insertRetxQueue(sn uint32) {
	idx := 0
	for idx < len(a.retxQueue) && snLess(a.retxQueue[idx], sn, amSNSpace) {
		idx++
	}
	a.retxQueue = append(a.retxQueue, 0)
	copy(a.retxQueue[idx+1:], a.retxQueue[idx:])
	a.retxQueue[idx] = sn
}

func (a *AMEntity) popRetxQueue() {
	if len(a.retxQueue) == 0 {
		return
	}
	sn := a.retxQueue[0]
	a.retxQueue = a.retxQueue[1:]
	a.txpdu[sn].queued = false
}

func (a *AMEntity) freeTxSlot(sn uint32) {
	a.txpdu[sn] = amTxRecord{}
}

// freeRxSlot returns every segment-pool handle held by sn's receive record
// before clearing it, so a long-running entity's segment pool doesn't drain
// as SNs are consumed.
func (a *AMEntity) freeRxSlot(sn uint32) {
	rec := &a.rxBuf[sn]
	for _, h := range rec.handles {
		a.segPool.Free(h)
	}
	a.rxBuf[sn] = amRxRecord{}
}

// DumpState renders a one-line snapshot of both windows, for mid-level
// debug tracing when a window looks stuck (mirrors the original
// implementation's per-side control-block dump).
func (a *AMEntity) DumpState() string {
	return fmt.Sprintf(
		"VT(A)=%d VT(S)=%d VT(MS)=%d | VR(R)=%d VR(MS)=%d VR(H)=%d VR(MR)=%d | retxQueue=%v",
		a.vtA, a.vtS, a.vtMS, a.vrR, a.vrMS, a.vrH, a.vrMR, a.retxQueue,
	)
}
