// Package rlc implements the core of an LTE Radio Link Control layer: the
// Acknowledged Mode entity and its shared segmentation, windowing, and
// STATUS-report machinery, plus the degenerate Unacknowledged and
// Transparent Mode entities. See 3GPP 36.322.
package rlc

// DeliverFunc is invoked once per fully reassembled SDU, in ascending SN
// order. The callback must not re-enter the entity that invoked it (§5).
type DeliverFunc func(data []byte)

// MaxRetxFunc is invoked when a transmit PDU's retransmission count
// reaches the configured threshold. A non-zero return aborts the PDU
// build in progress and the code is propagated to the caller wrapped in
// MaxRetxAbort.
type MaxRetxFunc func(sn uint32, retxCount uint32) int

// PDUKind identifies what tx_build_pdu actually produced.
type PDUKind int

const (
	PDUNone PDUKind = iota
	PDUStatus
	PDURetx
	PDUFresh
)

func (k PDUKind) String() string {
	switch k {
	case PDUStatus:
		return "STATUS"
	case PDURetx:
		return "RETX"
	case PDUFresh:
		return "FRESH"
	default:
		return "NONE"
	}
}

// Entity is the common surface every transmission mode implements: the
// entity facade described in §6. Concrete mode entities (*AMEntity,
// *UMEntity, *TMEntity) all satisfy it.
type Entity interface {
	// Reestablish resets the entity to its post-init state, flushing
	// queues, stopping timers, and re-zeroing state variables.
	Reestablish()

	// EnqueueSDU hands an upper-layer SDU to the transmit queue. cookie
	// is opaque and returned unchanged to release.
	EnqueueSDU(buf []byte, cookie any, release func(any)) error

	// PendingBytes is the sum of status+retx+fresh bytes currently
	// available to send.
	PendingBytes() uint32

	// BuildPDU asks the entity to fill out (up to len(out) bytes) with
	// the next PDU it wants to send, observing priority rules where
	// applicable. Returns the number of bytes written and what kind of
	// PDU was produced.
	BuildPDU(out []byte) (int, PDUKind, error)

	// ProcessPDU hands a received PDU to the entity.
	ProcessPDU(buf []byte, cookie any, release func(any)) error

	// SetDeliverCallback installs the function invoked for every
	// reassembled SDU.
	SetDeliverCallback(fn DeliverFunc)
}
