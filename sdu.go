package rlc

const maxSDUSegments = 32

// sduSegment references a contiguous byte span owned by some backing
// buffer (an upper-layer buffer on transmit, a received PDU's buffer on
// receive) plus the release hook invoked once that span is no longer
// needed. cookie is opaque to the entity and handed back unchanged.
type sduSegment struct {
	data    []byte
	cookie  any
	release func(cookie any)
}

// SDU is an upper-layer datagram as seen by one entity: an ordered set of
// byte spans (almost always one, on the transmit side; potentially several
// on the receive side when reassembled across multiple PDUs), a total
// size, a read cursor used while an entity is consuming it into PDUs, and
// an intact flag set once reassembly has produced every byte.
type SDU struct {
	segments []sduSegment
	size     uint32
	offset   uint32
	intact   bool
}

// newTxSDU wraps a single upper-layer buffer for transmission. The
// upper-layer misuse error kind (§7) applies here: a nil buffer is
// rejected by the caller (tx_enqueue_sdu) before this is reached.
func newTxSDU(buf []byte, cookie any, release func(any)) *SDU {
	return &SDU{
		segments: []sduSegment{{data: buf, cookie: cookie, release: release}},
		size:     uint32(len(buf)),
		intact:   true,
	}
}

// remaining returns the number of unconsumed bytes starting at offset.
func (s *SDU) remaining() uint32 {
	return s.size - s.offset
}

// releaseAll invokes every segment's release callback exactly once. Called
// when a transmit SDU is fully consumed into PDUs, or when a receive-side
// SDU is delivered (or dropped on reestablishment/malformed reassembly).
func (s *SDU) releaseAll() {
	for _, seg := range s.segments {
		if seg.release != nil {
			seg.release(seg.cookie)
		}
	}
	s.segments = nil
}

// copyBytes copies up to len(dst) remaining bytes of the SDU (starting at
// offset, across however many segments are needed) into dst and advances
// offset. It returns the number of bytes copied. On the transmit side an
// SDU is a single segment, so this never needs to cross a segment
// boundary there; on the receive side (assembled SDU) it may.
func (s *SDU) copyBytes(dst []byte) int {
	n := 0
	consumed := s.offset
	for _, seg := range s.segments {
		if uint32(len(seg.data)) <= consumed {
			consumed -= uint32(len(seg.data))
			continue
		}
		avail := seg.data[consumed:]
		c := copy(dst[n:], avail)
		n += c
		s.offset += uint32(c)
		consumed = 0
		if n == len(dst) {
			break
		}
	}
	return n
}

// appendSegment appends a reassembled byte span to a receive-side SDU
// under construction. Returns false if the SDU already holds the maximum
// number of segments — callers treat this as a malformed-PDU condition.
func (s *SDU) appendSegment(data []byte, cookie any, release func(any)) bool {
	if len(s.segments) >= maxSDUSegments {
		return false
	}
	s.segments = append(s.segments, sduSegment{data: data, cookie: cookie, release: release})
	s.size += uint32(len(data))
	return true
}

// Bytes flattens the SDU into a single buffer. Used by deliver callbacks
// and by tests checking round-trip byte equality; not on any hot path.
func (s *SDU) Bytes() []byte {
	out := make([]byte, 0, s.size)
	for _, seg := range s.segments {
		out = append(out, seg.data...)
	}
	return out
}

// Size returns the SDU's total byte length.
func (s *SDU) Size() uint32 { return s.size }

// sduQueue is a simple FIFO of pending transmit SDUs, head-to-tail. The
// original C implementation threads an intrusive doubly-linked list
// through each SDU; a slice-backed queue gives the same ordering
// guarantees without the raw-pointer lifetime hazard the design notes call
// out, at the cost of an occasional slice compaction.
type sduQueue struct {
	items []*SDU
}

func (q *sduQueue) push(s *SDU) { q.items = append(q.items, s) }

func (q *sduQueue) front() *SDU {
	if len(q.items) == 0 {
		return nil
	}
	return q.items[0]
}

func (q *sduQueue) popFront() {
	if len(q.items) == 0 {
		return
	}
	q.items[0] = nil
	q.items = q.items[1:]
}

func (q *sduQueue) empty() bool { return len(q.items) == 0 }

// totalPendingBytes sums remaining() across the whole queue.
func (q *sduQueue) totalPendingBytes() uint32 {
	var total uint32
	for _, s := range q.items {
		total += s.remaining()
	}
	return total
}

// flush releases every queued SDU, used on reestablishment.
func (q *sduQueue) flush() {
	for _, s := range q.items {
		s.releaseAll()
	}
	q.items = nil
}
