package rlc

// refCounted tracks how many reassembled SDU segments still reference a
// received PDU's backing buffer. When the count reaches zero the buffer's
// owner (UM/AM receive record) releases it back to its caller-supplied
// release callback. This models the "reference-counted receive buffers"
// design note: each PDU buffer is a shared-ownership handle, each SDU
// segment is a clone of that handle.
type refCounted struct {
	count  int
	onZero func()
}

func (r *refCounted) ref() { r.count++ }

func (r *refCounted) deref() {
	r.count--
	if r.count == 0 && r.onZero != nil {
		r.onZero()
	}
}

func segmentRelease(c any) { c.(*refCounted).deref() }

// reassemblyQueue holds SDUs under construction or complete, in delivery
// order. The head may be incomplete (still being filled by later PDUs);
// only a contiguous prefix of intact SDUs is ever delivered, preserving
// SDU ordering across lost segments.
type reassemblyQueue struct {
	items []*SDU
}

func (q *reassemblyQueue) tail() *SDU {
	if len(q.items) == 0 {
		return nil
	}
	return q.items[len(q.items)-1]
}

func (q *reassemblyQueue) pushNew() *SDU {
	s := &SDU{}
	q.items = append(q.items, s)
	return s
}

// drainIntact invokes deliver for every SDU at the head of the queue that
// is intact, in order, stopping at the first incomplete one.
func (q *reassemblyQueue) drainIntact(deliver DeliverFunc) {
	i := 0
	for i < len(q.items) && q.items[i].intact {
		sdu := q.items[i]
		if deliver != nil {
			deliver(sdu.Bytes())
		}
		sdu.releaseAll()
		i++
	}
	q.items = q.items[i:]
}

// discardPartialTail drops an incomplete SDU at the queue tail, releasing
// its segments. Used on reestablishment (§4.6): a partial SDU at the
// assembly-queue tail is dropped, not delivered.
func (q *reassemblyQueue) discardPartialTail() {
	if len(q.items) == 0 {
		return
	}
	tail := q.items[len(q.items)-1]
	if !tail.intact {
		tail.releaseAll()
		q.items = q.items[:len(q.items)-1]
	}
}

// reassembleChunks applies the FI-driven rule shared by UM (§4.2) and AM
// (§4.4) reassembly: given the ordered byte-lengths of every SDU fragment
// carried by one PDU/segment (lengths for every fragment except the last,
// whose length is finalLen), decide whether the first fragment extends the
// assembly-queue tail or starts a fresh SDU, and whether the last fragment
// completes its SDU.
//
// ref is the shared reference count for payload's backing buffer; every
// fragment produced increments it once, and its owner is responsible for
// eventually decrementing it (done automatically here via segmentRelease,
// invoked when the owning SDU is delivered or discarded).
//
// Returns ErrMalformedPDU if fi claims the first fragment continues an
// in-progress SDU but the assembly queue has no such SDU (or its tail is
// already intact).
func reassembleChunks(q *reassemblyQueue, fi FI, lengths []uint16, finalLen uint32, payload []byte, ref *refCounted) error {
	chunks := make([]uint32, 0, len(lengths)+1)
	for _, l := range lengths {
		chunks = append(chunks, uint32(l))
	}
	chunks = append(chunks, finalLen)

	pos := uint32(0)
	for idx, length := range chunks {
		isFirst := idx == 0
		isLast := idx == len(chunks)-1
		span := payload[pos : pos+length]
		ref.ref()

		if isFirst && fi.nfirst() {
			tail := q.tail()
			if tail == nil || tail.intact {
				ref.deref()
				return ErrMalformedPDU
			}
			if !tail.appendSegment(span, ref, segmentRelease) {
				ref.deref()
				return ErrMalformedPDU
			}
			if isLast {
				tail.intact = !fi.nlast()
			} else {
				tail.intact = true
			}
		} else {
			sdu := q.pushNew()
			if !sdu.appendSegment(span, ref, segmentRelease) {
				ref.deref()
				q.items = q.items[:len(q.items)-1]
				return ErrMalformedPDU
			}
			if isLast {
				sdu.intact = !fi.nlast()
			} else {
				sdu.intact = true
			}
		}
		pos += length
	}
	return nil
}
