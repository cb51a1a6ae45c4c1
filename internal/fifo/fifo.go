// Package fifo implements a bounded circular queue of PDU buffers, used by
// demo/test harnesses to model a lossy channel between a transmitting and a
// receiving entity: pushes that would overflow the ring are dropped rather
// than blocking, the same way a real MAC would drop a PDU it has no room to
// queue.
package fifo

// Fifo is a fixed-capacity ring buffer of byte slices.
type Fifo struct {
	slots    [][]byte
	writePos int
	readPos  int
	size     int
}

// New creates a Fifo that holds up to capacity PDUs.
func New(capacity int) *Fifo {
	return &Fifo{slots: make([][]byte, capacity)}
}

func (f *Fifo) Reset() {
	f.writePos, f.readPos, f.size = 0, 0, 0
}

func (f *Fifo) Cap() int { return len(f.slots) }

func (f *Fifo) Len() int { return f.size }

// Push enqueues buf, reporting false (and dropping it) if the ring is full.
func (f *Fifo) Push(buf []byte) bool {
	if f.size == len(f.slots) {
		return false
	}
	f.slots[f.writePos] = buf
	f.writePos = (f.writePos + 1) % len(f.slots)
	f.size++
	return true
}

// Pop dequeues the oldest PDU, or ok=false if the ring is empty.
func (f *Fifo) Pop() (buf []byte, ok bool) {
	if f.size == 0 {
		return nil, false
	}
	buf = f.slots[f.readPos]
	f.slots[f.readPos] = nil
	f.readPos = (f.readPos + 1) % len(f.slots)
	f.size--
	return buf, true
}
