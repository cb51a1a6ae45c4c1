package rlc

import "testing"

func TestReassembleChunks_SingleWholeSDU(t *testing.T) {
	var q reassemblyQueue
	released := false
	ref := &refCounted{onZero: func() { released = true }}

	err := reassembleChunks(&q, makeFI(false, false), nil, 5, []byte("hello"), ref)
	if err != nil {
		t.Fatalf("reassembleChunks: %v", err)
	}
	if len(q.items) != 1 || !q.items[0].intact {
		t.Fatalf("expected one intact SDU, got %+v", q.items)
	}

	var delivered []byte
	q.drainIntact(func(data []byte) { delivered = data })
	if string(delivered) != "hello" {
		t.Fatalf("delivered = %q", delivered)
	}
	if !released {
		t.Fatal("backing buffer should be released once the SDU is delivered")
	}
}

func TestReassembleChunks_SDUSplitAcrossTwoPDUs(t *testing.T) {
	var q reassemblyQueue
	ref1 := &refCounted{}
	ref2 := &refCounted{}

	// First PDU: starts an SDU but doesn't finish it (nlast).
	err := reassembleChunks(&q, makeFI(false, true), nil, 3, []byte("abc"), ref1)
	if err != nil {
		t.Fatalf("first chunk: %v", err)
	}
	if len(q.items) != 1 || q.items[0].intact {
		t.Fatalf("expected one incomplete SDU, got %+v", q.items)
	}

	var delivered []byte
	q.drainIntact(func(data []byte) { delivered = data })
	if delivered != nil {
		t.Fatal("incomplete SDU must not be delivered")
	}

	// Second PDU: continues that SDU (nfirst) and finishes it.
	err = reassembleChunks(&q, makeFI(true, false), nil, 2, []byte("de"), ref2)
	if err != nil {
		t.Fatalf("second chunk: %v", err)
	}
	q.drainIntact(func(data []byte) { delivered = data })
	if string(delivered) != "abcde" {
		t.Fatalf("delivered = %q, want abcde", delivered)
	}
}

func TestReassembleChunks_ContinuationWithoutPendingSDUIsMalformed(t *testing.T) {
	var q reassemblyQueue
	ref := &refCounted{}
	err := reassembleChunks(&q, makeFI(true, false), nil, 4, []byte("data"), ref)
	if err != ErrMalformedPDU {
		t.Fatalf("err = %v, want ErrMalformedPDU", err)
	}
}

func TestReassembleChunks_ConcatenatedSDUsInOnePDU(t *testing.T) {
	var q reassemblyQueue
	ref := &refCounted{}
	lengths := []uint16{3, 3}
	err := reassembleChunks(&q, makeFI(false, false), lengths, 3, []byte("onetwothr"), ref)
	if err != nil {
		t.Fatalf("reassembleChunks: %v", err)
	}
	if len(q.items) != 3 {
		t.Fatalf("expected 3 SDUs, got %d", len(q.items))
	}
	var got []string
	q.drainIntact(func(data []byte) { got = append(got, string(data)) })
	want := []string{"one", "two", "thr"}
	for i, w := range want {
		if got[i] != w {
			t.Errorf("sdu[%d] = %q, want %q", i, got[i], w)
		}
	}
}

func TestReassembleChunks_SegmentCapIsEnforced(t *testing.T) {
	var q reassemblyQueue

	// Start an incomplete SDU, then keep extending it with single-byte
	// continuation fragments until it holds the maximum of 32 segments.
	ref := &refCounted{}
	if err := reassembleChunks(&q, makeFI(false, true), nil, 1, []byte("a"), ref); err != nil {
		t.Fatalf("first chunk: %v", err)
	}
	for i := 1; i < maxSDUSegments; i++ {
		ref := &refCounted{}
		if err := reassembleChunks(&q, makeFI(true, true), nil, 1, []byte("b"), ref); err != nil {
			t.Fatalf("continuation %d: %v", i, err)
		}
	}
	if len(q.items) != 1 || len(q.items[0].segments) != maxSDUSegments {
		t.Fatalf("expected one SDU with %d segments, got %+v", maxSDUSegments, q.items)
	}

	released := false
	overflowRef := &refCounted{onZero: func() { released = true }}
	err := reassembleChunks(&q, makeFI(true, true), nil, 1, []byte("c"), overflowRef)
	if err != ErrMalformedPDU {
		t.Fatalf("err = %v, want ErrMalformedPDU", err)
	}
	if !released {
		t.Fatal("the rejected fragment's ref should be released back to zero, not leaked")
	}
	if len(q.items[0].segments) != maxSDUSegments {
		t.Fatalf("segment count changed after a rejected append: %d", len(q.items[0].segments))
	}
}

func TestDiscardPartialTail(t *testing.T) {
	var q reassemblyQueue
	released := false
	ref := &refCounted{onZero: func() { released = true }}
	if err := reassembleChunks(&q, makeFI(false, true), nil, 2, []byte("ab"), ref); err != nil {
		t.Fatalf("reassembleChunks: %v", err)
	}
	q.discardPartialTail()
	if len(q.items) != 0 {
		t.Fatalf("expected tail to be dropped, got %d items", len(q.items))
	}
	if !released {
		t.Fatal("discarded tail should release its backing buffer")
	}
}
