package rlc

import "testing"

func TestSliceLIRange_MidPDURangeSetsBothContinuationFlags(t *testing.T) {
	// Original PDU data region: SDU bounds at 0,3,7, final tail ends at 12.
	lengths := []uint16{3, 4}
	finalLen := uint32(5)

	sub, subFinal, nfirst, nlast := sliceLIRange(lengths, finalLen, 2, 9)
	if !nfirst || !nlast {
		t.Fatalf("nfirst=%v nlast=%v, want both true (range starts/ends mid-SDU)", nfirst, nlast)
	}
	wantSub := []uint16{1, 4}
	if len(sub) != len(wantSub) || sub[0] != wantSub[0] || sub[1] != wantSub[1] {
		t.Fatalf("sub = %v, want %v", sub, wantSub)
	}
	if subFinal != 2 {
		t.Fatalf("subFinal = %d, want 2", subFinal)
	}
}

func TestSliceLIRange_RangeOnOriginalSDUBoundariesHasNoContinuation(t *testing.T) {
	lengths := []uint16{3, 4}
	finalLen := uint32(5)

	sub, subFinal, nfirst, nlast := sliceLIRange(lengths, finalLen, 0, 3)
	if nfirst || nlast {
		t.Fatalf("nfirst=%v nlast=%v, want both false (range is exactly the first SDU)", nfirst, nlast)
	}
	if len(sub) != 0 {
		t.Fatalf("sub = %v, want empty", sub)
	}
	if subFinal != 3 {
		t.Fatalf("subFinal = %d, want 3", subFinal)
	}
}

func TestSliceLIRange_WholePDURange(t *testing.T) {
	lengths := []uint16{3, 4}
	finalLen := uint32(5)

	sub, subFinal, nfirst, nlast := sliceLIRange(lengths, finalLen, 0, 12)
	if nfirst || nlast {
		t.Fatalf("nfirst=%v nlast=%v, want both false (whole PDU)", nfirst, nlast)
	}
	wantSub := []uint16{3, 4}
	if len(sub) != len(wantSub) || sub[0] != wantSub[0] || sub[1] != wantSub[1] {
		t.Fatalf("sub = %v, want %v", sub, wantSub)
	}
	if subFinal != 5 {
		t.Fatalf("subFinal = %d, want 5", subFinal)
	}
}
