package rlc

import "testing"

func TestSnLess(t *testing.T) {
	cases := []struct {
		a, b, space uint32
		want        bool
	}{
		{0, 1, 1024, true},
		{1, 0, 1024, false},
		{0, 0, 1024, false},
		{1023, 0, 1024, true},  // wraps forward
		{0, 1023, 1024, false}, // 1023 is "behind" 0 by half-space rule
		{500, 520, 1024, true},
	}
	for _, c := range cases {
		if got := snLess(c.a, c.b, c.space); got != c.want {
			t.Errorf("snLess(%d,%d,%d) = %v, want %v", c.a, c.b, c.space, got, c.want)
		}
	}
}

func TestSnAddSub(t *testing.T) {
	if got := snAdd(1020, 10, 1024); got != 6 {
		t.Errorf("snAdd wraparound = %d, want 6", got)
	}
	if got := snSub(6, 10, 1024); got != 1020 {
		t.Errorf("snSub wraparound = %d, want 1020", got)
	}
	if got := snSub(snAdd(300, 77, 1024), 77, 1024); got != 300 {
		t.Errorf("snSub(snAdd(x,d),d) = %d, want 300 (round trip)", got)
	}
}

func TestWindowContains(t *testing.T) {
	if !windowContains(10, 5, 15, 1024) {
		t.Error("expected 10 in [5,15)")
	}
	if windowContains(15, 5, 15, 1024) {
		t.Error("expected 15 not in [5,15) (half-open)")
	}
	if windowContains(4, 5, 15, 1024) {
		t.Error("expected 4 not in [5,15)")
	}
	// Wraparound window.
	if !windowContains(2, 1020, 1024+4, 1024) {
		t.Error("expected 2 in wraparound window [1020, 4)")
	}
	if windowContains(1019, 1020, 1024+4, 1024) {
		t.Error("expected 1019 not in wraparound window [1020, 4)")
	}
}
