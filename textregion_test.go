package jbig2

import "testing"

// TestGetComposeDataCorners hand-traces T.88 §6.4.5 step 3(c)(x)'s
// four REFCORNER cases in the non-transposed orientation: S is always
// the x-axis strip coordinate, T the y-axis one, and the symbol's W/H
// shift whichever axis doesn't already name the placed corner. Only
// the left corners carry a post-placement CURS increment (W-1).
func TestGetComposeDataCorners(t *testing.T) {
	const SI, TI, W, H = int32(10), int32(20), uint32(4), uint32(6)
	tr := &TRDProc{}

	cases := []struct {
		corner   JBig2Corner
		wantX    int32
		wantY    int32
		wantIncr int32
	}{
		{JBig2CornerTopLeft, SI, TI, int32(W) - 1},
		{JBig2CornerTopRight, SI - int32(W) + 1, TI, 0},
		{JBig2CornerBottomLeft, SI, TI - int32(H) + 1, int32(W) - 1},
		{JBig2CornerBottomRight, SI - int32(W) + 1, TI - int32(H) + 1, 0},
	}
	for _, c := range cases {
		tr.REFCORNER = c.corner
		got := tr.getComposeData(SI, TI, W, H)
		if got.x != c.wantX || got.y != c.wantY || got.increment != c.wantIncr {
			t.Errorf("REFCORNER=%v: getComposeData = {x:%d,y:%d,incr:%d}, want {x:%d,y:%d,incr:%d}",
				c.corner, got.x, got.y, got.increment, c.wantX, c.wantY, c.wantIncr)
		}
	}
}

// TestGetComposeDataTransposed mirrors TestGetComposeDataCorners for
// TRANSPOSED=true, where S and T swap axis roles (S becomes the y-axis
// coordinate, T the x-axis one) and the increment tracks H instead of W,
// carried only by the top corners.
func TestGetComposeDataTransposed(t *testing.T) {
	const SI, TI, W, H = int32(10), int32(20), uint32(4), uint32(6)
	tr := &TRDProc{TRANSPOSED: true}

	cases := []struct {
		corner   JBig2Corner
		wantX    int32
		wantY    int32
		wantIncr int32
	}{
		{JBig2CornerTopLeft, TI, SI, int32(H) - 1},
		{JBig2CornerTopRight, TI, SI - int32(W) + 1, int32(H) - 1},
		{JBig2CornerBottomLeft, TI - int32(H) + 1, SI, 0},
		{JBig2CornerBottomRight, TI - int32(H) + 1, SI - int32(W) + 1, 0},
	}
	for _, c := range cases {
		tr.REFCORNER = c.corner
		got := tr.getComposeData(SI, TI, W, H)
		if got.x != c.wantX || got.y != c.wantY || got.increment != c.wantIncr {
			t.Errorf("TRANSPOSED REFCORNER=%v: getComposeData = {x:%d,y:%d,incr:%d}, want {x:%d,y:%d,incr:%d}",
				c.corner, got.x, got.y, got.increment, c.wantX, c.wantY, c.wantIncr)
		}
	}
}

func TestCheckTRDDimension(t *testing.T) {
	if v, ok := checkTRDDimension(10, 5); !ok || v != 15 {
		t.Errorf("checkTRDDimension(10, 5) = %d, %v; want 15, true", v, ok)
	}
	if v, ok := checkTRDDimension(10, -10); !ok || v != 0 {
		t.Errorf("checkTRDDimension(10, -10) = %d, %v; want 0, true", v, ok)
	}
	if _, ok := checkTRDDimension(5, -10); ok {
		t.Errorf("checkTRDDimension(5, -10) = ok, want rejected (negative result)")
	}
	if _, ok := checkTRDDimension(0xFFFFFFFF, 1); ok {
		t.Errorf("checkTRDDimension(0xFFFFFFFF, 1) = ok, want rejected (overflow)")
	}
}

func TestCheckTRDReferenceDimension(t *testing.T) {
	if v, ok := checkTRDReferenceDimension(8, 1, 3); !ok || v != 7 {
		t.Errorf("checkTRDReferenceDimension(8, 1, 3) = %d, %v; want 7, true (3 + 8>>1)", v, ok)
	}
	if v, ok := checkTRDReferenceDimension(-8, 1, 3); !ok || v != -1 {
		t.Errorf("checkTRDReferenceDimension(-8, 1, 3) = %d, %v; want -1, true (3 + -8>>1)", v, ok)
	}
	if _, ok := checkTRDReferenceDimension(0x7FFFFFFF, 0, 1); ok {
		t.Errorf("checkTRDReferenceDimension(maxint32, 0, 1) = ok, want rejected (overflow)")
	}
}
