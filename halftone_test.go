package jbig2

import "testing"

// TestCellOriginAffinePlacement hand-computes T.88 §6.6.5.2's affine
// grid-cell placement formula for a few (mg, ng) grid positions against
// a fixed HGX/HGY/HRX/HRY, independent of any grayscale-image decode.
func TestCellOriginAffinePlacement(t *testing.T) {
	h := &HTRDProc{HGX: 100, HGY: 200, HRX: 256, HRY: 512}

	cases := []struct {
		mg, ng uint32
		wantX  int64
		wantY  int64
	}{
		// (0,0): x = (100 + 0 + 0) >> 8 = 0; y = (200 + 0 - 0) >> 8 = 0.
		{0, 0, 0, 0},
		// (1,0): x = (100 + 1*512 + 0) >> 8 = 612>>8 = 2;
		//        y = (200 + 1*256 - 0) >> 8 = 456>>8 = 1.
		{1, 0, 2, 1},
		// (0,1): x = (100 + 0 + 1*256) >> 8 = 356>>8 = 1;
		//        y = (200 + 0 - 1*512) >> 8 = -312>>8 = -2 (arithmetic shift).
		{0, 1, 1, -2},
	}
	for _, c := range cases {
		x, y := h.cellOrigin(c.mg, c.ng)
		if x != c.wantX || y != c.wantY {
			t.Errorf("cellOrigin(%d, %d) = (%d, %d), want (%d, %d)", c.mg, c.ng, x, y, c.wantX, c.wantY)
		}
	}
}

// TestBuildSkipBitmapDisabled checks HENABLESKIP=false short-circuits
// to a nil skip mask without touching HGW/HGH at all.
func TestBuildSkipBitmapDisabled(t *testing.T) {
	h := &HTRDProc{HENABLESKIP: false, HGW: 3, HGH: 3}
	if skip := h.buildSkipBitmap(); skip != nil {
		t.Fatalf("buildSkipBitmap() with HENABLESKIP=false = %v, want nil", skip)
	}
}

// TestBuildSkipBitmapMarksOutOfBoundsCells builds a 2x1 pattern grid
// over an 8x8 region with HGX=HGY=0, HRX=256*20 and HRY=0, so
// cellOrigin(0,ng) = (20*ng, 0) in pixel units, and checks that the
// cell landing entirely past the region's right edge is flagged skip=1
// while the one at the origin is not.
func TestBuildSkipBitmapMarksOutOfBoundsCells(t *testing.T) {
	h := &HTRDProc{
		HENABLESKIP: true,
		HBW:         8, HBH: 8,
		HGW: 2, HGH: 1,
		HGX: 0, HGY: 0,
		HRX: 256 * 20, HRY: 0, // cellOrigin x = ng * 20 pixels
		HPW: 4, HPH: 4,
	}
	skip := h.buildSkipBitmap()
	if skip == nil {
		t.Fatalf("buildSkipBitmap() = nil, want a %dx%d mask", h.HGW, h.HGH)
	}
	if skip.GetPixel(0, 0) != 0 {
		t.Errorf("skip[ng=0,mg=0] = 1, want 0 (cell at x=0 overlaps the region)")
	}
	if skip.GetPixel(1, 0) != 1 {
		t.Errorf("skip[ng=1,mg=0] = 0, want 1 (cell at x=20..24 is entirely past HBW=8)")
	}
}
