package jbig2

import "testing"

// runStub returns a decodeRun closure that replays runs in order, for
// feeding SDDProc.export without any arithmetic/Huffman decoder.
func runStub(runs []int32) func() (int32, bool) {
	i := 0
	return func() (int32, bool) {
		if i >= len(runs) {
			return 0, false
		}
		v := runs[i]
		i++
		return v, true
	}
}

func newExportFixture(numIn, numNew, numEx uint32) (*SDDProc, []*Bitmap) {
	s := &SDDProc{SDNUMINSYMS: numIn, SDNUMNEWSYMS: numNew, SDNUMEXSYMS: numEx}
	s.SDINSYMS = make([]*Bitmap, numIn)
	for i := range s.SDINSYMS {
		s.SDINSYMS[i] = NewBitmap(1, 1)
	}
	newSyms := make([]*Bitmap, numNew)
	for i := range newSyms {
		newSyms[i] = NewBitmap(1, 1)
	}
	return s, newSyms
}

// TestSDDProcExportExactCount exercises the ordinary case: a run-length
// sequence that exports exactly SDNUMEXSYMS symbols succeeds and
// assembles the right bitmap set (two input symbols skipped, then two
// input symbols and one new symbol exported).
func TestSDDProcExportExactCount(t *testing.T) {
	s, newSyms := newExportFixture(4, 1, 3)
	// total = 5: skip 2, export 3 (the remaining 2 in-symbols + 1 new symbol).
	dict, err := s.export(newSyms, runStub([]int32{2, 3}))
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if dict.NumBitmaps() != 3 {
		t.Fatalf("NumBitmaps() = %d, want 3", dict.NumBitmaps())
	}
}

// TestSDDProcExportUnderExports is the bug this test was written to
// catch: a run-length sequence that exports fewer symbols than
// SDNUMEXSYMS declares must error, not silently return a short dict.
func TestSDDProcExportUnderExports(t *testing.T) {
	s, newSyms := newExportFixture(4, 1, 3)
	// total = 5: skip 2, export only 1 (declared SDNUMEXSYMS is 3), skip 2.
	dict, err := s.export(newSyms, runStub([]int32{2, 1, 2}))
	if err == nil {
		t.Fatalf("export() with under-export run lengths returned nil error, dict with %d bitmaps", dict.NumBitmaps())
	}
	if kind, ok := KindOf(err); !ok || kind != KindDecoderInternal {
		t.Fatalf("export() under-export error kind = %v, want KindDecoderInternal", kind)
	}
}

// TestSDDProcExportOverExports mirrors the above for the over-export
// direction the original code already caught.
func TestSDDProcExportOverExports(t *testing.T) {
	s, newSyms := newExportFixture(4, 1, 3)
	// total = 5: skip 1, export 4 (declared SDNUMEXSYMS is only 3).
	dict, err := s.export(newSyms, runStub([]int32{1, 4}))
	if err == nil {
		t.Fatalf("export() with over-export run lengths returned nil error, dict with %d bitmaps", dict.NumBitmaps())
	}
	if kind, ok := KindOf(err); !ok || kind != KindDecoderInternal {
		t.Fatalf("export() over-export error kind = %v, want KindDecoderInternal", kind)
	}
}

// TestSDDProcExportRunLengthOutOfBounds checks the existing bounds
// check on an individual run length that would overshoot total.
func TestSDDProcExportRunLengthOutOfBounds(t *testing.T) {
	s, newSyms := newExportFixture(2, 1, 1)
	// total = 3, but the first run length alone already exceeds it.
	_, err := s.export(newSyms, runStub([]int32{10}))
	if err == nil {
		t.Fatalf("export() with an out-of-bounds run length returned nil error")
	}
	if kind, ok := KindOf(err); !ok || kind != KindOutOfRange {
		t.Fatalf("export() out-of-bounds error kind = %v, want KindOutOfRange", kind)
	}
}

// TestSDDProcExportDecodeFailure checks a decodeRun failure (stream
// exhausted before EXINDEX reaches total) is propagated rather than
// silently treated as "no more runs".
func TestSDDProcExportDecodeFailure(t *testing.T) {
	s, newSyms := newExportFixture(2, 1, 1)
	_, err := s.export(newSyms, runStub(nil))
	if err == nil {
		t.Fatalf("export() with immediate decode failure returned nil error")
	}
	if kind, ok := KindOf(err); !ok || kind != KindDecoderInternal {
		t.Fatalf("export() decode-failure error kind = %v, want KindDecoderInternal", kind)
	}
}

// TestSDDProcExportPreservesOrder checks that exported in-symbols and
// new symbols land in the dict in ascending index order, with
// un-exported symbols (the alternating CUREXFLAG runs) omitted.
func TestSDDProcExportPreservesOrder(t *testing.T) {
	s, newSyms := newExportFixture(2, 2, 2)
	s.SDINSYMS[0] = NewBitmap(3, 3)
	s.SDINSYMS[1] = NewBitmap(4, 4)
	newSyms[0] = NewBitmap(5, 5)
	newSyms[1] = NewBitmap(6, 6)
	// total = 4: skip in-symbol 0, export in-symbol 1 and new-symbol 0,
	// skip new-symbol 1.
	dict, err := s.export(newSyms, runStub([]int32{1, 2, 1}))
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if dict.NumBitmaps() != 2 {
		t.Fatalf("NumBitmaps() = %d, want 2", dict.NumBitmaps())
	}
	if dict.GetBitmap(0).Width() != 4 {
		t.Errorf("dict[0] width = %d, want 4 (SDINSYMS[1])", dict.GetBitmap(0).Width())
	}
	if dict.GetBitmap(1).Width() != 5 {
		t.Errorf("dict[1] width = %d, want 5 (newSyms[0])", dict.GetBitmap(1).Width())
	}
}
