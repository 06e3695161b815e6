package jbig2

import "testing"

func TestSegmentTypeGenericRegion(t *testing.T) {
	for _, typ := range []uint8{36, 38, 39} {
		if !segmentTypeGenericRegion(typ) {
			t.Errorf("segmentTypeGenericRegion(%d) = false, want true", typ)
		}
	}
	for _, typ := range []uint8{0, 4, 48, 51} {
		if segmentTypeGenericRegion(typ) {
			t.Errorf("segmentTypeGenericRegion(%d) = true, want false", typ)
		}
	}
}

func TestFindUnknownLengthDataEndArithmetic(t *testing.T) {
	data := make([]byte, 18)
	data = append(data, 0x11, 0x22, 0xFF, 0xAC, 0x00, 0x00, 0x00, 0x05)
	end, err := findUnknownLengthDataEnd(data, false)
	if err != nil {
		t.Fatalf("findUnknownLengthDataEnd: %v", err)
	}
	want := uint32(18 + 2 + 2 + 4)
	if end != want {
		t.Errorf("end = %d, want %d", end, want)
	}
}

func TestFindUnknownLengthDataEndMMR(t *testing.T) {
	data := make([]byte, 18)
	data = append(data, 0xAB, 0x00, 0x00, 0x00, 0x00, 0x00, 0x0A)
	end, err := findUnknownLengthDataEnd(data, true)
	if err != nil {
		t.Fatalf("findUnknownLengthDataEnd: %v", err)
	}
	want := uint32(18 + 1 + 2 + 4)
	if end != want {
		t.Errorf("end = %d, want %d", end, want)
	}
}

func TestFindUnknownLengthDataEndNoTerminator(t *testing.T) {
	data := make([]byte, 20)
	if _, err := findUnknownLengthDataEnd(data, false); err == nil {
		t.Fatalf("expected error when no terminator is present")
	} else if kind, ok := KindOf(err); !ok || kind != KindTruncated {
		t.Fatalf("expected KindTruncated, got %v", kind)
	}
}

func TestFindUnknownLengthDataEndTooShort(t *testing.T) {
	if _, err := findUnknownLengthDataEnd(make([]byte, 10), false); err == nil {
		t.Fatalf("expected error for data shorter than the fixed header")
	}
}

func TestNewSegmentDefaults(t *testing.T) {
	seg := NewSegment()
	if seg.State != JBig2SegmentHeaderUnparsed {
		t.Errorf("new segment state = %v, want JBig2SegmentHeaderUnparsed", seg.State)
	}
	if seg.ResultType != JBig2VoidPointer {
		t.Errorf("new segment result type = %v, want JBig2VoidPointer", seg.ResultType)
	}
}
