package jbig2

import "testing"

func TestSniff(t *testing.T) {
	if Sniff(nil) {
		t.Errorf("Sniff(nil) = true, want false")
	}
	if Sniff([]byte{0x00, 0x01}) {
		t.Errorf("Sniff on short garbage = true, want false")
	}
	valid := append([]byte{}, jbig2ID...)
	valid = append(valid, 0x00, 0x00, 0x00, 0x00, 0x01)
	if !Sniff(valid) {
		t.Errorf("Sniff on valid ID prefix = false, want true")
	}
}

func TestOpenRejectsMissingID(t *testing.T) {
	_, err := Open([]byte{0x01, 0x02, 0x03})
	if err == nil {
		t.Fatalf("expected error opening data without the JBIG2 ID")
	}
	if kind, ok := KindOf(err); !ok || kind != KindMalformedHeader {
		t.Fatalf("expected KindMalformedHeader, got %v", kind)
	}
}

func TestOpenRejectsTruncatedHeader(t *testing.T) {
	_, err := Open(jbig2ID)
	if err == nil {
		t.Fatalf("expected error opening an ID-only buffer with no flags byte")
	}
	if kind, ok := KindOf(err); !ok || kind != KindTruncated {
		t.Fatalf("expected KindTruncated, got %v", kind)
	}
}

func TestOpenRejectsReservedFlagBits(t *testing.T) {
	data := append([]byte{}, jbig2ID...)
	data = append(data, 0xF0) // reserved bits set
	_, err := Open(data)
	if err == nil {
		t.Fatalf("expected error for reserved file-header flag bits")
	}
	if kind, ok := KindOf(err); !ok || kind != KindMalformedHeader {
		t.Fatalf("expected KindMalformedHeader, got %v", kind)
	}
}

func TestDecoderStickyErrorState(t *testing.T) {
	// A mid-decode failure (a page started but never finished, say) puts
	// the Decoder in an error state: every later Frame call must return
	// that same error, never a partial bitmap.
	sticky := errDecoderInternal("segment stream parse failed")
	dec := &Decoder{err: sticky}
	_, frameErr := dec.Frame(0)
	if frameErr != sticky {
		t.Fatalf("Frame() error = %v, want the sticky error %v", frameErr, sticky)
	}
	if _, frameErr2 := dec.Frame(5); frameErr2 != sticky {
		t.Fatalf("second Frame() call returned a different error: %v", frameErr2)
	}
}

func TestOpenGarbageReturnsNilDecoderAndError(t *testing.T) {
	dec, err := Open([]byte{0x00})
	if err == nil {
		t.Fatalf("expected Open to fail on garbage input")
	}
	if dec != nil {
		t.Fatalf("expected no Decoder when the file header itself is invalid, got %#v", dec)
	}
}

func TestFrameOutOfRange(t *testing.T) {
	dec := &Decoder{}
	if _, err := dec.Frame(0); err == nil {
		t.Fatalf("expected error indexing into a Decoder with no decoded pages")
	} else if kind, ok := KindOf(err); !ok || kind != KindOutOfRange {
		t.Fatalf("expected KindOutOfRange, got %v", kind)
	}
}

func TestDecodeEmbeddedRejectsEmptyInput(t *testing.T) {
	if _, err := DecodeEmbedded(nil); err == nil {
		t.Fatalf("expected error for an empty segment list")
	}
}
