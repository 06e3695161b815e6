package jbig2

import "testing"

func TestBitStreamReadNBits(t *testing.T) {
	data := []byte{0xb1} // 10110001
	stream := NewBitStream(data, 0)

	if val, err := stream.ReadNBits(1); err != nil || val != 1 {
		t.Fatalf("ReadNBits(1) = %d, %v; want 1, nil", val, err)
	}
	if val, err := stream.ReadNBits(1); err != nil || val != 0 {
		t.Fatalf("ReadNBits(1) = %d, %v; want 0, nil", val, err)
	}
	if val, err := stream.ReadNBits(2); err != nil || val != 3 {
		t.Fatalf("ReadNBits(2) = %d, %v; want 3, nil", val, err)
	}
	if val, err := stream.ReadNBits(4); err != nil || val != 1 {
		t.Fatalf("ReadNBits(4) = %d, %v; want 1, nil", val, err)
	}
}

func TestBitStreamReadPastEnd(t *testing.T) {
	stream := NewBitStream([]byte{0xFF}, 0)
	stream.AddOffset(1)
	if _, err := stream.Read1Bit(); err == nil {
		t.Fatalf("expected error reading past end of stream")
	}
	if kind, ok := func() (ErrorKind, bool) {
		_, err := stream.Read1Byte()
		return KindOf(err)
	}(); !ok || kind != KindTruncated {
		t.Fatalf("expected KindTruncated, got kind=%v ok=%v", kind, ok)
	}
}

func TestBitStreamReadIntegerBigEndian(t *testing.T) {
	stream := NewBitStream([]byte{0x00, 0x00, 0x01, 0x2C}, 0)
	val, err := stream.ReadInteger()
	if err != nil {
		t.Fatalf("ReadInteger: %v", err)
	}
	if val != 300 {
		t.Errorf("ReadInteger() = %d, want 300", val)
	}
}

func TestBitStreamReadIntegerLittleEndian(t *testing.T) {
	stream := NewBitStream([]byte{0x2C, 0x01, 0x00, 0x00}, 0)
	stream.SetLittleEndian(true)
	val, err := stream.ReadInteger()
	if err != nil {
		t.Fatalf("ReadInteger: %v", err)
	}
	if val != 300 {
		t.Errorf("ReadInteger() = %d, want 300", val)
	}
}

func TestBitStreamArithByteStuffingPastEnd(t *testing.T) {
	stream := NewBitStream([]byte{0x10}, 0)
	if got := stream.GetCurByteArith(); got != 0x10 {
		t.Fatalf("GetCurByteArith() = %#x, want 0x10", got)
	}
	if got := stream.GetNextByteArith(); got != 0xFF {
		t.Fatalf("GetNextByteArith() past end = %#x, want 0xFF", got)
	}
	stream.IncByteIdx()
	if got := stream.GetCurByteArith(); got != 0xFF {
		t.Fatalf("GetCurByteArith() past end = %#x, want 0xFF", got)
	}
}

func TestBitStreamAlignByte(t *testing.T) {
	stream := NewBitStream([]byte{0xFF, 0xAA}, 0)
	stream.ReadNBits(3)
	stream.AlignByte()
	if stream.GetOffset() != 1 {
		t.Fatalf("GetOffset() after AlignByte = %d, want 1", stream.GetOffset())
	}
	val, err := stream.Read1Byte()
	if err != nil || val != 0xAA {
		t.Fatalf("Read1Byte() after AlignByte = %#x, %v; want 0xAA, nil", val, err)
	}
}

func TestBitStreamDataFromDoesNotMoveCursor(t *testing.T) {
	stream := NewBitStream([]byte{0x01, 0x02, 0x03, 0x04}, 0)
	stream.AddOffset(2)
	tail := stream.DataFrom(0)
	if len(tail) != 4 || tail[0] != 0x01 {
		t.Fatalf("DataFrom(0) = %v, want full buffer", tail)
	}
	if stream.GetOffset() != 2 {
		t.Fatalf("DataFrom moved the cursor: GetOffset() = %d, want 2", stream.GetOffset())
	}
}
