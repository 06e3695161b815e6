package jbig2

import "testing"

// TestHuffmanAssignCodeCanonical hand-traces Annex B.3's canonical code
// assignment over four codelens (one length-1, one length-2, two
// length-3) and checks the exact codes it produces:
//
//	lenCounts: [1]=1 [2]=1 [3]=2
//	firstCodes[1] = 0
//	firstCodes[2] = (0+1)<<1 = 2
//	firstCodes[3] = (2+1)<<1 = 6
//
// giving symbol1 code 0 ('0'), symbol0 code 2 ('10'), symbol2 code 6
// ('110'), symbol3 code 7 ('111') — a valid prefix code since the Kraft
// sum 1/2 + 1/4 + 1/8 + 1/8 equals 1.
func TestHuffmanAssignCodeCanonical(t *testing.T) {
	codes := []HuffmanCode{
		{Codelen: 2}, // symbol0
		{Codelen: 1}, // symbol1
		{Codelen: 3}, // symbol2
		{Codelen: 3}, // symbol3
	}
	if err := HuffmanAssignCode(codes); err != nil {
		t.Fatalf("HuffmanAssignCode: %v", err)
	}
	want := []int32{2, 0, 6, 7}
	for i, w := range want {
		if codes[i].Code != w {
			t.Errorf("codes[%d].Code = %d, want %d", i, codes[i].Code, w)
		}
	}
}

// TestHuffmanAssignCodeSkipsUnusedRows checks that a zero-length row
// (a standard table's unused placeholder, e.g. kHuffmanTables[1][3])
// is never assigned a code and never consumes a slot in the numbering
// of the lengths that follow it.
func TestHuffmanAssignCodeSkipsUnusedRows(t *testing.T) {
	codes := []HuffmanCode{
		{Codelen: 1}, // row0
		{Codelen: 2}, // row1
		{Codelen: 3}, // row2
		{Codelen: 0}, // row3: unused
		{Codelen: 3}, // row4
	}
	if err := HuffmanAssignCode(codes); err != nil {
		t.Fatalf("HuffmanAssignCode: %v", err)
	}
	want := []int32{0, 2, 6, 0, 7}
	for i, w := range want {
		if codes[i].Code != w {
			t.Errorf("codes[%d].Code = %d, want %d", i, codes[i].Code, w)
		}
	}
}

// bitsToBytes packs a string of '0'/'1' characters into a byte slice,
// MSB-first, zero-padding the final byte. Used to build hand-traceable
// bit-exact Huffman fixtures without needing an encoder.
func bitsToBytes(bits string) []byte {
	n := (len(bits) + 7) / 8
	out := make([]byte, n)
	for i, c := range bits {
		if c == '1' {
			out[i/8] |= 1 << uint(7-i%8)
		}
	}
	return out
}

// TestHuffmanDecodeAValueRoundTrip builds a small table by hand,
// assigns its canonical codes, and decodes hand-built bitstrings for
// each row, checking both the matched prefix and the trailing
// range-offset bits.
func TestHuffmanDecodeAValueRoundTrip(t *testing.T) {
	ht := &HuffmanTable{
		CODES: []HuffmanCode{
			{Codelen: 2, Val1: 0, Val2: 100},
			{Codelen: 1, Val1: 0, Val2: 200},
			{Codelen: 3, Val1: 0, Val2: 300},
			{Codelen: 3, Val1: 0, Val2: 400},
		},
	}
	if err := HuffmanAssignCode(ht.CODES); err != nil {
		t.Fatalf("HuffmanAssignCode: %v", err)
	}
	ht.extendBuffers()
	ht.Ok = true

	cases := []struct {
		bits string
		want int32
	}{
		{"0", 200},   // row1, code '0'
		{"10", 100},  // row0, code '10'
		{"110", 300}, // row2, code '110'
		{"111", 400}, // row3, code '111'
	}
	for _, c := range cases {
		stream := NewBitStream(bitsToBytes(c.bits), 0)
		dec := NewHuffmanDecoder(stream)
		var result int32
		if ret := dec.DecodeAValue(ht, &result); ret != 0 {
			t.Fatalf("DecodeAValue(%q) = %d, want 0", c.bits, ret)
		}
		if result != c.want {
			t.Errorf("DecodeAValue(%q) = %d, want %d", c.bits, result, c.want)
		}
	}
}

// TestHuffmanDecodeAValueOOB checks that the table's final row, when
// HTOOB is set, reports JBig2OOB without consuming any range bits.
func TestHuffmanDecodeAValueOOB(t *testing.T) {
	ht := &HuffmanTable{
		HTOOB: true,
		CODES: []HuffmanCode{
			{Codelen: 1, Val1: 0, Val2: 0},
			{Codelen: 1, Val1: 0, Val2: 0}, // OOB row
		},
	}
	// Two length-1 rows: HuffmanAssignCode gives them the ascending code
	// values 0 and 1, so the OOB row's code is 1.
	if err := HuffmanAssignCode(ht.CODES); err != nil {
		t.Fatalf("HuffmanAssignCode: %v", err)
	}
	ht.extendBuffers()
	ht.Ok = true

	stream := NewBitStream(bitsToBytes("1"), 0)
	dec := NewHuffmanDecoder(stream)
	var result int32
	if ret := dec.DecodeAValue(ht, &result); ret != JBig2OOB {
		t.Fatalf("DecodeAValue(OOB row) = %d, want JBig2OOB", ret)
	}
}

// TestNewStandardTableB1 hand-verifies the canonical codes assigned to
// standard table B.1 (kHuffmanTables[1]): lengths [1,2,3,0,3] give
// codes [0,2,6,-,7], and decodes one value out of each of the three
// reachable rows (the fourth row has PREFLEN 0 and is never assigned,
// matching T.88's "this table has no lower extension range").
func TestNewStandardTableB1(t *testing.T) {
	ht := NewStandardTable(1)
	if !ht.IsOK() {
		t.Fatalf("NewStandardTable(1).IsOK() = false")
	}
	wantCodes := []int32{0, 2, 6, 0, 7}
	for i, w := range wantCodes {
		if ht.CODES[i].Code != w {
			t.Errorf("CODES[%d].Code = %d, want %d", i, ht.CODES[i].Code, w)
		}
	}

	cases := []struct {
		bits string
		want int32
	}{
		// row0: 4-bit range over [0,16), offset 5
		{"0" + "0101", 5},
		// row1: 8-bit range over [16,272), offset 200
		{"10" + "11001000", 216},
		// row4: unbounded upper range, offset 1
		{"111" + zeros(31) + "1", 65808 + 1},
	}
	for _, c := range cases {
		stream := NewBitStream(bitsToBytes(c.bits), 0)
		dec := NewHuffmanDecoder(stream)
		var result int32
		if ret := dec.DecodeAValue(ht, &result); ret != 0 {
			t.Fatalf("DecodeAValue(%q) = %d, want 0", c.bits, ret)
		}
		if result != c.want {
			t.Errorf("DecodeAValue(%q) = %d, want %d", c.bits, result, c.want)
		}
	}
}

func zeros(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = '0'
	}
	return string(b)
}
