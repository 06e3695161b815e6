// Copyright 2026 肖其顿 (XIAO QI DUN)
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package jbig2

// TableLine is one row of a standard-table literal definition (Annex
// B.5): a prefix length, the width of the range it covers, and the
// range's lower bound.
type TableLine struct {
	PrefLen  int32
	RangeLen int32
	RangeLow int32
}

// HuffmanTable is an assigned canonical Huffman table (Annex B.3):
// prefix codes over a set of value ranges, with an optional OOB code
// and an optional pair of unbounded extension ranges below/above the
// explicit ones.
type HuffmanTable struct {
	HTOOB    bool
	NTEMP    uint32
	CODES    []HuffmanCode
	RANGELEN []int32
	RANGELOW []int32
	// LOWERRANGE marks, per code row, whether its extension range
	// (RangeLen == 32) reads downward from RangeLow (subtract the
	// decoded offset) instead of upward (add it). Only ever set on
	// the lower of a table's two unbounded extension rows.
	LOWERRANGE []bool
	Ok         bool
}

// NewStandardTable builds one of the fifteen tables in Annex B.5 (index
// 1..15; index 0 is unused so table numbers match the spec's 1-based
// numbering). Tables C, E, and O (indices 3, 5, and 15) are built like
// the others and are not rejected; the symbol dictionary and text
// region table selectors request them.
func NewStandardTable(idx int) *HuffmanTable {
	ht := &HuffmanTable{}
	ht.parseFromStandardTable(idx)
	return ht
}

// NewTableFromStream parses a custom code-table segment body (Annex
// B.2) out of stream.
func NewTableFromStream(stream *BitStream) *HuffmanTable {
	ht := &HuffmanTable{}
	ht.parseFromCodedBuffer(stream)
	return ht
}

func (h *HuffmanTable) Size() uint32     { return uint32(len(h.CODES)) }
func (h *HuffmanTable) IsHTOOB() bool    { return h.HTOOB }
func (h *HuffmanTable) IsOK() bool       { return h.Ok }

// linesToCodes converts a standard table's literal (PrefLen, RangeLen,
// RangeLow) rows into the HuffmanCode slice CODES is built from.
func linesToCodes(lines []TableLine) []HuffmanCode {
	codes := make([]HuffmanCode, len(lines))
	for i, ln := range lines {
		codes[i].Codelen = ln.PrefLen
		codes[i].Val1 = ln.RangeLen
		codes[i].Val2 = ln.RangeLow
	}
	return codes
}

// extensionRowIndices returns the positions of CODES' unbounded
// extension rows (RangeLen==32 with a real prefix code, i.e. excluding
// a row that was merely never assigned a code).
func (h *HuffmanTable) extensionRowIndices() []int {
	var idx []int
	for i := range h.CODES {
		if h.CODES[i].Val1 == 32 && h.CODES[i].Codelen > 0 {
			idx = append(idx, i)
		}
	}
	return idx
}

// markStandardLowerExtension flags which of a standard table's (at
// most two) extension rows reads downward. The first one listed is
// always the downward extension; every standard table with two follows
// this order (e.g. B.3's -257-and-below row precedes its 75-and-above
// row).
func (h *HuffmanTable) markStandardLowerExtension() {
	rows := h.extensionRowIndices()
	if len(rows) >= 2 {
		h.LOWERRANGE[rows[0]] = true
	}
}

func (h *HuffmanTable) parseFromStandardTable(idx int) bool {
	if idx < 1 || idx >= len(kHuffmanTables) {
		return false
	}
	def := kHuffmanTables[idx]
	h.HTOOB = def.HTOOB
	h.CODES = linesToCodes(def.Lines)
	h.NTEMP = uint32(len(h.CODES))
	h.extendBuffers()
	h.markStandardLowerExtension()
	h.Ok = HuffmanAssignCode(h.CODES) == nil
	return h.Ok
}

// codeTableHeader is the fixed preamble of a custom code-table segment
// (Annex B.2): the OOB flag and the bit widths of every PREFLEN/RANGELEN
// field that follows, plus the explicit rows' value bounds.
type codeTableHeader struct {
	htoob      bool
	htps, htrs uint32
	low, high  int32
}

func readCodeTableHeader(stream *BitStream) (codeTableHeader, bool) {
	var hdr codeTableHeader
	oob, err := stream.ReadNBits(1)
	if err != nil {
		return hdr, false
	}
	hdr.htoob = oob != 0
	psField, err := stream.ReadNBits(3)
	if err != nil {
		return hdr, false
	}
	hdr.htps = psField + 1
	rsField, err := stream.ReadNBits(4)
	if err != nil {
		return hdr, false
	}
	hdr.htrs = rsField + 1
	low, err := stream.ReadInteger()
	if err != nil {
		return hdr, false
	}
	hdr.low = int32(low)
	high, err := stream.ReadInteger()
	if err != nil {
		return hdr, false
	}
	hdr.high = int32(high)
	return hdr, true
}

// readExplicitLines reads the run of explicit (PREFLEN, RANGELEN) rows
// spanning [hdr.low, hdr.high) that precede a custom table's two
// mandatory extension rows. Annex B.2 bounds row generation by the
// declared range; a crafted RANGELEN of 0 would otherwise only advance
// the cursor by one per iteration, so the row count is capped
// defensively against a maliciously huge custom table.
func readExplicitLines(stream *BitStream, hdr codeTableHeader) ([]TableLine, bool) {
	const maxLines = 1 << 20
	var lines []TableLine
	curLow := int64(hdr.low)
	for curLow < int64(hdr.high) {
		if len(lines) >= maxLines {
			return nil, false
		}
		prefLen, err := stream.ReadNBits(hdr.htps)
		if err != nil {
			return nil, false
		}
		rangeLen, err := stream.ReadNBits(hdr.htrs)
		if err != nil {
			return nil, false
		}
		lines = append(lines, TableLine{PrefLen: int32(prefLen), RangeLen: int32(rangeLen), RangeLow: int32(curLow)})
		curLow += int64(1) << rangeLen
	}
	return lines, true
}

// appendExtensionLines appends the two mandatory unbounded extension
// rows and, iff HTOOB is set, the trailing OOB row, reporting the
// index of the lower (downward-reading) extension row.
func appendExtensionLines(stream *BitStream, hdr codeTableHeader, lines []TableLine) ([]TableLine, int, bool) {
	lowerPrefLen, err := stream.ReadNBits(hdr.htps)
	if err != nil {
		return nil, 0, false
	}
	upperPrefLen, err := stream.ReadNBits(hdr.htps)
	if err != nil {
		return nil, 0, false
	}
	lowerIdx := len(lines)
	lines = append(lines,
		TableLine{PrefLen: int32(lowerPrefLen), RangeLen: 32, RangeLow: hdr.low - 1},
		TableLine{PrefLen: int32(upperPrefLen), RangeLen: 32, RangeLow: hdr.high},
	)
	if hdr.htoob {
		oobPrefLen, err := stream.ReadNBits(hdr.htps)
		if err != nil {
			return nil, 0, false
		}
		lines = append(lines, TableLine{PrefLen: int32(oobPrefLen), RangeLen: 0, RangeLow: 0})
	}
	return lines, lowerIdx, true
}

// parseFromCodedBuffer implements Annex B.2's custom code-table layout:
// a header (readCodeTableHeader), a run of explicit rows
// (readExplicitLines), then the mandatory extension/OOB rows
// (appendExtensionLines).
func (h *HuffmanTable) parseFromCodedBuffer(stream *BitStream) bool {
	hdr, ok := readCodeTableHeader(stream)
	if !ok {
		return false
	}
	h.HTOOB = hdr.htoob
	lines, ok := readExplicitLines(stream, hdr)
	if !ok {
		return false
	}
	lines, lowerIdx, ok := appendExtensionLines(stream, hdr, lines)
	if !ok {
		return false
	}

	h.CODES = linesToCodes(lines)
	h.NTEMP = uint32(len(h.CODES))
	h.extendBuffers()
	h.LOWERRANGE[lowerIdx] = true
	h.Ok = HuffmanAssignCode(h.CODES) == nil
	return h.Ok
}

func (h *HuffmanTable) extendBuffers() {
	h.RANGELEN = make([]int32, len(h.CODES))
	h.RANGELOW = make([]int32, len(h.CODES))
	h.LOWERRANGE = make([]bool, len(h.CODES))
	for i := range h.CODES {
		h.RANGELEN[i] = h.CODES[i].Val1
		h.RANGELOW[i] = h.CODES[i].Val2
	}
}

// HuffmanDecoder reads values against an assigned HuffmanTable by
// scanning bit-by-bit — adequate for these small alphabets. The text
// region's symbol-ID table is matched separately by
// scanSymbolPrefixCode in textregion.go, which also scans every code at
// each bit length; no length-indexed lookup is built.
type HuffmanDecoder struct {
	stream *BitStream
}

func NewHuffmanDecoder(stream *BitStream) *HuffmanDecoder {
	return &HuffmanDecoder{stream: stream}
}

// matchRow finds the row of table whose (length, code) matches the
// nBits-wide prefix val decoded so far, or -1 if none matches yet.
func matchRow(table *HuffmanTable, val int32, nBits int) int {
	for i, code := range table.CODES {
		if code.Codelen == int32(nBits) && code.Code == val {
			return i
		}
	}
	return -1
}

// resolveRow reads a matched row's trailing range bits (if any) and
// produces the decoded value, or reports the row as the table's OOB
// marker.
func (h *HuffmanDecoder) resolveRow(table *HuffmanTable, row int, result *int32) int {
	if table.HTOOB && row == len(table.CODES)-1 {
		return JBig2OOB
	}
	rlen := table.RANGELEN[row]
	rlow := table.RANGELOW[row]
	if rlen == 0 {
		*result = rlow
		return 0
	}
	offset, err := h.stream.ReadNBits(uint32(rlen))
	if err != nil {
		return -1
	}
	if table.LOWERRANGE[row] {
		*result = rlow - int32(offset)
	} else {
		*result = rlow + int32(offset)
	}
	return 0
}

// DecodeAValue reads one Huffman-coded value. Returns JBig2OOB when the
// decoded code is the table's OOB row, 0 on success (with *result set),
// or -1 on a stream error or runaway code length.
func (h *HuffmanDecoder) DecodeAValue(table *HuffmanTable, result *int32) int {
	var val int32
	for nBits := 0; nBits <= 32; nBits++ {
		bit, err := h.stream.Read1Bit()
		if err != nil {
			return -1
		}
		val = (val << 1) | int32(bit)
		if row := matchRow(table, val, nBits+1); row >= 0 {
			return h.resolveRow(table, row, result)
		}
	}
	return -1
}

// HuffmanAssignCode runs the canonical-code assignment algorithm (Annex
// B.3): codes of the same length are consecutive, and shorter lengths
// always sort before longer ones — exactly a length-limited Huffman
// code, assigned without needing the original symbol frequencies.
func HuffmanAssignCode(symcodes []HuffmanCode) error {
	lenMax := int32(0)
	for _, sc := range symcodes {
		if sc.Codelen > lenMax {
			lenMax = sc.Codelen
		}
	}
	lenCounts := make([]int, lenMax+1)
	firstCodes := make([]int32, lenMax+1)
	for _, sc := range symcodes {
		if sc.Codelen > 0 {
			lenCounts[sc.Codelen]++
		}
	}
	lenCounts[0] = 0
	for i := int32(1); i <= lenMax; i++ {
		firstCodes[i] = (firstCodes[i-1] + int32(lenCounts[i-1])) << 1
		curCode := firstCodes[i]
		for j := range symcodes {
			if symcodes[j].Codelen == i {
				symcodes[j].Code = curCode
				curCode++
			}
		}
	}
	return nil
}

type standardTableDef struct {
	HTOOB bool
	Lines []TableLine
}

// kHuffmanTables holds the fifteen standard tables of Annex B.5,
// 1-indexed (index 0 is an unused placeholder so table numbers line up
// with the spec's B.1..B.15 naming).
var kHuffmanTables = []standardTableDef{
	{false, nil},
	{false, []TableLine{{1, 4, 0}, {2, 8, 16}, {3, 16, 272}, {0, 32, -1}, {3, 32, 65808}}},
	{true, []TableLine{{1, 0, 0}, {2, 0, 1}, {3, 0, 2}, {4, 3, 3}, {5, 6, 11}, {0, 32, -1}, {6, 32, 75}, {6, 0, 0}}},
	{true, []TableLine{{8, 8, -256}, {1, 0, 0}, {2, 0, 1}, {3, 0, 2}, {4, 3, 3}, {5, 6, 11}, {8, 32, -257}, {7, 32, 75}, {6, 0, 0}}},
	{false, []TableLine{{1, 0, 1}, {2, 0, 2}, {3, 0, 3}, {4, 3, 4}, {5, 6, 12}, {0, 32, -1}, {5, 32, 76}}},
	{false, []TableLine{{7, 8, -255}, {1, 0, 1}, {2, 0, 2}, {3, 0, 3}, {4, 3, 4}, {5, 6, 12}, {7, 32, -256}, {6, 32, 76}}},
	{false, []TableLine{{5, 10, -2048}, {4, 9, -1024}, {4, 8, -512}, {4, 7, -256}, {5, 6, -128}, {5, 5, -64}, {4, 5, -32}, {2, 7, 0}, {3, 7, 128}, {3, 8, 256}, {4, 9, 512}, {4, 10, 1024}, {6, 32, -2049}, {6, 32, 2048}}},
	{false, []TableLine{{4, 9, -1024}, {3, 8, -512}, {4, 7, -256}, {5, 6, -128}, {5, 5, -64}, {4, 5, -32}, {4, 5, 0}, {5, 5, 32}, {5, 6, 64}, {4, 7, 128}, {3, 8, 256}, {3, 9, 512}, {3, 10, 1024}, {5, 32, -1025}, {5, 32, 2048}}},
	{true, []TableLine{{8, 3, -15}, {9, 1, -7}, {8, 1, -5}, {9, 0, -3}, {7, 0, -2}, {4, 0, -1}, {2, 1, 0}, {5, 0, 2}, {6, 0, 3}, {3, 4, 4}, {6, 1, 20}, {4, 4, 22}, {4, 5, 38}, {5, 6, 70}, {5, 7, 134}, {6, 7, 262}, {7, 8, 390}, {6, 10, 646}, {9, 32, -16}, {9, 32, 1670}, {2, 0, 0}}},
	{true, []TableLine{{8, 4, -31}, {9, 2, -15}, {8, 2, -11}, {9, 1, -7}, {7, 1, -5}, {4, 1, -3}, {3, 1, -1}, {3, 1, 1}, {5, 1, 3}, {6, 1, 5}, {3, 5, 7}, {6, 2, 39}, {4, 5, 43}, {4, 6, 75}, {5, 7, 139}, {5, 8, 267}, {6, 8, 523}, {7, 9, 779}, {6, 11, 1291}, {9, 32, -32}, {9, 32, 3339}, {2, 0, 0}}},
	{true, []TableLine{{7, 4, -21}, {8, 0, -5}, {7, 0, -4}, {5, 0, -3}, {2, 2, -2}, {5, 0, 2}, {6, 0, 3}, {7, 0, 4}, {8, 0, 5}, {2, 6, 6}, {5, 5, 70}, {6, 5, 102}, {6, 6, 134}, {6, 7, 198}, {6, 8, 326}, {6, 9, 582}, {6, 10, 1094}, {7, 11, 2118}, {8, 32, -22}, {8, 32, 4166}, {2, 0, 0}}},
	{false, []TableLine{{1, 0, 1}, {2, 1, 2}, {4, 0, 4}, {4, 1, 5}, {5, 1, 7}, {5, 2, 9}, {6, 2, 13}, {7, 2, 17}, {7, 3, 21}, {7, 4, 29}, {7, 5, 45}, {7, 6, 77}, {0, 32, 0}, {7, 32, 141}}},
	{false, []TableLine{{1, 0, 1}, {2, 0, 2}, {3, 1, 3}, {5, 0, 5}, {5, 1, 6}, {6, 1, 8}, {7, 0, 10}, {7, 1, 11}, {7, 2, 13}, {7, 3, 17}, {7, 4, 25}, {8, 5, 41}, {0, 32, 0}, {8, 32, 73}}},
	{false, []TableLine{{1, 0, 1}, {3, 0, 2}, {4, 0, 3}, {5, 0, 4}, {4, 1, 5}, {3, 3, 7}, {6, 1, 15}, {6, 2, 17}, {6, 3, 21}, {6, 4, 29}, {6, 5, 45}, {7, 6, 77}, {0, 32, 0}, {7, 32, 141}}},
	{false, []TableLine{{3, 0, -2}, {3, 0, -1}, {1, 0, 0}, {3, 0, 1}, {3, 0, 2}, {0, 32, -3}, {0, 32, 3}}},
	{false, []TableLine{{7, 4, -24}, {6, 2, -8}, {5, 1, -4}, {4, 0, -2}, {3, 0, -1}, {1, 0, 0}, {3, 0, 1}, {4, 0, 2}, {5, 1, 3}, {6, 2, 5}, {7, 4, 9}, {7, 32, -25}, {7, 32, 25}}},
}
