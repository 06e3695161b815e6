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

import "bytes"

// JBig2SegmentState tracks how far a Segment's header/data parse has
// progressed.
type JBig2SegmentState int

const (
	JBig2SegmentHeaderUnparsed JBig2SegmentState = 0
	JBig2SegmentDataUnparsed   JBig2SegmentState = 1
	JBig2SegmentParseComplete  JBig2SegmentState = 2
	JBig2SegmentPaused         JBig2SegmentState = 3
	JBig2SegmentError          JBig2SegmentState = 4
)

// JBig2ResultType says which field of Segment holds its decoded payload.
type JBig2ResultType int

const (
	JBig2VoidPointer         JBig2ResultType = 0
	JBig2BitmapPointer       JBig2ResultType = 1
	JBig2SymbolDictPointer   JBig2ResultType = 2
	JBig2PatternDictPointer  JBig2ResultType = 3
	JBig2HuffmanTablePointer JBig2ResultType = 4
)

// SegmentFlags is the 1-byte segment header flags field (§7.2.3): the
// low 6 bits are the segment type, bit 6 says whether the page
// association field is 1 or 4 bytes, and bit 7 is the deferred-non-
// retain flag (parsed but otherwise unused by a decoder that doesn't
// retain context across calls).
type SegmentFlags struct {
	Type                uint8
	PageAssociationSize bool
	DeferredNonRetain   bool
}

// Segment is one parsed segment header, plus whatever its data parse
// produced once that runs.
type Segment struct {
	Number                   uint32
	Flags                    SegmentFlags
	ReferredToSegmentCount   int32
	ReferredToSegmentNumbers []uint32
	PageAssociation          uint32
	DataLength               uint32
	HeaderLength             uint32
	DataOffset               uint32
	Key                      uint64
	State                    JBig2SegmentState
	ResultType               JBig2ResultType
	SymbolDict               *SymbolDict
	PatternDict              *PatternDict
	Bitmap                   *Bitmap
	HuffmanTable             *HuffmanTable
	GBContexts               []ArithCtx
	GRContexts               []ArithCtx
}

func NewSegment() *Segment {
	return &Segment{
		State:      JBig2SegmentHeaderUnparsed,
		ResultType: JBig2VoidPointer,
	}
}

// genericRegionSegmentTypes are the three generic-region segment types
// (intermediate, immediate, immediate lossless) — the only types
// §7.2.7 allows an unknown (0xFFFFFFFF) data length for.
var genericRegionSegmentTypes = [...]uint8{36, 38, 39}

// segmentTypeGenericRegion reports whether typ is one of
// genericRegionSegmentTypes.
func segmentTypeGenericRegion(typ uint8) bool {
	for _, t := range genericRegionSegmentTypes {
		if t == typ {
			return true
		}
	}
	return false
}

// unknownLengthRegionHeaderSize is the fixed portion of a generic
// region's own coded data preceding the entropy-coded pixels: the
// 17-byte region info field plus the 1-byte generic-region flags byte.
// No unknown-length terminator can legitimately start before it.
const unknownLengthRegionHeaderSize = 18

// unknownLengthTerminator returns the 2-byte sequence that ends an
// unknown-length generic region's coded data (§7.2.7/Annex 9.2):
// 0x00 0x00 for MMR-coded data, 0xFF 0xAC for arithmetic-coded data.
func unknownLengthTerminator(mmr bool) []byte {
	if mmr {
		return []byte{0x00, 0x00}
	}
	return []byte{0xFF, 0xAC}
}

// findUnknownLengthDataEnd implements the §7.2.7/Annex 9.2 unknown-
// length generic-region scan: when a generic-region segment's data
// length field reads 0xFFFFFFFF, the true length is recovered by
// locating the terminator in the region's own coded data, which is
// followed by a 4-byte row count giving the segment's true end.
func findUnknownLengthDataEnd(data []byte, mmr bool) (uint32, error) {
	if len(data) < unknownLengthRegionHeaderSize+2 {
		return 0, errTruncated("unknown-length region shorter than its own fixed header")
	}
	term := unknownLengthTerminator(mmr)
	pos := bytes.Index(data[unknownLengthRegionHeaderSize:], term)
	if pos < 0 {
		return 0, errTruncated("unknown-length region terminator not found")
	}
	end := unknownLengthRegionHeaderSize + pos + len(term) + 4
	if end > len(data) {
		return 0, errTruncated("unknown-length region terminator found but trailing row count is truncated")
	}
	return uint32(end), nil
}
