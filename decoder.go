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

import (
	"golang.org/x/exp/slices"
)

// Result is the outcome of one segment-header or segment-data parse
// step. The orchestration loop (DecodeSequential/decodeGrouped) reads
// these rather than Go errors because a single malformed segment often
// needs to be distinguished from "no more data" (ResultEndReached) or
// "this page's regions are all in" (ResultPageCompleted) without
// unwinding the whole decode.
type Result int

const (
	ResultSuccess             Result = 0
	ResultFailure             Result = 1
	ResultEndReached          Result = 2
	ResultDecodeToBeContinued Result = 3
	ResultPageCompleted       Result = 4
)

// Document is a single decode pass over an embedded JBIG2 stream: its
// own segment stream plus, optionally, a shared globalContext stream
// (the "JBIG2Globals" segments some embedders — PDF in particular —
// factor out so multiple pages can share one symbol dictionary).
type Document struct {
	stream          *BitStream
	globalContext   *Document
	segmentList     []*Segment
	page            *Bitmap
	pageInfoList    []*PageInfo
	symbolDictCache map[uint64]*SymbolDict
	segment         *Segment
	offset          uint32
	inPage          bool
	bufSpecified    bool
	pauseStep       int
	randomAccess    bool
	isGlobal        bool
	Grouped         bool
	OrgMode         int
	groupedStarted  bool
	groupedIdx      int
	groupedDataOff  uint32
	lastErr         error
}

// fail records err as the reason the current parse step is aborting and
// reports it as ResultFailure, so a caller several layers up (jbig2.go's
// decodeAll) can surface the specific ErrorKind instead of a generic
// "parse failed" message.
func (d *Document) fail(err error) Result {
	d.lastErr = err
	return ResultFailure
}

func NewDocument(data []byte, globalData []byte, randomAccess bool, littleEndian bool) *Document {
	stream := NewBitStream(data, 0)
	stream.SetLittleEndian(littleEndian)
	doc := &Document{
		stream:          stream,
		symbolDictCache: make(map[uint64]*SymbolDict),
		randomAccess:    randomAccess,
	}
	if len(globalData) > 0 {
		doc.globalContext = &Document{
			stream:          NewBitStream(globalData, 0),
			isGlobal:        true,
			symbolDictCache: doc.symbolDictCache,
		}
	}
	return doc
}

// refNumberWidth reports how many bytes hold each referred-to segment
// number (§7.2.5): a segment can only refer to an earlier one, so its
// own (already-known) number bounds how wide those numbers can be.
func refNumberWidth(ownNumber uint32) int {
	switch {
	case ownNumber > 65536:
		return 4
	case ownNumber > 256:
		return 2
	default:
		return 1
	}
}

// readReferredToCount reads the referred-to-segment count field
// (§7.2.4). Most segments pack it into the top 3 bits of a single
// byte; a value of 7 there flags the long form, where the real count
// occupies the low 29 bits of a 4-byte integer and is trailed by one
// retention bit per referred segment (rounded up to a byte) that this
// decoder has no use for and skips outright.
func (d *Document) readReferredToCount() (int32, bool) {
	peek := d.stream.GetCurByte()
	if peek>>5 != 7 {
		b, err := d.stream.Read1Byte()
		if err != nil {
			return 0, false
		}
		return int32(b >> 5), true
	}
	raw, err := d.stream.ReadInteger()
	if err != nil {
		return 0, false
	}
	count := int32(raw & 0x1FFFFFFF)
	if count > 1024 {
		return 0, false
	}
	retentionFlagBytes := (count + 1 + 7) / 8
	d.stream.AddOffset(uint32(retentionFlagBytes))
	return count, true
}

// readReferredToNumbers reads the count's referred-to segment numbers,
// each width bytes wide, enforcing the backward-reference rule (§7.2.5)
// that forbids a segment from citing itself or a later one outside
// random-access streams.
func (d *Document) readReferredToNumbers(count int32, width int, ownNumber uint32) ([]uint32, bool) {
	if count <= 0 {
		return nil, true
	}
	numbers := make([]uint32, count)
	for i := range numbers {
		var n uint32
		switch width {
		case 1:
			b, err := d.stream.Read1Byte()
			if err != nil {
				return nil, false
			}
			n = uint32(b)
		case 2:
			s, err := d.stream.ReadShortInteger()
			if err != nil {
				return nil, false
			}
			n = uint32(s)
		default:
			v, err := d.stream.ReadInteger()
			if err != nil {
				return nil, false
			}
			n = v
		}
		if !d.randomAccess && n >= ownNumber {
			return nil, false
		}
		numbers[i] = n
	}
	return numbers, true
}

// usesSequentialLayout reports whether segment number and page
// association are stored inline in this header, rather than deferred
// to the random-access grouped header block (§7.2.1).
func (d *Document) usesSequentialLayout() bool {
	return d.OrgMode == 1 || !d.randomAccess
}

// ParseSegmentHeader parses one segment header (§7.2): number, flags,
// referred-to segment numbers, page association, and data length.
func (d *Document) ParseSegmentHeader(segment *Segment) Result {
	if d.usesSequentialLayout() {
		n, err := d.stream.ReadInteger()
		if err != nil {
			return ResultFailure
		}
		segment.Number = n
	}

	flags, err := d.stream.Read1Byte()
	if err != nil {
		return ResultFailure
	}
	segment.Flags.Type = flags & 0x3F
	segment.Flags.PageAssociationSize = flags&0x40 != 0
	segment.Flags.DeferredNonRetain = flags&0x80 != 0

	refCount, ok := d.readReferredToCount()
	if !ok {
		return ResultFailure
	}
	segment.ReferredToSegmentCount = refCount
	refs, ok := d.readReferredToNumbers(refCount, refNumberWidth(segment.Number), segment.Number)
	if !ok {
		return ResultFailure
	}
	segment.ReferredToSegmentNumbers = refs

	if d.usesSequentialLayout() {
		if segment.Flags.PageAssociationSize {
			v, err := d.stream.ReadInteger()
			if err != nil {
				return ResultFailure
			}
			segment.PageAssociation = v
		} else {
			b, err := d.stream.Read1Byte()
			if err != nil {
				return ResultFailure
			}
			segment.PageAssociation = uint32(b)
		}
	}

	length, err := d.stream.ReadInteger()
	if err != nil {
		return ResultFailure
	}
	segment.DataLength = length

	segment.Key = d.stream.GetKey()
	segment.DataOffset = d.stream.GetOffset()
	segment.State = JBig2SegmentDataUnparsed
	return ResultSuccess
}

// FindSegmentByNumber looks up an already-parsed segment by its
// declared number. Globals are visible to every page, so every
// document in the global-then-local chain gets a turn before giving
// up.
func (d *Document) FindSegmentByNumber(number uint32) *Segment {
	for _, doc := range d.lookupChain() {
		if idx := slices.IndexFunc(doc.segmentList, func(seg *Segment) bool {
			return seg.Number == number
		}); idx >= 0 {
			return doc.segmentList[idx]
		}
	}
	return nil
}

// lookupChain orders this document's globals ahead of itself for
// segment-number lookups.
func (d *Document) lookupChain() []*Document {
	if d.globalContext == nil {
		return []*Document{d}
	}
	return []*Document{d.globalContext, d}
}

// ParseSegmentData dispatches a segment to its type-specific parser.
// Region segment types (text, halftone, generic, generic refinement)
// are only legal while a page is open. Profiles (type 52) and colour
// palette (type 54) segments are rejected as unsupported.
func (d *Document) ParseSegmentData(segment *Segment) Result {
	switch segment.Flags.Type {
	case 0:
		return d.parseSymbolDict(segment)
	case 4, 6, 7:
		if !d.inPage {
			return ResultFailure
		}
		return d.parseTextRegion(segment)
	case 16:
		return d.parsePatternDict(segment)
	case 20, 22, 23:
		if !d.inPage {
			return ResultFailure
		}
		return d.parseHalftoneRegion(segment)
	case 36, 38, 39:
		if !d.inPage {
			return ResultFailure
		}
		return d.parseGenericRegion(segment)
	case 40, 42, 43:
		if !d.inPage {
			return ResultFailure
		}
		return d.parseGenericRefinementRegion(segment)
	case 48:
		return d.parsePageInfo(segment)
	case 49:
		d.inPage = false
		return ResultPageCompleted
	case 50:
		d.stream.AddOffset(segment.DataLength)
	case 51:
		return ResultEndReached
	case 52, 54:
		return d.fail(errUnsupported("segment type %d (profiles / colour palette) is not supported", segment.Flags.Type))
	case 53:
		return d.parseTable(segment)
	case 62:
		d.stream.AddOffset(segment.DataLength)
	default:
		d.stream.AddOffset(segment.DataLength)
	}
	return ResultSuccess
}

// DecodeSequential parses and decodes every segment in the stream
// (file organization per §7.2.1: header then data, one after another)
// until the stream runs out of data, the end-of-file segment is seen,
// or the current page completes.
func (d *Document) DecodeSequential() Result {
	if d.stream.GetByteLeft() <= 0 {
		return ResultEndReached
	}
	if d.Grouped {
		return d.decodeGrouped()
	}
	for d.stream.GetByteLeft() > 0 {
		if d.segment == nil {
			d.segment = NewSegment()
			ret := d.ParseSegmentHeader(d.segment)
			if ret != ResultSuccess {
				d.segment = nil
				break
			}
			d.offset = d.stream.GetOffset()
		}
		ret := d.ParseSegmentData(d.segment)
		if ret == ResultEndReached {
			d.segmentList = append(d.segmentList, d.segment)
			d.segment = nil
			return ResultEndReached
		}
		if ret == ResultPageCompleted {
			d.segmentList = append(d.segmentList, d.segment)
			d.segment = nil
			return ResultPageCompleted
		}
		if ret != ResultSuccess {
			d.segment = nil
			return ret
		}
		if d.segment.DataLength != 0xFFFFFFFF {
			newOffset := int64(d.offset) + int64(d.segment.DataLength)
			if uint32(newOffset) <= d.stream.GetLength() {
				d.stream.SetOffset(uint32(newOffset))
			} else {
				d.stream.SetOffset(d.stream.GetLength())
			}
		} else {
			d.stream.SetOffset(d.offset + d.segment.DataLength)
		}
		d.segmentList = append(d.segmentList, d.segment)
		d.segment = nil
	}
	return ResultEndReached
}

// decodeGrouped parses file organization per §7.2.1's "random access"
// layout: every segment header up front (terminated by the end-of-file
// segment, type 51), followed by every segment's data packed back to
// back in the same order. Like DecodeSequential, it pauses and returns
// ResultPageCompleted as each page finishes so a caller can pull pages
// one at a time; calling it again resumes the data pass where it left
// off.
func (d *Document) decodeGrouped() Result {
	if !d.groupedStarted {
		d.scanGroupedHeaders()
	}
	return d.runGroupedDataPass()
}

// scanGroupedHeaders reads every segment header up front, stopping at
// the first parse failure or at the end-of-file segment (type 51),
// whichever comes first, and remembers where the back-to-back data
// block starts.
func (d *Document) scanGroupedHeaders() {
	for d.stream.GetByteLeft() > 0 {
		seg := NewSegment()
		if d.ParseSegmentHeader(seg) != ResultSuccess {
			break
		}
		d.segmentList = append(d.segmentList, seg)
		if seg.Flags.Type == 51 {
			break
		}
	}
	d.groupedDataOff = d.stream.GetOffset()
	d.groupedStarted = true
}

// runGroupedDataPass walks the already-headed segment list from
// wherever groupedIdx left off, decoding each segment's data in turn.
// It returns as soon as a page completes or a segment fails, so the
// caller can resume the same pass with a later call.
func (d *Document) runGroupedDataPass() Result {
	for d.groupedIdx < len(d.segmentList) {
		seg := d.segmentList[d.groupedIdx]
		d.groupedIdx++
		if seg.DataLength == 0 && seg.Flags.Type != 49 {
			continue
		}
		d.stream.SetOffset(d.groupedDataOff)
		d.segment = seg
		d.offset = d.groupedDataOff
		ret := d.ParseSegmentData(seg)
		d.advanceGroupedDataOffset(seg)
		switch ret {
		case ResultFailure:
			return ResultFailure
		case ResultPageCompleted:
			return ResultPageCompleted
		}
	}
	return ResultEndReached
}

// advanceGroupedDataOffset moves the shared data cursor past seg's
// payload, honoring the §7.4.6.4 unknown-length convention where
// ParseSegmentData has already rewritten seg.DataLength to the
// recovered byte count.
func (d *Document) advanceGroupedDataOffset(seg *Segment) {
	if seg.DataLength != 0xFFFFFFFF {
		d.groupedDataOff += seg.DataLength
	} else {
		d.groupedDataOff = d.offset + seg.DataLength
	}
	d.stream.SetOffset(d.groupedDataOff)
}

// symbolDictFlags unpacks the symbol dictionary flags field (§7.4.3.1.1).
type symbolDictFlags struct {
	raw            uint16
	huff           bool
	refAgg         bool
	template       uint8
	rTemplate      bool
	retainContexts bool
}

func decodeSymbolDictFlags(raw uint16) symbolDictFlags {
	return symbolDictFlags{
		raw:            raw,
		huff:           raw&0x0001 != 0,
		refAgg:         (raw>>1)&0x0001 != 0,
		template:       uint8((raw >> 10) & 0x0003),
		rTemplate:      (raw>>12)&0x0003 != 0,
		retainContexts: raw&0x0100 != 0,
	}
}

// readAdaptivePixels reads n signed adaptive-pixel bytes into dst (one
// byte per coordinate, so n is twice the number of pixels), used for both the generic (SDAT/GBAT) and refinement (SDRAT/GRAT)
// template coordinates that several region and dictionary segment
// types carry.
func (d *Document) readAdaptivePixels(dst []int8, n int) bool {
	for i := 0; i < n; i++ {
		b, err := d.stream.Read1Byte()
		if err != nil {
			return false
		}
		dst[i] = int8(b)
	}
	return true
}

// gatherInputSymbols collects the bitmap pool contributed by a
// segment's referred-to symbol dictionaries, in referral order.
func (d *Document) gatherInputSymbols(segment *Segment) ([]*Bitmap, bool) {
	var symbols []*Bitmap
	for _, refNum := range segment.ReferredToSegmentNumbers {
		seg := d.FindSegmentByNumber(refNum)
		if seg == nil {
			return nil, false
		}
		if seg.Flags.Type == 0 && seg.SymbolDict != nil {
			symbols = append(symbols, seg.SymbolDict.Bitmaps...)
		}
	}
	return symbols, true
}

// referredTableSegments filters a segment's referred-to list down to
// the code-table segments among them (type 53), in referral order,
// which is the order custom Huffman table selectors (§7.4.3.1.2) pull
// from.
func (d *Document) referredTableSegments(segment *Segment) []*Segment {
	var tables []*Segment
	for _, refNum := range segment.ReferredToSegmentNumbers {
		if seg := d.FindSegmentByNumber(refNum); seg != nil && seg.Flags.Type == 53 {
			tables = append(tables, seg)
		}
	}
	return tables
}

// huffTableSelector picks one of a field's standard tables by
// selector value, or pulls the next custom table off tables when the
// selector names "custom" (a field-specific sentinel value, since the
// sentinel differs between one- and two-bit selector fields).
type huffTableSelector struct {
	tables []*Segment
	next   int
}

func (s *huffTableSelector) pick(selector, customSentinel uint16, standard ...int) (*HuffmanTable, bool) {
	if selector != customSentinel {
		return NewStandardTable(standard[selector]), true
	}
	if s.next >= len(s.tables) {
		return nil, false
	}
	t := s.tables[s.next].HuffmanTable
	s.next++
	return t, true
}

// symbolDictContextSizes reports the arithmetic context array sizes a
// non-Huffman symbol dictionary needs, per its template selections
// (§6.5.8.1, §6.3.5.3).
func symbolDictContextSizes(f symbolDictFlags) (gb, gr int) {
	if f.huff {
		return 0, 0
	}
	if f.template == 0 {
		gb = 65536
	} else {
		gb = 8192
	}
	if f.refAgg {
		if f.rTemplate {
			gr = 1024
		} else {
			gr = 8192
		}
	}
	return gb, gr
}

// inheritedContexts copies a retained arithmetic context array off
// this dictionary's first referred-to segment when SDRETAINED (or the
// analogous region flag) asks for it and the sizes still line up with
// this segment's own template selection; otherwise it reports false
// and the caller starts fresh.
func inheritedContexts(refSeg *Segment, size int, gb bool) ([]ArithCtx, bool) {
	src := refSeg.GRContexts
	if gb {
		src = refSeg.GBContexts
	}
	if len(src) != size {
		return nil, false
	}
	ctx := make([]ArithCtx, size)
	copy(ctx, src)
	return ctx, true
}

// parseSymbolDict parses a symbol dictionary segment (§7.4.3): its
// flags, adaptive template pixels, Huffman table selection (direct
// from a referred-to table segment, when custom), input symbols
// gathered from referred-to symbol dictionaries, and retained
// arithmetic context carried over from the first referred-to
// dictionary when SDHUFF = 0 and the retain-context flag is set. A
// non-Huffman dictionary whose context-retained flag (bit 9) is set
// keeps its final contexts on the segment for such a later dictionary.
func (d *Document) parseSymbolDict(segment *Segment) Result {
	rawFlags, err := d.stream.ReadShortInteger()
	if err != nil {
		return ResultFailure
	}
	f := decodeSymbolDictFlags(rawFlags)

	sdd := NewSDDProc()
	sdd.SDHUFF = f.huff
	sdd.SDREFAGG = f.refAgg
	sdd.SDTEMPLATE = f.template
	sdd.SDRTEMPLATE = f.rTemplate

	if !f.huff {
		n := 2
		if f.template == 0 {
			n = 8
		}
		if !d.readAdaptivePixels(sdd.SDAT[:], n) {
			return ResultFailure
		}
	}
	if f.refAgg && !f.rTemplate {
		if !d.readAdaptivePixels(sdd.SDRAT[:], 4) {
			return ResultFailure
		}
	}

	if sdd.SDNUMEXSYMS, err = d.stream.ReadInteger(); err != nil {
		return ResultFailure
	}
	if sdd.SDNUMNEWSYMS, err = d.stream.ReadInteger(); err != nil {
		return ResultFailure
	}

	inputSymbols, ok := d.gatherInputSymbols(segment)
	if !ok {
		return ResultFailure
	}
	sdd.SDINSYMS = inputSymbols
	sdd.SDNUMINSYMS = uint32(len(inputSymbols))

	if f.huff {
		if !d.fillSymbolDictHuffmanTables(sdd, f, segment) {
			return ResultFailure
		}
	}

	gbSize, grSize := symbolDictContextSizes(f)
	gbContexts, grContexts := d.symbolDictContexts(segment, f, gbSize, grSize)

	if f.huff {
		segment.SymbolDict, err = sdd.DecodeHuffman(d.stream, gbContexts, grContexts)
		d.stream.AlignByte()
	} else {
		arithDecoder := NewArithDecoder(d.stream)
		segment.SymbolDict, err = sdd.DecodeArith(arithDecoder, gbContexts, grContexts)
		d.stream.AlignByte()
		d.stream.AddOffset(2)
	}
	if err != nil {
		return d.fail(err)
	}
	if !f.huff && rawFlags&0x0200 != 0 {
		segment.GBContexts = gbContexts
		segment.GRContexts = grContexts
		segment.SymbolDict.SetGbContexts(gbContexts)
		segment.SymbolDict.SetGrContexts(grContexts)
	}
	segment.ResultType = JBig2SymbolDictPointer
	return ResultSuccess
}

// fillSymbolDictHuffmanTables resolves every SDHUFF* table selector
// (§7.4.3.1.2) against either a standard table or the segment's
// referred-to code tables, in order.
func (d *Document) fillSymbolDictHuffmanTables(sdd *SDDProc, f symbolDictFlags, segment *Segment) bool {
	dh := (f.raw >> 2) & 0x0003
	dw := (f.raw >> 4) & 0x0003
	if dh == 2 || dw == 2 {
		return false
	}
	sel := &huffTableSelector{tables: d.referredTableSegments(segment)}
	var ok bool
	if sdd.SDHUFFDH, ok = sel.pick(dh, 3, 4, 5); !ok {
		return false
	}
	if sdd.SDHUFFDW, ok = sel.pick(dw, 3, 2, 3); !ok {
		return false
	}
	if sdd.SDHUFFBMSIZE, ok = sel.pick((f.raw>>6)&0x0001, 1, 1); !ok {
		return false
	}
	if f.refAgg {
		if sdd.SDHUFFAGGINST, ok = sel.pick((f.raw>>7)&0x0001, 1, 1); !ok {
			return false
		}
	}
	return true
}

// symbolDictContexts builds the arithmetic context arrays a
// non-Huffman symbol dictionary decodes against, inheriting them from
// the first referred-to segment when SDRETAINED is set and the sizes
// still match.
func (d *Document) symbolDictContexts(segment *Segment, f symbolDictFlags, gbSize, grSize int) ([]ArithCtx, []ArithCtx) {
	var gbContexts, grContexts []ArithCtx
	if f.retainContexts && len(segment.ReferredToSegmentNumbers) > 0 {
		if refSeg := d.FindSegmentByNumber(segment.ReferredToSegmentNumbers[0]); refSeg != nil {
			gbContexts, _ = inheritedContexts(refSeg, gbSize, true)
			grContexts, _ = inheritedContexts(refSeg, grSize, false)
		}
	}
	if gbContexts == nil {
		gbContexts = make([]ArithCtx, gbSize)
	}
	if grContexts == nil {
		grContexts = make([]ArithCtx, grSize)
	}
	return gbContexts, grContexts
}

// ParseRegionInfo parses the 17-byte region information field common to
// every region segment (§7.4.1): width, height, X, Y, then a one-byte
// flags field holding the external combination operator. A set colour
// extension bit (COLEXTFLAG, bit 3) is rejected as unsupported.
func (d *Document) ParseRegionInfo(ri *RegionInfo) Result {
	fields := []*int32{&ri.Width, &ri.Height, &ri.X, &ri.Y}
	for _, f := range fields {
		v, err := d.stream.ReadInteger()
		if err != nil {
			return ResultFailure
		}
		*f = int32(v)
	}
	flags, err := d.stream.Read1Byte()
	if err != nil {
		return ResultFailure
	}
	ri.Flags = flags
	if flags&0x08 != 0 {
		return d.fail(errUnsupported("region colour extension (COLEXTFLAG) is not supported"))
	}
	return ResultSuccess
}

// GetHuffmanTable returns one of the 15 standard tables (B.1-B.15).
func (d *Document) GetHuffmanTable(idx int) *HuffmanTable {
	return NewStandardTable(idx)
}

// DecodeSymbolIDHuffmanTable decodes a text region's symbol ID code
// table (§7.4.3.1.7): a run-length-coded table of per-symbol prefix
// lengths, using the fixed 35-entry run-code alphabet.
func (d *Document) DecodeSymbolIDHuffmanTable(SBNUMSYMS uint32) []HuffmanCode {
	const kRunCodesSize = 35
	huffmanCodes := make([]HuffmanCode, kRunCodesSize)
	for i := 0; i < kRunCodesSize; i++ {
		val, err := d.stream.ReadNBits(4)
		if err != nil {
			return nil
		}
		huffmanCodes[i].Codelen = int32(val)
	}
	if err := HuffmanAssignCode(huffmanCodes); err != nil {
		return nil
	}
	SBSYMCODES := make([]HuffmanCode, SBNUMSYMS)
	i := int32(0)
	loopSyms := 0
	for i < int32(SBNUMSYMS) {
		loopSyms++
		if loopSyms > int(SBNUMSYMS)*10 {
			return nil
		}
		var j int
		var nSafeVal int32
		nBits := 0
		loopInner := 0
		for {
			loopInner++
			if loopInner > 1000 {
				return nil
			}
			bit, err := d.stream.Read1Bit()
			if err != nil {
				return nil
			}
			nSafeVal = (nSafeVal << 1) | int32(bit)
			nBits++
			for j = 0; j < kRunCodesSize; j++ {
				if int32(nBits) == huffmanCodes[j].Codelen && nSafeVal == huffmanCodes[j].Code {
					break
				}
			}
			if j < kRunCodesSize {
				break
			}
		}
		runcode := int32(j)
		var run int32
		switch {
		case runcode < 32:
			SBSYMCODES[i].Codelen = runcode
			run = 0
		case runcode == 32:
			val, err := d.stream.ReadNBits(2)
			if err != nil {
				return nil
			}
			run = int32(val) + 3
		case runcode == 33:
			val, err := d.stream.ReadNBits(3)
			if err != nil {
				return nil
			}
			run = int32(val) + 3
		case runcode == 34:
			val, err := d.stream.ReadNBits(7)
			if err != nil {
				return nil
			}
			run = int32(val) + 11
		}
		if run > 0 {
			if i+run > int32(SBNUMSYMS) {
				return nil
			}
			for k := int32(0); k < run; k++ {
				if runcode == 32 && i > 0 {
					SBSYMCODES[i+k].Codelen = SBSYMCODES[i-1].Codelen
				} else {
					SBSYMCODES[i+k].Codelen = 0
				}
			}
			i += run
		} else {
			i++
		}
	}
	if err := HuffmanAssignCode(SBSYMCODES); err != nil {
		return nil
	}
	return SBSYMCODES
}

// readTextRegionFlags unpacks the text region flags field (§7.4.3.1.1)
// into pTRD, leaving the Huffman flags word (read separately, only
// when SBHUFF is set) and the refinement AT pixels to the caller.
func readTextRegionFlags(pTRD *TRDProc, flags uint16) {
	pTRD.SBHUFF = flags&0x0001 != 0
	pTRD.SBREFINE = (flags>>1)&0x0001 != 0
	pTRD.SBSTRIPS = 1 << ((flags >> 2) & 0x0003)
	pTRD.REFCORNER = JBig2Corner((flags >> 4) & 0x0003)
	pTRD.TRANSPOSED = (flags>>6)&0x0001 != 0
	pTRD.SBCOMBOP = ComposeOp((flags >> 7) & 0x0003)
	pTRD.SBDEFPIXEL = (flags>>9)&0x0001 != 0
	offset := int8((flags >> 10) & 0x001F)
	if offset >= 0x10 {
		offset -= 0x20
	}
	pTRD.SBDSOFFSET = offset
	pTRD.SBRTEMPLATE = (flags>>15)&0x0001 != 0
}

// symbolCodeLength returns the minimum bit width that can index
// numSyms distinct symbols (§7.4.3.1.7, used when SBHUFF is unset and
// symbol codes are fixed-width rather than Huffman-coded).
func symbolCodeLength(numSyms uint32) uint8 {
	var n uint8
	for uint32(1)<<n < numSyms {
		n++
	}
	return n
}

// textRegionHuffmanFields names each of the text region's eight
// Huffman table selector fields (§7.4.3.1.2), in bit-offset order,
// with the standard tables each offers and the raw value that means
// "use a referred-to custom table instead".
var textRegionHuffmanFields = []struct {
	shift, mask, customSentinel uint16
	standard                   []int
}{
	{0, 0x0003, 3, []int{6, 7}},
	{2, 0x0003, 3, []int{8, 9, 10}},
	{4, 0x0003, 3, []int{11, 12, 13}},
	{6, 0x0003, 3, []int{14, 15}},
	{8, 0x0003, 3, []int{14, 15}},
	{10, 0x0003, 3, []int{14, 15}},
	{12, 0x0003, 3, []int{14, 15}},
	{14, 0x0001, 1, []int{1}},
}

// textRegionReservedSelectorShifts are the bit offsets of the 2-bit
// selector fields that only have two standard tables (§7.4.3.1.2): the
// value 2 names no table at all and is rejected outright, unlike
// SBHUFFDS/SBHUFFDT which use all three selector values below the
// custom sentinel.
var textRegionReservedSelectorShifts = []uint16{0, 6, 8, 10, 12}

// fillTextRegionHuffmanTables resolves the eight SBHUFF* table
// selectors against either a standard table or the segment's
// referred-to code tables, in field order.
func (d *Document) fillTextRegionHuffmanTables(pTRD *TRDProc, flags uint16, segment *Segment) bool {
	for _, shift := range textRegionReservedSelectorShifts {
		if (flags>>shift)&0x0003 == 2 {
			return false
		}
	}
	sel := &huffTableSelector{tables: d.referredTableSegments(segment)}
	tables := make([]*HuffmanTable, len(textRegionHuffmanFields))
	for i, f := range textRegionHuffmanFields {
		v := (flags >> f.shift) & f.mask
		t, ok := sel.pick(v, f.customSentinel, f.standard...)
		if !ok {
			return false
		}
		tables[i] = t
	}
	pTRD.SBHUFFFS = tables[0]
	pTRD.SBHUFFDS = tables[1]
	pTRD.SBHUFFDT = tables[2]
	pTRD.SBHUFFRDW = tables[3]
	pTRD.SBHUFFRDH = tables[4]
	pTRD.SBHUFFRDX = tables[5]
	pTRD.SBHUFFRDY = tables[6]
	pTRD.SBHUFFRSIZE = tables[7]
	return true
}

// parseTextRegion parses a text region segment (§7.4.3), gathers its
// symbol pool from referred-to symbol dictionaries, decodes it, and
// (for immediate variants) composites it onto the page.
func (d *Document) parseTextRegion(segment *Segment) Result {
	var ri RegionInfo
	if d.ParseRegionInfo(&ri) != ResultSuccess {
		return ResultFailure
	}
	flags, err := d.stream.ReadShortInteger()
	if err != nil {
		return ResultFailure
	}

	pTRD := NewTRDProc()
	pTRD.SBW = uint32(ri.Width)
	pTRD.SBH = uint32(ri.Height)
	readTextRegionFlags(pTRD, flags)

	var huffFlags uint16
	if pTRD.SBHUFF {
		if huffFlags, err = d.stream.ReadShortInteger(); err != nil {
			return ResultFailure
		}
	}
	if pTRD.SBREFINE && !pTRD.SBRTEMPLATE {
		if !d.readAdaptivePixels(pTRD.SBRAT[:], 4) {
			return ResultFailure
		}
	}
	if pTRD.SBNUMINSTANCES, err = d.stream.ReadInteger(); err != nil {
		return ResultFailure
	}

	symbols, ok := d.gatherInputSymbols(segment)
	if !ok {
		return ResultFailure
	}
	pTRD.SBSYMS = symbols
	pTRD.SBNUMSYMS = uint32(len(symbols))

	if pTRD.SBHUFF {
		codes := d.DecodeSymbolIDHuffmanTable(pTRD.SBNUMSYMS)
		if codes == nil {
			return ResultFailure
		}
		d.stream.AlignByte()
		pTRD.SBSYMCODES = codes
		if !d.fillTextRegionHuffmanTables(pTRD, huffFlags, segment) {
			return ResultFailure
		}
	} else {
		pTRD.SBSYMCODELEN = symbolCodeLength(pTRD.SBNUMSYMS)
	}

	grContexts := make([]ArithCtx, 0)
	if pTRD.SBREFINE {
		size := 8192
		if pTRD.SBRTEMPLATE {
			size = 1024
		}
		grContexts = make([]ArithCtx, size)
	}

	segment.ResultType = JBig2BitmapPointer
	var bm *Bitmap
	if pTRD.SBHUFF {
		bm, err = pTRD.DecodeHuffman(d.stream, grContexts)
		if err == nil {
			d.stream.AlignByte()
		}
	} else {
		arithDecoder := NewArithDecoder(d.stream)
		bm, err = pTRD.DecodeArith(arithDecoder, grContexts, nil)
		if err == nil {
			d.stream.AlignByte()
			d.stream.AddOffset(2)
		}
	}
	if err != nil || bm == nil {
		return ResultFailure
	}
	segment.Bitmap = bm
	if segment.Flags.Type != 4 {
		d.composeRegionOntoPage(&ri, segment.Bitmap, 0, 0)
		segment.Bitmap = nil
	}
	return ResultSuccess
}

// parsePatternDict parses a pattern dictionary segment (§7.4.4).
func (d *Document) parsePatternDict(segment *Segment) Result {
	var flags byte
	pPDD := NewPDDProc()
	if val, err := d.stream.Read1Byte(); err != nil {
		return ResultFailure
	} else {
		flags = val
	}
	if val, err := d.stream.Read1Byte(); err != nil {
		return ResultFailure
	} else {
		pPDD.HDPW = val
	}
	if val, err := d.stream.Read1Byte(); err != nil {
		return ResultFailure
	} else {
		pPDD.HDPH = val
	}
	if val, err := d.stream.ReadInteger(); err != nil {
		return ResultFailure
	} else {
		pPDD.GRAYMAX = val
	}
	if pPDD.GRAYMAX > JBig2MaxPatternIndex {
		return ResultFailure
	}
	pPDD.HDMMR = (flags & 0x01) != 0
	pPDD.HDTEMPLATE = (flags >> 1) & 0x03
	segment.ResultType = JBig2PatternDictPointer
	var err error
	if pPDD.HDMMR {
		segment.PatternDict, err = pPDD.DecodeMMR(d.stream)
		if err != nil {
			return ResultFailure
		}
		d.stream.AlignByte()
	} else {
		size := 1024
		if pPDD.HDTEMPLATE == 0 {
			size = 65536
		} else if pPDD.HDTEMPLATE == 1 {
			size = 8192
		}
		gbContexts := make([]ArithCtx, size)
		arithDecoder := NewArithDecoder(d.stream)
		segment.PatternDict, err = pPDD.DecodeArith(arithDecoder, gbContexts)
		if err != nil {
			return ResultFailure
		}
		d.stream.AlignByte()
		d.stream.AddOffset(2)
	}
	return ResultSuccess
}

// parseHalftoneRegion parses a halftone region segment (§7.4.5),
// resolving its referred-to pattern dictionary.
func (d *Document) parseHalftoneRegion(segment *Segment) Result {
	var ri RegionInfo
	var flags byte
	pHRD := NewHTRDProc()
	if d.ParseRegionInfo(&ri) != ResultSuccess {
		return ResultFailure
	}
	if val, err := d.stream.Read1Byte(); err != nil {
		return ResultFailure
	} else {
		flags = val
	}
	if val, err := d.stream.ReadInteger(); err != nil {
		return ResultFailure
	} else {
		pHRD.HGW = val
	}
	if val, err := d.stream.ReadInteger(); err != nil {
		return ResultFailure
	} else {
		pHRD.HGH = val
	}
	if val, err := d.stream.ReadInteger(); err != nil {
		return ResultFailure
	} else {
		pHRD.HGX = int32(val)
	}
	if val, err := d.stream.ReadInteger(); err != nil {
		return ResultFailure
	} else {
		pHRD.HGY = int32(val)
	}
	if val, err := d.stream.ReadShortInteger(); err != nil {
		return ResultFailure
	} else {
		pHRD.HRX = uint16(val)
	}
	if val, err := d.stream.ReadShortInteger(); err != nil {
		return ResultFailure
	} else {
		pHRD.HRY = uint16(val)
	}
	pHRD.HBW = uint32(ri.Width)
	pHRD.HBH = uint32(ri.Height)
	pHRD.HMMR = (flags & 0x01) != 0
	pHRD.HTEMPLATE = (flags >> 1) & 0x03
	pHRD.HENABLESKIP = ((flags >> 3) & 0x01) != 0
	pHRD.HCOMBOP = ComposeOp((flags >> 4) & 0x07)
	pHRD.HDEFPIXEL = ((flags >> 7) & 0x01) != 0
	if segment.ReferredToSegmentCount != 1 {
		return ResultFailure
	}
	seg := d.FindSegmentByNumber(segment.ReferredToSegmentNumbers[0])
	if seg == nil || seg.Flags.Type != 16 || seg.PatternDict == nil {
		return ResultFailure
	}
	pPatternDict := seg.PatternDict
	if pPatternDict.NUMPATS == 0 {
		return ResultFailure
	}
	pHRD.HNUMPATS = pPatternDict.NUMPATS
	pHRD.HPATS = pPatternDict.HDPATS
	pHRD.HPW = uint8(pPatternDict.HDPATS[0].Width())
	pHRD.HPH = uint8(pPatternDict.HDPATS[0].Height())
	segment.ResultType = JBig2BitmapPointer
	var err error
	if pHRD.HMMR {
		d.stream.AlignByte()
		segment.Bitmap, err = pHRD.DecodeMMR(d.stream)
		if err != nil {
			return d.fail(err)
		}
		d.stream.AlignByte()
	} else {
		size := GetHuffContextSize(pHRD.HTEMPLATE)
		gbContexts := make([]ArithCtx, size)
		arithDecoder := NewArithDecoder(d.stream)
		segment.Bitmap, err = pHRD.DecodeArith(arithDecoder, gbContexts)
		if err != nil {
			return ResultFailure
		}
		d.stream.AlignByte()
		d.stream.AddOffset(2)
	}
	if segment.Flags.Type != 20 {
		d.composeRegionOntoPage(&ri, segment.Bitmap, 0, 0)
		segment.Bitmap = nil
	}
	return ResultSuccess
}

// GetHuffContextSize returns the arithmetic context array size for a
// generic-region template.
func GetHuffContextSize(template byte) int {
	if template == 0 {
		return 65536
	} else if template == 1 {
		return 8192
	}
	return 1024
}

// recoverUnknownLengthHeight handles a generic region whose segment
// data length or declared height is the §7.4.6.4 "unknown length"
// sentinel (0xFFFFFFFF): only the three generic-region segment types
// (segmentTypeGenericRegion) may use it, and
// its real row count and data length come from scanning forward for
// the §9.2 row-count trailer rather than from the header itself.
func (d *Document) recoverUnknownLengthHeight(segment *Segment, ri *RegionInfo, mmr bool) bool {
	if !segmentTypeGenericRegion(segment.Flags.Type) {
		return false
	}
	raw := d.stream.DataFrom(segment.DataOffset)
	end, err := findUnknownLengthDataEnd(raw, mmr)
	if err != nil {
		return false
	}
	ri.Height = int32(uint32(raw[end-4])<<24 | uint32(raw[end-3])<<16 | uint32(raw[end-2])<<8 | uint32(raw[end-1]))
	segment.DataLength = end
	return true
}

// parseGenericRegion parses a generic region segment (§7.4.6). When
// the segment's data length or the region's declared height is
// 0xFFFFFFFF (unknown, §7.4.6.4), the
// true data length and row count are recovered via the §9.2
// terminator scan before the region is decoded.
func (d *Document) parseGenericRegion(segment *Segment) Result {
	var ri RegionInfo
	if d.ParseRegionInfo(&ri) != ResultSuccess {
		return ResultFailure
	}
	flags, err := d.stream.Read1Byte()
	if err != nil {
		return ResultFailure
	}
	if flags&0x10 != 0 {
		return d.fail(errUnsupported("generic region EXTTEMPLATE is not supported"))
	}

	pGRD := NewGRDProc()
	pGRD.GBW = uint32(ri.Width)
	pGRD.MMR = flags&0x01 != 0
	pGRD.GBTEMPLATE = (flags >> 1) & 0x03
	pGRD.TPGDON = (flags>>3)&0x01 != 0

	if segment.DataLength == 0xFFFFFFFF || uint32(ri.Height) == 0xFFFFFFFF {
		if !d.recoverUnknownLengthHeight(segment, &ri, pGRD.MMR) {
			return ResultFailure
		}
	}
	pGRD.GBH = uint32(ri.Height)

	if !pGRD.MMR {
		atPairs := 2
		if pGRD.GBTEMPLATE == 0 {
			atPairs = 8
		}
		if !d.readAdaptivePixels(pGRD.GBAT[:], atPairs) {
			return ResultFailure
		}
	}
	pGRD.USESKIP = false
	segment.ResultType = JBig2BitmapPointer
	if pGRD.MMR {
		res := pGRD.StartDecodeMMR(&segment.Bitmap, d.stream)
		if res != JBig2SegmentParseComplete {
			return ResultFailure
		}
		d.stream.AlignByte()
	} else {
		size := GetHuffContextSize(pGRD.GBTEMPLATE)
		gbContexts := make([]ArithCtx, size)
		arithDecoder := NewArithDecoder(d.stream)
		var err error
		segment.Bitmap, err = pGRD.DecodeArith(arithDecoder, gbContexts)
		if err != nil {
			return ResultFailure
		}
		d.stream.AlignByte()
		d.stream.AddOffset(2)
	}
	if segment.Flags.Type != 36 {
		rect := pGRD.GetReplaceRect()
		d.composeRegionOntoPage(&ri, segment.Bitmap, rect.Left, rect.Top)
		segment.Bitmap = nil
	}
	return ResultSuccess
}

// parseGenericRefinementRegion parses a generic refinement region
// segment (§7.4.7). Its reference bitmap is either an earlier region
// segment it refers to, or (absent any reference) the page area it
// overlaps.
func (d *Document) parseGenericRefinementRegion(segment *Segment) Result {
	var ri RegionInfo
	var flags byte
	if d.ParseRegionInfo(&ri) != ResultSuccess {
		return ResultFailure
	}
	if val, err := d.stream.Read1Byte(); err != nil {
		return ResultFailure
	} else {
		flags = val
	}
	pGRRD := NewGRRDProc()
	pGRRD.GRW = uint32(ri.Width)
	pGRRD.GRH = uint32(ri.Height)
	pGRRD.GRTEMPLATE = flags&0x01 != 0
	pGRRD.TPGRON = (flags>>1)&0x01 != 0
	if !pGRRD.GRTEMPLATE {
		if !d.readAdaptivePixels(pGRRD.GRAT[:], 4) {
			return ResultFailure
		}
	}
	if segment.ReferredToSegmentCount > 0 {
		var pSeg *Segment
		for _, refNum := range segment.ReferredToSegmentNumbers {
			pSeg = d.FindSegmentByNumber(refNum)
			if pSeg == nil {
				return ResultFailure
			}
			if pSeg.Flags.Type == 4 || pSeg.Flags.Type == 20 || pSeg.Flags.Type == 36 || pSeg.Flags.Type == 40 {
				break
			}
		}
		if pSeg != nil && pSeg.Bitmap != nil {
			pGRRD.GRREFERENCE = pSeg.Bitmap
		} else {
			return ResultFailure
		}
	} else {
		pGRRD.GRREFERENCE = d.page.SubBitmap(ri.X, ri.Y, ri.Width, ri.Height)
	}
	pGRRD.GRREFERENCEDX = 0
	pGRRD.GRREFERENCEDY = 0
	size := 8192
	if pGRRD.GRTEMPLATE {
		size = 1024
	}
	grContexts := make([]ArithCtx, size)
	arithDecoder := NewArithDecoder(d.stream)
	segment.ResultType = JBig2BitmapPointer
	var err error
	segment.Bitmap, err = pGRRD.Decode(arithDecoder, grContexts)
	if err != nil {
		return d.fail(err)
	}
	d.stream.AlignByte()
	d.stream.AddOffset(2)
	if segment.Flags.Type != 40 {
		d.composeRegionOntoPage(&ri, segment.Bitmap, 0, 0)
	}
	return ResultSuccess
}

// parseTable parses a custom Huffman code table segment (§7.4.9,
// Annex B.2).
func (d *Document) parseTable(segment *Segment) Result {
	segment.ResultType = JBig2HuffmanTablePointer
	huff := NewTableFromStream(d.stream)
	if !huff.IsOK() {
		return ResultFailure
	}
	segment.HuffmanTable = huff
	d.stream.AlignByte()
	return ResultSuccess
}

// releaseSegmentPayload drops a segment's decoded payload (bitmap,
// dictionary, or table) while leaving its header fields — Number,
// ReferredToSegmentNumbers, Flags — intact for later lookups.
func releaseSegmentPayload(seg *Segment) {
	seg.Bitmap = nil
	seg.PatternDict = nil
	seg.SymbolDict = nil
	seg.HuffmanTable = nil
}

// ReleasePageSegments drops a finished page's decoded bitmaps,
// dictionaries, and tables, and removes that page's segments from the
// segment list; segments of other pages (including file-scoped page 0
// segments, unless pageNumber is 0) stay in the list.
func (d *Document) ReleasePageSegments(pageNumber uint32) {
	kept := d.segmentList[:0]
	for _, seg := range d.segmentList {
		if seg.PageAssociation == pageNumber {
			releaseSegmentPayload(seg)
			continue
		}
		kept = append(kept, seg)
	}
	for i := len(kept); i < len(d.segmentList); i++ {
		d.segmentList[i] = nil
	}
	d.segmentList = kept
}
