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

// composeData is the placement of one decoded symbol instance relative
// to a text region bitmap, derived from its strip coordinates (S, T)
// and reference corner.
type composeData struct {
	x, y      int32
	increment int32
}

// JBig2Corner selects which corner of a symbol instance's bounding box
// its (S, T) coordinate names (T.88 §6.4.5, REFCORNER field).
type JBig2Corner int

const (
	JBig2CornerBottomLeft  JBig2Corner = 0
	JBig2CornerTopLeft     JBig2Corner = 1
	JBig2CornerBottomRight JBig2Corner = 2
	JBig2CornerTopRight    JBig2Corner = 3
)

// TRDProc is the text region decoding procedure (T.88 §6.4): it places
// a sequence of symbol instances, each referencing a symbol bitmap (and
// optionally refining it), onto a region bitmap strip by strip.
type TRDProc struct {
	SBHUFF         bool
	SBREFINE       bool
	SBRTEMPLATE    bool
	TRANSPOSED     bool
	SBDEFPIXEL     bool
	SBDSOFFSET     int8
	SBSYMCODELEN   uint8
	SBW            uint32
	SBH            uint32
	SBNUMINSTANCES uint32
	SBSTRIPS       uint32
	SBNUMSYMS      uint32
	SBSYMCODES     []HuffmanCode
	SBSYMS         []*Bitmap
	SBCOMBOP       ComposeOp
	REFCORNER      JBig2Corner
	SBHUFFFS       *HuffmanTable
	SBHUFFDS       *HuffmanTable
	SBHUFFDT       *HuffmanTable
	SBHUFFRDW      *HuffmanTable
	SBHUFFRDH      *HuffmanTable
	SBHUFFRDX      *HuffmanTable
	SBHUFFRDY      *HuffmanTable
	SBHUFFRSIZE    *HuffmanTable
	SBRAT          [4]int8
}

// IntDecoderState is the set of IAx/IAID integer decoders a text
// region's arithmetic decode runs with. DecodeArith takes one from its
// caller so the decoders' adaptive contexts can be shared; the text
// region segment parser passes nil, so each region gets a fresh set.
type IntDecoderState struct {
	IADT, IAFS, IADS, IAIT, IARI *ArithIntDecoder
	IARDW, IARDH, IARDX, IARDY   *ArithIntDecoder
	IAID                         *ArithIaidDecoder
}

func NewTRDProc() *TRDProc {
	return &TRDProc{
		SBSTRIPS: 1,
	}
}

// decodeRequired wraps DecodeAValue for the STRIPT fields, which never
// legally produce OOB: any non-zero result is a stream error.
func (h *HuffmanDecoder) decodeRequired(table *HuffmanTable, what string) (int32, error) {
	var v int32
	if res := h.DecodeAValue(table, &v); res != 0 {
		return 0, errDecoderInternal("failed to decode text region %s", what)
	}
	return v, nil
}

// getComposeData converts a symbol instance's strip coordinate (SI, TI)
// and the symbol's dimensions into the (x, y) page position to
// composite it at, following REFCORNER and TRANSPOSED (T.88 §6.4.5
// step 3(c)(x)). The increment is the CURS advance after placement:
// W-1 for the left corners (H-1 for the top corners when transposed)
// and 0 for the others, which placeInstance advances before placing.
func (t *TRDProc) getComposeData(SI, TI int32, WI, HI uint32) composeData {
	var result composeData
	if !t.TRANSPOSED {
		result.x = SI
		result.y = TI
		switch t.REFCORNER {
		case JBig2CornerBottomLeft:
			result.y = TI - int32(HI) + 1
			result.increment = int32(WI) - 1
		case JBig2CornerBottomRight:
			result.x = SI - int32(WI) + 1
			result.y = TI - int32(HI) + 1
		case JBig2CornerTopLeft:
			result.x = SI
			result.y = TI
			result.increment = int32(WI) - 1
		case JBig2CornerTopRight:
			result.x = SI - int32(WI) + 1
		}
	} else {
		result.x = TI
		result.y = SI
		switch t.REFCORNER {
		case JBig2CornerBottomLeft:
			result.x = TI - int32(HI) + 1
		case JBig2CornerBottomRight:
			result.x = TI - int32(HI) + 1
			result.y = SI - int32(WI) + 1
		case JBig2CornerTopLeft:
			result.x = TI
			result.y = SI
			result.increment = int32(HI) - 1
		case JBig2CornerTopRight:
			result.y = SI - int32(WI) + 1
			result.increment = int32(HI) - 1
		}
	}
	return result
}

// checkTRDDimension applies a signed refinement delta to a symbol
// dimension, rejecting results outside uint32's range.
func checkTRDDimension(dimension uint32, delta int32) (uint32, bool) {
	res := int64(dimension) + int64(delta)
	if res < 0 || res > 0xFFFFFFFF {
		return 0, false
	}
	return uint32(res), true
}

// checkTRDReferenceDimension computes a refined symbol's reference
// offset (RDX/RDY, T.88 §6.4.11), rejecting results outside int32's
// range.
func checkTRDReferenceDimension(dimension int32, shift uint32, offset int32) (int32, bool) {
	res := int64(offset) + (int64(dimension) >> shift)
	if res < -2147483648 || res > 2147483647 {
		return 0, false
	}
	return int32(res), true
}

// refinementGeometry is the set of already-decoded refinement deltas
// (RDW/RDH/RDX/RDY, T.88 §6.4.11) common to both the Huffman and
// arithmetic symbol-instance refinement paths, independent of how they
// were read off the wire.
type refinementGeometry struct {
	rdw, rdh, rdx, rdy int32
	dxyShift           uint32
}

// buildRefinedSymbol applies a refinement geometry to a reference
// symbol bitmap and assembles the generic refinement region procedure
// that decodes it (T.88 §6.4.11, §6.3). The caller supplies the
// arithmetic sub-decoder and shared contexts and runs grrd.Decode
// itself, since the Huffman path opens a fresh sub-decoder per
// instance while the arithmetic path reuses the outer one.
func (t *TRDProc) buildRefinedSymbol(ref *Bitmap, g refinementGeometry) (*GRRDProc, bool) {
	if ref == nil {
		return nil, false
	}
	w, okW := checkTRDDimension(uint32(ref.width), g.rdw)
	h, okH := checkTRDDimension(uint32(ref.height), g.rdh)
	if !okW || !okH {
		return nil, false
	}
	dx, okDX := checkTRDReferenceDimension(g.rdw, g.dxyShift, g.rdx)
	dy, okDY := checkTRDReferenceDimension(g.rdh, g.dxyShift, g.rdy)
	if !okDX || !okDY {
		return nil, false
	}
	grrd := NewGRRDProc()
	grrd.GRW = w
	grrd.GRH = h
	grrd.GRTEMPLATE = t.SBRTEMPLATE
	grrd.GRREFERENCE = ref
	grrd.GRREFERENCEDX = dx
	grrd.GRREFERENCEDY = dy
	grrd.TPGRON = false
	grrd.GRAT = t.SBRAT
	return grrd, true
}

// ensureIntDecoders fills in any nil IAx/IAID decoders in ids with
// fresh ones, so a caller that passes an empty or partial set still
// gets a complete one.
func (t *TRDProc) ensureIntDecoders(ids *IntDecoderState) {
	fields := []**ArithIntDecoder{
		&ids.IADT, &ids.IAFS, &ids.IADS, &ids.IAIT, &ids.IARI,
		&ids.IARDW, &ids.IARDH, &ids.IARDX, &ids.IARDY,
	}
	for _, f := range fields {
		if *f == nil {
			*f = NewArithIntDecoder()
		}
	}
	if ids.IAID == nil {
		ids.IAID = NewArithIaidDecoder(t.SBSYMCODELEN)
	}
}

// placeInstance composites a decoded symbol instance bitmap onto sbReg
// at its strip-relative position and advances CURS (T.88 §6.4.5 step
// 3(c)(x)-(xi)), common to both the Huffman and arithmetic decode
// loops once a symbol bitmap (possibly refined) is in hand.
func (t *TRDProc) placeInstance(sbReg *Bitmap, ibi *Bitmap, curS *int64, ti int32) {
	if ibi == nil {
		return
	}
	wi := uint32(ibi.width)
	hi := uint32(ibi.height)
	if !t.TRANSPOSED && (t.REFCORNER == JBig2CornerTopRight || t.REFCORNER == JBig2CornerBottomRight) {
		*curS += int64(wi) - 1
	} else if t.TRANSPOSED && (t.REFCORNER == JBig2CornerBottomLeft || t.REFCORNER == JBig2CornerBottomRight) {
		*curS += int64(hi) - 1
	}
	compose := t.getComposeData(int32(*curS), ti, wi, hi)
	ibi.ComposeTo(sbReg, compose.x, compose.y, t.SBCOMBOP)
	*curS += int64(compose.increment)
}

// DecodeHuffman decodes a text region whose symbol instances are
// Huffman coded (SBHUFF = 1). Symbol IDs are read via the prefix-code
// table SBSYMCODES built by the caller from the symbol dictionaries'
// export order; refined instances are generic-refinement-decoded
// through an arithmetic sub-decoder instantiated over the same stream.
func (t *TRDProc) DecodeHuffman(stream *BitStream, grContexts []ArithCtx) (*Bitmap, error) {
	sbReg := NewBitmap(int32(t.SBW), int32(t.SBH))
	if sbReg == nil {
		return nil, errDecoderInternal("failed to allocate text region bitmap")
	}
	sbReg.Fill(t.SBDEFPIXEL)
	decoder := NewHuffmanDecoder(stream)

	stript, err := decoder.decodeRequired(t.SBHUFFDT, "initial STRIPT")
	if err != nil {
		return nil, err
	}
	STRIPT := -int64(stript) * int64(t.SBSTRIPS)
	FIRSTS := int64(0)
	var NINSTANCES uint32
	for NINSTANCES < t.SBNUMINSTANCES {
		dt, err := decoder.decodeRequired(t.SBHUFFDT, "strip DT")
		if err != nil {
			return nil, err
		}
		STRIPT += int64(dt) * int64(t.SBSTRIPS)
		CURS, atStripEnd := int64(0), false
		first := true
		for !atStripEnd {
			CURS, atStripEnd, err = t.advanceHuffmanCursor(decoder, &FIRSTS, CURS, first)
			if err != nil {
				return nil, err
			}
			first = false
			if atStripEnd {
				break
			}
			TI, err := t.decodeHuffmanStripT(stream, STRIPT)
			if err != nil {
				return nil, err
			}
			IBI, err := t.decodeHuffmanInstance(stream, decoder, grContexts)
			if err != nil {
				return nil, err
			}
			t.placeInstance(sbReg, IBI, &CURS, TI)
			if IBI != nil {
				NINSTANCES++
			}
		}
	}
	return sbReg, nil
}

// advanceHuffmanCursor reads one DFS (on the strip's first instance)
// or IDS (otherwise) value and folds it into CURS, reporting whether
// the OOB marker ended the strip (T.88 §6.4.5 step 3(c)(ii)-(iv)).
func (t *TRDProc) advanceHuffmanCursor(decoder *HuffmanDecoder, firstS *int64, curS int64, first bool) (int64, bool, error) {
	if first {
		var dfs int32
		if res := decoder.DecodeAValue(t.SBHUFFFS, &dfs); res != 0 {
			return 0, false, errDecoderInternal("failed to decode text region DFS")
		}
		*firstS += int64(dfs)
		return *firstS, false, nil
	}
	var ids int32
	res := decoder.DecodeAValue(t.SBHUFFDS, &ids)
	if res == JBig2OOB {
		return curS, true, nil
	}
	if res != 0 {
		return 0, false, errDecoderInternal("failed to decode text region IDS")
	}
	dso := int32(t.SBDSOFFSET)
	if dso >= 16 {
		dso -= 32
	}
	return curS + int64(ids) + int64(dso), false, nil
}

// decodeHuffmanStripT reads an instance's within-strip T coordinate
// (CURT), a fixed-width field present only when a strip spans more
// than one row, and folds it into the strip's base T.
func (t *TRDProc) decodeHuffmanStripT(stream *BitStream, stript int64) (int32, error) {
	var CURT int32
	if t.SBSTRIPS != 1 {
		nTmp := uint32(1)
		for uint32(1<<nTmp) < t.SBSTRIPS {
			nTmp++
		}
		val, err := stream.ReadNBits(nTmp)
		if err != nil {
			return 0, err
		}
		CURT = int32(val)
	}
	return int32(stript + int64(CURT)), nil
}

// decodeHuffmanInstance decodes one symbol instance: its symbol ID via
// the prefix-code table built from the export order, an optional
// refinement flag, and — when refined — the refinement geometry and
// generic refinement region decode (T.88 §6.4.5 step 3(c)(vi)-(ix)).
func (t *TRDProc) decodeHuffmanInstance(stream *BitStream, decoder *HuffmanDecoder, grContexts []ArithCtx) (*Bitmap, error) {
	IDI, err := t.scanSymbolPrefixCode(stream)
	if err != nil {
		return nil, err
	}
	var refine uint32
	if t.SBREFINE {
		val, err := stream.Read1Bit()
		if err != nil {
			return nil, err
		}
		refine = val
	}
	if refine == 0 {
		if IDI >= uint32(len(t.SBSYMS)) {
			return nil, errOutOfRange("text region symbol ID out of bounds")
		}
		return t.SBSYMS[IDI], nil
	}
	var rdwi, rdhi, rdxi, rdyi, rsize int32
	if decoder.DecodeAValue(t.SBHUFFRDW, &rdwi) != 0 ||
		decoder.DecodeAValue(t.SBHUFFRDH, &rdhi) != 0 ||
		decoder.DecodeAValue(t.SBHUFFRDX, &rdxi) != 0 ||
		decoder.DecodeAValue(t.SBHUFFRDY, &rdyi) != 0 ||
		decoder.DecodeAValue(t.SBHUFFRSIZE, &rsize) != 0 {
		return nil, errDecoderInternal("failed to decode text region refinement values")
	}
	stream.AlignByte()
	if IDI >= uint32(len(t.SBSYMS)) {
		return nil, errOutOfRange("text region symbol ID out of bounds")
	}
	ref := t.SBSYMS[IDI]
	if ref == nil {
		return nil, errInconsistentState("text region refinement references a nil symbol")
	}
	grrd, ok := t.buildRefinedSymbol(ref, refinementGeometry{rdw: rdwi, rdh: rdhi, rdx: rdxi, rdy: rdyi, dxyShift: 2})
	if !ok {
		return nil, errOutOfRange("text region refined symbol geometry out of range")
	}
	ibi, err := grrd.Decode(NewArithDecoder(stream), grContexts)
	if err != nil {
		return nil, err
	}
	stream.AlignByte()
	stream.AddOffset(2)
	return ibi, nil
}

// scanSymbolPrefixCode reads bits one at a time until they match a
// complete code in SBSYMCODES, the custom prefix-code table assigning
// each exported symbol an ID (T.88 §7.4.3.1.7, Annex B.3).
func (t *TRDProc) scanSymbolPrefixCode(stream *BitStream) (uint32, error) {
	var val int32
	var nBits int
	for {
		bit, err := stream.Read1Bit()
		if err != nil {
			return 0, err
		}
		val = (val << 1) | int32(bit)
		nBits++
		for id := uint32(0); id < t.SBNUMSYMS; id++ {
			if int32(nBits) == t.SBSYMCODES[id].Codelen && val == int32(t.SBSYMCODES[id].Code) {
				return id, nil
			}
		}
	}
}

// DecodeArith decodes a text region whose symbol instances are
// arithmetically coded (SBHUFF = 0). ids, when non-nil, supplies the
// IAx/IAID decoders to use instead of fresh ones, so a caller can share
// their adaptive context state; parseTextRegion passes nil.
func (t *TRDProc) DecodeArith(arithDecoder *ArithDecoder, grContexts []ArithCtx, ids *IntDecoderState) (*Bitmap, error) {
	if ids == nil {
		ids = &IntDecoderState{}
	}
	t.ensureIntDecoders(ids)

	sbReg := NewBitmap(int32(t.SBW), int32(t.SBH))
	if sbReg == nil {
		return nil, errDecoderInternal("failed to allocate text region bitmap")
	}
	sbReg.Fill(t.SBDEFPIXEL)

	stript, ok := ids.IADT.Decode(arithDecoder)
	if !ok {
		return nil, errDecoderInternal("failed to decode text region initial STRIPT")
	}
	STRIPT := -(int64(stript) * int64(t.SBSTRIPS))
	FIRSTS := int64(0)
	var NINSTANCES uint32
	for NINSTANCES < t.SBNUMINSTANCES {
		dt, ok := ids.IADT.Decode(arithDecoder)
		if !ok {
			return nil, errDecoderInternal("failed to decode text region strip DT")
		}
		STRIPT += int64(dt) * int64(t.SBSTRIPS)
		CURS := int64(0)
		first := true
		for {
			var atStripEnd bool
			CURS, atStripEnd = t.advanceArithCursor(arithDecoder, ids, &FIRSTS, CURS, first)
			first = false
			if atStripEnd {
				break
			}
			if NINSTANCES >= t.SBNUMINSTANCES {
				break
			}
			var CURT int32
			if t.SBSTRIPS != 1 {
				CURT, _ = ids.IAIT.Decode(arithDecoder)
			}
			TI := int32(STRIPT + int64(CURT))
			IDI, err := ids.IAID.Decode(arithDecoder)
			if err != nil {
				return nil, err
			}
			if uint32(IDI) >= t.SBNUMSYMS {
				return nil, errOutOfRange("text region symbol ID out of bounds")
			}
			IBI, err := t.decodeArithInstance(arithDecoder, ids, grContexts, uint32(IDI))
			if err != nil {
				return nil, err
			}
			t.placeInstance(sbReg, IBI, &CURS, TI)
			if IBI != nil {
				NINSTANCES++
			}
		}
	}
	return sbReg, nil
}

// advanceArithCursor is advanceHuffmanCursor's arithmetic-coded
// counterpart: IAFS on a strip's first instance, IADS otherwise,
// folded into CURS.
func (t *TRDProc) advanceArithCursor(arithDecoder *ArithDecoder, ids *IntDecoderState, firstS *int64, curS int64, first bool) (int64, bool) {
	if first {
		dfs, _ := ids.IAFS.Decode(arithDecoder)
		*firstS += int64(dfs)
		return *firstS, false
	}
	idsVal, ok := ids.IADS.Decode(arithDecoder)
	if !ok {
		return curS, true
	}
	dso := int32(t.SBDSOFFSET)
	if dso >= 16 {
		dso -= 32
	}
	return curS + int64(idsVal) + int64(dso), false
}

// decodeArithInstance resolves one symbol instance's bitmap: the plain
// referenced symbol, or its arithmetically refined form when RI = 1
// (T.88 §6.4.5 step 3(c)(vi)-(ix)). A symbol ID outside SBSYMS, refined
// geometry out of range, or a failed refinement decode is an error for
// the whole region, as in the Huffman path.
func (t *TRDProc) decodeArithInstance(arithDecoder *ArithDecoder, ids *IntDecoderState, grContexts []ArithCtx, idi uint32) (*Bitmap, error) {
	if idi >= uint32(len(t.SBSYMS)) {
		return nil, errOutOfRange("text region symbol ID out of bounds")
	}
	ref := t.SBSYMS[idi]
	if !t.SBREFINE {
		return ref, nil
	}
	ri, _ := ids.IARI.Decode(arithDecoder)
	if ri == 0 {
		return ref, nil
	}
	rdwi, _ := ids.IARDW.Decode(arithDecoder)
	rdhi, _ := ids.IARDH.Decode(arithDecoder)
	rdxi, _ := ids.IARDX.Decode(arithDecoder)
	rdyi, _ := ids.IARDY.Decode(arithDecoder)
	grrd, ok := t.buildRefinedSymbol(ref, refinementGeometry{rdw: rdwi, rdh: rdhi, rdx: rdxi, rdy: rdyi, dxyShift: 1})
	if !ok {
		return nil, errOutOfRange("text region refined symbol geometry out of range")
	}
	return grrd.Decode(arithDecoder, grContexts)
}
