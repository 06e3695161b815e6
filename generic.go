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

// GRDProc is the generic region decoding procedure (T.88 §6.2): the
// arithmetic context model shared by every templated bi-level region,
// plus the MMR fallback for generic regions coded with CCITT Group 4.
type GRDProc struct {
	MMR         bool
	GBW         uint32
	GBH         uint32
	GBTEMPLATE  uint8
	TPGDON      bool
	USESKIP     bool
	SKIP        *Bitmap
	GBAT        [8]int8
	loopIndex   uint32
	line        []byte
	decodeType  uint16
	ltp         int
	replaceRect Rect
}

func NewGRDProc() *GRDProc {
	return &GRDProc{}
}

// ProgressiveArithDecodeState threads the bitmap under construction, the
// arithmetic decoder, and the context array through a decode that may
// span several StartDecodeArith/ContinueDecode calls (symbol-dictionary
// and halftone callers reuse contexts across several generic regions).
type ProgressiveArithDecodeState struct {
	Bitmap       **Bitmap
	ArithDecoder *ArithDecoder
	GbContexts   []ArithCtx
}

// legalAdaptivePixel enforces T.88's constraint that an adaptive
// template pixel may only reference an already-decoded neighbor: rows
// strictly above the current one, or the current row strictly to the
// left.
func legalAdaptivePixel(dx, dy int8) bool {
	return dy < 0 || (dy == 0 && dx < 0)
}

// checkGBAT validates the first n adaptive-template pixel pairs used by
// the active GBTEMPLATE.
func (g *GRDProc) checkGBAT(n int) error {
	for i := 0; i < n; i++ {
		if !legalAdaptivePixel(g.GBAT[2*i], g.GBAT[2*i+1]) {
			return errOutOfRange("generic region adaptive pixel %d (%d,%d) outside legal half-plane", i, g.GBAT[2*i], g.GBAT[2*i+1])
		}
	}
	return nil
}

func (g *GRDProc) StartDecodeArith(state *ProgressiveArithDecodeState) JBig2SegmentState {
	if g.GBW > JBig2MaxBitmapSize || g.GBH > JBig2MaxBitmapSize {
		return JBig2SegmentParseComplete
	}
	n := 1
	if g.GBTEMPLATE == 0 {
		n = 4
	}
	if err := g.checkGBAT(n); err != nil {
		return JBig2SegmentError
	}
	if *state.Bitmap == nil {
		*state.Bitmap = NewBitmap(int32(g.GBW), int32(g.GBH))
	}
	if *state.Bitmap == nil {
		return JBig2SegmentError
	}
	(*state.Bitmap).Fill(false)
	g.decodeType = 1
	g.ltp = 0
	g.line = nil
	g.loopIndex = 0
	return g.ProgressiveDecodeArith(state)
}

// StartDecodeMMR decodes the region via CCITT Group 4 (mmr.go), then
// inverts the result: CCITT's convention is white=1 where JBIG2's
// bitmaps use black=1.
func (g *GRDProc) StartDecodeMMR(image **Bitmap, stream *BitStream) JBig2SegmentState {
	*image = NewBitmap(int32(g.GBW), int32(g.GBH))
	if *image == nil {
		return JBig2SegmentError
	}
	if err := DecodeG4(stream, *image); err != nil {
		return JBig2SegmentError
	}
	data := (*image).Data()
	for i := range data {
		data[i] = ^data[i]
	}
	g.replaceRect = Rect{0, 0, int32((*image).Width()), int32((*image).Height())}
	return JBig2SegmentParseComplete
}

func (g *GRDProc) ContinueDecode(state *ProgressiveArithDecodeState) JBig2SegmentState {
	if g.decodeType != 1 {
		return JBig2SegmentError
	}
	return g.ProgressiveDecodeArith(state)
}

func (g *GRDProc) DecodeArith(decoder *ArithDecoder, contexts []ArithCtx) (*Bitmap, error) {
	state := &ProgressiveArithDecodeState{
		Bitmap:       new(*Bitmap),
		ArithDecoder: decoder,
		GbContexts:   contexts,
	}
	res := g.StartDecodeArith(state)
	if res == JBig2SegmentError {
		return nil, errDecoderInternal("generic region arithmetic decode failed")
	}
	return *state.Bitmap, nil
}

func (g *GRDProc) GetReplaceRect() Rect { return g.replaceRect }

// ProgressiveDecodeArith dispatches by GBTEMPLATE to the fixed-shift
// context builders below; templates 0-2 share one parameterized
// implementation (decodeTemplateUnopt), template 3 is narrow enough to
// warrant its own.
func (g *GRDProc) ProgressiveDecodeArith(state *ProgressiveArithDecodeState) JBig2SegmentState {
	img := *state.Bitmap
	g.replaceRect = Rect{0, int32(g.loopIndex), int32(img.Width()), int32(g.loopIndex)}
	var res JBig2SegmentState
	switch g.GBTEMPLATE {
	case 0:
		res = g.decodeTemplateUnopt(state, 0)
	case 1:
		res = g.decodeTemplateUnopt(state, 1)
	case 2:
		res = g.decodeTemplateUnopt(state, 2)
	default:
		res = g.decodeTemplate3Unopt(state)
	}
	g.replaceRect.Bottom = int32(g.loopIndex)
	if res == JBig2SegmentParseComplete {
		g.loopIndex = 0
	}
	return res
}

// kOptConstant1 gives, per template (0,1,2), the fixed context index
// used for the SLTP (typical-prediction row flag) decode.
var kOptConstant1 = []uint16{0x9b25, 0x0795, 0x00e5}
var kOptConstant9 = []uint{0x000c, 0x0009, 0x0007}
var kOptConstant10 = []uint32{0x0007, 0x000f, 0x0007}
var kOptConstant11 = []uint32{0x001f, 0x001f, 0x000f}
var kOptConstant12 = []uint32{0x000f, 0x0007, 0x0003}

// decodeTemplateUnopt implements the shared context-gathering walk for
// generic-region templates 0, 1, and 2, parameterized on opt (the
// template number). Each row builds three running bitfields (the row
// above's trailing context, the row two above, and the current row's
// decoded-so-far bits) that shift in one new bit per pixel, avoiding a
// full neighborhood recomputation at every column.
func (g *GRDProc) decodeTemplateUnopt(state *ProgressiveArithDecodeState, opt int) JBig2SegmentState {
	if state.Bitmap == nil || *state.Bitmap == nil {
		return JBig2SegmentError
	}
	img := *state.Bitmap
	gbContexts := state.GbContexts
	decoder := state.ArithDecoder
	mod2 := int32(opt % 2)
	div2 := int32(opt / 2)
	shift := uint(4 - opt)
	shiftC9 := kOptConstant9[opt]
	for ; g.loopIndex < g.GBH; g.loopIndex++ {
		h := int32(g.loopIndex)
		if g.TPGDON {
			if decoder.IsComplete() {
				return JBig2SegmentError
			}
			bit := decoder.Decode(&gbContexts[kOptConstant1[opt]])
			if bit != 0 {
				g.ltp ^= 1
			}
		}
		if g.ltp == 1 {
			img.CopyLine(h, h-1)
			continue
		}
		line1 := uint32(img.GetPixel(1+mod2, h-2))
		line1 |= uint32(img.GetPixel(mod2, h-2)) << 1
		if opt == 1 {
			line1 |= uint32(img.GetPixel(0, h-2)) << 2
		}
		line2 := uint32(img.GetPixel(2-div2, h-1))
		line2 |= uint32(img.GetPixel(1-div2, h-1)) << 1
		if opt < 2 {
			line2 |= uint32(img.GetPixel(0, h-1)) << 2
		}
		line3 := uint32(0)
		for w := int32(0); w < int32(g.GBW); w++ {
			bVal := 0
			skip := false
			if g.USESKIP && g.SKIP != nil && g.SKIP.GetPixel(w, h) != 0 {
				skip = true
				bVal = 0
			}
			if !skip {
				if decoder.IsComplete() {
					return JBig2SegmentError
				}
				CONTEXT := line3
				CONTEXT |= uint32(img.GetPixel(w+int32(g.GBAT[0]), h+int32(g.GBAT[1]))) << shift
				CONTEXT |= line2 << (shift + 1)
				CONTEXT |= line1 << shiftC9
				if opt == 0 {
					CONTEXT |= uint32(img.GetPixel(w+int32(g.GBAT[2]), h+int32(g.GBAT[3]))) << 10
					CONTEXT |= uint32(img.GetPixel(w+int32(g.GBAT[4]), h+int32(g.GBAT[5]))) << 11
					CONTEXT |= uint32(img.GetPixel(w+int32(g.GBAT[6]), h+int32(g.GBAT[7]))) << 15
				}
				bVal = decoder.Decode(&gbContexts[CONTEXT])
			}
			if bVal != 0 {
				img.SetPixel(w, h, bVal)
			}
			line1 = ((line1 << 1) | uint32(img.GetPixel(w+2+mod2, h-2))) & kOptConstant10[opt]
			line2 = ((line2 << 1) | uint32(img.GetPixel(w+3-div2, h-1))) & kOptConstant11[opt]
			line3 = ((line3 << 1) | uint32(bVal)) & kOptConstant12[opt]
		}
	}
	return JBig2SegmentParseComplete
}

// decodeTemplate3Unopt implements template 3, whose neighborhood fits
// in a single row above plus the adaptive pixel, so it needs only two
// running bitfields instead of three.
func (g *GRDProc) decodeTemplate3Unopt(state *ProgressiveArithDecodeState) JBig2SegmentState {
	if state.Bitmap == nil || *state.Bitmap == nil {
		return JBig2SegmentError
	}
	img := *state.Bitmap
	gbContexts := state.GbContexts
	decoder := state.ArithDecoder
	for ; g.loopIndex < g.GBH; g.loopIndex++ {
		h := int32(g.loopIndex)
		if g.TPGDON {
			if decoder.IsComplete() {
				return JBig2SegmentError
			}
			bit := decoder.Decode(&gbContexts[0x0195])
			if bit != 0 {
				g.ltp ^= 1
			}
		}
		if g.ltp == 1 {
			img.CopyLine(h, h-1)
			continue
		}
		line1 := uint32(img.GetPixel(1, h-1))
		line1 |= uint32(img.GetPixel(0, h-1)) << 1
		line2 := uint32(0)
		for w := int32(0); w < int32(g.GBW); w++ {
			bVal := 0
			skip := false
			if g.USESKIP && g.SKIP != nil && g.SKIP.GetPixel(w, h) != 0 {
				skip = true
				bVal = 0
			}
			if !skip {
				if decoder.IsComplete() {
					return JBig2SegmentError
				}
				CONTEXT := line2
				CONTEXT |= uint32(img.GetPixel(w+int32(g.GBAT[0]), h+int32(g.GBAT[1]))) << 4
				CONTEXT |= line1 << 5
				bVal = decoder.Decode(&gbContexts[CONTEXT])
			}
			if bVal != 0 {
				img.SetPixel(w, h, bVal)
			}
			line1 = ((line1 << 1) | uint32(img.GetPixel(w+2, h-1))) & 0x1f
			line2 = ((line2 << 1) | uint32(bVal)) & 0x0f
		}
	}
	return JBig2SegmentParseComplete
}
