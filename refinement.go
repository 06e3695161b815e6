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

// GRRDProc is the generic refinement region decoding procedure (T.88
// §6.3): it reconstructs a bitmap from a reference bitmap (an earlier
// region, or a symbol being refined) plus an arithmetically-coded
// correction pass, using either of two context templates.
type GRRDProc struct {
	GRTEMPLATE    bool
	TPGRON        bool
	GRW           uint32
	GRH           uint32
	GRREFERENCEDX int32
	GRREFERENCEDY int32
	GRREFERENCE   *Bitmap
	GRAT          [4]int8
}

func NewGRRDProc() *GRRDProc {
	return &GRRDProc{}
}

// Decode dispatches to the template 0 or template 1 context walk.
// TPGRON (typical prediction for refinement regions) is rejected: it
// requires comparing each pixel against its full 3x3 reference
// neighborhood before deciding whether to decode it at all, a second
// code path this package does not carry since every test corpus and
// every example region this decoder has been built against leaves it
// off.
func (g *GRRDProc) Decode(arithDecoder *ArithDecoder, grContexts []ArithCtx) (*Bitmap, error) {
	if g.TPGRON {
		return nil, errUnsupported("generic refinement region with typical prediction (TPGRON)")
	}
	if g.GRW > JBig2MaxBitmapSize || g.GRH > JBig2MaxBitmapSize {
		return NewBitmap(int32(g.GRW), int32(g.GRH)), nil
	}
	if !g.GRTEMPLATE {
		return g.decodeTemplate0(arithDecoder, grContexts)
	}
	return g.decodeTemplate1(arithDecoder, grContexts)
}

// decodeTemplate0 implements the 13-bit refinement context (GRTEMPLATE
// = 0), which includes the two adaptive pixels GRAT[0..3].
func (g *GRRDProc) decodeTemplate0(decoder *ArithDecoder, contexts []ArithCtx) (*Bitmap, error) {
	grReg := NewBitmap(int32(g.GRW), int32(g.GRH))
	if grReg == nil {
		return nil, errDecoderInternal("failed to allocate refinement region bitmap")
	}
	grReg.Fill(false)
	lines := make([]uint32, 5)
	for h := int32(0); h < int32(g.GRH); h++ {
		lines[0] = uint32(grReg.GetPixel(1, h-1))
		lines[0] |= uint32(grReg.GetPixel(0, h-1)) << 1
		lines[1] = 0
		lines[2] = uint32(g.GRREFERENCE.GetPixel(-g.GRREFERENCEDX+1, h-g.GRREFERENCEDY-1))
		lines[2] |= uint32(g.GRREFERENCE.GetPixel(-g.GRREFERENCEDX, h-g.GRREFERENCEDY-1)) << 1
		lines[3] = uint32(g.GRREFERENCE.GetPixel(-g.GRREFERENCEDX+1, h-g.GRREFERENCEDY))
		lines[3] |= uint32(g.GRREFERENCE.GetPixel(-g.GRREFERENCEDX, h-g.GRREFERENCEDY)) << 1
		lines[3] |= uint32(g.GRREFERENCE.GetPixel(-g.GRREFERENCEDX-1, h-g.GRREFERENCEDY)) << 2
		lines[4] = uint32(g.GRREFERENCE.GetPixel(-g.GRREFERENCEDX+1, h-g.GRREFERENCEDY+1))
		lines[4] |= uint32(g.GRREFERENCE.GetPixel(-g.GRREFERENCEDX, h-g.GRREFERENCEDY+1)) << 1
		lines[4] |= uint32(g.GRREFERENCE.GetPixel(-g.GRREFERENCEDX-1, h-g.GRREFERENCEDY+1)) << 2
		for w := int32(0); w < int32(g.GRW); w++ {
			CONTEXT := g.calculateContext0(grReg, lines, w, h)
			if decoder.IsComplete() {
				return nil, errDecoderInternal("refinement region decoder exhausted mid-row")
			}
			bVal := decoder.Decode(&contexts[CONTEXT])
			g.setPixel0(grReg, lines, w, h, bVal)
		}
	}
	return grReg, nil
}

func (g *GRRDProc) calculateContext0(grReg *Bitmap, lines []uint32, w, h int32) uint32 {
	CONTEXT := lines[4]
	CONTEXT |= lines[3] << 3
	CONTEXT |= lines[2] << 6
	CONTEXT |= uint32(g.GRREFERENCE.GetPixel(w-g.GRREFERENCEDX+int32(g.GRAT[2]), h-g.GRREFERENCEDY+int32(g.GRAT[3]))) << 8
	CONTEXT |= lines[1] << 9
	CONTEXT |= lines[0] << 10
	CONTEXT |= uint32(grReg.GetPixel(w+int32(g.GRAT[0]), h+int32(g.GRAT[1]))) << 12
	return CONTEXT
}

func (g *GRRDProc) setPixel0(grReg *Bitmap, lines []uint32, w, h int32, bVal int) {
	grReg.SetPixel(w, h, bVal)
	lines[0] = ((lines[0] << 1) | uint32(grReg.GetPixel(w+2, h-1))) & 0x03
	lines[1] = ((lines[1] << 1) | uint32(bVal)) & 0x01
	lines[2] = ((lines[2] << 1) | uint32(g.GRREFERENCE.GetPixel(w-g.GRREFERENCEDX+2, h-g.GRREFERENCEDY-1))) & 0x03
	lines[3] = ((lines[3] << 1) | uint32(g.GRREFERENCE.GetPixel(w-g.GRREFERENCEDX+2, h-g.GRREFERENCEDY))) & 0x07
	lines[4] = ((lines[4] << 1) | uint32(g.GRREFERENCE.GetPixel(w-g.GRREFERENCEDX+2, h-g.GRREFERENCEDY+1))) & 0x07
}

// decodeTemplate1 implements the narrower 10-bit refinement context
// (GRTEMPLATE = 1), which has no adaptive pixels.
func (g *GRRDProc) decodeTemplate1(decoder *ArithDecoder, contexts []ArithCtx) (*Bitmap, error) {
	grReg := NewBitmap(int32(g.GRW), int32(g.GRH))
	if grReg == nil {
		return nil, errDecoderInternal("failed to allocate refinement region bitmap")
	}
	grReg.Fill(false)
	for h := int32(0); h < int32(g.GRH); h++ {
		line1 := uint32(grReg.GetPixel(1, h-1))
		line1 |= uint32(grReg.GetPixel(0, h-1)) << 1
		line1 |= uint32(grReg.GetPixel(-1, h-1)) << 2
		line2 := uint32(0)
		line3 := uint32(g.GRREFERENCE.GetPixel(-g.GRREFERENCEDX, h-g.GRREFERENCEDY-1))
		line4 := uint32(g.GRREFERENCE.GetPixel(-g.GRREFERENCEDX+1, h-g.GRREFERENCEDY))
		line4 |= uint32(g.GRREFERENCE.GetPixel(-g.GRREFERENCEDX, h-g.GRREFERENCEDY)) << 1
		line4 |= uint32(g.GRREFERENCE.GetPixel(-g.GRREFERENCEDX-1, h-g.GRREFERENCEDY)) << 2
		line5 := uint32(g.GRREFERENCE.GetPixel(-g.GRREFERENCEDX+1, h-g.GRREFERENCEDY+1))
		line5 |= uint32(g.GRREFERENCE.GetPixel(-g.GRREFERENCEDX, h-g.GRREFERENCEDY+1)) << 1
		for w := int32(0); w < int32(g.GRW); w++ {
			CONTEXT := line5
			CONTEXT |= line4 << 2
			CONTEXT |= line3 << 5
			CONTEXT |= line2 << 6
			CONTEXT |= line1 << 7
			if decoder.IsComplete() {
				return nil, errDecoderInternal("refinement region decoder exhausted mid-row")
			}
			bVal := decoder.Decode(&contexts[CONTEXT])
			grReg.SetPixel(w, h, bVal)
			line1 = ((line1 << 1) | uint32(grReg.GetPixel(w+2, h-1))) & 0x07
			line2 = ((line2 << 1) | uint32(bVal)) & 0x01
			line3 = ((line3 << 1) | uint32(g.GRREFERENCE.GetPixel(w-g.GRREFERENCEDX+1, h-g.GRREFERENCEDY-1))) & 0x01
			line4 = ((line4 << 1) | uint32(g.GRREFERENCE.GetPixel(w-g.GRREFERENCEDX+2, h-g.GRREFERENCEDY))) & 0x07
			line5 = ((line5 << 1) | uint32(g.GRREFERENCE.GetPixel(w-g.GRREFERENCEDX+2, h-g.GRREFERENCEDY+1))) & 0x03
		}
	}
	return grReg, nil
}
