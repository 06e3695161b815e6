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

// PatternDict holds the fixed-size pattern bitmaps a pattern dictionary
// segment decodes, indexed by gray-code value for use by a halftone
// region.
type PatternDict struct {
	NUMPATS uint32
	HDPATS  []*Bitmap
}

func NewPatternDict(dictSize uint32) *PatternDict {
	return &PatternDict{
		NUMPATS: dictSize,
		HDPATS:  make([]*Bitmap, dictSize),
	}
}

func (p *PatternDict) DeepCopy() *PatternDict {
	dst := NewPatternDict(p.NUMPATS)
	for i, bm := range p.HDPATS {
		if bm != nil {
			dst.HDPATS[i] = bm.Duplicate()
		}
	}
	return dst
}

// PDDProc is the pattern dictionary decoding procedure (T.88 §6.7): all
// GRAYMAX+1 patterns are decoded as one wide collective bitmap (a
// single generic region HDPW*(GRAYMAX+1) pixels wide), then sliced into
// individual HDPW x HDPH pattern bitmaps.
type PDDProc struct {
	HDMMR      bool
	HDPW, HDPH uint8
	GRAYMAX    uint32
	HDTEMPLATE uint8
}

func NewPDDProc() *PDDProc {
	return &PDDProc{}
}

func (p *PDDProc) createGRDProc() *GRDProc {
	width := (p.GRAYMAX + 1) * uint32(p.HDPW)
	height := uint32(p.HDPH)
	if width > JBig2MaxBitmapSize || height > JBig2MaxBitmapSize {
		return nil
	}
	grd := NewGRDProc()
	grd.MMR = p.HDMMR
	grd.GBW = width
	grd.GBH = height
	return grd
}

// DecodeArith decodes the collective bitmap arithmetically. The single
// adaptive pixel GBAT[0] is fixed at (-HDPW, 0) — pointing at the
// previous pattern's corresponding column — per T.88 §6.7.5.
func (p *PDDProc) DecodeArith(arithDecoder *ArithDecoder, gbContexts []ArithCtx) (*PatternDict, error) {
	grd := p.createGRDProc()
	if grd == nil {
		return nil, errOutOfRange("pattern dictionary collective bitmap dimensions too large")
	}
	grd.GBTEMPLATE = p.HDTEMPLATE
	grd.TPGDON = false
	grd.USESKIP = false
	grd.GBAT[0] = -int8(p.HDPW)
	grd.GBAT[1] = 0
	if grd.GBTEMPLATE == 0 {
		grd.GBAT[2] = -3
		grd.GBAT[3] = -1
		grd.GBAT[4] = 2
		grd.GBAT[5] = -2
		grd.GBAT[6] = -2
		grd.GBAT[7] = -2
	}
	var collective *Bitmap
	state := &ProgressiveArithDecodeState{
		Bitmap:       &collective,
		ArithDecoder: arithDecoder,
		GbContexts:   gbContexts,
	}
	if status := grd.StartDecodeArith(state); status == JBig2SegmentError || collective == nil {
		return nil, errDecoderInternal("pattern dictionary arithmetic decode failed")
	}
	return p.slice(collective), nil
}

// DecodeMMR decodes the collective bitmap with CCITT Group 4 coding.
func (p *PDDProc) DecodeMMR(stream *BitStream) (*PatternDict, error) {
	grd := p.createGRDProc()
	if grd == nil {
		return nil, errOutOfRange("pattern dictionary collective bitmap dimensions too large")
	}
	var collective *Bitmap
	if status := grd.StartDecodeMMR(&collective, stream); status == JBig2SegmentError || collective == nil {
		return nil, errDecoderInternal("pattern dictionary MMR decode failed")
	}
	return p.slice(collective), nil
}

func (p *PDDProc) slice(collective *Bitmap) *PatternDict {
	dict := NewPatternDict(p.GRAYMAX + 1)
	hdpw := int32(p.HDPW)
	hdph := int32(p.HDPH)
	for gray := uint32(0); gray <= p.GRAYMAX; gray++ {
		dict.HDPATS[gray] = collective.SubBitmap(int32(gray)*hdpw, 0, hdpw, hdph)
	}
	return dict
}
