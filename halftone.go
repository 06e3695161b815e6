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

// HTRDProc is the halftone region decoding procedure (T.88 §6.6): a
// grid of grayscale-coded pattern indices, each cell replaced by the
// matching bitmap from an associated pattern dictionary and composited
// onto the region bitmap.
type HTRDProc struct {
	HBW, HBH    uint32
	HMMR        bool
	HTEMPLATE   uint8
	HNUMPATS    uint32
	HPATS       []*Bitmap
	HDEFPIXEL   bool
	HCOMBOP     ComposeOp
	HENABLESKIP bool
	HGW, HGH    uint32
	HGX, HGY    int32
	HRX, HRY    uint16
	HPW, HPH    uint8
}

func NewHTRDProc() *HTRDProc {
	return &HTRDProc{}
}

// buildSkipBitmap precomputes HENABLESKIP's per-cell skip mask: a grid
// cell is skipped when the pattern placed there would fall entirely
// outside the region bitmap, so decoding it can never affect the
// output.
func (h *HTRDProc) buildSkipBitmap() *Bitmap {
	if !h.HENABLESKIP {
		return nil
	}
	skip := NewBitmap(int32(h.HGW), int32(h.HGH))
	if skip == nil {
		return nil
	}
	for mg := uint32(0); mg < h.HGH; mg++ {
		for ng := uint32(0); ng < h.HGW; ng++ {
			x, y := h.cellOrigin(mg, ng)
			if (x+int64(h.HPW) <= 0) || (x >= int64(h.HBW)) || (y+int64(h.HPH) <= 0) || (y >= int64(h.HBH)) {
				skip.SetPixel(int32(ng), int32(mg), 1)
			} else {
				skip.SetPixel(int32(ng), int32(mg), 0)
			}
		}
	}
	return skip
}

// cellOrigin maps a grid cell (mg, ng) to the page-relative pixel
// position of its pattern's top-left corner, per the affine placement
// formula of T.88 §6.6.5.2.
func (h *HTRDProc) cellOrigin(mg, ng uint32) (int64, int64) {
	mgInt, ngInt := int64(mg), int64(ng)
	x := (int64(h.HGX) + mgInt*int64(h.HRY) + ngInt*int64(h.HRX)) >> 8
	y := (int64(h.HGY) + mgInt*int64(h.HRX) - ngInt*int64(h.HRY)) >> 8
	return x, y
}

// DecodeArith decodes the halftone grayscale-image grid arithmetically
// (T.88 §C.5) and composites the resulting pattern indices onto the
// region bitmap.
func (h *HTRDProc) DecodeArith(arithDecoder *ArithDecoder, gbContexts []ArithCtx) (*Bitmap, error) {
	hSkip := h.buildSkipBitmap()
	if h.HENABLESKIP && hSkip == nil {
		return nil, errDecoderInternal("failed to build halftone skip mask")
	}
	bpp := grayscaleBitsFor(h.HNUMPATS)
	grd := NewGRDProc()
	grd.MMR = false
	grd.GBW = h.HGW
	grd.GBH = h.HGH
	grd.GBTEMPLATE = h.HTEMPLATE
	grd.USESKIP = h.HENABLESKIP
	grd.SKIP = hSkip
	if h.HTEMPLATE <= 1 {
		grd.GBAT[0] = 3
	} else {
		grd.GBAT[0] = 2
	}
	grd.GBAT[1] = -1
	if grd.GBTEMPLATE == 0 {
		grd.GBAT[2] = -3
		grd.GBAT[3] = -1
		grd.GBAT[4] = 2
		grd.GBAT[5] = -2
		grd.GBAT[6] = -2
		grd.GBAT[7] = -2
	}
	planes, err := decodeGrayscaleArith(grd, int(bpp), arithDecoder, gbContexts)
	if err != nil {
		return nil, err
	}
	return h.composite(planes)
}

// DecodeMMR would decode the halftone grayscale-image grid with CCITT
// Group 4 coding (T.88 §C.2 with MMR=1). This package rejects it: the
// per-plane MMR sub-decode needs to report exactly how many bytes of
// the shared stream it consumed so the next plane can resume where it
// left off, and golang.org/x/image/ccitt's io.Reader interface doesn't
// expose that without buffering the entire remaining stream per plane.
func (h *HTRDProc) DecodeMMR(stream *BitStream) (*Bitmap, error) {
	return nil, errUnsupported("MMR-coded halftone grayscale image")
}

// composite reassembles pattern indices from the decoded bitplanes and
// stamps each grid cell's pattern onto the region bitmap.
func (h *HTRDProc) composite(planes []*Bitmap) (*Bitmap, error) {
	htReg := NewBitmap(int32(h.HBW), int32(h.HBH))
	if htReg == nil {
		return nil, errDecoderInternal("failed to allocate halftone region bitmap")
	}
	htReg.Fill(h.HDEFPIXEL)
	for mg := uint32(0); mg < h.HGH; mg++ {
		for ng := uint32(0); ng < h.HGW; ng++ {
			patIndex := grayscaleValueAt(planes, int32(ng), int32(mg))
			if patIndex >= h.HNUMPATS {
				patIndex = h.HNUMPATS - 1
			}
			x, y := h.cellOrigin(mg, ng)
			pat := h.HPATS[patIndex]
			if pat != nil {
				pat.ComposeTo(htReg, int32(x), int32(y), h.HCOMBOP)
			}
		}
	}
	return htReg, nil
}
