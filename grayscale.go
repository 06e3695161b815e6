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

// decodeGrayscaleArith implements the generic grayscale-image decoding
// procedure, Annex C: a value in [0, 2^bpp) per grid cell is recovered
// as bpp stacked bi-level bitplanes, most significant first, each
// XOR-combined with the plane decoded before it (Gray-code style) so
// that a single-bit context error only flips one plane's worth of
// value rather than cascading. grd is pre-configured by the caller
// (GBW/GBH/GBTEMPLATE/GBAT/USESKIP/SKIP); only TPGDON is forced off, per
// Annex C.5's note that typical prediction does not apply to grayscale
// planes.
func decodeGrayscaleArith(grd *GRDProc, bpp int, arithDecoder *ArithDecoder, gbContexts []ArithCtx) ([]*Bitmap, error) {
	grd.TPGDON = false
	planes := make([]*Bitmap, bpp)
	for i := bpp - 1; i >= 0; i-- {
		var plane *Bitmap
		state := &ProgressiveArithDecodeState{
			Bitmap:       &plane,
			ArithDecoder: arithDecoder,
			GbContexts:   gbContexts,
		}
		if status := grd.StartDecodeArith(state); status == JBig2SegmentError {
			return nil, errDecoderInternal("grayscale bitplane %d arithmetic decode failed", i)
		}
		if plane == nil {
			return nil, errDecoderInternal("grayscale bitplane %d missing after decode", i)
		}
		planes[i] = plane
		if i < bpp-1 {
			planes[i].ComposeFrom(0, 0, planes[i+1], ComposeXor)
		}
	}
	return planes, nil
}

// grayscaleValueAt reassembles the integer value at (x, y) from its
// stacked bitplanes, plane 0 being the least significant bit.
func grayscaleValueAt(planes []*Bitmap, x, y int32) uint32 {
	v := uint32(0)
	for i := 0; i < len(planes); i++ {
		v |= uint32(planes[i].GetPixel(x, y)) << uint(i)
	}
	return v
}

// grayscaleBitsFor returns the number of bitplanes needed to represent
// numValues distinct values (0 .. numValues-1).
func grayscaleBitsFor(numValues uint32) uint32 {
	bpp := uint32(0)
	for (uint32(1) << bpp) < numValues {
		bpp++
	}
	return bpp
}
