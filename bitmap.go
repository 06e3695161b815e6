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

// Bitmap is a 1-bit-per-pixel row-major bit buffer: one bit per pixel,
// MSB-first within each byte, rows padded to a whole byte (the stride).
// A set bit is foreground (black in JBIG2's convention).
type Bitmap struct {
	width  int32
	height int32
	stride int32
	data   []byte
}

// NewBitmap allocates a zeroed bitmap. Returns nil on non-positive or
// overflowing dimensions rather than panicking, since every caller sits
// downstream of untrusted segment dimensions.
func NewBitmap(width, height int32) *Bitmap {
	if width <= 0 || height <= 0 {
		return nil
	}
	stride := (width + 7) / 8
	if stride <= 0 || height > 2147483647/stride {
		return nil
	}
	size := stride * height
	data := make([]byte, size)
	return &Bitmap{
		width:  width,
		height: height,
		stride: stride,
		data:   data,
	}
}

func (i *Bitmap) Width() int32  { return i.width }
func (i *Bitmap) Height() int32 { return i.height }
func (i *Bitmap) Stride() int32 { return i.stride }
func (i *Bitmap) Data() []byte  { return i.data }

// pixelAddr locates (x, y)'s byte and within-byte bit index (MSB-first),
// and reports whether the coordinate actually lies within the bitmap.
func (i *Bitmap) pixelAddr(x, y int32) (byteIdx int32, bitIdx uint, ok bool) {
	if x < 0 || x >= i.width || y < 0 || y >= i.height {
		return 0, 0, false
	}
	return y*i.stride + (x >> 3), uint(7 - (x & 7)), true
}

// GetPixel returns 0 for any coordinate outside the bitmap rather than
// erroring — out-of-bounds reads happen routinely while compositing
// regions that straddle a page edge.
func (i *Bitmap) GetPixel(x, y int32) int {
	byteIdx, bitIdx, ok := i.pixelAddr(x, y)
	if !ok {
		return 0
	}
	return int((i.data[byteIdx] >> bitIdx) & 1)
}

// SetPixel is a silent no-op outside the bitmap bounds, mirroring GetPixel.
func (i *Bitmap) SetPixel(x, y int32, v int) {
	byteIdx, bitIdx, ok := i.pixelAddr(x, y)
	if !ok {
		return
	}
	mask := byte(1 << bitIdx)
	if v != 0 {
		i.data[byteIdx] |= mask
	} else {
		i.data[byteIdx] &^= mask
	}
}

// Fill sets every pixel to v.
func (i *Bitmap) Fill(v bool) {
	var val byte
	if v {
		val = 0xFF
	}
	for idx := range i.data {
		i.data[idx] = val
	}
}

// composeBit combines one destination/source pixel pair per a region
// combination operator (T.88 §6.4.5/§7.4.6.4's SBCOMBOP/external
// combination operator); an operator outside the five defined values
// passes the destination through unchanged.
func composeBit(op ComposeOp, dstBit, srcBit int) int {
	switch op {
	case ComposeOr:
		return dstBit | srcBit
	case ComposeAnd:
		return dstBit & srcBit
	case ComposeXor:
		return dstBit ^ srcBit
	case ComposeXnor:
		if dstBit == srcBit {
			return 1
		}
		return 0
	case ComposeReplace:
		return srcBit
	default:
		return dstBit
	}
}

// ComposeTo blits i onto dst at (x, y) using op. Per-pixel, not the
// fastest possible path, but it is the only implementation that is
// correct for every placement (including negative x/y and partial
// overlap at the bitmap edge), which region composition needs.
func (i *Bitmap) ComposeTo(dst *Bitmap, x, y int32, op ComposeOp) {
	if i == nil || dst == nil {
		return
	}
	for h := int32(0); h < i.height; h++ {
		for w := int32(0); w < i.width; w++ {
			dstX, dstY := x+w, y+h
			res := composeBit(op, dst.GetPixel(dstX, dstY), i.GetPixel(w, h))
			dst.SetPixel(dstX, dstY, res)
		}
	}
}

// ComposeFrom is ComposeTo with the receiver and source swapped, for call
// sites that hold the destination bitmap.
func (i *Bitmap) ComposeFrom(x, y int32, src *Bitmap, op ComposeOp) {
	if src != nil {
		src.ComposeTo(i, x, y, op)
	}
}

// SubBitmap extracts a w-by-h rectangle starting at (x, y) into a new,
// independently-owned bitmap. Used to slice collective bitmaps into
// individual pattern/symbol glyphs.
func (i *Bitmap) SubBitmap(x, y, w, h int32) *Bitmap {
	if w <= 0 || h <= 0 {
		return nil
	}
	sub := NewBitmap(w, h)
	if sub == nil {
		return nil
	}
	sub.Fill(false)
	for r := int32(0); r < h; r++ {
		for c := int32(0); c < w; c++ {
			sub.SetPixel(c, r, i.GetPixel(x+c, y+r))
		}
	}
	return sub
}

// Expand grows the bitmap's height in place, filling new rows with
// defaultPixel. Used for striped pages whose final height is only known
// once the last stripe's end-of-stripe segment arrives.
func (i *Bitmap) Expand(height int32, defaultPixel bool) {
	if height <= i.height {
		return
	}
	newStride := i.stride
	newHeight := height
	newData := make([]byte, newStride*newHeight)
	copy(newData, i.data)
	start := i.stride * i.height
	fill := byte(0x00)
	if defaultPixel {
		fill = 0xFF
	}
	for j := start; j < int32(len(newData)); j++ {
		newData[j] = fill
	}
	i.data = newData
	i.height = newHeight
}

// Duplicate returns an independent deep copy.
func (i *Bitmap) Duplicate() *Bitmap {
	if i == nil {
		return nil
	}
	newImg := NewBitmap(i.width, i.height)
	if newImg != nil {
		copy(newImg.data, i.data)
	}
	return newImg
}

// CopyLine overwrites row h with row srcH. Used by generic-region typical
// prediction (TPGDON) to replicate the row above verbatim.
func (i *Bitmap) CopyLine(h, srcH int32) {
	if h < 0 || h >= i.height || srcH < 0 || srcH >= i.height {
		return
	}
	start := h * i.stride
	end := start + i.stride
	srcStart := srcH * i.stride
	srcEnd := srcStart + i.stride
	copy(i.data[start:end], i.data[srcStart:srcEnd])
}
