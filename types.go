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

const (
	JBig2OOB                     = 1
	JBig2MaxReferredSegmentCount = 64
	JBig2MaxExportSymbols        = 65535
	JBig2MaxNewSymbols           = 65535
	JBig2MaxPatternIndex         = 65535
	JBig2MaxBitmapSize           = 65535
)

// ComposeOp is one of the five compositing operators T.88 Annex C.5 allows
// between a decoded region bitmap and the page (or between a pattern/symbol
// bitmap and a region).
type ComposeOp int

const (
	ComposeOr ComposeOp = iota
	ComposeAnd
	ComposeXor
	ComposeXnor
	ComposeReplace
)

// RegionInfo is the 17-byte region segment information field common to
// every region segment type (generic, refinement, text, halftone).
type RegionInfo struct {
	Width  int32
	Height int32
	X      int32
	Y      int32
	Flags  uint8
}

// HuffmanCode is one row of an assigned canonical Huffman table: a
// prefix length/code pair together with the range it decodes to.
type HuffmanCode struct {
	Codelen int32
	Code    int32
	Val1    int32
	Val2    int32
}

// Rect is an axis-aligned rectangle in page coordinates.
type Rect struct {
	Left   int32
	Top    int32
	Right  int32
	Bottom int32
}

func (r *Rect) Width() int32  { return r.Right - r.Left }
func (r *Rect) Height() int32 { return r.Bottom - r.Top }
