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

// arithIntDecodeData is one row of T.88 Annex A.3's range table: the
// number of additional bits to read and the base value added to them.
type arithIntDecodeData struct {
	nNeedBits int
	nValue    int32
}

// kArithIntDecodeData encodes the six IAx magnitude ranges
// {2,4,6,8,12,32} bits wide with bases {0,4,20,84,340,4436}.
var kArithIntDecodeData = []arithIntDecodeData{
	{2, 0}, {4, 4}, {6, 20}, {8, 84}, {12, 340}, {32, 4436},
}

// ArithIntDecoder implements one of the IAx integer arithmetic decoding
// procedures (Annex A.3): IADH, IADW, IAEX, IAAI, IADT, IAFS, IADS, IAIT,
// IARI, IARDW, IARDH, IARDX, IARDY, IARI. Each of those is a distinct
// context array over the same 512-entry PREV state machine, so callers
// hold one ArithIntDecoder per procedure name.
type ArithIntDecoder struct {
	iax []ArithCtx
}

func NewArithIntDecoder() *ArithIntDecoder {
	return &ArithIntDecoder{iax: make([]ArithCtx, 512)}
}

// Decode returns the next signed integer, or ok=false if the value
// decoded is the OOB (out-of-band) sentinel.
func (aid *ArithIntDecoder) Decode(decoder *ArithDecoder) (int32, bool) {
	prev := 1
	s := decoder.Decode(&aid.iax[prev])
	prev = (prev << 1) | s
	idx := aid.recursiveDecode(decoder, &prev, 0)
	nTemp := 0
	for i := 0; i < kArithIntDecodeData[idx].nNeedBits; i++ {
		d := decoder.Decode(&aid.iax[prev])
		prev = (prev << 1) | d
		if prev >= 256 {
			prev = (prev & 511) | 256
		}
		nTemp = (nTemp << 1) | d
	}
	val := kArithIntDecodeData[idx].nValue + int32(nTemp)
	if s == 1 && val > 0 {
		val = -val
	}
	if s == 1 && val == 0 {
		return 0, false
	}
	return val, true
}

// recursiveDecode walks the unary range-selection prefix of Annex A.3's
// flowchart, choosing which of the six magnitude ranges nTemp falls in.
func (aid *ArithIntDecoder) recursiveDecode(decoder *ArithDecoder, prev *int, depth int) int {
	kDepthEnd := len(kArithIntDecodeData) - 1
	if depth == kDepthEnd {
		return kDepthEnd
	}
	cx := &aid.iax[*prev]
	d := decoder.Decode(cx)
	*prev = (*prev << 1) | d
	if d == 0 {
		return depth
	}
	return aid.recursiveDecode(decoder, prev, depth+1)
}

// ArithIaidDecoder implements IAID (Annex A.3): decoding a symbol's
// fixed-width ID as a balanced binary tree of contexts.
type ArithIaidDecoder struct {
	iaid         []ArithCtx
	sbsymCodeLen uint8
}

func NewArithIaidDecoder(sbsymCodeLen uint8) *ArithIaidDecoder {
	return &ArithIaidDecoder{iaid: make([]ArithCtx, 1<<sbsymCodeLen), sbsymCodeLen: sbsymCodeLen}
}

func (aid *ArithIaidDecoder) Decode(decoder *ArithDecoder) (uint32, error) {
	prev := 1
	for i := uint8(0); i < aid.sbsymCodeLen; i++ {
		if prev >= len(aid.iaid) {
			return 0, errDecoderInternal("IAID context index %d out of bounds", prev)
		}
		cx := &aid.iaid[prev]
		d := decoder.Decode(cx)
		prev = (prev << 1) | d
	}
	return uint32(prev - (1 << aid.sbsymCodeLen)), nil
}
