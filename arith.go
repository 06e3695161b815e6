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

// defaultAValue is the QM coder's initial and renormalization target for
// register A (0x8000, per T.88 Annex E.2.2).
const defaultAValue = 0x8000

// kQeTable is the Annex E probability estimation table: for each state
// index, the interval size Qe and the next state on an MPS/LPS exchange,
// plus whether that exchange also flips which symbol is MPS.
var kQeTable = []ArithQe{
	{0x5601, 1, 1, true}, {0x3401, 2, 6, false}, {0x1801, 3, 9, false},
	{0x0AC1, 4, 12, false}, {0x0521, 5, 29, false}, {0x0221, 38, 33, false},
	{0x5601, 7, 6, true}, {0x5401, 8, 14, false}, {0x4801, 9, 14, false},
	{0x3801, 10, 14, false}, {0x3001, 11, 17, false}, {0x2401, 12, 18, false},
	{0x1C01, 13, 20, false}, {0x1601, 29, 21, false}, {0x5601, 15, 14, true},
	{0x5401, 16, 14, false}, {0x5101, 17, 15, false}, {0x4801, 18, 16, false},
	{0x3801, 19, 17, false}, {0x3401, 20, 18, false}, {0x3001, 21, 19, false},
	{0x2801, 22, 19, false}, {0x2401, 23, 20, false}, {0x2201, 24, 21, false},
	{0x1C01, 25, 22, false}, {0x1801, 26, 23, false}, {0x1601, 27, 24, false},
	{0x1401, 28, 25, false}, {0x1201, 29, 26, false}, {0x1101, 30, 27, false},
	{0x0AC1, 31, 28, false}, {0x09C1, 32, 29, false}, {0x08A1, 33, 30, false},
	{0x0521, 34, 31, false}, {0x0441, 35, 32, false}, {0x02A1, 36, 33, false},
	{0x0221, 37, 34, false}, {0x0141, 38, 35, false}, {0x0111, 39, 36, false},
	{0x0085, 40, 37, false}, {0x0049, 41, 38, false}, {0x0025, 42, 39, false},
	{0x0015, 43, 40, false}, {0x0009, 44, 41, false}, {0x0005, 45, 42, false},
	{0x0001, 45, 43, false}, {0x5601, 46, 46, false},
}

// ArithQe is one row of the Annex E Qe table.
type ArithQe struct {
	Qe     uint16
	NMPS   uint8
	NLPS   uint8
	Switch bool
}

// ArithCtx is one adaptive binary context: a state index into kQeTable
// plus which symbol currently estimates as "more probable". Every
// generic-region pixel neighborhood, refinement neighborhood, and IAx
// bit position owns one of these, typically held in a flat array and
// zeroed at the start of whichever procedure scopes it (T.88 requires
// fresh contexts per symbol dictionary / text region / generic region
// unless explicitly told to retain them).
type ArithCtx struct {
	mps bool
	i   uint8
}

func (c *ArithCtx) DecodeNLPS(qe ArithQe) int {
	d := 0
	if !c.mps {
		d = 1
	}
	if qe.Switch {
		c.mps = !c.mps
	}
	c.i = qe.NLPS
	return d
}

func (c *ArithCtx) DecodeNMPS(qe ArithQe) int {
	c.i = qe.NMPS
	if c.mps {
		return 1
	}
	return 0
}

func (c *ArithCtx) MPS() int {
	if c.mps {
		return 1
	}
	return 0
}

func (c *ArithCtx) I() uint8 { return c.i }

// ArithDecoder is the QM arithmetic decoder (T.88 Annex E.3). It reads
// from a BitStream byte-at-a-time; contexts it decodes against are
// supplied by the caller so the same decoder instance can service many
// independent context arrays within one segment.
type ArithDecoder struct {
	stream   *BitStream
	b        uint8
	c        uint32
	a        uint32
	ct       uint32
	complete bool
}

// NewArithDecoder runs the INITDEC procedure (Annex E.3.5) over stream.
func NewArithDecoder(stream *BitStream) *ArithDecoder {
	ad := &ArithDecoder{stream: stream, a: defaultAValue}
	ad.b = stream.GetCurByteArith()
	ad.c = (uint32(ad.b) ^ 0xff) << 16
	ad.byteIn()
	ad.c = ad.c << 7
	ad.ct = ad.ct - 7
	return ad
}

// exchange runs the EXCHANGE sub-procedure (Annex E.3.2), choosing
// between an NMPS and NLPS state transition. lpsWins tells it which.
func exchange(cx *ArithCtx, qe ArithQe, lpsWins bool) int {
	if lpsWins {
		return cx.DecodeNLPS(qe)
	}
	return cx.DecodeNMPS(qe)
}

// Decode runs DECODE (Annex E.3.2) against cx, mutating cx's state.
// The two branches below are the CHIGH < A(CODE) split: when it holds,
// A has already been reduced by Qe for this context and a further
// MPS/LPS exchange is needed only if the interval fell below the
// renormalization threshold; otherwise C is reduced and A collapses to
// Qe outright, with the exchange's LPS/MPS roles reversed from the
// first branch.
func (ad *ArithDecoder) Decode(cx *ArithCtx) int {
	if int(cx.I()) >= len(kQeTable) {
		return 0
	}
	qe := kQeTable[cx.I()]
	ad.a -= uint32(qe.Qe)
	if (ad.c >> 16) < ad.a {
		if (ad.a & defaultAValue) != 0 {
			return cx.MPS()
		}
		d := exchange(cx, qe, ad.a < uint32(qe.Qe))
		ad.readValueA()
		return d
	}
	ad.c -= ad.a << 16
	d := exchange(cx, qe, ad.a >= uint32(qe.Qe))
	ad.a = uint32(qe.Qe)
	ad.readValueA()
	return d
}

// IsComplete reports whether the underlying stream has been exhausted
// (subsequent bytes are the implied 0xFF padding).
func (ad *ArithDecoder) IsComplete() bool { return ad.complete }

// byteIn is BYTEIN (Annex E.3.4): the 0xFF byte-stuffing lookahead.
func (ad *ArithDecoder) byteIn() {
	if ad.b == 0xff {
		b1 := ad.stream.GetNextByteArith()
		if b1 > 0x8f {
			ad.ct = 8
		} else {
			ad.stream.IncByteIdx()
			ad.b = b1
			ad.c = ad.c + 0xfe00 - (uint32(ad.b) << 9)
			ad.ct = 7
		}
	} else {
		ad.stream.IncByteIdx()
		ad.b = ad.stream.GetCurByteArith()
		ad.c = ad.c + 0xff00 - (uint32(ad.b) << 8)
		ad.ct = 8
	}
	if !ad.stream.IsInBounds() {
		ad.complete = true
	}
}

// readValueA is RENORMD (Annex E.3.3).
func (ad *ArithDecoder) readValueA() {
	for {
		if ad.ct == 0 {
			ad.byteIn()
		}
		ad.a <<= 1
		ad.c <<= 1
		ad.ct--
		if (ad.a & defaultAValue) != 0 {
			break
		}
	}
}
