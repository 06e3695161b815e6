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

// BitStream is a big-endian (by default) bit-granular cursor over an
// in-memory byte slice. Segment headers and Huffman-coded data read it
// bit-at-a-time; arithmetic decoding reads it byte-at-a-time through the
// Arith* accessors, which return 0xFF past end-of-stream per the
// QM-coder's byte-stuffing convention rather than erroring.
type BitStream struct {
	data         []byte
	byteIdx      uint32
	bitIdx       uint32
	key          uint64
	littleEndian bool
}

// NewBitStream wraps data for bit-level reading. key is an opaque caller
// tag (used by the orchestrator to correlate streams with globals/page
// segments) and has no bearing on decoding. Absurdly large inputs are
// rejected up front rather than let a corrupt length field drive later
// allocations.
func NewBitStream(data []byte, key uint64) *BitStream {
	if len(data) > 256*1024*1024 {
		data = nil
	}
	return &BitStream{data: data, key: key}
}

// SetLittleEndian switches ReadInteger/ReadShortInteger to little-endian
// byte order, for the file-organization variants that use it.
func (bs *BitStream) SetLittleEndian(le bool) {
	bs.littleEndian = le
}

func (b *BitStream) ReadNBits(bits uint32) (uint32, error) {
	if !b.IsInBounds() {
		return 0, errTruncated("read %d bits past end of stream", bits)
	}
	bitPos := b.GetBitPos()
	lengthInBits := b.lengthInBits()
	if bitPos > lengthInBits {
		return 0, errTruncated("bit position %d exceeds stream length", bitPos)
	}
	var bitsToRead uint32
	if bitPos+bits <= lengthInBits {
		bitsToRead = bits
	} else {
		bitsToRead = lengthInBits - bitPos
	}
	var result uint32
	for i := uint32(0); i < bitsToRead; i++ {
		result = (result << 1) | uint32((b.data[b.byteIdx]>>(7-b.bitIdx))&0x01)
		b.advanceBit()
	}
	return result, nil
}

func (b *BitStream) ReadNBitsInt32(bits uint32) (int32, error) {
	val, err := b.ReadNBits(bits)
	return int32(val), err
}

func (b *BitStream) Read1Bit() (uint32, error) {
	if !b.IsInBounds() {
		return 0, errTruncated("read 1 bit past end of stream")
	}
	result := uint32((b.data[b.byteIdx] >> (7 - b.bitIdx)) & 0x01)
	b.advanceBit()
	return result, nil
}

func (b *BitStream) Read1BitBool() (bool, error) {
	val, err := b.Read1Bit()
	return val != 0, err
}

func (b *BitStream) Read1Byte() (uint8, error) {
	if !b.IsInBounds() {
		return 0, errTruncated("read 1 byte past end of stream")
	}
	result := b.data[b.byteIdx]
	b.byteIdx++
	return result, nil
}

// readFixedWidth reads an n-byte (n = 2 or 4) unsigned integer honoring
// SetLittleEndian, the shared machinery behind ReadInteger and
// ReadShortInteger.
func (b *BitStream) readFixedWidth(n uint32) (uint64, error) {
	if uint64(b.byteIdx)+uint64(n)-1 >= uint64(len(b.data)) {
		return 0, errTruncated("not enough bytes for a %d-byte integer", n)
	}
	var result uint64
	if b.littleEndian {
		for i := uint32(0); i < n; i++ {
			result |= uint64(b.data[b.byteIdx+i]) << (8 * i)
		}
	} else {
		for i := uint32(0); i < n; i++ {
			result = (result << 8) | uint64(b.data[b.byteIdx+i])
		}
	}
	b.byteIdx += n
	return result, nil
}

// ReadInteger reads a 4-byte integer honoring SetLittleEndian.
func (b *BitStream) ReadInteger() (uint32, error) {
	v, err := b.readFixedWidth(4)
	return uint32(v), err
}

// ReadShortInteger reads a 2-byte integer honoring SetLittleEndian.
func (b *BitStream) ReadShortInteger() (uint16, error) {
	v, err := b.readFixedWidth(2)
	return uint16(v), err
}

// AlignByte discards any partial bits so the next read starts on a byte
// boundary. Needed between a Huffman symbol-ID table / collective bitmap
// and whatever follows it in the segment.
func (b *BitStream) AlignByte() {
	if b.bitIdx != 0 {
		b.AddOffset(1)
		b.bitIdx = 0
	}
}

func (b *BitStream) GetCurByte() uint8 {
	if b.IsInBounds() {
		return b.data[b.byteIdx]
	}
	return 0
}

func (b *BitStream) IncByteIdx() {
	b.AddOffset(1)
}

// GetCurByteArith and GetNextByteArith return 0xFF past end-of-stream,
// which is what T.88 Annex E's BYTEIN procedure requires: a stream that
// ends mid-decode behaves as if padded with an infinite run of 0xFF.
func (b *BitStream) GetCurByteArith() uint8 {
	if b.IsInBounds() {
		return b.data[b.byteIdx]
	}
	return 0xFF
}

func (b *BitStream) GetNextByteArith() uint8 {
	if uint64(b.byteIdx)+1 < uint64(len(b.data)) {
		return b.data[b.byteIdx+1]
	}
	return 0xFF
}

func (b *BitStream) GetOffset() uint32 { return b.byteIdx }

func (b *BitStream) SetOffset(offset uint32) {
	size := uint32(len(b.data))
	if offset > size {
		b.byteIdx = size
	} else {
		b.byteIdx = offset
	}
	b.bitIdx = 0
}

func (b *BitStream) AddOffset(delta uint32) {
	newOffset := uint64(b.byteIdx) + uint64(delta)
	if newOffset <= uint64(len(b.data)) {
		b.SetOffset(uint32(newOffset))
	} else {
		b.SetOffset(uint32(len(b.data)))
	}
}

func (b *BitStream) GetBitPos() uint32 { return (b.byteIdx << 3) + b.bitIdx }

func (b *BitStream) SetBitPos(bitPos uint32) {
	b.byteIdx = bitPos >> 3
	b.bitIdx = bitPos & 7
}

func (b *BitStream) GetByteLeft() uint32 {
	if b.byteIdx >= uint32(len(b.data)) {
		return 0
	}
	return uint32(len(b.data)) - b.byteIdx
}

func (b *BitStream) GetLength() uint32 { return uint32(len(b.data)) }

func (b *BitStream) GetPointer() []byte {
	if b.byteIdx >= uint32(len(b.data)) {
		return nil
	}
	return b.data[b.byteIdx:]
}

// DataFrom returns the stream's bytes starting at the given absolute
// byte offset, without moving the stream's current position. Used by
// the unknown-length generic-region scan, which needs to peek at a
// segment's own coded data from its start regardless of how far
// parsing has already advanced into it.
func (b *BitStream) DataFrom(offset uint32) []byte {
	if offset >= uint32(len(b.data)) {
		return nil
	}
	return b.data[offset:]
}

func (b *BitStream) GetKey() uint64 { return b.key }

func (b *BitStream) IsInBounds() bool { return b.byteIdx < uint32(len(b.data)) }

func (b *BitStream) advanceBit() {
	if b.bitIdx == 7 {
		b.byteIdx++
		b.bitIdx = 0
	} else {
		b.bitIdx++
	}
}

func (b *BitStream) lengthInBits() uint32 { return uint32(len(b.data)) * 8 }
