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

import (
	"bytes"
	"io"

	"golang.org/x/image/ccitt"
)

// DecodeG4 decodes an MMR (CCITT Group 4) bitstream into image, starting
// at the current byte-aligned stream position, and advances stream past
// the bytes ccitt.Reader actually consumed. Every MMR code path in this
// package (generic regions, pattern dictionaries, and symbol-dictionary
// Huffman collective bitmaps) funnels through this one routine rather
// than each maintaining its own Group 4 state machine.
func DecodeG4(stream *BitStream, image *Bitmap) error {
	stream.AlignByte()
	data := stream.GetPointer()
	if data == nil {
		return errTruncated("no data remaining for MMR decode")
	}
	reader := bytes.NewReader(data)
	decoder := ccitt.NewReader(reader, ccitt.MSB, ccitt.Group4,
		int(image.Width()), int(image.Height()), &ccitt.Options{Invert: false})
	if err := copyDecodedRows(decoder, image); err != nil {
		return err
	}
	stream.AddOffset(uint32(int64(len(data)) - int64(reader.Len())))
	return nil
}

// copyDecodedRows pulls one Group 4 scanline at a time out of decoder
// and writes it into image's packed pixel buffer. A scanline decoder
// that runs dry partway through (MMR's End-Of-Block, or truncated
// input) just leaves the remaining rows at their zero value rather than
// failing the whole region.
func copyDecodedRows(decoder io.Reader, image *Bitmap) error {
	rowBytes := (int(image.Width()) + 7) / 8
	stride := int(image.Stride())
	imgData := image.Data()
	buf := make([]byte, rowBytes)
	for y := 0; y < int(image.Height()); y++ {
		if _, err := io.ReadFull(decoder, buf); err != nil {
			return nil
		}
		start := y * stride
		if start+rowBytes > len(imgData) {
			return errDecoderInternal("MMR row write overruns bitmap buffer")
		}
		copy(imgData[start:start+rowBytes], buf)
	}
	return nil
}
