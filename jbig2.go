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

// Package jbig2 decodes ITU-T T.88 bi-level images: both the
// self-delimited file organization (§7.2/§7.3) and the headerless
// segment sequences PDF's JBIG2Decode filter hands out.
package jbig2

import (
	"bytes"
	"image"
	"image/color"
	"io"
)

var jbig2ID = []byte{0x97, 0x4A, 0x42, 0x32, 0x0D, 0x0A, 0x1A, 0x0A}

// Sniff reports whether data begins with the JBIG2 file header ID
// (§7.2.1). It does not look inside an embedded, headerless stream —
// those have no ID to sniff; callers that already know they hold one
// skip straight to DecodeEmbedded.
func Sniff(data []byte) bool {
	return bytes.HasPrefix(data, jbig2ID)
}

// Decoder holds every page decoded from one Open call. A fatal error
// during Open leaves the Decoder in an error state: Frame returns that
// same error for any index, with no partial page ever surfaced (§7).
type Decoder struct {
	pages []*Bitmap
	err   error
}

// Open parses the file header and every segment header, decodes each
// page to completion, and validates page sizes as it goes (a bad
// width/height rejects during the page-information segment, not
// later). The whole input is already in memory per the package's
// synchronous, fully-buffered model, so there is no benefit to
// deferring decode past Open: Frame is then a plain index into
// already-decoded pages.
func Open(data []byte) (*Decoder, error) {
	return OpenWithGlobals(data, nil)
}

// OpenWithGlobals is Open for the case where symbol dictionaries are
// factored out into a separate "JBIG2Globals" segment stream, shared
// across several embedded pages (the PDF convention).
func OpenWithGlobals(data, globals []byte) (*Decoder, error) {
	if !Sniff(data) {
		return nil, errMalformedHeader("input does not begin with the JBIG2 file header ID")
	}
	if len(data) < 9 {
		return nil, errTruncated("file header flags byte missing")
	}
	flags := data[8]
	if flags&0xFC != 0 {
		return nil, errMalformedHeader("reserved bits set in file header flags")
	}
	sequential := flags&0x01 != 0
	hasPageCount := flags&0x02 == 0
	headerLen := 9
	if hasPageCount {
		headerLen = 13
	}
	if len(data) < headerLen {
		return nil, errTruncated("file header page count missing")
	}
	doc := NewDocument(data[headerLen:], globals, false, false)
	doc.OrgMode = 1
	doc.Grouped = !sequential

	dec := &Decoder{}
	if doc.globalContext != nil {
		doc.globalContext.OrgMode = 1
		if err := drainGlobalSegments(doc.globalContext); err != nil {
			dec.err = err
			return dec, err
		}
	}
	if err := dec.decodeAll(doc); err != nil {
		dec.err = err
		return dec, err
	}
	return dec, nil
}

// DecodeEmbedded decodes a single page handed to the decoder as a list
// of pre-segmented byte slices rather than a self-delimited file: the
// PDF JBIG2Decode case, where a JBIG2Globals stream (if any) and the
// page's own segment data arrive as separate byte arrays with no file
// header at all. The last slice is the page data; any earlier slices
// are concatenated and parsed first as globals, matching how a PDF
// producer splits a shared symbol dictionary out from per-page data.
// Exactly one page must result.
func DecodeEmbedded(segments [][]byte) ([]byte, error) {
	if len(segments) == 0 {
		return nil, errMalformedHeader("no embedded segment data supplied")
	}
	data := segments[len(segments)-1]
	var globals []byte
	if len(segments) > 1 {
		globals = bytes.Join(segments[:len(segments)-1], nil)
	}
	doc := NewDocument(data, globals, false, false)
	doc.OrgMode = 1
	if doc.globalContext != nil {
		doc.globalContext.OrgMode = 1
		if err := drainGlobalSegments(doc.globalContext); err != nil {
			return nil, err
		}
	}
	dec := &Decoder{}
	if err := dec.decodeAll(doc); err != nil {
		return nil, err
	}
	if len(dec.pages) != 1 {
		return nil, errInconsistentState("embedded input must decode to exactly one page, decoded %d", len(dec.pages))
	}
	return dec.pages[0].Data(), nil
}

// drainGlobalSegments parses every segment in a JBIG2Globals stream
// (symbol dictionaries and code tables only — globals carry no region
// or page-information segments of their own).
func drainGlobalSegments(globalDoc *Document) error {
	for {
		res := globalDoc.DecodeSequential()
		if res == ResultEndReached {
			return nil
		}
		if res != ResultPageCompleted {
			if globalDoc.lastErr != nil {
				return globalDoc.lastErr
			}
			return errDecoderInternal("failed to parse global segments")
		}
	}
}

// decodeAll runs doc to completion, one page at a time, collecting
// each finished page's bitmap. A stream with no explicit end-of-page
// segment (the headerless embedded case) still yields its one
// in-progress page once the data runs out.
func (d *Decoder) decodeAll(doc *Document) error {
	for {
		res := doc.DecodeSequential()
		switch res {
		case ResultPageCompleted:
			d.pages = append(d.pages, doc.page)
			if n := len(doc.segmentList); n > 0 {
				doc.ReleasePageSegments(doc.segmentList[n-1].PageAssociation)
			}
			doc.page = nil
		case ResultEndReached:
			if doc.inPage && doc.page != nil {
				d.pages = append(d.pages, doc.page)
				doc.page = nil
			}
			return nil
		default:
			if doc.lastErr != nil {
				return doc.lastErr
			}
			return errDecoderInternal("segment stream parse failed")
		}
	}
}

// Frame decodes the page at page_numbers[index] — in practice, since
// Open already decoded every page, a lookup — and returns its bitmap.
// Once a Decoder holds an error (from a failed Open), every Frame call
// returns that same error regardless of index, and no bitmap is ever
// returned alongside it (§7).
func (d *Decoder) Frame(index int) (*Bitmap, error) {
	if d.err != nil {
		return nil, d.err
	}
	if index < 0 || index >= len(d.pages) {
		return nil, errOutOfRange("page index %d out of range (%d pages)", index, len(d.pages))
	}
	return d.pages[index], nil
}

// PageCount returns the number of pages Open decoded.
func (d *Decoder) PageCount() int {
	return len(d.pages)
}

// Decode decodes the JBIG2 stream read from r and returns its first
// page as a standard library image, for interop with image.Decode.
func Decode(r io.Reader) (image.Image, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	dec, err := Open(data)
	if err != nil {
		return nil, err
	}
	bm, err := dec.Frame(0)
	if err != nil {
		return nil, err
	}
	return bm.ToGoImage(), nil
}

// DecodeConfig reports the first page's dimensions without decoding
// its pixels.
func DecodeConfig(r io.Reader) (image.Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return image.Config{}, err
	}
	dec, err := Open(data)
	if err != nil {
		return image.Config{}, err
	}
	bm, err := dec.Frame(0)
	if err != nil {
		return image.Config{}, err
	}
	return image.Config{
		ColorModel: color.GrayModel,
		Width:      int(bm.Width()),
		Height:     int(bm.Height()),
	}, nil
}

func init() {
	image.RegisterFormat("jbig2", string(jbig2ID), Decode, DecodeConfig)
}

// ToGoImage renders the bitmap as a standard library grayscale image
// (black = a set bit, per JBIG2's foreground convention).
func (i *Bitmap) ToGoImage() image.Image {
	if i == nil {
		return nil
	}
	w, h := int(i.width), int(i.height)
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if i.GetPixel(int32(x), int32(y)) != 0 {
				img.SetGray(x, y, color.Gray{Y: 0})
			} else {
				img.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return img
}
