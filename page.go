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

// PageInfo is a parsed page information segment (type 48, §7.4.8): the
// page bitmap's declared size, resolution, and default pixel value,
// plus the striping parameters a striped page's region segments grow
// it by.
type PageInfo struct {
	Width             uint32
	Height            uint32
	ResolutionX       uint32
	ResolutionY       uint32
	DefaultPixelValue bool
	IsStriped         bool
	MaxStripeSize     uint16
}

// parsePageInfo parses a page information segment and allocates the
// page bitmap. A page whose Height field reads 0xFFFFFFFF is of
// unknown final height (§7.4.8.5): it starts at MaxStripeSize rows and
// grows as striped region segments arrive past its current bottom.
func (d *Document) parsePageInfo(segment *Segment) Result {
	pi := &PageInfo{}
	if val, err := d.stream.ReadInteger(); err != nil {
		return ResultFailure
	} else {
		pi.Width = val
	}
	if val, err := d.stream.ReadInteger(); err != nil {
		return ResultFailure
	} else {
		pi.Height = val
	}
	if val, err := d.stream.ReadInteger(); err != nil {
		return ResultFailure
	} else {
		pi.ResolutionX = val
	}
	if val, err := d.stream.ReadInteger(); err != nil {
		return ResultFailure
	} else {
		pi.ResolutionY = val
	}
	var flags byte
	if val, err := d.stream.Read1Byte(); err != nil {
		return ResultFailure
	} else {
		flags = val
	}
	var striping uint16
	if val, err := d.stream.ReadShortInteger(); err != nil {
		return ResultFailure
	} else {
		striping = val
	}
	pi.DefaultPixelValue = (flags & 4) != 0
	pi.IsStriped = (striping & 0x8000) != 0
	pi.MaxStripeSize = striping & 0x7FFF
	height := pi.Height
	if height == 0xFFFFFFFF {
		height = uint32(pi.MaxStripeSize)
	}
	d.page = NewBitmap(int32(pi.Width), int32(height))
	if d.page == nil {
		return ResultFailure
	}
	d.page.Fill(pi.DefaultPixelValue)
	d.pageInfoList = append(d.pageInfoList, pi)
	d.inPage = true
	return ResultSuccess
}

// regionComposeOp decodes a region info field's 3-bit external
// combination operator: value 4 is REPLACE, and any other value keeps
// only its low two bits (OR, AND, XOR, XNOR).
func regionComposeOp(flags uint8) ComposeOp {
	if (flags & 0x07) == 4 {
		return ComposeReplace
	}
	return ComposeOp(flags & 0x03)
}

// composeRegionOntoPage grows a striped page to fit the region if
// necessary, then composites bm at (ri.X+dx, ri.Y+dy) using the
// operator named in ri.Flags. Shared by every immediate region type
// (text, halftone, generic, refinement).
func (d *Document) composeRegionOntoPage(ri *RegionInfo, bm *Bitmap, dx, dy int32) {
	if !d.bufSpecified && len(d.pageInfoList) > 0 {
		pi := d.pageInfoList[len(d.pageInfoList)-1]
		if pi.IsStriped {
			newHeight := uint32(ri.Y) + uint32(ri.Height)
			if newHeight > uint32(d.page.Height()) {
				d.page.Expand(int32(newHeight), pi.DefaultPixelValue)
			}
		}
	}
	d.page.ComposeFrom(ri.X+dx, ri.Y+dy, bm, regionComposeOp(ri.Flags))
}
