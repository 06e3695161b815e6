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
	"errors"
	"fmt"
)

// ErrorKind classifies a decode failure. Every error value returned by
// this package, directly or wrapped, carries exactly one of these.
type ErrorKind int

const (
	// KindMalformedHeader covers bad ID bytes and reserved bits set in
	// file, segment, region, or page flags.
	KindMalformedHeader ErrorKind = iota
	// KindOutOfRange covers a referred-to number >= its own segment
	// number, a region placed outside the page, or an adaptive pixel
	// outside its legal half-plane.
	KindOutOfRange
	// KindTruncated covers a declared data length exceeding the input,
	// or an unknown-length region whose terminator was never found.
	KindTruncated
	// KindUnsupported covers EXTTEMPLATE, color segments, refinement
	// with typical prediction, MMR inside grayscale decoding, and
	// aggregate REFAGGNINST > 1. Standard Huffman tables C/E/O are not
	// rejected: all fifteen standard tables are built and used.
	KindUnsupported
	// KindInconsistentState covers multiple page-information segments,
	// a missing page-information segment, a file-organization stream
	// missing its end-of-page segment, an end-of-file segment that
	// isn't last, non-increasing stripe Y, or a stripe taller than the
	// declared maximum.
	KindInconsistentState
	// KindDecoderInternal covers an OOB sentinel surfacing where a real
	// integer was required, a symbol ID outside its pool, or an export
	// count that doesn't match what was decoded.
	KindDecoderInternal
)

func (k ErrorKind) String() string {
	switch k {
	case KindMalformedHeader:
		return "malformed header"
	case KindOutOfRange:
		return "out of range"
	case KindTruncated:
		return "truncated"
	case KindUnsupported:
		return "unsupported"
	case KindInconsistentState:
		return "inconsistent state"
	case KindDecoderInternal:
		return "decoder internal"
	default:
		return "unknown"
	}
}

// DecodeError is the error type every failure path in this package
// returns. Kind lets callers distinguish a malformed stream from an
// unsupported-but-legal feature without string matching.
type DecodeError struct {
	Kind ErrorKind
	Msg  string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("jbig2: %s: %s", e.Kind, e.Msg)
}

func newError(kind ErrorKind, format string, args ...interface{}) *DecodeError {
	return &DecodeError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func errMalformedHeader(format string, args ...interface{}) error {
	return newError(KindMalformedHeader, format, args...)
}

func errOutOfRange(format string, args ...interface{}) error {
	return newError(KindOutOfRange, format, args...)
}

func errTruncated(format string, args ...interface{}) error {
	return newError(KindTruncated, format, args...)
}

func errUnsupported(format string, args ...interface{}) error {
	return newError(KindUnsupported, format, args...)
}

func errInconsistentState(format string, args ...interface{}) error {
	return newError(KindInconsistentState, format, args...)
}

func errDecoderInternal(format string, args ...interface{}) error {
	return newError(KindDecoderInternal, format, args...)
}

// KindOf extracts the ErrorKind from err, if err (or something it wraps)
// is a *DecodeError. The ok result is false for any other error.
func KindOf(err error) (ErrorKind, bool) {
	var de *DecodeError
	if !errors.As(err, &de) {
		return 0, false
	}
	return de.Kind, true
}
