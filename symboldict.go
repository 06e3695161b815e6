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

// SymbolDict holds the bitmaps a symbol dictionary segment exports,
// plus the arithmetic contexts it leaves behind for a later segment
// that refers back to it (§7.2.5's "retained context" mechanism).
type SymbolDict struct {
	gbContexts []ArithCtx
	grContexts []ArithCtx
	Bitmaps    []*Bitmap
}

func NewSymbolDict() *SymbolDict {
	return &SymbolDict{}
}

// DeepCopy returns an independent copy of the dictionary's bitmaps and
// retained contexts.
func (s *SymbolDict) DeepCopy() *SymbolDict {
	dst := NewSymbolDict()
	for _, bm := range s.Bitmaps {
		if bm != nil {
			dst.Bitmaps = append(dst.Bitmaps, bm.Duplicate())
		} else {
			dst.Bitmaps = append(dst.Bitmaps, nil)
		}
	}
	dst.gbContexts = make([]ArithCtx, len(s.gbContexts))
	copy(dst.gbContexts, s.gbContexts)
	dst.grContexts = make([]ArithCtx, len(s.grContexts))
	copy(dst.grContexts, s.grContexts)
	return dst
}

func (s *SymbolDict) AddBitmap(bm *Bitmap) { s.Bitmaps = append(s.Bitmaps, bm) }
func (s *SymbolDict) NumBitmaps() int      { return len(s.Bitmaps) }

func (s *SymbolDict) GetBitmap(index int) *Bitmap {
	if index < 0 || index >= len(s.Bitmaps) {
		return nil
	}
	return s.Bitmaps[index]
}

func (s *SymbolDict) GbContexts() []ArithCtx { return s.gbContexts }
func (s *SymbolDict) GrContexts() []ArithCtx { return s.grContexts }

func (s *SymbolDict) SetGbContexts(contexts []ArithCtx) { s.gbContexts = contexts }
func (s *SymbolDict) SetGrContexts(contexts []ArithCtx) { s.grContexts = contexts }

// SDDProc is the symbol dictionary decoding procedure (T.88 §6.5): it
// decodes a height-class run of new symbol bitmaps, either directly
// (generic region per symbol) or by refinement/aggregation against
// already-known symbols, then reads the export run-length list that
// says which of SDNUMINSYMS+SDNUMNEWSYMS symbols the dictionary
// actually exports.
type SDDProc struct {
	SDHUFF        bool
	SDREFAGG      bool
	SDRTEMPLATE   bool
	SDTEMPLATE    uint8
	SDNUMINSYMS   uint32
	SDNUMNEWSYMS  uint32
	SDNUMEXSYMS   uint32
	SDINSYMS      []*Bitmap
	SDHUFFDH      *HuffmanTable
	SDHUFFDW      *HuffmanTable
	SDHUFFBMSIZE  *HuffmanTable
	SDHUFFAGGINST *HuffmanTable
	SDAT          [8]int8
	SDRAT         [4]int8
}

func NewSDDProc() *SDDProc {
	return &SDDProc{}
}

// DecodeArith decodes a symbol dictionary whose new-symbol bitmaps are
// arithmetically coded (SDHUFF = 0).
func (s *SDDProc) DecodeArith(arithDecoder *ArithDecoder, gbContexts, grContexts []ArithCtx) (*SymbolDict, error) {
	IADH := NewArithIntDecoder()
	IADW := NewArithIntDecoder()
	IAAI := NewArithIntDecoder()
	IARDX := NewArithIntDecoder()
	IARDY := NewArithIntDecoder()
	IAEX := NewArithIntDecoder()
	SBSYMCODELENA := uint8(0)
	for (uint32(1) << SBSYMCODELENA) < (s.SDNUMINSYMS + s.SDNUMNEWSYMS) {
		SBSYMCODELENA++
	}
	IAID := NewArithIaidDecoder(SBSYMCODELENA)
	SDNEWSYMS := make([]*Bitmap, s.SDNUMNEWSYMS)
	HCHEIGHT := uint32(0)
	NSYMSDECODED := uint32(0)
	for NSYMSDECODED < s.SDNUMNEWSYMS {
		var BS *Bitmap
		HCDH, ok := IADH.Decode(arithDecoder)
		if !ok {
			return nil, errDecoderInternal("failed to decode symbol dictionary HCDH")
		}
		HCHEIGHT = uint32(int32(HCHEIGHT) + HCDH)
		if HCHEIGHT > JBig2MaxBitmapSize {
			return nil, errOutOfRange("symbol dictionary height class height too large")
		}
		SYMWIDTH := uint32(0)
		for {
			DW, ok := IADW.Decode(arithDecoder)
			if !ok {
				break
			}
			if NSYMSDECODED >= s.SDNUMNEWSYMS {
				return nil, errInconsistentState("symbol dictionary decoded more new symbols than declared")
			}
			SYMWIDTH = uint32(int32(SYMWIDTH) + DW)
			if SYMWIDTH > JBig2MaxBitmapSize {
				return nil, errOutOfRange("symbol dictionary symbol width too large")
			}
			if HCHEIGHT == 0 || SYMWIDTH == 0 {
				NSYMSDECODED++
				continue
			}
			if !s.SDREFAGG {
				pGRD := NewGRDProc()
				pGRD.MMR = false
				pGRD.GBW = SYMWIDTH
				pGRD.GBH = HCHEIGHT
				pGRD.GBTEMPLATE = s.SDTEMPLATE
				pGRD.TPGDON = false
				pGRD.USESKIP = false
				copy(pGRD.GBAT[:], s.SDAT[:])
				var err error
				BS, err = pGRD.DecodeArith(arithDecoder, gbContexts)
				if err != nil {
					return nil, err
				}
			} else {
				REFAGGNINST, ok := IAAI.Decode(arithDecoder)
				if !ok {
					return nil, errDecoderInternal("failed to decode symbol dictionary REFAGGNINST")
				}
				if REFAGGNINST > 1 {
					return nil, errUnsupported("symbol dictionary aggregate coding with REFAGGNINST > 1")
				} else if REFAGGNINST == 1 {
					SBNUMSYMS := s.SDNUMINSYMS + NSYMSDECODED
					IDI, err := IAID.Decode(arithDecoder)
					if err != nil {
						return nil, err
					}
					if uint32(IDI) >= SBNUMSYMS {
						return nil, errOutOfRange("symbol dictionary refinement symbol ID out of bounds")
					}
					var refSymbol *Bitmap
					if uint32(IDI) < s.SDNUMINSYMS {
						refSymbol = s.SDINSYMS[IDI]
					} else {
						refSymbol = SDNEWSYMS[uint32(IDI)-s.SDNUMINSYMS]
					}
					if refSymbol == nil {
						return nil, errInconsistentState("symbol dictionary refinement references a nil symbol")
					}
					RDXI, _ := IARDX.Decode(arithDecoder)
					RDYI, _ := IARDY.Decode(arithDecoder)
					pGRRD := NewGRRDProc()
					pGRRD.GRW = SYMWIDTH
					pGRRD.GRH = HCHEIGHT
					pGRRD.GRTEMPLATE = s.SDRTEMPLATE
					pGRRD.GRREFERENCE = refSymbol
					pGRRD.GRREFERENCEDX = RDXI
					pGRRD.GRREFERENCEDY = RDYI
					pGRRD.TPGRON = false
					pGRRD.GRAT = s.SDRAT
					BS, err = pGRRD.Decode(arithDecoder, grContexts)
					if err != nil {
						return nil, err
					}
				}
			}
			SDNEWSYMS[NSYMSDECODED] = BS
			NSYMSDECODED++
		}
	}
	return s.export(SDNEWSYMS, func() (int32, bool) { return IAEX.Decode(arithDecoder) })
}

// DecodeHuffman decodes a symbol dictionary whose new-symbol bitmaps
// are Huffman coded (SDHUFF = 1): each height class's symbols are
// packed side by side into one collective bitmap (stored uncompressed
// when BMSIZE is 0, MMR-coded otherwise), then sliced back apart by
// running symbol width.
func (s *SDDProc) DecodeHuffman(stream *BitStream, gbContexts, grContexts []ArithCtx) (*SymbolDict, error) {
	huffmanDecoder := NewHuffmanDecoder(stream)
	SDNEWSYMS := make([]*Bitmap, s.SDNUMNEWSYMS)
	var SDNEWSYMWIDTHS []uint32
	if !s.SDREFAGG {
		SDNEWSYMWIDTHS = make([]uint32, s.SDNUMNEWSYMS)
	}
	HCHEIGHT := uint32(0)
	NSYMSDECODED := uint32(0)
	for NSYMSDECODED < s.SDNUMNEWSYMS {
		var HCDH int32
		if res := huffmanDecoder.DecodeAValue(s.SDHUFFDH, &HCDH); res != 0 {
			return nil, errDecoderInternal("failed to decode symbol dictionary HCDH")
		}
		HCHEIGHT = uint32(int32(HCHEIGHT) + HCDH)
		if HCHEIGHT > JBig2MaxBitmapSize {
			return nil, errOutOfRange("symbol dictionary height class height too large")
		}
		SYMWIDTH := uint32(0)
		TOTWIDTH := uint32(0)
		HCFIRSTSYM := NSYMSDECODED
		for {
			var DW int32
			res := huffmanDecoder.DecodeAValue(s.SDHUFFDW, &DW)
			if res == JBig2OOB {
				break
			}
			if res != 0 {
				return nil, errDecoderInternal("failed to decode symbol dictionary DW")
			}
			if NSYMSDECODED >= s.SDNUMNEWSYMS {
				return nil, errInconsistentState("symbol dictionary decoded more new symbols than declared")
			}
			SYMWIDTH = uint32(int32(SYMWIDTH) + DW)
			if SYMWIDTH > JBig2MaxBitmapSize {
				return nil, errOutOfRange("symbol dictionary symbol width too large")
			}
			TOTWIDTH += SYMWIDTH
			if HCHEIGHT == 0 || SYMWIDTH == 0 {
				NSYMSDECODED++
				continue
			}
			var BS *Bitmap
			if s.SDREFAGG {
				var REFAGGNINST int32
				if huffmanDecoder.DecodeAValue(s.SDHUFFAGGINST, &REFAGGNINST) != 0 {
					return nil, errDecoderInternal("failed to decode symbol dictionary REFAGGNINST")
				}
				if REFAGGNINST > 1 {
					return nil, errUnsupported("symbol dictionary aggregate coding with REFAGGNINST > 1")
				} else if REFAGGNINST == 1 {
					SBNUMSYMS := s.SDNUMINSYMS + NSYMSDECODED
					nTmp := uint32(1)
					for (uint32(1) << nTmp) < SBNUMSYMS {
						nTmp++
					}
					SBSYMCODELEN := nTmp
					IDI := uint32(0)
					for n := uint32(0); n < SBSYMCODELEN; n++ {
						val, err := stream.Read1Bit()
						if err != nil {
							return nil, err
						}
						IDI = (IDI << 1) | val
					}
					if IDI >= SBNUMSYMS {
						return nil, errOutOfRange("symbol dictionary refinement symbol ID out of bounds")
					}
					var refSymbol *Bitmap
					if IDI < s.SDNUMINSYMS {
						refSymbol = s.SDINSYMS[IDI]
					} else {
						refSymbol = SDNEWSYMS[IDI-s.SDNUMINSYMS]
					}
					if refSymbol == nil {
						return nil, errInconsistentState("symbol dictionary refinement references a nil symbol")
					}
					SBHUFFRDX := NewStandardTable(15)
					SBHUFFRSIZE := NewStandardTable(1)
					var RDXI, RDYI, nVal int32
					if huffmanDecoder.DecodeAValue(SBHUFFRDX, &RDXI) != 0 ||
						huffmanDecoder.DecodeAValue(SBHUFFRDX, &RDYI) != 0 ||
						huffmanDecoder.DecodeAValue(SBHUFFRSIZE, &nVal) != 0 {
						return nil, errDecoderInternal("failed to decode symbol dictionary refinement values")
					}
					stream.AlignByte()
					nTmpOffset := stream.GetOffset()
					pGRRD := NewGRRDProc()
					pGRRD.GRW = SYMWIDTH
					pGRRD.GRH = HCHEIGHT
					pGRRD.GRTEMPLATE = s.SDRTEMPLATE
					pGRRD.GRREFERENCE = refSymbol
					pGRRD.GRREFERENCEDX = RDXI
					pGRRD.GRREFERENCEDY = RDYI
					pGRRD.TPGRON = false
					pGRRD.GRAT = s.SDRAT
					arithDecoder := NewArithDecoder(stream)
					var err error
					BS, err = pGRRD.Decode(arithDecoder, grContexts)
					if err != nil {
						return nil, err
					}
					stream.AlignByte()
					stream.AddOffset(2)
					_ = nTmpOffset
					_ = nVal
				}
				SDNEWSYMS[NSYMSDECODED] = BS
			}
			if !s.SDREFAGG {
				SDNEWSYMWIDTHS[NSYMSDECODED] = SYMWIDTH
			}
			NSYMSDECODED++
		}
		if !s.SDREFAGG {
			var BMSIZE int32
			if huffmanDecoder.DecodeAValue(s.SDHUFFBMSIZE, &BMSIZE) != 0 {
				return nil, errDecoderInternal("failed to decode symbol dictionary BMSIZE")
			}
			stream.AlignByte()
			var BHC *Bitmap
			if BMSIZE == 0 {
				stride := (TOTWIDTH + 7) / 8
				if stream.GetByteLeft() < stride*HCHEIGHT {
					return nil, errTruncated("insufficient data for symbol dictionary collective bitmap")
				}
				BHC = NewBitmap(int32(TOTWIDTH), int32(HCHEIGHT))
				data := stream.GetPointer()
				bhcData := BHC.Data()
				for i := uint32(0); i < HCHEIGHT; i++ {
					copy(bhcData[int32(i)*BHC.Stride():], data[i*stride:i*stride+stride])
				}
				stream.AddOffset(stride * HCHEIGHT)
			} else {
				pGRD := NewGRDProc()
				pGRD.MMR = true
				pGRD.GBW = TOTWIDTH
				pGRD.GBH = HCHEIGHT
				pGRD.StartDecodeMMR(&BHC, stream)
				stream.AlignByte()
			}
			if BHC != nil {
				nTmp := uint32(0)
				currentSym := HCFIRSTSYM
				for i := uint32(0); i < NSYMSDECODED-HCFIRSTSYM; i++ {
					idx := currentSym + i
					SDNEWSYMS[idx] = BHC.SubBitmap(int32(nTmp), 0, int32(SDNEWSYMWIDTHS[idx]), int32(HCHEIGHT))
					nTmp += SDNEWSYMWIDTHS[idx]
				}
			}
		}
	}
	pTable := NewStandardTable(1)
	return s.export(SDNEWSYMS, func() (int32, bool) {
		var v int32
		ok := huffmanDecoder.DecodeAValue(pTable, &v) == 0
		return v, ok
	})
}

// export reads the export run-length list (§6.5.10, shared between the
// arithmetic and Huffman paths) and assembles the resulting SymbolDict
// from SDINSYMS plus the freshly decoded SDNEWSYMS.
func (s *SDDProc) export(newSyms []*Bitmap, decodeRun func() (int32, bool)) (*SymbolDict, error) {
	total := s.SDNUMINSYMS + s.SDNUMNEWSYMS
	EXFLAGS := make([]bool, total)
	CUREXFLAG := false
	EXINDEX := uint32(0)
	numExSyms := uint32(0)
	for EXINDEX < total {
		EXRUNLENGTH, ok := decodeRun()
		if !ok {
			return nil, errDecoderInternal("failed to decode symbol dictionary export run length")
		}
		if EXINDEX+uint32(EXRUNLENGTH) > total {
			return nil, errOutOfRange("symbol dictionary export run length out of bounds")
		}
		if CUREXFLAG {
			numExSyms += uint32(EXRUNLENGTH)
		}
		for i := uint32(0); i < uint32(EXRUNLENGTH); i++ {
			EXFLAGS[EXINDEX+i] = CUREXFLAG
		}
		EXINDEX += uint32(EXRUNLENGTH)
		CUREXFLAG = !CUREXFLAG
	}
	if numExSyms != s.SDNUMEXSYMS {
		return nil, errDecoderInternal("symbol dictionary export count does not match SDNUMEXSYMS")
	}
	dict := NewSymbolDict()
	for i := uint32(0); i < total; i++ {
		if !EXFLAGS[i] {
			continue
		}
		if i < s.SDNUMINSYMS {
			bm := s.SDINSYMS[i]
			if bm != nil {
				dict.AddBitmap(bm.Duplicate())
			} else {
				dict.AddBitmap(nil)
			}
		} else {
			dict.AddBitmap(newSyms[i-s.SDNUMINSYMS])
		}
	}
	return dict, nil
}
