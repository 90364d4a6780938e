// Package codestream reads and writes JPEG 2000 codestream marker segments.
//
// Reference: ISO/IEC 15444-1:2019 Annex A
package codestream

import (
	"encoding/binary"
	"fmt"
)

// Parser parses JPEG 2000 codestreams
type Parser struct {
	data   []byte
	offset int
}

// NewParser creates a parser over data
func NewParser(data []byte) *Parser {
	return &Parser{data: data}
}

// Parse reads the main header and every tile-part of a single-tile codestream
func (p *Parser) Parse() (*Codestream, error) {
	marker, err := p.readUint16()
	if err != nil {
		return nil, err
	}
	if marker != MarkerSOC {
		return nil, fmt.Errorf("%w: expected SOC marker, got 0x%04X", ErrMalformed, marker)
	}

	cs := &Codestream{}
	if err := p.parseMainHeader(cs); err != nil {
		return nil, err
	}

	nextPart := 0
	for p.offset+2 <= len(p.data) {
		marker, err := p.readUint16()
		if err != nil {
			return nil, err
		}
		if marker == MarkerEOC {
			return cs, nil
		}
		if marker != MarkerSOT {
			return nil, fmt.Errorf("%w: unexpected marker 0x%04X (%s) between tile-parts",
				ErrMalformed, marker, MarkerName(marker))
		}
		data, sot, err := p.parseTilePart()
		if err != nil {
			return nil, err
		}
		if sot.Isot != 0 {
			return nil, fmt.Errorf("%w: tile %d in a single-tile image", ErrUnsupported, sot.Isot)
		}
		if int(sot.TPsot) != nextPart {
			return nil, fmt.Errorf("%w: tile-part %d out of order", ErrMalformed, sot.TPsot)
		}
		nextPart++
		cs.TileData = append(cs.TileData, data...)
	}
	// a missing EOC is tolerated once the tile data has been read
	if nextPart == 0 {
		return nil, fmt.Errorf("%w: no tile-parts", ErrMalformed)
	}
	return cs, nil
}

func (p *Parser) parseMainHeader(cs *Codestream) error {
	for {
		marker, err := p.peekUint16()
		if err != nil {
			return err
		}
		if marker == MarkerSOT {
			break
		}
		p.offset += 2

		switch {
		case marker == MarkerSIZ:
			if cs.SIZ, err = p.parseSIZ(); err != nil {
				return err
			}
		case marker == MarkerCOD:
			if cs.COD, err = p.parseCOD(); err != nil {
				return err
			}
		case marker == MarkerQCD:
			if cs.QCD, err = p.parseQCD(); err != nil {
				return err
			}
		case ignorable(marker):
			if err := p.skipSegment(); err != nil {
				return err
			}
		case marker>>8 == 0xFF:
			return fmt.Errorf("%w: %s marker segment", ErrUnsupported, MarkerName(marker))
		default:
			return fmt.Errorf("%w: expected marker, got 0x%04X", ErrMalformed, marker)
		}

		if marker != MarkerSIZ && cs.SIZ == nil {
			return fmt.Errorf("%w: SIZ must follow SOC", ErrMalformed)
		}
	}

	if cs.SIZ == nil || cs.COD == nil || cs.QCD == nil {
		return fmt.Errorf("%w: main header lacks SIZ, COD or QCD", ErrMalformed)
	}
	return nil
}

func (p *Parser) parseSIZ() (*SIZSegment, error) {
	seg, err := p.segment()
	if err != nil {
		return nil, err
	}
	if len(seg) < 36 {
		return nil, fmt.Errorf("%w: SIZ segment too short", ErrMalformed)
	}
	be := binary.BigEndian
	siz := &SIZSegment{
		Rsiz:   be.Uint16(seg[0:]),
		Xsiz:   be.Uint32(seg[2:]),
		Ysiz:   be.Uint32(seg[6:]),
		XOsiz:  be.Uint32(seg[10:]),
		YOsiz:  be.Uint32(seg[14:]),
		XTsiz:  be.Uint32(seg[18:]),
		YTsiz:  be.Uint32(seg[22:]),
		XTOsiz: be.Uint32(seg[26:]),
		YTOsiz: be.Uint32(seg[30:]),
		Csiz:   be.Uint16(seg[34:]),
	}
	if siz.Csiz == 0 || len(seg) != 36+3*int(siz.Csiz) {
		return nil, fmt.Errorf("%w: SIZ segment length %d for %d components", ErrMalformed, len(seg)+2, siz.Csiz)
	}
	siz.Components = make([]ComponentSize, siz.Csiz)
	for i := range siz.Components {
		b := seg[36+3*i:]
		siz.Components[i] = ComponentSize{Ssiz: b[0], XRsiz: b[1], YRsiz: b[2]}
	}
	return siz, nil
}

func (p *Parser) parseCOD() (*CODSegment, error) {
	seg, err := p.segment()
	if err != nil {
		return nil, err
	}
	if len(seg) < 10 {
		return nil, fmt.Errorf("%w: COD segment too short", ErrMalformed)
	}
	cod := &CODSegment{
		Scod:                        seg[0],
		ProgressionOrder:            seg[1],
		NumberOfLayers:              binary.BigEndian.Uint16(seg[2:]),
		MultipleComponentTransform:  seg[4],
		NumberOfDecompositionLevels: seg[5],
		CodeBlockWidth:              seg[6],
		CodeBlockHeight:             seg[7],
		CodeBlockStyle:              seg[8],
		Transformation:              seg[9],
	}
	if cod.Scod&ScodPrecincts != 0 {
		count := int(cod.NumberOfDecompositionLevels) + 1
		if len(seg) < 10+count {
			return nil, fmt.Errorf("%w: COD lacks precinct sizes", ErrMalformed)
		}
		cod.PrecinctSizes = make([]PrecinctSize, count)
		for i := range cod.PrecinctSizes {
			b := seg[10+i]
			cod.PrecinctSizes[i] = PrecinctSize{PPx: b & 0x0F, PPy: b >> 4}
		}
	}
	return cod, nil
}

func (p *Parser) parseQCD() (*QCDSegment, error) {
	seg, err := p.segment()
	if err != nil {
		return nil, err
	}
	if len(seg) < 1 {
		return nil, fmt.Errorf("%w: QCD segment too short", ErrMalformed)
	}
	return &QCDSegment{Sqcd: seg[0], SPqcd: seg[1:]}, nil
}

// parseTilePart reads one tile-part after its SOT marker and returns its
// packet data
func (p *Parser) parseTilePart() ([]byte, *SOTSegment, error) {
	start := p.offset - 2
	seg, err := p.segment()
	if err != nil {
		return nil, nil, err
	}
	if len(seg) != 8 {
		return nil, nil, fmt.Errorf("%w: SOT segment length %d", ErrMalformed, len(seg)+2)
	}
	sot := &SOTSegment{
		Isot:  binary.BigEndian.Uint16(seg[0:]),
		Psot:  binary.BigEndian.Uint32(seg[2:]),
		TPsot: seg[6],
		TNsot: seg[7],
	}

	// tile-part header
	for {
		marker, err := p.readUint16()
		if err != nil {
			return nil, nil, err
		}
		if marker == MarkerSOD {
			break
		}
		if !ignorable(marker) {
			return nil, nil, fmt.Errorf("%w: %s marker in tile-part header", ErrUnsupported, MarkerName(marker))
		}
		if err := p.skipSegment(); err != nil {
			return nil, nil, err
		}
	}

	end := len(p.data)
	if sot.Psot != 0 {
		end = start + int(sot.Psot)
	} else if end >= 2 && binary.BigEndian.Uint16(p.data[end-2:]) == MarkerEOC {
		end -= 2
	}
	if end < p.offset || end > len(p.data) {
		return nil, nil, fmt.Errorf("%w: tile-part length %d exceeds the data", ErrMalformed, sot.Psot)
	}
	data := p.data[p.offset:end]
	p.offset = end
	return data, sot, nil
}

// segment reads a marker segment length and returns its body
func (p *Parser) segment() ([]byte, error) {
	length, err := p.readUint16()
	if err != nil {
		return nil, err
	}
	if length < 2 || p.offset+int(length)-2 > len(p.data) {
		return nil, fmt.Errorf("%w: segment length %d", ErrMalformed, length)
	}
	seg := p.data[p.offset : p.offset+int(length)-2]
	p.offset += int(length) - 2
	return seg, nil
}

func (p *Parser) skipSegment() error {
	_, err := p.segment()
	return err
}

func (p *Parser) peekUint16() (uint16, error) {
	if p.offset+2 > len(p.data) {
		return 0, fmt.Errorf("%w: unexpected end of data", ErrMalformed)
	}
	return binary.BigEndian.Uint16(p.data[p.offset:]), nil
}

func (p *Parser) readUint16() (uint16, error) {
	v, err := p.peekUint16()
	if err == nil {
		p.offset += 2
	}
	return v, err
}
