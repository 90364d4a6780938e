package codestream

import (
	"bytes"
	"encoding/binary"
)

// Writer assembles a single-tile codestream
type Writer struct {
	buf bytes.Buffer
}

func (w *Writer) marker(m uint16) {
	_ = binary.Write(&w.buf, binary.BigEndian, m)
}

func (w *Writer) segment(m uint16, body []byte) {
	w.marker(m)
	_ = binary.Write(&w.buf, binary.BigEndian, uint16(len(body)+2))
	w.buf.Write(body)
}

// WriteHeader writes SOC and the SIZ, COD and QCD segments
func (w *Writer) WriteHeader(siz *SIZSegment, cod *CODSegment, qcd *QCDSegment) {
	w.marker(MarkerSOC)

	var b bytes.Buffer
	for _, v := range []any{siz.Rsiz, siz.Xsiz, siz.Ysiz, siz.XOsiz, siz.YOsiz,
		siz.XTsiz, siz.YTsiz, siz.XTOsiz, siz.YTOsiz, uint16(len(siz.Components))} {
		_ = binary.Write(&b, binary.BigEndian, v)
	}
	for _, c := range siz.Components {
		b.Write([]byte{c.Ssiz, c.XRsiz, c.YRsiz})
	}
	w.segment(MarkerSIZ, b.Bytes())

	b.Reset()
	b.Write([]byte{cod.Scod, cod.ProgressionOrder})
	_ = binary.Write(&b, binary.BigEndian, cod.NumberOfLayers)
	b.Write([]byte{cod.MultipleComponentTransform, cod.NumberOfDecompositionLevels,
		cod.CodeBlockWidth, cod.CodeBlockHeight, cod.CodeBlockStyle, cod.Transformation})
	if cod.Scod&ScodPrecincts != 0 {
		for _, ps := range cod.PrecinctSizes {
			b.WriteByte(ps.PPy<<4 | ps.PPx&0x0F)
		}
	}
	w.segment(MarkerCOD, b.Bytes())

	w.segment(MarkerQCD, append([]byte{qcd.Sqcd}, qcd.SPqcd...))
}

// WriteTile writes one tile-part holding all of the tile's packet data
func (w *Writer) WriteTile(data []byte) {
	var b bytes.Buffer
	_ = binary.Write(&b, binary.BigEndian, uint16(0))
	// Psot counts SOT (12 bytes), SOD and the data
	_ = binary.Write(&b, binary.BigEndian, uint32(12+2+len(data)))
	b.Write([]byte{0, 1})
	w.segment(MarkerSOT, b.Bytes())
	w.marker(MarkerSOD)
	w.buf.Write(data)
}

// Bytes appends EOC and returns the codestream
func (w *Writer) Bytes() []byte {
	w.marker(MarkerEOC)
	return w.buf.Bytes()
}
