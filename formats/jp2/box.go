package jp2

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/cocosip/go-rasterstats/codec"
)

// JP2 box types, ISO/IEC 15444-1 Annex I
const (
	boxSignature  = 0x6A502020 // 'jP  '
	boxFileType   = 0x66747970 // 'ftyp'
	boxHeader     = 0x6A703268 // 'jp2h'
	boxImageHdr   = 0x69686472 // 'ihdr'
	boxColour     = 0x636F6C72 // 'colr'
	boxCodestream = 0x6A703263 // 'jp2c'

	brandJP2 = 0x6A703220 // 'jp2 '

	// enumerated colourspaces of the colr box
	csSRGB = 16
	csGray = 17
)

var signature = []byte{0x00, 0x00, 0x00, 0x0C, 0x6A, 0x50, 0x20, 0x20, 0x0D, 0x0A, 0x87, 0x0A}

// isJP2 reports whether data starts with the JP2 signature box
func isJP2(data []byte) bool {
	return bytes.HasPrefix(data, signature)
}

type box struct {
	typ     uint32
	payload []byte
}

// readBoxes splits data into top-level boxes, honouring extended (XLBox)
// and run-to-end (LBox 0) lengths
func readBoxes(data []byte) ([]box, error) {
	var boxes []box
	for len(data) > 0 {
		if len(data) < 8 {
			return nil, fmt.Errorf("jp2: %w: truncated box header", codec.ErrUnsupportedFormat)
		}
		length := uint64(binary.BigEndian.Uint32(data))
		typ := binary.BigEndian.Uint32(data[4:])
		header := uint64(8)
		switch length {
		case 0:
			length = uint64(len(data))
		case 1:
			if len(data) < 16 {
				return nil, fmt.Errorf("jp2: %w: truncated extended box length", codec.ErrUnsupportedFormat)
			}
			length = binary.BigEndian.Uint64(data[8:])
			header = 16
		}
		if length < header || length > uint64(len(data)) {
			return nil, fmt.Errorf("jp2: %w: box length %d with %d bytes left", codec.ErrUnsupportedFormat, length, len(data))
		}
		boxes = append(boxes, box{typ: typ, payload: data[header:length]})
		data = data[length:]
	}
	return boxes, nil
}

// extractCodestream returns the contiguous codestream of a JP2 file
func extractCodestream(data []byte) ([]byte, error) {
	boxes, err := readBoxes(data)
	if err != nil {
		return nil, err
	}
	if len(boxes) < 2 || boxes[0].typ != boxSignature || boxes[1].typ != boxFileType {
		return nil, fmt.Errorf("jp2: %w: missing signature or file type box", codec.ErrUnsupportedFormat)
	}
	for _, b := range boxes[2:] {
		if b.typ == boxCodestream {
			return b.payload, nil
		}
	}
	return nil, fmt.Errorf("jp2: %w: no contiguous codestream box", codec.ErrUnsupportedFormat)
}

func writeBox(buf *bytes.Buffer, typ uint32, payload []byte) {
	_ = binary.Write(buf, binary.BigEndian, uint32(8+len(payload)))
	_ = binary.Write(buf, binary.BigEndian, typ)
	buf.Write(payload)
}

// wrapCodestream places a codestream in a minimal JP2 file
func wrapCodestream(cs []byte, width, height, components, depth int, signed bool) []byte {
	var out bytes.Buffer
	out.Write(signature)

	var ftyp bytes.Buffer
	_ = binary.Write(&ftyp, binary.BigEndian, []uint32{brandJP2, 0, brandJP2})
	writeBox(&out, boxFileType, ftyp.Bytes())

	bpc := uint8(depth - 1)
	if signed {
		bpc |= 0x80
	}
	var ihdr bytes.Buffer
	_ = binary.Write(&ihdr, binary.BigEndian, uint32(height))
	_ = binary.Write(&ihdr, binary.BigEndian, uint32(width))
	_ = binary.Write(&ihdr, binary.BigEndian, uint16(components))
	// compression type 7 is JPEG 2000; colourspace known, no IPR
	ihdr.Write([]byte{bpc, 7, 0, 0})

	enumCS := uint32(csGray)
	if components >= 3 {
		enumCS = csSRGB
	}
	var colr bytes.Buffer
	colr.Write([]byte{1, 0, 0})
	_ = binary.Write(&colr, binary.BigEndian, enumCS)

	var jp2h bytes.Buffer
	writeBox(&jp2h, boxImageHdr, ihdr.Bytes())
	writeBox(&jp2h, boxColour, colr.Bytes())
	writeBox(&out, boxHeader, jp2h.Bytes())

	writeBox(&out, boxCodestream, cs)
	return out.Bytes()
}
