package common

import "io"

// HuffmanEncoder writes Huffman-encoded entropy data with byte stuffing
type HuffmanEncoder struct {
	w     io.ByteWriter
	bits  uint32 // Bit buffer
	nBits int    // Number of bits in buffer
}

// NewHuffmanEncoder creates a new Huffman encoder
func NewHuffmanEncoder(w io.ByteWriter) *HuffmanEncoder {
	return &HuffmanEncoder{w: w}
}

// WriteBits writes the low n (at most 16) bits of bits
func (e *HuffmanEncoder) WriteBits(bits uint32, n int) error {
	if n == 0 {
		return nil
	}

	e.bits = (e.bits << uint(n)) | (bits & ((1 << uint(n)) - 1))
	e.nBits += n

	for e.nBits >= 8 {
		if err := e.writeByte(byte(e.bits >> uint(e.nBits-8))); err != nil {
			return err
		}
		e.nBits -= 8
	}
	return nil
}

// writeByte writes a byte with byte stuffing
func (e *HuffmanEncoder) writeByte(b byte) error {
	if err := e.w.WriteByte(b); err != nil {
		return err
	}
	if b == 0xFF {
		return e.w.WriteByte(0x00)
	}
	return nil
}

// Encode writes the code of value
func (e *HuffmanEncoder) Encode(codes []HuffmanCode, value byte) error {
	c := codes[value]
	if c.Len == 0 {
		return ErrHuffmanDecode
	}
	return e.WriteBits(uint32(c.Code), c.Len)
}

// Flush pads the last byte with 1 bits and writes it
func (e *HuffmanEncoder) Flush() error {
	if e.nBits > 0 {
		pad := 8 - e.nBits
		if err := e.writeByte(byte(e.bits<<uint(pad)) | byte(1<<uint(pad)-1)); err != nil {
			return err
		}
	}
	e.nBits = 0
	e.bits = 0
	return nil
}

// HuffmanCode represents a Huffman code
type HuffmanCode struct {
	Code uint16 // The Huffman code
	Len  int    // Code length in bits, 0 when the value has no code
}

// BuildHuffmanCodes builds the code of every value in table
func BuildHuffmanCodes(table *HuffmanTable) []HuffmanCode {
	codes := make([]HuffmanCode, 256)

	code := uint16(0)
	p := 0
	for l := 0; l < 16; l++ {
		for i := 0; i < table.Bits[l] && p < len(table.Values); i++ {
			codes[table.Values[p]] = HuffmanCode{Code: code, Len: l + 1}
			code++
			p++
		}
		code <<= 1
	}
	return codes
}

// EncodeCategory returns the magnitude category of val and the bits that
// follow its Huffman code
func EncodeCategory(val int) (cat int, bits uint32) {
	if val == 0 {
		return 0, 0
	}

	absVal := val
	if absVal < 0 {
		absVal = -absVal
	}
	for (1 << uint(cat)) <= absVal {
		cat++
	}

	if val > 0 {
		bits = uint32(val)
	} else {
		bits = uint32((1 << uint(cat)) + val - 1)
	}
	return cat, bits
}

// WriteHuffmanTable writes a Huffman table to the JPEG stream
// class: 0 for DC, 1 for AC
// id: table ID (0 or 1)
func WriteHuffmanTable(writer *Writer, class byte, id byte, table *HuffmanTable) error {
	data := make([]byte, 1+16+len(table.Values))
	data[0] = (class << 4) | id

	for i := 0; i < 16; i++ {
		data[1+i] = byte(table.Bits[i])
	}
	copy(data[17:], table.Values)

	return writer.WriteSegment(MarkerDHT, data)
}
