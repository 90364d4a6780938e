package common

import "io"

// HuffmanTable represents a Huffman coding table
type HuffmanTable struct {
	// Number of codes of each length (1-16 bits)
	Bits [16]int
	// Values for each code, in order of code length
	Values []byte
	// Lookup tables for decoding codes longer than 8 bits
	minCode [16]int32
	maxCode [16]int32
	valPtr  [16]int32
	// Lookup table for fast decoding of short codes
	lookupTable [256]int16 // value: (nbits << 8) | value, -1 if not found
}

// Build builds the decoding lookup tables. It fails when the code counts do
// not match the values or describe more codes than a length can hold.
func (h *HuffmanTable) Build() error {
	total := 0
	for _, n := range h.Bits {
		total += n
	}
	if total != len(h.Values) || total > 256 {
		return ErrInvalidDHT
	}

	for i := range h.lookupTable {
		h.lookupTable[i] = -1
	}

	code := int32(0)
	p := 0
	for l := 0; l < 16; l++ {
		if h.Bits[l] == 0 {
			h.maxCode[l] = -1
			code <<= 1
			continue
		}
		h.valPtr[l] = int32(p)
		h.minCode[l] = code
		for i := 0; i < h.Bits[l]; i++ {
			if code >= 1<<uint(l+1) {
				return ErrInvalidDHT
			}
			if l < 8 {
				// Every 8-bit prefix starting with this code maps to it
				first := int(code) << uint(7-l)
				for j := 0; j < 1<<uint(7-l); j++ {
					h.lookupTable[first+j] = int16((l+1)<<8 | int(h.Values[p]))
				}
			}
			code++
			p++
		}
		h.maxCode[l] = code - 1
		code <<= 1
	}
	return nil
}

// HuffmanDecoder reads Huffman-encoded entropy data with byte stuffing
type HuffmanDecoder struct {
	r       io.ByteReader
	bits    uint32 // Bit buffer
	nBits   int    // Number of valid bits in buffer
	readErr error  // Sticky read error
}

// NewHuffmanDecoder creates a new Huffman decoder
func NewHuffmanDecoder(r io.ByteReader) *HuffmanDecoder {
	return &HuffmanDecoder{r: r}
}

// fill appends the next data byte to the bit buffer
func (d *HuffmanDecoder) fill() error {
	if d.readErr != nil {
		return d.readErr
	}
	b, err := d.r.ReadByte()
	if err != nil {
		d.readErr = err
		return err
	}
	if b == 0xFF {
		b2, err := d.r.ReadByte()
		if err != nil {
			d.readErr = err
			return err
		}
		if b2 != 0x00 {
			// A marker inside scan data
			d.readErr = ErrInvalidData
			return d.readErr
		}
	}
	d.bits = d.bits<<8 | uint32(b)
	d.nBits += 8
	return nil
}

// ReadBits reads n (at most 16) bits as an unsigned integer
func (d *HuffmanDecoder) ReadBits(n int) (uint32, error) {
	if n == 0 {
		return 0, nil
	}
	for d.nBits < n {
		if err := d.fill(); err != nil {
			return 0, err
		}
	}
	d.nBits -= n
	return (d.bits >> uint(d.nBits)) & (1<<uint(n) - 1), nil
}

// Decode decodes the next Huffman symbol
func (d *HuffmanDecoder) Decode(table *HuffmanTable) (byte, error) {
	for d.nBits < 8 && d.fill() == nil {
	}

	if d.nBits >= 8 {
		peek := (d.bits >> uint(d.nBits-8)) & 0xFF
		if entry := table.lookupTable[peek]; entry >= 0 {
			d.nBits -= int(entry >> 8)
			return byte(entry), nil
		}
	}

	// Codes longer than 8 bits, or the last bits of the data
	code := int32(0)
	for l := 0; l < 16; l++ {
		bit, err := d.ReadBits(1)
		if err != nil {
			return 0, err
		}
		code = code<<1 | int32(bit)
		if table.maxCode[l] >= 0 && code <= table.maxCode[l] {
			return table.Values[table.valPtr[l]+code-table.minCode[l]], nil
		}
	}
	return 0, ErrHuffmanDecode
}

// ReceiveExtend decodes a coefficient value
// This combines RECEIVE and EXTEND operations
func (d *HuffmanDecoder) ReceiveExtend(ssss int) (int, error) {
	if ssss == 0 {
		return 0, nil
	}

	bits, err := d.ReadBits(ssss)
	if err != nil {
		return 0, err
	}

	// Extend: convert to signed value
	val := int(bits)
	if val < (1 << uint(ssss-1)) {
		val += (-1 << uint(ssss)) + 1
	}

	return val, nil
}
