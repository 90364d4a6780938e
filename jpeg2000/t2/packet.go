// Package t2 implements JPEG 2000 Tier-2 coding: the packet headers that
// describe which code-block passes each packet carries, and the packet
// bodies holding the coded bytes.
//
// Reference: ISO/IEC 15444-1:2019 Annex B
package t2

import "fmt"

// maxZeroBitplanes bounds the zero bit-plane count a header may signal
const maxZeroBitplanes = 64

// CodeBlock is the Tier-2 state of one code-block. On the encoding side
// Data, NumBitplanes and NumPasses are inputs; on the decoding side they
// accumulate across packets.
type CodeBlock struct {
	Data         []byte
	NumBitplanes int
	NumPasses    int

	included bool
	lblock   int
}

// Band holds the code-blocks of one subband inside a precinct, in raster
// order, with the tag trees that code them
type Band struct {
	NumX, NumY int
	// MaxBitplanes is Mb, the guard bits plus the subband exponent minus one
	MaxBitplanes int
	Blocks       []*CodeBlock

	inclusion     *TagTree
	zeroBitplanes *TagTree
}

// NewBand creates a subband with numX x numY empty code-blocks
func NewBand(numX, numY, maxBitplanes int) *Band {
	b := &Band{NumX: numX, NumY: numY, MaxBitplanes: maxBitplanes}
	b.Blocks = make([]*CodeBlock, numX*numY)
	for i := range b.Blocks {
		b.Blocks[i] = &CodeBlock{lblock: 3}
	}
	if numX*numY > 0 {
		b.inclusion = NewTagTree(numX, numY)
		b.zeroBitplanes = NewTagTree(numX, numY)
	}
	return b
}

// EncodePacket writes the single quality layer packet of a precinct: every
// pass of every code-block of bands
func EncodePacket(bands []*Band) []byte {
	bw := newBioWriter()
	empty := true
	for _, b := range bands {
		for _, cb := range b.Blocks {
			if cb.NumPasses > 0 {
				empty = false
			}
		}
	}
	if empty {
		bw.writeBit(0)
		return bw.flush()
	}
	bw.writeBit(1)

	var body []byte
	for _, b := range bands {
		if len(b.Blocks) == 0 {
			continue
		}
		b.inclusion.Reset()
		b.zeroBitplanes.Reset()
		for i, cb := range b.Blocks {
			x, y := i%b.NumX, i/b.NumX
			if cb.NumPasses > 0 {
				b.inclusion.SetValue(x, y, 0)
				b.zeroBitplanes.SetValue(x, y, b.MaxBitplanes-cb.NumBitplanes)
			} else {
				b.inclusion.SetValue(x, y, 1)
				b.zeroBitplanes.SetValue(x, y, 0)
			}
		}

		for i, cb := range b.Blocks {
			x, y := i%b.NumX, i/b.NumX
			b.inclusion.Encode(bw, x, y, 1)
			if cb.NumPasses == 0 {
				continue
			}
			b.zeroBitplanes.Encode(bw, x, y, unknownValue)
			encodeNumPasses(bw, cb.NumPasses)

			// Lblock increment, then the segment length
			bitsForPasses := floorLog2(cb.NumPasses)
			k := 0
			for len(cb.Data) >= 1<<(cb.lblock+k+bitsForPasses) {
				k++
			}
			for j := 0; j < k; j++ {
				bw.writeBit(1)
			}
			bw.writeBit(0)
			cb.lblock += k
			bw.writeBits(len(cb.Data), cb.lblock+bitsForPasses)
			body = append(body, cb.Data...)
		}
	}
	return append(bw.flush(), body...)
}

// encodeNumPasses writes the pass count codeword of Table B.4
func encodeNumPasses(bw *bioWriter, n int) {
	switch {
	case n == 1:
		bw.writeBit(0)
	case n == 2:
		bw.writeBits(0b10, 2)
	case n <= 5:
		bw.writeBits(0b11, 2)
		bw.writeBits(n-3, 2)
	case n <= 36:
		bw.writeBits(0b1111, 4)
		bw.writeBits(n-6, 5)
	default:
		bw.writeBits(0b111111111, 9)
		bw.writeBits(n-37, 7)
	}
}

func decodeNumPasses(br *bioReader) (int, error) {
	bit, err := br.readBit()
	if err != nil || bit == 0 {
		return 1, err
	}
	if bit, err = br.readBit(); err != nil || bit == 0 {
		return 2, err
	}
	v, err := br.readBits(2)
	if err != nil || v < 3 {
		return 3 + v, err
	}
	if v, err = br.readBits(5); err != nil || v < 31 {
		return 6 + v, err
	}
	v, err = br.readBits(7)
	return 37 + v, err
}

// DecodePacket reads the packet of quality layer layer at the start of data,
// appends the coded bytes it carries to the code-blocks of bands, and returns
// the packet length
func DecodePacket(data []byte, bands []*Band, layer int) (int, error) {
	br := newBioReader(data)
	present, err := br.readBit()
	if err != nil {
		return 0, err
	}
	if present == 0 {
		if err := br.alignToByte(); err != nil {
			return 0, err
		}
		return br.bytesRead(), nil
	}

	type segment struct {
		cb     *CodeBlock
		length int
	}
	var segments []segment
	for _, b := range bands {
		for i, cb := range b.Blocks {
			x, y := i%b.NumX, i/b.NumX

			var included bool
			if !cb.included {
				included, err = b.inclusion.Decode(br, x, y, layer+1)
			} else {
				var bit int
				bit, err = br.readBit()
				included = bit != 0
			}
			if err != nil {
				return 0, err
			}
			if !included {
				continue
			}

			if !cb.included {
				k := 1
				for {
					below, err := b.zeroBitplanes.Decode(br, x, y, k)
					if err != nil {
						return 0, err
					}
					if below {
						break
					}
					if k++; k > maxZeroBitplanes {
						return 0, fmt.Errorf("%w: zero bit-plane count exceeds %d", ErrCorrupt, maxZeroBitplanes)
					}
				}
				cb.NumBitplanes = b.MaxBitplanes - b.zeroBitplanes.Value(x, y)
				if cb.NumBitplanes < 0 {
					return 0, fmt.Errorf("%w: %d zero bit-planes exceed Mb %d",
						ErrCorrupt, b.zeroBitplanes.Value(x, y), b.MaxBitplanes)
				}
				cb.included = true
			}

			n, err := decodeNumPasses(br)
			if err != nil {
				return 0, err
			}
			for {
				bit, err := br.readBit()
				if err != nil {
					return 0, err
				}
				if bit == 0 {
					break
				}
				cb.lblock++
			}
			length, err := br.readBits(cb.lblock + floorLog2(n))
			if err != nil {
				return 0, err
			}
			cb.NumPasses += n
			segments = append(segments, segment{cb, length})
		}
	}
	if err := br.alignToByte(); err != nil {
		return 0, err
	}

	pos := br.bytesRead()
	for _, s := range segments {
		if pos+s.length > len(data) {
			return 0, fmt.Errorf("%w: code-block segment of %d bytes at offset %d", ErrTruncated, s.length, pos)
		}
		s.cb.Data = append(s.cb.Data, data[pos:pos+s.length]...)
		pos += s.length
	}
	return pos, nil
}
