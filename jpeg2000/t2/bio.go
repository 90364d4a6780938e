package t2

import "fmt"

// bioWriter packs packet header bits; a byte following 0xFF carries only
// seven bits so no marker can appear in the header
type bioWriter struct {
	out []byte
	buf uint32
	ct  int
}

func newBioWriter() *bioWriter {
	return &bioWriter{ct: 8}
}

func (bw *bioWriter) byteOut() {
	bw.buf = (bw.buf << 8) & 0xFFFF
	if bw.buf == 0xFF00 {
		bw.ct = 7
	} else {
		bw.ct = 8
	}
	bw.out = append(bw.out, byte(bw.buf>>8))
}

func (bw *bioWriter) writeBit(bit int) {
	if bw.ct == 0 {
		bw.byteOut()
	}
	bw.ct--
	bw.buf |= uint32(bit&1) << bw.ct
}

func (bw *bioWriter) writeBits(value, n int) {
	for i := n - 1; i >= 0; i-- {
		bw.writeBit(value >> i)
	}
}

func (bw *bioWriter) flush() []byte {
	bw.byteOut()
	if bw.ct == 7 {
		bw.byteOut()
	}
	return bw.out
}

// bioReader reads packet header bits written by bioWriter
type bioReader struct {
	data []byte
	pos  int
	buf  uint32
	ct   int
}

func newBioReader(data []byte) *bioReader {
	return &bioReader{data: data}
}

func (br *bioReader) byteIn() error {
	br.buf = (br.buf << 8) & 0xFFFF
	if br.buf == 0xFF00 {
		br.ct = 7
	} else {
		br.ct = 8
	}
	if br.pos >= len(br.data) {
		return fmt.Errorf("%w: packet header runs past the tile data", ErrTruncated)
	}
	br.buf |= uint32(br.data[br.pos])
	br.pos++
	return nil
}

func (br *bioReader) readBit() (int, error) {
	if br.ct == 0 {
		if err := br.byteIn(); err != nil {
			return 0, err
		}
	}
	br.ct--
	return int(br.buf>>br.ct) & 1, nil
}

func (br *bioReader) readBits(n int) (int, error) {
	v := 0
	for i := 0; i < n; i++ {
		bit, err := br.readBit()
		if err != nil {
			return 0, err
		}
		v = v<<1 | bit
	}
	return v, nil
}

// alignToByte skips the rest of the current byte and a stuffed byte after 0xFF
func (br *bioReader) alignToByte() error {
	if br.buf&0xFF == 0xFF {
		if err := br.byteIn(); err != nil {
			return err
		}
	}
	br.ct = 0
	return nil
}

func (br *bioReader) bytesRead() int {
	return br.pos
}

func floorLog2(n int) int {
	l := 0
	for n > 1 {
		n >>= 1
		l++
	}
	return l
}
