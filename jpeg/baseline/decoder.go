package baseline

import (
	"bytes"
	"fmt"

	"github.com/cocosip/go-rasterstats/jpeg/common"
)

// Component represents a color component in the image
type Component struct {
	ID              byte   // Component identifier
	H               int    // Horizontal sampling factor
	V               int    // Vertical sampling factor
	Tq              int    // Quantization table selector
	width           int    // Component width in blocks
	height          int    // Component height in blocks
	dcTableSelector int    // DC Huffman table selector
	acTableSelector int    // AC Huffman table selector
	dcPred          int    // DC prediction value
	data            []byte // Decoded component data, width*8 samples per row
}

// Decoder represents a JPEG Baseline decoder
type Decoder struct {
	width      int                     // Image width
	height     int                     // Image height
	components []*Component            // Color components
	qtables    [4][64]int32            // Quantization tables, natural order
	dcTables   [4]*common.HuffmanTable // DC Huffman tables
	acTables   [4]*common.HuffmanTable // AC Huffman tables
	maxH       int                     // Largest horizontal sampling factor
	maxV       int                     // Largest vertical sampling factor
	mcusX      int                     // MCUs per row
	mcusY      int                     // MCU rows
	restartInt int                     // Restart interval in MCUs
	transform  int                     // Adobe color transform, -1 when absent
	scanned    bool                    // The image scan has been decoded
}

// Decode decodes JPEG Baseline data. Sequential Huffman frames with 8-bit
// samples and one or three components are supported; the image must be
// carried by a single interleaved scan. Three-component images are returned
// as interleaved RGB.
func Decode(jpegData []byte) (pixelData []byte, width, height, components int, err error) {
	reader := common.NewReader(bytes.NewReader(jpegData))
	d := &Decoder{transform: -1}

	marker, err := reader.ReadMarker()
	if err != nil || marker != common.MarkerSOI {
		return nil, 0, 0, 0, common.ErrInvalidSOI
	}

	marker, err = reader.ReadMarker()
	for err == nil && marker != common.MarkerEOI {
		if marker == common.MarkerSOS {
			marker, err = d.readScan(reader)
			if err == nil && marker == 0 {
				// Data ends without EOI
				break
			}
			continue
		}
		if err = d.readSegment(reader, marker); err != nil {
			break
		}
		marker, err = reader.ReadMarker()
	}
	if err != nil {
		return nil, 0, 0, 0, err
	}
	if !d.scanned {
		return nil, 0, 0, 0, fmt.Errorf("%w: no image scan", common.ErrInvalidData)
	}

	return d.output(), d.width, d.height, len(d.components), nil
}

// readSegment parses the table and frame segments; others are skipped
func (d *Decoder) readSegment(reader *common.Reader, marker uint16) error {
	if !common.HasLength(marker) {
		return nil
	}
	data, err := reader.ReadSegment()
	if err != nil {
		return err
	}

	switch {
	case marker == common.MarkerSOF0 || marker == common.MarkerSOF1:
		return d.parseSOF(data)
	case common.IsSOF(marker):
		return fmt.Errorf("%w: frame type %04X", common.ErrUnsupportedFormat, marker)
	case marker == common.MarkerDHT:
		return d.parseDHT(data)
	case marker == common.MarkerDQT:
		return d.parseDQT(data)
	case marker == common.MarkerDRI:
		if len(data) != 2 {
			return common.ErrInvalidData
		}
		d.restartInt = int(data[0])<<8 | int(data[1])
	case marker == common.MarkerAPP14:
		// Adobe segment: the transform flag is the last of its 12 bytes
		if len(data) >= 12 && bytes.HasPrefix(data, []byte("Adobe")) {
			d.transform = int(data[11])
		}
	}
	return nil
}

// parseSOF parses Start of Frame
func (d *Decoder) parseSOF(data []byte) error {
	if d.components != nil {
		return fmt.Errorf("%w: more than one frame", common.ErrInvalidSOF)
	}
	if len(data) < 6 {
		return common.ErrInvalidSOF
	}
	if data[0] != 8 {
		return fmt.Errorf("%w: %d-bit precision", common.ErrUnsupportedFormat, data[0])
	}

	d.height = int(data[1])<<8 | int(data[2])
	d.width = int(data[3])<<8 | int(data[4])
	if d.width == 0 || d.height == 0 {
		return common.ErrInvalidDimensions
	}

	nf := int(data[5])
	if nf != 1 && nf != 3 {
		return common.ErrInvalidComponents
	}
	if len(data) != 6+nf*3 {
		return common.ErrInvalidSOF
	}

	d.maxH, d.maxV = 1, 1
	d.components = make([]*Component, nf)
	for i := 0; i < nf; i++ {
		c := &Component{
			ID: data[6+i*3],
			H:  int(data[7+i*3] >> 4),
			V:  int(data[7+i*3] & 0x0F),
			Tq: int(data[8+i*3]),
		}
		if c.H < 1 || c.H > 4 || c.V < 1 || c.V > 4 || c.Tq > 3 {
			return common.ErrInvalidSOF
		}
		// A lone component is coded block by block, whatever its factors
		if nf == 1 {
			c.H, c.V = 1, 1
		}
		d.maxH = max(d.maxH, c.H)
		d.maxV = max(d.maxV, c.V)
		d.components[i] = c
	}

	d.mcusX = common.DivCeil(d.width, 8*d.maxH)
	d.mcusY = common.DivCeil(d.height, 8*d.maxV)
	for _, c := range d.components {
		c.width = d.mcusX * c.H
		c.height = d.mcusY * c.V
		c.data = make([]byte, c.width*8*c.height*8)
	}
	return nil
}

// parseDHT parses Define Huffman Table
func (d *Decoder) parseDHT(data []byte) error {
	for len(data) > 0 {
		if len(data) < 17 {
			return common.ErrInvalidDHT
		}
		tc := data[0] >> 4
		th := data[0] & 0x0F
		if tc > 1 || th > 3 {
			return common.ErrInvalidDHT
		}

		table := &common.HuffmanTable{}
		total := 0
		for i := 0; i < 16; i++ {
			table.Bits[i] = int(data[1+i])
			total += table.Bits[i]
		}
		if len(data) < 17+total {
			return common.ErrInvalidDHT
		}
		table.Values = append([]byte(nil), data[17:17+total]...)
		if err := table.Build(); err != nil {
			return err
		}

		if tc == 0 {
			d.dcTables[th] = table
		} else {
			d.acTables[th] = table
		}
		data = data[17+total:]
	}
	return nil
}

// parseDQT parses Define Quantization Table
func (d *Decoder) parseDQT(data []byte) error {
	for len(data) > 0 {
		pq := data[0] >> 4
		tq := data[0] & 0x0F
		if tq > 3 || pq > 1 {
			return common.ErrInvalidDQT
		}
		size := 64 * int(pq+1)
		if len(data) < 1+size {
			return common.ErrInvalidDQT
		}

		// Entries arrive in zigzag order
		for i := 0; i < 64; i++ {
			v := int32(data[1+i])
			if pq == 1 {
				v = int32(data[1+2*i])<<8 | int32(data[2+2*i])
			}
			d.qtables[tq][common.ZigZag[i]] = v
		}
		data = data[1+size:]
	}
	return nil
}

// readScan parses Start of Scan and decodes its entropy-coded data. It
// returns the marker that follows the scan, or 0 at end of data.
func (d *Decoder) readScan(reader *common.Reader) (uint16, error) {
	data, err := reader.ReadSegment()
	if err != nil {
		return 0, err
	}
	if err := d.parseSOS(data); err != nil {
		return 0, err
	}

	segments, next, err := reader.ReadEntropySegments()
	if err != nil {
		return 0, err
	}

	total := d.mcusX * d.mcusY
	interval := total
	if d.restartInt > 0 {
		interval = d.restartInt
	}

	mcu := 0
	for _, seg := range segments {
		if mcu >= total {
			break
		}
		huff := common.NewHuffmanDecoder(bytes.NewReader(seg))
		for _, c := range d.components {
			c.dcPred = 0
		}
		for end := min(mcu+interval, total); mcu < end; mcu++ {
			if err := d.decodeMCU(huff, mcu%d.mcusX, mcu/d.mcusX); err != nil {
				return 0, fmt.Errorf("MCU %d: %w", mcu, err)
			}
		}
	}
	if mcu < total {
		return 0, fmt.Errorf("%w: scan ends after %d of %d MCUs", common.ErrInvalidData, mcu, total)
	}

	d.scanned = true
	return next, nil
}

// parseSOS parses Start of Scan
func (d *Decoder) parseSOS(data []byte) error {
	if d.components == nil {
		return fmt.Errorf("%w: scan before frame", common.ErrInvalidSOS)
	}
	if d.scanned {
		return fmt.Errorf("%w: more than one scan", common.ErrUnsupportedFormat)
	}
	if len(data) < 1 {
		return common.ErrInvalidSOS
	}

	ns := int(data[0])
	if len(data) != 1+ns*2+3 {
		return common.ErrInvalidSOS
	}
	if ns != len(d.components) {
		return fmt.Errorf("%w: scan does not interleave every component", common.ErrUnsupportedFormat)
	}

	for i := 0; i < ns; i++ {
		id := data[1+i*2]
		sel := data[2+i*2]
		var comp *Component
		for _, c := range d.components {
			if c.ID == id {
				comp = c
			}
		}
		if comp == nil {
			return fmt.Errorf("%w: unknown component %d", common.ErrInvalidSOS, id)
		}
		comp.dcTableSelector = int(sel >> 4)
		comp.acTableSelector = int(sel & 0x0F)
		if comp.dcTableSelector > 3 || comp.acTableSelector > 3 ||
			d.dcTables[comp.dcTableSelector] == nil || d.acTables[comp.acTableSelector] == nil {
			return fmt.Errorf("%w: component %d uses an undefined table", common.ErrInvalidDHT, id)
		}
	}

	ss, se, a := data[1+ns*2], data[2+ns*2], data[3+ns*2]
	if ss != 0 || se != 63 || a != 0 {
		return fmt.Errorf("%w: spectral selection %d-%d", common.ErrUnsupportedFormat, ss, se)
	}
	return nil
}

// decodeMCU decodes the blocks of every component in one MCU
func (d *Decoder) decodeMCU(huff *common.HuffmanDecoder, mcuX, mcuY int) error {
	for _, c := range d.components {
		for v := 0; v < c.V; v++ {
			for h := 0; h < c.H; h++ {
				if err := d.decodeBlock(huff, c, mcuX*c.H+h, mcuY*c.V+v); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// decodeBlock decodes one 8x8 block into the component's samples
func (d *Decoder) decodeBlock(huff *common.HuffmanDecoder, c *Component, blockX, blockY int) error {
	q := &d.qtables[c.Tq]
	var coef [64]int32

	// DC coefficient
	t, err := huff.Decode(d.dcTables[c.dcTableSelector])
	if err != nil {
		return err
	}
	if t > 11 {
		return common.ErrInvalidData
	}
	diff, err := huff.ReceiveExtend(int(t))
	if err != nil {
		return err
	}
	c.dcPred += diff
	coef[0] = int32(c.dcPred) * q[0]

	// AC coefficients
	ac := d.acTables[c.acTableSelector]
	for k := 1; k < 64; {
		rs, err := huff.Decode(ac)
		if err != nil {
			return err
		}
		r, s := int(rs>>4), int(rs&0x0F)
		if s == 0 {
			if r != 15 {
				break // EOB
			}
			k += 16 // ZRL
			continue
		}
		k += r
		if k > 63 {
			return common.ErrInvalidData
		}
		v, err := huff.ReceiveExtend(s)
		if err != nil {
			return err
		}
		coef[common.ZigZag[k]] = int32(v) * q[common.ZigZag[k]]
		k++
	}

	common.IDCT(&coef)

	stride := c.width * 8
	base := blockY*8*stride + blockX*8
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			c.data[base+y*stride+x] = common.LevelShift(coef[y*8+x])
		}
	}
	return nil
}

// output upsamples the components to the image size and converts YCbCr to
// RGB unless the frame is marked as stored in RGB
func (d *Decoder) output() []byte {
	nc := len(d.components)
	out := make([]byte, d.width*d.height*nc)

	rgb := nc == 3 && (d.transform == 0 ||
		d.components[0].ID == 'R' && d.components[1].ID == 'G' && d.components[2].ID == 'B')

	for y := 0; y < d.height; y++ {
		for x := 0; x < d.width; x++ {
			var s [3]int
			for i, c := range d.components {
				sx := x * c.H / d.maxH
				sy := y * c.V / d.maxV
				s[i] = int(c.data[sy*c.width*8+sx])
			}
			o := (y*d.width + x) * nc
			if nc == 1 {
				out[o] = byte(s[0])
				continue
			}
			if rgb {
				out[o], out[o+1], out[o+2] = byte(s[0]), byte(s[1]), byte(s[2])
				continue
			}
			out[o], out[o+1], out[o+2] = ycbcrToRGB(s[0], s[1], s[2])
		}
	}
	return out
}

// ycbcrToRGB converts one JFIF YCbCr sample in 16.16 fixed point
func ycbcrToRGB(y, cb, cr int) (r, g, b byte) {
	yy := y * 0x10101
	cb -= 128
	cr -= 128
	r = byte(common.Clamp((yy+91881*cr)>>16, 0, 255))
	g = byte(common.Clamp((yy-22554*cb-46802*cr)>>16, 0, 255))
	b = byte(common.Clamp((yy+116130*cb)>>16, 0, 255))
	return r, g, b
}
