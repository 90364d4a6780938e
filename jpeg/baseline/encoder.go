// Package baseline implements the 8-bit sequential Huffman (baseline DCT)
// JPEG process for grayscale and RGB images.
package baseline

import (
	"bytes"

	"github.com/cocosip/go-rasterstats/jpeg/common"
)

// plane is one component's samples, read with edge replication past its size
type plane struct {
	pix           []byte
	width, height int
}

func (p *plane) at(x, y int) byte {
	if x >= p.width {
		x = p.width - 1
	}
	if y >= p.height {
		y = p.height - 1
	}
	return p.pix[y*p.width+x]
}

// Encoder represents a JPEG Baseline encoder
type Encoder struct {
	width           int
	height          int
	components      int
	quality         int
	restartInterval int

	qtables  [2][64]int32
	dcTables [2]*common.HuffmanTable
	acTables [2]*common.HuffmanTable
	dcCodes  [2][]common.HuffmanCode
	acCodes  [2][]common.HuffmanCode
}

// Options controls baseline encoding
type Options struct {
	// Quality is 1-100, where 100 is best quality
	Quality int
	// RestartInterval is the number of MCUs between restart markers, 0 for none
	RestartInterval int
}

// Encode encodes pixel data to JPEG Baseline format
// components: 1 for grayscale, 3 for interleaved RGB
// quality: 1-100, where 100 is best quality
// RGB images are stored as YCbCr with 4:2:0 chroma subsampling.
func Encode(pixelData []byte, width, height, components, quality int) ([]byte, error) {
	return EncodeWithOptions(pixelData, width, height, components, Options{Quality: quality})
}

// EncodeWithOptions encodes pixel data like Encode with explicit options
func EncodeWithOptions(pixelData []byte, width, height, components int, opts Options) ([]byte, error) {
	quality := opts.Quality
	if width <= 0 || height <= 0 || width > 0xFFFF || height > 0xFFFF {
		return nil, common.ErrInvalidDimensions
	}

	if components != 1 && components != 3 {
		return nil, common.ErrInvalidComponents
	}

	if quality < 1 || quality > 100 {
		return nil, common.ErrInvalidQuality
	}

	if opts.RestartInterval < 0 || opts.RestartInterval > 0xFFFF {
		return nil, common.ErrInvalidData
	}

	if len(pixelData) < width*height*components {
		return nil, common.ErrBufferTooSmall
	}

	enc := &Encoder{
		width:           width,
		height:          height,
		components:      components,
		quality:         quality,
		restartInterval: opts.RestartInterval,
	}

	// Initialize quantization tables
	enc.qtables[0] = common.ScaleQuantTable(common.DefaultLuminanceQuantTable, quality)
	enc.qtables[1] = common.ScaleQuantTable(common.DefaultChrominanceQuantTable, quality)

	// Initialize Huffman tables
	enc.dcTables[0] = common.BuildStandardHuffmanTable(
		common.StandardDCLuminanceBits,
		common.StandardDCLuminanceValues,
	)
	enc.acTables[0] = common.BuildStandardHuffmanTable(
		common.StandardACLuminanceBits,
		common.StandardACLuminanceValues,
	)
	enc.dcTables[1] = common.BuildStandardHuffmanTable(
		common.StandardDCChrominanceBits,
		common.StandardDCChrominanceValues,
	)
	enc.acTables[1] = common.BuildStandardHuffmanTable(
		common.StandardACChrominanceBits,
		common.StandardACChrominanceValues,
	)

	for i := 0; i < 2; i++ {
		enc.dcCodes[i] = common.BuildHuffmanCodes(enc.dcTables[i])
		enc.acCodes[i] = common.BuildHuffmanCodes(enc.acTables[i])
	}

	var buf bytes.Buffer
	writer := common.NewWriter(&buf)

	steps := []func(*common.Writer) error{
		func(w *common.Writer) error { return w.WriteMarker(common.MarkerSOI) },
		enc.writeAPP0,
		enc.writeDQT,
		enc.writeSOF0,
		enc.writeDHT,
		enc.writeDRI,
		enc.writeSOS,
		func(w *common.Writer) error { return enc.encodeScan(w, pixelData) },
		func(w *common.Writer) error { return w.WriteMarker(common.MarkerEOI) },
	}
	for _, step := range steps {
		if err := step(writer); err != nil {
			return nil, err
		}
	}

	return buf.Bytes(), nil
}

// writeAPP0 writes a JFIF header with no thumbnail
func (enc *Encoder) writeAPP0(writer *common.Writer) error {
	data := []byte{
		'J', 'F', 'I', 'F', 0,
		1, 1, // version 1.01
		0,    // no density units
		0, 1, 0, 1, // 1:1 aspect ratio
		0, 0, // no thumbnail
	}
	return writer.WriteSegment(common.MarkerAPP0, data)
}

// writeDQT writes Define Quantization Table segments
func (enc *Encoder) writeDQT(writer *common.Writer) error {
	numTables := 1
	if enc.components == 3 {
		numTables = 2
	}

	for i := 0; i < numTables; i++ {
		data := make([]byte, 1+64)
		data[0] = byte(i) // Precision=0 (8-bit), Table ID=i

		// Write in zigzag order
		for j := 0; j < 64; j++ {
			data[1+j] = byte(enc.qtables[i][common.ZigZag[j]])
		}

		if err := writer.WriteSegment(common.MarkerDQT, data); err != nil {
			return err
		}
	}

	return nil
}

// writeSOF0 writes Start of Frame (Baseline DCT)
func (enc *Encoder) writeSOF0(writer *common.Writer) error {
	data := make([]byte, 6+enc.components*3)

	data[0] = 8                     // Precision: 8 bits
	data[1] = byte(enc.height >> 8) // Height high byte
	data[2] = byte(enc.height)      // Height low byte
	data[3] = byte(enc.width >> 8)  // Width high byte
	data[4] = byte(enc.width)       // Width low byte
	data[5] = byte(enc.components)  // Number of components

	if enc.components == 1 {
		// Grayscale
		data[6] = 1    // Component ID
		data[7] = 0x11 // Sampling factors: 1x1
		data[8] = 0    // Quantization table 0
	} else {
		// YCbCr (4:2:0 subsampling)
		data[6] = 1    // Y component ID
		data[7] = 0x22 // Sampling factors: 2x2
		data[8] = 0    // Quantization table 0

		data[9] = 2     // Cb component ID
		data[10] = 0x11 // Sampling factors: 1x1
		data[11] = 1    // Quantization table 1

		data[12] = 3    // Cr component ID
		data[13] = 0x11 // Sampling factors: 1x1
		data[14] = 1    // Quantization table 1
	}

	return writer.WriteSegment(common.MarkerSOF0, data)
}

// writeDHT writes Define Huffman Table segments
func (enc *Encoder) writeDHT(writer *common.Writer) error {
	numTables := 1
	if enc.components == 3 {
		numTables = 2
	}
	for i := 0; i < numTables; i++ {
		if err := common.WriteHuffmanTable(writer, 0, byte(i), enc.dcTables[i]); err != nil {
			return err
		}
		if err := common.WriteHuffmanTable(writer, 1, byte(i), enc.acTables[i]); err != nil {
			return err
		}
	}
	return nil
}

// writeSOS writes the Start of Scan header of the single interleaved scan
func (enc *Encoder) writeSOS(writer *common.Writer) error {
	data := make([]byte, 1+enc.components*2+3)
	data[0] = byte(enc.components)

	if enc.components == 1 {
		data[1] = 1    // Component ID
		data[2] = 0x00 // DC table 0, AC table 0
	} else {
		data[1] = 1    // Y component ID
		data[2] = 0x00 // DC table 0, AC table 0
		data[3] = 2    // Cb component ID
		data[4] = 0x11 // DC table 1, AC table 1
		data[5] = 3    // Cr component ID
		data[6] = 0x11 // DC table 1, AC table 1
	}

	data[1+enc.components*2] = 0  // Start of spectral selection
	data[2+enc.components*2] = 63 // End of spectral selection
	data[3+enc.components*2] = 0  // Successive approximation

	return writer.WriteSegment(common.MarkerSOS, data)
}

// encodeScan encodes the scan data, inserting a restart marker every
// restartInterval MCUs
func (enc *Encoder) encodeScan(writer *common.Writer, pixelData []byte) error {
	var scanBuf bytes.Buffer
	huffEnc := common.NewHuffmanEncoder(&scanBuf)

	var mcusX, mcusY int
	var encodeMCU func(mcuX, mcuY int, dcPred *[3]int) error
	if enc.components == 1 {
		gray := &plane{pix: pixelData[:enc.width*enc.height], width: enc.width, height: enc.height}
		mcusX, mcusY = common.DivCeil(enc.width, 8), common.DivCeil(enc.height, 8)
		encodeMCU = func(mcuX, mcuY int, dcPred *[3]int) error {
			return enc.encodeBlock(huffEnc, gray, mcuX, mcuY, &dcPred[0], 0)
		}
	} else {
		y, cb, cr := enc.rgbToYCbCr(pixelData)
		// 16x16 MCUs: 2x2 Y blocks, one Cb and one Cr block
		mcusX, mcusY = common.DivCeil(enc.width, 16), common.DivCeil(enc.height, 16)
		encodeMCU = func(mcuX, mcuY int, dcPred *[3]int) error {
			for v := 0; v < 2; v++ {
				for h := 0; h < 2; h++ {
					if err := enc.encodeBlock(huffEnc, y, mcuX*2+h, mcuY*2+v, &dcPred[0], 0); err != nil {
						return err
					}
				}
			}
			if err := enc.encodeBlock(huffEnc, cb, mcuX, mcuY, &dcPred[1], 1); err != nil {
				return err
			}
			return enc.encodeBlock(huffEnc, cr, mcuX, mcuY, &dcPred[2], 1)
		}
	}

	var dcPred [3]int
	for i := 0; i < mcusX*mcusY; i++ {
		if enc.restartInterval > 0 && i > 0 && i%enc.restartInterval == 0 {
			if err := huffEnc.Flush(); err != nil {
				return err
			}
			n := (i/enc.restartInterval - 1) % 8
			scanBuf.Write([]byte{0xFF, byte(common.MarkerRST0&0xFF + n)})
			dcPred = [3]int{}
		}
		if err := encodeMCU(i%mcusX, i/mcusX, &dcPred); err != nil {
			return err
		}
	}

	if err := huffEnc.Flush(); err != nil {
		return err
	}
	return writer.WriteBytes(scanBuf.Bytes())
}

// writeDRI writes the restart interval when one is set
func (enc *Encoder) writeDRI(writer *common.Writer) error {
	if enc.restartInterval == 0 {
		return nil
	}
	return writer.WriteSegment(common.MarkerDRI, []byte{byte(enc.restartInterval >> 8), byte(enc.restartInterval)})
}

// rgbToYCbCr converts RGB to a full-size Y plane and Cb and Cr planes
// averaged over 2x2 pixels
func (enc *Encoder) rgbToYCbCr(rgb []byte) (y, cb, cr *plane) {
	w, h := enc.width, enc.height
	cw, ch := common.DivCeil(w, 2), common.DivCeil(h, 2)

	y = &plane{pix: make([]byte, w*h), width: w, height: h}
	cb = &plane{pix: make([]byte, cw*ch), width: cw, height: ch}
	cr = &plane{pix: make([]byte, cw*ch), width: cw, height: ch}

	cbSum := make([]int, cw*ch)
	crSum := make([]int, cw*ch)
	count := make([]int, cw*ch)

	for row := 0; row < h; row++ {
		for col := 0; col < w; col++ {
			offset := (row*w + col) * 3
			r := int(rgb[offset+0])
			g := int(rgb[offset+1])
			b := int(rgb[offset+2])

			yy := (19595*r + 38470*g + 7471*b + 1<<15) >> 16
			cbVal := (-11056*r - 21712*g + 32768*b + 257<<15) >> 16
			crVal := (32768*r - 27440*g - 5328*b + 257<<15) >> 16

			y.pix[row*w+col] = byte(common.Clamp(yy, 0, 255))

			i := (row/2)*cw + col/2
			cbSum[i] += common.Clamp(cbVal, 0, 255)
			crSum[i] += common.Clamp(crVal, 0, 255)
			count[i]++
		}
	}

	for i, n := range count {
		cb.pix[i] = byte((cbSum[i] + n/2) / n)
		cr.pix[i] = byte((crSum[i] + n/2) / n)
	}
	return y, cb, cr
}

// encodeBlock transforms, quantizes and entropy codes one 8x8 block
func (enc *Encoder) encodeBlock(huffEnc *common.HuffmanEncoder, p *plane, blockX, blockY int, dcPred *int, tableIdx int) error {
	var block [64]float64
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			block[y*8+x] = float64(p.at(blockX*8+x, blockY*8+y)) - 128
		}
	}
	common.FDCT(&block)

	var coef [64]int32
	common.Quantize(&block, &enc.qtables[tableIdx], &coef)

	// DC difference
	dc := int(coef[0])
	cat, bits := common.EncodeCategory(dc - *dcPred)
	*dcPred = dc
	if err := huffEnc.Encode(enc.dcCodes[tableIdx], byte(cat)); err != nil {
		return err
	}
	if err := huffEnc.WriteBits(bits, cat); err != nil {
		return err
	}

	// AC coefficients in zigzag order, run-length coded
	acCodes := enc.acCodes[tableIdx]
	run := 0
	for k := 1; k < 64; k++ {
		v := common.Clamp(int(coef[common.ZigZag[k]]), -1023, 1023)
		if v == 0 {
			run++
			continue
		}
		for run > 15 {
			if err := huffEnc.Encode(acCodes, 0xF0); err != nil { // ZRL
				return err
			}
			run -= 16
		}
		cat, bits := common.EncodeCategory(v)
		if err := huffEnc.Encode(acCodes, byte(run<<4|cat)); err != nil {
			return err
		}
		if err := huffEnc.WriteBits(bits, cat); err != nil {
			return err
		}
		run = 0
	}
	if run > 0 {
		return huffEnc.Encode(acCodes, 0x00) // EOB
	}
	return nil
}
