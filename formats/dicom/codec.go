// Package dicom registers a decode-only reader for uncompressed DICOM
// Part 10 files. Pixel data is returned as stored, without rescale or
// windowing.
package dicom

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cocosip/go-dicom/pkg/dicom/element"
	"github.com/cocosip/go-dicom/pkg/dicom/parser"
	"github.com/cocosip/go-dicom/pkg/dicom/tag"

	"github.com/cocosip/go-rasterstats/codec"
	"github.com/cocosip/go-rasterstats/raster"
)

const (
	preambleSize = 128
	prefix       = "DICM"
)

// Codec implements the codec.Codec interface for DICOM files
type Codec struct{}

// NewCodec creates a new DICOM codec
func NewCodec() *Codec {
	return &Codec{}
}

// Encode always fails: DICOM files are only read
func (c *Codec) Encode(w io.Writer, params codec.EncodeParams) error {
	return fmt.Errorf("dicom: %w: writing is not supported", codec.ErrUnsupportedFormat)
}

// CanEncode reports false
func (c *Codec) CanEncode() bool { return false }

// Decode reads the native pixel data of a single or multi-frame image.
// Frames become the leading dimension and samples the trailing one.
func (c *Codec) Decode(r io.Reader) (*raster.Array, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("dicom: %w", err)
	}
	if len(data) < preambleSize+len(prefix) || string(data[preambleSize:preambleSize+len(prefix)]) != prefix {
		return nil, fmt.Errorf("dicom: %w: missing DICM prefix", codec.ErrUnsupportedFormat)
	}

	// the parser reads from a path
	path, err := spool(data)
	if err != nil {
		return nil, fmt.Errorf("dicom: %w", err)
	}
	defer os.Remove(path)

	res, err := parser.ParseFile(path, parser.WithReadOption(parser.ReadAll))
	if err != nil {
		return nil, fmt.Errorf("dicom: %w: %w", codec.ErrUnsupportedFormat, err)
	}
	if res.TransferSyntax != nil && res.TransferSyntax.IsEncapsulated() {
		return nil, fmt.Errorf("dicom: %w: encapsulated transfer syntax %s",
			codec.ErrUnsupportedFormat, res.TransferSyntax.UID().UID())
	}
	ds := res.Dataset

	img := imageInfo{
		rows:       int(ds.TryGetUInt16(tag.Rows, 0)),
		cols:       int(ds.TryGetUInt16(tag.Columns, 0)),
		samples:    int(ds.TryGetUInt16(tag.SamplesPerPixel, 1)),
		bitsStored: int(ds.TryGetUInt16(tag.BitsStored, 0)),
		signed:     ds.TryGetUInt16(tag.PixelRepresentation, 0) != 0,
	}
	if pi, ok := ds.GetString(tag.PhotometricInterpretation); ok {
		img.photometric = pi
	}

	pd, ok := ds.Get(tag.PixelData)
	if !ok {
		return nil, fmt.Errorf("dicom: %w: no pixel data", codec.ErrUnsupportedFormat)
	}
	var pixels []byte
	switch v := pd.(type) {
	case *element.OtherByte:
		pixels = v.GetData()
	case *element.OtherWord:
		pixels = v.GetData()
		img.words = true
	default:
		return nil, fmt.Errorf("dicom: %w: pixel data element %T", codec.ErrUnsupportedFormat, pd)
	}
	return img.decode(pixels)
}

// spool copies data to a temporary file and returns its path
func spool(data []byte) (string, error) {
	f, err := os.CreateTemp("", "rasterstats-*.dcm")
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, bytes.NewReader(data)); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

type imageInfo struct {
	rows, cols, samples int
	bitsStored          int
	signed              bool
	photometric         string
	words               bool // pixel data has VR OW
}

func (img imageInfo) decode(pixels []byte) (*raster.Array, error) {
	if img.rows <= 0 || img.cols <= 0 || img.samples <= 0 {
		return nil, fmt.Errorf("dicom: %w: %dx%d with %d samples", codec.ErrUnsupportedShape, img.rows, img.cols, img.samples)
	}
	switch pi := strings.TrimSpace(img.photometric); pi {
	case "", "MONOCHROME1", "MONOCHROME2", "RGB":
		if (pi == "RGB") != (img.samples == 3) && pi != "" {
			return nil, fmt.Errorf("dicom: %w: %s with %d samples", codec.ErrUnsupportedShape, pi, img.samples)
		}
	default:
		return nil, fmt.Errorf("dicom: %w: photometric interpretation %s", codec.ErrUnsupportedFormat, pi)
	}

	perFrame := img.rows * img.cols * img.samples
	// 16-bit words unless the samples fit in bytes and the pixel data is
	// byte-valued or too short for words
	width := 2
	if img.bitsStored <= 8 && (!img.words || len(pixels) < 2*perFrame) {
		width = 1
	}
	if img.bitsStored <= 0 || img.bitsStored > 8*width {
		return nil, fmt.Errorf("dicom: %w: %d bits stored", codec.ErrUnsupportedDType, img.bitsStored)
	}
	frames := len(pixels) / (perFrame * width)
	if frames == 0 {
		return nil, fmt.Errorf("dicom: %w: %d bytes of pixel data for %dx%dx%d",
			codec.ErrUnsupportedFormat, len(pixels), img.rows, img.cols, img.samples)
	}

	dtype := raster.Uint8
	switch {
	case width == 1 && img.signed:
		dtype = raster.Int8
	case width == 2 && img.signed:
		dtype = raster.Int16
	case width == 2:
		dtype = raster.Uint16
	}

	var shape []int
	if frames > 1 {
		shape = append(shape, frames)
	}
	shape = append(shape, img.rows, img.cols)
	if img.samples > 1 {
		shape = append(shape, img.samples)
	}

	mask := uint32(1)<<img.bitsStored - 1
	sign := uint32(1) << (img.bitsStored - 1)
	values := make([]float64, frames*perFrame)
	for i := range values {
		var u uint32
		if width == 1 {
			u = uint32(pixels[i])
		} else {
			u = uint32(binary.LittleEndian.Uint16(pixels[2*i:]))
		}
		u &= mask
		v := int64(u)
		if img.signed && u&sign != 0 {
			v -= int64(mask) + 1
		}
		values[i] = float64(v)
	}
	a, err := raster.New(dtype, shape, values)
	if err != nil {
		return nil, fmt.Errorf("dicom: %w", err)
	}
	return a, nil
}

// Name returns the human-readable name
func (c *Codec) Name() string { return "dicom" }

// Extensions returns the file extensions handled by this codec
func (c *Codec) Extensions() []string { return []string{"dcm", "dicom"} }

// Lossy reports false
func (c *Codec) Lossy() bool { return false }

func init() {
	codec.Register(NewCodec())
}
