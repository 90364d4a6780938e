// Package jp2 registers the lossless JPEG 2000 raster formats: JP2 files
// and raw codestreams.
package jp2

import (
	"bytes"
	"fmt"
	"io"

	"github.com/cocosip/go-rasterstats/codec"
	"github.com/cocosip/go-rasterstats/jpeg2000"
	"github.com/cocosip/go-rasterstats/raster"
)

// Codec implements the codec.Codec interface for JPEG 2000. Both forms
// decode either layout; the form only selects what Encode writes.
type Codec struct {
	name       string
	extensions []string
	boxed      bool
}

// NewCodec creates the JP2 file codec
func NewCodec() *Codec {
	return &Codec{name: "jp2", extensions: []string{"jp2"}, boxed: true}
}

// NewCodestreamCodec creates the raw codestream codec
func NewCodestreamCodec() *Codec {
	return &Codec{name: "j2k", extensions: []string{"j2k", "j2c"}}
}

// sampleFormat returns the JPEG 2000 precision and signedness of a dtype
func sampleFormat(d raster.DType) (depth int, signed bool, ok bool) {
	switch d {
	case raster.Uint8:
		return 8, false, true
	case raster.Uint16:
		return 16, false, true
	case raster.Int8:
		return 8, true, true
	case raster.Int16:
		return 16, true, true
	}
	return 0, false, false
}

// Encode writes a 2-D array or a (height, width, components) array of 8 or
// 16-bit integers losslessly
func (c *Codec) Encode(w io.Writer, params codec.EncodeParams) error {
	if err := params.Validate(); err != nil {
		return err
	}
	a := params.Array
	depth, signed, ok := sampleFormat(a.DType())
	if !ok {
		return fmt.Errorf("%s: %w: %s", c.name, codec.ErrUnsupportedDType, a.DType())
	}
	shape := a.Shape()
	if len(shape) != 2 && len(shape) != 3 {
		return fmt.Errorf("%s: %w: %v", c.name, codec.ErrUnsupportedShape, shape)
	}
	height, width, comps := shape[0], shape[1], 1
	if len(shape) == 3 {
		comps = shape[2]
	}
	if width > 1<<16 || height > 1<<16 || comps > 16384 {
		return fmt.Errorf("%s: %w: %v", c.name, codec.ErrUnsupportedShape, shape)
	}

	// deinterleave into one plane per component
	values := a.Values()
	planes := make([][]int32, comps)
	for k := range planes {
		planes[k] = make([]int32, width*height)
		for i := range planes[k] {
			planes[k][i] = int32(values[i*comps+k])
		}
	}

	p := jpeg2000.DefaultEncodeParams(width, height, comps, depth, signed)
	cs, err := jpeg2000.NewEncoder(p).EncodeComponents(planes)
	if err != nil {
		return fmt.Errorf("%s: %w", c.name, err)
	}
	if c.boxed {
		cs = wrapCodestream(cs, width, height, comps, depth, signed)
	}
	_, err = w.Write(cs)
	return err
}

// Decode reads a JP2 file or a raw codestream
func (c *Codec) Decode(r io.Reader) (*raster.Array, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.name, err)
	}
	if isJP2(data) {
		if data, err = extractCodestream(data); err != nil {
			return nil, err
		}
	} else if !bytes.HasPrefix(data, []byte{0xFF, 0x4F}) {
		return nil, fmt.Errorf("%s: %w: neither a JP2 file nor a codestream", c.name, codec.ErrUnsupportedFormat)
	}

	dec := jpeg2000.NewDecoder()
	if err := dec.Decode(data); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", c.name, codec.ErrUnsupportedFormat, err)
	}
	return toArray(dec)
}

func toArray(dec *jpeg2000.Decoder) (*raster.Array, error) {
	dtype := raster.Uint16
	switch {
	case dec.BitDepth() <= 8 && dec.IsSigned():
		dtype = raster.Int8
	case dec.BitDepth() <= 8:
		dtype = raster.Uint8
	case dec.IsSigned():
		dtype = raster.Int16
	}

	h, w, comps := dec.Height(), dec.Width(), dec.Components()
	shape := []int{h, w}
	if comps > 1 {
		shape = append(shape, comps)
	}
	planes := dec.GetImageData()
	values := make([]float64, h*w*comps)
	for k, plane := range planes {
		for i, v := range plane {
			values[i*comps+k] = float64(v)
		}
	}
	return raster.New(dtype, shape, values)
}

// Name returns the human-readable name
func (c *Codec) Name() string { return c.name }

// Extensions returns the file extensions handled by this codec
func (c *Codec) Extensions() []string { return c.extensions }

// Lossy reports false: only the reversible path is written
func (c *Codec) Lossy() bool { return false }

func init() {
	codec.Register(NewCodec())
	codec.Register(NewCodestreamCodec())
}
