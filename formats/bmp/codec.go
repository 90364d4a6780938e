// Package bmp registers the lossless BMP raster format.
package bmp

import (
	"fmt"
	"io"

	"golang.org/x/image/bmp"

	"github.com/cocosip/go-rasterstats/codec"
	"github.com/cocosip/go-rasterstats/raster"
)

// Codec implements the codec.Codec interface for BMP
type Codec struct{}

// NewCodec creates a new BMP codec
func NewCodec() *Codec {
	return &Codec{}
}

// Encode writes a uint8 image array as BMP. Gray arrays are stored with a
// gray palette and decode back to (H, W).
func (c *Codec) Encode(w io.Writer, params codec.EncodeParams) error {
	if err := params.Validate(); err != nil {
		return err
	}
	if params.Array.DType() != raster.Uint8 {
		return fmt.Errorf("bmp: %w: %s", codec.ErrUnsupportedDType, params.Array.DType())
	}
	im, err := raster.ToImage(params.Array)
	if err != nil {
		return fmt.Errorf("bmp: %w: %w", codec.ErrUnsupportedShape, err)
	}
	return bmp.Encode(w, im)
}

// Decode reads a BMP image
func (c *Codec) Decode(r io.Reader) (*raster.Array, error) {
	im, err := bmp.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("bmp: %w", err)
	}
	return raster.FromImage(im), nil
}

// Name returns the human-readable name
func (c *Codec) Name() string { return "bmp" }

// Extensions returns the file extensions handled by this codec
func (c *Codec) Extensions() []string { return []string{"bmp"} }

// Lossy reports false: BMP stores pixels uncompressed
func (c *Codec) Lossy() bool { return false }

func init() {
	codec.Register(NewCodec())
}
