// Package png registers the lossless PNG raster format.
package png

import (
	"fmt"
	"image/png"
	"io"

	"github.com/cocosip/go-rasterstats/codec"
	"github.com/cocosip/go-rasterstats/raster"
)

// Codec implements the codec.Codec interface for PNG
type Codec struct{}

// NewCodec creates a new PNG codec
func NewCodec() *Codec {
	return &Codec{}
}

// Encode writes a uint8 or uint16 image array as PNG
func (c *Codec) Encode(w io.Writer, params codec.EncodeParams) error {
	if err := params.Validate(); err != nil {
		return err
	}
	im, err := raster.ToImage(params.Array)
	if err != nil {
		return fmt.Errorf("png: %w: %w", codec.ErrUnsupportedShape, err)
	}
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	return enc.Encode(w, im)
}

// Decode reads a PNG image
func (c *Codec) Decode(r io.Reader) (*raster.Array, error) {
	im, err := png.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("png: %w", err)
	}
	return raster.FromImage(im), nil
}

// Name returns the human-readable name
func (c *Codec) Name() string { return "png" }

// Extensions returns the file extensions handled by this codec
func (c *Codec) Extensions() []string { return []string{"png"} }

// Lossy reports false: PNG is lossless
func (c *Codec) Lossy() bool { return false }

// Register registers this codec with the global registry
func init() {
	codec.Register(NewCodec())
}
