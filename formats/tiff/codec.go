// Package tiff registers the lossless TIFF raster format.
package tiff

import (
	"fmt"
	"io"

	"golang.org/x/image/tiff"

	"github.com/cocosip/go-rasterstats/codec"
	"github.com/cocosip/go-rasterstats/raster"
)

// Codec implements the codec.Codec interface for TIFF
type Codec struct {
	compression tiff.CompressionType
}

// NewCodec creates a TIFF codec writing deflate-compressed files
func NewCodec() *Codec {
	return &Codec{compression: tiff.Deflate}
}

// Encode writes a uint8 or uint16 image array as TIFF
func (c *Codec) Encode(w io.Writer, params codec.EncodeParams) error {
	if err := params.Validate(); err != nil {
		return err
	}
	im, err := raster.ToImage(params.Array)
	if err != nil {
		return fmt.Errorf("tiff: %w: %w", codec.ErrUnsupportedShape, err)
	}
	return tiff.Encode(w, im, &tiff.Options{Compression: c.compression})
}

// Decode reads a TIFF image
func (c *Codec) Decode(r io.Reader) (*raster.Array, error) {
	im, err := tiff.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("tiff: %w", err)
	}
	return raster.FromImage(im), nil
}

// Name returns the human-readable name
func (c *Codec) Name() string { return "tiff" }

// Extensions returns the file extensions handled by this codec
func (c *Codec) Extensions() []string { return []string{"tif", "tiff"} }

// Lossy reports false: TIFF is written uncompressed or deflated
func (c *Codec) Lossy() bool { return false }

func init() {
	codec.Register(NewCodec())
}
