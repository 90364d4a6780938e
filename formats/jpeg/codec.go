// Package jpeg registers the lossy JPEG raster format.
package jpeg

import (
	"fmt"
	"io"

	"github.com/cocosip/go-rasterstats/codec"
	"github.com/cocosip/go-rasterstats/jpeg/baseline"
	"github.com/cocosip/go-rasterstats/notify"
	"github.com/cocosip/go-rasterstats/raster"
)

// DefaultQuality is used when no quality option is given
const DefaultQuality = 90

// Codec implements the codec.Codec interface for JPEG
type Codec struct{}

// NewCodec creates a new JPEG codec
func NewCodec() *Codec {
	return &Codec{}
}

// Options contains encoding options for JPEG
type Options struct {
	codec.BaseOptions
}

// Validate validates the options
func (o *Options) Validate() error {
	// Quality is validated in BaseOptions
	return o.BaseOptions.Validate()
}

// Encode writes a uint8 (H,W), (H,W,1) or (H,W,3) array as baseline JPEG.
// Every call emits a notify.User notice because the written pixels will not
// decode back exactly.
func (c *Codec) Encode(w io.Writer, params codec.EncodeParams) error {
	if err := params.Validate(); err != nil {
		return err
	}
	a := params.Array
	if a.DType() != raster.Uint8 {
		return fmt.Errorf("jpeg: %w: %s (only uint8 is supported)", codec.ErrUnsupportedDType, a.DType())
	}
	shape := a.Shape()
	components := 1
	switch {
	case len(shape) == 2:
	case len(shape) == 3 && shape[2] == 4:
		return fmt.Errorf("jpeg: %w: alpha channel in %v", codec.ErrUnsupportedShape, shape)
	case len(shape) == 3 && (shape[2] == 1 || shape[2] == 3):
		components = shape[2]
	default:
		return fmt.Errorf("jpeg: %w: %v is not a gray or RGB image", codec.ErrUnsupportedShape, shape)
	}

	quality := DefaultQuality
	if opts, ok := params.Options.(*Options); ok && opts.Quality > 0 {
		quality = opts.Quality
	}

	values := a.Values()
	pix := make([]byte, len(values))
	for i, v := range values {
		pix[i] = byte(v)
	}
	data, err := baseline.Encode(pix, shape[1], shape[0], components, quality)
	if err != nil {
		return fmt.Errorf("jpeg: %w: %w", codec.ErrUnsupportedShape, err)
	}

	params.Notify(notify.User, "JPEG is a lossy format; the written image will not be identical to the input array")
	_, err = w.Write(data)
	return err
}

// Decode reads a baseline JPEG image as (H,W) uint8 for grayscale or
// (H,W,3) uint8 RGB
func (c *Codec) Decode(r io.Reader) (*raster.Array, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("jpeg: %w", err)
	}
	pix, width, height, components, err := baseline.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("jpeg: %w: %w", codec.ErrUnsupportedFormat, err)
	}

	shape := []int{height, width}
	if components > 1 {
		shape = append(shape, components)
	}
	values := make([]float64, len(pix))
	for i, p := range pix {
		values[i] = float64(p)
	}
	return raster.New(raster.Uint8, shape, values)
}

// Name returns the human-readable name
func (c *Codec) Name() string { return "jpeg" }

// Extensions returns the file extensions handled by this codec
func (c *Codec) Extensions() []string { return []string{"jpg", "jpeg"} }

// Lossy reports true
func (c *Codec) Lossy() bool { return true }

func init() {
	codec.Register(NewCodec())
}
