package codec

import (
	"io"

	"github.com/cocosip/go-rasterstats/notify"
	"github.com/cocosip/go-rasterstats/raster"
)

// Codec is the universal interface for all raster file formats
type Codec interface {
	// Encode writes the array in this format
	Encode(w io.Writer, params EncodeParams) error

	// Decode reads an array in this format
	Decode(r io.Reader) (*raster.Array, error)

	// Name returns a human-readable name
	Name() string

	// Extensions returns the lowercase file extensions, without the dot
	Extensions() []string

	// Lossy reports whether decode(encode(x)) may differ from x
	Lossy() bool
}

// CanEncode reports whether c writes its format. Decode-only codecs
// implement CanEncode() bool and return false; every other codec encodes.
func CanEncode(c Codec) bool {
	if e, ok := c.(interface{ CanEncode() bool }); ok {
		return e.CanEncode()
	}
	return true
}

// EncodeParams contains parameters for encoding
type EncodeParams struct {
	Array    *raster.Array   // Data to encode
	Notifier notify.Notifier // Receives advisory notices; nil means notify.Default()
	Options  Options         // Codec-specific options
}

// Notify sends an advisory notice to the configured notifier
func (p EncodeParams) Notify(c notify.Category, msg string) {
	n := p.Notifier
	if n == nil {
		n = notify.Default()
	}
	n.Notify(notify.Notice{Category: c, Message: msg})
}

// Validate checks the array and the options
func (p EncodeParams) Validate() error {
	if p.Array == nil || p.Array.Len() == 0 {
		return ErrInvalidParameter
	}
	if p.Options != nil {
		return p.Options.Validate()
	}
	return nil
}

// Options is an interface for codec-specific encoding options
type Options interface {
	// Validate checks if the options are valid
	Validate() error
}

// BaseOptions provides common options for all codecs
type BaseOptions struct {
	// Quality factor for lossy codecs (1-100, higher is better).
	// 0 selects the codec default. Not used for lossless codecs.
	Quality int
}

// Validate validates base options
func (o *BaseOptions) Validate() error {
	if o.Quality < 0 || o.Quality > 100 {
		return ErrInvalidQuality
	}
	return nil
}
