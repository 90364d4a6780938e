// Package rasterio reads and writes arrays and bundles by file path, choosing
// the codec from the file extension.
package rasterio

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cocosip/go-rasterstats/bundle"
	"github.com/cocosip/go-rasterstats/codec"
	"github.com/cocosip/go-rasterstats/notify"
	"github.com/cocosip/go-rasterstats/raster"

	// Register the built-in formats
	_ "github.com/cocosip/go-rasterstats/formats/bmp"
	_ "github.com/cocosip/go-rasterstats/formats/dicom"
	_ "github.com/cocosip/go-rasterstats/formats/jp2"
	_ "github.com/cocosip/go-rasterstats/formats/jpeg"
	_ "github.com/cocosip/go-rasterstats/formats/npy"
	_ "github.com/cocosip/go-rasterstats/formats/png"
	_ "github.com/cocosip/go-rasterstats/formats/tiff"
)

// IO resolves codecs from a registry and forwards codec notices to a notifier
type IO struct {
	registry *codec.Registry
	notifier notify.Notifier
	options  codec.Options
}

// Option configures an IO
type Option func(*IO)

// WithRegistry selects the codec registry; the default is codec.Default()
func WithRegistry(r *codec.Registry) Option {
	return func(rw *IO) { rw.registry = r }
}

// WithNotifier selects where encode notices go; the default is notify.Default()
func WithNotifier(n notify.Notifier) Option {
	return func(rw *IO) { rw.notifier = n }
}

// WithEncodeOptions passes codec-specific options to every encode
func WithEncodeOptions(o codec.Options) Option {
	return func(rw *IO) { rw.options = o }
}

// New creates an IO
func New(opts ...Option) *IO {
	rw := &IO{registry: codec.Default()}
	for _, o := range opts {
		o(rw)
	}
	return rw
}

// With returns a copy of rw with additional options applied
func (rw *IO) With(opts ...Option) *IO {
	cp := *rw
	for _, o := range opts {
		o(&cp)
	}
	return &cp
}

// Codec returns the codec handling path
func (rw *IO) Codec(path string) (codec.Codec, error) {
	return rw.registry.ForPath(path)
}

// Read decodes the array stored at path
func (rw *IO) Read(path string) (*raster.Array, error) {
	c, err := rw.Codec(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	a, err := c.Decode(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return a, nil
}

// Write encodes a to path, creating parent folders as needed
func (rw *IO) Write(path string, a *raster.Array) error {
	c, err := rw.Codec(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	bw := bufio.NewWriter(f)
	err = c.Encode(bw, codec.EncodeParams{Array: a, Notifier: rw.notifier, Options: rw.options})
	if err == nil {
		err = bw.Flush()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// ReadBundle decodes the tar archive at path into its entries
func (rw *IO) ReadBundle(path string) (map[string]any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	entries, err := bundle.Read(bufio.NewReader(f), rw.registry)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return entries, nil
}

var std = New()

// Read decodes the array at path with the default registry
func Read(path string) (*raster.Array, error) { return std.Read(path) }

// Write encodes a to path with the default registry
func Write(path string, a *raster.Array) error { return std.Write(path, a) }

// ReadBundle decodes the tar archive at path with the default registry
func ReadBundle(path string) (map[string]any, error) { return std.ReadBundle(path) }
