package rasterio

import (
	"archive/tar"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cocosip/go-rasterstats/codec"
	"github.com/cocosip/go-rasterstats/formats/jpeg"
	"github.com/cocosip/go-rasterstats/notify"
	"github.com/cocosip/go-rasterstats/raster"
)

func TestWriteReadLossless(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]*raster.Array{
		"a/b/img.png":  codec.NewTestArray(raster.Uint8, 12, 10, 3),
		"img.tif":      codec.NewTestArray(raster.Uint16, 7, 9),
		"img.bmp":      codec.NewTestArray(raster.Uint8, 5, 5, 3),
		"img.npy":      codec.NewTestArray(raster.Float64, 2, 3, 4),
		"deep/img.npy": codec.NewTestArray(raster.Int8, 8),
	}

	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			rec := &notify.Recorder{}
			rw := New(WithNotifier(rec))
			path := filepath.Join(dir, name)

			require.NoError(t, rw.Write(path, src))
			got, err := rw.Read(path)
			require.NoError(t, err)

			assert.True(t, raster.Equal(src, got))
			assert.True(t, got.Writable())
			assert.Zero(t, rec.Len(), "lossless writes are silent")
		})
	}
}

func TestWriteJPEGWarns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "img.jpg")
	rec := &notify.Recorder{}
	rw := New(WithNotifier(rec), WithEncodeOptions(&jpeg.Options{BaseOptions: codec.BaseOptions{Quality: 80}}))

	require.NoError(t, rw.Write(path, codec.NewTestArray(raster.Uint8, 16, 16, 3)))
	assert.True(t, rec.Has(notify.User))

	got, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, []int{16, 16, 3}, got.Shape())
}

func TestDefaultNotifier(t *testing.T) {
	path := filepath.Join(t.TempDir(), "img.jpeg")
	notices := notify.Capture(func() {
		require.NoError(t, Write(path, codec.NewTestArray(raster.Uint8, 8, 8)))
	})
	require.Len(t, notices, 1)
	assert.Equal(t, notify.User, notices[0].Category)
}

func TestUnknownExtension(t *testing.T) {
	dir := t.TempDir()
	_, err := Read(filepath.Join(dir, "img.webp"))
	assert.ErrorIs(t, err, codec.ErrCodecNotFound)

	err = Write(filepath.Join(dir, "img"), codec.NewTestArray(raster.Uint8, 1))
	assert.ErrorIs(t, err, codec.ErrCodecNotFound)
}

func TestWriteUnsupportedReportsPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "img.png")
	err := Write(path, codec.NewTestArray(raster.Float32, 2, 2))
	assert.ErrorIs(t, err, codec.ErrUnsupportedShape)
	assert.Contains(t, err.Error(), path)
}

func TestReadBundle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bundle.tar")
	f, err := os.Create(path)
	require.NoError(t, err)
	tw := tar.NewWriter(f)
	body := []byte(`{"message": "test"}`)
	require.NoError(t, tw.WriteHeader(&tar.Header{Name: "folder/simple.json", Mode: 0o644, Size: int64(len(body)), Typeflag: tar.TypeReg}))
	_, err = tw.Write(body)
	require.NoError(t, err)
	require.NoError(t, tw.Close())
	require.NoError(t, f.Close())

	got, err := ReadBundle(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"folder/simple.json": map[string]any{"message": "test"}}, got)
}

func TestWithCopies(t *testing.T) {
	base := New()
	rec := &notify.Recorder{}
	derived := base.With(WithNotifier(rec))
	assert.Nil(t, base.notifier)
	assert.Equal(t, notify.Notifier(rec), derived.notifier)
}
