package jp2

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cocosip/go-rasterstats/codec"
	"github.com/cocosip/go-rasterstats/raster"
)

func TestJP2RoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		dtype raster.DType
		shape []int
	}{
		{"gray8", raster.Uint8, []int{16, 24}},
		{"gray16", raster.Uint16, []int{33, 17}},
		{"signed8", raster.Int8, []int{9, 12}},
		{"signed16", raster.Int16, []int{8, 8}},
		{"rgb8", raster.Uint8, []int{20, 13, 3}},
		{"rgba8", raster.Uint8, []int{7, 9, 4}},
		{"rgb16", raster.Uint16, []int{70, 66, 3}},
	}

	for _, c := range []*Codec{NewCodec(), NewCodestreamCodec()} {
		for _, tt := range tests {
			t.Run(c.Name()+"/"+tt.name, func(t *testing.T) {
				src := codec.NewTestArray(tt.dtype, tt.shape...)

				var buf bytes.Buffer
				require.NoError(t, c.Encode(&buf, codec.EncodeParams{Array: src}))
				t.Logf("Encoded size: %d bytes", buf.Len())
				assert.Equal(t, c.boxed, isJP2(buf.Bytes()))

				got, err := c.Decode(&buf)
				require.NoError(t, err)
				assert.Equal(t, tt.shape, got.Shape())
				assert.Equal(t, tt.dtype, got.DType())
				off, differ := raster.FirstDifference(src, got)
				assert.False(t, differ, "first difference at %d", off)
			})
		}
	}
}

func TestJP2DecodesEitherForm(t *testing.T) {
	src := codec.NewTestArray(raster.Uint16, 10, 12)
	var boxed, raw bytes.Buffer
	require.NoError(t, NewCodec().Encode(&boxed, codec.EncodeParams{Array: src}))
	require.NoError(t, NewCodestreamCodec().Encode(&raw, codec.EncodeParams{Array: src}))

	a, err := NewCodestreamCodec().Decode(&boxed)
	require.NoError(t, err)
	assert.True(t, raster.Equal(src, a))

	b, err := NewCodec().Decode(&raw)
	require.NoError(t, err)
	assert.True(t, raster.Equal(src, b))
}

func TestJP2ExtendedBoxLength(t *testing.T) {
	src := codec.NewTestArray(raster.Uint8, 5, 6)
	var raw bytes.Buffer
	require.NoError(t, NewCodestreamCodec().Encode(&raw, codec.EncodeParams{Array: src}))

	file := wrapCodestream(raw.Bytes(), 6, 5, 1, 8, false)
	// find the codestream box and rewrite it with an 8-byte XLBox
	cs := bytes.LastIndex(file, []byte("jp2c")) - 4
	var ext bytes.Buffer
	ext.Write(file[:cs])
	_ = binary.Write(&ext, binary.BigEndian, uint32(1))
	ext.WriteString("jp2c")
	_ = binary.Write(&ext, binary.BigEndian, uint64(16+raw.Len()))
	ext.Write(raw.Bytes())

	got, err := NewCodec().Decode(&ext)
	require.NoError(t, err)
	assert.True(t, raster.Equal(src, got))

	// a final box of length zero runs to the end of the file
	var open bytes.Buffer
	open.Write(file[:cs])
	_ = binary.Write(&open, binary.BigEndian, uint32(0))
	open.WriteString("jp2c")
	open.Write(raw.Bytes())
	got, err = NewCodec().Decode(&open)
	require.NoError(t, err)
	assert.True(t, raster.Equal(src, got))
}

func TestJP2Rejects(t *testing.T) {
	c := NewCodec()

	err := c.Encode(&bytes.Buffer{}, codec.EncodeParams{Array: codec.NewTestArray(raster.Float32, 2, 2)})
	assert.ErrorIs(t, err, codec.ErrUnsupportedDType)
	err = c.Encode(&bytes.Buffer{}, codec.EncodeParams{Array: codec.NewTestArray(raster.Uint32, 2, 2)})
	assert.ErrorIs(t, err, codec.ErrUnsupportedDType)
	err = c.Encode(&bytes.Buffer{}, codec.EncodeParams{Array: codec.NewTestArray(raster.Uint8, 8)})
	assert.ErrorIs(t, err, codec.ErrUnsupportedShape)

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"png", []byte("\x89PNG\r\n\x1a\n")},
		{"signature only", signature},
		{"truncated box", append(append([]byte{}, signature...), 0, 0, 0, 20, 'f', 't')},
		{"truncated codestream", []byte{0xFF, 0x4F, 0xFF, 0x51, 0x00}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Decode(bytes.NewReader(tt.data))
			assert.ErrorIs(t, err, codec.ErrUnsupportedFormat)
		})
	}
}

func TestJP2Registered(t *testing.T) {
	for ext, name := range map[string]string{".jp2": "jp2", ".J2K": "j2k", "j2c": "j2k"} {
		c, err := codec.Get(ext)
		require.NoError(t, err)
		assert.Equal(t, name, c.Name())
		assert.False(t, c.Lossy())
	}
}
