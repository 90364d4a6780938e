// Package npy registers the NumPy .npy array format. It is the only
// registered format that stores every dtype, N-dimensional shapes and NaN.
package npy

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/cocosip/go-rasterstats/codec"
	"github.com/cocosip/go-rasterstats/raster"
)

const (
	magic      = "\x93NUMPY"
	headerSize = 64 // header blocks are padded to this alignment
)

var (
	descrRe   = regexp.MustCompile(`'descr'\s*:\s*'([^']*)'`)
	fortranRe = regexp.MustCompile(`'fortran_order'\s*:\s*(True|False)`)
	shapeRe   = regexp.MustCompile(`'shape'\s*:\s*\(([^)]*)\)`)
)

// type codes without byte order
var typeCodes = map[string]raster.DType{
	"u1": raster.Uint8,
	"u2": raster.Uint16,
	"u4": raster.Uint32,
	"i1": raster.Int8,
	"i2": raster.Int16,
	"i4": raster.Int32,
	"i8": raster.Int64,
	"f4": raster.Float32,
	"f8": raster.Float64,
}

// Codec implements the codec.Codec interface for .npy files
type Codec struct{}

// NewCodec creates a new NPY codec
func NewCodec() *Codec {
	return &Codec{}
}

func descr(d raster.DType) string {
	for code, t := range typeCodes {
		if t == d {
			if d.Size() == 1 {
				return "|" + code
			}
			return "<" + code
		}
	}
	return ""
}

func shapeTuple(shape []int) string {
	parts := make([]string, len(shape))
	for i, d := range shape {
		parts[i] = strconv.Itoa(d)
	}
	if len(parts) == 1 {
		return "(" + parts[0] + ",)"
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// Encode writes the array as a version 1.0 .npy file in little-endian order
func (c *Codec) Encode(w io.Writer, params codec.EncodeParams) error {
	if err := params.Validate(); err != nil {
		return err
	}
	a := params.Array

	header := fmt.Sprintf("{'descr': '%s', 'fortran_order': False, 'shape': %s, }", descr(a.DType()), shapeTuple(a.Shape()))
	preamble := len(magic) + 2 + 2
	pad := headerSize - (preamble+len(header)+1)%headerSize
	if pad == headerSize {
		pad = 0
	}
	header += strings.Repeat(" ", pad) + "\n"

	bw := bufio.NewWriter(w)
	bw.WriteString(magic)
	bw.Write([]byte{1, 0})
	binary.Write(bw, binary.LittleEndian, uint16(len(header)))
	bw.WriteString(header)

	buf := make([]byte, a.DType().Size())
	for _, v := range a.Values() {
		putValue(buf, binary.LittleEndian, a.DType(), v)
		if _, err := bw.Write(buf); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Decode reads a version 1, 2 or 3 .npy file in C order
func (c *Codec) Decode(r io.Reader) (*raster.Array, error) {
	br := bufio.NewReader(r)

	pre := make([]byte, len(magic)+2)
	if _, err := io.ReadFull(br, pre); err != nil {
		return nil, fmt.Errorf("npy: read preamble: %w", err)
	}
	if string(pre[:len(magic)]) != magic {
		return nil, fmt.Errorf("npy: %w: bad magic", codec.ErrUnsupportedFormat)
	}

	var headerLen int
	switch major := pre[len(magic)]; major {
	case 1:
		var n uint16
		if err := binary.Read(br, binary.LittleEndian, &n); err != nil {
			return nil, fmt.Errorf("npy: read header length: %w", err)
		}
		headerLen = int(n)
	case 2, 3:
		var n uint32
		if err := binary.Read(br, binary.LittleEndian, &n); err != nil {
			return nil, fmt.Errorf("npy: read header length: %w", err)
		}
		headerLen = int(n)
	default:
		return nil, fmt.Errorf("npy: %w: version %d", codec.ErrUnsupportedFormat, major)
	}

	header := make([]byte, headerLen)
	if _, err := io.ReadFull(br, header); err != nil {
		return nil, fmt.Errorf("npy: read header: %w", err)
	}
	dtype, order, shape, err := parseHeader(header)
	if err != nil {
		return nil, err
	}

	n := 1
	for _, d := range shape {
		n *= d
	}
	size := dtype.Size()
	raw := make([]byte, n*size)
	if _, err := io.ReadFull(br, raw); err != nil {
		return nil, fmt.Errorf("npy: read %d elements: %w", n, err)
	}

	values := make([]float64, n)
	for i := range values {
		b := raw[i*size : (i+1)*size]
		if dtype == raster.Int64 {
			if x := int64(order.Uint64(b)); x > raster.MaxExactInt || x < -raster.MaxExactInt {
				return nil, fmt.Errorf("npy: %w: element %d is %d", raster.ErrValueRange, i, x)
			}
		}
		values[i] = value(b, order, dtype)
	}
	a, err := raster.New(dtype, shape, values)
	if err != nil {
		return nil, fmt.Errorf("npy: %w", err)
	}
	return a, nil
}

func parseHeader(header []byte) (raster.DType, binary.ByteOrder, []int, error) {
	m := descrRe.FindSubmatch(header)
	if m == nil {
		return 0, nil, nil, fmt.Errorf("npy: %w: header has no descr", codec.ErrUnsupportedFormat)
	}
	d := string(m[1])

	var order binary.ByteOrder = binary.LittleEndian
	switch {
	case strings.HasPrefix(d, ">"):
		order = binary.BigEndian
		d = d[1:]
	case strings.HasPrefix(d, "<"), strings.HasPrefix(d, "|"), strings.HasPrefix(d, "="):
		d = d[1:]
	}
	dtype, ok := typeCodes[d]
	if !ok {
		return 0, nil, nil, fmt.Errorf("npy: %w: descr %q", codec.ErrUnsupportedDType, string(m[1]))
	}

	if m := fortranRe.FindSubmatch(header); m != nil && string(m[1]) == "True" {
		return 0, nil, nil, fmt.Errorf("npy: %w: fortran order", codec.ErrUnsupportedFormat)
	}

	m = shapeRe.FindSubmatch(header)
	if m == nil {
		return 0, nil, nil, fmt.Errorf("npy: %w: header has no shape", codec.ErrUnsupportedFormat)
	}
	var shape []int
	// the element count times the element size must fit in an int
	n := 1
	for _, f := range bytes.Split(m[1], []byte(",")) {
		f = bytes.TrimSpace(f)
		if len(f) == 0 {
			continue
		}
		dim, err := strconv.Atoi(string(f))
		if err != nil {
			return 0, nil, nil, fmt.Errorf("npy: %w: shape %q", codec.ErrUnsupportedFormat, string(m[1]))
		}
		if dim <= 0 || n > math.MaxInt/dtype.Size()/dim {
			return 0, nil, nil, fmt.Errorf("npy: %w: shape %q", codec.ErrUnsupportedFormat, string(m[1]))
		}
		n *= dim
		shape = append(shape, dim)
	}
	return dtype, order, shape, nil
}

func value(b []byte, order binary.ByteOrder, d raster.DType) float64 {
	switch d {
	case raster.Uint8:
		return float64(b[0])
	case raster.Int8:
		return float64(int8(b[0]))
	case raster.Uint16:
		return float64(order.Uint16(b))
	case raster.Int16:
		return float64(int16(order.Uint16(b)))
	case raster.Uint32:
		return float64(order.Uint32(b))
	case raster.Int32:
		return float64(int32(order.Uint32(b)))
	case raster.Int64:
		return float64(int64(order.Uint64(b)))
	case raster.Float32:
		return float64(math.Float32frombits(order.Uint32(b)))
	case raster.Float64:
		return math.Float64frombits(order.Uint64(b))
	}
	return math.NaN()
}

func putValue(b []byte, order binary.ByteOrder, d raster.DType, v float64) {
	switch d {
	case raster.Uint8:
		b[0] = uint8(v)
	case raster.Int8:
		b[0] = uint8(int8(v))
	case raster.Uint16:
		order.PutUint16(b, uint16(v))
	case raster.Int16:
		order.PutUint16(b, uint16(int16(v)))
	case raster.Uint32:
		order.PutUint32(b, uint32(v))
	case raster.Int32:
		order.PutUint32(b, uint32(int32(v)))
	case raster.Int64:
		order.PutUint64(b, uint64(int64(v)))
	case raster.Float32:
		order.PutUint32(b, math.Float32bits(float32(v)))
	case raster.Float64:
		order.PutUint64(b, math.Float64bits(v))
	}
}

// Name returns the human-readable name
func (c *Codec) Name() string { return "npy" }

// Extensions returns the file extensions handled by this codec
func (c *Codec) Extensions() []string { return []string{"npy"} }

// Lossy reports false
func (c *Codec) Lossy() bool { return false }

func init() {
	codec.Register(NewCodec())
}
