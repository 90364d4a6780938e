// Package raster provides the in-memory multi-dimensional array exchanged
// between codecs and the statistics validator.
package raster

import (
	"fmt"
	"math"
	"slices"
	"strings"
)

// Array is a row-major n-dimensional numeric array with a fixed shape and
// element type. Values are stored as float64 at the precision of the dtype.
type Array struct {
	shape    []int
	dtype    DType
	data     []float64
	readOnly bool
}

// New creates a writable array of the given type and shape holding a copy of values.
// Values are cast to the precision of dtype; integer types reject values that
// are not representable.
func New(dtype DType, shape []int, values []float64) (*Array, error) {
	if !dtype.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDType, dtype)
	}
	n, err := shapeSize(shape)
	if err != nil {
		return nil, err
	}
	if n != len(values) {
		return nil, fmt.Errorf("%w: shape %v needs %d values, got %d", ErrInvalidShape, shape, n, len(values))
	}

	data := make([]float64, n)
	for i, v := range values {
		if data[i], err = dtype.cast(v); err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
	}
	return &Array{shape: slices.Clone(shape), dtype: dtype, data: data}, nil
}

// Zeros creates a writable zero-filled array
func Zeros(dtype DType, shape ...int) (*Array, error) {
	n, err := shapeSize(shape)
	if err != nil {
		return nil, err
	}
	return New(dtype, shape, make([]float64, n))
}

func shapeSize(shape []int) (int, error) {
	n := 1
	for _, d := range shape {
		if d <= 0 {
			return 0, fmt.Errorf("%w: %v", ErrInvalidShape, shape)
		}
		n *= d
	}
	return n, nil
}

// Shape returns a copy of the dimension sequence
func (a *Array) Shape() []int { return slices.Clone(a.shape) }

// NDim returns the number of dimensions
func (a *Array) NDim() int { return len(a.shape) }

// DType returns the element type
func (a *Array) DType() DType { return a.dtype }

// Len returns the total number of elements
func (a *Array) Len() int {
	if a == nil {
		return 0
	}
	return len(a.data)
}

// Writable reports whether Set may modify the array
func (a *Array) Writable() bool { return !a.readOnly }

// Values returns the elements in row-major order.
// The slice aliases the array storage and must not be modified.
func (a *Array) Values() []float64 { return a.data }

// ReadOnly returns a read-only view sharing the same storage
func (a *Array) ReadOnly() *Array {
	return &Array{shape: a.shape, dtype: a.dtype, data: a.data, readOnly: true}
}

// Clone returns a writable deep copy
func (a *Array) Clone() *Array {
	return &Array{shape: slices.Clone(a.shape), dtype: a.dtype, data: slices.Clone(a.data)}
}

// offset converts a multi-index to a flat row-major offset
func (a *Array) offset(idx []int) (int, error) {
	if len(idx) != len(a.shape) {
		return 0, fmt.Errorf("%w: %d indices for %d dimensions", ErrIndex, len(idx), len(a.shape))
	}
	off := 0
	for i, v := range idx {
		if v < 0 || v >= a.shape[i] {
			return 0, fmt.Errorf("%w: index %d is %d, dimension is %d", ErrIndex, i, v, a.shape[i])
		}
		off = off*a.shape[i] + v
	}
	return off, nil
}

// At returns the element at the given multi-index
func (a *Array) At(idx ...int) (float64, error) {
	off, err := a.offset(idx)
	if err != nil {
		return 0, err
	}
	return a.data[off], nil
}

// Set stores v at the given multi-index
func (a *Array) Set(v float64, idx ...int) error {
	if a.readOnly {
		return ErrReadOnly
	}
	off, err := a.offset(idx)
	if err != nil {
		return err
	}
	if v, err = a.dtype.cast(v); err != nil {
		return err
	}
	a.data[off] = v
	return nil
}

// Equal reports whether a and b have the same shape and identical elements.
// Element types are not compared and NaN never equals NaN.
func Equal(a, b *Array) bool {
	_, differ := FirstDifference(a, b)
	return !differ
}

// FirstDifference returns the flat offset of the first element at which a and b
// differ. A shape mismatch is reported at offset -1.
func FirstDifference(a, b *Array) (int, bool) {
	return firstDifference(a, b, false)
}

// FirstDifferenceNaN is FirstDifference with NaN elements equal to each other
func FirstDifferenceNaN(a, b *Array) (int, bool) {
	return firstDifference(a, b, true)
}

func firstDifference(a, b *Array, equalNaN bool) (int, bool) {
	if a == nil || b == nil {
		return -1, a != b
	}
	if !slices.Equal(a.shape, b.shape) {
		return -1, true
	}
	for i, v := range a.data {
		w := b.data[i]
		if v == w || equalNaN && math.IsNaN(v) && math.IsNaN(w) {
			continue
		}
		return i, true
	}
	return 0, false
}

// String returns a short description such as "uint8[2048 2048 3]"
func (a *Array) String() string {
	if a == nil {
		return "<nil>"
	}
	dims := make([]string, len(a.shape))
	for i, d := range a.shape {
		dims[i] = fmt.Sprint(d)
	}
	return fmt.Sprintf("%s[%s]", a.dtype, strings.Join(dims, " "))
}

// HasNaN reports whether any element is NaN
func (a *Array) HasNaN() bool {
	return slices.ContainsFunc(a.data, math.IsNaN)
}
