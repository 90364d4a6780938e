package raster

import (
	"fmt"
	"math"
	"strings"
)

// DType is the element type tag of an Array
type DType uint8

// Supported element types. The zero value is Invalid and is used by callers
// to mean "no element type given".
const (
	Invalid DType = iota
	Uint8
	Uint16
	Uint32
	Int8
	Int16
	Int32
	Int64
	Float32
	Float64
)

var dtypeNames = [...]string{
	Invalid: "invalid",
	Uint8:   "uint8",
	Uint16:  "uint16",
	Uint32:  "uint32",
	Int8:    "int8",
	Int16:   "int16",
	Int32:   "int32",
	Int64:   "int64",
	Float32: "float32",
	Float64: "float64",
}

// String returns the lowercase name of the element type (e.g. "uint16")
func (d DType) String() string {
	if int(d) < len(dtypeNames) {
		return dtypeNames[d]
	}
	return fmt.Sprintf("dtype(%d)", uint8(d))
}

// ParseDType parses a dtype name as produced by String
func ParseDType(s string) (DType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range dtypeNames {
		if i != int(Invalid) && name == s {
			return DType(i), nil
		}
	}
	return Invalid, fmt.Errorf("%w: %q", ErrUnknownDType, s)
}

// MarshalText implements encoding.TextMarshaler
func (d DType) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (d *DType) UnmarshalText(text []byte) error {
	v, err := ParseDType(string(text))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// Valid reports whether d is one of the supported element types
func (d DType) Valid() bool {
	return d > Invalid && d <= Float64
}

// IsFloat reports whether d is a floating-point type
func (d DType) IsFloat() bool {
	return d == Float32 || d == Float64
}

// Size returns the element size in bytes
func (d DType) Size() int {
	switch d {
	case Uint8, Int8:
		return 1
	case Uint16, Int16:
		return 2
	case Uint32, Int32, Float32:
		return 4
	case Int64, Float64:
		return 8
	}
	return 0
}

// MaxExactInt is the largest magnitude up to which every integer has an
// exact float64 value. Int64 elements are limited to it.
const MaxExactInt = 1 << 53

// bounds returns the representable range of an integer type
func (d DType) bounds() (lo, hi float64) {
	switch d {
	case Uint8:
		return 0, math.MaxUint8
	case Uint16:
		return 0, math.MaxUint16
	case Uint32:
		return 0, math.MaxUint32
	case Int8:
		return math.MinInt8, math.MaxInt8
	case Int16:
		return math.MinInt16, math.MaxInt16
	case Int32:
		return math.MinInt32, math.MaxInt32
	case Int64:
		return -MaxExactInt, MaxExactInt
	}
	return math.Inf(-1), math.Inf(1)
}

// cast converts v to the precision of d. Integer types reject values that
// are fractional, NaN or out of range.
func (d DType) cast(v float64) (float64, error) {
	switch d {
	case Float64:
		return v, nil
	case Float32:
		return float64(float32(v)), nil
	}
	if math.IsNaN(v) || v != math.Trunc(v) {
		return 0, fmt.Errorf("%w: %v is not an integer (%s)", ErrValueRange, v, d)
	}
	lo, hi := d.bounds()
	if v < lo || v > hi {
		return 0, fmt.Errorf("%w: %v outside [%v, %v] (%s)", ErrValueRange, v, lo, hi, d)
	}
	return v, nil
}
