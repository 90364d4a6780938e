package raster

import "errors"

var (
	// ErrInvalidShape is returned when a shape has non-positive dimensions
	// or does not match the number of values
	ErrInvalidShape = errors.New("raster: invalid shape")

	// ErrUnknownDType is returned when an element type name is not recognized
	ErrUnknownDType = errors.New("raster: unknown dtype")

	// ErrValueRange is returned when a value cannot be represented by the element type
	ErrValueRange = errors.New("raster: value not representable")

	// ErrReadOnly is returned when writing to a read-only array
	ErrReadOnly = errors.New("raster: array is read-only")

	// ErrIndex is returned for out-of-range or mis-sized indices
	ErrIndex = errors.New("raster: index out of range")

	// ErrNotImage is returned when an array cannot be viewed as an image
	ErrNotImage = errors.New("raster: array is not an image")
)
