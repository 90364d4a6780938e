package codec

import "errors"

var (
	// ErrCodecNotFound is returned when a codec is not found in the registry
	ErrCodecNotFound = errors.New("codec not found")

	// ErrInvalidParameter is returned when encoding parameters are invalid
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrInvalidQuality is returned when quality parameter is invalid
	ErrInvalidQuality = errors.New("invalid quality (must be 1-100)")

	// ErrUnsupportedFormat is returned when the data is not in a supported layout
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrUnsupportedDType is returned when a codec cannot store the element type
	ErrUnsupportedDType = errors.New("unsupported dtype")

	// ErrUnsupportedShape is returned when a codec cannot store the array shape
	ErrUnsupportedShape = errors.New("unsupported shape")
)
