package codestream

import "errors"

var (
	// ErrMalformed indicates a truncated or inconsistent codestream
	ErrMalformed = errors.New("malformed JPEG 2000 codestream")

	// ErrUnsupported indicates a valid codestream using a feature this
	// package does not decode
	ErrUnsupported = errors.New("unsupported JPEG 2000 feature")
)
