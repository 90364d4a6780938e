package jpeg2000

import (
	"errors"

	"github.com/cocosip/go-rasterstats/jpeg2000/codestream"
)

var (
	// ErrInvalidParams indicates encoder parameters or input planes that
	// cannot be coded
	ErrInvalidParams = errors.New("invalid JPEG 2000 encode parameters")

	// ErrMalformed indicates a truncated or inconsistent codestream
	ErrMalformed = codestream.ErrMalformed

	// ErrUnsupported indicates a codestream using a feature the decoder
	// does not implement
	ErrUnsupported = codestream.ErrUnsupported
)
