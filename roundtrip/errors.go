package roundtrip

import (
	"errors"
	"fmt"
)

var (
	// ErrNotWritable is returned when a decoded array is a read-only view
	ErrNotWritable = errors.New("decoded array is not writable")

	// ErrMissingWarning is returned when a lossy write emitted no user warning
	ErrMissingWarning = errors.New("lossy write did not emit a warning")

	// ErrUnexpectedWarning is returned when a lossless write emitted a notice
	ErrUnexpectedWarning = errors.New("lossless write emitted a warning")

	// ErrRoundTripMismatch is returned when a lossless re-read differs from the original
	ErrRoundTripMismatch = errors.New("original and saved image are not the same")

	// ErrBundleMismatch is returned when a decoded bundle differs from the expected entries
	ErrBundleMismatch = errors.New("bundle entries differ from expected")

	// ErrInvalidManifest is returned when a manifest does not match its schema
	ErrInvalidManifest = errors.New("invalid manifest")
)

// SkipError reports a scenario that cannot be meaningfully checked in the
// current environment
type SkipError struct {
	File   string
	Reason string
}

func (e *SkipError) Error() string {
	return fmt.Sprintf("%s: skipped: %s", e.File, e.Reason)
}
