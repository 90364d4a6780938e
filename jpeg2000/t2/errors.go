package t2

import "errors"

// ErrTruncated indicates packet data shorter than its headers announce
var ErrTruncated = errors.New("truncated JPEG 2000 packet")

// ErrCorrupt indicates a packet header that cannot describe a valid code-block
var ErrCorrupt = errors.New("corrupt JPEG 2000 packet header")
