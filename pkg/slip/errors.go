package slip

import "errors"

var (
	// ErrChecksumMismatch indicates the trailing checksum doesn't match the payload.
	ErrChecksumMismatch = errors.New("checksum mismatch")
	// ErrTruncatedChecksum indicates the frame is too short to carry a checksum.
	ErrTruncatedChecksum = errors.New("truncated checksum")
	// ErrBadEscape indicates ESC is followed by a byte other than ESC_END/ESC_ESC.
	ErrBadEscape = errors.New("bad escape sequence")
)
