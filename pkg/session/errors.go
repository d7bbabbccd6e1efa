package session

import (
	"errors"
	"fmt"

	"github.com/robotalks/bitboard.go/pkg/command"
)

var (
	// ErrTimeout indicates no response received in time.
	ErrTimeout = errors.New("response timeout")
	// ErrAddressOverflow indicates the data doesn't fit in the address space.
	ErrAddressOverflow = errors.New("address overflow")
)

// RemoteError is reported by the device with an Error reply.
type RemoteError struct {
	Command command.ID
	Message string
}

// Error implements error.
func (e *RemoteError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s failed", e.Command)
	}
	return fmt.Sprintf("%s failed: %s", e.Command, e.Message)
}
