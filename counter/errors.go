package counter

import "errors"

var (
	// ErrInvalidInput indicates a caller-supplied option is out of range.
	ErrInvalidInput = errors.New("counter: invalid input")

	// ErrFull is returned by Create when the set has no free slots and no
	// existing counter matches the requested uid.
	ErrFull = errors.New("counter: set is full")

	// ErrClosed indicates the Set or Handle has already been closed or
	// destroyed.
	ErrClosed = errors.New("counter: closed")
)
