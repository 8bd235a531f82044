package vector

import "errors"

// Error classification sentinels. Implementations may wrap these with
// additional context via fmt.Errorf("...: %w", ...); callers should
// classify with errors.Is.
var (
	// ErrInvalidInput indicates a caller-supplied option or argument is
	// out of the allowed range.
	ErrInvalidInput = errors.New("vector: invalid input")

	// ErrIncompatible indicates an existing segment's on-disk layout does
	// not match the esize/capacity this Open call requested.
	ErrIncompatible = errors.New("vector: incompatible segment")

	// ErrCorrupt indicates a segment failed an internal consistency check
	// (bad header, truncated file).
	ErrCorrupt = errors.New("vector: corrupt segment")

	// ErrFull is returned by PushBack/InsertQuick when the vector has no
	// free slots.
	ErrFull = errors.New("vector: full")

	// ErrNotFound names a missing index for callers that want an error
	// value. No operation in this package returns it: Del and SafeDel
	// report an inactive index through their bool result, and FindFirstOf
	// through its ok result.
	ErrNotFound = errors.New("vector: index not found")

	// ErrMutexNotReady indicates the segment's embedded mutex is NotReady:
	// either segment creation never completed, or the segment has been
	// destroyed by another process.
	ErrMutexNotReady = errors.New("vector: segment mutex not ready")

	// ErrClosed indicates the Vector handle has already been closed.
	ErrClosed = errors.New("vector: closed")
)
