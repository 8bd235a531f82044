package list

import "errors"

var (
	// ErrInvalidInput indicates a caller-supplied option or payload is out
	// of the allowed range or size.
	ErrInvalidInput = errors.New("list: invalid input")

	// ErrFull is returned by AddTail when the underlying vector has no
	// free slots.
	ErrFull = errors.New("list: full")

	// ErrEmpty is returned by ExtractHead when the list has no elements.
	ErrEmpty = errors.New("list: empty")

	// ErrNotFound is returned by ExtractFirstMatch when no element
	// compares equal.
	ErrNotFound = errors.New("list: no matching element")

	// ErrDangling indicates the cursor names a slot that is no longer
	// active, or whose self-reported index no longer matches - almost
	// always because another process deleted it between calls. This is
	// treated as caller error; callers should reposition with Head or
	// Tail.
	ErrDangling = errors.New("list: cursor is dangling")

	// ErrSentinelHasNoData is returned by GetData when the cursor is at
	// the sentinel.
	ErrSentinelHasNoData = errors.New("list: cursor is at sentinel, which carries no payload")

	// ErrNotImplemented is returned by AddHead, InsertBefore, and
	// InsertAfter: head-insertion and mid-list-insertion semantics were
	// never settled on, so these stay explicit stubs rather than inventing
	// behavior.
	ErrNotImplemented = errors.New("list: not implemented")
)
