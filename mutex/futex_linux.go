//go:build linux

package mutex

import (
	"errors"
	"unsafe"

	"golang.org/x/sys/unix"
)

// errValueChanged is the benign wait outcome when the word no longer
// equals the expected value by the time the kernel looked, so no parking
// occurred. Callers retry their CAS loop.
var errValueChanged = errors.New("mutex: futex value changed")

// wait parks the calling goroutine's OS thread until the word at addr is
// woken via wake/wakeAll, as long as *addr still equals expected at the
// moment the kernel checks.
func wait(addr *uint32, expected uint32) error {
	_, _, errno := unix.Syscall6(
		unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(addr)),
		uintptr(unix.FUTEX_WAIT),
		uintptr(expected),
		0, 0, 0,
	)

	switch errno {
	case 0:
		return nil
	case unix.EAGAIN:
		// *addr != expected: benign race, not an error.
		return errValueChanged
	case unix.EINTR:
		// Spurious wake by signal delivery; the caller's CAS loop retries.
		return nil
	default:
		return errno
	}
}

// wake wakes up to n waiters parked on addr.
func wake(addr *uint32, n int) error {
	_, _, errno := unix.Syscall6(
		unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(addr)),
		uintptr(unix.FUTEX_WAKE),
		uintptr(n),
		0, 0, 0,
	)
	if errno != 0 {
		return errno
	}

	return nil
}

// wakeAll wakes every waiter parked on addr. Used by DestroyIfLocked so that
// every blocked Lock call observes NotReady instead of hanging forever.
func wakeAll(addr *uint32) error {
	return wake(addr, int(^uint32(0)>>1))
}
