//go:build !linux

package mutex

import (
	"errors"
	"sync"
	"unsafe"
)

// errValueChanged mirrors the Linux backend's benign "value already
// changed" wait outcome.
var errValueChanged = errors.New("mutex: futex value changed")

// The real implementation (futex_linux.go) parks on the kernel SYS_FUTEX
// call. This file provides a same-process emulation for non-Linux build
// targets (e.g. running the test suite on a macOS development machine) so
// the package still compiles and its single-process tests still pass; it
// does NOT provide cross-process waking, since there is no real futex to
// share.
//
// Modelled on the emulated-bucket design in an in-tree reference futex
// (condvar-per-bucket, hashed by address) rather than inventing a new
// scheme from scratch.
const numBuckets = 256

type bucket struct {
	mu   sync.Mutex
	cond *sync.Cond
}

var buckets = newBuckets()

func newBuckets() []*bucket {
	bs := make([]*bucket, numBuckets)
	for i := range bs {
		b := &bucket{}
		b.cond = sync.NewCond(&b.mu)
		bs[i] = b
	}

	return bs
}

func bucketFor(addr *uint32) *bucket {
	h := uintptr(unsafe.Pointer(addr))
	h = h ^ (h >> 16)

	return buckets[h%uintptr(len(buckets))]
}

func wait(addr *uint32, expected uint32) error {
	b := bucketFor(addr)

	b.mu.Lock()
	defer b.mu.Unlock()

	if *addr != expected {
		return errValueChanged
	}

	b.cond.Wait()

	return nil
}

func wake(addr *uint32, _ int) error {
	b := bucketFor(addr)

	b.mu.Lock()
	b.cond.Broadcast()
	b.mu.Unlock()

	return nil
}

func wakeAll(addr *uint32) error {
	return wake(addr, 0)
}
