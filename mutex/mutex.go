package mutex

import (
	"errors"
	"fmt"
	"sync/atomic"
)

// State is one of the three values the shared lock word can hold.
type State uint32

const (
	// NotReady marks the word as uninitialised or retired. No process may
	// acquire a NotReady mutex; Lock fails with ErrNotReady.
	NotReady State = 0

	// Available marks the word as unlocked and acquirable.
	Available State = 1

	// Taken marks the word as held by exactly one process.
	Taken State = 2
)

func (s State) String() string {
	switch s {
	case NotReady:
		return "NotReady"
	case Available:
		return "Available"
	case Taken:
		return "Taken"
	default:
		return fmt.Sprintf("State(%d)", uint32(s))
	}
}

// ErrNotReady is returned by Lock/TryLock when the mutex has not been
// created yet, or has been retired by Destroy/DestroyIfLocked.
var ErrNotReady = errors.New("mutex: not ready")

// ErrNotLocked is returned by Unlock and DestroyIfLocked when the word is
// not currently Taken.
var ErrNotLocked = errors.New("mutex: not locked")

// ErrWouldBlock is returned by TryLock when the mutex is currently Taken.
var ErrWouldBlock = errors.New("mutex: would block")

// Mutex is a process-shared three-state lock. The zero value is NotReady and
// must not be used until Create has been called by exactly one process.
//
// A Mutex value must be stored in memory visible to every process
// participating in the mutual exclusion (typically a field embedded in a
// larger shared-memory record, per package vector's segment header). Mutex
// itself never allocates; Addr returns a pointer suitable for passing to the
// futex syscall, so embedding it directly in mmap'd memory is required for
// correctness - copying a Mutex value by value breaks the futex address.
type Mutex struct {
	val uint32
}

// Addr returns the address of the lock word, for embedding diagnostics or
// for passing to lower-level futex helpers. Callers must not write to the
// returned pointer directly; use the Mutex methods.
func (m *Mutex) Addr() *uint32 {
	return &m.val
}

// State returns the current state of the mutex. This is a best-effort,
// unlocked read: the value may change concurrently. It must not be used to
// make compound decisions.
func (m *Mutex) State() State {
	return State(atomic.LoadUint32(&m.val))
}

// Create transitions the mutex from its zero-filled state to Available.
// Must be called by exactly one process, after the memory backing the
// mutex has been zero-filled and before any other process calls Lock.
//
// Create does not itself synchronize against concurrent Lock calls from
// other processes; the caller's segment-initialisation protocol (see
// package vector) is responsible for ensuring this write happens-before any
// other process observes the mutex (by making it the last field written
// during segment creation).
func (m *Mutex) Create() error {
	atomic.StoreUint32(&m.val, uint32(Available))
	return nil
}

// Lock blocks until the mutex can be acquired. It returns ErrNotReady if the
// mutex is NotReady (uninitialised or retired); callers should treat this as
// a fatal condition for the operation in progress, not something to retry.
func (m *Mutex) Lock() error {
	for {
		if atomic.CompareAndSwapUint32(&m.val, uint32(Available), uint32(Taken)) {
			return nil
		}

		cur := State(atomic.LoadUint32(&m.val))
		if cur == NotReady {
			return ErrNotReady
		}

		// cur is Taken (or transiently Available but lost the race); park
		// until someone wakes Taken-state waiters, then retry the CAS.
		werr := wait(&m.val, uint32(Taken))
		if werr != nil && !errors.Is(werr, errValueChanged) {
			return fmt.Errorf("mutex: wait: %w", werr)
		}
	}
}

// TryLock attempts to acquire the mutex without blocking. On contention it
// returns ErrWouldBlock; on a retired mutex it returns ErrNotReady.
func (m *Mutex) TryLock() error {
	if atomic.CompareAndSwapUint32(&m.val, uint32(Available), uint32(Taken)) {
		return nil
	}

	if State(atomic.LoadUint32(&m.val)) == NotReady {
		return ErrNotReady
	}

	return ErrWouldBlock
}

// Unlock releases the mutex and wakes one waiter. It returns ErrNotLocked if
// the mutex was not Taken. This package provides no reentrancy protection,
// so a caller unlocking a mutex it never locked is a programming error this
// package cannot prevent.
func (m *Mutex) Unlock() error {
	if !atomic.CompareAndSwapUint32(&m.val, uint32(Taken), uint32(Available)) {
		return ErrNotLocked
	}

	if err := wake(&m.val, 1); err != nil {
		return fmt.Errorf("mutex: wake: %w", err)
	}

	return nil
}

// Destroy drains the mutex to NotReady: it waits for any current holder to
// release the lock, then retires it. After Destroy returns, all subsequent
// Lock/TryLock calls (from any process that still observes the word) fail
// with ErrNotReady.
//
// Safe to call from multiple processes concurrently; exactly one of them
// performs the retiring CAS, the rest simply observe NotReady and return.
func (m *Mutex) Destroy() error {
	for {
		if atomic.CompareAndSwapUint32(&m.val, uint32(Available), uint32(NotReady)) {
			return nil
		}

		if State(atomic.LoadUint32(&m.val)) == NotReady {
			return nil
		}

		werr := wait(&m.val, uint32(Taken))
		if werr != nil && !errors.Is(werr, errValueChanged) {
			return fmt.Errorf("mutex: destroy wait: %w", werr)
		}
	}
}

// DestroyIfLocked retires a currently-held mutex in one step: it requires
// the mutex to be Taken, transitions it directly to NotReady, and wakes all
// waiters so they observe the retirement instead of hanging forever. Returns
// ErrNotLocked if the mutex was not Taken.
func (m *Mutex) DestroyIfLocked() error {
	if !atomic.CompareAndSwapUint32(&m.val, uint32(Taken), uint32(NotReady)) {
		return ErrNotLocked
	}

	if err := wakeAll(&m.val); err != nil {
		return fmt.Errorf("mutex: destroy_if_locked wake: %w", err)
	}

	return nil
}
