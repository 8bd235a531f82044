// Package mutex implements a cross-process mutual exclusion lock that lives
// entirely inside a shared memory segment.
//
// Unlike sync.Mutex, the lock word is not owned by any one process: any
// participant that has mapped the same segment can observe and mutate it.
// Acquisition is a compare-and-swap on a 32-bit state word; contention is
// resolved by parking on the Linux futex syscall rather than spinning, so
// waiters do not burn CPU while blocked.
//
// # States
//
// The word takes one of three values:
//
//	NotReady  (0) - uninitialised, or permanently retired by Destroy
//	Available (1) - unlocked
//	Taken     (2) - held by exactly one process
//
// Zero is deliberately "not usable yet": a freshly zero-filled shared memory
// segment (the state mmap/shm_open leaves it in) reads as NotReady until
// exactly one process calls Create.
//
// # Caveats
//
// There is no reentrancy: a process that calls Lock while already holding
// the mutex will deadlock against itself. There is no ownership tracking, so
// a process that dies while holding the lock leaves it permanently Taken;
// recovering from that is out of scope for this package.
package mutex
