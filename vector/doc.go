// Package vector implements a fixed-capacity slotted array stored in a
// POSIX-style named shared memory segment, usable concurrently by
// cooperating processes on the same host with no central server.
//
// A Vector never resizes: capacity and element size are fixed when the
// segment is created. Deleted slots leave "holes" tracked by an active
// bitmap; insertions prefer the high-water mark and fall back to reusing a
// hole only once the high-water mark reaches capacity.
//
// All indices are stable for the lifetime of the slot: an index returned by
// PushBack/InsertAt/InsertQuick continues to identify the same slot until
// that slot is deleted, even as other slots come and go. Because pointers
// are per-process, every cross-slot reference in this package (and in the
// list/counter packages built on top of it) is expressed as an index plus a
// byte offset computed from the segment header - never a raw pointer
// persisted into shared memory.
//
// # Concurrency
//
// Every Vector embeds a mutex.Mutex as the first field of its segment
// header. Operations with a Safe prefix (SafePushBack, SafeDel, ...) acquire
// this lock for the duration of the call and are linearizable across every
// process that has the segment open. Operations without the prefix (Size,
// At, FindFirstOf, ...) perform no locking: they are fine for a single
// locked section that already holds the mutex, or for best-effort reads
// that tolerate staleness, but must not be used to make compound decisions
// without external synchronization.
package vector
