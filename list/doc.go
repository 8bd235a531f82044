// Package list implements a doubly linked ring, overlaid on a vector.Vector,
// shared across cooperating processes.
//
// The underlying vector's slot 0 is a sentinel written once, the first time
// any process observes an empty vector during Open; every other opener finds
// the sentinel already present and leaves it alone. The sentinel's next
// index is the list head, its prev index is the tail; an empty list is a
// sentinel whose next index points back to itself (index 0).
//
// Every exported List method that reads or changes the shared ring acquires
// the underlying vector's lock for its own duration: there is no unlocked
// fast path. Every ring operation runs under the list's (= vector's) lock.
//
// # Cursor
//
// A List handle carries a per-process cursor, named "unsafe" because
// nothing prevents another process from deleting the slot it points to
// between calls. The cursor has three states: AtSentinel, AtLive, and
// Dangling. Dangling is only entered when a method discovers, under the
// lock, that the slot the cursor used to name is no longer active or no
// longer self-identifies with that index - at that point the design treats
// the situation as a caller error and every subsequent cursor-dependent call
// returns ErrDangling until the caller repositions with Head or Tail.
package list
