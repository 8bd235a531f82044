// Package counter implements a refcounted, composite-uid-keyed counter set
// stored in a vector.Vector, shared across cooperating processes.
//
// A Set is a fixed-capacity vector whose elements are {embedded mutex, uid,
// refcount, count}. A Uid is a 4-tuple of uint64 fields (Group, CType, Tag,
// Lid) wide enough to uniquely identify a counter within a set.
//
// # Nested locking
//
// Every mutating Set/Handle operation holds the vector's lock for its
// entire duration and, within that, takes the per-counter mutex embedded in
// the relevant slot. The vector lock is always acquired first and released
// last; this ordering is what makes it safe for Create to unconditionally
// re-arm an existing counter's mutex: any other process's Inc/Dec/SetIfZero
// must already have released the per-counter
// mutex by the time it gives up the vector lock, so Create never observes
// (or clobbers) a Taken mutex. The two-counter equality operation
// (IsEqualSafe) acquires both per-counter mutexes in a fixed order after
// taking the vector lock, short-circuiting when both handles name the same
// slot.
package counter
