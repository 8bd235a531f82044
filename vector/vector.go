package vector

import (
	"errors"
	"fmt"

	"github.com/shmipc/shmipc/mutex"
)

// Options configures Open. Dir defaults to defaultSegmentDir when empty.
type Options struct {
	Dir         string
	Name        string
	ElementSize uint64
	Capacity    uint64
}

func (o Options) validate() error {
	if o.Name == "" {
		return fmt.Errorf("%w: name must not be empty", ErrInvalidInput)
	}

	if len(o.Name) > maxSegmentNameLength {
		return fmt.Errorf("%w: name %q longer than %d bytes", ErrInvalidInput, o.Name, maxSegmentNameLength)
	}

	if o.ElementSize == 0 || o.ElementSize > maxElementSize {
		return fmt.Errorf("%w: element size %d out of range (0, %d]", ErrInvalidInput, o.ElementSize, maxElementSize)
	}

	if o.Capacity == 0 || o.Capacity > maxCapacity {
		return fmt.Errorf("%w: capacity %d out of range (0, %d]", ErrInvalidInput, o.Capacity, maxCapacity)
	}

	return nil
}

// ElementCompareFunc reports whether v and the element found at a candidate
// slot are equal; it returns true on equality.
type ElementCompareFunc func(v, slot []byte) bool

// Vector is a per-process handle onto a shared, fixed-capacity slotted
// array. Zero value is not usable; construct with Open.
type Vector struct {
	seg      *segment
	esize    uint64
	capacity uint64
	mu       *mutex.Mutex
	closed   bool
}

// Open maps the named segment, creating it if this call wins the creation
// race. The returned bool reports whether this call was the winner. If the
// segment already exists with a different esize/capacity, Open returns
// ErrIncompatible.
func Open(opts Options) (v *Vector, created bool, err error) {
	if err := opts.validate(); err != nil {
		return nil, false, err
	}

	dir := opts.Dir
	if dir == "" {
		dir = defaultSegmentDir
	}

	seg, created, err := openOrCreateSegment(dir, opts.Name, opts.ElementSize, opts.Capacity)
	if err != nil {
		return nil, false, err
	}

	actualCap := *fieldPtr(seg.data, offCapacity)
	actualESize := *fieldPtr(seg.data, offESize)

	if actualCap != opts.Capacity || actualESize != opts.ElementSize {
		_ = seg.close()
		return nil, false, fmt.Errorf("%w: segment %q has capacity=%d esize=%d, requested capacity=%d esize=%d",
			ErrIncompatible, opts.Name, actualCap, actualESize, opts.Capacity, opts.ElementSize)
	}

	v = &Vector{
		seg:      seg,
		esize:    actualESize,
		capacity: actualCap,
		mu:       (*mutex.Mutex)(unsafePointerOf(lockWordPtr(seg.data))),
	}

	return v, created, nil
}

// Close unmaps this process's view of the segment. It does not affect other
// processes or unlink the backing object.
func (v *Vector) Close() error {
	if v.closed {
		return nil
	}

	v.closed = true

	return v.seg.close()
}

// ElementSize returns the fixed per-slot size chosen at creation.
func (v *Vector) ElementSize() uint64 { return v.esize }

// Capacity returns the fixed slot count chosen at creation.
func (v *Vector) Capacity() uint64 { return v.capacity }

func (v *Vector) elesRegion() []byte {
	off := *fieldPtr(v.seg.data, offElesOffset)
	return v.seg.data[off : off+v.capacity*v.esize]
}

func (v *Vector) activesRegion() []byte {
	off := *fieldPtr(v.seg.data, offActivesOffset)
	return v.seg.data[off : off+v.capacity]
}

func (v *Vector) isActive(idx uint64) bool {
	return v.activesRegion()[idx] != 0
}

func (v *Vector) setActive(idx uint64, active bool) {
	if active {
		v.activesRegion()[idx] = 1
	} else {
		v.activesRegion()[idx] = 0
	}
}

func (v *Vector) slot(idx uint64) []byte {
	return v.elesRegion()[idx*v.esize : (idx+1)*v.esize]
}

func (v *Vector) nextBackIdx() uint64     { return *fieldPtr(v.seg.data, offNextBackIdx) }
func (v *Vector) setNextBackIdx(n uint64) { *fieldPtr(v.seg.data, offNextBackIdx) = n }
func (v *Vector) activeCount() uint64     { return *fieldPtr(v.seg.data, offActiveCount) }
func (v *Vector) addActiveCount(d int64) {
	*fieldPtr(v.seg.data, offActiveCount) = uint64(int64(v.activeCount()) + d)
}

// Size returns active_count. It performs no locking: a best-effort read for
// callers that tolerate staleness.
func (v *Vector) Size() uint64 { return v.activeCount() }

// At returns the slot at idx iff idx < next_back_idx and the slot is active.
// The returned slice aliases the mapped segment; callers must not retain it
// past the next mutating call. No locking is performed.
func (v *Vector) At(idx uint64) ([]byte, bool) {
	if idx >= v.nextBackIdx() || !v.isActive(idx) {
		return nil, false
	}

	return v.slot(idx), true
}

// PushBack copies e into the high-water slot and advances next_back_idx.
// It performs no locking.
func (v *Vector) PushBack(e []byte) (uint64, error) {
	if uint64(len(e)) != v.esize {
		return 0, fmt.Errorf("%w: element is %d bytes, want %d", ErrInvalidInput, len(e), v.esize)
	}

	next := v.nextBackIdx()
	if next >= v.capacity {
		return 0, ErrFull
	}

	copy(v.slot(next), e)
	v.setActive(next, true)
	v.setNextBackIdx(next + 1)
	v.addActiveCount(1)

	return next, nil
}

// SafePushBack wraps PushBack in the segment lock.
func (v *Vector) SafePushBack(e []byte) (uint64, error) {
	if err := v.mu.Lock(); err != nil {
		return 0, fmt.Errorf("vector: safe push back: %w", err)
	}
	defer v.mu.Unlock()

	return v.PushBack(e)
}

// InsertAt copies e into slot idx, marking it active (and bumping
// active_count) if it was not already, and extends next_back_idx if idx is
// at or past the high-water mark. Overwriting an already-active slot does
// not change active_count.
func (v *Vector) InsertAt(idx uint64, e []byte) error {
	if idx >= v.capacity {
		return fmt.Errorf("%w: index %d >= capacity %d", ErrInvalidInput, idx, v.capacity)
	}

	if uint64(len(e)) != v.esize {
		return fmt.Errorf("%w: element is %d bytes, want %d", ErrInvalidInput, len(e), v.esize)
	}

	copy(v.slot(idx), e)

	if !v.isActive(idx) {
		v.setActive(idx, true)
		v.addActiveCount(1)
	}

	if idx >= v.nextBackIdx() {
		v.setNextBackIdx(idx + 1)
	}

	return nil
}

// SafeInsertAt wraps InsertAt in the segment lock.
func (v *Vector) SafeInsertAt(idx uint64, e []byte) error {
	if err := v.mu.Lock(); err != nil {
		return fmt.Errorf("vector: safe insert at: %w", err)
	}
	defer v.mu.Unlock()

	return v.InsertAt(idx, e)
}

// InsertQuick reserves a slot without writing user data: it prefers the
// high-water mark, falling back to the lowest inactive slot below it only
// once the high-water mark reaches capacity — appending is always
// preferred over hole reuse.
func (v *Vector) InsertQuick() (uint64, error) {
	if v.activeCount() >= v.capacity {
		return 0, ErrFull
	}

	next := v.nextBackIdx()
	if next < v.capacity {
		v.setActive(next, true)
		v.setNextBackIdx(next + 1)
		v.addActiveCount(1)

		return next, nil
	}

	actives := v.activesRegion()
	for i := uint64(0); i < v.capacity; i++ {
		if actives[i] == 0 {
			actives[i] = 1
			v.addActiveCount(1)

			return i, nil
		}
	}

	return 0, ErrFull
}

// SafeInsertQuick wraps InsertQuick in the segment lock.
func (v *Vector) SafeInsertQuick() (uint64, error) {
	if err := v.mu.Lock(); err != nil {
		return 0, fmt.Errorf("vector: safe insert quick: %w", err)
	}
	defer v.mu.Unlock()

	return v.InsertQuick()
}

// Del clears the active bit at idx and decrements active_count iff the slot
// was active. It never lowers next_back_idx.
func (v *Vector) Del(idx uint64) bool {
	if idx >= v.capacity || !v.isActive(idx) {
		return false
	}

	v.setActive(idx, false)
	v.addActiveCount(-1)

	return true
}

// SafeDel wraps Del in the segment lock.
func (v *Vector) SafeDel(idx uint64) (bool, error) {
	if err := v.mu.Lock(); err != nil {
		return false, fmt.Errorf("vector: safe del: %w", err)
	}
	defer v.mu.Unlock()

	return v.Del(idx), nil
}

// FindFirstOf scans [0, capacity) in ascending order and returns the first
// active index for which cmp reports equality. It performs no locking.
//
// Presence is reported with a bool rather than overloading the index's
// value space with a sentinel "not found" index.
func (v *Vector) FindFirstOf(value []byte, cmp ElementCompareFunc) (uint64, bool) {
	for i := uint64(0); i < v.capacity; i++ {
		if !v.isActive(i) {
			continue
		}

		if cmp(value, v.slot(i)) {
			return i, true
		}
	}

	return 0, false
}

// SafeFindFirstOf wraps FindFirstOf in the segment lock.
func (v *Vector) SafeFindFirstOf(value []byte, cmp ElementCompareFunc) (uint64, bool, error) {
	if err := v.mu.Lock(); err != nil {
		return 0, false, fmt.Errorf("vector: safe find first of: %w", err)
	}
	defer v.mu.Unlock()

	idx, ok := v.FindFirstOf(value, cmp)

	return idx, ok, nil
}

// Destroy retires the lock, unlinks the backing object, closes the
// descriptor and unmaps this process's view. It is not coordinated with
// other attached processes: concurrent operations elsewhere will observe a
// mutex that returns ErrNotReady.
func (v *Vector) Destroy() error {
	if err := v.mu.Destroy(); err != nil && !errors.Is(err, mutex.ErrNotReady) {
		return fmt.Errorf("vector: destroy lock: %w", err)
	}

	if err := v.seg.unlink(); err != nil {
		return fmt.Errorf("vector: unlink: %w", err)
	}

	v.closed = true

	return v.seg.close()
}

// DestroySafe unlinks the backing object under the segment lock but leaves
// the lock word itself untouched: a best-effort teardown. Callers still
// attached via an existing handle will keep functioning until they Close;
// new openers will race a fresh create against a file that may vanish
// mid-open.
func (v *Vector) DestroySafe() error {
	if err := v.mu.Lock(); err != nil {
		return fmt.Errorf("vector: destroy safe: %w", err)
	}

	unlinkErr := v.seg.unlink()

	if err := v.mu.Unlock(); err != nil {
		return errors.Join(unlinkErr, fmt.Errorf("vector: destroy safe unlock: %w", err))
	}

	if unlinkErr != nil {
		return fmt.Errorf("vector: destroy safe: %w", unlinkErr)
	}

	v.closed = true

	return v.seg.close()
}

// Lock acquires the segment's embedded mutex for a caller-composed critical
// section spanning multiple operations: any compound decision spanning more
// than one call must hold the lock for its whole duration.
func (v *Vector) Lock() error { return v.mu.Lock() }

// Unlock releases the segment's embedded mutex.
func (v *Vector) Unlock() error { return v.mu.Unlock() }

// Mutex exposes the embedded segment lock for overlays (list, counter) that
// need to interleave it with additional per-element locks.
func (v *Vector) Mutex() *mutex.Mutex { return v.mu }

// SlotOffset returns the byte offset of slot idx within the mapped segment,
// for overlays that need to hand out raw offsets instead of indices.
func (v *Vector) SlotOffset(idx uint64) uint64 {
	return *fieldPtr(v.seg.data, offElesOffset) + idx*v.esize
}
