package counter

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/shmipc/shmipc/mutex"
	"github.com/shmipc/shmipc/vector"
)

// DefaultSetSize is used by OpenSet when Capacity is left zero.
const DefaultSetSize = 1024

// MaxSetSize is the hard cap on a set's capacity.
const MaxSetSize = 2048

// SetOptions configures OpenSet.
type SetOptions struct {
	Dir      string
	Name     string
	Capacity uint64
}

// Set is a per-process handle onto a shared, fixed-capacity counter set.
type Set struct {
	v *vector.Vector
}

// OpenSet maps (creating if necessary) the named counter set segment.
func OpenSet(opts SetOptions) (*Set, error) {
	capacity := opts.Capacity
	if capacity == 0 {
		capacity = DefaultSetSize
	}

	if capacity > MaxSetSize {
		return nil, fmt.Errorf("%w: capacity %d exceeds max set size %d", ErrInvalidInput, capacity, MaxSetSize)
	}

	v, _, err := vector.Open(vector.Options{
		Dir:         opts.Dir,
		Name:        opts.Name,
		ElementSize: elementSize,
		Capacity:    capacity,
	})
	if err != nil {
		return nil, fmt.Errorf("counter: open set: %w", err)
	}

	return &Set{v: v}, nil
}

// Close unmaps this process's view of the underlying vector.
func (s *Set) Close() error { return s.v.Close() }

// Destroy unlinks the backing object under the vector lock rather than the
// unsafe variant. See vector.Vector.DestroySafe for the coordination
// caveat this carries.
func (s *Set) Destroy() error { return s.v.DestroySafe() }

// Handle is a per-process reference to one counter slot within a Set.
// Multiple handles, in the same or different processes, may name the same
// uid and therefore the same slot; Create increments a refcount and
// Destroy decrements it, freeing the slot only when the last handle goes
// away.
type Handle struct {
	set *Set
	idx uint64
}

func counterMutex(slot []byte) *mutex.Mutex {
	return (*mutex.Mutex)(unsafeMutexPointer(slotMutexPtr(slot)))
}

// Create finds or allocates the slot for uid, holding the vector lock for
// the whole search-then-maybe-insert sequence so two processes racing to
// create the same uid cannot both allocate a slot. It increments the
// slot's refcount and (re-)arms its mutex: safe even for an
// already-in-use counter because inc/dec/set-if-zero only ever touch the
// per-counter mutex while also holding this same vector lock (see the
// package doc's "Nested locking" section).
func (s *Set) Create(uid Uid) (*Handle, error) {
	if uid.equal(ReservedUid) {
		return nil, fmt.Errorf("%w: uid %+v is reserved", ErrInvalidInput, uid)
	}

	if err := s.v.Lock(); err != nil {
		return nil, fmt.Errorf("counter: create: %w", err)
	}
	defer s.v.Unlock()

	idx, found := s.v.FindFirstOf(encodeUid(uid), uidCompare)
	if !found {
		newIdx, err := s.v.InsertQuick()
		if err != nil {
			if errors.Is(err, vector.ErrFull) {
				return nil, ErrFull
			}

			return nil, fmt.Errorf("counter: create: %w", err)
		}

		data := make([]byte, elementSize)
		setSlotUid(data, uid)
		setSlotRefcount(data, 0)
		setSlotCount(data, 0)

		if err := s.v.InsertAt(newIdx, data); err != nil {
			return nil, fmt.Errorf("counter: create: %w", err)
		}

		idx = newIdx
	}

	slot, _ := s.v.At(idx)
	setSlotRefcount(slot, slotRefcount(slot)+1)

	if err := counterMutex(slot).Create(); err != nil {
		return nil, fmt.Errorf("counter: create: arm mutex: %w", err)
	}

	return &Handle{set: s, idx: idx}, nil
}

// Destroy releases this handle's reference. If it was the last reference
// to the uid, the slot is zeroed and freed; otherwise the refcount is
// decremented and the per-counter mutex released.
func (h *Handle) Destroy() error {
	if err := h.set.v.Lock(); err != nil {
		return fmt.Errorf("counter: destroy: %w", err)
	}
	defer h.set.v.Unlock()

	slot, ok := h.set.v.At(h.idx)
	if !ok {
		return ErrClosed
	}

	m := counterMutex(slot)
	if err := m.Lock(); err != nil {
		return fmt.Errorf("counter: destroy: %w", err)
	}

	if slotRefcount(slot) == 1 {
		clearSlot(slot)
		h.set.v.Del(h.idx)

		return nil
	}

	setSlotRefcount(slot, slotRefcount(slot)-1)

	return m.Unlock()
}

// Inc adds val to the counter under the vector lock and the per-counter
// mutex, nested inside it.
func (h *Handle) Inc(val int64) error { return h.addLocked(val) }

// Dec subtracts val from the counter.
func (h *Handle) Dec(val int64) error { return h.addLocked(-val) }

func (h *Handle) addLocked(delta int64) error {
	if err := h.set.v.Lock(); err != nil {
		return fmt.Errorf("counter: inc/dec: %w", err)
	}
	defer h.set.v.Unlock()

	slot, ok := h.set.v.At(h.idx)
	if !ok {
		return ErrClosed
	}

	m := counterMutex(slot)
	if err := m.Lock(); err != nil {
		return fmt.Errorf("counter: inc/dec: %w", err)
	}

	setSlotCount(slot, slotCount(slot)+delta)

	return m.Unlock()
}

// SetIfZero sets the counter to val iff its current value is zero,
// reporting whether it did.
func (h *Handle) SetIfZero(val int64) (bool, error) {
	if err := h.set.v.Lock(); err != nil {
		return false, fmt.Errorf("counter: set if zero: %w", err)
	}
	defer h.set.v.Unlock()

	slot, ok := h.set.v.At(h.idx)
	if !ok {
		return false, ErrClosed
	}

	m := counterMutex(slot)
	if err := m.Lock(); err != nil {
		return false, fmt.Errorf("counter: set if zero: %w", err)
	}
	defer m.Unlock()

	if slotCount(slot) != 0 {
		return false, nil
	}

	setSlotCount(slot, val)

	return true, nil
}

// Value performs an unlocked best-effort read of the counter. Callers
// must not use it to make compound decisions.
func (h *Handle) Value() (int64, error) {
	slot, ok := h.set.v.At(h.idx)
	if !ok {
		return 0, ErrClosed
	}

	return slotCount(slot), nil
}

// IsValue reports whether the counter's current value equals val,
// performing the same unlocked best-effort read as Value.
func (h *Handle) IsValue(val int64) (bool, error) {
	v, err := h.Value()
	if err != nil {
		return false, err
	}

	return v == val, nil
}

// IsEqualSafe reports whether l and r currently hold the same value. If
// both handles name the same slot it returns true without locking.
// Otherwise it takes the vector lock once, then both per-counter mutexes
// in a fixed order (l before r), snapshots both counts, and releases the
// inner locks before the outer one.
func IsEqualSafe(l, r *Handle) (bool, error) {
	if l.set != r.set {
		return false, fmt.Errorf("%w: handles belong to different sets", ErrInvalidInput)
	}

	if l.idx == r.idx {
		return true, nil
	}

	if err := l.set.v.Lock(); err != nil {
		return false, fmt.Errorf("counter: is equal safe: %w", err)
	}
	defer l.set.v.Unlock()

	lslot, ok := l.set.v.At(l.idx)
	if !ok {
		return false, ErrClosed
	}

	lm := counterMutex(lslot)
	if err := lm.Lock(); err != nil {
		return false, fmt.Errorf("counter: is equal safe: %w", err)
	}

	lcount := slotCount(lslot)

	rslot, ok := r.set.v.At(r.idx)
	if !ok {
		_ = lm.Unlock()
		return false, ErrClosed
	}

	rm := counterMutex(rslot)
	if err := rm.Lock(); err != nil {
		_ = lm.Unlock()
		return false, fmt.Errorf("counter: is equal safe: %w", err)
	}

	rcount := slotCount(rslot)

	_ = rm.Unlock()
	_ = lm.Unlock()

	return lcount == rcount, nil
}

func clearSlot(slot []byte) {
	for i := range slot {
		slot[i] = 0
	}
}

func encodeUid(uid Uid) []byte {
	buf := make([]byte, 32)
	binary.LittleEndian.PutUint64(buf[0:8], uid.Group)
	binary.LittleEndian.PutUint64(buf[8:16], uid.CType)
	binary.LittleEndian.PutUint64(buf[16:24], uid.Tag)
	binary.LittleEndian.PutUint64(buf[24:32], uid.Lid)

	return buf
}

func decodeUid(b []byte) Uid {
	return Uid{
		Group: binary.LittleEndian.Uint64(b[0:8]),
		CType: binary.LittleEndian.Uint64(b[8:16]),
		Tag:   binary.LittleEndian.Uint64(b[16:24]),
		Lid:   binary.LittleEndian.Uint64(b[24:32]),
	}
}

func uidCompare(value, slot []byte) bool {
	return slotUid(slot).equal(decodeUid(value))
}
