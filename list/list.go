package list

import (
	"errors"
	"fmt"

	"github.com/shmipc/shmipc/vector"
)

// CursorState describes where a List handle's per-process cursor points.
type CursorState int

const (
	AtSentinel CursorState = iota
	AtLive
	Dangling
)

func (s CursorState) String() string {
	switch s {
	case AtSentinel:
		return "AtSentinel"
	case AtLive:
		return "AtLive"
	case Dangling:
		return "Dangling"
	default:
		return fmt.Sprintf("CursorState(%d)", int(s))
	}
}

// ElementCompareFunc reports whether v equals the payload found at a
// candidate slot.
type ElementCompareFunc func(v, payload []byte) bool

// Options configures Open. ElementSize and Capacity describe the user's
// payload, not the vector's: the vector underneath is sized with the
// 24-byte link header added to ElementSize, and one extra slot added to
// Capacity for the sentinel.
type Options struct {
	Dir         string
	Name        string
	ElementSize uint64
	Capacity    uint64
}

// List is a per-process handle onto a shared doubly linked ring built on a
// vector.Vector.
type List struct {
	v           *vector.Vector
	payloadSize uint64
	curIdx      uint64
	state       CursorState
}

// Open maps (creating if necessary) the named list segment. The vector's
// own creation race decides which process initializes the backing object;
// the sentinel slot is then initialized idempotently under the vector lock
// by whichever process first observes an empty vector, regardless of which
// one won the segment's file-level creation race.
func Open(opts Options) (*List, error) {
	if opts.ElementSize == 0 {
		return nil, fmt.Errorf("%w: element size must be > 0", ErrInvalidInput)
	}

	if opts.Capacity == 0 {
		return nil, fmt.Errorf("%w: capacity must be > 0", ErrInvalidInput)
	}

	v, _, err := vector.Open(vector.Options{
		Dir:         opts.Dir,
		Name:        opts.Name,
		ElementSize: elemHeaderSize + opts.ElementSize,
		Capacity:    opts.Capacity + 1,
	})
	if err != nil {
		return nil, fmt.Errorf("list: open: %w", err)
	}

	l := &List{v: v, payloadSize: opts.ElementSize, state: AtSentinel}

	if err := l.ensureSentinel(); err != nil {
		_ = v.Close()
		return nil, err
	}

	return l, nil
}

func (l *List) ensureSentinel() error {
	if err := l.v.Lock(); err != nil {
		return fmt.Errorf("list: init sentinel: %w", err)
	}
	defer l.v.Unlock()

	if l.v.Size() != 0 {
		return nil
	}

	sentinel := make([]byte, l.v.ElementSize())
	setElemIdx(sentinel, 0)
	setElemNext(sentinel, 0)
	setElemPrev(sentinel, 0)

	return l.v.InsertAt(0, sentinel)
}

// Close unmaps this process's view of the underlying vector.
func (l *List) Close() error { return l.v.Close() }

// State reports the cursor's current state.
func (l *List) State() CursorState { return l.state }

func (l *List) nextIdx(idx uint64) uint64 {
	slot, _ := l.v.At(idx)
	return elemNext(slot)
}

func (l *List) prevIdx(idx uint64) uint64 {
	slot, _ := l.v.At(idx)
	return elemPrev(slot)
}

func (l *List) setNextIdx(idx, val uint64) {
	slot, _ := l.v.At(idx)
	setElemNext(slot, val)
}

func (l *List) setPrevIdx(idx, val uint64) {
	slot, _ := l.v.At(idx)
	setElemPrev(slot, val)
}

// checkLive verifies, under the lock, that the cursor's slot is still
// active and self-identifies with curIdx. Must be called with the lock
// already held.
func (l *List) checkLive() error {
	if l.curIdx == 0 {
		return nil
	}

	slot, ok := l.v.At(l.curIdx)
	if !ok || elemIdx(slot) != l.curIdx {
		l.state = Dangling
		return ErrDangling
	}

	return nil
}

// AddTail acquires a slot via insert_quick, splices it in immediately
// before the sentinel, copies the payload, and moves the cursor to the new
// slot.
func (l *List) AddTail(payload []byte) error {
	if uint64(len(payload)) != l.payloadSize {
		return fmt.Errorf("%w: payload is %d bytes, want %d", ErrInvalidInput, len(payload), l.payloadSize)
	}

	if err := l.v.Lock(); err != nil {
		return fmt.Errorf("list: add tail: %w", err)
	}
	defer l.v.Unlock()

	idx, err := l.v.InsertQuick()
	if err != nil {
		if errors.Is(err, vector.ErrFull) {
			return ErrFull
		}

		return fmt.Errorf("list: add tail: %w", err)
	}

	elem := make([]byte, l.v.ElementSize())
	setElemIdx(elem, idx)
	setElemNext(elem, 0)

	prevTail := l.prevIdx(0)
	setElemPrev(elem, prevTail)
	copy(elemPayload(elem), payload)

	if err := l.v.InsertAt(idx, elem); err != nil {
		return fmt.Errorf("list: add tail: %w", err)
	}

	l.setNextIdx(prevTail, idx)
	l.setPrevIdx(0, idx)

	l.curIdx = idx
	l.state = AtLive

	return nil
}

// Del removes the slot the cursor currently names. If the cursor is at the
// sentinel this is a no-op success: deleting the dummy node is never
// allowed. Otherwise the slot is spliced out and freed, and the cursor
// advances to the following slot.
func (l *List) Del() error {
	if err := l.v.Lock(); err != nil {
		return fmt.Errorf("list: del: %w", err)
	}
	defer l.v.Unlock()

	if l.state == AtSentinel || l.curIdx == 0 {
		return nil
	}

	if err := l.checkLive(); err != nil {
		return err
	}

	adjPrev := l.prevIdx(l.curIdx)
	adjNext := l.nextIdx(l.curIdx)

	l.setNextIdx(adjPrev, adjNext)
	l.setPrevIdx(adjNext, adjPrev)
	l.v.Del(l.curIdx)

	l.curIdx = adjNext
	if adjNext == 0 {
		l.state = AtSentinel
	} else {
		l.state = AtLive
	}

	return nil
}

// IsEmpty reports whether the sentinel's next index still points to
// itself.
func (l *List) IsEmpty() (bool, error) {
	if err := l.v.Lock(); err != nil {
		return false, fmt.Errorf("list: is empty: %w", err)
	}
	defer l.v.Unlock()

	return l.nextIdx(0) == 0, nil
}

// Length returns active_count - 1: the vector's active slots minus the
// sentinel.
func (l *List) Length() (uint64, error) {
	if err := l.v.Lock(); err != nil {
		return 0, fmt.Errorf("list: length: %w", err)
	}
	defer l.v.Unlock()

	return l.v.Size() - 1, nil
}

// Head moves the cursor to the list head (the sentinel's next index) and
// returns the handle for fluent chaining.
func (l *List) Head() *List {
	_ = l.v.Lock()
	defer l.v.Unlock()

	l.moveTo(l.nextIdx(0))

	return l
}

// Tail moves the cursor to the list tail (the sentinel's prev index) and
// returns the handle for fluent chaining.
func (l *List) Tail() *List {
	_ = l.v.Lock()
	defer l.v.Unlock()

	l.moveTo(l.prevIdx(0))

	return l
}

// Next moves the cursor forward one link and returns the handle for fluent
// chaining. If the cursor is already Dangling, Next is a no-op.
func (l *List) Next() *List {
	_ = l.v.Lock()
	defer l.v.Unlock()

	if l.checkLive() != nil {
		return l
	}

	l.moveTo(l.nextIdx(l.curIdx))

	return l
}

// Prev moves the cursor backward one link and returns the handle for
// fluent chaining. If the cursor is already Dangling, Prev is a no-op.
func (l *List) Prev() *List {
	_ = l.v.Lock()
	defer l.v.Unlock()

	if l.checkLive() != nil {
		return l
	}

	l.moveTo(l.prevIdx(l.curIdx))

	return l
}

func (l *List) moveTo(idx uint64) {
	l.curIdx = idx
	if idx == 0 {
		l.state = AtSentinel
	} else {
		l.state = AtLive
	}
}

// GetData returns the payload at the cursor's current slot. The returned
// slice aliases the mapped segment; callers must not retain it past the
// next mutating call.
func (l *List) GetData() ([]byte, error) {
	if err := l.v.Lock(); err != nil {
		return nil, fmt.Errorf("list: get data: %w", err)
	}
	defer l.v.Unlock()

	if l.state == AtSentinel || l.curIdx == 0 {
		return nil, ErrSentinelHasNoData
	}

	if err := l.checkLive(); err != nil {
		return nil, err
	}

	slot, _ := l.v.At(l.curIdx)

	return elemPayload(slot), nil
}

// ExtractHead removes and returns a private copy of the head element's
// payload. The cursor is not affected.
func (l *List) ExtractHead() ([]byte, error) {
	if err := l.v.Lock(); err != nil {
		return nil, fmt.Errorf("list: extract head: %w", err)
	}
	defer l.v.Unlock()

	if l.nextIdx(0) == 0 {
		return nil, ErrEmpty
	}

	hidx := l.nextIdx(0)
	slot, _ := l.v.At(hidx)

	out := make([]byte, l.payloadSize)
	copy(out, elemPayload(slot))

	adjNext := elemNext(slot)
	l.setNextIdx(0, adjNext)
	l.setPrevIdx(adjNext, 0)
	l.v.Del(hidx)

	return out, nil
}

// ExtractFirstMatch walks from the head, splices out and returns a private
// copy of the first element for which cmp reports equality.
func (l *List) ExtractFirstMatch(value []byte, cmp ElementCompareFunc) ([]byte, error) {
	if err := l.v.Lock(); err != nil {
		return nil, fmt.Errorf("list: extract first match: %w", err)
	}
	defer l.v.Unlock()

	for iter := l.nextIdx(0); iter != 0; {
		slot, _ := l.v.At(iter)

		if cmp(value, elemPayload(slot)) {
			out := make([]byte, l.payloadSize)
			copy(out, elemPayload(slot))

			adjPrev := elemPrev(slot)
			adjNext := elemNext(slot)
			l.setNextIdx(adjPrev, adjNext)
			l.setPrevIdx(adjNext, adjPrev)
			l.v.Del(iter)

			return out, nil
		}

		iter = elemNext(slot)
	}

	return nil, ErrNotFound
}

// ExtractNMatches records up to nMax matching indices while walking from
// the head, then splices out and returns a private copy of each payload in
// walk order. ErrNotFound is returned when no element matched at all, so
// callers can errors.Is-check uniformly with ExtractFirstMatch.
func (l *List) ExtractNMatches(nMax uint64, value []byte, cmp ElementCompareFunc) ([][]byte, error) {
	if err := l.v.Lock(); err != nil {
		return nil, fmt.Errorf("list: extract n matches: %w", err)
	}
	defer l.v.Unlock()

	matches := make([]uint64, 0, nMax)

	for iter := l.nextIdx(0); iter != 0 && uint64(len(matches)) < nMax; {
		slot, _ := l.v.At(iter)

		if cmp(value, elemPayload(slot)) {
			matches = append(matches, iter)
		}

		iter = elemNext(slot)
	}

	if len(matches) == 0 {
		return nil, ErrNotFound
	}

	out := make([][]byte, len(matches))

	for i, idx := range matches {
		slot, _ := l.v.At(idx)

		payload := make([]byte, l.payloadSize)
		copy(payload, elemPayload(slot))
		out[i] = payload

		adjPrev := elemPrev(slot)
		adjNext := elemNext(slot)
		l.setNextIdx(adjPrev, adjNext)
		l.setPrevIdx(adjNext, adjPrev)
		l.v.Del(idx)
	}

	return out, nil
}

// AddHead is not implemented: head-insertion semantics were never settled
// on, so this stub preserves the gap instead of inventing them.
func (l *List) AddHead(payload []byte) error {
	return ErrNotImplemented
}

// InsertBefore is not implemented.
func (l *List) InsertBefore(payload []byte) error {
	return ErrNotImplemented
}

// InsertAfter is not implemented.
func (l *List) InsertAfter(payload []byte) error {
	return ErrNotImplemented
}
