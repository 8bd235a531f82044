package vector_test

import (
	"context"
	"encoding/binary"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/shmipc/shmipc/vector"
)

// headerSnapshot is the subset of a vector's observable state worth
// diffing structurally across a sequence of operations.
type headerSnapshot struct {
	Size     uint64
	Capacity uint64
	ESize    uint64
}

func snapshot(v *vector.Vector) headerSnapshot {
	return headerSnapshot{Size: v.Size(), Capacity: v.Capacity(), ESize: v.ElementSize()}
}

func newTestOptions(dir, name string) vector.Options {
	return vector.Options{
		Dir:         dir,
		Name:        name,
		ElementSize: 8,
		Capacity:    16,
	}
}

func encodeFloat(v float64) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, math.Float64bits(v))

	return buf
}

func TestOpenCreatesSegmentOnce(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	opts := newTestOptions(dir, "create-once")

	v1, created1, err := vector.Open(opts)
	require.NoError(t, err)

	defer func() { _ = v1.Close() }()

	require.True(t, created1)

	want := headerSnapshot{Size: 0, Capacity: 16, ESize: 8}
	if diff := cmp.Diff(want, snapshot(v1)); diff != "" {
		t.Fatalf("header snapshot mismatch (-want +got):\n%s", diff)
	}

	v2, created2, err := vector.Open(opts)
	require.NoError(t, err)

	defer func() { _ = v2.Close() }()

	require.False(t, created2)

	if diff := cmp.Diff(snapshot(v1), snapshot(v2)); diff != "" {
		t.Fatalf("two handles onto the same segment disagree (-v1 +v2):\n%s", diff)
	}
}

func TestOpenRejectsIncompatibleSegment(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	v1, _, err := vector.Open(newTestOptions(dir, "incompatible"))
	require.NoError(t, err)

	defer func() { _ = v1.Close() }()

	other := newTestOptions(dir, "incompatible")
	other.ElementSize = 16

	_, _, err = vector.Open(other)
	require.ErrorIs(t, err, vector.ErrIncompatible)
}

func TestPushBackAssignsSequentialIndices(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	v, _, err := vector.Open(newTestOptions(dir, "push-back"))
	require.NoError(t, err)

	defer func() { _ = v.Close() }()

	idx0, err := v.PushBack(make([]byte, 8))
	require.NoError(t, err)
	require.Equal(t, uint64(0), idx0)

	idx1, err := v.PushBack(make([]byte, 8))
	require.NoError(t, err)
	require.Equal(t, uint64(1), idx1)

	require.Equal(t, uint64(2), v.Size())
}

func TestPushBackFailsWhenFull(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	opts := newTestOptions(dir, "full")
	opts.Capacity = 2

	v, _, err := vector.Open(opts)
	require.NoError(t, err)

	defer func() { _ = v.Close() }()

	_, err = v.PushBack(make([]byte, 8))
	require.NoError(t, err)

	_, err = v.PushBack(make([]byte, 8))
	require.NoError(t, err)

	_, err = v.PushBack(make([]byte, 8))
	require.ErrorIs(t, err, vector.ErrFull)
}

func TestDelDoesNotLowerNextBackIdx(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	v, _, err := vector.Open(newTestOptions(dir, "del-holes"))
	require.NoError(t, err)

	defer func() { _ = v.Close() }()

	idx0, err := v.PushBack(make([]byte, 8))
	require.NoError(t, err)

	_, err = v.PushBack(make([]byte, 8))
	require.NoError(t, err)

	require.True(t, v.Del(idx0))
	require.False(t, v.Del(idx0), "deleting an already-inactive slot must fail")

	require.Equal(t, uint64(1), v.Size())

	_, found := v.At(idx0)
	require.False(t, found)

	// Del left next_back_idx at 2, still below capacity (16), so
	// insert_quick takes the high-water slot 2 rather than reusing the hole
	// left by idx0.
	idx2, err := v.InsertQuick()
	require.NoError(t, err)
	require.Equal(t, uint64(2), idx2, "insert_quick should prefer the high-water mark over hole reuse")
}

func TestInsertQuickReusesHoleOnceBackIsExhausted(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	opts := newTestOptions(dir, "insert-quick-holes")
	opts.Capacity = 3

	v, _, err := vector.Open(opts)
	require.NoError(t, err)

	defer func() { _ = v.Close() }()

	idx0, err := v.PushBack(make([]byte, 8))
	require.NoError(t, err)

	_, err = v.PushBack(make([]byte, 8))
	require.NoError(t, err)

	_, err = v.PushBack(make([]byte, 8))
	require.NoError(t, err)

	require.True(t, v.Del(idx0))

	reused, err := v.InsertQuick()
	require.NoError(t, err)
	require.Equal(t, idx0, reused, "once next_back_idx == capacity, insert_quick must scan for the lowest inactive slot")
}

func TestInsertAtOverwriteDoesNotChangeActiveCount(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	v, _, err := vector.Open(newTestOptions(dir, "insert-at-overwrite"))
	require.NoError(t, err)

	defer func() { _ = v.Close() }()

	idx, err := v.PushBack(encodeFloat(1))
	require.NoError(t, err)

	before := v.Size()

	require.NoError(t, v.InsertAt(idx, encodeFloat(2)))
	require.Equal(t, before, v.Size())

	slot, ok := v.At(idx)
	require.True(t, ok)
	require.Equal(t, encodeFloat(2), slot)
}

// TestFindFirstOfAfterDeletion: push four doubles,
// find_first_of(2.345) returns index 1, del(1), find_first_of(2.345) then
// reports not-found.
func TestFindFirstOfAfterDeletion(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	v, _, err := vector.Open(newTestOptions(dir, "find-first-of"))
	require.NoError(t, err)

	defer func() { _ = v.Close() }()

	values := []float64{0.123, 2.345, 34.567, 456.789}
	for _, val := range values {
		_, err := v.PushBack(encodeFloat(val))
		require.NoError(t, err)
	}

	cmp := func(want, slot []byte) bool {
		return binary.LittleEndian.Uint64(want) == binary.LittleEndian.Uint64(slot)
	}

	idx, found := v.FindFirstOf(encodeFloat(2.345), cmp)
	require.True(t, found)
	require.Equal(t, uint64(1), idx)

	require.True(t, v.Del(1))

	_, found = v.FindFirstOf(encodeFloat(2.345), cmp)
	require.False(t, found)
}

func TestSafeVariantsAreMutuallyExclusiveUnderContention(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	opts := newTestOptions(dir, "contended")
	opts.Capacity = 4096

	v, _, err := vector.Open(opts)
	require.NoError(t, err)

	defer func() { _ = v.Close() }()

	const goroutines = 16
	const perGoroutine = 100

	var wg sync.WaitGroup

	for i := 0; i < goroutines; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for j := 0; j < perGoroutine; j++ {
				_, err := v.SafePushBack(make([]byte, 8))
				require.NoError(t, err)
			}
		}()
	}

	wg.Wait()

	require.Equal(t, uint64(goroutines*perGoroutine), v.Size())
}

func TestDestroyUnlinksSegment(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	name := "destroy-me"

	v, _, err := vector.Open(newTestOptions(dir, name))
	require.NoError(t, err)

	require.NoError(t, v.Destroy())

	_, statErr := os.Stat(filepath.Join(dir, name))
	require.True(t, os.IsNotExist(statErr))
}

// TestConcurrentCreateRace: two processes call
// vector create on the same fresh name at the same time. Both must report
// success with identical capacity/esize.
func TestConcurrentCreateRace(t *testing.T) {
	if os.Getenv("SHMIPC_VECTOR_RACE_HELPER") == "1" {
		runCreateRaceHelper(t)
		return
	}

	t.Parallel()

	dir := t.TempDir()
	name := "race-segment"

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, os.Args[0], "-test.run=^TestConcurrentCreateRace$", "-test.v")
	cmd.Env = append(os.Environ(),
		"SHMIPC_VECTOR_RACE_HELPER=1",
		"SHMIPC_VECTOR_RACE_DIR="+dir,
		"SHMIPC_VECTOR_RACE_NAME="+name,
	)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	require.NoError(t, cmd.Start())

	v, _, err := vector.Open(newTestOptions(dir, name))
	require.NoError(t, err)

	defer func() { _ = v.Close() }()

	childErr := cmd.Wait()
	require.NoError(t, childErr)

	require.Equal(t, uint64(16), v.Capacity())
	require.Equal(t, uint64(8), v.ElementSize())
}

func runCreateRaceHelper(t *testing.T) {
	dir := os.Getenv("SHMIPC_VECTOR_RACE_DIR")
	name := os.Getenv("SHMIPC_VECTOR_RACE_NAME")

	v, _, err := vector.Open(newTestOptions(dir, name))
	if err != nil {
		t.Fatalf("subprocess Open failed: %v", err)
	}

	defer func() { _ = v.Close() }()

	if v.Capacity() != 16 || v.ElementSize() != 8 {
		t.Fatalf("subprocess observed capacity=%d esize=%d, want 16/8", v.Capacity(), v.ElementSize())
	}
}
