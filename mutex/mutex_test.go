package mutex_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/shmipc/shmipc/mutex"
)

func TestZeroValueIsNotReady(t *testing.T) {
	var m mutex.Mutex

	require.Equal(t, mutex.NotReady, m.State())
	require.ErrorIs(t, m.Lock(), mutex.ErrNotReady)
	require.ErrorIs(t, m.TryLock(), mutex.ErrNotReady)
}

func TestCreateLockUnlock(t *testing.T) {
	var m mutex.Mutex

	require.NoError(t, m.Create())
	require.Equal(t, mutex.Available, m.State())

	require.NoError(t, m.Lock())
	require.Equal(t, mutex.Taken, m.State())

	require.NoError(t, m.Unlock())
	require.Equal(t, mutex.Available, m.State())
}

func TestUnlockWithoutLockFails(t *testing.T) {
	var m mutex.Mutex
	require.NoError(t, m.Create())

	require.ErrorIs(t, m.Unlock(), mutex.ErrNotLocked)
}

func TestTryLockContendedReturnsWouldBlock(t *testing.T) {
	var m mutex.Mutex
	require.NoError(t, m.Create())
	require.NoError(t, m.Lock())

	err := m.TryLock()
	require.ErrorIs(t, err, mutex.ErrWouldBlock)
}

func TestLockBlocksUntilUnlocked(t *testing.T) {
	var m mutex.Mutex
	require.NoError(t, m.Create())
	require.NoError(t, m.Lock())

	unlocked := make(chan struct{})
	acquired := make(chan struct{})

	go func() {
		require.NoError(t, m.Lock())
		close(acquired)
	}()

	// Give the goroutine a chance to actually park.
	time.Sleep(20 * time.Millisecond)

	select {
	case <-acquired:
		t.Fatal("second Lock acquired before first Unlock")
	default:
	}

	close(unlocked)
	require.NoError(t, m.Unlock())

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second Lock never woke up after Unlock")
	}
}

func TestMutualExclusionUnderContention(t *testing.T) {
	var m mutex.Mutex
	require.NoError(t, m.Create())

	const goroutines = 16
	const incrementsEach = 200

	counter := 0
	var wg sync.WaitGroup

	for range goroutines {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for range incrementsEach {
				require.NoError(t, m.Lock())
				counter++
				require.NoError(t, m.Unlock())
			}
		}()
	}

	wg.Wait()

	require.Equal(t, goroutines*incrementsEach, counter)
}

func TestDestroyDrainsHeldLock(t *testing.T) {
	var m mutex.Mutex
	require.NoError(t, m.Create())
	require.NoError(t, m.Lock())

	done := make(chan error, 1)

	go func() {
		done <- m.Destroy()
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, m.Unlock())

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Destroy never returned after Unlock")
	}

	require.Equal(t, mutex.NotReady, m.State())
	require.ErrorIs(t, m.Lock(), mutex.ErrNotReady)
}

func TestDestroyIfLockedRequiresTaken(t *testing.T) {
	var m mutex.Mutex
	require.NoError(t, m.Create())

	err := m.DestroyIfLocked()
	require.ErrorIs(t, err, mutex.ErrNotLocked)

	require.NoError(t, m.Lock())
	require.NoError(t, m.DestroyIfLocked())
	require.Equal(t, mutex.NotReady, m.State())
}

func TestDestroyIfLockedWakesWaiters(t *testing.T) {
	var m mutex.Mutex
	require.NoError(t, m.Create())
	require.NoError(t, m.Lock())

	results := make(chan error, 4)

	for range 4 {
		go func() {
			results <- m.Lock()
		}()
	}

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, m.DestroyIfLocked())

	for range 4 {
		select {
		case err := <-results:
			require.True(t, errors.Is(err, mutex.ErrNotReady))
		case <-time.After(time.Second):
			t.Fatal("waiter never woke up after DestroyIfLocked")
		}
	}
}
