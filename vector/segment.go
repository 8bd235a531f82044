package vector

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"

	"github.com/shmipc/shmipc/mutex"
)

// defaultSegmentDir is where named segments live: a file at
// /dev/shm/<name> on a Unix-like host.
const defaultSegmentDir = "/dev/shm"

// segment is the per-process mapping of one named shared memory object: an
// open file descriptor plus the mmap'd bytes. It is never shared between
// processes — each process that attaches gets its own segment value.
type segment struct {
	name string
	dir  string
	fd   int
	data []byte
}

// openOrCreateSegment runs the creation race protocol: one process wins an
// exclusive create and initialises the header; every other opener waits for
// that initialisation to finish, then maps the fully-sized segment.
func openOrCreateSegment(dir, name string, esize, capacity uint64) (*segment, bool, error) {
	path := filepath.Join(dir, name)

	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CREAT|unix.O_EXCL, 0o600)
	if err == nil {
		seg, err := winnerInit(fd, path, dir, name, esize, capacity)
		return seg, true, err
	}

	if !errors.Is(err, unix.EEXIST) {
		return nil, false, fmt.Errorf("create segment %q: %w", path, err)
	}

	seg, err := loserJoin(path, dir, name)

	return seg, false, err
}

// winnerInit runs the winner protocol: size the backing object, map it,
// write every header field except the lock, then create the lock last so
// its transition to Available is the readiness signal other processes wait
// on.
func winnerInit(fd int, path, dir, name string, esize, capacity uint64) (*segment, error) {
	size := segmentSize(capacity, esize)

	if err := unix.Ftruncate(fd, int64(size)); err != nil {
		_ = unix.Close(fd)
		_ = os.Remove(path)

		return nil, fmt.Errorf("ftruncate segment %q to %d bytes: %w", path, size, err)
	}

	data, err := unix.Mmap(fd, 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		_ = unix.Close(fd)
		_ = os.Remove(path)

		return nil, fmt.Errorf("mmap segment %q: %w", path, err)
	}

	*fieldPtr(data, offCapacity) = capacity
	*fieldPtr(data, offESize) = esize
	*fieldPtr(data, offNextBackIdx) = 0
	*fieldPtr(data, offActiveCount) = 0
	*fieldPtr(data, offElesOffset) = headerSize
	*fieldPtr(data, offActivesOffset) = headerSize + capacity*esize

	// Last field initialised: flips lock NotReady -> Available, which is
	// the readiness fence loserJoin waits on.
	m := (*mutex.Mutex)(unsafePointerOf(lockWordPtr(data)))
	if err := m.Create(); err != nil {
		_ = unix.Munmap(data)
		_ = unix.Close(fd)
		_ = os.Remove(path)

		return nil, fmt.Errorf("create segment lock %q: %w", path, err)
	}

	return &segment{name: name, dir: dir, fd: fd, data: data}, nil
}

// loserJoin runs the loser protocol: open non-exclusively, poll until the
// lock word is readable, take-and-release it once to serialise against a
// winner that may still be finishing initialisation, then read
// capacity/esize and remap the full segment.
func loserJoin(path, dir, name string) (*segment, error) {
	fd, err := unix.Open(path, unix.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open existing segment %q: %w", path, err)
	}

	if err := waitForLockBytesReadable(fd, path); err != nil {
		_ = unix.Close(fd)
		return nil, err
	}

	lockView, err := unix.Mmap(fd, 0, headerSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("mmap lock view of segment %q: %w", path, err)
	}

	m := (*mutex.Mutex)(unsafePointerOf(lockWordPtr(lockView)))

	// Serialise against any initialiser that may still be finishing its
	// last write: Available only becomes observable once Create has run,
	// and taking+releasing the lock here cannot race with the winner's
	// still-in-flight header writes because those happen strictly before
	// Create.
	for {
		lerr := m.Lock()
		if lerr == nil {
			break
		}

		if errors.Is(lerr, mutex.ErrNotReady) {
			time.Sleep(time.Millisecond)
			continue
		}

		_ = unix.Munmap(lockView)
		_ = unix.Close(fd)

		return nil, fmt.Errorf("join segment %q: %w", path, lerr)
	}

	if err := m.Unlock(); err != nil {
		_ = unix.Munmap(lockView)
		_ = unix.Close(fd)

		return nil, fmt.Errorf("release join lock on segment %q: %w", path, err)
	}

	capacity := *fieldPtr(lockView, offCapacity)
	esize := *fieldPtr(lockView, offESize)

	_ = unix.Munmap(lockView)

	size := segmentSize(capacity, esize)

	data, err := unix.Mmap(fd, 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("mmap full segment %q: %w", path, err)
	}

	return &segment{name: name, dir: dir, fd: fd, data: data}, nil
}

// waitForLockBytesReadable polls the backing object's size until the
// winner has extended it at least past the lock field.
func waitForLockBytesReadable(fd int, path string) error {
	const pollInterval = time.Millisecond

	for {
		var st unix.Stat_t
		if err := unix.Fstat(fd, &st); err != nil {
			return fmt.Errorf("stat segment %q: %w", path, err)
		}

		if st.Size >= int64(offLock)+4 {
			return nil
		}

		time.Sleep(pollInterval)
	}
}

func openExistingForDestroy(dir, name string) (*segment, error) {
	path := filepath.Join(dir, name)

	fd, err := unix.Open(path, unix.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open segment %q: %w", path, err)
	}

	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("stat segment %q: %w", path, err)
	}

	data, err := unix.Mmap(fd, 0, int(st.Size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("mmap segment %q: %w", path, err)
	}

	return &segment{name: name, dir: dir, fd: fd, data: data}, nil
}

func (s *segment) unmap() error {
	if s.data == nil {
		return nil
	}

	err := unix.Munmap(s.data)
	s.data = nil

	return err
}

func (s *segment) close() error {
	unmapErr := s.unmap()

	var closeErr error
	if s.fd >= 0 {
		closeErr = unix.Close(s.fd)
		s.fd = -1
	}

	return errors.Join(unmapErr, closeErr)
}

func (s *segment) unlink() error {
	path := filepath.Join(s.dir, s.name)

	err := os.Remove(path)
	if err != nil && os.IsNotExist(err) {
		return nil
	}

	return err
}
