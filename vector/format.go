package vector

import "unsafe"

// Segment layout, little-endian, fixed at creation:
//
//	offset 0  : lock             uint32 (mutex.Mutex word)
//	offset 4  : padding          [4]byte (align the following size_t fields)
//	offset 8  : capacity         uint64
//	offset 16 : esize            uint64
//	offset 24 : next_back_idx    uint64
//	offset 32 : active_count     uint64
//	offset 40 : eles_offset      uint64
//	offset 48 : actives_offset   uint64
//	headerSize (56)             : eles_offset bytes, i.e. capacity*esize
//	actives_offset              : capacity bytes, one boolean per slot
//
// This module targets 64-bit little-endian hosts only: it is not portable
// across architectures. All multi-byte header fields are read and written
// with the native atomic width rather than
// encoding/binary so the same bytes are both the wire format and the
// directly addressable Go value, which is what lets other processes observe
// partial writes as a well-defined sequence instead of torn bytes.
const (
	offLock          = 0
	offCapacity      = 8
	offESize         = 16
	offNextBackIdx   = 24
	offActiveCount   = 32
	offElesOffset    = 40
	offActivesOffset = 48

	headerSize = 56
)

// segmentSize computes the total backing-object size for a segment with the
// given capacity and element size: header + element region + actives
// region.
func segmentSize(capacity, esize uint64) uint64 {
	return headerSize + capacity*esize + capacity
}

// fieldPtr returns a pointer to the 8-byte header field at the given
// offset within the mapped segment bytes. Callers must only use this for
// the fixed offsets declared above, all of which are 8-byte aligned by
// construction (headerSize is a multiple of 8).
func fieldPtr(data []byte, off int) *uint64 {
	return (*uint64)(unsafe.Pointer(&data[off]))
}

func lockWordPtr(data []byte) *uint32 {
	return (*uint32)(unsafe.Pointer(&data[offLock]))
}

// unsafePointerOf reinterprets a *uint32 lock word as the *mutex.Mutex that
// starts at the same address. mutex.Mutex's only field is a uint32, so the
// two types share layout; this is the one cast site that lets the vector
// header's embedded lock word double as a mutex.Mutex without copying it out
// of the mapped segment.
func unsafePointerOf(addr *uint32) unsafe.Pointer {
	return unsafe.Pointer(addr)
}
