package list

import "unsafe"

// Per-slot element layout, laid out directly in the vector's element bytes:
//
//	offset 0  : idx       uint64 (own index, for cross-checking)
//	offset 8  : next_idx  uint64
//	offset 16 : prev_idx  uint64
//	offset 24 : payload   user-supplied bytes
const (
	offElemIdx  = 0
	offElemNext = 8
	offElemPrev = 16

	elemHeaderSize = 24
)

func elemFieldPtr(slot []byte, off int) *uint64 {
	return (*uint64)(unsafe.Pointer(&slot[off]))
}

func elemIdx(slot []byte) uint64  { return *elemFieldPtr(slot, offElemIdx) }
func elemNext(slot []byte) uint64 { return *elemFieldPtr(slot, offElemNext) }
func elemPrev(slot []byte) uint64 { return *elemFieldPtr(slot, offElemPrev) }

func setElemIdx(slot []byte, v uint64)  { *elemFieldPtr(slot, offElemIdx) = v }
func setElemNext(slot []byte, v uint64) { *elemFieldPtr(slot, offElemNext) = v }
func setElemPrev(slot []byte, v uint64) { *elemFieldPtr(slot, offElemPrev) = v }

func elemPayload(slot []byte) []byte { return slot[elemHeaderSize:] }
