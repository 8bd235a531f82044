package counter

import "unsafe"

// Uid is the composite key identifying a counter within a Set: a 4-tuple
// of 64-bit integers wide enough to uniquely match, e.g., MPI collective
// operations (group, message type, tag, and a local distinguishing id).
type Uid struct {
	Group uint64
	CType uint64
	Tag   uint64
	Lid   uint64
}

func (u Uid) equal(other Uid) bool {
	return u.Group == other.Group && u.CType == other.CType && u.Tag == other.Tag && u.Lid == other.Lid
}

// reservedPattern marks the all-0xDE... uid value that is never assigned to
// a real counter.
const reservedPattern = uint64(0xDEDEDEDEDEDEDEDE)

// ReservedUid is never a valid counter key; Create rejects it.
var ReservedUid = Uid{Group: reservedPattern, CType: reservedPattern, Tag: reservedPattern, Lid: reservedPattern}

// Per-slot element layout:
//
//	offset 0  : mutex      uint32 (per-counter mutex.Mutex word)
//	offset 4  : padding    [4]byte
//	offset 8  : uid.Group  uint64
//	offset 16 : uid.CType  uint64
//	offset 24 : uid.Tag    uint64
//	offset 32 : uid.Lid    uint64
//	offset 40 : refcount   uint64
//	offset 48 : count      int64
const (
	offMutex    = 0
	offUidGroup = 8
	offUidCType = 16
	offUidTag   = 24
	offUidLid   = 32
	offRefcount = 40
	offCount    = 48

	elementSize = 56
)

func slotMutexPtr(slot []byte) *uint32 {
	return (*uint32)(unsafe.Pointer(&slot[offMutex]))
}

// unsafeMutexPointer reinterprets a *uint32 mutex word as the matching
// unsafe.Pointer for a mutex.Mutex cast, mirroring vector.unsafePointerOf.
func unsafeMutexPointer(addr *uint32) unsafe.Pointer {
	return unsafe.Pointer(addr)
}

func u64FieldPtr(slot []byte, off int) *uint64 {
	return (*uint64)(unsafe.Pointer(&slot[off]))
}

func slotUid(slot []byte) Uid {
	return Uid{
		Group: *u64FieldPtr(slot, offUidGroup),
		CType: *u64FieldPtr(slot, offUidCType),
		Tag:   *u64FieldPtr(slot, offUidTag),
		Lid:   *u64FieldPtr(slot, offUidLid),
	}
}

func setSlotUid(slot []byte, uid Uid) {
	*u64FieldPtr(slot, offUidGroup) = uid.Group
	*u64FieldPtr(slot, offUidCType) = uid.CType
	*u64FieldPtr(slot, offUidTag) = uid.Tag
	*u64FieldPtr(slot, offUidLid) = uid.Lid
}

func slotRefcount(slot []byte) uint64     { return *u64FieldPtr(slot, offRefcount) }
func setSlotRefcount(slot []byte, v uint64) { *u64FieldPtr(slot, offRefcount) = v }

func slotCount(slot []byte) int64 {
	return int64(*u64FieldPtr(slot, offCount))
}

func setSlotCount(slot []byte, v int64) {
	*u64FieldPtr(slot, offCount) = uint64(v)
}
