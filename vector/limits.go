package vector

// Hardcoded implementation limits, intentionally generous. They exist to
// keep header arithmetic away from overflow boundaries and to bound
// resource usage for configurations this package does not test. All limit
// violations are programming/configuration errors and return
// ErrInvalidInput.
const (
	// maxElementSize is the largest single element this package will
	// store per slot.
	maxElementSize = 1 << 20 // 1 MiB

	// maxCapacity is the largest number of slots a single segment may
	// have. Chosen so capacity*elementSize plus the actives region stays
	// well inside a 64-bit file-size budget without special-casing
	// overflow at every multiplication site.
	maxCapacity = uint64(100_000_000)

	// maxSegmentNameLength bounds the backing object's name, matching the
	// common NAME_MAX-derived limit observed for /dev/shm entries.
	maxSegmentNameLength = 255
)
