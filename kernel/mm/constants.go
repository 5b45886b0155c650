// Package mm declares the basic types and constants shared by the physical
// and virtual memory management subsystems.
package mm

// Size describes a memory block size in bytes.
type Size uint64

// Common memory block sizes.
const (
	Byte Size = 1
	Kb        = 1024 * Byte
	Mb        = 1024 * Kb
	Gb        = 1024 * Mb
)

const (
	// PageShift is the power-of-two exponent of the page size.
	PageShift = 12

	// PageSize is the size of a physical or virtual page in bytes.
	PageSize = Size(1 << PageShift)

	// PointerShift is the power-of-two exponent of a page table entry
	// size. Entries are 32-bit words.
	PointerShift = 2

	// EntriesPerTable is the number of entries in a page directory or
	// page table.
	EntriesPerTable = 1 << (PageShift - PointerShift)
)
