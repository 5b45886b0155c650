// Package mminit implements the one-shot construction of the virtual memory
// subsystem: the physical memory scan, the bootstrap allocator, the page
// frame database, the kernel address space layout, the paged pool seed and
// the memory pressure events.
package mminit

import (
	"mmos/kernel/mm"
	"mmos/kernel/mm/vmm"
)

// Kernel address space landmarks for the two-level 32-bit layout.
const (
	// KSeg0Base is the user/kernel split. Everything at or above it is
	// kernel space.
	KSeg0Base uint32 = 0x80000000

	// PfnDatabaseBase is where the page frame database is mapped.
	PfnDatabaseBase uint32 = 0xb0000000

	// HyperspaceStart is the per-process window used to map foreign page
	// tables.
	HyperspaceStart uint32 = vmm.HyperspaceBase
	HyperspaceEnd   uint32 = 0xc07fffff

	// SystemCacheWorkingSetList and SystemCacheStart bound the system
	// cache structures.
	SystemCacheWorkingSetList uint32 = 0xc0c00000
	SystemCacheStart          uint32 = 0xc1000000

	// PagedPoolStart is the base of the paged pool virtual range.
	PagedPoolStart uint32 = 0xe1000000

	// LowestNonPagedSystemStart is the floor below which the system PTE
	// region may not begin.
	LowestNonPagedSystemStart uint32 = 0xeb000000

	// NonPagedPoolEnd is the top of the nonpaged pool expansion range.
	NonPagedPoolEnd uint32 = 0xffbe0000

	// HalHeapStart is the base of the region the HAL maps I/O devices in.
	HalHeapStart uint32 = 0xffc00000
)

// Session space carve-out, laid out downward from the page table window.
const (
	SessionPoolSize       = 16 * mm.Mb
	SessionViewSize       = 20 * mm.Mb
	SessionWorkingSetSize = 4 * mm.Mb
	SessionImageSize      = 8 * mm.Mb
	SessionTotalSize      = SessionPoolSize + SessionViewSize + SessionWorkingSetSize + SessionImageSize

	SystemViewSize = 16 * mm.Mb
)

// Page color bounds.
const (
	defaultSecondaryColors = 64
	minSecondaryColors     = 8
	maxSecondaryColors     = 1024
)

// Nonpaged pool sizing parameters.
const (
	minNonPagedPoolSize        = 256 * mm.Kb
	minAdditionNonPagedPerMb   = 32 * mm.Kb
	defaultMaximumNonPagedPool = 1 * mm.Mb
	maxAdditionNonPagedPerMb   = 400 * mm.Kb
	maxNonPagedPoolSize        = 128 * mm.Mb
	minInitialPagedPoolSize    = 32 * mm.Mb
)

// System PTE tuning breakpoints.
const (
	minPagesForSysPteTuning = uint32(19*mm.Mb) >> mm.PageShift
	minPagesForSysPteBoost  = uint32(32*mm.Mb) >> mm.PageShift
)

// Allocation fragment bounds.
const (
	defaultAllocationFragment = 64 * mm.Kb
	minAllocationFragment     = 4 * mm.Kb
	maxAllocationFragment     = 2 * mm.Mb
)

// Kernel stack sizes in bytes.
const (
	kernelStackSize      = 12 * 1024
	kernelLargeStackSize = 60 * 1024
)

const (
	// hyperspacePtes is the number of PTEs reserved for the hyperspace
	// mapping window.
	hyperspacePtes = 256

	// zeroPtes is the number of system PTEs reserved for the page zeroing
	// loop.
	zeroPtes = 32
)

// ListSentinel terminates PFN free list chains.
const ListSentinel uint32 = 0xffffffff

// zeroPageRefCount pins frame 0 so it is never handed out.
const zeroPageRefCount = 0xfff0

// pfnEntrySize is the reserved virtual footprint of one PFN entry, used to
// size and map the database backing pages.
const pfnEntrySize = 32

// colorHeadSize is the virtual footprint of one color list head.
const colorHeadSize = 12

// pdeMappedSize is the span of virtual space covered by one page directory
// entry.
const pdeMappedSize uint32 = 4 * 1024 * 1024
