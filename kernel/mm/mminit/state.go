package mminit

import (
	"mmos/kernel/mm"
	"mmos/kernel/mm/bitmap"
	"mmos/kernel/mm/loader"
	"mmos/kernel/mm/vmm"
	"mmos/kernel/ob"
	"mmos/kernel/sync"
)

// PageLocation describes which list, if any, a physical frame belongs to.
type PageLocation uint8

const (
	ZeroedPageList PageLocation = iota
	FreePageList
	StandbyPageList
	ModifiedPageList
	ModifiedNoWritePageList
	BadPageList
	ActiveAndValid
	TransitionPage
)

// CacheAttribute describes the caching policy applied to a frame.
type CacheAttribute uint8

const (
	NonCached CacheAttribute = iota
	Cached
	WriteCombined
	NotMapped
)

// PfnEntry is the metadata record for one physical frame.
//
// For frames on a free or zeroed list, OriginalPte and PteFrame double as
// the forward and backward links of the per-color chain; neither field has
// another meaning while the frame is free.
type PfnEntry struct {
	// PteAddress is the virtual address of the page table entry that maps
	// this frame, or zero.
	PteAddress uint32

	// OriginalPte snapshots the mapping entry at setup time.
	OriginalPte vmm.Entry

	// PteFrame is the frame of the page table containing PteAddress.
	PteFrame mm.Frame

	ShareCount     uint32
	ReferenceCount uint32
	WsIndex        uint32

	PageLocation   PageLocation
	CacheAttribute CacheAttribute

	Rom          bool
	PrototypePte bool
	InPageError  bool

	// Flink and Blink chain the frame into the global free or zeroed
	// list. ListSentinel means no neighbor.
	Flink uint32
	Blink uint32
}

// ColorHead is the head of one per-color page list.
type ColorHead struct {
	Flink uint32
	Blink uint32
	Count uint32
}

// PfnList is the head of a global page list.
type PfnList struct {
	Total uint32
	Flink uint32
	Blink uint32
}

func emptyPfnList() PfnList {
	return PfnList{Flink: ListSentinel, Blink: ListSentinel}
}

// PagedPoolInfo tracks the paged pool virtual range and allocation bitmaps.
type PagedPoolInfo struct {
	FirstPteForPagedPool uint32
	LastPteForPagedPool  uint32
	NextPdeForExpansion  uint32

	AllocationMap *bitmap.Bitmap
	EndOfPoolMap  *bitmap.Bitmap
}

// PhysicalMemoryRun is one maximal contiguous range of usable RAM.
type PhysicalMemoryRun struct {
	BasePage  mm.Frame
	PageCount uint32
}

// PhysicalMemoryBlock is the coalesced view of physical memory handed to
// I/O subsystems.
type PhysicalMemoryBlock struct {
	NumberOfPages uint32
	Runs          []PhysicalMemoryRun
}

// SystemSize is the coarse machine class derived from the page count.
type SystemSize uint8

const (
	SmallSystem SystemSize = iota
	MediumSystem
	LargeSystem
)

// String implements fmt.Stringer for SystemSize.
func (s SystemSize) String() string {
	switch s {
	case SmallSystem:
		return "Small"
	case MediumSystem:
		return "Medium"
	case LargeSystem:
		return "Large"
	default:
		return "Unknown"
	}
}

// ProductType is the two-character product tag from the boot configuration.
type ProductType string

// Known product tags.
const (
	ProductWorkstation      ProductType = "Wi"
	ProductDomainController ProductType = "La"
)

// Config carries the operator tunables normally read from the registry.
// Zero values mean "compute the default".
type Config struct {
	// MaximumNonPagedPoolPercent caps the maximum nonpaged pool at the
	// given percentage of physical memory.
	MaximumNonPagedPoolPercent uint32

	// AllocationFragment is the pool allocation granularity in KiB.
	AllocationFragment uint32

	// LargeStackSize is the large kernel stack size in KiB.
	LargeStackSize uint32

	// LowMemoryThreshold and HighMemoryThreshold override the computed
	// memory pressure watermarks, in MiB.
	LowMemoryThreshold  uint32
	HighMemoryThreshold uint32

	// SecondaryColors overrides the L2-derived color count, in bytes of
	// cache per way.
	SecondaryColors uint32

	// ProductType selects the workstation or server code paths.
	ProductType ProductType

	// DumpDescriptors enables the boot-time descriptor dump.
	DumpDescriptors bool
}

// VmmState is the state of the virtual memory subsystem. It is constructed
// once by InitSystem and survives for the lifetime of the machine.
type VmmState struct {
	env   *loader.Environment
	space *vmm.AddressSpace
	cfg   Config

	// PfnLock guards every PFN entry and list head. PagedPoolMutex
	// serializes bitmap updates and PDE expansion. The remaining locks
	// are initialized here for later phases.
	PfnLock        sync.Spinlock
	PagedPoolMutex sync.GuardedMutex
	WorkingSetLock sync.PushLock
	SystemLoadLock sync.Mutant

	// Descriptor scan results.
	NumberDescriptors   uint32
	TotalPhysicalPages  uint32
	InitialFreePages    uint32
	LowestPhysicalPage  mm.Frame
	HighestPhysicalPage mm.Frame

	// Bootstrap allocator state.
	bootstrap         *loader.MemoryDescriptor
	bootstrapOriginal loader.MemoryDescriptor
	earlyAllocBase    mm.Frame
	earlyAllocCount   uint32

	// Page coloring.
	SecondaryColors    uint32
	SecondaryColorMask uint32

	// PFN database.
	PfnAllocationPages uint32
	Pfn                []PfnEntry
	FreePagesByColor   [2][]ColorHead
	FreeList           PfnList
	ZeroList           PfnList
	AvailablePages     uint32
	PfnBitmap          *bitmap.Bitmap

	// Address space layout.
	SystemRangeStart    uint32
	UserProbeAddress    uint32
	HighestUserAddress  uint32
	BootImageSize       uint32
	SessionBase         uint32
	SessionPoolStart    uint32
	SessionPoolEnd      uint32
	SessionViewStart    uint32
	SessionImageStart   uint32
	SessionImageEnd     uint32
	SessionSpaceEnd     uint32
	SystemViewStart     uint32
	NonPagedPoolStart   uint32
	NonPagedSystemStart uint32
	PagedPoolEnd        uint32

	// Pool sizing.
	SizeOfNonPagedPool         mm.Size
	MaximumNonPagedPool        mm.Size
	SizeOfPagedPool            mm.Size
	SizeOfPagedPoolInPages     uint32
	ExpansionPoolInitialCharge uint32

	// System PTE space.
	NumberOfSystemPtes uint32
	systemPteNext      uint32

	// Hyperspace and zeroing PTE reservations.
	FirstReservedMappingPte uint32
	LastReservedMappingPte  uint32
	HyperspacePteCounter    uint32
	FirstReservedZeroingPte uint32
	ZeroingPteCounter       uint32

	// Paged pool management and the system directory double map.
	PagedPool           PagedPoolInfo
	SystemPageDirectory mm.Frame
	SystemPagePtes      uint32

	// Pressure thresholds, in pages.
	PlentyFreePages           uint32
	MinimumFreePages          uint32
	LowMemoryThreshold        uint32
	HighMemoryThreshold       uint32
	LowPagedPoolThreshold     uint32
	HighPagedPoolThreshold    uint32
	LowNonPagedPoolThreshold  uint32
	HighNonPagedPoolThreshold uint32

	// Notification events.
	Objects               *ob.Directory
	LowMemoryEvent        *ob.Event
	HighMemoryEvent       *ob.Event
	LowPagedPoolEvent     *ob.Event
	HighPagedPoolEvent    *ob.Event
	LowNonPagedPoolEvent  *ob.Event
	HighNonPagedPoolEvent *ob.Event

	// Machine classification.
	SystemSize           SystemSize
	ProductServer        bool
	SystemCacheWsMinimum uint32

	// Commit accounting.
	TotalCommitLimit        uint32
	TotalCommitLimitMaximum uint32
	ResidentAvailablePages  int64
	ResidentAvailableAtInit int64

	// Tunables after sanitization.
	AllocationFragment mm.Size
	LargeStackSize     mm.Size

	// Coalesced physical memory runs.
	PhysicalMemoryBlock *PhysicalMemoryBlock
}

// Space returns the live kernel address space.
func (s *VmmState) Space() *vmm.AddressSpace {
	return s.space
}

// PfnElement returns the PFN entry for the supplied frame, or nil if the
// frame lies outside the database.
func (s *VmmState) PfnElement(frame mm.Frame) *PfnEntry {
	if frame > s.HighestPhysicalPage {
		return nil
	}

	return &s.Pfn[frame]
}

// pfnEntryAddress returns the virtual address of the database slot that
// holds the supplied frame's entry.
func pfnEntryAddress(frame mm.Frame) uint32 {
	return PfnDatabaseBase + uint32(frame)*pfnEntrySize
}

// colorTableBase returns the virtual address of the first color table,
// which starts immediately after the PFN database.
func (s *VmmState) colorTableBase() uint32 {
	return pfnEntryAddress(s.HighestPhysicalPage + 1)
}
