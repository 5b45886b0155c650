package loader

import (
	"mmos/kernel"
	"mmos/kernel/mm"
	"mmos/kernel/mm/phys"
	"mmos/kernel/mm/vmm"
)

// MemoryDescriptor describes one physical memory run reported by the boot
// loader.
type MemoryDescriptor struct {
	MemoryType MemoryType
	BasePage   mm.Frame
	PageCount  uint32
}

// CacheInfo describes the second level cache geometry reported by the
// firmware.
type CacheInfo struct {
	// SecondLevelCacheSize is the total L2 cache size in bytes. Zero if
	// the firmware did not report a cache.
	SecondLevelCacheSize mm.Size

	// SecondLevelCacheAssociativity is the cache associativity. Zero
	// means fully associative.
	SecondLevelCacheAssociativity uint32
}

// Block is the parameter block the boot loader hands to the kernel.
type Block struct {
	Descriptors []*MemoryDescriptor
	Cache       CacheInfo

	// PagesSpanned is the number of pages covered by the boot image,
	// including the gaps between its sections.
	PagesSpanned uint32
}

// VisitDescriptors invokes the supplied visitor for every memory descriptor
// in list order. The visitor returns false to abort the scan.
func (b *Block) VisitDescriptors(visitor func(*MemoryDescriptor) bool) {
	for _, desc := range b.Descriptors {
		if !visitor(desc) {
			return
		}
	}
}

// loaderHeapBase is the first frame of the region the simulated loader draws
// its own page tables from. It lies above any frame a descriptor list is
// expected to report so the heap never collides with managed RAM.
const loaderHeapBase = mm.Frame(0xff000)

// Environment bundles the simulated machine state at the point the loader
// transfers control: physical memory, the live address space and the
// parameter block.
type Environment struct {
	Mem   phys.Memory
	Space *vmm.AddressSpace
	Block *Block

	heapNext mm.Frame
}

// NewEnvironment builds a machine whose physical memory layout matches the
// supplied descriptor list and whose address space contains a self-mapped
// page directory. Physical memory is materialized lazily.
func NewEnvironment(descriptors []*MemoryDescriptor) (*Environment, *kernel.Error) {
	return NewEnvironmentWithMemory(phys.NewSparseMemory(), descriptors)
}

// NewEnvironmentWithMemory builds a machine over caller-provided physical
// memory, for harnesses that bring their own RAM backing.
func NewEnvironmentWithMemory(mem phys.Memory, descriptors []*MemoryDescriptor) (*Environment, *kernel.Error) {
	env := &Environment{
		Mem:      mem,
		Block:    &Block{Descriptors: descriptors},
		heapNext: loaderHeapBase,
	}

	dir, err := env.AllocHeapFrame()
	if err != nil {
		return nil, err
	}

	env.Space = vmm.NewAddressSpace(env.Mem, dir)
	if err = env.Space.InstallSelfMap(); err != nil {
		return nil, err
	}

	// Real loaders hand over a ready hyperspace window; the kernel writes
	// its mapping PTE counters there before any allocator exists.
	env.Space.SetFrameAllocator(env.AllocHeapFrame)
	_, _, err = env.Space.EnsurePageTable(vmm.HyperspaceBase)
	env.Space.SetFrameAllocator(nil)
	if err != nil {
		return nil, err
	}

	return env, nil
}

// AllocHeapFrame reserves a zeroed frame from the loader heap. Heap frames
// are deliberately outside the descriptor list so mappings built by the
// loader do not consume managed RAM.
func (env *Environment) AllocHeapFrame() (mm.Frame, *kernel.Error) {
	frame := env.heapNext
	env.heapNext++

	if err := env.Mem.ZeroFrame(frame); err != nil {
		return mm.InvalidFrame, err
	}

	return frame, nil
}

// MapRange maps pageCount consecutive pages starting at virtAddr to the
// consecutive frames starting at frame. Page tables are drawn from the
// loader heap.
func (env *Environment) MapRange(virtAddr uint32, frame mm.Frame, pageCount uint32, flags vmm.Entry) *kernel.Error {
	env.Space.SetFrameAllocator(env.AllocHeapFrame)
	defer env.Space.SetFrameAllocator(nil)

	page := mm.PageFromAddress(virtAddr)
	for i := uint32(0); i < pageCount; i++ {
		if err := env.Space.Map(page+mm.Page(i), frame+mm.Frame(i), flags); err != nil {
			return err
		}
	}

	return nil
}

// SetPagesSpanned records the boot image extent in the parameter block.
func (env *Environment) SetPagesSpanned(pages uint32) {
	env.Block.PagesSpanned = pages
}

// SetCacheInfo records the L2 cache geometry in the parameter block.
func (env *Environment) SetCacheInfo(size mm.Size, associativity uint32) {
	env.Block.Cache = CacheInfo{
		SecondLevelCacheSize:          size,
		SecondLevelCacheAssociativity: associativity,
	}
}
