package mminit

import (
	"mmos/kernel"
	"mmos/kernel/mm"
	"mmos/kernel/mm/bitmap"
	"mmos/kernel/mm/vmm"
)

// ensureSystemPageTable makes the page table covering the supplied virtual
// address valid, drawing it from the free list and stamping it as a page
// table page.
func (s *VmmState) ensureSystemPageTable(va uint32) {
	pde, _ := s.space.Pde(va)
	if pde.HasFlags(vmm.FlagPresent) {
		return
	}

	pt := s.removeZeroPage(vmm.PdeIndex(va) & s.SecondaryColorMask)

	pde = 0
	pde.SetFrame(pt)
	pde.SetFlags(validKernelEntry)
	s.space.SetPde(va, pde)

	s.initializePfnForOtherProcess(pt, vmm.PdeAddress(va), s.space.DirectoryFrame())
}

// wireSystemPte maps the page behind a reserved system PTE to the supplied
// frame. Page tables needed along the way are drawn from the free list and
// stamped as page table pages.
func (s *VmmState) wireSystemPte(pteAddress uint32, frame mm.Frame) {
	va := vmm.PteToAddress(pteAddress)

	s.ensureSystemPageTable(va)

	var pte vmm.Entry
	pte.SetFrame(frame)
	pte.SetFlags(validKernelEntry)
	s.space.SetPte(va, pte)

	if s.pfnEntryMapped(frame) {
		s.Pfn[frame].ShareCount++
	}
}

// initializeNonPagedPoolThresholds derives the nonpaged pool pressure
// watermarks from the maximum pool size.
func (s *VmmState) initializeNonPagedPoolThresholds() {
	poolPages := uint32(s.MaximumNonPagedPool / mm.PageSize)

	s.LowNonPagedPoolThreshold = uint32(8 * mm.Mb / mm.PageSize)
	if third := poolPages / 3; third < s.LowNonPagedPoolThreshold {
		s.LowNonPagedPoolThreshold = third
	}

	s.HighNonPagedPoolThreshold = uint32(20 * mm.Mb / mm.PageSize)
	if half := poolPages / 2; half < s.HighNonPagedPoolThreshold {
		s.HighNonPagedPoolThreshold = half
	}
}

// buildPagedPool sizes the paged pool, double-maps the system page directory
// through a system PTE, seeds the first pool page table and builds the
// allocation bitmaps.
func (s *VmmState) buildPagedPool() {
	// The system page directory is the frame the self-map entry points
	// at. A reserved system PTE double-maps it so page directory fields
	// can be edited on behalf of other address spaces later on.
	s.SystemPageDirectory, _ = s.space.Translate(vmm.PdeBase)

	pteVA := s.reserveSystemPtes(1)
	s.SystemPagePtes = vmm.PteToAddress(pteVA)
	s.wireSystemPte(pteVA, s.SystemPageDirectory)

	// Twice the maximum nonpaged pool, kept inside the gap below the
	// system PTE region and never under the architectural minimum.
	size := 2 * s.MaximumNonPagedPool
	if gap := mm.Size(s.NonPagedSystemStart - PagedPoolStart); size > gap {
		size = gap
	}
	if size < minInitialPagedPoolSize {
		size = minInitialPagedPoolSize
	}

	// Round up to whole page directory entries.
	pages := uint32(size / mm.PageSize)
	pdeCount := (pages + mm.EntriesPerTable - 1) / mm.EntriesPerTable

	s.SizeOfPagedPool = mm.Size(pdeCount) * mm.Size(pdeMappedSize)
	s.SizeOfPagedPoolInPages = pdeCount * mm.EntriesPerTable
	s.PagedPoolEnd = PagedPoolStart + uint32(s.SizeOfPagedPool) - 1

	// Clear every directory entry covering the pool before seeding.
	for va := PagedPoolStart; va <= s.PagedPoolEnd; va += pdeMappedSize {
		s.space.SetPde(va, 0)
	}

	s.PagedPool.FirstPteForPagedPool = vmm.PteAddress(PagedPoolStart)
	s.PagedPool.LastPteForPagedPool = vmm.PteAddress(s.PagedPoolEnd)

	s.PfnLock.Acquire()

	frame := s.removeZeroPage(0)

	var pde vmm.Entry
	pde.SetFrame(frame)
	pde.SetFlags(validKernelEntry)
	s.space.SetPde(PagedPoolStart, pde)

	s.initializePfnForOtherProcess(frame, vmm.PdeAddress(PagedPoolStart), s.SystemPageDirectory)

	s.PfnLock.Release()

	// Expansion continues at the next directory slot; page faults will
	// grow the pool from there.
	s.PagedPool.NextPdeForExpansion = vmm.PdeAddress(PagedPoolStart) + (1 << mm.PointerShift)

	// The allocation map starts with everything reserved except the PTEs
	// the seeded directory entry covers. No allocation has an end yet.
	s.PagedPoolMutex.Acquire()

	s.PagedPool.AllocationMap = bitmap.New(s.SizeOfPagedPoolInPages)
	s.PagedPool.AllocationMap.SetAll()
	s.PagedPool.AllocationMap.ClearRange(0, mm.EntriesPerTable)

	s.PagedPool.EndOfPoolMap = bitmap.New(s.SizeOfPagedPoolInPages)
	s.PagedPool.EndOfPoolMap.ClearAll()

	s.PagedPoolMutex.Release()

	s.computePagedPoolThresholds()
}

// computePagedPoolThresholds sets the low watermark to 30M or a fifth of the
// pool and the high one to 60M or two fifths. The watermarks must leave a
// window between them.
func (s *VmmState) computePagedPoolThresholds() {
	s.LowPagedPoolThreshold = uint32(30 * mm.Mb / mm.PageSize)
	if fifth := s.SizeOfPagedPoolInPages / 5; fifth < s.LowPagedPoolThreshold {
		s.LowPagedPoolThreshold = fifth
	}

	s.HighPagedPoolThreshold = uint32(60 * mm.Mb / mm.PageSize)
	if twoFifths := 2 * s.SizeOfPagedPoolInPages / 5; twoFifths < s.HighPagedPoolThreshold {
		s.HighPagedPoolThreshold = twoFifths
	}

	if s.LowPagedPoolThreshold >= s.HighPagedPoolThreshold {
		kernel.Bugcheck(kernel.MemoryManagement,
			uint64(s.LowPagedPoolThreshold), uint64(s.HighPagedPoolThreshold), 0, 4)
	}
}
