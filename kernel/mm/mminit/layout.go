package mminit

import (
	"mmos/kernel/kfmt"
	"mmos/kernel/mm"
	"mmos/kernel/mm/vmm"
)

// planAddressSpace fixes every named boundary of the kernel virtual address
// partition. Only arithmetic happens here; nothing is mapped yet.
func (s *VmmState) planAddressSpace() {
	s.SystemRangeStart = KSeg0Base
	s.UserProbeAddress = s.SystemRangeStart - 0x10000
	s.HighestUserAddress = s.UserProbeAddress - 1

	// Round the boot image up to a directory entry boundary so that any
	// directory entries created later never share a slot with the
	// loader's.
	s.BootImageSize = s.env.Block.PagesSpanned * uint32(mm.PageSize)
	s.BootImageSize = (s.BootImageSize + pdeMappedSize - 1) &^ (pdeMappedSize - 1)

	// Session space is carved downward from the page table window:
	// image, then the working set, the view area and the pool.
	s.SessionImageEnd = vmm.PteBase
	s.SessionImageStart = s.SessionImageEnd - uint32(SessionImageSize)
	s.SessionViewStart = s.SessionImageStart - uint32(SessionWorkingSetSize) - uint32(SessionViewSize)
	s.SessionPoolEnd = s.SessionViewStart
	s.SessionPoolStart = s.SessionPoolEnd - uint32(SessionPoolSize)
	s.SessionBase = s.SessionPoolStart
	s.SessionSpaceEnd = s.SessionImageEnd

	s.SystemViewStart = s.SessionBase - uint32(SystemViewSize)
}

// tuneSystemPtes picks the system PTE count from the machine size.
func (s *VmmState) tuneSystemPtes() {
	if s.TotalPhysicalPages < minPagesForSysPteTuning {
		s.NumberOfSystemPtes = 7000
	} else {
		s.NumberOfSystemPtes = 11000
		if s.TotalPhysicalPages > minPagesForSysPteBoost {
			s.NumberOfSystemPtes <<= 1
		}
	}

	kfmt.Printf("mminit: system PTE count tuned to %d (%d bytes)\n",
		s.NumberOfSystemPtes, s.NumberOfSystemPtes*uint32(mm.PageSize))
}

// sizeNonPagedPool computes the initial and maximum nonpaged pool sizes from
// the physical page count and places the pool and system PTE regions at the
// top of the address space.
func (s *VmmState) sizeNonPagedPool() {
	ramMb := uint32((mm.Size(s.TotalPhysicalPages) * mm.PageSize) / mm.Mb)

	size := minNonPagedPoolSize + mm.Size(ramMb)*minAdditionNonPagedPerMb
	if size > maxNonPagedPoolSize {
		size = maxNonPagedPoolSize
	}
	s.SizeOfNonPagedPool = size

	maxSize := defaultMaximumNonPagedPool + mm.Size(ramMb)*maxAdditionNonPagedPerMb
	if maxSize > maxNonPagedPoolSize {
		maxSize = maxNonPagedPoolSize
	}

	if s.cfg.MaximumNonPagedPoolPercent != 0 {
		limit := mm.Size(s.TotalPhysicalPages) * mm.PageSize *
			mm.Size(s.cfg.MaximumNonPagedPoolPercent) / 100
		if maxSize > limit {
			maxSize = limit
		}
	}

	if maxSize < size {
		maxSize = size
	}
	s.MaximumNonPagedPool = maxSize

	// The expansion charge is the page count the pool may still grow by.
	s.ExpansionPoolInitialCharge = uint32((maxSize - size) / mm.PageSize)

	// The expansion range hangs off the top of the address space; the
	// system PTE region sits directly below it, never dipping under its
	// architectural floor.
	s.NonPagedPoolStart = NonPagedPoolEnd - uint32(maxSize)

	systemStart := s.NonPagedPoolStart - (s.NumberOfSystemPtes+1)*uint32(mm.PageSize)
	systemStart &^= pdeMappedSize - 1
	if systemStart < LowestNonPagedSystemStart {
		systemStart = LowestNonPagedSystemStart
		s.NumberOfSystemPtes = (s.NonPagedPoolStart-systemStart)>>mm.PageShift - 1
	}
	s.NonPagedSystemStart = systemStart
}

// sanitizeAllocationFragment applies the operator override or picks a
// default scaled down on small machines.
func (s *VmmState) sanitizeAllocationFragment() {
	if s.cfg.AllocationFragment == 0 {
		s.AllocationFragment = defaultAllocationFragment
		if s.TotalPhysicalPages < uint32(256*mm.Mb/mm.PageSize) {
			s.AllocationFragment = defaultAllocationFragment / 4
		} else if s.TotalPhysicalPages < uint32(1*mm.Gb/mm.PageSize) {
			s.AllocationFragment = defaultAllocationFragment / 2
		}
		return
	}

	fragment := mm.Size(s.cfg.AllocationFragment) * mm.Kb
	fragment = (fragment + mm.PageSize - 1) &^ (mm.PageSize - 1)

	if fragment > maxAllocationFragment {
		fragment = maxAllocationFragment
	}
	if fragment < minAllocationFragment {
		fragment = minAllocationFragment
	}

	s.AllocationFragment = fragment
}

// sanitizeLargeStackSize clamps the configured large kernel stack size.
func (s *VmmState) sanitizeLargeStackSize() {
	if s.cfg.LargeStackSize == 0 || s.cfg.LargeStackSize > kernelLargeStackSize/1024 {
		s.LargeStackSize = kernelLargeStackSize
		return
	}

	size := mm.Size(s.cfg.LargeStackSize) * mm.Kb
	size = (size + mm.PageSize - 1) &^ (mm.PageSize - 1)
	if size < kernelStackSize {
		size = kernelStackSize
	}

	s.LargeStackSize = size
}

// initializeSystemPtes opens the system PTE reservation window at the start
// of the system PTE region.
func (s *VmmState) initializeSystemPtes() {
	s.systemPteNext = s.NonPagedSystemStart
}

// reserveSystemPtes hands out the PTE slots for count consecutive virtual
// pages from the system PTE region and returns the virtual address of the
// first reserved entry.
func (s *VmmState) reserveSystemPtes(count uint32) uint32 {
	va := s.systemPteNext
	s.systemPteNext += count * uint32(mm.PageSize)
	return vmm.PteAddress(va)
}

// setupMappingPtes records the hyperspace mapping window and reserves the
// zeroing PTEs. Both counters are parked in the frame field of the first
// reserved entry; the entries themselves stay invalid.
func (s *VmmState) setupMappingPtes() {
	s.FirstReservedMappingPte = vmm.PteAddress(HyperspaceStart)
	s.LastReservedMappingPte = vmm.PteAddress(HyperspaceStart + (hyperspacePtes-1)*uint32(mm.PageSize))
	s.HyperspacePteCounter = hyperspacePtes

	var counter vmm.Entry
	counter.SetFrame(mm.Frame(hyperspacePtes))
	s.space.SetPte(HyperspaceStart, counter)

	s.FirstReservedZeroingPte = s.reserveSystemPtes(zeroPtes)
	s.ZeroingPteCounter = zeroPtes - 1

	// The zeroing slots live in the system PTE region, whose page tables
	// do not exist yet.
	zeroVA := vmm.PteToAddress(s.FirstReservedZeroingPte)
	s.ensureSystemPageTable(zeroVA)
	for i := uint32(0); i < zeroPtes; i++ {
		s.space.SetPte(zeroVA+i*uint32(mm.PageSize), 0)
	}

	counter = 0
	counter.SetFrame(mm.Frame(zeroPtes - 1))
	s.space.SetPte(zeroVA, counter)
}
