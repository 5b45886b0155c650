package mminit

import (
	"mmos/kernel"
	"mmos/kernel/kfmt"
	"mmos/kernel/mm"
	"mmos/kernel/mm/loader"
	"mmos/kernel/mm/vmm"
)

// validKernelEntry is the template for page table entries installed during
// initialization.
const validKernelEntry = vmm.FlagPresent | vmm.FlagRW

// mapDatabaseRange backs the virtual range [firstVA, lastVA] with bootstrap
// frames, creating page tables from the same allocator. Already-valid
// entries are left alone so that ranges overlapping previously mapped
// database pages only consume what they add.
func (s *VmmState) mapDatabaseRange(firstVA, lastVA uint32) {
	for va := firstVA &^ (uint32(mm.PageSize) - 1); va <= lastVA; va += uint32(mm.PageSize) {
		pde, err := s.space.Pde(va)
		if err != nil {
			kernel.Bugcheck(kernel.MemoryManagement, uint64(va), 0, 0, 3)
		}

		if !pde.HasFlags(vmm.FlagPresent) {
			pt := s.earlyAllocPages(1)
			s.env.Mem.ZeroFrame(pt)

			pde = 0
			pde.SetFrame(pt)
			pde.SetFlags(validKernelEntry)
			s.space.SetPde(va, pde)
		}

		pte, err := s.space.Pte(va)
		if err != nil {
			kernel.Bugcheck(kernel.MemoryManagement, uint64(va), 0, 0, 3)
		}

		if pte.HasFlags(vmm.FlagPresent) {
			continue
		}

		frame := s.earlyAllocPages(1)
		s.env.Mem.ZeroFrame(frame)

		pte = 0
		pte.SetFrame(frame)
		pte.SetFlags(validKernelEntry)
		s.space.SetPte(va, pte)
	}
}

// mapPfnDatabase is Phase A: back the database slots of every in-database
// descriptor range with freshly allocated, zeroed pages.
func (s *VmmState) mapPfnDatabase() {
	s.env.Block.VisitDescriptors(func(desc *loader.MemoryDescriptor) bool {
		if !memoryTypeInDatabase(desc.MemoryType) || desc.PageCount == 0 {
			return true
		}

		first := pfnEntryAddress(desc.BasePage)
		last := pfnEntryAddress(desc.BasePage+mm.Frame(desc.PageCount)) - 1
		s.mapDatabaseRange(first, last)
		return true
	})
}

// populatePfnDatabase is Phase B: stamp one entry per frame with its
// boot-time provenance. Non-free descriptors are processed before free ones
// so that active stamps never race free-list insertion for overlapping
// bookkeeping. Free runs are walked high to low; combined with head
// insertion this leaves the free lists ascending in frame number.
func (s *VmmState) populatePfnDatabase() {
	s.env.Block.VisitDescriptors(func(desc *loader.MemoryDescriptor) bool {
		if !memoryTypeInDatabase(desc.MemoryType) || desc.PageCount == 0 {
			return true
		}

		if desc == s.bootstrap || memoryTypeFree(desc.MemoryType) {
			return true
		}

		switch desc.MemoryType {
		case loader.MemoryBad:
			kfmt.Printf("mminit: damaged RAM modules at %x, stopping boot\n", desc.BasePage.Address())
			kernel.Bugcheck(kernel.FaultyHardwareCorruptedPage,
				uint64(desc.BasePage), uint64(desc.PageCount), 0, 0)

		case loader.MemoryXIPRom:
			for i := uint32(0); i < desc.PageCount; i++ {
				pfn := &s.Pfn[desc.BasePage+mm.Frame(i)]
				pfn.PteAddress = 0
				pfn.Flink = 0
				pfn.ShareCount = 0
				pfn.PageLocation = ZeroedPageList
				pfn.CacheAttribute = NonCached
				pfn.Rom = true
				pfn.PrototypePte = true
				pfn.ReferenceCount = 0
				pfn.InPageError = false
				pfn.PteFrame = 0
			}

		default:
			for i := uint32(0); i < desc.PageCount; i++ {
				pfn := &s.Pfn[desc.BasePage+mm.Frame(i)]
				pfn.PteFrame = 0
				pfn.PteAddress = 0
				pfn.ShareCount++
				pfn.ReferenceCount = 1
				pfn.PageLocation = ActiveAndValid
				pfn.CacheAttribute = NonCached
			}
		}

		return true
	})

	// Second pass: free runs, except the bootstrap donor whose residue is
	// reclaimed separately.
	s.env.Block.VisitDescriptors(func(desc *loader.MemoryDescriptor) bool {
		if desc == s.bootstrap || !memoryTypeFree(desc.MemoryType) || desc.PageCount == 0 {
			return true
		}

		for frame := desc.BasePage + mm.Frame(desc.PageCount) - 1; ; frame-- {
			s.Pfn[frame].CacheAttribute = NonCached
			s.insertPageInFreeList(frame)

			if frame == desc.BasePage {
				break
			}
		}

		return true
	})
}

// reclaimBootstrapResidue is Phase C: whatever the bootstrap allocator did
// not consume goes back to the free list, high to low.
func (s *VmmState) reclaimBootstrapResidue() {
	if s.earlyAllocCount == 0 {
		return
	}

	for frame := s.earlyAllocBase + mm.Frame(s.earlyAllocCount) - 1; ; frame-- {
		s.Pfn[frame].CacheAttribute = NonCached
		s.insertPageInFreeList(frame)

		if frame == s.earlyAllocBase {
			break
		}
	}
}

// pfnEntryMapped reports whether the database slot for the supplied frame is
// backed by memory, which is the case exactly when the frame was covered by
// an in-database descriptor during Phase A.
func (s *VmmState) pfnEntryMapped(frame mm.Frame) bool {
	if frame > s.HighestPhysicalPage {
		return false
	}

	if _, err := s.space.Translate(pfnEntryAddress(frame)); err != nil {
		return false
	}

	if _, err := s.space.Translate(pfnEntryAddress(frame + 1)); err != nil {
		return false
	}

	return true
}

// setupPfnForPageTable records that the page table entry at pteAddress
// references the supplied frame, and charges the share count of the page
// table page containing that entry.
func (s *VmmState) setupPfnForPageTable(frame mm.Frame, pteAddress uint32) {
	if s.pfnEntryMapped(frame) {
		entryValue, _ := s.space.ReadWord(pteAddress)
		containingFrame, _ := s.space.Translate(pteAddress)

		pfn := &s.Pfn[frame]
		pfn.WsIndex = 0
		pfn.ShareCount++
		pfn.PteAddress = pteAddress
		pfn.OriginalPte = vmm.Entry(entryValue)
		pfn.PageLocation = ActiveAndValid
		pfn.CacheAttribute = NonCached
		pfn.ReferenceCount = 1
		pfn.PteFrame = containingFrame
	}

	// The directory entry covering this PTE gains one more share.
	pdeVA := vmm.PdeAddress(vmm.PteToAddress(pteAddress))
	parentValue, err := s.space.ReadWord(pdeVA)
	if err != nil {
		return
	}

	if parent := vmm.Entry(parentValue).Frame(); s.pfnEntryMapped(parent) {
		s.Pfn[parent].ShareCount++
	}
}

// buildPfnDatabaseFromPages is Phase D: walk every valid entry of the live
// page tables, charging share counts and stamping page table pages. The
// self-map slot makes the directory reappear as a page table, so the
// directory frame collects one share per valid directory entry as well.
func (s *VmmState) buildPfnDatabaseFromPages() {
	for k := uint32(0); k < mm.EntriesPerTable; k++ {
		pdeVA := vmm.PdeBase + k<<mm.PointerShift
		pdeValue, err := s.space.ReadWord(pdeVA)
		if err != nil {
			continue
		}

		pde := vmm.Entry(pdeValue)
		if !pde.HasFlags(vmm.FlagPresent) {
			continue
		}

		s.setupPfnForPageTable(pde.Frame(), pdeVA)

		if pde.HasFlags(vmm.FlagLargePage) {
			continue
		}

		regionVA := vmm.PdeToAddress(pdeVA)
		for l := uint32(0); l < mm.EntriesPerTable; l++ {
			va := regionVA + l*uint32(mm.PageSize)

			pte, err := s.space.Pte(va)
			if err != nil || !pte.HasFlags(vmm.FlagPresent) {
				continue
			}

			s.setupPfnForPageTable(pte.Frame(), vmm.PteAddress(va))
		}
	}
}

// buildPfnDatabaseZeroPage is Phase E: if frame 0 exists and nothing
// references it, pin it with a sentinel reference count so it is never
// handed out.
func (s *VmmState) buildPfnDatabaseZeroPage() {
	if s.LowestPhysicalPage != 0 || s.Pfn[0].ReferenceCount != 0 {
		return
	}

	pdeVA := vmm.PdeAddress(0xffffffff)
	pdeValue, _ := s.space.ReadWord(pdeVA)

	pfn := &s.Pfn[0]
	pfn.PteFrame = vmm.Entry(pdeValue).Frame()
	pfn.PteAddress = pdeVA
	pfn.ShareCount++
	pfn.ReferenceCount = zeroPageRefCount
	pfn.PageLocation = ActiveAndValid
	pfn.CacheAttribute = NonCached
}

// buildPfnDatabaseSelf is Phase F: the frames backing the database itself
// get a clean single reference.
func (s *VmmState) buildPfnDatabaseSelf() {
	first := pfnEntryAddress(s.LowestPhysicalPage) &^ (uint32(mm.PageSize) - 1)
	last := pfnEntryAddress(s.HighestPhysicalPage)

	for va := first; va <= last; va += uint32(mm.PageSize) {
		pte, err := s.space.Pte(va)
		if err != nil || !pte.HasFlags(vmm.FlagPresent) {
			continue
		}

		pfn := &s.Pfn[pte.Frame()]
		pfn.ShareCount = 1
		pfn.ReferenceCount = 1
	}
}

// initializePfnDatabase materializes and populates the page frame database.
// The phases are ordered: backing pages are mapped before entries are
// written, color heads exist before the first free-list insertion, non-free
// provenance is stamped before free runs are inserted, the bootstrap residue
// is reclaimed before the page table walk, and the self pass runs last.
func (s *VmmState) initializePfnDatabase() {
	s.Pfn = make([]PfnEntry, s.HighestPhysicalPage+1)
	s.FreeList = emptyPfnList()
	s.ZeroList = emptyPfnList()

	s.PfnLock.Acquire()
	defer s.PfnLock.Release()

	s.mapPfnDatabase()
	s.initializeColorTables()
	s.populatePfnDatabase()
	s.reclaimBootstrapResidue()
	s.buildPfnDatabaseFromPages()
	s.buildPfnDatabaseZeroPage()
	s.buildPfnDatabaseSelf()
}
