package mminit

import (
	"mmos/kernel/mm"
	"mmos/kernel/mm/loader"
)

// locationByMemoryType maps each descriptor kind to the page list its frames
// start out on. notInDatabase kinds get no PFN entries at all; their ranges
// are treated as I/O space.
const notInDatabase PageLocation = 0xff

var locationByMemoryType = [loader.MemoryMaximum]PageLocation{
	loader.MemoryExceptionBlock:     ActiveAndValid,
	loader.MemorySystemBlock:        ActiveAndValid,
	loader.MemoryFree:               FreePageList,
	loader.MemoryBad:                BadPageList,
	loader.MemoryLoadedProgram:      FreePageList,
	loader.MemoryFirmwareTemporary:  FreePageList,
	loader.MemoryFirmwarePermanent:  notInDatabase,
	loader.MemoryOsloaderHeap:       ActiveAndValid,
	loader.MemoryOsloaderStack:      FreePageList,
	loader.MemorySystemCode:         ActiveAndValid,
	loader.MemoryHalCode:            ActiveAndValid,
	loader.MemoryBootDriver:         ActiveAndValid,
	loader.MemoryConsoleInDriver:    ActiveAndValid,
	loader.MemoryConsoleOutDriver:   ActiveAndValid,
	loader.MemoryStartupDpcStack:    ActiveAndValid,
	loader.MemoryStartupKernelStack: ActiveAndValid,
	loader.MemoryStartupPanicStack:  ActiveAndValid,
	loader.MemoryStartupPcrPage:     ActiveAndValid,
	loader.MemoryStartupPdrPage:     ActiveAndValid,
	loader.MemoryRegistryData:       ActiveAndValid,
	loader.MemoryMemoryData:         ActiveAndValid,
	loader.MemoryNlsData:            ActiveAndValid,
	loader.MemorySpecialMemory:      notInDatabase,
	loader.MemoryBBTMemory:          notInDatabase,
	loader.MemoryLoaderReserve:      ActiveAndValid,
	loader.MemoryXIPRom:             ActiveAndValid,
	loader.MemoryHALCachedMemory:    ActiveAndValid,
	loader.MemoryLargePageFiller:    ActiveAndValid,
	loader.MemoryErrorLogMemory:     ActiveAndValid,
}

func memoryTypeInDatabase(t loader.MemoryType) bool {
	return locationByMemoryType[t] != notInDatabase
}

func memoryTypeFree(t loader.MemoryType) bool {
	return locationByMemoryType[t] == FreePageList
}

// scanMemoryDescriptors walks the loader descriptor list once, computing the
// physical page bounds and totals and electing the largest free run as the
// bootstrap descriptor.
func (s *VmmState) scanMemoryDescriptors() {
	s.LowestPhysicalPage = mm.InvalidFrame

	s.env.Block.VisitDescriptors(func(desc *loader.MemoryDescriptor) bool {
		s.NumberDescriptors++

		if !memoryTypeInDatabase(desc.MemoryType) {
			return true
		}

		// Bad pages are excluded from the total but still widen the
		// min/max range, matching the BURNMEM accounting.
		if desc.MemoryType != loader.MemoryBad {
			s.TotalPhysicalPages += desc.PageCount
		}

		if desc.BasePage < s.LowestPhysicalPage {
			s.LowestPhysicalPage = desc.BasePage
		}

		if last := desc.BasePage + mm.Frame(desc.PageCount) - 1; last > s.HighestPhysicalPage {
			s.HighestPhysicalPage = last
		}

		if memoryTypeFree(desc.MemoryType) {
			s.InitialFreePages += desc.PageCount

			// First encountered wins on equal size.
			if desc.PageCount > s.earlyAllocCount {
				s.bootstrap = desc
				s.earlyAllocCount = desc.PageCount
			}
		}

		return true
	})

	if s.bootstrap != nil {
		// Early allocations consume the descriptor; keep the original
		// bounds for diagnostics and the residue reclaim.
		s.bootstrapOriginal = *s.bootstrap
		s.earlyAllocBase = s.bootstrap.BasePage
	}
}
