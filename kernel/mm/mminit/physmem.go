package mminit

import (
	"mmos/kernel/mm"
	"mmos/kernel/mm/loader"
)

// initializeMemoryLimits coalesces adjacent included descriptors into
// maximal physical runs. The run buffer is allocated at its worst case (one
// run per descriptor) and right-sized afterwards.
func (s *VmmState) initializeMemoryLimits(include func(loader.MemoryType) bool) *PhysicalMemoryBlock {
	runs := make([]PhysicalMemoryRun, 0, s.NumberDescriptors)

	var (
		nextPage  = mm.InvalidFrame
		pageCount uint32
	)

	s.env.Block.VisitDescriptors(func(desc *loader.MemoryDescriptor) bool {
		if desc.MemoryType >= loader.MemoryMaximum || !include(desc.MemoryType) {
			return true
		}

		pageCount += desc.PageCount

		if desc.BasePage == nextPage && len(runs) > 0 {
			runs[len(runs)-1].PageCount += desc.PageCount
			nextPage += mm.Frame(desc.PageCount)
		} else {
			runs = append(runs, PhysicalMemoryRun{
				BasePage:  desc.BasePage,
				PageCount: desc.PageCount,
			})
			nextPage = desc.BasePage + mm.Frame(desc.PageCount)
		}

		return true
	})

	// Shed the worst-case slack.
	if uint32(len(runs)) < s.NumberDescriptors {
		right := make([]PhysicalMemoryRun, len(runs))
		copy(right, runs)
		runs = right
	}

	return &PhysicalMemoryBlock{
		NumberOfPages: pageCount,
		Runs:          runs,
	}
}

// defaultInclusion matches the descriptor kinds considered usable RAM.
// These are the same exclusions boot loaders apply.
func defaultInclusion(t loader.MemoryType) bool {
	switch t {
	case loader.MemoryBad,
		loader.MemoryFirmwarePermanent,
		loader.MemorySpecialMemory,
		loader.MemoryBBTMemory:
		return false
	default:
		return true
	}
}
