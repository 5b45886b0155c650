package mminit

import (
	"mmos/kernel"
	"mmos/kernel/mm"
)

// earlyAllocPages hands out pageCount physically contiguous frames from the
// head of the bootstrap descriptor. Frames are never returned individually;
// whatever remains when the PFN database is built goes back to the free list
// in one piece. Exhaustion is fatal.
func (s *VmmState) earlyAllocPages(pageCount uint32) mm.Frame {
	if pageCount > s.earlyAllocCount {
		var originalCount uint32
		if s.bootstrap != nil {
			originalCount = s.bootstrap.PageCount
		}

		kernel.Bugcheck(kernel.InstallMoreMemory,
			uint64(s.TotalPhysicalPages),
			uint64(s.earlyAllocCount),
			uint64(originalCount),
			uint64(pageCount))
	}

	frame := s.earlyAllocBase
	s.earlyAllocBase += mm.Frame(pageCount)
	s.earlyAllocCount -= pageCount
	return frame
}

// earlyAllocFrame adapts the bootstrap allocator to the page table allocator
// signature. The frame is not zeroed; callers that need zeroed memory zero
// it themselves.
func (s *VmmState) earlyAllocFrame() (mm.Frame, *kernel.Error) {
	return s.earlyAllocPages(1), nil
}
