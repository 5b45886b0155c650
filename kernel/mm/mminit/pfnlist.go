package mminit

import (
	"mmos/kernel"
	"mmos/kernel/mm"
	"mmos/kernel/mm/vmm"
)

// listFor returns the global list head for a free or zeroed location.
func (s *VmmState) listFor(location PageLocation) *PfnList {
	if location == ZeroedPageList {
		return &s.ZeroList
	}

	return &s.FreeList
}

// insertPageInFreeList pushes a frame onto the head of the global free list
// and of its color chain. Because the PFN database population walks free
// runs from high to low, head insertion leaves both lists ascending in
// frame number.
func (s *VmmState) insertPageInFreeList(frame mm.Frame) {
	pfn := &s.Pfn[frame]

	pfn.PageLocation = FreePageList
	pfn.ShareCount = 0
	pfn.ReferenceCount = 0
	pfn.PteAddress = 0
	pfn.WsIndex = 0

	list := &s.FreeList
	pfn.Flink = list.Flink
	pfn.Blink = ListSentinel
	if list.Flink != ListSentinel {
		s.Pfn[list.Flink].Blink = uint32(frame)
	} else {
		list.Blink = uint32(frame)
	}
	list.Flink = uint32(frame)
	list.Total++

	head := &s.FreePagesByColor[FreePageList][s.frameColor(frame)]
	pfn.OriginalPte = vmm.Entry(head.Flink)
	pfn.PteFrame = mm.Frame(ListSentinel)
	if head.Flink != ListSentinel {
		s.Pfn[head.Flink].PteFrame = frame
	} else {
		head.Blink = uint32(frame)
	}
	head.Flink = uint32(frame)
	head.Count++

	s.AvailablePages++
}

// unlinkPage removes a free or zeroed frame from its global list and color
// chain. The caller decides the frame's next state.
func (s *VmmState) unlinkPage(frame mm.Frame) {
	pfn := &s.Pfn[frame]
	location := pfn.PageLocation

	list := s.listFor(location)
	if pfn.Blink != ListSentinel {
		s.Pfn[pfn.Blink].Flink = pfn.Flink
	} else {
		list.Flink = pfn.Flink
	}
	if pfn.Flink != ListSentinel {
		s.Pfn[pfn.Flink].Blink = pfn.Blink
	} else {
		list.Blink = pfn.Blink
	}
	list.Total--

	head := &s.FreePagesByColor[location][s.frameColor(frame)]
	colorNext := uint32(pfn.OriginalPte)
	colorPrev := uint32(pfn.PteFrame)
	if colorPrev != ListSentinel {
		s.Pfn[colorPrev].OriginalPte = vmm.Entry(colorNext)
	} else {
		head.Flink = colorNext
	}
	if colorNext != ListSentinel {
		s.Pfn[colorNext].PteFrame = mm.Frame(colorPrev)
	} else {
		head.Blink = colorPrev
	}
	head.Count--

	pfn.Flink = ListSentinel
	pfn.Blink = ListSentinel
	pfn.OriginalPte = 0
	pfn.PteFrame = 0

	s.AvailablePages--
}

// removeZeroPage removes a zeroed frame of the preferred color, falling back
// to other colors and then to the free list, zeroing the frame on the way
// out. Running out of pages entirely is fatal.
func (s *VmmState) removeZeroPage(color uint32) mm.Frame {
	if frame, ok := s.removeColoredPage(ZeroedPageList, color); ok {
		return frame
	}

	if frame, ok := s.removeColoredPage(FreePageList, color); ok {
		if err := s.env.Mem.ZeroFrame(frame); err != nil {
			kernel.Bugcheck(kernel.MemoryManagement, uint64(frame), 0, 0, 1)
		}
		return frame
	}

	kernel.Bugcheck(kernel.MemoryManagement,
		uint64(s.AvailablePages), uint64(color), 0, 2)
	panic("unreachable")
}

// removeColoredPage takes the head of the preferred color chain, scanning
// the other colors if it is empty.
func (s *VmmState) removeColoredPage(location PageLocation, color uint32) (mm.Frame, bool) {
	for i := uint32(0); i < s.SecondaryColors; i++ {
		head := &s.FreePagesByColor[location][(color+i)&s.SecondaryColorMask]
		if head.Flink == ListSentinel {
			continue
		}

		frame := mm.Frame(head.Flink)
		s.unlinkPage(frame)
		return frame, true
	}

	return mm.InvalidFrame, false
}

// initializePfnForOtherProcess stamps a frame as a page table page owned by
// the supplied containing directory and charges the container's share count.
func (s *VmmState) initializePfnForOtherProcess(frame mm.Frame, pteAddress uint32, container mm.Frame) {
	pfn := &s.Pfn[frame]
	pfn.PteAddress = pteAddress
	pfn.OriginalPte = 0
	pfn.PteFrame = container
	pfn.ShareCount = 1
	pfn.ReferenceCount = 1
	pfn.PageLocation = ActiveAndValid
	pfn.CacheAttribute = NonCached

	if containerPfn := s.PfnElement(container); containerPfn != nil {
		containerPfn.ShareCount++
	}
}
