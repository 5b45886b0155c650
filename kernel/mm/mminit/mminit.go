package mminit

import (
	"mmos/kernel"
	"mmos/kernel/kfmt"
	"mmos/kernel/mm"
	"mmos/kernel/mm/bitmap"
	"mmos/kernel/mm/loader"
	"mmos/kernel/ob"
)

// classifySystemSize buckets the machine by page count and tunes the system
// cache working set minimum and the product-specific knobs.
func (s *VmmState) classifySystemSize() {
	pages := s.TotalPhysicalPages

	switch {
	case pages <= uint32(13*mm.Mb/mm.PageSize):
		s.SystemSize = SmallSystem
	case pages <= uint32(19*mm.Mb/mm.PageSize):
		s.SystemSize = SmallSystem
		s.SystemCacheWsMinimum += 100
	default:
		s.SystemSize = MediumSystem
		s.SystemCacheWsMinimum += 400
	}

	if pages < uint32(24*mm.Mb/mm.PageSize) {
		s.SystemCacheWsMinimum = 32
	}

	workstation := s.cfg.ProductType == "" || s.cfg.ProductType == ProductWorkstation

	if pages >= uint32(32*mm.Mb/mm.PageSize) {
		if workstation {
			s.SystemSize = LargeSystem
		} else if pages >= uint32(64*mm.Mb/mm.PageSize) {
			// Servers need twice the memory to count as large.
			s.SystemSize = LargeSystem
		}
	}

	if pages > uint32(33*mm.Mb/mm.PageSize) {
		s.SystemCacheWsMinimum += 500
	}

	if !workstation {
		// Server products run more aggressively against low memory.
		s.ProductServer = true
		s.MinimumFreePages = 81
	}
}

// buildPfnBitmap marks every frame covered by a physical run. A machine
// whose descriptor list produced no usable range cannot even hold the
// bitmap, which is fatal.
func (s *VmmState) buildPfnBitmap() {
	if s.LowestPhysicalPage == mm.InvalidFrame {
		kernel.Bugcheck(kernel.InstallMoreMemory,
			uint64(s.TotalPhysicalPages),
			uint64(s.LowestPhysicalPage),
			uint64(s.HighestPhysicalPage),
			0x101)
	}

	s.PfnBitmap = bitmap.New(uint32(s.HighestPhysicalPage) + 1)

	for _, run := range s.PhysicalMemoryBlock.Runs {
		if run.PageCount == 0 {
			continue
		}

		kfmt.Printf("mminit: physical RAM [0x%08x to 0x%08x]\n",
			run.BasePage.Address(),
			uint32(run.BasePage+mm.Frame(run.PageCount))<<mm.PageShift)

		s.PfnBitmap.SetRange(uint32(run.BasePage), run.PageCount)
	}
}

// InitSystem performs the one-shot construction of the virtual memory
// subsystem from the supplied boot environment and operator configuration.
// It either returns the fully built state or halts via Bugcheck; the only
// recoverable failures are event creation errors.
func InitSystem(env *loader.Environment, cfg Config) (*VmmState, *kernel.Error) {
	s := &VmmState{
		env:   env,
		space: env.Space,
		cfg:   cfg,

		PlentyFreePages:      400,
		MinimumFreePages:     26,
		SystemCacheWsMinimum: 288,
		Objects:              ob.NewDirectory(),
	}

	if cfg.DumpDescriptors {
		s.dumpMemoryDescriptors()
	}

	// Until the named events exist, all six pointers alias one unnamed
	// event so early notifications have somewhere to go.
	s.initializeTempEvent()

	s.planAddressSpace()
	s.scanMemoryDescriptors()
	s.computeColorInformation()

	// The database footprint: one entry per frame up to the highest, the
	// two color tables, rounded up a page.
	pfnBytes := (uint32(s.HighestPhysicalPage)+1)*pfnEntrySize +
		2*s.SecondaryColors*colorHeadSize
	s.PfnAllocationPages = pfnBytes>>mm.PageShift + 1

	s.tuneSystemPtes()

	// The commit limit starts pessimistic and is refined once the free
	// page count is known.
	s.TotalCommitLimit = uint32(2 * mm.Gb / mm.PageSize)
	s.TotalCommitLimitMaximum = s.TotalCommitLimit

	s.sanitizeAllocationFragment()
	s.sanitizeLargeStackSize()

	s.sizeNonPagedPool()
	s.initializeNonPagedPoolThresholds()

	s.initializePfnDatabase()

	s.initializeSystemPtes()
	s.setupMappingPtes()

	s.PhysicalMemoryBlock = s.initializeMemoryLimits(defaultInclusion)
	s.buildPfnBitmap()

	s.addHalIoMappings()

	s.ResidentAvailablePages = int64(s.AvailablePages) - 32

	s.classifySystemSize()
	s.adjustWorkingSetManagerParameters()

	// Charge the nonpaged expansion and the system cache working set
	// against the resident pages; a machine that cannot afford them
	// cannot boot.
	s.ResidentAvailablePages -= int64(s.ExpansionPoolInitialCharge)
	s.ResidentAvailablePages -= int64(s.SystemCacheWsMinimum)
	s.ResidentAvailableAtInit = s.ResidentAvailablePages
	if s.ResidentAvailablePages <= 0 {
		kfmt.Printf("mminit: system cache working set too big\n")
		kernel.Bugcheck(kernel.MemoryManagement,
			uint64(s.SystemCacheWsMinimum),
			uint64(s.AvailablePages),
			uint64(s.ExpansionPoolInitialCharge),
			5)
	}

	s.TotalCommitLimit = s.AvailablePages
	if s.TotalCommitLimit > 1024 {
		s.TotalCommitLimit -= 1024
	}
	s.TotalCommitLimitMaximum = s.TotalCommitLimit

	s.buildPagedPool()

	if err := s.initializeMemoryEvents(); err != nil {
		return nil, err
	}

	return s, nil
}
