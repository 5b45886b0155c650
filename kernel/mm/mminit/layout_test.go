package mminit

import (
	"testing"

	"mmos/kernel/mm"
	"mmos/kernel/mm/loader"
	"mmos/kernel/mm/vmm"
)

func TestPlanAddressSpace(t *testing.T) {
	s := &VmmState{
		env: &loader.Environment{Block: &loader.Block{PagesSpanned: 0x300}},
	}

	s.planAddressSpace()

	specs := []struct {
		field string
		got   uint32
		exp   uint32
	}{
		{"SystemRangeStart", s.SystemRangeStart, 0x80000000},
		{"UserProbeAddress", s.UserProbeAddress, 0x7fff0000},
		{"HighestUserAddress", s.HighestUserAddress, 0x7ffeffff},
		// 0x300 pages is 3M of image, rounded up to one directory entry.
		{"BootImageSize", s.BootImageSize, 0x400000},
		{"SessionImageEnd", s.SessionImageEnd, 0xc0000000},
		{"SessionImageStart", s.SessionImageStart, 0xbf800000},
		{"SessionViewStart", s.SessionViewStart, 0xbe000000},
		{"SessionPoolEnd", s.SessionPoolEnd, 0xbe000000},
		{"SessionPoolStart", s.SessionPoolStart, 0xbd000000},
		{"SessionBase", s.SessionBase, 0xbd000000},
		{"SessionSpaceEnd", s.SessionSpaceEnd, 0xc0000000},
		{"SystemViewStart", s.SystemViewStart, 0xbc000000},
	}

	for specIndex, spec := range specs {
		if spec.got != spec.exp {
			t.Errorf("[spec %d] expected %s to be 0x%08x; got 0x%08x", specIndex, spec.field, spec.exp, spec.got)
		}
	}
}

func TestTuneSystemPtes(t *testing.T) {
	specs := []struct {
		totalPages uint32
		expPtes    uint32
	}{
		// Below 19M of RAM.
		{0x1000, 7000},
		// Between 19M and 32M.
		{0x1800, 11000},
		// Above 32M the count doubles.
		{0x8000, 22000},
	}

	for specIndex, spec := range specs {
		s := &VmmState{TotalPhysicalPages: spec.totalPages}
		s.tuneSystemPtes()

		if s.NumberOfSystemPtes != spec.expPtes {
			t.Errorf("[spec %d] expected %d system PTEs for %d pages; got %d", specIndex, spec.expPtes, spec.totalPages, s.NumberOfSystemPtes)
		}
	}
}

func TestSizeNonPagedPool(t *testing.T) {
	specs := []struct {
		totalPages uint32
		systemPtes uint32
		percent    uint32

		expInitial     mm.Size
		expMaximum     mm.Size
		expCharge      uint32
		expPoolStart   uint32
		expSystemStart uint32
		expPtes        uint32
	}{
		// 16M machine: 256K + 16*32K initial, 1M + 16*400K maximum.
		{
			totalPages:     0x1000,
			systemPtes:     7000,
			expInitial:     768 * mm.Kb,
			expMaximum:     7424 * mm.Kb,
			expCharge:      1664,
			expPoolStart:   0xff4a0000,
			expSystemStart: 0xfd800000,
			expPtes:        7000,
		},
		// 128M machine.
		{
			totalPages:     0x8000,
			systemPtes:     22000,
			expInitial:     4352 * mm.Kb,
			expMaximum:     52224 * mm.Kb,
			expCharge:      11968,
			expPoolStart:   0xfc8e0000,
			expSystemStart: 0xf7000000,
			expPtes:        22000,
		},
		// 4G machine: both sizes ride the 128M ceiling, leaving no
		// expansion to charge for.
		{
			totalPages:     0x100000,
			systemPtes:     22000,
			expInitial:     128 * mm.Mb,
			expMaximum:     128 * mm.Mb,
			expCharge:      0,
			expPoolStart:   0xf7be0000,
			expSystemStart: 0xf2400000,
			expPtes:        22000,
		},
		// A 1 percent cap on a 128M machine squeezes the maximum below
		// the initial size; the initial size wins.
		{
			totalPages:     0x8000,
			systemPtes:     22000,
			percent:        1,
			expInitial:     4352 * mm.Kb,
			expMaximum:     4352 * mm.Kb,
			expCharge:      0,
			expPoolStart:   0xffbe0000 - uint32(4352*mm.Kb),
			expSystemStart: 0xfa000000,
			expPtes:        22000,
		},
		// An oversized PTE region pushes the system start below its
		// architectural floor; the region is clamped and recounted.
		{
			totalPages:     0x100000,
			systemPtes:     60000,
			expInitial:     128 * mm.Mb,
			expMaximum:     128 * mm.Mb,
			expCharge:      0,
			expPoolStart:   0xf7be0000,
			expSystemStart: 0xeb000000,
			expPtes:        52191,
		},
	}

	for specIndex, spec := range specs {
		s := &VmmState{
			TotalPhysicalPages: spec.totalPages,
			NumberOfSystemPtes: spec.systemPtes,
			cfg:                Config{MaximumNonPagedPoolPercent: spec.percent},
		}

		s.sizeNonPagedPool()

		if s.SizeOfNonPagedPool != spec.expInitial {
			t.Errorf("[spec %d] expected initial pool size %d; got %d", specIndex, spec.expInitial, s.SizeOfNonPagedPool)
		}

		if s.MaximumNonPagedPool != spec.expMaximum {
			t.Errorf("[spec %d] expected maximum pool size %d; got %d", specIndex, spec.expMaximum, s.MaximumNonPagedPool)
		}

		if s.ExpansionPoolInitialCharge != spec.expCharge {
			t.Errorf("[spec %d] expected expansion charge of %d pages; got %d", specIndex, spec.expCharge, s.ExpansionPoolInitialCharge)
		}

		if s.NonPagedPoolStart != spec.expPoolStart {
			t.Errorf("[spec %d] expected pool start 0x%08x; got 0x%08x", specIndex, spec.expPoolStart, s.NonPagedPoolStart)
		}

		if s.NonPagedSystemStart != spec.expSystemStart {
			t.Errorf("[spec %d] expected system start 0x%08x; got 0x%08x", specIndex, spec.expSystemStart, s.NonPagedSystemStart)
		}

		if s.NumberOfSystemPtes != spec.expPtes {
			t.Errorf("[spec %d] expected %d system PTEs after placement; got %d", specIndex, spec.expPtes, s.NumberOfSystemPtes)
		}
	}
}

func TestSanitizeAllocationFragment(t *testing.T) {
	specs := []struct {
		totalPages  uint32
		fragmentKiB uint32

		expFragment mm.Size
	}{
		// Defaults scale down with the machine size.
		{0x1000, 0, 16 * mm.Kb},
		{0x20000, 0, 32 * mm.Kb},
		{0x80000, 0, 64 * mm.Kb},
		// Overrides are page rounded and clamped to [4K, 2M].
		{0x1000, 256, 256 * mm.Kb},
		{0x1000, 3, 4 * mm.Kb},
		{0x1000, 4096, 2 * mm.Mb},
	}

	for specIndex, spec := range specs {
		s := &VmmState{
			TotalPhysicalPages: spec.totalPages,
			cfg:                Config{AllocationFragment: spec.fragmentKiB},
		}

		s.sanitizeAllocationFragment()

		if s.AllocationFragment != spec.expFragment {
			t.Errorf("[spec %d] expected allocation fragment %d; got %d", specIndex, spec.expFragment, s.AllocationFragment)
		}
	}
}

func TestSanitizeLargeStackSize(t *testing.T) {
	specs := []struct {
		stackKiB uint32
		expSize  mm.Size
	}{
		{0, 60 * mm.Kb},
		{100, 60 * mm.Kb},
		{32, 32 * mm.Kb},
		{8, 12 * mm.Kb},
	}

	for specIndex, spec := range specs {
		s := &VmmState{cfg: Config{LargeStackSize: spec.stackKiB}}
		s.sanitizeLargeStackSize()

		if s.LargeStackSize != spec.expSize {
			t.Errorf("[spec %d] expected large stack size %d; got %d", specIndex, spec.expSize, s.LargeStackSize)
		}
	}
}

func TestSetupMappingPtes(t *testing.T) {
	s := newBootedState(t)
	space := s.Space()

	if exp := uint32(0xc0301000); s.FirstReservedMappingPte != exp {
		t.Errorf("expected first mapping PTE at 0x%08x; got 0x%08x", exp, s.FirstReservedMappingPte)
	}

	if exp := uint32(0xc03013fc); s.LastReservedMappingPte != exp {
		t.Errorf("expected last mapping PTE at 0x%08x; got 0x%08x", exp, s.LastReservedMappingPte)
	}

	if s.HyperspacePteCounter != 256 {
		t.Errorf("expected the hyperspace counter to start at 256; got %d", s.HyperspacePteCounter)
	}

	if exp := uint32(0xc03f6000); s.FirstReservedZeroingPte != exp {
		t.Errorf("expected the zeroing PTEs at 0x%08x; got 0x%08x", exp, s.FirstReservedZeroingPte)
	}

	if s.ZeroingPteCounter != 31 {
		t.Errorf("expected the zeroing counter to start at 31; got %d", s.ZeroingPteCounter)
	}

	// The hyperspace counter is parked in the first reserved entry's frame
	// field; the entry stays invalid.
	pte, err := space.Pte(HyperspaceStart)
	if err != nil {
		t.Fatal(err)
	}
	if pte.Frame() != 256 || pte.HasFlags(vmm.FlagPresent) {
		t.Errorf("expected an invalid entry carrying frame 256; got %x", uint32(pte))
	}

	// Same for the zeroing counter, with the remaining slots left clear.
	zeroVA := vmm.PteToAddress(s.FirstReservedZeroingPte)
	pte, err = space.Pte(zeroVA)
	if err != nil {
		t.Fatal(err)
	}
	if pte.Frame() != 31 || pte.HasFlags(vmm.FlagPresent) {
		t.Errorf("expected an invalid entry carrying frame 31; got %x", uint32(pte))
	}

	for i := uint32(1); i < 32; i++ {
		if pte, err = space.Pte(zeroVA + i*uint32(mm.PageSize)); err != nil || pte != 0 {
			t.Fatalf("expected zeroing slot %d to be clear; got %x, %v", i, uint32(pte), err)
		}
	}

	// The zeroing reservation consumed 32 slots from the window start, and
	// the directory double map the one after them.
	if exp := uint32(0xfd800000 + 33*4096); s.systemPteNext != exp {
		t.Errorf("expected the next system PTE window at 0x%08x; got 0x%08x", exp, s.systemPteNext)
	}
}
