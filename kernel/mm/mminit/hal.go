package mminit

import (
	"mmos/kernel/kfmt"
	"mmos/kernel/mm"
	"mmos/kernel/mm/vmm"
)

// addHalIoMappings scans the HAL heap for device mappings. Pages mapped to
// frames without a PFN bitmap bit are true device memory; they only get a
// soft warning since cache attribute tracking for them is deferred.
func (s *VmmState) addHalIoMappings() {
	baseAddress := HalHeapStart

	pdeCount := mm.EntriesPerTable - vmm.PdeIndex(HalHeapStart)
	for i := uint32(0); i < pdeCount; i++ {
		pde, err := s.space.Pde(baseAddress)
		if err != nil {
			return
		}

		if !pde.HasFlags(vmm.FlagPresent) || pde.HasFlags(vmm.FlagLargePage) {
			baseAddress += pdeMappedSize
			continue
		}

		for j := uint32(0); j < mm.EntriesPerTable; j++ {
			pte, err := s.space.Pte(baseAddress)
			if err == nil && pte.HasFlags(vmm.FlagPresent) {
				frame := pte.Frame()
				if frame > s.HighestPhysicalPage || !s.PfnBitmap.Test(uint32(frame)) {
					kfmt.Printf("mminit: HAL I/O mapping at %x is unsafe\n", baseAddress)
				}
			}

			baseAddress += uint32(mm.PageSize)
		}
	}
}
