package mminit

import (
	"mmos/kernel/kfmt"
	"mmos/kernel/mm"
	"mmos/kernel/mm/loader"
)

// dumpMemoryDescriptors prints the loader descriptor list with a page total.
func (s *VmmState) dumpMemoryDescriptors() {
	var totalPages uint32

	kfmt.Printf("Base\t\tLength\t\tType\n")
	s.env.Block.VisitDescriptors(func(desc *loader.MemoryDescriptor) bool {
		kfmt.Printf("%08x\t%08x\t%s\n", uint32(desc.BasePage), desc.PageCount, desc.MemoryType)
		totalPages += desc.PageCount
		return true
	})

	kfmt.Printf("Total: %08x (%d MB)\n", totalPages,
		(mm.Size(totalPages)*mm.PageSize)/mm.Mb)
}

// PfnDatabaseSummary is the per-state page census of the PFN database.
type PfnDatabaseSummary struct {
	ActivePages uint32
	FreePages   uint32
	OtherPages  uint32
}

// DumpPfnDatabase walks the PFN database under the PFN lock and returns the
// page census, optionally printing each entry.
func (s *VmmState) DumpPfnDatabase(statusOnly bool) PfnDatabaseSummary {
	var summary PfnDatabaseSummary

	s.PfnLock.Acquire()
	defer s.PfnLock.Release()

	for frame := mm.Frame(0); frame <= s.HighestPhysicalPage; frame++ {
		if !s.pfnEntryMapped(frame) {
			continue
		}

		var consumer string
		pfn := &s.Pfn[frame]

		switch pfn.PageLocation {
		case ActiveAndValid:
			consumer = "Active and Valid"
			summary.ActivePages++
		case ZeroedPageList:
			consumer = "Zero Page List"
			summary.FreePages++
		case FreePageList:
			consumer = "Free Page List"
			summary.FreePages++
		default:
			consumer = "Other"
			summary.OtherPages++
		}

		if !statusOnly {
			kfmt.Printf("0x%08x:\t%20s\t(%04d.%04d)\n",
				frame.Address(), consumer, pfn.ReferenceCount, pfn.ShareCount)
		}
	}

	kfmt.Printf("Active:               %5d pages\t[%6d KB]\n",
		summary.ActivePages, (mm.Size(summary.ActivePages)*mm.PageSize)/mm.Kb)
	kfmt.Printf("Free:                 %5d pages\t[%6d KB]\n",
		summary.FreePages, (mm.Size(summary.FreePages)*mm.PageSize)/mm.Kb)

	return summary
}
