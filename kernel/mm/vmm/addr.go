package vmm

import "mmos/kernel/mm"

const (
	// PteBase is the base of the virtual window through which the
	// self-mapped page tables are accessed.
	PteBase uint32 = 0xc0000000

	// PdeBase is the virtual address of the page directory inside the
	// self-map window.
	PdeBase uint32 = 0xc0300000

	// SelfMapIndex is the page directory index whose entry points back at
	// the page directory itself.
	SelfMapIndex uint32 = PteBase >> pdeShift

	// HyperspaceBase is the start of the per-process window used to map
	// foreign page tables. The boot loader prepares its page table so it
	// is usable from the first instruction of the kernel.
	HyperspaceBase uint32 = 0xc0400000

	pdeShift = 22
	pteShift = mm.PageShift
)

// PdeIndex returns the page directory index that maps the supplied virtual
// address.
func PdeIndex(addr uint32) uint32 {
	return addr >> pdeShift
}

// PteIndex returns the page table index that maps the supplied virtual
// address.
func PteIndex(addr uint32) uint32 {
	return (addr >> pteShift) & (mm.EntriesPerTable - 1)
}

// PteAddress returns the virtual address of the page table entry that maps
// the supplied virtual address.
func PteAddress(addr uint32) uint32 {
	return PteBase + ((addr >> pteShift) << mm.PointerShift)
}

// PdeAddress returns the virtual address of the page directory entry that
// maps the supplied virtual address.
func PdeAddress(addr uint32) uint32 {
	return PdeBase + (PdeIndex(addr) << mm.PointerShift)
}

// PteToAddress returns the first virtual address mapped by the page table
// entry at the supplied virtual address.
func PteToAddress(pteAddr uint32) uint32 {
	return (pteAddr - PteBase) << (pteShift - mm.PointerShift)
}

// PdeToAddress returns the first virtual address mapped by the page
// directory entry at the supplied virtual address.
func PdeToAddress(pdeAddr uint32) uint32 {
	return (pdeAddr - PdeBase) << (pdeShift - mm.PointerShift)
}
