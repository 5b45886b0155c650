package vmm

import (
	"encoding/binary"

	"mmos/kernel"
	"mmos/kernel/mm"
)

var (
	errNoTableMapped  = &kernel.Error{Module: "vmm", Message: "no page table mapped for this address"}
	errNotMapped      = &kernel.Error{Module: "vmm", Message: "address is not mapped"}
	errNoAllocator    = &kernel.Error{Module: "vmm", Message: "no frame allocator registered"}
	errLargePageTable = &kernel.Error{Module: "vmm", Message: "directory entry maps a large page"}
)

// AllocFrameFn describes a function that reserves a physical frame for a new
// page table.
type AllocFrameFn func() (mm.Frame, *kernel.Error)

// AddressSpace provides translation and mapping services for a page
// directory resident in a simulated physical memory.
type AddressSpace struct {
	mem     physicalMemory
	dir     mm.Frame
	allocFn AllocFrameFn
}

// physicalMemory is the slice of the physical memory interface the address
// space needs. Declaring it locally keeps the package importable by the
// physical memory tests.
type physicalMemory interface {
	FrameData(mm.Frame) ([]byte, *kernel.Error)
	ZeroFrame(mm.Frame) *kernel.Error
}

// NewAddressSpace creates an address space rooted at the supplied page
// directory frame.
func NewAddressSpace(mem physicalMemory, dir mm.Frame) *AddressSpace {
	return &AddressSpace{mem: mem, dir: dir}
}

// DirectoryFrame returns the page directory frame of this address space.
func (as *AddressSpace) DirectoryFrame() mm.Frame {
	return as.dir
}

// SetFrameAllocator registers the allocator used to back page tables created
// by Map and EnsurePageTable.
func (as *AddressSpace) SetFrameAllocator(fn AllocFrameFn) {
	as.allocFn = fn
}

// InstallSelfMap points the self-map directory entry back at the page
// directory so the tables become visible through the PteBase window.
func (as *AddressSpace) InstallSelfMap() *kernel.Error {
	var pde Entry
	pde.SetFrame(as.dir)
	pde.SetFlags(FlagPresent | FlagRW)
	return as.writeTableEntry(as.dir, SelfMapIndex, pde)
}

// Pde returns the page directory entry that maps the supplied virtual
// address.
func (as *AddressSpace) Pde(addr uint32) (Entry, *kernel.Error) {
	return as.readTableEntry(as.dir, PdeIndex(addr))
}

// SetPde updates the page directory entry that maps the supplied virtual
// address.
func (as *AddressSpace) SetPde(addr uint32, pde Entry) *kernel.Error {
	return as.writeTableEntry(as.dir, PdeIndex(addr), pde)
}

// Pte returns the page table entry that maps the supplied virtual address.
// It fails if no page table is mapped for the address.
func (as *AddressSpace) Pte(addr uint32) (Entry, *kernel.Error) {
	pt, err := as.pageTable(addr)
	if err != nil {
		return 0, err
	}

	return as.readTableEntry(pt, PteIndex(addr))
}

// SetPte updates the page table entry that maps the supplied virtual
// address. It fails if no page table is mapped for the address.
func (as *AddressSpace) SetPte(addr uint32, pte Entry) *kernel.Error {
	pt, err := as.pageTable(addr)
	if err != nil {
		return err
	}

	return as.writeTableEntry(pt, PteIndex(addr), pte)
}

// Translate walks the page tables and returns the frame that backs the page
// containing the supplied virtual address.
func (as *AddressSpace) Translate(addr uint32) (mm.Frame, *kernel.Error) {
	pde, err := as.Pde(addr)
	if err != nil {
		return mm.InvalidFrame, err
	}

	if !pde.HasFlags(FlagPresent) {
		return mm.InvalidFrame, errNotMapped
	}

	if pde.HasFlags(FlagLargePage) {
		return pde.Frame() + mm.Frame(PteIndex(addr)), nil
	}

	pte, err := as.readTableEntry(pde.Frame(), PteIndex(addr))
	if err != nil {
		return mm.InvalidFrame, err
	}

	if !pte.HasFlags(FlagPresent) {
		return mm.InvalidFrame, errNotMapped
	}

	return pte.Frame(), nil
}

// EnsurePageTable guarantees that a page table exists for the supplied
// virtual address, allocating and zeroing one if needed. It returns the page
// table frame and whether it was freshly created.
func (as *AddressSpace) EnsurePageTable(addr uint32) (mm.Frame, bool, *kernel.Error) {
	pde, err := as.Pde(addr)
	if err != nil {
		return mm.InvalidFrame, false, err
	}

	if pde.HasFlags(FlagPresent) {
		if pde.HasFlags(FlagLargePage) {
			return mm.InvalidFrame, false, errLargePageTable
		}
		return pde.Frame(), false, nil
	}

	if as.allocFn == nil {
		return mm.InvalidFrame, false, errNoAllocator
	}

	pt, allocErr := as.allocFn()
	if allocErr != nil {
		return mm.InvalidFrame, false, allocErr
	}

	if err = as.mem.ZeroFrame(pt); err != nil {
		return mm.InvalidFrame, false, err
	}

	pde = 0
	pde.SetFrame(pt)
	pde.SetFlags(FlagPresent | FlagRW)
	if err = as.SetPde(addr, pde); err != nil {
		return mm.InvalidFrame, false, err
	}

	return pt, true, nil
}

// Map establishes a virtual to physical mapping for the supplied page,
// creating the covering page table if it does not exist yet.
func (as *AddressSpace) Map(page mm.Page, frame mm.Frame, flags Entry) *kernel.Error {
	addr := page.Address()

	pt, _, err := as.EnsurePageTable(addr)
	if err != nil {
		return err
	}

	var pte Entry
	pte.SetFrame(frame)
	pte.SetFlags(FlagPresent | flags)
	return as.writeTableEntry(pt, PteIndex(addr), pte)
}

// Unmap clears the page table entry for the supplied page.
func (as *AddressSpace) Unmap(page mm.Page) *kernel.Error {
	return as.SetPte(page.Address(), 0)
}

// ZeroPage fills the frame mapped at the supplied page with zeroes.
func (as *AddressSpace) ZeroPage(page mm.Page) *kernel.Error {
	frame, err := as.Translate(page.Address())
	if err != nil {
		return err
	}

	return as.mem.ZeroFrame(frame)
}

// ReadWord returns the 32-bit word at the supplied virtual address.
func (as *AddressSpace) ReadWord(addr uint32) (uint32, *kernel.Error) {
	frame, err := as.Translate(addr)
	if err != nil {
		return 0, err
	}

	data, err := as.mem.FrameData(frame)
	if err != nil {
		return 0, err
	}

	return binary.LittleEndian.Uint32(data[addr&(uint32(mm.PageSize)-1):]), nil
}

// WriteWord stores a 32-bit word at the supplied virtual address.
func (as *AddressSpace) WriteWord(addr uint32, val uint32) *kernel.Error {
	frame, err := as.Translate(addr)
	if err != nil {
		return err
	}

	data, err := as.mem.FrameData(frame)
	if err != nil {
		return err
	}

	binary.LittleEndian.PutUint32(data[addr&(uint32(mm.PageSize)-1):], val)
	return nil
}

// pageTable returns the page table frame covering the supplied virtual
// address.
func (as *AddressSpace) pageTable(addr uint32) (mm.Frame, *kernel.Error) {
	pde, err := as.Pde(addr)
	if err != nil {
		return mm.InvalidFrame, err
	}

	if !pde.HasFlags(FlagPresent) {
		return mm.InvalidFrame, errNoTableMapped
	}

	if pde.HasFlags(FlagLargePage) {
		return mm.InvalidFrame, errLargePageTable
	}

	return pde.Frame(), nil
}

func (as *AddressSpace) readTableEntry(table mm.Frame, index uint32) (Entry, *kernel.Error) {
	data, err := as.mem.FrameData(table)
	if err != nil {
		return 0, err
	}

	return Entry(binary.LittleEndian.Uint32(data[index<<mm.PointerShift:])), nil
}

func (as *AddressSpace) writeTableEntry(table mm.Frame, index uint32, entry Entry) *kernel.Error {
	data, err := as.mem.FrameData(table)
	if err != nil {
		return err
	}

	binary.LittleEndian.PutUint32(data[index<<mm.PointerShift:], uint32(entry))
	return nil
}
