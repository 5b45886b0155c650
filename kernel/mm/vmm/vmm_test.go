package vmm

import (
	"testing"

	"mmos/kernel"
	"mmos/kernel/mm"
	"mmos/kernel/mm/phys"
)

func TestAddressSplitHelpers(t *testing.T) {
	specs := []struct {
		addr                   uint32
		expPdeIdx, expPteIdx   uint32
		expPteAddr, expPdeAddr uint32
	}{
		{0x00000000, 0, 0, 0xc0000000, 0xc0300000},
		{0x00001000, 0, 1, 0xc0000004, 0xc0300000},
		{0x80000000, 512, 0, 0xc0200000, 0xc0300800},
		{0xb0000000, 704, 0, 0xc02c0000, 0xc0300b00},
		{0xc0300c00, 768, 768, 0xc0300c00, 0xc0300c00},
		{0xffffffff, 1023, 1023, 0xc03ffffc, 0xc0300ffc},
	}

	for specIndex, spec := range specs {
		if got := PdeIndex(spec.addr); got != spec.expPdeIdx {
			t.Errorf("[spec %d] expected pde index %d; got %d", specIndex, spec.expPdeIdx, got)
		}

		if got := PteIndex(spec.addr); got != spec.expPteIdx {
			t.Errorf("[spec %d] expected pte index %d; got %d", specIndex, spec.expPteIdx, got)
		}

		if got := PteAddress(spec.addr); got != spec.expPteAddr {
			t.Errorf("[spec %d] expected pte address %x; got %x", specIndex, spec.expPteAddr, got)
		}

		if got := PdeAddress(spec.addr); got != spec.expPdeAddr {
			t.Errorf("[spec %d] expected pde address %x; got %x", specIndex, spec.expPdeAddr, got)
		}

		if got := PteToAddress(spec.expPteAddr); got != spec.addr&^0xfff {
			t.Errorf("[spec %d] expected PteToAddress to return %x; got %x", specIndex, spec.addr&^0xfff, got)
		}

		if got := PdeToAddress(spec.expPdeAddr); got != spec.addr&^0x3fffff {
			t.Errorf("[spec %d] expected PdeToAddress to return %x; got %x", specIndex, spec.addr&^0x3fffff, got)
		}
	}
}

func TestEntryFrameAndFlags(t *testing.T) {
	var e Entry

	e.SetFrame(mm.Frame(0xb0000))
	e.SetFlags(FlagPresent | FlagRW)

	if got := e.Frame(); got != mm.Frame(0xb0000) {
		t.Errorf("expected entry frame 0xb0000; got %x", got)
	}

	if !e.HasFlags(FlagPresent|FlagRW) || e.HasAnyFlag(FlagUserAccessible|FlagLargePage) {
		t.Errorf("unexpected entry flags: %x", uint32(e))
	}

	e.ClearFlags(FlagRW)
	if e.HasFlags(FlagRW) {
		t.Error("expected FlagRW to be cleared")
	}

	// Changing the frame must preserve the flag bits.
	e.SetFrame(mm.Frame(0x123))
	if !e.HasFlags(FlagPresent) || e.Frame() != mm.Frame(0x123) {
		t.Errorf("unexpected entry contents: %x", uint32(e))
	}
}

func TestMapAndTranslate(t *testing.T) {
	mem := phys.NewSparseMemory()
	dirFrame := mm.Frame(0x100)
	mem.ZeroFrame(dirFrame)

	as := NewAddressSpace(mem, dirFrame)

	nextFrame := mm.Frame(0x101)
	as.SetFrameAllocator(func() (mm.Frame, *kernel.Error) {
		f := nextFrame
		nextFrame++
		return f, nil
	})

	if err := as.InstallSelfMap(); err != nil {
		t.Fatal(err)
	}

	// The self map exposes the directory as the page table covering the
	// directory window.
	if frame, err := as.Translate(PdeBase); err != nil || frame != dirFrame {
		t.Fatalf("expected PdeBase to translate to the directory frame; got %v, %v", frame, err)
	}

	page := mm.PageFromAddress(0x80400000)
	if err := as.Map(page, mm.Frame(0x42), FlagRW); err != nil {
		t.Fatal(err)
	}

	frame, err := as.Translate(0x80400123)
	if err != nil || frame != mm.Frame(0x42) {
		t.Fatalf("expected translation to frame 0x42; got %v, %v", frame, err)
	}

	// A second mapping in the same 4M region must reuse the page table.
	if err = as.Map(page+1, mm.Frame(0x43), FlagRW); err != nil {
		t.Fatal(err)
	}

	if nextFrame != mm.Frame(0x102) {
		t.Fatalf("expected exactly one page table allocation; next frame is %x", nextFrame)
	}

	if _, err = as.Translate(0x90000000); err != errNotMapped {
		t.Fatalf("expected errNotMapped; got %v", err)
	}

	if err = as.Unmap(page); err != nil {
		t.Fatal(err)
	}

	if _, err = as.Translate(0x80400000); err != errNotMapped {
		t.Fatalf("expected errNotMapped after Unmap; got %v", err)
	}
}

func TestLargePageTranslation(t *testing.T) {
	mem := phys.NewSparseMemory()
	dirFrame := mm.Frame(0x1)
	mem.ZeroFrame(dirFrame)

	as := NewAddressSpace(mem, dirFrame)

	var pde Entry
	pde.SetFrame(mm.Frame(0x400))
	pde.SetFlags(FlagPresent | FlagRW | FlagLargePage)
	if err := as.SetPde(0x80000000, pde); err != nil {
		t.Fatal(err)
	}

	frame, err := as.Translate(0x80025000)
	if err != nil || frame != mm.Frame(0x425) {
		t.Fatalf("expected large page translation to frame 0x425; got %v, %v", frame, err)
	}

	if _, _, err := as.EnsurePageTable(0x80000000); err != errLargePageTable {
		t.Fatalf("expected errLargePageTable; got %v", err)
	}
}

func TestWordAccess(t *testing.T) {
	mem := phys.NewSparseMemory()
	dirFrame := mm.Frame(0x1)
	mem.ZeroFrame(dirFrame)

	as := NewAddressSpace(mem, dirFrame)
	as.SetFrameAllocator(func() (mm.Frame, *kernel.Error) { return mm.Frame(0x2), nil })

	if err := as.Map(mm.PageFromAddress(0x1000), mm.Frame(0x30), FlagRW); err != nil {
		t.Fatal(err)
	}

	if err := as.WriteWord(0x1010, 0xdeadbeef); err != nil {
		t.Fatal(err)
	}

	got, err := as.ReadWord(0x1010)
	if err != nil || got != 0xdeadbeef {
		t.Fatalf("expected to read back 0xdeadbeef; got %x, %v", got, err)
	}

	// The word must land at offset 0x10 of frame 0x30.
	data, _ := mem.FrameData(mm.Frame(0x30))
	if data[0x10] != 0xef || data[0x13] != 0xde {
		t.Fatal("expected little-endian layout in the backing frame")
	}
}

func TestEnsurePageTableWithoutAllocator(t *testing.T) {
	mem := phys.NewSparseMemory()
	as := NewAddressSpace(mem, mm.Frame(0x1))

	if _, _, err := as.EnsurePageTable(0x1000); err != errNoAllocator {
		t.Fatalf("expected errNoAllocator; got %v", err)
	}
}
