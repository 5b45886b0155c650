package loader

import (
	"testing"

	"mmos/kernel/mm"
	"mmos/kernel/mm/vmm"
)

func TestMemoryTypeNames(t *testing.T) {
	specs := []struct {
		memType MemoryType
		exp     string
	}{
		{MemoryFree, "Free"},
		{MemoryBad, "Bad"},
		{MemoryBootDriver, "BootDriver"},
		{MemoryXIPRom, "LoaderXIPRom"},
		{MemoryErrorLogMemory, "ErrorLogMemory"},
		{MemoryMaximum, "Unknown"},
	}

	for specIndex, spec := range specs {
		if got := spec.memType.String(); got != spec.exp {
			t.Errorf("[spec %d] expected name %q; got %q", specIndex, spec.exp, got)
		}
	}
}

func TestVisitDescriptors(t *testing.T) {
	block := &Block{Descriptors: []*MemoryDescriptor{
		{MemoryType: MemoryFree, BasePage: 0, PageCount: 16},
		{MemoryType: MemoryBootDriver, BasePage: 16, PageCount: 4},
		{MemoryType: MemoryFree, BasePage: 20, PageCount: 8},
	}}

	var visited int
	block.VisitDescriptors(func(desc *MemoryDescriptor) bool {
		visited++
		return true
	})

	if visited != 3 {
		t.Fatalf("expected visitor to see 3 descriptors; got %d", visited)
	}

	visited = 0
	block.VisitDescriptors(func(desc *MemoryDescriptor) bool {
		visited++
		return desc.MemoryType != MemoryBootDriver
	})

	if visited != 2 {
		t.Fatalf("expected visitor to abort after 2 descriptors; got %d", visited)
	}
}

func TestEnvironmentBuildsSelfMappedSpace(t *testing.T) {
	env, err := NewEnvironment([]*MemoryDescriptor{
		{MemoryType: MemoryFree, BasePage: 0x100, PageCount: 0x1000},
	})
	if err != nil {
		t.Fatal(err)
	}

	// The directory must be visible through the self-map window.
	frame, terr := env.Space.Translate(vmm.PdeBase)
	if terr != nil || frame != env.Space.DirectoryFrame() {
		t.Fatalf("expected directory frame through the self map; got %v, %v", frame, terr)
	}

	if env.Space.DirectoryFrame() < loaderHeapBase {
		t.Fatalf("expected directory frame to come from the loader heap; got %x", env.Space.DirectoryFrame())
	}

	// The hyperspace window comes up with a ready page table so the kernel
	// can write through its PTE slots immediately.
	pde, perr := env.Space.Pde(vmm.HyperspaceBase)
	if perr != nil || !pde.HasFlags(vmm.FlagPresent) {
		t.Fatalf("expected a valid hyperspace directory entry; got %v, %v", pde, perr)
	}

	if pte, perr := env.Space.Pte(vmm.HyperspaceBase); perr != nil || pte != 0 {
		t.Fatalf("expected an empty hyperspace page table; got %x, %v", uint32(pte), perr)
	}
}

func TestMapRangeUsesHeapForPageTables(t *testing.T) {
	env, err := NewEnvironment(nil)
	if err != nil {
		t.Fatal(err)
	}

	// Map 8M of kernel image: two page tables on top of the directory and
	// the hyperspace table come from the heap.
	if err = env.MapRange(0x80000000, mm.Frame(0x400), 0x800, vmm.FlagRW); err != nil {
		t.Fatal(err)
	}

	frame, terr := env.Space.Translate(0x80000000)
	if terr != nil || frame != mm.Frame(0x400) {
		t.Fatalf("expected 0x80000000 to map to frame 0x400; got %v, %v", frame, terr)
	}

	frame, terr = env.Space.Translate(0x807ff000)
	if terr != nil || frame != mm.Frame(0xbff) {
		t.Fatalf("expected 0x807ff000 to map to frame 0xbff; got %v, %v", frame, terr)
	}

	if env.heapNext != loaderHeapBase+4 {
		t.Fatalf("expected 4 heap frames (directory, hyperspace and two image tables); next is %x", env.heapNext)
	}
}
