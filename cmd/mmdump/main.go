//go:build linux

// Command mmdump boots the virtual memory subsystem against a synthetic
// machine and dumps the resulting state. The machine's RAM is an anonymous
// mmap'd region, sized by the -ram flag, carved into a PC-like descriptor
// list with a kernel image mapped at the start of kernel space.
package main

import (
	"flag"
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"mmos/kernel"
	"mmos/kernel/kfmt"
	"mmos/kernel/mm"
	"mmos/kernel/mm/loader"
	"mmos/kernel/mm/mminit"
	"mmos/kernel/mm/phys"
	"mmos/kernel/mm/vmm"
)

// mmapMemory backs the simulated machine's RAM with a host mapping. Frames
// beyond the mapped window (the loader heap lives there) fall back to a
// sparse store.
type mmapMemory struct {
	buf      []byte
	frames   mm.Frame
	overflow *phys.SparseMemory
}

func newMmapMemory(buf []byte) *mmapMemory {
	return &mmapMemory{
		buf:      buf,
		frames:   mm.Frame(uint32(len(buf)) >> mm.PageShift),
		overflow: phys.NewSparseMemory(),
	}
}

// FrameData returns the backing bytes of the supplied frame.
func (m *mmapMemory) FrameData(frame mm.Frame) ([]byte, *kernel.Error) {
	if frame < m.frames {
		off := int(frame) << mm.PageShift
		return m.buf[off : off+int(mm.PageSize)], nil
	}

	return m.overflow.FrameData(frame)
}

// ZeroFrame fills the supplied frame with zeroes.
func (m *mmapMemory) ZeroFrame(frame mm.Frame) *kernel.Error {
	if frame < m.frames {
		off := int(frame) << mm.PageShift
		clear(m.buf[off : off+int(mm.PageSize)])
		return nil
	}

	return m.overflow.ZeroFrame(frame)
}

func buildDescriptors(totalPages uint32) []*loader.MemoryDescriptor {
	// A PC-like map: the firmware area below 1M, a kernel image, the
	// loader's own heap and the rest as free RAM.
	return []*loader.MemoryDescriptor{
		{MemoryType: loader.MemoryFirmwarePermanent, BasePage: 0x0, PageCount: 0x100},
		{MemoryType: loader.MemorySystemCode, BasePage: 0x100, PageCount: 0x80},
		{MemoryType: loader.MemoryOsloaderHeap, BasePage: 0x180, PageCount: 0x20},
		{MemoryType: loader.MemoryFree, BasePage: 0x1a0, PageCount: totalPages - 0x1a0},
	}
}

func run(ramMb uint, product string, dumpDescriptors, verbose bool) error {
	totalPages := uint32(ramMb) * uint32(mm.Mb/mm.PageSize)
	if totalPages <= 0x1a0 {
		return fmt.Errorf("at least 2M of RAM required; got %dM", ramMb)
	}

	buf, err := unix.Mmap(-1, 0, int(totalPages)<<mm.PageShift,
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return fmt.Errorf("mmap %dM of synthetic RAM: %w", ramMb, err)
	}
	defer unix.Munmap(buf)

	env, envErr := loader.NewEnvironmentWithMemory(newMmapMemory(buf), buildDescriptors(totalPages))
	if envErr != nil {
		return envErr
	}

	if envErr = env.MapRange(0x80000000, 0x100, 0x80, vmm.FlagPresent|vmm.FlagRW|vmm.FlagGlobal); envErr != nil {
		return envErr
	}
	env.SetPagesSpanned(0x80)
	env.SetCacheInfo(512*mm.Kb, 4)

	kfmt.SetOutputSink(os.Stdout)

	state, initErr := mminit.InitSystem(env, mminit.Config{
		ProductType:     mminit.ProductType(product),
		DumpDescriptors: dumpDescriptors,
	})
	if initErr != nil {
		return initErr
	}

	kfmt.Printf("\nsystem size:          %s\n", state.SystemSize)
	kfmt.Printf("physical pages:       %d (%d usable runs)\n",
		state.TotalPhysicalPages, len(state.PhysicalMemoryBlock.Runs))
	kfmt.Printf("available pages:      %d\n", state.AvailablePages)
	kfmt.Printf("secondary colors:     %d\n", state.SecondaryColors)
	kfmt.Printf("system PTEs:          %d\n", state.NumberOfSystemPtes)
	kfmt.Printf("nonpaged pool:        %d KB initial, %d KB maximum\n",
		state.SizeOfNonPagedPool/mm.Kb, state.MaximumNonPagedPool/mm.Kb)
	kfmt.Printf("paged pool:           %d KB at 0x%08x\n",
		state.SizeOfPagedPool/mm.Kb, uint32(mminit.PagedPoolStart))
	kfmt.Printf("commit limit:         %d pages\n", state.TotalCommitLimit)
	kfmt.Printf("memory watermarks:    low %d, high %d pages\n\n",
		state.LowMemoryThreshold, state.HighMemoryThreshold)

	state.DumpPfnDatabase(!verbose)
	return nil
}

func main() {
	var (
		ramMb           = flag.Uint("ram", 64, "synthetic RAM size in MiB")
		product         = flag.String("product", string(mminit.ProductWorkstation), "product tag (Wi for workstation)")
		dumpDescriptors = flag.Bool("descriptors", false, "dump the boot descriptor list")
		verbose         = flag.Bool("verbose", false, "dump every page frame database entry")
	)
	flag.Parse()

	defer func() {
		if r := recover(); r != nil {
			bug, ok := r.(*kernel.BugcheckError)
			if !ok {
				panic(r)
			}

			fmt.Fprintln(os.Stderr, bug.Error())
			os.Exit(2)
		}
	}()

	if err := run(*ramMb, *product, *dumpDescriptors, *verbose); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
