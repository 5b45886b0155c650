// Package loader models the boot loader handoff: the memory descriptor
// list, the cache geometry and the pre-built address space the kernel
// receives control with.
package loader

// MemoryType describes what the boot loader used a physical memory run for.
type MemoryType uint8

// Memory descriptor types reported by the boot loader.
const (
	MemoryExceptionBlock MemoryType = iota
	MemorySystemBlock
	MemoryFree
	MemoryBad
	MemoryLoadedProgram
	MemoryFirmwareTemporary
	MemoryFirmwarePermanent
	MemoryOsloaderHeap
	MemoryOsloaderStack
	MemorySystemCode
	MemoryHalCode
	MemoryBootDriver
	MemoryConsoleInDriver
	MemoryConsoleOutDriver
	MemoryStartupDpcStack
	MemoryStartupKernelStack
	MemoryStartupPanicStack
	MemoryStartupPcrPage
	MemoryStartupPdrPage
	MemoryRegistryData
	MemoryMemoryData
	MemoryNlsData
	MemorySpecialMemory
	MemoryBBTMemory
	MemoryLoaderReserve
	MemoryXIPRom
	MemoryHALCachedMemory
	MemoryLargePageFiller
	MemoryErrorLogMemory
	MemoryMaximum
)

var memoryTypeNames = [MemoryMaximum]string{
	"ExceptionBlock",
	"SystemBlock",
	"Free",
	"Bad",
	"LoadedProgram",
	"FirmwareTemporary",
	"FirmwarePermanent",
	"OsloaderHeap",
	"OsloaderStack",
	"SystemCode",
	"HalCode",
	"BootDriver",
	"ConsoleInDriver",
	"ConsoleOutDriver",
	"StartupDpcStack",
	"StartupKernelStack",
	"StartupPanicStack",
	"StartupPcrPage",
	"StartupPdrPage",
	"RegistryData",
	"MemoryData",
	"NlsData",
	"SpecialMemory",
	"BBTMemory",
	"LoaderReserve",
	"LoaderXIPRom",
	"HALCachedMemory",
	"LargePageFiller",
	"ErrorLogMemory",
}

// String implements fmt.Stringer for MemoryType.
func (t MemoryType) String() string {
	if t >= MemoryMaximum {
		return "Unknown"
	}

	return memoryTypeNames[t]
}
