package kernel

import "fmt"

// BugcheckCode identifies the condition that forced a system halt.
type BugcheckCode uint32

const (
	// MemoryManagement is raised for internal memory manager
	// inconsistencies that have no more specific stop code.
	MemoryManagement BugcheckCode = 0x1A

	// InstallMoreMemory is raised when the machine does not have enough
	// physical memory to bring up the virtual memory subsystem.
	InstallMoreMemory BugcheckCode = 0x7D

	// FaultyHardwareCorruptedPage is raised when the boot loader reports
	// damaged RAM modules.
	FaultyHardwareCorruptedPage BugcheckCode = 0x12B
)

// String implements fmt.Stringer for BugcheckCode.
func (c BugcheckCode) String() string {
	switch c {
	case MemoryManagement:
		return "MEMORY_MANAGEMENT"
	case InstallMoreMemory:
		return "INSTALL_MORE_MEMORY"
	case FaultyHardwareCorruptedPage:
		return "FAULTY_HARDWARE_CORRUPTED_PAGE"
	default:
		return "UNKNOWN"
	}
}

// BugcheckError carries the stop code and the four diagnostic arguments
// of a fatal system halt.
type BugcheckError struct {
	Code BugcheckCode
	Args [4]uint64
}

// Error implements the error interface.
func (e *BugcheckError) Error() string {
	return fmt.Sprintf("*** STOP: %s (0x%08x, 0x%08x, 0x%08x, 0x%08x)",
		e.Code, e.Args[0], e.Args[1], e.Args[2], e.Args[3])
}

// Bugcheck halts the system with the supplied stop code and diagnostic
// arguments. Calls to Bugcheck never return; callers rely on this and do
// not provide recovery paths.
func Bugcheck(code BugcheckCode, a1, a2, a3, a4 uint64) {
	panic(&BugcheckError{Code: code, Args: [4]uint64{a1, a2, a3, a4}})
}
