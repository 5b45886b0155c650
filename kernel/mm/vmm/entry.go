// Package vmm implements two-level page table management over a simulated
// physical memory. The page directory is self-mapped so that every page
// table is reachable through a fixed virtual window.
package vmm

import "mmos/kernel/mm"

// Entry describes a 32-bit page directory or page table entry.
type Entry uint32

const (
	// FlagPresent marks an entry as backed by a physical frame.
	FlagPresent Entry = 1 << iota

	// FlagRW allows write access to the mapped frame.
	FlagRW

	// FlagUserAccessible allows user mode access to the mapped frame.
	FlagUserAccessible

	// FlagWriteThrough enables write-through caching for the mapped frame.
	FlagWriteThrough

	// FlagCacheDisable disables caching for the mapped frame.
	FlagCacheDisable

	// FlagAccessed is set by the processor when the mapped frame is read.
	FlagAccessed

	// FlagDirty is set by the processor when the mapped frame is written.
	FlagDirty

	// FlagLargePage marks a directory entry that maps a 4M region without
	// an intermediate page table.
	FlagLargePage

	// FlagGlobal excludes the mapping from TLB flushes on address space
	// switches.
	FlagGlobal
)

// frameMask selects the physical frame bits of an entry.
const frameMask = 0xfffff000

// HasFlags returns true if this entry has all the supplied flags set.
func (e Entry) HasFlags(flags Entry) bool {
	return e&flags == flags
}

// HasAnyFlag returns true if this entry has at least one of the supplied
// flags set.
func (e Entry) HasAnyFlag(flags Entry) bool {
	return e&flags != 0
}

// SetFlags sets the supplied flags on this entry.
func (e *Entry) SetFlags(flags Entry) {
	*e |= flags
}

// ClearFlags clears the supplied flags from this entry.
func (e *Entry) ClearFlags(flags Entry) {
	*e &^= flags
}

// Frame returns the physical frame this entry points to.
func (e Entry) Frame() mm.Frame {
	return mm.Frame((uint32(e) & frameMask) >> mm.PageShift)
}

// SetFrame updates this entry to point to the supplied physical frame.
func (e *Entry) SetFrame(frame mm.Frame) {
	*e = (*e &^ frameMask) | Entry(frame.Address()&frameMask)
}
