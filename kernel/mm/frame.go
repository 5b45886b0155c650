package mm

import "math"

// InvalidFrame is returned by frame allocation and lookup operations that
// cannot produce a physical frame.
const InvalidFrame = Frame(math.MaxUint32)

// Frame describes a physical memory page index.
type Frame uint32

// Valid returns true if this is a valid frame.
func (f Frame) Valid() bool {
	return f != InvalidFrame
}

// Address returns the physical address where this frame resides.
func (f Frame) Address() uint32 {
	return uint32(f) << PageShift
}

// Page describes a virtual memory page index.
type Page uint32

// Address returns the virtual address of this page.
func (p Page) Address() uint32 {
	return uint32(p) << PageShift
}

// PageFromAddress returns the page that contains the supplied virtual
// address.
func PageFromAddress(addr uint32) Page {
	return Page(addr >> PageShift)
}

// FrameFromAddress returns the frame that contains the supplied physical
// address.
func FrameFromAddress(addr uint32) Frame {
	return Frame(addr >> PageShift)
}
