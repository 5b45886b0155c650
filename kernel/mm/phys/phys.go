// Package phys models the physical memory of the machine as a sparse set of
// page frames addressed by frame index.
package phys

import (
	"mmos/kernel"
	"mmos/kernel/mm"
)

var errFrameNotPresent = &kernel.Error{Module: "phys", Message: "frame is not backed by physical memory"}

// Memory provides page-granular access to the physical memory of the
// machine. Implementations back frames lazily so that machines with sparse
// physical address maps do not require contiguous storage.
type Memory interface {
	// FrameData returns the contents of the supplied frame. The returned
	// slice aliases the frame storage; writes to it are visible to
	// subsequent reads.
	FrameData(frame mm.Frame) ([]byte, *kernel.Error)

	// ZeroFrame fills the supplied frame with zeroes, backing it if it is
	// not yet present.
	ZeroFrame(frame mm.Frame) *kernel.Error
}

// SparseMemory implements Memory using a map of lazily allocated frames.
type SparseMemory struct {
	frames map[mm.Frame][]byte
}

// NewSparseMemory creates an empty sparse physical memory.
func NewSparseMemory() *SparseMemory {
	return &SparseMemory{frames: make(map[mm.Frame][]byte)}
}

// FrameData returns the contents of the supplied frame, backing it with a
// zero-filled page on first access.
func (m *SparseMemory) FrameData(frame mm.Frame) ([]byte, *kernel.Error) {
	if !frame.Valid() {
		return nil, errFrameNotPresent
	}

	data, exists := m.frames[frame]
	if !exists {
		data = make([]byte, mm.PageSize)
		m.frames[frame] = data
	}

	return data, nil
}

// ZeroFrame fills the supplied frame with zeroes.
func (m *SparseMemory) ZeroFrame(frame mm.Frame) *kernel.Error {
	if !frame.Valid() {
		return errFrameNotPresent
	}

	data, exists := m.frames[frame]
	if !exists {
		m.frames[frame] = make([]byte, mm.PageSize)
		return nil
	}

	for i := range data {
		data[i] = 0
	}

	return nil
}

// BackedFrameCount returns the number of frames touched so far.
func (m *SparseMemory) BackedFrameCount() int {
	return len(m.frames)
}
