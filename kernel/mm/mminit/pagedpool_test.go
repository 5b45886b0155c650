package mminit

import (
	"testing"

	"mmos/kernel"
)

func TestComputePagedPoolThresholds(t *testing.T) {
	specs := []struct {
		poolPages uint32
		expLow    uint32
		expHigh   uint32
	}{
		// The 32M minimum pool.
		{8192, 1638, 3276},
		// A 128M pool.
		{32768, 6553, 13107},
		// Big pools ride the 30M and 60M ceilings.
		{131072, 7680, 15360},
	}

	for specIndex, spec := range specs {
		s := &VmmState{SizeOfPagedPoolInPages: spec.poolPages}
		s.computePagedPoolThresholds()

		if s.LowPagedPoolThreshold != spec.expLow {
			t.Errorf("[spec %d] expected low watermark of %d pages; got %d", specIndex, spec.expLow, s.LowPagedPoolThreshold)
		}

		if s.HighPagedPoolThreshold != spec.expHigh {
			t.Errorf("[spec %d] expected high watermark of %d pages; got %d", specIndex, spec.expHigh, s.HighPagedPoolThreshold)
		}

		if s.LowPagedPoolThreshold >= s.HighPagedPoolThreshold {
			t.Errorf("[spec %d] watermarks leave no window: low %d, high %d", specIndex, s.LowPagedPoolThreshold, s.HighPagedPoolThreshold)
		}
	}
}

func TestComputePagedPoolThresholdsHaltOnInversion(t *testing.T) {
	// A degenerate pool collapses both watermarks to zero.
	s := &VmmState{SizeOfPagedPoolInPages: 0}

	defer func() {
		expectBugcheckArgs(t, recover(), kernel.MemoryManagement, [4]uint64{0, 0, 0, 4})
	}()

	s.computePagedPoolThresholds()
	t.Fatal("expected inverted watermarks to halt the system")
}
