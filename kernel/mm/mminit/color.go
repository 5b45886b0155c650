package mminit

import "mmos/kernel/mm"

// computeColorInformation derives the number of page colors from the L2
// cache geometry: cache bytes per set/way, converted to pages. Out-of-range
// or non-power-of-two results fall back to the default.
func (s *VmmState) computeColorInformation() {
	colors := s.cfg.SecondaryColors
	if colors == 0 {
		cache := s.env.Block.Cache

		colors = uint32(cache.SecondLevelCacheSize)
		if cache.SecondLevelCacheAssociativity != 0 {
			colors /= cache.SecondLevelCacheAssociativity
		}
	}

	colors >>= mm.PageShift
	switch {
	case colors == 0:
		colors = defaultSecondaryColors
	case colors > maxSecondaryColors:
		colors = maxSecondaryColors
	case colors < minSecondaryColors:
		colors = defaultSecondaryColors
	}

	if colors&(colors-1) != 0 {
		colors = defaultSecondaryColors
	}

	s.SecondaryColors = colors
	s.SecondaryColorMask = colors - 1
}

// frameColor returns the color of a physical frame.
func (s *VmmState) frameColor(frame mm.Frame) uint32 {
	return uint32(frame) & s.SecondaryColorMask
}

// initializeColorTables maps the two color table arrays right after the PFN
// database and resets every list head to empty. The backing pages come from
// the bootstrap allocator, exactly like the database pages themselves.
func (s *VmmState) initializeColorTables() {
	base := s.colorTableBase()
	last := base + 2*s.SecondaryColors*colorHeadSize - 1
	s.mapDatabaseRange(base, last)

	for list := 0; list < 2; list++ {
		s.FreePagesByColor[list] = make([]ColorHead, s.SecondaryColors)
		for color := range s.FreePagesByColor[list] {
			s.FreePagesByColor[list][color] = ColorHead{
				Flink: ListSentinel,
				Blink: ListSentinel,
			}
		}
	}
}
