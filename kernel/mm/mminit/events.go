package mminit

import (
	"mmos/kernel"
	"mmos/kernel/mm"
	"mmos/kernel/ob"
)

// Namespace paths of the pressure notification events.
const (
	lowMemoryEventName        = `\KernelObjects\LowMemoryCondition`
	highMemoryEventName       = `\KernelObjects\HighMemoryCondition`
	lowPagedPoolEventName     = `\KernelObjects\LowPagedPoolCondition`
	highPagedPoolEventName    = `\KernelObjects\HighPagedPoolCondition`
	lowNonPagedPoolEventName  = `\KernelObjects\LowNonPagedPoolCondition`
	highNonPagedPoolEventName = `\KernelObjects\HighNonPagedPoolCondition`
)

// initializeTempEvent aliases every event pointer to one unnamed event so
// threshold evaluation is safe before the named events exist.
func (s *VmmState) initializeTempEvent() {
	temp := &ob.Event{}
	s.LowMemoryEvent = temp
	s.HighMemoryEvent = temp
	s.LowPagedPoolEvent = temp
	s.HighPagedPoolEvent = temp
	s.LowNonPagedPoolEvent = temp
	s.HighNonPagedPoolEvent = temp
}

// adjustWorkingSetManagerParameters tunes the page minimums. Machines with
// around 64M of RAM or more double what counts as plenty of free pages.
func (s *VmmState) adjustWorkingSetManagerParameters() {
	if s.TotalPhysicalPages >= uint32(63*mm.Mb/mm.PageSize) {
		s.PlentyFreePages *= 2
	}
}

// computeMemoryThresholds derives the low and high memory watermarks, in
// pages, unless the operator supplied overrides in MiB.
func (s *VmmState) computeMemoryThresholds() {
	if s.cfg.LowMemoryThreshold != 0 {
		s.LowMemoryThreshold = s.cfg.LowMemoryThreshold * uint32(mm.Mb/mm.PageSize)
	} else {
		// Low memory begins where "plenty" ends; larger machines get a
		// sliding scale with a 64M ceiling.
		s.LowMemoryThreshold = s.PlentyFreePages

		if s.TotalPhysicalPages > uint32(1*mm.Gb/mm.PageSize) {
			s.LowMemoryThreshold = uint32(32 * mm.Mb / mm.PageSize)
			s.LowMemoryThreshold += (s.TotalPhysicalPages - uint32(1*mm.Gb/mm.PageSize)) >> 7
		} else if s.TotalPhysicalPages > uint32(128*mm.Mb/mm.PageSize) {
			s.LowMemoryThreshold += (s.TotalPhysicalPages - uint32(128*mm.Mb/mm.PageSize)) >> 5
		}

		if limit := uint32(64 * mm.Mb / mm.PageSize); s.LowMemoryThreshold > limit {
			s.LowMemoryThreshold = limit
		}
	}

	if s.cfg.HighMemoryThreshold != 0 {
		s.HighMemoryThreshold = s.cfg.HighMemoryThreshold * uint32(mm.Mb/mm.PageSize)
	} else {
		s.HighMemoryThreshold = 3 * s.LowMemoryThreshold
	}

	if s.HighMemoryThreshold < s.LowMemoryThreshold {
		s.HighMemoryThreshold = s.LowMemoryThreshold
	}
}

// createMemoryEvent creates one named, permanent notification event whose
// DACL grants query rights to everyone and full rights to administrators and
// the system.
func (s *VmmState) createMemoryEvent(name string) (*ob.Event, *kernel.Error) {
	dacl := ob.NewAcl(3)

	if err := dacl.AddAccessAllowedAce(ob.WorldSid,
		ob.Synchronize|ob.EventQueryState|ob.ReadControl); err != nil {
		return nil, err
	}

	if err := dacl.AddAccessAllowedAce(ob.AdministratorsSid, ob.EventAllAccess); err != nil {
		return nil, err
	}

	if err := dacl.AddAccessAllowedAce(ob.LocalSystemSid, ob.EventAllAccess); err != nil {
		return nil, err
	}

	var sd ob.SecurityDescriptor
	sd.SetDaclDefaulted(dacl)

	return s.Objects.CreateEvent(name, sd)
}

// initializeMemoryEvents computes the memory watermarks, creates the six
// named events and performs the first threshold evaluation.
func (s *VmmState) initializeMemoryEvents() *kernel.Error {
	s.computeMemoryThresholds()

	var err *kernel.Error
	if s.LowMemoryEvent, err = s.createMemoryEvent(lowMemoryEventName); err != nil {
		return err
	}
	if s.HighMemoryEvent, err = s.createMemoryEvent(highMemoryEventName); err != nil {
		return err
	}
	if s.LowPagedPoolEvent, err = s.createMemoryEvent(lowPagedPoolEventName); err != nil {
		return err
	}
	if s.HighPagedPoolEvent, err = s.createMemoryEvent(highPagedPoolEventName); err != nil {
		return err
	}
	if s.LowNonPagedPoolEvent, err = s.createMemoryEvent(lowNonPagedPoolEventName); err != nil {
		return err
	}
	if s.HighNonPagedPoolEvent, err = s.createMemoryEvent(highNonPagedPoolEventName); err != nil {
		return err
	}

	s.notifyMemoryEvents()
	return nil
}

// notifyMemoryEvents signals at most one of the low and high memory events
// based on the available page count. Set and clear are no-ops when the
// event is already in the requested state.
func (s *VmmState) notifyMemoryEvents() {
	switch {
	case s.AvailablePages < s.LowMemoryThreshold:
		if s.HighMemoryEvent.ReadState() {
			s.HighMemoryEvent.Clear()
		}
		if !s.LowMemoryEvent.ReadState() {
			s.LowMemoryEvent.Set()
		}

	case s.AvailablePages < s.HighMemoryThreshold:
		if s.HighMemoryEvent.ReadState() {
			s.HighMemoryEvent.Clear()
		}
		if s.LowMemoryEvent.ReadState() {
			s.LowMemoryEvent.Clear()
		}

	default:
		if s.LowMemoryEvent.ReadState() {
			s.LowMemoryEvent.Clear()
		}
		if !s.HighMemoryEvent.ReadState() {
			s.HighMemoryEvent.Set()
		}
	}
}
