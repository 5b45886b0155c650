package ob

import (
	"mmos/kernel"
	"mmos/kernel/sync"
)

var errNameInUse = &kernel.Error{Module: "ob", Message: "an object with this name already exists"}

// Event is a named notification event. Setting the event leaves it signaled
// until it is explicitly cleared.
type Event struct {
	Name     string
	Security SecurityDescriptor

	lock     sync.Spinlock
	signaled bool
}

// Set signals the event.
func (e *Event) Set() {
	e.lock.Acquire()
	e.signaled = true
	e.lock.Release()
}

// Clear resets the event to the non-signaled state.
func (e *Event) Clear() {
	e.lock.Acquire()
	e.signaled = false
	e.lock.Release()
}

// ReadState returns true if the event is signaled.
func (e *Event) ReadState() bool {
	e.lock.Acquire()
	signaled := e.signaled
	e.lock.Release()
	return signaled
}

// Directory is a flat namespace of named events.
type Directory struct {
	lock   sync.Spinlock
	events map[string]*Event
}

// NewDirectory creates an empty object directory.
func NewDirectory() *Directory {
	return &Directory{events: make(map[string]*Event)}
}

// CreateEvent creates a named notification event protected by the supplied
// security descriptor. It fails if the name is already in use.
func (d *Directory) CreateEvent(name string, sd SecurityDescriptor) (*Event, *kernel.Error) {
	d.lock.Acquire()
	defer d.lock.Release()

	if _, exists := d.events[name]; exists {
		return nil, errNameInUse
	}

	event := &Event{Name: name, Security: sd}
	d.events[name] = event
	return event, nil
}

// Lookup returns the event registered under the supplied name, or nil if no
// such event exists.
func (d *Directory) Lookup(name string) *Event {
	d.lock.Acquire()
	defer d.lock.Release()
	return d.events[name]
}
