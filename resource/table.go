package resource

import (
	"sync"
)

// Table manages resources with type information and observer support.
type Table struct {
	backend   *LocalBackend
	observers []Observer
	obsMu     sync.RWMutex
	closed    bool
	closeMu   sync.RWMutex
}

// NewTable creates a new table with a LocalBackend.
func NewTable() *Table {
	return &Table{
		backend: NewLocalBackend(),
	}
}

// Insert adds a value and returns its handle, or 0 if the table is closed.
func (t *Table) Insert(typeID TypeID, value any) Handle {
	t.closeMu.RLock()
	if t.closed {
		t.closeMu.RUnlock()
		return 0
	}
	t.closeMu.RUnlock()

	handle, err := t.backend.Create(typeID, value)
	if err != nil {
		return 0
	}

	t.notify(Event{
		Type:   EventCreated,
		Handle: handle,
		TypeID: typeID,
		Value:  value,
	})

	return handle
}

// Get retrieves a value by handle.
func (t *Table) Get(handle Handle) (any, bool) {
	return t.backend.Get(handle)
}

// GetTyped retrieves a value only if it matches the expected type.
func (t *Table) GetTyped(handle Handle, typeID TypeID) (any, bool) {
	actual, ok := t.backend.TypeID(handle)
	if !ok || actual != typeID {
		return nil, false
	}
	return t.backend.Get(handle)
}

// Remove drops a resource and returns (value, true) if found.
func (t *Table) Remove(handle Handle) (any, bool) {
	typeID, _ := t.backend.TypeID(handle)
	value, ok := t.backend.Drop(handle)
	if !ok {
		return nil, false
	}

	if d, ok := value.(Dropper); ok {
		d.Drop()
	}

	t.notify(Event{
		Type:   EventDropped,
		Handle: handle,
		TypeID: typeID,
		Value:  value,
	})

	return value, true
}

// RemoveTyped drops a resource only if it matches the expected type.
func (t *Table) RemoveTyped(handle Handle, typeID TypeID) (any, bool) {
	actual, ok := t.backend.TypeID(handle)
	if !ok || actual != typeID {
		return nil, false
	}
	return t.Remove(handle)
}

// Subscribe adds an observer for lifecycle events.
func (t *Table) Subscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	t.observers = append(t.observers, o)
}

// Len returns the number of active resources.
func (t *Table) Len() int {
	return t.backend.Len()
}

// Clear drops all resources.
func (t *Table) Clear() {
	// Collect handles first to avoid holding lock during Remove
	var handles []Handle
	t.backend.Each(func(h Handle, _ TypeID, _ any) bool {
		handles = append(handles, h)
		return true
	})
	for _, h := range handles {
		t.Remove(h)
	}
}

// Close drops all resources and stops accepting inserts.
func (t *Table) Close() error {
	t.closeMu.Lock()
	if t.closed {
		t.closeMu.Unlock()
		return nil
	}
	t.closed = true
	t.closeMu.Unlock()

	t.Clear()
	return t.backend.Close()
}

func (t *Table) notify(e Event) {
	t.obsMu.RLock()
	defer t.obsMu.RUnlock()
	for _, o := range t.observers {
		o.OnResourceEvent(e)
	}
}
