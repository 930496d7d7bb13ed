package resource

import (
	"errors"
	"math"
	"sync"
)

var (
	ErrClosed = errors.New("resource backend closed")
	ErrFull   = errors.New("resource backend has no free slots")
)

// LocalBackend is an in-memory generational slot map.
// Implements the Backend interface.
type LocalBackend struct {
	entries  []entry
	freeList []uint32
	live     int
	mu       sync.RWMutex
	closed   bool
}

type entry struct {
	value      any
	typeID     TypeID
	generation uint32
	valid      bool
}

// NewLocalBackend creates a new in-memory backend.
func NewLocalBackend() *LocalBackend {
	return &LocalBackend{
		entries:  make([]entry, 0, 16),
		freeList: make([]uint32, 0, 8),
	}
}

// Create stores a value and returns a handle.
func (b *LocalBackend) Create(typeID TypeID, value any) (Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return 0, ErrClosed
	}

	if n := len(b.freeList); n > 0 {
		slot := b.freeList[n-1]
		b.freeList = b.freeList[:n-1]
		e := &b.entries[slot]
		e.value = value
		e.typeID = typeID
		e.valid = true
		b.live++
		return makeHandle(slot, e.generation), nil
	}

	if len(b.entries) >= math.MaxUint32-1 {
		return 0, ErrFull
	}

	b.entries = append(b.entries, entry{
		value:  value,
		typeID: typeID,
		valid:  true,
	})
	b.live++
	return makeHandle(uint32(len(b.entries)-1), 0), nil
}

// lookup returns the live entry for handle. Caller must hold mu.
func (b *LocalBackend) lookup(handle Handle) *entry {
	if handle == 0 {
		return nil
	}
	slot := handle.Slot()
	if int(slot) >= len(b.entries) {
		return nil
	}
	e := &b.entries[slot]
	if !e.valid || e.generation != handle.Generation() {
		return nil
	}
	return e
}

// Get retrieves a value by handle.
func (b *LocalBackend) Get(handle Handle) (any, bool) {
	if handle == 0 {
		return nil, false
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	e := b.lookup(handle)
	if e == nil {
		return nil, false
	}
	return e.value, true
}

// TypeID returns the type ID for a handle.
func (b *LocalBackend) TypeID(handle Handle) (TypeID, bool) {
	if handle == 0 {
		return 0, false
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	e := b.lookup(handle)
	if e == nil {
		return 0, false
	}
	return e.typeID, true
}

// Drop removes a resource and returns (value, true) if it was live.
// The slot generation is bumped so the handle can never resolve again.
func (b *LocalBackend) Drop(handle Handle) (any, bool) {
	if handle == 0 {
		return nil, false
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	e := b.lookup(handle)
	if e == nil {
		return nil, false
	}

	value := e.value
	e.value = nil
	e.valid = false
	e.generation++
	b.live--
	// A slot whose generation wrapped would alias old handles; retire it.
	if e.generation != 0 {
		b.freeList = append(b.freeList, handle.Slot())
	}

	return value, true
}

// Close releases all resources.
func (b *LocalBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	for i := range b.entries {
		if b.entries[i].valid {
			if d, ok := b.entries[i].value.(Dropper); ok {
				d.Drop()
			}
			b.entries[i].valid = false
			b.entries[i].value = nil
		}
	}

	b.entries = nil
	b.freeList = nil
	b.live = 0
	return nil
}

// Len returns the number of active resources.
func (b *LocalBackend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.live
}

// Each iterates over all active resources.
func (b *LocalBackend) Each(fn func(Handle, TypeID, any) bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for i, e := range b.entries {
		if e.valid {
			if !fn(makeHandle(uint32(i), e.generation), e.typeID, e.value) {
				break
			}
		}
	}
}
