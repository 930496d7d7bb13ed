package resource

import "fmt"

// Handle is an opaque reference to a resource in a table.
// Handle 0 is reserved and always invalid.
type Handle uint64

// Slot returns the slot index encoded in h.
func (h Handle) Slot() uint32 {
	return uint32(h) - 1
}

// Generation returns the slot generation encoded in h.
func (h Handle) Generation() uint32 {
	return uint32(h >> 32)
}

func (h Handle) String() string {
	if h == 0 {
		return "handle(nil)"
	}
	return fmt.Sprintf("handle(%d@%d)", h.Slot(), h.Generation())
}

func makeHandle(slot, generation uint32) Handle {
	return Handle(uint64(generation)<<32 | uint64(slot+1))
}

// TypeID identifies the kind of value boxed behind a handle.
type TypeID uint32

const (
	TypeTesseract TypeID = iota + 1
	TypeTarkka
	TypeMucab
)

func (t TypeID) String() string {
	switch t {
	case TypeTesseract:
		return "tesseract"
	case TypeTarkka:
		return "tarkka"
	case TypeMucab:
		return "mucab"
	default:
		return fmt.Sprintf("type(%d)", uint32(t))
	}
}

// Event types for resource lifecycle notifications.
type EventType uint8

const (
	EventCreated EventType = iota
	EventDropped
)

// Event represents a resource lifecycle event.
type Event struct {
	Value  any
	Handle Handle
	TypeID TypeID
	Type   EventType
}

// Observer receives notifications about resource lifecycle events.
type Observer interface {
	OnResourceEvent(Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Event)

func (f ObserverFunc) OnResourceEvent(e Event) { f(e) }

// Backend provides the underlying storage mechanism for resources.
type Backend interface {
	// Create stores a value and returns a handle.
	Create(typeID TypeID, value any) (Handle, error)

	// Get retrieves a value by handle.
	Get(handle Handle) (any, bool)

	// Drop removes a resource and returns (value, true) if it was live.
	Drop(handle Handle) (any, bool)

	// Close releases all resources held by the backend.
	Close() error
}

// TypedTable provides type-safe access to resources of a specific type.
type TypedTable[T any] interface {
	// Insert adds a value and returns its handle.
	Insert(value T) Handle

	// Get retrieves a value by handle.
	Get(handle Handle) (T, bool)

	// Remove drops a resource and returns (value, true) if found.
	Remove(handle Handle) (T, bool)

	// Len returns the number of active resources.
	Len() int

	// Each iterates over all active resources.
	Each(func(Handle, T) bool)
}

// Dropper is optionally implemented by resource values that need cleanup.
type Dropper interface {
	Drop()
}
