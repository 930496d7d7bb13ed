package resource

// Typed is a view of a Table restricted to a single TypeID.
// Handles of other types are invisible through it.
type Typed[T any] struct {
	table  *Table
	typeID TypeID
}

var _ TypedTable[any] = (*Typed[any])(nil)

// NewTyped returns a typed view over table.
func NewTyped[T any](table *Table, typeID TypeID) *Typed[T] {
	return &Typed[T]{table: table, typeID: typeID}
}

// Insert adds a value and returns its handle.
func (t *Typed[T]) Insert(value T) Handle {
	return t.table.Insert(t.typeID, value)
}

// Get retrieves a value by handle.
func (t *Typed[T]) Get(handle Handle) (T, bool) {
	var zero T
	v, ok := t.table.GetTyped(handle, t.typeID)
	if !ok {
		return zero, false
	}
	typed, ok := v.(T)
	return typed, ok
}

// Remove drops a resource and returns (value, true) if found.
func (t *Typed[T]) Remove(handle Handle) (T, bool) {
	var zero T
	v, ok := t.table.RemoveTyped(handle, t.typeID)
	if !ok {
		return zero, false
	}
	typed, _ := v.(T)
	return typed, true
}

// Len returns the number of active resources of this type.
func (t *Typed[T]) Len() int {
	n := 0
	t.table.backend.Each(func(_ Handle, id TypeID, _ any) bool {
		if id == t.typeID {
			n++
		}
		return true
	})
	return n
}

// Each iterates over all active resources of this type.
func (t *Typed[T]) Each(fn func(Handle, T) bool) {
	t.table.backend.Each(func(h Handle, id TypeID, v any) bool {
		if id != t.typeID {
			return true
		}
		typed, ok := v.(T)
		if !ok {
			return true
		}
		return fn(h, typed)
	})
}
