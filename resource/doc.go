// Package resource provides the handle table behind the bridge's opaque handles.
//
// A handle is the only thing a host ever holds for a native session. This
// package boxes a Go value behind an integer, validates integers coming back
// across the boundary, and reclaims the value exactly once.
//
// # Handle Layout
//
// Handles are 64-bit and never zero:
//
//	bits 63..32  generation of the slot
//	bits 31..0   slot index + 1
//
// Every removal bumps the slot's generation, so a handle kept after close
// (or closed twice) no longer matches its slot and is rejected instead of
// resolving to whatever object reused the slot.
//
// # Handle Table
//
//	table := resource.NewTable()
//
//	// Insert a value, get a handle
//	handle := table.Insert(resource.TypeTarkka, reader)
//
//	// Type-checked retrieval
//	value, ok := table.GetTyped(handle, resource.TypeTarkka) // ok
//	value, ok = table.GetTyped(handle, resource.TypeMucab)   // !ok
//
//	// Remove and drop (exactly once)
//	value, ok = table.Remove(handle)
//
// Insert returns 0 once the table is closed. Callers that constructed a value
// before inserting it must drop that value themselves in that case.
//
// # Observers
//
// Register observers to track resource lifecycle events:
//
//	table.Subscribe(observer)
//
// # Memory Management
//
// Values are not garbage collected while boxed. Values implementing Dropper
// are dropped on Remove, Clear and Close.
package resource
