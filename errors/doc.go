// Package errors provides structured error types for the translator bridge.
//
// Errors are categorized by Phase (which boundary operation failed) and Kind
// (error category). The Error type carries the marshaling path, the host class
// involved, the offending value and the cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseMarshal, errors.KindConstructorRejected).
//		Path("entries[0]", "senses[1]").
//		Class("sense").
//		Detail("argument 1 is not a list").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.InvalidHandle(errors.PhaseLookup, h)
//	err := errors.EngineAbsent(errors.PhaseRecognize)
//
// None of these values cross the boundary. The bridge logs them and returns
// a sentinel instead. All errors implement the standard error interface and
// support errors.Is/As.
package errors
