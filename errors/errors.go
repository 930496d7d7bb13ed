package errors

import (
	"fmt"
	"strings"
)

// Phase indicates which boundary operation produced the error
type Phase string

const (
	PhaseOpen          Phase = "open"          // session construction
	PhaseFrame         Phase = "frame"         // OCR frame ingestion
	PhaseParam         Phase = "param"         // OCR parameter changes
	PhaseRecognize     Phase = "recognize"     // OCR recognition and word extraction
	PhaseLookup        Phase = "lookup"        // dictionary lookup
	PhaseTransliterate Phase = "transliterate" // transliteration
	PhaseMarshal       Phase = "marshal"       // host object construction
	PhaseBoundary      Phase = "boundary"      // argument conversion at the call surface
	PhaseLoad          Phase = "load"          // data file loading
	PhaseClose         Phase = "close"         // session teardown
)

// Kind categorizes the error
type Kind string

const (
	KindInvalidInput        Kind = "invalid_input"
	KindInvalidUTF8         Kind = "invalid_utf8"
	KindOutOfBounds         Kind = "out_of_bounds"
	KindInvalidHandle       Kind = "invalid_handle"
	KindConstruction        Kind = "construction"
	KindOperation           Kind = "operation"
	KindEngineAbsent        Kind = "engine_absent"
	KindEngineBusy          Kind = "engine_busy"
	KindNotFound            Kind = "not_found"
	KindInvalidData         Kind = "invalid_data"
	KindAllocation          Kind = "allocation"
	KindConstructorRejected Kind = "constructor_rejected"
	KindClosed              Kind = "closed"
	KindUnsupported         Kind = "unsupported"
)

// Error is the structured error type used throughout the bridge
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Class  string
	Detail string
	Path   []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.Class != "" {
		b.WriteString(": class ")
		b.WriteString(e.Class)
	}

	if e.Detail != "" {
		if e.Class != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error.
// A target with an empty Phase matches any phase.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Phase != "" && t.Phase != e.Phase {
		return false
	}
	return e.Kind == t.Kind
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the marshaling path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// Class sets the host class name
func (b *Builder) Class(name string) *Builder {
	b.err.Class = name
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Sentinels for errors.Is checks that do not care about the phase.
var (
	ErrNotFound     = &Error{Kind: KindNotFound}
	ErrEngineAbsent = &Error{Kind: KindEngineAbsent}
	ErrEngineBusy   = &Error{Kind: KindEngineBusy}
	ErrInvalidInput = &Error{Kind: KindInvalidInput}
	ErrAllocation   = &Error{Kind: KindAllocation}
	ErrClosed       = &Error{Kind: KindClosed}
)

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// InvalidUTF8 creates an invalid UTF-8 error
func InvalidUTF8(phase Phase, what string, data []byte) *Error {
	preview := data
	if len(preview) > 32 {
		preview = preview[:32]
	}
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidUTF8,
		Path:   []string{what},
		Detail: fmt.Sprintf("invalid UTF-8 sequence: %x", preview),
	}
}

// OutOfBounds creates an out of bounds error for a guest memory range
func OutOfBounds(phase Phase, what string, offset, length uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Path:   []string{what},
		Detail: fmt.Sprintf("range [%d, +%d) outside memory", offset, length),
		Value:  offset,
	}
}

// InvalidHandle creates an error for a zero, stale or foreign handle
func InvalidHandle(phase Phase, handle uint64) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidHandle,
		Detail: fmt.Sprintf("handle %#x is not a live session", handle),
		Value:  handle,
	}
}

// Construction creates a native construction error
func Construction(phase Phase, what string, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindConstruction,
		Detail: fmt.Sprintf("construct %s", what),
		Cause:  cause,
	}
}

// Operation creates an error for a failed mutating call on a live session
func Operation(phase Phase, what string, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOperation,
		Detail: what,
		Cause:  cause,
	}
}

// EngineAbsent creates an error for a session whose engine was consumed
func EngineAbsent(phase Phase) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindEngineAbsent,
		Detail: "engine is absent; recreate the session",
	}
}

// EngineBusy creates an error for a session whose engine is held by another call
func EngineBusy(phase Phase) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindEngineBusy,
		Detail: "engine is held by another call",
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// InvalidData creates an invalid data error
func InvalidData(phase Phase, path []string, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidData,
		Path:   path,
		Detail: detail,
	}
}

// AllocationFailed creates an allocation failure error
func AllocationFailed(phase Phase, size, align uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindAllocation,
		Detail: fmt.Sprintf("failed to allocate %d bytes (align %d)", size, align),
	}
}

// ConstructorRejected creates an error for a host constructor that refused its arguments
func ConstructorRejected(class string, detail string) *Error {
	return &Error{
		Phase:  PhaseMarshal,
		Kind:   KindConstructorRejected,
		Class:  class,
		Detail: detail,
	}
}

// Closed creates an error for operations on a closed table or session
func Closed(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindClosed,
		Detail: fmt.Sprintf("%s is closed", what),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// WithPath returns a copy of err with segment prepended to its path.
// Non-structured errors are wrapped as marshal errors.
func WithPath(err error, segment string) error {
	if err == nil {
		return nil
	}
	e, ok := err.(*Error)
	if !ok {
		return &Error{
			Phase: PhaseMarshal,
			Kind:  KindOperation,
			Path:  []string{segment},
			Cause: err,
		}
	}
	cp := *e
	cp.Path = append([]string{segment}, e.Path...)
	return &cp
}
