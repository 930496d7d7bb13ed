// Package host models the managed runtime that receives bridge results.
//
// The bridge never hands native values to the host. It asks an Env to
// build host strings, lists and objects and gets back opaque references.
// Every Env call may fail; callers abort the whole result on the first
// failure and drop the references built so far.
package host

import "fmt"

// Ref references a host-owned value. Null (0) is the null reference.
type Ref uint32

// Null is the null host reference.
const Null Ref = 0

// Kind is the kind of a constructor argument.
type Kind uint8

const (
	KindNull Kind = iota
	KindRef
	KindInt
	KindFloat
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindRef:
		return "ref"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Value is one constructor argument.
type Value struct {
	Ref   Ref
	Int   int32
	Float float32
	Kind  Kind
	Bool  bool
}

// Obj wraps a reference. Obj(Null) is a null argument.
func Obj(r Ref) Value {
	if r == Null {
		return Value{Kind: KindNull}
	}
	return Value{Kind: KindRef, Ref: r}
}

// NullValue returns a null argument.
func NullValue() Value { return Value{Kind: KindNull} }

// Int wraps a 32-bit integer.
func Int(v int32) Value { return Value{Kind: KindInt, Int: v} }

// Float wraps a 32-bit float.
func Float(v float32) Value { return Value{Kind: KindFloat, Float: v} }

// Bool wraps a boolean.
func Bool(v bool) Value { return Value{Kind: KindBool, Bool: v} }

func (v Value) String() string {
	switch v.Kind {
	case KindNull:
		return "null"
	case KindRef:
		return fmt.Sprintf("ref(%d)", v.Ref)
	case KindInt:
		return fmt.Sprintf("%d", v.Int)
	case KindFloat:
		return fmt.Sprintf("%g", v.Float)
	case KindBool:
		return fmt.Sprintf("%t", v.Bool)
	default:
		return v.Kind.String()
	}
}

// Env constructs host values.
type Env interface {
	// NewString creates a host string from valid UTF-8.
	NewString(s string) (Ref, error)

	// NewList creates an empty host list.
	NewList() (Ref, error)

	// Append adds item to the end of list.
	Append(list, item Ref) error

	// NewObject invokes the host constructor of class with args.
	NewObject(class *Class, args ...Value) (Ref, error)
}
