package host

import (
	"fmt"

	"github.com/wippyai/translator-bridge/errors"
	"go.bytecodealliance.org/wit"
)

// Class is a host class with a single constructor.
// Type is a wit record whose fields are the constructor parameters in order.
type Class struct {
	Type *wit.TypeDef
	Name string
}

// NewClass declares a class whose constructor takes fields in order.
func NewClass(name, witName string, fields ...wit.Field) *Class {
	return &Class{
		Name: name,
		Type: &wit.TypeDef{Name: &witName, Kind: &wit.Record{Fields: fields}},
	}
}

// Fields returns the constructor parameters.
func (c *Class) Fields() []wit.Field {
	if r, ok := c.Type.Kind.(*wit.Record); ok {
		return r.Fields
	}
	return nil
}

func (c *Class) String() string { return c.Name }

// Shape is the host shape a wit type lowers to.
type Shape uint8

const (
	ShapeScalar Shape = iota
	ShapeString
	ShapeList
	ShapeObject
)

// ShapeOf returns the host shape of t and whether null is accepted.
func ShapeOf(t wit.Type) (Shape, bool) {
	switch typ := t.(type) {
	case wit.String:
		return ShapeString, false
	case *wit.TypeDef:
		switch kind := typ.Kind.(type) {
		case *wit.List:
			return ShapeList, false
		case *wit.Option:
			s, _ := ShapeOf(kind.Type)
			return s, true
		case *wit.Record:
			return ShapeObject, false
		case wit.Type:
			return ShapeOf(kind)
		}
	}
	return ShapeScalar, false
}

// ArgKind returns the argument kind a field of type t accepts.
func ArgKind(t wit.Type) Kind {
	switch t.(type) {
	case wit.S32:
		return KindInt
	case wit.F32:
		return KindFloat
	case wit.Bool:
		return KindBool
	}
	return KindRef
}

// Check verifies args against the constructor signature.
func (c *Class) Check(args []Value) error {
	fields := c.Fields()
	if len(args) != len(fields) {
		return errors.ConstructorRejected(c.Name,
			fmt.Sprintf("expected %d arguments, got %d", len(fields), len(args)))
	}
	for i, f := range fields {
		want := ArgKind(f.Type)
		got := args[i].Kind
		if got == want {
			continue
		}
		if got == KindNull && want == KindRef {
			if _, nullable := ShapeOf(f.Type); nullable {
				continue
			}
		}
		return errors.ConstructorRejected(c.Name,
			fmt.Sprintf("argument %d (%s): expected %s, got %s", i, f.Name, want, got))
	}
	return nil
}

// ListOf returns list<t>.
func ListOf(t wit.Type) *wit.TypeDef {
	return &wit.TypeDef{Kind: &wit.List{Type: t}}
}

// OptionOf returns option<t>.
func OptionOf(t wit.Type) *wit.TypeDef {
	return &wit.TypeDef{Kind: &wit.Option{Type: t}}
}

// Result classes handed to the host.
var (
	DetectedWord = NewClass("DetectedWord", "detected-word",
		wit.Field{Name: "text", Type: wit.String{}},
		wit.Field{Name: "left", Type: wit.S32{}},
		wit.Field{Name: "top", Type: wit.S32{}},
		wit.Field{Name: "right", Type: wit.S32{}},
		wit.Field{Name: "bottom", Type: wit.S32{}},
		wit.Field{Name: "confidence", Type: wit.F32{}},
		wit.Field{Name: "is-at-beginning-of-para", Type: wit.Bool{}},
		wit.Field{Name: "end-line", Type: wit.Bool{}},
		wit.Field{Name: "end-para", Type: wit.Bool{}},
	)

	Gloss = NewClass("Gloss", "gloss",
		wit.Field{Name: "gloss-lines", Type: ListOf(wit.String{})},
	)

	Sense = NewClass("Sense", "sense",
		wit.Field{Name: "pos", Type: wit.String{}},
		wit.Field{Name: "glosses", Type: ListOf(Gloss.Type)},
	)

	WordEntryComplete = NewClass("WordEntryComplete", "word-entry-complete",
		wit.Field{Name: "senses", Type: ListOf(Sense.Type)},
	)

	WordWithTaggedEntries = NewClass("WordWithTaggedEntries", "word-with-tagged-entries",
		wit.Field{Name: "word", Type: wit.String{}},
		wit.Field{Name: "tag", Type: wit.S32{}},
		wit.Field{Name: "entries", Type: ListOf(WordEntryComplete.Type)},
		wit.Field{Name: "sounds", Type: OptionOf(wit.String{})},
		wit.Field{Name: "hyphenations", Type: ListOf(wit.String{})},
		wit.Field{Name: "redirects", Type: ListOf(wit.String{})},
	)
)
