package host

import (
	"fmt"
	"sync"
	"unicode/utf8"

	"github.com/wippyai/translator-bridge/errors"
	"go.bytecodealliance.org/wit"
)

type nodeKind uint8

const (
	nodeString nodeKind = iota + 1
	nodeList
	nodeObject
)

type node struct {
	class *Class
	str   string
	items []Ref
	args  []Value
	kind  nodeKind
}

// Heap is an in-process Env. It keeps every constructed value so tests
// and tools can inspect results, and it can inject failures.
type Heap struct {
	nodes     []node
	rejected  map[string]bool
	failAfter int
	calls     int
	mu        sync.Mutex
}

var _ Env = (*Heap)(nil)

// NewHeap returns an empty heap.
func NewHeap() *Heap {
	return &Heap{failAfter: -1, rejected: make(map[string]bool)}
}

// FailAfter makes every Env call after the next n successful ones fail
// with an allocation error. A negative n disables injection.
func (h *Heap) FailAfter(n int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.failAfter = n
	h.calls = 0
}

// Reject makes every constructor call for the named class fail.
func (h *Heap) Reject(class string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.rejected[class] = true
}

// Len returns the number of values ever constructed, reachable or not.
func (h *Heap) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.nodes)
}

// Calls returns the number of successful Env calls since the last FailAfter.
func (h *Heap) Calls() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.calls
}

// admit counts a call against the injection budget. Caller must hold mu.
func (h *Heap) admit() error {
	if h.failAfter >= 0 && h.calls >= h.failAfter {
		return errors.AllocationFailed(errors.PhaseMarshal, 0, 0)
	}
	h.calls++
	return nil
}

func (h *Heap) push(n node) Ref {
	h.nodes = append(h.nodes, n)
	return Ref(len(h.nodes))
}

func (h *Heap) get(r Ref) (*node, bool) {
	if r == Null || int(r) > len(h.nodes) {
		return nil, false
	}
	return &h.nodes[r-1], true
}

func (h *Heap) NewString(s string) (Ref, error) {
	if !utf8.ValidString(s) {
		return Null, errors.InvalidUTF8(errors.PhaseMarshal, "string", []byte(s))
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.admit(); err != nil {
		return Null, err
	}
	return h.push(node{kind: nodeString, str: s}), nil
}

func (h *Heap) NewList() (Ref, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.admit(); err != nil {
		return Null, err
	}
	return h.push(node{kind: nodeList}), nil
}

func (h *Heap) Append(list, item Ref) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	l, ok := h.get(list)
	if !ok || l.kind != nodeList {
		return errors.InvalidInput(errors.PhaseMarshal, fmt.Sprintf("append target %d is not a list", list))
	}
	if _, ok := h.get(item); !ok {
		return errors.InvalidInput(errors.PhaseMarshal, fmt.Sprintf("append item %d does not exist", item))
	}
	if err := h.admit(); err != nil {
		return err
	}
	l.items = append(l.items, item)
	return nil
}

func (h *Heap) NewObject(class *Class, args ...Value) (Ref, error) {
	if err := class.Check(args); err != nil {
		return Null, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rejected[class.Name] {
		return Null, errors.ConstructorRejected(class.Name, "rejected by host")
	}
	for i, f := range class.Fields() {
		if args[i].Kind != KindRef {
			continue
		}
		if err := h.checkShape(class, f.Name, args[i].Ref, f.Type); err != nil {
			return Null, err
		}
	}
	if err := h.admit(); err != nil {
		return Null, err
	}
	return h.push(node{kind: nodeObject, class: class, args: append([]Value(nil), args...)}), nil
}

func (h *Heap) checkShape(class *Class, field string, r Ref, t wit.Type) error {
	n, ok := h.get(r)
	if !ok {
		return errors.ConstructorRejected(class.Name, fmt.Sprintf("%s: dangling reference %d", field, r))
	}
	shape, _ := ShapeOf(t)
	var want nodeKind
	switch shape {
	case ShapeString:
		want = nodeString
	case ShapeList:
		want = nodeList
	case ShapeObject:
		want = nodeObject
	default:
		return nil
	}
	if n.kind != want {
		return errors.ConstructorRejected(class.Name, fmt.Sprintf("%s: wrong reference shape", field))
	}
	return nil
}

// Object is a resolved host object.
type Object struct {
	Class  *Class
	Fields []any
}

// Get returns the resolved value of the named constructor parameter.
func (o *Object) Get(name string) any {
	for i, f := range o.Class.Fields() {
		if f.Name == name {
			return o.Fields[i]
		}
	}
	return nil
}

// Resolve converts r into plain Go values: string, []any, *Object, int32,
// float32, bool or nil.
func (h *Heap) Resolve(r Ref) (any, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.resolve(r, 0)
}

const maxResolveDepth = 64

func (h *Heap) resolve(r Ref, depth int) (any, error) {
	if r == Null {
		return nil, nil
	}
	if depth > maxResolveDepth {
		return nil, errors.InvalidData(errors.PhaseMarshal, nil, "reference graph too deep")
	}
	n, ok := h.get(r)
	if !ok {
		return nil, errors.InvalidInput(errors.PhaseMarshal, fmt.Sprintf("unknown reference %d", r))
	}
	switch n.kind {
	case nodeString:
		return n.str, nil
	case nodeList:
		out := make([]any, 0, len(n.items))
		for _, it := range n.items {
			v, err := h.resolve(it, depth+1)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	default:
		obj := &Object{Class: n.class, Fields: make([]any, len(n.args))}
		for i, a := range n.args {
			switch a.Kind {
			case KindRef:
				v, err := h.resolve(a.Ref, depth+1)
				if err != nil {
					return nil, err
				}
				obj.Fields[i] = v
			case KindInt:
				obj.Fields[i] = a.Int
			case KindFloat:
				obj.Fields[i] = a.Float
			case KindBool:
				obj.Fields[i] = a.Bool
			}
		}
		return obj, nil
	}
}
