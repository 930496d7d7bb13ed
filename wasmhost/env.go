package wasmhost

import (
	"fmt"
	"math"
	"unicode/utf8"

	translatorbridge "github.com/wippyai/translator-bridge"
	"github.com/wippyai/translator-bridge/errors"
	"github.com/wippyai/translator-bridge/host"
	"go.bytecodealliance.org/wit"
)

type nodeKind uint8

const (
	nodeString nodeKind = iota
	nodeList
	nodeObject
)

type node struct {
	class *host.Class
	str   string
	items []host.Ref
	args  []host.Value
	kind  nodeKind
}

type allocation struct {
	ptr, size, align uint32
}

// GuestEnv builds a result graph on the host side and commits it to
// guest memory in one step. Nothing touches the guest until Commit, so
// an aborted build leaves the guest unchanged.
type GuestEnv struct {
	mem    translatorbridge.Memory
	alloc  translatorbridge.Allocator
	calc   *Calculator
	nodes  []node
	allocs []allocation
}

var _ host.Env = (*GuestEnv)(nil)

// NewGuestEnv returns an env that commits into mem using alloc.
func NewGuestEnv(mem translatorbridge.Memory, alloc translatorbridge.Allocator, calc *Calculator) *GuestEnv {
	if calc == nil {
		calc = NewCalculator()
	}
	return &GuestEnv{mem: mem, alloc: alloc, calc: calc}
}

func (e *GuestEnv) push(n node) host.Ref {
	e.nodes = append(e.nodes, n)
	return host.Ref(len(e.nodes))
}

func (e *GuestEnv) get(r host.Ref) (*node, bool) {
	if r == host.Null || int(r) > len(e.nodes) {
		return nil, false
	}
	return &e.nodes[r-1], true
}

func (e *GuestEnv) NewString(s string) (host.Ref, error) {
	if !utf8.ValidString(s) {
		return host.Null, errors.InvalidUTF8(errors.PhaseMarshal, "string", []byte(s))
	}
	return e.push(node{kind: nodeString, str: s}), nil
}

func (e *GuestEnv) NewList() (host.Ref, error) {
	return e.push(node{kind: nodeList}), nil
}

func (e *GuestEnv) Append(list, item host.Ref) error {
	l, ok := e.get(list)
	if !ok || l.kind != nodeList {
		return errors.InvalidInput(errors.PhaseMarshal, fmt.Sprintf("append target %d is not a list", list))
	}
	if _, ok := e.get(item); !ok {
		return errors.InvalidInput(errors.PhaseMarshal, fmt.Sprintf("append item %d does not exist", item))
	}
	l.items = append(l.items, item)
	return nil
}

func (e *GuestEnv) NewObject(class *host.Class, args ...host.Value) (host.Ref, error) {
	if err := class.Check(args); err != nil {
		return host.Null, err
	}
	for i, a := range args {
		if a.Kind == host.KindRef {
			if _, ok := e.get(a.Ref); !ok {
				return host.Null, errors.ConstructorRejected(class.Name,
					fmt.Sprintf("argument %d: dangling reference %d", i, a.Ref))
			}
		}
	}
	return e.push(node{kind: nodeObject, class: class, args: append([]host.Value(nil), args...)}), nil
}

// Commit writes the graph reachable from root into guest memory and
// returns its address. Strings and lists at the root are written as an
// 8-byte (ptr, len) cell; objects as their record. Null commits to 0.
// On failure every allocation made by this commit is freed.
func (e *GuestEnv) Commit(root host.Ref) (uint32, error) {
	if root == host.Null {
		return 0, nil
	}
	t, err := e.typeOf(root)
	if err != nil {
		return 0, err
	}

	info := e.calc.Calculate(t)
	ptr, err := e.allocate(info.Size, info.Align)
	if err == nil {
		err = e.store(t, host.Obj(root), ptr)
	}
	if err != nil {
		e.rollback()
		return 0, err
	}
	e.allocs = e.allocs[:0]
	return ptr, nil
}

// typeOf infers the wit type of a root value. List element types come
// from their first item.
func (e *GuestEnv) typeOf(r host.Ref) (wit.Type, error) {
	n, ok := e.get(r)
	if !ok {
		return nil, errors.InvalidInput(errors.PhaseMarshal, fmt.Sprintf("unknown reference %d", r))
	}
	switch n.kind {
	case nodeString:
		return wit.String{}, nil
	case nodeObject:
		return n.class.Type, nil
	default:
		if len(n.items) == 0 {
			return listOfBytes, nil
		}
		elem, err := e.typeOf(n.items[0])
		if err != nil {
			return nil, err
		}
		return listOf(elem), nil
	}
}

// Root list types the bridge returns.
var (
	listOfBytes        = host.ListOf(wit.U8{})
	listOfStrings      = host.ListOf(wit.String{})
	listOfDetectedWord = host.ListOf(host.DetectedWord.Type)
)

func listOf(elem wit.Type) *wit.TypeDef {
	switch elem := elem.(type) {
	case wit.U8:
		return listOfBytes
	case wit.String:
		return listOfStrings
	case *wit.TypeDef:
		if elem == host.DetectedWord.Type {
			return listOfDetectedWord
		}
	}
	return host.ListOf(elem)
}

func (e *GuestEnv) allocate(size, align uint32) (uint32, error) {
	if size == 0 {
		return 0, nil
	}
	ptr, err := e.alloc.Alloc(size, align)
	if err != nil {
		return 0, errors.Wrap(errors.PhaseMarshal, errors.KindAllocation, err,
			fmt.Sprintf("allocate %d bytes", size))
	}
	if ptr == 0 {
		return 0, errors.AllocationFailed(errors.PhaseMarshal, size, align)
	}
	e.allocs = append(e.allocs, allocation{ptr: ptr, size: size, align: align})
	return ptr, nil
}

func (e *GuestEnv) rollback() {
	for i := len(e.allocs) - 1; i >= 0; i-- {
		a := e.allocs[i]
		e.alloc.Free(a.ptr, a.size, a.align)
	}
	e.allocs = e.allocs[:0]
}

func (e *GuestEnv) lookup(v host.Value, want nodeKind) (*node, error) {
	if v.Kind != host.KindRef {
		return nil, errors.InvalidInput(errors.PhaseMarshal, fmt.Sprintf("expected reference, got %s", v.Kind))
	}
	n, ok := e.get(v.Ref)
	if !ok || n.kind != want {
		return nil, errors.InvalidInput(errors.PhaseMarshal, fmt.Sprintf("reference %d has the wrong shape", v.Ref))
	}
	return n, nil
}

func (e *GuestEnv) store(t wit.Type, v host.Value, ptr uint32) error {
	switch typ := t.(type) {
	case wit.Bool:
		var b uint8
		if v.Bool {
			b = 1
		}
		return e.mem.WriteU8(ptr, b)
	case wit.U8, wit.S8:
		return e.mem.WriteU8(ptr, uint8(v.Int))
	case wit.U32, wit.S32:
		return e.mem.WriteU32(ptr, uint32(v.Int))
	case wit.F32:
		return e.mem.WriteU32(ptr, math.Float32bits(v.Float))
	case wit.String:
		n, err := e.lookup(v, nodeString)
		if err != nil {
			return err
		}
		return e.storeString(n.str, ptr)
	case *wit.TypeDef:
		return e.storeTypeDef(typ, v, ptr)
	default:
		return errors.New(errors.PhaseMarshal, errors.KindUnsupported).
			Detail("cannot lower %T", t).
			Build()
	}
}

func (e *GuestEnv) storeTypeDef(t *wit.TypeDef, v host.Value, ptr uint32) error {
	switch kind := t.Kind.(type) {
	case *wit.Record:
		n, err := e.lookup(v, nodeObject)
		if err != nil {
			return err
		}
		info := e.calc.Calculate(t)
		for i, f := range kind.Fields {
			if err := e.store(f.Type, n.args[i], ptr+info.FieldOffs[f.Name]); err != nil {
				return errors.WithPath(err, f.Name)
			}
		}
		return nil
	case *wit.List:
		n, err := e.lookup(v, nodeList)
		if err != nil {
			return err
		}
		elem := e.calc.Calculate(kind.Type)
		base, err := e.allocate(elem.Size*uint32(len(n.items)), elem.Align)
		if err != nil {
			return err
		}
		for i, item := range n.items {
			if err := e.store(kind.Type, host.Obj(item), base+uint32(i)*elem.Size); err != nil {
				return errors.WithPath(err, fmt.Sprintf("[%d]", i))
			}
		}
		return e.storePair(ptr, base, uint32(len(n.items)))
	case *wit.Option:
		if v.Kind == host.KindNull {
			return e.mem.WriteU8(ptr, 0)
		}
		if err := e.mem.WriteU8(ptr, 1); err != nil {
			return err
		}
		return e.store(kind.Type, v, ptr+e.calc.payloadOffset(kind))
	case wit.Type:
		return e.store(kind, v, ptr)
	default:
		return errors.New(errors.PhaseMarshal, errors.KindUnsupported).
			Detail("cannot lower %T", t.Kind).
			Build()
	}
}

func (e *GuestEnv) storeString(s string, ptr uint32) error {
	data, err := e.allocate(uint32(len(s)), 1)
	if err != nil {
		return err
	}
	if len(s) > 0 {
		if err := e.mem.Write(data, []byte(s)); err != nil {
			return err
		}
	}
	return e.storePair(ptr, data, uint32(len(s)))
}

func (e *GuestEnv) storePair(ptr, data, length uint32) error {
	if err := e.mem.WriteU32(ptr, data); err != nil {
		return err
	}
	return e.mem.WriteU32(ptr+4, length)
}
