package wasmhost

import (
	"sync"

	"go.bytecodealliance.org/wit"
)

// Info is the Canonical ABI size and alignment of a type. FieldOffs is
// set for records.
type Info struct {
	FieldOffs map[string]uint32
	Size      uint32
	Align     uint32
}

func alignTo(offset, align uint32) uint32 {
	if align == 0 {
		return offset
	}
	return (offset + align - 1) &^ (align - 1)
}

// Calculator computes and caches layouts of the types the bridge returns.
// Only records and options are cached; list and alias layouts are fixed
// or derived, so per-call list types never grow the cache.
// Safe for concurrent use.
type Calculator struct {
	cache map[*wit.TypeDef]Info
	mu    sync.RWMutex
}

func NewCalculator() *Calculator {
	return &Calculator{cache: make(map[*wit.TypeDef]Info)}
}

func (c *Calculator) Calculate(t wit.Type) Info {
	switch typ := t.(type) {
	case wit.U8, wit.S8, wit.Bool:
		return Info{Size: 1, Align: 1}
	case wit.U16, wit.S16:
		return Info{Size: 2, Align: 2}
	case wit.U32, wit.S32, wit.F32, wit.Char:
		return Info{Size: 4, Align: 4}
	case wit.U64, wit.S64, wit.F64:
		return Info{Size: 8, Align: 8}
	case wit.String:
		return Info{Size: 8, Align: 4} // [ptr: u32, len: u32]
	case *wit.TypeDef:
		return c.calculateTypeDef(typ)
	default:
		return Info{Size: 0, Align: 1}
	}
}

func (c *Calculator) calculateTypeDef(t *wit.TypeDef) Info {
	switch kind := t.Kind.(type) {
	case *wit.List:
		return Info{Size: 8, Align: 4}
	case *wit.Record, *wit.Option:
	case wit.Type:
		return c.Calculate(kind)
	default:
		return Info{Size: 0, Align: 1}
	}

	c.mu.RLock()
	cached, ok := c.cache[t]
	c.mu.RUnlock()
	if ok {
		return cached
	}

	var info Info
	if r, ok := t.Kind.(*wit.Record); ok {
		info = c.calculateRecord(r)
	} else {
		info = c.calculateOption(t.Kind.(*wit.Option))
	}

	c.mu.Lock()
	c.cache[t] = info
	c.mu.Unlock()
	return info
}

// cached reports how many layouts are cached.
func (c *Calculator) cached() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}

func (c *Calculator) calculateRecord(r *wit.Record) Info {
	if len(r.Fields) == 0 {
		return Info{Size: 0, Align: 1}
	}

	offs := make(map[string]uint32, len(r.Fields))
	maxAlign := uint32(1)
	offset := uint32(0)
	for _, f := range r.Fields {
		fl := c.Calculate(f.Type)
		offset = alignTo(offset, fl.Align)
		offs[f.Name] = offset
		if fl.Align > maxAlign {
			maxAlign = fl.Align
		}
		offset += fl.Size
	}

	return Info{
		Size:      alignTo(offset, maxAlign),
		Align:     maxAlign,
		FieldOffs: offs,
	}
}

// calculateOption lays out option<T> as a u8 discriminant followed by
// the payload at T's alignment.
func (c *Calculator) calculateOption(o *wit.Option) Info {
	inner := c.Calculate(o.Type)
	align := inner.Align
	if align < 1 {
		align = 1
	}
	payload := alignTo(1, align)
	return Info{
		Size:  alignTo(payload+inner.Size, align),
		Align: align,
	}
}

// payloadOffset returns the offset of the payload inside option<T>.
func (c *Calculator) payloadOffset(o *wit.Option) uint32 {
	return alignTo(1, c.Calculate(o.Type).Align)
}
