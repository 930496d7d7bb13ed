package wasmhost

import (
	"encoding/binary"
	"fmt"

	"github.com/wippyai/translator-bridge/errors"
)

// fakeMemory is a flat guest memory.
type fakeMemory struct {
	data []byte
}

func newFakeMemory(size int) *fakeMemory {
	return &fakeMemory{data: make([]byte, size)}
}

func (m *fakeMemory) check(offset, length uint32) error {
	if uint64(offset)+uint64(length) > uint64(len(m.data)) {
		return errors.OutOfBounds(errors.PhaseBoundary, "fake", offset, length)
	}
	return nil
}

func (m *fakeMemory) Read(offset, length uint32) ([]byte, error) {
	if err := m.check(offset, length); err != nil {
		return nil, err
	}
	return m.data[offset : offset+length], nil
}

func (m *fakeMemory) Write(offset uint32, data []byte) error {
	if err := m.check(offset, uint32(len(data))); err != nil {
		return err
	}
	copy(m.data[offset:], data)
	return nil
}

func (m *fakeMemory) ReadU32(offset uint32) (uint32, error) {
	if err := m.check(offset, 4); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(m.data[offset:]), nil
}

func (m *fakeMemory) ReadU64(offset uint32) (uint64, error) {
	if err := m.check(offset, 8); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(m.data[offset:]), nil
}

func (m *fakeMemory) WriteU8(offset uint32, v uint8) error {
	if err := m.check(offset, 1); err != nil {
		return err
	}
	m.data[offset] = v
	return nil
}

func (m *fakeMemory) WriteU32(offset uint32, v uint32) error {
	if err := m.check(offset, 4); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(m.data[offset:], v)
	return nil
}

func (m *fakeMemory) WriteU64(offset uint32, v uint64) error {
	if err := m.check(offset, 8); err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(m.data[offset:], v)
	return nil
}

func (m *fakeMemory) u32(t interface{ Fatalf(string, ...any) }, offset uint32) uint32 {
	v, err := m.ReadU32(offset)
	if err != nil {
		t.Fatalf("read u32 at %d: %v", offset, err)
	}
	return v
}

// str reads the (ptr, len) string cell at offset.
func (m *fakeMemory) str(t interface{ Fatalf(string, ...any) }, offset uint32) string {
	ptr, n := m.u32(t, offset), m.u32(t, offset+4)
	data, err := m.Read(ptr, n)
	if err != nil {
		t.Fatalf("read string at %d: %v", offset, err)
	}
	return string(data)
}

// bumpAllocator hands out memory above base and never reuses it.
type bumpAllocator struct {
	mem       *fakeMemory
	frees     []allocation
	next      uint32
	allocs    int
	failAfter int
}

func newBumpAllocator(mem *fakeMemory, base uint32) *bumpAllocator {
	return &bumpAllocator{mem: mem, next: base, failAfter: -1}
}

func (a *bumpAllocator) Alloc(size, align uint32) (uint32, error) {
	if a.failAfter >= 0 && a.allocs >= a.failAfter {
		return 0, fmt.Errorf("out of memory")
	}
	ptr := alignTo(a.next, align)
	if uint64(ptr)+uint64(size) > uint64(len(a.mem.data)) {
		return 0, fmt.Errorf("out of memory")
	}
	a.next = ptr + size
	a.allocs++
	return ptr, nil
}

func (a *bumpAllocator) Free(ptr, size, align uint32) {
	a.frees = append(a.frees, allocation{ptr: ptr, size: size, align: align})
}

// guestModule returns a core wasm binary that imports Tarkka_open,
// Tarkka_lookup and Tarkka_close from the host module and re-exports them
// as open, lookup and close. It exports its memory and a bump
// cabi_realloc starting at 1024.
func guestModule() []byte {
	const (
		i32 = 0x7f
		i64 = 0x7e
	)
	funcType := func(params, results []byte) []byte {
		b := append([]byte{0x60}, vec(len(params), params)...)
		return append(b, vec(len(results), results)...)
	}
	imp := func(field string, typeIdx byte) []byte {
		b := append(name(ModuleName), name(field)...)
		return append(b, 0x00, typeIdx)
	}
	exp := func(field string, kind, idx byte) []byte {
		return append(name(field), kind, idx)
	}
	body := func(locals []byte, code ...byte) []byte {
		b := append(locals, code...)
		return append(uleb(uint32(len(b))), b...)
	}

	types := [][]byte{
		funcType([]byte{i32, i32}, []byte{i64}),           // open
		funcType([]byte{i64, i32, i32}, []byte{i32}),      // lookup
		funcType([]byte{i64}, nil),                        // close
		funcType([]byte{i32, i32, i32, i32}, []byte{i32}), // cabi_realloc
	}
	imports := [][]byte{imp("Tarkka_open", 0), imp("Tarkka_lookup", 1), imp("Tarkka_close", 2)}
	exports := [][]byte{
		exp("memory", 0x02, 0),
		exp("open", 0x00, 3),
		exp("lookup", 0x00, 4),
		exp("close", 0x00, 5),
		exp(ReallocExport, 0x00, 6),
	}
	noLocals := []byte{0x00}
	codes := [][]byte{
		body(noLocals, 0x20, 0, 0x20, 1, 0x10, 0, 0x0b),
		body(noLocals, 0x20, 0, 0x20, 1, 0x20, 2, 0x10, 1, 0x0b),
		body(noLocals, 0x20, 0, 0x10, 2, 0x0b),
		// aligned = (heap + align - 1) & -align; heap = aligned + size
		body([]byte{0x01, 0x01, i32},
			0x23, 0, 0x20, 2, 0x6a, 0x41, 1, 0x6b,
			0x41, 0, 0x20, 2, 0x6b, 0x71,
			0x22, 4, 0x20, 3, 0x6a, 0x24, 0,
			0x20, 4, 0x0b),
	}

	out := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}
	out = append(out, section(1, vecOf(types))...)
	out = append(out, section(2, vecOf(imports))...)
	out = append(out, section(3, vec(4, []byte{0, 1, 2, 3}))...)
	out = append(out, section(5, []byte{0x01, 0x00, 0x01})...)
	out = append(out, section(6, []byte{0x01, i32, 0x01, 0x41, 0x80, 0x08, 0x0b})...)
	out = append(out, section(7, vecOf(exports))...)
	out = append(out, section(10, vecOf(codes))...)
	return out
}

func uleb(v uint32) []byte {
	var b []byte
	for {
		c := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b = append(b, c|0x80)
			continue
		}
		return append(b, c)
	}
}

func name(s string) []byte {
	return append(uleb(uint32(len(s))), s...)
}

func vec(n int, items []byte) []byte {
	return append(uleb(uint32(n)), items...)
}

func vecOf(items [][]byte) []byte {
	var b []byte
	for _, it := range items {
		b = append(b, it...)
	}
	return vec(len(items), b)
}

func section(id byte, content []byte) []byte {
	b := append([]byte{id}, uleb(uint32(len(content)))...)
	return append(b, content...)
}
