package wasmhost

import (
	"bytes"
	"context"
	stderrors "errors"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/wippyai/translator-bridge/bridge"
	"github.com/wippyai/translator-bridge/dictionary"
	"github.com/wippyai/translator-bridge/errors"
	"github.com/wippyai/translator-bridge/host"
	"github.com/wippyai/translator-bridge/marshal"
	"github.com/wippyai/translator-bridge/ocr"
	"go.bytecodealliance.org/wit"
)

func TestCalculatorLayouts(t *testing.T) {
	c := NewCalculator()

	dw := c.Calculate(host.DetectedWord.Type)
	if dw.Size != 32 || dw.Align != 4 {
		t.Errorf("DetectedWord = size %d align %d, want 32/4", dw.Size, dw.Align)
	}
	wantOffs := map[string]uint32{
		"text": 0, "left": 8, "top": 12, "right": 16, "bottom": 20,
		"confidence": 24, "is-at-beginning-of-para": 28, "end-line": 29, "end-para": 30,
	}
	for name, want := range wantOffs {
		if got := dw.FieldOffs[name]; got != want {
			t.Errorf("DetectedWord.%s at %d, want %d", name, got, want)
		}
	}

	w := c.Calculate(host.WordWithTaggedEntries.Type)
	if w.Size != 48 || w.Align != 4 {
		t.Errorf("WordWithTaggedEntries = size %d align %d, want 48/4", w.Size, w.Align)
	}
	if got := w.FieldOffs["sounds"]; got != 20 {
		t.Errorf("sounds at %d, want 20", got)
	}
	if got := w.FieldOffs["redirects"]; got != 40 {
		t.Errorf("redirects at %d, want 40", got)
	}

	opt := c.Calculate(host.OptionOf(wit.U8{}))
	if opt.Size != 2 || opt.Align != 1 {
		t.Errorf("option<u8> = size %d align %d, want 2/1", opt.Size, opt.Align)
	}
}

func TestCalculatorSharedAcrossCommits(t *testing.T) {
	calc := NewCalculator()
	words := []ocr.DetectedWord{
		{Text: "hello", Box: ocr.Rect{Right: 30, Bottom: 12}, Confidence: 90},
		{Text: "world", Box: ocr.Rect{Left: 35, Right: 60, Bottom: 12}, Confidence: 80},
	}

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			mem := newFakeMemory(1 << 16)
			alloc := newBumpAllocator(mem, 64)
			for range 200 {
				env := NewGuestEnv(mem, alloc, calc)
				ref, err := marshal.DetectedWords(env, words)
				if err != nil {
					t.Error(err)
					return
				}
				if _, err := env.Commit(ref); err != nil {
					t.Error(err)
					return
				}
				strs, err := marshal.Strings(env, []string{"a", "b"})
				if err != nil {
					t.Error(err)
					return
				}
				if _, err := env.Commit(strs); err != nil {
					t.Error(err)
					return
				}
			}
		}()
	}
	wg.Wait()

	if n := calc.cached(); n != 1 {
		t.Errorf("cached layouts = %d, want 1", n)
	}
}

func TestCommitDetectedWords(t *testing.T) {
	mem := newFakeMemory(4096)
	alloc := newBumpAllocator(mem, 64)
	env := NewGuestEnv(mem, alloc, nil)

	ref, err := marshal.DetectedWords(env, []ocr.DetectedWord{
		{Text: "hello", Box: ocr.Rect{Left: 1, Top: 2, Right: 30, Bottom: 12}, Confidence: 91.5, IsAtBeginningOfPara: true},
		{Text: "world", Box: ocr.Rect{Left: 35, Top: 2, Right: 60, Bottom: 12}, Confidence: 88, EndLine: true, EndPara: true},
	})
	if err != nil {
		t.Fatal(err)
	}
	cell, err := env.Commit(ref)
	if err != nil {
		t.Fatal(err)
	}

	base, n := mem.u32(t, cell), mem.u32(t, cell+4)
	if n != 2 {
		t.Fatalf("list length %d", n)
	}
	if base%4 != 0 {
		t.Errorf("list base %d not aligned", base)
	}
	second := base + 32
	if got := mem.str(t, base); got != "hello" {
		t.Errorf("text = %q", got)
	}
	if got := mem.str(t, second); got != "world" {
		t.Errorf("text = %q", got)
	}
	if got := int32(mem.u32(t, base+16)); got != 30 {
		t.Errorf("right = %d", got)
	}
	if got := math.Float32frombits(mem.u32(t, base+24)); got != 91.5 {
		t.Errorf("confidence = %v", got)
	}
	flags := mem.data[base+28 : base+31]
	if !bytes.Equal(flags, []byte{1, 0, 0}) {
		t.Errorf("first flags = %v", flags)
	}
	flags = mem.data[second+28 : second+31]
	if !bytes.Equal(flags, []byte{0, 1, 1}) {
		t.Errorf("second flags = %v", flags)
	}
}

func TestCommitWordOptionalSounds(t *testing.T) {
	sounds := "/ɹʌn/"
	tests := []struct {
		name   string
		sounds *string
	}{
		{"absent", nil},
		{"present", &sounds},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := newFakeMemory(4096)
			env := NewGuestEnv(mem, newBumpAllocator(mem, 64), nil)
			ref, err := marshal.Word(env, &dictionary.Word{
				Word:   "run",
				Tag:    dictionary.TagBoth,
				Sounds: tt.sounds,
				Entries: []dictionary.Entry{{Senses: []dictionary.Sense{
					{POS: dictionary.POSVerb, Glosses: []dictionary.Gloss{{Lines: []string{"To move swiftly."}}}},
				}}},
				Redirects: []string{"ran"},
			})
			if err != nil {
				t.Fatal(err)
			}
			ptr, err := env.Commit(ref)
			if err != nil {
				t.Fatal(err)
			}

			if got := mem.str(t, ptr); got != "run" {
				t.Errorf("word = %q", got)
			}
			if got := mem.u32(t, ptr+8); got != uint32(dictionary.TagBoth) {
				t.Errorf("tag = %d", got)
			}
			disc := mem.data[ptr+20]
			if tt.sounds == nil {
				if disc != 0 {
					t.Errorf("sounds discriminant = %d, want 0", disc)
				}
			} else {
				if disc != 1 {
					t.Fatalf("sounds discriminant = %d, want 1", disc)
				}
				if got := mem.str(t, ptr+24); got != sounds {
					t.Errorf("sounds = %q", got)
				}
			}

			entries, n := mem.u32(t, ptr+12), mem.u32(t, ptr+16)
			if n != 1 {
				t.Fatalf("entries = %d", n)
			}
			senses := mem.u32(t, entries)
			if got := mem.str(t, senses); got != "verb" {
				t.Errorf("pos = %q", got)
			}
			glosses := mem.u32(t, senses+8)
			lines := mem.u32(t, glosses)
			if got := mem.str(t, lines); got != "To move swiftly." {
				t.Errorf("gloss line = %q", got)
			}
			redirects := mem.u32(t, ptr+40)
			if got := mem.str(t, redirects); got != "ran" {
				t.Errorf("redirect = %q", got)
			}
		})
	}
}

func TestCommitRootString(t *testing.T) {
	mem := newFakeMemory(256)
	env := NewGuestEnv(mem, newBumpAllocator(mem, 16), nil)
	ref, _ := marshal.String(env, "nihongo desu")
	cell, err := env.Commit(ref)
	if err != nil {
		t.Fatal(err)
	}
	if got := mem.str(t, cell); got != "nihongo desu" {
		t.Errorf("got %q", got)
	}

	ref, _ = marshal.String(env, "")
	cell, err = env.Commit(ref)
	if err != nil {
		t.Fatal(err)
	}
	if mem.u32(t, cell+4) != 0 {
		t.Error("empty string has non-zero length")
	}
}

func TestCommitNull(t *testing.T) {
	mem := newFakeMemory(64)
	alloc := newBumpAllocator(mem, 8)
	env := NewGuestEnv(mem, alloc, nil)
	ptr, err := env.Commit(host.Null)
	if err != nil || ptr != 0 {
		t.Errorf("Commit(Null) = %d, %v", ptr, err)
	}
	if alloc.allocs != 0 {
		t.Error("null commit allocated")
	}
}

func TestCommitRollsBackOnAllocationFailure(t *testing.T) {
	words := []ocr.DetectedWord{
		{Text: "a", Box: ocr.Rect{Right: 1, Bottom: 1}},
		{Text: "b", Box: ocr.Rect{Right: 1, Bottom: 1}},
	}
	// cell, list body, two strings
	for budget := 0; budget < 4; budget++ {
		mem := newFakeMemory(1024)
		alloc := newBumpAllocator(mem, 8)
		alloc.failAfter = budget
		env := NewGuestEnv(mem, alloc, nil)
		ref, err := marshal.DetectedWords(env, words)
		if err != nil {
			t.Fatal(err)
		}

		ptr, err := env.Commit(ref)
		if ptr != 0 || !stderrors.Is(err, errors.ErrAllocation) {
			t.Errorf("budget %d: Commit = %d, %v", budget, ptr, err)
		}
		if len(alloc.frees) != alloc.allocs {
			t.Errorf("budget %d: freed %d of %d allocations", budget, len(alloc.frees), alloc.allocs)
		}
	}
}

func TestCommitOutOfMemoryBounds(t *testing.T) {
	mem := newFakeMemory(64)
	alloc := newBumpAllocator(mem, 8)
	env := NewGuestEnv(mem, alloc, nil)
	ref, _ := marshal.String(env, string(bytes.Repeat([]byte("x"), 100)))
	if ptr, err := env.Commit(ref); ptr != 0 || err == nil {
		t.Errorf("Commit = %d, %v", ptr, err)
	}
}

func TestGuestEnvRejectsBadInput(t *testing.T) {
	mem := newFakeMemory(64)
	env := NewGuestEnv(mem, newBumpAllocator(mem, 8), nil)
	if _, err := env.NewString("bad\xff"); err == nil {
		t.Error("invalid utf8 accepted")
	}
	if err := env.Append(99, 1); err == nil {
		t.Error("append to unknown list accepted")
	}
	if _, err := env.NewObject(host.Gloss, host.Int(1)); err == nil {
		t.Error("constructor accepted wrong argument kind")
	}
}

// guestCall lays out strings in a fake guest and invokes host functions.
type guestCall struct {
	t     *testing.T
	mem   *fakeMemory
	alloc *bumpAllocator
	c     *call
	next  uint32
}

func newGuestCall(t *testing.T) *guestCall {
	mem := newFakeMemory(1 << 16)
	alloc := newBumpAllocator(mem, 1<<15)
	return &guestCall{t: t, mem: mem, alloc: alloc, c: &call{mem: mem, alloc: alloc}, next: 16}
}

func (g *guestCall) put(s string) (uint64, uint64) {
	ptr := g.next
	if err := g.mem.Write(ptr, []byte(s)); err != nil {
		g.t.Fatal(err)
	}
	g.next += uint32(len(s)) + 8
	return api.EncodeU32(ptr), api.EncodeU32(uint32(len(s)))
}

func writeDictionary(t *testing.T) string {
	t.Helper()
	var buf bytes.Buffer
	words := []dictionary.Word{{
		Word: "run",
		Tag:  dictionary.TagEnglish,
		Entries: []dictionary.Entry{{Senses: []dictionary.Sense{
			{POS: dictionary.POSVerb, Glosses: []dictionary.Gloss{{Lines: []string{"To move swiftly."}}}},
		}}},
	}}
	if err := dictionary.Write(&buf, dictionary.CurrentVersion, time.Unix(0, 0), words); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "en.trkk")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestHostDictionaryCalls(t *testing.T) {
	b := bridge.New()
	defer b.Close()
	h := New(b)
	g := newGuestCall(t)

	p, l := g.put(writeDictionary(t))
	stack := []uint64{p, l}
	h.tarkkaOpen(g.c, stack)
	handle := stack[0]
	if handle == 0 {
		t.Fatal("Tarkka_open returned 0")
	}

	p, l = g.put("run")
	stack = []uint64{handle, p, l}
	h.tarkkaLookup(g.c, stack)
	ptr := api.DecodeU32(stack[0])
	if ptr == 0 {
		t.Fatal("Tarkka_lookup returned null")
	}
	if got := g.mem.str(t, ptr); got != "run" {
		t.Errorf("word = %q", got)
	}

	p, l = g.put("zzzznotaword")
	stack = []uint64{handle, p, l}
	h.tarkkaLookup(g.c, stack)
	if stack[0] != 0 {
		t.Error("missing word returned a pointer")
	}

	stack = []uint64{handle, api.EncodeU32(1 << 20), api.EncodeU32(4)}
	h.tarkkaLookup(g.c, stack)
	if stack[0] != 0 {
		t.Error("out of range word pointer returned a pointer")
	}

	allocs := g.alloc.allocs
	stack = []uint64{0, p, l}
	h.tarkkaLookup(g.c, stack)
	if stack[0] != 0 || g.alloc.allocs != allocs {
		t.Error("zero handle lookup touched the guest")
	}

	h.tarkkaClose(g.c, []uint64{handle})
	if b.Live() != 0 {
		t.Errorf("Live = %d after close", b.Live())
	}
}

func TestHostMucabCalls(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mucab.tsv")
	if err := os.WriteFile(path, []byte("日本語\tにほんご\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	b := bridge.New()
	defer b.Close()
	h := New(b)
	g := newGuestCall(t)

	p, l := g.put(path)
	stack := []uint64{p, l}
	h.mucabOpen(g.c, stack)
	handle := stack[0]
	if handle == 0 {
		t.Fatal("Mucab_open returned 0")
	}

	p, l = g.put("日本語です")
	for _, tt := range []struct {
		spaced uint64
		want   string
	}{{1, "nihongo desu"}, {0, "nihongodesu"}} {
		stack = []uint64{handle, p, l, tt.spaced}
		h.mucabTransliterate(g.c, stack)
		ptr := api.DecodeU32(stack[0])
		if ptr == 0 {
			t.Fatal("Mucab_transliterate returned null")
		}
		if got := g.mem.str(t, ptr); got != tt.want {
			t.Errorf("spaced=%d: got %q, want %q", tt.spaced, got, tt.want)
		}
	}

	p, l = g.put("bad\xfftext")
	stack = []uint64{handle, p, l, 1}
	h.mucabTransliterate(g.c, stack)
	if stack[0] != 0 {
		t.Error("invalid utf8 returned a pointer")
	}

	h.mucabClose(g.c, []uint64{handle})
}

type blankEngine struct{}

func (blankEngine) SetFrame(ocr.Frame) (ocr.Engine, error) { return blankEngine{}, nil }
func (blankEngine) SetPageSegMode(ocr.PageSegMode) error { return nil }
func (blankEngine) Recognize() (ocr.Engine, error) { return blankEngine{}, nil }
func (blankEngine) Iterator() (ocr.WordIterator, bool) { return ocr.NewBoxIterator(nil), true }
func (blankEngine) Close() error { return nil }

func TestHostOCRCalls(t *testing.T) {
	b := bridge.New(bridge.WithOCREngineFactory(func(string, string) (ocr.Engine, error) {
		return blankEngine{}, nil
	}))
	defer b.Close()
	h := New(b)
	g := newGuestCall(t)

	stack := []uint64{0, 0, 0, 0}
	h.tesseractCreate(g.c, stack)
	handle := stack[0]
	if handle == 0 {
		t.Fatal("Tesseract_create returned 0")
	}

	frame := string(bytes.Repeat([]byte{0xff}, 16*16))
	p, l := g.put(frame)
	stack = []uint64{handle, p, l, 16, 16, 1, 16}
	h.tesseractSetFrame(g.c, stack)
	if stack[0] != 1 {
		t.Fatal("Tesseract_setFrame failed")
	}
	h.tesseractSetPageSegMode(g.c, []uint64{handle, api.EncodeI32(99)})

	stack = []uint64{handle}
	h.tesseractGetWordBoxes(g.c, stack)
	cell := api.DecodeU32(stack[0])
	if cell == 0 {
		t.Fatal("Tesseract_getWordBoxes returned null")
	}
	if n := g.mem.u32(t, cell+4); n != 0 {
		t.Errorf("blank frame produced %d words", n)
	}

	stack = []uint64{handle, api.EncodeU32(1 << 20), 16, 4, 4, 1, 4}
	h.tesseractSetFrame(g.c, stack)
	if stack[0] != 0 {
		t.Error("out of range frame accepted")
	}

	h.tesseractDestroy(g.c, []uint64{handle})
	h.tesseractDestroy(g.c, []uint64{handle})
	if b.Live() != 0 {
		t.Errorf("Live = %d", b.Live())
	}
}

func TestHostWithoutGuestMemory(t *testing.T) {
	b := bridge.New()
	defer b.Close()
	h := New(b)
	c := &call{}

	stack := []uint64{0, 5}
	h.tarkkaOpen(c, stack)
	if stack[0] != 0 {
		t.Error("open without guest memory succeeded")
	}
}

func TestInstantiate(t *testing.T) {
	ctx := context.Background()
	rt := wazero.NewRuntime(ctx)
	defer rt.Close(ctx)

	b := bridge.New()
	defer b.Close()
	mod, err := New(b).Instantiate(ctx, rt)
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}
	if mod.Name() != ModuleName {
		t.Errorf("module name = %q", mod.Name())
	}

	defs := mod.ExportedFunctionDefinitions()
	for _, name := range []string{
		"Tesseract_create", "Tesseract_setFrame", "Tesseract_setPageSegMode",
		"Tesseract_getWordBoxes", "Tesseract_destroy",
		"Tarkka_open", "Tarkka_lookup", "Tarkka_close",
		"Mucab_open", "Mucab_transliterate", "Mucab_close",
	} {
		if _, ok := defs[name]; !ok {
			t.Errorf("missing export %s", name)
		}
	}
}

func TestGuestCallsThroughHostModule(t *testing.T) {
	ctx := context.Background()
	rt := wazero.NewRuntime(ctx)
	defer rt.Close(ctx)

	b := bridge.New()
	defer b.Close()
	if _, err := New(b).Instantiate(ctx, rt); err != nil {
		t.Fatalf("Instantiate: %v", err)
	}
	guest, err := rt.InstantiateWithConfig(ctx, guestModule(), wazero.NewModuleConfig().WithName("guest"))
	if err != nil {
		t.Fatalf("instantiate guest: %v", err)
	}
	mem := guest.Memory()

	put := func(offset uint32, s string) (uint64, uint64) {
		if !mem.Write(offset, []byte(s)) {
			t.Fatalf("write %q at %d", s, offset)
		}
		return api.EncodeU32(offset), api.EncodeU32(uint32(len(s)))
	}
	call := func(fn string, params ...uint64) uint64 {
		res, err := guest.ExportedFunction(fn).Call(ctx, params...)
		if err != nil {
			t.Fatalf("%s: %v", fn, err)
		}
		if len(res) == 0 {
			return 0
		}
		return res[0]
	}

	p, l := put(16, writeDictionary(t))
	handle := call("open", p, l)
	if handle == 0 {
		t.Fatal("open returned 0")
	}

	p, l = put(768, "run")
	ptr := api.DecodeU32(call("lookup", handle, p, l))
	if ptr < 1024 {
		t.Fatalf("lookup returned %d, want a cabi_realloc address", ptr)
	}
	strPtr, ok1 := mem.ReadUint32Le(ptr)
	strLen, ok2 := mem.ReadUint32Le(ptr + 4)
	word, ok3 := mem.Read(strPtr, strLen)
	if !ok1 || !ok2 || !ok3 || string(word) != "run" {
		t.Errorf("word = %q", word)
	}
	if tag, _ := mem.ReadUint32Le(ptr + 8); tag != uint32(dictionary.TagEnglish) {
		t.Errorf("tag = %d", tag)
	}

	p, l = put(768, "zzzznotaword")
	if got := call("lookup", handle, p, l); got != 0 {
		t.Errorf("missing word returned %d", got)
	}

	call("close", handle)
	if b.Live() != 0 {
		t.Errorf("Live = %d after close", b.Live())
	}
	call("close", handle)
}
