package wasmhost

import (
	"bytes"
	"context"

	translatorbridge "github.com/wippyai/translator-bridge"
	"github.com/wippyai/translator-bridge/bridge"
	"github.com/wippyai/translator-bridge/errors"
	"github.com/wippyai/translator-bridge/host"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"
)

// ModuleName is the import module name guests link against.
const ModuleName = "translator"

// ReallocExport is the guest export used for result allocation.
const ReallocExport = "cabi_realloc"

var (
	i32 = api.ValueTypeI32
	i64 = api.ValueTypeI64
)

// Host serves bridge calls from guests.
type Host struct {
	bridge *bridge.Bridge
	log    *zap.Logger
	calc   *Calculator
}

// Option configures a Host.
type Option func(*Host)

// WithLogger sets the logger for boundary failures.
func WithLogger(l *zap.Logger) Option {
	return func(h *Host) {
		if l != nil {
			h.log = l
		}
	}
}

// New returns a host serving b.
func New(b *bridge.Bridge, opts ...Option) *Host {
	h := &Host{bridge: b, log: zap.NewNop(), calc: NewCalculator()}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// call is the guest side of one host function invocation.
type call struct {
	mem   translatorbridge.Memory
	alloc translatorbridge.Allocator
}

func (c *call) string(what string, ptr, length uint32) (string, error) {
	data, err := c.bytes(what, ptr, length)
	return string(data), err
}

func (c *call) bytes(what string, ptr, length uint32) ([]byte, error) {
	if length == 0 {
		return nil, nil
	}
	if c.mem == nil {
		return nil, errors.New(errors.PhaseBoundary, errors.KindUnsupported).
			Detail("guest exports no memory for %s", what).
			Build()
	}
	data, err := c.mem.Read(ptr, length)
	if err != nil {
		return nil, errors.WithPath(err, what)
	}
	return bytes.Clone(data), nil
}

type export struct {
	fn      func(c *call, stack []uint64)
	name    string
	params  []api.ValueType
	names   []string
	results []api.ValueType
}

func (h *Host) exports() []export {
	return []export{
		{name: "Tesseract_create", fn: h.tesseractCreate,
			params:  []api.ValueType{i32, i32, i32, i32},
			names:   []string{"datapath_ptr", "datapath_len", "language_ptr", "language_len"},
			results: []api.ValueType{i64}},
		{name: "Tesseract_setFrame", fn: h.tesseractSetFrame,
			params:  []api.ValueType{i64, i32, i32, i32, i32, i32, i32},
			names:   []string{"handle", "data_ptr", "data_len", "width", "height", "bytes_per_pixel", "bytes_per_line"},
			results: []api.ValueType{i32}},
		{name: "Tesseract_setPageSegMode", fn: h.tesseractSetPageSegMode,
			params: []api.ValueType{i64, i32},
			names:  []string{"handle", "mode"}},
		{name: "Tesseract_getWordBoxes", fn: h.tesseractGetWordBoxes,
			params:  []api.ValueType{i64},
			names:   []string{"handle"},
			results: []api.ValueType{i32}},
		{name: "Tesseract_destroy", fn: h.tesseractDestroy,
			params: []api.ValueType{i64},
			names:  []string{"handle"}},
		{name: "Tarkka_open", fn: h.tarkkaOpen,
			params:  []api.ValueType{i32, i32},
			names:   []string{"path_ptr", "path_len"},
			results: []api.ValueType{i64}},
		{name: "Tarkka_lookup", fn: h.tarkkaLookup,
			params:  []api.ValueType{i64, i32, i32},
			names:   []string{"handle", "word_ptr", "word_len"},
			results: []api.ValueType{i32}},
		{name: "Tarkka_close", fn: h.tarkkaClose,
			params: []api.ValueType{i64},
			names:  []string{"handle"}},
		{name: "Mucab_open", fn: h.mucabOpen,
			params:  []api.ValueType{i32, i32},
			names:   []string{"path_ptr", "path_len"},
			results: []api.ValueType{i64}},
		{name: "Mucab_transliterate", fn: h.mucabTransliterate,
			params:  []api.ValueType{i64, i32, i32, i32},
			names:   []string{"handle", "text_ptr", "text_len", "spaced"},
			results: []api.ValueType{i32}},
		{name: "Mucab_close", fn: h.mucabClose,
			params: []api.ValueType{i64},
			names:  []string{"handle"}},
	}
}

// Instantiate registers the host module in rt. Guests importing
// ModuleName must be instantiated afterwards.
func (h *Host) Instantiate(ctx context.Context, rt wazero.Runtime) (api.Module, error) {
	builder := rt.NewHostModuleBuilder(ModuleName)
	for _, e := range h.exports() {
		builder.NewFunctionBuilder().
			WithGoModuleFunction(h.wrap(e.fn), e.params, e.results).
			WithParameterNames(e.names...).
			Export(e.name)
	}
	return builder.Instantiate(ctx)
}

func (h *Host) wrap(fn func(*call, []uint64)) api.GoModuleFunc {
	return func(ctx context.Context, mod api.Module, stack []uint64) {
		c := &call{}
		if m := mod.Memory(); m != nil {
			c.mem = &guestMemory{mem: m}
		}
		if f := mod.ExportedFunction(ReallocExport); f != nil {
			c.alloc = &reallocAllocator{ctx: ctx, fn: f, log: h.log}
		}
		fn(c, stack)
	}
}

// env returns a result env for c, or nil if the guest cannot receive one.
func (h *Host) env(c *call, op string) *GuestEnv {
	if c.mem == nil || c.alloc == nil {
		h.log.Error(op+": guest exports no memory or "+ReallocExport)
		return nil
	}
	return NewGuestEnv(c.mem, c.alloc, h.calc)
}

func (h *Host) commit(env *GuestEnv, ref host.Ref, op string) uint64 {
	ptr, err := env.Commit(ref)
	if err != nil {
		h.log.Error(op+": failed to write result to guest memory", zap.Error(err))
		return 0
	}
	return api.EncodeU32(ptr)
}

func handleAt(stack []uint64, i int) bridge.Handle {
	return bridge.Handle(stack[i])
}

func u32At(stack []uint64, i int) uint32 {
	return api.DecodeU32(stack[i])
}

func (h *Host) tesseractCreate(c *call, stack []uint64) {
	datapath, err := c.string("datapath", u32At(stack, 0), u32At(stack, 1))
	if err == nil {
		var language string
		language, err = c.string("language", u32At(stack, 2), u32At(stack, 3))
		if err == nil {
			stack[0] = uint64(h.bridge.TesseractCreate(datapath, language))
			return
		}
	}
	h.log.Error("Tesseract_create: bad arguments", zap.Error(err))
	stack[0] = 0
}

func (h *Host) tesseractSetFrame(c *call, stack []uint64) {
	handle := handleAt(stack, 0)
	data, err := c.bytes("data", u32At(stack, 1), u32At(stack, 2))
	if err != nil {
		h.log.Error("Tesseract_setFrame: bad arguments", zap.Error(err))
		stack[0] = 0
		return
	}
	ok := h.bridge.TesseractSetFrame(handle, data,
		api.DecodeI32(stack[3]), api.DecodeI32(stack[4]), api.DecodeI32(stack[5]), api.DecodeI32(stack[6]))
	if ok {
		stack[0] = 1
	} else {
		stack[0] = 0
	}
}

func (h *Host) tesseractSetPageSegMode(_ *call, stack []uint64) {
	h.bridge.TesseractSetPageSegMode(handleAt(stack, 0), api.DecodeI32(stack[1]))
}

func (h *Host) tesseractGetWordBoxes(c *call, stack []uint64) {
	handle := handleAt(stack, 0)
	stack[0] = 0
	if handle == 0 {
		return
	}
	env := h.env(c, "Tesseract_getWordBoxes")
	if env == nil {
		return
	}
	stack[0] = h.commit(env, h.bridge.TesseractGetWordBoxes(env, handle), "Tesseract_getWordBoxes")
}

func (h *Host) tesseractDestroy(_ *call, stack []uint64) {
	h.bridge.TesseractDestroy(handleAt(stack, 0))
}

func (h *Host) tarkkaOpen(c *call, stack []uint64) {
	path, err := c.string("path", u32At(stack, 0), u32At(stack, 1))
	if err != nil {
		h.log.Error("Tarkka_open: bad arguments", zap.Error(err))
		stack[0] = 0
		return
	}
	stack[0] = uint64(h.bridge.TarkkaOpen(path))
}

func (h *Host) tarkkaLookup(c *call, stack []uint64) {
	handle := handleAt(stack, 0)
	ptr, length := u32At(stack, 1), u32At(stack, 2)
	stack[0] = 0
	if handle == 0 {
		return
	}
	word, err := c.string("word", ptr, length)
	if err != nil {
		h.log.Error("Tarkka_lookup: bad arguments", zap.Error(err))
		return
	}
	env := h.env(c, "Tarkka_lookup")
	if env == nil {
		return
	}
	stack[0] = h.commit(env, h.bridge.TarkkaLookup(env, handle, word), "Tarkka_lookup")
}

func (h *Host) tarkkaClose(_ *call, stack []uint64) {
	h.bridge.TarkkaClose(handleAt(stack, 0))
}

func (h *Host) mucabOpen(c *call, stack []uint64) {
	path, err := c.string("path", u32At(stack, 0), u32At(stack, 1))
	if err != nil {
		h.log.Error("Mucab_open: bad arguments", zap.Error(err))
		stack[0] = 0
		return
	}
	stack[0] = uint64(h.bridge.MucabOpen(path))
}

func (h *Host) mucabTransliterate(c *call, stack []uint64) {
	handle := handleAt(stack, 0)
	ptr, length := u32At(stack, 1), u32At(stack, 2)
	spaced := api.DecodeU32(stack[3]) != 0
	stack[0] = 0
	if handle == 0 {
		return
	}
	text, err := c.string("text", ptr, length)
	if err != nil {
		h.log.Error("Mucab_transliterate: bad arguments", zap.Error(err))
		return
	}
	env := h.env(c, "Mucab_transliterate")
	if env == nil {
		return
	}
	stack[0] = h.commit(env, h.bridge.MucabTransliterateJP(env, handle, text, spaced), "Mucab_transliterate")
}

func (h *Host) mucabClose(_ *call, stack []uint64) {
	h.bridge.MucabClose(handleAt(stack, 0))
}
