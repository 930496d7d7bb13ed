package bridge

import (
	"bytes"
	stderrors "errors"
	"testing"

	"github.com/wippyai/translator-bridge/host"
	"github.com/wippyai/translator-bridge/logging"
	"github.com/wippyai/translator-bridge/ocr"
)

func TestZeroHandleReturnsSentinel(t *testing.T) {
	f := &engines{}
	opened := 0
	b, _ := newTestBridge(t,
		WithOCREngineFactory(f.factory),
		WithDictionaryOpener(func(string) (DictionaryReader, error) {
			opened++
			return nil, stderrors.New("unused")
		}))
	env := host.NewHeap()
	data, w, h, bpp, bpl := blankFrame(4, 4)

	if b.TesseractSetFrame(0, data, w, h, bpp, bpl) {
		t.Error("SetFrame(0) = true")
	}
	b.TesseractSetPageSegMode(0, 3)
	if ref := b.TesseractGetWordBoxes(env, 0); ref != host.Null {
		t.Errorf("GetWordBoxes(0) = %v", ref)
	}
	b.TesseractDestroy(0)
	if ref := b.TarkkaLookup(env, 0, "run"); ref != host.Null {
		t.Errorf("TarkkaLookup(0) = %v", ref)
	}
	if _, status := b.TarkkaLookupStatus(env, 0, "run"); status != LookupFailed {
		t.Errorf("status = %v, want failed", status)
	}
	b.TarkkaClose(0)
	if ref := b.MucabTransliterateJP(env, 0, "日本", true); ref != host.Null {
		t.Errorf("MucabTransliterateJP(0) = %v", ref)
	}
	b.MucabClose(0)

	if f.calls != 0 || opened != 0 {
		t.Errorf("native access with zero handle: factory=%d opener=%d", f.calls, opened)
	}
	if env.Calls() != 0 {
		t.Errorf("host env touched %d times", env.Calls())
	}
	if b.Live() != 0 {
		t.Errorf("Live = %d", b.Live())
	}
}

func TestDictionaryScenario(t *testing.T) {
	b, rec := newTestBridge(t)
	env := host.NewHeap()

	h := b.TarkkaOpen(writeDictionary(t))
	if h == 0 {
		t.Fatal("TarkkaOpen returned 0")
	}
	if !rec.Contains(TagTarkka, "Dictionary opened") {
		t.Error("open was not logged under the dictionary tag")
	}

	ref, status := b.TarkkaLookupStatus(env, h, "run")
	if ref == host.Null || status != LookupFound {
		t.Fatalf("lookup(run) = %v, %v", ref, status)
	}
	v, err := env.Resolve(ref)
	if err != nil {
		t.Fatal(err)
	}
	obj := v.(*host.Object)
	if obj.Class != host.WordWithTaggedEntries {
		t.Fatalf("class = %s", obj.Class)
	}
	if got := obj.Get("word"); got != "run" {
		t.Errorf("word = %v", got)
	}
	if entries := obj.Get("entries").([]any); len(entries) < 1 {
		t.Error("no entries")
	}

	ref, status = b.TarkkaLookupStatus(env, h, "zzzznotaword")
	if ref != host.Null || status != LookupNotFound {
		t.Errorf("lookup(missing) = %v, %v", ref, status)
	}
	if ref := b.TarkkaLookup(env, h, "zzzznotaword"); ref != host.Null {
		t.Errorf("TarkkaLookup(missing) = %v", ref)
	}

	b.TarkkaClose(h)
	if b.Live() != 0 {
		t.Errorf("Live = %d after close", b.Live())
	}
	if ref := b.TarkkaLookup(env, h, "run"); ref != host.Null {
		t.Error("lookup on a closed handle succeeded")
	}
}

func TestDictionaryOpenFailure(t *testing.T) {
	b, rec := newTestBridge(t)
	if h := b.TarkkaOpen("/nonexistent/dict.trkk"); h != 0 {
		t.Errorf("TarkkaOpen = %v, want 0", h)
	}
	if len(rec.Filter(TagTarkka, logging.Error)) == 0 {
		t.Error("open failure not logged")
	}
	if h := b.TarkkaOpen("bad\xffpath"); h != 0 {
		t.Errorf("TarkkaOpen(invalid utf8) = %v, want 0", h)
	}
}

func TestLookupMarshalFailure(t *testing.T) {
	b, _ := newTestBridge(t)
	h := b.TarkkaOpen(writeDictionary(t))

	env := host.NewHeap()
	env.Reject(host.Gloss.Name)
	ref, status := b.TarkkaLookupStatus(env, h, "run")
	if ref != host.Null || status != LookupFailed {
		t.Errorf("lookup = %v, %v; want null, failed", ref, status)
	}

	env = host.NewHeap()
	env.FailAfter(3)
	if ref := b.TarkkaLookup(env, h, "run"); ref != host.Null {
		t.Errorf("lookup with exhausted env = %v", ref)
	}
}

func TestOCRScenarioBlankImage(t *testing.T) {
	f := &engines{}
	b, _ := newTestBridge(t, WithOCREngineFactory(f.factory))
	env := host.NewHeap()

	h := b.TesseractCreate("", "eng")
	if h == 0 {
		t.Fatal("TesseractCreate returned 0")
	}
	if !setBlankFrame(b, h, 100, 100) {
		t.Fatal("SetFrame on a blank image failed")
	}
	b.TesseractSetPageSegMode(h, 6)
	if got := f.created[0].mode; got != ocr.PSMSingleBlock {
		t.Errorf("mode = %v", got)
	}

	ref := b.TesseractGetWordBoxes(env, h)
	if ref == host.Null {
		t.Fatal("GetWordBoxes returned null for a blank image")
	}
	v, _ := env.Resolve(ref)
	if words := v.([]any); len(words) != 0 {
		t.Errorf("got %d words, want 0", len(words))
	}

	b.TesseractDestroy(h)
	if n := f.created[0].closes.Load(); n != 1 {
		t.Errorf("engine closed %d times", n)
	}
}

func TestOCRWordBoxes(t *testing.T) {
	f := &engines{boxes: []ocr.Box{
		{Text: "hello", Rect: ocr.Rect{Left: 1, Top: 1, Right: 30, Bottom: 10}, Confidence: 91, Block: 1, Para: 1, Line: 1, Word: 1},
		{Text: "world", Rect: ocr.Rect{Left: 35, Top: 1, Right: 60, Bottom: 10}, Confidence: 88, Block: 1, Para: 1, Line: 1, Word: 2},
		{Text: "next", Rect: ocr.Rect{Left: 1, Top: 20, Right: 20, Bottom: 30}, Confidence: 75, Block: 1, Para: 2, Line: 1, Word: 1},
	}}
	b, _ := newTestBridge(t, WithOCREngineFactory(f.factory))
	env := host.NewHeap()

	h := b.TesseractCreate("/tessdata", "eng")
	setBlankFrame(b, h, 64, 32)
	v, err := env.Resolve(b.TesseractGetWordBoxes(env, h))
	if err != nil {
		t.Fatal(err)
	}
	words := v.([]any)
	if len(words) != 3 {
		t.Fatalf("got %d words", len(words))
	}
	type flags struct{ begin, endLine, endPara bool }
	want := []flags{{true, false, false}, {false, true, true}, {true, true, true}}
	for i, w := range words {
		o := w.(*host.Object)
		got := flags{
			o.Get("is-at-beginning-of-para").(bool),
			o.Get("end-line").(bool),
			o.Get("end-para").(bool),
		}
		if got != want[i] {
			t.Errorf("word %d (%v) flags = %+v, want %+v", i, o.Get("text"), got, want[i])
		}
	}
}

func TestOCRCreateDefaults(t *testing.T) {
	lenient := &engines{}
	b, _ := newTestBridge(t, WithOCREngineFactory(lenient.factory))
	if h := b.TesseractCreate("", ""); h == 0 {
		t.Error("create with defaults failed on an engine that accepts them")
	}

	strict := &engines{strict: true}
	b2, rec := newTestBridge(t, WithOCREngineFactory(strict.factory))
	if h := b2.TesseractCreate("", ""); h != 0 {
		t.Errorf("create = %v on an engine that rejects defaults", h)
	}
	if len(rec.Filter(TagTesseract, logging.Error)) == 0 {
		t.Error("construction failure not logged")
	}
}

func TestOCRCreateWithoutFactory(t *testing.T) {
	b, _ := newTestBridge(t)
	if h := b.TesseractCreate("/tessdata", "eng"); h != 0 {
		t.Errorf("create = %v without an engine factory", h)
	}
}

func TestOCRFailedFrameDegradesSession(t *testing.T) {
	f := &engines{}
	b, rec := newTestBridge(t, WithOCREngineFactory(f.factory))
	env := host.NewHeap()

	h := b.TesseractCreate("/tessdata", "eng")
	f.created[0].frameErr = stderrors.New("pix allocation failed")
	if setBlankFrame(b, h, 8, 8) {
		t.Fatal("SetFrame succeeded")
	}
	if ref := b.TesseractGetWordBoxes(env, h); ref != host.Null {
		t.Errorf("GetWordBoxes on a degraded session = %v", ref)
	}
	if setBlankFrame(b, h, 8, 8) {
		t.Error("SetFrame on a degraded session succeeded")
	}
	if !rec.Contains(TagTesseract, "engine is unavailable") {
		t.Error("degraded access not logged")
	}

	b.TesseractDestroy(h)
	if b.Live() != 0 {
		t.Errorf("Live = %d", b.Live())
	}
}

func TestOCRInvalidFrame(t *testing.T) {
	f := &engines{}
	b, _ := newTestBridge(t, WithOCREngineFactory(f.factory))
	h := b.TesseractCreate("/tessdata", "eng")

	if b.TesseractSetFrame(h, make([]byte, 10), 100, 100, 4, 400) {
		t.Error("SetFrame accepted a short buffer")
	}
	// Validation failures happen before the engine is consumed.
	if !setBlankFrame(b, h, 8, 8) {
		t.Error("session unusable after a rejected frame")
	}
}

func TestDoubleDestroyIsLogged(t *testing.T) {
	f := &engines{}
	b, rec := newTestBridge(t, WithOCREngineFactory(f.factory))

	h := b.TesseractCreate("/tessdata", "eng")
	b.TesseractDestroy(h)
	b.TesseractDestroy(h)

	if n := f.created[0].closes.Load(); n != 1 {
		t.Errorf("engine closed %d times", n)
	}
	if !rec.Contains(TagTesseract, "double close") {
		t.Error("double destroy not logged")
	}
	if setBlankFrame(b, h, 4, 4) {
		t.Error("stale handle accepted")
	}
}

func TestForeignHandleRejected(t *testing.T) {
	f := &engines{}
	b, rec := newTestBridge(t, WithOCREngineFactory(f.factory))
	env := host.NewHeap()

	ocrHandle := b.TesseractCreate("/tessdata", "eng")
	if ref := b.TarkkaLookup(env, ocrHandle, "run"); ref != host.Null {
		t.Errorf("dictionary lookup through an OCR handle = %v", ref)
	}
	b.MucabClose(ocrHandle)
	if b.Live() != 1 {
		t.Fatal("foreign close released the OCR session")
	}
	if !rec.Contains(TagMucab, "not live") {
		t.Error("foreign close not logged")
	}
}

func TestMucabScenario(t *testing.T) {
	b, _ := newTestBridge(t)
	env := host.NewHeap()

	h := b.MucabOpen(writeTransliteration(t))
	if h == 0 {
		t.Fatal("MucabOpen returned 0")
	}
	tests := []struct {
		in     string
		spaced bool
		want   string
	}{
		{"日本語です", true, "nihongo desu"},
		{"日本語です", false, "nihongodesu"},
		{"本屋", false, "hon'ya"},
		{"", true, ""},
	}
	for _, tt := range tests {
		ref := b.MucabTransliterateJP(env, h, tt.in, tt.spaced)
		if ref == host.Null {
			t.Fatalf("transliterate(%q) returned null", tt.in)
		}
		v, _ := env.Resolve(ref)
		if v != tt.want {
			t.Errorf("transliterate(%q, %v) = %q, want %q", tt.in, tt.spaced, v, tt.want)
		}
	}

	if ref := b.MucabTransliterateJP(env, h, "bad\xfftext", true); ref != host.Null {
		t.Error("invalid utf8 text was transliterated")
	}

	b.MucabClose(h)
	if ref := b.MucabTransliterateJP(env, h, "日本", true); ref != host.Null {
		t.Error("transliterate on a closed handle succeeded")
	}
}

func TestMucabOpenFailure(t *testing.T) {
	b, _ := newTestBridge(t)
	if h := b.MucabOpen("/nonexistent/mucab.tsv"); h != 0 {
		t.Errorf("MucabOpen = %v", h)
	}
}

func TestCloseReleasesEverything(t *testing.T) {
	f := &engines{}
	var buf bytes.Buffer
	b := New(WithOCREngineFactory(f.factory), WithLogger(logging.New(logging.NewWriterSink(&buf))))

	b.TesseractCreate("/tessdata", "eng")
	b.TesseractCreate("/tessdata", "jpn")
	b.TarkkaOpen(writeDictionary(t))
	b.MucabOpen(writeTransliteration(t))
	if b.Live() != 4 {
		t.Fatalf("Live = %d", b.Live())
	}

	if err := b.Close(); err != nil {
		t.Fatal(err)
	}
	if b.Live() != 0 {
		t.Errorf("Live = %d after Close", b.Live())
	}
	for i, e := range f.created {
		if e.closes.Load() != 1 {
			t.Errorf("engine %d closed %d times", i, e.closes.Load())
		}
	}
	if h := b.TarkkaOpen(writeDictionary(t)); h != 0 {
		t.Error("open succeeded on a closed bridge")
	}
	if !bytes.Contains(buf.Bytes(), []byte("I/"+TagTesseract+": Create called")) {
		t.Errorf("log output missing tagged lines:\n%s", buf.String())
	}
}
