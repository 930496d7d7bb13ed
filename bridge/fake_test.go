package bridge

import (
	"bytes"
	stderrors "errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/wippyai/translator-bridge/dictionary"
	"github.com/wippyai/translator-bridge/logging"
	"github.com/wippyai/translator-bridge/ocr"
)

type fakeEngine struct {
	boxes    []ocr.Box
	frameErr error
	mode     ocr.PageSegMode
	closes   atomic.Int32
}

func (e *fakeEngine) SetFrame(f ocr.Frame) (ocr.Engine, error) {
	if e.frameErr != nil {
		e.closes.Add(1)
		return nil, e.frameErr
	}
	return e, nil
}

func (e *fakeEngine) SetPageSegMode(mode ocr.PageSegMode) error {
	e.mode = mode
	return nil
}

func (e *fakeEngine) Recognize() (ocr.Engine, error) { return e, nil }

func (e *fakeEngine) Iterator() (ocr.WordIterator, bool) {
	return ocr.NewBoxIterator(e.boxes), true
}

func (e *fakeEngine) Close() error {
	e.closes.Add(1)
	return nil
}

// engines records every engine a factory hands out.
type engines struct {
	created []*fakeEngine
	calls   int
	boxes   []ocr.Box
	strict  bool
}

func (f *engines) factory(datapath, language string) (ocr.Engine, error) {
	f.calls++
	if f.strict && (datapath == "" || language == "") {
		return nil, stderrors.New("datapath and language are required")
	}
	e := &fakeEngine{boxes: f.boxes}
	f.created = append(f.created, e)
	return e, nil
}

func newTestBridge(t *testing.T, opts ...Option) (*Bridge, *logging.Recorder) {
	t.Helper()
	rec := &logging.Recorder{}
	b := New(append([]Option{WithLogger(logging.New(rec))}, opts...)...)
	t.Cleanup(func() { _ = b.Close() })
	return b, rec
}

func writeDictionary(t *testing.T) string {
	t.Helper()
	sounds := "/ɹʌn/"
	words := []dictionary.Word{
		{
			Word:   "run",
			Tag:    dictionary.TagBoth,
			Sounds: &sounds,
			Entries: []dictionary.Entry{{Senses: []dictionary.Sense{
				{POS: dictionary.POSVerb, Glosses: []dictionary.Gloss{{Lines: []string{"To move swiftly on foot."}}}},
			}}},
			Hyphenations: []string{"run"},
		},
		{
			Word:      "dictionary",
			Tag:       dictionary.TagMonolingual,
			Entries:   []dictionary.Entry{{Senses: []dictionary.Sense{{POS: dictionary.POSNoun}}}},
			Redirects: []string{"lexicon"},
		},
	}
	var buf bytes.Buffer
	if err := dictionary.Write(&buf, dictionary.CurrentVersion, time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC), words); err != nil {
		t.Fatalf("Write: %v", err)
	}
	path := filepath.Join(t.TempDir(), "en.trkk")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func writeTransliteration(t *testing.T) string {
	t.Helper()
	data := "# surface\treading\n日本語\tにほんご\n本屋\tほんや\n"
	path := filepath.Join(t.TempDir(), "mucab.tsv")
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func blankFrame(w, h int32) ([]byte, int32, int32, int32, int32) {
	data := bytes.Repeat([]byte{0xff}, int(w*h*4))
	return data, w, h, 4, w * 4
}

// setBlankFrame feeds a white RGBA frame of w×h to the session.
func setBlankFrame(b *Bridge, h Handle, w, ht int32) bool {
	data, fw, fh, bpp, bpl := blankFrame(w, ht)
	return b.TesseractSetFrame(h, data, fw, fh, bpp, bpl)
}
