// Package bridge is the flat call surface over the OCR, dictionary and
// transliteration sessions.
//
// Every entry point takes primitives and opaque handles and returns a
// primitive, a handle or a host reference. Failures never cross the
// boundary as errors: they are logged under the component's tag and
// collapse to a sentinel (0, host.Null or false). A zero handle is
// always answered with the sentinel without touching any session.
//
// Handles are generational, so a handle used after its close, closed
// twice, or belonging to a different component is rejected and logged
// rather than dereferenced. Callers must still serialize calls on the
// same handle; the OCR session reports a busy error if they do not.
package bridge

import (
	"unicode/utf8"

	"github.com/wippyai/translator-bridge/errors"
	"github.com/wippyai/translator-bridge/ocr"
	"github.com/wippyai/translator-bridge/resource"
	"github.com/wippyai/translator-bridge/translit"
	"go.uber.org/zap"
)

// Handle is an opaque session handle. 0 means no session.
type Handle = resource.Handle

// Bridge owns every live session.
type Bridge struct {
	table     *resource.Table
	tesseract *resource.Typed[*ocr.Session]
	tarkka    *resource.Typed[*tarkkaSession]
	mucab     *resource.Typed[*mucabSession]

	ocrFactory          ocr.EngineFactory
	openDictionary      DictionaryOpener
	loadTransliteration TransliterationLoader

	log       *zap.Logger
	tessLog   *zap.Logger
	tarkkaLog *zap.Logger
	mucabLog  *zap.Logger
}

type tarkkaSession struct {
	reader DictionaryReader
}

func (s *tarkkaSession) Drop() { _ = s.reader.Close() }

type mucabSession struct {
	dict *translit.Dictionary
}

// New creates a bridge.
func New(opts ...Option) *Bridge {
	b := &Bridge{
		table:               resource.NewTable(),
		openDictionary:      openDictionaryFile,
		loadTransliteration: translit.Load,
		log:                 zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}

	b.tesseract = resource.NewTyped[*ocr.Session](b.table, resource.TypeTesseract)
	b.tarkka = resource.NewTyped[*tarkkaSession](b.table, resource.TypeTarkka)
	b.mucab = resource.NewTyped[*mucabSession](b.table, resource.TypeMucab)

	b.tessLog = b.log.Named(TagTesseract)
	b.tarkkaLog = b.log.Named(TagTarkka)
	b.mucabLog = b.log.Named(TagMucab)

	b.table.Subscribe(resource.ObserverFunc(func(e resource.Event) {
		l := b.componentLog(e.TypeID)
		switch e.Type {
		case resource.EventCreated:
			l.Debug("Session created", zap.Stringer("handle", e.Handle))
		case resource.EventDropped:
			l.Debug("Session released", zap.Stringer("handle", e.Handle))
		}
	}))
	return b
}

func (b *Bridge) componentLog(t resource.TypeID) *zap.Logger {
	switch t {
	case resource.TypeTesseract:
		return b.tessLog
	case resource.TypeTarkka:
		return b.tarkkaLog
	case resource.TypeMucab:
		return b.mucabLog
	default:
		return b.log
	}
}

// Live returns the number of open sessions.
func (b *Bridge) Live() int {
	return b.table.Len()
}

// Close releases every live session. Entry points called afterwards
// fail with their sentinel.
func (b *Bridge) Close() error {
	n := b.table.Len()
	if n > 0 {
		b.log.Info("Releasing live sessions", zap.Int("count", n))
	}
	return b.table.Close()
}

// checkString rejects text that cannot cross the boundary as a string.
func checkString(log *zap.Logger, what, s string) bool {
	if utf8.ValidString(s) {
		return true
	}
	err := errors.InvalidUTF8(errors.PhaseBoundary, what, []byte(s))
	log.Error("Failed to convert "+what+" string", zap.Error(err))
	return false
}

// release removes h, logging contract violations.
func release[T any](t *resource.Typed[T], log *zap.Logger, h Handle) {
	if h == 0 {
		return
	}
	if _, ok := t.Remove(h); !ok {
		err := errors.InvalidHandle(errors.PhaseClose, uint64(h))
		log.Error("Close of a handle that is not live: double close or foreign handle", zap.Error(err))
	}
}

func invalidHandle(log *zap.Logger, phase errors.Phase, op string, h Handle) {
	err := errors.InvalidHandle(phase, uint64(h))
	log.Error(op+": handle is not live", zap.Error(err))
}
