package bridge

import (
	"time"

	"github.com/wippyai/translator-bridge/dictionary"
	"github.com/wippyai/translator-bridge/ocr"
	"github.com/wippyai/translator-bridge/translit"
	"go.uber.org/zap"
)

// Component log tags.
const (
	TagTesseract = "TesseractNative"
	TagTarkka    = "TarkkaNative"
	TagMucab     = "MucabNative"
)

// DictionaryReader is an open tarkka dictionary.
type DictionaryReader interface {
	Version() uint16
	CreatedAt() time.Time
	Lookup(word string) (*dictionary.Word, error)
	Close() error
}

// DictionaryOpener opens the dictionary at path.
type DictionaryOpener func(path string) (DictionaryReader, error)

// TransliterationLoader loads a transliteration dictionary from path.
type TransliterationLoader func(path string) (*translit.Dictionary, error)

// Option configures a Bridge.
type Option func(*Bridge)

// WithLogger sets the root logger. Components log through children named
// after their tags.
func WithLogger(l *zap.Logger) Option {
	return func(b *Bridge) {
		if l != nil {
			b.log = l
		}
	}
}

// WithOCREngineFactory sets the OCR engine constructor. Without one,
// TesseractCreate always fails.
func WithOCREngineFactory(f ocr.EngineFactory) Option {
	return func(b *Bridge) { b.ocrFactory = f }
}

// WithDictionaryOpener replaces the tarkka file opener.
func WithDictionaryOpener(f DictionaryOpener) Option {
	return func(b *Bridge) {
		if f != nil {
			b.openDictionary = f
		}
	}
}

// WithTransliterationLoader replaces the mucab dictionary loader.
func WithTransliterationLoader(f TransliterationLoader) Option {
	return func(b *Bridge) {
		if f != nil {
			b.loadTransliteration = f
		}
	}
}

func openDictionaryFile(path string) (DictionaryReader, error) {
	r, err := dictionary.OpenFile(path)
	if err != nil {
		return nil, err
	}
	return r, nil
}
