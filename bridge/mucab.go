package bridge

import (
	"github.com/wippyai/translator-bridge/errors"
	"github.com/wippyai/translator-bridge/host"
	"github.com/wippyai/translator-bridge/marshal"
	"github.com/wippyai/translator-bridge/translit"
	"go.uber.org/zap"
)

// MucabOpen loads a transliteration dictionary. Returns 0 on failure.
func (b *Bridge) MucabOpen(path string) Handle {
	log := b.mucabLog
	if !checkString(log, "path", path) {
		return 0
	}

	dict, err := b.loadTransliteration(path)
	if err != nil {
		log.Error("Failed to load dictionary", zap.String("path", path), zap.Error(err))
		return 0
	}
	h := b.mucab.Insert(&mucabSession{dict: dict})
	if h == 0 {
		log.Error("Bridge is closed, dictionary released")
		return 0
	}
	log.Debug("Dictionary loaded", zap.String("path", path), zap.Int("entries", dict.Len()))
	return h
}

// MucabTransliterateJP returns text in romaji as a host string, or
// host.Null if h is not a live dictionary or text cannot be converted.
func (b *Bridge) MucabTransliterateJP(env host.Env, h Handle, text string, spaced bool) host.Ref {
	log := b.mucabLog
	if h == 0 {
		log.Debug("TransliterateJP: handle is 0, returning null")
		return host.Null
	}
	if !checkString(log, "text", text) {
		return host.Null
	}
	s, ok := b.mucab.Get(h)
	if !ok {
		invalidHandle(log, errors.PhaseTransliterate, "TransliterateJP", h)
		return host.Null
	}

	log.Debug("TransliterateJP started", zap.Int("input_len", len(text)), zap.Bool("spaced", spaced))
	out := translit.Transliterate(text, s.dict, spaced)
	log.Debug("TransliterateJP finished", zap.Int("result_len", len(out)))

	ref, err := marshal.String(env, out)
	if err != nil {
		log.Error("Failed to create result string", zap.Error(err))
		return host.Null
	}
	return ref
}

// MucabClose releases the dictionary.
func (b *Bridge) MucabClose(h Handle) {
	release(b.mucab, b.mucabLog, h)
}
