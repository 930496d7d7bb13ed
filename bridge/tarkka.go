package bridge

import (
	stderrors "errors"

	"github.com/wippyai/translator-bridge/dictionary"
	"github.com/wippyai/translator-bridge/errors"
	"github.com/wippyai/translator-bridge/host"
	"github.com/wippyai/translator-bridge/marshal"
	"go.uber.org/zap"
)

// LookupStatus distinguishes the outcomes that TarkkaLookup folds into
// a single null.
type LookupStatus int

const (
	LookupFound LookupStatus = iota
	LookupNotFound
	LookupFailed
)

func (s LookupStatus) String() string {
	switch s {
	case LookupFound:
		return "found"
	case LookupNotFound:
		return "not_found"
	default:
		return "failed"
	}
}

// TarkkaOpen opens a dictionary file. Returns 0 on failure.
func (b *Bridge) TarkkaOpen(path string) Handle {
	log := b.tarkkaLog
	if !checkString(log, "path", path) {
		return 0
	}

	r, err := b.openDictionary(path)
	if err != nil {
		log.Error("Failed to open dictionary", zap.String("path", path), zap.Error(err))
		return 0
	}
	log.Debug("Dictionary opened",
		zap.Uint16("version", r.Version()),
		zap.Time("created", r.CreatedAt()))

	s := &tarkkaSession{reader: r}
	h := b.tarkka.Insert(s)
	if h == 0 {
		s.Drop()
		log.Error("Bridge is closed, dictionary released")
		return 0
	}
	return h
}

// TarkkaLookup looks word up and returns a WordWithTaggedEntries, or
// host.Null when the word is absent or the lookup failed.
func (b *Bridge) TarkkaLookup(env host.Env, h Handle, word string) host.Ref {
	ref, _ := b.TarkkaLookupStatus(env, h, word)
	return ref
}

// TarkkaLookupStatus is TarkkaLookup with the outcome made explicit.
func (b *Bridge) TarkkaLookupStatus(env host.Env, h Handle, word string) (host.Ref, LookupStatus) {
	log := b.tarkkaLog
	if h == 0 {
		log.Debug("Lookup: handle is 0, returning null")
		return host.Null, LookupFailed
	}
	if !checkString(log, "word", word) {
		return host.Null, LookupFailed
	}
	s, ok := b.tarkka.Get(h)
	if !ok {
		invalidHandle(log, errors.PhaseLookup, "Lookup", h)
		return host.Null, LookupFailed
	}

	log.Debug("Looking up word", zap.String("word", word))
	w, err := s.reader.Lookup(word)
	switch {
	case stderrors.Is(err, dictionary.ErrNotFound):
		log.Debug("Word not found in dictionary", zap.String("word", word))
		return host.Null, LookupNotFound
	case err != nil:
		log.Error("Lookup error", zap.String("word", word), zap.Error(err))
		return host.Null, LookupFailed
	}

	ref, err := marshal.Word(env, w)
	if err != nil {
		log.Error("Failed to build word object", zap.String("word", word), zap.Error(err))
		return host.Null, LookupFailed
	}
	log.Debug("Found word", zap.String("word", word), zap.Int("entries", len(w.Entries)))
	return ref, LookupFound
}

// TarkkaClose closes the dictionary.
func (b *Bridge) TarkkaClose(h Handle) {
	release(b.tarkka, b.tarkkaLog, h)
}
