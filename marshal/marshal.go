// Package marshal converts bridge results into host object graphs.
//
// Construction is depth-first and bottom-up: leaf strings first, then the
// lists that hold them, then the objects that take those lists. The first
// failing host call aborts the whole conversion and no root reference is
// returned. Values built before the failure are never linked into a root
// and carry no native resources, so abandoning them leaks nothing.
package marshal

import (
	"fmt"
	"math"

	"github.com/wippyai/translator-bridge/dictionary"
	"github.com/wippyai/translator-bridge/errors"
	"github.com/wippyai/translator-bridge/host"
	"github.com/wippyai/translator-bridge/ocr"
)

// String converts s to a host string.
func String(env host.Env, s string) (host.Ref, error) {
	return env.NewString(s)
}

// Strings converts ss to a host list of strings, preserving order.
func Strings(env host.Env, ss []string) (host.Ref, error) {
	return list(env, len(ss), func(i int) (host.Ref, error) {
		return env.NewString(ss[i])
	})
}

// DetectedWords converts recognized words to a host list of DetectedWord.
func DetectedWords(env host.Env, words []ocr.DetectedWord) (host.Ref, error) {
	return list(env, len(words), func(i int) (host.Ref, error) {
		return DetectedWord(env, words[i])
	})
}

// DetectedWord converts one recognized word.
func DetectedWord(env host.Env, w ocr.DetectedWord) (host.Ref, error) {
	text, err := env.NewString(w.Text)
	if err != nil {
		return host.Null, errors.WithPath(err, "text")
	}
	return env.NewObject(host.DetectedWord,
		host.Obj(text),
		host.Int(w.Box.Left),
		host.Int(w.Box.Top),
		host.Int(w.Box.Right),
		host.Int(w.Box.Bottom),
		host.Float(confidence(w.Confidence)),
		host.Bool(w.IsAtBeginningOfPara),
		host.Bool(w.EndLine),
		host.Bool(w.EndPara),
	)
}

// confidence keeps NaN out of host floats.
func confidence(c float32) float32 {
	if math.IsNaN(float64(c)) {
		return 0
	}
	return c
}

// Word converts a dictionary word to a WordWithTaggedEntries tree.
// An absent pronunciation becomes null; a present one, even empty, a string.
func Word(env host.Env, w *dictionary.Word) (host.Ref, error) {
	if w == nil {
		return host.Null, errors.InvalidInput(errors.PhaseMarshal, "nil word")
	}

	entries, err := list(env, len(w.Entries), func(i int) (host.Ref, error) {
		return entry(env, &w.Entries[i])
	})
	if err != nil {
		return host.Null, errors.WithPath(err, "entries")
	}

	word, err := env.NewString(w.Word)
	if err != nil {
		return host.Null, errors.WithPath(err, "word")
	}

	sounds := host.NullValue()
	if w.Sounds != nil {
		ref, err := env.NewString(*w.Sounds)
		if err != nil {
			return host.Null, errors.WithPath(err, "sounds")
		}
		sounds = host.Value{Kind: host.KindRef, Ref: ref}
	}

	hyph, err := Strings(env, w.Hyphenations)
	if err != nil {
		return host.Null, errors.WithPath(err, "hyphenations")
	}
	redirects, err := Strings(env, w.Redirects)
	if err != nil {
		return host.Null, errors.WithPath(err, "redirects")
	}

	return env.NewObject(host.WordWithTaggedEntries,
		host.Obj(word),
		host.Int(int32(w.Tag)),
		host.Obj(entries),
		sounds,
		host.Obj(hyph),
		host.Obj(redirects),
	)
}

func entry(env host.Env, e *dictionary.Entry) (host.Ref, error) {
	senses, err := list(env, len(e.Senses), func(i int) (host.Ref, error) {
		return sense(env, &e.Senses[i])
	})
	if err != nil {
		return host.Null, errors.WithPath(err, "senses")
	}
	return env.NewObject(host.WordEntryComplete, host.Obj(senses))
}

func sense(env host.Env, s *dictionary.Sense) (host.Ref, error) {
	pos, err := env.NewString(s.POS.String())
	if err != nil {
		return host.Null, errors.WithPath(err, "pos")
	}
	glosses, err := list(env, len(s.Glosses), func(i int) (host.Ref, error) {
		return gloss(env, &s.Glosses[i])
	})
	if err != nil {
		return host.Null, errors.WithPath(err, "glosses")
	}
	return env.NewObject(host.Sense, host.Obj(pos), host.Obj(glosses))
}

func gloss(env host.Env, g *dictionary.Gloss) (host.Ref, error) {
	lines, err := Strings(env, g.Lines)
	if err != nil {
		return host.Null, errors.WithPath(err, "gloss-lines")
	}
	return env.NewObject(host.Gloss, host.Obj(lines))
}

// list builds n items, then a host list holding them in order.
func list(env host.Env, n int, item func(i int) (host.Ref, error)) (host.Ref, error) {
	refs := make([]host.Ref, n)
	for i := range refs {
		ref, err := item(i)
		if err != nil {
			return host.Null, errors.WithPath(err, fmt.Sprintf("[%d]", i))
		}
		refs[i] = ref
	}

	l, err := env.NewList()
	if err != nil {
		return host.Null, err
	}
	for i, ref := range refs {
		if err := env.Append(l, ref); err != nil {
			return host.Null, errors.WithPath(err, fmt.Sprintf("[%d]", i))
		}
	}
	return l, nil
}
