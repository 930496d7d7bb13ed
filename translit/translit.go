package translit

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

type tokenKind uint8

const (
	tokWord tokenKind = iota
	tokKana
	tokPunct
	tokSpace
	tokOther
)

type token struct {
	text  string
	kind  tokenKind
	endsN bool
}

var punctuation = map[rune]string{
	'。': ".", '、': ",", '「': "“", '」': "”", '『': "“", '』': "”",
	'【': "[", '】': "]", '〜': "~", '…': "…", '・': " ",
	'.': ".", ',': ",", '!': "!", '?': "?", ':': ":", ';': ";",
	'(': "(", ')': ")", '[': "[", ']': "]", '{': "{", '}': "}",
	'"': "\"", '\'': "'", '~': "~",
}

const (
	opening = "([{“"
	closing = ".,!?:;)]}”…"
)

// Transliterate renders text in romaji using dict for segmentation and
// readings. With spaced set, tokens are separated by single spaces.
// A nil dict romanizes kana only.
func Transliterate(text string, dict *Dictionary, spaced bool) string {
	runes := []rune(norm.NFC.String(width.Fold.String(text)))
	toks := tokenize(runes, dict)

	var sb strings.Builder
	sb.Grow(len(text))
	var prev *token
	for i := range toks {
		t := &toks[i]
		if t.text == "" {
			continue
		}
		if prev != nil {
			if spaced {
				if needSpace(prev, t) {
					sb.WriteByte(' ')
				}
			} else if prev.endsN && (t.kind == tokWord || t.kind == tokKana) &&
				(isVowel(t.text[0]) || t.text[0] == 'y') {
				sb.WriteByte('\'')
			}
		}
		sb.WriteString(t.text)
		prev = t
	}
	return sb.String()
}

func needSpace(prev, next *token) bool {
	if prev.kind == tokSpace || next.kind == tokSpace {
		return false
	}
	if next.kind == tokPunct && strings.Contains(closing, next.text) {
		return false
	}
	if prev.kind == tokPunct && strings.Contains(opening, prev.text) {
		return false
	}
	return true
}

func tokenize(runes []rune, dict *Dictionary) []token {
	var toks []token
	for i := 0; i < len(runes); {
		if n, reading := dict.match(runes[i:]); n > 0 {
			text, endsN := romanize(reading)
			toks = append(toks, token{kind: tokWord, text: text, endsN: endsN})
			i += n
			continue
		}

		r := runes[i]
		switch {
		case isKana(r):
			j := i + 1
			for j < len(runes) && isKana(runes[j]) {
				if n, _ := dict.match(runes[j:]); n > 0 {
					break
				}
				j++
			}
			text, endsN := romanize(string(runes[i:j]))
			toks = append(toks, token{kind: tokKana, text: text, endsN: endsN})
			i = j
		case punctuation[r] == " ":
			toks = append(toks, token{kind: tokSpace, text: " "})
			i++
		case punctuation[r] != "":
			toks = append(toks, token{kind: tokPunct, text: punctuation[r]})
			i++
		case unicode.IsSpace(r):
			j := i + 1
			for j < len(runes) && unicode.IsSpace(runes[j]) {
				j++
			}
			toks = append(toks, token{kind: tokSpace, text: string(runes[i:j])})
			i = j
		default:
			j := i + 1
			for j < len(runes) && isOther(runes[j]) {
				if n, _ := dict.match(runes[j:]); n > 0 {
					break
				}
				j++
			}
			toks = append(toks, token{kind: tokOther, text: string(runes[i:j])})
			i = j
		}
	}
	return toks
}

func isOther(r rune) bool {
	return !isKana(r) && punctuation[r] == "" && !unicode.IsSpace(r)
}
