// Package dictionary reads and writes tarkka dictionary files.
//
// A file is a fixed header, a sorted key index and a region of JSON
// payloads. Open reads the header and index; payloads are read from the
// underlying io.ReaderAt only when a word is looked up.
//
//	magic    "TRKK"
//	version  u16
//	reserved u16
//	created  i64 unix seconds
//	count    u32
//	index    count × (u16 key length, key bytes, u64 offset, u32 length)
//	payloads
//
// All integers are little-endian. Index records are sorted by key bytes.
package dictionary

import (
	"fmt"
	"strings"

	"github.com/wippyai/translator-bridge/errors"
)

// Tag says which kinds of entries a word carries.
type Tag int32

const (
	TagMonolingual Tag = 1
	TagEnglish     Tag = 2
	TagBoth        Tag = 3
)

func (t Tag) String() string {
	switch t {
	case TagMonolingual:
		return "monolingual"
	case TagEnglish:
		return "english"
	case TagBoth:
		return "both"
	default:
		return fmt.Sprintf("tag(%d)", int32(t))
	}
}

// Valid reports whether t is a known tag.
func (t Tag) Valid() bool {
	return t >= TagMonolingual && t <= TagBoth
}

// POS is a part of speech.
type POS uint8

const (
	POSUnknown POS = iota
	POSNoun
	POSVerb
	POSAdjective
	POSAdverb
	POSPronoun
	POSPreposition
	POSConjunction
	POSInterjection
	POSArticle
	POSDeterminer
	POSNumeral
	POSParticle
	POSPrefix
	POSSuffix
	POSPhrase
	POSProverb
	POSProperNoun
	POSAbbreviation
	POSSymbol
)

var posNames = [...]string{
	POSUnknown:      "unknown",
	POSNoun:         "noun",
	POSVerb:         "verb",
	POSAdjective:    "adj",
	POSAdverb:       "adv",
	POSPronoun:      "pron",
	POSPreposition:  "prep",
	POSConjunction:  "conj",
	POSInterjection: "intj",
	POSArticle:      "article",
	POSDeterminer:   "det",
	POSNumeral:      "num",
	POSParticle:     "particle",
	POSPrefix:       "prefix",
	POSSuffix:       "suffix",
	POSPhrase:       "phrase",
	POSProverb:      "proverb",
	POSProperNoun:   "name",
	POSAbbreviation: "abbrev",
	POSSymbol:       "symbol",
}

func (p POS) String() string {
	if int(p) < len(posNames) {
		return posNames[p]
	}
	return fmt.Sprintf("pos(%d)", uint8(p))
}

// ParsePOS parses a part-of-speech name.
func ParsePOS(s string) (POS, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range posNames {
		if name == s {
			return POS(i), nil
		}
	}
	return POSUnknown, errors.InvalidData(errors.PhaseLookup, []string{"pos"},
		fmt.Sprintf("unknown part of speech %q", s))
}

func (p POS) MarshalText() ([]byte, error) {
	if int(p) >= len(posNames) {
		return nil, errors.InvalidData(errors.PhaseLookup, []string{"pos"},
			fmt.Sprintf("unknown part of speech %d", uint8(p)))
	}
	return []byte(posNames[p]), nil
}

func (p *POS) UnmarshalText(b []byte) error {
	v, err := ParsePOS(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Word is a dictionary headword with all of its entries.
type Word struct {
	// Sounds is nil when no pronunciation is recorded.
	Sounds       *string  `json:"sounds,omitempty"`
	Word         string   `json:"-"`
	Entries      []Entry  `json:"entries"`
	Hyphenations []string `json:"hyphenations,omitempty"`
	Redirects    []string `json:"redirects,omitempty"`
	Tag          Tag      `json:"tag"`
}

// Entry is one etymology or usage block of a word.
type Entry struct {
	Senses []Sense `json:"senses"`
}

// Sense groups glosses under a part of speech.
type Sense struct {
	Glosses []Gloss `json:"glosses"`
	POS     POS     `json:"pos"`
}

// Gloss is one definition, possibly spanning several lines.
type Gloss struct {
	Lines []string `json:"lines"`
}
