// Package translit turns Japanese text into Hepburn romaji.
//
// A Dictionary maps surface forms (usually kanji compounds) to kana
// readings. Transliterate segments input greedily by the longest
// dictionary match, romanizes readings and kana runs, and passes every
// other character through.
package translit

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/wippyai/translator-bridge/errors"
)

type trieNode struct {
	children map[rune]*trieNode
	reading  string
	terminal bool
}

// Dictionary is an immutable surface-to-reading map.
type Dictionary struct {
	root  *trieNode
	size  int
	depth int
}

// Load reads a dictionary from a UTF-8 file of "surface<TAB>reading"
// lines. Blank lines and lines starting with '#' are ignored.
func Load(path string) (*Dictionary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseLoad, errors.KindConstruction, err, "open "+path)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads a dictionary from r. See Load for the format.
func Parse(r io.Reader) (*Dictionary, error) {
	d := &Dictionary{root: &trieNode{}}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)

	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimRight(sc.Text(), "\r")
		if line == 1 {
			text = strings.TrimPrefix(text, "\ufeff")
		}
		if strings.TrimSpace(text) == "" || strings.HasPrefix(text, "#") {
			continue
		}
		if !utf8.ValidString(text) {
			return nil, errors.InvalidUTF8(errors.PhaseLoad, fmt.Sprintf("line %d", line), []byte(text))
		}
		surface, reading, ok := strings.Cut(text, "\t")
		surface = strings.TrimSpace(surface)
		reading = strings.TrimSpace(reading)
		if !ok || surface == "" || reading == "" || strings.Contains(reading, "\t") {
			return nil, errors.InvalidData(errors.PhaseLoad, []string{fmt.Sprintf("line %d", line)},
				"expected surface<TAB>reading")
		}
		d.add(surface, reading)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(errors.PhaseLoad, errors.KindInvalidData, err, "read dictionary")
	}
	if d.size == 0 {
		return nil, errors.InvalidData(errors.PhaseLoad, nil, "dictionary has no entries")
	}
	return d, nil
}

// New builds a dictionary from a map of surface forms to readings.
func New(entries map[string]string) *Dictionary {
	d := &Dictionary{root: &trieNode{}}
	for s, r := range entries {
		if s != "" && r != "" {
			d.add(s, r)
		}
	}
	return d
}

// add inserts surface unless it is already present.
func (d *Dictionary) add(surface, reading string) {
	n := d.root
	depth := 0
	for _, r := range surface {
		depth++
		if n.children == nil {
			n.children = make(map[rune]*trieNode)
		}
		next, ok := n.children[r]
		if !ok {
			next = &trieNode{}
			n.children[r] = next
		}
		n = next
	}
	if n.terminal {
		return
	}
	n.terminal = true
	n.reading = reading
	d.size++
	if depth > d.depth {
		d.depth = depth
	}
}

// Len returns the number of entries.
func (d *Dictionary) Len() int { return d.size }

// Reading returns the reading recorded for surface.
func (d *Dictionary) Reading(surface string) (string, bool) {
	n := d.root
	for _, r := range surface {
		next, ok := n.children[r]
		if !ok {
			return "", false
		}
		n = next
	}
	return n.reading, n.terminal
}

// match returns the rune length and reading of the longest entry that
// prefixes runes.
func (d *Dictionary) match(runes []rune) (int, string) {
	if d == nil {
		return 0, ""
	}
	n := d.root
	best, reading := 0, ""
	for i, r := range runes {
		next, ok := n.children[r]
		if !ok {
			break
		}
		n = next
		if n.terminal {
			best, reading = i+1, n.reading
		}
	}
	return best, reading
}
