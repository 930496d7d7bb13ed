package dictionary

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/wippyai/translator-bridge/errors"
	"golang.org/x/text/cases"
)

const (
	Magic          = "TRKK"
	CurrentVersion = 1
	headerSize     = 20

	maxWords     = 1 << 24
	maxKeyLen    = 1<<16 - 1
	maxPayload   = 16 << 20
	recordFixed  = 2 + 8 + 4
)

// ErrNotFound is returned by Lookup when the word is absent.
var ErrNotFound = errors.ErrNotFound

type indexEntry struct {
	key    string
	offset uint64
	length uint32
}

// Reader looks words up in a dictionary file.
// Lookups may run concurrently when the underlying ReaderAt allows it.
type Reader struct {
	r       io.ReaderAt
	closer  io.Closer
	created time.Time
	index   []indexEntry
	folded  map[string]int
	closed  atomic.Bool
	version uint16
}

// Open reads the header and index from r.
func Open(r io.ReaderAt) (*Reader, error) {
	var hdr [headerSize]byte
	if _, err := r.ReadAt(hdr[:], 0); err != nil {
		return nil, errors.Wrap(errors.PhaseOpen, errors.KindInvalidData, err, "read header")
	}
	if string(hdr[0:4]) != Magic {
		return nil, errors.InvalidData(errors.PhaseOpen, []string{"header", "magic"},
			fmt.Sprintf("bad magic %q", hdr[0:4]))
	}

	version := binary.LittleEndian.Uint16(hdr[4:6])
	if version == 0 || version > CurrentVersion {
		return nil, errors.New(errors.PhaseOpen, errors.KindUnsupported).
			Path("header", "version").
			Value(version).
			Detail("unsupported dictionary version %d", version).
			Build()
	}
	created := int64(binary.LittleEndian.Uint64(hdr[8:16]))
	count := binary.LittleEndian.Uint32(hdr[16:20])
	if count > maxWords {
		return nil, errors.InvalidData(errors.PhaseOpen, []string{"header", "count"},
			fmt.Sprintf("word count %d exceeds limit", count))
	}

	br := bufio.NewReader(io.NewSectionReader(r, headerSize, 1<<62))
	index := make([]indexEntry, 0, count)
	var rec [recordFixed]byte
	for i := uint32(0); i < count; i++ {
		if _, err := io.ReadFull(br, rec[:2]); err != nil {
			return nil, indexErr(i, err)
		}
		klen := binary.LittleEndian.Uint16(rec[:2])
		key := make([]byte, klen)
		if _, err := io.ReadFull(br, key); err != nil {
			return nil, indexErr(i, err)
		}
		if _, err := io.ReadFull(br, rec[2:]); err != nil {
			return nil, indexErr(i, err)
		}
		e := indexEntry{
			key:    string(key),
			offset: binary.LittleEndian.Uint64(rec[2:10]),
			length: binary.LittleEndian.Uint32(rec[10:14]),
		}
		if !utf8.ValidString(e.key) {
			return nil, errors.InvalidUTF8(errors.PhaseOpen, fmt.Sprintf("index[%d]", i), key)
		}
		if n := len(index); n > 0 && index[n-1].key >= e.key {
			return nil, errors.InvalidData(errors.PhaseOpen, []string{"index", fmt.Sprint(i)},
				fmt.Sprintf("key %q out of order", e.key))
		}
		if e.length > maxPayload {
			return nil, errors.InvalidData(errors.PhaseOpen, []string{"index", fmt.Sprint(i)},
				fmt.Sprintf("payload of %d bytes exceeds limit", e.length))
		}
		index = append(index, e)
	}

	rd := &Reader{
		r:       r,
		version: version,
		created: time.Unix(created, 0).UTC(),
		index:   index,
		folded:  make(map[string]int),
	}
	fold := cases.Fold()
	for i, e := range index {
		k := fold.String(e.key)
		if _, dup := rd.folded[k]; !dup {
			rd.folded[k] = i
		}
	}
	return rd, nil
}

func indexErr(i uint32, err error) error {
	return errors.New(errors.PhaseOpen, errors.KindInvalidData).
		Path("index", fmt.Sprint(i)).
		Cause(err).
		Detail("truncated index record").
		Build()
}

// OpenFile opens the dictionary at path. Close releases the file.
func OpenFile(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseOpen, errors.KindConstruction, err, "open "+path)
	}
	r, err := Open(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	r.closer = f
	return r, nil
}

// Version returns the file format version.
func (r *Reader) Version() uint16 { return r.version }

// CreatedAt returns the file creation time.
func (r *Reader) CreatedAt() time.Time { return r.created }

// Len returns the number of headwords.
func (r *Reader) Len() int { return len(r.index) }

// Keys returns headwords starting with prefix, at most limit of them.
// A limit <= 0 means no limit.
func (r *Reader) Keys(prefix string, limit int) []string {
	i := sort.Search(len(r.index), func(i int) bool { return r.index[i].key >= prefix })
	var out []string
	for ; i < len(r.index); i++ {
		k := r.index[i].key
		if len(k) < len(prefix) || k[:len(prefix)] != prefix {
			break
		}
		out = append(out, k)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// Lookup returns the entry for word. An exact match wins; otherwise a
// case-insensitive match is tried. Absent words yield ErrNotFound.
func (r *Reader) Lookup(word string) (*Word, error) {
	if r.closed.Load() {
		return nil, errors.Closed(errors.PhaseLookup, "dictionary")
	}

	i := sort.Search(len(r.index), func(i int) bool { return r.index[i].key >= word })
	if i >= len(r.index) || r.index[i].key != word {
		j, ok := r.folded[cases.Fold().String(word)]
		if !ok {
			return nil, errors.NotFound(errors.PhaseLookup, "word", word)
		}
		i = j
	}
	return r.load(r.index[i])
}

func (r *Reader) load(e indexEntry) (*Word, error) {
	buf := make([]byte, e.length)
	if _, err := r.r.ReadAt(buf, int64(e.offset)); err != nil {
		return nil, errors.New(errors.PhaseLookup, errors.KindInvalidData).
			Path(e.key).
			Cause(err).
			Detail("read payload at %d", e.offset).
			Build()
	}

	w := &Word{}
	if err := json.Unmarshal(buf, w); err != nil {
		return nil, errors.New(errors.PhaseLookup, errors.KindInvalidData).
			Path(e.key).
			Cause(err).
			Detail("decode payload").
			Build()
	}
	if !w.Tag.Valid() {
		return nil, errors.InvalidData(errors.PhaseLookup, []string{e.key, "tag"},
			fmt.Sprintf("invalid tag %d", w.Tag))
	}
	w.Word = e.key
	return w, nil
}

// Close releases the underlying file when the reader owns it.
// Lookups after Close fail.
func (r *Reader) Close() error {
	if r.closed.Swap(true) {
		return nil
	}
	if r.closer != nil {
		return r.closer.Close()
	}
	return nil
}

// Drop implements resource.Dropper.
func (r *Reader) Drop() { _ = r.Close() }
