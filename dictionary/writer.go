package dictionary

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"
	"unicode/utf8"

	"github.com/wippyai/translator-bridge/errors"
)

// Write encodes words as a dictionary file. Keys must be unique,
// non-empty valid UTF-8.
func Write(w io.Writer, version uint16, created time.Time, words []Word) error {
	sorted := make([]*Word, len(words))
	for i := range words {
		sorted[i] = &words[i]
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Word < sorted[j].Word })

	payloads := make([][]byte, len(sorted))
	indexSize := uint64(0)
	for i, wd := range sorted {
		switch {
		case wd.Word == "":
			return errors.InvalidInput(errors.PhaseLoad, fmt.Sprintf("word %d has an empty key", i))
		case len(wd.Word) > maxKeyLen:
			return errors.InvalidInput(errors.PhaseLoad, fmt.Sprintf("key %.32q... too long", wd.Word))
		case !utf8.ValidString(wd.Word):
			return errors.InvalidUTF8(errors.PhaseLoad, "key", []byte(wd.Word))
		case i > 0 && sorted[i-1].Word == wd.Word:
			return errors.InvalidInput(errors.PhaseLoad, fmt.Sprintf("duplicate key %q", wd.Word))
		case !wd.Tag.Valid():
			return errors.InvalidInput(errors.PhaseLoad, fmt.Sprintf("key %q has invalid tag %d", wd.Word, wd.Tag))
		}
		p, err := json.Marshal(wd)
		if err != nil {
			return errors.Wrap(errors.PhaseLoad, errors.KindInvalidData, err, "encode "+wd.Word)
		}
		payloads[i] = p
		indexSize += uint64(recordFixed + len(wd.Word))
	}

	bw := bufio.NewWriter(w)
	var hdr [headerSize]byte
	copy(hdr[0:4], Magic)
	binary.LittleEndian.PutUint16(hdr[4:6], version)
	binary.LittleEndian.PutUint64(hdr[8:16], uint64(created.Unix()))
	binary.LittleEndian.PutUint32(hdr[16:20], uint32(len(sorted)))
	if _, err := bw.Write(hdr[:]); err != nil {
		return err
	}

	offset := uint64(headerSize) + indexSize
	var rec [recordFixed]byte
	for i, wd := range sorted {
		binary.LittleEndian.PutUint16(rec[0:2], uint16(len(wd.Word)))
		binary.LittleEndian.PutUint64(rec[2:10], offset)
		binary.LittleEndian.PutUint32(rec[10:14], uint32(len(payloads[i])))
		if _, err := bw.Write(rec[0:2]); err != nil {
			return err
		}
		if _, err := bw.WriteString(wd.Word); err != nil {
			return err
		}
		if _, err := bw.Write(rec[2:]); err != nil {
			return err
		}
		offset += uint64(len(payloads[i]))
	}
	for _, p := range payloads {
		if _, err := bw.Write(p); err != nil {
			return err
		}
	}
	return bw.Flush()
}
