package ocr

import "fmt"

// PageSegMode selects how the engine partitions a page into text regions.
type PageSegMode int32

const (
	PSMOSDOnly PageSegMode = iota
	PSMAutoOSD
	PSMAutoOnly
	PSMAuto
	PSMSingleColumn
	PSMSingleBlockVertText
	PSMSingleBlock
	PSMSingleLine
	PSMSingleWord
	PSMCircleWord
	PSMSingleChar
	PSMSparseText
	PSMSparseTextOSD
	PSMRawLine
)

var psmNames = [...]string{
	PSMOSDOnly:             "OSD_ONLY",
	PSMAutoOSD:             "AUTO_OSD",
	PSMAutoOnly:            "AUTO_ONLY",
	PSMAuto:                "AUTO",
	PSMSingleColumn:        "SINGLE_COLUMN",
	PSMSingleBlockVertText: "SINGLE_BLOCK_VERT_TEXT",
	PSMSingleBlock:         "SINGLE_BLOCK",
	PSMSingleLine:          "SINGLE_LINE",
	PSMSingleWord:          "SINGLE_WORD",
	PSMCircleWord:          "CIRCLE_WORD",
	PSMSingleChar:          "SINGLE_CHAR",
	PSMSparseText:          "SPARSE_TEXT",
	PSMSparseTextOSD:       "SPARSE_TEXT_OSD",
	PSMRawLine:             "RAW_LINE",
}

func (m PageSegMode) String() string {
	if m.Valid() {
		return psmNames[m]
	}
	return fmt.Sprintf("PSM(%d)", int32(m))
}

// Valid reports whether m is a known mode.
func (m PageSegMode) Valid() bool {
	return m >= PSMOSDOnly && m <= PSMRawLine
}

// PageSegModeFromCode maps a wire code onto a mode. Unknown codes select
// PSMAuto so a bad argument never fails the call.
func PageSegModeFromCode(code int32) PageSegMode {
	m := PageSegMode(code)
	if !m.Valid() {
		return PSMAuto
	}
	return m
}
