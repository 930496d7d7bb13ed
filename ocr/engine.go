// Package ocr drives an OCR engine through a consume-and-replace session.
//
// The engine behind a Session is move-only: SetFrame and Recognize take
// the engine out of the session, call it, and put the returned engine
// back. While a call holds the engine the slot is empty, so a second call
// on the same session fails fast instead of observing a half-updated
// engine. A failed consume leaves the slot empty for good.
package ocr

// Level is a page iterator level, outermost first.
type Level int

const (
	LevelBlock Level = iota
	LevelPara
	LevelTextline
	LevelWord
)

func (l Level) String() string {
	switch l {
	case LevelBlock:
		return "block"
	case LevelPara:
		return "para"
	case LevelTextline:
		return "textline"
	case LevelWord:
		return "word"
	default:
		return "level(?)"
	}
}

// Rect is a bounding rectangle in image pixels.
type Rect struct {
	Left, Top, Right, Bottom int32
}

// Word is one recognized word as reported by an iterator.
// Text and Box are optional.
type Word struct {
	Text       string
	Box        Rect
	Confidence float32
	HasText    bool
	HasBox     bool
}

// WordIterator walks recognized words in document order.
type WordIterator interface {
	// Next advances to the next word. It must be called before the first Word.
	Next() bool

	// Word returns the current word.
	Word() Word

	// IsAtBeginningOf reports whether the current word starts an element at level.
	IsAtBeginningOf(level Level) bool

	// IsAtFinalElement reports whether the current element at the element
	// level is the last one inside its enclosing level.
	IsAtFinalElement(level, element Level) bool
}

// Engine is a recognition engine. SetFrame and Recognize consume the
// receiver: on success they return the engine to use from then on, on
// failure the receiver has been released and must not be used again.
type Engine interface {
	SetFrame(f Frame) (Engine, error)
	SetPageSegMode(mode PageSegMode) error
	Recognize() (Engine, error)

	// Iterator returns the result iterator of the last recognition.
	Iterator() (WordIterator, bool)

	Close() error
}

// EngineFactory constructs an engine. Empty strings select the engine's
// default data path and language.
type EngineFactory func(datapath, language string) (Engine, error)

// DetectedWord is a recognized word with its layout flags.
type DetectedWord struct {
	Text                string
	Box                 Rect
	Confidence          float32
	IsAtBeginningOfPara bool
	EndLine             bool
	EndPara             bool
}
