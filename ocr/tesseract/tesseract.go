// Package tesseract implements ocr.Engine on the Tesseract C API through
// gosseract.
package tesseract

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/otiai10/gosseract/v2"
	"github.com/wippyai/translator-bridge/errors"
	"github.com/wippyai/translator-bridge/ocr"
	"golang.org/x/image/bmp"
)

var newClient = gosseract.NewClient

// Engine is a gosseract client holding at most one frame.
type Engine struct {
	client     *gosseract.Client
	boxes      []ocr.Box
	hasFrame   bool
	recognized bool
}

var _ ocr.Engine = (*Engine)(nil)

// New creates an engine. With a non-empty datapath every requested
// language must have a <lang>.traineddata file there; gosseract only
// initializes Tesseract lazily, so a missing model would otherwise
// surface on the first recognition instead of here.
func New(datapath, language string) (ocr.Engine, error) {
	langs := ocr.SplitLanguages(language)
	if datapath != "" {
		if _, err := os.Stat(datapath); err != nil {
			return nil, errors.Construction(errors.PhaseOpen, "tesseract", err)
		}
		for _, code := range langs {
			if _, err := os.Stat(filepath.Join(datapath, code+".traineddata")); err != nil {
				return nil, errors.New(errors.PhaseOpen, errors.KindConstruction).
					Path(code).
					Cause(err).
					Detail("missing %s.traineddata", code).
					Build()
			}
		}
	}

	c := newClient()
	if datapath != "" {
		if err := c.SetTessdataPrefix(datapath); err != nil {
			c.Close()
			return nil, errors.Construction(errors.PhaseOpen, "tesseract", err)
		}
	}
	if len(langs) > 0 {
		if err := c.SetLanguage(langs...); err != nil {
			c.Close()
			return nil, errors.Construction(errors.PhaseOpen, "tesseract", err)
		}
	}
	return &Engine{client: c}, nil
}

// SetFrame hands the frame to Tesseract as an uncompressed BMP.
func (e *Engine) SetFrame(f ocr.Frame) (ocr.Engine, error) {
	if err := f.Validate(); err != nil {
		e.Close()
		return nil, err
	}
	var buf bytes.Buffer
	if err := bmp.Encode(&buf, f.Image()); err != nil {
		e.Close()
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	if err := e.client.SetImageFromBytes(buf.Bytes()); err != nil {
		e.Close()
		return nil, fmt.Errorf("set image: %w", err)
	}
	e.hasFrame = true
	e.recognized = false
	e.boxes = nil
	return e, nil
}

func (e *Engine) SetPageSegMode(mode ocr.PageSegMode) error {
	return e.client.SetPageSegMode(gosseract.PageSegMode(mode))
}

// Recognize runs recognition on the current frame.
func (e *Engine) Recognize() (ocr.Engine, error) {
	if !e.hasFrame {
		e.Close()
		return nil, fmt.Errorf("recognize: no frame set")
	}
	boxes, err := e.client.GetBoundingBoxesVerbose()
	if err != nil {
		e.Close()
		return nil, fmt.Errorf("recognize: %w", err)
	}
	e.boxes = toBoxes(boxes)
	e.recognized = true
	return e, nil
}

func (e *Engine) Iterator() (ocr.WordIterator, bool) {
	if !e.recognized {
		return nil, false
	}
	return ocr.NewBoxIterator(e.boxes), true
}

func (e *Engine) Close() error {
	if e.client == nil {
		return nil
	}
	err := e.client.Close()
	e.client = nil
	return err
}

func toBoxes(in []gosseract.BoundingBox) []ocr.Box {
	out := make([]ocr.Box, 0, len(in))
	for _, b := range in {
		out = append(out, ocr.Box{
			Text: b.Word,
			Rect: ocr.Rect{
				Left:   int32(b.Box.Min.X),
				Top:    int32(b.Box.Min.Y),
				Right:  int32(b.Box.Max.X),
				Bottom: int32(b.Box.Max.Y),
			},
			Confidence: float32(b.Confidence),
			Block:      b.BlockNum,
			Para:       b.ParNum,
			Line:       b.LineNum,
			Word:       b.WordNum,
		})
	}
	return out
}
