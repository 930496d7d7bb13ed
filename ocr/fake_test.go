package ocr

import (
	"sync/atomic"
)

// fakeEngine is a scripted Engine. Consuming calls return the receiver.
type fakeEngine struct {
	frameErr   error
	recogErr   error
	block      chan struct{}
	started    chan struct{}
	boxes      []Box
	frames     []Frame
	closes     atomic.Int32
	mode       PageSegMode
	noIterator bool
}

func (e *fakeEngine) SetFrame(f Frame) (Engine, error) {
	if e.frameErr != nil {
		e.closes.Add(1)
		return nil, e.frameErr
	}
	e.frames = append(e.frames, f)
	return e, nil
}

func (e *fakeEngine) SetPageSegMode(mode PageSegMode) error {
	e.mode = mode
	return nil
}

func (e *fakeEngine) Recognize() (Engine, error) {
	if e.started != nil {
		close(e.started)
	}
	if e.block != nil {
		<-e.block
	}
	if e.recogErr != nil {
		e.closes.Add(1)
		return nil, e.recogErr
	}
	return e, nil
}

func (e *fakeEngine) Iterator() (WordIterator, bool) {
	if e.noIterator {
		return nil, false
	}
	return NewBoxIterator(e.boxes), true
}

func (e *fakeEngine) Close() error {
	e.closes.Add(1)
	return nil
}

func factoryFor(e *fakeEngine) EngineFactory {
	return func(string, string) (Engine, error) { return e, nil }
}

// layout produces paras×lines×words boxes in document order.
func layout(paras, lines, words int) []Box {
	var out []Box
	x := int32(0)
	for p := 1; p <= paras; p++ {
		for l := 1; l <= lines; l++ {
			for w := 1; w <= words; w++ {
				x += 10
				out = append(out, Box{
					Text:       "w",
					Rect:       Rect{Left: x, Top: int32(l * 20), Right: x + 8, Bottom: int32(l*20 + 12)},
					Confidence: 90,
					Block:      1,
					Para:       p,
					Line:       l,
					Word:       w,
				})
			}
		}
	}
	return out
}
