package ocr

import (
	"fmt"
	"sync"

	"github.com/wippyai/translator-bridge/errors"
	"go.uber.org/zap"
)

// State is the observable state of a session.
type State int

const (
	StateReady State = iota
	StateRecognized
	StateDegraded
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateRecognized:
		return "recognized"
	case StateDegraded:
		return "degraded"
	case StateDestroyed:
		return "destroyed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Session owns one engine in a single slot.
type Session struct {
	engine Engine
	log    *zap.Logger
	state  State
	mu     sync.Mutex
	busy   bool
	closed bool
}

// NewSession diagnoses datapath and constructs an engine with factory.
func NewSession(factory EngineFactory, datapath, language string, log *zap.Logger) (*Session, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log.Info("Creating OCR session", zap.String("datapath", datapath), zap.String("language", language))
	if datapath == "" {
		log.Info("Datapath is empty, using engine default")
	}
	if language == "" {
		log.Info("Language is empty, using engine default")
	}

	diag := Diagnose(datapath, language, log)

	if factory == nil {
		err := errors.Construction(errors.PhaseOpen, "OCR engine", fmt.Errorf("no engine factory configured"))
		log.Error("Engine construction failed", zap.Error(err))
		return nil, err
	}
	engine, err := factory(datapath, language)
	if err != nil {
		b := errors.New(errors.PhaseOpen, errors.KindConstruction).
			Cause(err).
			Detail("construct OCR engine")
		if missing := diag.Missing(); len(missing) > 0 {
			b = b.Value(missing).Detail("construct OCR engine; missing traineddata for %v", missing)
		}
		cerr := b.Build()
		log.Error("Engine construction failed", zap.Error(cerr))
		return nil, cerr
	}
	if engine == nil {
		err := errors.Construction(errors.PhaseOpen, "OCR engine", fmt.Errorf("factory returned no engine"))
		log.Error("Engine construction failed", zap.Error(err))
		return nil, err
	}

	log.Info("Engine created successfully")
	return &Session{engine: engine, log: log, state: StateReady}, nil
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// take empties the slot for a consuming call.
func (s *Session) take(phase errors.Phase) (Engine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.closed:
		return nil, errors.Closed(phase, "OCR session")
	case s.busy:
		return nil, errors.EngineBusy(phase)
	case s.engine == nil:
		return nil, errors.EngineAbsent(phase)
	}
	e := s.engine
	s.engine = nil
	s.busy = true
	return e, nil
}

// restore refills the slot. If the session was closed meanwhile the
// engine is closed instead.
func (s *Session) restore(e Engine, state State) error {
	s.mu.Lock()
	s.busy = false
	if s.closed {
		s.mu.Unlock()
		s.log.Debug("Session closed during call, releasing engine")
		_ = e.Close()
		return errors.Closed(errors.PhaseClose, "OCR session")
	}
	s.engine = e
	s.state = state
	s.mu.Unlock()
	return nil
}

// degrade records that a consuming call lost the engine.
func (s *Session) degrade() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy = false
	if !s.closed {
		s.state = StateDegraded
	}
}

// SetFrame feeds f to the engine. On failure the session is degraded and
// every later engine call fails until it is recreated.
func (s *Session) SetFrame(f Frame) error {
	s.log.Debug("set_frame called",
		zap.Int32("width", f.Width),
		zap.Int32("height", f.Height),
		zap.Int32("bpp", f.BytesPerPixel),
		zap.Int32("bpl", f.BytesPerLine),
		zap.Int("data_len", len(f.Data)))

	if err := f.Validate(); err != nil {
		s.log.Error("set_frame rejected frame", zap.Error(err))
		return err
	}

	e, err := s.take(errors.PhaseFrame)
	if err != nil {
		s.log.Error("set_frame called but engine is unavailable", zap.Error(err))
		return err
	}

	next, err := e.SetFrame(f)
	if err != nil || next == nil {
		s.degrade()
		oerr := errors.Operation(errors.PhaseFrame, "set frame", err)
		s.log.Error("set_frame failed", zap.Error(oerr))
		return oerr
	}

	if err := s.restore(next, StateReady); err != nil {
		return err
	}
	s.log.Debug("set_frame completed successfully")
	return nil
}

// SetPageSegMode changes the segmentation mode of a present engine.
func (s *Session) SetPageSegMode(mode PageSegMode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.closed:
		return errors.Closed(errors.PhaseParam, "OCR session")
	case s.busy:
		return errors.EngineBusy(errors.PhaseParam)
	case s.engine == nil:
		return errors.EngineAbsent(errors.PhaseParam)
	}
	if err := s.engine.SetPageSegMode(mode); err != nil {
		return errors.Operation(errors.PhaseParam, "set page segmentation mode "+mode.String(), err)
	}
	s.log.Debug("Page segmentation mode set", zap.Stringer("mode", mode))
	return nil
}

// Recognize runs recognition and returns the words that carry both text
// and a bounding box, in document order.
func (s *Session) Recognize() ([]DetectedWord, error) {
	s.log.Debug("get_word_boxes called")

	e, err := s.take(errors.PhaseRecognize)
	if err != nil {
		s.log.Error("get_word_boxes called but engine is unavailable", zap.Error(err))
		return nil, err
	}

	s.log.Debug("Starting OCR recognition")
	recognized, err := e.Recognize()
	if err != nil || recognized == nil {
		s.degrade()
		oerr := errors.Operation(errors.PhaseRecognize, "recognize", err)
		s.log.Error("OCR recognition failed", zap.Error(oerr))
		return nil, oerr
	}
	s.log.Debug("OCR recognition completed successfully")

	words := []DetectedWord{}
	it, ok := recognized.Iterator()
	if !ok || it == nil {
		s.log.Error("Failed to get result iterator from recognized engine")
	} else {
		words = collectWords(it)
		s.log.Debug("Processed words", zap.Int("count", len(words)))
	}

	if err := s.restore(recognized, StateRecognized); err != nil {
		return nil, err
	}
	return words, nil
}

func collectWords(it WordIterator) []DetectedWord {
	words := []DetectedWord{}
	for it.Next() {
		w := it.Word()
		if !w.HasText || !w.HasBox {
			continue
		}
		words = append(words, DetectedWord{
			Text:                w.Text,
			Box:                 w.Box,
			Confidence:          w.Confidence,
			IsAtBeginningOfPara: it.IsAtBeginningOf(LevelPara),
			EndLine:             it.IsAtFinalElement(LevelTextline, LevelWord),
			EndPara:             it.IsAtFinalElement(LevelPara, LevelWord),
		})
	}
	return words
}

// Close releases whatever engine is present. It is safe on a degraded
// session and idempotent; a call in flight releases its engine when it
// returns.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.state = StateDestroyed
	e := s.engine
	s.engine = nil
	s.mu.Unlock()

	if e == nil {
		return nil
	}
	if err := e.Close(); err != nil {
		return errors.Wrap(errors.PhaseClose, errors.KindOperation, err, "close engine")
	}
	return nil
}

// Drop implements resource.Dropper.
func (s *Session) Drop() { _ = s.Close() }
