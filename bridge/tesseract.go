package bridge

import (
	"github.com/wippyai/translator-bridge/errors"
	"github.com/wippyai/translator-bridge/host"
	"github.com/wippyai/translator-bridge/marshal"
	"github.com/wippyai/translator-bridge/ocr"
	"go.uber.org/zap"
)

// TesseractCreate creates an OCR session. Empty datapath or language
// select the engine defaults. Returns 0 on failure.
func (b *Bridge) TesseractCreate(datapath, language string) Handle {
	log := b.tessLog
	log.Info("Create called", zap.String("datapath", datapath), zap.String("language", language))

	if !checkString(log, "datapath", datapath) || !checkString(log, "language", language) {
		return 0
	}

	sess, err := ocr.NewSession(b.ocrFactory, datapath, language, log)
	if err != nil {
		log.Error("Session creation failed", zap.Error(err))
		return 0
	}

	h := b.tesseract.Insert(sess)
	if h == 0 {
		sess.Close()
		log.Error("Bridge is closed, session released")
		return 0
	}
	log.Info("Session created", zap.Stringer("handle", h))
	return h
}

// TesseractSetFrame feeds a raw image to the session. A failure inside
// the engine leaves the session degraded: later calls on h fail until it
// is destroyed and recreated.
func (b *Bridge) TesseractSetFrame(h Handle, data []byte, width, height, bytesPerPixel, bytesPerLine int32) bool {
	log := b.tessLog
	log.Debug("SetFrame called",
		zap.Stringer("handle", h),
		zap.Int32("width", width),
		zap.Int32("height", height),
		zap.Int32("bpp", bytesPerPixel),
		zap.Int32("bpl", bytesPerLine))

	if h == 0 {
		log.Error("SetFrame: handle is 0")
		return false
	}
	sess, ok := b.tesseract.Get(h)
	if !ok {
		invalidHandle(log, errors.PhaseFrame, "SetFrame", h)
		return false
	}

	err := sess.SetFrame(ocr.Frame{
		Data:          data,
		Width:         width,
		Height:        height,
		BytesPerPixel: bytesPerPixel,
		BytesPerLine:  bytesPerLine,
	})
	if err != nil {
		log.Error("SetFrame failed", zap.Error(err))
		return false
	}
	log.Debug("SetFrame completed successfully")
	return true
}

// TesseractSetPageSegMode sets the segmentation mode. Unknown codes
// select automatic segmentation.
func (b *Bridge) TesseractSetPageSegMode(h Handle, mode int32) {
	if h == 0 {
		return
	}
	log := b.tessLog
	sess, ok := b.tesseract.Get(h)
	if !ok {
		invalidHandle(log, errors.PhaseParam, "SetPageSegMode", h)
		return
	}
	psm := ocr.PageSegModeFromCode(mode)
	if int32(psm) != mode {
		log.Debug("Unknown page segmentation mode, using AUTO", zap.Int32("mode", mode))
	}
	if err := sess.SetPageSegMode(psm); err != nil {
		log.Error("SetPageSegMode failed", zap.Error(err))
	}
}

// TesseractGetWordBoxes recognizes the current frame and returns a host
// list of DetectedWord, or host.Null on failure.
func (b *Bridge) TesseractGetWordBoxes(env host.Env, h Handle) host.Ref {
	log := b.tessLog
	log.Debug("GetWordBoxes called", zap.Stringer("handle", h))

	if h == 0 {
		log.Error("GetWordBoxes: handle is 0")
		return host.Null
	}
	sess, ok := b.tesseract.Get(h)
	if !ok {
		invalidHandle(log, errors.PhaseRecognize, "GetWordBoxes", h)
		return host.Null
	}

	words, err := sess.Recognize()
	if err != nil {
		log.Error("GetWordBoxes failed", zap.Error(err))
		return host.Null
	}
	log.Debug("Got words from tesseract", zap.Int("count", len(words)))

	ref, err := marshal.DetectedWords(env, words)
	if err != nil {
		log.Error("Failed to build word list", zap.Error(err))
		return host.Null
	}
	log.Debug("GetWordBoxes completed successfully")
	return ref
}

// TesseractDestroy releases the session. It is safe on degraded sessions.
func (b *Bridge) TesseractDestroy(h Handle) {
	release(b.tesseract, b.tessLog, h)
}
