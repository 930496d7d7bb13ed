package main

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"

	"github.com/up-zero/gotool/imageutil"

	"github.com/wippyai/translator-bridge/bridge"
	"github.com/wippyai/translator-bridge/host"
	"github.com/wippyai/translator-bridge/ocr"
)

func recognize(b *bridge.Bridge, env *host.Heap, p *printer, opts options) error {
	img, err := imageutil.Open(opts.Image)
	if err != nil {
		return fmt.Errorf("load image: %w", err)
	}
	frame := ocr.FrameFromImage(img)

	h := b.TesseractCreate(opts.Tessdata, opts.Lang)
	if h == 0 {
		return fmt.Errorf("create OCR session (tessdata %q, language %q)", opts.Tessdata, opts.Lang)
	}
	defer b.TesseractDestroy(h)

	b.TesseractSetPageSegMode(h, int32(opts.PSM))
	if !b.TesseractSetFrame(h, frame.Data, frame.Width, frame.Height, frame.BytesPerPixel, frame.BytesPerLine) {
		return fmt.Errorf("set frame from %s", opts.Image)
	}
	ref := b.TesseractGetWordBoxes(env, h)
	if ref == host.Null {
		return fmt.Errorf("recognition failed")
	}
	v, err := env.Resolve(ref)
	if err != nil {
		return fmt.Errorf("resolve result: %w", err)
	}

	words := make([]*host.Object, 0)
	for _, w := range v.([]any) {
		words = append(words, w.(*host.Object))
	}
	p.words(words)

	if opts.Annotate != "" {
		if err := annotate(img, words, opts.Annotate); err != nil {
			return err
		}
		p.line("Annotated image written to " + opts.Annotate)
	}
	return nil
}

func wordRect(w *host.Object) image.Rectangle {
	return image.Rect(
		int(w.Get("left").(int32)),
		int(w.Get("top").(int32)),
		int(w.Get("right").(int32)),
		int(w.Get("bottom").(int32)),
	)
}

var (
	boxColor     = color.RGBA{R: 0xe0, G: 0x20, B: 0x20, A: 0xff}
	lineEndColor = color.RGBA{R: 0x20, G: 0x60, B: 0xe0, A: 0xff}
)

// drawWordBoxes copies img and outlines each word. Word rects are in frame
// space, which starts at (0,0), so they are moved to the image origin.
func drawWordBoxes(img image.Image, words []*host.Object) *image.RGBA {
	bounds := img.Bounds()
	out := image.NewRGBA(bounds)
	draw.Draw(out, bounds, img, bounds.Min, draw.Src)

	for _, w := range words {
		c := color.Color(boxColor)
		if w.Get("end-line").(bool) {
			c = lineEndColor
		}
		imageutil.DrawThickRectOutline(out, wordRect(w).Add(bounds.Min), c, 2)
	}
	return out
}

func annotate(img image.Image, words []*host.Object, path string) error {
	out := drawWordBoxes(img, words)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := png.Encode(f, out); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}
