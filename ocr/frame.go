package ocr

import (
	"fmt"
	"image"

	"github.com/wippyai/translator-bridge/errors"
)

// Frame is a raw image handed to the engine. Rows are BytesPerLine apart;
// pixels are 1 (gray), 3 (RGB) or 4 (RGBA) bytes.
type Frame struct {
	Data          []byte
	Width         int32
	Height        int32
	BytesPerPixel int32
	BytesPerLine  int32
}

// Validate checks the geometry against the buffer.
func (f Frame) Validate() error {
	switch {
	case f.Width <= 0 || f.Height <= 0:
		return errors.InvalidInput(errors.PhaseFrame, fmt.Sprintf("dimensions %dx%d", f.Width, f.Height))
	case f.BytesPerPixel != 1 && f.BytesPerPixel != 3 && f.BytesPerPixel != 4:
		return errors.InvalidInput(errors.PhaseFrame, fmt.Sprintf("unsupported bytes per pixel %d", f.BytesPerPixel))
	}
	row := int64(f.Width) * int64(f.BytesPerPixel)
	if int64(f.BytesPerLine) < row {
		return errors.InvalidInput(errors.PhaseFrame,
			fmt.Sprintf("bytes per line %d below row size %d", f.BytesPerLine, row))
	}
	need := int64(f.Height-1)*int64(f.BytesPerLine) + row
	if int64(len(f.Data)) < need {
		return errors.InvalidInput(errors.PhaseFrame,
			fmt.Sprintf("buffer of %d bytes, need %d", len(f.Data), need))
	}
	return nil
}

// Image converts the frame to a Go image. The frame must be valid.
func (f Frame) Image() image.Image {
	w, h := int(f.Width), int(f.Height)
	stride := int(f.BytesPerLine)
	rect := image.Rect(0, 0, w, h)

	switch f.BytesPerPixel {
	case 1:
		return &image.Gray{Pix: f.Data, Stride: stride, Rect: rect}
	case 4:
		return &image.NRGBA{Pix: f.Data, Stride: stride, Rect: rect}
	}

	img := image.NewNRGBA(rect)
	for y := 0; y < h; y++ {
		src := f.Data[y*stride:]
		dst := img.Pix[y*img.Stride:]
		for x := 0; x < w; x++ {
			dst[x*4+0] = src[x*3+0]
			dst[x*4+1] = src[x*3+1]
			dst[x*4+2] = src[x*3+2]
			dst[x*4+3] = 0xff
		}
	}
	return img
}

// FrameFromImage lays img out as a 4-byte-per-pixel frame.
func FrameFromImage(img image.Image) Frame {
	b := img.Bounds()
	nrgba, ok := img.(*image.NRGBA)
	if !ok || b.Min != (image.Point{}) {
		nrgba = image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		for y := 0; y < b.Dy(); y++ {
			for x := 0; x < b.Dx(); x++ {
				nrgba.Set(x, y, img.At(b.Min.X+x, b.Min.Y+y))
			}
		}
	}
	return Frame{
		Data:          nrgba.Pix,
		Width:         int32(b.Dx()),
		Height:        int32(b.Dy()),
		BytesPerPixel: 4,
		BytesPerLine:  int32(nrgba.Stride),
	}
}
