package ingest

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"dataset-convertor/models"
)

// pixelLayout describes how one source pixel is laid out in a row.
type pixelLayout struct {
	channels      int
	bytesPerChan  int
	r, g, b       int // channel index within a pixel
	grayscaleOnly bool
}

var layouts = map[string]pixelLayout{
	"rgb8":   {channels: 3, bytesPerChan: 1, r: 0, g: 1, b: 2},
	"bgr8":   {channels: 3, bytesPerChan: 1, r: 2, g: 1, b: 0},
	"8uc3":   {channels: 3, bytesPerChan: 1, r: 2, g: 1, b: 0},
	"rgba8":  {channels: 4, bytesPerChan: 1, r: 0, g: 1, b: 2},
	"bgra8":  {channels: 4, bytesPerChan: 1, r: 2, g: 1, b: 0},
	"mono8":  {channels: 1, bytesPerChan: 1, grayscaleOnly: true},
	"8uc1":   {channels: 1, bytesPerChan: 1, grayscaleOnly: true},
	"mono16": {channels: 1, bytesPerChan: 2, grayscaleOnly: true},
	"16uc1":  {channels: 1, bytesPerChan: 2, grayscaleOnly: true},
}

// DecodePixels converts a raw camera image into an opaque 8-bit RGBA buffer.
// 16-bit samples keep their most significant byte. Alpha channels in the
// source are dropped.
func DecodePixels(img *models.CameraImage) (image.Image, error) {
	l, ok := layouts[strings.ToLower(img.Encoding)]
	if !ok {
		return nil, fmt.Errorf("unsupported image encoding %q", img.Encoding)
	}
	if img.Width <= 0 || img.Height <= 0 {
		return nil, fmt.Errorf("invalid image size %dx%d", img.Width, img.Height)
	}
	// Sizes are uint32 on the wire; products are checked in uint64.
	pixelBytes := uint64(l.channels * l.bytesPerChan)
	if img.Step < 0 || uint64(img.Step) < uint64(img.Width)*pixelBytes {
		return nil, fmt.Errorf("row step %d shorter than %d pixels of %d bytes", img.Step, img.Width, pixelBytes)
	}
	if need := uint64(img.Step) * uint64(img.Height); uint64(len(img.Data)) < need {
		return nil, fmt.Errorf("image data is %d bytes, want %d", len(img.Data), need)
	}

	sample := func(px []byte, ch int) uint8 {
		off := ch * l.bytesPerChan
		if l.bytesPerChan == 1 || img.BigEndian {
			return px[off]
		}
		return px[off+1]
	}

	pb := int(pixelBytes)
	out := image.NewRGBA(image.Rect(0, 0, img.Width, img.Height))
	for y := 0; y < img.Height; y++ {
		row := img.Data[y*img.Step:]
		for x := 0; x < img.Width; x++ {
			px := row[x*pb : (x+1)*pb]
			var c color.RGBA
			if l.grayscaleOnly {
				v := sample(px, 0)
				c = color.RGBA{R: v, G: v, B: v, A: 0xff}
			} else {
				c = color.RGBA{R: sample(px, l.r), G: sample(px, l.g), B: sample(px, l.b), A: 0xff}
			}
			out.SetRGBA(x, y, c)
		}
	}
	return out, nil
}
