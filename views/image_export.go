package views

import (
	"fmt"
	"image"
	"image/png"
	"os"
)

// SavePNG writes img to path as a lossless PNG, replacing any existing file.
func SavePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("save image: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode image %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("save image %s: %w", path, err)
	}
	return nil
}
