package render

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// Image wraps the color buffer as an image without copying it.
func (f *Frame) Image() *image.RGBA {
	return &image.RGBA{
		Pix:    f.Color,
		Stride: 4 * f.Width,
		Rect:   image.Rect(0, 0, f.Width, f.Height),
	}
}

// DepthImage renders the depth buffer as grayscale, near is black.
func (f *Frame) DepthImage() *image.Gray16 {
	img := image.NewGray16(image.Rect(0, 0, f.Width, f.Height))
	for i, d := range f.Depth {
		img.SetGray16(i%f.Width, i/f.Width, color.Gray16{Y: uint16(d * 0xffff)})
	}
	return img
}

// Encode writes img in the format named by ext (".png", ".bmp", ".tif" or
// ".tiff").
func Encode(w io.Writer, img image.Image, ext string) error {
	switch strings.ToLower(ext) {
	case ".png":
		return png.Encode(w, img)
	case ".bmp":
		return bmp.Encode(w, img)
	case ".tif", ".tiff":
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	}
	return fmt.Errorf("render: unsupported image format %q", ext)
}

// WriteScreenshot saves the color buffer of f to path, creating parent
// directories. The format follows the file extension.
func WriteScreenshot(path string, f *Frame) (err error) {
	ext := filepath.Ext(path)
	if ext == "" {
		path += ".png"
		ext = ".png"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("render: screenshot dir: %w", err)
	}
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("render: screenshot: %w", err)
	}
	defer func() {
		if cerr := out.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("render: screenshot: %w", cerr)
		}
	}()
	if err := Encode(out, f.Image(), ext); err != nil {
		return fmt.Errorf("render: screenshot %s: %w", path, err)
	}
	return nil
}
