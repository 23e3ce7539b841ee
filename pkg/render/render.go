// Package render defines the rendering contract used by picking and by the
// sampling engine, and provides a CPU rasterizer that satisfies it.
package render

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

// ErrResourceFailure is returned when a frame cannot be produced.
var ErrResourceFailure = errors.New("render: resource failure")

// Renderer produces the off-screen passes the application reads back.
type Renderer interface {
	// RenderIdentificationPass draws every classified mesh in its flat
	// category color and returns the color and depth buffers.
	RenderIdentificationPass(view, proj mgl64.Mat4) (*Frame, error)

	// RenderPickingPass draws every mesh in its picking color and returns
	// the id under window pixel (x, y), y counted from the top.
	RenderPickingPass(view, proj mgl64.Mat4, x, y int) (int32, error)

	// ViewportSize is the size of the frames produced.
	ViewportSize() (width, height int)
}

// Frame is an RGBA8 color buffer and a float depth buffer, both stored row
// by row from the top of the window. Depth is in [0, 1] with 1 at the far
// plane. The caller owns the frame.
type Frame struct {
	Width  int
	Height int
	Color  []uint8
	Depth  []float32
}

// NewFrame allocates a cleared frame: black, fully transparent, depth 1.
func NewFrame(w, h int) *Frame {
	f := &Frame{
		Width:  w,
		Height: h,
		Color:  make([]uint8, 4*w*h),
		Depth:  make([]float32, w*h),
	}
	f.ClearDepth()
	return f
}

// ClearDepth resets every depth sample to the far plane.
func (f *Frame) ClearDepth() {
	n := len(f.Depth)
	if n == 0 {
		return
	}
	f.Depth[0] = 1
	for i := 1; i < n; i *= 2 {
		copy(f.Depth[i:], f.Depth[:i])
	}
}

// Fill sets every pixel to c.
func (f *Frame) Fill(c [4]uint8) {
	for i := 0; i+3 < len(f.Color); i += 4 {
		copy(f.Color[i:i+4], c[:])
	}
}

// Pixels is the number of pixels in the frame.
func (f *Frame) Pixels() int {
	return f.Width * f.Height
}

// RGB returns the color of pixel (x, y).
func (f *Frame) RGB(x, y int) ([3]uint8, error) {
	if x < 0 || y < 0 || x >= f.Width || y >= f.Height {
		return [3]uint8{}, fmt.Errorf("render: pixel (%d, %d) outside %dx%d frame", x, y, f.Width, f.Height)
	}
	i := 4 * (y*f.Width + x)
	return [3]uint8{f.Color[i], f.Color[i+1], f.Color[i+2]}, nil
}
