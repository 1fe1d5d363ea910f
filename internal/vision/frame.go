package vision

import (
	"fmt"

	"vegprice-service/internal/domain/produce"
)

// Frame is a packed RGB image, 3 bytes per pixel, row-major.
type Frame struct {
	Width  int
	Height int
	Pix    []uint8
}

func NewFrame(width, height int) Frame {
	if width < 0 || height < 0 {
		return Frame{}
	}
	return Frame{Width: width, Height: height, Pix: make([]uint8, width*height*3)}
}

func (f Frame) Validate() error {
	if f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("%w: image has zero area (%dx%d)", produce.ErrInvalidInput, f.Width, f.Height)
	}
	if len(f.Pix) != f.Width*f.Height*3 {
		return fmt.Errorf("%w: pixel buffer length %d does not match %dx%dx3", produce.ErrInvalidInput, len(f.Pix), f.Width, f.Height)
	}
	return nil
}

func (f Frame) At(x, y int) (r, g, b uint8) {
	i := (y*f.Width + x) * 3
	return f.Pix[i], f.Pix[i+1], f.Pix[i+2]
}

func (f Frame) Set(x, y int, r, g, b uint8) {
	i := (y*f.Width + x) * 3
	f.Pix[i], f.Pix[i+1], f.Pix[i+2] = r, g, b
}

// Fill paints the rectangle [x0,x1)x[y0,y1) with one color.
func (f Frame) Fill(x0, y0, x1, y1 int, r, g, b uint8) {
	for y := max(0, y0); y < min(f.Height, y1); y++ {
		for x := max(0, x0); x < min(f.Width, x1); x++ {
			f.Set(x, y, r, g, b)
		}
	}
}

// Rand is the subset of math/rand/v2.Rand used by the heuristic pipeline.
type Rand interface {
	Float64() float64
	IntN(n int) int
}

func uniform(rng Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}

func sampleDistinct(rng Rand, items []string, n int) []string {
	if n > len(items) {
		n = len(items)
	}
	pool := append([]string(nil), items...)
	for i := 0; i < n; i++ {
		j := i + rng.IntN(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:n]
}
