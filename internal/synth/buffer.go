package synth

import (
	"image"
	"image/color"
	"math"
)

// Buffer is a width x height pixel buffer with floating-point RGB planes.
// All synthesis happens in float space; conversion to 8-bit channels happens
// once at the boundary via ToNRGBA.
type Buffer struct {
	w int
	h int
	R []float64
	G []float64
	B []float64
}

// NewBuffer allocates a zeroed buffer.
func NewBuffer(w, h int) *Buffer {
	n := w * h
	return &Buffer{
		w: w,
		h: h,
		R: make([]float64, n),
		G: make([]float64, n),
		B: make([]float64, n),
	}
}

// FromImage copies an image into a float buffer.
func FromImage(img image.Image) *Buffer {
	bounds := img.Bounds()
	buf := NewBuffer(bounds.Dx(), bounds.Dy())
	for y := 0; y < buf.h; y++ {
		for x := 0; x < buf.w; x++ {
			c := color.NRGBAModel.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.NRGBA)
			buf.SetNRGBA(x, y, c)
		}
	}
	return buf
}

// Width reports the buffer width in pixels.
func (b *Buffer) Width() int { return b.w }

// Height reports the buffer height in pixels.
func (b *Buffer) Height() int { return b.h }

// Idx returns the plane index for a pixel.
func (b *Buffer) Idx(x, y int) int { return y*b.w + x }

// Set stores a float RGB sample.
func (b *Buffer) Set(x, y int, r, g, bl float64) {
	i := b.Idx(x, y)
	b.R[i] = r
	b.G[i] = g
	b.B[i] = bl
}

// At returns the float RGB sample at a pixel.
func (b *Buffer) At(x, y int) (r, g, bl float64) {
	i := b.Idx(x, y)
	return b.R[i], b.G[i], b.B[i]
}

// SetNRGBA stores an 8-bit color as floats in [0, 1].
func (b *Buffer) SetNRGBA(x, y int, c color.NRGBA) {
	b.Set(x, y, float64(c.R)/255.0, float64(c.G)/255.0, float64(c.B)/255.0)
}

// NRGBAAt converts the float sample at a pixel back to 8-bit color.
func (b *Buffer) NRGBAAt(x, y int) color.NRGBA {
	r, g, bl := b.At(x, y)
	return color.NRGBA{
		R: floatToChannel(r),
		G: floatToChannel(g),
		B: floatToChannel(bl),
		A: 255,
	}
}

// Clone returns a deep copy of the buffer.
func (b *Buffer) Clone() *Buffer {
	out := NewBuffer(b.w, b.h)
	copy(out.R, b.R)
	copy(out.G, b.G)
	copy(out.B, b.B)
	return out
}

// ToNRGBA converts the buffer to an 8-bit image for encoding.
func (b *Buffer) ToNRGBA() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, b.w, b.h))
	for y := 0; y < b.h; y++ {
		for x := 0; x < b.w; x++ {
			img.SetNRGBA(x, y, b.NRGBAAt(x, y))
		}
	}
	return img
}

func floatToChannel(v float64) uint8 {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	return uint8(math.Round(v * 255.0))
}
