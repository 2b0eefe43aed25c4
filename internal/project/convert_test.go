package project

import (
	"image"
	"image/color"
	"math"
	"testing"
)

func uniformImage(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

// gradientImage has a hard horizontal discontinuity between its left and
// right halves, the worst case for seam blending.
func gradientImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8(float64(x) / float64(w-1) * 255)
			img.SetNRGBA(x, y, color.NRGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return img
}

func TestConvertDimensions(t *testing.T) {
	src := gradientImage(300, 200)
	buf, err := Convert(src, 256, 128)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if buf.Width() != 256 || buf.Height() != 128 {
		t.Errorf("buffer is %dx%d, want 256x128", buf.Width(), buf.Height())
	}
}

func TestConvertValidation(t *testing.T) {
	if _, err := Convert(nil, 256, 128); err == nil {
		t.Error("nil source should fail")
	}
	if _, err := Convert(gradientImage(10, 10), 0, 128); err == nil {
		t.Error("zero width should fail")
	}
	if _, err := Convert(image.NewNRGBA(image.Rect(0, 0, 0, 0)), 256, 128); err == nil {
		t.Error("empty source should fail")
	}
}

func TestConvertUniformStaysUniform(t *testing.T) {
	c := color.NRGBA{R: 120, G: 80, B: 200, A: 255}
	buf, err := Convert(uniformImage(100, 60, c), 256, 128)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}

	for y := 0; y < buf.Height(); y++ {
		for x := 0; x < buf.Width(); x++ {
			got := buf.NRGBAAt(x, y)
			if absDiff(got.R, c.R) > 1 || absDiff(got.G, c.G) > 1 || absDiff(got.B, c.B) > 1 {
				t.Fatalf("pixel (%d,%d) = %v drifted from uniform %v", x, y, got, c)
			}
		}
	}
}

func TestConvertSeamContinuity(t *testing.T) {
	// The gradient source is black on the left, white on the right: without
	// blending the wrap seam would be maximal.
	buf, err := Convert(gradientImage(512, 256), 256, 128)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}

	var total float64
	for y := 0; y < buf.Height(); y++ {
		lr, lg, lb := buf.At(0, y)
		rr, rg, rb := buf.At(buf.Width()-1, y)
		dr, dg, db := lr-rr, lg-rg, lb-rb
		total += math.Sqrt(dr*dr + dg*dg + db*db)
	}
	avg := total / float64(buf.Height())
	if avg > 1e-6 {
		t.Errorf("edge columns should match after blending, avg distance %g", avg)
	}
}

func TestSeamWidth(t *testing.T) {
	if got := SeamWidth(64); got != 2 {
		t.Errorf("SeamWidth(64) = %d, want minimum 2", got)
	}
	if got := SeamWidth(2048); got != 32 {
		t.Errorf("SeamWidth(2048) = %d, want 32", got)
	}
}

func absDiff(a, b uint8) int {
	d := int(a) - int(b)
	if d < 0 {
		d = -d
	}
	return d
}
