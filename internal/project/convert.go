// Package project resamples arbitrary source images onto the
// equirectangular grid and enforces horizontal wraparound continuity.
package project

import (
	"fmt"
	"image"

	xdraw "golang.org/x/image/draw"

	"github.com/MeKo-Tech/spheretex/internal/synth"
)

// Convert resamples the already-decoded source image to the target
// dimensions with a bilinear filter, then cross-fades the left and right
// edge bands so longitude 0 and 360 meet seamlessly.
func Convert(src image.Image, width, height int) (*synth.Buffer, error) {
	if src == nil {
		return nil, fmt.Errorf("source image is nil")
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("dimensions must be positive, got %dx%d", width, height)
	}
	bounds := src.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return nil, fmt.Errorf("source image is empty")
	}

	dst := image.NewNRGBA(image.Rect(0, 0, width, height))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, bounds, xdraw.Src, nil)

	buf := synth.FromImage(dst)
	blendSeam(buf)
	return buf, nil
}

// SeamWidth returns the cross-fade band width in columns for a texture of
// the given width.
func SeamWidth(width int) int {
	w := width / 64
	if w < 2 {
		w = 2
	}
	return w
}

// blendSeam cross-fades each edge column pair toward its counterpart across
// the wrap meridian. The fade weight peaks at 0.5 on the outermost pair,
// which makes column 0 and the last column exactly equal, and decays
// linearly toward the band's inner boundary.
func blendSeam(buf *synth.Buffer) {
	w := buf.Width()
	band := SeamWidth(w)
	if 2*band > w {
		band = w / 2
	}

	for y := 0; y < buf.Height(); y++ {
		for d := 0; d < band; d++ {
			a := 0.5 * (1.0 - float64(d)/float64(band))

			lx, rx := d, w-1-d
			lr, lg, lb := buf.At(lx, y)
			rr, rg, rb := buf.At(rx, y)

			buf.Set(lx, y, lerp(lr, rr, a), lerp(lg, rg, a), lerp(lb, rb, a))
			buf.Set(rx, y, lerp(rr, lr, a), lerp(rg, lg, a), lerp(rb, lb, a))
		}
	}
}

func lerp(a, b, t float64) float64 { return a + (b-a)*t }
