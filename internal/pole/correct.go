// Package pole suppresses the smearing artifacts equirectangular projection
// produces near the poles, where a whole pixel row collapses onto a single
// sphere point.
package pole

import (
	"image"
	"math"

	"github.com/disintegration/gift"

	"github.com/MeKo-Tech/spheretex/internal/synth"
)

// BandRows returns how many rows at each vertical extreme receive
// correction: a tenth of the image height, at least 2.
func BandRows(height int) int {
	k := height / 10
	if k < 2 {
		k = 2
	}
	if 2*k > height {
		k = height / 2
	}
	return k
}

// Weight returns the blend weight for a row at the given distance from the
// pole row. The falloff is a raised cosine: 1 at the pole row, decaying
// monotonically to 0 at the band's inner boundary.
func Weight(dist, bandRows int) float64 {
	if dist < 0 || dist >= bandRows {
		return 0
	}
	return 0.5 * (1.0 + math.Cos(math.Pi*float64(dist)/float64(bandRows)))
}

// BlurSigma returns the Gaussian sigma used for the pole blur at the given
// texture width.
func BlurSigma(width int) float32 {
	sigma := float32(width) / 512.0
	if sigma < 1 {
		sigma = 1
	}
	return sigma
}

// Correct returns a pole-corrected copy of the buffer. The input is read
// only; blending always reads the original buffer and the pre-computed
// blurred copy, so results never depend on iteration order.
//
// Within each pole band, pixels are blended toward a Gaussian-blurred copy
// of the image with the raised-cosine weight. The two extreme rows are
// additionally flattened to their row average, since every column of those
// rows maps to (nearly) the same sphere point.
func Correct(buf *synth.Buffer) *synth.Buffer {
	w, h := buf.Width(), buf.Height()
	out := buf.Clone()
	if h < 2 {
		return out
	}

	k := BandRows(h)
	blurred := blurWrapped(buf, BlurSigma(w))

	for d := 0; d < k; d++ {
		wt := Weight(d, k)
		blendRow(out, buf, blurred, d, wt)
		blendRow(out, buf, blurred, h-1-d, wt)
	}

	flattenRow(out, 0)
	flattenRow(out, h-1)
	return out
}

// blurWrapped Gaussian-blurs the buffer with horizontal wraparound. The
// buffer is padded on both sides with wrapped columns before filtering so
// the blur sees across the seam, then the pad is cropped away.
func blurWrapped(buf *synth.Buffer, sigma float32) *synth.Buffer {
	w, h := buf.Width(), buf.Height()

	pad := int(math.Ceil(float64(sigma) * 3.0))
	if pad > w {
		pad = w
	}

	padded := image.NewNRGBA(image.Rect(0, 0, w+2*pad, h))
	for y := 0; y < h; y++ {
		for x := -pad; x < w+pad; x++ {
			sx := ((x % w) + w) % w
			padded.SetNRGBA(x+pad, y, buf.NRGBAAt(sx, y))
		}
	}

	g := gift.New(gift.GaussianBlur(sigma))
	dst := image.NewNRGBA(g.Bounds(padded.Bounds()))
	g.Draw(dst, padded)

	out := synth.NewBuffer(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			out.SetNRGBA(x, y, dst.NRGBAAt(x+pad, y))
		}
	}
	return out
}

func blendRow(out, orig, blurred *synth.Buffer, y int, wt float64) {
	for x := 0; x < out.Width(); x++ {
		or, og, ob := orig.At(x, y)
		br, bg, bb := blurred.At(x, y)
		out.Set(x, y,
			or+(br-or)*wt,
			og+(bg-og)*wt,
			ob+(bb-ob)*wt,
		)
	}
}

// flattenRow replaces a row with its average color.
func flattenRow(buf *synth.Buffer, y int) {
	w := buf.Width()
	var sr, sg, sb float64
	for x := 0; x < w; x++ {
		r, g, b := buf.At(x, y)
		sr += r
		sg += g
		sb += b
	}
	n := float64(w)
	for x := 0; x < w; x++ {
		buf.Set(x, y, sr/n, sg/n, sb/n)
	}
}
