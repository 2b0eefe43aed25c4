// Package synth generates procedural equirectangular sphere textures.
//
// Every pixel is computed independently from its spherical coordinate, so
// synthesis is partitioned into row stripes filled by parallel workers. No
// pixel reads another pixel's result.
package synth

import (
	"context"
	"fmt"
	"image/color"
	"math"
	"runtime"
	"sync"

	"github.com/MeKo-Tech/spheretex/internal/noise"
	"github.com/MeKo-Tech/spheretex/internal/palette"
	"github.com/MeKo-Tech/spheretex/internal/sphere"
)

// Continental thresholds for the earth rule, tuned for the amplitude-
// normalized fractal sum (values cluster around 0.5).
const (
	earthLandLevel     = 0.48
	earthMountainLevel = 0.58
	earthCoastWarp     = 0.08
	earthShadeDepth    = 0.12
)

const (
	gasGiantBandCount  = 6
	gasGiantTurbDepth  = 0.3
	gasGiantShadeDepth = 0.10
	turbulenceLayers   = 4
)

const (
	marbleVeinFrequency = 4.0
	marbleTurbDepth     = 3.0
)

// turbulenceSeedOffset decorrelates the warp field from the height field.
const turbulenceSeedOffset = 100

// Params configures a single procedural synthesis run.
type Params struct {
	Width   int
	Height  int
	Seed    int64
	Noise   noise.Config
	Palette palette.Palette
	Workers int
}

// synthesizer holds the per-request sampling state shared by all pixel
// rules. It is created fresh for every Generate call and discarded after.
type synthesizer struct {
	field  *noise.Field
	warp   *noise.Field
	cfg    noise.Config
	detail noise.Config
	pal    palette.Palette
}

type pixelRule func(*synthesizer, sphere.Coordinate, sphere.Vector3) color.NRGBA

// dispatch maps every texture type to its pixel rule. The set is closed;
// ParseTextureType guarantees lookups cannot miss for parsed values.
var dispatch = map[TextureType]pixelRule{
	Earth:    (*synthesizer).earthPixel,
	GasGiant: (*synthesizer).gasGiantPixel,
	Marble:   (*synthesizer).marblePixel,
}

// Generate fills a new buffer with the given texture type. It returns the
// buffer and the number of noise samples that had to be clamped back into
// range (for diagnostic logging by the caller). On context cancellation no
// partial buffer is returned.
func Generate(ctx context.Context, typ TextureType, p Params) (*Buffer, int64, error) {
	if p.Width <= 0 || p.Height <= 0 {
		return nil, 0, fmt.Errorf("dimensions must be positive, got %dx%d", p.Width, p.Height)
	}
	if !p.Noise.Valid() {
		return nil, 0, fmt.Errorf("noise config must be built via noise.NewConfig")
	}
	if !p.Palette.Valid() {
		return nil, 0, fmt.Errorf("palette must be built via palette.New or palette.FromColors")
	}
	rule, ok := dispatch[typ]
	if !ok {
		return nil, 0, fmt.Errorf("unsupported texture type: %s", typ)
	}

	// Secondary, higher-frequency layer for coastline perturbation and
	// per-pixel shading. Two octaves keep it cheap.
	detail, err := noise.NewConfig(2, p.Noise.Scale()*4, p.Noise.Mode())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to derive detail config: %w", err)
	}

	s := &synthesizer{
		field:  noise.NewField(p.Seed),
		warp:   noise.NewField(p.Seed + turbulenceSeedOffset),
		cfg:    p.Noise,
		detail: detail,
		pal:    p.Palette,
	}

	buf := NewBuffer(p.Width, p.Height)
	if err := fillRows(ctx, buf, p.Workers, func(x, y int) {
		c := sphere.PixelToSphere(x, y, p.Width, p.Height)
		buf.SetNRGBA(x, y, rule(s, c, c.UnitVector()))
	}); err != nil {
		return nil, 0, err
	}

	return buf, s.field.Anomalies() + s.warp.Anomalies(), nil
}

// fillRows runs fn for every pixel, partitioning rows into contiguous
// stripes across the worker count. Cancellation is checked once per row;
// a cancelled run returns ctx.Err() and the buffer must be discarded.
func fillRows(ctx context.Context, buf *Buffer, workers int, fn func(x, y int)) error {
	h := buf.Height()
	w := buf.Width()

	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > h {
		workers = h
	}

	stripe := (h + workers - 1) / workers
	var wg sync.WaitGroup
	for start := 0; start < h; start += stripe {
		end := start + stripe
		if end > h {
			end = h
		}
		wg.Add(1)
		go func(y0, y1 int) {
			defer wg.Done()
			for y := y0; y < y1; y++ {
				if ctx.Err() != nil {
					return
				}
				for x := 0; x < w; x++ {
					fn(x, y)
				}
			}
		}(start, end)
	}
	wg.Wait()

	return ctx.Err()
}

// earthPixel builds a continental mask from a thresholded height sample,
// with a higher-frequency layer perturbing the coastline and shading the
// interior of each band.
func (s *synthesizer) earthPixel(_ sphere.Coordinate, v sphere.Vector3) color.NRGBA {
	height := 0.5 * (s.field.Sample(v, s.cfg) + 1.0)
	coast := s.field.Sample(v, s.detail)

	t := height + earthCoastWarp*coast
	band := 0.0
	switch {
	case t >= earthMountainLevel:
		band = 1.0
	case t >= earthLandLevel:
		band = 0.5
	}

	return s.pal.Resolve(band + earthShadeDepth*coast)
}

// gasGiantPixel produces latitude bands warped by turbulence. The sine term
// depends only on latitude; the noise mode (XY for bands) keeps the
// turbulence itself latitude-dominant.
func (s *synthesizer) gasGiantPixel(c sphere.Coordinate, v sphere.Vector3) color.NRGBA {
	latRad := c.Lat * math.Pi / 180.0

	band := math.Sin(latRad*gasGiantBandCount)*0.5 + 0.5
	turb := s.warp.Turbulence(v, s.cfg, turbulenceLayers)
	band = math.Mod(band+gasGiantTurbDepth*turb, 1.0)

	shade := gasGiantShadeDepth * s.field.Sample(v, s.detail)
	return s.pal.Resolve(band + shade)
}

// marblePixel warps a fractal sample through a sine to carve vein contours.
// The angular frequency is an integer multiple of the full longitude turn,
// which keeps the pattern seamless across the wrap meridian.
func (s *synthesizer) marblePixel(c sphere.Coordinate, v sphere.Vector3) color.NRGBA {
	latRad := c.Lat * math.Pi / 180.0
	lonRad := c.Lon * math.Pi / 180.0

	turb := s.warp.Turbulence(v, s.cfg, turbulenceLayers)
	vein := math.Sin((lonRad+latRad)*marbleVeinFrequency+marbleTurbDepth*turb)*0.5 + 0.5

	return s.pal.Resolve(vein)
}
