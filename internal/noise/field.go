// Package noise provides a deterministic, seeded multi-octave coherent
// noise field sampled at points on the unit sphere.
package noise

import (
	"math"
	"sync/atomic"

	"github.com/aquilax/go-perlin"

	"github.com/MeKo-Tech/spheretex/internal/sphere"
)

const (
	lacunarity  = 2.0
	persistence = 0.5

	// domainOffset shifts unit-sphere components ([-1,1]) into a strictly
	// positive domain before sampling. The perlin primitive is discontinuous
	// where a coordinate crosses zero, and z = cos(lat)*sin(lon) is exactly
	// zero on the wrap meridian; sampling at x+2, y+2, z+2 keeps every
	// octave away from the crossings without affecting determinism.
	domainOffset = 2.0
)

// Field samples fractal coherent noise. A Field is a pure function of its
// seed: identical (point, config, seed) triples always yield the same
// scalar. Sampling is safe for concurrent use; the only mutable state is an
// anomaly counter used for diagnostics.
type Field struct {
	p         *perlin.Perlin
	anomalies atomic.Int64
}

// NewField builds a noise field for the given seed.
// The underlying primitive is configured for a single octave; Sample runs
// the fractal summation itself so octave count and frequency stay under the
// caller's control.
func NewField(seed int64) *Field {
	return &Field{p: perlin.NewPerlin(2.0, 2.0, 1, seed)}
}

// Sample evaluates the fractal noise field at a unit-sphere point and
// returns a scalar in [-1, 1]. Each octave doubles the frequency and halves
// the amplitude; the sum is normalized by the total amplitude. Values that
// land outside [-1, 1] after normalization are clamped and counted as
// anomalies.
func (f *Field) Sample(v sphere.Vector3, cfg Config) float64 {
	amp := 1.0
	freq := cfg.baseFrequency()
	sum := 0.0
	norm := 0.0

	for i := 0; i < cfg.Octaves(); i++ {
		sum += amp * f.primitive(v, cfg.Mode(), freq)
		norm += amp
		amp *= persistence
		freq *= lacunarity
	}

	return f.clampUnit(sum / norm)
}

// Turbulence sums the absolute noise magnitude over the given number of
// layers, each at doubled frequency with proportionally reduced weight.
// The result is non-negative and used to warp band boundaries.
func (f *Field) Turbulence(v sphere.Vector3, cfg Config, layers int) float64 {
	freq := cfg.baseFrequency()
	weight := 1.0
	sum := 0.0

	for i := 0; i < layers; i++ {
		sum += math.Abs(f.primitive(v, cfg.Mode(), freq)) * weight
		freq *= lacunarity
		weight *= persistence
	}

	return sum
}

// Anomalies reports how many samples were clamped back into range.
func (f *Field) Anomalies() int64 {
	return f.anomalies.Load()
}

func (f *Field) primitive(v sphere.Vector3, mode CoordinateMode, freq float64) float64 {
	x := (v.X + domainOffset) * freq
	y := (v.Y + domainOffset) * freq
	if mode == ModeXY {
		return f.p.Noise2D(x, y)
	}
	return f.p.Noise3D(x, y, (v.Z+domainOffset)*freq)
}

func (f *Field) clampUnit(x float64) float64 {
	if x > 1 {
		f.anomalies.Add(1)
		return 1
	}
	if x < -1 {
		f.anomalies.Add(1)
		return -1
	}
	return x
}
