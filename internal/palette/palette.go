// Package palette maps scalar values to colors via ordered gradient stops.
package palette

import (
	"fmt"
	"image/color"
	"math"
)

// Stop is a single gradient stop at a position in [0, 1].
type Stop struct {
	Pos   float64
	Color color.NRGBA
}

// Palette is an immutable ordered gradient. Construct via New or FromColors.
type Palette struct {
	stops []Stop
}

// New validates and builds a palette. Stops must have strictly increasing
// positions, with the first at 0 and the last at 1.
func New(stops []Stop) (Palette, error) {
	if len(stops) < 2 {
		return Palette{}, fmt.Errorf("palette needs at least 2 stops, got %d", len(stops))
	}
	if stops[0].Pos != 0 {
		return Palette{}, fmt.Errorf("first stop must be at position 0, got %g", stops[0].Pos)
	}
	if stops[len(stops)-1].Pos != 1 {
		return Palette{}, fmt.Errorf("last stop must be at position 1, got %g", stops[len(stops)-1].Pos)
	}
	for i := 1; i < len(stops); i++ {
		if stops[i].Pos <= stops[i-1].Pos {
			return Palette{}, fmt.Errorf("stop positions must be strictly increasing: %g after %g",
				stops[i].Pos, stops[i-1].Pos)
		}
	}

	owned := make([]Stop, len(stops))
	copy(owned, stops)
	return Palette{stops: owned}, nil
}

// FromColors spreads the given colors evenly over [0, 1].
// A single color becomes a flat two-stop gradient.
func FromColors(colors []color.NRGBA) (Palette, error) {
	if len(colors) == 0 {
		return Palette{}, fmt.Errorf("palette needs at least one color")
	}
	if len(colors) == 1 {
		return New([]Stop{{Pos: 0, Color: colors[0]}, {Pos: 1, Color: colors[0]}})
	}

	stops := make([]Stop, len(colors))
	for i, c := range colors {
		stops[i] = Stop{
			Pos:   float64(i) / float64(len(colors)-1),
			Color: c,
		}
	}
	return New(stops)
}

// Resolve maps a scalar to a color by linear interpolation between the two
// bracketing stops. The value is clamped to [0, 1] before lookup.
func (p Palette) Resolve(v float64) color.NRGBA {
	if len(p.stops) == 0 {
		return color.NRGBA{A: 255}
	}
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}

	hi := 1
	for hi < len(p.stops)-1 && p.stops[hi].Pos < v {
		hi++
	}
	lo := hi - 1

	span := p.stops[hi].Pos - p.stops[lo].Pos
	t := (v - p.stops[lo].Pos) / span
	return lerpColor(p.stops[lo].Color, p.stops[hi].Color, t)
}

// Stops returns a copy of the gradient stops.
func (p Palette) Stops() []Stop {
	out := make([]Stop, len(p.stops))
	copy(out, p.stops)
	return out
}

// Len reports the number of stops.
func (p Palette) Len() int { return len(p.stops) }

// Valid reports whether the palette was built through New or FromColors.
func (p Palette) Valid() bool { return len(p.stops) >= 2 }

func lerpColor(a, b color.NRGBA, t float64) color.NRGBA {
	return color.NRGBA{
		R: lerpChannel(a.R, b.R, t),
		G: lerpChannel(a.G, b.G, t),
		B: lerpChannel(a.B, b.B, t),
		A: lerpChannel(a.A, b.A, t),
	}
}

func lerpChannel(a, b uint8, t float64) uint8 {
	v := (1.0-t)*float64(a) + t*float64(b)
	return uint8(math.Round(math.Max(0, math.Min(255, v))))
}
