package noise

import "fmt"

// CoordinateMode selects which components of a sphere point feed the noise
// primitive.
type CoordinateMode int

const (
	// ModeXY projects the point onto its X/Y plane components. Y carries
	// pure latitude in our axis convention, so the result varies strongly
	// with latitude and is suited to banded textures.
	ModeXY CoordinateMode = iota
	// ModeXZ samples the full 3D point for true spherical continuity.
	ModeXZ
)

// String returns the wire name of the mode ("xy" or "xz").
func (m CoordinateMode) String() string {
	switch m {
	case ModeXY:
		return "xy"
	case ModeXZ:
		return "xz"
	default:
		return fmt.Sprintf("CoordinateMode(%d)", int(m))
	}
}

// ParseCoordinateMode parses "xy" or "xz".
func ParseCoordinateMode(s string) (CoordinateMode, error) {
	switch s {
	case "xy":
		return ModeXY, nil
	case "xz":
		return ModeXZ, nil
	default:
		return 0, fmt.Errorf("coordinate mode must be 'xy' or 'xz', got %q", s)
	}
}

// Config holds validated fractal noise parameters. The zero value is not
// usable; construct via NewConfig so invalid parameters are rejected up
// front rather than at sampling time.
type Config struct {
	octaves int
	scale   float64
	mode    CoordinateMode
}

// NewConfig validates and builds an immutable noise configuration.
func NewConfig(octaves int, scale float64, mode CoordinateMode) (Config, error) {
	if octaves < 1 {
		return Config{}, fmt.Errorf("octaves must be at least 1, got %d", octaves)
	}
	if scale <= 0 {
		return Config{}, fmt.Errorf("scale must be positive, got %g", scale)
	}
	if mode != ModeXY && mode != ModeXZ {
		return Config{}, fmt.Errorf("invalid coordinate mode %d", int(mode))
	}
	return Config{octaves: octaves, scale: scale, mode: mode}, nil
}

// DefaultConfig returns the standard parameters: 6 octaves, scale 100, XY.
func DefaultConfig() Config {
	return Config{octaves: 6, scale: 100.0, mode: ModeXY}
}

// WithMode returns a copy of the config with the coordinate mode replaced.
func (c Config) WithMode(mode CoordinateMode) Config {
	c.mode = mode
	return c
}

// Octaves reports the number of fractal layers.
func (c Config) Octaves() int { return c.octaves }

// Scale reports the caller-facing scale factor.
func (c Config) Scale() float64 { return c.scale }

// Mode reports the coordinate mode.
func (c Config) Mode() CoordinateMode { return c.mode }

// Valid reports whether the config was built through NewConfig.
func (c Config) Valid() bool {
	return c.octaves >= 1 && c.scale > 0
}

// baseFrequency maps the scale knob onto the first octave's frequency over
// unit-sphere coordinates. Scale 100 corresponds to frequency 1.
func (c Config) baseFrequency() float64 {
	return c.scale * 0.01
}
