package synth

import "fmt"

// TextureType is the closed set of procedural texture kinds.
type TextureType int

const (
	Earth TextureType = iota
	GasGiant
	Marble
)

// String returns the wire name of the type.
func (t TextureType) String() string {
	switch t {
	case Earth:
		return "earth"
	case GasGiant:
		return "gas_giant"
	case Marble:
		return "marble"
	default:
		return fmt.Sprintf("TextureType(%d)", int(t))
	}
}

// ParseTextureType parses "earth", "gas_giant", or "marble".
func ParseTextureType(s string) (TextureType, error) {
	switch s {
	case "earth":
		return Earth, nil
	case "gas_giant":
		return GasGiant, nil
	case "marble":
		return Marble, nil
	default:
		return 0, fmt.Errorf("unsupported texture type: %s", s)
	}
}

// TextureTypes lists all supported types in declaration order.
func TextureTypes() []TextureType {
	return []TextureType{Earth, GasGiant, Marble}
}

// DefaultPaletteName returns the registry palette a type falls back to when
// the caller supplies none.
func (t TextureType) DefaultPaletteName() string {
	switch t {
	case GasGiant:
		return "gas_giant_default"
	case Marble:
		return "marble_default"
	default:
		return "earth_default"
	}
}
