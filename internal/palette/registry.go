package palette

import (
	"encoding/json"
	"fmt"
	"image/color"
	"sort"
)

// namedColors holds the predefined color lists keyed by palette name.
// Planetary palettes suit earth and gas giant textures; the marble_* entries
// are two-color base/vein pairs.
var namedColors = map[string][]color.NRGBA{
	"jupiter": {
		{R: 255, G: 165, B: 0, A: 255},
		{R: 204, G: 85, B: 0, A: 255},
		{R: 153, G: 101, B: 21, A: 255},
		{R: 111, G: 78, B: 55, A: 255},
	},
	"neptune": {
		{R: 173, G: 216, B: 230, A: 255},
		{R: 0, G: 255, B: 255, A: 255},
		{R: 0, G: 0, B: 139, A: 255},
		{R: 106, G: 90, B: 205, A: 255},
	},
	"saturn": {
		{R: 153, G: 50, B: 204, A: 255},
		{R: 128, G: 0, B: 128, A: 255},
		{R: 230, G: 230, B: 250, A: 255},
		{R: 221, G: 160, B: 221, A: 255},
	},
	"venus": {
		{R: 0, G: 201, B: 87, A: 255},
		{R: 173, G: 255, B: 47, A: 255},
		{R: 255, G: 255, B: 0, A: 255},
		{R: 128, G: 128, B: 0, A: 255},
	},
	"mars": {
		{R: 178, G: 34, B: 34, A: 255},
		{R: 255, G: 127, B: 80, A: 255},
		{R: 165, G: 42, B: 42, A: 255},
		{R: 250, G: 128, B: 114, A: 255},
	},
	"mercury": {
		{R: 169, G: 169, B: 169, A: 255},
		{R: 192, G: 192, B: 192, A: 255},
		{R: 47, G: 79, B: 79, A: 255},
		{R: 211, G: 211, B: 211, A: 255},
	},
	"uranus": {
		{R: 64, G: 224, B: 208, A: 255},
		{R: 0, G: 128, B: 128, A: 255},
		{R: 0, G: 150, B: 136, A: 255},
		{R: 152, G: 251, B: 152, A: 255},
	},
	"pluto": {
		{R: 0, G: 0, B: 0, A: 255},
		{R: 69, G: 47, B: 32, A: 255},
		{R: 54, G: 54, B: 54, A: 255},
		{R: 139, G: 62, B: 47, A: 255},
	},
	"titan": {
		{R: 255, G: 215, B: 0, A: 255},
		{R: 218, G: 165, B: 32, A: 255},
		{R: 184, G: 134, B: 11, A: 255},
		{R: 250, G: 235, B: 215, A: 255},
	},
	"europa": {
		{R: 255, G: 255, B: 255, A: 255},
		{R: 202, G: 225, B: 255, A: 255},
		{R: 240, G: 248, B: 255, A: 255},
		{R: 176, G: 224, B: 230, A: 255},
	},
	"marble_classic": {
		{R: 245, G: 245, B: 220, A: 255},
		{R: 105, G: 105, B: 105, A: 255},
	},
	"marble_onyx": {
		{R: 30, G: 30, B: 30, A: 255},
		{R: 255, G: 215, B: 0, A: 255},
	},
	"marble_emerald": {
		{R: 240, G: 255, B: 240, A: 255},
		{R: 0, G: 100, B: 0, A: 255},
	},
	// Texture-type defaults.
	"earth_default": {
		{R: 65, G: 105, B: 225, A: 255},
		{R: 34, G: 139, B: 34, A: 255},
		{R: 139, G: 69, B: 19, A: 255},
	},
	"gas_giant_default": {
		{R: 255, G: 140, B: 0, A: 255},
		{R: 255, G: 165, B: 0, A: 255},
		{R: 139, G: 69, B: 19, A: 255},
		{R: 160, G: 82, B: 45, A: 255},
	},
	"marble_default": {
		{R: 240, G: 240, B: 240, A: 255},
		{R: 128, G: 128, B: 128, A: 255},
	},
}

// Lookup resolves a palette name from the registry.
func Lookup(name string) (Palette, error) {
	colors, ok := namedColors[name]
	if !ok {
		return Palette{}, fmt.Errorf("unknown palette: %s", name)
	}
	return FromColors(colors)
}

// Names returns all registered palette names, sorted.
func Names() []string {
	names := make([]string, 0, len(namedColors))
	for name := range namedColors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Parse accepts either a registered palette name or a JSON list of RGB(A)
// triples/quadruples, e.g. "[[255,140,0],[204,85,0]]".
func Parse(s string) (Palette, error) {
	if s == "" {
		return Palette{}, fmt.Errorf("empty palette spec")
	}
	if s[0] != '[' {
		return Lookup(s)
	}

	var raw [][]int
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		return Palette{}, fmt.Errorf("invalid palette JSON: %w", err)
	}

	colors := make([]color.NRGBA, 0, len(raw))
	for i, tuple := range raw {
		if len(tuple) != 3 && len(tuple) != 4 {
			return Palette{}, fmt.Errorf("color %d must have 3 or 4 components, got %d", i, len(tuple))
		}
		for _, v := range tuple {
			if v < 0 || v > 255 {
				return Palette{}, fmt.Errorf("color %d has component %d outside 0-255", i, v)
			}
		}
		c := color.NRGBA{R: uint8(tuple[0]), G: uint8(tuple[1]), B: uint8(tuple[2]), A: 255}
		if len(tuple) == 4 {
			c.A = uint8(tuple[3])
		}
		colors = append(colors, c)
	}
	return FromColors(colors)
}
