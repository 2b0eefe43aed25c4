package sphere

import (
	"fmt"
	"sort"
)

// Resolution is a target texture size in pixels.
type Resolution struct {
	Width  int
	Height int
}

// standardResolutions maps preset names to equirectangular (2:1) sizes.
var standardResolutions = map[string]Resolution{
	"128": {256, 128},
	"256": {512, 256},
	"512": {1024, 512},
	"1k":  {2048, 1024},
	"2k":  {4096, 2048},
	"4k":  {8192, 4096},
	"8k":  {16384, 8192},
}

// ResolutionPreset returns the dimensions for a named preset like "1k".
func ResolutionPreset(name string) (Resolution, error) {
	res, ok := standardResolutions[name]
	if !ok {
		return Resolution{}, fmt.Errorf("unknown resolution preset: %s", name)
	}
	return res, nil
}

// ResolutionNames returns the preset names sorted by width.
func ResolutionNames() []string {
	names := make([]string, 0, len(standardResolutions))
	for name := range standardResolutions {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return standardResolutions[names[i]].Width < standardResolutions[names[j]].Width
	})
	return names
}
