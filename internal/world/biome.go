package world

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// Biome enumerates the climate-driven biome classes.
type Biome uint8

const (
	BiomeOcean Biome = iota
	BiomeIce
	BiomeSnow
	BiomeAlpine
	BiomeTundra
	BiomeBorealForest
	BiomeTaiga
	BiomeColdDesert
	BiomeGrassland
	BiomeTemperateForest
	BiomeTemperateRainforest
	BiomeHotDesert
	BiomeSavanna
	BiomeSubtropicalForest
	BiomeTropicalRainforest

	biomeCount
)

// BiomeCount is the number of distinct biomes.
const BiomeCount = int(biomeCount)

var biomeNames = [biomeCount]string{
	BiomeOcean:               "Ocean",
	BiomeIce:                 "Ice",
	BiomeSnow:                "Snow",
	BiomeAlpine:              "Alpine",
	BiomeTundra:              "Tundra",
	BiomeBorealForest:        "BorealForest",
	BiomeTaiga:               "Taiga",
	BiomeColdDesert:          "ColdDesert",
	BiomeGrassland:           "Grassland",
	BiomeTemperateForest:     "TemperateForest",
	BiomeTemperateRainforest: "TemperateRainforest",
	BiomeHotDesert:           "HotDesert",
	BiomeSavanna:             "Savanna",
	BiomeSubtropicalForest:   "SubtropicalForest",
	BiomeTropicalRainforest:  "TropicalRainforest",
}

var biomeColors = [biomeCount]color.NRGBA{
	BiomeOcean:               {R: 0, G: 0, B: 128, A: 255},
	BiomeIce:                 {R: 173, G: 217, B: 230, A: 255},
	BiomeSnow:                {R: 242, G: 242, B: 255, A: 255},
	BiomeAlpine:              {R: 179, G: 179, B: 179, A: 255},
	BiomeTundra:              {R: 204, G: 179, B: 153, A: 255},
	BiomeBorealForest:        {R: 51, G: 102, B: 51, A: 255},
	BiomeTaiga:               {R: 77, G: 128, B: 77, A: 255},
	BiomeColdDesert:          {R: 204, G: 179, B: 128, A: 255},
	BiomeGrassland:           {R: 51, G: 204, B: 51, A: 255},
	BiomeTemperateForest:     {R: 38, G: 153, B: 38, A: 255},
	BiomeTemperateRainforest: {R: 26, G: 179, B: 51, A: 255},
	BiomeHotDesert:           {R: 255, G: 217, B: 77, A: 255},
	BiomeSavanna:             {R: 204, G: 204, B: 51, A: 255},
	BiomeSubtropicalForest:   {R: 51, G: 179, B: 77, A: 255},
	BiomeTropicalRainforest:  {R: 0, G: 153, B: 26, A: 255},
}

// Biomes lists every biome in declaration order.
func Biomes() []Biome {
	out := make([]Biome, 0, biomeCount)
	for b := Biome(0); b < biomeCount; b++ {
		out = append(out, b)
	}
	return out
}

func (b Biome) Valid() bool {
	return b < biomeCount
}

func (b Biome) String() string {
	if !b.Valid() {
		return "Biome(" + strconv.Itoa(int(b)) + ")"
	}
	return biomeNames[b]
}

// Color returns the default display color.
func (b Biome) Color() color.NRGBA {
	if !b.Valid() {
		return color.NRGBA{R: 128, G: 128, B: 128, A: 255}
	}
	return biomeColors[b]
}

// MarshalText encodes the biome by name.
func (b Biome) MarshalText() ([]byte, error) {
	if !b.Valid() {
		return nil, fmt.Errorf("invalid biome %d", uint8(b))
	}
	return []byte(biomeNames[b]), nil
}

func (b *Biome) UnmarshalText(text []byte) error {
	parsed, err := ParseBiome(string(text))
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}

// ParseBiome resolves a biome name case-insensitively.
func ParseBiome(name string) (Biome, error) {
	trimmed := strings.TrimSpace(name)
	for b, n := range biomeNames {
		if strings.EqualFold(n, trimmed) {
			return Biome(b), nil
		}
	}
	return 0, fmt.Errorf("unknown biome %q", name)
}

// Palette maps biomes to display colors for the rendering collaborator.
type Palette [biomeCount]color.NRGBA

// DefaultPalette returns the built-in biome colors.
func DefaultPalette() Palette {
	return Palette(biomeColors)
}

// NewPalette applies hex color overrides keyed by biome name.
func NewPalette(overrides map[string]string) (Palette, error) {
	p := DefaultPalette()
	for name, value := range overrides {
		b, err := ParseBiome(name)
		if err != nil {
			return p, err
		}
		col, ok := parseHexColor(value)
		if !ok {
			return p, fmt.Errorf("biome %s: invalid color %q", name, value)
		}
		p[b] = col
	}
	return p, nil
}

// Hex returns the palette color for b as "#rrggbb".
func (p Palette) Hex(b Biome) string {
	if !b.Valid() {
		return "#808080"
	}
	c := p[b]
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

func parseHexColor(value string) (color.NRGBA, bool) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return color.NRGBA{}, false
	}
	trimmed = strings.TrimPrefix(trimmed, "#")
	if len(trimmed) != 6 {
		return color.NRGBA{}, false
	}
	r, ok := parseHexByte(trimmed[0:2])
	if !ok {
		return color.NRGBA{}, false
	}
	g, ok := parseHexByte(trimmed[2:4])
	if !ok {
		return color.NRGBA{}, false
	}
	b, ok := parseHexByte(trimmed[4:6])
	if !ok {
		return color.NRGBA{}, false
	}
	return color.NRGBA{R: r, G: g, B: b, A: 255}, true
}

func parseHexByte(value string) (uint8, bool) {
	if len(value) != 2 {
		return 0, false
	}
	v, err := strconv.ParseUint(value, 16, 8)
	if err != nil {
		return 0, false
	}
	return uint8(v), true
}
