package world

import (
	"encoding/json"
	"testing"
)

func TestBiomeNamesRoundTrip(t *testing.T) {
	biomes := Biomes()
	if len(biomes) != BiomeCount {
		t.Fatalf("expected %d biomes, got %d", BiomeCount, len(biomes))
	}
	for _, b := range biomes {
		parsed, err := ParseBiome(b.String())
		if err != nil {
			t.Fatalf("ParseBiome(%q): %v", b.String(), err)
		}
		if parsed != b {
			t.Fatalf("ParseBiome(%q) = %v", b.String(), parsed)
		}
		if b.Color().A != 255 {
			t.Fatalf("biome %v has transparent color", b)
		}
	}
	if _, err := ParseBiome("Coast"); err == nil {
		t.Fatalf("expected legacy tag to be rejected")
	}
	if b, err := ParseBiome(" tropicalrainforest "); err != nil || b != BiomeTropicalRainforest {
		t.Fatalf("expected case-insensitive parse, got %v %v", b, err)
	}
}

func TestBiomeJSONUsesNames(t *testing.T) {
	payload, err := json.Marshal(map[Biome]int{BiomeOcean: 3})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(payload) != `{"Ocean":3}` {
		t.Fatalf("unexpected payload %s", payload)
	}
	var decoded map[Biome]int
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded[BiomeOcean] != 3 {
		t.Fatalf("unexpected decoded map %v", decoded)
	}
	if _, err := json.Marshal(Biome(200)); err == nil {
		t.Fatalf("expected invalid biome to fail marshalling")
	}
}

func TestNewPaletteOverrides(t *testing.T) {
	p, err := NewPalette(map[string]string{"ocean": "#102030"})
	if err != nil {
		t.Fatalf("NewPalette: %v", err)
	}
	if got := p.Hex(BiomeOcean); got != "#102030" {
		t.Fatalf("expected override, got %s", got)
	}
	if got := p.Hex(BiomeHotDesert); got != "#ffd94d" {
		t.Fatalf("expected default hot desert color, got %s", got)
	}
	if _, err := NewPalette(map[string]string{"Ocean": "blue"}); err == nil {
		t.Fatalf("expected invalid color to fail")
	}
	if _, err := NewPalette(map[string]string{"Volcano": "#000000"}); err == nil {
		t.Fatalf("expected unknown biome to fail")
	}
}

func TestSummarizeCountsBiomes(t *testing.T) {
	g := NewGrid(2, 2)
	g.Cells[0] = Cell{Elevation: -5, Temperature: 20, Moisture: 0.2, Biome: BiomeOcean}
	g.Cells[1] = Cell{Elevation: 40, Temperature: 10, Moisture: 0.4, Biome: BiomeGrassland}
	g.Cells[2] = Cell{Elevation: 90, Temperature: -12, Moisture: 0.6, Biome: BiomeIce}
	g.Cells[3] = Cell{Elevation: 10, Temperature: 15, Moisture: 0.8, Biome: BiomeOcean}

	s := Summarize(g)
	if s.Cells != 4 || s.Biomes[BiomeOcean] != 2 || s.Biomes[BiomeIce] != 1 {
		t.Fatalf("unexpected histogram %+v", s.Biomes)
	}
	if s.OceanFraction != 0.5 {
		t.Fatalf("expected ocean fraction 0.5, got %v", s.OceanFraction)
	}
	if s.MinElevation != -5 || s.MaxElevation != 90 {
		t.Fatalf("unexpected elevation range %v..%v", s.MinElevation, s.MaxElevation)
	}
	if s.MinTemperature != -12 || s.MaxTemperature != 20 {
		t.Fatalf("unexpected temperature range %v..%v", s.MinTemperature, s.MaxTemperature)
	}

	other := NewGrid(2, 2)
	copy(other.Cells, g.Cells)
	if Summarize(other).Digest != s.Digest {
		t.Fatalf("expected equal grids to share a digest")
	}
	other.Cells[3].Moisture = 0.81
	if Summarize(other).Digest == s.Digest {
		t.Fatalf("expected digest to change with cell content")
	}
}

func TestDecodeCellRejectsInvalidBiome(t *testing.T) {
	payload := Cell{Elevation: 1, Biome: BiomeTaiga}.AppendBinary(nil)
	c, err := DecodeCell(payload)
	if err != nil || c.Biome != BiomeTaiga || c.Elevation != 1 {
		t.Fatalf("unexpected decode %+v %v", c, err)
	}
	payload[CellBytes-1] = 99
	if _, err := DecodeCell(payload); err == nil {
		t.Fatalf("expected invalid biome byte to fail")
	}
	if _, err := DecodeCell(payload[:4]); err == nil {
		t.Fatalf("expected short payload to fail")
	}
}
