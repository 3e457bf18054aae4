package world

import (
	"crypto/sha256"
	"encoding/hex"
	"math"
)

// Summary describes a generated grid without carrying its cells.
type Summary struct {
	Width          int           `json:"width"`
	Height         int           `json:"height"`
	Cells          int           `json:"cells"`
	Biomes         map[Biome]int `json:"biomes"`
	OceanFraction  float64       `json:"oceanFraction"`
	MinElevation   float32       `json:"minElevation"`
	MaxElevation   float32       `json:"maxElevation"`
	MinTemperature float32       `json:"minTemperature"`
	MaxTemperature float32       `json:"maxTemperature"`
	MeanMoisture   float64       `json:"meanMoisture"`
	Digest         string        `json:"digest"`
}

// Summarize computes the biome histogram, value ranges and content digest.
func Summarize(g *Grid) Summary {
	s := Summary{
		Width:  g.Width,
		Height: g.Height,
		Cells:  len(g.Cells),
		Biomes: make(map[Biome]int),
	}
	if len(g.Cells) == 0 {
		s.Digest = Digest(nil)
		return s
	}
	s.MinElevation = float32(math.Inf(1))
	s.MaxElevation = float32(math.Inf(-1))
	s.MinTemperature = float32(math.Inf(1))
	s.MaxTemperature = float32(math.Inf(-1))

	var moisture float64
	for _, c := range g.Cells {
		s.Biomes[c.Biome]++
		s.MinElevation = min(s.MinElevation, c.Elevation)
		s.MaxElevation = max(s.MaxElevation, c.Elevation)
		s.MinTemperature = min(s.MinTemperature, c.Temperature)
		s.MaxTemperature = max(s.MaxTemperature, c.Temperature)
		moisture += float64(c.Moisture)
	}
	s.OceanFraction = float64(s.Biomes[BiomeOcean]) / float64(len(g.Cells))
	s.MeanMoisture = moisture / float64(len(g.Cells))
	s.Digest = Digest(g.Cells)
	return s
}

// Digest hashes the binary encoding of cells; equal digests mean
// byte-identical grids.
func Digest(cells []Cell) string {
	h := sha256.New()
	buf := make([]byte, 0, CellBytes*1024)
	for i, c := range cells {
		buf = c.AppendBinary(buf)
		if (i+1)%1024 == 0 {
			h.Write(buf)
			buf = buf[:0]
		}
	}
	h.Write(buf)
	return hex.EncodeToString(h.Sum(nil))
}
