package terrain

import "climateworld/internal/world"

// advectionLoss is the moisture lost per unit of normalized climb.
const advectionLoss = 0.4

// AdvectRow carries moisture one cell downwind along a row. The wind blows
// from +x toward -x, so cell x takes its moisture from x+1, losing some when
// the upwind cell is lower. Only the first width cells are updated; the
// neighbour of the last updated cell is row[width] when the row carries a halo
// and row[0] otherwise. All reads use the moisture values from before the pass.
func AdvectRow(row []world.Cell, width int) {
	if width <= 0 || len(row) == 0 {
		return
	}
	if width > len(row) {
		width = len(row)
	}
	raw := make([]float32, len(row))
	for i := range row {
		raw[i] = row[i].Moisture
	}
	for x := 0; x < width; x++ {
		up := x + 1
		if up >= len(row) {
			up = 0
		}
		diff := float64(row[x].Elevation-row[up].Elevation) / world.MaxElevation
		moisture := float64(raw[up])
		if diff > 0 {
			moisture -= diff * advectionLoss
		}
		row[x].Moisture = float32(clamp01(moisture))
	}
}

// AdvectGrid runs AdvectRow over every row of a whole-world grid, wrapping at
// the row end, and reclassifies the updated cells.
func AdvectGrid(g *world.Grid) {
	for y := 0; y < g.Height; y++ {
		finishRow(g.Row(y), g.Width)
	}
}

// AdvectChunk advects the visible columns of a chunk buffer using its halo.
func AdvectChunk(buf *world.ChunkBuffer) {
	for y := 0; y < buf.Size; y++ {
		finishRow(buf.Row(y), buf.Size)
	}
}

func finishRow(row []world.Cell, width int) {
	AdvectRow(row, width)
	for x := 0; x < width; x++ {
		c := &row[x]
		c.Biome = Classify(float64(c.Temperature), float64(c.Moisture), float64(c.Elevation), world.MaxElevation)
	}
}
