package world

import (
	"encoding/binary"
	"fmt"
	"math"
)

// MaxElevation is the top of the absolute elevation scale.
const MaxElevation = 100.0

// CellBytes is the size of one cell in the little-endian binary layout used
// for digests and grid exports.
const CellBytes = 13

// Cell is the climate classification of one grid position.
type Cell struct {
	Elevation   float32 `json:"elevation"`
	Temperature float32 `json:"temperature"`
	Moisture    float32 `json:"moisture"`
	Biome       Biome   `json:"biome"`
}

// AppendBinary appends the cell's fixed-size little-endian encoding to dst.
func (c Cell) AppendBinary(dst []byte) []byte {
	dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(c.Elevation))
	dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(c.Temperature))
	dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(c.Moisture))
	return append(dst, byte(c.Biome))
}

// DecodeCell reads one cell written by AppendBinary.
func DecodeCell(b []byte) (Cell, error) {
	if len(b) < CellBytes {
		return Cell{}, fmt.Errorf("cell payload too short: %d bytes", len(b))
	}
	c := Cell{
		Elevation:   math.Float32frombits(binary.LittleEndian.Uint32(b[0:4])),
		Temperature: math.Float32frombits(binary.LittleEndian.Uint32(b[4:8])),
		Moisture:    math.Float32frombits(binary.LittleEndian.Uint32(b[8:12])),
		Biome:       Biome(b[12]),
	}
	if !c.Biome.Valid() {
		return Cell{}, fmt.Errorf("invalid biome %d", b[12])
	}
	return c, nil
}

// Grid is a row-major block of cells covering a whole world.
type Grid struct {
	Width  int
	Height int
	Cells  []Cell
}

func NewGrid(width, height int) *Grid {
	return &Grid{
		Width:  width,
		Height: height,
		Cells:  make([]Cell, width*height),
	}
}

func (g *Grid) index(x, y int) int {
	return y*g.Width + x
}

// At returns the cell at (x, y), wrapping both coordinates around the grid.
func (g *Grid) At(x, y int) Cell {
	return g.Cells[g.index(Wrap(x, g.Width), Wrap(y, g.Height))]
}

func (g *Grid) Set(x, y int, c Cell) {
	g.Cells[g.index(x, y)] = c
}

// Row returns the backing slice of row y.
func (g *Grid) Row(y int) []Cell {
	start := g.index(0, y)
	return g.Cells[start : start+g.Width]
}

// ChunkBuffer holds one chunk's cells plus a halo border on the upwind (+x)
// side. Halo cells carry pre-advection values only.
type ChunkBuffer struct {
	Coord ChunkCoord
	Size  int
	Halo  int
	Cells []Cell
}

func NewChunkBuffer(coord ChunkCoord, size, halo int) *ChunkBuffer {
	return &ChunkBuffer{
		Coord: coord,
		Size:  size,
		Halo:  halo,
		Cells: make([]Cell, (size+halo)*size),
	}
}

// Stride is the number of cells per buffer row, halo included.
func (b *ChunkBuffer) Stride() int {
	return b.Size + b.Halo
}

func (b *ChunkBuffer) At(localX, localY int) Cell {
	return b.Cells[localY*b.Stride()+localX]
}

func (b *ChunkBuffer) Row(localY int) []Cell {
	start := localY * b.Stride()
	return b.Cells[start : start+b.Stride()]
}

// Visible copies the Size×Size displayable block out of the buffer.
func (b *ChunkBuffer) Visible() []Cell {
	out := make([]Cell, 0, b.Size*b.Size)
	for y := 0; y < b.Size; y++ {
		out = append(out, b.Row(y)[:b.Size]...)
	}
	return out
}
