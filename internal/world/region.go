package world

import "fmt"

// ChunkCoord identifies a chunk in chunk space.
type ChunkCoord struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// CellCoord is a position in world cell space.
type CellCoord struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Region describes how a square toroidal world is partitioned into chunks.
type Region struct {
	WorldSize int
	ChunkSize int
}

// NewRegion panics unless chunkSize evenly divides worldSize.
func NewRegion(worldSize, chunkSize int) Region {
	if worldSize <= 0 || chunkSize <= 0 || worldSize%chunkSize != 0 {
		panic(fmt.Sprintf("world: chunk size %d must evenly divide world size %d", chunkSize, worldSize))
	}
	return Region{WorldSize: worldSize, ChunkSize: chunkSize}
}

func (r Region) ChunksPerAxis() int {
	return r.WorldSize / r.ChunkSize
}

func (r Region) Contains(coord ChunkCoord) bool {
	n := r.ChunksPerAxis()
	return coord.X >= 0 && coord.Y >= 0 && coord.X < n && coord.Y < n
}

// Normalize wraps a chunk coordinate onto the torus.
func (r Region) Normalize(coord ChunkCoord) ChunkCoord {
	n := r.ChunksPerAxis()
	return ChunkCoord{X: Wrap(coord.X, n), Y: Wrap(coord.Y, n)}
}

// ChunkOrigin returns the world cell of a chunk's top-left corner.
func (r Region) ChunkOrigin(coord ChunkCoord) CellCoord {
	return CellCoord{X: coord.X * r.ChunkSize, Y: coord.Y * r.ChunkSize}
}

// LocateCell returns the chunk owning a world cell and the cell's local offset,
// wrapping out-of-range coordinates.
func (r Region) LocateCell(cell CellCoord) (ChunkCoord, CellCoord) {
	x := Wrap(cell.X, r.WorldSize)
	y := Wrap(cell.Y, r.WorldSize)
	chunk := ChunkCoord{
		X: floorDiv(x, r.ChunkSize),
		Y: floorDiv(y, r.ChunkSize),
	}
	return chunk, CellCoord{X: x - chunk.X*r.ChunkSize, Y: y - chunk.Y*r.ChunkSize}
}

// Chunks lists every chunk in row-major order.
func (r Region) Chunks() []ChunkCoord {
	n := r.ChunksPerAxis()
	out := make([]ChunkCoord, 0, n*n)
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			out = append(out, ChunkCoord{X: x, Y: y})
		}
	}
	return out
}

// Wrap maps v into [0, m) using a non-negative modulo.
func Wrap(v, m int) int {
	return ((v % m) + m) % m
}

// ToroidalIndex returns the row-major index of (x, y) in a size×size world,
// wrapping negative and out-of-range coordinates.
func ToroidalIndex(x, y, size int) int {
	return Wrap(y, size)*size + Wrap(x, size)
}

func floorDiv(value, size int) int {
	if size <= 0 {
		return 0
	}
	if value >= 0 {
		return value / size
	}
	return -((-value - 1) / size) - 1
}
