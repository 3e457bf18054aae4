package world

import "testing"

func TestToroidalIndexWrapsNegativeAndOverflow(t *testing.T) {
	if got, want := ToroidalIndex(-1, 0, 10), ToroidalIndex(9, 0, 10); got != want {
		t.Fatalf("index(-1,0) = %d, want %d", got, want)
	}
	if got, want := ToroidalIndex(0, -1, 10), ToroidalIndex(0, 9, 10); got != want {
		t.Fatalf("index(0,-1) = %d, want %d", got, want)
	}
	if got := ToroidalIndex(10, 10, 10); got != 0 {
		t.Fatalf("index(10,10) = %d, want 0", got)
	}
	if got := ToroidalIndex(-21, 3, 10); got != 3*10+9 {
		t.Fatalf("index(-21,3) = %d, want %d", got, 3*10+9)
	}
}

func TestWrap(t *testing.T) {
	cases := []struct {
		v, m, want int
	}{
		{0, 5, 0},
		{4, 5, 4},
		{5, 5, 0},
		{-1, 5, 4},
		{-5, 5, 0},
		{-6, 5, 4},
		{12, 5, 2},
	}
	for _, tc := range cases {
		if got := Wrap(tc.v, tc.m); got != tc.want {
			t.Fatalf("Wrap(%d,%d) = %d, want %d", tc.v, tc.m, got, tc.want)
		}
	}
}

func TestRegionLocateCell(t *testing.T) {
	r := NewRegion(256, 64)
	if r.ChunksPerAxis() != 4 {
		t.Fatalf("expected 4 chunks per axis, got %d", r.ChunksPerAxis())
	}

	chunk, local := r.LocateCell(CellCoord{X: 130, Y: 5})
	if chunk != (ChunkCoord{X: 2, Y: 0}) || local != (CellCoord{X: 2, Y: 5}) {
		t.Fatalf("unexpected location %v %v", chunk, local)
	}

	chunk, local = r.LocateCell(CellCoord{X: -1, Y: -64})
	if chunk != (ChunkCoord{X: 3, Y: 3}) || local != (CellCoord{X: 63, Y: 0}) {
		t.Fatalf("unexpected wrapped location %v %v", chunk, local)
	}

	if got := r.Normalize(ChunkCoord{X: -1, Y: 5}); got != (ChunkCoord{X: 3, Y: 1}) {
		t.Fatalf("unexpected normalized coord %v", got)
	}
	if !r.Contains(ChunkCoord{X: 3, Y: 3}) || r.Contains(ChunkCoord{X: 4, Y: 0}) {
		t.Fatalf("Contains mismatch")
	}
	if got := len(r.Chunks()); got != 16 {
		t.Fatalf("expected 16 chunks, got %d", got)
	}
}

func TestNewRegionPanicsOnUnevenChunks(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for chunk size not dividing world size")
		}
	}()
	NewRegion(100, 30)
}

func TestFloorDiv(t *testing.T) {
	cases := []struct {
		value, size, want int
	}{
		{0, 16, 0},
		{15, 16, 0},
		{16, 16, 1},
		{-1, 16, -1},
		{-16, 16, -1},
		{-17, 16, -2},
	}
	for _, tc := range cases {
		if got := floorDiv(tc.value, tc.size); got != tc.want {
			t.Fatalf("floorDiv(%d,%d) = %d, want %d", tc.value, tc.size, got, tc.want)
		}
	}
}

func TestGridAtWraps(t *testing.T) {
	g := NewGrid(4, 4)
	g.Set(3, 0, Cell{Elevation: 7, Biome: BiomeSavanna})
	if got := g.At(-1, 4); got.Elevation != 7 || got.Biome != BiomeSavanna {
		t.Fatalf("expected wrapped lookup to hit (3,0), got %+v", got)
	}
	if len(g.Row(2)) != 4 {
		t.Fatalf("expected row length 4")
	}
}

func TestChunkBufferVisibleDropsHalo(t *testing.T) {
	buf := NewChunkBuffer(ChunkCoord{}, 2, 1)
	if len(buf.Cells) != 6 {
		t.Fatalf("expected 6 cells including halo, got %d", len(buf.Cells))
	}
	for i := range buf.Cells {
		buf.Cells[i].Elevation = float32(i)
	}
	visible := buf.Visible()
	want := []float32{0, 1, 3, 4}
	if len(visible) != len(want) {
		t.Fatalf("expected %d visible cells, got %d", len(want), len(visible))
	}
	for i, c := range visible {
		if c.Elevation != want[i] {
			t.Fatalf("visible[%d] = %v, want %v", i, c.Elevation, want[i])
		}
	}
	if buf.At(2, 1).Elevation != 5 {
		t.Fatalf("expected halo cell at (2,1)")
	}
}
