package world

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func sampleBuffer(coord ChunkCoord) *ChunkBuffer {
	buf := NewChunkBuffer(coord, 4, 1)
	for i := range buf.Cells {
		buf.Cells[i] = Cell{
			Elevation:   float32(i) * 1.5,
			Temperature: float32(i) - 10,
			Moisture:    float32(i%5) / 5,
			Biome:       Biome(i % BiomeCount),
		}
	}
	return buf
}

func TestDiskChunkStoreRoundTrip(t *testing.T) {
	provider := NewDiskStoreProvider(t.TempDir())
	store, err := provider.OpenStore("abc123")
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	defer store.Close()

	coord := ChunkCoord{X: 2, Y: 3}
	if _, ok, err := store.Load(coord); err != nil || ok {
		t.Fatalf("expected miss before save, got ok=%v err=%v", ok, err)
	}

	buf := sampleBuffer(coord)
	if err := store.Save(buf); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, ok, err := store.Load(coord)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !ok {
		t.Fatalf("expected chunk to be present")
	}
	if !reflect.DeepEqual(loaded, buf) {
		t.Fatalf("reloaded chunk mismatch")
	}

	if err := store.Delete(coord); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := store.Load(coord); ok {
		t.Fatalf("expected chunk to be gone after delete")
	}
	if err := store.Delete(coord); err != nil {
		t.Fatalf("Delete missing: %v", err)
	}
}

func TestDiskChunkStoreLayout(t *testing.T) {
	base := t.TempDir()
	store, err := NewDiskStoreProvider(base).OpenStore("digest")
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	if err := store.Save(sampleBuffer(ChunkCoord{X: 1, Y: 7})); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := os.Stat(filepath.Join(base, "digest", "1", "7.chunk.zst")); err != nil {
		t.Fatalf("expected chunk file on disk: %v", err)
	}
}

func TestDiskChunkStoreRejectsCorruptFile(t *testing.T) {
	base := t.TempDir()
	store, err := NewDiskStoreProvider(base).OpenStore("digest")
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	path := filepath.Join(base, "digest", "0", "0.chunk.zst")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("not zstd"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, _, err := store.Load(ChunkCoord{}); err == nil {
		t.Fatalf("expected corrupt chunk to fail")
	}
}

func TestDiskStoreProviderRequiresDigest(t *testing.T) {
	if _, err := NewDiskStoreProvider(t.TempDir()).OpenStore(""); err == nil {
		t.Fatalf("expected empty digest to fail")
	}
}

func TestMemoryStoreProviderSharesStores(t *testing.T) {
	provider := NewMemoryStoreProvider()
	a, _ := provider.OpenStore("x")
	b, _ := provider.OpenStore("x")
	c, _ := provider.OpenStore("y")

	buf := sampleBuffer(ChunkCoord{X: 1})
	if err := a.Save(buf); err != nil {
		t.Fatalf("Save: %v", err)
	}
	buf.Cells[0].Elevation = 999

	loaded, ok, err := b.Load(ChunkCoord{X: 1})
	if err != nil || !ok {
		t.Fatalf("expected shared store hit, ok=%v err=%v", ok, err)
	}
	if loaded.Cells[0].Elevation == 999 {
		t.Fatalf("expected store to hold a copy of the saved buffer")
	}
	if _, ok, _ := c.Load(ChunkCoord{X: 1}); ok {
		t.Fatalf("expected distinct digests to use distinct stores")
	}
	if a.(*MemoryChunkStore).Len() != 1 {
		t.Fatalf("expected one cached chunk")
	}
}
