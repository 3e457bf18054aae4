package world

import (
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/klauspost/compress/zstd"
)

type diskChunk struct {
	X, Y  int
	Size  int
	Halo  int
	Cells []byte
}

type DiskStoreProvider struct {
	basePath string
}

// NewDiskStoreProvider creates a provider that persists chunk buffers beneath
// basePath, one directory per configuration digest.
func NewDiskStoreProvider(basePath string) *DiskStoreProvider {
	return &DiskStoreProvider{basePath: basePath}
}

func (p *DiskStoreProvider) OpenStore(configDigest string) (ChunkStore, error) {
	if configDigest == "" {
		return nil, errors.New("config digest is empty")
	}
	dir := filepath.Join(p.basePath, configDigest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create chunk cache directory: %w", err)
	}
	return &DiskChunkStore{dir: dir}, nil
}

// DiskChunkStore writes each chunk as a zstd-compressed gob file.
type DiskChunkStore struct {
	dir string
}

func (s *DiskChunkStore) chunkPath(coord ChunkCoord) string {
	return filepath.Join(s.dir, strconv.Itoa(coord.X), strconv.Itoa(coord.Y)+".chunk.zst")
}

func (s *DiskChunkStore) Load(coord ChunkCoord) (*ChunkBuffer, bool, error) {
	f, err := os.Open(s.chunkPath(coord))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("open chunk file: %w", err)
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, false, fmt.Errorf("open chunk decoder: %w", err)
	}
	defer dec.Close()

	var rec diskChunk
	if err := gob.NewDecoder(dec).Decode(&rec); err != nil {
		return nil, false, fmt.Errorf("decode chunk %v: %w", coord, err)
	}
	if rec.X != coord.X || rec.Y != coord.Y {
		return nil, false, fmt.Errorf("chunk file %v holds chunk (%d,%d)", coord, rec.X, rec.Y)
	}
	buf := NewChunkBuffer(coord, rec.Size, rec.Halo)
	if len(rec.Cells) != len(buf.Cells)*CellBytes {
		return nil, false, fmt.Errorf("chunk %v payload length mismatch: got %d want %d", coord, len(rec.Cells), len(buf.Cells)*CellBytes)
	}
	for i := range buf.Cells {
		c, err := DecodeCell(rec.Cells[i*CellBytes:])
		if err != nil {
			return nil, false, fmt.Errorf("chunk %v cell %d: %w", coord, i, err)
		}
		buf.Cells[i] = c
	}
	return buf, true, nil
}

func (s *DiskChunkStore) Save(buf *ChunkBuffer) error {
	path := s.chunkPath(buf.Coord)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create chunk directory: %w", err)
	}

	rec := diskChunk{
		X:     buf.Coord.X,
		Y:     buf.Coord.Y,
		Size:  buf.Size,
		Halo:  buf.Halo,
		Cells: make([]byte, 0, len(buf.Cells)*CellBytes),
	}
	for _, c := range buf.Cells {
		rec.Cells = c.AppendBinary(rec.Cells)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".chunk-*")
	if err != nil {
		return fmt.Errorf("create chunk temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	enc, err := zstd.NewWriter(tmp, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		tmp.Close()
		return fmt.Errorf("open chunk encoder: %w", err)
	}
	if err := gob.NewEncoder(enc).Encode(&rec); err != nil {
		enc.Close()
		tmp.Close()
		return fmt.Errorf("encode chunk %v: %w", buf.Coord, err)
	}
	if err := enc.Close(); err != nil {
		tmp.Close()
		return fmt.Errorf("flush chunk encoder: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync chunk file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close chunk file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("install chunk file: %w", err)
	}
	return nil
}

func (s *DiskChunkStore) Delete(coord ChunkCoord) error {
	err := os.Remove(s.chunkPath(coord))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete chunk file: %w", err)
	}
	return nil
}

func (s *DiskChunkStore) Close() error {
	return nil
}
