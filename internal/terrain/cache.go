package terrain

import (
	"context"
	"fmt"

	"climateworld/internal/world"
)

// CachedGenerator serves chunk buffers from a store, generating and saving
// the ones it has not seen.
type CachedGenerator struct {
	gen   *Generator
	store world.ChunkStore
}

// NewCachedGenerator opens the store for gen's config digest.
func NewCachedGenerator(gen *Generator, provider world.StoreProvider) (*CachedGenerator, error) {
	store, err := provider.OpenStore(ConfigDigest(gen.Config()))
	if err != nil {
		return nil, fmt.Errorf("open chunk store: %w", err)
	}
	return &CachedGenerator{gen: gen, store: store}, nil
}

func (c *CachedGenerator) Generator() *Generator {
	return c.gen
}

// Chunk returns the chunk buffer and whether it came from the store.
func (c *CachedGenerator) Chunk(ctx context.Context, chunkX, chunkY int) (*world.ChunkBuffer, bool, error) {
	coord := c.gen.Region().Normalize(world.ChunkCoord{X: chunkX, Y: chunkY})
	buf, ok, err := c.store.Load(coord)
	if err != nil {
		return nil, false, fmt.Errorf("load chunk %v: %w", coord, err)
	}
	cfg := c.gen.Config()
	if ok && buf.Size == cfg.ChunkSize && buf.Halo == cfg.Halo {
		return buf, true, nil
	}

	buf, err = c.gen.GenerateChunk(ctx, coord.X, coord.Y)
	if err != nil {
		return nil, false, err
	}
	if err := c.store.Save(buf); err != nil {
		return nil, false, fmt.Errorf("save chunk %v: %w", coord, err)
	}
	return buf, false, nil
}

func (c *CachedGenerator) Close() error {
	return c.store.Close()
}
