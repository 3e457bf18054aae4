package worldmap

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"climateworld/internal/config"
	"climateworld/internal/indexdb"
	"climateworld/internal/terrain"
	"climateworld/internal/world"
)

var ErrWorldNotFound = errors.New("world not found")

// Recorder persists world descriptions so evicted or restarted worlds can be
// regenerated from their config.
type Recorder interface {
	RecordWorld(ctx context.Context, rec indexdb.WorldRecord) error
	LoadWorld(ctx context.Context, id string) (indexdb.WorldRecord, bool, error)
	ListWorlds(ctx context.Context) ([]indexdb.WorldRecord, error)
}

type WorldInfo struct {
	ID        string            `json:"id"`
	Config    config.Generation `json:"config"`
	Summary   world.Summary     `json:"summary"`
	CreatedAt time.Time         `json:"createdAt"`
	Loaded    bool              `json:"loaded"`
}

type entry struct {
	info     WorldInfo
	grid     *world.Grid
	lastUsed uint64
}

// Index holds generated worlds. At most capacity grids stay in memory; the
// least recently used grid is dropped first and regenerated on demand.
type Index struct {
	mu       sync.RWMutex
	entries  map[string]*entry
	capacity int
	recorder Recorder
	clock    uint64
}

// NewIndex creates an index. recorder may be nil.
func NewIndex(capacity int, recorder Recorder) *Index {
	if capacity <= 0 {
		capacity = 1
	}
	return &Index{
		entries:  make(map[string]*entry),
		capacity: capacity,
		recorder: recorder,
	}
}

// Restore loads every recorded world description without generating grids.
func (idx *Index) Restore(ctx context.Context) (int, error) {
	if idx.recorder == nil {
		return 0, nil
	}
	records, err := idx.recorder.ListWorlds(ctx)
	if err != nil {
		return 0, fmt.Errorf("list recorded worlds: %w", err)
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	restored := 0
	for _, rec := range records {
		if _, ok := idx.entries[rec.ID]; ok {
			continue
		}
		idx.entries[rec.ID] = &entry{info: infoFromRecord(rec)}
		restored++
	}
	return restored, nil
}

// Add registers a freshly generated grid and records it.
func (idx *Index) Add(ctx context.Context, id string, cfg config.Generation, grid *world.Grid) (WorldInfo, error) {
	info := WorldInfo{
		ID:        id,
		Config:    cfg,
		Summary:   world.Summarize(grid),
		CreatedAt: time.Now().UTC(),
		Loaded:    true,
	}

	if idx.recorder != nil {
		rec := indexdb.WorldRecord{
			ID:            id,
			Config:        cfg,
			Digest:        info.Summary.Digest,
			Width:         grid.Width,
			Height:        grid.Height,
			OceanFraction: info.Summary.OceanFraction,
			Biomes:        info.Summary.Biomes,
			CreatedAt:     info.CreatedAt,
		}
		if err := idx.recorder.RecordWorld(ctx, rec); err != nil {
			return WorldInfo{}, fmt.Errorf("record world %s: %w", id, err)
		}
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.clock++
	idx.entries[id] = &entry{info: info, grid: grid, lastUsed: idx.clock}
	idx.evictLocked()
	return info, nil
}

// Info returns a world's description without loading its grid.
func (idx *Index) Info(ctx context.Context, id string) (WorldInfo, error) {
	idx.mu.RLock()
	e, ok := idx.entries[id]
	var info WorldInfo
	if ok {
		info = e.info
		info.Loaded = e.grid != nil
	}
	idx.mu.RUnlock()
	if ok {
		return info, nil
	}

	rec, err := idx.lookupRecord(ctx, id)
	if err != nil {
		return WorldInfo{}, err
	}
	return infoFromRecord(rec), nil
}

// Get returns the world and its grid, regenerating the grid if it was evicted
// or is only known to the recorder.
func (idx *Index) Get(ctx context.Context, id string) (WorldInfo, *world.Grid, error) {
	idx.mu.Lock()
	if e, ok := idx.entries[id]; ok && e.grid != nil {
		idx.clock++
		e.lastUsed = idx.clock
		info, grid := e.info, e.grid
		idx.mu.Unlock()
		return info, grid, nil
	}
	e, known := idx.entries[id]
	var info WorldInfo
	if known {
		info = e.info
	}
	idx.mu.Unlock()

	if !known {
		rec, err := idx.lookupRecord(ctx, id)
		if err != nil {
			return WorldInfo{}, nil, err
		}
		info = infoFromRecord(rec)
	}

	grid, err := terrain.NewGenerator(info.Config).GenerateWorld(ctx)
	if err != nil {
		return WorldInfo{}, nil, fmt.Errorf("regenerate world %s: %w", id, err)
	}
	summary := world.Summarize(grid)
	if info.Summary.Digest != "" && summary.Digest != info.Summary.Digest {
		return WorldInfo{}, nil, fmt.Errorf("regenerated world %s digest %s does not match recorded %s", id, summary.Digest, info.Summary.Digest)
	}
	info.Summary = summary
	info.Loaded = true

	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.clock++
	idx.entries[id] = &entry{info: info, grid: grid, lastUsed: idx.clock}
	idx.evictLocked()
	return info, grid, nil
}

// Lookup resolves a cell at any integer coordinate, wrapping it onto the torus.
func (idx *Index) Lookup(ctx context.Context, id string, x, y int) (world.Cell, error) {
	_, grid, err := idx.Get(ctx, id)
	if err != nil {
		return world.Cell{}, err
	}
	return grid.At(x, y), nil
}

// Worlds lists known worlds, oldest first.
func (idx *Index) Worlds() []WorldInfo {
	idx.mu.RLock()
	out := make([]WorldInfo, 0, len(idx.entries))
	for _, e := range idx.entries {
		info := e.info
		info.Loaded = e.grid != nil
		out = append(out, info)
	}
	idx.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Loaded reports how many grids are held in memory.
func (idx *Index) Loaded() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	n := 0
	for _, e := range idx.entries {
		if e.grid != nil {
			n++
		}
	}
	return n
}

func (idx *Index) lookupRecord(ctx context.Context, id string) (indexdb.WorldRecord, error) {
	if idx.recorder == nil {
		return indexdb.WorldRecord{}, fmt.Errorf("%w: %s", ErrWorldNotFound, id)
	}
	rec, ok, err := idx.recorder.LoadWorld(ctx, id)
	if err != nil {
		return indexdb.WorldRecord{}, fmt.Errorf("load world %s: %w", id, err)
	}
	if !ok {
		return indexdb.WorldRecord{}, fmt.Errorf("%w: %s", ErrWorldNotFound, id)
	}
	return rec, nil
}

func (idx *Index) evictLocked() {
	for {
		loaded := 0
		var victim *entry
		for _, e := range idx.entries {
			if e.grid == nil {
				continue
			}
			loaded++
			if victim == nil || e.lastUsed < victim.lastUsed {
				victim = e
			}
		}
		if loaded <= idx.capacity || victim == nil {
			return
		}
		victim.grid = nil
		victim.info.Loaded = false
	}
}

func infoFromRecord(rec indexdb.WorldRecord) WorldInfo {
	cells := rec.Width * rec.Height
	return WorldInfo{
		ID:     rec.ID,
		Config: rec.Config,
		Summary: world.Summary{
			Width:         rec.Width,
			Height:        rec.Height,
			Cells:         cells,
			Biomes:        rec.Biomes,
			OceanFraction: rec.OceanFraction,
			Digest:        rec.Digest,
		},
		CreatedAt: rec.CreatedAt,
	}
}
