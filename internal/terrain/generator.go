package terrain

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"runtime"
	"sync"

	"climateworld/internal/config"
	"climateworld/internal/world"
)

// Generator produces whole-world grids and chunk buffers for one generation
// config. It is safe for concurrent use.
type Generator struct {
	cfg    config.Generation
	region world.Region
	synth  *Synthesizer
}

// NewGenerator panics if cfg violates a precondition of the pipeline.
func NewGenerator(cfg config.Generation) *Generator {
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("terrain: invalid generation config: %v", err))
	}
	return &Generator{
		cfg:    cfg,
		region: world.NewRegion(cfg.WorldSize, cfg.ChunkSize),
		synth:  NewSynthesizer(cfg),
	}
}

func (g *Generator) Config() config.Generation {
	return g.cfg
}

func (g *Generator) Region() world.Region {
	return g.region
}

// Sample returns the pre-advection cell at a world coordinate.
func (g *Generator) Sample(x, y int) world.Cell {
	return g.synth.Sample(x, y)
}

// GenerateWorld computes every cell of the world. Rows are sampled in
// parallel; once all rows are done, moisture is advected and cells are
// classified, again one row per task.
func (g *Generator) GenerateWorld(ctx context.Context) (*world.Grid, error) {
	size := g.cfg.WorldSize
	grid := world.NewGrid(size, size)

	progress := newProgressLogger("world generation", 2*size)
	progress.start()

	err := g.parallelRows(ctx, size, progress, func(y int) {
		row := grid.Row(y)
		for x := range row {
			row[x] = g.synth.Sample(x, y)
		}
	})
	if err != nil {
		return nil, err
	}

	err = g.parallelRows(ctx, size, progress, func(y int) {
		finishRow(grid.Row(y), size)
	})
	if err != nil {
		return nil, err
	}

	progress.finish()
	return grid, nil
}

// GenerateChunk computes one chunk plus its halo columns. Chunk coordinates
// wrap around the torus. Halo cells are sampled directly from their wrapped
// world position and keep their pre-advection values.
func (g *Generator) GenerateChunk(ctx context.Context, chunkX, chunkY int) (*world.ChunkBuffer, error) {
	coord := g.region.Normalize(world.ChunkCoord{X: chunkX, Y: chunkY})
	origin := g.region.ChunkOrigin(coord)
	buf := world.NewChunkBuffer(coord, g.cfg.ChunkSize, g.cfg.Halo)

	progress := newProgressLogger(fmt.Sprintf("chunk %v generation", coord), 2*buf.Size)
	progress.start()

	err := g.parallelRows(ctx, buf.Size, progress, func(localY int) {
		row := buf.Row(localY)
		for localX := range row {
			row[localX] = g.synth.Sample(origin.X+localX, origin.Y+localY)
		}
	})
	if err != nil {
		return nil, err
	}

	err = g.parallelRows(ctx, buf.Size, progress, func(localY int) {
		finishRow(buf.Row(localY), buf.Size)
	})
	if err != nil {
		return nil, err
	}

	progress.finish()
	return buf, nil
}

// parallelRows runs fn once for every row index on a bounded worker pool.
// fn must only touch the row it is given.
func (g *Generator) parallelRows(ctx context.Context, rows int, progress *progressLogger, fn func(y int)) error {
	if rows <= 0 {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	workers := g.workerCount(rows)
	tasks := make(chan int, workers)
	results := make(chan error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for y := range tasks {
				if err := ctx.Err(); err != nil {
					select {
					case results <- err:
					default:
					}
					return
				}

				fn(y)

				select {
				case results <- nil:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	go func() {
		defer close(tasks)
		for y := 0; y < rows; y++ {
			select {
			case <-ctx.Done():
				return
			case tasks <- y:
			}
		}
	}()

	completed := 0
	for err := range results {
		if err != nil {
			cancel()
			return err
		}
		completed++
		progress.step()
	}
	if completed < rows {
		if err := ctx.Err(); err != nil {
			return err
		}
		return fmt.Errorf("terrain: %d of %d rows completed", completed, rows)
	}
	return nil
}

func (g *Generator) workerCount(tasks int) int {
	if tasks <= 0 {
		return 0
	}

	if g.cfg.Workers > 0 {
		if g.cfg.Workers < tasks {
			return g.cfg.Workers
		}
		return tasks
	}

	workers := runtime.GOMAXPROCS(0) * 2
	if workers <= 0 {
		workers = 1
	}
	if workers > tasks {
		workers = tasks
	}
	return workers
}

type progressLogger struct {
	label    string
	total    int
	done     int
	next     int
	complete bool
}

func newProgressLogger(label string, total int) *progressLogger {
	return &progressLogger{label: label, total: total, next: 10}
}

func (p *progressLogger) start() {
	log.Printf("%s progress: 0%%", p.label)
}

func (p *progressLogger) step() {
	p.done++
	if p.total <= 0 {
		return
	}
	progress := p.done * 100 / p.total
	if progress < p.next {
		return
	}
	if progress > 100 {
		progress = 100
	}
	log.Printf("%s progress: %d%%", p.label, progress)
	if progress >= 100 {
		p.complete = true
		p.next = 110
	} else {
		p.next = ((progress / 10) + 1) * 10
	}
}

func (p *progressLogger) finish() {
	if !p.complete {
		log.Printf("%s progress: 100%%", p.label)
		p.complete = true
	}
}

// ConfigDigest identifies the output of a generation config. Configs that
// differ only in worker count share a digest.
func ConfigDigest(cfg config.Generation) string {
	cfg.Workers = 0
	payload, err := json.Marshal(cfg)
	if err != nil {
		panic(fmt.Sprintf("terrain: marshal generation config: %v", err))
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:16])
}
