package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"climateworld/internal/config"
	"climateworld/internal/network"
	"climateworld/internal/terrain"
	"climateworld/internal/world"
)

func main() {
	var (
		cfgPath   string
		seed      int64
		worldSize int
		workers   int
		outPath   string
		cacheDir  string
	)
	flag.StringVar(&cfgPath, "config", "", "path to a world configuration file (defaults are used when empty)")
	flag.Int64Var(&seed, "seed", -1, "override the configured seed")
	flag.IntVar(&worldSize, "world-size", 0, "override the configured world size")
	flag.IntVar(&workers, "workers", 0, "number of generation workers (0 picks one from GOMAXPROCS)")
	flag.StringVar(&outPath, "out", "", "write the generated grid as a compressed export to this path")
	flag.StringVar(&cacheDir, "cache", "", "bake every chunk into a chunk cache rooted at this directory")
	flag.Parse()

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	gen := cfg.Generation
	if seed >= 0 {
		gen.Seed = uint32(seed)
	}
	if worldSize > 0 {
		gen.WorldSize = worldSize
	}
	gen.Workers = workers
	if err := gen.Validate(); err != nil {
		log.Fatalf("invalid generation settings: %v", err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	generator := terrain.NewGenerator(gen)
	started := time.Now()
	grid, err := generator.GenerateWorld(ctx)
	if err != nil {
		log.Fatalf("generate world: %v", err)
	}
	summary := world.Summarize(grid)
	log.Printf("generated %dx%d world (seed %d) in %s", grid.Width, grid.Height, gen.Seed, time.Since(started).Round(time.Millisecond))
	logSummary(summary)

	if outPath != "" {
		if err := exportGrid(outPath, grid); err != nil {
			log.Fatalf("export grid: %v", err)
		}
		log.Printf("grid written to %s", outPath)
	}

	if cacheDir != "" {
		baked, err := bakeChunks(ctx, generator, cacheDir)
		if err != nil {
			log.Fatalf("bake chunks: %v", err)
		}
		log.Printf("%d chunks baked into %s", baked, cacheDir)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if _, err := writeConfigFromEnv(path); err != nil {
		return nil, err
	}
	if path == "" {
		cfg := config.Default()
		cfg.IndexPath = ""
		cfg.Cache.Enabled = false
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return &cfg, nil
	}
	return config.Load(path)
}

func logSummary(s world.Summary) {
	log.Printf("digest %s", s.Digest)
	log.Printf("elevation %.1f..%.1f, temperature %.1f..%.1f, mean moisture %.3f, ocean %.1f%%",
		s.MinElevation, s.MaxElevation, s.MinTemperature, s.MaxTemperature, s.MeanMoisture, s.OceanFraction*100)
	for _, b := range world.Biomes() {
		if n := s.Biomes[b]; n > 0 {
			log.Printf("  %-26s %8d (%.2f%%)", b, n, float64(n)*100/float64(s.Cells))
		}
	}
}

func exportGrid(path string, grid *world.Grid) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := network.EncodeGrid(f, grid); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func bakeChunks(ctx context.Context, gen *terrain.Generator, dir string) (int, error) {
	cached, err := terrain.NewCachedGenerator(gen, world.NewDiskStoreProvider(dir))
	if err != nil {
		return 0, err
	}
	defer cached.Close()

	baked := 0
	for _, coord := range gen.Region().Chunks() {
		if _, hit, err := cached.Chunk(ctx, coord.X, coord.Y); err != nil {
			return baked, fmt.Errorf("chunk %v: %w", coord, err)
		} else if !hit {
			baked++
		}
	}
	return baked, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(signals)
		select {
		case <-signals:
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}
