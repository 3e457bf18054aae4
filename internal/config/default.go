package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultGeneration returns the generation parameters used when no request
// overrides them.
func DefaultGeneration() Generation {
	return Generation{
		Seed:             1337,
		TerrainScale:     0.005,
		ContinentalScale: 0.0005,
		OctaveCount:      4,
		SeaThreshold:     0.48,
		TemperatureScale: 0.0005,
		MoistureScale:    0.0008,
		ScalingFactor:    100,
		WorldSize:        4096,
		ChunkSize:        256,
		Halo:             1,
	}
}

// Default returns a configuration populated with sensible defaults so that a
// world server can be started without any prior configuration.
func Default() Config {
	return Config{
		ListenAddress: "0.0.0.0",
		HTTPPort:      28080,
		DataRoot:      "./data",
		IndexPath:     "./data/worlds.db",
		Cache: CacheConfig{
			Enabled: true,
			Dir:     "./data/chunks",
		},
		Limits: LimitsConfig{
			MaxWorldSize:    4096,
			MaxLoadedWorlds: 8,
		},
		Stream: StreamConfig{
			WriteTimeout: Duration(5 * time.Second),
			ChunkBuffer:  16,
		},
		Generation: DefaultGeneration(),
	}
}

// WriteDefault writes the default configuration to the provided path.
func WriteDefault(path string) error {
	cfg := Default()

	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return fmt.Errorf("marshal default config: %w", err)
	}

	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write default config: %w", err)
	}

	return nil
}
