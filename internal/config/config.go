package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a config-friendly wrapper around time.Duration that accepts human
// readable strings such as "150ms" in both YAML and JSON documents while still
// allowing numeric representations when necessary.
type Duration time.Duration

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// MarshalJSON encodes the duration using the canonical string representation.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalJSON decodes a duration from either a string (e.g. "250ms") or a
// numeric value representing nanoseconds. Empty strings and null values decode
// to zero.
func (d *Duration) UnmarshalJSON(b []byte) error {
	if len(b) == 0 {
		return fmt.Errorf("duration: empty value")
	}
	if string(b) == "null" {
		*d = 0
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("duration: decode string: %w", err)
		}
		return d.parse(s)
	}
	var n int64
	if err := json.Unmarshal(b, &n); err == nil {
		*d = Duration(time.Duration(n))
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err == nil {
		*d = Duration(time.Duration(f))
		return nil
	}
	return fmt.Errorf("duration: invalid value %s", string(b))
}

// MarshalYAML encodes the duration as its string form.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML accepts the same forms as UnmarshalJSON.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node.Tag == "!!int" {
		var n int64
		if err := node.Decode(&n); err != nil {
			return fmt.Errorf("duration: decode int: %w", err)
		}
		*d = Duration(time.Duration(n))
		return nil
	}
	var s string
	if err := node.Decode(&s); err != nil {
		return fmt.Errorf("duration: decode string: %w", err)
	}
	return d.parse(s)
}

func (d *Duration) parse(s string) error {
	if s == "" {
		*d = 0
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("duration: parse %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Config captures the parameters needed to bootstrap the world service.
type Config struct {
	ListenAddress string            `yaml:"listen_address" json:"listenAddress"`
	HTTPPort      int               `yaml:"http_port" json:"httpPort"`
	DataRoot      string            `yaml:"data_root" json:"dataRoot"`
	IndexPath     string            `yaml:"index_path" json:"indexPath"`
	Cache         CacheConfig       `yaml:"cache" json:"cache"`
	Limits        LimitsConfig      `yaml:"limits" json:"limits"`
	Stream        StreamConfig      `yaml:"stream" json:"stream"`
	Generation    Generation        `yaml:"generation" json:"generation"`
	BiomeColors   map[string]string `yaml:"biome_colors,omitempty" json:"biomeColors,omitempty"`
}

type CacheConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Dir     string `yaml:"dir" json:"dir"`
}

type LimitsConfig struct {
	MaxWorldSize    int `yaml:"max_world_size" json:"maxWorldSize"`
	MaxLoadedWorlds int `yaml:"max_loaded_worlds" json:"maxLoadedWorlds"`
}

type StreamConfig struct {
	WriteTimeout Duration `yaml:"write_timeout" json:"writeTimeout"` // per websocket frame
	ChunkBuffer  int      `yaml:"chunk_buffer" json:"chunkBuffer"`   // queued chunk messages per subscriber
}

// Generation is the immutable set of inputs for one world generation request.
type Generation struct {
	Seed             uint32  `yaml:"seed" json:"seed"`
	TerrainScale     float64 `yaml:"terrain_scale" json:"terrainScale"`
	ContinentalScale float64 `yaml:"continental_scale" json:"continentalScale"`
	OctaveCount      int     `yaml:"octave_count" json:"octaveCount"`
	// SeaThreshold is informational; ocean classification uses a fixed sea level.
	SeaThreshold     float64 `yaml:"sea_threshold" json:"seaThreshold"`
	TemperatureScale float64 `yaml:"temperature_scale" json:"temperatureScale"`
	MoistureScale    float64 `yaml:"moisture_scale" json:"moistureScale"`
	ScalingFactor    float64 `yaml:"scaling_factor" json:"scalingFactor"`
	WorldSize        int     `yaml:"world_size" json:"worldSize"`
	ChunkSize        int     `yaml:"chunk_size" json:"chunkSize"`
	Halo             int     `yaml:"halo" json:"halo"`
	Workers          int     `yaml:"workers,omitempty" json:"workers,omitempty"`
}

// Load reads a YAML configuration file and validates it.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.ListenAddress == "" {
		c.ListenAddress = "0.0.0.0"
	}
	if c.HTTPPort == 0 {
		c.HTTPPort = 28080
	}
	if c.HTTPPort < 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("http_port %d out of range", c.HTTPPort)
	}
	if c.DataRoot == "" {
		c.DataRoot = "./data"
	}
	if c.Cache.Enabled && c.Cache.Dir == "" {
		return errors.New("cache.dir must be set when cache.enabled is true")
	}
	if c.Limits.MaxWorldSize <= 0 {
		c.Limits.MaxWorldSize = 4096
	}
	if c.Limits.MaxLoadedWorlds <= 0 {
		c.Limits.MaxLoadedWorlds = 8
	}
	if c.Stream.WriteTimeout <= 0 {
		c.Stream.WriteTimeout = Duration(5 * time.Second)
	}
	if c.Stream.ChunkBuffer <= 0 {
		c.Stream.ChunkBuffer = 16
	}
	if err := c.Generation.Validate(); err != nil {
		return fmt.Errorf("generation: %w", err)
	}
	if c.Generation.WorldSize > c.Limits.MaxWorldSize {
		return fmt.Errorf("generation.world_size %d exceeds limits.max_world_size %d", c.Generation.WorldSize, c.Limits.MaxWorldSize)
	}
	if err := validateBiomeColors(c.BiomeColors); err != nil {
		return err
	}
	return nil
}

// Validate reports the first violated precondition of the generation pipeline.
func (g Generation) Validate() error {
	if g.TerrainScale <= 0 {
		return errors.New("terrain_scale must be positive")
	}
	if g.ContinentalScale <= 0 {
		return errors.New("continental_scale must be positive")
	}
	if g.TemperatureScale <= 0 {
		return errors.New("temperature_scale must be positive")
	}
	if g.MoistureScale <= 0 {
		return errors.New("moisture_scale must be positive")
	}
	if g.ScalingFactor <= 0 {
		return errors.New("scaling_factor must be positive")
	}
	if g.OctaveCount < 1 {
		return errors.New("octave_count must be at least 1")
	}
	if g.SeaThreshold < 0 || g.SeaThreshold > 1 {
		return errors.New("sea_threshold must be within [0,1]")
	}
	if g.WorldSize <= 0 {
		return errors.New("world_size must be positive")
	}
	if g.ChunkSize <= 0 {
		return errors.New("chunk_size must be positive")
	}
	if g.WorldSize%g.ChunkSize != 0 {
		return fmt.Errorf("chunk_size %d must evenly divide world_size %d", g.ChunkSize, g.WorldSize)
	}
	if g.Halo < 1 {
		return errors.New("halo must be at least 1")
	}
	if g.Workers < 0 {
		return errors.New("workers cannot be negative")
	}
	return nil
}

func validateBiomeColors(colors map[string]string) error {
	for name, value := range colors {
		if name == "" {
			return errors.New("biome_colors contains an empty biome name")
		}
		if !isValidHexColor(value) {
			return fmt.Errorf("biome_colors[%s] must be a hex RGB value", name)
		}
	}
	return nil
}

func isValidHexColor(s string) bool {
	if len(s) != 7 || s[0] != '#' {
		return false
	}
	for _, ch := range s[1:] {
		switch {
		case ch >= '0' && ch <= '9':
		case ch >= 'a' && ch <= 'f':
		case ch >= 'A' && ch <= 'F':
		default:
			return false
		}
	}
	return true
}
