package config

import (
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"strings"
)

// FieldValues holds the raw text a user typed into the world setup form.
type FieldValues struct {
	Seed             string `json:"seed,omitempty"`
	TerrainScale     string `json:"terrain_scale,omitempty"`
	ContinentalScale string `json:"continental_scale,omitempty"`
	OctaveCount      string `json:"octave_count,omitempty"`
	SeaThreshold     string `json:"sea_threshold,omitempty"`
	TemperatureScale string `json:"temperature_scale,omitempty"`
	MoistureScale    string `json:"moisture_scale,omitempty"`
	ScalingFactor    string `json:"scaling_factor,omitempty"`
	WorldSize        string `json:"world_size,omitempty"`
}

// FieldFallback records a field whose input was replaced by a default.
type FieldFallback struct {
	Field  string `json:"field"`
	Input  string `json:"input"`
	Value  string `json:"value"`
	Reason string `json:"reason"`
}

// ParseFields converts form input into a Generation, starting from base.
// An unusable seed is replaced by a value drawn from rng (or the global
// source when rng is nil); any other unusable field keeps the value from base.
func ParseFields(fields FieldValues, base Generation, rng *rand.Rand) (Generation, []FieldFallback) {
	out := base
	var fallbacks []FieldFallback

	note := func(field, input, value, reason string) {
		fallbacks = append(fallbacks, FieldFallback{Field: field, Input: input, Value: value, Reason: reason})
	}

	seedText := strings.TrimSpace(fields.Seed)
	if seed, err := strconv.ParseUint(seedText, 10, 32); err == nil {
		out.Seed = uint32(seed)
	} else {
		if rng != nil {
			out.Seed = rng.Uint32()
		} else {
			out.Seed = rand.Uint32()
		}
		note("seed", fields.Seed, strconv.FormatUint(uint64(out.Seed), 10), reasonFor(seedText))
	}

	floats := []struct {
		name  string
		input string
		dst   *float64
		check func(float64) bool
	}{
		{"terrain_scale", fields.TerrainScale, &out.TerrainScale, positive},
		{"continental_scale", fields.ContinentalScale, &out.ContinentalScale, positive},
		{"sea_threshold", fields.SeaThreshold, &out.SeaThreshold, unitInterval},
		{"temperature_scale", fields.TemperatureScale, &out.TemperatureScale, positive},
		{"moisture_scale", fields.MoistureScale, &out.MoistureScale, positive},
		{"scaling_factor", fields.ScalingFactor, &out.ScalingFactor, positive},
	}
	for _, f := range floats {
		text := strings.TrimSpace(f.input)
		v, err := strconv.ParseFloat(text, 64)
		if err == nil && f.check(v) {
			*f.dst = v
			continue
		}
		reason := reasonFor(text)
		if err == nil {
			reason = "out of range"
		}
		note(f.name, f.input, strconv.FormatFloat(*f.dst, 'g', -1, 64), reason)
	}

	ints := []struct {
		name  string
		input string
		dst   *int
		check func(int) bool
	}{
		{"octave_count", fields.OctaveCount, &out.OctaveCount, func(v int) bool { return v >= 1 && v <= 16 }},
		{"world_size", fields.WorldSize, &out.WorldSize, func(v int) bool { return v > 0 && v%out.ChunkSize == 0 }},
	}
	for _, f := range ints {
		text := strings.TrimSpace(f.input)
		v, err := strconv.Atoi(text)
		if err == nil && f.check(v) {
			*f.dst = v
			continue
		}
		reason := reasonFor(text)
		if err == nil {
			reason = "out of range"
		}
		note(f.name, f.input, strconv.Itoa(*f.dst), reason)
	}

	return out, fallbacks
}

func reasonFor(text string) string {
	if text == "" {
		return "empty"
	}
	return "not a number"
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}

func unitInterval(v float64) bool {
	return v >= 0 && v <= 1
}

// String renders a fallback for log lines.
func (f FieldFallback) String() string {
	return fmt.Sprintf("%s=%q -> %s (%s)", f.Field, f.Input, f.Value, f.Reason)
}
