package terrain

import (
	"math"

	"climateworld/internal/config"
	"climateworld/internal/world"
)

// seaBias lowers the continental signal so that slightly more of the world
// ends up below sea level.
const seaBias = 0.075

// Synthesizer evaluates the per-cell elevation and climate formulas. It holds
// no mutable state and is shared by all workers of a generation run.
type Synthesizer struct {
	cfg    config.Generation
	fields FieldSet
}

func NewSynthesizer(cfg config.Generation) *Synthesizer {
	return &Synthesizer{cfg: cfg, fields: NewFieldSet(cfg.Seed)}
}

func (s *Synthesizer) Fields() FieldSet {
	return s.fields
}

// Elevation combines octave terrain noise with the continental mask and maps
// the result onto the absolute 0..100 scale. The result is not clamped.
func (s *Synthesizer) Elevation(p Point4) float64 {
	terrain := s.fractalNoise(p)
	continental := s.fields.Continental.Eval(p.Scale(s.cfg.ContinentalScale))
	normalized := (continental - seaBias) + terrain*LandStrength(continental)
	return (normalized + 1) / 2 * world.MaxElevation
}

func (s *Synthesizer) fractalNoise(p Point4) float64 {
	frequency := s.cfg.TerrainScale
	amplitude := 1.0
	noiseSum := 0.0
	maxAmplitude := 0.0

	for i := 0; i < s.cfg.OctaveCount; i++ {
		noiseSum += s.fields.Terrain.Eval(p.Scale(frequency)) * amplitude
		maxAmplitude += amplitude
		amplitude *= 0.5
		frequency *= 2
	}

	if maxAmplitude == 0 {
		return 0
	}
	return noiseSum / maxAmplitude
}

// LandStrength is the weight given to terrain detail for a continental sample.
// Deep ocean stays flat; continental interiors get the full octave signal.
func LandStrength(c float64) float64 {
	switch {
	case c == -1:
		return 0
	case c > -1 && c <= -0.5:
		return 0.1
	case c > -0.5 && c <= 0:
		return 0.5
	case c > 0 && c <= 0.5:
		return 0.8
	case c > 0.5 && c <= 1:
		return 1
	default:
		return 0
	}
}

// Latitude is the normalized distance of row y from the equator, which sits
// at the middle row: 0 at the equator, 1 at row 0.
func Latitude(y, worldSize int) float64 {
	half := float64(worldSize) / 2
	return math.Abs(float64(world.Wrap(y, worldSize))-half) / half
}
