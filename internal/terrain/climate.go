package terrain

import (
	"math"

	"climateworld/internal/world"
)

// Temperature in degrees Celsius: warm equator, lapse rate with altitude and
// a ±5 degree noise perturbation.
func (s *Synthesizer) Temperature(p Point4, latitude, elevation float64) float64 {
	altitude := math.Max(elevation, 0) / world.MaxElevation
	noise := s.fields.Temperature.Eval(p.Scale(s.cfg.TemperatureScale))
	return 30 - 40*latitude - math.Pow(altitude, 1.5)*15 + noise*5
}

// RawMoisture is the pre-advection moisture in [0, 1]: a wet equator, a dry
// subtropical belt near latitude 0.3 and drier highlands.
func (s *Synthesizer) RawMoisture(p Point4, latitude, elevation float64) float64 {
	noise := s.fields.Moisture.Eval(p.Scale(s.cfg.MoistureScale))
	base := (noise + 1) / 2
	equatorial := math.Exp(-3 * latitude)
	subtropical := 0.4 * math.Exp(-math.Pow(latitude-0.3, 2)/0.02)
	altitude := elevation / world.MaxElevation * 0.25
	return clamp01(base + equatorial - subtropical - altitude)
}

// Sample computes the pre-advection cell at a world coordinate, wrapping x
// and y onto the torus. The biome is classified from the raw values.
func (s *Synthesizer) Sample(x, y int) world.Cell {
	p := TorusPoint(x, y, s.cfg.WorldSize, s.cfg.ScalingFactor)
	lat := Latitude(y, s.cfg.WorldSize)
	elevation := s.Elevation(p)
	temperature := s.Temperature(p, lat, elevation)
	moisture := s.RawMoisture(p, lat, elevation)
	return world.Cell{
		Elevation:   float32(elevation),
		Temperature: float32(temperature),
		Moisture:    float32(moisture),
		Biome:       Classify(temperature, moisture, elevation, world.MaxElevation),
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
