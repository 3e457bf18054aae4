package terrain

import "climateworld/internal/world"

// seaLevel is the fraction of maxElevation below which a cell is ocean.
const seaLevel = 0.48

// Classify maps a cell's climate to exactly one biome. Checks run in order:
// ocean, ice, snow, alpine, then temperature bands split by moisture.
func Classify(temperature, moisture, elevation, maxElevation float64) world.Biome {
	switch {
	case elevation < seaLevel*maxElevation:
		return world.BiomeOcean
	case temperature < -10:
		return world.BiomeIce
	case elevation > 0.75*maxElevation && temperature <= 0:
		return world.BiomeSnow
	case elevation > 0.6*maxElevation && temperature <= 2:
		return world.BiomeAlpine
	}

	switch {
	case temperature < -5:
		if moisture < 0.4 {
			return world.BiomeTundra
		}
		return world.BiomeBorealForest
	case temperature < 5:
		if moisture < 0.3 {
			return world.BiomeTundra
		}
		return world.BiomeTaiga
	case temperature < 18:
		switch {
		case moisture < 0.2:
			return world.BiomeColdDesert
		case moisture < 0.5:
			return world.BiomeGrassland
		case moisture < 0.75:
			return world.BiomeTemperateForest
		default:
			return world.BiomeTemperateRainforest
		}
	case temperature < 25:
		switch {
		case moisture < 0.2:
			return world.BiomeHotDesert
		case moisture < 0.5:
			return world.BiomeSavanna
		default:
			return world.BiomeSubtropicalForest
		}
	default:
		switch {
		case moisture < 0.2:
			return world.BiomeHotDesert
		case moisture < 0.45:
			return world.BiomeSavanna
		default:
			return world.BiomeTropicalRainforest
		}
	}
}
