package terrain

import (
	"math"

	"climateworld/internal/world"
)

// Point4 is a position on the flat torus embedded in four dimensions.
type Point4 struct {
	X, Y, Z, W float64
}

// Scale multiplies every component by f.
func (p Point4) Scale(f float64) Point4 {
	return Point4{X: p.X * f, Y: p.Y * f, Z: p.Z * f, W: p.W * f}
}

// TorusPoint maps a grid coordinate onto two circles of radius scalingFactor.
// Coordinates are wrapped first so that x and x+worldSize produce the same
// point bit for bit.
func TorusPoint(x, y, worldSize int, scalingFactor float64) Point4 {
	wx := world.Wrap(x, worldSize)
	wy := world.Wrap(y, worldSize)
	size := float64(worldSize)
	thetaX := 2 * math.Pi * float64(wx) / size
	thetaY := 2 * math.Pi * float64(wy) / size
	return Point4{
		X: math.Cos(thetaX) * scalingFactor,
		Y: math.Sin(thetaX) * scalingFactor,
		Z: math.Cos(thetaY) * scalingFactor,
		W: math.Sin(thetaY) * scalingFactor,
	}
}
