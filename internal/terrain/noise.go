package terrain

import (
	"github.com/ojrac/opensimplex-go"
)

// Field is a seeded, read-only 4D OpenSimplex noise source. Eval is safe for
// concurrent use.
type Field struct {
	seed  uint32
	noise opensimplex.Noise
}

func NewField(seed uint32) Field {
	return Field{seed: seed, noise: opensimplex.New(int64(seed))}
}

func (f Field) Seed() uint32 {
	return f.seed
}

// Eval samples the field at p, returning a value in [-1, 1].
func (f Field) Eval(p Point4) float64 {
	return f.noise.Eval4(p.X, p.Y, p.Z, p.W)
}

// FieldSet bundles the four independent fields a world is built from.
type FieldSet struct {
	Terrain     Field
	Continental Field
	Temperature Field
	Moisture    Field
}

// NewFieldSet derives the four fields from consecutive seeds. Seed arithmetic
// wraps at 2^32.
func NewFieldSet(seed uint32) FieldSet {
	return FieldSet{
		Terrain:     NewField(seed),
		Continental: NewField(seed + 1),
		Temperature: NewField(seed + 2),
		Moisture:    NewField(seed + 3),
	}
}
