package layer

import (
	"math"
	"math/rand"
)

// Param is a trainable row-major matrix.
type Param struct {
	Name       string
	Rows, Cols int
	W          []float32

	// G accumulates the gradient of the current step.
	G []float32
}

// NewParam allocates a zeroed rows×cols parameter.
func NewParam(name string, rows, cols int) *Param {
	return &Param{
		Name: name,
		Rows: rows,
		Cols: cols,
		W:    make([]float32, rows*cols),
		G:    make([]float32, rows*cols),
	}
}

// Normal fills W with N(0, std²) samples.
func (p *Param) Normal(rng *rand.Rand, std float64) {
	for i := range p.W {
		p.W[i] = float32(rng.NormFloat64() * std)
	}
}

// FanIn fills W with N(0, scale²/Rows) samples.
func (p *Param) FanIn(rng *rand.Rand, scale float64) {
	p.Normal(rng, scale/math.Sqrt(float64(p.Rows)))
}

// ZeroGrad clears the gradient accumulator.
func (p *Param) ZeroGrad() {
	for i := range p.G {
		p.G[i] = 0
	}
}

// Len is the number of scalars in the parameter.
func (p *Param) Len() int {
	return len(p.W)
}
