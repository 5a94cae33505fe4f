// Package optimizer implements the Adam update rule over layer parameters.
package optimizer

import (
	"math"

	"github.com/neurlang/rsnn/layer"
)

// Adam is the optimizer of Kingma and Ba. Moments are kept per parameter
// name, so one Adam must not be shared by two models.
type Adam struct {
	LearningRate float64
	Beta1        float64
	Beta2        float64
	Epsilon      float64

	steps int
	m, v  map[string][]float64
	delta map[string][]float32
}

// NewAdam returns Adam with the usual moment constants.
func NewAdam(learningRate float64) *Adam {
	return &Adam{LearningRate: learningRate, Beta1: 0.9, Beta2: 0.999, Epsilon: 1e-8}
}

// Step applies one update from the accumulated gradients p.G and returns
// the deltas that were added to p.W, keyed by parameter name.
func (a *Adam) Step(params []*layer.Param) map[string][]float32 {
	if a.m == nil {
		a.m = make(map[string][]float64)
		a.v = make(map[string][]float64)
		a.delta = make(map[string][]float32)
	}
	a.steps++
	c1 := 1 - math.Pow(a.Beta1, float64(a.steps))
	c2 := 1 - math.Pow(a.Beta2, float64(a.steps))
	for _, p := range params {
		m, v, d := a.m[p.Name], a.v[p.Name], a.delta[p.Name]
		if len(m) != len(p.G) {
			m = make([]float64, len(p.G))
			v = make([]float64, len(p.G))
			d = make([]float32, len(p.G))
			a.m[p.Name], a.v[p.Name], a.delta[p.Name] = m, v, d
		}
		for i, g := range p.G {
			gi := float64(g)
			m[i] = a.Beta1*m[i] + (1-a.Beta1)*gi
			v[i] = a.Beta2*v[i] + (1-a.Beta2)*gi*gi
			d[i] = float32(-a.LearningRate * (m[i] / c1) / (math.Sqrt(v[i]/c2) + a.Epsilon))
			p.W[i] += d[i]
		}
	}
	return a.delta
}

// Delta is the last update applied to the named parameter, nil before the
// first step.
func (a *Adam) Delta(name string) []float32 {
	return a.delta[name]
}

// Steps counts the updates applied so far.
func (a *Adam) Steps() int {
	return a.steps
}
