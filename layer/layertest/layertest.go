// Package layertest has helpers shared by the cell tests.
package layertest

import (
	"math"
	"math/rand"
	"testing"

	"github.com/neurlang/rsnn/backend"
	"github.com/neurlang/rsnn/layer"
	"github.com/neurlang/rsnn/tensor"
)

// Input makes a batch of Gaussian sequences.
func Input(batch, time, size int, seed int64, std float64) *tensor.Tensor3 {
	rng := rand.New(rand.NewSource(seed))
	x := tensor.New(batch, time, size)
	for i := range x.Data {
		x.Data[i] = float32(rng.NormFloat64() * std)
	}
	return x
}

// Signal makes per step Gaussian batch×hidden matrices.
func Signal(steps, batch, hidden int, seed int64) [][]float32 {
	rng := rand.New(rand.NewSource(seed))
	out := layer.Steps(steps, batch, hidden)
	for _, s := range out {
		for i := range s {
			s[i] = float32(rng.NormFloat64())
		}
	}
	return out
}

// Dot is Σ_t <a[t], b[t]>.
func Dot(a, b [][]float32) float64 {
	var sum float64
	for t := range a {
		for i := range a[t] {
			sum += float64(a[t][i]) * float64(b[t][i])
		}
	}
	return sum
}

// Close reports the first index where a and b differ by more than tol
// relative to the largest magnitude in b.
func Close(a, b []float32, tol float64) (int, bool) {
	var scale float64 = 1e-6
	for _, v := range b {
		scale = math.Max(scale, math.Abs(float64(v)))
	}
	for i := range a {
		if math.Abs(float64(a[i])-float64(b[i])) > tol*scale {
			return i, false
		}
	}
	return -1, true
}

// EpropMatchesBackward clears the recurrent weights of cell and checks that
// eligibility traces reproduce the BPTT gradient, which is exact without
// recurrence.
func EpropMatchesBackward(t *testing.T, be backend.Backend, cell layer.Cell, x *tensor.Tensor3, rec int) {
	t.Helper()
	params := cell.Params()
	for i := range params[rec].W {
		params[rec].W[i] = 0
	}
	_, hidden := cell.Shape()
	tr := cell.Forward(be, x)
	signal := Signal(x.Time, x.Batch, hidden, 99)

	bptt := layer.NewGrads(params)
	cell.Backward(be, tr, signal, bptt)
	eprop := layer.NewGrads(params)
	cell.Eprop(be, tr, signal, eprop)

	for i, p := range params {
		if at, ok := Close(eprop[i], bptt[i], 1e-3); !ok {
			t.Errorf("%s %s: eprop %f != bptt %f at %d", cell.Kind(), p.Name, eprop[i][at], bptt[i][at], at)
		}
	}
}

// NumericGrad differentiates loss with respect to every entry of w by
// central differences. loss must read w.
func NumericGrad(w []float64, loss func() float64, eps float64) []float32 {
	g := make([]float32, len(w))
	for i := range w {
		save := w[i]
		w[i] = save + eps
		lp := loss()
		w[i] = save - eps
		lm := loss()
		w[i] = save
		g[i] = float32((lp - lm) / (2 * eps))
	}
	return g
}

// Float64s widens w.
func Float64s(w []float32) []float64 {
	out := make([]float64, len(w))
	for i, v := range w {
		out[i] = float64(v)
	}
	return out
}

// Drive is Σ_i x_i·win[i,j] + Σ_i z_i·wrec[i,j] for neuron j of the frame
// x and the previous outputs z, either of which may be nil.
func Drive(x []float32, win []float64, z []float64, wrec []float64, j, h int) float64 {
	var s float64
	for i, v := range x {
		s += float64(v) * win[i*h+j]
	}
	for i, v := range z {
		s += v * wrec[i*h+j]
	}
	return s
}
