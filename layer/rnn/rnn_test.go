package rnn

import "testing"

import "github.com/neurlang/rsnn/backend/native"
import "github.com/neurlang/rsnn/layer"
import "github.com/neurlang/rsnn/layer/layertest"

func opts() layer.Options {
	var n layer.Neuron
	n.Defaults()
	return layer.Options{Inputs: 3, Hidden: 5, Neuron: n, Seed: 1}
}

func TestForwardBounded(t *testing.T) {
	c := New(opts())
	tr := c.Forward(native.New(1), layertest.Input(2, 6, 3, 2, 1))
	if tr.Steps() != 6 || len(tr.Z[0]) != 10 {
		t.Fatalf("trace shape %d steps, %d values", tr.Steps(), len(tr.Z[0]))
	}
	for _, z := range tr.Z {
		for _, v := range z {
			if v <= -1 || v >= 1 {
				t.Fatalf("tanh output out of range: %f", v)
			}
		}
	}
}

// TestBackwardFiniteDifference checks BPTT against numeric derivatives of
// L = Σ_t <r_t, h_t>.
func TestBackwardFiniteDifference(t *testing.T) {
	be := native.New(1)
	c := New(opts())
	x := layertest.Input(2, 5, 3, 4, 1)
	r := layertest.Signal(5, 2, 5, 8)

	grads := layer.NewGrads(c.Params())
	c.Backward(be, c.Forward(be, x), r, grads)

	const eps = 1e-2
	for pi, p := range c.Params() {
		for _, i := range []int{0, p.Len() / 2, p.Len() - 1} {
			orig := p.W[i]
			p.W[i] = orig + eps
			up := layertest.Dot(r, c.Forward(be, x).Z)
			p.W[i] = orig - eps
			down := layertest.Dot(r, c.Forward(be, x).Z)
			p.W[i] = orig
			numeric := (up - down) / (2 * eps)
			if d := numeric - float64(grads[pi][i]); d > 2e-2 || d < -2e-2 {
				t.Errorf("%s[%d]: bptt %f numeric %f", p.Name, i, grads[pi][i], numeric)
			}
		}
	}
}

func TestEpropMatchesBackwardWithoutRecurrence(t *testing.T) {
	c := New(opts())
	layertest.EpropMatchesBackward(t, native.New(1), c, layertest.Input(3, 7, 3, 5, 1), 1)
}
