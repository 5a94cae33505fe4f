package lif

import "testing"

import "github.com/neurlang/rsnn/backend/native"
import "github.com/neurlang/rsnn/layer"
import "github.com/neurlang/rsnn/layer/layertest"
import "github.com/neurlang/rsnn/tensor"

func opts() layer.Options {
	var n layer.Neuron
	n.Defaults()
	return layer.Options{Inputs: 4, Hidden: 6, Neuron: n, Seed: 3}
}

func TestNoSelfConnections(t *testing.T) {
	c := New(opts())
	for i := 0; i < 6; i++ {
		if w := c.Params()[1].W[i*6+i]; w != 0 {
			t.Errorf("self connection %d = %f", i, w)
		}
	}
}

func TestConstantDriveSpikesAndResets(t *testing.T) {
	o := opts()
	o.Inputs, o.Hidden = 1, 1
	c := New(o)
	c.Params()[0].W[0] = 0.3
	x := tensor.New(1, 40, 1)
	for i := range x.Data {
		x.Data[i] = 1
	}
	tr := c.Forward(native.New(1), x)
	var spikes int
	for s, z := range tr.Z {
		if z[0] == 1 {
			spikes++
			if s+1 < len(tr.V) && tr.V[s+1][0] >= tr.V[s][0] {
				t.Errorf("no reset after spike at %d: %f -> %f", s, tr.V[s][0], tr.V[s+1][0])
			}
		}
	}
	if spikes == 0 || spikes == 40 {
		t.Errorf("expected regular spiking, got %d spikes", spikes)
	}
}

func TestEpropMatchesBackwardWithoutRecurrence(t *testing.T) {
	c := New(opts())
	layertest.EpropMatchesBackward(t, native.New(2), c, layertest.Input(3, 12, 4, 7, 1), 1)
}

func TestBackwardDiagonalStaysZero(t *testing.T) {
	be := native.New(1)
	c := New(opts())
	x := layertest.Input(2, 10, 4, 9, 2)
	grads := layer.NewGrads(c.Params())
	c.Backward(be, c.Forward(be, x), layertest.Signal(10, 2, 6, 1), grads)
	for i := 0; i < 6; i++ {
		if g := grads[1][i*6+i]; g != 0 {
			t.Errorf("diagonal gradient %d = %f", i, g)
		}
	}
}

// linearised is Σ_t <gz_t, z_t> for a copy of the cell whose spikes are
// replaced by their first order expansion around tr, with the reset held
// at the spikes of tr. Its derivative is what Backward computes.
func linearised(c *Cell, tr *layer.Trace, gz [][]float32, win, wrec []float64) float64 {
	batch, h := tr.Batch(), c.hidden
	var vp, zp []float64
	var loss float64
	for s := 0; s < tr.Steps(); s++ {
		v := make([]float64, batch*h)
		z := make([]float64, batch*h)
		for b := 0; b < batch; b++ {
			var prev []float64
			if s > 0 {
				prev = zp[b*h : (b+1)*h]
			}
			for j := 0; j < h; j++ {
				k := b*h + j
				v[k] = layertest.Drive(tr.X.Row(b, s), win, prev, wrec, j, h)
				if s > 0 {
					v[k] += float64(c.Alpha)*vp[k] - float64(c.Vth*tr.Z[s-1][k])
				}
				psi := float64(c.PseudoDerivative(tr.V[s][k], c.Vth))
				z[k] = float64(tr.Z[s][k]) + psi*(v[k]-float64(tr.V[s][k]))
				loss += float64(gz[s][k]) * z[k]
			}
		}
		vp, zp = v, z
	}
	return loss
}

func TestBackwardMatchesLinearisedReference(t *testing.T) {
	be := native.New(1)
	c := New(opts())
	x := layertest.Input(2, 8, 4, 11, 2)
	tr := c.Forward(be, x)
	gz := layertest.Signal(8, 2, 6, 5)
	grads := layer.NewGrads(c.Params())
	c.Backward(be, tr, gz, grads)

	win := layertest.Float64s(c.Params()[0].W)
	wrec := layertest.Float64s(c.Params()[1].W)
	loss := func() float64 { return linearised(c, tr, gz, win, wrec) }
	numIn := layertest.NumericGrad(win, loss, 1e-3)
	numRec := layertest.NumericGrad(wrec, loss, 1e-3)
	layer.ZeroDiagonal(numRec, 6)

	if at, ok := layertest.Close(grads[0], numIn, 1e-3); !ok {
		t.Errorf("w_in: bptt %f reference %f at %d", grads[0][at], numIn[at], at)
	}
	if at, ok := layertest.Close(grads[1], numRec, 1e-3); !ok {
		t.Errorf("w_rec: bptt %f reference %f at %d", grads[1][at], numRec[at], at)
	}
	var norm float64
	for _, g := range numRec {
		norm += float64(g * g)
	}
	if norm == 0 {
		t.Error("recurrent gradient vanished, reference checks nothing")
	}
}
