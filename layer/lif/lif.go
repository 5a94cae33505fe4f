// Package lif implements the recurrent layer of leaky integrate-and-fire neurons.
package lif

import (
	"math/rand"

	"github.com/neurlang/rsnn/backend"
	"github.com/neurlang/rsnn/layer"
	"github.com/neurlang/rsnn/tensor"
)

// Cell integrates
//
//	v_t = α·v_{t-1} + x_t·Win + z_{t-1}·Wrec − Vth·z_{t-1}
//	z_t = H(v_t − Vth)
//
// Neurons have no self connections. Gradients skip the reset term.
type Cell struct {
	layer.Neuron
	in, hidden int
	win, wrec  *layer.Param
}

var _ layer.Cell = (*Cell)(nil)

// New makes a cell with fan-in scaled Gaussian weights.
func New(o layer.Options) *Cell {
	rng := rand.New(rand.NewSource(o.Seed))
	c := &Cell{
		Neuron: o.Neuron,
		in:     o.Inputs,
		hidden: o.Hidden,
		win:    layer.NewParam("w_in", o.Inputs, o.Hidden),
		wrec:   layer.NewParam("w_rec", o.Hidden, o.Hidden),
	}
	c.Neuron.Update()
	c.win.FanIn(rng, 1)
	c.wrec.FanIn(rng, 1)
	layer.ZeroDiagonal(c.wrec.W, c.hidden)
	return c
}

// Kind implements layer.Cell.
func (*Cell) Kind() string { return "lif" }

// Shape implements layer.Cell.
func (c *Cell) Shape() (int, int) { return c.in, c.hidden }

// Spiking implements layer.Cell.
func (*Cell) Spiking() bool { return true }

// Params implements layer.Cell.
func (c *Cell) Params() []*layer.Param {
	return []*layer.Param{c.win, c.wrec}
}

// Forward implements layer.Cell.
func (c *Cell) Forward(be backend.Backend, x *tensor.Tensor3) *layer.Trace {
	batch, h := x.Batch, c.hidden
	tr := &layer.Trace{
		X: x,
		Z: layer.Steps(x.Time, batch, h),
		V: layer.Steps(x.Time, batch, h),
	}
	var xt []float32
	for t := 0; t < x.Time; t++ {
		xt = x.Step(t, xt)
		v, z := tr.V[t], tr.Z[t]
		layer.MatMul(be, v, xt, c.win.W, batch, c.in, h, 0)
		if t > 0 {
			layer.MatMul(be, v, tr.Z[t-1], c.wrec.W, batch, h, h, 1)
			vp, zp := tr.V[t-1], tr.Z[t-1]
			for i := range v {
				v[i] += c.Alpha*vp[i] - c.Vth*zp[i]
			}
		}
		for i := range z {
			z[i] = layer.Spike(v[i], c.Vth)
		}
	}
	return tr
}

// Backward implements layer.Cell.
func (c *Cell) Backward(be backend.Backend, tr *layer.Trace, gz [][]float32, grads [][]float32) {
	batch, h := tr.Batch(), c.hidden
	var (
		dvNext = make([]float32, batch*h)
		dz     = make([]float32, batch*h)
		dv     = make([]float32, batch*h)
		xt     []float32
	)
	for t := tr.Steps() - 1; t >= 0; t-- {
		layer.MatMulT(be, dz, dvNext, c.wrec.W, batch, h, h)
		v := tr.V[t]
		for i := range dv {
			dv[i] = (gz[t][i]+dz[i])*c.PseudoDerivative(v[i], c.Vth) + c.Alpha*dvNext[i]
		}
		xt = tr.X.Step(t, xt)
		layer.Outer(be, grads[0], xt, dv, batch, c.in, h)
		if t > 0 {
			layer.Outer(be, grads[1], tr.Z[t-1], dv, batch, h, h)
		}
		dv, dvNext = dvNext, dv
	}
	layer.ZeroDiagonal(grads[1], h)
}

// Eprop implements layer.Cell. The eligibility trace of synapse i→j is
// ψ_j·ε_i with ε the presynaptic value low-pass filtered by α.
func (c *Cell) Eprop(be backend.Backend, tr *layer.Trace, ls [][]float32, grads [][]float32) {
	batch, h := tr.Batch(), c.hidden
	var (
		epsIn  = make([]float32, batch*c.in)
		epsRec = make([]float32, batch*h)
		post   = make([]float32, batch*h)
		xt     []float32
	)
	for t := 0; t < tr.Steps(); t++ {
		xt = tr.X.Step(t, xt)
		for i := range epsIn {
			epsIn[i] = c.Alpha*epsIn[i] + xt[i]
		}
		if t > 0 {
			zp := tr.Z[t-1]
			for i := range epsRec {
				epsRec[i] = c.Alpha*epsRec[i] + zp[i]
			}
		}
		v := tr.V[t]
		for i := range post {
			post[i] = ls[t][i] * c.PseudoDerivative(v[i], c.Vth)
		}
		layer.Outer(be, grads[0], epsIn, post, batch, c.in, h)
		layer.Outer(be, grads[1], epsRec, post, batch, h, h)
	}
	layer.ZeroDiagonal(grads[1], h)
}
