// Package alif implements the recurrent layer of adaptive leaky integrate-and-fire neurons.
package alif

import (
	"math/rand"

	"github.com/neurlang/rsnn/backend"
	"github.com/neurlang/rsnn/layer"
	"github.com/neurlang/rsnn/tensor"
)

// Cell is a LIF layer whose threshold rises after every spike:
//
//	v_t     = α·v_{t-1} + x_t·Win + z_{t-1}·Wrec − Vth·z_{t-1}
//	A_t     = Vth + β·a_t
//	z_t     = H(v_t − A_t)
//	a_{t+1} = ρ·a_t + (1−ρ)·z_t
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
func (*Cell) Kind() string { return "alif" }

// Shape implements layer.Cell.
func (c *Cell) Shape() (int, int) { return c.in, c.hidden }

// Spiking implements layer.Cell.
func (*Cell) Spiking() bool { return true }

// Params implements layer.Cell.
func (c *Cell) Params() []*layer.Param {
	return []*layer.Param{c.win, c.wrec}
}

// threshold is A_t for adaptation value a.
func (c *Cell) threshold(a float32) float32 {
	return c.Vth + c.Beta*a
}

// Forward implements layer.Cell.
func (c *Cell) Forward(be backend.Backend, x *tensor.Tensor3) *layer.Trace {
	batch, h := x.Batch, c.hidden
	tr := &layer.Trace{
		X: x,
		Z: layer.Steps(x.Time, batch, h),
		V: layer.Steps(x.Time, batch, h),
		A: layer.Steps(x.Time, batch, h),
	}
	var xt []float32
	for t := 0; t < x.Time; t++ {
		xt = x.Step(t, xt)
		v, z, a := tr.V[t], tr.Z[t], tr.A[t]
		layer.MatMul(be, v, xt, c.win.W, batch, c.in, h, 0)
		if t > 0 {
			layer.MatMul(be, v, tr.Z[t-1], c.wrec.W, batch, h, h, 1)
			vp, zp, ap := tr.V[t-1], tr.Z[t-1], tr.A[t-1]
			for i := range v {
				v[i] += c.Alpha*vp[i] - c.Vth*zp[i]
				a[i] = c.Rho*ap[i] + (1-c.Rho)*zp[i]
			}
		}
		for i := range z {
			z[i] = layer.Spike(v[i], c.threshold(a[i]))
		}
	}
	return tr
}

// Backward implements layer.Cell.
func (c *Cell) Backward(be backend.Backend, tr *layer.Trace, gz [][]float32, grads [][]float32) {
	batch, h := tr.Batch(), c.hidden
	var (
		dvNext = make([]float32, batch*h)
		daNext = make([]float32, batch*h)
		rec    = make([]float32, batch*h)
		dv     = make([]float32, batch*h)
		da     = make([]float32, batch*h)
		xt     []float32
	)
	for t := tr.Steps() - 1; t >= 0; t-- {
		layer.MatMulT(be, rec, dvNext, c.wrec.W, batch, h, h)
		v, a := tr.V[t], tr.A[t]
		for i := range dv {
			psi := c.PseudoDerivative(v[i], c.threshold(a[i]))
			dz := gz[t][i] + rec[i] + (1-c.Rho)*daNext[i]
			dv[i] = dz*psi + c.Alpha*dvNext[i]
			da[i] = -c.Beta*psi*dz + c.Rho*daNext[i]
		}
		xt = tr.X.Step(t, xt)
		layer.Outer(be, grads[0], xt, dv, batch, c.in, h)
		if t > 0 {
			layer.Outer(be, grads[1], tr.Z[t-1], dv, batch, h, h)
		}
		dv, dvNext = dvNext, dv
		da, daNext = daNext, da
	}
	layer.ZeroDiagonal(grads[1], h)
}

// synapses is the two component eligibility state of one weight matrix
type synapses struct {
	k int
	// ev is the filtered presynaptic value, batch×k
	ev []float32
	// ea is the threshold adaptation eligibility, batch×k×hidden
	ea []float32
}

func newSynapses(batch, k, h int) *synapses {
	return &synapses{k: k, ev: make([]float32, batch*k), ea: make([]float32, batch*k*h)}
}

// step folds pre into the traces and accumulates Σ_b L_j·e_ij into g.
// post holds L·ψ, psi holds ψ, both batch×hidden.
func (s *synapses) step(c *Cell, be backend.Backend, g, pre, post, psi []float32, batch int) {
	h := c.hidden
	for i := range s.ev {
		s.ev[i] = c.Alpha*s.ev[i] + pre[i]
	}
	// e_ij = ψ_j·(ev_i − β·ea_ij)
	layer.Outer(be, g, s.ev, post, batch, s.k, h)
	for b := 0; b < batch; b++ {
		pb := post[b*h : (b+1)*h]
		sb := psi[b*h : (b+1)*h]
		for i := 0; i < s.k; i++ {
			ev := s.ev[b*s.k+i]
			ea := s.ea[(b*s.k+i)*h : (b*s.k+i+1)*h]
			gi := g[i*h : (i+1)*h]
			for j := range ea {
				gi[j] -= c.Beta * pb[j] * ea[j]
				ea[j] = (1-c.Rho)*sb[j]*ev + (c.Rho-(1-c.Rho)*c.Beta*sb[j])*ea[j]
			}
		}
	}
}

// Eprop implements layer.Cell using the adaptive two component eligibility
// traces, which are tracked per synapse and sequence.
func (c *Cell) Eprop(be backend.Backend, tr *layer.Trace, ls [][]float32, grads [][]float32) {
	batch, h := tr.Batch(), c.hidden
	var (
		in   = newSynapses(batch, c.in, h)
		rec  = newSynapses(batch, h, h)
		zero = make([]float32, batch*h)
		psi  = make([]float32, batch*h)
		post = make([]float32, batch*h)
		xt   []float32
	)
	for t := 0; t < tr.Steps(); t++ {
		v, a := tr.V[t], tr.A[t]
		for i := range psi {
			psi[i] = c.PseudoDerivative(v[i], c.threshold(a[i]))
			post[i] = ls[t][i] * psi[i]
		}
		xt = tr.X.Step(t, xt)
		in.step(c, be, grads[0], xt, post, psi, batch)
		zp := zero
		if t > 0 {
			zp = tr.Z[t-1]
		}
		rec.step(c, be, grads[1], zp, post, psi, batch)
	}
	layer.ZeroDiagonal(grads[1], h)
}
