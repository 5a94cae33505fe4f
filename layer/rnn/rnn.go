// Package rnn implements the vanilla tanh recurrent layer.
package rnn

import (
	"math/rand"

	"github.com/goki/mat32"

	"github.com/neurlang/rsnn/backend"
	"github.com/neurlang/rsnn/layer"
	"github.com/neurlang/rsnn/tensor"
)

// Cell computes h_t = tanh(x_t·Win + h_{t-1}·Wrec + b).
type Cell struct {
	in, hidden int
	win, wrec  *layer.Param
	bias       *layer.Param
}

var _ layer.Cell = (*Cell)(nil)

// New makes a cell with fan-in scaled Gaussian weights.
func New(o layer.Options) *Cell {
	rng := rand.New(rand.NewSource(o.Seed))
	c := &Cell{
		in:     o.Inputs,
		hidden: o.Hidden,
		win:    layer.NewParam("w_in", o.Inputs, o.Hidden),
		wrec:   layer.NewParam("w_rec", o.Hidden, o.Hidden),
		bias:   layer.NewParam("b", 1, o.Hidden),
	}
	c.win.FanIn(rng, 1)
	c.wrec.FanIn(rng, 1)
	return c
}

// Kind implements layer.Cell.
func (*Cell) Kind() string { return "rnn" }

// Shape implements layer.Cell.
func (c *Cell) Shape() (int, int) { return c.in, c.hidden }

// Spiking implements layer.Cell.
func (*Cell) Spiking() bool { return false }

// Params implements layer.Cell.
func (c *Cell) Params() []*layer.Param {
	return []*layer.Param{c.win, c.wrec, c.bias}
}

// Forward implements layer.Cell.
func (c *Cell) Forward(be backend.Backend, x *tensor.Tensor3) *layer.Trace {
	batch, h := x.Batch, c.hidden
	tr := &layer.Trace{X: x, Z: layer.Steps(x.Time, batch, h)}
	var xt []float32
	for t := 0; t < x.Time; t++ {
		xt = x.Step(t, xt)
		z := tr.Z[t]
		layer.MatMul(be, z, xt, c.win.W, batch, c.in, h, 0)
		if t > 0 {
			layer.MatMul(be, z, tr.Z[t-1], c.wrec.W, batch, h, h, 1)
		}
		for i := range z {
			z[i] = mat32.Tanh(z[i] + c.bias.W[i%h])
		}
	}
	return tr
}

// Backward implements layer.Cell.
func (c *Cell) Backward(be backend.Backend, tr *layer.Trace, gz [][]float32, grads [][]float32) {
	batch, h := tr.Batch(), c.hidden
	var (
		carry = make([]float32, batch*h)
		da    = make([]float32, batch*h)
		xt    []float32
	)
	for t := tr.Steps() - 1; t >= 0; t-- {
		z := tr.Z[t]
		for i := range da {
			da[i] = (gz[t][i] + carry[i]) * (1 - z[i]*z[i])
		}
		xt = tr.X.Step(t, xt)
		layer.Outer(be, grads[0], xt, da, batch, c.in, h)
		if t > 0 {
			layer.Outer(be, grads[1], tr.Z[t-1], da, batch, h, h)
		}
		layer.SumRows(grads[2], da, batch, h)
		layer.MatMulT(be, carry, da, c.wrec.W, batch, h, h)
	}
}

// Eprop implements layer.Cell. Without a leak the eligibility trace of a
// synapse is the presynaptic value scaled by the activation derivative.
func (c *Cell) Eprop(be backend.Backend, tr *layer.Trace, ls [][]float32, grads [][]float32) {
	batch, h := tr.Batch(), c.hidden
	var (
		post = make([]float32, batch*h)
		xt   []float32
	)
	for t := 0; t < tr.Steps(); t++ {
		z := tr.Z[t]
		for i := range post {
			post[i] = ls[t][i] * (1 - z[i]*z[i])
		}
		xt = tr.X.Step(t, xt)
		layer.Outer(be, grads[0], xt, post, batch, c.in, h)
		if t > 0 {
			layer.Outer(be, grads[1], tr.Z[t-1], post, batch, h, h)
		}
		layer.SumRows(grads[2], post, batch, h)
	}
}
