// Package backprop trains a recurrent model with backpropagation through
// time using spike pseudo-derivatives.
package backprop

import (
	"github.com/neurlang/rsnn/backend"
	"github.com/neurlang/rsnn/learning"
	"github.com/neurlang/rsnn/loss"
	"github.com/neurlang/rsnn/net/recurrent"
	"github.com/neurlang/rsnn/tensor"
)

// Backprop is the bptt learning rule. The loss, regularised or not, is
// taken whole from the hyper parameters.
type Backprop struct {
	h *learning.HyperParameters
	m *recurrent.Model
}

// New returns the bptt rule for m.
func New(m *recurrent.Model, h *learning.HyperParameters) *Backprop {
	return &Backprop{h: h, m: m}
}

func (b *Backprop) Name() string {
	return "bptt"
}

func (b *Backprop) Model() *recurrent.Model {
	return b.m
}

// Step trains on one minibatch.
func (b *Backprop) Step(be backend.Backend, x, y *tensor.Tensor3) (learning.Result, error) {
	return b.h.Step(be, b.m, x, y, b.shard)
}

func (b *Backprop) shard(be backend.Backend, out *recurrent.Output, y *tensor.Tensor3, st *loss.Stats, grads [][]float32) float64 {
	l, g := b.h.Objective()(out, y, st)
	cell, gw, gb := learning.Readout(grads)
	gz := b.m.ReadoutBackward(be, out, g.Logits, gw, gb)
	for t, dz := range g.Z {
		for i, v := range dz {
			gz[t][i] += v
		}
	}
	b.m.Cell.Backward(be, out.Trace, gz, cell)
	return l
}
