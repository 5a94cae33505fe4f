// Package recurrent implements the sequence classifier: a recurrent cell
// followed by a per-frame linear readout.
package recurrent

import (
	"math/rand"

	"github.com/neurlang/rsnn/backend"
	"github.com/neurlang/rsnn/layer"
	"github.com/neurlang/rsnn/tensor"
)

// Model is a recurrent cell with a readout producing logits for every
// frame of the sequence.
type Model struct {
	Cell    layer.Cell
	Classes int

	// Dt is the simulation step in milliseconds, used to report rates in Hz.
	Dt float32

	readout *layer.Param
	bias    *layer.Param

	// state is saved with the weights but not trained through Params
	state []*layer.Param
}

// Output is the result of a forward pass.
type Output struct {
	Trace *layer.Trace

	// Logits holds Batch×Classes readout values per time step.
	Logits [][]float32
}

// Batch is the number of sequences in the output.
func (o *Output) Batch() int {
	return o.Trace.Batch()
}

// Steps is the number of time steps in the output.
func (o *Output) Steps() int {
	return len(o.Logits)
}

// New attaches a readout with classes outputs to cell.
func New(cell layer.Cell, classes int, seed int64) *Model {
	_, hidden := cell.Shape()
	n := &Model{
		Cell:    cell,
		Classes: classes,
		Dt:      1,
		readout: layer.NewParam("w_out", hidden, classes),
		bias:    layer.NewParam("b_out", 1, classes),
	}
	n.readout.FanIn(rand.New(rand.NewSource(seed^0x5eed)), 1)
	return n
}

// Params lists the cell parameters followed by the readout weights and bias.
func (n *Model) Params() []*layer.Param {
	return append(n.Cell.Params(), n.readout, n.bias)
}

// Persist adds p to the weights file without making it a trained
// parameter. Names must be unique.
func (n *Model) Persist(p *layer.Param) {
	n.state = append(n.state, p)
}

// Readout returns the hidden×classes readout weights.
func (n *Model) Readout() *layer.Param {
	return n.readout
}

// Forward runs the cell and the readout over x.
func (n *Model) Forward(be backend.Backend, x *tensor.Tensor3) *Output {
	tr := n.Cell.Forward(be, x)
	_, hidden := n.Cell.Shape()
	out := &Output{Trace: tr, Logits: layer.Steps(tr.Steps(), x.Batch, n.Classes)}
	for t, z := range tr.Z {
		y := out.Logits[t]
		for i := range y {
			y[i] = n.bias.W[i%n.Classes]
		}
		layer.MatMul(be, y, z, n.readout.W, x.Batch, hidden, n.Classes, 1)
	}
	return out
}

// ReadoutBackward accumulates readout gradients for dlogits into gw and gb
// and returns dL/dz through the readout per time step.
func (n *Model) ReadoutBackward(be backend.Backend, out *Output, dlogits [][]float32, gw, gb []float32) [][]float32 {
	_, hidden := n.Cell.Shape()
	batch := out.Batch()
	gz := layer.Steps(out.Steps(), batch, hidden)
	for t, dl := range dlogits {
		layer.Outer(be, gw, out.Trace.Z[t], dl, batch, hidden, n.Classes)
		layer.SumRows(gb, dl, batch, n.Classes)
		layer.MatMulT(be, gz[t], dl, n.readout.W, batch, n.Classes, hidden)
	}
	return gz
}

// Project sets ls[t] = dlogits[t]·Bᵀ for a hidden×classes feedback matrix B.
func (n *Model) Project(be backend.Backend, feedback []float32, dlogits [][]float32) [][]float32 {
	_, hidden := n.Cell.Shape()
	if len(dlogits) == 0 {
		return nil
	}
	batch := len(dlogits[0]) / n.Classes
	ls := layer.Steps(len(dlogits), batch, hidden)
	for t, dl := range dlogits {
		layer.MatMulT(be, ls[t], dl, feedback, batch, n.Classes, hidden)
	}
	return ls
}
