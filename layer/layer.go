// Package layer defines the recurrent cell interface shared by the rnn, lif and alif layers.
package layer

import (
	"github.com/neurlang/rsnn/backend"
	"github.com/neurlang/rsnn/tensor"
)

// Cell is one recurrent layer run over a minibatch of sequences.
type Cell interface {

	// Kind names the cell type ("rnn", "lif", "alif").
	Kind() string

	// Shape reports the input and hidden sizes.
	Shape() (inputs, hidden int)

	// Spiking reports whether outputs are binary spikes.
	Spiking() bool

	// Params lists the trainable parameters in a fixed order.
	Params() []*Param

	// Forward runs the layer over x and records what learning rules need.
	Forward(be backend.Backend, x *tensor.Tensor3) *Trace

	// Backward accumulates exact (surrogate) gradients through time into
	// grads, aligned with Params. gz[t] is dL/dz at step t, Batch×Hidden.
	Backward(be backend.Backend, tr *Trace, gz [][]float32, grads [][]float32)

	// Eprop accumulates eligibility trace gradients into grads given the
	// learning signal ls[t], Batch×Hidden.
	Eprop(be backend.Backend, tr *Trace, ls [][]float32, grads [][]float32)
}

// Options configures a cell.
type Options struct {
	Inputs int
	Hidden int
	Neuron Neuron
	Seed   int64
}

// Trace is the state of a forward pass. Slices are indexed by time step and
// hold Batch×Hidden matrices.
type Trace struct {
	X *tensor.Tensor3

	// Z holds the layer outputs: spikes, or activations for the rnn.
	Z [][]float32

	// V holds membrane potentials, nil for the rnn.
	V [][]float32

	// A holds threshold adaptation, nil unless the cell adapts.
	A [][]float32
}

// Batch is the number of sequences in the trace.
func (tr *Trace) Batch() int {
	return tr.X.Batch
}

// Steps is the number of time steps in the trace.
func (tr *Trace) Steps() int {
	return len(tr.Z)
}

// NewGrads allocates zeroed accumulators matching params.
func NewGrads(params []*Param) [][]float32 {
	var grads = make([][]float32, len(params))
	for i, p := range params {
		grads[i] = make([]float32, len(p.W))
	}
	return grads
}

// Steps allocates n zeroed rows×cols matrices.
func Steps(n, rows, cols int) [][]float32 {
	var out = make([][]float32, n)
	for t := range out {
		out[t] = make([]float32, rows*cols)
	}
	return out
}

// MatMul sets out = beta*out + a·w where a is rows×k and w is k×cols.
func MatMul(be backend.Backend, out, a, w []float32, rows, k, cols int, beta float32) {
	be.Gemm(false, false, rows, cols, k, 1, a, w, beta, out)
}

// MatMulT sets out = a·wᵀ where a is rows×cols and w is k×cols.
func MatMulT(be backend.Backend, out, a, w []float32, rows, cols, k int) {
	be.Gemm(false, true, rows, k, cols, 1, a, w, 0, out)
}

// Outer accumulates g += preᵀ·post where pre is batch×k and post is batch×cols.
func Outer(be backend.Backend, g, pre, post []float32, batch, k, cols int) {
	be.Gemm(true, false, k, cols, batch, 1, pre, post, 1, g)
}

// SumRows accumulates the column sums of the rows×cols matrix m into g.
func SumRows(g, m []float32, rows, cols int) {
	for r := 0; r < rows; r++ {
		for c, v := range m[r*cols : (r+1)*cols] {
			g[c] += v
		}
	}
}

// ZeroDiagonal clears the diagonal of the n×n matrix m.
func ZeroDiagonal(m []float32, n int) {
	for i := 0; i < n; i++ {
		m[i*n+i] = 0
	}
}
