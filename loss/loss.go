// Package loss implements the training objectives of the recurrent
// classifier and their gradients.
package loss

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/neurlang/rsnn/net/recurrent"
	"github.com/neurlang/rsnn/tensor"
)

// ErrUnknownLoss is returned by Get for an unregistered name.
var ErrUnknownLoss = errors.New("unknown loss")

// Grad holds the gradient of a loss per time step. Either field may be nil
// when the loss does not depend on it.
type Grad struct {
	// Logits is dL/dlogits, Batch×Classes per step.
	Logits [][]float32

	// Z is dL/dz of the recurrent layer, Batch×Hidden per step.
	Z [][]float32
}

// Func evaluates a loss on out against one-hot targets y. Losses are
// normalised with st, which summarises every shard of the minibatch, so
// that summing Func over shards gives the minibatch loss.
type Func func(out *recurrent.Output, y *tensor.Tensor3, st *Stats) (float64, Grad)

// DefaultTarget is the firing rate in Hz used by Get.
const DefaultTarget = 10

// Get looks up a loss by name.
func Get(name string) (Func, error) {
	switch strings.ToLower(name) {
	case "categorical_crossentropy", "crossentropy":
		return CategoricalCrossentropy, nil
	case "firing_rate_regularization":
		return FiringRateRegularization(DefaultTarget), nil
	}
	return nil, errors.Wrapf(ErrUnknownLoss, "%q", name)
}

// WithRegularization returns base + coeff·reg.
func WithRegularization(base, reg Func, coeff float64) Func {
	return func(out *recurrent.Output, y *tensor.Tensor3, st *Stats) (float64, Grad) {
		l, g := base(out, y, st)
		r, rg := reg(out, y, st)
		return l + coeff*r, Grad{
			Logits: add(g.Logits, rg.Logits, float32(coeff)),
			Z:      add(g.Z, rg.Z, float32(coeff)),
		}
	}
}

// add returns a + c·b, reusing a. Nil inputs behave as zero.
func add(a, b [][]float32, c float32) [][]float32 {
	if b == nil {
		return a
	}
	if a == nil {
		a = make([][]float32, len(b))
		for t := range b {
			a[t] = make([]float32, len(b[t]))
		}
	}
	for t := range b {
		for i, v := range b[t] {
			a[t][i] += c * v
		}
	}
	return a
}
