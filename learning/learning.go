// Package learning implements the minibatch step shared by the bptt and
// eprop learning rules of the recurrent classifier.
package learning

import (
	"github.com/pkg/errors"
	"github.com/sasha-s/go-deadlock"

	"github.com/neurlang/rsnn/backend"
	"github.com/neurlang/rsnn/evaluator"
	"github.com/neurlang/rsnn/layer"
	"github.com/neurlang/rsnn/loss"
	"github.com/neurlang/rsnn/net/recurrent"
	"github.com/neurlang/rsnn/parallel"
	"github.com/neurlang/rsnn/tensor"
)

// Rule trains a model one minibatch at a time.
type Rule interface {
	Name() string
	Model() *recurrent.Model
	Step(be backend.Backend, x, y *tensor.Tensor3) (Result, error)
}

// Result summarises one minibatch step.
type Result struct {
	Loss    float64
	Correct int
	Stats   *loss.Stats
}

// Accuracy is the fraction of valid frames classified correctly.
func (r Result) Accuracy() float64 {
	if r.Stats == nil || r.Stats.Frames == 0 {
		return 0
	}
	return float64(r.Correct) / float64(r.Stats.Frames)
}

// ShardFunc returns the loss of one shard and accumulates its gradients into
// grads, aligned with the model parameters. st covers the whole minibatch.
type ShardFunc func(be backend.Backend, out *recurrent.Output, y *tensor.Tensor3, st *loss.Stats, grads [][]float32) float64

// Step runs one sharded minibatch update of m: shards are run forward
// concurrently, minibatch statistics are gathered, then every shard computes
// its gradients which are summed into the parameters before one optimizer
// step.
func (h *HyperParameters) Step(be backend.Backend, m *recurrent.Model, x, y *tensor.Tensor3, shard ShardFunc) (Result, error) {
	if h.Optimizer == nil {
		return Result{}, errors.New("learning: no optimizer")
	}
	if x.Batch != y.Batch || x.Time != y.Time {
		return Result{}, errors.Errorf("inputs are %dx%d, targets %dx%d", x.Batch, x.Time, y.Batch, y.Time)
	}
	if x.Batch == 0 {
		return Result{}, errors.New("learning: empty minibatch")
	}
	params := m.Params()
	for _, p := range params {
		p.ZeroGrad()
	}
	_, hidden := m.Cell.Shape()
	parts := h.shards(x.Batch)
	outs := make([]*recurrent.Output, parts)
	ys := make([]*tensor.Tensor3, parts)
	stats := make([]*loss.Stats, parts)
	parallel.ForEach(parts, parts, func(p int) {
		lo, hi := parallel.Bounds(x.Batch, parts, p)
		ys[p] = y.Slice(lo, hi)
		outs[p] = m.Forward(be, x.Slice(lo, hi))
		stats[p] = loss.NewStats(hidden, m.Dt)
		stats[p].Add(outs[p], ys[p])
	})
	total := loss.NewStats(hidden, m.Dt)
	for _, st := range stats {
		total.Merge(st)
	}

	res := Result{Stats: total}
	var mut deadlock.Mutex
	parallel.ForEach(parts, parts, func(p int) {
		grads := layer.NewGrads(params)
		l := shard(be, outs[p], ys[p], total, grads)
		correct := evaluator.Correct(outs[p], ys[p])

		mut.Lock()
		defer mut.Unlock()
		res.Loss += l
		res.Correct += correct
		for i, g := range grads {
			acc := params[i].G
			for j, v := range g {
				acc[j] += v
			}
		}
	})
	h.Optimizer.Step(params)

	h.steps++
	if h.l != nil {
		h.l.Printf("step %d loss %.5f accuracy %.4f rate %.2fHz", h.steps, res.Loss, res.Accuracy(), total.MeanRate())
	}
	return res, nil
}

// Readout splits gradients aligned with the model parameters into those of
// the cell and those of the readout weights and bias.
func Readout(grads [][]float32) (cell [][]float32, w, b []float32) {
	n := len(grads)
	return grads[:n-2], grads[n-2], grads[n-1]
}
