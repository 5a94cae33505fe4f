// Package evaluator scores a recurrent model on labelled sequences.
package evaluator

import (
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/neurlang/rsnn/backend"
	"github.com/neurlang/rsnn/loss"
	"github.com/neurlang/rsnn/net/recurrent"
	"github.com/neurlang/rsnn/tensor"
)

// ErrUnknownMetric is returned for a metric name Evaluate cannot compute.
var ErrUnknownMetric = errors.New("unknown metric")

const (
	Accuracy   = "accuracy"
	FiringRate = "firing_rate"
	Loss       = "loss"
)

// Result maps metric names, and "loss" when a loss is set, to values.
type Result map[string]float64

// String formats the result with sorted keys.
func (r Result) String() string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteString(" ")
		}
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(strconv.FormatFloat(r[k], 'g', 5, 64))
	}
	return b.String()
}

// Evaluator runs a model over a dataset in minibatches.
type Evaluator struct {
	Model   *recurrent.Model
	Loss    loss.Func
	Metrics []string
}

// New returns an evaluator reporting metrics, defaulting to accuracy and
// firing rate.
func New(model *recurrent.Model, lossFunc loss.Func, metrics ...string) *Evaluator {
	if len(metrics) == 0 {
		metrics = []string{Accuracy, FiringRate}
	}
	return &Evaluator{Model: model, Loss: lossFunc, Metrics: metrics}
}

// Evaluate scores x against one-hot targets y. Accuracy is frame-wise over
// valid frames. The loss is the frame-weighted mean of the per-batch losses.
func (e *Evaluator) Evaluate(be backend.Backend, x, y *tensor.Tensor3, batchSize int) (Result, error) {
	for _, m := range e.Metrics {
		if m != Accuracy && m != FiringRate {
			return nil, errors.Wrapf(ErrUnknownMetric, "%q", m)
		}
	}
	if x.Batch != y.Batch || x.Time != y.Time {
		return nil, errors.Errorf("inputs are %dx%d, targets %dx%d", x.Batch, x.Time, y.Batch, y.Time)
	}
	if y.Size != e.Model.Classes {
		return nil, errors.Errorf("targets have %d classes, model %d", y.Size, e.Model.Classes)
	}
	if batchSize <= 0 {
		batchSize = x.Batch
	}
	_, hidden := e.Model.Cell.Shape()
	total := loss.NewStats(hidden, e.Model.Dt)
	var correct int
	var lossSum float64
	for lo := 0; lo < x.Batch; lo += batchSize {
		hi := lo + batchSize
		if hi > x.Batch {
			hi = x.Batch
		}
		xb, yb := x.Slice(lo, hi), y.Slice(lo, hi)
		out := e.Model.Forward(be, xb)
		st := loss.NewStats(hidden, e.Model.Dt)
		st.Add(out, yb)
		total.Merge(st)
		correct += Correct(out, yb)
		if e.Loss != nil {
			l, _ := e.Loss(out, yb, st)
			lossSum += l * float64(st.Frames)
		}
	}
	res := make(Result)
	for _, m := range e.Metrics {
		switch m {
		case Accuracy:
			res[Accuracy] = ratio(correct, total.Frames)
		case FiringRate:
			res[FiringRate] = total.MeanRate()
		}
	}
	if e.Loss != nil && total.Frames > 0 {
		res[Loss] = lossSum / float64(total.Frames)
	}
	return res, nil
}

// Correct counts the valid frames whose largest logit is the target class.
func Correct(out *recurrent.Output, y *tensor.Tensor3) (n int) {
	classes := y.Size
	for t, logits := range out.Logits {
		for b := 0; b < y.Batch; b++ {
			target := y.Row(b, t)
			if !tensor.Valid(target) {
				continue
			}
			if tensor.Argmax(logits[b*classes:(b+1)*classes]) == tensor.Argmax(target) {
				n++
			}
		}
	}
	return n
}

func ratio(a, b int) float64 {
	if b == 0 {
		return 0
	}
	return float64(a) / float64(b)
}
