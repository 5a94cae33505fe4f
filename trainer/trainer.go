package trainer

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/pkg/errors"

	"github.com/neurlang/rsnn/backend"
	"github.com/neurlang/rsnn/evaluator"
	"github.com/neurlang/rsnn/learning"
	"github.com/neurlang/rsnn/loss"
	"github.com/neurlang/rsnn/tensor"
)

// Data is a set of inputs with one-hot targets.
type Data struct {
	X, Y *tensor.Tensor3
}

type TrainOptions struct {
	Epochs    int
	BatchSize int
	Seed      int64
	// Validation is scored after every epoch when set.
	Validation *Data
}

// Epoch is one entry of the training log.
type Epoch struct {
	Epoch      int              `json:"epoch"`
	Loss       float64          `json:"loss"`
	Accuracy   float64          `json:"accuracy"`
	FiringRate float64          `json:"firing_rate"`
	Val        evaluator.Result `json:"val,omitempty"`
	Seconds    float64          `json:"seconds"`
}

type Log []Epoch

// History lays the log out per metric, validation metrics prefixed with
// "val_".
func (l Log) History() map[string][]float64 {
	h := make(map[string][]float64)
	for _, e := range l {
		h["loss"] = append(h["loss"], e.Loss)
		h["accuracy"] = append(h["accuracy"], e.Accuracy)
		h["firing_rate"] = append(h["firing_rate"], e.FiringRate)
		for k, v := range e.Val {
			h["val_"+k] = append(h["val_"+k], v)
		}
	}
	return h
}

type Trainer struct {
	Rule      learning.Rule
	Evaluator *evaluator.Evaluator

	// Logger receives one line per epoch, stdout when nil.
	Logger *log.Logger

	// DstModel, when set, is rewritten whenever validation accuracy (or
	// training accuracy without validation data) improves.
	DstModel string

	// Resumed marks a model loaded from DstModel. Its score before the
	// first epoch is the one to beat.
	Resumed bool
}

// Train runs opts.Epochs epochs over x, y. Cancelling ctx stops the run
// between minibatches; the log so far is returned with ctx.Err().
func (tr *Trainer) Train(ctx context.Context, be backend.Backend, x, y *tensor.Tensor3, opts TrainOptions) (Log, error) {
	if x.Batch != y.Batch || x.Time != y.Time {
		return nil, errors.Errorf("inputs are %dx%d, targets %dx%d", x.Batch, x.Time, y.Batch, y.Time)
	}
	if opts.BatchSize <= 0 {
		return nil, errors.Errorf("batch size %d", opts.BatchSize)
	}
	logger := tr.Logger
	if logger == nil {
		logger = log.New(os.Stdout, "", 0)
	}
	model := tr.Rule.Model()
	_, hidden := model.Cell.Shape()
	rng := rand.New(rand.NewSource(opts.Seed))
	best := -1.0
	if tr.Resumed && tr.DstModel != "" && tr.Evaluator != nil {
		data := opts.Validation
		if data == nil {
			data = &Data{X: x, Y: y}
		}
		res, err := tr.Evaluator.Evaluate(be, data.X, data.Y, opts.BatchSize)
		if err != nil {
			return nil, errors.Wrap(err, "resumed model")
		}
		best = res[evaluator.Accuracy]
		logger.Printf("resumed at accuracy %.4f", best)
	}

	var history Log
	for epoch := 1; epoch <= opts.Epochs; epoch++ {
		start := time.Now()
		perm := rng.Perm(x.Batch)
		stats := loss.NewStats(hidden, model.Dt)
		var lossSum float64
		var correct int
		for lo := 0; lo < len(perm); lo += opts.BatchSize {
			select {
			case <-ctx.Done():
				return history, ctx.Err()
			default:
			}
			hi := lo + opts.BatchSize
			if hi > len(perm) {
				hi = len(perm)
			}
			idx := perm[lo:hi]
			res, err := tr.Rule.Step(be, x.Gather(idx), y.Gather(idx))
			if err != nil {
				return history, errors.Wrapf(err, "epoch %d", epoch)
			}
			lossSum += res.Loss * float64(res.Stats.Frames)
			correct += res.Correct
			stats.Merge(res.Stats)
		}

		e := Epoch{Epoch: epoch, FiringRate: stats.MeanRate()}
		if stats.Frames > 0 {
			e.Loss = lossSum / float64(stats.Frames)
			e.Accuracy = float64(correct) / float64(stats.Frames)
		}
		score := e.Accuracy
		if opts.Validation != nil && tr.Evaluator != nil {
			val, err := tr.Evaluator.Evaluate(be, opts.Validation.X, opts.Validation.Y, opts.BatchSize)
			if err != nil {
				return history, errors.Wrap(err, "validation")
			}
			e.Val = val
			score = val[evaluator.Accuracy]
		}
		e.Seconds = time.Since(start).Seconds()
		history = append(history, e)
		logger.Println(e.String(opts.Epochs))

		if tr.DstModel != "" && score > best {
			best = score
			if err := model.WriteZlibWeightsToFile(tr.DstModel); err != nil {
				return history, err
			}
		}
	}
	return history, nil
}

func (e Epoch) String(epochs int) string {
	s := fmt.Sprintf("epoch %d/%d loss %.4f accuracy %.4f firing_rate %.2f", e.Epoch, epochs, e.Loss, e.Accuracy, e.FiringRate)
	if e.Val != nil {
		s += " val " + e.Val.String()
	}
	return s + fmt.Sprintf(" (%.1fs)", e.Seconds)
}
