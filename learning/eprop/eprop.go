// Package eprop trains a recurrent model with eligibility propagation:
// online eligibility traces combined with a learning signal broadcast from
// the readout error through a feedback matrix.
package eprop

import (
	"math/rand"
	"strings"

	"github.com/pkg/errors"

	"github.com/neurlang/rsnn/backend"
	"github.com/neurlang/rsnn/layer"
	"github.com/neurlang/rsnn/learning"
	"github.com/neurlang/rsnn/loss"
	"github.com/neurlang/rsnn/net/recurrent"
	"github.com/neurlang/rsnn/tensor"
)

// ErrUnknownMode is returned for an unrecognised feedback mode.
var ErrUnknownMode = errors.New("unknown eprop mode")

// Mode selects the feedback matrix of the learning signal.
type Mode int

const (
	// Symmetric feeds the error back through the readout weights.
	Symmetric Mode = iota
	// Random uses a fixed random matrix.
	Random
	// Adaptive starts random and follows every readout update.
	Adaptive
)

var modeNames = [...]string{"symmetric", "random", "adaptive"}

func (m Mode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return "unknown"
	}
	return modeNames[m]
}

// ParseMode converts a case-insensitive mode name.
func ParseMode(name string) (Mode, error) {
	for i, n := range modeNames {
		if strings.EqualFold(name, n) {
			return Mode(i), nil
		}
	}
	return 0, errors.Wrapf(ErrUnknownMode, "%q", name)
}

type Eprop struct {
	h        *learning.HyperParameters
	m        *recurrent.Model
	mode     Mode
	feedback *layer.Param
	reg      loss.Func
}

// New returns the eprop rule for m with the feedback mode named by h.Mode.
// A random feedback matrix is saved with the model weights, so weights read
// after New restore it.
func New(m *recurrent.Model, h *learning.HyperParameters) (*Eprop, error) {
	mode, err := ParseMode(h.Mode)
	if err != nil {
		return nil, err
	}
	e := &Eprop{h: h, m: m, mode: mode}
	if mode != Symmetric {
		w := m.Readout()
		e.feedback = layer.NewParam("feedback", w.Rows, w.Cols)
		e.feedback.FanIn(rand.New(rand.NewSource(h.Seed^0xfeed)), 1)
		m.Persist(e.feedback)
	}
	if h.FiringRateRegularization {
		e.reg = loss.FiringRateRegularization(h.FTarget)
	}
	return e, nil
}

func (e *Eprop) Name() string {
	return "eprop"
}

func (e *Eprop) Model() *recurrent.Model {
	return e.m
}

func (e *Eprop) Mode() Mode {
	return e.mode
}

// Feedback is the hidden×classes matrix carrying the learning signal.
func (e *Eprop) Feedback() []float32 {
	if e.mode == Symmetric {
		return e.m.Readout().W
	}
	return e.feedback.W
}

// Step trains on one minibatch. In adaptive mode the feedback matrix then
// receives the update just applied to the readout weights.
func (e *Eprop) Step(be backend.Backend, x, y *tensor.Tensor3) (learning.Result, error) {
	res, err := e.h.Step(be, e.m, x, y, e.shard)
	if err != nil {
		return res, err
	}
	if e.mode == Adaptive {
		delta := e.h.Optimizer.Delta(e.m.Readout().Name)
		for i, d := range delta {
			e.feedback.W[i] += d
		}
	}
	return res, nil
}

func (e *Eprop) shard(be backend.Backend, out *recurrent.Output, y *tensor.Tensor3, st *loss.Stats, grads [][]float32) float64 {
	l, g := e.h.Objective()(out, y, st)
	cell, gw, gb := learning.Readout(grads)
	ls := e.m.ReadoutBackward(be, out, g.Logits, gw, gb)
	if e.mode != Symmetric {
		ls = e.m.Project(be, e.feedback.W, g.Logits)
	}
	if e.reg != nil {
		r, rg := e.reg(out, y, st)
		l += e.h.CReg * r
		c := float32(e.h.CReg)
		for t, dz := range rg.Z {
			for i, v := range dz {
				ls[t][i] += c * v
			}
		}
	}
	e.m.Cell.Eprop(be, out.Trace, ls, cell)
	return l
}
