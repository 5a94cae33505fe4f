package learning

import (
	"log"
	"os"

	"github.com/neurlang/rsnn/loss"
	"github.com/neurlang/rsnn/optimizer"
)

// SetLogger appends per step progress lines to the named file.
func (h *HyperParameters) SetLogger(filename string) error {
	outfile, err := os.OpenFile(filename, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		return err
	}
	h.l = log.New(outfile, "", log.LstdFlags)
	return nil
}

type HyperParameters struct {
	Threads int // number of minibatch shards processed concurrently

	Optimizer *optimizer.Adam
	Loss      loss.Func // objective, categorical crossentropy when nil

	Mode string // eprop feedback: symmetric, random or adaptive
	Seed int64  // seed of the random eprop feedback

	FiringRateRegularization bool    // eprop adds the rate penalty to the learning signal
	CReg                     float64 // regularisation coefficient
	FTarget                  float64 // target firing rate in Hz

	l     *log.Logger
	steps int
}

// Objective is the loss the rules minimise.
func (h *HyperParameters) Objective() loss.Func {
	if h.Loss == nil {
		return loss.CategoricalCrossentropy
	}
	return h.Loss
}

func (h *HyperParameters) shards(batch int) int {
	n := h.Threads
	if n <= 0 {
		n = 1
	}
	if n > batch {
		n = batch
	}
	return n
}
