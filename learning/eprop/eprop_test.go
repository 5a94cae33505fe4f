package eprop

import "path/filepath"
import "testing"

import "github.com/pkg/errors"

import "github.com/neurlang/rsnn/backend/native"
import "github.com/neurlang/rsnn/layer"
import "github.com/neurlang/rsnn/layer/alif"
import "github.com/neurlang/rsnn/layer/layertest"
import "github.com/neurlang/rsnn/layer/lif"
import "github.com/neurlang/rsnn/learning"
import "github.com/neurlang/rsnn/learning/backprop"
import "github.com/neurlang/rsnn/loss"
import "github.com/neurlang/rsnn/net/recurrent"
import "github.com/neurlang/rsnn/optimizer"
import "github.com/neurlang/rsnn/tensor"

func options() layer.Options {
	var n layer.Neuron
	n.Defaults()
	return layer.Options{Inputs: 4, Hidden: 6, Neuron: n, Seed: 3}
}

func targets(batch, time int) *tensor.Tensor3 {
	labels := make([]int32, batch*time)
	for i := range labels {
		labels[i] = int32(i % 3)
		if i%7 == 6 {
			labels[i] = -1
		}
	}
	y, err := tensor.OneHot(labels, batch, time, 3)
	if err != nil {
		panic(err)
	}
	return y
}

// feedForward builds a model whose recurrent weights are zero, where eprop
// gradients are exact.
func feedForward(cell func(layer.Options) layer.Cell) *recurrent.Model {
	m := recurrent.New(cell(options()), 3, 3)
	for _, p := range m.Params() {
		if p.Name == "w_rec" {
			for i := range p.W {
				p.W[i] = 0
			}
		}
	}
	return m
}

func newALIF(o layer.Options) layer.Cell { return alif.New(o) }
func newLIF(o layer.Options) layer.Cell  { return lif.New(o) }

func TestParseMode(t *testing.T) {
	for i, name := range []string{"symmetric", "Random", "ADAPTIVE"} {
		m, err := ParseMode(name)
		if err != nil || m != Mode(i) {
			t.Errorf("%s: %v %v", name, m, err)
		}
	}
	if _, err := ParseMode("broadcast"); !errors.Is(err, ErrUnknownMode) {
		t.Errorf("broadcast: %v", err)
	}
	if _, err := New(feedForward(newLIF), &learning.HyperParameters{Mode: "x"}); err == nil {
		t.Error("New accepted unknown mode")
	}
}

func TestSymmetricMatchesBackprop(t *testing.T) {
	for _, reg := range []bool{false, true} {
		be := native.New(1)
		x := layertest.Input(3, 12, 4, 9, 3)
		y := targets(3, 12)

		mb := feedForward(newALIF)
		hb := &learning.HyperParameters{Threads: 2, Optimizer: optimizer.NewAdam(0.01)}
		if reg {
			hb.Loss = loss.WithRegularization(loss.CategoricalCrossentropy, loss.FiringRateRegularization(10), 0.01)
		}
		rb, err := backprop.New(mb, hb).Step(be, x, y)
		if err != nil {
			t.Fatal(err)
		}

		me := feedForward(newALIF)
		he := &learning.HyperParameters{Threads: 2, Optimizer: optimizer.NewAdam(0.01), Mode: "symmetric",
			FiringRateRegularization: reg, CReg: 0.01, FTarget: 10}
		rule, err := New(me, he)
		if err != nil {
			t.Fatal(err)
		}
		re, err := rule.Step(be, x, y)
		if err != nil {
			t.Fatal(err)
		}

		if d := rb.Loss - re.Loss; d > 1e-6 || d < -1e-6 {
			t.Errorf("reg %v: loss bptt %v eprop %v", reg, rb.Loss, re.Loss)
		}
		pb, pe := mb.Params(), me.Params()
		for i := range pb {
			if at, ok := layertest.Close(pe[i].G, pb[i].G, 1e-3); !ok {
				t.Errorf("reg %v: %s gradient differs at %d", reg, pb[i].Name, at)
			}
		}
	}
}

func TestFeedbackModes(t *testing.T) {
	be := native.New(1)
	x := layertest.Input(2, 8, 4, 4, 3)
	y := targets(2, 8)
	for _, mode := range []string{"random", "adaptive"} {
		m := feedForward(newLIF)
		h := &learning.HyperParameters{Optimizer: optimizer.NewAdam(0.01), Mode: mode, Seed: 1}
		rule, err := New(m, h)
		if err != nil {
			t.Fatal(err)
		}
		before := append([]float32(nil), rule.Feedback()...)
		if _, err := rule.Step(be, x, y); err != nil {
			t.Fatal(err)
		}
		delta := h.Optimizer.Delta("w_out")
		for i, w := range rule.Feedback() {
			want := before[i]
			if rule.Mode() == Adaptive {
				want += delta[i]
			}
			if w != want {
				t.Fatalf("%s: feedback[%d] = %v want %v", mode, i, w, want)
			}
		}
	}
}

func TestSymmetricFeedbackIsReadout(t *testing.T) {
	m := feedForward(newLIF)
	rule, err := New(m, &learning.HyperParameters{Mode: "symmetric"})
	if err != nil {
		t.Fatal(err)
	}
	if &rule.Feedback()[0] != &m.Readout().W[0] {
		t.Error("symmetric feedback is not the readout")
	}
}

func TestFeedbackRestoredWithWeights(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json.zlib")
	m := feedForward(newLIF)
	rule, err := New(m, &learning.HyperParameters{Mode: "adaptive", Seed: 1})
	if err != nil {
		t.Fatal(err)
	}
	rule.Feedback()[0] = 42
	if err := m.WriteZlibWeightsToFile(path); err != nil {
		t.Fatal(err)
	}

	resumed := feedForward(newLIF)
	again, err := New(resumed, &learning.HyperParameters{Mode: "adaptive", Seed: 2})
	if err != nil {
		t.Fatal(err)
	}
	if err := resumed.ReadZlibWeightsFromFile(path); err != nil {
		t.Fatal(err)
	}
	if at, ok := layertest.Close(again.Feedback(), rule.Feedback(), 0); !ok {
		t.Errorf("feedback differs at %d", at)
	}
}
