package loss

import "math"
import "testing"

import "github.com/pkg/errors"

import "github.com/neurlang/rsnn/layer"
import "github.com/neurlang/rsnn/net/recurrent"
import "github.com/neurlang/rsnn/tensor"

// output builds a forward result by hand: batch 2, 3 steps, 2 hidden, 3 classes.
func output() (*recurrent.Output, *tensor.Tensor3) {
	out := &recurrent.Output{
		Trace: &layer.Trace{
			X: tensor.New(2, 3, 1),
			Z: [][]float32{{1, 0, 0, 1}, {1, 1, 0, 0}, {0, 1, 1, 1}},
		},
		Logits: [][]float32{
			{0.5, -1, 2, 0, 0, 0},
			{1, 1, 1, -0.5, 0.25, 3},
			{2, 0, -2, 0.1, 0.2, 0.3},
		},
	}
	y, err := tensor.OneHot([]int32{0, 1, -1, 2, 2, 1}, 2, 3, 3)
	if err != nil {
		panic(err)
	}
	return out, y
}

func stats(out *recurrent.Output, y *tensor.Tensor3) *Stats {
	st := NewStats(2, 1)
	st.Add(out, y)
	return st
}

func TestStats(t *testing.T) {
	out, y := output()
	st := stats(out, y)
	if st.Frames != 5 {
		t.Fatalf("frames %d", st.Frames)
	}
	// neuron 0 fires at (0,0) (0,1) (1,2); (0,2) is masked.
	if st.Spikes[0] != 3 || st.Rate(0) != 600 {
		t.Errorf("neuron 0 spikes %v rate %v", st.Spikes[0], st.Rate(0))
	}
	if Frames(y) != 5 {
		t.Errorf("Frames %d", Frames(y))
	}
}

func TestCrossentropyUniform(t *testing.T) {
	_, y := output()
	out := &recurrent.Output{Trace: &layer.Trace{}, Logits: [][]float32{make([]float32, 6), make([]float32, 6), make([]float32, 6)}}
	l, _ := CategoricalCrossentropy(out, y, &Stats{Frames: 5})
	if math.Abs(l-math.Log(3)) > 1e-6 {
		t.Errorf("loss %v want log 3", l)
	}
}

func TestCrossentropyGradient(t *testing.T) {
	out, y := output()
	st := stats(out, y)
	_, g := CategoricalCrossentropy(out, y, st)
	for _, i := range []int{0, 2} {
		for k := range out.Logits[i] {
			save := out.Logits[i][k]
			out.Logits[i][k] = save + 1e-3
			lp, _ := CategoricalCrossentropy(out, y, st)
			out.Logits[i][k] = save - 1e-3
			lm, _ := CategoricalCrossentropy(out, y, st)
			out.Logits[i][k] = save
			num := (lp - lm) / 2e-3
			if math.Abs(num-float64(g.Logits[i][k])) > 1e-3 {
				t.Errorf("step %d logit %d: analytic %v numeric %v", i, k, g.Logits[i][k], num)
			}
		}
	}
	for k := 0; k < 3; k++ {
		if g.Logits[2][k] != 0 {
			t.Errorf("masked frame has gradient %v", g.Logits[2][:3])
		}
	}
}

func TestRegularizationGradient(t *testing.T) {
	out, y := output()
	reg := FiringRateRegularization(250)
	loss := func() float64 {
		l, _ := reg(out, y, stats(out, y))
		return l
	}
	_, g := reg(out, y, stats(out, y))
	for s, z := range out.Trace.Z {
		for k := range z {
			save := z[k]
			z[k] = save + 1e-3
			lp := loss()
			z[k] = save - 1e-3
			lm := loss()
			z[k] = save
			num := (lp - lm) / 2e-3
			if math.Abs(num-float64(g.Z[s][k]))/math.Max(1, math.Abs(num)) > 1e-3 {
				t.Errorf("step %d z %d: analytic %v numeric %v", s, k, g.Z[s][k], num)
			}
		}
	}
}

func TestRegularizationShardsSum(t *testing.T) {
	out, y := output()
	st := stats(out, y)
	reg := FiringRateRegularization(10)
	whole, _ := reg(out, y, st)

	var parts float64
	for b := 0; b < 2; b++ {
		shard := &recurrent.Output{Trace: &layer.Trace{}, Logits: out.Logits}
		for _, z := range out.Trace.Z {
			shard.Trace.Z = append(shard.Trace.Z, z[b*2:(b+1)*2])
		}
		l, _ := reg(shard, y.Slice(b, b+1), st)
		parts += l
	}
	if math.Abs(whole-parts) > 1e-9 {
		t.Errorf("whole %v shards %v", whole, parts)
	}
}

func TestWithRegularization(t *testing.T) {
	out, y := output()
	st := stats(out, y)
	ce, _ := CategoricalCrossentropy(out, y, st)
	r, _ := FiringRateRegularization(10)(out, y, st)
	l, g := WithRegularization(CategoricalCrossentropy, FiringRateRegularization(10), 0.5)(out, y, st)
	if math.Abs(l-(ce+0.5*r)) > 1e-9 {
		t.Errorf("loss %v want %v", l, ce+0.5*r)
	}
	if g.Logits == nil || g.Z == nil {
		t.Error("combined gradient lost a component")
	}
}

func TestGet(t *testing.T) {
	for _, name := range []string{"categorical_crossentropy", "Firing_Rate_Regularization"} {
		if _, err := Get(name); err != nil {
			t.Errorf("%s: %v", name, err)
		}
	}
	if _, err := Get("hinge"); !errors.Is(err, ErrUnknownLoss) {
		t.Errorf("hinge: %v", err)
	}
}
