package optimizer

import "math"
import "testing"

import "github.com/neurlang/rsnn/layer"

func TestFirstStepIsLearningRate(t *testing.T) {
	p := layer.NewParam("w", 1, 3)
	copy(p.G, []float32{2, -0.001, 0})
	a := NewAdam(0.01)
	a.Step([]*layer.Param{p})
	want := []float64{-0.01, 0.01, 0}
	for i, w := range want {
		if math.Abs(float64(p.W[i])-w) > 1e-5 {
			t.Errorf("w[%d] = %v want %v", i, p.W[i], w)
		}
	}
	if d := a.Delta("w"); d == nil || d[0] != p.W[0] {
		t.Errorf("delta %v", d)
	}
}

func TestMinimisesQuadratic(t *testing.T) {
	p := layer.NewParam("x", 1, 1)
	p.W[0] = 5
	a := NewAdam(0.1)
	for i := 0; i < 500; i++ {
		p.G[0] = 2 * (p.W[0] - 1)
		a.Step([]*layer.Param{p})
	}
	if math.Abs(float64(p.W[0])-1) > 0.05 {
		t.Errorf("x = %v want 1", p.W[0])
	}
	if a.Steps() != 500 {
		t.Errorf("steps %d", a.Steps())
	}
}
