package gonum

import "math/rand"
import "testing"

import "github.com/neurlang/rsnn/backend"

func TestGemmMatchesReference(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	fill := func(n int) []float32 {
		var x = make([]float32, n)
		for i := range x {
			x[i] = float32(rng.NormFloat64())
		}
		return x
	}
	for _, tc := range []struct{ m, n, k int }{{2, 3, 4}, {17, 9, 31}, {1, 40, 1}} {
		for _, ta := range []bool{false, true} {
			for _, tb := range []bool{false, true} {
				a, b, c := fill(tc.m*tc.k), fill(tc.k*tc.n), fill(tc.m*tc.n)
				want := append([]float32(nil), c...)
				backend.Reference(ta, tb, tc.m, tc.n, tc.k, 1.5, a, b, -1, want)
				Gonum{}.Gemm(ta, tb, tc.m, tc.n, tc.k, 1.5, a, b, -1, c)
				for i := range c {
					if d := c[i] - want[i]; d > 1e-3 || d < -1e-3 {
						t.Fatalf("%+v ta=%v tb=%v: c[%d]=%f want %f", tc, ta, tb, i, c[i], want[i])
					}
				}
			}
		}
	}
}

func TestLookup(t *testing.T) {
	b, err := backend.Lookup("BLAS", 0)
	if err != nil {
		t.Fatal(err)
	}
	if b.Name() != "gonum" {
		t.Errorf("got %s", b.Name())
	}
}
