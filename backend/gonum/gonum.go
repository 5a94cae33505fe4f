// Package gonum implements the compute backend on top of gonum's BLAS.
package gonum

import (
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"

	"github.com/neurlang/rsnn/backend"
)

func init() {
	backend.Register("gonum", func(int) (backend.Backend, error) {
		return Gonum{}, nil
	}, "blas")
}

// Gonum delegates to blas32.Gemm. Whatever BLAS implementation is
// installed through blas32.Use is used.
type Gonum struct{}

// Name implements backend.Backend.
func (Gonum) Name() string {
	return "gonum"
}

// Features implements backend.Featurer.
func (Gonum) Features() map[string]string {
	return map[string]string{"blas": "gonum/blas32"}
}

// Gemm implements backend.Backend.
func (Gonum) Gemm(transA, transB bool, m, n, k int, alpha float32, a, b []float32, beta float32, c []float32) {
	if m == 0 || n == 0 {
		return
	}
	if k == 0 {
		for i := range c[:m*n] {
			c[i] *= beta
		}
		return
	}
	blas32.Gemm(op(transA), op(transB), alpha, general(a, transA, m, k), general(b, transB, k, n), beta,
		blas32.General{Rows: m, Cols: n, Stride: n, Data: c[:m*n]})
}

func op(trans bool) blas.Transpose {
	if trans {
		return blas.Trans
	}
	return blas.NoTrans
}

// general wraps x, which holds op(x) of shape rows×cols, in its stored layout.
func general(x []float32, trans bool, rows, cols int) blas32.General {
	if trans {
		rows, cols = cols, rows
	}
	return blas32.General{Rows: rows, Cols: cols, Stride: cols, Data: x[:rows*cols]}
}
