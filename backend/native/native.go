// Package native implements the pure Go compute backend.
package native

import (
	"runtime"
	"strconv"

	"github.com/klauspost/cpuid/v2"

	"github.com/neurlang/rsnn/backend"
	"github.com/neurlang/rsnn/parallel"
)

// work below this many multiply-adds runs on the calling goroutine
const serialFlops = 1 << 15

func init() {
	backend.Register("native", func(threads int) (backend.Backend, error) {
		return New(threads), nil
	}, "go", "cpu")
}

// Native multiplies matrices with plain loops, splitting rows of c across goroutines.
type Native struct {
	Threads int
}

// New makes a native backend. Zero threads means one per physical core.
func New(threads int) *Native {
	if threads <= 0 {
		threads = DefaultThreads()
	}
	return &Native{Threads: threads}
}

// DefaultThreads returns the physical core count, or the logical CPU count
// where cpuid cannot tell.
func DefaultThreads() int {
	if n := cpuid.CPU.PhysicalCores; n > 0 {
		return n
	}
	return runtime.NumCPU()
}

// Name implements backend.Backend.
func (*Native) Name() string {
	return "native"
}

// Features reports the processor the backend runs on.
func (n *Native) Features() map[string]string {
	return map[string]string{
		"cpu":     cpuid.CPU.BrandName,
		"cores":   strconv.Itoa(cpuid.CPU.PhysicalCores),
		"threads": strconv.Itoa(n.Threads),
		"avx2":    strconv.FormatBool(cpuid.CPU.Supports(cpuid.AVX2)),
		"fma3":    strconv.FormatBool(cpuid.CPU.Supports(cpuid.FMA3)),
		"avx512":  strconv.FormatBool(cpuid.CPU.Supports(cpuid.AVX512F, cpuid.AVX512DQ)),
	}
}

// Gemm implements backend.Backend.
func (n *Native) Gemm(transA, transB bool, m, nn, k int, alpha float32, a, b []float32, beta float32, c []float32) {
	if m == 0 || nn == 0 {
		return
	}
	parts := n.Threads
	if m*nn*k < serialFlops {
		parts = 1
	}
	parallel.Chunks(m, parts, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			row := c[i*nn : (i+1)*nn]
			scale(row, beta)
			if k == 0 || alpha == 0 {
				continue
			}
			if transB {
				gemmRowTransB(row, transA, i, m, nn, k, alpha, a, b)
			} else {
				gemmRow(row, transA, i, m, nn, k, alpha, a, b)
			}
		}
	})
}

func scale(row []float32, beta float32) {
	switch beta {
	case 1:
	case 0:
		for j := range row {
			row[j] = 0
		}
	default:
		for j := range row {
			row[j] *= beta
		}
	}
}

// gemmRow accumulates row i of op(a)·b into row, streaming rows of b.
func gemmRow(row []float32, transA bool, i, m, n, k int, alpha float32, a, b []float32) {
	for p := 0; p < k; p++ {
		aip := backend.At(a, transA, i, p, m, k)
		if aip == 0 {
			continue
		}
		aip *= alpha
		bp := b[p*n : (p+1)*n]
		for j, v := range bp {
			row[j] += aip * v
		}
	}
}

// gemmRowTransB accumulates row i of op(a)·bᵀ into row as dot products
// against rows of b.
func gemmRowTransB(row []float32, transA bool, i, m, n, k int, alpha float32, a, b []float32) {
	var ai []float32
	if transA {
		ai = make([]float32, k)
		for p := range ai {
			ai[p] = a[p*m+i]
		}
	} else {
		ai = a[i*k : (i+1)*k]
	}
	for j := 0; j < n; j++ {
		bj := b[j*k : (j+1)*k]
		var sum float32
		for p, v := range ai {
			sum += v * bj[p]
		}
		row[j] += alpha * sum
	}
}
