package loss

import (
	"math"

	"github.com/goki/mat32"

	"github.com/neurlang/rsnn/net/recurrent"
	"github.com/neurlang/rsnn/tensor"
)

// CategoricalCrossentropy is the softmax cross entropy averaged over the
// valid frames counted in st. Masked frames contribute neither loss nor
// gradient.
func CategoricalCrossentropy(out *recurrent.Output, y *tensor.Tensor3, st *Stats) (float64, Grad) {
	classes := y.Size
	grad := make([][]float32, out.Steps())
	if st.Frames == 0 {
		for t := range grad {
			grad[t] = make([]float32, len(out.Logits[t]))
		}
		return 0, Grad{Logits: grad}
	}
	inv := 1 / float32(st.Frames)
	var loss float64
	for t, logits := range out.Logits {
		g := make([]float32, len(logits))
		grad[t] = g
		for b := 0; b < y.Batch; b++ {
			target := y.Row(b, t)
			if !tensor.Valid(target) {
				continue
			}
			row := logits[b*classes : (b+1)*classes]
			p := g[b*classes : (b+1)*classes]
			lse := softmax(p, row)
			for i, yi := range target {
				if yi != 0 {
					loss -= float64(yi) * (float64(row[i]) - lse)
				}
				p[i] = (p[i] - yi) * inv
			}
		}
	}
	return loss / float64(st.Frames), Grad{Logits: grad}
}

// softmax writes the softmax of row into dst and returns log Σ exp(row).
func softmax(dst, row []float32) float64 {
	hi := row[0]
	for _, v := range row[1:] {
		if v > hi {
			hi = v
		}
	}
	var sum float32
	for i, v := range row {
		dst[i] = mat32.Exp(v - hi)
		sum += dst[i]
	}
	for i := range dst {
		dst[i] /= sum
	}
	return float64(hi) + math.Log(float64(sum))
}
