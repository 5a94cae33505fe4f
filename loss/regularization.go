package loss

import (
	"github.com/neurlang/rsnn/net/recurrent"
	"github.com/neurlang/rsnn/tensor"
)

// FiringRateRegularization penalises the distance of every neuron's rate
// from target Hz: ½ Σ_j (f̄_j − target)². Rates come from st. Each shard
// reports its share of the penalty in proportion to its valid frames.
func FiringRateRegularization(target float64) Func {
	return func(out *recurrent.Output, y *tensor.Tensor3, st *Stats) (float64, Grad) {
		hidden := len(st.Spikes)
		grad := make([][]float32, out.Steps())
		for t := range grad {
			grad[t] = make([]float32, y.Batch*hidden)
		}
		if st.Frames == 0 {
			return 0, Grad{Z: grad}
		}
		var penalty float64
		diff := make([]float32, hidden)
		scale := 1000 / float64(st.Dt) / float64(st.Frames)
		for j := range diff {
			d := st.Rate(j) - target
			penalty += d * d / 2
			diff[j] = float32(d * scale)
		}
		local := 0
		for t := range grad {
			for b := 0; b < y.Batch; b++ {
				if !tensor.Valid(y.Row(b, t)) {
					continue
				}
				local++
				copy(grad[t][b*hidden:(b+1)*hidden], diff)
			}
		}
		return penalty * float64(local) / float64(st.Frames), Grad{Z: grad}
	}
}
