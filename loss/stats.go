package loss

import (
	"github.com/neurlang/rsnn/net/recurrent"
	"github.com/neurlang/rsnn/tensor"
)

// Stats summarises a minibatch across shards: the number of valid frames
// and the spike count of every hidden neuron over those frames.
type Stats struct {
	Frames int
	Spikes []float64
	Dt     float32
}

// NewStats returns empty statistics for hidden neurons stepped every dt
// milliseconds.
func NewStats(hidden int, dt float32) *Stats {
	if dt <= 0 {
		dt = 1
	}
	return &Stats{Spikes: make([]float64, hidden), Dt: dt}
}

// Add counts the valid frames of y and the outputs of out on them.
func (s *Stats) Add(out *recurrent.Output, y *tensor.Tensor3) {
	hidden := len(s.Spikes)
	for t, z := range out.Trace.Z {
		for b := 0; b < y.Batch; b++ {
			if !tensor.Valid(y.Row(b, t)) {
				continue
			}
			s.Frames++
			for j, v := range z[b*hidden : (b+1)*hidden] {
				s.Spikes[j] += float64(v)
			}
		}
	}
}

// Merge adds the counts of o.
func (s *Stats) Merge(o *Stats) {
	s.Frames += o.Frames
	for j, v := range o.Spikes {
		s.Spikes[j] += v
	}
}

// Rate is the firing rate of neuron j in Hz.
func (s *Stats) Rate(j int) float64 {
	if s.Frames == 0 {
		return 0
	}
	return s.Spikes[j] / float64(s.Frames) * 1000 / float64(s.Dt)
}

// MeanRate is the firing rate averaged over neurons in Hz.
func (s *Stats) MeanRate() float64 {
	if len(s.Spikes) == 0 {
		return 0
	}
	var sum float64
	for j := range s.Spikes {
		sum += s.Rate(j)
	}
	return sum / float64(len(s.Spikes))
}

// Frames counts the valid frames of y in a single pass.
func Frames(y *tensor.Tensor3) (n int) {
	for b := 0; b < y.Batch; b++ {
		for t := 0; t < y.Time; t++ {
			if tensor.Valid(y.Row(b, t)) {
				n++
			}
		}
	}
	return n
}
