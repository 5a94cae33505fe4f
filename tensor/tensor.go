// Package tensor holds batched sequences of float32 frames.
package tensor

import "github.com/pkg/errors"

// Tensor3 is a row-major [Batch][Time][Size] array.
type Tensor3 struct {
	Batch, Time, Size int
	Data              []float32
}

// New allocates a zeroed tensor.
func New(batch, time, size int) *Tensor3 {
	return &Tensor3{Batch: batch, Time: time, Size: size, Data: make([]float32, batch*time*size)}
}

// FromSlice wraps data, which must hold exactly batch*time*size values.
func FromSlice(batch, time, size int, data []float32) (*Tensor3, error) {
	if len(data) != batch*time*size {
		return nil, errors.Errorf("tensor: %d values do not fit %dx%dx%d", len(data), batch, time, size)
	}
	return &Tensor3{Batch: batch, Time: time, Size: size, Data: data}, nil
}

// Row returns the frame at (b, t) without copying.
func (x *Tensor3) Row(b, t int) []float32 {
	off := (b*x.Time + t) * x.Size
	return x.Data[off : off+x.Size]
}

// Step copies frame t of every sequence into dst as a Batch×Size matrix.
func (x *Tensor3) Step(t int, dst []float32) []float32 {
	if cap(dst) < x.Batch*x.Size {
		dst = make([]float32, x.Batch*x.Size)
	}
	dst = dst[:x.Batch*x.Size]
	for b := 0; b < x.Batch; b++ {
		copy(dst[b*x.Size:(b+1)*x.Size], x.Row(b, t))
	}
	return dst
}

// Gather copies the sequences listed in idx into a new tensor.
func (x *Tensor3) Gather(idx []int) *Tensor3 {
	var out = New(len(idx), x.Time, x.Size)
	seq := x.Time * x.Size
	for i, b := range idx {
		copy(out.Data[i*seq:(i+1)*seq], x.Data[b*seq:(b+1)*seq])
	}
	return out
}

// Slice returns sequences [lo, hi) sharing storage with x.
func (x *Tensor3) Slice(lo, hi int) *Tensor3 {
	seq := x.Time * x.Size
	return &Tensor3{Batch: hi - lo, Time: x.Time, Size: x.Size, Data: x.Data[lo*seq : hi*seq]}
}

// Bytes reports the storage size.
func (x *Tensor3) Bytes() int64 {
	return int64(len(x.Data)) * 4
}

// OneHot expands labels, laid out [batch][time], into one-hot frames.
// A negative label produces an all-zero (masked) frame.
func OneHot(labels []int32, batch, time, classes int) (*Tensor3, error) {
	if len(labels) != batch*time {
		return nil, errors.Errorf("tensor: %d labels do not fit %dx%d", len(labels), batch, time)
	}
	var out = New(batch, time, classes)
	for i, l := range labels {
		if l < 0 {
			continue
		}
		if int(l) >= classes {
			return nil, errors.Errorf("tensor: label %d out of range for %d classes", l, classes)
		}
		out.Data[i*classes+int(l)] = 1
	}
	return out, nil
}

// Argmax returns the index of the largest value, or -1 for an empty slice.
func Argmax(row []float32) int {
	if len(row) == 0 {
		return -1
	}
	best := 0
	for i, v := range row {
		if v > row[best] {
			best = i
		}
	}
	return best
}

// Valid reports whether a one-hot frame carries a label.
func Valid(row []float32) bool {
	for _, v := range row {
		if v != 0 {
			return true
		}
	}
	return false
}
