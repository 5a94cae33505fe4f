// Package datasets defines the sequence classification dataset type.
package datasets

import (
	"github.com/pkg/errors"

	"github.com/neurlang/rsnn/tensor"
)

// Masked is the label of frames which take no part in loss or metrics.
const Masked int32 = -1

// Dataset provides train and test splits of frame-labelled sequences.
type Dataset interface {

	// TrainBatch returns all training sequences and their [batch][time] labels.
	TrainBatch() (x *tensor.Tensor3, y []int32)

	// TestBatch returns all test sequences and their [batch][time] labels.
	TestBatch() (x *tensor.Tensor3, y []int32)

	// Classes reports the number of label classes.
	Classes() int
}

// Check verifies that y labels every frame of x with a class below classes or Masked.
func Check(x *tensor.Tensor3, y []int32, classes int) error {
	if x == nil {
		return errors.New("datasets: nil inputs")
	}
	if len(y) != x.Batch*x.Time {
		return errors.Errorf("datasets: %d labels for %d sequences of %d frames", len(y), x.Batch, x.Time)
	}
	for i, l := range y {
		if l != Masked && (l < 0 || int(l) >= classes) {
			return errors.Errorf("datasets: label %d at frame %d out of range [0,%d)", l, i, classes)
		}
	}
	return nil
}

// OneHot converts labels to one-hot targets, masked frames become zero rows.
func OneHot(x *tensor.Tensor3, y []int32, classes int) (*tensor.Tensor3, error) {
	if err := Check(x, y, classes); err != nil {
		return nil, err
	}
	return tensor.OneHot(y, x.Batch, x.Time, classes)
}
