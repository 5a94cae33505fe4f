// Package timit loads the preprocessed TIMIT frame classification dataset.
//
// The data directory holds one IDX feature array and one IDX label array
// per split:
//
//	train-mfccs-idx3-float.gz    sequences × frames × features, float32
//	train-phonems-idx2-ubyte.gz  sequences × frames, phoneme index or 0xFF
//	test-mfccs-idx3-float.gz
//	test-phonems-idx2-ubyte.gz
//
// The middle part of the feature file name is the preprocessing its
// features came from (mfccs, fbank, ...). Padding frames carry label 0xFF.
// The ".gz" suffix is optional.
package timit

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/neurlang/rsnn/datasets"
	"github.com/neurlang/rsnn/datasets/idx"
	"github.com/neurlang/rsnn/tensor"
)

// Padding is the on-disk label of frames past the end of an utterance.
const Padding = 0xFF

type split struct {
	x *tensor.Tensor3
	y []int32
}

// Dataset is a loaded TIMIT train/test pair.
type Dataset struct {
	Path    string
	Preproc string
	Reduced bool

	train, test split
}

var _ datasets.Dataset = (*Dataset)(nil)

// New loads both splits from dataPath. With reduced set, labels are folded
// onto the 39 phoneme set.
func New(dataPath, preproc string, reduced bool) (*Dataset, error) {
	var d = &Dataset{Path: dataPath, Preproc: preproc, Reduced: reduced}
	var err error
	if d.train, err = d.load("train"); err != nil {
		return nil, err
	}
	if d.test, err = d.load("test"); err != nil {
		return nil, err
	}
	if d.train.x.Size != d.test.x.Size {
		return nil, errors.Errorf("timit: train has %d features per frame, test has %d", d.train.x.Size, d.test.x.Size)
	}
	return d, nil
}

// TrainBatch implements datasets.Dataset.
func (d *Dataset) TrainBatch() (*tensor.Tensor3, []int32) {
	return d.train.x, d.train.y
}

// TestBatch implements datasets.Dataset.
func (d *Dataset) TestBatch() (*tensor.Tensor3, []int32) {
	return d.test.x, d.test.y
}

// Classes implements datasets.Dataset.
func (d *Dataset) Classes() int {
	return len(d.Phonemes())
}

// NPhns is the number of phoneme classes, as Classes.
func (d *Dataset) NPhns() int {
	return d.Classes()
}

// Phonemes names the label classes.
func (d *Dataset) Phonemes() []string {
	if d.Reduced {
		return Phonemes39
	}
	return Phonemes61
}

// Features reports the feature count per frame.
func (d *Dataset) Features() int {
	return d.train.x.Size
}

// Bytes reports the memory held by the inputs of both splits.
func (d *Dataset) Bytes() int64 {
	return d.train.x.Bytes() + d.test.x.Bytes()
}

func (d *Dataset) load(name string) (split, error) {
	fx, err := find(d.Path, fmt.Sprintf("%s-%s-idx3-float", name, d.Preproc))
	if err != nil {
		return split{}, err
	}
	fy, err := find(d.Path, name+"-phonems-idx2-ubyte")
	if err != nil {
		return split{}, err
	}
	ax, err := idx.ReadFile(fx)
	if err != nil {
		return split{}, err
	}
	ay, err := idx.ReadFile(fy)
	if err != nil {
		return split{}, err
	}
	if ax.Type != idx.Float32 || len(ax.Dims) != 3 {
		return split{}, errors.Errorf("timit: %s: want float32 sequences×frames×features, got type 0x%02x dims %v", fx, ax.Type, ax.Dims)
	}
	if ay.Type != idx.Ubyte || len(ay.Dims) != 2 {
		return split{}, errors.Errorf("timit: %s: want ubyte sequences×frames, got type 0x%02x dims %v", fy, ay.Type, ay.Dims)
	}
	if ax.Dims[0] != ay.Dims[0] || ax.Dims[1] != ay.Dims[1] {
		return split{}, errors.Errorf("timit: %s split: features %v do not match labels %v", name, ax.Dims, ay.Dims)
	}
	x, err := tensor.FromSlice(ax.Dims[0], ax.Dims[1], ax.Dims[2], ax.Floats)
	if err != nil {
		return split{}, err
	}
	var y = make([]int32, len(ay.Bytes))
	for i, b := range ay.Bytes {
		switch {
		case b == Padding:
			y[i] = datasets.Masked
		case int(b) >= len(Phonemes61):
			return split{}, errors.Errorf("timit: %s: label %d at frame %d is not a phoneme", fy, b, i)
		case d.Reduced:
			y[i] = Reduce(int32(b))
		default:
			y[i] = int32(b)
		}
	}
	return split{x: x, y: y}, nil
}

// find resolves base or base.gz inside dir.
func find(dir, base string) (string, error) {
	for _, name := range []string{base + ".gz", base} {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", errors.Errorf("timit: neither %s nor %s.gz found in %s", base, base, dir)
}

// WriteSplit stores a split in the layout New reads. Masked labels are
// written as Padding.
func WriteSplit(dir, name, preproc string, x *tensor.Tensor3, y []int32) error {
	if err := datasets.Check(x, y, len(Phonemes61)); err != nil {
		return err
	}
	var labels = make([]byte, len(y))
	for i, l := range y {
		if l == datasets.Masked {
			labels[i] = Padding
		} else {
			labels[i] = byte(l)
		}
	}
	err := idx.WriteFile(filepath.Join(dir, fmt.Sprintf("%s-%s-idx3-float.gz", name, preproc)),
		&idx.Array{Type: idx.Float32, Dims: []int{x.Batch, x.Time, x.Size}, Floats: x.Data})
	if err != nil {
		return err
	}
	return idx.WriteFile(filepath.Join(dir, name+"-phonems-idx2-ubyte.gz"),
		&idx.Array{Type: idx.Ubyte, Dims: []int{x.Batch, x.Time}, Bytes: labels})
}
