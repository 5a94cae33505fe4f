package recurrent

import (
	"compress/zlib"
	"encoding/json"
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/neurlang/rsnn/layer"
)

type weightsJSON struct {
	Kind    string      `json:"kind"`
	Classes int         `json:"classes"`
	Params  []paramJSON `json:"params"`
	State   []paramJSON `json:"state,omitempty"`
}

type paramJSON struct {
	Name string    `json:"name"`
	Rows int       `json:"rows"`
	Cols int       `json:"cols"`
	W    []float32 `json:"w"`
}

// WriteZlibWeights writes the model weights as zlib compressed JSON.
func (n *Model) WriteZlibWeights(w io.Writer) error {
	doc := weightsJSON{Kind: n.Cell.Kind(), Classes: n.Classes}
	for _, p := range n.Params() {
		doc.Params = append(doc.Params, paramJSON{Name: p.Name, Rows: p.Rows, Cols: p.Cols, W: p.W})
	}
	for _, p := range n.state {
		doc.State = append(doc.State, paramJSON{Name: p.Name, Rows: p.Rows, Cols: p.Cols, W: p.W})
	}
	zw := zlib.NewWriter(w)
	if err := json.NewEncoder(zw).Encode(&doc); err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}

// ReadZlibWeights loads weights written by WriteZlibWeights into n. The
// layer kind and every parameter shape must match. Persisted state missing
// from the file keeps its value, state n does not persist is ignored.
func (n *Model) ReadZlibWeights(r io.Reader) error {
	zr, err := zlib.NewReader(r)
	if err != nil {
		return errors.Wrap(err, "zlib")
	}
	defer zr.Close()
	var doc weightsJSON
	if err := json.NewDecoder(zr).Decode(&doc); err != nil {
		return errors.Wrap(err, "decode weights")
	}
	if doc.Kind != n.Cell.Kind() {
		return errors.Errorf("weights are for a %s layer, model has %s", doc.Kind, n.Cell.Kind())
	}
	params := n.Params()
	if len(doc.Params) != len(params) || doc.Classes != n.Classes {
		return errors.Errorf("weights have %d params and %d classes, model has %d and %d",
			len(doc.Params), doc.Classes, len(params), n.Classes)
	}
	for i, p := range params {
		d := doc.Params[i]
		if d.Name != p.Name || d.Rows != p.Rows || d.Cols != p.Cols || len(d.W) != len(p.W) {
			return errors.Errorf("param %d: weights have %s %dx%d, model has %s %dx%d",
				i, d.Name, d.Rows, d.Cols, p.Name, p.Rows, p.Cols)
		}
	}
	var state []*layer.Param
	var saved []paramJSON
	for _, p := range n.state {
		for _, d := range doc.State {
			if d.Name != p.Name {
				continue
			}
			if d.Rows != p.Rows || d.Cols != p.Cols || len(d.W) != len(p.W) {
				return errors.Errorf("state %s: weights have %dx%d, model has %dx%d", p.Name, d.Rows, d.Cols, p.Rows, p.Cols)
			}
			state = append(state, p)
			saved = append(saved, d)
		}
	}
	for i, p := range params {
		copy(p.W, doc.Params[i].W)
	}
	for i, p := range state {
		copy(p.W, saved[i].W)
	}
	return nil
}

// WriteZlibWeightsToFile writes the weights to the named file.
func (n *Model) WriteZlibWeightsToFile(name string) error {
	file, err := os.Create(name)
	if err != nil {
		return err
	}
	err = n.WriteZlibWeights(file)
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	return err
}

// ReadZlibWeightsFromFile reads the weights from the named file.
func (n *Model) ReadZlibWeightsFromFile(name string) error {
	file, err := os.Open(name)
	if err != nil {
		return err
	}
	defer file.Close()
	return errors.Wrap(n.ReadZlibWeights(file), name)
}
