package trainer

import "github.com/neurlang/rsnn/net/recurrent"

// Resume loads dstmodel into m when resume is set.
func Resume(m *recurrent.Model, resume bool, dstmodel string) error {
	if !resume || dstmodel == "" {
		return nil
	}
	return m.ReadZlibWeightsFromFile(dstmodel)
}
