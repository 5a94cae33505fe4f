package main

import (
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/neurlang/rsnn/layer"
	"github.com/neurlang/rsnn/layer/alif"
	"github.com/neurlang/rsnn/layer/lif"
	"github.com/neurlang/rsnn/layer/rnn"
	"github.com/neurlang/rsnn/learning"
	"github.com/neurlang/rsnn/learning/backprop"
	"github.com/neurlang/rsnn/learning/eprop"
	"github.com/neurlang/rsnn/net/recurrent"

	_ "github.com/neurlang/rsnn/backend/gonum"
	_ "github.com/neurlang/rsnn/backend/native"
)

var layers = map[string]func(layer.Options) layer.Cell{
	"rnn":  func(o layer.Options) layer.Cell { return rnn.New(o) },
	"lif":  func(o layer.Options) layer.Cell { return lif.New(o) },
	"alif": func(o layer.Options) layer.Cell { return alif.New(o) },
}

var rules = map[string]func(*recurrent.Model, *learning.HyperParameters) (learning.Rule, error){
	"bptt": func(m *recurrent.Model, h *learning.HyperParameters) (learning.Rule, error) {
		return backprop.New(m, h), nil
	},
	"eprop": func(m *recurrent.Model, h *learning.HyperParameters) (learning.Rule, error) {
		return eprop.New(m, h)
	},
}

func lookup[T any](table map[string]T, kind, name string) (T, error) {
	if v, ok := table[strings.ToLower(name)]; ok {
		return v, nil
	}
	known := make([]string, 0, len(table))
	for k := range table {
		known = append(known, k)
	}
	sort.Strings(known)
	var zero T
	return zero, errors.Errorf("unknown %s %q (known: %s)", kind, name, strings.Join(known, ", "))
}
