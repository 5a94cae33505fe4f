package main

import "flag"
import "fmt"
import "io"
import "log"
import "os"
import "strings"

import "github.com/pkg/errors"

import "github.com/neurlang/rsnn/backend"
import "github.com/neurlang/rsnn/config"
import "github.com/neurlang/rsnn/datasets"
import "github.com/neurlang/rsnn/datasets/timit"
import "github.com/neurlang/rsnn/evaluator"
import "github.com/neurlang/rsnn/layer"
import "github.com/neurlang/rsnn/layer/alif"
import "github.com/neurlang/rsnn/layer/lif"
import "github.com/neurlang/rsnn/layer/rnn"
import "github.com/neurlang/rsnn/loss"
import "github.com/neurlang/rsnn/net/recurrent"

import _ "github.com/neurlang/rsnn/backend/gonum"
import _ "github.com/neurlang/rsnn/backend/native"

func main() {
	fs := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	args, err := config.ParseFlags(fs, os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}
	res, err := infer(args)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("test", res)
}

func newCell(kind string, o layer.Options) (layer.Cell, error) {
	switch strings.ToLower(kind) {
	case "rnn":
		return rnn.New(o), nil
	case "lif":
		return lif.New(o), nil
	case "alif":
		return alif.New(o), nil
	}
	return nil, errors.Errorf("unknown layer %q", kind)
}

func infer(args *config.Args) (evaluator.Result, error) {
	if args.DstModel == "" {
		return nil, errors.New("dstmodel is required")
	}
	be, err := backend.Lookup(args.Backend, args.Threads)
	if err != nil {
		return nil, err
	}
	if c, ok := be.(io.Closer); ok {
		defer c.Close()
	}
	data, err := timit.New(args.DataPath, args.Preproc, args.Reduced)
	if err != nil {
		return nil, err
	}
	x, labels := data.TestBatch()
	y, err := datasets.OneHot(x, labels, data.Classes())
	if err != nil {
		return nil, err
	}

	var neuron layer.Neuron
	neuron.Defaults()
	neuron.Vth = float32(args.FiringThresh)
	neuron.Update()
	cell, err := newCell(args.Layer, layer.Options{Inputs: data.Features(), Hidden: args.Hidden, Neuron: neuron})
	if err != nil {
		return nil, err
	}
	model := recurrent.New(cell, data.Classes(), 0)
	model.Dt = neuron.Dt
	if err := model.ReadZlibWeightsFromFile(args.DstModel); err != nil {
		return nil, err
	}
	ev := evaluator.New(model, loss.CategoricalCrossentropy, evaluator.Accuracy, evaluator.FiringRate)
	return ev.Evaluate(be, x, y, args.BatchSize)
}
