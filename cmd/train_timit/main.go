package main

import crypto_rand "crypto/rand"
import "context"
import "encoding/binary"
import "flag"
import "fmt"
import "io"
import "log"
import "os"
import "os/signal"
import "strings"
import "time"

import "github.com/c2h5oh/datasize"

import "github.com/neurlang/rsnn/backend"
import "github.com/neurlang/rsnn/backend/native"
import "github.com/neurlang/rsnn/config"
import "github.com/neurlang/rsnn/datasets"
import "github.com/neurlang/rsnn/datasets/timit"
import "github.com/neurlang/rsnn/evaluator"
import "github.com/neurlang/rsnn/layer"
import "github.com/neurlang/rsnn/learning"
import "github.com/neurlang/rsnn/loss"
import "github.com/neurlang/rsnn/net/recurrent"
import "github.com/neurlang/rsnn/optimizer"
import "github.com/neurlang/rsnn/results"
import "github.com/neurlang/rsnn/trainer"

func main() {
	fs := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	profile := fs.Bool("pgo", false, "collect a CPU profile into default.pgo")
	args, err := config.ParseFlags(fs, os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}
	if err := run(args, *profile); err != nil {
		log.Fatal(err)
	}
}

func run(args *config.Args, profile bool) error {
	if profile {
		stop, err := pgo("default.pgo")
		if err != nil {
			return err
		}
		defer stop()
	}
	if args.Seed == 0 {
		args.Seed = randomSeed()
	}
	fmt.Println("seed", args.Seed)

	be, err := backend.Lookup(args.Backend, args.Threads)
	if err != nil {
		return err
	}
	if c, ok := be.(io.Closer); ok {
		defer c.Close()
	}
	newCell, err := lookup(layers, "layer", args.Layer)
	if err != nil {
		return err
	}
	newRule, err := lookup(rules, "learning rule", args.LearningRule)
	if err != nil {
		return err
	}

	data, err := timit.New(args.DataPath, args.Preproc, args.Reduced)
	if err != nil {
		return err
	}
	fmt.Println("loaded", data.Classes(), "classes,", data.Features(), "features,", datasize.ByteSize(data.Bytes()).HumanReadable())
	xTrain, labels := data.TrainBatch()
	yTrain, err := datasets.OneHot(xTrain, labels, data.Classes())
	if err != nil {
		return err
	}
	xTest, labels := data.TestBatch()
	yTest, err := datasets.OneHot(xTest, labels, data.Classes())
	if err != nil {
		return err
	}

	var lossFunc loss.Func = loss.CategoricalCrossentropy
	if strings.EqualFold(args.LearningRule, "bptt") && args.Reg {
		lossFunc = loss.WithRegularization(loss.CategoricalCrossentropy,
			loss.FiringRateRegularization(float64(args.RegTarget)), args.RegCoeff)
	}

	var neuron layer.Neuron
	neuron.Defaults()
	neuron.Vth = float32(args.FiringThresh)
	neuron.Update()
	cell := newCell(layer.Options{Inputs: data.Features(), Hidden: args.Hidden, Neuron: neuron, Seed: args.Seed})
	model := recurrent.New(cell, data.Classes(), args.Seed)
	model.Dt = neuron.Dt

	threads := args.Threads
	if threads == 0 {
		threads = native.DefaultThreads()
	}
	h := &learning.HyperParameters{
		Threads:                  threads,
		Optimizer:                optimizer.NewAdam(args.LearningRate),
		Loss:                     lossFunc,
		Mode:                     args.EpropMode,
		Seed:                     args.Seed,
		FiringRateRegularization: args.Reg,
		CReg:                     args.RegCoeff,
		FTarget:                  float64(args.RegTarget),
	}
	if args.LogFile != "" {
		if err := h.SetLogger(args.LogFile); err != nil {
			return err
		}
	}
	rule, err := newRule(model, h)
	if err != nil {
		return err
	}
	// after newRule, so state the rule persists is restored too
	if err := trainer.Resume(model, args.Resume, args.DstModel); err != nil {
		return err
	}
	ev := evaluator.New(model, lossFunc, evaluator.Accuracy, evaluator.FiringRate)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	tr := &trainer.Trainer{Rule: rule, Evaluator: ev, DstModel: args.DstModel, Resumed: args.Resume}
	history, err := tr.Train(ctx, be, xTrain, yTrain, trainer.TrainOptions{
		Epochs:     args.Epoch,
		BatchSize:  args.BatchSize,
		Seed:       args.Seed,
		Validation: &trainer.Data{X: xTest, Y: yTest},
	})
	if err != nil {
		return err
	}

	test, err := ev.Evaluate(be, xTest, yTest, args.BatchSize)
	if err != nil {
		return err
	}
	fmt.Println("test", test)

	rec := results.New("timit", args.Map())
	rec.Log = history.History()
	rec.TestResult = test
	if f, ok := be.(backend.Featurer); ok {
		rec.BackendFeatures = f.Features()
	}
	rec.Complete(time.Now())
	path, err := results.Write(args.Out, rec)
	if err != nil {
		return err
	}
	fmt.Println("results written to", path)

	if args.Registry != "" {
		reg, err := results.Open(args.Registry)
		if err != nil {
			return err
		}
		defer reg.Close()
		if err := reg.Insert(rec, path); err != nil {
			return err
		}
	}
	return nil
}

func randomSeed() int64 {
	var b [8]byte
	if _, err := crypto_rand.Read(b[:]); err != nil {
		return time.Now().UnixNano()
	}
	return int64(binary.LittleEndian.Uint64(b[:]) >> 1)
}
