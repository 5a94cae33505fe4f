// Package config holds the arguments of a TIMIT training run. Values come
// from the defaults, then an optional TOML file, then flags set on the
// command line.
package config

import (
	"flag"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

type Args struct {
	Seed         int64   `toml:"seed"`
	Backend      string  `toml:"backend"`
	Epoch        int     `toml:"epoch"`
	BatchSize    int     `toml:"batch_size"`
	LearningRule string  `toml:"learning_rule"`
	Layer        string  `toml:"layer"`
	Hidden       int     `toml:"hidden"`
	FiringThresh float64 `toml:"firing_thresh"`
	LearningRate float64 `toml:"learning_rate"`
	EpropMode    string  `toml:"eprop_mode"`
	Reg          bool    `toml:"reg"`
	RegCoeff     float64 `toml:"reg_coeff"`
	RegTarget    int     `toml:"reg_target"`

	DataPath string `toml:"data_path"`
	Preproc  string `toml:"preproc"`
	Reduced  bool   `toml:"reduced"`
	Out      string `toml:"out"`
	Registry string `toml:"registry"`
	DstModel string `toml:"dstmodel"`
	Resume   bool   `toml:"resume"`
	Threads  int    `toml:"threads"`
	LogFile  string `toml:"logfile"`

	// Config is the TOML file the run was loaded from.
	Config string `toml:"-"`
}

// Defaults returns the arguments of the reference experiment.
func Defaults() *Args {
	return &Args{
		Backend:      "native",
		Epoch:        30,
		BatchSize:    32,
		LearningRule: "eprop",
		Layer:        "ALIF",
		Hidden:       200,
		FiringThresh: 1.0,
		LearningRate: 0.001,
		EpropMode:    "adaptive",
		RegCoeff:     0.00005,
		RegTarget:    10,
		DataPath:     "timit_processed",
		Preproc:      "mfccs",
		Out:          ".",
	}
}

// Flags binds every argument to a flag of fs.
func (a *Args) Flags(fs *flag.FlagSet) {
	fs.Int64Var(&a.Seed, "seed", a.Seed, "random seed, 0 seeds from the system")
	fs.StringVar(&a.Backend, "backend", a.Backend, "compute backend: native, gonum or cuda")
	fs.IntVar(&a.Epoch, "epoch", a.Epoch, "number of epochs")
	fs.IntVar(&a.BatchSize, "batch_size", a.BatchSize, "minibatch size")
	fs.StringVar(&a.LearningRule, "learning_rule", a.LearningRule, "learning rule: bptt or eprop")
	fs.StringVar(&a.Layer, "layer", a.Layer, "recurrent layer: rnn, lif or alif")
	fs.IntVar(&a.Hidden, "hidden", a.Hidden, "number of hidden neurons")
	fs.Float64Var(&a.FiringThresh, "firing_thresh", a.FiringThresh, "spiking threshold")
	fs.Float64Var(&a.LearningRate, "learning_rate", a.LearningRate, "Adam learning rate")
	fs.StringVar(&a.EpropMode, "eprop_mode", a.EpropMode, "eprop feedback: symmetric, random or adaptive")
	fs.BoolVar(&a.Reg, "reg", a.Reg, "firing rate regularization")
	fs.Float64Var(&a.RegCoeff, "reg_coeff", a.RegCoeff, "regularization coefficient")
	fs.IntVar(&a.RegTarget, "reg_target", a.RegTarget, "target firing rate in Hz")
	fs.StringVar(&a.DataPath, "data_path", a.DataPath, "directory of the preprocessed TIMIT files")
	fs.StringVar(&a.Preproc, "preproc", a.Preproc, "feature set of the TIMIT files")
	fs.BoolVar(&a.Reduced, "reduced", a.Reduced, "fold the 61 phonemes to 39")
	fs.StringVar(&a.Out, "out", a.Out, "directory of the result file")
	fs.StringVar(&a.Registry, "registry", a.Registry, "sqlite database indexing the runs")
	fs.StringVar(&a.DstModel, "dstmodel", a.DstModel, "model weights file")
	fs.BoolVar(&a.Resume, "resume", a.Resume, "load dstmodel before training")
	fs.IntVar(&a.Threads, "threads", a.Threads, "worker threads, 0 for the number of cores")
	fs.StringVar(&a.LogFile, "logfile", a.LogFile, "file receiving one line per training step")
}

// LoadTOML overrides a with the keys of the named file. Unknown keys are
// an error.
func (a *Args) LoadTOML(path string) error {
	md, err := toml.DecodeFile(path, a)
	if err != nil {
		return errors.Wrap(err, path)
	}
	if keys := md.Undecoded(); len(keys) > 0 {
		names := make([]string, len(keys))
		for i, k := range keys {
			names[i] = k.String()
		}
		return errors.Errorf("%s: unknown keys %s", path, strings.Join(names, ", "))
	}
	return nil
}

// ParseFlags parses argv with fs. A -config file overrides the defaults and
// flags given explicitly override the file. Flags fs defines beyond Args are
// left to the caller.
func ParseFlags(fs *flag.FlagSet, argv []string) (*Args, error) {
	cli := Defaults()
	fs.StringVar(&cli.Config, "config", "", "TOML file of arguments")
	cli.Flags(fs)
	if err := fs.Parse(argv); err != nil {
		return nil, err
	}
	args := Defaults()
	if cli.Config != "" {
		if err := args.LoadTOML(cli.Config); err != nil {
			return nil, err
		}
	}
	args.Config = cli.Config

	bound := flag.NewFlagSet(fs.Name(), flag.ContinueOnError)
	args.Flags(bound)
	var err error
	fs.Visit(func(f *flag.Flag) {
		if err != nil || bound.Lookup(f.Name) == nil {
			return
		}
		err = bound.Set(f.Name, f.Value.String())
	})
	if err != nil {
		return nil, err
	}
	return args, args.Validate()
}

// Validate checks the numeric arguments. Names are checked where they are
// dispatched.
func (a *Args) Validate() error {
	switch {
	case a.Epoch < 0:
		return errors.Errorf("epoch %d is negative", a.Epoch)
	case a.BatchSize <= 0:
		return errors.Errorf("batch_size %d must be positive", a.BatchSize)
	case a.Hidden <= 0:
		return errors.Errorf("hidden %d must be positive", a.Hidden)
	case a.FiringThresh <= 0:
		return errors.Errorf("firing_thresh %v must be positive", a.FiringThresh)
	case a.LearningRate <= 0:
		return errors.Errorf("learning_rate %v must be positive", a.LearningRate)
	case a.RegCoeff < 0:
		return errors.Errorf("reg_coeff %v is negative", a.RegCoeff)
	case a.Threads < 0:
		return errors.Errorf("threads %d is negative", a.Threads)
	case a.Resume && a.DstModel == "":
		return errors.New("resume needs dstmodel")
	}
	return nil
}

// Map is the flat mapping of every argument, stored with the results.
func (a *Args) Map() map[string]interface{} {
	return map[string]interface{}{
		"seed":          a.Seed,
		"backend":       a.Backend,
		"epoch":         a.Epoch,
		"batch_size":    a.BatchSize,
		"learning_rule": a.LearningRule,
		"layer":         a.Layer,
		"hidden":        a.Hidden,
		"firing_thresh": a.FiringThresh,
		"learning_rate": a.LearningRate,
		"eprop_mode":    a.EpropMode,
		"reg":           a.Reg,
		"reg_coeff":     a.RegCoeff,
		"reg_target":    a.RegTarget,
		"data_path":     a.DataPath,
		"preproc":       a.Preproc,
		"reduced":       a.Reduced,
		"threads":       a.Threads,
		"out":           a.Out,
		"registry":      a.Registry,
		"dstmodel":      a.DstModel,
		"resume":        a.Resume,
		"logfile":       a.LogFile,
		"config":        a.Config,
	}
}
