package config

import "flag"
import "io"
import "os"
import "path/filepath"
import "reflect"
import "testing"

func parse(t *testing.T, argv ...string) (*Args, error) {
	t.Helper()
	fs := flag.NewFlagSet("train_timit", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return ParseFlags(fs, argv)
}

func TestDefaults(t *testing.T) {
	a, err := parse(t)
	if err != nil {
		t.Fatal(err)
	}
	if *a != *Defaults() {
		t.Errorf("%+v", a)
	}
	if a.Layer != "ALIF" || a.LearningRule != "eprop" || a.EpropMode != "adaptive" || a.RegTarget != 10 {
		t.Errorf("%+v", a)
	}
}

func TestPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.toml")
	err := os.WriteFile(path, []byte("hidden = 64\nlayer = \"lif\"\nreg = true\n"), 0644)
	if err != nil {
		t.Fatal(err)
	}
	a, err := parse(t, "-config", path, "-hidden", "32", "-epoch", "2")
	if err != nil {
		t.Fatal(err)
	}
	if a.Hidden != 32 || a.Layer != "lif" || !a.Reg || a.Epoch != 2 || a.BatchSize != 32 {
		t.Errorf("%+v", a)
	}
	if a.Config != path {
		t.Errorf("config %q", a.Config)
	}
}

func TestUnknownTOMLKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.toml")
	if err := os.WriteFile(path, []byte("hiden = 64\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := parse(t, "-config", path); err == nil {
		t.Error("unknown key accepted")
	}
}

func TestValidate(t *testing.T) {
	for _, argv := range [][]string{
		{"-epoch", "-1"},
		{"-batch_size", "-1"},
		{"-learning_rate", "0"},
		{"-resume"},
	} {
		if _, err := parse(t, argv...); err == nil {
			t.Errorf("%v accepted", argv)
		}
	}
}

func TestZeroEpochsEvaluatesOnly(t *testing.T) {
	a, err := parse(t, "-epoch", "0")
	if err != nil {
		t.Fatal(err)
	}
	if a.Epoch != 0 {
		t.Errorf("epoch %d", a.Epoch)
	}
}

func TestMapHasEveryArgument(t *testing.T) {
	a := Defaults()
	a.Config, a.DstModel, a.Resume = "run.toml", "model.json.zlib", true
	m := a.Map()
	typ := reflect.TypeOf(*a)
	for i := 0; i < typ.NumField(); i++ {
		key := typ.Field(i).Tag.Get("toml")
		if key == "-" {
			key = "config"
		}
		if _, ok := m[key]; !ok {
			t.Errorf("%s missing from %v", key, m)
		}
	}
	if m["config"] != "run.toml" || m["dstmodel"] != "model.json.zlib" || m["resume"] != true {
		t.Errorf("%v", m)
	}
}

func TestMap(t *testing.T) {
	m := Defaults().Map()
	if m["learning_rule"] != "eprop" || m["hidden"] != 200 || m["reg_coeff"] != 0.00005 {
		t.Errorf("%v", m)
	}
}
