package results

import "path/filepath"
import "testing"
import "time"

func record() *Record {
	r := New("timit", map[string]interface{}{"layer": "alif", "hidden": 200, "reg": false})
	r.Log = map[string][]float64{"loss": {2.1, 1.7}, "val_accuracy": {0.4, 0.5}}
	r.TestResult = map[string]float64{"accuracy": 0.55, "firing_rate": 12.5}
	r.BackendFeatures = map[string]string{"threads": "4"}
	r.Complete(time.Unix(1700000000, 0))
	return r
}

func TestWriteRead(t *testing.T) {
	dir := t.TempDir()
	rec := record()
	path, err := Write(dir, rec)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(path) != "timit_1700000000.json.zlib" {
		t.Errorf("path %s", path)
	}
	got, err := Read(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.RunID != rec.RunID || got.Name != "timit" || got.CompletionTime != 1700000000 {
		t.Errorf("record %+v", got)
	}
	if got.Config["layer"] != "alif" || got.Config["hidden"] != float64(200) || got.Config["reg"] != false {
		t.Errorf("config %v", got.Config)
	}
	if len(got.Config) != 3 {
		t.Errorf("reserved keys leaked into config: %v", got.Config)
	}
	if got.Log["val_accuracy"][1] != 0.5 || got.TestResult["accuracy"] != 0.55 {
		t.Errorf("log %v test %v", got.Log, got.TestResult)
	}
	if got.BackendFeatures["threads"] != "4" {
		t.Errorf("features %v", got.BackendFeatures)
	}
}

func TestRunIDsDiffer(t *testing.T) {
	if New("a", nil).RunID == New("a", nil).RunID {
		t.Error("run ids repeat")
	}
}

func TestRegistry(t *testing.T) {
	reg, err := Open(filepath.Join(t.TempDir(), "runs.sqlite3"))
	if err != nil {
		t.Fatal(err)
	}
	defer reg.Close()
	older, newer := record(), record()
	older.Complete(time.Unix(1600000000, 0))
	newer.TestResult = nil
	for _, r := range []*Record{older, newer} {
		if err := reg.Insert(r, r.FileName()); err != nil {
			t.Fatal(err)
		}
	}
	if err := reg.Insert(older, "again"); err == nil {
		t.Error("duplicate run id accepted")
	}
	entries, err := reg.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 || entries[0].RunID != newer.RunID || entries[1].Accuracy != 0.55 {
		t.Fatalf("entries %+v", entries)
	}
	if entries[0].Accuracy != 0 {
		t.Errorf("unmeasured accuracy %v", entries[0].Accuracy)
	}
	rec, err := reg.Record(older.RunID)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Config["layer"] != "alif" {
		t.Errorf("config %v", rec.Config)
	}
}
