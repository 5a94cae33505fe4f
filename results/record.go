// Package results persists the outcome of a training run.
package results

import (
	"compress/zlib"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Record is the result of one run. It serialises as one flat mapping: the
// configuration keys next to the fields below.
type Record struct {
	Config map[string]interface{}

	RunID           string
	Name            string
	Log             map[string][]float64
	CompletionTime  int64
	TestResult      map[string]float64
	BackendFeatures map[string]string
}

var reserved = []string{"run_id", "name", "log", "completion_time", "test_result", "backend_features"}

// New starts a record for the named experiment with a fresh run id.
func New(name string, config map[string]interface{}) *Record {
	return &Record{Config: config, RunID: uuid.New().String(), Name: name}
}

// Complete stamps the completion time.
func (r *Record) Complete(t time.Time) {
	r.CompletionTime = t.Unix()
}

// FileName is timit_<completion time>.json.zlib.
func (r *Record) FileName() string {
	return fmt.Sprintf("timit_%d.json.zlib", r.CompletionTime)
}

func (r *Record) MarshalJSON() ([]byte, error) {
	flat := make(map[string]interface{}, len(r.Config)+len(reserved))
	for k, v := range r.Config {
		flat[k] = v
	}
	flat["run_id"] = r.RunID
	flat["name"] = r.Name
	flat["log"] = r.Log
	flat["completion_time"] = r.CompletionTime
	flat["test_result"] = r.TestResult
	if r.BackendFeatures != nil {
		flat["backend_features"] = r.BackendFeatures
	}
	return json.Marshal(flat)
}

func (r *Record) UnmarshalJSON(data []byte) error {
	var flat map[string]json.RawMessage
	if err := json.Unmarshal(data, &flat); err != nil {
		return err
	}
	fields := []interface{}{&r.RunID, &r.Name, &r.Log, &r.CompletionTime, &r.TestResult, &r.BackendFeatures}
	for i, k := range reserved {
		if raw, ok := flat[k]; ok {
			if err := json.Unmarshal(raw, fields[i]); err != nil {
				return errors.Wrap(err, k)
			}
			delete(flat, k)
		}
	}
	r.Config = make(map[string]interface{}, len(flat))
	for k, raw := range flat {
		var v interface{}
		if err := json.Unmarshal(raw, &v); err != nil {
			return errors.Wrap(err, k)
		}
		r.Config[k] = v
	}
	return nil
}

// Write stores rec in dir as zlib compressed JSON and returns the path.
func Write(dir string, rec *Record) (string, error) {
	path := filepath.Join(dir, rec.FileName())
	file, err := os.Create(path)
	if err != nil {
		return "", err
	}
	zw := zlib.NewWriter(file)
	err = json.NewEncoder(zw).Encode(rec)
	if cerr := zw.Close(); err == nil {
		err = cerr
	}
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", errors.Wrap(err, path)
	}
	return path, nil
}

// Read loads a record written by Write.
func Read(path string) (*Record, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	zr, err := zlib.NewReader(file)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	defer zr.Close()
	var rec Record
	if err := json.NewDecoder(zr).Decode(&rec); err != nil {
		return nil, errors.Wrap(err, path)
	}
	return &rec, nil
}
