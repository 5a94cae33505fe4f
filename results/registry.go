package results

import (
	"database/sql"
	"encoding/json"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	// runs may be registered from several goroutines
	sync "github.com/sasha-s/go-deadlock"
)

// Registry indexes finished runs in an SQLite database.
type Registry struct {
	db *sql.DB
	mu sync.Mutex
}

// Entry is one registered run.
type Entry struct {
	RunID          string
	Name           string
	CompletionTime int64
	Accuracy       float64
	Artifact       string
}

// Open opens or creates the registry database at path.
func Open(path string) (*Registry, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		name TEXT,
		completion_time INTEGER,
		-- test accuracy, NULL when not measured
		accuracy REAL,
		-- path of the result file
		artifact TEXT,
		record TEXT
	)`)
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, path)
	}
	return &Registry{db: db}, nil
}

// Insert registers rec, stored at artifact.
func (r *Registry) Insert(rec *Record, artifact string) error {
	blob, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	var acc interface{}
	if v, ok := rec.TestResult["accuracy"]; ok {
		acc = v
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	_, err = r.db.Exec("INSERT INTO runs (run_id, name, completion_time, accuracy, artifact, record) VALUES (?, ?, ?, ?, ?, ?)",
		rec.RunID, rec.Name, rec.CompletionTime, acc, artifact, string(blob))
	return errors.Wrap(err, "insert run")
}

// List returns the registered runs, newest first.
func (r *Registry) List() ([]Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rows, err := r.db.Query("SELECT run_id, name, completion_time, accuracy, artifact FROM runs ORDER BY completion_time DESC, run_id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []Entry
	for rows.Next() {
		var e Entry
		var acc sql.NullFloat64
		if err := rows.Scan(&e.RunID, &e.Name, &e.CompletionTime, &acc, &e.Artifact); err != nil {
			return nil, err
		}
		e.Accuracy = acc.Float64
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Record loads the full record of a run.
func (r *Registry) Record(runID string) (*Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var blob string
	if err := r.db.QueryRow("SELECT record FROM runs WHERE run_id = ?", runID).Scan(&blob); err != nil {
		return nil, errors.Wrap(err, runID)
	}
	var rec Record
	if err := json.Unmarshal([]byte(blob), &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *Registry) Close() error {
	return r.db.Close()
}
