// Package store archives finished fuzz runs in a SQLite database so
// campaigns can be compared across sessions. Archiving happens once, after
// a run terminates; nothing here is on the iteration hot path.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/funvibe/funfuzz/internal/fuzzer"
	"github.com/funvibe/funfuzz/internal/value"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id               TEXT PRIMARY KEY,
	module           TEXT NOT NULL,
	function         TEXT NOT NULL,
	seed             TEXT NOT NULL,
	stop_reason      TEXT NOT NULL,
	elapsed_ms       REAL NOT NULL,
	inputs_generated INTEGER NOT NULL,
	dupes_generated  INTEGER NOT NULL,
	inputs_saved     INTEGER NOT NULL,
	created_at       TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS results (
	run_id      TEXT NOT NULL REFERENCES runs(id),
	seq         INTEGER NOT NULL,
	category    TEXT NOT NULL,
	pinned      INTEGER NOT NULL,
	exception   INTEGER NOT NULL,
	timeout     INTEGER NOT NULL,
	elapsed_ms  REAL NOT NULL,
	input_json  TEXT NOT NULL,
	output_json TEXT,
	PRIMARY KEY (run_id, seq)
);
`

// Store is a handle to one archive database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the archive at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init archive schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func elementsJSON(elems []fuzzer.IoElement) (string, error) {
	plain := make(map[string]any, len(elems))
	for _, el := range elems {
		plain[el.Name] = value.ToGo(el.Value)
	}
	data, err := json.Marshal(plain)
	return string(data), err
}

// SaveRun archives one finished run with all of its stored results.
func (s *Store) SaveRun(res *fuzzer.Results) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("archive run: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO runs (id, module, function, seed, stop_reason, elapsed_ms,
			inputs_generated, dupes_generated, inputs_saved, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		res.RunID, res.Module, res.Function, res.Seed, string(res.StopReason),
		float64(res.Elapsed.Microseconds())/1000,
		res.InputsGenerated, res.DupesGenerated, res.InputsSaved,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("archive run %s: %w", res.RunID, err)
	}

	for i := range res.Results {
		tr := &res.Results[i]
		inJSON, err := elementsJSON(tr.Input)
		if err != nil {
			return fmt.Errorf("archive run %s: encode input: %w", res.RunID, err)
		}
		var outJSON sql.NullString
		if tr.Output != nil {
			enc, err := elementsJSON(tr.Output)
			if err != nil {
				return fmt.Errorf("archive run %s: encode output: %w", res.RunID, err)
			}
			outJSON = sql.NullString{String: enc, Valid: true}
		}
		_, err = tx.Exec(
			`INSERT INTO results (run_id, seq, category, pinned, exception, timeout,
				elapsed_ms, input_json, output_json)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			res.RunID, i, string(tr.Category), tr.Pinned, tr.Exception, tr.Timeout,
			float64(tr.Elapsed.Microseconds())/1000, inJSON, outJSON,
		)
		if err != nil {
			return fmt.Errorf("archive run %s: result %d: %w", res.RunID, i, err)
		}
	}
	return tx.Commit()
}

// RunSummary is one archived run as listed by ListRuns.
type RunSummary struct {
	ID              string
	Module          string
	Function        string
	StopReason      string
	InputsGenerated int
	InputsSaved     int
	CreatedAt       string
}

// ListRuns returns archived runs, newest first.
func (s *Store) ListRuns() ([]RunSummary, error) {
	rows, err := s.db.Query(
		`SELECT id, module, function, stop_reason, inputs_generated, inputs_saved, created_at
		 FROM runs ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var r RunSummary
		if err := rows.Scan(&r.ID, &r.Module, &r.Function, &r.StopReason,
			&r.InputsGenerated, &r.InputsSaved, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// CountByCategory tallies one run's archived results per category.
func (s *Store) CountByCategory(runID string) (map[string]int, error) {
	rows, err := s.db.Query(
		`SELECT category, COUNT(*) FROM results WHERE run_id = ? GROUP BY category`, runID)
	if err != nil {
		return nil, fmt.Errorf("count categories: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var cat string
		var n int
		if err := rows.Scan(&cat, &n); err != nil {
			return nil, fmt.Errorf("count categories: %w", err)
		}
		out[cat] = n
	}
	return out, rows.Err()
}
