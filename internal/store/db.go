// Package store is the SQLite run ledger: every run, the jobs it executed,
// their state transitions, final counters and errors.
package store

import (
	"database/sql"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"go-pgcopy-export/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	spec TEXT,
	started_at DATETIME,
	finished_at DATETIME,
	succeeded INTEGER NOT NULL DEFAULT 0,
	failed INTEGER NOT NULL DEFAULT 0,
	rows_dispatched INTEGER NOT NULL DEFAULT 0,
	row_errors INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS jobs (
	id TEXT PRIMARY KEY,
	run_id TEXT NOT NULL REFERENCES runs(id),
	job_id TEXT NOT NULL,
	target TEXT,
	spec TEXT,
	status TEXT,
	rows_dispatched INTEGER NOT NULL DEFAULT 0,
	row_errors INTEGER NOT NULL DEFAULT 0,
	bytes_written INTEGER NOT NULL DEFAULT 0,
	output_path TEXT NOT NULL DEFAULT '',
	created_at DATETIME,
	updated_at DATETIME
);
CREATE INDEX IF NOT EXISTS jobs_run ON jobs(run_id);
CREATE TABLE IF NOT EXISTS job_errors (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	job TEXT NOT NULL REFERENCES jobs(id),
	error_message TEXT,
	created_at DATETIME
);
`

// ErrJobNotFound is returned for a job the ledger has no record of.
var ErrJobNotFound = errors.New("job not found")

// Job is one recorded job.
type Job struct {
	ID             string        `json:"id"`
	RunID          string        `json:"run_id"`
	JobID          string        `json:"job_id"`
	Target         string        `json:"target"`
	Status         string        `json:"status"`
	RowsDispatched int64         `json:"rows_dispatched"`
	RowErrors      int64         `json:"row_errors"`
	BytesWritten   int64         `json:"bytes_written"`
	OutputPath     string        `json:"output_path,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
	Spec           model.JobSpec `json:"spec"`
	Errors         []string      `json:"errors,omitempty"`
}

// Store records runs in a SQLite database. It implements pipeline.Ledger.
//
// Job IDs from the configuration repeat across runs, so every recorded job
// gets its own row ID. The Store maps the configured IDs of the current run
// to those rows.
type Store struct {
	db *sql.DB

	mu      sync.Mutex
	current map[string]string // configured job ID -> row ID
}

// Open creates or opens the ledger at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(err, "open ledger")
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "connect to ledger")
	}
	// one writer at a time, jobs record concurrently
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "create ledger tables")
	}
	return &Store{db: db, current: make(map[string]string)}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func now() time.Time { return time.Now().UTC() }

func (s *Store) rowID(jobID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.current[jobID]
	if !ok {
		return "", errors.Wrapf(ErrJobNotFound, "job %q", jobID)
	}
	return id, nil
}

// SaveRun stores a new run.
func (s *Store) SaveRun(runID string, spec model.RunSpec, startedAt time.Time) error {
	spec.Jobs = nil
	specJSON, err := json.Marshal(spec)
	if err != nil {
		return errors.Wrap(err, "encode run spec")
	}
	_, err = s.db.Exec(`INSERT INTO runs (id, spec, started_at) VALUES (?, ?, ?)`,
		runID, string(specJSON), startedAt.UTC())
	return errors.Wrapf(err, "save run %s", runID)
}

// SaveJob stores a job of run as pending.
func (s *Store) SaveJob(runID string, spec model.JobSpec) error {
	specJSON, err := json.Marshal(spec)
	if err != nil {
		return errors.Wrap(err, "encode job spec")
	}

	id := uuid.NewString()
	ts := now()
	_, err = s.db.Exec(`INSERT INTO jobs (id, run_id, job_id, target, spec, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, runID, spec.ID, spec.Target, string(specJSON), "pending", ts, ts)
	if err != nil {
		return errors.Wrapf(err, "save job %s", spec.ID)
	}

	s.mu.Lock()
	s.current[spec.ID] = id
	s.mu.Unlock()
	return nil
}

// UpdateJobStatus records a state transition.
func (s *Store) UpdateJobStatus(jobID string, state model.JobState) error {
	id, err := s.rowID(jobID)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`UPDATE jobs SET status = ?, updated_at = ? WHERE id = ?`, string(state), now(), id)
	return errors.Wrapf(err, "update job %s", jobID)
}

// SaveJobError records an error for a job
func (s *Store) SaveJobError(jobID string, err error) error {
	if err == nil {
		return nil
	}
	id, e := s.rowID(jobID)
	if e != nil {
		return e
	}
	_, e = s.db.Exec(`INSERT INTO job_errors (job, error_message, created_at) VALUES (?, ?, ?)`,
		id, err.Error(), now())
	return errors.Wrapf(e, "save error of job %s", jobID)
}

// SaveJobResult stores the final state and counters of a job.
func (s *Store) SaveJobResult(res model.JobResult) error {
	id, err := s.rowID(res.JobID)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`UPDATE jobs SET status = ?, rows_dispatched = ?, row_errors = ?,
		bytes_written = ?, output_path = ?, updated_at = ? WHERE id = ?`,
		string(res.State), res.RowsDispatched, res.RowErrors, res.BytesWritten, res.OutputPath, now(), id)
	return errors.Wrapf(err, "save result of job %s", res.JobID)
}

// FinishRun stores the totals of a run.
func (s *Store) FinishRun(summary model.RunSummary) error {
	_, err := s.db.Exec(`UPDATE runs SET finished_at = ?, succeeded = ?, failed = ?,
		rows_dispatched = ?, row_errors = ? WHERE id = ?`,
		now(), summary.Succeeded, summary.Failed, summary.RowsDispatched, summary.RowErrors, summary.RunID)
	return errors.Wrapf(err, "finish run %s", summary.RunID)
}

const jobColumns = `id, run_id, job_id, target, spec, status, rows_dispatched, row_errors,
	bytes_written, output_path, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(row scanner) (Job, error) {
	var j Job
	var specJSON string
	err := row.Scan(&j.ID, &j.RunID, &j.JobID, &j.Target, &specJSON, &j.Status,
		&j.RowsDispatched, &j.RowErrors, &j.BytesWritten, &j.OutputPath, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		return j, err
	}
	if err := json.Unmarshal([]byte(specJSON), &j.Spec); err != nil {
		return j, errors.Wrapf(err, "decode spec of job %s", j.ID)
	}
	return j, nil
}

// ListJobs returns the most recent jobs, newest first. limit <= 0 returns
// all of them.
func (s *Store) ListJobs(limit int) ([]Job, error) {
	q := `SELECT ` + jobColumns + ` FROM jobs ORDER BY created_at DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list jobs")
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, errors.Wrap(err, "list jobs")
		}
		jobs = append(jobs, j)
	}
	return jobs, errors.Wrap(rows.Err(), "list jobs")
}

// GetJob fetches one recorded job with its errors.
func (s *Store) GetJob(id string) (Job, error) {
	j, err := scanJob(s.db.QueryRow(`SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return j, errors.Wrapf(ErrJobNotFound, "job %q", id)
	}
	if err != nil {
		return j, errors.Wrapf(err, "get job %s", id)
	}

	rows, err := s.db.Query(`SELECT error_message FROM job_errors WHERE job = ? ORDER BY id`, id)
	if err != nil {
		return j, errors.Wrapf(err, "get errors of job %s", id)
	}
	defer rows.Close()
	for rows.Next() {
		var msg string
		if err := rows.Scan(&msg); err != nil {
			return j, errors.Wrapf(err, "get errors of job %s", id)
		}
		j.Errors = append(j.Errors, msg)
	}
	return j, errors.Wrapf(rows.Err(), "get errors of job %s", id)
}
