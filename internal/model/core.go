package model

import "time"

// JobState is a step in a job's lifecycle
type JobState string

const (
	StateInit              JobState = "init"
	StateConnected         JobState = "connected"
	StateSessionConfigured JobState = "session_configured"
	StateStreaming         JobState = "streaming"
	StateFinalizing        JobState = "finalizing"
	StateDone              JobState = "done"
	StateFailed            JobState = "failed"
)

// Terminal reports whether no further transition can follow s.
func (s JobState) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// JobResult is what a finished job reports back to the runner
type JobResult struct {
	JobID          string        `json:"job_id"`
	Target         string        `json:"target"`
	State          JobState      `json:"state"`
	RowsDispatched int64         `json:"rows_dispatched"`
	RowErrors      int64         `json:"row_errors"`
	BytesWritten   int64         `json:"bytes_written"` // uncompressed
	Elapsed        time.Duration `json:"elapsed"`
	RowsPerSecond  int64         `json:"rows_per_second"`
	OutputPath     string        `json:"output_path,omitempty"` // set once the file is published
	Err            error         `json:"-"`
}

// Failed reports whether the job ended in the failed state.
func (r JobResult) Failed() bool {
	return r.State == StateFailed
}

// RunSummary aggregates the results of every job in a run
type RunSummary struct {
	RunID          string        `json:"run_id"`
	Jobs           []JobResult   `json:"jobs"`
	RowsDispatched int64         `json:"rows_dispatched"`
	RowErrors      int64         `json:"row_errors"`
	Succeeded      int           `json:"succeeded"`
	Failed         int           `json:"failed"`
	Elapsed        time.Duration `json:"elapsed"`
}

// Add folds one job result into the summary.
func (s *RunSummary) Add(r JobResult) {
	s.Jobs = append(s.Jobs, r)
	s.RowsDispatched += r.RowsDispatched
	s.RowErrors += r.RowErrors
	if r.Failed() {
		s.Failed++
	} else {
		s.Succeeded++
	}
}
