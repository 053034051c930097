package model

import "time"

// ErrorDetail is one recorded failure with its context
type ErrorDetail struct {
	Timestamp time.Time `json:"timestamp"`
	Kind      string    `json:"kind"` // connection, lifecycle, sink_write, unsupported_type
	Message   string    `json:"message"`
	RowSeq    int64     `json:"row_seq,omitempty"`
}

// JobSnapshot is the live view of one job as served by the status API
type JobSnapshot struct {
	JobID          string        `json:"job_id"`
	Target         string        `json:"target"`
	State          JobState      `json:"state"`
	StartTime      time.Time     `json:"start_time"`
	EndTime        *time.Time    `json:"end_time,omitempty"`
	Duration       time.Duration `json:"duration"`
	RowsDispatched int64         `json:"rows_dispatched"`
	RowErrors      int64         `json:"row_errors"`
	RowsPerSecond  float64       `json:"rows_per_second"`
	Errors         []ErrorDetail `json:"errors"`
}
