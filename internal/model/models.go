package model

import "time"

// SourceSpec describes how to reach the source database
type SourceSpec struct {
	Driver      string   `json:"driver"`                // oracle, mysql, postgres, pgx, sqlserver, sqlite3, sqlite
	DSN         string   `json:"dsn,omitempty"`         // full driver DSN, wins over the fields below
	Database    string   `json:"database,omitempty"`    // host:port/service for oracle, path for sqlite
	Username    string   `json:"username,omitempty"`
	Password    string   `json:"-"`
	FetchSize   int      `json:"fetch_size"`            // rows per round trip where the driver supports it
	LOBPrefetch int      `json:"lob_prefetch"`          // bytes of LOB data fetched with the row
	SessionSQL  []string `json:"session_sql,omitempty"` // extra statements run before the query
}

// LoaderSpec describes the target PostgreSQL server. Only the loader script
// reads it.
type LoaderSpec struct {
	Host     string `json:"host,omitempty"`
	Port     int    `json:"port,omitempty"`
	Database string `json:"database,omitempty"`
	Username string `json:"username,omitempty"`
	Password string `json:"-"`
}

// JobSpec is one table export. It is never mutated once built.
type JobSpec struct {
	ID       string     `json:"id"`
	Query    string     `json:"query"`
	Target   string     `json:"target"`   // table identifier in the COPY statement
	OutFile  string     `json:"out_file"` // output base path, without .sql.gz
	Truncate bool       `json:"truncate"`
	Source   SourceSpec `json:"source"`
	Loader   LoaderSpec `json:"loader"`
}

// FlushSpec holds the tiered flush thresholds of a job's output sink
type FlushSpec struct {
	SoftLimit int           `json:"soft_limit"` // bytes
	HardLimit int           `json:"hard_limit"` // bytes
	Wait      time.Duration `json:"wait"`
}

// RunSpec is the whole run as read from the configuration
type RunSpec struct {
	OutFile          string        `json:"out_file"` // loader script base path
	OutputDir        string        `json:"output_dir,omitempty"`
	Sessions         int           `json:"sessions"`
	Workers          int           `json:"workers"`
	QueueSize        int           `json:"queue_size"`
	JobStagger       time.Duration `json:"job_stagger"`
	ProgressInterval time.Duration `json:"progress_interval"`
	Flush            FlushSpec     `json:"flush"`
	Jobs             []JobSpec     `json:"jobs"`
}
