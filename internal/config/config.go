// Package config reads the run configuration of an export.
//
// The file is YAML. The flat JSON configuration files of earlier releases
// parse unchanged: every global connection key and truncate are inherited
// by each work item unless the item sets its own value.
package config

import "time"

// Config is the root of the configuration file.
type Config struct {
	// OutFile is the base path of the loader script (<outfile>.sh).
	OutFile string `yaml:"outfile"`

	// OutputDir, when set, prefixes every relative outfile.
	OutputDir string `yaml:"output_dir"`

	// Sessions is how many jobs run at the same time.
	Sessions int `yaml:"sessions"`

	// Workers is the formatting pool size of each job.
	Workers int `yaml:"workers"`

	// QueueSize bounds the in-flight rows of each job.
	QueueSize int `yaml:"queue_size"`

	JobStagger time.Duration `yaml:"job_stagger"`

	// ProgressInterval is the console progress period. Zero disables it,
	// leaving it out picks the default.
	ProgressInterval *time.Duration `yaml:"progress_interval"`

	Truncate bool `yaml:"truncate"`

	Source SourceConfig `yaml:",inline"`
	Target TargetConfig `yaml:",inline"`

	Flush   FlushConfig   `yaml:"flush"`
	Logging LoggingConfig `yaml:"logging"`

	Work []WorkConfig `yaml:"work"`
}

// SourceConfig holds the source connection settings.
type SourceConfig struct {
	Driver      string   `yaml:"driver"`
	DSN         string   `yaml:"dsn"`
	Database    string   `yaml:"oradb"`
	Username    string   `yaml:"orausername"`
	Password    string   `yaml:"orapassword"`
	FetchSize   int      `yaml:"fetch_size"`
	LOBPrefetch int      `yaml:"lob_prefetch"`
	SessionSQL  []string `yaml:"session_sql"`
}

// TargetConfig holds the PostgreSQL connection settings written into the
// loader script.
type TargetConfig struct {
	Host     string `yaml:"pghost"`
	Port     string `yaml:"pgport"`
	Database string `yaml:"pgdb"`
	Username string `yaml:"pgusername"`
	Password string `yaml:"pgpassword"`
}

// FlushConfig holds the tiered flush thresholds.
type FlushConfig struct {
	SoftLimit int           `yaml:"soft_limit"`
	HardLimit int           `yaml:"hard_limit"`
	Wait      time.Duration `yaml:"wait"`
}

// LoggingConfig selects the log level and format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text or json
}

// WorkConfig is one table to export. Empty connection fields and a missing
// truncate fall back to the global values.
type WorkConfig struct {
	ID       string `yaml:"id"`
	Query    string `yaml:"query"`
	Target   string `yaml:"target"`
	OutFile  string `yaml:"outfile"`
	Truncate *bool  `yaml:"truncate"`

	Source SourceConfig `yaml:",inline"`
	Loader TargetConfig `yaml:",inline"`
}
