package config

import (
	"go-pgcopy-export/internal/pipeline"
	"go-pgcopy-export/internal/source"
)

// Default configuration values.
const (
	DefaultOutFile          = "work"
	DefaultDriver           = source.DriverOracle
	DefaultSessions         = pipeline.DefaultSessions
	DefaultWorkers          = pipeline.DefaultWorkers
	DefaultQueueSize        = pipeline.DefaultQueueSize
	DefaultJobStagger       = pipeline.DefaultJobStagger
	DefaultProgressInterval = pipeline.DefaultProgressInterval
	DefaultFetchSize        = 100
	DefaultLOBPrefetch      = 5000
	DefaultSoftLimit        = pipeline.DefaultSoftLimit
	DefaultHardLimit        = pipeline.DefaultHardLimit
	DefaultFlushWait        = pipeline.DefaultFlushWait
	DefaultLogLevel         = "info"
	DefaultLogFormat        = "text"
)

// ApplyDefaults fills every unset field of cfg. Work items are left alone;
// they inherit from the global values when the run spec is built.
func ApplyDefaults(cfg *Config) {
	if cfg.OutFile == "" {
		cfg.OutFile = DefaultOutFile
	}
	if cfg.Sessions == 0 {
		cfg.Sessions = DefaultSessions
	}
	if cfg.Workers == 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.QueueSize == 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	if cfg.JobStagger == 0 {
		cfg.JobStagger = DefaultJobStagger
	}
	if cfg.ProgressInterval == nil {
		d := DefaultProgressInterval
		cfg.ProgressInterval = &d
	}
	if cfg.Source.Driver == "" {
		cfg.Source.Driver = DefaultDriver
	}
	if cfg.Source.FetchSize == 0 {
		cfg.Source.FetchSize = DefaultFetchSize
	}
	if cfg.Source.LOBPrefetch == 0 {
		cfg.Source.LOBPrefetch = DefaultLOBPrefetch
	}
	if cfg.Flush.SoftLimit == 0 {
		cfg.Flush.SoftLimit = DefaultSoftLimit
	}
	if cfg.Flush.HardLimit == 0 {
		cfg.Flush.HardLimit = DefaultHardLimit
	}
	if cfg.Flush.Wait == 0 {
		cfg.Flush.Wait = DefaultFlushWait
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLogLevel
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = DefaultLogFormat
	}
}
