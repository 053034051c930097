package config

import (
	"os"
	"strconv"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"go-pgcopy-export/pkg/utils"
)

// Load reads the configuration file at path, applies defaults and
// validates the result. Environment variables are not consulted; use
// LoadWithEnvOverrides for that.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read configuration file %q", path)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "configuration file %q", path)
	}
	return cfg, nil
}

// Parse decodes, defaults and validates a configuration document.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "parse")
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadWithEnvOverrides loads the configuration file and then applies the
// PGCOPY_* environment variables, which take precedence over the file.
func LoadWithEnvOverrides(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read configuration file %q", path)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrapf(err, "parse configuration file %q", path)
	}
	applyEnvOverrides(&cfg)
	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, errors.Wrapf(err, "configuration file %q", path)
	}
	return &cfg, nil
}

// applyEnvOverrides copies the PGCOPY_* variables into cfg. Malformed
// numbers and durations are ignored.
func applyEnvOverrides(cfg *Config) {
	if v, ok := envInt("PGCOPY_SESSIONS"); ok {
		cfg.Sessions = v
	}
	if v, ok := envInt("PGCOPY_WORKERS"); ok {
		cfg.Workers = v
	}
	if v, ok := envInt("PGCOPY_QUEUE_SIZE"); ok {
		cfg.QueueSize = v
	}
	if v := os.Getenv("PGCOPY_JOB_STAGGER"); v != "" {
		cfg.JobStagger = utils.ParseDuration(v, cfg.JobStagger)
	}
	if v := os.Getenv("PGCOPY_PROGRESS_INTERVAL"); v != "" {
		cur := DefaultProgressInterval
		if cfg.ProgressInterval != nil {
			cur = *cfg.ProgressInterval
		}
		d := utils.ParseDuration(v, cur)
		cfg.ProgressInterval = &d
	}
	if v := os.Getenv("PGCOPY_SOURCE_DSN"); v != "" {
		cfg.Source.DSN = v
	}
	if v := os.Getenv("PGCOPY_SOURCE_PASSWORD"); v != "" {
		cfg.Source.Password = v
	}
	if v := os.Getenv("PGCOPY_TARGET_PASSWORD"); v != "" {
		cfg.Target.Password = v
	}
	if v := os.Getenv("PGCOPY_OUTPUT_DIR"); v != "" {
		cfg.OutputDir = v
	}
	if v := os.Getenv("PGCOPY_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

func envInt(name string) (int, bool) {
	v := os.Getenv(name)
	if v == "" {
		return 0, false
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return i, true
}
