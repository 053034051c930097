package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"go-pgcopy-export/internal/source"
)

// FieldError is a validation failure of one configuration field.
type FieldError struct {
	// Field is the dotted path of the field, e.g. "work[2].query".
	Field   string
	Message string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError collects every FieldError found in a configuration.
type ValidationError struct {
	Errors []FieldError
}

func (e ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "configuration validation failed with %d errors:\n", len(e.Errors))
	for _, err := range e.Errors {
		fmt.Fprintf(&sb, "  - %s\n", err.Error())
	}
	return sb.String()
}

// Validate checks cfg, defaults already applied, and returns a
// ValidationError listing every problem, or nil.
func Validate(cfg *Config) error {
	var errs []FieldError
	add := func(field, format string, args ...any) {
		errs = append(errs, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if cfg.OutFile == "" {
		add("outfile", "is required")
	}
	if cfg.Sessions < 1 {
		add("sessions", "must be at least 1, got %d", cfg.Sessions)
	}
	if cfg.Workers < 1 {
		add("workers", "must be at least 1, got %d", cfg.Workers)
	}
	if cfg.QueueSize < 1 {
		add("queue_size", "must be at least 1, got %d", cfg.QueueSize)
	}
	if cfg.JobStagger < 0 {
		add("job_stagger", "must not be negative")
	}
	if cfg.ProgressInterval != nil && *cfg.ProgressInterval < 0 {
		add("progress_interval", "must not be negative")
	}

	if cfg.Flush.SoftLimit < 1 {
		add("flush.soft_limit", "must be positive, got %d", cfg.Flush.SoftLimit)
	}
	if cfg.Flush.HardLimit <= cfg.Flush.SoftLimit {
		add("flush.hard_limit", "must be greater than flush.soft_limit (%d), got %d", cfg.Flush.SoftLimit, cfg.Flush.HardLimit)
	}
	if cfg.Flush.Wait < 0 {
		add("flush.wait", "must not be negative")
	}

	if _, err := logrus.ParseLevel(cfg.Logging.Level); err != nil {
		add("logging.level", "unknown level %q", cfg.Logging.Level)
	}
	switch cfg.Logging.Format {
	case "text", "json":
	default:
		add("logging.format", "must be text or json, got %q", cfg.Logging.Format)
	}

	if len(cfg.Work) == 0 {
		add("work", "at least one work item is required")
	}

	ids := make(map[string]int)
	outFiles := make(map[string]int)
	for i, w := range cfg.Work {
		field := fmt.Sprintf("work[%d]", i)
		if strings.TrimSpace(w.Query) == "" {
			add(field+".query", "is required")
		}
		if strings.TrimSpace(w.Target) == "" {
			add(field+".target", "is required")
		}
		if w.OutFile == "" {
			add(field+".outfile", "is required")
		} else if prev, dup := outFiles[w.OutFile]; dup {
			add(field+".outfile", "%q is already used by work[%d]", w.OutFile, prev)
		} else {
			outFiles[w.OutFile] = i
		}
		if w.ID != "" {
			if prev, dup := ids[w.ID]; dup {
				add(field+".id", "%q is already used by work[%d]", w.ID, prev)
			} else {
				ids[w.ID] = i
			}
		}

		src := cfg.sourceFor(w)
		if !source.Supported(src.Driver) {
			add(field+".driver", "unsupported driver %q, expected one of %s", src.Driver, strings.Join(source.Drivers(), ", "))
		}
		if src.DSN == "" && src.Database == "" {
			add(field+".oradb", "a database or dsn is required")
		}
		if port := cfg.loaderFor(w).Port; port != "" {
			if n, err := strconv.Atoi(port); err != nil || n < 1 || n > 65535 {
				add(field+".pgport", "invalid port %q", port)
			}
		}
	}

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}
