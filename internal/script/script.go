// Package script writes the shell script that loads a run's exports into
// PostgreSQL with psql.
package script

import (
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"go-pgcopy-export/internal/model"
	"go-pgcopy-export/pkg/utils"
)

// Build returns the loader script for spec: one line per job, in job
// order, piping the job's final file into psql.
func Build(spec model.RunSpec) string {
	var sb strings.Builder
	sb.WriteString("#!/usr/bin/env sh\n")
	for _, job := range spec.Jobs {
		writeJob(&sb, job)
	}
	return sb.String()
}

func writeJob(sb *strings.Builder, job model.JobSpec) {
	l := job.Loader
	sb.WriteString("gunzip -c ")
	sb.WriteString(quote(utils.FinalPath(job.OutFile)))
	sb.WriteString(" | ")
	if l.Password != "" {
		sb.WriteString("PGPASSWORD=")
		sb.WriteString(quote(l.Password))
		sb.WriteByte(' ')
	}
	sb.WriteString("psql --quiet")
	flag(sb, "host", l.Host)
	flag(sb, "dbname", l.Database)
	if l.Port > 0 {
		flag(sb, "port", strconv.Itoa(l.Port))
	}
	flag(sb, "username", l.Username)
	sb.WriteByte('\n')
}

func flag(sb *strings.Builder, name, value string) {
	if value == "" {
		return
	}
	sb.WriteString(" --")
	sb.WriteString(name)
	sb.WriteByte('=')
	sb.WriteString(quote(value))
}

// quote single-quotes s for a POSIX shell.
func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// Write renders the script for spec into w.
func Write(w io.Writer, spec model.RunSpec) error {
	_, err := io.WriteString(w, Build(spec))
	return errors.Wrap(err, "write loader script")
}

// WriteFile writes the script for spec to <spec.OutFile>.sh, executable,
// and returns its path.
func WriteFile(spec model.RunSpec) (string, error) {
	path := utils.ScriptPath(spec.OutFile)
	if err := utils.EnsureParentDir(path); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(Build(spec)), 0o755); err != nil {
		return "", errors.Wrap(err, "write loader script")
	}
	// WriteFile keeps the mode of an existing file
	if err := os.Chmod(path, 0o755); err != nil {
		return "", errors.Wrap(err, "make loader script executable")
	}
	return path, nil
}
