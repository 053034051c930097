// Package cli implements the pgcopy-export command line.
package cli

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"go-pgcopy-export/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose   bool
	LogFormat string // "text" | "json", overrides the configuration
}

// ValidLogFormats defines the allowed log formats.
var ValidLogFormats = []string{"text", "json"}

// NewRootCommand creates the root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "pgcopy-export",
		Short: "Export database tables as gzip PostgreSQL COPY scripts",
		Long: `Export the result of SQL queries from a source database into gzip-compressed
PostgreSQL COPY scripts, one per table, plus a shell script that loads them
all with psql.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.LogFormat != "" && !isValidLogFormat(opts.LogFormat) {
				return NewExitError(ExitConfigError, fmt.Sprintf("invalid log format %q: must be one of %v", opts.LogFormat, ValidLogFormats))
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging")
	cmd.PersistentFlags().StringVar(&opts.LogFormat, "log-format", "", "log format (text|json), default from the configuration")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewScriptCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewVersionCommand())

	return cmd
}

func isValidLogFormat(format string) bool {
	for _, f := range ValidLogFormats {
		if f == format {
			return true
		}
	}
	return false
}

// newLogger builds the process logger from the configuration and the
// global flags. cfg may be nil.
func newLogger(opts *RootOptions, cfg *config.LoggingConfig, w io.Writer) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(w)

	level, format := logrus.InfoLevel, "text"
	if cfg != nil {
		if l, err := logrus.ParseLevel(cfg.Level); err == nil {
			level = l
		}
		format = cfg.Format
	}
	if opts.Verbose {
		level = logrus.DebugLevel
	}
	if opts.LogFormat != "" {
		format = opts.LogFormat
	}
	log.SetLevel(level)

	if format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log
}
