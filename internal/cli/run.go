package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"go-pgcopy-export/internal/api"
	"go-pgcopy-export/internal/api/handler"
	"go-pgcopy-export/internal/config"
	"go-pgcopy-export/internal/model"
	"go-pgcopy-export/internal/pipeline"
	"go-pgcopy-export/internal/script"
	"go-pgcopy-export/internal/source"
	"go-pgcopy-export/internal/store"
	"go-pgcopy-export/pkg/utils"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	Listen   string
	Ledger   string
	NoScript bool
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run <config>",
		Short: "Export every work item of a configuration",
		Long: `Export every work item of the configuration file. Up to "sessions" tables are
exported at the same time. Each finished export is published as
<outfile>.sql.gz; a failed one leaves <outfile>.sql.gz.work behind.

Exits with code 3 when at least one job failed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd.Context(), rootOpts, opts, args[0], cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringVar(&opts.Listen, "listen", "", "serve status, metrics and swagger on this address (e.g. :9090)")
	cmd.Flags().StringVar(&opts.Ledger, "ledger", "", "record the run in this SQLite file")
	cmd.Flags().BoolVar(&opts.NoScript, "no-script", false, "do not write the loader script")

	return cmd
}

func runExport(ctx context.Context, rootOpts *RootOptions, opts *RunOptions, path string, stdout, stderr io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig(path)
	if err != nil {
		return err
	}
	log := newLogger(rootOpts, &cfg.Logging, stderr)
	spec := cfg.RunSpec()

	if err := utils.NewOutputManager(spec.OutputDir).EnsureOutputDirExists(); err != nil {
		return WrapExitError(ExitFailure, "prepare output directory", err)
	}

	runID := uuid.NewString()
	metrics := pipeline.NewMetrics(nil)
	tracker := pipeline.NewRunTracker(runID, nil)

	var ledger pipeline.Ledger
	var history handler.History
	if opts.Ledger != "" {
		st, err := store.Open(opts.Ledger)
		if err != nil {
			return WrapExitError(ExitFailure, "open ledger", err)
		}
		defer st.Close()
		ledger, history = st, st
	}

	if opts.Listen != "" {
		srv, err := api.NewRouter(api.Options{
			RunID:    runID,
			Tracker:  tracker,
			History:  history,
			Registry: metrics.Registry(),
			Log:      log,
		}).Serve(opts.Listen)
		if err != nil {
			return WrapExitError(ExitFailure, "start status server", err)
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(sctx); err != nil {
				log.WithError(err).Warn("stopping status server")
			}
		}()
	}

	if !opts.NoScript {
		scriptPath, err := script.WriteFile(spec)
		if err != nil {
			return WrapExitError(ExitFailure, "write loader script", err)
		}
		log.WithField("path", scriptPath).Info("loader script written")
	}

	var progress io.Writer
	if spec.ProgressInterval > 0 {
		progress = stderr
	}
	runner := pipeline.NewRunner(spec, source.SQLOpener{Log: log}, pipeline.RunnerOptions{
		RunID:    runID,
		Log:      log,
		Metrics:  metrics,
		Tracker:  tracker,
		Ledger:   ledger,
		Progress: progress,
	})
	summary := runner.Run(ctx)

	printSummary(stdout, summary)
	if summary.Failed > 0 {
		return NewExitError(ExitJobsFailed, fmt.Sprintf("%d of %d job(s) failed", summary.Failed, len(summary.Jobs)))
	}
	return nil
}

func printSummary(w io.Writer, summary model.RunSummary) {
	for _, res := range summary.Jobs {
		status := string(res.State)
		if res.Err != nil {
			status = fmt.Sprintf("%s (%v)", status, res.Err)
		}
		fmt.Fprintf(w, "%-30s %12d rows %6d errors %s  %s\n",
			res.Target, res.RowsDispatched, res.RowErrors, utils.FormatElapsed(res.Elapsed), status)
	}
	fmt.Fprintf(w, "--- %d succeeded, %d failed, %d rows in %s ---\n",
		summary.Succeeded, summary.Failed, summary.RowsDispatched, utils.FormatElapsed(summary.Elapsed))
}

// loadConfig loads and validates the configuration at path.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.LoadWithEnvOverrides(path)
	if err != nil {
		return nil, WrapExitError(ExitConfigError, "invalid configuration", err)
	}
	return cfg, nil
}
