package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"go-pgcopy-export/internal/script"
	"go-pgcopy-export/internal/store"
)

// Version is set at build time with -ldflags "-X go-pgcopy-export/internal/cli.Version=...".
var Version = "dev"

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <config>",
		Short: "Check a configuration without connecting to any database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(args[0])
			if err != nil {
				return err
			}
			spec := cfg.RunSpec()
			out := cmd.OutOrStdout()
			if rootOpts.Verbose {
				for _, job := range spec.Jobs {
					fmt.Fprintf(out, "%s\t%s\t%s -> %s\n", job.ID, job.Source.Driver, job.Target, job.OutFile)
				}
			}
			fmt.Fprintf(out, "configuration ok: %d job(s), %d session(s)\n", len(spec.Jobs), spec.Sessions)
			return nil
		},
	}
}

// NewScriptCommand creates the script command.
func NewScriptCommand(_ *RootOptions) *cobra.Command {
	var toStdout bool

	cmd := &cobra.Command{
		Use:   "script <config>",
		Short: "Write the loader script without exporting anything",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(args[0])
			if err != nil {
				return err
			}
			spec := cfg.RunSpec()
			if toStdout {
				return script.Write(cmd.OutOrStdout(), spec)
			}
			path, err := script.WriteFile(spec)
			if err != nil {
				return WrapExitError(ExitFailure, "write loader script", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&toStdout, "stdout", false, "print the script instead of writing it")
	return cmd
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(_ *RootOptions) *cobra.Command {
	var ledger string
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List the jobs recorded in a run ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := store.Open(ledger)
			if err != nil {
				return WrapExitError(ExitFailure, "open ledger", err)
			}
			defer st.Close()

			jobs, err := st.ListJobs(limit)
			if err != nil {
				return WrapExitError(ExitFailure, "read ledger", err)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "CREATED\tRUN\tJOB\tTARGET\tSTATUS\tROWS\tERRORS")
			for _, j := range jobs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%d\n",
					j.CreatedAt.Local().Format(time.DateTime), shortID(j.RunID), j.JobID, j.Target, j.Status,
					j.RowsDispatched, j.RowErrors)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&ledger, "ledger", "", "SQLite ledger file written by run --ledger")
	cmd.Flags().IntVar(&limit, "limit", 50, "number of most recent jobs to list, 0 for all")
	_ = cmd.MarkFlagRequired("ledger")
	return cmd
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// NewVersionCommand creates the version command.
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "pgcopy-export %s\n", Version)
		},
	}
}
