package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/timeline/internal/ir"
	"github.com/roach88/timeline/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	RunID    string
	Kind     string // optional - filter to one command kind
	Verify   bool
}

// TraceIssue is one integrity problem in a stored trace.
type TraceIssue struct {
	Seq     int64  `json:"seq"`
	Message string `json:"message"`
}

// TraceResult holds the trace of one run.
type TraceResult struct {
	Run     ir.Run           `json:"run"`
	Records []ir.TraceRecord `json:"records"`
	Failed  int              `json:"failed"`

	// Verified is set only with --verify.
	Verified *bool        `json:"verified,omitempty"`
	Issues   []TraceIssue `json:"issues,omitempty"`
}

// RunList holds the runs stored in a database.
type RunList struct {
	SchemaVersion int      `json:"schema_version"`
	Runs          []ir.Run `json:"runs"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Inspect recorded runs",
		Long: `Inspect the trace store written by "timeline run".

Without --run, lists the stored runs. With --run, prints the run's trace
records in seq order, optionally filtered by command kind. --verify
re-hashes every record and checks that seqs are contiguous.

Examples:
  timeline trace --db ./timeline.db
  timeline trace --db ./timeline.db --run 0190f... --kind tick
  timeline trace --db ./timeline.db --run 0190f... --verify --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run id to show")
	cmd.Flags().StringVar(&opts.Kind, "kind", "", "only show records of this command kind")
	cmd.Flags().BoolVar(&opts.Verify, "verify", false, "check record hashes and seq continuity")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	ctx := commandContext(cmd)

	// A missing file would otherwise be created empty by the driver.
	if _, err := os.Stat(opts.Database); os.IsNotExist(err) {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("database not found: %s", opts.Database), nil)
	}
	st, err := store.Open(opts.Database)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	if opts.RunID == "" {
		runs, err := st.ListRuns(ctx)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to list runs", err)
		}
		version, err := st.SchemaVersion(ctx)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to read schema version", err)
		}
		list := RunList{SchemaVersion: version, Runs: runs}
		if formatter.IsJSON() {
			return formatter.Success(list)
		}
		outputRunsText(formatter.Writer, list)
		return nil
	}

	run, err := st.ReadRun(ctx, opts.RunID)
	if errors.Is(err, store.ErrNotFound) {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("run not found: %s", opts.RunID), nil)
	}
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to read run", err)
	}

	var records []ir.TraceRecord
	if opts.Kind != "" {
		records, err = st.ReadTraceKind(ctx, run.ID, opts.Kind)
	} else {
		records, err = st.ReadTrace(ctx, run.ID)
	}
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to read trace", err)
	}

	result := TraceResult{Run: run, Records: records}
	for _, rec := range records {
		if rec.Error != "" {
			result.Failed++
		}
	}

	if opts.Verify {
		issues, err := st.VerifyTrace(ctx, run.ID)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to verify trace", err)
		}
		ok := len(issues) == 0
		result.Verified = &ok
		for _, issue := range issues {
			result.Issues = append(result.Issues, TraceIssue{Seq: issue.Seq, Message: issue.Message})
		}
	}

	if formatter.IsJSON() {
		if result.Verified == nil || *result.Verified {
			return formatter.Success(result)
		}
		if err := formatter.Failure(ErrCodeStore, "trace verification failed", result); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("trace verification found %d issue(s)", len(result.Issues)))
	}
	return outputTraceText(formatter.Writer, result)
}

func outputRunsText(w io.Writer, list RunList) {
	if len(list.Runs) == 0 {
		fmt.Fprintln(w, "No runs found.")
		return
	}
	fmt.Fprintf(w, "%d run(s), schema v%d\n", len(list.Runs), list.SchemaVersion)
	for _, run := range list.Runs {
		fmt.Fprintf(w, "%s  %s  (document %s, engine %s)\n", run.ID, run.Name, shortHash(run.DocumentHash), run.EngineVersion)
	}
}

func outputTraceText(w io.Writer, result TraceResult) error {
	fmt.Fprintf(w, "Run %s (%s)\n", result.Run.ID, result.Run.Name)
	fmt.Fprintln(w, strings.Repeat("-", 40))
	for _, rec := range result.Records {
		line := fmt.Sprintf("%4d  %-10s", rec.Seq, rec.Kind)
		if rec.Target != "" {
			line += " " + rec.Target
		}
		fmt.Fprintln(w, line)
		if rec.Error != "" {
			fmt.Fprintf(w, "      error: %s\n", rec.Error)
		} else if len(rec.Detail) > 0 {
			detail, err := ir.MarshalCanonical(rec.Detail)
			if err == nil {
				fmt.Fprintf(w, "      detail: %s\n", detail)
			}
		}
		fmt.Fprintf(w, "      running: %v  waiting: %v\n", rec.Running, rec.Waiting)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%d record(s), %d failed\n", len(result.Records), result.Failed)

	if result.Verified == nil {
		return nil
	}
	if *result.Verified {
		fmt.Fprintln(w, "✓ Trace verified")
		return nil
	}
	fmt.Fprintf(w, "✗ Trace verification found %d issue(s)\n", len(result.Issues))
	for _, issue := range result.Issues {
		fmt.Fprintf(w, "  seq %d: %s\n", issue.Seq, issue.Message)
	}
	return NewExitError(ExitFailure, fmt.Sprintf("trace verification found %d issue(s)", len(result.Issues)))
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
