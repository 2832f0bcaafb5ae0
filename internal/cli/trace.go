package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/overdrive/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	RunID    string // optional - show deliveries of one run
	Scenario string // optional - filter run list by scenario name
}

// RunSummary is one row of the run list.
type RunSummary struct {
	ID        string    `json:"id"`
	Scenario  string    `json:"scenario"`
	Pass      bool      `json:"pass"`
	Errors    []string  `json:"errors,omitempty"`
	StartedAt time.Time `json:"started_at"`
}

// DeliveryEvent is one recorded task delivery.
type DeliveryEvent struct {
	Task      string   `json:"task"`
	TaskID    string   `json:"task_id"`
	Mode      string   `json:"mode"`
	DelayMS   int64    `json:"delay_ms,omitempty"`
	Case      string   `json:"case"`
	Outcome   string   `json:"outcome"`
	Value     string   `json:"value,omitempty"` // canonical JSON
	Messages  []string `json:"messages,omitempty"`
	StartSeq  int64    `json:"start_seq"`
	FinishSeq int64    `json:"finish_seq"`
	ElapsedMS int64    `json:"elapsed_ms"`
}

// TraceResult holds the trace output for a single run.
type TraceResult struct {
	Run        RunSummary      `json:"run"`
	Deliveries []DeliveryEvent `json:"deliveries"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show recorded scenario runs",
		Long: `Show scenario runs recorded with "overdrive run --db".

Without --run, lists every recorded run. With --run, shows each task
delivery of that run in start order.

Examples:
  overdrive trace --db ./overdrive.db
  overdrive trace --db ./overdrive.db --scenario combined_failure
  overdrive trace --db ./overdrive.db --run 0190f5c2-... --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run ID to trace")
	cmd.Flags().StringVar(&opts.Scenario, "scenario", "", "only list runs of this scenario")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd)

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	if opts.RunID == "" {
		return listRuns(ctx, st, opts, formatter)
	}

	run, err := st.GetRun(ctx, opts.RunID)
	if errors.Is(err, store.ErrRunNotFound) {
		_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("run not found: %s", opts.RunID), nil)
		return WrapExitError(ExitCommandError, "run not found", err)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}

	deliveries, err := st.ReadDeliveries(ctx, opts.RunID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read deliveries", err)
	}

	result := TraceResult{Run: toRunSummary(run), Deliveries: make([]DeliveryEvent, len(deliveries))}
	for i, d := range deliveries {
		result.Deliveries[i] = toDeliveryEvent(d)
	}

	if opts.Format == "json" {
		return formatter.Respond(result, nil)
	}
	outputTraceText(formatter.Writer, result, opts.Verbose)
	return nil
}

func listRuns(ctx context.Context, st *store.Store, opts *TraceOptions, formatter *OutputFormatter) error {
	runs, err := st.ListRuns(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}

	summaries := []RunSummary{}
	for _, r := range runs {
		if opts.Scenario != "" && r.Scenario != opts.Scenario {
			continue
		}
		summaries = append(summaries, toRunSummary(r))
	}

	if opts.Format == "json" {
		return formatter.Respond(summaries, nil)
	}

	w := formatter.Writer
	if len(summaries) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}
	for _, r := range summaries {
		fmt.Fprintf(w, "%s  %s  %s  %s\n",
			r.StartedAt.Format(time.RFC3339),
			passMark(r.Pass),
			r.ID,
			r.Scenario)
	}
	return nil
}

func toRunSummary(r store.Run) RunSummary {
	return RunSummary{
		ID:        r.ID,
		Scenario:  r.Scenario,
		Pass:      r.Pass,
		Errors:    r.Errors,
		StartedAt: r.StartedAt,
	}
}

func toDeliveryEvent(d store.Delivery) DeliveryEvent {
	ev := DeliveryEvent{
		Task:      d.Task,
		TaskID:    d.TaskID,
		Mode:      d.Mode,
		DelayMS:   d.Delay.Milliseconds(),
		Case:      d.Case,
		Outcome:   d.Outcome,
		Messages:  d.Messages,
		StartSeq:  d.StartSeq,
		FinishSeq: d.FinishSeq,
		ElapsedMS: d.Elapsed.Milliseconds(),
	}
	if d.Value != nil {
		ev.Value = *d.Value
	}
	return ev
}

func outputTraceText(w io.Writer, result TraceResult, verbose bool) {
	fmt.Fprintf(w, "Run: %s\n", result.Run.ID)
	fmt.Fprintf(w, "Scenario: %s\n", result.Run.Scenario)
	fmt.Fprintf(w, "Status: %s\n", passStatus(result.Run.Pass))
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Deliveries ===")
	if len(result.Deliveries) == 0 {
		fmt.Fprintln(w, "  (no deliveries)")
	}
	for _, d := range result.Deliveries {
		fmt.Fprintf(w, "  [%d→%d] %s %s %s\n", d.StartSeq, d.FinishSeq, d.Task, d.Mode, d.Case)
		switch d.Case {
		case "success":
			fmt.Fprintf(w, "       Value: %s\n", d.Value)
		case "failure":
			fmt.Fprintf(w, "       Messages: [%s]\n", strings.Join(d.Messages, ", "))
		}
		if verbose {
			fmt.Fprintf(w, "       ID: %s  Delay: %dms  Elapsed: %dms\n", d.TaskID, d.DelayMS, d.ElapsedMS)
		}
	}

	if len(result.Run.Errors) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "=== Errors ===")
		for _, e := range result.Run.Errors {
			fmt.Fprintf(w, "  %s\n", e)
		}
	}
}

func passMark(pass bool) string {
	if pass {
		return "✓"
	}
	return "✗"
}

func passStatus(pass bool) string {
	if pass {
		return "Passed"
	}
	return "Failed"
}
