package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/overdrive/internal/scenario"
	"github.com/roach88/overdrive/internal/store"
	"github.com/roach88/overdrive/internal/task"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Update   bool          // regenerate golden files
	Filter   string        // scenario filter (glob pattern)
	Database string        // optional delivery log
	Parallel int           // max scenarios in flight
	Timeout  time.Duration // per-scenario override
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name   string   `json:"name"`
	File   string   `json:"file"`
	Pass   bool     `json:"pass"`
	RunID  string   `json:"run_id,omitempty"`
	Golden string   `json:"golden,omitempty"` // match, mismatch, missing or updated
	Errors []string `json:"errors,omitempty"`
}

// RunResult holds the overall run result.
type RunResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenarios-dir>",
		Short: "Run harness scenarios",
		Long: `Run every scenario fixture in a directory.

Each scenario's snapshot is compared with <scenarios-dir>/golden/<name>.golden
when that file exists. Use --update to (re)write golden files.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  overdrive run ./testdata/scenarios
  overdrive run ./testdata/scenarios --filter "delayed_*"
  overdrive run ./testdata/scenarios --update
  overdrive run ./testdata/scenarios --db ./overdrive.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarios(cmd.Context(), opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")
	cmd.Flags().StringVar(&opts.Database, "db", "", "record deliveries to this SQLite database")
	cmd.Flags().IntVarP(&opts.Parallel, "parallel", "p", 4, "maximum scenarios run concurrently")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 0, "per-task timeout (overrides scenario timeout)")

	return cmd
}

func runScenarios(ctx context.Context, opts *RunOptions, dir string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return NewExitError(ExitCommandError, fmt.Sprintf("scenarios directory not found: %s", dir))
	}

	files, err := findScenarioFiles(dir, opts.Filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to find scenarios", err)
	}

	if len(files) == 0 {
		if opts.Format == "json" {
			return formatter.Respond(RunResult{Scenarios: []ScenarioResult{}}, nil)
		}
		fmt.Fprintln(formatter.Writer, "No scenarios found.")
		return nil
	}

	var st *store.Store
	if opts.Database != "" {
		st, err = store.Open(opts.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer st.Close()
	}

	results := make([]ScenarioResult, len(files))
	g := new(errgroup.Group)
	parallel := opts.Parallel
	if parallel <= 0 {
		parallel = 1
	}
	g.SetLimit(parallel)

	ids := task.UUIDv7Generator{}
	goldenDir := filepath.Join(dir, "golden")
	for i, file := range files {
		i, file := i, file
		g.Go(func() error {
			results[i] = runOne(ctx, opts, file, goldenDir, st, ids.Generate(), logger)
			return nil
		})
	}
	_ = g.Wait()

	result := RunResult{Scenarios: results, Total: len(results)}
	for _, r := range results {
		if r.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	if opts.Format == "json" {
		return outputRunJSON(formatter, result)
	}
	return outputRunText(formatter, result)
}

// runOne loads, runs, golden-checks and records one scenario. Every failure
// is folded into the returned result.
func runOne(ctx context.Context, opts *RunOptions, file, goldenDir string, st *store.Store, runID string, logger *slog.Logger) ScenarioResult {
	res := ScenarioResult{Name: filepath.Base(file), File: file}

	s, err := scenario.LoadScenario(file)
	if err != nil {
		res.Errors = []string{fmt.Sprintf("failed to load scenario: %v", err)}
		return res
	}
	res.Name = s.Name

	startedAt := time.Now()
	report, err := scenario.Run(ctx, s, scenario.Options{Timeout: opts.Timeout, Logger: logger})
	if err != nil {
		res.Errors = []string{fmt.Sprintf("execution failed: %v", err)}
		return res
	}
	res.Pass = report.Pass
	res.Errors = append(res.Errors, report.Errors...)

	switch {
	case opts.Update:
		if err := scenario.WriteGolden(goldenDir, report); err != nil {
			res.Pass = false
			res.Errors = append(res.Errors, fmt.Sprintf("failed to update golden file: %v", err))
		} else {
			res.Golden = "updated"
		}
	default:
		match, _, want, err := scenario.CompareGolden(goldenDir, report)
		switch {
		case err != nil:
			res.Pass = false
			res.Errors = append(res.Errors, fmt.Sprintf("golden comparison failed: %v", err))
		case want == nil:
			// No golden file: expectations alone decide.
			res.Golden = "missing"
		case !match:
			res.Pass = false
			res.Golden = "mismatch"
			res.Errors = append(res.Errors, "snapshot does not match golden file (run with --update to regenerate)")
		default:
			res.Golden = "match"
		}
	}

	if st != nil {
		if err := st.RecordReport(ctx, runID, startedAt, report); err != nil {
			res.Pass = false
			res.Errors = append(res.Errors, fmt.Sprintf("failed to record run: %v", err))
		} else {
			res.RunID = runID
		}
	}

	logger.Debug("scenario done", "scenario", s.Name, "pass", res.Pass, "golden", res.Golden)
	return res
}

func outputRunJSON(formatter *OutputFormatter, result RunResult) error {
	var cliErr *CLIError
	if result.Failed > 0 {
		cliErr = &CLIError{
			Code:    ErrCodeScenarioFailed,
			Message: fmt.Sprintf("%d scenario(s) failed", result.Failed),
		}
	}
	if err := formatter.Respond(result, cliErr); err != nil {
		return err
	}
	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}
	return nil
}

func outputRunText(formatter *OutputFormatter, result RunResult) error {
	w := formatter.Writer

	for _, r := range result.Scenarios {
		mark := "✓"
		if !r.Pass {
			mark = "✗"
		}
		switch r.Golden {
		case "updated":
			fmt.Fprintf(w, "%s %s (golden updated)\n", mark, r.Name)
		default:
			fmt.Fprintf(w, "%s %s\n", mark, r.Name)
		}
		for _, e := range r.Errors {
			fmt.Fprintf(w, "  %s\n", e)
		}
		if r.RunID != "" {
			formatter.VerboseLog("%s recorded as run %s", r.Name, r.RunID)
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}

	fmt.Fprintln(w, "✓ All scenarios passed")
	return nil
}
