package scenario

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/overdrive/internal/dispatch"
	"github.com/roach88/overdrive/internal/harness"
	"github.com/roach88/overdrive/internal/result"
	"github.com/roach88/overdrive/internal/task"
	"github.com/roach88/overdrive/internal/taskerr"
)

// Options configures Run and RunAll.
type Options struct {
	// Logger receives runtime and harness debug logs. Nil discards them.
	Logger *slog.Logger

	// Queue, if set, is where delayed tasks fire. Otherwise Run creates a
	// queue named "overdrive.scenario.<name>" and closes it when done.
	Queue *dispatch.Queue

	// Timeout overrides the scenario's own timeout when positive.
	Timeout time.Duration

	// Parallel bounds RunAll concurrency. Zero or less means 4.
	Parallel int
}

// Delivery is the observed outcome of one task.
type Delivery struct {
	Task      string
	TaskID    string
	Mode      Mode
	Delay     time.Duration
	Case      Case
	Value     any      // success only
	Messages  []string // failure only, taskerr.Messages order
	Outcome   string   // result String() form
	StartSeq  int64
	FinishSeq int64
	Elapsed   time.Duration
}

// Report is the outcome of running one scenario.
type Report struct {
	Scenario   string
	Pass       bool
	Errors     []string
	Deliveries []Delivery
	Trace      []task.Event
}

func newReport(name string) *Report {
	return &Report{Scenario: name, Pass: true, Errors: []string{}}
}

// AddError records a failed check and marks the report failed.
func (r *Report) AddError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
	r.Pass = false
}

// Delivery returns the delivery for the named task.
func (r *Report) Delivery(name string) (Delivery, bool) {
	for _, d := range r.Deliveries {
		if d.Task == name {
			return d, true
		}
	}
	return Delivery{}, false
}

// Run starts every task of s on a fresh runtime, waits for all deliveries,
// and checks the expectations.
//
// Tasks start in declaration order with IDs "<name>-1", "<name>-2", ... .
// An error is returned only when the scenario cannot be executed (a task
// does not finish in time, ctx is done, a task cannot be built); failed
// expectations are reported in Report.Errors.
func Run(ctx context.Context, s *Scenario, opts Options) (*Report, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	logger = logger.With("scenario", s.Name)

	q := opts.Queue
	if q == nil {
		q = dispatch.New("overdrive.scenario."+s.Name, dispatch.WithLogger(logger))
		defer q.Close()
	}

	timeout := s.Timeout
	if opts.Timeout > 0 {
		timeout = opts.Timeout
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	rt := task.NewRuntime(
		task.WithLogger(logger),
		task.WithIDGenerator(task.NewSequentialGenerator(s.Name)),
	)

	report := newReport(s.Name)
	handles := make([]*task.Handle[any], len(s.Tasks))
	for i, spec := range s.Tasks {
		t, err := spec.Build(harness.OnQueue(q), harness.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		handles[i] = task.Start(rt, spec.Name, t)

		if spec.Mode == ModeImmediate && handles[i].State() != task.StateFinished {
			report.AddError("task %q: immediate task did not finish before Start returned", spec.Name)
		}
	}

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	for i, spec := range s.Tasks {
		h := handles[i]
		r, err := h.Await(waitCtx)
		if err != nil {
			return nil, fmt.Errorf("task %q: %w", spec.Name, err)
		}
		report.Deliveries = append(report.Deliveries, newDelivery(spec, h, r))
	}
	report.Trace = rt.Trace()

	checkExpectations(report, s.Expect)

	logger.Info("scenario finished", "pass", report.Pass, "tasks", len(s.Tasks), "errors", len(report.Errors))
	return report, nil
}

func newDelivery(spec TaskSpec, h *task.Handle[any], r result.Result[any]) Delivery {
	d := Delivery{
		Task:      spec.Name,
		TaskID:    h.ID(),
		Mode:      spec.Mode,
		Delay:     spec.Delay,
		Outcome:   r.String(),
		StartSeq:  h.StartSeq(),
		FinishSeq: h.FinishSeq(),
		Elapsed:   h.Elapsed(),
	}
	result.Match(r,
		func(v any) struct{} {
			d.Case = CaseSuccess
			d.Value = v
			return struct{}{}
		},
		func(k taskerr.Kind) struct{} {
			d.Case = CaseFailure
			d.Messages = taskerr.Messages(k)
			if d.Messages == nil {
				d.Messages = []string{}
			}
			return struct{}{}
		},
	)
	return d
}

// RunAll runs scenarios concurrently, at most opts.Parallel at a time, and
// returns their reports in input order.
//
// opts.Queue is ignored: each scenario gets its own queue so that one
// scenario's delayed work cannot hold up another's.
func RunAll(ctx context.Context, scenarios []*Scenario, opts Options) ([]*Report, error) {
	limit := opts.Parallel
	if limit <= 0 {
		limit = 4
	}
	opts.Queue = nil

	reports := make([]*Report, len(scenarios))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, s := range scenarios {
		i, s := i, s
		g.Go(func() error {
			r, err := Run(gctx, s, opts)
			if err != nil {
				return fmt.Errorf("scenario %q: %w", s.Name, err)
			}
			reports[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}
