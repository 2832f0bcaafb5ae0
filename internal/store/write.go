package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/roach88/overdrive/internal/scenario"
)

// Run is one recorded scenario execution.
type Run struct {
	ID        string
	Scenario  string
	Pass      bool
	Errors    []string
	StartedAt time.Time
}

// Delivery is one recorded task result.
type Delivery struct {
	RunID     string
	Task      string
	TaskID    string
	Mode      string
	Delay     time.Duration
	Case      string
	Outcome   string
	Value     *string // canonical JSON; nil for failures
	Messages  []string
	StartSeq  int64
	FinishSeq int64
	Elapsed   time.Duration
}

// timeLayout is fixed width so started_at sorts chronologically as TEXT.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// WriteRun inserts a run record. Duplicate IDs are silently ignored.
func (s *Store) WriteRun(ctx context.Context, run Run) error {
	return writeRun(ctx, s.db, run)
}

func writeRun(ctx context.Context, db execer, run Run) error {
	errsJSON, err := marshalStrings(run.Errors)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO runs (id, scenario, pass, errors, started_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		run.Scenario,
		run.Pass,
		errsJSON,
		run.StartedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	return nil
}

// WriteDelivery inserts a delivery record. A second delivery for the same
// (run, task) pair is silently ignored.
//
// The run referenced by RunID must exist (foreign key constraint).
func (s *Store) WriteDelivery(ctx context.Context, d Delivery) error {
	return writeDelivery(ctx, s.db, d)
}

func writeDelivery(ctx context.Context, db execer, d Delivery) error {
	msgsJSON, err := marshalStrings(d.Messages)
	if err != nil {
		return fmt.Errorf("write delivery: %w", err)
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO deliveries
		(run_id, task, task_id, mode, delay_ms, outcome_case, outcome, value, messages, start_seq, finish_seq, elapsed_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`,
		d.RunID,
		d.Task,
		d.TaskID,
		d.Mode,
		d.Delay.Milliseconds(),
		d.Case,
		d.Outcome,
		d.Value,
		msgsJSON,
		d.StartSeq,
		d.FinishSeq,
		d.Elapsed.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("write delivery: %w", err)
	}
	return nil
}

// RecordReport writes a run and all of its deliveries in one transaction.
func (s *Store) RecordReport(ctx context.Context, runID string, startedAt time.Time, r *scenario.Report) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("record report: begin: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if err = writeRun(ctx, tx, Run{
		ID:        runID,
		Scenario:  r.Scenario,
		Pass:      r.Pass,
		Errors:    r.Errors,
		StartedAt: startedAt,
	}); err != nil {
		return err
	}

	for _, sd := range r.Deliveries {
		d, convErr := deliveryFromReport(runID, sd)
		if convErr != nil {
			err = convErr
			return err
		}
		if err = writeDelivery(ctx, tx, d); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("record report: commit: %w", err)
	}
	return nil
}

func deliveryFromReport(runID string, sd scenario.Delivery) (Delivery, error) {
	var value *string
	if sd.Case == scenario.CaseSuccess {
		v, err := marshalValue(sd.Value)
		if err != nil {
			return Delivery{}, fmt.Errorf("record report: task %q: %w", sd.Task, err)
		}
		value = v
	}
	return Delivery{
		RunID:     runID,
		Task:      sd.Task,
		TaskID:    sd.TaskID,
		Mode:      string(sd.Mode),
		Delay:     sd.Delay,
		Case:      string(sd.Case),
		Outcome:   sd.Outcome,
		Value:     value,
		Messages:  sd.Messages,
		StartSeq:  sd.StartSeq,
		FinishSeq: sd.FinishSeq,
		Elapsed:   sd.Elapsed,
	}, nil
}
