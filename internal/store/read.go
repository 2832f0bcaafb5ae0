package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrRunNotFound is returned by GetRun for an unknown run ID.
var ErrRunNotFound = errors.New("run not found")

// ListRuns returns every recorded run, oldest first.
// Ties on started_at are broken by id so the order is stable.
//
// Returns an empty slice (not nil) if the log is empty.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, scenario, pass, errors, started_at
		FROM runs
		ORDER BY started_at ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// GetRun returns one run by ID.
func (s *Store) GetRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, scenario, pass, errors, started_at
		FROM runs
		WHERE id = ?
	`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return run, err
}

// ReadDeliveries returns the deliveries of a run ordered by start_seq, then
// task name.
//
// Returns an empty slice (not nil) if the run has no deliveries.
func (s *Store) ReadDeliveries(ctx context.Context, runID string) ([]Delivery, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, task, task_id, mode, delay_ms, outcome_case, outcome, value, messages, start_seq, finish_seq, elapsed_ms
		FROM deliveries
		WHERE run_id = ?
		ORDER BY start_seq ASC, task COLLATE BINARY ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query deliveries: %w", err)
	}
	defer rows.Close()

	out := []Delivery{}
	for rows.Next() {
		var (
			d         Delivery
			delayMS   int64
			elapsedMS int64
			value     sql.NullString
			msgsJSON  string
		)
		if err := rows.Scan(
			&d.RunID, &d.Task, &d.TaskID, &d.Mode, &delayMS,
			&d.Case, &d.Outcome, &value, &msgsJSON,
			&d.StartSeq, &d.FinishSeq, &elapsedMS,
		); err != nil {
			return nil, fmt.Errorf("scan delivery: %w", err)
		}
		d.Delay = time.Duration(delayMS) * time.Millisecond
		d.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		if value.Valid {
			v := value.String
			d.Value = &v
		}
		if d.Messages, err = unmarshalStrings(msgsJSON); err != nil {
			return nil, fmt.Errorf("scan delivery: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deliveries: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var (
		run       Run
		errsJSON  string
		startedAt string
	)
	if err := row.Scan(&run.ID, &run.Scenario, &run.Pass, &errsJSON, &startedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}

	var err error
	if run.Errors, err = unmarshalStrings(errsJSON); err != nil {
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	if run.StartedAt, err = time.Parse(timeLayout, startedAt); err != nil {
		return Run{}, fmt.Errorf("scan run: started_at: %w", err)
	}
	return run, nil
}
