package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/overdrive/internal/canonical"
)

// GoldenSuffix is the extension of golden snapshot files.
const GoldenSuffix = ".golden"

// Snapshot renders the deterministic part of a report as canonical JSON.
//
// Wall times, elapsed durations and event seqs are left out: delayed tasks
// finish in timer order, which is not reproducible across runs. Tasks are
// listed in declaration order.
func Snapshot(r *Report) ([]byte, error) {
	tasks := make([]any, len(r.Deliveries))
	for i, d := range r.Deliveries {
		m := map[string]any{
			"name":    d.Task,
			"task_id": d.TaskID,
			"mode":    string(d.Mode),
			"case":    string(d.Case),
		}
		if d.Mode == ModeDelayed {
			m["delay"] = d.Delay.String()
		}
		switch d.Case {
		case CaseSuccess:
			m["value"] = d.Value
		case CaseFailure:
			m["messages"] = d.Messages
		}
		tasks[i] = m
	}

	errs := make([]string, len(r.Errors))
	copy(errs, r.Errors)

	snap := map[string]any{
		"scenario": r.Scenario,
		"pass":     r.Pass,
		"tasks":    tasks,
		"errors":   errs,
	}
	out, err := canonical.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", r.Scenario, err)
	}
	return out, nil
}

// AssertGolden compares the report snapshot against
// testdata/golden/<scenario>.golden.
//
// To regenerate golden files, run the test with -update.
func AssertGolden(t *testing.T, r *Report) {
	t.Helper()

	got, err := Snapshot(r)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(GoldenSuffix),
	)
	g.Assert(t, r.Scenario, got)
}

// GoldenPath returns the golden file path for a scenario under dir.
func GoldenPath(dir, name string) string {
	return filepath.Join(dir, name+GoldenSuffix)
}

// CompareGolden checks the report snapshot against the golden file in dir.
// A missing golden file is reported as a mismatch with want == nil.
func CompareGolden(dir string, r *Report) (match bool, got, want []byte, err error) {
	got, err = Snapshot(r)
	if err != nil {
		return false, nil, nil, err
	}
	want, err = os.ReadFile(GoldenPath(dir, r.Scenario))
	if errors.Is(err, os.ErrNotExist) {
		return false, got, nil, nil
	}
	if err != nil {
		return false, got, nil, fmt.Errorf("read golden file: %w", err)
	}
	return bytes.Equal(got, want), got, want, nil
}

// WriteGolden writes the report snapshot to dir, creating dir if needed.
func WriteGolden(dir string, r *Report) error {
	got, err := Snapshot(r)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create golden dir: %w", err)
	}
	if err := os.WriteFile(GoldenPath(dir, r.Scenario), got, 0o644); err != nil {
		return fmt.Errorf("write golden file: %w", err)
	}
	return nil
}
