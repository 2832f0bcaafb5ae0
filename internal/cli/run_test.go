package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/overdrive/internal/scenario"
)

func TestRunMissingArgs(t *testing.T) {
	_, _, err := execute(NewRunCommand(&RootOptions{Format: "text"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestRunNonExistentDir(t *testing.T) {
	_, _, err := execute(NewRunCommand(&RootOptions{Format: "text"}), "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "scenarios directory not found")
}

func TestRunEmptyDir(t *testing.T) {
	out, _, err := execute(NewRunCommand(&RootOptions{Format: "text"}), t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found")
}

func TestRunEmptyDirJSON(t *testing.T) {
	out, _, err := execute(NewRunCommand(&RootOptions{Format: "json"}), t.TempDir())
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestRunFixturesWithoutGolden(t *testing.T) {
	dir := copyFixtures(t)

	out, _, err := execute(NewRunCommand(&RootOptions{Format: "text"}), dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ immediate_success")
	assert.Contains(t, out, "✓ delayed_network_failure")
	assert.Contains(t, out, "✓ combined_failure")
	assert.Contains(t, out, "Summary: 3 passed, 0 failed, 3 total")
}

func TestRunUpdateThenCompare(t *testing.T) {
	dir := copyFixtures(t, "immediate_success.yaml", "combined_failure.yaml")

	out, _, err := execute(NewRunCommand(&RootOptions{Format: "text"}), dir, "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ immediate_success (golden updated)")

	// The written golden matches the one checked in with the scenario package.
	got, err := os.ReadFile(filepath.Join(dir, "golden", "immediate_success.golden"))
	require.NoError(t, err)
	want, err := os.ReadFile("../scenario/testdata/golden/immediate_success.golden")
	require.NoError(t, err)
	assert.Equal(t, string(want), string(got))

	out, _, err = execute(NewRunCommand(&RootOptions{Format: "json"}), dir)
	require.NoError(t, err)

	var resp struct {
		Status string    `json:"status"`
		Data   RunResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data.Scenarios, 2)
	for _, s := range resp.Data.Scenarios {
		assert.Equal(t, "match", s.Golden, s.Name)
	}
}

func TestRunGoldenMismatchFails(t *testing.T) {
	dir := copyFixtures(t, "immediate_success.yaml")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "golden"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "golden", "immediate_success.golden"), []byte(`{}`), 0o644))

	out, _, err := execute(NewRunCommand(&RootOptions{Format: "text"}), dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ immediate_success")
	assert.Contains(t, out, "snapshot does not match golden file")
}

func TestRunFilter(t *testing.T) {
	dir := copyFixtures(t)

	out, _, err := execute(NewRunCommand(&RootOptions{Format: "json"}), dir, "--filter", "*_failure")
	require.NoError(t, err)

	var resp struct {
		Data RunResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, 2, resp.Data.Total)
	for _, s := range resp.Data.Scenarios {
		assert.NotEqual(t, "immediate_success", s.Name)
	}
}

func TestRunInvalidFilter(t *testing.T) {
	dir := copyFixtures(t, "immediate_success.yaml")

	_, _, err := execute(NewRunCommand(&RootOptions{Format: "text"}), dir, "--filter", "[")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRunFailingScenarios(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "wrong.yaml", `
name: wrong
description: expectation does not hold
tasks:
  - name: t
    mode: immediate
    outcome: {success: 1}
expect:
  - task: t
    case: failure
`)
	writeScenario(t, dir, "broken.yaml", "name: [\n")
	writeScenario(t, dir, "stuck.yaml", `
name: stuck
description: never delivers in time
tasks:
  - name: t
    mode: delayed
    delay: 1h
    outcome: {success: 1}
`)

	out, _, err := execute(NewRunCommand(&RootOptions{Format: "json"}), dir, "--timeout", "20ms")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string    `json:"status"`
		Data   RunResult `json:"data"`
		Error  *CLIError `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, ErrCodeScenarioFailed, resp.Error.Code)
	assert.Equal(t, 3, resp.Data.Failed)

	byFile := map[string]ScenarioResult{}
	for _, s := range resp.Data.Scenarios {
		byFile[filepath.Base(s.File)] = s
	}
	assert.Contains(t, byFile["broken.yaml"].Errors[0], "failed to load scenario")
	assert.Contains(t, byFile["stuck.yaml"].Errors[0], "execution failed")
	assert.Contains(t, byFile["wrong.yaml"].Errors[0], `expect "t": case = success, want failure`)
}

func TestRunRecordsToDatabase(t *testing.T) {
	dir := copyFixtures(t, "combined_failure.yaml")
	db := filepath.Join(t.TempDir(), "overdrive.db")

	out, _, err := execute(NewRunCommand(&RootOptions{Format: "json"}), dir, "--db", db)
	require.NoError(t, err)

	var resp struct {
		Data RunResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data.Scenarios, 1)
	runID := resp.Data.Scenarios[0].RunID
	require.NotEmpty(t, runID)

	out, _, err = execute(NewTraceCommand(&RootOptions{Format: "json"}), "--db", db, "--run", runID)
	require.NoError(t, err)

	var trace struct {
		Data TraceResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &trace))
	assert.Equal(t, "combined_failure", trace.Data.Run.Scenario)
	require.Len(t, trace.Data.Deliveries, 2)
	assert.Equal(t, "fork", trace.Data.Deliveries[0].Task)
	assert.Equal(t, []string{"a", "b"}, trace.Data.Deliveries[0].Messages)
	assert.Equal(t, `{"names":["a","b"],"ok":true}`, trace.Data.Deliveries[1].Value)
}

func TestFindScenarioFiles(t *testing.T) {
	dir := copyFixtures(t)
	writeScenario(t, dir, "notes.txt", "ignored")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested"), 0o755))
	writeScenario(t, filepath.Join(dir, "nested"), "extra.yml", "name: x")

	files, err := findScenarioFiles(dir, "")
	require.NoError(t, err)
	var names []string
	for _, f := range files {
		names = append(names, filepath.Base(f))
	}
	assert.Equal(t, []string{
		"combined_failure.yaml",
		"delayed_network_failure.yaml",
		"immediate_success.yaml",
		"extra.yml",
	}, names)
}

func TestRunResultMatchesScenarioSnapshot(t *testing.T) {
	// Guard: the CLI writes exactly what scenario.Snapshot renders.
	dir := copyFixtures(t, "delayed_network_failure.yaml")
	_, _, err := execute(NewRunCommand(&RootOptions{Format: "text"}), dir, "--update")
	require.NoError(t, err)

	assert.FileExists(t, scenario.GoldenPath(filepath.Join(dir, "golden"), "delayed_network_failure"))
}
