package scenario

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadScenario_Fixtures(t *testing.T) {
	files, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, f := range files {
		t.Run(filepath.Base(f), func(t *testing.T) {
			s, err := LoadScenario(f)
			require.NoError(t, err)
			assert.Equal(t, strings.TrimSuffix(filepath.Base(f), ".yaml"), s.Name)
		})
	}
}

func TestParse_DelayedFixture(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/delayed_network_failure.yaml")
	require.NoError(t, err)

	assert.Equal(t, 2*time.Second, s.Timeout)
	require.Len(t, s.Tasks, 1)
	assert.Equal(t, ModeDelayed, s.Tasks[0].Mode)
	assert.Equal(t, 200*time.Millisecond, s.Tasks[0].Delay)
	require.NotNil(t, s.Tasks[0].Outcome.Failure)
	assert.Equal(t, "network down", s.Tasks[0].Outcome.Failure.Message)

	require.Len(t, s.Expect, 1)
	assert.Equal(t, CaseFailure, s.Expect[0].Case)
	assert.Equal(t, []string{"network down"}, s.Expect[0].Messages)
	assert.Equal(t, 200*time.Millisecond, s.Expect[0].MinElapsed)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestParse_UnknownFieldRejected(t *testing.T) {
	_, err := LoadScenario("testdata/invalid/unknown_field.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expects")
}

func TestParse_SchemaRejectsBadMode(t *testing.T) {
	_, err := LoadScenario("testdata/invalid/bad_mode.yaml")
	require.Error(t, err)
	assert.True(t, IsValidationError(err), "got %v", err)
	assert.Contains(t, err.Error(), "mode")
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name: "missing description",
			yaml: `
name: s
tasks:
  - name: t
    mode: immediate
    outcome: {success: 1}
`,
			wantErr: "description",
		},
		{
			name: "no tasks",
			yaml: `
name: s
description: d
tasks: []
`,
			wantErr: "tasks",
		},
		{
			name: "float value",
			yaml: `
name: s
description: d
tasks:
  - name: t
    mode: immediate
    outcome: {success: 1.5}
`,
			wantErr: "success",
		},
		{
			name: "duplicate task",
			yaml: `
name: s
description: d
tasks:
  - name: t
    mode: immediate
    outcome: {success: 1}
  - name: t
    mode: immediate
    outcome: {success: 2}
`,
			wantErr: `duplicate task name "t"`,
		},
		{
			name: "delay on immediate",
			yaml: `
name: s
description: d
tasks:
  - name: t
    mode: immediate
    delay: 10ms
    outcome: {success: 1}
`,
			wantErr: "delay is only valid for delayed tasks",
		},
		{
			name: "both outcomes",
			yaml: `
name: s
description: d
tasks:
  - name: t
    mode: immediate
    outcome:
      success: 1
      failure: {message: x}
`,
			wantErr: "exactly one of success or failure",
		},
		{
			name: "no outcome",
			yaml: `
name: s
description: d
tasks:
  - name: t
    mode: immediate
    outcome: {}
`,
			wantErr: "one of success or failure is required",
		},
		{
			name: "both failure variants",
			yaml: `
name: s
description: d
tasks:
  - name: t
    mode: immediate
    outcome:
      failure:
        message: x
        combined: []
`,
			wantErr: "exactly one of message or combined",
		},
		{
			name: "nested failure without variant",
			yaml: `
name: s
description: d
tasks:
  - name: t
    mode: immediate
    outcome:
      failure:
        combined:
          - message: a
          - {}
`,
			wantErr: "tasks[0].outcome.failure.combined[1]",
		},
		{
			name: "expectation for unknown task",
			yaml: `
name: s
description: d
tasks:
  - name: t
    mode: immediate
    outcome: {success: 1}
expect:
  - task: u
    case: success
`,
			wantErr: `unknown task "u"`,
		},
		{
			name: "messages on success expectation",
			yaml: `
name: s
description: d
tasks:
  - name: t
    mode: immediate
    outcome: {success: 1}
expect:
  - task: t
    case: success
    messages: [x]
`,
			wantErr: "messages only apply to failure expectations",
		},
		{
			name: "max below min",
			yaml: `
name: s
description: d
tasks:
  - name: t
    mode: delayed
    delay: 10ms
    outcome: {success: 1}
expect:
  - task: t
    case: success
    min_elapsed: 50ms
    max_elapsed: 10ms
`,
			wantErr: "max_elapsed is less than min_elapsed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.True(t, IsValidationError(err), "got %v", err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParse_BadDurationFailsDecoding(t *testing.T) {
	_, err := Parse([]byte(`
name: s
description: d
tasks:
  - name: t
    mode: delayed
    delay: soon
    outcome: {success: 1}
`))
	require.Error(t, err)
	assert.False(t, IsValidationError(err))
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestParse_EmptyCombinedAllowed(t *testing.T) {
	s, err := Parse([]byte(`
name: s
description: d
tasks:
  - name: t
    mode: immediate
    outcome:
      failure:
        combined: []
`))
	require.NoError(t, err)
	require.NotNil(t, s.Tasks[0].Outcome.Failure.Combined)
	assert.Empty(t, *s.Tasks[0].Outcome.Failure.Combined)
}

func TestValidationError_Error(t *testing.T) {
	assert.Equal(t, "tasks[0].mode: bad", (&ValidationError{Field: "tasks[0].mode", Message: "bad"}).Error())
	assert.Equal(t, "bad", (&ValidationError{Message: "bad"}).Error())
}

func TestLoadScenario_WrapsPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: [\n"), 0o644))

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), path)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}
