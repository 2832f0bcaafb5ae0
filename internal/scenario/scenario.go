package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Mode selects the harness variant for a task.
type Mode string

const (
	ModeImmediate Mode = "immediate"
	ModeDelayed   Mode = "delayed"
)

// Case names the expected result variant.
type Case string

const (
	CaseSuccess Case = "success"
	CaseFailure Case = "failure"
)

// DefaultTimeout bounds how long Run waits for each task.
const DefaultTimeout = 5 * time.Second

// Scenario is a harness fixture: a set of stand-in tasks with predetermined
// outcomes and the expectations their deliveries must meet.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Timeout bounds the wait for each task. Zero means DefaultTimeout.
	Timeout time.Duration `yaml:"timeout,omitempty"`

	// Tasks are started in declaration order.
	Tasks []TaskSpec `yaml:"tasks"`

	// Expect holds per-task checks on the delivered result.
	Expect []Expectation `yaml:"expect,omitempty"`
}

// TaskSpec declares one harness task.
type TaskSpec struct {
	Name    string        `yaml:"name"`
	Mode    Mode          `yaml:"mode"`
	Delay   time.Duration `yaml:"delay,omitempty"`
	Outcome OutcomeSpec   `yaml:"outcome"`
}

// OutcomeSpec holds exactly one of Success or Failure.
//
// Success is kept as a node so that a present-but-falsy value (0, false, "")
// is distinguishable from an absent one.
type OutcomeSpec struct {
	Success *yaml.Node   `yaml:"success,omitempty"`
	Failure *FailureSpec `yaml:"failure,omitempty"`
}

// FailureSpec holds exactly one of Message or Combined.
// Combined may be an empty list: an unspecified aggregate failure.
type FailureSpec struct {
	Message  string         `yaml:"message,omitempty"`
	Combined *[]FailureSpec `yaml:"combined,omitempty"`
}

// Expectation checks the delivery of one task.
type Expectation struct {
	// Task is the TaskSpec name.
	Task string `yaml:"task"`

	// Case is the expected variant.
	Case Case `yaml:"case"`

	// Value, if set, must equal the success value.
	Value *yaml.Node `yaml:"value,omitempty"`

	// Messages, if set, must equal taskerr.Messages of the failure in order.
	Messages []string `yaml:"messages,omitempty"`

	// MinElapsed is the least start-to-finish time allowed.
	MinElapsed time.Duration `yaml:"min_elapsed,omitempty"`

	// MaxElapsed, if non-zero, is the most start-to-finish time allowed.
	MaxElapsed time.Duration `yaml:"max_elapsed,omitempty"`
}

// ValidationError reports a fixture that is well-formed YAML but not a valid
// scenario.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// IsValidationError reports whether err is or wraps a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// LoadScenario reads, parses, and validates a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Parse decodes and validates a scenario from YAML bytes.
//
// Validation runs in three passes: strict decoding (unknown fields are
// rejected, so "expects:" is an error rather than silently ignored), the
// embedded CUE schema, then the Go-level rules in Validate.
func Parse(data []byte) (*Scenario, error) {
	var s Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := checkSchema(raw); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	if err := Validate(&s); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &s, nil
}

// Validate checks the rules the schema does not cover.
func Validate(s *Scenario) error {
	if s.Name == "" {
		return &ValidationError{Field: "name", Message: "name is required"}
	}
	if len(s.Tasks) == 0 {
		return &ValidationError{Field: "tasks", Message: "at least one task is required"}
	}
	if s.Timeout < 0 {
		return &ValidationError{Field: "timeout", Message: "timeout must be non-negative"}
	}

	seen := make(map[string]bool, len(s.Tasks))
	for i, t := range s.Tasks {
		field := fmt.Sprintf("tasks[%d]", i)
		if t.Name == "" {
			return &ValidationError{Field: field + ".name", Message: "name is required"}
		}
		if seen[t.Name] {
			return &ValidationError{Field: field + ".name", Message: fmt.Sprintf("duplicate task name %q", t.Name)}
		}
		seen[t.Name] = true

		switch t.Mode {
		case ModeImmediate:
			if t.Delay != 0 {
				return &ValidationError{Field: field + ".delay", Message: "delay is only valid for delayed tasks"}
			}
		case ModeDelayed:
			if t.Delay < 0 {
				return &ValidationError{Field: field + ".delay", Message: "delay must be non-negative"}
			}
		default:
			return &ValidationError{Field: field + ".mode", Message: fmt.Sprintf("unknown mode %q", t.Mode)}
		}

		if err := validateOutcome(field+".outcome", t.Outcome); err != nil {
			return err
		}
	}

	for i, e := range s.Expect {
		field := fmt.Sprintf("expect[%d]", i)
		if !seen[e.Task] {
			return &ValidationError{Field: field + ".task", Message: fmt.Sprintf("unknown task %q", e.Task)}
		}
		switch e.Case {
		case CaseSuccess:
			if len(e.Messages) > 0 {
				return &ValidationError{Field: field + ".messages", Message: "messages only apply to failure expectations"}
			}
		case CaseFailure:
			if e.Value != nil {
				return &ValidationError{Field: field + ".value", Message: "value only applies to success expectations"}
			}
		default:
			return &ValidationError{Field: field + ".case", Message: fmt.Sprintf("unknown case %q", e.Case)}
		}
		if e.MaxElapsed != 0 && e.MaxElapsed < e.MinElapsed {
			return &ValidationError{Field: field + ".max_elapsed", Message: "max_elapsed is less than min_elapsed"}
		}
	}

	return nil
}

func validateOutcome(field string, o OutcomeSpec) error {
	switch {
	case o.Success != nil && o.Failure != nil:
		return &ValidationError{Field: field, Message: "exactly one of success or failure is allowed"}
	case o.Success != nil:
		return nil
	case o.Failure != nil:
		return validateFailure(field+".failure", *o.Failure)
	default:
		return &ValidationError{Field: field, Message: "one of success or failure is required"}
	}
}

func validateFailure(field string, f FailureSpec) error {
	switch {
	case f.Message != "" && f.Combined != nil:
		return &ValidationError{Field: field, Message: "exactly one of message or combined is allowed"}
	case f.Message != "":
		return nil
	case f.Combined != nil:
		for i, c := range *f.Combined {
			if err := validateFailure(fmt.Sprintf("%s.combined[%d]", field, i), c); err != nil {
				return err
			}
		}
		return nil
	default:
		return &ValidationError{Field: field, Message: "one of message or combined is required"}
	}
}
