package scenario

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/roach88/overdrive/internal/harness"
	"github.com/roach88/overdrive/internal/result"
	"github.com/roach88/overdrive/internal/task"
	"github.com/roach88/overdrive/internal/taskerr"
)

// Result converts the outcome into the result the task will deliver.
func (o OutcomeSpec) Result() (result.Result[any], error) {
	if o.Success != nil {
		v, err := decodeValue(o.Success)
		if err != nil {
			return result.Result[any]{}, fmt.Errorf("success value: %w", err)
		}
		return result.Success(v), nil
	}
	if o.Failure != nil {
		return result.Failure[any](o.Failure.Kind()), nil
	}
	return result.Result[any]{}, fmt.Errorf("outcome has neither success nor failure")
}

// Kind converts the failure into its taskerr shape. Combined causes keep
// their declaration order.
func (f FailureSpec) Kind() taskerr.Kind {
	if f.Combined == nil {
		return taskerr.Fail(f.Message)
	}
	causes := make([]error, len(*f.Combined))
	for i, c := range *f.Combined {
		causes[i] = c.Kind()
	}
	return taskerr.Combine(causes...)
}

// Build creates the harness task for t. Delayed tasks receive opts.
func (t TaskSpec) Build(opts ...harness.DelayedOption) (task.Task[any], error) {
	r, err := t.Outcome.Result()
	if err != nil {
		return nil, fmt.Errorf("task %q: %w", t.Name, err)
	}
	switch t.Mode {
	case ModeImmediate:
		return harness.AnyTask(r), nil
	case ModeDelayed:
		if t.Delay < 0 {
			return nil, fmt.Errorf("task %q: negative delay %s", t.Name, t.Delay)
		}
		return harness.NewDelayed(r, t.Delay, opts...), nil
	default:
		return nil, fmt.Errorf("task %q: unknown mode %q", t.Name, t.Mode)
	}
}

func decodeValue(n *yaml.Node) (any, error) {
	var v any
	if err := n.Decode(&v); err != nil {
		return nil, err
	}
	if v == nil {
		return nil, fmt.Errorf("null is not a valid value")
	}
	return v, nil
}
