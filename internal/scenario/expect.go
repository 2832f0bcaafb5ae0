package scenario

import (
	"bytes"
	"slices"

	"github.com/roach88/overdrive/internal/canonical"
)

// checkExpectations compares each expectation with the matching delivery
// and records every mismatch on the report.
func checkExpectations(report *Report, expects []Expectation) {
	for _, e := range expects {
		d, ok := report.Delivery(e.Task)
		if !ok {
			report.AddError("expect %q: no delivery", e.Task)
			continue
		}

		if d.Case != e.Case {
			report.AddError("expect %q: case = %s, want %s (got %s)", e.Task, d.Case, e.Case, d.Outcome)
			continue
		}

		switch e.Case {
		case CaseSuccess:
			if e.Value != nil {
				checkValue(report, e, d)
			}
		case CaseFailure:
			if e.Messages != nil && !slices.Equal(d.Messages, e.Messages) {
				report.AddError("expect %q: messages = %q, want %q", e.Task, d.Messages, e.Messages)
			}
		}

		if d.Elapsed < e.MinElapsed {
			report.AddError("expect %q: elapsed %s, want at least %s", e.Task, d.Elapsed, e.MinElapsed)
		}
		if e.MaxElapsed > 0 && d.Elapsed > e.MaxElapsed {
			report.AddError("expect %q: elapsed %s, want at most %s", e.Task, d.Elapsed, e.MaxElapsed)
		}
	}
}

// checkValue compares values by their canonical encoding so that YAML
// decoding differences (int vs int64, map ordering) do not matter.
func checkValue(report *Report, e Expectation, d Delivery) {
	want, err := decodeValue(e.Value)
	if err != nil {
		report.AddError("expect %q: value: %v", e.Task, err)
		return
	}
	wantJSON, err := canonical.Marshal(want)
	if err != nil {
		report.AddError("expect %q: value: %v", e.Task, err)
		return
	}
	gotJSON, err := canonical.Marshal(d.Value)
	if err != nil {
		report.AddError("expect %q: delivered value: %v", e.Task, err)
		return
	}
	if !bytes.Equal(gotJSON, wantJSON) {
		report.AddError("expect %q: value = %s, want %s", e.Task, gotJSON, wantJSON)
	}
}
