package scenario

import (
	_ "embed"
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
)

//go:embed schema.cue
var schemaCUE string

// checkSchema unifies a raw decoded fixture with #Scenario and requires the
// result to be concrete.
//
// A fresh cue.Context is built per call: contexts are not safe for
// concurrent use and fixtures are loaded from parallel tests.
func checkSchema(raw map[string]any) error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return formatCUEError(err)
	}
	def := schema.LookupPath(cue.ParsePath("#Scenario"))

	v := ctx.Encode(raw)
	if err := v.Err(); err != nil {
		return formatCUEError(err)
	}

	unified := def.Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return formatCUEError(err)
	}
	return nil
}

// formatCUEError turns the first CUE error into a ValidationError whose
// Field is the dotted path into the fixture.
func formatCUEError(err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return &ValidationError{Field: "schema", Message: err.Error()}
	}

	first := errs[0]
	format, args := first.Msg()
	msg := first.Error()
	path := first.Path()
	if format != "" && len(path) > 0 {
		msg = strings.TrimSpace(fmt.Sprintf(format, args...))
	}
	return &ValidationError{
		Field:   strings.Join(path, "."),
		Message: msg,
	}
}
