package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/overdrive/internal/scenario"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool        `json:"valid"`
	Files  int         `json:"files"`
	Errors []FileError `json:"errors,omitempty"`
}

// FileError is a load or validation failure for one scenario file.
type FileError struct {
	File    string `json:"file"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <file|dir>...",
		Short: "Validate scenario files without running them",
		Long: `Validate scenario fixtures: strict YAML decoding, the embedded CUE
schema, then semantic checks (unique task names, delays only on delayed
tasks, expectations naming declared tasks).

Directories are searched recursively for .yaml and .yml files.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	files, missing, err := expandPaths(paths)
	if err != nil {
		return outputValidateError(formatter, ErrCodeGeneric, err.Error())
	}
	if missing != "" {
		return outputValidateError(formatter, ErrCodeNotFound, fmt.Sprintf("path not found: %s", missing))
	}
	if len(files) == 0 {
		return outputValidateError(formatter, ErrCodeNoScenarios, "no scenario files found")
	}

	result := ValidationResult{Valid: true, Files: len(files)}
	for _, f := range files {
		formatter.VerboseLog("Validating %s", f)
		if _, err := scenario.LoadScenario(f); err != nil {
			result.Valid = false
			result.Errors = append(result.Errors, toFileError(f, err))
		}
	}

	if !result.Valid {
		return outputValidationErrors(formatter, result)
	}
	return outputValidateSuccess(formatter, result)
}

func toFileError(file string, err error) FileError {
	var ve *scenario.ValidationError
	if errors.As(err, &ve) {
		return FileError{File: file, Field: ve.Field, Message: ve.Message}
	}
	return FileError{File: file, Message: err.Error()}
}

func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ All scenarios valid (%d file(s))\n", result.Files)
	return nil
}

// outputValidateError reports a command-level error (exit code 2).
func outputValidateError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputValidationErrors reports invalid fixtures (exit code 1).
func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	failed := len(result.Errors)

	if formatter.Format == "json" {
		first := result.Errors[0]
		if err := formatter.Respond(result, &CLIError{
			Code:    ErrCodeInvalid,
			Message: fmt.Sprintf("%s: %s", first.File, first.Message),
		}); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", failed))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)
	for _, e := range result.Errors {
		fmt.Fprintln(formatter.Writer, e.File)
		if e.Field != "" {
			fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", e.Field, e.Message)
		} else {
			fmt.Fprintf(formatter.Writer, "  %s\n\n", e.Message)
		}
	}

	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", failed))
}
